package tablemap

import (
	"fmt"
	"strconv"
	"strings"
)

// Placeholder selects the positional parameter style for a target database.
//
// Common choices:
//   - PlaceholderQuestion   → "?"           (MySQL, SQLite, DuckDB, ClickHouse)
//   - PlaceholderDollar     → "$1, $2, …"  (PostgreSQL)
//   - PlaceholderAtP        → "@p1, @p2…"  (SQL Server)
//   - PlaceholderColonNum   → ":1, :2, …"  (Oracle)
type Placeholder int

const (
	PlaceholderQuestion Placeholder = iota
	PlaceholderDollar
	PlaceholderAtP
	PlaceholderColonNum
)

// PlaceholderFor picks a Placeholder based on a driver name string.
//
// Examples:
//
//	ph := tablemap.PlaceholderFor("pgx")       // => PlaceholderDollar
//	ph := tablemap.PlaceholderFor("sqlserver") // => PlaceholderAtP
//	ph := tablemap.PlaceholderFor("mysql")     // => PlaceholderQuestion
func PlaceholderFor(driverName string) Placeholder {
	switch strings.ToLower(driverName) {
	case "pgx", "postgres", "postgresql", "lib/pq", "pg":
		return PlaceholderDollar
	case "sqlserver", "mssql":
		return PlaceholderAtP
	case "godror", "oracle", "goracle":
		return PlaceholderColonNum
	default:
		return PlaceholderQuestion
	}
}

// ParsePlaceholder accepts the style names used in configuration files:
// "question", "dollar", "atp" and "colon" (or the literal "?", "$", "@p", ":").
func ParsePlaceholder(s string) (Placeholder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "question", "?":
		return PlaceholderQuestion, nil
	case "dollar", "$":
		return PlaceholderDollar, nil
	case "atp", "@p":
		return PlaceholderAtP, nil
	case "colon", ":":
		return PlaceholderColonNum, nil
	default:
		return PlaceholderQuestion, fmt.Errorf("tablemap: unknown placeholder style %q", s)
	}
}

// appendTo writes the n-th (1-based) parameter marker.
func (p Placeholder) appendTo(b *strings.Builder, n int) {
	switch p {
	case PlaceholderDollar:
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	case PlaceholderAtP:
		b.WriteString("@p")
		b.WriteString(strconv.Itoa(n))
	case PlaceholderColonNum:
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(n))
	default:
		b.WriteByte('?')
	}
}

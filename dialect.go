package tablemap

import (
	"fmt"
	"strings"
)

// IdentifierCase selects how schema and table names are folded before they
// are compared against the catalog.
type IdentifierCase int

const (
	CaseDialect  IdentifierCase = iota // use the dialect's stored convention
	CaseUpper                          // Oracle-style upper-case catalogs
	CaseLower                          // PostgreSQL-style lower-case catalogs
	CasePreserve                       // compare exactly as given
)

// ParseIdentifierCase accepts "", "dialect", "upper", "lower" and "preserve".
func ParseIdentifierCase(s string) (IdentifierCase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "dialect":
		return CaseDialect, nil
	case "upper":
		return CaseUpper, nil
	case "lower":
		return CaseLower, nil
	case "preserve":
		return CasePreserve, nil
	default:
		return CaseDialect, fmt.Errorf("tablemap: unknown identifier case %q", s)
	}
}

func (c IdentifierCase) fold(s string) string {
	switch c {
	case CaseUpper:
		return strings.ToUpper(s)
	case CaseLower:
		return strings.ToLower(s)
	default:
		return s
	}
}

// Dialect describes one database catalog: where column metadata lives, how
// identifiers are stored, which placeholder style the driver expects, and how
// reported type names translate into the canonical vocabulary Classify knows.
type Dialect struct {
	Name string

	// CatalogQuery takes the schema and the table as its two positional
	// parameters and yields the columns name, type_name and nullable in
	// catalog order. An empty schema selects the session's current schema.
	CatalogQuery string

	Case        IdentifierCase
	Placeholder Placeholder

	// TypeAliases maps a lower-case reported type name (precision removed) to
	// its canonical spelling, e.g. "character varying" -> "VARCHAR2".
	TypeAliases map[string]string
}

// canonicalType translates a reported type name for Classify. Names without
// an alias are returned unchanged.
func (d Dialect) canonicalType(raw string) string {
	if len(d.TypeAliases) == 0 || raw == "" {
		return raw
	}
	key := strings.ToLower(strings.TrimSpace(precisionSuffix.ReplaceAllString(raw, "")))
	if canon, ok := d.TypeAliases[key]; ok {
		return canon
	}
	return raw
}

// Oracle reads ALL_TAB_COLS, the reference catalog. Identifiers are stored in
// upper case; parameters use the ":n" style of godror.
var Oracle = Dialect{
	Name: "oracle",
	CatalogQuery: `SELECT COLUMN_NAME AS name, DATA_TYPE AS type_name, NULLABLE AS nullable
FROM ALL_TAB_COLS
WHERE OWNER = NVL(:1, SYS_CONTEXT('USERENV', 'CURRENT_SCHEMA')) AND TABLE_NAME = :2 AND HIDDEN_COLUMN = 'NO'
ORDER BY COLUMN_ID`,
	Case:        CaseUpper,
	Placeholder: PlaceholderColonNum,
}

// Postgres reads information_schema.columns.
var Postgres = Dialect{
	Name: "postgres",
	CatalogQuery: `SELECT column_name AS name, data_type AS type_name, is_nullable AS nullable
FROM information_schema.columns
WHERE table_schema = COALESCE(NULLIF($1::text, ''), current_schema()) AND table_name = $2::text
ORDER BY ordinal_position`,
	Case:        CaseLower,
	Placeholder: PlaceholderDollar,
	TypeAliases: map[string]string{
		"character varying":           "VARCHAR2",
		"text":                        "VARCHAR2",
		"character":                   "CHAR",
		"numeric":                     "NUMBER",
		"decimal":                     "NUMBER",
		"integer":                     "NUMBER",
		"bigint":                      "NUMBER",
		"smallint":                    "NUMBER",
		"real":                        "NUMBER",
		"double precision":            "NUMBER",
		"date":                        "DATE",
		"timestamp without time zone": "TIMESTAMP",
		"timestamp with time zone":    "TIMESTAMP",
		"bytea":                       "BLOB",
	},
}

// MySQL reads information_schema.columns; the schema is the database name.
var MySQL = Dialect{
	Name: "mysql",
	CatalogQuery: `SELECT COLUMN_NAME AS name, DATA_TYPE AS type_name, IS_NULLABLE AS nullable
FROM information_schema.columns
WHERE table_schema = COALESCE(NULLIF(?, ''), DATABASE()) AND table_name = ?
ORDER BY ordinal_position`,
	Case:        CasePreserve,
	Placeholder: PlaceholderQuestion,
	TypeAliases: map[string]string{
		"varchar":    "VARCHAR2",
		"char":       "CHAR",
		"decimal":    "NUMBER",
		"int":        "NUMBER",
		"bigint":     "NUMBER",
		"smallint":   "NUMBER",
		"tinyint":    "NUMBER",
		"double":     "NUMBER",
		"float":      "NUMBER",
		"date":       "DATE",
		"datetime":   "TIMESTAMP",
		"timestamp":  "TIMESTAMP",
		"blob":       "BLOB",
		"longblob":   "BLOB",
		"mediumblob": "BLOB",
		"text":       "NCLOB",
		"longtext":   "NCLOB",
		"mediumtext": "NCLOB",
	},
}

// SQLite reads pragma_table_info. Declared types are reported verbatim, so
// tables declared with the canonical names classify directly; the common
// SQLite affinities are aliased. The empty schema means "main"; an unknown
// schema yields no rows instead of an "unknown database" error.
var SQLite = Dialect{
	Name: "sqlite",
	CatalogQuery: `SELECT name AS name, type AS type_name, CASE WHEN "notnull" = 0 THEN 'YES' ELSE 'NO' END AS nullable
FROM pragma_table_info(?2, CASE WHEN EXISTS (SELECT 1 FROM pragma_database_list WHERE name = COALESCE(NULLIF(?1, ''), 'main'))
	THEN COALESCE(NULLIF(?1, ''), 'main') ELSE 'temp' END)
WHERE EXISTS (SELECT 1 FROM pragma_database_list WHERE name = COALESCE(NULLIF(?1, ''), 'main'))
ORDER BY cid`,
	Case:        CasePreserve,
	Placeholder: PlaceholderQuestion,
	TypeAliases: map[string]string{
		"varchar":  "VARCHAR2",
		"text":     "VARCHAR2",
		"integer":  "NUMBER",
		"int":      "NUMBER",
		"real":     "NUMBER",
		"numeric":  "NUMBER",
		"decimal":  "NUMBER",
		"datetime": "TIMESTAMP",
	},
}

// DialectFor picks a built-in dialect by dialect or driver name.
//
//	d, _ := tablemap.DialectFor("godror")  // Oracle
//	d, _ := tablemap.DialectFor("sqlite3") // SQLite
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "oracle", "godror", "goracle", "oci8":
		return Oracle, nil
	case "postgres", "postgresql", "pgx", "pq", "lib/pq", "pg":
		return Postgres, nil
	case "mysql", "mariadb":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("tablemap: unknown dialect %q", name)
	}
}

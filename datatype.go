package tablemap

import "regexp"

// DataKind is the logical kind of a column, derived from the type name the
// catalog reports. The set is closed; unknown names fall back to
// KindStringVarWide.
type DataKind int

const (
	KindStringVarWide DataKind = iota // NVARCHAR2, and the fallback for anything unknown
	KindStringVar                     // VARCHAR2
	KindNumeric                       // NUMBER
	KindDateOnly                      // DATE
	KindDateTime                      // TIMESTAMP
	KindLargeBinary                   // BLOB
	KindLargeText                     // NCLOB
	KindFixedChar                     // CHAR
)

var kindNames = [...]string{
	KindStringVarWide: "NVARCHAR2",
	KindStringVar:     "VARCHAR2",
	KindNumeric:       "NUMBER",
	KindDateOnly:      "DATE",
	KindDateTime:      "TIMESTAMP",
	KindLargeBinary:   "BLOB",
	KindLargeText:     "NCLOB",
	KindFixedChar:     "CHAR",
}

// String returns the canonical catalog spelling of the kind.
func (k DataKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[KindStringVarWide]
	}
	return kindNames[k]
}

var canonicalKinds = map[string]DataKind{
	"VARCHAR2":  KindStringVar,
	"NVARCHAR2": KindStringVarWide,
	"NUMBER":    KindNumeric,
	"DATE":      KindDateOnly,
	"TIMESTAMP": KindDateTime,
	"BLOB":      KindLargeBinary,
	"NCLOB":     KindLargeText,
	"CHAR":      KindFixedChar,
}

// precisionSuffix matches "(6)" or "(10,2)" annotations.
var precisionSuffix = regexp.MustCompile(`\(\s*\d+\s*(,\s*\d+\s*)?\)`)

// Classify maps a catalog type name to its DataKind.
//
// A parenthesized precision such as TIMESTAMP(6) or NUMBER(10,2) is removed
// before matching, so it never changes the result. Matching is exact and
// case-sensitive on the canonical upper-case spelling. Empty input and any
// name outside the known set classify as KindStringVarWide; this is a safe
// fallback, not an error.
//
//	tablemap.Classify("TIMESTAMP(6)") // KindDateTime
//	tablemap.Classify("XMLTYPE")      // KindStringVarWide
func Classify(rawTypeName string) DataKind {
	if rawTypeName == "" {
		return KindStringVarWide
	}
	name := precisionSuffix.ReplaceAllString(rawTypeName, "")
	if k, ok := canonicalKinds[name]; ok {
		return k
	}
	return KindStringVarWide
}

// bindMode is how a value of a given kind reaches the driver.
type bindMode uint8

const (
	bindText bindMode = iota
	bindDecimal
	bindTemporal
	bindBinary
	bindLargeText
)

func (k DataKind) bindMode() bindMode {
	switch k {
	case KindNumeric:
		return bindDecimal
	case KindDateOnly, KindDateTime:
		return bindTemporal
	case KindLargeBinary:
		return bindBinary
	case KindLargeText:
		return bindLargeText
	default:
		return bindText
	}
}

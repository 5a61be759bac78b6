package tablemap

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

var timeType = reflect.TypeOf(time.Time{})

// temporalLayouts are tried in order when a temporal column receives text.
// The first covers "2006-01-02 15:04:05" with optional fractional seconds.
var temporalLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

var (
	errNotNumeric  = errors.New("not a decimal number")
	errNotTemporal = errors.New("not a date or timestamp")
	errNotBinary   = errors.New("large binary columns take []byte")
)

// bindArg converts a binding into the driver argument for its column kind.
// Absent bindings always become NULL.
func bindArg(b Binding) (any, error) {
	if !b.Present {
		return nil, nil
	}
	v, err := coerce(b.Column.Kind, b.Value)
	if err != nil {
		return nil, &CoercionError{Column: b.Column.Name, Kind: b.Column.Kind, Value: b.Value, Err: err}
	}
	return v, nil
}

func coerce(kind DataKind, v any) (any, error) {
	switch kind.bindMode() {
	case bindDecimal:
		return coerceDecimal(v)
	case bindTemporal:
		return coerceTemporal(v)
	case bindBinary:
		if b, ok := v.([]byte); ok {
			return b, nil
		}
		return nil, errNotBinary
	case bindLargeText:
		if b, ok := v.([]byte); ok {
			return string(b), nil
		}
		return coerceText(v)
	default:
		return coerceText(v)
	}
}

// coerceDecimal passes Go numerics through and parses textual numbers.
func coerceDecimal(v any) (any, error) {
	switch x := v.(type) {
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		return x, nil
	case uint:
		return unsignedDecimal(uint64(x)), nil
	case uint64:
		return unsignedDecimal(x), nil
	case float32:
		return finite(float64(x), x)
	case float64:
		return finite(x, x)
	case decimal.Decimal:
		return x, nil
	case json.Number:
		return parseDecimal(x.String())
	case string:
		return parseDecimal(x)
	case []byte:
		return parseDecimal(string(x))
	case fmt.Stringer:
		return parseDecimal(x.String())
	}

	// Named numeric types (type Amount float64).
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return unsignedDecimal(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return finite(rv.Float(), rv.Float())
	case reflect.String:
		return parseDecimal(rv.String())
	}
	return nil, errNotNumeric
}

// unsignedDecimal keeps values database/sql can carry as int64 and turns
// larger ones into a decimal.
func unsignedDecimal(u uint64) any {
	if u <= math.MaxInt64 {
		return int64(u)
	}
	return decimal.NewFromBigInt(new(big.Int).SetUint64(u), 0)
}

// finite rejects NaN and infinities, which have no NUMBER representation.
func finite(f float64, v any) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: %v", errNotNumeric, f)
	}
	return v, nil
}

func parseDecimal(s string) (any, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errNotNumeric, err)
	}
	return d, nil
}

// coerceTemporal passes time.Time through and parses the native literal
// forms "2006-01-02" and "2006-01-02 15:04:05[.fffffffff]", plus RFC 3339.
// Text without a zone is read as UTC.
func coerceTemporal(v any) (any, error) {
	var s string
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		s = x
	case []byte:
		s = string(x)
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.String {
			s = rv.String()
			break
		}
		if rv.Type().ConvertibleTo(timeType) && rv.Kind() == reflect.Struct {
			return rv.Convert(timeType).Interface(), nil
		}
		return nil, errNotTemporal
	}

	s = strings.TrimSpace(s)
	for _, layout := range temporalLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", errNotTemporal, s)
}

// coerceText renders scalars as text for the character kinds.
func coerceText(v any) (any, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case time.Time:
		return x.Format("2006-01-02 15:04:05.999999999"), nil
	case decimal.Decimal:
		return x.String(), nil
	}
	s, err := cast.ToStringE(v)
	if err == nil {
		return s, nil
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.String {
		return rv.String(), nil
	}
	return nil, err
}

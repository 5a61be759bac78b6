package tablemap

import (
	"database/sql/driver"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"sync"
)

// FieldDescriber lets a type expose its fields without reflection. Keys are
// field names matched against column names the same way struct fields are;
// a nil value means the field is absent.
type FieldDescriber interface {
	DescribeFields() map[string]any
}

// Binding is the value resolved from an entity for one column.
//
// Present is false when the entity has the field but it holds no value (nil
// pointer, nil interface, a driver.Valuer returning nil). Such bindings are
// inserted as NULL and skipped by updates.
type Binding struct {
	Column  Column
	Value   any
	Present bool
}

// Bind resolves the entity's fields against cols and returns one Binding per
// column that has a matching field, in column order.
//
// The entity may be a FieldDescriber, a map[string]any, or a struct (or
// pointer to one). Struct fields bind by `db:"name"` first, otherwise by
// field name; `db:"-"` skips a field and anonymous or `db:",inline"` structs
// are flattened. Names compare case-insensitively with underscores ignored,
// so a field CreateDate matches the column CREATE_DATE. Names equal up to case
// are matched first, and a field bound to one column is not reused for
// another, so tables with both CREATEDATE and CREATE_DATE stay distinct.
//
// Columns without a field are left out, which lets an entity carry a subset
// or a superset of the table's columns. Bind only fails for unsupported
// entity shapes or when a driver.Valuer reports an error.
func Bind(entity any, cols []Column) ([]Binding, error) {
	lookup, err := fieldLookup(entity)
	if err != nil {
		return nil, err
	}

	// Exact (case-insensitive) names claim fields first; a field claimed by
	// one column is never bound to a second one through the looser match.
	type match struct {
		raw any
		ok  bool
	}
	matches := make([]match, len(cols))
	claimed := make(map[string]bool, len(cols))
	for _, exact := range []bool{true, false} {
		for i, c := range cols {
			if matches[i].ok {
				continue
			}
			key, raw, ok := lookup(c.Name, exact)
			if !ok || claimed[key] {
				continue
			}
			claimed[key] = true
			matches[i] = match{raw: raw, ok: true}
		}
	}

	out := make([]Binding, 0, len(cols))
	for i, c := range cols {
		if !matches[i].ok {
			continue
		}
		raw := matches[i].raw
		v, present, err := resolveValue(raw)
		if err != nil {
			return nil, &CoercionError{Column: c.Name, Kind: c.Kind, Value: raw, Err: err}
		}
		out = append(out, Binding{Column: c, Value: v, Present: present})
	}
	return out, nil
}

// lookupFunc finds the field for a column name. exact compares names
// ignoring case only; otherwise underscores are ignored too. key identifies
// the field that matched.
type lookupFunc func(column string, exact bool) (key string, v any, ok bool)

func fieldLookup(entity any) (lookupFunc, error) {
	switch e := entity.(type) {
	case nil:
		return nil, ErrUnsupportedEntity
	case FieldDescriber:
		return mapLookup(e.DescribeFields()), nil
	case map[string]any:
		return mapLookup(e), nil
	}

	rv := reflect.ValueOf(entity)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("%w: nil %s", ErrUnsupportedEntity, rv.Type())
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: got %s", ErrUnsupportedEntity, rv.Type())
	}

	idx := structIndexOf(rv.Type())
	return func(column string, exact bool) (string, any, bool) {
		key, path, ok := idx.field(column, exact)
		if !ok {
			return "", nil, false
		}
		fv, ok := fieldByPath(rv, path)
		if !ok {
			return key, nil, true // behind a nil embedded pointer
		}
		return key, fv.Interface(), true
	}, nil
}

// mapLookup folds keys once. On collisions the lexically first key wins
// so results do not depend on map iteration order.
func mapLookup(m map[string]any) lookupFunc {
	exact := make(map[string]string, len(m))
	loose := make(map[string]string, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		f := foldName(k)
		if _, dup := exact[f]; !dup {
			exact[f] = k
		}
		n := normalizeName(k)
		if _, dup := loose[n]; !dup {
			loose[n] = k
		}
	}
	return func(column string, byExact bool) (string, any, bool) {
		var k string
		var ok bool
		if byExact {
			k, ok = exact[foldName(column)]
		} else {
			k, ok = loose[normalizeName(column)]
		}
		if !ok {
			return "", nil, false
		}
		return k, m[k], true
	}
}

var valuerType = reflect.TypeOf((*driver.Valuer)(nil)).Elem()

// resolveValue reads a field value once: pointers are followed, nil means
// absent, and driver.Valuer implementations are asked for their value.
func resolveValue(v any) (any, bool, error) {
	if v == nil {
		return nil, false, nil
	}
	rv := reflect.ValueOf(v)
	for {
		switch rv.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
			if rv.IsNil() {
				return nil, false, nil
			}
		}
		if rv.Type().Implements(valuerType) {
			dv, err := rv.Interface().(driver.Valuer).Value()
			if err != nil {
				return nil, false, err
			}
			if dv == nil {
				return nil, false, nil
			}
			return dv, true, nil
		}
		if rv.Kind() != reflect.Pointer && rv.Kind() != reflect.Interface {
			return rv.Interface(), true, nil
		}
		rv = rv.Elem()
	}
}

// ---------------- Struct indexing & tags ----------------

type fieldIndex struct {
	byExact map[string][]int  // folded name -> index path
	byName  map[string]string // normalized name -> byExact key
}

// field finds a field by column name, ignoring case, and when exact is false
// ignoring underscores as well.
func (fi *fieldIndex) field(column string, exact bool) (key string, path []int, ok bool) {
	if exact {
		key = foldName(column)
	} else if key, ok = fi.byName[normalizeName(column)]; !ok {
		return "", nil, false
	}
	path, ok = fi.byExact[key]
	return key, path, ok
}

// path prefers an exact match and falls back to the underscore-insensitive one.
func (fi *fieldIndex) path(column string) []int {
	if _, p, ok := fi.field(column, true); ok {
		return p
	}
	_, p, _ := fi.field(column, false)
	return p
}

var structIndexCache sync.Map // reflect.Type -> *fieldIndex

func structIndexOf(rt reflect.Type) *fieldIndex {
	if v, ok := structIndexCache.Load(rt); ok {
		return v.(*fieldIndex)
	}
	fi := buildStructIndex(rt)
	v, _ := structIndexCache.LoadOrStore(rt, &fi)
	return v.(*fieldIndex)
}

func buildStructIndex(rt reflect.Type) fieldIndex {
	idx := fieldIndex{byExact: make(map[string][]int), byName: make(map[string]string)}

	var walk func(t reflect.Type, base []int)
	walk = func(t reflect.Type, base []int) {
		t = derefPtr(t)
		if t.Kind() != reflect.Struct {
			return
		}
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			if sf.PkgPath != "" && !sf.Anonymous { // unexported, non-anonymous
				continue
			}
			tag := sf.Tag.Get("db")
			name, inline, omit := parseTag(tag)
			if omit {
				continue
			}
			path := append(append([]int(nil), base...), i)

			if inline || (sf.Anonymous && tag == "") {
				if isStruct(sf.Type) && !isLeafStruct(sf.Type) {
					walk(sf.Type, path)
					continue
				}
			}
			if sf.PkgPath != "" || !bindableKind(sf.Type) {
				continue
			}
			if name == "" {
				name = sf.Name
			}
			f := foldName(name)
			if _, seen := idx.byExact[f]; seen {
				continue
			}
			idx.byExact[f] = path
			n := normalizeName(name)
			if _, seen := idx.byName[n]; !seen {
				idx.byName[n] = f
			}
		}
	}
	walk(rt, nil)
	return idx
}

// parseTag supports: "-", "col", ",inline", "col,inline", "inline,col".
func parseTag(tag string) (name string, inline bool, omit bool) {
	if tag == "-" {
		return "", false, true
	}
	if tag == "" {
		return "", false, false
	}
	start := 0
	for i := 0; i <= len(tag); i++ {
		if i == len(tag) || tag[i] == ',' {
			part := tag[start:i]
			if part == "inline" {
				inline = true
			} else if part != "" && name == "" {
				name = part
			}
			start = i + 1
		}
	}
	return name, inline, false
}

func isStruct(t reflect.Type) bool { return derefPtr(t).Kind() == reflect.Struct }

func derefPtr(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// isLeafStruct reports struct types that are values in their own right
// (time.Time, sql.NullString, uuid-like Valuers) and must not be flattened.
func isLeafStruct(t reflect.Type) bool {
	if t.Implements(valuerType) || reflect.PointerTo(derefPtr(t)).Implements(valuerType) {
		return true
	}
	return derefPtr(t) == timeType
}

func bindableKind(t reflect.Type) bool {
	switch derefPtr(t).Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return false
	}
	return true
}

// fieldByPath walks path without allocating; ok is false when a nil embedded
// pointer hides the field.
func fieldByPath(root reflect.Value, path []int) (reflect.Value, bool) {
	v := root
	for _, i := range path {
		for v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Elem()
		}
		v = v.Field(i)
	}
	return v, true
}

// ---------------- Name normalization (ASCII fast-path) ----------------

// foldName strips one layer of identifier quoting and lower-cases ASCII
// letters.
func foldName(s string) string {
	if l := len(s); l >= 2 {
		switch s[0] {
		case '"':
			if s[l-1] == '"' {
				s = s[1 : l-1]
			}
		case '`':
			if s[l-1] == '`' {
				s = s[1 : l-1]
			}
		case '[':
			if s[l-1] == ']' {
				s = s[1 : l-1]
			}
		}
	}
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		b = append(b, c)
	}
	return string(b)
}

// normalizeName is foldName with underscores dropped.
func normalizeName(s string) string {
	f := foldName(s)
	b := make([]byte, 0, len(f))
	for i := 0; i < len(f); i++ {
		if f[i] != '_' {
			b = append(b, f[i])
		}
	}
	return string(b)
}

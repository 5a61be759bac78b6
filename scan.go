package tablemap

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
)

// queryAll executes query and scans every row into a struct T, matching
// result columns to fields the way Bind matches columns to entity fields.
// Result columns without a field are discarded.
func queryAll[T any](ctx context.Context, q Querier, query string, args ...any) (out []T, err error) {
	rt := reflect.TypeOf((*T)(nil)).Elem()
	if rt.Kind() != reflect.Struct {
		return nil, fmt.Errorf("tablemap: cannot scan rows into %s; use a struct", rt)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	// Propagate rows.Close() error if nothing else failed.
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	idx := structIndexOf(rt)
	paths := make([][]int, len(cols))
	for i, c := range cols {
		paths[i] = idx.path(c) // nil: drop
	}

	var sink sql.RawBytes // reused for all unmapped columns
	dests := make([]any, len(cols))
	for rows.Next() {
		var v T
		root := reflect.ValueOf(&v).Elem()
		for i, p := range paths {
			if p == nil {
				dests[i] = &sink
				continue
			}
			dests[i] = root.FieldByIndex(p).Addr().Interface()
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

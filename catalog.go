package tablemap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Column describes one table column as the catalog reports it. Type keeps the
// reported type name; Kind is its classification.
type Column struct {
	Name     string
	Type     string
	Kind     DataKind
	Nullable bool
}

// catalogRow is one row of a dialect's CatalogQuery.
type catalogRow struct {
	Name     string         `db:"name"`
	TypeName sql.NullString `db:"type_name"`
	Nullable sql.NullString `db:"nullable"`
}

// Catalog reads column metadata for a Dialect. Case overrides the dialect's
// identifier convention when it is not CaseDialect.
type Catalog struct {
	Dialect Dialect
	Case    IdentifierCase
}

// Columns runs the catalog query for schema.table and returns its columns in
// the order the catalog reports them.
//
// A table that does not exist, or has no columns, yields an empty slice and a
// nil error; callers decide whether that is fatal. A query that cannot run
// fails with ErrCatalog wrapping the driver error.
func (c Catalog) Columns(ctx context.Context, q Querier, schema, table string) ([]Column, error) {
	ic := c.Case
	if ic == CaseDialect {
		ic = c.Dialect.Case
	}
	rows, err := queryAll[catalogRow](ctx, q, c.Dialect.CatalogQuery, ic.fold(schema), ic.fold(table))
	if err != nil {
		return nil, fmt.Errorf("%w: %s columns of %s: %w", ErrCatalog, c.Dialect.Name, qualify(schema, table), err)
	}

	cols := make([]Column, 0, len(rows))
	for _, r := range rows {
		cols = append(cols, Column{
			Name:     r.Name,
			Type:     r.TypeName.String,
			Kind:     Classify(c.Dialect.canonicalType(r.TypeName.String)),
			Nullable: parseNullable(r.Nullable.String),
		})
	}
	return cols, nil
}

// ColumnsOf is Catalog{Dialect: d}.Columns.
func ColumnsOf(ctx context.Context, q Querier, d Dialect, schema, table string) ([]Column, error) {
	return Catalog{Dialect: d}.Columns(ctx, q, schema, table)
}

func parseNullable(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "Y", "YES", "1", "TRUE":
		return true
	}
	return false
}

func qualify(schema, table string) string {
	if schema == "" {
		return table
	}
	return schema + "." + table
}

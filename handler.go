package tablemap

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Handler runs insert, update and delete for arbitrary entities against a
// caller-supplied connection. It keeps no per-call state and is safe for
// concurrent use; every call issues at most one catalog query and one
// statement.
type Handler struct {
	catalog     Catalog
	placeholder Placeholder
	emptyUpdate EmptyUpdate
	clock       Clock
	auditCreate string
	auditUpdate string
	metrics     *Metrics
	log         zerolog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(h *Handler) { h.log = log }
}

// WithIdentifierCase overrides the dialect's catalog identifier case.
func WithIdentifierCase(c IdentifierCase) Option {
	return func(h *Handler) { h.catalog.Case = c }
}

// WithPlaceholder overrides the dialect's placeholder style.
func WithPlaceholder(p Placeholder) Option {
	return func(h *Handler) { h.placeholder = p }
}

// WithEmptyUpdate sets the policy for updates with nothing to SET.
func WithEmptyUpdate(e EmptyUpdate) Option {
	return func(h *Handler) { h.emptyUpdate = e }
}

// WithClock sets the clock used for audit columns.
func WithClock(c Clock) Option {
	return func(h *Handler) { h.clock = c }
}

// WithAudit names the columns stamped from the clock when the entity leaves
// them absent: createColumn on insert, updateColumn on insert and update.
// Either may be empty. Columns missing from the table are ignored.
func WithAudit(createColumn, updateColumn string) Option {
	return func(h *Handler) {
		h.auditCreate = createColumn
		h.auditUpdate = updateColumn
	}
}

// WithMetrics records every call on m.
func WithMetrics(m *Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// New creates a Handler for dialect d.
//
// Example:
//
//	h := tablemap.New(tablemap.Oracle, tablemap.WithLogger(log))
//	n, err := h.Update(ctx, db, "APP", "CUSTOMER", &customer, "ID")
func New(d Dialect, opts ...Option) *Handler {
	h := &Handler{
		catalog:     Catalog{Dialect: d},
		placeholder: d.Placeholder,
		clock:       SystemClock{},
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Insert writes entity as a new row of schema.table and returns the number of
// rows affected. Absent fields are inserted as NULL; columns without a field
// are left to the table's defaults.
func (h *Handler) Insert(ctx context.Context, conn Conn, schema, table string, entity any) (int64, error) {
	stmt, err := h.PrepareInsert(ctx, conn, schema, table, entity)
	return h.run(ctx, conn, OpInsert, schema, table, stmt, err)
}

// Update modifies the rows of schema.table matched by keys. Only present,
// non-key fields are assigned. It fails with ErrMissingKey, before touching
// the database, when no keys are given.
func (h *Handler) Update(ctx context.Context, conn Conn, schema, table string, entity any, keys ...string) (int64, error) {
	stmt, err := h.PrepareUpdate(ctx, conn, schema, table, entity, keys...)
	return h.run(ctx, conn, OpUpdate, schema, table, stmt, err)
}

// Delete removes the rows of schema.table matched by keys. Non-key fields are
// ignored.
func (h *Handler) Delete(ctx context.Context, conn Conn, schema, table string, entity any, keys ...string) (int64, error) {
	stmt, err := h.PrepareDelete(ctx, conn, schema, table, entity, keys...)
	return h.run(ctx, conn, OpDelete, schema, table, stmt, err)
}

// PrepareInsert reads the catalog and synthesizes the insert without
// executing it.
func (h *Handler) PrepareInsert(ctx context.Context, q Querier, schema, table string, entity any) (Statement, error) {
	bindings, cols, err := h.bind(ctx, q, schema, table, entity)
	if err != nil {
		return Statement{}, err
	}
	bindings = h.stamp(bindings, cols, h.auditCreate, h.auditUpdate)
	return BuildInsert(h.target(schema, table), bindings)
}

// PrepareUpdate is Update without execution.
func (h *Handler) PrepareUpdate(ctx context.Context, q Querier, schema, table string, entity any, keys ...string) (Statement, error) {
	if len(keys) == 0 {
		return Statement{}, fmt.Errorf("%w: no key columns given for %s", ErrMissingKey, qualify(schema, table))
	}
	bindings, cols, err := h.bind(ctx, q, schema, table, entity)
	if err != nil {
		return Statement{}, err
	}
	bindings = h.stamp(bindings, cols, h.auditUpdate)
	return BuildUpdate(h.target(schema, table), bindings, keys)
}

// PrepareDelete is Delete without execution.
func (h *Handler) PrepareDelete(ctx context.Context, q Querier, schema, table string, entity any, keys ...string) (Statement, error) {
	if len(keys) == 0 {
		return Statement{}, fmt.Errorf("%w: no key columns given for %s", ErrMissingKey, qualify(schema, table))
	}
	bindings, _, err := h.bind(ctx, q, schema, table, entity)
	if err != nil {
		return Statement{}, err
	}
	return BuildDelete(h.target(schema, table), bindings, keys)
}

func (h *Handler) target(schema, table string) Target {
	return Target{Schema: schema, Table: table, Placeholder: h.placeholder, EmptyUpdate: h.emptyUpdate}
}

func (h *Handler) bind(ctx context.Context, q Querier, schema, table string, entity any) ([]Binding, []Column, error) {
	cols, err := h.catalog.Columns(ctx, q, schema, table)
	if err != nil {
		return nil, nil, err
	}
	h.log.Debug().Str("schema", schema).Str("table", table).Int("columns", len(cols)).Msg("catalog columns")
	if len(cols) == 0 {
		return nil, nil, fmt.Errorf("%w: catalog reports no columns for %s", ErrNoColumns, qualify(schema, table))
	}

	bindings, err := Bind(entity, cols)
	if err != nil {
		return nil, nil, err
	}
	if len(bindings) == 0 {
		return nil, nil, fmt.Errorf("%w: no field of %T matches a column of %s", ErrNoColumns, entity, qualify(schema, table))
	}
	return bindings, cols, nil
}

// stamp fills the named audit columns from the clock when the entity leaves
// them absent. Bindings stay in column order.
func (h *Handler) stamp(bindings []Binding, cols []Column, columns ...string) []Binding {
	var now any
	for _, name := range columns {
		if name == "" {
			continue
		}
		if i := findBinding(bindings, name); i >= 0 {
			if !bindings[i].Present {
				if now == nil {
					now = h.clock.Now()
				}
				bindings[i].Value, bindings[i].Present = now, true
			}
			continue
		}
		ci := findColumn(cols, name)
		if ci < 0 {
			continue
		}
		if now == nil {
			now = h.clock.Now()
		}
		bindings = insertInColumnOrder(bindings, cols, Binding{Column: cols[ci], Value: now, Present: true})
	}
	return bindings
}

func findColumn(cols []Column, name string) int {
	for i, c := range cols {
		if strings.EqualFold(c.Name, name) {
			return i
		}
	}
	return -1
}

func insertInColumnOrder(bindings []Binding, cols []Column, b Binding) []Binding {
	pos := make(map[string]int, len(cols))
	for i, c := range cols {
		pos[c.Name] = i
	}
	at := len(bindings)
	for i, x := range bindings {
		if pos[x.Column.Name] > pos[b.Column.Name] {
			at = i
			break
		}
	}
	bindings = append(bindings, Binding{})
	copy(bindings[at+1:], bindings[at:])
	bindings[at] = b
	return bindings
}

func (h *Handler) run(ctx context.Context, conn Conn, op Op, schema, table string, stmt Statement, err error) (int64, error) {
	log := h.log.With().Str("op", op.String()).Str("schema", schema).Str("table", table).Logger()
	if err != nil {
		log.Warn().Err(err).Msg("statement not built")
		h.metrics.observe(op, 0, err)
		return 0, err
	}
	if stmt.Empty() {
		log.Debug().Msg("nothing to update, skipping")
		h.metrics.observe(op, 0, nil)
		return 0, nil
	}

	n, err := Exec(ctx, conn, stmt)
	h.metrics.observe(op, n, err)
	if err != nil {
		log.Warn().Err(err).Str("sql", stmt.SQL).Msg("statement failed")
		return 0, err
	}
	log.Debug().Str("sql", stmt.SQL).Int64("rows", n).Msg("statement executed")
	return n, nil
}

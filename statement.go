package tablemap

import (
	"fmt"
	"strings"
)

// Op names the three statement kinds the mapper synthesizes.
type Op uint8

const (
	OpInsert Op = iota
	OpUpdate
	OpDelete
)

func (o Op) String() string {
	switch o {
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// EmptyUpdate decides what an update does when no column is left to SET
// after null and key fields are excluded.
type EmptyUpdate uint8

const (
	// EmptyUpdateSkip builds no SQL; the handler reports zero affected rows
	// without contacting the database.
	EmptyUpdateSkip EmptyUpdate = iota
	// EmptyUpdateExecute assigns the first key column to itself so the
	// statement runs and reports how many rows the keys match.
	EmptyUpdateExecute
)

// ParseEmptyUpdate accepts "", "skip" and "execute".
func ParseEmptyUpdate(s string) (EmptyUpdate, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "skip":
		return EmptyUpdateSkip, nil
	case "execute":
		return EmptyUpdateExecute, nil
	default:
		return EmptyUpdateSkip, fmt.Errorf("tablemap: unknown empty update policy %q", s)
	}
}

// Target is the table a statement is written for and how it is rendered.
type Target struct {
	Schema      string
	Table       string
	Placeholder Placeholder
	EmptyUpdate EmptyUpdate
}

// Name returns "schema.table", or the bare table when Schema is empty.
func (t Target) Name() string { return qualify(t.Schema, t.Table) }

// Statement is synthesized SQL with its positional arguments. Columns and
// Kinds describe each argument in order.
type Statement struct {
	Op      Op
	SQL     string
	Args    []any
	Columns []string
	Kinds   []DataKind
}

// Empty reports an update with nothing to SET under EmptyUpdateSkip.
func (s Statement) Empty() bool { return s.SQL == "" }

type stmtWriter struct {
	b    strings.Builder
	ph   Placeholder
	stmt Statement
}

func (w *stmtWriter) param(b Binding) error {
	v, err := bindArg(b)
	if err != nil {
		return err
	}
	w.stmt.Args = append(w.stmt.Args, v)
	w.stmt.Columns = append(w.stmt.Columns, b.Column.Name)
	w.stmt.Kinds = append(w.stmt.Kinds, b.Column.Kind)
	w.ph.appendTo(&w.b, len(w.stmt.Args))
	return nil
}

func (w *stmtWriter) where(keys []Binding) error {
	w.b.WriteString(" WHERE ")
	for i, k := range keys {
		if i > 0 {
			w.b.WriteString(" AND ")
		}
		w.b.WriteString(k.Column.Name)
		w.b.WriteString(" = ")
		if err := w.param(k); err != nil {
			return err
		}
	}
	return nil
}

func (w *stmtWriter) done() Statement {
	w.stmt.SQL = w.b.String()
	return w.stmt
}

// BuildInsert writes
//
//	INSERT INTO schema.table (c1, c2, …) VALUES (?, ?, …)
//
// with every binding in order, absent ones as NULL. It fails with
// ErrNoColumns when bindings is empty.
func BuildInsert(t Target, bindings []Binding) (Statement, error) {
	if len(bindings) == 0 {
		return Statement{}, fmt.Errorf("%w: nothing to insert into %s", ErrNoColumns, t.Name())
	}
	w := &stmtWriter{ph: t.Placeholder, stmt: Statement{Op: OpInsert}}
	w.b.WriteString("INSERT INTO ")
	w.b.WriteString(t.Name())
	w.b.WriteString(" (")
	for i, b := range bindings {
		if i > 0 {
			w.b.WriteString(", ")
		}
		w.b.WriteString(b.Column.Name)
	}
	w.b.WriteString(") VALUES (")
	for i, b := range bindings {
		if i > 0 {
			w.b.WriteString(", ")
		}
		if err := w.param(b); err != nil {
			return Statement{}, err
		}
	}
	w.b.WriteByte(')')
	return w.done(), nil
}

// BuildUpdate writes
//
//	UPDATE schema.table SET c1 = ?, c2 = ? WHERE k1 = ? AND k2 = ?
//
// SET carries the present, non-key bindings in order; a nil field never
// overwrites a stored value and keys are never reassigned. WHERE lists the
// keys in the order given. It fails with ErrMissingKey when keys is empty or
// a key has no present binding.
//
// When nothing is left to SET the result depends on t.EmptyUpdate: an Empty
// statement for EmptyUpdateSkip, or "SET k1 = k1" for EmptyUpdateExecute.
func BuildUpdate(t Target, bindings []Binding, keys []string) (Statement, error) {
	keyBindings, err := resolveKeys(t, bindings, keys)
	if err != nil {
		return Statement{}, err
	}

	w := &stmtWriter{ph: t.Placeholder, stmt: Statement{Op: OpUpdate}}
	w.b.WriteString("UPDATE ")
	w.b.WriteString(t.Name())
	w.b.WriteString(" SET ")
	set := 0
	for _, b := range bindings {
		if !b.Present || isKey(b, keyBindings) {
			continue
		}
		if set > 0 {
			w.b.WriteString(", ")
		}
		w.b.WriteString(b.Column.Name)
		w.b.WriteString(" = ")
		if err := w.param(b); err != nil {
			return Statement{}, err
		}
		set++
	}
	if set == 0 {
		if t.EmptyUpdate != EmptyUpdateExecute {
			return Statement{Op: OpUpdate}, nil
		}
		k := keyBindings[0].Column.Name
		w.b.WriteString(k)
		w.b.WriteString(" = ")
		w.b.WriteString(k)
	}
	if err := w.where(keyBindings); err != nil {
		return Statement{}, err
	}
	return w.done(), nil
}

// BuildDelete writes
//
//	DELETE FROM schema.table WHERE k1 = ? AND k2 = ?
//
// Non-key bindings are ignored. Key rules match BuildUpdate.
func BuildDelete(t Target, bindings []Binding, keys []string) (Statement, error) {
	keyBindings, err := resolveKeys(t, bindings, keys)
	if err != nil {
		return Statement{}, err
	}
	w := &stmtWriter{ph: t.Placeholder, stmt: Statement{Op: OpDelete}}
	w.b.WriteString("DELETE FROM ")
	w.b.WriteString(t.Name())
	if err := w.where(keyBindings); err != nil {
		return Statement{}, err
	}
	return w.done(), nil
}

// resolveKeys finds the binding for every key name (case-insensitive), in
// the order the keys were given.
func resolveKeys(t Target, bindings []Binding, keys []string) ([]Binding, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: no key columns given for %s", ErrMissingKey, t.Name())
	}
	out := make([]Binding, 0, len(keys))
	for _, k := range keys {
		i := findBinding(bindings, k)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s.%s has no matching entity field", ErrMissingKey, t.Name(), k)
		}
		if !bindings[i].Present {
			return nil, fmt.Errorf("%w: %s.%s is null on the entity", ErrMissingKey, t.Name(), k)
		}
		out = append(out, bindings[i])
	}
	return out, nil
}

func findBinding(bindings []Binding, column string) int {
	for i, b := range bindings {
		if strings.EqualFold(b.Column.Name, column) {
			return i
		}
	}
	return -1
}

func isKey(b Binding, keys []Binding) bool {
	return findBinding(keys, b.Column.Name) >= 0
}

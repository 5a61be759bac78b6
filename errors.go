package tablemap

import (
	"errors"
	"fmt"
)

// ErrCatalog is returned when the column-metadata query cannot be executed
// (connectivity, privileges, malformed identifiers). The driver error is
// wrapped alongside it.
var ErrCatalog = errors.New("tablemap: catalog query failed")

// ErrNoColumns is returned when the catalog reports no columns for the
// target table, or when none of the entity's fields match a column.
var ErrNoColumns = errors.New("tablemap: no mappable columns")

// ErrMissingKey is returned when update or delete is called without key
// columns, or when a key column has no present value on the entity.
var ErrMissingKey = errors.New("tablemap: missing key")

// ErrValueCoercion is returned when a field value cannot be converted to the
// kind demanded by its column. Use errors.As with *CoercionError for details.
var ErrValueCoercion = errors.New("tablemap: value coercion failed")

// ErrExecution is returned when the driver fails to execute the synthesized
// statement. The driver error is wrapped alongside it and is never retried.
var ErrExecution = errors.New("tablemap: statement execution failed")

// ErrUnsupportedEntity is returned when the entity is not a struct, a
// pointer to a struct, a map[string]any or a FieldDescriber.
var ErrUnsupportedEntity = errors.New("tablemap: entity must be struct, map[string]any or FieldDescriber")

// CoercionError describes a single value that could not be bound to its
// column.
type CoercionError struct {
	Column string
	Kind   DataKind
	Value  any
	Err    error
}

func (e *CoercionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tablemap: column %s (%s): cannot bind %T %v: %v", e.Column, e.Kind, e.Value, e.Value, e.Err)
	}
	return fmt.Sprintf("tablemap: column %s (%s): cannot bind %T %v", e.Column, e.Kind, e.Value, e.Value)
}

func (e *CoercionError) Unwrap() error { return e.Err }

// Is reports ErrValueCoercion as a match so callers can test the kind
// without unpacking the struct.
func (e *CoercionError) Is(target error) bool { return target == ErrValueCoercion }

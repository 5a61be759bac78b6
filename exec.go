package tablemap

import (
	"context"
	"fmt"
)

// Exec executes a synthesized statement on e and returns the number of rows
// it affected.
//
// Arguments bind positionally in the order the statement lists them. A
// driver failure, including one from RowsAffected, is returned wrapped in
// ErrExecution; the original error stays reachable through errors.Is and
// errors.As. Exec never retries.
//
// Example:
//
//	stmt, err := tablemap.BuildDelete(target, bindings, []string{"ID"})
//	if err != nil {
//	    return err
//	}
//	n, err := tablemap.Exec(ctx, db, stmt)
func Exec(ctx context.Context, e Execer, stmt Statement) (int64, error) {
	res, err := e.ExecContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrExecution, stmt.Op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %s: rows affected: %w", ErrExecution, stmt.Op, err)
	}
	return n, nil
}

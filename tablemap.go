package tablemap

import (
	"context"
	"database/sql"
)

// Querier is implemented by *sql.DB, *sql.Tx, *sql.Conn, and any wrapper
// that can execute a query returning rows. The catalog lookup uses it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Execer is implemented by *sql.DB, *sql.Tx, *sql.Conn, and any wrapper
// that can execute a statement that does not return rows.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Conn is the caller-owned session every Handler operation runs on. The
// handler never opens, pools, retries or closes it; concurrent use is safe
// exactly as far as the underlying connection allows.
type Conn interface {
	Querier
	Execer
}

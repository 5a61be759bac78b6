// Package sqllog logs every statement a database/sql driver executes, by
// wrapping the driver with sqlhooks.
package sqllog

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"sync"
	"time"

	"github.com/qustavo/sqlhooks/v2"
	"github.com/rs/zerolog"
)

type startedKey struct{}

// Hooks implements sqlhooks.Hooks and sqlhooks.OnErrorer.
type Hooks struct {
	log zerolog.Logger
	now func() time.Time
}

func New(log zerolog.Logger) *Hooks {
	return &Hooks{log: log, now: time.Now}
}

func (h *Hooks) Before(ctx context.Context, _ string, _ ...interface{}) (context.Context, error) {
	return context.WithValue(ctx, startedKey{}, h.now()), nil
}

func (h *Hooks) After(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	h.log.Debug().
		Str("query", query).
		Interface("args", args).
		Dur("latency", h.since(ctx)).
		Msg("sql")
	return ctx, nil
}

// OnError logs the failure and hands the error back untouched.
func (h *Hooks) OnError(ctx context.Context, err error, query string, args ...interface{}) error {
	h.log.Error().
		Err(err).
		Str("query", query).
		Interface("args", args).
		Dur("latency", h.since(ctx)).
		Msg("sql")
	return err
}

func (h *Hooks) since(ctx context.Context) time.Duration {
	if t, ok := ctx.Value(startedKey{}).(time.Time); ok {
		return h.now().Sub(t)
	}
	return 0
}

var (
	mu         sync.Mutex
	registered = map[string]bool{}
)

// Register wraps d under the name "<name>+sqllog" and returns that name for
// sql.Open. Registering the same name twice is a no-op; the first logger wins.
func Register(name string, d driver.Driver, log zerolog.Logger) string {
	wrapped := fmt.Sprintf("%s+sqllog", name)

	mu.Lock()
	defer mu.Unlock()
	if !registered[wrapped] {
		sql.Register(wrapped, sqlhooks.Wrap(d, New(log)))
		registered[wrapped] = true
	}
	return wrapped
}

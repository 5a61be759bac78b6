package sqllog

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHooksLatency(t *testing.T) {
	var buf bytes.Buffer
	h := New(zerolog.New(&buf).Level(zerolog.DebugLevel))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return start }

	ctx, err := h.Before(context.Background(), "SELECT 1")
	require.NoError(t, err)

	h.now = func() time.Time { return start.Add(250 * time.Millisecond) }
	_, err = h.After(ctx, "SELECT 1", "a", 1)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"level":"debug"`)
	assert.Contains(t, out, `"query":"SELECT 1"`)
	assert.Contains(t, out, `"args":["a",1]`)
	assert.Contains(t, out, `"latency":250`)
}

func TestHooksOnErrorPassesThrough(t *testing.T) {
	var buf bytes.Buffer
	h := New(zerolog.New(&buf))
	cause := errors.New("boom")

	got := h.OnError(context.Background(), cause, "DELETE FROM T")
	assert.Same(t, cause, got)
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), `"error":"boom"`)
	assert.Contains(t, buf.String(), `"latency":0`)
}

func TestRegister(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	name := Register("sqllog-test", &sqlite3.SQLiteDriver{}, log)
	assert.Equal(t, "sqllog-test+sqllog", name)
	assert.Equal(t, name, Register("sqllog-test", &sqlite3.SQLiteDriver{}, zerolog.Nop()), "second registration is a no-op")

	db, err := sql.Open(name, filepath.Join(t.TempDir(), "hooks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE T (ID TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO T (ID) VALUES (?)`, "x")
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO NOPE (ID) VALUES (?)`, "x")
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, `"query":"INSERT INTO T (ID) VALUES (?)"`)
	assert.Contains(t, out, `"level":"error"`)
	assert.Contains(t, out, "NOPE")
}

package tablemap

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"sync"
	"testing"
)

// --- In-test database/sql driver ---------------------------------------------
//
// fakeDB answers the catalog query from a fixed table of columns and records
// every statement executed through ExecContext.

type execCall struct {
	query string
	args  []any
}

type fakeDB struct {
	mu sync.Mutex

	tables     map[string][][]driver.Value // "SCHEMA.TABLE" -> (name, type_name, nullable)
	catalogErr error
	execErr    error
	rowsErr    error
	rows       int64

	catalogCalls []execCall
	execs        []execCall
}

func newFakeDB() *fakeDB {
	return &fakeDB{tables: map[string][][]driver.Value{}, rows: 1}
}

func (f *fakeDB) addTable(schema, table string, cols ...[3]string) {
	rows := make([][]driver.Value, 0, len(cols))
	for _, c := range cols {
		rows = append(rows, []driver.Value{c[0], c[1], c[2]})
	}
	f.tables[schema+"."+table] = rows
}

func (f *fakeDB) open(t *testing.T) *sql.DB {
	t.Helper()
	db := sql.OpenDB(&fakeConnector{f: f})
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func (f *fakeDB) lastExec(t *testing.T) execCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.execs) == 0 {
		t.Fatal("no statement executed")
	}
	return f.execs[len(f.execs)-1]
}

type fakeConnector struct{ f *fakeDB }

func (c *fakeConnector) Connect(context.Context) (driver.Conn, error) { return &fakeConn{f: c.f}, nil }
func (c *fakeConnector) Driver() driver.Driver                        { return fakeDriver{} }

type fakeDriver struct{}

func (fakeDriver) Open(name string) (driver.Conn, error) {
	return nil, errors.New("fakeDriver.Open should not be called; use sql.OpenDB with connector")
}

type fakeConn struct{ f *fakeDB }

func (c *fakeConn) Prepare(string) (driver.Stmt, error) { return nil, driver.ErrSkip }
func (c *fakeConn) Close() error                        { return nil }
func (c *fakeConn) Begin() (driver.Tx, error)           { return nil, driver.ErrSkip }

func (c *fakeConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	f := c.f
	f.mu.Lock()
	defer f.mu.Unlock()

	f.catalogCalls = append(f.catalogCalls, execCall{query: query, args: namedValues(args)})
	if f.catalogErr != nil {
		return nil, f.catalogErr
	}
	if len(args) != 2 {
		return nil, errors.New("catalog query expects schema and table")
	}
	schema, _ := args[0].Value.(string)
	table, _ := args[1].Value.(string)
	return &fakeRows{
		cols: []string{"NAME", "TYPE_NAME", "NULLABLE"},
		data: f.tables[schema+"."+table],
	}, nil
}

func (c *fakeConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	f := c.f
	f.mu.Lock()
	defer f.mu.Unlock()

	f.execs = append(f.execs, execCall{query: query, args: namedValues(args)})
	if f.execErr != nil {
		return nil, f.execErr
	}
	return fakeResult{rows: f.rows, err: f.rowsErr}, nil
}

func namedValues(args []driver.NamedValue) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = a.Value
	}
	return out
}

type fakeResult struct {
	rows int64
	err  error
}

func (r fakeResult) LastInsertId() (int64, error) { return 0, errors.New("not supported") }
func (r fakeResult) RowsAffected() (int64, error) { return r.rows, r.err }

type fakeRows struct {
	cols []string
	data [][]driver.Value
	i    int
}

func (r *fakeRows) Columns() []string { return append([]string(nil), r.cols...) }
func (r *fakeRows) Close() error      { return nil }
func (r *fakeRows) Next(dest []driver.Value) error {
	if r.i >= len(r.data) {
		return io.EOF
	}
	copy(dest, r.data[r.i])
	r.i++
	return nil
}

// testTable is the table used across the handler tests, shaped like the
// audit-column tables the mapper is usually pointed at.
func testTable(f *fakeDB) {
	f.addTable("TEST_SCHEMA", "TEST_TABLE",
		[3]string{"ID", "VARCHAR2", "N"},
		[3]string{"NAME", "VARCHAR2", "Y"},
		[3]string{"DESCRIPTION", "NVARCHAR2", "Y"},
		[3]string{"AMOUNT", "NUMBER", "Y"},
		[3]string{"CREATE_DATE", "TIMESTAMP(6)", "Y"},
		[3]string{"UPDATE_DATE", "TIMESTAMP(6)", "Y"},
		[3]string{"VERSION", "VARCHAR2", "Y"},
	)
}

func testColumns() []Column {
	return []Column{
		{Name: "ID", Type: "VARCHAR2", Kind: KindStringVar},
		{Name: "NAME", Type: "VARCHAR2", Kind: KindStringVar, Nullable: true},
		{Name: "DESCRIPTION", Type: "NVARCHAR2", Kind: KindStringVarWide, Nullable: true},
		{Name: "AMOUNT", Type: "NUMBER", Kind: KindNumeric, Nullable: true},
		{Name: "CREATE_DATE", Type: "TIMESTAMP(6)", Kind: KindDateTime, Nullable: true},
		{Name: "UPDATE_DATE", Type: "TIMESTAMP(6)", Kind: KindDateTime, Nullable: true},
		{Name: "VERSION", Type: "VARCHAR2", Kind: KindStringVar, Nullable: true},
	}
}

// testEntity mirrors a row of TEST_TABLE; nil pointers are absent fields.
type testEntity struct {
	ID          *string
	NAME        *string
	DESCRIPTION *string
	AMOUNT      *string
	CREATE_DATE *string
	UPDATE_DATE *string
	VERSION     *string
}

func ptr[T any](v T) *T { return &v }

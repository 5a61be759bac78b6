// Command tablemap inserts, updates or deletes one row from a JSON object,
// mapping its keys onto the table's columns at runtime.
//
//	tablemap --config config.yaml --op update --schema app --table customer \
//	    --key id --entity '{"id": "C1", "name": "Ada"}'
package main

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-sql-driver/mysql"
	"github.com/goccy/go-json"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/go-mizu/tablemap"
	"github.com/go-mizu/tablemap/internal/config"
	"github.com/go-mizu/tablemap/internal/sqllog"
)

var (
	configFilePath = flag.String("config", "config.yaml", "path to config file")
	op             = flag.String("op", "", "operation: insert, update or delete")
	schema         = flag.String("schema", "", "schema (owner) of the table")
	table          = flag.String("table", "", "table name")
	keys           = flag.StringSlice("key", nil, "key column for update and delete (repeatable)")
	entity         = flag.String("entity", "-", "entity as a JSON object, or - to read stdin")
	dryRun         = flag.Bool("dry-run", false, "print the statement instead of executing it")
)

var metrics = tablemap.NewMetrics(prometheus.DefaultRegisterer)

var drivers = map[string]driver.Driver{
	"postgres": &pq.Driver{},
	"mysql":    &mysql.MySQLDriver{},
	"sqlite3":  &sqlite3.SQLiteDriver{},
}

func main() {
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	fileParts, err := config.ProcessConfigPath(*configFilePath)
	if err != nil {
		log.Fatal().Err(err).Msg("processing config path")
	}

	cfg, err := config.NewFileSystemLoader().Load(fileParts.FileName, fileParts.Path, "TABLEMAP", config.NewDefaultEnvBinder())
	if err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}

	err = cfg.Validate()
	if err != nil {
		log.Fatal().Err(err).Msg("validating config")
	}

	log = log.Level(cfg.Level())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	req := request{
		Op:     *op,
		Schema: *schema,
		Table:  *table,
		Keys:   *keys,
		Entity: *entity,
		DryRun: *dryRun,
	}
	if err := run(ctx, cfg, req, log, os.Stdin, os.Stdout); err != nil {
		log.Fatal().Err(err).Str("op", *op).Msg("tablemap")
	}
}

// request is one command-line invocation.
type request struct {
	Op     string
	Schema string
	Table  string
	Keys   []string
	Entity string
	DryRun bool
}

func run(ctx context.Context, cfg config.Config, req request, log zerolog.Logger, stdin io.Reader, stdout io.Writer) error {
	fields, err := readEntity(req.Entity, stdin)
	if err != nil {
		return err
	}

	dialect, err := cfg.Dialect()
	if err != nil {
		return err
	}

	opts, err := cfg.HandlerOptions()
	if err != nil {
		return err
	}
	opts = append(opts,
		tablemap.WithLogger(log.With().Str("subsystem", "tablemap").Logger()),
		tablemap.WithMetrics(metrics),
	)
	h := tablemap.New(dialect, opts...)

	db, err := open(cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if req.DryRun {
		stmt, err := prepare(ctx, h, db, req, fields)
		if err != nil {
			return err
		}
		if stmt.Empty() {
			_, err = fmt.Fprintln(stdout, "-- nothing to update")
			return err
		}
		_, err = fmt.Fprintf(stdout, "%s\n-- args: %v\n", stmt.SQL, stmt.Args)
		return err
	}

	var n int64
	switch strings.ToLower(req.Op) {
	case "insert":
		n, err = h.Insert(ctx, db, req.Schema, req.Table, fields)
	case "update":
		n, err = h.Update(ctx, db, req.Schema, req.Table, fields, req.Keys...)
	case "delete":
		n, err = h.Delete(ctx, db, req.Schema, req.Table, fields, req.Keys...)
	default:
		return fmt.Errorf("unknown op %q", req.Op)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "%d row(s) affected\n", n)
	return err
}

func prepare(ctx context.Context, h *tablemap.Handler, db *sql.DB, req request, fields map[string]any) (tablemap.Statement, error) {
	switch strings.ToLower(req.Op) {
	case "insert":
		return h.PrepareInsert(ctx, db, req.Schema, req.Table, fields)
	case "update":
		return h.PrepareUpdate(ctx, db, req.Schema, req.Table, fields, req.Keys...)
	case "delete":
		return h.PrepareDelete(ctx, db, req.Schema, req.Table, fields, req.Keys...)
	default:
		return tablemap.Statement{}, fmt.Errorf("unknown op %q", req.Op)
	}
}

func open(cfg config.Database, log zerolog.Logger) (*sql.DB, error) {
	d, ok := drivers[cfg.Driver]
	if !ok {
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
	name := sqllog.Register(cfg.Driver, d, log.With().Str("subsystem", "sql").Logger())

	db, err := sql.Open(name, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", cfg.Driver, err)
	}
	if cfg.MaxOpenConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConnections)
	}
	if cfg.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConnections)
	}
	return db, nil
}

// readEntity decodes a JSON object. Numbers stay json.Number so decimal
// columns keep their precision.
func readEntity(arg string, stdin io.Reader) (map[string]any, error) {
	var r io.Reader = strings.NewReader(arg)
	if arg == "-" {
		r = stdin
	}
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("decoding entity: %w", err)
	}
	return fields, nil
}

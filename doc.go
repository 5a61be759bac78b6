/*
Package tablemap maps plain Go values onto relational tables at runtime. Given
an open connection, a schema, a table and an entity, it reads the table's
columns from the database catalog, lines entity fields up with columns by
name, and writes parameterized INSERT, UPDATE and DELETE statements. No mapping
code or schema declaration is needed per entity type.

# Overview

A Handler ties a catalog Dialect to a few options and exposes Insert, Update
and Delete. It works with *sql.DB, *sql.Tx and *sql.Conn; the connection is
owned by the caller and is never pooled, retried or closed here.

	h := tablemap.New(tablemap.Oracle)
	n, err := h.Insert(ctx, db, "APP", "CUSTOMER", Customer{ID: "C1", Name: ptr("Ada")})

The lower-level pieces are exported too: Catalog / ColumnsOf read column
metadata, Bind resolves an entity, BuildInsert / BuildUpdate / BuildDelete
synthesize a Statement, and Exec runs it.

# Mapping rules

  - Struct fields bind by `db:"name"` first; otherwise by field name.
  - Names compare case-insensitively and ignore underscores: CreateDate, CREATE_DATE
    and create_date are the same column.
  - Anonymous structs and `db:",inline"` fields are flattened; `db:"-"` skips a field.
  - map[string]any and FieldDescriber entities bind by key.
  - nil pointers, nil interfaces and driver.Valuers returning nil are absent.
  - Columns without a field are left out entirely; extra fields are ignored.

# Statements

  - INSERT lists every bound column; absent values are written as NULL.
  - UPDATE assigns only present, non-key fields (partial update) and matches rows on
    the key columns in the order given.
  - DELETE matches rows on the key columns and ignores everything else.
  - Update and delete without keys, or with a key whose value is absent, fail with
    ErrMissingKey before any statement runs.

Values are converted per column kind (see Classify): NUMBER columns take
numbers or decimal text, DATE and TIMESTAMP take time.Time or
"2006-01-02[ 15:04:05[.fff]]" text, BLOB takes []byte, everything else binds
as text.

# Error handling

Failures are reported with the sentinels ErrCatalog, ErrNoColumns,
ErrMissingKey, ErrValueCoercion and ErrExecution, wrapped with context; use
errors.Is. Driver errors stay reachable through the wrap. Nothing is retried.

# Compatibility

Dialects are provided for Oracle (ALL_TAB_COLS), PostgreSQL and MySQL
(information_schema.columns) and SQLite (pragma_table_info). Schema, table and
column names are written into the SQL as given and must come from trusted
input; only values are parameterized.
*/
package tablemap

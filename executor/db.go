package executor

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
	"github.com/zoobzio/composql"
	_ "modernc.org/sqlite"
)

// DB runs statements through database/sql.
type DB struct {
	db  *sql.DB
	cfg config
}

var _ Executor = (*DB)(nil)

// Open opens a database/sql connection pool. Supported drivers are sqlite
// (modernc.org/sqlite), pgx, mysql and sqlserver. MySQL DSNs are rewritten
// with parseTime so temporal columns scan as time.Time.
func Open(driver, dsn string, opts ...Option) (*DB, error) {
	switch driver {
	case "sqlite", "pgx", "sqlserver":
	case "mysql":
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("parsing mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		dsn = cfg.FormatDSN()
	default:
		return nil, fmt.Errorf("%w: unsupported driver %q", composql.ErrMalformedArgument, driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", driver, err)
	}
	return New(db, opts...), nil
}

// New wraps an existing pool.
func New(db *sql.DB, opts ...Option) *DB {
	return &DB{db: db, cfg: newConfig(opts)}
}

// DB returns the underlying pool.
func (d *DB) DB() *sql.DB {
	return d.db
}

// Close closes the pool.
func (d *DB) Close() error {
	return d.db.Close()
}

// Exec runs an INSERT, UPDATE or DELETE. An INSERT naming a returning
// column is run as a query and its single row scanned for the key;
// otherwise the driver's last insert id is used when it has one.
func (d *DB) Exec(ctx context.Context, q *composql.QueryResult) (Result, error) {
	d.cfg.executing(q)

	if q.Returning != "" {
		var id any
		if err := d.db.QueryRowContext(ctx, q.SQL, q.Params...).Scan(&id); err != nil {
			return Result{}, d.cfg.failed(q, fmt.Errorf("executing insert: %w", err))
		}
		return Result{LastInsertID: id, RowsAffected: 1}, nil
	}

	res, err := d.db.ExecContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return Result{}, d.cfg.failed(q, fmt.Errorf("executing statement: %w", err))
	}
	var out Result
	if out.RowsAffected, err = res.RowsAffected(); err != nil {
		return Result{}, d.cfg.failed(q, fmt.Errorf("reading rows affected: %w", err))
	}
	if q.Kind == composql.StatementInsert {
		if id, err := res.LastInsertId(); err == nil {
			out.LastInsertID = id
		}
	}
	return out, nil
}

// Query runs a SELECT and calls fn once per row. An error from fn stops
// iteration and is returned.
func (d *DB) Query(ctx context.Context, q *composql.QueryResult, fn func(Row) error) error {
	d.cfg.executing(q)

	rows, err := d.db.QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return d.cfg.failed(q, fmt.Errorf("executing query: %w", err))
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("reading columns: %w", err)
	}
	kinds := columnKinds(q.Shape)
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("scanning row: %w", err)
		}
		row := make(Row, len(columns))
		for i, name := range columns {
			row[name] = convert(kinds[name], values[i])
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return d.cfg.failed(q, fmt.Errorf("iterating rows: %w", err))
	}
	return nil
}

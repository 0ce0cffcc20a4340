package executor

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/zoobzio/composql"
)

// Conn runs statements on a single native pgx connection.
type Conn struct {
	conn *pgx.Conn
	cfg  config
}

var _ Executor = (*Conn)(nil)

// NewPgx wraps conn. Statements must be rendered with the postgres dialect.
func NewPgx(conn *pgx.Conn, opts ...Option) *Conn {
	return &Conn{conn: conn, cfg: newConfig(opts)}
}

// Close closes the connection.
func (c *Conn) Close() error {
	return c.conn.Close(context.Background())
}

// Exec runs an INSERT, UPDATE or DELETE, scanning the RETURNING key when
// the statement names one.
func (c *Conn) Exec(ctx context.Context, q *composql.QueryResult) (Result, error) {
	c.cfg.executing(q)

	if q.Returning != "" {
		var id any
		if err := c.conn.QueryRow(ctx, q.SQL, q.Params...).Scan(&id); err != nil {
			return Result{}, c.cfg.failed(q, fmt.Errorf("executing insert: %w", err))
		}
		return Result{LastInsertID: id, RowsAffected: 1}, nil
	}

	tag, err := c.conn.Exec(ctx, q.SQL, q.Params...)
	if err != nil {
		return Result{}, c.cfg.failed(q, fmt.Errorf("executing statement: %w", err))
	}
	return Result{RowsAffected: tag.RowsAffected()}, nil
}

// Query runs a SELECT and calls fn once per row.
func (c *Conn) Query(ctx context.Context, q *composql.QueryResult, fn func(Row) error) error {
	c.cfg.executing(q)

	rows, err := c.conn.Query(ctx, q.SQL, q.Params...)
	if err != nil {
		return c.cfg.failed(q, fmt.Errorf("executing query: %w", err))
	}
	defer rows.Close()

	kinds := columnKinds(q.Shape)
	fields := rows.FieldDescriptions()
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return fmt.Errorf("reading row: %w", err)
		}
		row := make(Row, len(fields))
		for i, fd := range fields {
			row[fd.Name] = convert(kinds[fd.Name], values[i])
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return c.cfg.failed(q, fmt.Errorf("iterating rows: %w", err))
	}
	return nil
}

// Package executor runs rendered statements against a database and hands
// back rows keyed by column alias.
//
// Two implementations are provided: DB over database/sql, opened for the
// sqlite, pgx, mysql and sqlserver drivers, and Conn over a native
// *pgx.Conn.
//
//	result, _ := composql.Render(query, sqlite.New())
//	db, _ := executor.Open("sqlite", "file:app.db")
//	rows, err := executor.Fetch(ctx, db, result)
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/zoobzio/composql"
	"github.com/zoobzio/composql/internal/graph"
	"github.com/zoobzio/composql/internal/logging"
	"github.com/zoobzio/composql/internal/types"
)

// Row is one result row keyed by column alias.
type Row map[string]any

// Result reports the outcome of a statement run with Exec.
type Result struct {
	// LastInsertID is the generated key of an INSERT, nil when there is none.
	LastInsertID any
	RowsAffected int64
}

// Executor runs rendered statements.
type Executor interface {
	Exec(ctx context.Context, q *composql.QueryResult) (Result, error)
	Query(ctx context.Context, q *composql.QueryResult, fn func(Row) error) error
	Close() error
}

// Option configures an executor.
type Option func(*config)

type config struct {
	logger *slog.Logger
}

// WithLogger sets the logger for statement records. Without it the
// package-level logger installed by composql.SetLogger is used.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

func newConfig(opts []Option) config {
	var c config
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c config) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return logging.Logger()
}

func (c config) executing(q *composql.QueryResult) {
	c.log().Debug("executing statement",
		"kind", q.Kind.String(),
		"sql", q.SQL,
		"params", len(q.Params))
}

func (c config) failed(q *composql.QueryResult, err error) error {
	c.log().Error("statement failed",
		"kind", q.Kind.String(),
		"sql", q.SQL,
		"error", err)
	return err
}

// Fetch runs a SELECT and materialises every row by the statement's shape.
func Fetch(ctx context.Context, e Executor, q *composql.QueryResult) ([]any, error) {
	if q == nil || q.Shape == nil {
		return nil, fmt.Errorf("%w: statement has no result shape", composql.ErrMalformedArgument)
	}
	var out []any
	err := e.Query(ctx, q, func(r Row) error {
		v, err := composql.Materialize(q.Shape, r)
		if err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// columnKinds maps each alias of shape to the kind of its leaf.
func columnKinds(shape types.Field) map[string]types.Kind {
	if shape == nil {
		return nil
	}
	kinds := make(map[string]types.Kind)
	for _, f := range graph.Leaves(shape) {
		if l, ok := f.(types.Leaf); ok && l.Alias() != "" {
			kinds[l.Alias()] = f.Type()
		}
	}
	return kinds
}

// convert brings a driver value to the host type of kind. Drivers differ:
// SQLite and MySQL hand booleans back as integers, MySQL text as bytes,
// pgx UUIDs as byte arrays.
func convert(kind types.Kind, v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		switch kind {
		case types.KindBytes:
			return x
		case types.KindJSON:
			return json.RawMessage(x)
		case types.KindUUID:
			if len(x) == 16 {
				if id, err := uuid.FromBytes(x); err == nil {
					return id
				}
			}
			return convert(kind, string(x))
		case types.KindBool, types.KindInt, types.KindFloat:
			return convert(kind, string(x))
		}
		return string(x)
	case string:
		switch kind {
		case types.KindUUID:
			if id, err := uuid.Parse(x); err == nil {
				return id
			}
		case types.KindInt:
			if n, err := strconv.ParseInt(x, 10, 64); err == nil {
				return n
			}
		case types.KindFloat:
			if f, err := strconv.ParseFloat(x, 64); err == nil {
				return f
			}
		case types.KindBool:
			if b, err := strconv.ParseBool(x); err == nil {
				return b
			}
		}
	case int64:
		switch kind {
		case types.KindBool:
			return x != 0
		case types.KindFloat:
			return float64(x)
		}
	case int32:
		if kind == types.KindBool {
			return x != 0
		}
		return int64(x)
	case int16:
		return int64(x)
	case float32:
		return float64(x)
	case [16]byte:
		if kind == types.KindUUID {
			return uuid.UUID(x)
		}
	}
	return v
}

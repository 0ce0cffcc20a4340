// Package composql composes SQL queries from typed expression trees.
//
// A query starts from a table schema and is refined by chain calls, each
// taking a lambda over the rows of the current query. Every call returns a
// new value; the receiver stays valid and reusable.
//
// # Basic Usage
//
//	u := expr.Param("u")
//	adults := composql.From(users).
//		Where(expr.Lambda(expr.Gt(expr.Member(u, "Age"), expr.Const(18)), u)).
//		Select(expr.Lambda(expr.Member(u, "Name"), u))
//
//	stmt, err := adults.Statement()
//	result, err := postgres.New().Render(stmt)
//	// result.SQL: SELECT t0."Name" AS "f0" FROM "users" t0 WHERE (t0."Age" > $1)
//	// result.Params: []any{18}
//
// Lambdas can also be parsed from text with the expr/parse package:
//
//	where, err := parse.Lambda(`u => u.Age > 18 && u.Name.StartsWith("a")`, nil)
//
// # Nested Queries
//
// Query values are usable inside lambdas through expr.Over. Terminal
// operations (Contains, Count, Any, First, Sum, ...) become subqueries and
// intermediate ones compose into the nested value:
//
//	o := expr.Param("o")
//	buyers := composql.From(users).Where(expr.Lambda(
//		expr.Over(composql.From(orders)).
//			Where(expr.Lambda(expr.Eq(expr.Member(o, "UserId"), expr.Member(u, "Id")), o)).
//			Any(), u))
//
// # Dialects
//
// Finished statements are rendered by the postgres, sqlite, mysql and mssql
// packages, all satisfying Renderer, and run through the executor package.
package composql

import (
	"log/slog"

	"github.com/zoobzio/composql/internal/logging"
	"github.com/zoobzio/composql/internal/query"
	"github.com/zoobzio/composql/internal/types"
)

// Query is an immutable composed query. See From.
type Query = query.Query

// Schema describes one table or view.
type Schema = types.Schema

// Column describes one column of a Schema.
type Column = types.Column

// Constructor builds host values from materialised rows.
type Constructor = types.Constructor

// IndexDirection describes a single-column index.
type IndexDirection = types.IndexDirection

const (
	IndexNone = types.IndexNone
	IndexAsc  = types.IndexAsc
	IndexDesc = types.IndexDesc
)

// Kind is the canonical scalar type of a column or expression.
type Kind = types.Kind

// Field is a node of a composed query.
type Field = types.Field

// Statement is a finished statement ready for a Renderer.
type Statement = types.Statement

// Statement types.
type (
	SelectStatement = types.SelectStatement
	InsertStatement = types.InsertStatement
	UpdateStatement = types.UpdateStatement
	DeleteStatement = types.DeleteStatement
)

// StatementKind tells which of the four statements a result was rendered from.
type StatementKind = types.StatementKind

const (
	StatementSelect = types.StatementSelect
	StatementInsert = types.StatementInsert
	StatementUpdate = types.StatementUpdate
	StatementDelete = types.StatementDelete
)

// QueryResult contains the rendered SQL and its positional parameters.
type QueryResult = types.QueryResult

// Re-export kind constants for schema declarations.
const (
	KindAny     = types.KindAny
	KindBool    = types.KindBool
	KindInt     = types.KindInt
	KindFloat   = types.KindFloat
	KindDecimal = types.KindDecimal
	KindString  = types.KindString
	KindBytes   = types.KindBytes
	KindTime    = types.KindTime
	KindUUID    = types.KindUUID
	KindJSON    = types.KindJSON
)

// Errors returned by composition and statement building. Match them with errors.Is.
var (
	ErrUnsupportedExpression = types.ErrUnsupportedExpression
	ErrUnresolvedParameter   = types.ErrUnresolvedParameter
	ErrAmbiguousSchema       = types.ErrAmbiguousSchema
	ErrMissingField          = types.ErrMissingField
	ErrTypeMapping           = types.ErrTypeMapping
	ErrMalformedArgument     = types.ErrMalformedArgument
	ErrTypeMismatch          = types.ErrTypeMismatch
)

// From starts a query reading every row of schema.
func From(schema *Schema) *Query {
	return query.From(schema)
}

// Insert builds the INSERT of one row of schema from column values.
// Autoincrement columns are skipped and returned by the statement.
func Insert(schema *Schema, values map[string]any) (*InsertStatement, error) {
	return query.Insert(schema, values)
}

// UpdateByKey builds the UPDATE of the row of schema whose primary key is key.
func UpdateByKey(schema *Schema, key any, values map[string]any) (*UpdateStatement, error) {
	return query.UpdateByKey(schema, key, values)
}

// DeleteByKey builds the DELETE of the row of schema whose primary key is key.
func DeleteByKey(schema *Schema, key any) (*DeleteStatement, error) {
	return query.DeleteByKey(schema, key)
}

// Materialize rebuilds the value described by shape from one result row
// keyed by column alias.
func Materialize(shape Field, row map[string]any) (any, error) {
	return query.Materialize(shape, row)
}

// ParseKind maps a column type name such as "varchar(64)" to its Kind.
func ParseKind(sqlType string) (Kind, error) {
	return types.ParseKind(sqlType)
}

// SetLogger installs the logger used for debug records of composition,
// rendering and execution. A nil logger discards them.
func SetLogger(l *slog.Logger) {
	logging.SetLogger(l)
}

// Package postgres provides the PostgreSQL dialect renderer for composql.
package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/zoobzio/composql/internal/render"
	"github.com/zoobzio/composql/internal/types"
)

// Renderer implements the PostgreSQL dialect renderer.
type Renderer struct {
	gen *render.Generator
}

// New creates a new PostgreSQL renderer.
func New() *Renderer {
	return &Renderer{gen: render.NewGenerator(dialect{})}
}

// Capabilities returns the SQL features PostgreSQL supports.
func (*Renderer) Capabilities() render.Capabilities {
	return dialect{}.Capabilities()
}

// Render converts a statement to a QueryResult with PostgreSQL SQL.
func (r *Renderer) Render(stmt types.Statement) (*types.QueryResult, error) {
	return r.gen.Generate(stmt)
}

// RenderSelect renders a SELECT statement.
func (r *Renderer) RenderSelect(stmt *types.SelectStatement) (*types.QueryResult, error) {
	return r.gen.Generate(stmt)
}

// RenderInsert renders an INSERT statement, returning the generated key.
func (r *Renderer) RenderInsert(stmt *types.InsertStatement) (*types.QueryResult, error) {
	return r.gen.Generate(stmt)
}

// RenderUpdate renders an UPDATE statement.
func (r *Renderer) RenderUpdate(stmt *types.UpdateStatement) (*types.QueryResult, error) {
	return r.gen.Generate(stmt)
}

// RenderDelete renders a DELETE statement.
func (r *Renderer) RenderDelete(stmt *types.DeleteStatement) (*types.QueryResult, error) {
	return r.gen.Generate(stmt)
}

type dialect struct{}

func (dialect) Name() string { return "postgres" }

func (dialect) Capabilities() render.Capabilities {
	return render.Capabilities{
		Returning:     true,
		BooleanValues: true,
		RightJoin:     true,
		FullJoin:      true,
		SetOperations: true,
	}
}

// Quote uses pgx's identifier sanitising, which doubles embedded quotes.
func (dialect) Quote(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func (dialect) Placeholder(position int) string {
	return "$" + strconv.Itoa(position)
}

func (dialect) Concat(parts ...string) string {
	return strings.Join(parts, " || ")
}

var castTypes = map[types.Kind]string{
	types.KindBool:    "BOOLEAN",
	types.KindInt:     "BIGINT",
	types.KindFloat:   "DOUBLE PRECISION",
	types.KindDecimal: "NUMERIC",
	types.KindString:  "TEXT",
	types.KindBytes:   "BYTEA",
	types.KindTime:    "TIMESTAMP",
	types.KindUUID:    "UUID",
	types.KindJSON:    "JSONB",
}

func (dialect) Cast(expr string, kind types.Kind) (string, error) {
	t, ok := castTypes[kind]
	if !ok {
		return "", render.NewUnsupportedFeatureError("postgres", fmt.Sprintf("CAST to %s", kind))
	}
	return "CAST(" + expr + " AS " + t + ")", nil
}

func (dialect) Call(name string, args []string) (string, bool) {
	switch name {
	case "xor":
		if len(args) == 2 {
			return "(" + args[0] + " # " + args[1] + ")", true
		}
	case "Length":
		if len(args) == 1 {
			return "CHAR_LENGTH(" + args[0] + ")", true
		}
	case "Year", "Month", "Day", "Hour":
		if len(args) == 1 {
			return "CAST(EXTRACT(" + strings.ToUpper(name) + " FROM " + args[0] + ") AS INTEGER)", true
		}
	}
	return "", false
}

func (dialect) Paginate(l types.Limit, _ bool) string {
	var sql strings.Builder
	if l.HasCount {
		sql.WriteString(" LIMIT ")
		sql.WriteString(strconv.Itoa(l.Count))
	}
	if l.Start > 0 {
		sql.WriteString(" OFFSET ")
		sql.WriteString(strconv.Itoa(l.Start))
	}
	return sql.String()
}

func (dialect) ModifyTarget(kind types.StatementKind, table, alias string) (string, string) {
	if kind == types.StatementDelete {
		return "DELETE FROM " + table + " AS " + alias, ""
	}
	return "UPDATE " + table + " AS " + alias, ""
}

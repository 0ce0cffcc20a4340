// Package sqlite provides the SQLite dialect renderer for composql.
//
// The renderer targets SQLite 3.39 or newer, which has RETURNING and the
// full set of outer joins.
package sqlite

import (
	"strconv"
	"strings"

	"github.com/zoobzio/composql/internal/render"
	"github.com/zoobzio/composql/internal/types"
)

// Renderer implements the SQLite dialect renderer.
type Renderer struct {
	gen *render.Generator
}

// New creates a new SQLite renderer.
func New() *Renderer {
	return &Renderer{gen: render.NewGenerator(dialect{})}
}

// Capabilities returns the SQL features SQLite supports.
func (*Renderer) Capabilities() render.Capabilities {
	return dialect{}.Capabilities()
}

// Render converts a statement to a QueryResult with SQLite SQL.
func (r *Renderer) Render(stmt types.Statement) (*types.QueryResult, error) {
	return r.gen.Generate(stmt)
}

// RenderSelect renders a SELECT statement.
func (r *Renderer) RenderSelect(stmt *types.SelectStatement) (*types.QueryResult, error) {
	return r.gen.Generate(stmt)
}

// RenderInsert renders an INSERT statement.
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

func (dialect) Name() string { return "sqlite" }

func (dialect) Capabilities() render.Capabilities {
	return render.Capabilities{
		Returning:     true,
		BooleanValues: true,
		RightJoin:     true,
		FullJoin:      true,
		SetOperations: true,
	}
}

func (dialect) Quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (dialect) Placeholder(int) string { return "?" }

func (dialect) Concat(parts ...string) string {
	return strings.Join(parts, " || ")
}

// SQLite has type affinities rather than types; times and UUIDs are stored as text.
var castTypes = map[types.Kind]string{
	types.KindBool:    "INTEGER",
	types.KindInt:     "INTEGER",
	types.KindFloat:   "REAL",
	types.KindDecimal: "NUMERIC",
	types.KindString:  "TEXT",
	types.KindBytes:   "BLOB",
	types.KindTime:    "TEXT",
	types.KindUUID:    "TEXT",
	types.KindJSON:    "TEXT",
}

func (dialect) Cast(expr string, kind types.Kind) (string, error) {
	t, ok := castTypes[kind]
	if !ok {
		return "", render.NewUnsupportedFeatureError("sqlite", "CAST to "+kind.String())
	}
	return "CAST(" + expr + " AS " + t + ")", nil
}

var timeFormats = map[string]string{
	"Year":  "%Y",
	"Month": "%m",
	"Day":   "%d",
	"Hour":  "%H",
}

func (dialect) Call(name string, args []string) (string, bool) {
	switch name {
	case "xor":
		// no ^ operator
		if len(args) == 2 {
			return "((" + args[0] + " | " + args[1] + ") - (" + args[0] + " & " + args[1] + "))", true
		}
	case "Year", "Month", "Day", "Hour":
		if len(args) == 1 {
			return "CAST(strftime('" + timeFormats[name] + "', " + args[0] + ") AS INTEGER)", true
		}
	}
	return "", false
}

func (dialect) Paginate(l types.Limit, _ bool) string {
	count := -1
	if l.HasCount {
		count = l.Count
	}
	sql := " LIMIT " + strconv.Itoa(count)
	if l.Start > 0 {
		sql += " OFFSET " + strconv.Itoa(l.Start)
	}
	return sql
}

func (dialect) ModifyTarget(kind types.StatementKind, table, alias string) (string, string) {
	if kind == types.StatementDelete {
		return "DELETE FROM " + table + " AS " + alias, ""
	}
	return "UPDATE " + table + " AS " + alias, ""
}

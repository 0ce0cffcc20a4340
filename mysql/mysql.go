// Package mysql provides the MySQL and MariaDB dialect renderer for composql.
//
// Key differences from PostgreSQL:
//   - Backtick identifier quoting
//   - No RETURNING; generated keys come from the driver's last insert id
//   - No FULL JOIN
//   - CONCAT() instead of ||
package mysql

import (
	"strconv"
	"strings"

	"github.com/zoobzio/composql/internal/render"
	"github.com/zoobzio/composql/internal/types"
)

// maxRows is the documented way to page with an offset but no count.
const maxRows = "18446744073709551615"

// Renderer implements the MySQL dialect renderer.
type Renderer struct {
	gen *render.Generator
}

// New creates a new MySQL renderer.
func New() *Renderer {
	return &Renderer{gen: render.NewGenerator(dialect{})}
}

// Capabilities returns the SQL features MySQL supports.
func (*Renderer) Capabilities() render.Capabilities {
	return dialect{}.Capabilities()
}

// Render converts a statement to a QueryResult with MySQL SQL.
func (r *Renderer) Render(stmt types.Statement) (*types.QueryResult, error) {
	return r.gen.Generate(stmt)
}

// RenderSelect renders a SELECT statement.
func (r *Renderer) RenderSelect(stmt *types.SelectStatement) (*types.QueryResult, error) {
	return r.gen.Generate(stmt)
}

// RenderInsert renders an INSERT statement. The result never names a
// returning column; the executor reads the last insert id instead.
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

func (dialect) Name() string { return "mysql" }

func (dialect) Capabilities() render.Capabilities {
	return render.Capabilities{
		BooleanValues: true,
		RightJoin:     true,
		SetOperations: true,
	}
}

func (dialect) Quote(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (dialect) Placeholder(int) string { return "?" }

func (dialect) Concat(parts ...string) string {
	return "CONCAT(" + strings.Join(parts, ", ") + ")"
}

var castTypes = map[types.Kind]string{
	types.KindBool:    "SIGNED",
	types.KindInt:     "SIGNED",
	types.KindFloat:   "DOUBLE",
	types.KindDecimal: "DECIMAL(65,30)",
	types.KindString:  "CHAR",
	types.KindBytes:   "BINARY",
	types.KindTime:    "DATETIME",
	types.KindUUID:    "CHAR(36)",
	types.KindJSON:    "JSON",
}

func (dialect) Cast(expr string, kind types.Kind) (string, error) {
	t, ok := castTypes[kind]
	if !ok {
		return "", render.NewUnsupportedFeatureError("mysql", "CAST to "+kind.String())
	}
	return "CAST(" + expr + " AS " + t + ")", nil
}

func (dialect) Call(name string, args []string) (string, bool) {
	if name == "Length" && len(args) == 1 {
		return "CHAR_LENGTH(" + args[0] + ")", true
	}
	return "", false
}

func (dialect) Paginate(l types.Limit, _ bool) string {
	count := maxRows
	if l.HasCount {
		count = strconv.Itoa(l.Count)
	}
	sql := " LIMIT " + count
	if l.Start > 0 {
		sql += " OFFSET " + strconv.Itoa(l.Start)
	}
	return sql
}

func (dialect) ModifyTarget(kind types.StatementKind, table, alias string) (string, string) {
	if kind == types.StatementDelete {
		return "DELETE " + alias + " FROM " + table + " AS " + alias, ""
	}
	return "UPDATE " + table + " AS " + alias, ""
}

// Package mssql provides the SQL Server dialect renderer for composql.
//
// Key differences from PostgreSQL:
//   - Square bracket identifier quoting
//   - Named @pN parameters
//   - OFFSET ... FETCH instead of LIMIT, with an ORDER BY always present
//   - OUTPUT INSERTED instead of RETURNING
//   - No boolean expressions as values; predicates are converted with CASE
//     and BIT columns compared with 1
package mssql

import (
	"strconv"
	"strings"

	"github.com/zoobzio/composql/internal/render"
	"github.com/zoobzio/composql/internal/types"
)

// Renderer implements the SQL Server dialect renderer.
type Renderer struct {
	gen *render.Generator
}

// New creates a new SQL Server renderer.
func New() *Renderer {
	return &Renderer{gen: render.NewGenerator(dialect{})}
}

// Capabilities returns the SQL features SQL Server supports.
func (*Renderer) Capabilities() render.Capabilities {
	return dialect{}.Capabilities()
}

// Render converts a statement to a QueryResult with T-SQL.
func (r *Renderer) Render(stmt types.Statement) (*types.QueryResult, error) {
	return r.gen.Generate(stmt)
}

// RenderSelect renders a SELECT statement.
func (r *Renderer) RenderSelect(stmt *types.SelectStatement) (*types.QueryResult, error) {
	return r.gen.Generate(stmt)
}

// RenderInsert renders an INSERT statement with an OUTPUT clause for the generated key.
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

func (dialect) Name() string { return "mssql" }

func (dialect) Capabilities() render.Capabilities {
	return render.Capabilities{
		OutputInserted: true,
		RightJoin:      true,
		FullJoin:       true,
		SetOperations:  true,
	}
}

func (dialect) Quote(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// Placeholder returns @pN, the name go-mssqldb gives positional arguments.
func (dialect) Placeholder(position int) string {
	return "@p" + strconv.Itoa(position)
}

func (dialect) Concat(parts ...string) string {
	return "(" + strings.Join(parts, " + ") + ")"
}

var castTypes = map[types.Kind]string{
	types.KindBool:    "BIT",
	types.KindInt:     "BIGINT",
	types.KindFloat:   "FLOAT",
	types.KindDecimal: "DECIMAL(38,10)",
	types.KindString:  "NVARCHAR(MAX)",
	types.KindBytes:   "VARBINARY(MAX)",
	types.KindTime:    "DATETIME2",
	types.KindUUID:    "UNIQUEIDENTIFIER",
	types.KindJSON:    "NVARCHAR(MAX)",
}

func (dialect) Cast(expr string, kind types.Kind) (string, error) {
	t, ok := castTypes[kind]
	if !ok {
		return "", render.NewUnsupportedFeatureError("mssql", "CAST to "+kind.String())
	}
	return "CAST(" + expr + " AS " + t + ")", nil
}

func (dialect) Call(name string, args []string) (string, bool) {
	switch name {
	case "Length":
		if len(args) == 1 {
			return "LEN(" + args[0] + ")", true
		}
	case "Now":
		if len(args) == 0 {
			return "SYSDATETIME()", true
		}
	case "Year", "Month", "Day", "Hour":
		if len(args) == 1 {
			return "DATEPART(" + strings.ToLower(name) + ", " + args[0] + ")", true
		}
	}
	return "", false
}

func (dialect) Paginate(l types.Limit, ordered bool) string {
	var sql strings.Builder
	if !ordered {
		sql.WriteString(" ORDER BY (SELECT NULL)")
	}
	sql.WriteString(" OFFSET ")
	sql.WriteString(strconv.Itoa(l.Start))
	sql.WriteString(" ROWS")
	if l.HasCount {
		sql.WriteString(" FETCH NEXT ")
		sql.WriteString(strconv.Itoa(l.Count))
		sql.WriteString(" ROWS ONLY")
	}
	return sql.String()
}

func (dialect) ModifyTarget(kind types.StatementKind, table, alias string) (string, string) {
	if kind == types.StatementDelete {
		return "DELETE " + alias, " FROM " + table + " AS " + alias
	}
	return "UPDATE " + alias, " FROM " + table + " AS " + alias
}

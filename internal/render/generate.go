package render

import (
	"fmt"
	"strings"

	"github.com/zoobzio/composql/internal/graph"
	"github.com/zoobzio/composql/internal/logging"
	"github.com/zoobzio/composql/internal/types"
)

// MaxDepth bounds the nesting of subqueries and derived tables.
const MaxDepth = 32

// Generator renders finished statements for one dialect.
type Generator struct {
	dialect Dialect
}

// NewGenerator returns a generator asking d for every dialect-specific fragment.
func NewGenerator(d Dialect) *Generator {
	return &Generator{dialect: d}
}

// Dialect returns the dialect the generator renders for.
func (g *Generator) Dialect() Dialect {
	return g.dialect
}

// renderContext tracks state for a single render operation.
type renderContext struct {
	dialect Dialect
	caps    Capabilities
	params  []any
	depth   int
}

// param registers a literal parameter and returns its placeholder.
func (ctx *renderContext) param(v any) string {
	ctx.params = append(ctx.params, v)
	return ctx.dialect.Placeholder(len(ctx.params))
}

func (ctx *renderContext) quote(name string) string {
	return ctx.dialect.Quote(name)
}

// nested renders fn one subquery level deeper.
func (ctx *renderContext) nested(fn func() (string, error)) (string, error) {
	if ctx.depth >= MaxDepth {
		return "", fmt.Errorf("%w: subquery depth exceeds %d", types.ErrMalformedArgument, MaxDepth)
	}
	ctx.depth++
	defer func() { ctx.depth-- }()
	return fn()
}

func (ctx *renderContext) unsupported(feature string, hint ...string) error {
	return NewUnsupportedFeatureError(ctx.dialect.Name(), feature, hint...)
}

// Generate renders stmt into SQL with positional parameters.
func (g *Generator) Generate(stmt types.Statement) (*types.QueryResult, error) {
	if stmt == nil {
		return nil, fmt.Errorf("%w: nil statement", types.ErrMalformedArgument)
	}
	ctx := &renderContext{dialect: g.dialect, caps: g.dialect.Capabilities()}
	result := &types.QueryResult{Kind: stmt.StatementKind()}

	var sql string
	var err error
	switch s := stmt.(type) {
	case *types.SelectStatement:
		sql, err = ctx.renderSelect(s)
		if err == nil {
			result.Shape = s.Source.Shape()
		}
	case *types.InsertStatement:
		sql, result.Returning, err = ctx.renderInsert(s)
	case *types.UpdateStatement:
		sql, err = ctx.renderUpdate(s)
	case *types.DeleteStatement:
		sql, err = ctx.renderDelete(s)
	default:
		err = fmt.Errorf("%w: statement %T", types.ErrUnsupportedExpression, stmt)
	}
	if err != nil {
		return nil, err
	}

	result.SQL = sql
	result.Params = ctx.params
	logging.Logger().Debug("rendered statement",
		"dialect", g.dialect.Name(),
		"kind", result.Kind.String(),
		"sql", sql,
		"params", len(result.Params))
	return result, nil
}

func (ctx *renderContext) renderSelect(s *types.SelectStatement) (string, error) {
	if s.Source == nil {
		return "", fmt.Errorf("%w: select has no source", types.ErrMalformedArgument)
	}
	return ctx.query(s.Source, func() (string, error) {
		return ctx.selectList(s.Source.Shape())
	}, false)
}

// selectList renders the leaves of shape, naming each by its alias.
func (ctx *renderContext) selectList(shape types.Field) (string, error) {
	leaves := graph.Leaves(shape)
	items := make([]string, 0, len(leaves))
	for _, leaf := range leaves {
		v, err := ctx.value(leaf)
		if err != nil {
			return "", err
		}
		if l, ok := leaf.(types.Leaf); ok && l.Alias() != "" {
			v += " AS " + ctx.quote(l.Alias())
		}
		items = append(items, v)
	}
	if len(items) == 0 {
		return "", fmt.Errorf("%w: empty projection", types.ErrMissingField)
	}
	return strings.Join(items, ", "), nil
}

// query renders a SELECT over src with the clauses src carries. list renders
// the select list. Inside a subquery or derived table, an ordering with no
// row range is dropped.
func (ctx *renderContext) query(src types.DataSource, list func() (string, error), inner bool) (string, error) {
	var sql strings.Builder
	sql.WriteString("SELECT ")
	if src.Distinct() {
		sql.WriteString("DISTINCT ")
	}
	fields, err := list()
	if err != nil {
		return "", err
	}
	sql.WriteString(fields)

	from, err := ctx.from(src)
	if err != nil {
		return "", err
	}
	sql.WriteString(" FROM ")
	sql.WriteString(from)

	if w := src.Where(); w != nil {
		cond, err := ctx.condition(w)
		if err != nil {
			return "", err
		}
		sql.WriteString(" WHERE ")
		sql.WriteString(cond)
	}

	if groups := src.Groups(); len(groups) > 0 {
		parts := make([]string, 0, len(groups))
		for _, g := range groups {
			v, err := ctx.value(g)
			if err != nil {
				return "", err
			}
			parts = append(parts, v)
		}
		sql.WriteString(" GROUP BY ")
		sql.WriteString(strings.Join(parts, ", "))
	}

	if h := src.Having(); h != nil {
		cond, err := ctx.condition(h)
		if err != nil {
			return "", err
		}
		sql.WriteString(" HAVING ")
		sql.WriteString(cond)
	}

	limit := src.Limit()
	ordered := false
	if sorts := src.Sorts(); len(sorts) > 0 && (!inner || !limit.IsZero()) {
		parts := make([]string, 0, len(sorts))
		for _, s := range sorts {
			v, err := ctx.value(s.Field)
			if err != nil {
				return "", err
			}
			if s.Descending {
				v += " DESC"
			} else {
				v += " ASC"
			}
			parts = append(parts, v)
		}
		sql.WriteString(" ORDER BY ")
		sql.WriteString(strings.Join(parts, ", "))
		ordered = true
	}

	if !limit.IsZero() {
		sql.WriteString(ctx.dialect.Paginate(limit, ordered))
	}
	return sql.String(), nil
}

// from renders the FROM item of src, ignoring the clauses of src itself.
func (ctx *renderContext) from(src types.DataSource) (string, error) {
	switch s := src.(type) {
	case *types.TableSource:
		return ctx.quote(s.Schema.Name) + " " + s.Ref().Alias(), nil

	case *types.JoinSource:
		return ctx.join(s)

	case *types.ResultSource:
		inner, err := ctx.nested(func() (string, error) {
			return ctx.query(s.Inner, func() (string, error) {
				return ctx.selectList(s.Inner.Shape())
			}, true)
		})
		if err != nil {
			return "", err
		}
		return "(" + inner + ") " + s.Ref().Alias(), nil

	case *types.UnionSource:
		if (s.Kind == types.Intersect || s.Kind == types.Except) && !ctx.caps.SetOperations {
			return "", ctx.unsupported(s.Kind.String())
		}
		compound, err := ctx.nested(func() (string, error) {
			main, err := ctx.operand(s.Main)
			if err != nil {
				return "", err
			}
			affiliate, err := ctx.operand(s.Affiliate)
			if err != nil {
				return "", err
			}
			return main + " " + s.Kind.String() + " " + affiliate, nil
		})
		if err != nil {
			return "", err
		}
		return "(" + compound + ") " + s.Ref().Alias(), nil
	}
	return "", fmt.Errorf("%w: data source %T", types.ErrUnsupportedExpression, src)
}

func (ctx *renderContext) operand(src types.DataSource) (string, error) {
	return ctx.query(src, func() (string, error) {
		return ctx.selectList(src.Shape())
	}, true)
}

func (ctx *renderContext) join(j *types.JoinSource) (string, error) {
	switch j.Kind {
	case types.JoinRight:
		if !ctx.caps.RightJoin {
			return "", ctx.unsupported(j.Kind.String())
		}
	case types.JoinFull:
		if !ctx.caps.FullJoin {
			return "", ctx.unsupported(j.Kind.String())
		}
	}
	for _, side := range []types.DataSource{j.Left, j.Right} {
		if !types.IsPlain(side) {
			return "", fmt.Errorf("%w: join side %s carries clauses", types.ErrMalformedArgument, side.Ref())
		}
	}

	left, err := ctx.from(j.Left)
	if err != nil {
		return "", err
	}
	right, err := ctx.from(j.Right)
	if err != nil {
		return "", err
	}
	if j.Kind == types.JoinCross {
		return left + " CROSS JOIN " + right, nil
	}
	on, err := ctx.condition(j.On)
	if err != nil {
		return "", err
	}
	return left + " " + j.Kind.String() + " " + right + " ON " + on, nil
}

func (ctx *renderContext) renderInsert(s *types.InsertStatement) (string, string, error) {
	if s.Table == nil || len(s.Assignments) == 0 {
		return "", "", fmt.Errorf("%w: insert has no column", types.ErrMissingField)
	}
	columns := make([]string, 0, len(s.Assignments))
	values := make([]string, 0, len(s.Assignments))
	for _, a := range s.Assignments {
		columns = append(columns, ctx.quote(a.Column.Column.Name))
		v, err := ctx.value(a.Value)
		if err != nil {
			return "", "", err
		}
		values = append(values, v)
	}

	var returning string
	if s.Returning != nil && ctx.caps.GeneratedKey() {
		returning = s.Returning.Column.Name
	}

	var sql strings.Builder
	sql.WriteString("INSERT INTO ")
	sql.WriteString(ctx.quote(s.Table.Schema.Name))
	sql.WriteString(" (")
	sql.WriteString(strings.Join(columns, ", "))
	sql.WriteString(")")
	if returning != "" && ctx.caps.OutputInserted {
		sql.WriteString(" OUTPUT INSERTED.")
		sql.WriteString(ctx.quote(returning))
	}
	sql.WriteString(" VALUES (")
	sql.WriteString(strings.Join(values, ", "))
	sql.WriteString(")")
	if returning != "" && ctx.caps.Returning {
		sql.WriteString(" RETURNING ")
		sql.WriteString(ctx.quote(returning))
	}
	return sql.String(), returning, nil
}

func (ctx *renderContext) renderUpdate(s *types.UpdateStatement) (string, error) {
	if s.Table == nil || len(s.Assignments) == 0 {
		return "", fmt.Errorf("%w: update sets no column", types.ErrMissingField)
	}
	head, tail := ctx.dialect.ModifyTarget(types.StatementUpdate, ctx.quote(s.Table.Schema.Name), s.Table.Ref().Alias())

	sets := make([]string, 0, len(s.Assignments))
	for _, a := range s.Assignments {
		v, err := ctx.value(a.Value)
		if err != nil {
			return "", err
		}
		sets = append(sets, ctx.quote(a.Column.Column.Name)+" = "+v)
	}

	var sql strings.Builder
	sql.WriteString(head)
	sql.WriteString(" SET ")
	sql.WriteString(strings.Join(sets, ", "))
	sql.WriteString(tail)
	if err := ctx.whereClause(&sql, s.Table.Where()); err != nil {
		return "", err
	}
	return sql.String(), nil
}

func (ctx *renderContext) renderDelete(s *types.DeleteStatement) (string, error) {
	if s.Table == nil {
		return "", fmt.Errorf("%w: delete has no table", types.ErrMissingField)
	}
	head, tail := ctx.dialect.ModifyTarget(types.StatementDelete, ctx.quote(s.Table.Schema.Name), s.Table.Ref().Alias())

	var sql strings.Builder
	sql.WriteString(head)
	sql.WriteString(tail)
	if err := ctx.whereClause(&sql, s.Table.Where()); err != nil {
		return "", err
	}
	return sql.String(), nil
}

func (ctx *renderContext) whereClause(sql *strings.Builder, where types.Field) error {
	if where == nil {
		return nil
	}
	cond, err := ctx.condition(where)
	if err != nil {
		return err
	}
	sql.WriteString(" WHERE ")
	sql.WriteString(cond)
	return nil
}

package query

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoobzio/composql/expr"
	"github.com/zoobzio/composql/internal/types"
)

func users() *types.Schema {
	return &types.Schema{
		Name: "users",
		Columns: []types.Column{
			{Name: "Id", Kind: types.KindInt, PrimaryKey: true, AutoIncrement: true},
			{Name: "Name", Kind: types.KindString},
			{Name: "Age", Kind: types.KindInt, Nullable: true},
		},
	}
}

func orders() *types.Schema {
	return &types.Schema{
		Name: "orders",
		Columns: []types.Column{
			{Name: "Id", Kind: types.KindInt, PrimaryKey: true},
			{Name: "UserId", Kind: types.KindInt},
			{Name: "Total", Kind: types.KindFloat},
		},
	}
}

func schemaA() *types.Schema {
	return &types.Schema{Name: "A", Columns: []types.Column{
		{Name: "Id", Kind: types.KindInt, PrimaryKey: true},
		{Name: "X", Kind: types.KindString},
	}}
}

func schemaB() *types.Schema {
	return &types.Schema{Name: "B", Columns: []types.Column{
		{Name: "Id", Kind: types.KindInt, PrimaryKey: true},
		{Name: "AId", Kind: types.KindInt},
		{Name: "Y", Kind: types.KindString},
	}}
}

// describe renders a field compactly so tests can compare shapes.
func describe(f types.Field) string {
	switch v := f.(type) {
	case nil:
		return "<nil>"
	case *types.Original:
		return v.Ref.Alias() + "." + v.Column.Name
	case *types.Constant:
		return fmt.Sprintf("%v", v.Value)
	case *types.Quote:
		return v.Ref.Alias() + ".'" + v.Name + "'"
	case *types.Binary:
		return "(" + describe(v.Left) + " " + string(v.Op) + " " + describe(v.Right) + ")"
	case *types.Unary:
		return string(v.Op) + " " + describe(v.Operand)
	case *types.Method:
		args := make([]string, len(v.Args))
		for i, a := range v.Args {
			args[i] = describe(a)
		}
		recv := ""
		if v.Receiver != nil {
			recv = describe(v.Receiver) + "."
		}
		return recv + v.Callee.Name + "(" + strings.Join(args, ", ") + ")"
	case *types.Subquery:
		return "[" + describe(v.Field) + " from " + v.Source.Ref().Alias() + "]"
	case *types.Object:
		parts := make([]string, len(v.Fields))
		for i, child := range v.Fields {
			parts[i] = v.Names[i] + ": " + describe(child)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return fmt.Sprintf("%T", f)
}

func TestProjectionOfSingleColumn(t *testing.T) {
	u := expr.Param("u")
	q := From(users()).Select(expr.Lambda(expr.Member(u, "Name"), u))
	require.NoError(t, q.Err())

	table, ok := q.Source().(*types.TableSource)
	require.True(t, ok, "projection must not wrap the table scan")
	assert.Equal(t, "t0", table.Ref().Alias())

	name, ok := table.Select().(*types.Original)
	require.True(t, ok)
	assert.Equal(t, "Name", name.Column.Name)
	assert.Same(t, table.Ref(), name.Ref)
	assert.Equal(t, "f0", name.Alias())

	root, _ := table.Column("Name")
	assert.Empty(t, root.Alias(), "the table's own field stays unaliased")
}

func TestFilterOnKey(t *testing.T) {
	u := expr.Param("u")
	base := From(users())
	q := base.Where(expr.Lambda(expr.Eq(expr.Member(u, "Id"), expr.Const(5)), u))
	require.NoError(t, q.Err())

	cond, ok := q.Source().Where().(*types.Binary)
	require.True(t, ok)
	assert.Equal(t, types.EQ, cond.Op)

	id, _ := base.Source().(*types.TableSource).Column("Id")
	assert.Same(t, id, cond.Left)
	c, ok := cond.Right.(*types.Constant)
	require.True(t, ok)
	assert.Equal(t, 5, c.Value)
}

func TestJoinWithProjection(t *testing.T) {
	a, b := expr.Param("a"), expr.Param("b")
	q := From(schemaA()).
		Join(From(schemaB()), expr.Lambda(expr.Eq(expr.Member(a, "Id"), expr.Member(b, "AId")), a, b)).
		Select(expr.Lambda(expr.Object(nil, []string{"X", "Y"}, expr.Member(a, "X"), expr.Member(b, "Y")), a, b))
	require.NoError(t, q.Err())

	j, ok := q.Source().(*types.JoinSource)
	require.True(t, ok)
	assert.Equal(t, types.JoinInner, j.Kind)
	assert.Equal(t, "t0", j.Left.Ref().Alias())
	assert.Equal(t, "t1", j.Right.Ref().Alias())
	assert.Equal(t, "t2", j.Ref().Alias())
	assert.Equal(t, "(t0.'Id' = t1.'AId')", describe(j.On))

	shape, ok := j.Select().(*types.Object)
	require.True(t, ok)
	assert.Equal(t, "{X: t0.'X', Y: t1.'Y'}", describe(shape))
	assert.Equal(t, "f0", shape.Fields[0].(types.Leaf).Alias())
	assert.Equal(t, "f1", shape.Fields[1].(types.Leaf).Alias())
	assert.Empty(t, q.Sides(), "projection ends the join composition")
	assert.Equal(t, 3, q.Next())
}

func TestContainsOverNestedQuery(t *testing.T) {
	u, o := expr.Param("u"), expr.Param("o")
	other := From(orders())
	ids := expr.Over(other).Select(expr.Lambda(expr.Member(o, "Id"), o))
	q := From(users()).Where(expr.Lambda(ids.Contains(expr.Member(u, "Id")), u))
	require.NoError(t, q.Err())

	cond, ok := q.Source().Where().(*types.Binary)
	require.True(t, ok)
	assert.Equal(t, types.IN, cond.Op)
	assert.Equal(t, "t0.'Id'", describe(cond.Left))

	sub, ok := cond.Right.(*types.Subquery)
	require.True(t, ok)
	assert.Equal(t, "t1.Id", describe(sub.Field))
	assert.Equal(t, "t1", sub.Source.Ref().Alias())
	assert.Equal(t, "orders", sub.Source.(*types.TableSource).Schema.Name)
	assert.Equal(t, 2, q.Next())

	assert.Equal(t, "t0", other.Source().Ref().Alias(), "the nested value keeps its own aliases")
}

func TestConstantFolding(t *testing.T) {
	u := expr.Param("u")
	q := From(users()).Select(expr.Lambda(expr.Add(expr.Const(5), expr.Const(3)), u))
	require.NoError(t, q.Err())
	c, ok := q.Source().Select().(*types.Constant)
	require.True(t, ok)
	assert.Equal(t, int64(8), c.Value)

	q = From(users()).Where(expr.Lambda(expr.Gt(expr.Member(u, "Age"), expr.Mul(expr.Const(6), expr.Const(3))), u))
	require.NoError(t, q.Err())
	assert.Equal(t, "(t0.Age > 18)", describe(q.Source().Where()))

	q = From(users()).Where(expr.Lambda(expr.Call(expr.StartsWith, expr.Member(u, "Name"), expr.Call(expr.ToLower, expr.Const("AL"))), u))
	require.NoError(t, q.Err())
	assert.Equal(t, "t0.Name.StartsWith(al)", describe(q.Source().Where()))
}

func TestWhereConjunction(t *testing.T) {
	u := expr.Param("u")
	p1 := expr.Gt(expr.Member(u, "Age"), expr.Const(18))
	p2 := expr.Ne(expr.Member(u, "Name"), expr.Const("bob"))

	chained := From(users()).Where(expr.Lambda(p1, u)).Where(expr.Lambda(p2, u))
	single := From(users()).Where(expr.Lambda(expr.And(p1, p2), u))
	require.NoError(t, chained.Err())
	require.NoError(t, single.Err())
	assert.Equal(t, describe(single.Source().Where()), describe(chained.Source().Where()))
	assert.Equal(t, "((t0.Age > 18) AND (t0.Name <> bob))", describe(chained.Source().Where()))
}

func TestChainingLeavesReceiverUntouched(t *testing.T) {
	u := expr.Param("u")
	q := From(users()).Where(expr.Lambda(expr.Gt(expr.Member(u, "Age"), expr.Const(18)), u))
	before := q.Source().Where()

	q2 := q.Where(expr.Lambda(expr.Lt(expr.Member(u, "Age"), expr.Const(65)), u)).
		OrderBy(expr.Lambda(expr.Member(u, "Name"), u)).
		Take(10)
	require.NoError(t, q2.Err())

	assert.Same(t, before, q.Source().Where())
	assert.Empty(t, q.Source().Sorts())
	assert.True(t, q.Source().Limit().IsZero())
	assert.NotSame(t, before, q2.Source().Where())
}

func TestLimitComposition(t *testing.T) {
	q := From(users()).Limit(0, 10).Limit(2, 5)
	assert.Equal(t, types.Range(2, 5), q.Source().Limit())

	q = From(users()).Take(3).Skip(1).Take(10)
	assert.Equal(t, types.Range(1, 2), q.Source().Limit())

	q = From(users()).Limit(-1, 2)
	assert.True(t, errors.Is(q.Err(), types.ErrMalformedArgument))
}

func TestOrdering(t *testing.T) {
	u := expr.Param("u")
	q := From(users()).
		OrderBy(expr.Lambda(expr.Member(u, "Age"), u)).
		ThenByDescending(expr.Lambda(expr.Member(u, "Name"), u))
	require.NoError(t, q.Err())
	sorts := q.Source().Sorts()
	require.Len(t, sorts, 2)
	assert.False(t, sorts[0].Descending)
	assert.True(t, sorts[1].Descending)

	q = q.OrderByDescending(expr.Lambda(expr.Member(u, "Id"), u))
	require.Len(t, q.Source().Sorts(), 1)
	assert.Equal(t, "t0.Id", describe(q.Source().Sorts()[0].Field))

	bad := From(users()).OrderBy(expr.Lambda(u, u))
	assert.True(t, errors.Is(bad.Err(), types.ErrMalformedArgument))
}

func TestWrapAfterLimit(t *testing.T) {
	u := expr.Param("u")
	q := From(users()).Take(5).Where(expr.Lambda(expr.Gt(expr.Member(u, "Age"), expr.Const(18)), u))
	require.NoError(t, q.Err())

	res, ok := q.Source().(*types.ResultSource)
	require.True(t, ok)
	assert.Equal(t, "t1", res.Ref().Alias())
	assert.Equal(t, types.Range(0, 5), res.Inner.Limit())
	assert.Equal(t, "(t1.'f2' > 18)", describe(res.Where()))
	assert.Equal(t, "{Id: t0.Id, Name: t0.Name, Age: t0.Age}", describe(res.Inner.Select()))
}

func TestSelectAfterDistinctWraps(t *testing.T) {
	u := expr.Param("u")
	q := From(users()).
		Select(expr.Lambda(expr.Member(u, "Age"), u)).
		Distinct().
		Select(expr.Lambda(expr.Add(u, expr.Const(1)), u))
	require.NoError(t, q.Err())
	res, ok := q.Source().(*types.ResultSource)
	require.True(t, ok)
	assert.True(t, res.Inner.Distinct())
	assert.Equal(t, "(t1.'f0' + 1)", describe(res.Select()))
}

func TestGroupByRoutesFiltersToHaving(t *testing.T) {
	u := expr.Param("u")
	q := From(users()).
		GroupBy(expr.Lambda(expr.Member(u, "Age"), u)).
		Select(expr.Lambda(expr.Object(nil, []string{"Age", "N"}, expr.Member(u, "Age"), expr.Call(expr.Count, nil)), u)).
		Where(expr.Lambda(expr.Gt(expr.Member(u, "N"), expr.Const(1)), u))
	require.NoError(t, q.Err())
	src := q.Source()
	require.Len(t, src.Groups(), 1)
	assert.Nil(t, src.Where())
	assert.Equal(t, "(Count() > 1)", describe(src.Having()))
}

func TestSelfJoinNamesSides(t *testing.T) {
	a, b := expr.Param("a"), expr.Param("b")
	people := From(users())
	q := people.LeftJoin(people, expr.Lambda(expr.Eq(expr.Member(a, "Age"), expr.Member(b, "Age")), a, b))
	require.NoError(t, q.Err())
	assert.Equal(t, []string{"users", "users2"}, q.Sides())
	assert.Equal(t, "(t0.'Age' = t1.'Age')", describe(q.Source().(*types.JoinSource).On))
}

func TestThreeWayJoin(t *testing.T) {
	a, b, c, ab := expr.Param("a"), expr.Param("b"), expr.Param("c"), expr.Param("ab")
	pair := From(schemaA()).Join(From(schemaB()), expr.Lambda(expr.Eq(expr.Member(a, "Id"), expr.Member(b, "AId")), a, b))

	perSide := pair.Join(From(orders()), expr.Lambda(expr.Eq(expr.Member(b, "Id"), expr.Member(c, "UserId")), a, b, c))
	require.NoError(t, perSide.Err())
	assert.Equal(t, []string{"A", "B", "orders"}, perSide.Sides())
	assert.Equal(t, "(t1.'Id' = t3.'UserId')", describe(perSide.Source().(*types.JoinSource).On))

	composite := pair.Join(From(orders()), expr.Lambda(
		expr.Eq(expr.Member(expr.Member(ab, "B"), "Id"), expr.Member(c, "UserId")), ab, c))
	require.NoError(t, composite.Err())
	assert.Equal(t, "(t1.'Id' = t3.'UserId')", describe(composite.Source().(*types.JoinSource).On))

	filtered := perSide.Where(expr.Lambda(expr.Gt(expr.Member(c, "Total"), expr.Const(10.0)), a, b, c))
	require.NoError(t, filtered.Err())
	assert.Equal(t, "(t3.'Total' > 10)", describe(filtered.Source().Where()))

	wrong := pair.Join(From(orders()), expr.Lambda(expr.Const(true), a))
	assert.True(t, errors.Is(wrong.Err(), types.ErrMalformedArgument))
}

func TestCorrelatedCount(t *testing.T) {
	u, o := expr.Param("u"), expr.Param("o")
	count := expr.Over(From(orders())).
		Where(expr.Lambda(expr.Eq(expr.Member(o, "UserId"), expr.Member(u, "Id")), o)).
		Count()
	q := From(users()).Select(expr.Lambda(expr.Object(nil, []string{"Name", "Orders"}, expr.Member(u, "Name"), count), u))
	require.NoError(t, q.Err())

	shape := q.Source().Select().(*types.Object)
	sub, ok := shape.Fields[1].(*types.Subquery)
	require.True(t, ok)
	assert.Equal(t, "f1", sub.Alias())
	assert.Equal(t, "Count()", describe(sub.Field))
	assert.Equal(t, "(t1.UserId = t0.'Id')", describe(sub.Source.Where()))
}

func TestTerminalOperations(t *testing.T) {
	u, o := expr.Param("u"), expr.Param("o")
	nested := From(orders())
	tests := []struct {
		name     string
		body     expr.Expr
		expected string
	}{
		{"any", expr.Over(nested).Any(), "EXISTS [1 from t1]"},
		{"sum", expr.Gt(expr.Over(nested).Sum(expr.Lambda(expr.Member(o, "Total"), o)), expr.Const(100.0)), "([Sum(t1.Total) from t1] > 100)"},
		{"first", expr.Eq(expr.Over(nested).Select(expr.Lambda(expr.Member(o, "UserId"), o)).First(), expr.Member(u, "Id")), "([t1.UserId from t1] = t0.Id)"},
		{"list contains", expr.From(expr.Const([]int{1, 2, 3})).Contains(expr.Member(u, "Id")), "(t0.Id IN [1 2 3])"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := From(users()).Where(expr.Lambda(tt.body, u))
			require.NoError(t, q.Err())
			assert.Equal(t, tt.expected, describe(q.Source().Where()))
		})
	}
}

func TestLastNeedsOrdering(t *testing.T) {
	u, o := expr.Param("u"), expr.Param("o")
	ids := expr.Over(From(orders())).Select(expr.Lambda(expr.Member(o, "Id"), o))
	q := From(users()).Where(expr.Lambda(expr.Eq(ids.Last(), expr.Member(u, "Id")), u))
	assert.True(t, errors.Is(q.Err(), types.ErrMalformedArgument))

	ordered := expr.Over(From(orders())).
		OrderBy(expr.Lambda(expr.Member(o, "Total"), o)).
		Select(expr.Lambda(expr.Member(o, "Id"), o))
	q = From(users()).Where(expr.Lambda(expr.Eq(ordered.Last(), expr.Member(u, "Id")), u))
	require.NoError(t, q.Err())
	sub := q.Source().Where().(*types.Binary).Left.(*types.Subquery)
	require.Len(t, sub.Source.Sorts(), 1)
	assert.True(t, sub.Source.Sorts()[0].Descending)
	assert.Equal(t, types.Range(0, 1), sub.Source.Limit())
}

func TestPagingBoundsMustBeConstant(t *testing.T) {
	u, o := expr.Param("u"), expr.Param("o")
	paged := expr.Over(From(orders())).Skip(expr.Member(u, "Age")).Count()
	q := From(users()).Where(expr.Lambda(expr.Gt(paged, expr.Const(0)), u))
	assert.True(t, errors.Is(q.Err(), types.ErrMalformedArgument))

	folded := expr.Over(From(orders())).Take(expr.Add(expr.Const(2), expr.Const(3))).Select(expr.Lambda(expr.Member(o, "Id"), o))
	q = From(users()).Where(expr.Lambda(folded.Contains(expr.Member(u, "Id")), u))
	require.NoError(t, q.Err())
	sub := q.Source().Where().(*types.Binary).Right.(*types.Subquery)
	assert.Equal(t, types.Range(0, 5), sub.Source.Limit())
}

func TestNestedValueEmbeddedOnce(t *testing.T) {
	u := expr.Param("u")
	nested := From(orders())
	q := From(users()).Where(expr.Lambda(expr.Or(expr.Over(nested).Any(), expr.Gt(expr.Over(nested).Count(), expr.Const(1))), u))
	require.NoError(t, q.Err())
	assert.Equal(t, 2, q.Next())
}

func TestNestedValueReusedInsideItself(t *testing.T) {
	u, o, o2 := expr.Param("u"), expr.Param("o"), expr.Param("o2")
	nested := From(orders())
	larger := expr.Over(nested).Where(expr.Lambda(expr.Gt(expr.Member(o2, "Total"), expr.Member(o, "Total")), o2)).Any()
	q := From(users()).Where(expr.Lambda(expr.Over(nested).Where(expr.Lambda(
		expr.And(expr.Eq(expr.Member(o, "UserId"), expr.Member(u, "Id")), larger), o)).Any(), u))
	require.NoError(t, q.Err())
	assert.Equal(t, 3, q.Next())

	outer, ok := q.Source().Where().(*types.Unary)
	require.True(t, ok)
	sub, ok := outer.Operand.(*types.Subquery)
	require.True(t, ok)
	assert.Equal(t, "t1", sub.Source.Ref().Alias())

	cond, ok := sub.Source.Where().(*types.Binary)
	require.True(t, ok)
	assert.Equal(t, "(t1.UserId = t0.'Id')", describe(cond.Left))
	inner, ok := cond.Right.(*types.Unary)
	require.True(t, ok)
	innerSub, ok := inner.Operand.(*types.Subquery)
	require.True(t, ok)
	assert.Equal(t, "t2", innerSub.Source.Ref().Alias())
	assert.Equal(t, "(t2.Total > t1.'Total')", describe(innerSub.Source.Where()))
}

func TestNestedSelfJoinCopiesEachSide(t *testing.T) {
	u, a, b := expr.Param("u"), expr.Param("a"), expr.Param("b")
	nested := From(orders())
	pairs := expr.Over(nested).Join(expr.Over(nested).Expr(),
		expr.Lambda(expr.Eq(expr.Member(a, "Id"), expr.Member(b, "UserId")), a, b)).Any()
	q := From(users()).Where(expr.Lambda(pairs, u))
	require.NoError(t, q.Err())

	sub := q.Source().Where().(*types.Unary).Operand.(*types.Subquery)
	j, ok := sub.Source.(*types.JoinSource)
	require.True(t, ok)
	assert.NotEqual(t, j.Left.Ref().Alias(), j.Right.Ref().Alias())
}

func TestConstantConstructionKeepsShape(t *testing.T) {
	u := expr.Param("u")
	q := From(users()).Select(expr.Lambda(expr.Object(nil, []string{"A", "B"}, expr.Const(1), expr.Const("x")), u))
	require.NoError(t, q.Err())

	shape, ok := q.Source().Select().(*types.Object)
	require.True(t, ok, "got %T", q.Source().Select())
	assert.Equal(t, "{A: 1, B: x}", describe(shape))
	assert.Equal(t, "f0", shape.Fields[0].(types.Leaf).Alias())
	assert.Equal(t, "f1", shape.Fields[1].(types.Leaf).Alias())

	list := From(users()).Select(expr.Lambda(expr.Array(expr.Const(1), expr.Const(2)), u))
	require.NoError(t, list.Err())
	_, ok = list.Source().Select().(*types.Collection)
	assert.True(t, ok)
}

func TestUnion(t *testing.T) {
	u := expr.Param("u")
	names := From(users()).Select(expr.Lambda(expr.Member(u, "Name"), u))
	adults := From(users()).
		Where(expr.Lambda(expr.Ge(expr.Member(u, "Age"), expr.Const(18)), u)).
		Select(expr.Lambda(expr.Member(u, "Name"), u))

	q := names.Union(adults)
	require.NoError(t, q.Err())
	un, ok := q.Source().(*types.UnionSource)
	require.True(t, ok)
	assert.Equal(t, types.Union, un.Kind)
	assert.Equal(t, "t0", un.Main.Ref().Alias())
	assert.Equal(t, "t1", un.Affiliate.Ref().Alias())
	assert.Equal(t, "t2.'f0'", describe(un.Root()))

	ages := From(users()).Select(expr.Lambda(expr.Member(u, "Age"), u))
	assert.True(t, errors.Is(names.UnionAll(ages).Err(), types.ErrTypeMismatch))
	assert.True(t, errors.Is(names.Except(From(users())).Err(), types.ErrMalformedArgument))
}

func TestErrorsAreSticky(t *testing.T) {
	u, x := expr.Param("u"), expr.Param("x")
	q := From(users()).Where(expr.Lambda(expr.Eq(expr.Member(x, "Id"), expr.Const(1)), u))
	require.True(t, errors.Is(q.Err(), types.ErrUnresolvedParameter))

	later := q.Take(1).Select(expr.Lambda(u, u))
	assert.Same(t, q, later)
	_, err := later.Statement()
	assert.True(t, errors.Is(err, types.ErrUnresolvedParameter))

	notBool := From(users()).Where(expr.Lambda(expr.Member(u, "Age"), u))
	assert.True(t, errors.Is(notBool.Err(), types.ErrTypeMismatch))

	missing := From(users()).Select(expr.Lambda(expr.Member(u, "Email"), u))
	assert.True(t, errors.Is(missing.Err(), types.ErrMissingField))

	ambiguous := &types.Schema{Name: "bad", Columns: []types.Column{
		{Name: "A", Kind: types.KindInt, PrimaryKey: true},
		{Name: "B", Kind: types.KindInt, PrimaryKey: true},
	}}
	assert.True(t, errors.Is(From(ambiguous).Err(), types.ErrAmbiguousSchema))
}

func TestStatements(t *testing.T) {
	u := expr.Param("u")
	stmt, err := From(users()).Statement()
	require.NoError(t, err)
	assert.Equal(t, "{Id: t0.Id, Name: t0.Name, Age: t0.Age}", describe(stmt.Source.Select()))

	ins, err := Insert(users(), map[string]any{"Name": "ann", "Age": 30})
	require.NoError(t, err)
	require.Len(t, ins.Assignments, 2)
	assert.Equal(t, "Name", ins.Assignments[0].Column.Column.Name)
	require.NotNil(t, ins.Returning)
	assert.Equal(t, "Id", ins.Returning.Column.Name)

	_, err = Insert(users(), map[string]any{"Id": 4})
	assert.True(t, errors.Is(err, types.ErrMissingField))
	_, err = Insert(users(), map[string]any{"Email": "x"})
	assert.True(t, errors.Is(err, types.ErrMissingField))
	_, err = Insert(users(), map[string]any{"Name": nil})
	assert.True(t, errors.Is(err, types.ErrTypeMismatch))

	upd, err := From(users()).
		Where(expr.Lambda(expr.Eq(expr.Member(u, "Id"), expr.Const(1)), u)).
		Update(expr.Lambda(expr.Object(nil, []string{"Age"}, expr.Add(expr.Member(u, "Age"), expr.Const(1))), u))
	require.NoError(t, err)
	require.Len(t, upd.Assignments, 1)
	assert.Equal(t, "(t0.Age + 1)", describe(upd.Assignments[0].Value))
	assert.Equal(t, "(t0.Id = 1)", describe(upd.Table.Where()))

	byKey, err := UpdateByKey(users(), 7, map[string]any{"Name": "bo", "Age": nil})
	require.NoError(t, err)
	assert.Len(t, byKey.Assignments, 2)
	assert.Equal(t, "(t0.Id = 7)", describe(byKey.Table.Where()))

	keyless := &types.Schema{Name: "log", Columns: []types.Column{{Name: "Line", Kind: types.KindString}}}
	_, err = DeleteByKey(keyless, 1)
	assert.True(t, errors.Is(err, types.ErrMissingField))
	_, err = UpdateByKey(keyless, 1, map[string]any{"Line": "x"})
	assert.True(t, errors.Is(err, types.ErrMissingField))

	a, b := expr.Param("a"), expr.Param("b")
	joined := From(schemaA()).Join(From(schemaB()), expr.Lambda(expr.Eq(expr.Member(a, "Id"), expr.Member(b, "AId")), a, b))
	_, err = joined.Delete()
	assert.True(t, errors.Is(err, types.ErrMalformedArgument))
	_, err = From(users()).Take(1).Delete()
	assert.True(t, errors.Is(err, types.ErrMalformedArgument))
}

type person struct {
	Name string
	Age  int
}

func TestMaterialize(t *testing.T) {
	u := expr.Param("u")
	ctor := &types.Constructor{Name: "person", New: func(v map[string]any) (any, error) {
		return person{Name: v["Name"].(string), Age: v["Age"].(int)}, nil
	}}
	q := From(users()).Select(expr.Lambda(expr.Object(ctor, []string{"Name", "Age"}, expr.Member(u, "Name"), expr.Member(u, "Age")), u))
	stmt, err := q.Statement()
	require.NoError(t, err)

	got, err := Materialize(stmt.Source.Select(), map[string]any{"f0": "ann", "f1": 30})
	require.NoError(t, err)
	assert.Equal(t, person{Name: "ann", Age: 30}, got)

	plain := From(users()).Select(expr.Lambda(expr.Array(expr.Member(u, "Id"), expr.Member(u, "Name")), u))
	stmt, err = plain.Statement()
	require.NoError(t, err)
	got, err = Materialize(stmt.Source.Select(), map[string]any{"f0": int64(1), "f1": "bo"})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), "bo"}, got)

	_, err = Materialize(stmt.Source.Select(), map[string]any{"f0": int64(1)})
	assert.True(t, errors.Is(err, types.ErrMissingField))
}

package render

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoobzio/composql/expr"
	"github.com/zoobzio/composql/internal/query"
	"github.com/zoobzio/composql/internal/types"
)

// ansi is a minimal dialect used to exercise the generator.
type ansi struct {
	caps Capabilities
}

func (ansi) Name() string                 { return "ansi" }
func (a ansi) Capabilities() Capabilities { return a.caps }
func (ansi) Quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
func (ansi) Placeholder(n int) string             { return "$" + strconv.Itoa(n) }
func (ansi) Concat(parts ...string) string        { return strings.Join(parts, " || ") }
func (ansi) Call(string, []string) (string, bool) { return "", false }
func (ansi) Cast(e string, k types.Kind) (string, error) {
	return "CAST(" + e + " AS " + strings.ToUpper(k.String()) + ")", nil
}
func (ansi) Paginate(l types.Limit, _ bool) string {
	var s string
	if l.HasCount {
		s = " LIMIT " + strconv.Itoa(l.Count)
	}
	if l.Start > 0 {
		s += " OFFSET " + strconv.Itoa(l.Start)
	}
	return s
}
func (ansi) ModifyTarget(kind types.StatementKind, table, alias string) (string, string) {
	if kind == types.StatementDelete {
		return "DELETE FROM " + table + " AS " + alias, ""
	}
	return "UPDATE " + table + " AS " + alias, ""
}

// soundex is a database function no dialect maps.
var soundex = &expr.Method{Name: "soundex", DB: true}

var full = ansi{caps: Capabilities{
	Returning:     true,
	BooleanValues: true,
	RightJoin:     true,
	FullJoin:      true,
	SetOperations: true,
}}

func users() *types.Schema {
	return &types.Schema{Name: "users", Columns: []types.Column{
		{Name: "Id", Kind: types.KindInt, PrimaryKey: true, AutoIncrement: true},
		{Name: "Name", Kind: types.KindString},
		{Name: "Age", Kind: types.KindInt, Nullable: true},
	}}
}

func orders() *types.Schema {
	return &types.Schema{Name: "orders", Columns: []types.Column{
		{Name: "Id", Kind: types.KindInt, PrimaryKey: true},
		{Name: "UserId", Kind: types.KindInt},
		{Name: "Total", Kind: types.KindFloat},
	}}
}

func render(t *testing.T, d Dialect, q *query.Query) *types.QueryResult {
	t.Helper()
	stmt, err := q.Statement()
	require.NoError(t, err)
	result, err := NewGenerator(d).Generate(stmt)
	require.NoError(t, err)
	return result
}

const allUsers = `SELECT t0."Id" AS "f0", t0."Name" AS "f1", t0."Age" AS "f2" FROM "users" t0`

func TestGenerateSelect(t *testing.T) {
	u, o := expr.Param("u"), expr.Param("o")
	age := expr.Member(u, "Age")

	tests := []struct {
		name   string
		query  *query.Query
		sql    string
		params []any
	}{
		{
			name:  "projection",
			query: query.From(users()).Select(expr.Lambda(expr.Member(u, "Name"), u)),
			sql:   `SELECT t0."Name" AS "f0" FROM "users" t0`,
		},
		{
			name:   "filter",
			query:  query.From(users()).Where(expr.Lambda(expr.Eq(expr.Member(u, "Id"), expr.Const(5)), u)),
			sql:    allUsers + ` WHERE (t0."Id" = $1)`,
			params: []any{5},
		},
		{
			name:  "null comparison",
			query: query.From(users()).Where(expr.Lambda(expr.Eq(age, expr.Const(nil)), u)),
			sql:   allUsers + ` WHERE (t0."Age" IS NULL)`,
		},
		{
			name:  "ordering and paging",
			query: query.From(users()).OrderByDescending(expr.Lambda(age, u)).Skip(10).Take(5),
			sql:   allUsers + ` ORDER BY t0."Age" DESC LIMIT 5 OFFSET 10`,
		},
		{
			name:   "wrap after limit",
			query:  query.From(users()).Take(5).Where(expr.Lambda(expr.Gt(age, expr.Const(18)), u)),
			sql:    `SELECT t1."f0" AS "f0", t1."f1" AS "f1", t1."f2" AS "f2" FROM (` + allUsers + ` LIMIT 5) t1 WHERE (t1."f2" > $1)`,
			params: []any{18},
		},
		{
			name: "contains subquery",
			query: query.From(users()).Where(expr.Lambda(
				expr.Over(query.From(orders())).Select(expr.Lambda(expr.Member(o, "UserId"), o)).Contains(expr.Member(u, "Id")), u)),
			sql: allUsers + ` WHERE (t0."Id" IN (SELECT t1."UserId" FROM "orders" t1))`,
		},
		{
			name: "list contains",
			query: query.From(users()).Where(expr.Lambda(
				expr.From(expr.Const([]int{1, 2})).Contains(expr.Member(u, "Id")), u)),
			sql:    allUsers + ` WHERE (t0."Id" IN ($1, $2))`,
			params: []any{1, 2},
		},
		{
			name: "correlated count",
			query: query.From(users()).Select(expr.Lambda(expr.Object(nil, []string{"Name", "Orders"},
				expr.Member(u, "Name"),
				expr.Over(query.From(orders())).Where(expr.Lambda(expr.Eq(expr.Member(o, "UserId"), expr.Member(u, "Id")), o)).Count(),
			), u)),
			sql: `SELECT t0."Name" AS "f0", (SELECT COUNT(*) FROM "orders" t1 WHERE (t1."UserId" = t0."Id")) AS "f1" FROM "users" t0`,
		},
		{
			name: "constant construction",
			query: query.From(users()).Select(expr.Lambda(
				expr.Object(nil, []string{"A", "B"}, expr.Const(1), expr.Const("x")), u)),
			sql:    `SELECT $1 AS "f0", $2 AS "f1" FROM "users" t0`,
			params: []any{1, "x"},
		},
		{
			name:  "declared function",
			query: query.From(users()).Select(expr.Lambda(expr.Call(soundex, expr.Member(u, "Name")), u)),
			sql:   `SELECT soundex(t0."Name") AS "f0" FROM "users" t0`,
		},
		{
			name: "string predicate",
			query: query.From(users()).Where(expr.Lambda(
				expr.Call(expr.StartsWith, expr.Member(u, "Name"), expr.Const("al")), u)),
			sql:    allUsers + ` WHERE (t0."Name" LIKE $1 || '%')`,
			params: []any{"al"},
		},
		{
			name: "union",
			query: query.From(users()).Select(expr.Lambda(expr.Member(u, "Name"), u)).Union(
				query.From(users()).Where(expr.Lambda(expr.Ge(age, expr.Const(18)), u)).Select(expr.Lambda(expr.Member(u, "Name"), u))),
			sql: `SELECT t2."f0" AS "f0" FROM (SELECT t0."Name" AS "f0" FROM "users" t0 UNION ` +
				`SELECT t1."Name" AS "f0" FROM "users" t1 WHERE (t1."Age" >= $1)) t2`,
			params: []any{18},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.query.Err())
			result := render(t, full, tt.query)
			assert.Equal(t, tt.sql, result.SQL)
			assert.Equal(t, tt.params, result.Params)
			assert.Equal(t, types.StatementSelect, result.Kind)
			assert.NotNil(t, result.Shape)
		})
	}
}

func TestGenerateNestedReuse(t *testing.T) {
	u, o, o2 := expr.Param("u"), expr.Param("o"), expr.Param("o2")
	ords := query.From(orders())
	larger := expr.Over(ords).Where(expr.Lambda(expr.Gt(expr.Member(o2, "Total"), expr.Member(o, "Total")), o2)).Any()
	q := query.From(users()).Where(expr.Lambda(expr.Over(ords).Where(expr.Lambda(
		expr.And(expr.Eq(expr.Member(o, "UserId"), expr.Member(u, "Id")), larger), o)).Any(), u))

	result := render(t, full, q)
	assert.Equal(t, allUsers+` WHERE EXISTS (SELECT 1 FROM "orders" t1 WHERE ((t1."UserId" = t0."Id") AND `+
		`EXISTS (SELECT 1 FROM "orders" t2 WHERE (t2."Total" > t1."Total"))))`, result.SQL)
}

func TestGenerateJoin(t *testing.T) {
	u, o := expr.Param("u"), expr.Param("o")
	q := query.From(users()).
		Join(query.From(orders()), expr.Lambda(expr.Eq(expr.Member(u, "Id"), expr.Member(o, "UserId")), u, o)).
		Select(expr.Lambda(expr.Object(nil, []string{"Name", "Total"}, expr.Member(u, "Name"), expr.Member(o, "Total")), u, o))
	result := render(t, full, q)
	assert.Equal(t, `SELECT t0."Name" AS "f0", t1."Total" AS "f1" FROM "users" t0 INNER JOIN "orders" t1 ON (t0."Id" = t1."UserId")`, result.SQL)

	outer := query.From(users()).FullJoin(query.From(orders()), expr.Lambda(expr.Eq(expr.Member(u, "Id"), expr.Member(o, "UserId")), u, o))
	stmt, err := outer.Statement()
	require.NoError(t, err)
	_, err = NewGenerator(ansi{caps: Capabilities{BooleanValues: true}}).Generate(stmt)
	var unsupported UnsupportedFeatureError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "FULL JOIN", unsupported.Feature)
}

func TestGenerateBooleanValues(t *testing.T) {
	u := expr.Param("u")
	bitless := ansi{caps: Capabilities{}}

	q := query.From(users()).Select(expr.Lambda(expr.Gt(expr.Member(u, "Age"), expr.Const(18)), u))
	result := render(t, bitless, q)
	assert.Equal(t, `SELECT CASE WHEN (t0."Age" > $1) THEN 1 ELSE 0 END AS "f0" FROM "users" t0`, result.SQL)

	result = render(t, full, q)
	assert.Equal(t, `SELECT (t0."Age" > $1) AS "f0" FROM "users" t0`, result.SQL)
}

func TestGenerateModify(t *testing.T) {
	u := expr.Param("u")
	gen := NewGenerator(full)

	ins, err := query.Insert(users(), map[string]any{"Name": "ann", "Age": 30})
	require.NoError(t, err)
	result, err := gen.Generate(ins)
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "users" ("Name", "Age") VALUES ($1, $2) RETURNING "Id"`, result.SQL)
	assert.Equal(t, []any{"ann", 30}, result.Params)
	assert.Equal(t, "Id", result.Returning)

	upd, err := query.From(users()).
		Where(expr.Lambda(expr.Eq(expr.Member(u, "Id"), expr.Const(1)), u)).
		Update(expr.Lambda(expr.Object(nil, []string{"Age"}, expr.Add(expr.Member(u, "Age"), expr.Const(1))), u))
	require.NoError(t, err)
	result, err = gen.Generate(upd)
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "users" AS t0 SET "Age" = (t0."Age" + $1) WHERE (t0."Id" = $2)`, result.SQL)
	assert.Equal(t, []any{1, 1}, result.Params)

	del, err := query.DeleteByKey(users(), 7)
	require.NoError(t, err)
	result, err = gen.Generate(del)
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "users" AS t0 WHERE (t0."Id" = $1)`, result.SQL)
	assert.Equal(t, []any{7}, result.Params)

	noKey := ansi{caps: Capabilities{BooleanValues: true}}
	result, err = NewGenerator(noKey).Generate(ins)
	require.NoError(t, err)
	assert.Empty(t, result.Returning)
	assert.NotContains(t, result.SQL, "RETURNING")
}

func TestGenerateRejectsQueryValues(t *testing.T) {
	q := query.From(users())
	stmt := &types.SelectStatement{Source: types.SetSelect(q.Source(), types.NewTypedConstant(q, types.KindQuery))}
	_, err := NewGenerator(full).Generate(stmt)
	assert.True(t, errors.Is(err, types.ErrUnsupportedExpression))

	_, err = NewGenerator(full).Generate(nil)
	assert.True(t, errors.Is(err, types.ErrMalformedArgument))
}

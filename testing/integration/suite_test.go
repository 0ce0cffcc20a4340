package integration

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/composql"
	"github.com/zoobzio/composql/executor"
	"github.com/zoobzio/composql/expr"
	qltest "github.com/zoobzio/composql/testing"
)

// dialectSuite runs the same composed statements against one database.
type dialectSuite struct {
	renderer composql.Renderer
	exec     executor.Executor
	// reset drops and recreates the users and orders tables.
	reset []string
}

func (s dialectSuite) run(t *testing.T) {
	ctx := context.Background()
	for _, stmt := range s.reset {
		_, err := s.exec.Exec(ctx, &composql.QueryResult{Kind: composql.StatementUpdate, SQL: stmt})
		require.NoError(t, err, "reset: %s", stmt)
	}

	c := qltest.TestCatalog(t)
	u, o, g := expr.Param("u"), expr.Param("o"), expr.Param("g")
	member := expr.Member

	ids := map[string]int64{}
	for _, row := range []struct {
		name   string
		age    int
		active bool
	}{{"ann", 30, true}, {"bob", 15, true}, {"cy", 40, false}} {
		stmt, err := composql.Insert(c.Schema("users"), map[string]any{
			"username": row.name,
			"email":    row.name + "@example.com",
			"age":      row.age,
			"active":   row.active,
		})
		require.NoError(t, err)
		res := s.execute(t, stmt)
		ids[row.name] = toInt64(t, res.LastInsertID)
	}
	assert.Len(t, distinct(ids), 3, "generated keys must differ")

	for _, order := range []struct {
		user  string
		total float64
	}{{"ann", 50}, {"ann", 150}, {"cy", 20}} {
		stmt, err := composql.Insert(c.Schema("orders"), map[string]any{
			"user_id": ids[order.user],
			"total":   order.total,
			"status":  "paid",
		})
		require.NoError(t, err)
		s.execute(t, stmt)
	}

	username := expr.Lambda(member(u, "username"), u)
	ordersOf := func() expr.Seq {
		return expr.Over(c.From("orders")).
			Where(expr.Lambda(expr.Eq(member(o, "user_id"), member(u, "id")), o))
	}

	t.Run("filter", func(t *testing.T) {
		q := c.From("users").
			Where(expr.Lambda(expr.And(expr.Ge(member(u, "age"), expr.Const(18)), member(u, "active")), u)).
			OrderBy(username).
			Select(username)
		assert.Equal(t, []any{"ann"}, s.fetch(t, q))
	})

	t.Run("join", func(t *testing.T) {
		q := c.From("users").
			Join(c.From("orders"), expr.Lambda(expr.Eq(member(u, "id"), member(o, "user_id")), u, o)).
			Select(expr.Lambda(member(u, "username"), u, o))
		assert.Equal(t, []string{"ann", "ann", "cy"}, sorted(s.fetch(t, q)))
	})

	t.Run("contains subquery", func(t *testing.T) {
		big := expr.Over(c.From("orders")).
			Where(expr.Lambda(expr.Gt(member(o, "total"), expr.Const(100.0)), o)).
			Select(expr.Lambda(member(o, "user_id"), o))
		q := c.From("users").
			Where(expr.Lambda(big.Contains(member(u, "id")), u)).
			Select(username)
		assert.Equal(t, []any{"ann"}, s.fetch(t, q))
	})

	t.Run("correlated count", func(t *testing.T) {
		q := c.From("users").
			Select(expr.Lambda(expr.Object(nil, []string{"name", "orders"}, member(u, "username"), ordersOf().Count()), u))
		counts := map[string]int64{}
		for _, row := range s.fetch(t, q) {
			m := row.(map[string]any)
			counts[m["name"].(string)] = toInt64(t, m["orders"])
		}
		assert.Equal(t, map[string]int64{"ann": 2, "bob": 0, "cy": 1}, counts)
	})

	t.Run("exists", func(t *testing.T) {
		q := c.From("users").
			Where(expr.Lambda(ordersOf().Any(), u)).
			Select(username)
		assert.Equal(t, []string{"ann", "cy"}, sorted(s.fetch(t, q)))
	})

	t.Run("group having", func(t *testing.T) {
		q := c.From("orders").
			GroupBy(expr.Lambda(member(o, "user_id"), o)).
			Select(expr.Lambda(expr.Object(nil, []string{"user", "n"}, member(o, "user_id"), expr.Call(expr.Count, nil)), o)).
			Where(expr.Lambda(expr.Gt(member(g, "n"), expr.Const(1)), g))
		rows := s.fetch(t, q)
		require.Len(t, rows, 1)
		m := rows[0].(map[string]any)
		assert.Equal(t, ids["ann"], toInt64(t, m["user"]))
		assert.Equal(t, int64(2), toInt64(t, m["n"]))
	})

	t.Run("union", func(t *testing.T) {
		q := c.From("users").
			Where(expr.Lambda(member(u, "active"), u)).
			Select(username).
			Union(c.From("users").Select(username))
		assert.Equal(t, []string{"ann", "bob", "cy"}, sorted(s.fetch(t, q)))
	})

	t.Run("paging then filter", func(t *testing.T) {
		q := c.From("users").
			OrderBy(expr.Lambda(member(u, "age"), u)).
			Skip(1).
			Take(2).
			Where(expr.Lambda(member(u, "active"), u)).
			Select(username)
		assert.Equal(t, []any{"ann"}, s.fetch(t, q))
	})

	t.Run("update", func(t *testing.T) {
		stmt, err := c.From("users").
			Where(expr.Lambda(expr.Eq(member(u, "username"), expr.Const("bob")), u)).
			Update(expr.Lambda(expr.Object(nil, []string{"age"}, expr.Add(member(u, "age"), expr.Const(5))), u))
		require.NoError(t, err)
		assert.Equal(t, int64(1), s.execute(t, stmt).RowsAffected)

		q := c.From("users").
			Where(expr.Lambda(expr.Ge(member(u, "age"), expr.Const(18)), u)).
			Select(username)
		assert.Equal(t, []string{"ann", "bob", "cy"}, sorted(s.fetch(t, q)))
	})

	t.Run("delete", func(t *testing.T) {
		stmt, err := composql.DeleteByKey(c.Schema("users"), ids["cy"])
		require.NoError(t, err)
		assert.Equal(t, int64(1), s.execute(t, stmt).RowsAffected)

		assert.Equal(t, []string{"ann", "bob"}, sorted(s.fetch(t, c.From("users").Select(username))))
	})
}

func (s dialectSuite) execute(t *testing.T, stmt composql.Statement) executor.Result {
	t.Helper()
	result, err := s.renderer.Render(stmt)
	require.NoError(t, err)
	res, err := s.exec.Exec(context.Background(), result)
	require.NoError(t, err, "SQL: %s", result.SQL)
	return res
}

func (s dialectSuite) fetch(t *testing.T, q *composql.Query) []any {
	t.Helper()
	result, err := composql.Render(q, s.renderer)
	require.NoError(t, err)
	rows, err := executor.Fetch(context.Background(), s.exec, result)
	require.NoError(t, err, "SQL: %s", result.SQL)
	return rows
}

func toInt64(t *testing.T, v any) int64 {
	t.Helper()
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	}
	t.Fatalf("expected an integer, got %T", v)
	return 0
}

func distinct(ids map[string]int64) map[int64]bool {
	out := make(map[int64]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

func sorted(rows []any) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = fmt.Sprint(r)
	}
	sort.Strings(out)
	return out
}

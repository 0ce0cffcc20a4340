// Package testing provides test utilities for composql: a catalog fixture, a
// shared set of statements every dialect renders, and SQL assertions.
package testing

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/zoobzio/composql"
	"github.com/zoobzio/composql/expr"
	"github.com/zoobzio/dbml"
)

// TestCatalog creates the users/orders catalog used across dialect tests.
func TestCatalog(t *testing.T) *composql.Catalog {
	t.Helper()

	project := dbml.NewProject("test")

	users := dbml.NewTable("users")
	users.AddColumn(dbml.NewColumn("id", "bigint"))
	users.AddColumn(dbml.NewColumn("username", "varchar"))
	users.AddColumn(dbml.NewColumn("email", "varchar"))
	users.AddColumn(dbml.NewColumn("age", "int"))
	users.AddColumn(dbml.NewColumn("active", "boolean"))
	users.AddColumn(dbml.NewColumn("created_at", "timestamp"))
	project.AddTable(users)

	orders := dbml.NewTable("orders")
	orders.AddColumn(dbml.NewColumn("id", "bigint"))
	orders.AddColumn(dbml.NewColumn("user_id", "bigint"))
	orders.AddColumn(dbml.NewColumn("total", "numeric"))
	orders.AddColumn(dbml.NewColumn("status", "varchar"))
	project.AddTable(orders)

	catalog, err := composql.NewFromDBML(project,
		composql.WithPrimaryKey("users", "id"),
		composql.WithAutoIncrement("users", "id"),
		composql.WithNullable("users", "age", "created_at"),
		composql.WithUnique("users", "email"),
		composql.WithPrimaryKey("orders", "id"),
		composql.WithAutoIncrement("orders", "id"),
	)
	if err != nil {
		t.Fatalf("Failed to create test catalog: %v", err)
	}
	return catalog
}

// Scenario is a named statement rendered by every dialect.
type Scenario struct {
	Statement composql.Statement
	Name      string
}

// Scenarios builds the statements covering projection, filtering, joins,
// nested queries, grouping, set operations and modification.
func Scenarios(t *testing.T) []Scenario {
	t.Helper()
	c := TestCatalog(t)
	u, o, g := expr.Param("u"), expr.Param("o"), expr.Param("g")
	member := expr.Member

	ordersOf := func() expr.Seq {
		return expr.Over(c.From("orders")).
			Where(expr.Lambda(expr.Eq(member(o, "user_id"), member(u, "id")), o))
	}

	selects := []struct {
		name  string
		query *composql.Query
	}{
		{"select_projection", c.From("users").
			Select(expr.Lambda(member(u, "username"), u))},
		{"select_filter", c.From("users").
			Where(expr.Lambda(expr.And(expr.Ge(member(u, "age"), expr.Const(18)), member(u, "active")), u)).
			OrderBy(expr.Lambda(member(u, "username"), u)).
			Take(10)},
		{"join_projection", c.From("users").
			Join(c.From("orders"), expr.Lambda(expr.Eq(member(u, "id"), member(o, "user_id")), u, o)).
			Select(expr.Lambda(expr.Object(nil, []string{"name", "total"}, member(u, "username"), member(o, "total")), u, o))},
		{"contains_subquery", c.From("users").
			Where(expr.Lambda(expr.Over(c.From("orders")).
				Where(expr.Lambda(expr.Gt(member(o, "total"), expr.Const(100.0)), o)).
				Select(expr.Lambda(member(o, "user_id"), o)).
				Contains(member(u, "id")), u)).
			Select(expr.Lambda(member(u, "username"), u))},
		{"correlated_count", c.From("users").
			Select(expr.Lambda(expr.Object(nil, []string{"name", "orders"}, member(u, "username"), ordersOf().Count()), u))},
		{"exists", c.From("users").
			Where(expr.Lambda(ordersOf().Any(), u)).
			Select(expr.Lambda(member(u, "username"), u))},
		{"group_having", c.From("orders").
			GroupBy(expr.Lambda(member(o, "user_id"), o)).
			Select(expr.Lambda(expr.Object(nil, []string{"user", "n"}, member(o, "user_id"), expr.Call(expr.Count, nil)), o)).
			Where(expr.Lambda(expr.Gt(member(g, "n"), expr.Const(1)), g))},
		{"union", c.From("users").
			Select(expr.Lambda(member(u, "username"), u)).
			Union(c.From("users").
				Where(expr.Lambda(member(u, "active"), u)).
				Select(expr.Lambda(member(u, "username"), u)))},
		{"paging_wrap", c.From("users").
			OrderBy(expr.Lambda(member(u, "age"), u)).
			Skip(5).
			Take(10).
			Where(expr.Lambda(member(u, "active"), u))},
		{"string_methods", c.From("users").
			Where(expr.Lambda(expr.Call(expr.EndsWith, member(u, "email"), expr.Const("@example.com")), u)).
			Select(expr.Lambda(expr.Call(expr.ToUpper, member(u, "username")), u))},
		{"conditional", c.From("users").
			Select(expr.Lambda(expr.Cond(expr.Ge(member(u, "age"), expr.Const(18)), expr.Const("adult"), expr.Const("minor")), u))},
		{"predicate_value", c.From("users").
			Select(expr.Lambda(expr.Object(nil, []string{"name", "adult"}, member(u, "username"), expr.Ge(member(u, "age"), expr.Const(18))), u))},
	}

	var out []Scenario
	for _, s := range selects {
		stmt, err := s.query.Statement()
		if err != nil {
			t.Fatalf("%s: %v", s.name, err)
		}
		out = append(out, Scenario{Name: s.name, Statement: stmt})
	}

	users := c.Schema("users")
	ins, err := composql.Insert(users, map[string]any{"username": "ann", "email": "ann@example.com", "age": 30, "active": true})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	upd, err := c.From("users").
		Where(expr.Lambda(expr.Eq(member(u, "id"), expr.Const(1)), u)).
		Update(expr.Lambda(expr.Object(nil, []string{"age", "active"}, expr.Add(member(u, "age"), expr.Const(1)), expr.Const(false)), u))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	del, err := composql.DeleteByKey(users, 7)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	return append(out,
		Scenario{Name: "insert", Statement: ins},
		Scenario{Name: "update", Statement: upd},
		Scenario{Name: "delete", Statement: del},
	)
}

// Golden formats a result the way golden files store it: the SQL, then one
// comment line per parameter and one naming the returned key.
func Golden(result *composql.QueryResult) string {
	var b strings.Builder
	b.WriteString(result.SQL)
	b.WriteString("\n")
	for i, p := range result.Params {
		fmt.Fprintf(&b, "-- %d: %#v\n", i+1, p)
	}
	if result.Returning != "" {
		fmt.Fprintf(&b, "-- returning: %s\n", result.Returning)
	}
	return b.String()
}

// AssertGolden compares result with testdata/golden/<name>.golden.
// Run the tests with -update to rewrite the files.
func AssertGolden(t *testing.T, name string, result *composql.QueryResult) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(Golden(result)))
}

// AssertSQL compares expected and actual SQL, reporting detailed differences.
func AssertSQL(t *testing.T, expected, actual string) {
	t.Helper()
	if expected != actual {
		t.Errorf("SQL mismatch:\nExpected: %s\nActual:   %s", expected, actual)
	}
}

// AssertParams checks that the positional parameters match expected in order.
func AssertParams(t *testing.T, expected, actual []any) {
	t.Helper()
	if len(expected) != len(actual) {
		t.Errorf("Param count mismatch: expected %d, got %d\nExpected: %v\nActual: %v",
			len(expected), len(actual), expected, actual)
		return
	}
	for i := range expected {
		if fmt.Sprintf("%#v", expected[i]) != fmt.Sprintf("%#v", actual[i]) {
			t.Errorf("Param %d mismatch: expected %#v, got %#v", i+1, expected[i], actual[i])
		}
	}
}

// AssertPanics verifies that a function panics.
func AssertPanics(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic but function completed normally")
		}
	}()
	fn()
}

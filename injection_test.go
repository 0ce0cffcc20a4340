package composql_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/zoobzio/composql"
	"github.com/zoobzio/composql/expr"
	"github.com/zoobzio/composql/postgres"
	qltest "github.com/zoobzio/composql/testing"
)

// TestSQLInjectionProtection verifies that names outside the catalog never reach SQL.
func TestSQLInjectionProtection(t *testing.T) {
	c := qltest.TestCatalog(t)
	u := expr.Param("u")

	attempts := []struct {
		name  string
		field string
	}{
		{"DROP TABLE", "email; DROP TABLE users; --"},
		{"Union injection", "id UNION SELECT * FROM passwords"},
		{"OR 1=1", "id OR 1=1"},
		{"Comment injection", "id/**/OR/**/1=1"},
		{"Backtick injection", "id` FROM users; DROP TABLE users; --"},
		{"Quote injection", "id' OR '1'='1"},
		{"Double quote injection", `id" OR "1"="1`},
		{"Null byte injection", "id\x00 OR 1=1"},
		{"Case bypass", "ID"},
		{"Function injection", "id) OR SLEEP(10)--"},
	}

	t.Run("Member injection attempts", func(t *testing.T) {
		for _, attempt := range attempts {
			t.Run(attempt.name, func(t *testing.T) {
				_, err := c.From("users").
					Select(expr.Lambda(expr.Member(u, attempt.field), u)).
					Statement()
				if !errors.Is(err, composql.ErrMissingField) {
					t.Errorf("expected ErrMissingField for %q, got %v", attempt.field, err)
				}
			})
		}
	})

	t.Run("Table injection attempts", func(t *testing.T) {
		for _, attempt := range attempts {
			t.Run(attempt.name, func(t *testing.T) {
				if _, err := c.TryFrom(attempt.field); err == nil {
					t.Errorf("expected error for table %q", attempt.field)
				}
			})
		}
	})
}

// TestParameterIsolation verifies that caller values travel as parameters only.
func TestParameterIsolation(t *testing.T) {
	c := qltest.TestCatalog(t)
	u := expr.Param("u")
	hostile := "x'; DROP TABLE users; --"

	t.Run("Filter values are parameters", func(t *testing.T) {
		q := c.From("users").
			Where(expr.Lambda(expr.Eq(expr.Member(u, "email"), expr.Const(hostile)), u))
		result, err := composql.Render(q, postgres.New())
		if err != nil {
			t.Fatalf("Render() error = %v", err)
		}
		if strings.Contains(result.SQL, "DROP") {
			t.Errorf("value leaked into SQL: %s", result.SQL)
		}
		qltest.AssertParams(t, []any{hostile}, result.Params)
	})

	t.Run("INSERT values are parameters", func(t *testing.T) {
		stmt, err := composql.Insert(c.Schema("users"), map[string]any{
			"username": hostile,
			"email":    hostile,
			"active":   true,
		})
		if err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
		result, err := postgres.New().Render(stmt)
		if err != nil {
			t.Fatalf("Render() error = %v", err)
		}
		if strings.Contains(result.SQL, "DROP") {
			t.Errorf("value leaked into SQL: %s", result.SQL)
		}
		qltest.AssertParams(t, []any{hostile, hostile, true}, result.Params)
	})

	t.Run("Declared identifiers are quoted", func(t *testing.T) {
		odd, err := composql.NewCatalog(&composql.Schema{
			Name:    `we"ird`,
			Columns: []composql.Column{{Name: `co"l`, Kind: composql.KindString}},
		})
		if err != nil {
			t.Fatalf("NewCatalog() error = %v", err)
		}
		result, err := composql.Render(odd.From(`we"ird`), postgres.New())
		if err != nil {
			t.Fatalf("Render() error = %v", err)
		}
		qltest.AssertSQL(t, `SELECT t0."co""l" AS "f0" FROM "we""ird" t0`, result.SQL)
	})
}

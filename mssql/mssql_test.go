package mssql

import (
	"testing"

	"github.com/zoobzio/composql/expr"
	"github.com/zoobzio/composql/internal/types"
	qltest "github.com/zoobzio/composql/testing"
)

func TestNew(t *testing.T) {
	r := New()
	if r == nil {
		t.Fatal("New() returned nil")
	}
	caps := r.Capabilities()
	if caps.BooleanValues {
		t.Error("SQL Server has no boolean values")
	}
	if !caps.GeneratedKey() {
		t.Error("OUTPUT INSERTED should provide the generated key")
	}
}

func TestRender_Scenarios(t *testing.T) {
	r := New()
	for _, sc := range qltest.Scenarios(t) {
		t.Run(sc.Name, func(t *testing.T) {
			result, err := r.Render(sc.Statement)
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			qltest.AssertGolden(t, sc.Name, result)
		})
	}
}

func TestQuote_EscapesBrackets(t *testing.T) {
	if got := (dialect{}).Quote("a]b"); got != "[a]]b]" {
		t.Errorf("Quote() = %s", got)
	}
}

func TestRender_UnorderedPaging(t *testing.T) {
	c := qltest.TestCatalog(t)
	u := expr.Param("u")
	stmt, err := c.From("users").
		Select(expr.Lambda(expr.Member(u, "id"), u)).
		Take(5).
		Statement()
	if err != nil {
		t.Fatalf("Statement() error = %v", err)
	}

	result, err := New().Render(stmt)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	// OFFSET ... FETCH requires an ORDER BY
	qltest.AssertSQL(t,
		"SELECT t0.[id] AS [f0] FROM [users] t0 ORDER BY (SELECT NULL) OFFSET 0 ROWS FETCH NEXT 5 ROWS ONLY",
		result.SQL)
}

func TestRender_NegatedBitColumn(t *testing.T) {
	c := qltest.TestCatalog(t)
	u := expr.Param("u")
	stmt, err := c.From("users").
		Where(expr.Lambda(expr.Not(expr.Member(u, "active")), u)).
		Select(expr.Lambda(expr.Member(u, "id"), u)).
		Statement()
	if err != nil {
		t.Fatalf("Statement() error = %v", err)
	}

	result, err := New().Render(stmt)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	qltest.AssertSQL(t, "SELECT t0.[id] AS [f0] FROM [users] t0 WHERE (NOT (t0.[active] = 1))", result.SQL)
}

func TestCall(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"Length", []string{"x"}, "LEN(x)"},
		{"Now", nil, "SYSDATETIME()"},
		{"Year", []string{"x"}, "DATEPART(year, x)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := (dialect{}).Call(tt.name, tt.args)
			if !ok || got != tt.want {
				t.Errorf("Call() = %q, %v, want %q", got, ok, tt.want)
			}
		})
	}
}

func TestCast(t *testing.T) {
	got, err := (dialect{}).Cast("x", types.KindString)
	if err != nil {
		t.Fatalf("Cast() error = %v", err)
	}
	if got != "CAST(x AS NVARCHAR(MAX))" {
		t.Errorf("Cast() = %s", got)
	}
}

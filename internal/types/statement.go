package types

import "fmt"

// StatementKind tags the statement handed to a dialect.
type StatementKind int

const (
	StatementSelect StatementKind = iota
	StatementInsert
	StatementUpdate
	StatementDelete
)

func (k StatementKind) String() string {
	switch k {
	case StatementSelect:
		return "SELECT"
	case StatementInsert:
		return "INSERT"
	case StatementUpdate:
		return "UPDATE"
	case StatementDelete:
		return "DELETE"
	}
	return fmt.Sprintf("StatementKind(%d)", int(k))
}

// Statement is a finished unit of work for a dialect.
type Statement interface {
	StatementKind() StatementKind
}

// SelectStatement reads the projection of Source.
type SelectStatement struct {
	Source DataSource
}

func (*SelectStatement) StatementKind() StatementKind { return StatementSelect }

// Assignment sets one column.
type Assignment struct {
	Column *Original
	Value  Field
}

// InsertStatement inserts one row. Returning names the generated key, if any.
type InsertStatement struct {
	Table       *TableSource
	Assignments []Assignment
	Returning   *Original
}

func (*InsertStatement) StatementKind() StatementKind { return StatementInsert }

// UpdateStatement updates the rows of Table matching its where clause.
type UpdateStatement struct {
	Table       *TableSource
	Assignments []Assignment
}

func (*UpdateStatement) StatementKind() StatementKind { return StatementUpdate }

// DeleteStatement deletes the rows of Table matching its where clause.
type DeleteStatement struct {
	Table *TableSource
}

func (*DeleteStatement) StatementKind() StatementKind { return StatementDelete }

// QueryResult is rendered SQL with its positional parameters.
type QueryResult struct {
	// Shape is the aliased projection of a SELECT, used to materialise rows.
	Shape Field
	// Returning is the generated key column of an INSERT, empty if none.
	Returning string
	SQL       string
	Params    []any
	Kind      StatementKind
}

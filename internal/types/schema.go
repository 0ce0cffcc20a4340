package types

import "fmt"

// IndexDirection describes a simple single-column index.
type IndexDirection int

const (
	IndexNone IndexDirection = iota
	IndexAsc
	IndexDesc
)

// Column describes one schema column.
type Column struct {
	Default       any
	Name          string
	Kind          Kind
	Seed          int64
	Step          int64
	Index         IndexDirection
	Nullable      bool
	PrimaryKey    bool
	AutoIncrement bool
	Unique        bool
}

// Constructor builds a host value from named column values. A nil constructor
// materialises Objects as map[string]any.
type Constructor struct {
	New  func(values map[string]any) (any, error)
	Name string
}

// Schema is the descriptor for one table or view.
type Schema struct {
	Constructor *Constructor
	Name        string
	Columns     []Column
	View        bool
}

// Validate checks the descriptor for ambiguous keys, duplicate or unnamed
// columns and unmapped kinds.
func (s *Schema) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: schema has no name", ErrMissingField)
	}
	if len(s.Columns) == 0 {
		return fmt.Errorf("%w: schema %s has no columns", ErrMissingField, s.Name)
	}

	seen := make(map[string]bool, len(s.Columns))
	var keys, increments int
	for _, col := range s.Columns {
		if col.Name == "" {
			return fmt.Errorf("%w: schema %s has an unnamed column", ErrMissingField, s.Name)
		}
		if seen[col.Name] {
			return fmt.Errorf("%w: schema %s declares column %s twice", ErrAmbiguousSchema, s.Name, col.Name)
		}
		seen[col.Name] = true
		if !col.Kind.IsScalar() || col.Kind == KindNull || col.Kind == KindAny {
			return fmt.Errorf("%w: column %s.%s has kind %s", ErrTypeMapping, s.Name, col.Name, col.Kind)
		}
		if col.PrimaryKey {
			keys++
		}
		if col.AutoIncrement {
			increments++
			if !col.Kind.IsNumeric() {
				return fmt.Errorf("%w: autoincrement column %s.%s is %s", ErrTypeMapping, s.Name, col.Name, col.Kind)
			}
		}
	}
	if keys > 1 {
		return fmt.Errorf("%w: schema %s declares %d primary keys", ErrAmbiguousSchema, s.Name, keys)
	}
	if increments > 1 {
		return fmt.Errorf("%w: schema %s declares %d autoincrement columns", ErrAmbiguousSchema, s.Name, increments)
	}
	return nil
}

// Column returns the named column descriptor.
func (s *Schema) Column(name string) (*Column, bool) {
	for i := range s.Columns {
		if s.Columns[i].Name == name {
			return &s.Columns[i], true
		}
	}
	return nil, false
}

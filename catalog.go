package composql

import (
	"fmt"
	"sort"

	"github.com/zoobzio/composql/internal/types"
	"github.com/zoobzio/dbml"
)

// Catalog holds validated schemas by table name.
type Catalog struct {
	project *dbml.Project
	schemas map[string]*Schema
	names   []string
}

type columnRef struct {
	table, column string
}

type catalogConfig struct {
	keys         map[string]string
	increments   map[string]string
	nullable     map[columnRef]bool
	unique       map[columnRef]bool
	views        map[string]bool
	constructors map[string]*Constructor
}

// CatalogOption adds the key and constraint information DBML column types
// do not carry.
type CatalogOption func(*catalogConfig)

// WithPrimaryKey marks column as the primary key of table.
func WithPrimaryKey(table, column string) CatalogOption {
	return func(c *catalogConfig) { c.keys[table] = column }
}

// WithAutoIncrement marks column of table as generated by the database.
func WithAutoIncrement(table, column string) CatalogOption {
	return func(c *catalogConfig) { c.increments[table] = column }
}

// WithNullable marks columns of table as accepting NULL.
func WithNullable(table string, columns ...string) CatalogOption {
	return func(c *catalogConfig) {
		for _, col := range columns {
			c.nullable[columnRef{table, col}] = true
		}
	}
}

// WithUnique marks columns of table as unique.
func WithUnique(table string, columns ...string) CatalogOption {
	return func(c *catalogConfig) {
		for _, col := range columns {
			c.unique[columnRef{table, col}] = true
		}
	}
}

// WithView marks table as a read-only view.
func WithView(table string) CatalogOption {
	return func(c *catalogConfig) { c.views[table] = true }
}

// WithConstructor materialises rows of table through ctor.
func WithConstructor(table string, ctor *Constructor) CatalogOption {
	return func(c *catalogConfig) { c.constructors[table] = ctor }
}

// NewFromDBML creates a catalog from the tables of a DBML project.
// Column types are mapped with ParseKind.
func NewFromDBML(project *dbml.Project, opts ...CatalogOption) (*Catalog, error) {
	if project == nil {
		return nil, fmt.Errorf("%w: project cannot be nil", types.ErrMissingField)
	}
	cfg := &catalogConfig{
		keys:         make(map[string]string),
		increments:   make(map[string]string),
		nullable:     make(map[columnRef]bool),
		unique:       make(map[columnRef]bool),
		views:        make(map[string]bool),
		constructors: make(map[string]*Constructor),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	schemas := make([]*Schema, 0, len(project.Tables))
	declared := make(map[columnRef]bool)
	for _, table := range project.Tables {
		s := &Schema{
			Name:        table.Name,
			View:        cfg.views[table.Name],
			Constructor: cfg.constructors[table.Name],
		}
		for _, col := range table.Columns {
			kind, err := types.ParseKind(col.Type)
			if err != nil {
				return nil, fmt.Errorf("column %s.%s: %w", table.Name, col.Name, err)
			}
			ref := columnRef{table.Name, col.Name}
			declared[ref] = true
			s.Columns = append(s.Columns, Column{
				Name:          col.Name,
				Kind:          kind,
				PrimaryKey:    cfg.keys[table.Name] == col.Name,
				AutoIncrement: cfg.increments[table.Name] == col.Name,
				Nullable:      cfg.nullable[ref],
				Unique:        cfg.unique[ref],
				Seed:          1,
				Step:          1,
			})
		}
		schemas = append(schemas, s)
	}

	if err := cfg.check(declared); err != nil {
		return nil, err
	}
	c, err := NewCatalog(schemas...)
	if err != nil {
		return nil, err
	}
	c.project = project
	return c, nil
}

// check rejects options naming columns absent from the project.
func (cfg *catalogConfig) check(declared map[columnRef]bool) error {
	var refs []columnRef
	for table, col := range cfg.keys {
		refs = append(refs, columnRef{table, col})
	}
	for table, col := range cfg.increments {
		refs = append(refs, columnRef{table, col})
	}
	for ref := range cfg.nullable {
		refs = append(refs, ref)
	}
	for ref := range cfg.unique {
		refs = append(refs, ref)
	}
	for _, ref := range refs {
		if !declared[ref] {
			return fmt.Errorf("%w: option names unknown column %s.%s", types.ErrMissingField, ref.table, ref.column)
		}
	}
	return nil
}

// NewCatalog creates a catalog from schema descriptors, validating each.
func NewCatalog(schemas ...*Schema) (*Catalog, error) {
	c := &Catalog{schemas: make(map[string]*Schema, len(schemas))}
	for _, s := range schemas {
		if s == nil {
			return nil, fmt.Errorf("%w: nil schema", types.ErrMissingField)
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.schemas[s.Name]; dup {
			return nil, fmt.Errorf("%w: table %s declared twice", types.ErrAmbiguousSchema, s.Name)
		}
		c.schemas[s.Name] = s
		c.names = append(c.names, s.Name)
	}
	sort.Strings(c.names)
	return c, nil
}

// Project returns the DBML project the catalog was built from, if any.
func (c *Catalog) Project() *dbml.Project {
	return c.project
}

// Tables returns the table names in sorted order.
func (c *Catalog) Tables() []string {
	return append([]string(nil), c.names...)
}

// TrySchema returns the named schema, returning an error if it is unknown.
func (c *Catalog) TrySchema(name string) (*Schema, error) {
	s, ok := c.schemas[name]
	if !ok {
		return nil, fmt.Errorf("%w: table '%s' not found in catalog", types.ErrMissingField, name)
	}
	return s, nil
}

// Schema returns the named schema. It panics if the table is unknown.
func (c *Catalog) Schema(name string) *Schema {
	s, err := c.TrySchema(name)
	if err != nil {
		panic(err)
	}
	return s
}

// TryFrom starts a query over the named table.
func (c *Catalog) TryFrom(name string) (*Query, error) {
	s, err := c.TrySchema(name)
	if err != nil {
		return nil, err
	}
	return From(s), nil
}

// From starts a query over the named table. It panics if the table is unknown.
func (c *Catalog) From(name string) *Query {
	q, err := c.TryFrom(name)
	if err != nil {
		panic(err)
	}
	return q
}

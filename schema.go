package composql

import (
	"errors"
	"fmt"
	"io"

	"github.com/zoobzio/composql/internal/types"
	"gopkg.in/yaml.v3"
)

type schemaDocument struct {
	Tables []tableDocument `yaml:"tables"`
}

type tableDocument struct {
	Name    string           `yaml:"name"`
	View    bool             `yaml:"view"`
	Columns []columnDocument `yaml:"columns"`
}

type columnDocument struct {
	Default       any    `yaml:"default"`
	Seed          *int64 `yaml:"seed"`
	Step          *int64 `yaml:"step"`
	Name          string `yaml:"name"`
	Type          string `yaml:"type"`
	Index         string `yaml:"index"`
	Nullable      bool   `yaml:"nullable"`
	PrimaryKey    bool   `yaml:"primary_key"`
	AutoIncrement bool   `yaml:"auto_increment"`
	Unique        bool   `yaml:"unique"`
}

// LoadSchemas decodes schema descriptors from YAML:
//
//	tables:
//	  - name: users
//	    columns:
//	      - {name: Id, type: bigint, primary_key: true, auto_increment: true}
//	      - {name: Name, type: varchar(64)}
//	      - {name: Age, type: int, nullable: true, index: asc}
//
// Each schema is validated before it is returned.
func LoadSchemas(r io.Reader) ([]*Schema, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc schemaDocument
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode schemas: %w", err)
	}

	schemas := make([]*Schema, 0, len(doc.Tables))
	for _, t := range doc.Tables {
		s := &Schema{Name: t.Name, View: t.View}
		for _, c := range t.Columns {
			col, err := c.column()
			if err != nil {
				return nil, fmt.Errorf("column %s.%s: %w", t.Name, c.Name, err)
			}
			s.Columns = append(s.Columns, col)
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		schemas = append(schemas, s)
	}
	return schemas, nil
}

func (c columnDocument) column() (Column, error) {
	kind, err := types.ParseKind(c.Type)
	if err != nil {
		return Column{}, err
	}
	col := Column{
		Name:          c.Name,
		Kind:          kind,
		Nullable:      c.Nullable,
		PrimaryKey:    c.PrimaryKey,
		AutoIncrement: c.AutoIncrement,
		Unique:        c.Unique,
		Default:       c.Default,
		Seed:          1,
		Step:          1,
	}
	if c.Seed != nil {
		col.Seed = *c.Seed
	}
	if c.Step != nil {
		col.Step = *c.Step
	}
	switch c.Index {
	case "":
	case "asc":
		col.Index = types.IndexAsc
	case "desc":
		col.Index = types.IndexDesc
	default:
		return Column{}, fmt.Errorf("%w: index direction %q", types.ErrMalformedArgument, c.Index)
	}
	return col, nil
}

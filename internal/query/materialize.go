package query

import (
	"fmt"

	"github.com/zoobzio/composql/internal/types"
)

// Materialize rebuilds a value of shape from one result row keyed by column
// alias. Objects are built by their constructor, or as maps when they have
// none; Collections become slices.
func Materialize(shape types.Field, row map[string]any) (any, error) {
	switch v := shape.(type) {
	case *types.Object:
		values := make(map[string]any, len(v.Fields))
		for i, f := range v.Fields {
			val, err := Materialize(f, row)
			if err != nil {
				return nil, err
			}
			values[v.Names[i]] = val
		}
		if v.Constructor != nil && v.Constructor.New != nil {
			out, err := v.Constructor.New(values)
			if err != nil {
				return nil, fmt.Errorf("constructing %s: %w", v.Constructor.Name, err)
			}
			return out, nil
		}
		return values, nil
	case *types.Collection:
		items := make([]any, len(v.Fields))
		for i, f := range v.Fields {
			val, err := Materialize(f, row)
			if err != nil {
				return nil, err
			}
			items[i] = val
		}
		if v.Build != nil {
			return v.Build(items)
		}
		return items, nil
	case types.Leaf:
		alias := v.Alias()
		if alias == "" {
			return nil, fmt.Errorf("%w: unaliased %s in result shape", types.ErrMissingField, v.FieldKind())
		}
		val, ok := row[alias]
		if !ok {
			return nil, fmt.Errorf("%w: result row has no column %s", types.ErrMissingField, alias)
		}
		return val, nil
	}
	return nil, fmt.Errorf("%w: %T in result shape", types.ErrUnsupportedExpression, shape)
}

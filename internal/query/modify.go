package query

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/zoobzio/composql/expr"
	"github.com/zoobzio/composql/internal/types"
)

// Statement returns the SELECT reading q's projection. Queries without a
// projection select every column of their root.
func (q *Query) Statement() (*types.SelectStatement, error) {
	if q.err != nil {
		return nil, q.err
	}
	return &types.SelectStatement{Source: project(q.source)}, nil
}

// modifiable returns the table q filters, rejecting anything a DELETE or
// UPDATE cannot express.
func (q *Query) modifiable() (*types.TableSource, error) {
	if q.err != nil {
		return nil, q.err
	}
	t, ok := q.source.(*types.TableSource)
	if !ok {
		return nil, fmt.Errorf("%w: only table queries can be modified, got %s", types.ErrMalformedArgument, q.source.SourceKind())
	}
	if t.IsView() {
		return nil, fmt.Errorf("%w: %s is a view", types.ErrMalformedArgument, t.Schema.Name)
	}
	if t.Having() != nil || len(t.Groups()) > 0 || len(t.Sorts()) > 0 || !t.Limit().IsZero() || t.Distinct() {
		return nil, fmt.Errorf("%w: modified queries may only filter", types.ErrMalformedArgument)
	}
	return t, nil
}

// Delete returns the DELETE removing the rows q filters.
func (q *Query) Delete() (*types.DeleteStatement, error) {
	t, err := q.modifiable()
	if err != nil {
		return nil, err
	}
	return &types.DeleteStatement{Table: t}, nil
}

// Update returns the UPDATE setting the columns l names on the rows q
// filters. l maps a row to an object whose member names are column names.
func (q *Query) Update(l *expr.LambdaExpr) (*types.UpdateStatement, error) {
	t, err := q.modifiable()
	if err != nil {
		return nil, err
	}
	f, err := newTranslator(q.next).lambda(&Query{source: types.SetSelect(t, nil)}, l, false)
	if err != nil {
		return nil, err
	}
	obj, ok := f.(*types.Object)
	if !ok {
		return nil, fmt.Errorf("%w: update must produce an object of columns", types.ErrMalformedArgument)
	}
	assignments := make([]types.Assignment, 0, len(obj.Fields))
	for i, name := range obj.Names {
		col, ok := t.Column(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no column %s", types.ErrMissingField, t.Schema.Name, name)
		}
		if col.Column.AutoIncrement {
			return nil, fmt.Errorf("%w: cannot assign autoincrement column %s", types.ErrMalformedArgument, name)
		}
		if types.IsShape(obj.Fields[i]) {
			return nil, fmt.Errorf("%w: column %s assigned a multi-column value", types.ErrMalformedArgument, name)
		}
		if k := obj.Fields[i].Type(); !types.Compatible(k, col.Column.Kind) {
			return nil, fmt.Errorf("%w: column %s is %s, got %s", types.ErrTypeMismatch, name, col.Column.Kind, k)
		}
		assignments = append(assignments, types.Assignment{Column: col, Value: obj.Fields[i]})
	}
	if len(assignments) == 0 {
		return nil, fmt.Errorf("%w: update of %s sets no column", types.ErrMissingField, t.Schema.Name)
	}
	return &types.UpdateStatement{Table: t, Assignments: assignments}, nil
}

// Insert returns the INSERT of one row of schema. Autoincrement columns are
// generated by the database and returned; absent columns take their default.
func Insert(schema *types.Schema, values map[string]any) (*types.InsertStatement, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if schema.View {
		return nil, fmt.Errorf("%w: %s is a view", types.ErrMalformedArgument, schema.Name)
	}
	t := types.NewTable(schema, types.NewSourceRef(0))
	if err := unknownColumns(schema, values); err != nil {
		return nil, err
	}
	var assignments []types.Assignment
	for _, col := range t.Columns() {
		if col.Column.AutoIncrement {
			continue
		}
		v, ok := values[col.Column.Name]
		if !ok {
			continue
		}
		c, err := columnValue(col, v)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, types.Assignment{Column: col, Value: c})
	}
	if len(assignments) == 0 {
		return nil, fmt.Errorf("%w: insert into %s has no insertable column", types.ErrMissingField, schema.Name)
	}
	return &types.InsertStatement{Table: t, Assignments: assignments, Returning: t.Increment}, nil
}

// UpdateByKey returns the UPDATE setting values on the row whose primary key
// equals key.
func UpdateByKey(schema *types.Schema, key any, values map[string]any) (*types.UpdateStatement, error) {
	t, err := keyed(schema, key)
	if err != nil {
		return nil, err
	}
	if err := unknownColumns(schema, values); err != nil {
		return nil, err
	}
	var assignments []types.Assignment
	for _, col := range t.Columns() {
		if col == t.Key || col.Column.AutoIncrement {
			continue
		}
		v, ok := values[col.Column.Name]
		if !ok {
			continue
		}
		c, err := columnValue(col, v)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, types.Assignment{Column: col, Value: c})
	}
	if len(assignments) == 0 {
		return nil, fmt.Errorf("%w: update of %s sets no column", types.ErrMissingField, schema.Name)
	}
	return &types.UpdateStatement{Table: t, Assignments: assignments}, nil
}

// DeleteByKey returns the DELETE of the row whose primary key equals key.
func DeleteByKey(schema *types.Schema, key any) (*types.DeleteStatement, error) {
	t, err := keyed(schema, key)
	if err != nil {
		return nil, err
	}
	return &types.DeleteStatement{Table: t}, nil
}

func keyed(schema *types.Schema, key any) (*types.TableSource, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if schema.View {
		return nil, fmt.Errorf("%w: %s is a view", types.ErrMalformedArgument, schema.Name)
	}
	t := types.NewTable(schema, types.NewSourceRef(0))
	if t.Key == nil {
		return nil, fmt.Errorf("%w: %s has no primary key", types.ErrMissingField, schema.Name)
	}
	c, err := columnValue(t.Key, key)
	if err != nil {
		return nil, err
	}
	cond, err := types.NewBinary(types.EQ, t.Key, c)
	if err != nil {
		return nil, err
	}
	src, err := types.AddWhere(t, cond)
	if err != nil {
		return nil, err
	}
	return src.(*types.TableSource), nil
}

func unknownColumns(schema *types.Schema, values map[string]any) error {
	var unknown []string
	for name := range values {
		if _, ok := schema.Column(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: %s has no column %v", types.ErrMissingField, schema.Name, unknown)
	}
	return nil
}

// columnValue types v as a constant for col. Nulls take the column's kind.
func columnValue(col *types.Original, v any) (types.Field, error) {
	if s, ok := v.(string); ok && col.Column.Kind == types.KindUUID {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("%w: column %s: %w", types.ErrTypeMismatch, col.Column.Name, err)
		}
		v = id
	}
	c, err := types.NewConstant(v)
	if err != nil {
		return nil, err
	}
	if c.Type() == types.KindNull {
		if !col.Column.Nullable {
			return nil, fmt.Errorf("%w: column %s is not nullable", types.ErrTypeMismatch, col.Column.Name)
		}
		return types.NewTypedConstant(nil, col.Column.Kind), nil
	}
	if !types.Compatible(c.Type(), col.Column.Kind) {
		return nil, fmt.Errorf("%w: column %s is %s, got %s", types.ErrTypeMismatch, col.Column.Name, col.Column.Kind, c.Type())
	}
	return c, nil
}

package query

import (
	"fmt"

	"github.com/zoobzio/composql/expr"
	"github.com/zoobzio/composql/internal/graph"
	"github.com/zoobzio/composql/internal/types"
)

func (tr *translator) selectOp(q *Query, l *expr.LambdaExpr) (*Query, error) {
	if q.source.Distinct() {
		q = tr.wrapQuery(q)
	}
	f, err := tr.lambda(q, l, false)
	if err != nil {
		return nil, err
	}
	if c, ok := f.(*types.Constant); ok && c.Type() == types.KindQuery {
		return nil, fmt.Errorf("%w: cannot project a query value", types.ErrUnsupportedExpression)
	}
	return &Query{source: types.SetSelect(q.source, graph.AliasShape(f))}, nil
}

// aggregated reports whether src projects aggregates without grouping, so
// that it yields a single summary row.
func aggregated(src types.DataSource) bool {
	return len(src.Groups()) == 0 && src.Select() != nil && graph.ContainsAggregate(src.Select())
}

// reshaped reports whether src's rows are already limited, deduplicated or
// summarised, so further filtering or ordering must apply to a derived table.
func reshaped(src types.DataSource) bool {
	return !src.Limit().IsZero() || src.Distinct() || aggregated(src)
}

func (tr *translator) where(q *Query, l *expr.LambdaExpr) (*Query, error) {
	if reshaped(q.source) {
		q = tr.wrapQuery(q)
	}
	cond, err := tr.lambda(q, l, false)
	if err != nil {
		return nil, err
	}
	var src types.DataSource
	if len(q.source.Groups()) > 0 {
		src, err = types.AddHaving(q.source, cond)
	} else {
		src, err = types.AddWhere(q.source, cond)
	}
	if err != nil {
		return nil, err
	}
	return keep(q, src), nil
}

func (tr *translator) orderBy(q *Query, l *expr.LambdaExpr, desc, replace bool) (*Query, error) {
	if reshaped(q.source) {
		q = tr.wrapQuery(q)
	}
	key, err := tr.lambda(q, l, false)
	if err != nil {
		return nil, err
	}
	if types.IsShape(key) {
		return nil, fmt.Errorf("%w: ordering key must be a single value", types.ErrMalformedArgument)
	}
	src := q.source
	if replace {
		src = types.ClearSort(src)
	}
	return keep(q, types.AddSort(src, types.SortItem{Field: key, Descending: desc})), nil
}

func (tr *translator) groupBy(q *Query, l *expr.LambdaExpr) (*Query, error) {
	if reshaped(q.source) || len(q.source.Groups()) > 0 {
		q = tr.wrapQuery(q)
	}
	key, err := tr.lambda(q, l, false)
	if err != nil {
		return nil, err
	}
	keys := []types.Field{key}
	if types.IsShape(key) {
		keys = graph.Leaves(key)
	}
	for _, k := range keys {
		if graph.ContainsAggregate(k) {
			return nil, fmt.Errorf("%w: grouping key contains an aggregate", types.ErrMalformedArgument)
		}
	}
	return keep(q, types.AddGroup(q.source, keys...)), nil
}

func (tr *translator) limit(q *Query, l types.Limit) *Query {
	if aggregated(q.source) {
		q = tr.wrapQuery(q)
	}
	return keep(q, types.AddLimit(q.source, l))
}

func (tr *translator) distinct(q *Query) *Query {
	if !q.source.Limit().IsZero() {
		q = tr.wrapQuery(q)
	}
	return keep(q, types.SetDistinct(q.source, true))
}

func (tr *translator) union(q *Query, kind types.UnionKind, other *Query) (*Query, error) {
	other, err := tr.embed(other)
	if err != nil {
		return nil, err
	}
	left, right := tr.operand(q.source), tr.operand(other.source)
	ll, rl := graph.Leaves(left.Select()), graph.Leaves(right.Select())
	if len(ll) != len(rl) {
		return nil, fmt.Errorf("%w: %s of %d and %d columns", types.ErrMalformedArgument, kind, len(ll), len(rl))
	}
	for i := range ll {
		if !types.Compatible(ll[i].Type(), rl[i].Type()) {
			return nil, fmt.Errorf("%w: %s column %d is %s and %s", types.ErrTypeMismatch, kind, i, ll[i].Type(), rl[i].Type())
		}
	}
	ref := tr.alloc()
	return &Query{source: types.NewUnion(ref, kind, left, right, graph.Rebind(left.Select(), ref))}, nil
}

// operand prepares src as one operand of a set operation. Operands cannot
// carry their own ordering or limit.
func (tr *translator) operand(src types.DataSource) types.DataSource {
	if len(src.Sorts()) > 0 || !src.Limit().IsZero() {
		src = tr.wrap(src)
	}
	return project(src)
}

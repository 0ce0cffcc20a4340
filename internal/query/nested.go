package query

import (
	"fmt"

	"github.com/zoobzio/composql/expr"
	"github.com/zoobzio/composql/internal/graph"
	"github.com/zoobzio/composql/internal/logging"
	"github.com/zoobzio/composql/internal/types"
)

// embed returns q deep-copied into the translation's alias space. Sibling
// uses of one query share a copy; a use nested inside a lambda bound to that
// copy gets a fresh one, so the inner scan does not shadow the outer row.
// Values produced by nested operations already live in the space and are
// returned as they are.
func (tr *translator) embed(q *Query) (*Query, error) {
	if q == nil {
		return nil, fmt.Errorf("%w: nil query", types.ErrMalformedArgument)
	}
	if q.err != nil {
		return nil, q.err
	}
	if tr.embedded[q] {
		return q, nil
	}
	if cp, ok := tr.copies[q]; ok && !tr.inScope(cp) {
		return cp, nil
	}
	cp := tr.copyIn(q)
	tr.copies[q] = cp
	return cp, nil
}

// copyIn deep-copies q with handles allocated from the translation's counter.
func (tr *translator) copyIn(q *Query) *Query {
	c := graph.NewCopier(tr.next)
	cp := &Query{source: c.Source(q.source)}
	for _, s := range q.sides {
		cp.sides = append(cp.sides, side{source: c.Source(s.source), shape: c.Field(s.shape), name: s.name})
	}
	tr.next = c.Next()
	cp.next = tr.next
	tr.embedded[cp] = true
	logging.Logger().Debug("embedded nested query",
		"alias", cp.source.Ref().Alias(),
		"copied", c.Copied(),
	)
	return cp
}

// inScope reports whether a lambda still being translated binds a source of q.
func (tr *translator) inScope(q *Query) bool {
	for _, f := range tr.frames {
		for _, b := range f.params {
			if b.source != nil && q.owns(b.source.Ref()) {
				return true
			}
		}
	}
	return false
}

// sequence resolves the receiver of a query operation to an embedded query.
func (tr *translator) sequence(e expr.Expr) (*Query, error) {
	switch v := e.(type) {
	case *expr.ConstantExpr:
		if q, ok := v.Value.(*Query); ok {
			return tr.embed(q)
		}
	case *expr.QueryCallExpr:
		if !v.Op.IsTerminal() {
			return tr.nested(v)
		}
	case *expr.ParameterExpr, *expr.MemberExpr:
		f, err := tr.translate(e)
		if err != nil {
			return nil, err
		}
		if c, ok := f.(*types.Constant); ok {
			if q, ok := c.Value.(*Query); ok {
				return tr.embed(q)
			}
		}
	}
	return nil, fmt.Errorf("%w: %T is not a query value", types.ErrUnsupportedExpression, e)
}

func lambdaArg(v *expr.QueryCallExpr, i int) (*expr.LambdaExpr, error) {
	if i >= len(v.Args) {
		return nil, fmt.Errorf("%w: %s needs a lambda", types.ErrMalformedArgument, v.Op)
	}
	l, ok := v.Args[i].(*expr.LambdaExpr)
	if !ok {
		return nil, fmt.Errorf("%w: %s argument %d is %T, not a lambda", types.ErrMalformedArgument, v.Op, i, v.Args[i])
	}
	return l, nil
}

// optionalLambda returns the lambda argument of v, or nil when v has none.
func optionalLambda(v *expr.QueryCallExpr) (*expr.LambdaExpr, error) {
	if len(v.Args) == 0 {
		return nil, nil
	}
	if len(v.Args) > 1 {
		return nil, fmt.Errorf("%w: %s takes at most one argument", types.ErrMalformedArgument, v.Op)
	}
	return lambdaArg(v, 0)
}

// constInt folds a paging bound. Bounds must be known at build time.
func (tr *translator) constInt(e expr.Expr) (int, error) {
	f, err := tr.translate(e)
	if err != nil {
		return 0, err
	}
	c, ok := f.(*types.Constant)
	if !ok || c.Type() != types.KindInt {
		return 0, fmt.Errorf("%w: paging bound must be a constant integer", types.ErrMalformedArgument)
	}
	switch n := c.Value.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case int32:
		return int(n), nil
	}
	return 0, fmt.Errorf("%w: paging bound of type %T", types.ErrMalformedArgument, c.Value)
}

// nested applies a non-terminal operation to a nested query value.
func (tr *translator) nested(v *expr.QueryCallExpr) (*Query, error) {
	q, err := tr.sequence(v.Receiver)
	if err != nil {
		return nil, err
	}
	out, err := tr.nestedOp(q, v)
	if err != nil {
		return nil, err
	}
	out.next = tr.next
	tr.embedded[out] = true
	return out, nil
}

func (tr *translator) nestedOp(q *Query, v *expr.QueryCallExpr) (*Query, error) {
	switch v.Op {
	case expr.OpSelect, expr.OpWhere, expr.OpOrderBy, expr.OpOrderByDescending,
		expr.OpThenBy, expr.OpThenByDescending, expr.OpGroupBy:
		l, err := lambdaArg(v, 0)
		if err != nil {
			return nil, err
		}
		switch v.Op {
		case expr.OpSelect:
			return tr.selectOp(q, l)
		case expr.OpWhere:
			return tr.where(q, l)
		case expr.OpGroupBy:
			return tr.groupBy(q, l)
		}
		desc := v.Op == expr.OpOrderByDescending || v.Op == expr.OpThenByDescending
		replace := v.Op == expr.OpOrderBy || v.Op == expr.OpOrderByDescending
		return tr.orderBy(q, l, desc, replace)
	case expr.OpJoin, expr.OpLeftJoin:
		if len(v.Args) != 2 {
			return nil, fmt.Errorf("%w: %s takes a query and a lambda", types.ErrMalformedArgument, v.Op)
		}
		other, err := tr.sequence(v.Args[0])
		if err != nil {
			return nil, err
		}
		if shared(q, other) {
			other = tr.copyIn(other)
		}
		on, err := lambdaArg(v, 1)
		if err != nil {
			return nil, err
		}
		kind := types.JoinInner
		if v.Op == expr.OpLeftJoin {
			kind = types.JoinLeft
		}
		return tr.join(q, kind, other, on)
	case expr.OpSkip, expr.OpTake:
		if len(v.Args) != 1 {
			return nil, fmt.Errorf("%w: %s takes one bound", types.ErrMalformedArgument, v.Op)
		}
		n, err := tr.constInt(v.Args[0])
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: negative %s %d", types.ErrMalformedArgument, v.Op, n)
		}
		if v.Op == expr.OpSkip {
			return tr.limit(q, types.Offset(n)), nil
		}
		return tr.limit(q, types.Range(0, n)), nil
	case expr.OpDistinct:
		return tr.distinct(q), nil
	}
	return nil, fmt.Errorf("%w: query operation %s", types.ErrUnsupportedExpression, v.Op)
}

// queryCall translates an operation on a nested query value. Non-terminal
// operations yield the composed query as a constant; terminal ones yield
// subqueries over it.
func (tr *translator) queryCall(v *expr.QueryCallExpr) (types.Field, error) {
	if !v.Op.IsTerminal() {
		q, err := tr.nested(v)
		if err != nil {
			return nil, err
		}
		return types.NewConstant(q)
	}
	switch v.Op {
	case expr.OpContains:
		return tr.contains(v)
	case expr.OpFirst, expr.OpLast:
		return tr.element(v)
	case expr.OpCount:
		return tr.count(v)
	case expr.OpAny:
		return tr.exists(v)
	case expr.OpSum, expr.OpMin, expr.OpMax, expr.OpAverage:
		return tr.aggregate(v)
	}
	return nil, fmt.Errorf("%w: query operation %s", types.ErrUnsupportedExpression, v.Op)
}

// isList reports whether e is a literal list rather than a query.
func isList(e expr.Expr) bool {
	switch v := e.(type) {
	case *expr.NewArrayExpr:
		return true
	case *expr.ConstantExpr:
		_, isQuery := v.Value.(*Query)
		return !isQuery
	}
	return false
}

func (tr *translator) contains(v *expr.QueryCallExpr) (types.Field, error) {
	if len(v.Args) != 1 {
		return nil, fmt.Errorf("%w: Contains takes one item", types.ErrMalformedArgument)
	}
	if isList(v.Receiver) {
		set, err := tr.translate(v.Receiver)
		if err != nil {
			return nil, err
		}
		item, err := tr.translate(v.Args[0])
		if err != nil {
			return nil, err
		}
		return types.NewBinary(types.IN, item, set)
	}
	q, err := tr.sequence(v.Receiver)
	if err != nil {
		return nil, err
	}
	shape := q.source.Shape()
	if types.IsShape(shape) {
		return nil, fmt.Errorf("%w: Contains needs a single-column query", types.ErrMalformedArgument)
	}
	// The item lives in the enclosing query, so it is referenced qualified.
	pop := tr.push(&frame{qualified: true})
	item, err := tr.translate(v.Args[0])
	pop()
	if err != nil {
		return nil, err
	}
	return types.NewBinary(types.IN, item, tr.subs.Convert(shape, q.source))
}

// filtered applies the optional predicate of a terminal operation.
func (tr *translator) filtered(v *expr.QueryCallExpr) (*Query, error) {
	q, err := tr.sequence(v.Receiver)
	if err != nil {
		return nil, err
	}
	l, err := optionalLambda(v)
	if err != nil || l == nil {
		return q, err
	}
	return tr.where(q, l)
}

func (tr *translator) element(v *expr.QueryCallExpr) (types.Field, error) {
	q, err := tr.filtered(v)
	if err != nil {
		return nil, err
	}
	src := q.source
	if v.Op == expr.OpLast {
		sorts := src.Sorts()
		if len(sorts) == 0 {
			return nil, fmt.Errorf("%w: Last needs an ordered query", types.ErrMalformedArgument)
		}
		if !src.Limit().IsZero() {
			return nil, fmt.Errorf("%w: Last over a limited query", types.ErrMalformedArgument)
		}
		reversed := make([]types.SortItem, len(sorts))
		for i, s := range sorts {
			reversed[i] = types.SortItem{Field: s.Field, Descending: !s.Descending}
		}
		src = types.SetSorts(src, reversed)
	}
	src = types.AddLimit(src, types.Range(0, 1))
	return tr.subs.Convert(src.Shape(), src), nil
}

// summarised returns the source an aggregate runs over, wrapping it when its
// rows are shaped by a limit, distinct or grouping.
func (tr *translator) summarised(q *Query) *Query {
	src := q.source
	if !src.Limit().IsZero() || src.Distinct() || len(src.Groups()) > 0 {
		return tr.wrapQuery(q)
	}
	return q
}

func (tr *translator) count(v *expr.QueryCallExpr) (types.Field, error) {
	q, err := tr.filtered(v)
	if err != nil {
		return nil, err
	}
	q = tr.summarised(q)
	return types.NewSubquery(types.NewMethod(expr.Count.Callee(), types.KindInt, nil, nil), q.source), nil
}

func (tr *translator) exists(v *expr.QueryCallExpr) (types.Field, error) {
	q, err := tr.filtered(v)
	if err != nil {
		return nil, err
	}
	one := types.NewTypedConstant(1, types.KindInt)
	return types.NewUnary(types.Exists, types.NewSubquery(one, q.source), types.KindInvalid)
}

var aggregates = map[expr.QueryOp]*expr.Method{
	expr.OpSum:     expr.Sum,
	expr.OpMin:     expr.Min,
	expr.OpMax:     expr.Max,
	expr.OpAverage: expr.Avg,
}

func (tr *translator) aggregate(v *expr.QueryCallExpr) (types.Field, error) {
	q, err := tr.sequence(v.Receiver)
	if err != nil {
		return nil, err
	}
	l, err := optionalLambda(v)
	if err != nil {
		return nil, err
	}
	q = tr.summarised(q)
	value := q.source.Shape()
	if l != nil {
		if value, err = tr.lambda(q, l, false); err != nil {
			return nil, err
		}
	}
	if types.IsShape(value) {
		return nil, fmt.Errorf("%w: %s needs a single-column value", types.ErrMalformedArgument, v.Op)
	}
	m := aggregates[v.Op]
	if v.Op != expr.OpMin && v.Op != expr.OpMax && !value.Type().IsNumeric() && value.Type() != types.KindAny {
		return nil, fmt.Errorf("%w: %s of %s", types.ErrTypeMismatch, v.Op, value.Type())
	}
	kind := m.ResultKind(types.KindInvalid, []types.Kind{value.Type()})
	return types.NewSubquery(types.NewMethod(m.Callee(), kind, nil, []types.Field{value}), q.source), nil
}

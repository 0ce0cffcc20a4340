package query

import (
	"fmt"

	"github.com/zoobzio/composql/expr"
	"github.com/zoobzio/composql/internal/graph"
	"github.com/zoobzio/composql/internal/logging"
	"github.com/zoobzio/composql/internal/types"
)

// translator carries the state of one chain call: the scope, the alias
// counter of the query's alias space, the nested queries already copied into
// that space and the subquery memo.
type translator struct {
	frames   []*frame
	copies   map[*Query]*Query
	embedded map[*Query]bool
	subs     *graph.Subqueries
	next     int
}

func newTranslator(next int) *translator {
	return &translator{
		copies:   make(map[*Query]*Query),
		embedded: make(map[*Query]bool),
		subs:     graph.NewSubqueries(),
		next:     next,
	}
}

func (tr *translator) alloc() *types.SourceRef {
	ref := types.NewSourceRef(tr.next)
	tr.next++
	return ref
}

// lambda translates the body of l with its parameters bound to q.
func (tr *translator) lambda(q *Query, l *expr.LambdaExpr, qualified bool) (types.Field, error) {
	if l == nil {
		return nil, fmt.Errorf("%w: missing lambda", types.ErrMalformedArgument)
	}
	f, err := bindQuery(q, l, qualified)
	if err != nil {
		return nil, err
	}
	defer tr.push(f)()
	return tr.translate(l.Body)
}

// foldable reports whether no parameter reachable from e resolves in scope.
func (tr *translator) foldable(e expr.Expr) bool {
	for _, p := range expr.Parameters(e) {
		if tr.bound(p) {
			return false
		}
	}
	return true
}

func (tr *translator) fold(e expr.Expr) (types.Field, bool) {
	if !tr.foldable(e) {
		return nil, false
	}
	v, err := expr.Evaluate(e)
	if err != nil {
		logging.Logger().Debug("constant folding fell back to translation", "expr", fmt.Sprintf("%T", e), "error", err)
		return nil, false
	}
	c, err := types.NewConstant(v)
	if err != nil {
		return nil, false
	}
	return c, true
}

// translate turns a caller expression into a Field bound to the current scope.
func (tr *translator) translate(e expr.Expr) (types.Field, error) {
	switch v := e.(type) {
	case *expr.ConstantExpr:
		return types.NewConstant(v.Value)
	case *expr.ParameterExpr:
		return tr.resolve(v)
	case *expr.QueryCallExpr:
		return tr.queryCall(v)
	case *expr.NewObjectExpr:
		// Constructions keep their shape; constant members fold one by one.
		fields, err := tr.translateAll(v.Values)
		if err != nil {
			return nil, err
		}
		return types.NewObject(v.Constructor, v.Names, fields)
	case *expr.NewArrayExpr:
		fields, err := tr.translateAll(v.Elements)
		if err != nil {
			return nil, err
		}
		return types.NewCollection(fields), nil
	case *expr.LambdaExpr:
		return nil, fmt.Errorf("%w: lambda outside a query operation", types.ErrUnsupportedExpression)
	case nil:
		return nil, fmt.Errorf("%w: nil expression", types.ErrUnsupportedExpression)
	}

	if c, ok := tr.fold(e); ok {
		return c, nil
	}

	switch v := e.(type) {
	case *expr.BinaryExpr:
		return tr.binary(v)
	case *expr.UnaryExpr:
		operand, err := tr.translate(v.Operand)
		if err != nil {
			return nil, err
		}
		return types.NewUnary(v.Op, operand, v.Target)
	case *expr.ConditionalExpr:
		test, err := tr.translate(v.Test)
		if err != nil {
			return nil, err
		}
		ifTrue, err := tr.translate(v.IfTrue)
		if err != nil {
			return nil, err
		}
		ifFalse, err := tr.translate(v.IfFalse)
		if err != nil {
			return nil, err
		}
		return types.NewConditional(test, ifTrue, ifFalse)
	case *expr.SwitchExpr:
		return tr.switchExpr(v)
	case *expr.CallExpr:
		return tr.call(v)
	case *expr.MemberExpr:
		return tr.member(v)
	}
	return nil, fmt.Errorf("%w: %T", types.ErrUnsupportedExpression, e)
}

func (tr *translator) translateAll(es []expr.Expr) ([]types.Field, error) {
	out := make([]types.Field, len(es))
	for i, e := range es {
		f, err := tr.translate(e)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

func (tr *translator) binary(v *expr.BinaryExpr) (types.Field, error) {
	left, err := tr.translate(v.Left)
	if err != nil {
		return nil, err
	}
	right, err := tr.translate(v.Right)
	if err != nil {
		return nil, err
	}
	if types.IsShape(left) || types.IsShape(right) {
		return nil, fmt.Errorf("%w: %s on a multi-column value", types.ErrUnsupportedExpression, v.Op)
	}
	return types.NewBinary(v.Op, left, right)
}

func (tr *translator) switchExpr(v *expr.SwitchExpr) (types.Field, error) {
	value, err := tr.translate(v.Value)
	if err != nil {
		return nil, err
	}
	cases := make([]types.SwitchCase, len(v.Cases))
	for i, c := range v.Cases {
		tests, err := tr.translateAll(c.Tests)
		if err != nil {
			return nil, err
		}
		body, err := tr.translate(c.Body)
		if err != nil {
			return nil, err
		}
		cases[i] = types.SwitchCase{Tests: tests, Body: body}
	}
	var def types.Field
	if v.Default != nil {
		if def, err = tr.translate(v.Default); err != nil {
			return nil, err
		}
	}
	return types.NewSwitch(value, cases, def)
}

// call emits a Method. Calls that could be evaluated locally were folded
// before reaching here.
func (tr *translator) call(v *expr.CallExpr) (types.Field, error) {
	if v.Method == nil {
		return nil, fmt.Errorf("%w: call without a method", types.ErrUnsupportedExpression)
	}
	var recv types.Field
	recvKind := types.KindInvalid
	if v.Receiver != nil {
		r, err := tr.translate(v.Receiver)
		if err != nil {
			return nil, err
		}
		if types.IsShape(r) {
			return nil, fmt.Errorf("%w: %s on a multi-column value", types.ErrUnsupportedExpression, v.Method.Name)
		}
		recv, recvKind = r, r.Type()
	}
	args, err := tr.translateAll(v.Args)
	if err != nil {
		return nil, err
	}
	kinds := make([]types.Kind, len(args))
	for i, a := range args {
		if types.IsShape(a) {
			return nil, fmt.Errorf("%w: multi-column argument to %s", types.ErrUnsupportedExpression, v.Method.Name)
		}
		kinds[i] = a.Type()
	}
	return types.NewMethod(v.Method.Callee(), v.Method.ResultKind(recvKind, kinds), recv, args), nil
}

func (tr *translator) member(v *expr.MemberExpr) (types.Field, error) {
	if v.Receiver == nil {
		return types.NewMember(v.Property.Name, v.Property.Kind, nil), nil
	}
	recv, err := tr.translate(v.Receiver)
	if err != nil {
		return nil, err
	}
	switch r := recv.(type) {
	case *types.Object:
		f, ok := r.Lookup(v.Property.Name)
		if !ok {
			return nil, fmt.Errorf("%w: no member %s", types.ErrMissingField, v.Property.Name)
		}
		return f, nil
	case *types.Collection:
		return nil, fmt.Errorf("%w: member %s of a collection", types.ErrUnsupportedExpression, v.Property.Name)
	case *types.Constant:
		if q, ok := r.Value.(*Query); ok {
			return tr.sideOf(q, v.Property.Name)
		}
		if _, ok := r.Value.(types.Queryable); !ok {
			if val, err := v.Property.Value(r.Value); err == nil {
				return types.NewConstant(val)
			}
		}
	}
	return types.NewMember(v.Property.Name, v.Property.Kind, recv), nil
}

// sideOf reads a named side of a nested join composition as a query value.
func (tr *translator) sideOf(q *Query, name string) (types.Field, error) {
	q, err := tr.embed(q)
	if err != nil {
		return nil, err
	}
	for _, s := range q.sides {
		if s.name == name {
			out := &Query{source: s.source, next: tr.next}
			tr.embedded[out] = true
			return types.NewConstant(out)
		}
	}
	return nil, fmt.Errorf("%w: query has no side %s", types.ErrMissingField, name)
}

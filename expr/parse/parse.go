// Package parse turns lambda source text such as
//
//	u => u.Age > 18 && u.Name.StartsWith("a")
//
// into caller expressions. Identifiers that are not lambda parameters are
// looked up in an Env, which is how query values, constant lists and custom
// methods reach the expression.
package parse

import (
	"errors"
	"fmt"

	"github.com/zoobzio/composql/expr"
	"github.com/zoobzio/composql/internal/types"
)

var (
	// ErrUnknownIdentifier is returned for identifiers bound neither by a lambda nor by the Env.
	ErrUnknownIdentifier = errors.New("unknown identifier")

	// ErrUnknownMethod is returned for calls to methods with no descriptor.
	ErrUnknownMethod = errors.New("unknown method")
)

// Env binds free identifiers. Values may be constants, query values or
// *expr.Method descriptors for free functions.
type Env map[string]any

// Lambda parses src into a lambda expression.
func Lambda(src string, env Env) (*expr.LambdaExpr, error) {
	node, err := parser.ParseString("", src)
	if err != nil {
		return nil, fmt.Errorf("parse lambda: %w", err)
	}
	c := &converter{env: env}
	return c.lambda(node)
}

// MustLambda is like Lambda but panics on error.
func MustLambda(src string, env Env) *expr.LambdaExpr {
	l, err := Lambda(src, env)
	if err != nil {
		panic(err)
	}
	return l
}

type converter struct {
	env    Env
	scopes []map[string]*expr.ParameterExpr
}

func (c *converter) lambda(n *lambdaNode) (*expr.LambdaExpr, error) {
	scope := make(map[string]*expr.ParameterExpr, len(n.Params))
	params := make([]*expr.ParameterExpr, len(n.Params))
	for i, name := range n.Params {
		if _, dup := scope[name]; dup {
			return nil, fmt.Errorf("parse lambda: parameter %s declared twice", name)
		}
		p := expr.Param(name)
		scope[name] = p
		params[i] = p
	}
	c.scopes = append(c.scopes, scope)
	defer func() { c.scopes = c.scopes[:len(c.scopes)-1] }()

	body, err := c.ternary(n.Body)
	if err != nil {
		return nil, err
	}
	return expr.Lambda(body, params...), nil
}

func (c *converter) ternary(n *ternaryNode) (expr.Expr, error) {
	test, err := c.coalesce(n.Cond)
	if err != nil || n.Then == nil {
		return test, err
	}
	ifTrue, err := c.ternary(n.Then)
	if err != nil {
		return nil, err
	}
	ifFalse, err := c.ternary(n.Else)
	if err != nil {
		return nil, err
	}
	return expr.Cond(test, ifTrue, ifFalse), nil
}

func (c *converter) coalesce(n *coalesceNode) (expr.Expr, error) {
	operands := make([]expr.Expr, 0, len(n.Right)+1)
	left, err := c.or(n.Left)
	if err != nil {
		return nil, err
	}
	operands = append(operands, left)
	for _, r := range n.Right {
		e, err := c.or(r)
		if err != nil {
			return nil, err
		}
		operands = append(operands, e)
	}
	// right associative
	out := operands[len(operands)-1]
	for i := len(operands) - 2; i >= 0; i-- {
		out = expr.Coalesce(operands[i], out)
	}
	return out, nil
}

func (c *converter) or(n *orNode) (expr.Expr, error) {
	out, err := c.and(n.Left)
	if err != nil {
		return nil, err
	}
	for _, r := range n.Right {
		right, err := c.and(r)
		if err != nil {
			return nil, err
		}
		out = expr.Or(out, right)
	}
	return out, nil
}

func (c *converter) and(n *andNode) (expr.Expr, error) {
	out, err := c.equality(n.Left)
	if err != nil {
		return nil, err
	}
	for _, r := range n.Right {
		right, err := c.equality(r)
		if err != nil {
			return nil, err
		}
		out = expr.And(out, right)
	}
	return out, nil
}

var binaryOps = map[string]types.Operator{
	"==": types.EQ,
	"!=": types.NE,
	"<":  types.LT,
	"<=": types.LE,
	">":  types.GT,
	">=": types.GE,
	"+":  types.Add,
	"-":  types.Sub,
	"*":  types.Mul,
	"/":  types.Div,
	"%":  types.Mod,
}

func (c *converter) equality(n *equalityNode) (expr.Expr, error) {
	out, err := c.relational(n.Left)
	if err != nil {
		return nil, err
	}
	for _, op := range n.Rest {
		right, err := c.relational(op.Right)
		if err != nil {
			return nil, err
		}
		out = expr.Binary(binaryOps[op.Op], out, right)
	}
	return out, nil
}

func (c *converter) relational(n *relationalNode) (expr.Expr, error) {
	out, err := c.additive(n.Left)
	if err != nil {
		return nil, err
	}
	for _, op := range n.Rest {
		right, err := c.additive(op.Right)
		if err != nil {
			return nil, err
		}
		out = expr.Binary(binaryOps[op.Op], out, right)
	}
	return out, nil
}

func (c *converter) additive(n *additiveNode) (expr.Expr, error) {
	out, err := c.multiplicative(n.Left)
	if err != nil {
		return nil, err
	}
	for _, op := range n.Rest {
		right, err := c.multiplicative(op.Right)
		if err != nil {
			return nil, err
		}
		out = expr.Binary(binaryOps[op.Op], out, right)
	}
	return out, nil
}

func (c *converter) multiplicative(n *multiplicativeNode) (expr.Expr, error) {
	out, err := c.unary(n.Left)
	if err != nil {
		return nil, err
	}
	for _, op := range n.Rest {
		right, err := c.unary(op.Right)
		if err != nil {
			return nil, err
		}
		out = expr.Binary(binaryOps[op.Op], out, right)
	}
	return out, nil
}

func (c *converter) unary(n *unaryNode) (expr.Expr, error) {
	if n.Postfix != nil {
		return c.postfix(n.Postfix)
	}
	operand, err := c.unary(n.Operand)
	if err != nil {
		return nil, err
	}
	if n.Op == "!" {
		return expr.Not(operand), nil
	}
	return expr.Negate(operand), nil
}

func (c *converter) postfix(n *postfixNode) (expr.Expr, error) {
	out, err := c.primary(n.Primary)
	if err != nil {
		return nil, err
	}
	for _, s := range n.Suffix {
		if s.Call == nil {
			out = expr.Member(out, s.Name)
			continue
		}
		args, err := c.args(s.Call)
		if err != nil {
			return nil, err
		}
		if op, ok := expr.LookupQueryOp(s.Name); ok && isSequence(out) {
			out = expr.QueryCall(op, out, args...)
			continue
		}
		m, ok := expr.LookupMethod(s.Name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, s.Name)
		}
		out = expr.Call(m, out, args...)
	}
	return out, nil
}

// isSequence reports whether query operations apply to e: nested query
// values, results of other query operations and constant lists.
func isSequence(e expr.Expr) bool {
	switch v := e.(type) {
	case *expr.QueryCallExpr:
		return true
	case *expr.NewArrayExpr:
		return true
	case *expr.ConstantExpr:
		if _, ok := v.Value.(types.Queryable); ok {
			return true
		}
		k, err := types.TypeOf(v.Value)
		return err == nil && k == types.KindList
	}
	return false
}

func (c *converter) args(n *callArgs) ([]expr.Expr, error) {
	out := make([]expr.Expr, len(n.Args))
	for i, a := range n.Args {
		var err error
		if a.Lambda != nil {
			out[i], err = c.lambda(a.Lambda)
		} else {
			out[i], err = c.ternary(a.Value)
		}
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (c *converter) primary(n *primaryNode) (expr.Expr, error) {
	switch {
	case n.Float != nil:
		return expr.Const(*n.Float), nil
	case n.Int != nil:
		return expr.Const(int(*n.Int)), nil
	case n.String != nil:
		return expr.Const(*n.String), nil
	case n.Object != nil:
		names := make([]string, len(n.Object.Members))
		values := make([]expr.Expr, len(n.Object.Members))
		for i, m := range n.Object.Members {
			v, err := c.ternary(m.Value)
			if err != nil {
				return nil, err
			}
			names[i] = m.Name
			values[i] = v
		}
		return expr.Object(nil, names, values...), nil
	case n.Array != nil:
		items := make([]expr.Expr, len(n.Array.Items))
		for i, it := range n.Array.Items {
			v, err := c.ternary(it)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return expr.Array(items...), nil
	case n.Call != nil:
		return c.freeCall(n.Call)
	case n.Group != nil:
		return c.ternary(n.Group)
	}
	return c.ident(n.Ident)
}

func (c *converter) freeCall(n *freeCall) (expr.Expr, error) {
	args, err := c.args(n.Args)
	if err != nil {
		return nil, err
	}
	if v, ok := c.env[n.Name]; ok {
		if m, ok := v.(*expr.Method); ok {
			return expr.Call(m, nil, args...), nil
		}
	}
	if m, ok := expr.LookupMethod(n.Name); ok {
		return expr.Call(m, nil, args...), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, n.Name)
}

func (c *converter) ident(name string) (expr.Expr, error) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if p, ok := c.scopes[i][name]; ok {
			return p, nil
		}
	}
	if v, ok := c.env[name]; ok {
		return expr.Const(v), nil
	}
	switch name {
	case "true":
		return expr.Const(true), nil
	case "false":
		return expr.Const(false), nil
	case "null", "nil":
		return expr.Const(nil), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownIdentifier, name)
}

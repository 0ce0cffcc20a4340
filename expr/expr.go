// Package expr is the caller-side expression AST. Queries are written as
// lambdas built from these nodes, either with the constructors below or by
// parsing text with the parse sub-package.
package expr

import (
	"github.com/zoobzio/composql/internal/types"
)

// Expr is a caller expression node.
type Expr interface {
	exprNode()
}

// ParameterExpr is a lambda parameter. Parameters are identified by pointer,
// not by name.
type ParameterExpr struct {
	Name string
}

// Param declares a parameter.
func Param(name string) *ParameterExpr {
	return &ParameterExpr{Name: name}
}

// ConstantExpr is a literal value, including nested query values.
type ConstantExpr struct {
	Value any
}

// Const wraps a literal.
func Const(v any) *ConstantExpr {
	return &ConstantExpr{Value: v}
}

// BinaryExpr applies a binary operator.
type BinaryExpr struct {
	Left  Expr
	Right Expr
	Op    types.Operator
}

// Binary builds a binary node for op.
func Binary(op types.Operator, left, right Expr) *BinaryExpr {
	return &BinaryExpr{Op: op, Left: left, Right: right}
}

func Add(l, r Expr) *BinaryExpr      { return Binary(types.Add, l, r) }
func Sub(l, r Expr) *BinaryExpr      { return Binary(types.Sub, l, r) }
func Mul(l, r Expr) *BinaryExpr      { return Binary(types.Mul, l, r) }
func Div(l, r Expr) *BinaryExpr      { return Binary(types.Div, l, r) }
func Mod(l, r Expr) *BinaryExpr      { return Binary(types.Mod, l, r) }
func And(l, r Expr) *BinaryExpr      { return Binary(types.AndAlso, l, r) }
func Or(l, r Expr) *BinaryExpr       { return Binary(types.OrElse, l, r) }
func Eq(l, r Expr) *BinaryExpr       { return Binary(types.EQ, l, r) }
func Ne(l, r Expr) *BinaryExpr       { return Binary(types.NE, l, r) }
func Lt(l, r Expr) *BinaryExpr       { return Binary(types.LT, l, r) }
func Le(l, r Expr) *BinaryExpr       { return Binary(types.LE, l, r) }
func Gt(l, r Expr) *BinaryExpr       { return Binary(types.GT, l, r) }
func Ge(l, r Expr) *BinaryExpr       { return Binary(types.GE, l, r) }
func Coalesce(l, r Expr) *BinaryExpr { return Binary(types.Coalesce, l, r) }

// UnaryExpr applies a unary operator. Target is the kind a Convert produces.
type UnaryExpr struct {
	Operand Expr
	Op      types.Operator
	Target  types.Kind
}

// Not negates a boolean.
func Not(e Expr) *UnaryExpr { return &UnaryExpr{Op: types.Not, Operand: e} }

// Negate negates a number.
func Negate(e Expr) *UnaryExpr { return &UnaryExpr{Op: types.Negate, Operand: e} }

// Convert casts e to kind.
func Convert(e Expr, kind types.Kind) *UnaryExpr {
	return &UnaryExpr{Op: types.Convert, Operand: e, Target: kind}
}

// ConditionalExpr is the ternary operator.
type ConditionalExpr struct {
	Test    Expr
	IfTrue  Expr
	IfFalse Expr
}

// Cond builds test ? ifTrue : ifFalse.
func Cond(test, ifTrue, ifFalse Expr) *ConditionalExpr {
	return &ConditionalExpr{Test: test, IfTrue: ifTrue, IfFalse: ifFalse}
}

// Case is one arm of a switch.
type Case struct {
	Body  Expr
	Tests []Expr
}

// SwitchExpr compares Value against each case in order.
type SwitchExpr struct {
	Value   Expr
	Default Expr
	Cases   []Case
}

// Switch builds a switch; def may be nil.
func Switch(value Expr, def Expr, cases ...Case) *SwitchExpr {
	return &SwitchExpr{Value: value, Cases: cases, Default: def}
}

// CallExpr calls a method descriptor.
type CallExpr struct {
	Method   *Method
	Receiver Expr
	Args     []Expr
}

// Call builds a call; receiver is nil for free functions.
func Call(m *Method, receiver Expr, args ...Expr) *CallExpr {
	return &CallExpr{Method: m, Receiver: receiver, Args: args}
}

// MemberExpr reads a property of its receiver.
type MemberExpr struct {
	Receiver Expr
	Property *Property
}

// Member reads the named property. Well-known properties such as Length and
// Year resolve to their built-in descriptors.
func Member(receiver Expr, name string) *MemberExpr {
	if p, ok := LookupProperty(name); ok {
		return &MemberExpr{Receiver: receiver, Property: p}
	}
	return &MemberExpr{Receiver: receiver, Property: &Property{Name: name, Kind: types.KindAny}}
}

// NewObjectExpr constructs a named record.
type NewObjectExpr struct {
	Constructor *types.Constructor
	Names       []string
	Values      []Expr
}

// Object pairs names with values; ctor may be nil for map-shaped records.
func Object(ctor *types.Constructor, names []string, values ...Expr) *NewObjectExpr {
	return &NewObjectExpr{Constructor: ctor, Names: names, Values: values}
}

// NewArrayExpr constructs an ordered list.
type NewArrayExpr struct {
	Elements []Expr
}

// Array builds a list.
func Array(elements ...Expr) *NewArrayExpr {
	return &NewArrayExpr{Elements: elements}
}

// LambdaExpr is a lambda passed to a chain operation.
type LambdaExpr struct {
	Body   Expr
	Params []*ParameterExpr
}

// Lambda builds a lambda over params.
func Lambda(body Expr, params ...*ParameterExpr) *LambdaExpr {
	return &LambdaExpr{Body: body, Params: params}
}

func (*ParameterExpr) exprNode()   {}
func (*ConstantExpr) exprNode()    {}
func (*BinaryExpr) exprNode()      {}
func (*UnaryExpr) exprNode()       {}
func (*ConditionalExpr) exprNode() {}
func (*SwitchExpr) exprNode()      {}
func (*CallExpr) exprNode()        {}
func (*MemberExpr) exprNode()      {}
func (*NewObjectExpr) exprNode()   {}
func (*NewArrayExpr) exprNode()    {}
func (*LambdaExpr) exprNode()      {}
func (*QueryCallExpr) exprNode()   {}

// Parameters returns every parameter referenced in e, including those
// declared by nested lambdas, in first-seen order.
func Parameters(e Expr) []*ParameterExpr {
	seen := make(map[*ParameterExpr]bool)
	var out []*ParameterExpr
	var walk func(Expr)
	walk = func(e Expr) {
		if e == nil {
			return
		}
		switch v := e.(type) {
		case *ParameterExpr:
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		case *BinaryExpr:
			walk(v.Left)
			walk(v.Right)
		case *UnaryExpr:
			walk(v.Operand)
		case *ConditionalExpr:
			walk(v.Test)
			walk(v.IfTrue)
			walk(v.IfFalse)
		case *SwitchExpr:
			walk(v.Value)
			for _, c := range v.Cases {
				for _, t := range c.Tests {
					walk(t)
				}
				walk(c.Body)
			}
			walk(v.Default)
		case *CallExpr:
			walk(v.Receiver)
			for _, a := range v.Args {
				walk(a)
			}
		case *MemberExpr:
			walk(v.Receiver)
		case *NewObjectExpr:
			for _, a := range v.Values {
				walk(a)
			}
		case *NewArrayExpr:
			for _, a := range v.Elements {
				walk(a)
			}
		case *LambdaExpr:
			walk(v.Body)
		case *QueryCallExpr:
			walk(v.Receiver)
			for _, a := range v.Args {
				walk(a)
			}
		}
	}
	walk(e)
	return out
}

package render

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/zoobzio/composql/internal/types"
)

// patterns maps string predicates to the LIKE pattern built around their argument.
var patterns = map[string][2]string{
	"StartsWith": {"", "'%'"},
	"EndsWith":   {"'%'", ""},
	"Contains":   {"'%'", "'%'"},
}

// isPredicate reports whether f renders as a SQL condition rather than a value.
func (ctx *renderContext) isPredicate(f types.Field) bool {
	switch v := f.(type) {
	case *types.Binary:
		if v.Op.Family() == types.FamilyBitwise {
			return ctx.caps.BooleanValues && v.Type() == types.KindBool
		}
		return v.Op.IsPredicate()
	case *types.Unary:
		return v.Op.IsPredicate()
	case *types.Method:
		_, ok := patterns[v.Callee.Name]
		return ok && v.Receiver != nil
	}
	return false
}

// value renders f where a value is expected.
func (ctx *renderContext) value(f types.Field) (string, error) {
	if !ctx.caps.BooleanValues && ctx.isPredicate(f) {
		cond, err := ctx.expression(f)
		if err != nil {
			return "", err
		}
		return "CASE WHEN " + cond + " THEN 1 ELSE 0 END", nil
	}
	return ctx.expression(f)
}

// condition renders f where a condition is expected.
func (ctx *renderContext) condition(f types.Field) (string, error) {
	if f == nil {
		return "", fmt.Errorf("%w: missing condition", types.ErrMalformedArgument)
	}
	if ctx.isPredicate(f) || ctx.caps.BooleanValues {
		return ctx.expression(f)
	}
	if c, ok := f.(*types.Constant); ok {
		if b, ok := c.Value.(bool); ok {
			if b {
				return "(1 = 1)", nil
			}
			return "(1 = 0)", nil
		}
	}
	v, err := ctx.expression(f)
	if err != nil {
		return "", err
	}
	return "(" + v + " = 1)", nil
}

func (ctx *renderContext) expression(f types.Field) (string, error) {
	switch v := f.(type) {
	case *types.Original:
		return v.Ref.Alias() + "." + ctx.quote(v.Column.Name), nil
	case *types.Quote:
		return v.Ref.Alias() + "." + ctx.quote(v.Name), nil
	case *types.Constant:
		return ctx.constant(v)
	case *types.Unary:
		return ctx.unary(v)
	case *types.Binary:
		return ctx.binary(v)
	case *types.Conditional:
		return ctx.conditional(v)
	case *types.Switch:
		return ctx.switchCase(v)
	case *types.Method:
		return ctx.call(v.Callee.Name, v.Receiver, v.Args)
	case *types.Member:
		if v.Receiver == nil {
			return "", fmt.Errorf("%w: static member %s", types.ErrUnsupportedExpression, v.Name)
		}
		return ctx.call(v.Name, v.Receiver, nil)
	case *types.Subquery:
		sub, err := ctx.nested(func() (string, error) {
			return ctx.query(v.Source, func() (string, error) {
				return ctx.value(v.Field)
			}, true)
		})
		if err != nil {
			return "", err
		}
		return "(" + sub + ")", nil
	case nil:
		return "", fmt.Errorf("%w: nil field", types.ErrMalformedArgument)
	}
	return "", fmt.Errorf("%w: %s used as a column value", types.ErrUnsupportedExpression, f.FieldKind())
}

func (ctx *renderContext) constant(c *types.Constant) (string, error) {
	switch {
	case c.Value == nil:
		return "NULL", nil
	case c.Type() == types.KindQuery:
		return "", fmt.Errorf("%w: query value used as a column value", types.ErrUnsupportedExpression)
	case c.Type() == types.KindList:
		return "", fmt.Errorf("%w: list value outside IN", types.ErrUnsupportedExpression)
	case c.Type() == types.KindObject:
		return "", fmt.Errorf("%w: object value used as a column value", types.ErrUnsupportedExpression)
	}
	return ctx.param(c.Value), nil
}

func isNull(f types.Field) bool {
	c, ok := f.(*types.Constant)
	return ok && c.Value == nil
}

func (ctx *renderContext) unary(u *types.Unary) (string, error) {
	switch u.Op {
	case types.Not:
		cond, err := ctx.condition(u.Operand)
		if err != nil {
			return "", err
		}
		return "(NOT " + cond + ")", nil
	case types.Negate:
		v, err := ctx.value(u.Operand)
		if err != nil {
			return "", err
		}
		return "(-" + v + ")", nil
	case types.Convert:
		v, err := ctx.value(u.Operand)
		if err != nil {
			return "", err
		}
		return ctx.dialect.Cast(v, u.Target)
	case types.Exists:
		sub, ok := u.Operand.(*types.Subquery)
		if !ok {
			return "", fmt.Errorf("%w: EXISTS over %s", types.ErrUnsupportedExpression, u.Operand.FieldKind())
		}
		body, err := ctx.nested(func() (string, error) {
			return ctx.query(sub.Source, func() (string, error) { return "1", nil }, true)
		})
		if err != nil {
			return "", err
		}
		return "EXISTS (" + body + ")", nil
	}
	return "", fmt.Errorf("%w: unary operator %s", types.ErrUnsupportedExpression, u.Op)
}

func (ctx *renderContext) binary(b *types.Binary) (string, error) {
	switch {
	case b.Op == types.IN:
		return ctx.in(b)
	case b.Op.Family() == types.FamilyLogical || ctx.isPredicate(b) && b.Op.Family() == types.FamilyBitwise:
		return ctx.logical(b)
	case b.Op.Family() == types.FamilyEquality && (isNull(b.Left) || isNull(b.Right)):
		operand := b.Left
		if isNull(operand) {
			operand = b.Right
		}
		v, err := ctx.value(operand)
		if err != nil {
			return "", err
		}
		if b.Op == types.EQ {
			return "(" + v + " IS NULL)", nil
		}
		return "(" + v + " IS NOT NULL)", nil
	}

	left, err := ctx.value(b.Left)
	if err != nil {
		return "", err
	}
	right, err := ctx.value(b.Right)
	if err != nil {
		return "", err
	}
	switch {
	case b.Op == types.Coalesce:
		return "COALESCE(" + left + ", " + right + ")", nil
	case b.Op == types.Add && b.Type().IsText():
		return ctx.dialect.Concat(left, right), nil
	case b.Op == types.BitXor:
		if s, ok := ctx.dialect.Call("xor", []string{left, right}); ok {
			return s, nil
		}
	}
	return "(" + left + " " + string(b.Op) + " " + right + ")", nil
}

// logical renders AND/OR, and bitwise operators applied to booleans.
func (ctx *renderContext) logical(b *types.Binary) (string, error) {
	left, err := ctx.condition(b.Left)
	if err != nil {
		return "", err
	}
	right, err := ctx.condition(b.Right)
	if err != nil {
		return "", err
	}
	op := string(b.Op)
	switch b.Op {
	case types.BitAnd:
		op = string(types.AndAlso)
	case types.BitOr:
		op = string(types.OrElse)
	case types.BitXor:
		op = string(types.NE)
	}
	return "(" + left + " " + op + " " + right + ")", nil
}

func (ctx *renderContext) in(b *types.Binary) (string, error) {
	left, err := ctx.value(b.Left)
	if err != nil {
		return "", err
	}
	var items []string
	switch r := b.Right.(type) {
	case *types.Constant:
		rv := reflect.ValueOf(r.Value)
		for rv.Kind() == reflect.Pointer && !rv.IsNil() {
			rv = rv.Elem()
		}
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return "", fmt.Errorf("%w: IN over %s", types.ErrUnsupportedExpression, r.Type())
		}
		for i := 0; i < rv.Len(); i++ {
			items = append(items, ctx.param(rv.Index(i).Interface()))
		}
	case *types.Collection:
		for _, f := range r.Fields {
			v, err := ctx.value(f)
			if err != nil {
				return "", err
			}
			items = append(items, v)
		}
	case *types.Subquery:
		sub, err := ctx.expression(r)
		if err != nil {
			return "", err
		}
		return "(" + left + " IN " + sub + ")", nil
	default:
		return "", fmt.Errorf("%w: IN over %s", types.ErrUnsupportedExpression, b.Right.FieldKind())
	}
	if len(items) == 0 {
		return "(1 = 0)", nil
	}
	return "(" + left + " IN (" + strings.Join(items, ", ") + "))", nil
}

func (ctx *renderContext) conditional(c *types.Conditional) (string, error) {
	test, err := ctx.condition(c.Test)
	if err != nil {
		return "", err
	}
	ifTrue, err := ctx.value(c.IfTrue)
	if err != nil {
		return "", err
	}
	ifFalse, err := ctx.value(c.IfFalse)
	if err != nil {
		return "", err
	}
	return "CASE WHEN " + test + " THEN " + ifTrue + " ELSE " + ifFalse + " END", nil
}

func (ctx *renderContext) switchCase(s *types.Switch) (string, error) {
	var sql strings.Builder
	v, err := ctx.value(s.Value)
	if err != nil {
		return "", err
	}
	sql.WriteString("CASE ")
	sql.WriteString(v)
	for _, c := range s.Cases {
		for _, test := range c.Tests {
			t, err := ctx.value(test)
			if err != nil {
				return "", err
			}
			body, err := ctx.value(c.Body)
			if err != nil {
				return "", err
			}
			sql.WriteString(" WHEN ")
			sql.WriteString(t)
			sql.WriteString(" THEN ")
			sql.WriteString(body)
		}
	}
	if s.Default != nil {
		d, err := ctx.value(s.Default)
		if err != nil {
			return "", err
		}
		sql.WriteString(" ELSE ")
		sql.WriteString(d)
	}
	sql.WriteString(" END")
	return sql.String(), nil
}

// call renders a database function, method or property. The receiver, if
// any, becomes the first argument.
func (ctx *renderContext) call(name string, receiver types.Field, params []types.Field) (string, error) {
	var args []string
	if receiver != nil {
		params = append([]types.Field{receiver}, params...)
	}
	for _, p := range params {
		v, err := ctx.value(p)
		if err != nil {
			return "", err
		}
		args = append(args, v)
	}
	if s, ok := ctx.dialect.Call(name, args); ok {
		return s, nil
	}

	arity := func(n int) error {
		if len(args) != n {
			return fmt.Errorf("%w: %s takes %d arguments, got %d", types.ErrMalformedArgument, name, n, len(args))
		}
		return nil
	}
	switch name {
	case "Count":
		if len(args) == 0 {
			return "COUNT(*)", nil
		}
		if err := arity(1); err != nil {
			return "", err
		}
		return "COUNT(" + args[0] + ")", nil
	case "Sum", "Avg", "Min", "Max", "Length":
		if err := arity(1); err != nil {
			return "", err
		}
		return strings.ToUpper(name) + "(" + args[0] + ")", nil
	case "ToUpper", "ToLower":
		if err := arity(1); err != nil {
			return "", err
		}
		return strings.ToUpper(strings.TrimPrefix(name, "To")) + "(" + args[0] + ")", nil
	case "Trim":
		if err := arity(1); err != nil {
			return "", err
		}
		return "TRIM(" + args[0] + ")", nil
	case "Now":
		return "CURRENT_TIMESTAMP", nil
	case "Year", "Month", "Day", "Hour":
		if err := arity(1); err != nil {
			return "", err
		}
		return "EXTRACT(" + strings.ToUpper(name) + " FROM " + args[0] + ")", nil
	}
	if p, ok := patterns[name]; ok {
		if err := arity(2); err != nil {
			return "", err
		}
		parts := []string{args[1]}
		if p[0] != "" {
			parts = append([]string{p[0]}, parts...)
		}
		if p[1] != "" {
			parts = append(parts, p[1])
		}
		return "(" + args[0] + " LIKE " + ctx.dialect.Concat(parts...) + ")", nil
	}
	// Unmapped callees come from programmer-declared descriptors and are
	// written as they are.
	return name + "(" + strings.Join(args, ", ") + ")", nil
}

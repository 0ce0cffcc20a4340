package expr

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/zoobzio/composql/internal/types"
)

// ErrNotEvaluable is returned by Evaluate for expressions that need the
// database or a parameter binding.
var ErrNotEvaluable = errors.New("expression cannot be evaluated locally")

// Evaluate computes e without a database. It either evaluates the whole tree
// or fails; a failure means the expression must be translated structurally.
func Evaluate(e Expr) (any, error) {
	switch v := e.(type) {
	case *ConstantExpr:
		return v.Value, nil
	case *ParameterExpr:
		return nil, fmt.Errorf("%w: parameter %s", ErrNotEvaluable, v.Name)
	case *BinaryExpr:
		l, err := Evaluate(v.Left)
		if err != nil {
			return nil, err
		}
		r, err := Evaluate(v.Right)
		if err != nil {
			return nil, err
		}
		return applyBinary(v.Op, l, r)
	case *UnaryExpr:
		operand, err := Evaluate(v.Operand)
		if err != nil {
			return nil, err
		}
		return applyUnary(v.Op, operand, v.Target)
	case *ConditionalExpr:
		test, err := Evaluate(v.Test)
		if err != nil {
			return nil, err
		}
		b, ok := test.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: conditional test is %T", ErrNotEvaluable, test)
		}
		if b {
			return Evaluate(v.IfTrue)
		}
		return Evaluate(v.IfFalse)
	case *SwitchExpr:
		return evalSwitch(v)
	case *CallExpr:
		return evalCall(v)
	case *MemberExpr:
		if v.Receiver == nil {
			return nil, fmt.Errorf("%w: static member %s", ErrNotEvaluable, v.Property.Name)
		}
		recv, err := Evaluate(v.Receiver)
		if err != nil {
			return nil, err
		}
		if _, ok := recv.(types.Queryable); ok {
			return nil, fmt.Errorf("%w: member %s of a query", ErrNotEvaluable, v.Property.Name)
		}
		return v.Property.Value(recv)
	case *NewObjectExpr:
		values := make(map[string]any, len(v.Names))
		for i, name := range v.Names {
			val, err := Evaluate(v.Values[i])
			if err != nil {
				return nil, err
			}
			values[name] = val
		}
		if v.Constructor != nil && v.Constructor.New != nil {
			return v.Constructor.New(values)
		}
		return values, nil
	case *NewArrayExpr:
		items := make([]any, len(v.Elements))
		for i, el := range v.Elements {
			val, err := Evaluate(el)
			if err != nil {
				return nil, err
			}
			items[i] = val
		}
		return items, nil
	case *LambdaExpr:
		return nil, fmt.Errorf("%w: lambda", ErrNotEvaluable)
	case *QueryCallExpr:
		return nil, fmt.Errorf("%w: %s on a query", ErrNotEvaluable, v.Op)
	}
	return nil, fmt.Errorf("%w: %T", ErrNotEvaluable, e)
}

func evalSwitch(v *SwitchExpr) (any, error) {
	value, err := Evaluate(v.Value)
	if err != nil {
		return nil, err
	}
	for _, c := range v.Cases {
		for _, t := range c.Tests {
			tv, err := Evaluate(t)
			if err != nil {
				return nil, err
			}
			eq, err := equal(value, tv)
			if err != nil {
				return nil, err
			}
			if eq {
				return Evaluate(c.Body)
			}
		}
	}
	if v.Default == nil {
		return nil, nil
	}
	return Evaluate(v.Default)
}

func evalCall(v *CallExpr) (any, error) {
	if v.Method.DB || v.Method.Invoke == nil {
		return nil, fmt.Errorf("%w: %s runs in the database", ErrNotEvaluable, v.Method.Name)
	}
	var recv any
	if v.Receiver != nil {
		r, err := Evaluate(v.Receiver)
		if err != nil {
			return nil, err
		}
		recv = r
	}
	args := make([]any, len(v.Args))
	for i, a := range v.Args {
		val, err := Evaluate(a)
		if err != nil {
			return nil, err
		}
		args[i] = val
	}
	return v.Method.Invoke(recv, args)
}

type number struct {
	i       int64
	f       float64
	isFloat bool
}

func toNumber(v any) (number, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return number{i: rv.Int()}, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return number{i: int64(rv.Uint())}, true
	case reflect.Float32, reflect.Float64:
		return number{f: rv.Float(), isFloat: true}, true
	}
	return number{}, false
}

func (n number) float() float64 {
	if n.isFloat {
		return n.f
	}
	return float64(n.i)
}

func applyBinary(op types.Operator, l, r any) (any, error) {
	switch op.Family() {
	case types.FamilyArithmetic:
		if ls, ok := l.(string); ok && op == types.Add {
			if rs, ok := r.(string); ok {
				return ls + rs, nil
			}
		}
		return arithmetic(op, l, r)
	case types.FamilyLogical:
		lb, lok := l.(bool)
		rb, rok := r.(bool)
		if !lok || !rok {
			return nil, fmt.Errorf("%w: %s on %T and %T", ErrNotEvaluable, op, l, r)
		}
		if op == types.AndAlso {
			return lb && rb, nil
		}
		return lb || rb, nil
	case types.FamilyBitwise:
		return bitwise(op, l, r)
	case types.FamilyEquality:
		eq, err := equal(l, r)
		if err != nil {
			return nil, err
		}
		if op == types.NE {
			return !eq, nil
		}
		return eq, nil
	case types.FamilyOrdering:
		c, err := compare(l, r)
		if err != nil {
			return nil, err
		}
		switch op {
		case types.LT:
			return c < 0, nil
		case types.LE:
			return c <= 0, nil
		case types.GT:
			return c > 0, nil
		}
		return c >= 0, nil
	case types.FamilyCoalesce:
		if isNil(l) {
			return r, nil
		}
		return l, nil
	case types.FamilySet:
		rv := reflect.ValueOf(r)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return nil, fmt.Errorf("%w: IN against %T", ErrNotEvaluable, r)
		}
		for i := 0; i < rv.Len(); i++ {
			eq, err := equal(l, rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			if eq {
				return true, nil
			}
		}
		return false, nil
	}
	return nil, fmt.Errorf("%w: operator %s", ErrNotEvaluable, op)
}

func arithmetic(op types.Operator, l, r any) (any, error) {
	ln, lok := toNumber(l)
	rn, rok := toNumber(r)
	if !lok || !rok {
		return nil, fmt.Errorf("%w: %s on %T and %T", ErrNotEvaluable, op, l, r)
	}
	if ln.isFloat || rn.isFloat {
		a, b := ln.float(), rn.float()
		switch op {
		case types.Add:
			return a + b, nil
		case types.Sub:
			return a - b, nil
		case types.Mul:
			return a * b, nil
		case types.Div:
			return a / b, nil
		}
		return math.Mod(a, b), nil
	}
	a, b := ln.i, rn.i
	switch op {
	case types.Add:
		return a + b, nil
	case types.Sub:
		return a - b, nil
	case types.Mul:
		return a * b, nil
	}
	if b == 0 {
		return nil, fmt.Errorf("%w: integer division by zero", ErrNotEvaluable)
	}
	if op == types.Div {
		return a / b, nil
	}
	return a % b, nil
}

func bitwise(op types.Operator, l, r any) (any, error) {
	if lb, ok := l.(bool); ok {
		rb, ok := r.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: %s on %T and %T", ErrNotEvaluable, op, l, r)
		}
		switch op {
		case types.BitAnd:
			return lb && rb, nil
		case types.BitOr:
			return lb || rb, nil
		}
		return lb != rb, nil
	}
	ln, lok := toNumber(l)
	rn, rok := toNumber(r)
	if !lok || !rok || ln.isFloat || rn.isFloat {
		return nil, fmt.Errorf("%w: %s on %T and %T", ErrNotEvaluable, op, l, r)
	}
	switch op {
	case types.BitAnd:
		return ln.i & rn.i, nil
	case types.BitOr:
		return ln.i | rn.i, nil
	}
	return ln.i ^ rn.i, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func equal(l, r any) (bool, error) {
	if isNil(l) || isNil(r) {
		return isNil(l) && isNil(r), nil
	}
	ln, lok := toNumber(l)
	rn, rok := toNumber(r)
	if lok && rok {
		if ln.isFloat || rn.isFloat {
			return ln.float() == rn.float(), nil
		}
		return ln.i == rn.i, nil
	}
	if lt, ok := l.(time.Time); ok {
		if rt, ok := r.(time.Time); ok {
			return lt.Equal(rt), nil
		}
	}
	lv, rv := reflect.ValueOf(l), reflect.ValueOf(r)
	if lv.Type() != rv.Type() || !lv.Type().Comparable() {
		return false, fmt.Errorf("%w: cannot compare %T and %T", ErrNotEvaluable, l, r)
	}
	return l == r, nil
}

func compare(l, r any) (int, error) {
	ln, lok := toNumber(l)
	rn, rok := toNumber(r)
	if lok && rok {
		if ln.isFloat || rn.isFloat {
			a, b := ln.float(), rn.float()
			switch {
			case a < b:
				return -1, nil
			case a > b:
				return 1, nil
			}
			return 0, nil
		}
		switch {
		case ln.i < rn.i:
			return -1, nil
		case ln.i > rn.i:
			return 1, nil
		}
		return 0, nil
	}
	if ls, ok := l.(string); ok {
		if rs, ok := r.(string); ok {
			switch {
			case ls < rs:
				return -1, nil
			case ls > rs:
				return 1, nil
			}
			return 0, nil
		}
	}
	if lt, ok := l.(time.Time); ok {
		if rt, ok := r.(time.Time); ok {
			return lt.Compare(rt), nil
		}
	}
	return 0, fmt.Errorf("%w: cannot order %T and %T", ErrNotEvaluable, l, r)
}

func applyUnary(op types.Operator, v any, target types.Kind) (any, error) {
	switch op {
	case types.Not:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: NOT on %T", ErrNotEvaluable, v)
		}
		return !b, nil
	case types.Negate:
		n, ok := toNumber(v)
		if !ok {
			return nil, fmt.Errorf("%w: negate %T", ErrNotEvaluable, v)
		}
		if n.isFloat {
			return -n.f, nil
		}
		return -n.i, nil
	case types.Convert:
		return convert(v, target)
	}
	return nil, fmt.Errorf("%w: operator %s", ErrNotEvaluable, op)
}

func convert(v any, target types.Kind) (any, error) {
	if isNil(v) {
		return nil, nil
	}
	n, isNum := toNumber(v)
	switch target {
	case types.KindInt:
		if isNum {
			if n.isFloat {
				return int64(n.f), nil
			}
			return n.i, nil
		}
		if s, ok := v.(string); ok {
			i, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrNotEvaluable, err)
			}
			return i, nil
		}
	case types.KindFloat, types.KindDecimal:
		if isNum {
			return n.float(), nil
		}
		if s, ok := v.(string); ok {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrNotEvaluable, err)
			}
			return f, nil
		}
	case types.KindString:
		return fmt.Sprint(v), nil
	case types.KindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: cannot convert %T to %s", ErrNotEvaluable, v, target)
}

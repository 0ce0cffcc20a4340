package expr

import (
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/zoobzio/composql/internal/types"
)

// Method describes a callable. Database functions are always rendered by the
// dialect; other methods are evaluated locally when their operands are constant.
type Method struct {
	// Result computes the result kind from the receiver and argument kinds.
	Result func(receiver types.Kind, args []types.Kind) types.Kind
	// Invoke evaluates the method locally. Nil means the method has no local form.
	Invoke func(receiver any, args []any) (any, error)
	// Name is written into SQL verbatim when no dialect maps it, so it must
	// be a trusted identifier and never caller input.
	Name      string
	DB        bool
	Aggregate bool
}

// Callee returns the opaque descriptor handed to dialects.
func (m *Method) Callee() *types.Callee {
	return &types.Callee{Name: m.Name, Aggregate: m.Aggregate}
}

// ResultKind resolves the result kind, defaulting to Any.
func (m *Method) ResultKind(receiver types.Kind, args []types.Kind) types.Kind {
	if m.Result == nil {
		return types.KindAny
	}
	return m.Result(receiver, args)
}

// Property describes a member. Get reads it from a local value; a nil Get
// falls back to struct field or map key lookup by name.
type Property struct {
	Get  func(receiver any) (any, error)
	Name string
	Kind types.Kind
}

// Value reads the property from v.
func (p *Property) Value(v any) (any, error) {
	if p.Get != nil {
		return p.Get(v)
	}
	return fieldByName(v, p.Name)
}

func fieldByName(v any, name string) (any, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, fmt.Errorf("%w: member %s of nil", ErrNotEvaluable, name)
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct:
		f := rv.FieldByName(name)
		if f.IsValid() && f.CanInterface() {
			return f.Interface(), nil
		}
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			val := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
			if val.IsValid() {
				return val.Interface(), nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %T has no member %s", ErrNotEvaluable, v, name)
}

func fixed(k types.Kind) func(types.Kind, []types.Kind) types.Kind {
	return func(types.Kind, []types.Kind) types.Kind { return k }
}

func sameAsArg(_ types.Kind, args []types.Kind) types.Kind {
	if len(args) == 0 {
		return types.KindAny
	}
	return args[0]
}

func stringMethod(name string, result types.Kind, arity int, fn func(s string, args []string) any) *Method {
	return &Method{
		Name:   name,
		Result: fixed(result),
		Invoke: func(receiver any, args []any) (any, error) {
			if len(args) != arity {
				return nil, fmt.Errorf("%w: %s takes %d arguments, got %d", ErrNotEvaluable, name, arity, len(args))
			}
			s, ok := receiver.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s on %T", ErrNotEvaluable, name, receiver)
			}
			strs := make([]string, len(args))
			for i, a := range args {
				if strs[i], ok = a.(string); !ok {
					return nil, fmt.Errorf("%w: %s argument %T", ErrNotEvaluable, name, a)
				}
			}
			return fn(s, strs), nil
		},
	}
}

// String methods.
var (
	StartsWith = stringMethod("StartsWith", types.KindBool, 1, func(s string, a []string) any { return strings.HasPrefix(s, a[0]) })
	EndsWith   = stringMethod("EndsWith", types.KindBool, 1, func(s string, a []string) any { return strings.HasSuffix(s, a[0]) })
	Contains   = stringMethod("Contains", types.KindBool, 1, func(s string, a []string) any { return strings.Contains(s, a[0]) })
	ToUpper    = stringMethod("ToUpper", types.KindString, 0, func(s string, _ []string) any { return strings.ToUpper(s) })
	ToLower    = stringMethod("ToLower", types.KindString, 0, func(s string, _ []string) any { return strings.ToLower(s) })
	Trim       = stringMethod("Trim", types.KindString, 0, func(s string, _ []string) any { return strings.TrimSpace(s) })
)

// Database functions. They are never evaluated locally.
var (
	Count = &Method{Name: "Count", DB: true, Aggregate: true, Result: fixed(types.KindInt)}
	Sum   = &Method{Name: "Sum", DB: true, Aggregate: true, Result: sameAsArg}
	Avg   = &Method{Name: "Avg", DB: true, Aggregate: true, Result: fixed(types.KindFloat)}
	Min   = &Method{Name: "Min", DB: true, Aggregate: true, Result: sameAsArg}
	Max   = &Method{Name: "Max", DB: true, Aggregate: true, Result: sameAsArg}
	Now   = &Method{Name: "Now", DB: true, Result: fixed(types.KindTime)}
)

func timePart(name string, fn func(time.Time) int) *Property {
	return &Property{
		Name: name,
		Kind: types.KindInt,
		Get: func(v any) (any, error) {
			t, ok := v.(time.Time)
			if !ok {
				return nil, fmt.Errorf("%w: %s of %T", ErrNotEvaluable, name, v)
			}
			return fn(t), nil
		},
	}
}

// Built-in properties.
var (
	Length = &Property{
		Name: "Length",
		Kind: types.KindInt,
		Get: func(v any) (any, error) {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%w: Length of %T", ErrNotEvaluable, v)
			}
			return utf8.RuneCountInString(s), nil
		},
	}
	Year  = timePart("Year", func(t time.Time) int { return t.Year() })
	Month = timePart("Month", func(t time.Time) int { return int(t.Month()) })
	Day   = timePart("Day", func(t time.Time) int { return t.Day() })
	Hour  = timePart("Hour", func(t time.Time) int { return t.Hour() })
)

var methods = map[string]*Method{}
var properties = map[string]*Property{}

func init() {
	for _, m := range []*Method{StartsWith, EndsWith, Contains, ToUpper, ToLower, Trim, Count, Sum, Avg, Min, Max, Now} {
		methods[m.Name] = m
	}
	for _, p := range []*Property{Length, Year, Month, Day, Hour} {
		properties[p.Name] = p
	}
}

// LookupMethod returns the built-in method with the given name.
func LookupMethod(name string) (*Method, bool) {
	m, ok := methods[name]
	return m, ok
}

// LookupProperty returns the built-in property with the given name.
func LookupProperty(name string) (*Property, bool) {
	p, ok := properties[name]
	return p, ok
}

package types

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind is the canonical scalar type tag carried by every Field.
// It replaces host-language runtime types inside the engine.
type Kind int

const (
	KindInvalid Kind = iota
	KindAny          // unknown result type, compatible with everything
	KindNull         // the untyped nil literal
	KindBool
	KindInt
	KindFloat
	KindDecimal
	KindString
	KindBytes
	KindTime
	KindUUID
	KindJSON
	KindObject     // multi-column projection shape
	KindCollection // ordered projection shape
	KindList       // constant list of scalars
	KindQuery      // constant carrying a nested query value
)

var kindNames = map[Kind]string{
	KindInvalid:    "invalid",
	KindAny:        "any",
	KindNull:       "null",
	KindBool:       "bool",
	KindInt:        "int",
	KindFloat:      "float",
	KindDecimal:    "decimal",
	KindString:     "string",
	KindBytes:      "bytes",
	KindTime:       "time",
	KindUUID:       "uuid",
	KindJSON:       "json",
	KindObject:     "object",
	KindCollection: "collection",
	KindList:       "list",
	KindQuery:      "query",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsNumeric reports whether k belongs to the numeric family.
func (k Kind) IsNumeric() bool {
	return k == KindInt || k == KindFloat || k == KindDecimal
}

// IsText reports whether k belongs to the text family.
func (k Kind) IsText() bool {
	return k == KindString || k == KindJSON
}

// IsScalar reports whether k describes a single column value.
func (k Kind) IsScalar() bool {
	switch k {
	case KindInvalid, KindObject, KindCollection, KindList, KindQuery:
		return false
	}
	return true
}

// Compatible reports whether values of kinds a and b can be compared for equality.
func Compatible(a, b Kind) bool {
	if a == KindAny || b == KindAny || a == KindNull || b == KindNull {
		return true
	}
	switch {
	case a.IsNumeric():
		return b.IsNumeric()
	case a.IsText():
		return b.IsText()
	}
	return a == b
}

// Orderable reports whether values of kinds a and b can be ordered against each other.
func Orderable(a, b Kind) bool {
	if a == KindNull || b == KindNull {
		return false
	}
	if a == KindAny || b == KindAny {
		return true
	}
	switch {
	case a.IsNumeric():
		return b.IsNumeric()
	case a == KindString:
		return b == KindString
	case a == KindTime:
		return b == KindTime
	}
	return false
}

// Widen returns the kind produced by arithmetic on a and b.
func Widen(a, b Kind) Kind {
	switch {
	case a == KindAny || b == KindAny:
		return KindAny
	case a == KindDecimal || b == KindDecimal:
		return KindDecimal
	case a == KindFloat || b == KindFloat:
		return KindFloat
	}
	return KindInt
}

// Unify returns the kind shared by two compatible branches, preferring the typed one.
func Unify(a, b Kind) Kind {
	switch {
	case a == KindNull || a == KindAny:
		return b
	case b == KindNull || b == KindAny:
		return a
	case a.IsNumeric() && b.IsNumeric():
		return Widen(a, b)
	}
	return a
}

// ParseKind maps a schema column type name to a canonical kind.
func ParseKind(sqlType string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(sqlType))
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	switch name {
	case "bigint", "int", "integer", "int2", "int4", "int8", "smallint", "tinyint", "serial", "bigserial":
		return KindInt, nil
	case "varchar", "character varying", "text", "char", "character", "nvarchar", "nchar", "string":
		return KindString, nil
	case "boolean", "bool", "bit":
		return KindBool, nil
	case "numeric", "decimal", "money":
		return KindDecimal, nil
	case "real", "float", "float4", "float8", "double", "double precision":
		return KindFloat, nil
	case "timestamp", "timestamptz", "datetime", "datetime2", "date", "time":
		return KindTime, nil
	case "uuid", "uniqueidentifier":
		return KindUUID, nil
	case "bytea", "blob", "binary", "varbinary":
		return KindBytes, nil
	case "json", "jsonb":
		return KindJSON, nil
	}
	return KindInvalid, fmt.Errorf("%w: no canonical kind for column type %q", ErrTypeMapping, sqlType)
}

// Queryable is implemented by nested query values that may be carried by constants.
type Queryable interface {
	IsQueryValue()
}

var (
	timeType = reflect.TypeOf(time.Time{})
	uuidType = reflect.TypeOf(uuid.UUID{})
	rawType  = reflect.TypeOf(json.RawMessage{})
)

// TypeOf maps a host value to its canonical kind.
func TypeOf(v any) (Kind, error) {
	if v == nil {
		return KindNull, nil
	}
	if _, ok := v.(Queryable); ok {
		return KindQuery, nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return KindNull, nil
		}
		rv = rv.Elem()
	}
	return kindOfType(rv.Type())
}

func kindOfType(t reflect.Type) (Kind, error) {
	switch t {
	case timeType:
		return KindTime, nil
	case uuidType:
		return KindUUID, nil
	case rawType:
		return KindJSON, nil
	}
	switch t.Kind() {
	case reflect.Bool:
		return KindBool, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindInt, nil
	case reflect.Float32, reflect.Float64:
		return KindFloat, nil
	case reflect.String:
		return KindString, nil
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return KindBytes, nil
		}
		return KindList, nil
	case reflect.Map:
		return KindObject, nil
	}
	return KindInvalid, fmt.Errorf("%w: no canonical kind for host type %s", ErrTypeMapping, t)
}

// ElemKind returns the kind of the elements of a list value, or KindAny when
// the list is empty or its element type is an interface.
func ElemKind(v any) Kind {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return KindInvalid
	}
	if rv.Type().Elem().Kind() != reflect.Interface {
		if k, err := kindOfType(rv.Type().Elem()); err == nil {
			return k
		}
	}
	if rv.Len() == 0 {
		return KindAny
	}
	k, err := TypeOf(rv.Index(0).Interface())
	if err != nil {
		return KindAny
	}
	return k
}

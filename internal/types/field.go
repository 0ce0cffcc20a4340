package types

import "fmt"

// FieldKind tags the node type of a Field.
type FieldKind int

const (
	FieldOriginal FieldKind = iota
	FieldConstant
	FieldUnary
	FieldBinary
	FieldConditional
	FieldSwitch
	FieldMethod
	FieldMember
	FieldQuote
	FieldSubquery
	FieldObject
	FieldCollection
)

var fieldKindNames = [...]string{
	FieldOriginal:    "Original",
	FieldConstant:    "Constant",
	FieldUnary:       "Unary",
	FieldBinary:      "Binary",
	FieldConditional: "Conditional",
	FieldSwitch:      "Switch",
	FieldMethod:      "Method",
	FieldMember:      "Member",
	FieldQuote:       "Quote",
	FieldSubquery:    "Subquery",
	FieldObject:      "Object",
	FieldCollection:  "Collection",
}

func (k FieldKind) String() string {
	if int(k) < len(fieldKindNames) {
		return fieldKindNames[k]
	}
	return fmt.Sprintf("FieldKind(%d)", int(k))
}

// Field is a node of the query expression AST.
// Identity is reference identity: rewriting passes key maps by node pointer.
type Field interface {
	FieldKind() FieldKind
	Type() Kind
	// Children returns the operands evaluated in the same scope as the node.
	// Quote and Subquery are leaves; they reference other scopes.
	Children() []Field
	isField()
}

// Leaf is a Field usable directly as a column expression. Leaves carry an
// alias that is assigned at most once, when a projection names them.
type Leaf interface {
	Field
	Alias() string
	setAlias(string)
}

type aliasBase struct {
	alias string
}

func (a *aliasBase) Alias() string       { return a.alias }
func (a *aliasBase) setAlias(name string) { a.alias = name }

// SetAlias names a leaf. It reports false when the leaf was already named.
func SetAlias(l Leaf, name string) bool {
	if l.Alias() != "" {
		return false
	}
	l.setAlias(name)
	return true
}

// Original is a schema column bound to one data source.
type Original struct {
	aliasBase
	Column *Column
	Ref    *SourceRef
}

// NewOriginal binds column to the source identified by ref.
func NewOriginal(column *Column, ref *SourceRef) *Original {
	return &Original{Column: column, Ref: ref}
}

func (*Original) FieldKind() FieldKind { return FieldOriginal }
func (o *Original) Type() Kind         { return o.Column.Kind }
func (*Original) Children() []Field    { return nil }
func (*Original) isField()             {}

// Constant is a literal value.
type Constant struct {
	aliasBase
	Value any
	kind  Kind
}

// NewConstant wraps value, deriving its kind from the host type.
func NewConstant(value any) (*Constant, error) {
	k, err := TypeOf(value)
	if err != nil {
		return nil, err
	}
	return &Constant{Value: value, kind: k}, nil
}

// NewTypedConstant wraps value with an explicit kind, used for typed nulls.
func NewTypedConstant(value any, kind Kind) *Constant {
	return &Constant{Value: value, kind: kind}
}

func (*Constant) FieldKind() FieldKind { return FieldConstant }
func (c *Constant) Type() Kind         { return c.kind }
func (*Constant) Children() []Field    { return nil }
func (*Constant) isField()             {}

// Unary applies a unary operator. Target is the result kind of a Convert.
type Unary struct {
	aliasBase
	Operand Field
	Op      Operator
	Target  Kind
	kind    Kind
}

// NewUnary checks the operand against op and builds the node.
func NewUnary(op Operator, operand Field, target Kind) (*Unary, error) {
	k := operand.Type()
	var result Kind
	switch op {
	case Not:
		if !isBool(k) {
			return nil, mismatch(op, k)
		}
		result = KindBool
	case Negate:
		if !k.IsNumeric() && k != KindAny {
			return nil, mismatch(op, k)
		}
		result = k
	case Convert:
		if !target.IsScalar() {
			return nil, fmt.Errorf("%w: cannot convert to %s", ErrTypeMismatch, target)
		}
		result = target
	case Exists:
		if operand.FieldKind() != FieldSubquery {
			return nil, fmt.Errorf("%w: EXISTS requires a subquery, got %s", ErrTypeMismatch, operand.FieldKind())
		}
		result = KindBool
	default:
		return nil, fmt.Errorf("%w: %s is not a unary operator", ErrUnsupportedExpression, op)
	}
	return &Unary{Op: op, Operand: operand, Target: target, kind: result}, nil
}

func (*Unary) FieldKind() FieldKind { return FieldUnary }
func (u *Unary) Type() Kind         { return u.kind }
func (u *Unary) Children() []Field  { return []Field{u.Operand} }
func (*Unary) isField()             {}

// Binary applies a binary operator.
type Binary struct {
	aliasBase
	Left  Field
	Right Field
	Op    Operator
	kind  Kind
}

// NewBinary checks both operands against the operator family and builds the node.
func NewBinary(op Operator, left, right Field) (*Binary, error) {
	l, r := left.Type(), right.Type()
	var result Kind
	switch op.Family() {
	case FamilyArithmetic:
		switch {
		case isNumeric(l) && isNumeric(r):
			result = Widen(l, r)
		case op == Add && isText(l) && isText(r):
			result = KindString
		default:
			return nil, mismatch(op, l, r)
		}
	case FamilyBitwise:
		switch {
		case isBool(l) && isBool(r):
			result = KindBool
		case (l == KindInt || l == KindAny) && (r == KindInt || r == KindAny):
			result = KindInt
		default:
			return nil, mismatch(op, l, r)
		}
	case FamilyLogical:
		if !isBool(l) || !isBool(r) {
			return nil, mismatch(op, l, r)
		}
		result = KindBool
	case FamilyEquality:
		if !l.IsScalar() || !r.IsScalar() || !Compatible(l, r) {
			return nil, mismatch(op, l, r)
		}
		result = KindBool
	case FamilyOrdering:
		if !Orderable(l, r) {
			return nil, mismatch(op, l, r)
		}
		result = KindBool
	case FamilyCoalesce:
		if !Compatible(l, r) {
			return nil, mismatch(op, l, r)
		}
		result = Unify(l, r)
	case FamilySet:
		elem, ok := setElemKind(right)
		if !ok {
			return nil, fmt.Errorf("%w: IN requires a subquery, collection or list, got %s", ErrTypeMismatch, right.FieldKind())
		}
		if !Compatible(l, elem) {
			return nil, mismatch(op, l, elem)
		}
		result = KindBool
	default:
		return nil, fmt.Errorf("%w: %s is not a binary operator", ErrUnsupportedExpression, op)
	}
	return &Binary{Op: op, Left: left, Right: right, kind: result}, nil
}

func setElemKind(f Field) (Kind, bool) {
	switch v := f.(type) {
	case *Subquery:
		return v.Type(), true
	case *Collection:
		elem := KindAny
		for _, item := range v.Fields {
			elem = Unify(elem, item.Type())
		}
		return elem, true
	case *Constant:
		if v.kind == KindList {
			return ElemKind(v.Value), true
		}
	}
	return KindInvalid, false
}

func (*Binary) FieldKind() FieldKind { return FieldBinary }
func (b *Binary) Type() Kind         { return b.kind }
func (b *Binary) Children() []Field  { return []Field{b.Left, b.Right} }
func (*Binary) isField()             {}

// Conditional selects IfTrue or IfFalse by Test.
type Conditional struct {
	aliasBase
	Test    Field
	IfTrue  Field
	IfFalse Field
	kind    Kind
}

// NewConditional requires a boolean test and compatible branches.
func NewConditional(test, ifTrue, ifFalse Field) (*Conditional, error) {
	if !isBool(test.Type()) {
		return nil, fmt.Errorf("%w: conditional test is %s", ErrTypeMismatch, test.Type())
	}
	if !Compatible(ifTrue.Type(), ifFalse.Type()) {
		return nil, fmt.Errorf("%w: conditional branches are %s and %s", ErrTypeMismatch, ifTrue.Type(), ifFalse.Type())
	}
	return &Conditional{Test: test, IfTrue: ifTrue, IfFalse: ifFalse, kind: Unify(ifTrue.Type(), ifFalse.Type())}, nil
}

func (*Conditional) FieldKind() FieldKind { return FieldConditional }
func (c *Conditional) Type() Kind         { return c.kind }
func (c *Conditional) Children() []Field  { return []Field{c.Test, c.IfTrue, c.IfFalse} }
func (*Conditional) isField()             {}

// SwitchCase is one arm of a Switch.
type SwitchCase struct {
	Body  Field
	Tests []Field
}

// Switch compares Value against each case's tests in order.
type Switch struct {
	aliasBase
	Value   Field
	Default Field
	Cases   []SwitchCase
	kind    Kind
}

// NewSwitch requires test values compatible with Value and compatible bodies.
// A nil default yields NULL when no case matches.
func NewSwitch(value Field, cases []SwitchCase, def Field) (*Switch, error) {
	if len(cases) == 0 {
		return nil, fmt.Errorf("%w: switch has no cases", ErrMalformedArgument)
	}
	result := KindNull
	if def != nil {
		result = def.Type()
	}
	for _, c := range cases {
		if len(c.Tests) == 0 {
			return nil, fmt.Errorf("%w: switch case has no test values", ErrMalformedArgument)
		}
		for _, test := range c.Tests {
			if !Compatible(value.Type(), test.Type()) {
				return nil, mismatch(EQ, value.Type(), test.Type())
			}
		}
		if !Compatible(result, c.Body.Type()) {
			return nil, fmt.Errorf("%w: switch bodies are %s and %s", ErrTypeMismatch, result, c.Body.Type())
		}
		result = Unify(result, c.Body.Type())
	}
	return &Switch{Value: value, Cases: cases, Default: def, kind: result}, nil
}

func (*Switch) FieldKind() FieldKind { return FieldSwitch }
func (s *Switch) Type() Kind         { return s.kind }
func (s *Switch) Children() []Field {
	children := []Field{s.Value}
	for _, c := range s.Cases {
		children = append(children, c.Tests...)
		children = append(children, c.Body)
	}
	if s.Default != nil {
		children = append(children, s.Default)
	}
	return children
}
func (*Switch) isField() {}

// Callee is the opaque descriptor of a database function. Dialects render it by name.
type Callee struct {
	Name      string
	Aggregate bool
}

// Method asks the dialect to render a function call.
type Method struct {
	aliasBase
	Callee   *Callee
	Receiver Field
	Args     []Field
	kind     Kind
}

// NewMethod builds a call node. Receiver may be nil for free functions.
func NewMethod(callee *Callee, kind Kind, receiver Field, args []Field) *Method {
	return &Method{Callee: callee, Receiver: receiver, Args: args, kind: kind}
}

func (*Method) FieldKind() FieldKind { return FieldMethod }
func (m *Method) Type() Kind         { return m.kind }
func (m *Method) Children() []Field {
	var children []Field
	if m.Receiver != nil {
		children = append(children, m.Receiver)
	}
	return append(children, m.Args...)
}
func (*Method) isField() {}

// Member asks the dialect to render a property access.
type Member struct {
	aliasBase
	Receiver Field
	Name     string
	kind     Kind
}

// NewMember builds a member access node. Receiver may be nil for static members.
func NewMember(name string, kind Kind, receiver Field) *Member {
	return &Member{Name: name, Receiver: receiver, kind: kind}
}

func (*Member) FieldKind() FieldKind { return FieldMember }
func (m *Member) Type() Kind         { return m.kind }
func (m *Member) Children() []Field {
	if m.Receiver == nil {
		return nil
	}
	return []Field{m.Receiver}
}
func (*Member) isField() {}

// Quote references a column or alias owned by another source by name.
type Quote struct {
	aliasBase
	Ref    *SourceRef
	Target Field
	Name   string
}

// NewQuote names target as it is visible through ref.
func NewQuote(ref *SourceRef, target Field, name string) *Quote {
	return &Quote{Ref: ref, Target: target, Name: name}
}

func (*Quote) FieldKind() FieldKind { return FieldQuote }
func (q *Quote) Type() Kind         { return q.Target.Type() }
func (*Quote) Children() []Field    { return nil }
func (*Quote) isField()             {}

// Subquery projects Field from Source as a scalar or set value.
type Subquery struct {
	aliasBase
	Field  Field
	Source DataSource
}

// NewSubquery wraps field and its owning source.
func NewSubquery(field Field, source DataSource) *Subquery {
	return &Subquery{Field: field, Source: source}
}

func (*Subquery) FieldKind() FieldKind { return FieldSubquery }
func (s *Subquery) Type() Kind         { return s.Field.Type() }
func (*Subquery) Children() []Field    { return nil }
func (*Subquery) isField()             {}

// Object is a named multi-column projection shape.
type Object struct {
	Constructor *Constructor
	Names       []string
	Fields      []Field
}

// NewObject pairs names with fields; lengths must match and names must be unique.
func NewObject(ctor *Constructor, names []string, fields []Field) (*Object, error) {
	if len(names) != len(fields) {
		return nil, fmt.Errorf("%w: object has %d names and %d fields", ErrMalformedArgument, len(names), len(fields))
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			return nil, fmt.Errorf("%w: object member %s declared twice", ErrMalformedArgument, n)
		}
		seen[n] = true
	}
	return &Object{Constructor: ctor, Names: names, Fields: fields}, nil
}

// Lookup returns the named sub-field.
func (o *Object) Lookup(name string) (Field, bool) {
	for i, n := range o.Names {
		if n == name {
			return o.Fields[i], true
		}
	}
	return nil, false
}

func (*Object) FieldKind() FieldKind { return FieldObject }
func (*Object) Type() Kind           { return KindObject }
func (o *Object) Children() []Field  { return o.Fields }
func (*Object) isField()             {}

// Collection is an ordered projection shape. Build, when set, turns the
// materialised items into a host value.
type Collection struct {
	Build  func(items []any) (any, error)
	Fields []Field
}

// NewCollection builds an ordered shape.
func NewCollection(fields []Field) *Collection {
	return &Collection{Fields: fields}
}

func (*Collection) FieldKind() FieldKind { return FieldCollection }
func (*Collection) Type() Kind           { return KindCollection }
func (c *Collection) Children() []Field  { return c.Fields }
func (*Collection) isField()             {}

// IsShape reports whether f is an Object or Collection.
func IsShape(f Field) bool {
	k := f.FieldKind()
	return k == FieldObject || k == FieldCollection
}

// CloneLeaf returns a shallow copy of a leaf with its alias cleared.
// Shapes are returned unchanged.
func CloneLeaf(f Field) Field {
	switch v := f.(type) {
	case *Original:
		c := *v
		c.alias = ""
		return &c
	case *Constant:
		c := *v
		c.alias = ""
		return &c
	case *Unary:
		c := *v
		c.alias = ""
		return &c
	case *Binary:
		c := *v
		c.alias = ""
		return &c
	case *Conditional:
		c := *v
		c.alias = ""
		return &c
	case *Switch:
		c := *v
		c.alias = ""
		return &c
	case *Method:
		c := *v
		c.alias = ""
		return &c
	case *Member:
		c := *v
		c.alias = ""
		return &c
	case *Quote:
		c := *v
		c.alias = ""
		return &c
	case *Subquery:
		c := *v
		c.alias = ""
		return &c
	}
	return f
}

func isBool(k Kind) bool    { return k == KindBool || k == KindAny }
func isNumeric(k Kind) bool { return k.IsNumeric() || k == KindAny }
func isText(k Kind) bool    { return k.IsText() || k == KindAny }

func mismatch(op Operator, kinds ...Kind) error {
	if len(kinds) == 1 {
		return fmt.Errorf("%w: %s does not accept %s", ErrTypeMismatch, op, kinds[0])
	}
	return fmt.Errorf("%w: %s does not accept %s and %s", ErrTypeMismatch, op, kinds[0], kinds[1])
}

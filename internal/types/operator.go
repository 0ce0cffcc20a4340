package types

// Operator is the canonical operation tag carried by Unary and Binary fields.
type Operator string

const (
	// Arithmetic operators.
	Add Operator = "+"
	Sub Operator = "-"
	Mul Operator = "*"
	Div Operator = "/"
	Mod Operator = "%"

	// Bitwise operators; on booleans they behave as non-short-circuit logic.
	BitAnd Operator = "&"
	BitOr  Operator = "|"
	BitXor Operator = "^"

	// Logical operators.
	AndAlso Operator = "AND"
	OrElse  Operator = "OR"

	// Comparison operators.
	EQ Operator = "="
	NE Operator = "<>"
	LT Operator = "<"
	LE Operator = "<="
	GT Operator = ">"
	GE Operator = ">="

	// Extended operators.
	Coalesce Operator = "COALESCE"
	IN       Operator = "IN"

	// Unary operators.
	Not     Operator = "NOT"
	Negate  Operator = "NEGATE"
	Convert Operator = "CAST"
	Exists  Operator = "EXISTS"
)

// OperatorFamily groups operators by the operand kinds they accept.
type OperatorFamily int

const (
	FamilyUnknown OperatorFamily = iota
	FamilyArithmetic
	FamilyBitwise
	FamilyLogical
	FamilyEquality
	FamilyOrdering
	FamilyCoalesce
	FamilySet
	FamilyUnary
)

// Family returns the operator's family.
func (o Operator) Family() OperatorFamily {
	switch o {
	case Add, Sub, Mul, Div, Mod:
		return FamilyArithmetic
	case BitAnd, BitOr, BitXor:
		return FamilyBitwise
	case AndAlso, OrElse:
		return FamilyLogical
	case EQ, NE:
		return FamilyEquality
	case LT, LE, GT, GE:
		return FamilyOrdering
	case Coalesce:
		return FamilyCoalesce
	case IN:
		return FamilySet
	case Not, Negate, Convert, Exists:
		return FamilyUnary
	}
	return FamilyUnknown
}

// IsPredicate reports whether the operator always yields a boolean condition.
func (o Operator) IsPredicate() bool {
	switch o.Family() {
	case FamilyLogical, FamilyEquality, FamilyOrdering, FamilySet:
		return true
	}
	return o == Not || o == Exists
}

package types

import "errors"

// Error taxonomy. Every error raised while translating or composing a query
// wraps exactly one of these; no partial AST is returned alongside an error.
var (
	// ErrUnsupportedExpression is returned for expression shapes with no translation rule.
	ErrUnsupportedExpression = errors.New("unsupported expression")

	// ErrUnresolvedParameter is returned when a parameter has no binding in scope.
	ErrUnresolvedParameter = errors.New("unresolved parameter")

	// ErrAmbiguousSchema is returned for schemas declaring more than one primary key
	// or autoincrement column.
	ErrAmbiguousSchema = errors.New("ambiguous schema")

	// ErrMissingField is returned when a statement needs a field that does not exist,
	// such as a primary key for key-based updates or any insertable column.
	ErrMissingField = errors.New("missing required field")

	// ErrTypeMapping is returned when a host or column type has no canonical kind.
	ErrTypeMapping = errors.New("type mapping failure")

	// ErrMalformedArgument is returned for arguments that must be compile-time
	// constants or have a fixed shape, such as paging bounds and join lambdas.
	ErrMalformedArgument = errors.New("malformed argument")

	// ErrTypeMismatch is returned by Field constructors when operand kinds are
	// outside the operator's family.
	ErrTypeMismatch = errors.New("type mismatch")
)

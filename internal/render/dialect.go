package render

import (
	"github.com/zoobzio/composql/internal/types"
)

// Dialect supplies the SQL fragments that differ between databases.
// Generate asks it for every such fragment while walking a statement.
type Dialect interface {
	// Name identifies the dialect in errors and logs.
	Name() string
	Capabilities() Capabilities

	// Quote quotes an identifier.
	Quote(identifier string) string
	// Placeholder returns the marker of the parameter at 1-based position.
	Placeholder(position int) string

	// Concat joins text expressions.
	Concat(parts ...string) string
	// Cast converts expr to kind.
	Cast(expr string, kind types.Kind) (string, error)
	// Call renders a function, method or property the dialect spells its
	// own way. It reports false to fall back to the standard spelling.
	Call(name string, args []string) (string, bool)
	// Paginate renders the row range clause. ordered tells whether an
	// ORDER BY was already written.
	Paginate(l types.Limit, ordered bool) string

	// ModifyTarget renders the head of an UPDATE or DELETE on table under
	// alias and, for dialects naming the table in a FROM clause, the tail
	// written after the SET list.
	ModifyTarget(kind types.StatementKind, table, alias string) (head, tail string)
}

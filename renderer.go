package composql

import "github.com/zoobzio/composql/internal/types"

// Renderer defines the interface for SQL dialect-specific rendering.
// Implementations convert a finished statement to SQL with positional parameters.
type Renderer interface {
	// Render dispatches on the statement kind.
	Render(stmt types.Statement) (*types.QueryResult, error)

	RenderSelect(stmt *types.SelectStatement) (*types.QueryResult, error)
	RenderInsert(stmt *types.InsertStatement) (*types.QueryResult, error)
	RenderUpdate(stmt *types.UpdateStatement) (*types.QueryResult, error)
	RenderDelete(stmt *types.DeleteStatement) (*types.QueryResult, error)
}

// Render builds q's SELECT and renders it with r.
func Render(q *Query, r Renderer) (*QueryResult, error) {
	stmt, err := q.Statement()
	if err != nil {
		return nil, err
	}
	return r.RenderSelect(stmt)
}

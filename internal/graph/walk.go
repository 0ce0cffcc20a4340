package graph

import "github.com/zoobzio/composql/internal/types"

// Walk visits f and its same-scope descendants in pre-order. Returning false
// from visit skips the node's children.
func Walk(f types.Field, visit func(types.Field) bool) {
	if f == nil || !visit(f) {
		return
	}
	for _, child := range f.Children() {
		Walk(child, visit)
	}
}

// ContainsAggregate reports whether f calls an aggregate function in its own scope.
func ContainsAggregate(f types.Field) bool {
	found := false
	Walk(f, func(n types.Field) bool {
		if m, ok := n.(*types.Method); ok && m.Callee.Aggregate {
			found = true
		}
		return !found
	})
	return found
}

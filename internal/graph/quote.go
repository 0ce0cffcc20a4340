package graph

import "github.com/zoobzio/composql/internal/types"

// ToQuote rebinds field to target. Aliased leaves become quotes of their
// alias through target, unaliased Originals become quotes of their column
// through target, and other unnamed leaves are kept. Shared leaves map to one
// quote.
func ToQuote(field types.Field, target types.DataSource) types.Field {
	return Rebind(field, target.Ref())
}

// Rebind is ToQuote for a target identified only by its alias handle, used
// while the target source is still being built.
func Rebind(field types.Field, ref *types.SourceRef) types.Field {
	return rewriteLeaves(field, func(l types.Leaf) types.Field {
		switch {
		case l.Alias() != "":
			return types.NewQuote(ref, l, l.Alias())
		case l.FieldKind() == types.FieldOriginal:
			return types.NewQuote(ref, l, l.(*types.Original).Column.Name)
		}
		return l
	})
}

// Qualify replaces the Originals among the leaves of field by quotes of
// their column through the source that owns them. It is used to reference a
// shape from another scope, where projected leaves stay inline.
func Qualify(field types.Field) types.Field {
	return rewriteLeaves(field, func(l types.Leaf) types.Field {
		if o, ok := l.(*types.Original); ok {
			return types.NewQuote(o.Ref, o, o.Column.Name)
		}
		return l
	})
}

func rewriteLeaves(field types.Field, leaf func(types.Leaf) types.Field) types.Field {
	memo := make(map[types.Field]types.Field)
	var rewrite func(types.Field) types.Field
	rewrite = func(f types.Field) types.Field {
		if cp, ok := memo[f]; ok {
			return cp
		}
		var cp types.Field
		switch v := f.(type) {
		case *types.Object:
			fields := make([]types.Field, len(v.Fields))
			for i, child := range v.Fields {
				fields[i] = rewrite(child)
			}
			cp = &types.Object{Constructor: v.Constructor, Names: v.Names, Fields: fields}
		case *types.Collection:
			fields := make([]types.Field, len(v.Fields))
			for i, child := range v.Fields {
				fields[i] = rewrite(child)
			}
			cp = &types.Collection{Build: v.Build, Fields: fields}
		case types.Leaf:
			cp = leaf(v)
		default:
			cp = f
		}
		memo[f] = cp
		return cp
	}
	return rewrite(field)
}

// Subqueries promotes fields to subqueries over their owning source. Repeated
// conversions of the same field and source return the same node.
type Subqueries struct {
	memo map[subqueryKey]types.Field
}

type subqueryKey struct {
	field  types.Field
	source types.DataSource
}

// NewSubqueries returns an empty conversion memo.
func NewSubqueries() *Subqueries {
	return &Subqueries{memo: make(map[subqueryKey]types.Field)}
}

// Convert wraps a leaf into a Subquery over source. Objects and Collections
// are converted leaf by leaf.
func (s *Subqueries) Convert(field types.Field, source types.DataSource) types.Field {
	key := subqueryKey{field: field, source: source}
	if cp, ok := s.memo[key]; ok {
		return cp
	}
	var cp types.Field
	switch v := field.(type) {
	case *types.Object:
		fields := make([]types.Field, len(v.Fields))
		for i, child := range v.Fields {
			fields[i] = s.Convert(child, source)
		}
		cp = &types.Object{Constructor: v.Constructor, Names: v.Names, Fields: fields}
	case *types.Collection:
		fields := make([]types.Field, len(v.Fields))
		for i, child := range v.Fields {
			fields[i] = s.Convert(child, source)
		}
		cp = &types.Collection{Build: v.Build, Fields: fields}
	default:
		cp = types.NewSubquery(field, source)
	}
	s.memo[key] = cp
	return cp
}

package graph

import (
	"strconv"

	"github.com/zoobzio/composql/internal/types"
)

// FieldAliasPrefix prefixes generated projection aliases.
const FieldAliasPrefix = "f"

// AssignFieldAliases names every distinct leaf of shape f0, f1, ... in
// post-order and returns the leaves in that order. A leaf reached twice is
// named once. Leaves that already carry an alias keep it; callers alias
// shapes produced by CloneShape.
func AssignFieldAliases(shape types.Field) []types.Leaf {
	seen := make(map[types.Field]bool)
	var leaves []types.Leaf
	var walk func(types.Field)
	walk = func(f types.Field) {
		switch v := f.(type) {
		case *types.Object:
			for _, child := range v.Fields {
				walk(child)
			}
		case *types.Collection:
			for _, child := range v.Fields {
				walk(child)
			}
		default:
			if seen[f] {
				return
			}
			seen[f] = true
			leaf, ok := f.(types.Leaf)
			if !ok {
				return
			}
			types.SetAlias(leaf, FieldAliasPrefix+strconv.Itoa(len(leaves)))
			leaves = append(leaves, leaf)
		}
	}
	walk(shape)
	return leaves
}

// CloneShape rebuilds the Object/Collection spine of shape and replaces each
// distinct leaf by an unaliased copy. A leaf shared within the shape maps to
// one copy.
func CloneShape(shape types.Field) types.Field {
	memo := make(map[types.Field]types.Field)
	var clone func(types.Field) types.Field
	clone = func(f types.Field) types.Field {
		if cp, ok := memo[f]; ok {
			return cp
		}
		var cp types.Field
		switch v := f.(type) {
		case *types.Object:
			fields := make([]types.Field, len(v.Fields))
			for i, child := range v.Fields {
				fields[i] = clone(child)
			}
			cp = &types.Object{Constructor: v.Constructor, Names: append([]string(nil), v.Names...), Fields: fields}
		case *types.Collection:
			fields := make([]types.Field, len(v.Fields))
			for i, child := range v.Fields {
				fields[i] = clone(child)
			}
			cp = &types.Collection{Build: v.Build, Fields: fields}
		default:
			cp = types.CloneLeaf(f)
		}
		memo[f] = cp
		return cp
	}
	return clone(shape)
}

// Leaves returns the distinct leaves of shape in post-order.
func Leaves(shape types.Field) []types.Field {
	seen := make(map[types.Field]bool)
	var out []types.Field
	var walk func(types.Field)
	walk = func(f types.Field) {
		switch v := f.(type) {
		case *types.Object:
			for _, child := range v.Fields {
				walk(child)
			}
		case *types.Collection:
			for _, child := range v.Fields {
				walk(child)
			}
		default:
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	walk(shape)
	return out
}

// AliasShape clones shape and names its leaves.
func AliasShape(shape types.Field) types.Field {
	cp := CloneShape(shape)
	AssignFieldAliases(cp)
	return cp
}

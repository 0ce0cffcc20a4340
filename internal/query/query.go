// Package query translates caller lambdas into Field ASTs and composes them
// into immutable Query values.
package query

import (
	"fmt"

	"github.com/zoobzio/composql/expr"
	"github.com/zoobzio/composql/internal/types"
)

// side is one named member of an unprojected join composition.
type side struct {
	source types.DataSource
	shape  types.Field
	name   string
}

// Query is an immutable query value. Every chain call returns a new Query and
// leaves the receiver untouched. The first failing call stores its error;
// later calls return the failed value unchanged.
type Query struct {
	source types.DataSource
	err    error
	sides  []side
	next   int
}

// owns reports whether ref is the handle of q's source or one of its sides.
func (q *Query) owns(ref *types.SourceRef) bool {
	if q.source.Ref() == ref {
		return true
	}
	for _, s := range q.sides {
		if s.source.Ref() == ref {
			return true
		}
	}
	return false
}

// shared reports whether a and b scan through a common alias handle.
func shared(a, b *Query) bool {
	if a.owns(b.source.Ref()) {
		return true
	}
	for _, s := range b.sides {
		if a.owns(s.source.Ref()) {
			return true
		}
	}
	return false
}

// From starts a query scanning the table described by schema.
func From(schema *types.Schema) *Query {
	if err := schema.Validate(); err != nil {
		return &Query{err: err}
	}
	return &Query{source: types.NewTable(schema, types.NewSourceRef(0)), next: 1}
}

// IsQueryValue marks Query as a nested query value for constants.
func (*Query) IsQueryValue() {}

// Err returns the first error raised while building q.
func (q *Query) Err() error { return q.err }

// Source returns the composed data source.
func (q *Query) Source() types.DataSource { return q.source }

// Next returns the next free alias index of q's alias space.
func (q *Query) Next() int { return q.next }

// Sides returns the side names of an unprojected join composition.
func (q *Query) Sides() []string {
	names := make([]string, len(q.sides))
	for i, s := range q.sides {
		names[i] = s.name
	}
	return names
}

func (q *Query) fail(err error) *Query {
	return &Query{source: q.source, sides: q.sides, next: q.next, err: err}
}

// apply runs op in a fresh translation over q's alias space.
func (q *Query) apply(op func(*translator) (*Query, error)) *Query {
	if q.err != nil {
		return q
	}
	tr := newTranslator(q.next)
	out, err := op(tr)
	if err != nil {
		return q.fail(err)
	}
	out.next = tr.next
	return out
}

// Select projects each row through l. Projected leaves are named f0, f1, ...
// in post-order; a leaf that already belongs to the source, such as a table
// column, is projected through an aliased clone so the source's own field
// stays unnamed.
func (q *Query) Select(l *expr.LambdaExpr) *Query {
	return q.apply(func(tr *translator) (*Query, error) { return tr.selectOp(q, l) })
}

// Where filters rows by l. After GroupBy the condition applies to groups.
func (q *Query) Where(l *expr.LambdaExpr) *Query {
	return q.apply(func(tr *translator) (*Query, error) { return tr.where(q, l) })
}

// OrderBy replaces the ordering with ascending l.
func (q *Query) OrderBy(l *expr.LambdaExpr) *Query {
	return q.apply(func(tr *translator) (*Query, error) { return tr.orderBy(q, l, false, true) })
}

// OrderByDescending replaces the ordering with descending l.
func (q *Query) OrderByDescending(l *expr.LambdaExpr) *Query {
	return q.apply(func(tr *translator) (*Query, error) { return tr.orderBy(q, l, true, true) })
}

// ThenBy appends ascending l to the ordering.
func (q *Query) ThenBy(l *expr.LambdaExpr) *Query {
	return q.apply(func(tr *translator) (*Query, error) { return tr.orderBy(q, l, false, false) })
}

// ThenByDescending appends descending l to the ordering.
func (q *Query) ThenByDescending(l *expr.LambdaExpr) *Query {
	return q.apply(func(tr *translator) (*Query, error) { return tr.orderBy(q, l, true, false) })
}

// GroupBy groups rows by the key l selects. Object keys group by every member.
func (q *Query) GroupBy(l *expr.LambdaExpr) *Query {
	return q.apply(func(tr *translator) (*Query, error) { return tr.groupBy(q, l) })
}

// Join inner-joins other on l. l takes one parameter per side of q followed
// by one for other, or two parameters when q is itself a join composition.
func (q *Query) Join(other *Query, on *expr.LambdaExpr) *Query {
	return q.join(types.JoinInner, other, on)
}

// InnerJoin is Join.
func (q *Query) InnerJoin(other *Query, on *expr.LambdaExpr) *Query {
	return q.join(types.JoinInner, other, on)
}

// LeftJoin left-joins other on l.
func (q *Query) LeftJoin(other *Query, on *expr.LambdaExpr) *Query {
	return q.join(types.JoinLeft, other, on)
}

// RightJoin right-joins other on l.
func (q *Query) RightJoin(other *Query, on *expr.LambdaExpr) *Query {
	return q.join(types.JoinRight, other, on)
}

// FullJoin full-joins other on l.
func (q *Query) FullJoin(other *Query, on *expr.LambdaExpr) *Query {
	return q.join(types.JoinFull, other, on)
}

// CrossJoin pairs every row of q with every row of other.
func (q *Query) CrossJoin(other *Query) *Query {
	return q.join(types.JoinCross, other, nil)
}

func (q *Query) join(kind types.JoinKind, other *Query, on *expr.LambdaExpr) *Query {
	return q.apply(func(tr *translator) (*Query, error) { return tr.join(q, kind, other, on) })
}

// Skip drops the first n rows.
func (q *Query) Skip(n int) *Query {
	return q.Limit(n, -1)
}

// Take keeps at most n rows.
func (q *Query) Take(n int) *Query {
	return q.Limit(0, n)
}

// Limit keeps count rows starting at start; a negative count is unbounded.
// Limits compose by intersecting the selected ranges.
func (q *Query) Limit(start, count int) *Query {
	return q.apply(func(tr *translator) (*Query, error) {
		if start < 0 {
			return nil, fmt.Errorf("%w: negative start %d", types.ErrMalformedArgument, start)
		}
		l := types.Offset(start)
		if count >= 0 {
			l = types.Range(start, count)
		}
		return tr.limit(q, l), nil
	})
}

// Distinct removes duplicate rows.
func (q *Query) Distinct() *Query {
	return q.apply(func(tr *translator) (*Query, error) { return tr.distinct(q), nil })
}

// Union combines q and other without duplicates.
func (q *Query) Union(other *Query) *Query { return q.union(types.Union, other) }

// UnionAll combines q and other keeping duplicates.
func (q *Query) UnionAll(other *Query) *Query { return q.union(types.UnionAll, other) }

// Intersect keeps rows present in both q and other.
func (q *Query) Intersect(other *Query) *Query { return q.union(types.Intersect, other) }

// Except keeps rows of q absent from other.
func (q *Query) Except(other *Query) *Query { return q.union(types.Except, other) }

func (q *Query) union(kind types.UnionKind, other *Query) *Query {
	return q.apply(func(tr *translator) (*Query, error) { return tr.union(q, kind, other) })
}

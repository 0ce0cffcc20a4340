// Package graph holds the identity-keyed rewriting passes over Field and
// DataSource graphs: deep copy with alias renumbering, projection aliasing,
// quoting and subquery conversion.
package graph

import "github.com/zoobzio/composql/internal/types"

// Copier deep-copies source and field graphs. Each node is copied once;
// repeat visits return the memoised copy, so sharing in the original graph
// is preserved in the copy. Alias handles get fresh indices from the start
// index upward in visiting order.
type Copier struct {
	refs    map[*types.SourceRef]*types.SourceRef
	sources map[types.DataSource]types.DataSource
	fields  map[types.Field]types.Field
	start   int
	next    int
}

// NewCopier returns a copier allocating alias indices from start.
func NewCopier(start int) *Copier {
	return &Copier{
		refs:    make(map[*types.SourceRef]*types.SourceRef),
		sources: make(map[types.DataSource]types.DataSource),
		fields:  make(map[types.Field]types.Field),
		start:   start,
		next:    start,
	}
}

// Next returns the next free alias index.
func (c *Copier) Next() int { return c.next }

// Copied returns the number of alias handles allocated so far.
func (c *Copier) Copied() int { return c.next - c.start }

// Ref returns the copy of r, allocating a new index on first visit.
func (c *Copier) Ref(r *types.SourceRef) *types.SourceRef {
	if r == nil {
		return nil
	}
	if cp, ok := c.refs[r]; ok {
		return cp
	}
	cp := types.NewSourceRef(c.next)
	c.next++
	c.refs[r] = cp
	return cp
}

// Source returns the deep copy of s.
func (c *Copier) Source(s types.DataSource) types.DataSource {
	if s == nil {
		return nil
	}
	if cp, ok := c.sources[s]; ok {
		return cp
	}
	cp := types.RebuildSource(s, c)
	c.sources[s] = cp
	return cp
}

// Field returns the deep copy of f.
func (c *Copier) Field(f types.Field) types.Field {
	if f == nil {
		return nil
	}
	if cp, ok := c.fields[f]; ok {
		return cp
	}
	cp := types.RebuildField(f, c)
	c.fields[f] = cp
	return cp
}

// Lookup returns the copy already made of s, if any.
func (c *Copier) Lookup(s types.DataSource) (types.DataSource, bool) {
	cp, ok := c.sources[s]
	return cp, ok
}

package types

import "fmt"

// Limit is a row range. A zero Limit selects every row.
type Limit struct {
	Start    int
	Count    int
	HasCount bool
}

// Range returns a bounded limit.
func Range(start, count int) Limit {
	return Limit{Start: start, Count: count, HasCount: true}
}

// Offset returns an unbounded limit starting at start.
func Offset(start int) Limit {
	return Limit{Start: start}
}

// IsZero reports whether l selects every row.
func (l Limit) IsZero() bool {
	return l.Start == 0 && !l.HasCount
}

// Compose intersects next with l, where next counts rows of the range l selects.
func (l Limit) Compose(next Limit) Limit {
	out := Limit{Start: l.Start + next.Start}
	switch {
	case l.HasCount && next.HasCount:
		out.Count, out.HasCount = min(l.Count-next.Start, next.Count), true
	case l.HasCount:
		out.Count, out.HasCount = l.Count-next.Start, true
	case next.HasCount:
		out.Count, out.HasCount = next.Count, true
	}
	if out.HasCount && out.Count < 0 {
		out.Count = 0
	}
	return out
}

func (l Limit) String() string {
	if !l.HasCount {
		return fmt.Sprintf("(%d,∞)", l.Start)
	}
	return fmt.Sprintf("(%d,%d)", l.Start, l.Count)
}

func shallow(s DataSource) (DataSource, *sourceBase) {
	c := s.clone()
	return c, c.base()
}

// AddWhere conjoins cond with the existing where clause of a copy of s.
func AddWhere(s DataSource, cond Field) (DataSource, error) {
	combined, err := conjoin(s.Where(), cond)
	if err != nil {
		return nil, err
	}
	c, b := shallow(s)
	b.where = combined
	return c, nil
}

// AddHaving conjoins cond with the existing having clause of a copy of s.
func AddHaving(s DataSource, cond Field) (DataSource, error) {
	combined, err := conjoin(s.Having(), cond)
	if err != nil {
		return nil, err
	}
	c, b := shallow(s)
	b.having = combined
	return c, nil
}

func conjoin(existing, cond Field) (Field, error) {
	if !isBool(cond.Type()) {
		return nil, fmt.Errorf("%w: condition is %s", ErrTypeMismatch, cond.Type())
	}
	if existing == nil {
		return cond, nil
	}
	return NewBinary(AndAlso, existing, cond)
}

// AddSort appends an ordering term to a copy of s.
func AddSort(s DataSource, item SortItem) DataSource {
	c, b := shallow(s)
	sorts := make([]SortItem, len(b.sorts), len(b.sorts)+1)
	copy(sorts, b.sorts)
	b.sorts = append(sorts, item)
	return c
}

// ClearSort drops every ordering term from a copy of s.
func ClearSort(s DataSource) DataSource {
	c, b := shallow(s)
	b.sorts = nil
	return c
}

// SetSorts replaces the ordering of a copy of s.
func SetSorts(s DataSource, sorts []SortItem) DataSource {
	c, b := shallow(s)
	b.sorts = sorts
	return c
}

// AddGroup appends grouping fields to a copy of s.
func AddGroup(s DataSource, fields ...Field) DataSource {
	c, b := shallow(s)
	groups := make([]Field, len(b.groups), len(b.groups)+len(fields))
	copy(groups, b.groups)
	b.groups = append(groups, fields...)
	return c
}

// AddLimit intersects l with the limit of a copy of s.
func AddLimit(s DataSource, l Limit) DataSource {
	c, b := shallow(s)
	b.limit = b.limit.Compose(l)
	return c
}

// SetSelect replaces the projection of a copy of s. A nil field selects the root.
func SetSelect(s DataSource, f Field) DataSource {
	c, b := shallow(s)
	b.selected = f
	return c
}

// SetDistinct flags a copy of s as distinct.
func SetDistinct(s DataSource, distinct bool) DataSource {
	c, b := shallow(s)
	b.distinct = distinct
	return c
}

package types

import (
	"fmt"
	"strconv"
)

// SourceRef is the alias handle of a data source. Shallow copies of a source
// share its handle, so fields bound to the source stay bound as clauses accrue.
type SourceRef struct {
	index int
}

// NewSourceRef returns a handle for alias index.
func NewSourceRef(index int) *SourceRef {
	return &SourceRef{index: index}
}

// Index returns the alias index.
func (r *SourceRef) Index() int { return r.index }

// Alias returns the textual alias derived from the index.
func (r *SourceRef) Alias() string { return "t" + strconv.Itoa(r.index) }

func (r *SourceRef) String() string { return r.Alias() }

// SourceKind tags the node type of a DataSource.
type SourceKind int

const (
	SourceTable SourceKind = iota
	SourceJoin
	SourceUnion
	SourceResult
)

func (k SourceKind) String() string {
	switch k {
	case SourceTable:
		return "Table"
	case SourceJoin:
		return "Join"
	case SourceUnion:
		return "Union"
	case SourceResult:
		return "Result"
	}
	return fmt.Sprintf("SourceKind(%d)", int(k))
}

// SortItem is one ORDER BY term.
type SortItem struct {
	Field      Field
	Descending bool
}

// DataSource describes a queryable origin together with its accumulated clauses.
// A source returned to a caller is never mutated; composition works on copies.
type DataSource interface {
	SourceKind() SourceKind
	Ref() *SourceRef
	// Root is the natural shape of the source.
	Root() Field
	// Select is the current projection, nil when the root is selected.
	Select() Field
	// Shape is the projection when set, otherwise the root.
	Shape() Field
	Where() Field
	Having() Field
	Sorts() []SortItem
	Groups() []Field
	Limit() Limit
	Distinct() bool
	base() *sourceBase
	clone() DataSource
}

type sourceBase struct {
	ref      *SourceRef
	root     Field
	selected Field
	where    Field
	having   Field
	sorts    []SortItem
	groups   []Field
	limit    Limit
	distinct bool
}

func (b *sourceBase) Ref() *SourceRef   { return b.ref }
func (b *sourceBase) Root() Field       { return b.root }
func (b *sourceBase) Select() Field     { return b.selected }
func (b *sourceBase) Where() Field      { return b.where }
func (b *sourceBase) Having() Field     { return b.having }
func (b *sourceBase) Sorts() []SortItem { return b.sorts }
func (b *sourceBase) Groups() []Field   { return b.groups }
func (b *sourceBase) Limit() Limit      { return b.limit }
func (b *sourceBase) Distinct() bool    { return b.distinct }
func (b *sourceBase) base() *sourceBase { return b }

func (b *sourceBase) Shape() Field {
	if b.selected != nil {
		return b.selected
	}
	return b.root
}

// IsPlain reports whether s carries no clause at all, so it can be referenced
// directly from a FROM list.
func IsPlain(s DataSource) bool {
	b := s.base()
	return b.where == nil && b.having == nil && len(b.groups) == 0 && b.limit.IsZero() &&
		!b.distinct && b.selected == nil && len(b.sorts) == 0
}

// Index is a simple single-column index descriptor.
type Index struct {
	Field     *Original
	Direction IndexDirection
}

// TableSource is a schema-bound table or view.
type TableSource struct {
	sourceBase
	Schema    *Schema
	Key       *Original
	Increment *Original
	Indexes   []Index
}

// NewTable builds a table scan over schema under ref. The root is an Object
// of Original fields in column order.
func NewTable(schema *Schema, ref *SourceRef) *TableSource {
	t := &TableSource{Schema: schema}
	t.ref = ref
	names := make([]string, len(schema.Columns))
	fields := make([]Field, len(schema.Columns))
	for i := range schema.Columns {
		col := &schema.Columns[i]
		o := NewOriginal(col, ref)
		names[i] = col.Name
		fields[i] = o
		if col.PrimaryKey {
			t.Key = o
		}
		if col.AutoIncrement {
			t.Increment = o
		}
		if col.Index != IndexNone {
			t.Indexes = append(t.Indexes, Index{Field: o, Direction: col.Index})
		}
	}
	t.root = &Object{Constructor: schema.Constructor, Names: names, Fields: fields}
	return t
}

// IsView reports whether the schema describes a view.
func (t *TableSource) IsView() bool { return t.Schema.View }

// Column returns the Original bound to the named column.
func (t *TableSource) Column(name string) (*Original, bool) {
	obj, ok := t.root.(*Object)
	if !ok {
		return nil, false
	}
	f, ok := obj.Lookup(name)
	if !ok {
		return nil, false
	}
	o, ok := f.(*Original)
	return o, ok
}

// Columns returns the Original fields in column order.
func (t *TableSource) Columns() []*Original {
	obj, ok := t.root.(*Object)
	if !ok {
		return nil
	}
	cols := make([]*Original, 0, len(obj.Fields))
	for _, f := range obj.Fields {
		if o, ok := f.(*Original); ok {
			cols = append(cols, o)
		}
	}
	return cols
}

func (*TableSource) SourceKind() SourceKind { return SourceTable }
func (t *TableSource) clone() DataSource {
	c := *t
	return &c
}

// JoinKind is the SQL join type.
type JoinKind int

const (
	JoinInner JoinKind = iota
	JoinLeft
	JoinRight
	JoinFull
	JoinCross
)

func (k JoinKind) String() string {
	switch k {
	case JoinInner:
		return "INNER JOIN"
	case JoinLeft:
		return "LEFT JOIN"
	case JoinRight:
		return "RIGHT JOIN"
	case JoinFull:
		return "FULL JOIN"
	case JoinCross:
		return "CROSS JOIN"
	}
	return fmt.Sprintf("JoinKind(%d)", int(k))
}

// JoinSource combines a left source (possibly another join) with a right source.
type JoinSource struct {
	sourceBase
	Left  DataSource
	Right DataSource
	On    Field
	Kind  JoinKind
}

// NewJoin builds a join. root is the composition shape presented to callers.
func NewJoin(ref *SourceRef, kind JoinKind, left, right DataSource, on, root Field) (*JoinSource, error) {
	if kind == JoinCross {
		if on != nil {
			return nil, fmt.Errorf("%w: cross join takes no condition", ErrMalformedArgument)
		}
	} else if on == nil || !isBool(on.Type()) {
		return nil, fmt.Errorf("%w: join condition must be boolean", ErrMalformedArgument)
	}
	j := &JoinSource{Left: left, Right: right, On: on, Kind: kind}
	j.ref = ref
	j.root = root
	return j, nil
}

func (*JoinSource) SourceKind() SourceKind { return SourceJoin }
func (j *JoinSource) clone() DataSource {
	c := *j
	return &c
}

// UnionKind is the set operation combining two queries.
type UnionKind int

const (
	Union UnionKind = iota
	UnionAll
	Intersect
	Except
)

func (k UnionKind) String() string {
	switch k {
	case Union:
		return "UNION"
	case UnionAll:
		return "UNION ALL"
	case Intersect:
		return "INTERSECT"
	case Except:
		return "EXCEPT"
	}
	return fmt.Sprintf("UnionKind(%d)", int(k))
}

// UnionSource combines two queries with a set operation.
type UnionSource struct {
	sourceBase
	Main      DataSource
	Affiliate DataSource
	Kind      UnionKind
}

// NewUnion builds a set operation. root must quote main's projection through ref.
func NewUnion(ref *SourceRef, kind UnionKind, main, affiliate DataSource, root Field) *UnionSource {
	u := &UnionSource{Main: main, Affiliate: affiliate, Kind: kind}
	u.ref = ref
	u.root = root
	return u
}

func (*UnionSource) SourceKind() SourceKind { return SourceUnion }
func (u *UnionSource) clone() DataSource {
	c := *u
	return &c
}

// ResultSource wraps an inner query as a derived table.
type ResultSource struct {
	sourceBase
	Inner DataSource
}

// NewResult wraps inner. root must quote inner's projection through ref.
func NewResult(ref *SourceRef, inner DataSource, root Field) *ResultSource {
	r := &ResultSource{Inner: inner}
	r.ref = ref
	r.root = root
	return r
}

func (*ResultSource) SourceKind() SourceKind { return SourceResult }
func (r *ResultSource) clone() DataSource {
	c := *r
	return &c
}

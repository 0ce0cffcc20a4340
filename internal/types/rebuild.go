package types

// Mapper supplies the replacement for each child while a node is rebuilt.
type Mapper interface {
	Field(Field) Field
	Source(DataSource) DataSource
	Ref(*SourceRef) *SourceRef
}

// RebuildField returns a copy of f whose children are replaced through m.
// Aliases and kinds carry over unchanged.
func RebuildField(f Field, m Mapper) Field {
	switch v := f.(type) {
	case *Original:
		c := *v
		c.Ref = m.Ref(v.Ref)
		return &c
	case *Constant:
		c := *v
		return &c
	case *Unary:
		c := *v
		c.Operand = m.Field(v.Operand)
		return &c
	case *Binary:
		c := *v
		c.Left = m.Field(v.Left)
		c.Right = m.Field(v.Right)
		return &c
	case *Conditional:
		c := *v
		c.Test = m.Field(v.Test)
		c.IfTrue = m.Field(v.IfTrue)
		c.IfFalse = m.Field(v.IfFalse)
		return &c
	case *Switch:
		c := *v
		c.Value = m.Field(v.Value)
		c.Cases = make([]SwitchCase, len(v.Cases))
		for i, sc := range v.Cases {
			c.Cases[i] = SwitchCase{Tests: mapFields(sc.Tests, m), Body: m.Field(sc.Body)}
		}
		if v.Default != nil {
			c.Default = m.Field(v.Default)
		}
		return &c
	case *Method:
		c := *v
		if v.Receiver != nil {
			c.Receiver = m.Field(v.Receiver)
		}
		c.Args = mapFields(v.Args, m)
		return &c
	case *Member:
		c := *v
		if v.Receiver != nil {
			c.Receiver = m.Field(v.Receiver)
		}
		return &c
	case *Quote:
		c := *v
		c.Ref = m.Ref(v.Ref)
		c.Target = m.Field(v.Target)
		return &c
	case *Subquery:
		c := *v
		c.Source = m.Source(v.Source)
		c.Field = m.Field(v.Field)
		return &c
	case *Object:
		c := *v
		c.Names = append([]string(nil), v.Names...)
		c.Fields = mapFields(v.Fields, m)
		return &c
	case *Collection:
		c := *v
		c.Fields = mapFields(v.Fields, m)
		return &c
	}
	return f
}

// RebuildSource returns a copy of s whose sub-sources, fields and handle are
// replaced through m. Sub-sources are mapped before the handle, so handles of
// a copied join are allocated left to right with the join's own last.
func RebuildSource(s DataSource, m Mapper) DataSource {
	var c DataSource
	switch v := s.(type) {
	case *TableSource:
		t := *v
		t.ref = m.Ref(v.ref)
		c = &t
	case *JoinSource:
		j := *v
		j.Left = m.Source(v.Left)
		j.Right = m.Source(v.Right)
		j.ref = m.Ref(v.ref)
		if v.On != nil {
			j.On = m.Field(v.On)
		}
		c = &j
	case *UnionSource:
		u := *v
		u.Main = m.Source(v.Main)
		u.Affiliate = m.Source(v.Affiliate)
		u.ref = m.Ref(v.ref)
		c = &u
	case *ResultSource:
		r := *v
		r.Inner = m.Source(v.Inner)
		r.ref = m.Ref(v.ref)
		c = &r
	default:
		return s
	}

	b := c.base()
	b.root = m.Field(b.root)
	if b.selected != nil {
		b.selected = m.Field(b.selected)
	}
	if b.where != nil {
		b.where = m.Field(b.where)
	}
	if b.having != nil {
		b.having = m.Field(b.having)
	}
	if b.sorts != nil {
		sorts := make([]SortItem, len(b.sorts))
		for i, item := range b.sorts {
			sorts[i] = SortItem{Field: m.Field(item.Field), Descending: item.Descending}
		}
		b.sorts = sorts
	}
	b.groups = mapFields(b.groups, m)

	if t, ok := c.(*TableSource); ok {
		if t.Key != nil {
			t.Key = m.Field(t.Key).(*Original)
		}
		if t.Increment != nil {
			t.Increment = m.Field(t.Increment).(*Original)
		}
		if t.Indexes != nil {
			indexes := make([]Index, len(t.Indexes))
			for i, idx := range t.Indexes {
				indexes[i] = Index{Field: m.Field(idx.Field).(*Original), Direction: idx.Direction}
			}
			t.Indexes = indexes
		}
	}
	return c
}

func mapFields(fields []Field, m Mapper) []Field {
	if fields == nil {
		return nil
	}
	out := make([]Field, len(fields))
	for i, f := range fields {
		out[i] = m.Field(f)
	}
	return out
}

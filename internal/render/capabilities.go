package render

// Capabilities describes the SQL features supported by a dialect.
type Capabilities struct {
	Returning      bool // INSERT ... RETURNING
	OutputInserted bool // INSERT ... OUTPUT INSERTED.col
	BooleanValues  bool // predicates usable as values, boolean columns as conditions
	RightJoin      bool // RIGHT JOIN
	FullJoin       bool // FULL JOIN
	SetOperations  bool // INTERSECT, EXCEPT
}

// GeneratedKey reports whether an INSERT can hand back the generated key in
// its own result set.
func (c Capabilities) GeneratedKey() bool {
	return c.Returning || c.OutputInserted
}

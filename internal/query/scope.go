package query

import (
	"fmt"

	"github.com/zoobzio/composql/expr"
	"github.com/zoobzio/composql/internal/graph"
	"github.com/zoobzio/composql/internal/types"
)

// binding ties a lambda parameter to a source and the shape it exposes.
type binding struct {
	source types.DataSource
	shape  types.Field
	quoted types.Field
	main   bool
}

// qualifiedShape returns the shape as referenced from another scope.
func (b *binding) qualifiedShape() types.Field {
	if b.quoted == nil {
		b.quoted = graph.Qualify(b.shape)
	}
	return b.quoted
}

type frame struct {
	params    map[*expr.ParameterExpr]*binding
	qualified bool
}

func (tr *translator) push(f *frame) func() {
	tr.frames = append(tr.frames, f)
	return func() { tr.frames = tr.frames[:len(tr.frames)-1] }
}

// resolve maps a parameter to the field it stands for. The main binding of
// the innermost unqualified frame is the bare shape; everything else is
// referenced through qualified quotes.
func (tr *translator) resolve(p *expr.ParameterExpr) (types.Field, error) {
	for i := len(tr.frames) - 1; i >= 0; i-- {
		f := tr.frames[i]
		b, ok := f.params[p]
		if !ok {
			continue
		}
		if b.main && !f.qualified && i == len(tr.frames)-1 {
			return b.shape, nil
		}
		return b.qualifiedShape(), nil
	}
	return nil, fmt.Errorf("%w: %s", types.ErrUnresolvedParameter, p.Name)
}

// bound reports whether p resolves in the current scope.
func (tr *translator) bound(p *expr.ParameterExpr) bool {
	for _, f := range tr.frames {
		if _, ok := f.params[p]; ok {
			return true
		}
	}
	return false
}

// bindQuery binds the parameters of l to q. A plain query takes one
// parameter. A join composition takes one parameter per side, or a single
// parameter whose members are the sides.
func bindQuery(q *Query, l *expr.LambdaExpr, qualified bool) (*frame, error) {
	f := &frame{params: make(map[*expr.ParameterExpr]*binding, len(l.Params)), qualified: qualified}
	switch {
	case len(q.sides) > 0 && len(l.Params) == len(q.sides) && len(l.Params) > 1:
		for i, p := range l.Params {
			s := q.sides[i]
			f.params[p] = &binding{source: s.source, shape: s.shape, quoted: s.shape}
		}
	case len(l.Params) == 1:
		f.params[l.Params[0]] = &binding{source: q.source, shape: q.source.Shape(), main: true}
	default:
		want := "1"
		if len(q.sides) > 1 {
			want = fmt.Sprintf("1 or %d", len(q.sides))
		}
		return nil, fmt.Errorf("%w: lambda takes %d parameters, want %s", types.ErrMalformedArgument, len(l.Params), want)
	}
	return f, nil
}

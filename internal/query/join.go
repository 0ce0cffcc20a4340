package query

import (
	"fmt"
	"strconv"

	"github.com/zoobzio/composql/expr"
	"github.com/zoobzio/composql/internal/graph"
	"github.com/zoobzio/composql/internal/types"
)

// sideName names a join side after the table it reads.
func sideName(src types.DataSource) string {
	for {
		switch s := src.(type) {
		case *types.TableSource:
			return s.Schema.Name
		case *types.ResultSource:
			src = s.Inner
			continue
		}
		return src.Ref().Alias()
	}
}

func uniqueName(name string, sides []side) string {
	taken := make(map[string]bool, len(sides))
	for _, s := range sides {
		taken[s.name] = true
	}
	if !taken[name] {
		return name
	}
	for i := 2; ; i++ {
		if n := name + strconv.Itoa(i); !taken[n] {
			return n
		}
	}
}

// asSide prepares src to be joined: anything but a plain table or derived
// table is wrapped first.
func (tr *translator) asSide(src types.DataSource, taken []side) side {
	if !types.IsPlain(src) || src.SourceKind() == types.SourceJoin || src.SourceKind() == types.SourceUnion {
		src = tr.wrap(src)
	}
	return side{source: src, shape: graph.Qualify(src.Shape()), name: uniqueName(sideName(src), taken)}
}

func (tr *translator) join(q *Query, kind types.JoinKind, other *Query, on *expr.LambdaExpr) (*Query, error) {
	other, err := tr.embed(other)
	if err != nil {
		return nil, err
	}

	var left types.DataSource
	var sides []side
	if len(q.sides) > 0 && types.IsPlain(q.source) {
		left = q.source
		sides = append(sides, q.sides...)
	} else {
		s := tr.asSide(q.source, nil)
		left = s.source
		sides = append(sides, s)
	}
	right := tr.asSide(other.source, sides)

	var cond types.Field
	switch {
	case kind == types.JoinCross:
		if on != nil {
			return nil, fmt.Errorf("%w: cross join takes no condition", types.ErrMalformedArgument)
		}
	case on == nil:
		return nil, fmt.Errorf("%w: %s needs a condition", types.ErrMalformedArgument, kind)
	default:
		f, err := joinFrame(on, sides, right)
		if err != nil {
			return nil, err
		}
		pop := tr.push(f)
		cond, err = tr.translate(on.Body)
		pop()
		if err != nil {
			return nil, err
		}
	}

	sides = append(sides, right)
	root, err := composition(sides)
	if err != nil {
		return nil, err
	}
	j, err := types.NewJoin(tr.alloc(), kind, left, right.source, cond, root)
	if err != nil {
		return nil, err
	}
	return &Query{source: j, sides: sides}, nil
}

// composition is the shape of a join: one member per side.
func composition(sides []side) (*types.Object, error) {
	names := make([]string, len(sides))
	fields := make([]types.Field, len(sides))
	for i, s := range sides {
		names[i], fields[i] = s.name, s.shape
	}
	return types.NewObject(nil, names, fields)
}

// joinFrame binds the parameters of a join condition: one per side, or two
// when the left operand is itself a composition.
func joinFrame(on *expr.LambdaExpr, left []side, right side) (*frame, error) {
	f := &frame{params: make(map[*expr.ParameterExpr]*binding, len(on.Params)), qualified: true}
	all := append(append([]side(nil), left...), right)
	switch {
	case len(on.Params) == len(all):
		for i, p := range on.Params {
			f.params[p] = &binding{source: all[i].source, shape: all[i].shape, quoted: all[i].shape}
		}
	case len(on.Params) == 2 && len(left) > 1:
		shape, err := composition(left)
		if err != nil {
			return nil, err
		}
		f.params[on.Params[0]] = &binding{shape: shape, quoted: shape}
		f.params[on.Params[1]] = &binding{source: right.source, shape: right.shape, quoted: right.shape}
	default:
		return nil, fmt.Errorf("%w: join condition takes %d parameters, want %d", types.ErrMalformedArgument, len(on.Params), len(all))
	}
	return f, nil
}

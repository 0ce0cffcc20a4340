package query

import (
	"github.com/zoobzio/composql/internal/graph"
	"github.com/zoobzio/composql/internal/logging"
	"github.com/zoobzio/composql/internal/types"
)

// project returns src with an aliased projection, selecting its root when
// nothing was selected yet.
func project(src types.DataSource) types.DataSource {
	if src.Select() != nil {
		return src
	}
	return types.SetSelect(src, graph.AliasShape(src.Root()))
}

// wrap turns src into a derived table. The result's root quotes the inner
// projection by alias.
func (tr *translator) wrap(src types.DataSource) types.DataSource {
	inner := project(src)
	ref := tr.alloc()
	logging.Logger().Debug("wrapping query in a derived table",
		"alias", ref.Alias(),
		"inner", inner.Ref().Alias(),
	)
	return types.NewResult(ref, inner, graph.Rebind(inner.Select(), ref))
}

func (tr *translator) wrapQuery(q *Query) *Query {
	return &Query{source: tr.wrap(q.source)}
}

// keep returns a query over src that keeps q's join sides.
func keep(q *Query, src types.DataSource) *Query {
	return &Query{source: src, sides: q.sides}
}

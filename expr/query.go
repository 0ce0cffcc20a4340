package expr

import (
	"fmt"

	"github.com/zoobzio/composql/internal/types"
)

// QueryOp is a chain operation applied to a nested query value inside a lambda.
type QueryOp int

const (
	OpSelect QueryOp = iota
	OpWhere
	OpOrderBy
	OpOrderByDescending
	OpThenBy
	OpThenByDescending
	OpGroupBy
	OpJoin
	OpLeftJoin
	OpSkip
	OpTake
	OpDistinct
	OpContains
	OpFirst
	OpLast
	OpCount
	OpAny
	OpSum
	OpMin
	OpMax
	OpAverage
)

var queryOpNames = [...]string{
	OpSelect:            "Select",
	OpWhere:             "Where",
	OpOrderBy:           "OrderBy",
	OpOrderByDescending: "OrderByDescending",
	OpThenBy:            "ThenBy",
	OpThenByDescending:  "ThenByDescending",
	OpGroupBy:           "GroupBy",
	OpJoin:              "Join",
	OpLeftJoin:          "LeftJoin",
	OpSkip:              "Skip",
	OpTake:              "Take",
	OpDistinct:          "Distinct",
	OpContains:          "Contains",
	OpFirst:             "First",
	OpLast:              "Last",
	OpCount:             "Count",
	OpAny:               "Any",
	OpSum:               "Sum",
	OpMin:               "Min",
	OpMax:               "Max",
	OpAverage:           "Average",
}

func (op QueryOp) String() string {
	if int(op) < len(queryOpNames) {
		return queryOpNames[op]
	}
	return fmt.Sprintf("QueryOp(%d)", int(op))
}

// IsTerminal reports whether op produces a scalar or set value rather than a query.
func (op QueryOp) IsTerminal() bool {
	return op >= OpContains
}

// LookupQueryOp returns the operation with the given method name.
func LookupQueryOp(name string) (QueryOp, bool) {
	for i, n := range queryOpNames {
		if n == name {
			return QueryOp(i), true
		}
	}
	return 0, false
}

// QueryCallExpr applies a chain operation to a nested query value.
type QueryCallExpr struct {
	Receiver Expr
	Args     []Expr
	Op       QueryOp
}

// QueryCall builds a chain operation node.
func QueryCall(op QueryOp, receiver Expr, args ...Expr) *QueryCallExpr {
	return &QueryCallExpr{Op: op, Receiver: receiver, Args: args}
}

// Seq is a fluent wrapper for writing chain operations on nested queries and
// constant lists inside a lambda.
type Seq struct {
	e Expr
}

// Over starts a chain on a nested query value.
func Over(q types.Queryable) Seq {
	return Seq{e: Const(q)}
}

// From starts a chain on any expression, such as a constant list.
func From(e Expr) Seq {
	return Seq{e: e}
}

// Expr returns the built expression.
func (s Seq) Expr() Expr { return s.e }

func (s Seq) chain(op QueryOp, args ...Expr) Seq {
	return Seq{e: QueryCall(op, s.e, args...)}
}

func (s Seq) Select(l *LambdaExpr) Seq            { return s.chain(OpSelect, l) }
func (s Seq) Where(l *LambdaExpr) Seq             { return s.chain(OpWhere, l) }
func (s Seq) OrderBy(l *LambdaExpr) Seq           { return s.chain(OpOrderBy, l) }
func (s Seq) OrderByDescending(l *LambdaExpr) Seq { return s.chain(OpOrderByDescending, l) }
func (s Seq) ThenBy(l *LambdaExpr) Seq            { return s.chain(OpThenBy, l) }
func (s Seq) ThenByDescending(l *LambdaExpr) Seq  { return s.chain(OpThenByDescending, l) }
func (s Seq) GroupBy(l *LambdaExpr) Seq           { return s.chain(OpGroupBy, l) }
func (s Seq) Skip(n Expr) Seq                     { return s.chain(OpSkip, n) }
func (s Seq) Take(n Expr) Seq                     { return s.chain(OpTake, n) }
func (s Seq) Distinct() Seq                       { return s.chain(OpDistinct) }

// Join joins other on the lambda over (this, other).
func (s Seq) Join(other Expr, on *LambdaExpr) Seq { return s.chain(OpJoin, other, on) }

// LeftJoin left-joins other on the lambda over (this, other).
func (s Seq) LeftJoin(other Expr, on *LambdaExpr) Seq { return s.chain(OpLeftJoin, other, on) }

func (s Seq) Contains(item Expr) Expr { return QueryCall(OpContains, s.e, item) }
func (s Seq) First() Expr             { return QueryCall(OpFirst, s.e) }
func (s Seq) Last() Expr              { return QueryCall(OpLast, s.e) }
func (s Seq) Count() Expr             { return QueryCall(OpCount, s.e) }
func (s Seq) Any() Expr               { return QueryCall(OpAny, s.e) }

// Sum, Min, Max and Average aggregate the selector over the nested query;
// a nil selector aggregates its current projection.
func (s Seq) Sum(l *LambdaExpr) Expr     { return s.aggregate(OpSum, l) }
func (s Seq) Min(l *LambdaExpr) Expr     { return s.aggregate(OpMin, l) }
func (s Seq) Max(l *LambdaExpr) Expr     { return s.aggregate(OpMax, l) }
func (s Seq) Average(l *LambdaExpr) Expr { return s.aggregate(OpAverage, l) }

func (s Seq) aggregate(op QueryOp, l *LambdaExpr) Expr {
	if l == nil {
		return QueryCall(op, s.e)
	}
	return QueryCall(op, s.e, l)
}

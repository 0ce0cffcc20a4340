package parse

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// lambdaLexer tokenises lambda source text.
var lambdaLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"`},
	{Name: "Float", Pattern: `\d+\.\d+`},
	{Name: "Int", Pattern: `\d+`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Operator", Pattern: `=>|==|!=|<=|>=|&&|\|\||\?\?|[-+*/%<>!?:.,(){}\[\]]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

type lambdaNode struct {
	Params []string     `( "(" ( @Ident ( "," @Ident )* )? ")" | @Ident ) "=>"`
	Body   *ternaryNode `@@`
}

type ternaryNode struct {
	Cond *coalesceNode `@@`
	Then *ternaryNode  `( "?" @@`
	Else *ternaryNode  `  ":" @@ )?`
}

type coalesceNode struct {
	Left  *orNode   `@@`
	Right []*orNode `( "??" @@ )*`
}

type orNode struct {
	Left  *andNode   `@@`
	Right []*andNode `( "||" @@ )*`
}

type andNode struct {
	Left  *equalityNode   `@@`
	Right []*equalityNode `( "&&" @@ )*`
}

type equalityNode struct {
	Left *relationalNode `@@`
	Rest []*equalityOp   `@@*`
}

type equalityOp struct {
	Op    string          `@( "==" | "!=" )`
	Right *relationalNode `@@`
}

type relationalNode struct {
	Left *additiveNode   `@@`
	Rest []*relationalOp `@@*`
}

type relationalOp struct {
	Op    string        `@( "<=" | ">=" | "<" | ">" )`
	Right *additiveNode `@@`
}

type additiveNode struct {
	Left *multiplicativeNode `@@`
	Rest []*additiveOp       `@@*`
}

type additiveOp struct {
	Op    string              `@( "+" | "-" )`
	Right *multiplicativeNode `@@`
}

type multiplicativeNode struct {
	Left *unaryNode          `@@`
	Rest []*multiplicativeOp `@@*`
}

type multiplicativeOp struct {
	Op    string     `@( "*" | "/" | "%" )`
	Right *unaryNode `@@`
}

type unaryNode struct {
	Op      string       `  @( "!" | "-" )`
	Operand *unaryNode   `  @@`
	Postfix *postfixNode `| @@`
}

type postfixNode struct {
	Primary *primaryNode  `@@`
	Suffix  []*suffixNode `@@*`
}

type suffixNode struct {
	Name string    `"." @Ident`
	Call *callArgs `@@?`
}

type callArgs struct {
	Open string     `@"("`
	Args []*argNode `( @@ ( "," @@ )* )? ")"`
}

type argNode struct {
	Lambda *lambdaNode  `  @@`
	Value  *ternaryNode `| @@`
}

type primaryNode struct {
	Float  *float64     `  @Float`
	Int    *int64       `| @Int`
	String *string      `| @String`
	Object *objectNode  `| @@`
	Array  *arrayNode   `| @@`
	Call   *freeCall    `| @@`
	Ident  string       `| @Ident`
	Group  *ternaryNode `| "(" @@ ")"`
}

type objectNode struct {
	Open    string        `@"{"`
	Members []*memberNode `( @@ ( "," @@ )* )? "}"`
}

type memberNode struct {
	Name  string       `@Ident ":"`
	Value *ternaryNode `@@`
}

type arrayNode struct {
	Open  string         `@"["`
	Items []*ternaryNode `( @@ ( "," @@ )* )? "]"`
}

type freeCall struct {
	Name string    `@Ident`
	Args *callArgs `@@`
}

var parser = participle.MustBuild[lambdaNode](
	participle.Lexer(lambdaLexer),
	participle.Elide("Whitespace"),
	participle.Unquote("String"),
	participle.UseLookahead(10),
)

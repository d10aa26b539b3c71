package planexpr

import "github.com/clickgraph/clickgraph/cypher/ast"

// FromAST translates a parsed Cypher expression into the plan-level
// representation used from logical-plan construction onward. Property
// access chains (a.b.c) collapse into a single PropertyRef/ColumnRef per
// alias+leaf-property pair once the base is itself a Variable; nested access
// on a non-variable base is represented as a FuncCall named
// "__nested_property__", which the printer rejects with ErrUnknownFunction
// (nested property access into non-node values is rare
// in practice and absent from every test schema in this repository).
func FromAST(e ast.Expr) Expr {
	switch v := e.(type) {
	case ast.IntLiteral:
		return IntLit{Value: v.Value}
	case ast.FloatLiteral:
		return FloatLit{Value: v.Value}
	case ast.StringLiteral:
		return StringLit{Value: v.Value}
	case ast.BoolLiteral:
		return BoolLit{Value: v.Value}
	case ast.NullLiteral:
		return NullLit{}
	case ast.ListLiteral:
		items := make([]Expr, len(v.Items))
		for i, it := range v.Items {
			items[i] = FromAST(it)
		}
		return ListLit{Items: items}
	case ast.MapLiteral:
		values := make([]Expr, len(v.Values))
		for i, it := range v.Values {
			values[i] = FromAST(it)
		}
		return MapLit{Keys: v.Keys, Values: values}
	case ast.Parameter:
		return Parameter{Name: v.Name}
	case ast.Variable:
		return Variable{Name: v.Name}
	case ast.PropertyAccess:
		if base, ok := v.Base.(ast.Variable); ok {
			return PropertyRef{Alias: base.Name, Property: v.Property}
		}
		// Chained access on a non-variable base (e.g. a function result);
		// kept as a nested FuncCall so render can reject it precisely.
		return FuncCall{Name: "__nested_property__", Args: []Expr{FromAST(v.Base), StringLit{Value: v.Property}}}
	case ast.FunctionCall:
		if len(v.Args) == 1 {
			if pathArg, ok := v.Args[0].(ast.Variable); ok {
				if kind, ok := isPathFunctionName(v.Name); ok {
					return PathFunc{Kind: kind, Alias: pathArg.Name}
				}
			}
		}
		args := make([]Expr, len(v.Args))
		for i, a := range v.Args {
			args[i] = FromAST(a)
		}
		return FuncCall{
			Namespace: v.Namespace,
			Name:      v.Name,
			Args:      args,
			Distinct:  v.Distinct,
			Aggregate: isAggregateName(v.Name),
		}
	case ast.BinaryOp:
		return BinaryOp{Op: v.Op, Left: FromAST(v.Left), Right: FromAST(v.Right)}
	case ast.UnaryOp:
		return UnaryOp{Op: v.Op, Operand: FromAST(v.Operand)}
	case ast.CaseExpr:
		whens := make([]WhenClause, len(v.Whens))
		for i, w := range v.Whens {
			whens[i] = WhenClause{Cond: FromAST(w.Cond), Result: FromAST(w.Result)}
		}
		var test, els Expr
		if v.Test != nil {
			test = FromAST(v.Test)
		}
		if v.Else != nil {
			els = FromAST(v.Else)
		}
		return CaseExpr{Test: test, Whens: whens, Else: els}
	case ast.ListSubscript:
		return Subscript{List: FromAST(v.List), Index: FromAST(v.Index)}
	case ast.ListSlice:
		var from, to Expr
		if v.From != nil {
			from = FromAST(v.From)
		}
		if v.To != nil {
			to = FromAST(v.To)
		}
		return Slice{List: FromAST(v.List), From: from, To: to}
	case ast.PatternComprehension:
		return Unsupported{Reason: "pattern comprehensions are not translatable to a ClickHouse scalar expression"}
	case ast.ExistsSubquery:
		return Unsupported{Reason: "EXISTS subquery requires render-time pattern classification"}
	default:
		return Unsupported{Reason: "unrecognized expression shape"}
	}
}

var pathFunctionNames = map[string]string{
	"length": "length", "nodes": "nodes", "relationships": "relationships",
	"type": "type", "id": "id", "labels": "labels", "label": "label",
}

func isPathFunctionName(name string) (string, bool) {
	k, ok := pathFunctionNames[name]
	return k, ok
}

var aggregateNames = map[string]bool{
	"count": true, "sum": true, "avg": true, "min": true, "max": true,
	"collect": true, "stddev": true, "stddevpop": true, "stddevsamp": true,
}

func isAggregateName(name string) bool {
	return aggregateNames[lower(name)]
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

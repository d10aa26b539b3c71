package planexpr

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clickgraph/clickgraph/cypher/ast"
	"github.com/clickgraph/clickgraph/schema"
)

func TestFromASTPropertyAccess(t *testing.T) {
	e := FromAST(ast.PropertyAccess{Base: ast.Variable{Name: "a"}, Property: "name"})
	ref, ok := e.(PropertyRef)
	require.True(t, ok)
	require.Equal(t, "a", ref.Alias)
	require.Equal(t, "name", ref.Property)
}

func TestFromASTPathFunction(t *testing.T) {
	e := FromAST(ast.FunctionCall{Name: "length", Args: []ast.Expr{ast.Variable{Name: "p"}}})
	pf, ok := e.(PathFunc)
	require.True(t, ok)
	require.Equal(t, "length", pf.Kind)
	require.Equal(t, "p", pf.Alias)
}

func TestFromASTAggregate(t *testing.T) {
	e := FromAST(ast.FunctionCall{Name: "count", Distinct: true, Args: []ast.Expr{ast.Variable{Name: "u"}}})
	fc := e.(FuncCall)
	require.True(t, fc.Aggregate)
	require.True(t, fc.Distinct)
}

func TestRewritePostOrderReplacesPropertyRef(t *testing.T) {
	e := BinaryOp{
		Op:   "=",
		Left: PropertyRef{Alias: "a", Property: "name"},
		Right: StringLit{Value: "Eve"},
	}
	rewritten, err := Rewrite(e, func(x Expr) (Expr, error) {
		if ref, ok := x.(PropertyRef); ok && ref.Alias == "a" {
			return ColumnRef{Alias: "a", Property: ref.Property, Column: schema.Col("full_name")}, nil
		}
		return x, nil
	})
	require.NoError(t, err)
	bo := rewritten.(BinaryOp)
	col := bo.Left.(ColumnRef)
	require.Equal(t, "full_name", col.Column.SQL())
}

func TestAliasesCollectsEveryReference(t *testing.T) {
	e := BinaryOp{
		Op:   "AND",
		Left: PropertyRef{Alias: "a", Property: "id"},
		Right: BinaryOp{
			Op:    "=",
			Left:  PropertyRef{Alias: "b", Property: "id"},
			Right: Variable{Name: "a"},
		},
	}
	aliases := Aliases(e)
	require.ElementsMatch(t, []string{"a", "b"}, aliases)
}

func TestRewriteNestedCaseAndList(t *testing.T) {
	e := CaseExpr{
		Whens: []WhenClause{
			{Cond: PropertyRef{Alias: "a", Property: "age"}, Result: ListLit{Items: []Expr{PropertyRef{Alias: "a", Property: "name"}}}},
		},
		Else: PropertyRef{Alias: "a", Property: "id"},
	}
	count := 0
	_, err := Rewrite(e, func(x Expr) (Expr, error) {
		if _, ok := x.(PropertyRef); ok {
			count++
		}
		return x, nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, count)
}

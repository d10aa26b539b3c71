package sqlprint

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clickgraph/clickgraph/analyzer"
	"github.com/clickgraph/clickgraph/cypher/parser"
	"github.com/clickgraph/clickgraph/internal/ctx"
	"github.com/clickgraph/clickgraph/optimizer"
	"github.com/clickgraph/clickgraph/plan"
	"github.com/clickgraph/clickgraph/render"
	"github.com/clickgraph/clickgraph/schema"
)

func testSchema(t *testing.T) *schema.GraphSchema {
	t.Helper()
	user := &schema.NodeSchema{
		Label: "User", Database: "social", Table: "users",
		NodeID: []schema.PropertyName{"user_id"},
		PropertyMappings: map[schema.PropertyName]schema.ColumnExpr{
			"name": schema.Col("full_name"),
		},
	}
	follows := &schema.RelationshipSchema{
		Type: "FOLLOWS", Database: "social", Table: "follows",
		FromNodeLabel: "User", ToNodeLabel: "User",
		FromIDColumn: []string{"from_user_id"}, ToIDColumn: []string{"to_user_id"},
		AccessStyle: schema.Standard,
	}
	g, err := schema.NewGraphSchema("default", []*schema.NodeSchema{user},
		[]*schema.RelationshipSchema{follows})
	require.NoError(t, err)
	return g
}

func compile(t *testing.T, sch *schema.GraphSchema, src string) *render.Plan {
	t.Helper()
	q, err := parser.Parse(src)
	require.NoError(t, err)
	n, err := plan.Build(q)
	require.NoError(t, err)
	cc := ctx.New(sch, ctx.DefaultOptions())
	ares, err := analyzer.Analyze(n, cc)
	require.NoError(t, err)
	ores, err := optimizer.Optimize(ares.Plan)
	require.NoError(t, err)
	p, err := render.Build(cc, ores.Plan, ores.PatternCtx)
	require.NoError(t, err)
	return p
}

func TestPrintSimpleTwoHop(t *testing.T) {
	sch := testSchema(t)
	p := compile(t, sch, `MATCH (u:User)-[:FOLLOWS]->(v:User) WHERE u.name = "x" RETURN v.name`)

	res, err := Print(ctx.New(sch, ctx.DefaultOptions()), p, DefaultOptions())
	require.NoError(t, err)
	require.Contains(t, res.SQL, "SELECT")
	require.Contains(t, res.SQL, "FROM")
	require.Contains(t, res.SQL, "JOIN")
	require.Contains(t, res.SQL, "WHERE")
	require.Contains(t, res.SQL, "full_name")
}

func TestPrintVariableLengthPathEmitsRecursiveCTEAndSettings(t *testing.T) {
	sch := testSchema(t)
	p := compile(t, sch, `MATCH (u:User)-[:FOLLOWS*1..3]->(v:User) RETURN v.name`)

	res, err := Print(ctx.New(sch, ctx.DefaultOptions()), p, DefaultOptions())
	require.NoError(t, err)
	require.Contains(t, res.SQL, "WITH ")
	require.Contains(t, res.SQL, "UNION ALL")
	require.Contains(t, res.SQL, "hop_count")
	require.Contains(t, res.SQL, "SETTINGS max_recursive_cte_evaluation_depth")
}

func TestQuoteIdentBackticksReservedLookingNames(t *testing.T) {
	require.Equal(t, "foo", QuoteIdent("foo"))
	require.Equal(t, "`Foo`", QuoteIdent("Foo"))
	require.Equal(t, "`foo bar`", QuoteIdent("foo bar"))
}

func TestQuoteStringLiteralEscapesQuotesAndBackslashes(t *testing.T) {
	require.Equal(t, `'it\'s'`, QuoteStringLiteral("it's"))
	require.Equal(t, `'a\\b'`, QuoteStringLiteral(`a\b`))
}

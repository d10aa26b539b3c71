package render

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clickgraph/clickgraph/analyzer"
	"github.com/clickgraph/clickgraph/cypher/parser"
	"github.com/clickgraph/clickgraph/internal/ctx"
	"github.com/clickgraph/clickgraph/optimizer"
	"github.com/clickgraph/clickgraph/plan"
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
	post := &schema.NodeSchema{
		Label: "Post", Database: "social", Table: "posts",
		NodeID: []schema.PropertyName{"post_id"},
	}
	follows := &schema.RelationshipSchema{
		Type: "FOLLOWS", Database: "social", Table: "follows",
		FromNodeLabel: "User", ToNodeLabel: "User",
		FromIDColumn: []string{"from_user_id"}, ToIDColumn: []string{"to_user_id"},
		AccessStyle: schema.Standard,
		PropertyMappings: map[schema.PropertyName]schema.ColumnExpr{
			"since": schema.Col("since"),
		},
	}
	authored := &schema.RelationshipSchema{
		Type: "AUTHORED", Database: "social", Table: "authored",
		FromNodeLabel: "User", ToNodeLabel: "Post",
		FromIDColumn: []string{"from_user_id"}, ToIDColumn: []string{"to_post_id"},
		AccessStyle: schema.Standard,
	}
	g, err := schema.NewGraphSchema("default", []*schema.NodeSchema{user, post},
		[]*schema.RelationshipSchema{follows, authored})
	require.NoError(t, err)
	return g
}

func optimized(t *testing.T, sch *schema.GraphSchema, src string) (plan.Node, *optimizer.Result) {
	t.Helper()
	q, err := parser.Parse(src)
	require.NoError(t, err)
	n, err := plan.Build(q)
	require.NoError(t, err)
	ares, err := analyzer.Analyze(n, ctx.New(sch, ctx.DefaultOptions()))
	require.NoError(t, err)
	ores, err := optimizer.Optimize(ares.Plan)
	require.NoError(t, err)
	return ores.Plan, ores
}

func TestBuildSimpleTwoHop(t *testing.T) {
	sch := testSchema(t)
	n, res := optimized(t, sch, `MATCH (u:User)-[:FOLLOWS]->(v:User) WHERE u.name = "x" RETURN v.name`)

	p, err := Build(ctx.New(sch, ctx.DefaultOptions()), n, res.PatternCtx)
	require.NoError(t, err)
	require.Equal(t, "u", p.From.Alias)
	require.Len(t, p.Joins, 2)
	require.Len(t, p.SelectItems, 1)
	require.Equal(t, "v.name", p.SelectItems[0].Alias)
	require.NotNil(t, p.Where)
}

func TestBuildAggregationSynthesizesGroupBy(t *testing.T) {
	sch := testSchema(t)
	n, res := optimized(t, sch, `MATCH (u:User)-[:AUTHORED]->(p:Post) RETURN u.name, count(p) AS n`)

	p, err := Build(ctx.New(sch, ctx.DefaultOptions()), n, res.PatternCtx)
	require.NoError(t, err)
	require.Len(t, p.SelectItems, 2)
	require.Len(t, p.GroupBy, 1)
}

func TestBuildDistinctCarriesThrough(t *testing.T) {
	sch := testSchema(t)
	n, res := optimized(t, sch, `MATCH (u:User)-[:FOLLOWS]->(v:User) RETURN DISTINCT v.name`)

	p, err := Build(ctx.New(sch, ctx.DefaultOptions()), n, res.PatternCtx)
	require.NoError(t, err)
	require.True(t, p.Distinct)
}

func TestBuildOrderByLimitApplyToOuterStatement(t *testing.T) {
	sch := testSchema(t)
	n, res := optimized(t, sch, `MATCH (u:User)-[:FOLLOWS]->(v:User) RETURN v.name ORDER BY v.name LIMIT 10`)

	p, err := Build(ctx.New(sch, ctx.DefaultOptions()), n, res.PatternCtx)
	require.NoError(t, err)
	require.Len(t, p.OrderBy, 1)
	require.NotNil(t, p.Limit)
}

func TestBuildBidirectionalUnionDistributesSelectItems(t *testing.T) {
	sch := testSchema(t)
	n, res := optimized(t, sch, `MATCH (u:User)-[:FOLLOWS]-(v:User) RETURN v.name`)

	p, err := Build(ctx.New(sch, ctx.DefaultOptions()), n, res.PatternCtx)
	require.NoError(t, err)
	require.NotNil(t, p.Union)
	require.Len(t, p.Union.Branches, 2)
	for _, branch := range p.Union.Branches {
		require.Len(t, branch.SelectItems, 1)
	}
}

func TestBuildVariableLengthPathRegistersRecursiveCTE(t *testing.T) {
	sch := testSchema(t)
	n, res := optimized(t, sch, `MATCH (u:User)-[:FOLLOWS*1..3]->(v:User) RETURN v.name`)

	p, err := Build(ctx.New(sch, ctx.DefaultOptions()), n, res.PatternCtx)
	require.NoError(t, err)
	require.Len(t, p.CTEs, 1)
	require.True(t, p.CTEs[0].Recursive)
	require.NotNil(t, p.CTEs[0].VLP)

	found := false
	for _, j := range p.Joins {
		if j.Table.CTERef == p.CTEs[0].Name {
			found = true
		}
	}
	require.True(t, found)
}

func TestBuildWithClauseChainsIntoCTE(t *testing.T) {
	sch := testSchema(t)
	n, res := optimized(t, sch,
		`MATCH (u:User) WITH u, u.name AS n MATCH (u)-[:FOLLOWS]->(v:User) RETURN n, v.name`)

	p, err := Build(ctx.New(sch, ctx.DefaultOptions()), n, res.PatternCtx)
	require.NoError(t, err)
	require.NotEmpty(t, p.CTEs)
	found := false
	for _, j := range p.Joins {
		if j.Kind == plan.CrossJoin && j.Table.CTERef != "" {
			found = true
		}
	}
	require.True(t, found)
}

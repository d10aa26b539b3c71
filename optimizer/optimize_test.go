package optimizer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clickgraph/clickgraph/analyzer"
	"github.com/clickgraph/clickgraph/cypher/parser"
	"github.com/clickgraph/clickgraph/internal/ctx"
	"github.com/clickgraph/clickgraph/plan"
	"github.com/clickgraph/clickgraph/planexpr"
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
		EdgeIDColumn: "edge_id",
		AccessStyle:  schema.Standard,
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
	viewed := &schema.RelationshipSchema{
		Type: "VIEWED", Database: "social", Table: "view_events",
		FromNodeLabel: "User", ToNodeLabel: "Post",
		ToIDColumn:  []string{"viewed_post_id"},
		AccessStyle: schema.Denormalized,
		FromProperties: map[schema.PropertyName]schema.ColumnExpr{"user_id": schema.Col("viewer_id")},
		ToProperties:   map[schema.PropertyName]schema.ColumnExpr{"post_id": schema.Col("viewed_post_id")},
	}
	reportsTo := &schema.RelationshipSchema{
		Type: "REPORTS_TO", FromNodeLabel: "User", ToNodeLabel: "User",
		AccessStyle: schema.FkEdge,
		FkColumn:    "manager_id",
	}
	g, err := schema.NewGraphSchema("default", []*schema.NodeSchema{user, post},
		[]*schema.RelationshipSchema{follows, authored, viewed, reportsTo})
	require.NoError(t, err)
	return g
}

func analyzed(t *testing.T, sch *schema.GraphSchema, src string) plan.Node {
	t.Helper()
	q, err := parser.Parse(src)
	require.NoError(t, err)
	n, err := plan.Build(q)
	require.NoError(t, err)
	res, err := analyzer.Analyze(n, ctx.New(sch, ctx.DefaultOptions()))
	require.NoError(t, err)
	return res.Plan
}

func TestOptimizeTraditionalTwoHop(t *testing.T) {
	sch := testSchema(t)
	n := analyzed(t, sch, `MATCH (u:User)-[:FOLLOWS]->(v:User) WHERE u.name = "x" RETURN v`)

	res, err := Optimize(n)
	require.NoError(t, err)

	proj := res.Plan.(*plan.Projection)
	gj := proj.Input.(*plan.GraphJoins)
	require.Equal(t, "u", gj.AnchorAlias)
	require.Len(t, gj.Joins, 2) // edge table + v's node table
	require.Equal(t, "follows", gj.Joins[0].Table)
	require.Equal(t, "v", gj.Joins[1].TableAlias)
}

func TestOptimizeDenormalizedJoinUsesEmbeddedIdentityColumns(t *testing.T) {
	sch := testSchema(t)
	n := analyzed(t, sch, `MATCH (u:User)-[:VIEWED]->(p:Post) RETURN p`)

	res, err := Optimize(n)
	require.NoError(t, err)

	proj := res.Plan.(*plan.Projection)
	gj := proj.Input.(*plan.GraphJoins)
	require.Equal(t, "u", gj.AnchorAlias)
	// The edge table is still joined against both real node tables (their
	// properties resolve through the node schema, not the embedded copies),
	// but the ON predicate uses VIEWED's denormalized from/to property
	// columns rather than a dedicated FK-style ID column (VIEWED declares
	// none).
	require.Len(t, gj.Joins, 2)
	edgeJoin := gj.Joins[0]
	require.Equal(t, "view_events", edgeJoin.Table)
	raw := edgeJoin.JoiningOn[0].(planexpr.RawSQL)
	require.Contains(t, raw.SQL, "viewer_id")
}

func TestOptimizePushesFilterOntoRelationship(t *testing.T) {
	sch := testSchema(t)
	n := analyzed(t, sch, `MATCH (u:User)-[r:FOLLOWS]->(v:User) WHERE r.since = "2020" RETURN v`)

	res, err := Optimize(n)
	require.NoError(t, err)

	proj := res.Plan.(*plan.Projection)
	// No leftover outer Filter: the only WHERE conjunct referenced only the
	// relationship's own aliases, so it moved onto GraphRel.WherePredicate
	// before join building ever ran.
	_, isFilter := proj.Input.(*plan.Filter)
	require.False(t, isFilter)
	gj := proj.Input.(*plan.GraphJoins)
	require.NotNil(t, gj.Joins[0].GraphRel.WherePredicate)
}

func TestOptimizeDedupesRepeatedAliasAcrossCommaPatterns(t *testing.T) {
	sch := testSchema(t)
	n := analyzed(t, sch, `MATCH (u:User)-[:FOLLOWS]->(v:User), (u)-[:AUTHORED]->(p:Post) RETURN p`)

	res, err := Optimize(n)
	require.NoError(t, err)

	proj := res.Plan.(*plan.Projection)
	gj := proj.Input.(*plan.GraphJoins)
	// u must not appear as both the anchor and a later cross-joined table.
	for _, j := range gj.Joins {
		require.NotEqual(t, "u", j.TableAlias)
	}
}

func TestOptimizeExpandsBidirectionalIntoUnion(t *testing.T) {
	sch := testSchema(t)
	n := analyzed(t, sch, `MATCH (u:User)-[:FOLLOWS]-(v:User) RETURN v`)

	res, err := Optimize(n)
	require.NoError(t, err)

	proj := res.Plan.(*plan.Projection)
	union := proj.Input.(*plan.Union)
	require.True(t, union.All)
	require.Len(t, union.Inputs, 2)
}

func TestOptimizeRelationshipUniquenessAcrossTwoHops(t *testing.T) {
	sch := testSchema(t)
	n := analyzed(t, sch, `MATCH (a:User)-[r1:FOLLOWS]->(b:User)-[r2:FOLLOWS]->(c:User) RETURN c`)

	res, err := Optimize(n)
	require.NoError(t, err)

	proj := res.Plan.(*plan.Projection)
	f := proj.Input.(*plan.Filter)
	_, ok := f.Input.(*plan.GraphJoins)
	require.True(t, ok)
	require.NotNil(t, f.Predicate)
}

func TestOptimizeFkEdgeSelfJoinsOnFkColumn(t *testing.T) {
	sch := testSchema(t)
	n := analyzed(t, sch, `MATCH (u:User)-[:REPORTS_TO]->(m:User) RETURN m`)

	res, err := Optimize(n)
	require.NoError(t, err)

	proj := res.Plan.(*plan.Projection)
	gj := proj.Input.(*plan.GraphJoins)
	require.Len(t, gj.Joins, 1)
	require.Equal(t, "m", gj.Joins[0].TableAlias)
	raw := gj.Joins[0].JoiningOn[0].(planexpr.RawSQL)
	require.Contains(t, raw.SQL, "manager_id")
}

func TestOptimizePatternCtxPopulatedPerRelAlias(t *testing.T) {
	sch := testSchema(t)
	n := analyzed(t, sch, `MATCH (u:User)-[r:VIEWED]->(p:Post) RETURN p`)

	res, err := Optimize(n)
	require.NoError(t, err)
	require.Contains(t, res.PatternCtx, "r")
}

package analyzer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clickgraph/clickgraph/cgerrors"
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
		PropertyMappings: map[schema.PropertyName]schema.ColumnExpr{
			"title": schema.Col("title"),
		},
	}
	follows := &schema.RelationshipSchema{
		Type: "FOLLOWS", Database: "social", Table: "follows",
		FromNodeLabel: "User", ToNodeLabel: "User",
		FromIDColumn: []string{"from_user_id"}, ToIDColumn: []string{"to_user_id"},
		AccessStyle: schema.Standard,
	}
	authored := &schema.RelationshipSchema{
		Type: "AUTHORED", Database: "social", Table: "authored",
		FromNodeLabel: "User", ToNodeLabel: "Post",
		FromIDColumn: []string{"from_user_id"}, ToIDColumn: []string{"to_post_id"},
		AccessStyle: schema.Standard,
	}
	blocks := &schema.RelationshipSchema{
		Type: "BLOCKS", Database: "social", Table: "blocks",
		FromNodeLabel: "User", ToNodeLabel: "User",
		FromIDColumn: []string{"from_user_id"}, ToIDColumn: []string{"to_user_id"},
		AccessStyle: schema.Standard,
	}
	g, err := schema.NewGraphSchema("default", []*schema.NodeSchema{user, post}, []*schema.RelationshipSchema{follows, authored, blocks})
	require.NoError(t, err)
	return g
}

func buildPlan(t *testing.T, src string) plan.Node {
	t.Helper()
	q, err := parser.Parse(src)
	require.NoError(t, err)
	n, err := plan.Build(q)
	require.NoError(t, err)
	return n
}

func TestAnalyzeBindsSchemaAndTagsFilter(t *testing.T) {
	sch := testSchema(t)
	n := buildPlan(t, `MATCH (u:User)-[:FOLLOWS]->(v:User) WHERE u.name = "Eve" RETURN v.name`)

	res, err := Analyze(n, ctx.New(sch, ctx.DefaultOptions()))
	require.NoError(t, err)

	proj := res.Plan.(*plan.Projection)
	require.Len(t, proj.Items, 1)
	col := proj.Items[0].Expr.(planexpr.ColumnRef)
	require.Equal(t, "v", col.Alias)
	require.Equal(t, "name", col.Property)

	pattern := proj.Input.(*plan.GraphPattern)
	require.NotNil(t, pattern.Where)
	bo := pattern.Where.(planexpr.BinaryOp)
	leftCol := bo.Left.(planexpr.ColumnRef)
	require.Equal(t, "full_name", leftCol.Column.SQL())

	uNode := pattern.Elements[0].(*plan.GraphNode)
	require.Equal(t, "User", uNode.NodeSchema.Label)

	rel := pattern.Elements[1].(*plan.GraphRel)
	require.Equal(t, schema.Standard, rel.AccessStyle)
}

func TestAnalyzeInfersUnlabeledNodeFromRelationship(t *testing.T) {
	sch := testSchema(t)
	n := buildPlan(t, `MATCH (u:User)-[:AUTHORED]->(p) RETURN p.title`)

	res, err := Analyze(n, ctx.New(sch, ctx.DefaultOptions()))
	require.NoError(t, err)

	proj := res.Plan.(*plan.Projection)
	pattern := proj.Input.(*plan.GraphPattern)
	pNode := pattern.Elements[2].(*plan.GraphNode)
	require.Equal(t, "Post", pNode.Label)
}

func TestAnalyzeRejectsShortestPathWithoutVariableLength(t *testing.T) {
	sch := testSchema(t)
	n := buildPlan(t, `MATCH p = shortestPath((u:User)-[:FOLLOWS]->(v:User)) RETURN u.name`)

	_, err := Analyze(n, ctx.New(sch, ctx.DefaultOptions()))
	require.Error(t, err)
	require.True(t, cgerrors.ErrValidation.Is(err))
}

func TestAnalyzeRejectsUnboundAlias(t *testing.T) {
	sch := testSchema(t)
	n := buildPlan(t, `MATCH (u:User) RETURN ghost.name`)

	_, err := Analyze(n, ctx.New(sch, ctx.DefaultOptions()))
	require.Error(t, err)
	require.True(t, cgerrors.ErrValidation.Is(err))
}

func TestAnalyzeWithExportedAliasRoutesThroughCTE(t *testing.T) {
	sch := testSchema(t)
	n := buildPlan(t, `MATCH (u:User) WITH u, count(u) AS total RETURN u.name, total`)

	res, err := Analyze(n, ctx.New(sch, ctx.DefaultOptions()))
	require.NoError(t, err)

	proj := res.Plan.(*plan.Projection)
	col := proj.Items[0].Expr.(planexpr.ColumnRef)
	require.Equal(t, "u", col.Alias)
	require.NotEmpty(t, col.SourceCTE, "u.name after WITH u must route through the CTE, not the base table")
	require.Equal(t, "u_name", col.CTEColumn)
}

func TestAnalyzeAmbiguousLabelBeyondBound(t *testing.T) {
	sch := testSchema(t)
	opts := ctx.DefaultOptions()
	opts.MaxInferredTypes = 0
	n := buildPlan(t, `MATCH (u:User)-[r]->(p) RETURN u.name`)

	_, err := Analyze(n, ctx.New(sch, opts))
	require.Error(t, err)
	require.True(t, cgerrors.ErrAmbiguousLabel.Is(err))
}

func TestAnalyzeWildcardRelationshipWithinBoundYieldsLabelCandidates(t *testing.T) {
	sch := testSchema(t)
	n := buildPlan(t, `MATCH (u:User)-[r]->(p) RETURN u.name`)

	res, err := Analyze(n, ctx.New(sch, ctx.DefaultOptions()))
	require.NoError(t, err)

	proj := res.Plan.(*plan.Projection)
	pattern := proj.Input.(*plan.GraphPattern)
	pNode := pattern.Elements[2].(*plan.GraphNode)
	require.Empty(t, pNode.Label)
	require.ElementsMatch(t, []string{"Post", "User"}, pNode.LabelCandidates)
}

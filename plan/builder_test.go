package plan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clickgraph/clickgraph/cypher/ast"
	"github.com/clickgraph/clickgraph/cypher/parser"
	"github.com/clickgraph/clickgraph/planexpr"
)

func mustParse(t *testing.T, src string) *ast.Query {
	t.Helper()
	q, err := parser.Parse(src)
	require.NoError(t, err)
	return q
}

func TestBuildSimpleMatchReturn(t *testing.T) {
	q := mustParse(t, "MATCH (u:User) RETURN u.name")
	n, err := Build(q)
	require.NoError(t, err)

	proj, ok := n.(*Projection)
	require.True(t, ok)
	require.Equal(t, ReturnProjection, proj.Kind)
	require.Len(t, proj.Items, 1)

	pattern, ok := proj.Input.(*GraphPattern)
	require.True(t, ok)
	require.Len(t, pattern.Elements, 1)
	node := pattern.Elements[0].(*GraphNode)
	require.Equal(t, "u", node.Alias)
	require.Equal(t, "User", node.Label)
}

func TestBuildRelationshipChainSharesEndpointNode(t *testing.T) {
	q := mustParse(t, "MATCH (a:User)-[:FOLLOWS]->(b:User)-[:FOLLOWS]->(c:User) RETURN a, c")
	n, err := Build(q)
	require.NoError(t, err)

	proj := n.(*Projection)
	pattern := proj.Input.(*GraphPattern)
	require.Len(t, pattern.Elements, 5) // a, rel1, b, rel2, c

	rel1 := pattern.Elements[1].(*GraphRel)
	rel2 := pattern.Elements[3].(*GraphRel)
	require.Same(t, rel1.Right, rel2.Left, "b must be the same GraphNode instance in both relationships")
}

func TestBuildCommaPatternsShareAliasAcrossBranches(t *testing.T) {
	q := mustParse(t, "MATCH (a:User)-[:FOLLOWS]->(b:User), (b)-[:LIKES]->(c:Post) RETURN a, c")
	n, err := Build(q)
	require.NoError(t, err)

	proj := n.(*Projection)
	pattern := proj.Input.(*GraphPattern)

	var bInstances []*GraphNode
	for _, el := range pattern.Elements {
		if gn, ok := el.(*GraphNode); ok && gn.Alias == "b" {
			bInstances = append(bInstances, gn)
		}
	}
	require.Len(t, bInstances, 1, "comma-separated patterns sharing alias b must produce one GraphNode, not two")
}

func TestBuildOptionalMatchMarksNodesOptional(t *testing.T) {
	q := mustParse(t, "MATCH (a:User) OPTIONAL MATCH (a)-[:OWNS]->(d:Device) RETURN a, d")
	n, err := Build(q)
	require.NoError(t, err)

	proj := n.(*Projection)
	optionalPattern := proj.Input.(*GraphPattern)
	require.True(t, optionalPattern.Optional)

	var dNode *GraphNode
	for _, el := range optionalPattern.Elements {
		if gn, ok := el.(*GraphNode); ok && gn.Alias == "d" {
			dNode = gn
		}
	}
	require.NotNil(t, dNode)
	require.True(t, dNode.Optional)
}

func TestBuildInlineRelPropertyDesugarsIntoWhere(t *testing.T) {
	q := mustParse(t, `MATCH (a:User)-[r:FOLLOWS {since: 2020}]->(b:User) RETURN a`)
	n, err := Build(q)
	require.NoError(t, err)

	proj := n.(*Projection)
	pattern := proj.Input.(*GraphPattern)
	require.NotNil(t, pattern.Where, "inline relationship property must desugar into a WHERE conjunct")

	bo, ok := pattern.Where.(planexpr.BinaryOp)
	require.True(t, ok)
	require.Equal(t, "=", bo.Op)
	ref := bo.Left.(planexpr.PropertyRef)
	require.Equal(t, "r", ref.Alias)
	require.Equal(t, "since", ref.Property)
}

func TestBuildWithBoundaryStartsNewCTEScope(t *testing.T) {
	q := mustParse(t, "MATCH (a:User) WITH a, count(a) AS total WHERE total > 1 RETURN a")
	n, err := Build(q)
	require.NoError(t, err)

	proj := n.(*Projection)
	filter, ok := proj.Input.(*Filter)
	require.True(t, ok)
	with, ok := filter.Input.(*WithClause)
	require.True(t, ok)
	require.ElementsMatch(t, []string{"a", "total"}, with.ExportedAliases)
	require.NotEmpty(t, with.CTEName)
}

func TestBuildConsecutiveMatchClausesConcatenate(t *testing.T) {
	q := mustParse(t, "MATCH (a:User) MATCH (b:User) RETURN a, b")
	n, err := Build(q)
	require.NoError(t, err)

	proj := n.(*Projection)
	secondPattern := proj.Input.(*GraphPattern)
	require.NotNil(t, secondPattern.Input)
	firstPattern, ok := secondPattern.Input.(*GraphPattern)
	require.True(t, ok)
	require.Nil(t, firstPattern.Input)
}

func TestBuildUnionCombinesParts(t *testing.T) {
	q := mustParse(t, "MATCH (a:User) RETURN a.name UNION ALL MATCH (b:Post) RETURN b.title")
	n, err := Build(q)
	require.NoError(t, err)

	union, ok := n.(*Union)
	require.True(t, ok)
	require.True(t, union.All)
	require.Len(t, union.Inputs, 2)
}

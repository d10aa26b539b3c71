package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clickgraph/clickgraph/cgerrors"
	"github.com/clickgraph/clickgraph/cypher/ast"
)

func TestParseSimpleMatchReturn(t *testing.T) {
	q, err := Parse(`MATCH (u:User) WHERE u.name = 'Eve' RETURN u.name`)
	require.NoError(t, err)
	require.Len(t, q.Parts, 1)
	sq := q.Parts[0]
	require.Len(t, sq.Reads, 1)
	m, ok := sq.Reads[0].(*ast.Match)
	require.True(t, ok)
	require.Len(t, m.Patterns, 1)
	require.Equal(t, "User", m.Patterns[0].Element.Nodes[0].Labels[0])
	require.NotNil(t, m.Where)
	require.Len(t, sq.Return.Items, 1)
}

func TestParseCaseInsensitiveKeywords(t *testing.T) {
	_, err := Parse(`match (u:User) return u`)
	require.NoError(t, err)
	_, err = Parse(`MaTcH (u:User) ReTuRn u`)
	require.NoError(t, err)
}

func TestParseOptionalMatchAfterMatchWhere(t *testing.T) {
	q, err := Parse(`MATCH (a:User) WHERE a.name = 'Eve' OPTIONAL MATCH (a)-[:FOLLOWS*1..3]->(b:User) RETURN a.name, count(b)`)
	require.NoError(t, err)
	sq := q.Parts[0]
	require.Len(t, sq.Reads, 2)
	_, ok := sq.Reads[0].(*ast.Match)
	require.True(t, ok)
	om, ok := sq.Reads[1].(*ast.OptionalMatch)
	require.True(t, ok)
	rel := om.Patterns[0].Element.Rels[0]
	require.Equal(t, ast.Out, rel.Direction)
	require.Equal(t, uint32(1), rel.VariableLength.Min)
	require.Equal(t, uint32(3), *rel.VariableLength.Max)
}

func TestParseUndirectedRelationship(t *testing.T) {
	q, err := Parse(`MATCH (a)-[:KNOWS]-(b) WHERE a.id = 1 RETURN b.id`)
	require.NoError(t, err)
	m := q.Parts[0].Reads[0].(*ast.Match)
	require.Equal(t, ast.Either, m.Patterns[0].Element.Rels[0].Direction)
}

func TestParseWithRename(t *testing.T) {
	q, err := Parse(`MATCH (u:User) WITH u AS person RETURN person.name LIMIT 1`)
	require.NoError(t, err)
	sq := q.Parts[0]
	with, ok := sq.Reads[1].(*ast.With)
	require.True(t, ok)
	require.Equal(t, "person", with.Items[0].Alias)
	require.NotNil(t, sq.Return.Limit)
}

func TestParseUnion(t *testing.T) {
	q, err := Parse(`MATCH (a:User) RETURN a.name UNION ALL MATCH (b:User) RETURN b.name`)
	require.NoError(t, err)
	require.Len(t, q.Parts, 2)
	require.Equal(t, []bool{true}, q.UnionAll)
}

func TestParseCompositePattern(t *testing.T) {
	q, err := Parse(`MATCH (src:IP)-[:REQUESTED]->(d:Domain), (src)-[:ACCESSED]->(dest:IP) RETURN src.ip, d.name, dest.ip`)
	require.NoError(t, err)
	m := q.Parts[0].Reads[0].(*ast.Match)
	require.Len(t, m.Patterns, 2)
}

func TestParseFunctionsAndPassthroughNamespace(t *testing.T) {
	q, err := Parse(`MATCH (u:User) RETURN ch.toDate(u.created), count(DISTINCT u.id)`)
	require.NoError(t, err)
	items := q.Parts[0].Return.Items
	fc := items[0].Expr.(ast.FunctionCall)
	require.Equal(t, "ch", fc.Namespace)
	require.Equal(t, "toDate", fc.Name)

	agg := items[1].Expr.(ast.FunctionCall)
	require.Equal(t, "count", agg.Name)
	require.True(t, agg.Distinct)
}

func TestParseCaseExpression(t *testing.T) {
	q, err := Parse(`MATCH (u:User) RETURN CASE WHEN u.age < 18 THEN 'minor' ELSE 'adult' END AS bucket`)
	require.NoError(t, err)
	ce := q.Parts[0].Return.Items[0].Expr.(ast.CaseExpr)
	require.Nil(t, ce.Test)
	require.Len(t, ce.Whens, 1)
	require.NotNil(t, ce.Else)
}

func TestParseListAndSliceAndSubscript(t *testing.T) {
	q, err := Parse(`MATCH (u:User) RETURN [1,2,3][0], [1,2,3][1..2]`)
	require.NoError(t, err)
	_, ok := q.Parts[0].Return.Items[0].Expr.(ast.ListSubscript)
	require.True(t, ok)
	_, ok = q.Parts[0].Return.Items[1].Expr.(ast.ListSlice)
	require.True(t, ok)
}

func TestParsePatternComprehension(t *testing.T) {
	q, err := Parse(`MATCH (u:User) RETURN [(u)-[:FOLLOWS]->(f) | f.name]`)
	require.NoError(t, err)
	_, ok := q.Parts[0].Return.Items[0].Expr.(ast.PatternComprehension)
	require.True(t, ok)
}

func TestParseExistsSubquery(t *testing.T) {
	q, err := Parse(`MATCH (u:User) WHERE EXISTS { MATCH (u)-[:FOLLOWS]->(:User) } RETURN u`)
	require.NoError(t, err)
	m := q.Parts[0].Reads[0].(*ast.Match)
	_, ok := m.Where.(ast.ExistsSubquery)
	require.True(t, ok)
}

func TestParseShortestPath(t *testing.T) {
	q, err := Parse(`MATCH p = shortestPath((a:User)-[:FOLLOWS*1..5]->(b:User)) RETURN length(p)`)
	require.NoError(t, err)
	m := q.Parts[0].Reads[0].(*ast.Match)
	require.Equal(t, ast.ShortestPath, m.Patterns[0].ShortestPath)
	require.Equal(t, "p", m.Patterns[0].PathVariable)
}

func TestParseRejectsUnconsumedInput(t *testing.T) {
	_, err := Parse(`MATCH (u:User) RETURN u GARBAGE`)
	require.Error(t, err)
	require.True(t, cgerrors.ErrParse.Is(err))
}

func TestParseRejectsBinaryKeywordAsIdentifier(t *testing.T) {
	_, err := Parse(`MATCH (and:User) RETURN and`)
	require.Error(t, err)
}

func TestParseMissingReturnIsError(t *testing.T) {
	_, err := Parse(`MATCH (u:User)`)
	require.Error(t, err)
	require.True(t, cgerrors.ErrParse.Is(err))
}

func TestParseRelationshipChainDepthBound(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("MATCH (n0)")
	for i := 1; i <= maxRelChainDepth+5; i++ {
		sb.WriteString("-[:T]->(n")
		sb.WriteString(itoa(i))
		sb.WriteString(")")
	}
	sb.WriteString(" RETURN n0")
	_, err := Parse(sb.String())
	require.Error(t, err)
	require.True(t, cgerrors.ErrTooLarge.Is(err))
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := []byte{}
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}

func TestParseInlineRelProps(t *testing.T) {
	q, err := Parse(`MATCH (a:User)-[:FOLLOWS {since: 2020}]->(b:User) RETURN a`)
	require.NoError(t, err)
	m := q.Parts[0].Reads[0].(*ast.Match)
	rel := m.Patterns[0].Element.Rels[0]
	require.Contains(t, rel.InlineProps, "since")
}

func TestParseUseClause(t *testing.T) {
	q, err := Parse(`USE analytics MATCH (u:User) RETURN u`)
	require.NoError(t, err)
	require.Equal(t, "analytics", q.Parts[0].Use)
}

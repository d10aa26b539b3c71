package patternschema

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clickgraph/clickgraph/cypher/ast"
	"github.com/clickgraph/clickgraph/schema"
)

func TestComputeStandardIsTraditional(t *testing.T) {
	rs := &schema.RelationshipSchema{Type: "FOLLOWS", AccessStyle: schema.Standard}
	c := Compute(rs, nil, ast.Out)
	require.Equal(t, Traditional, c.Strategy)
	require.Equal(t, ViaNodeTable, c.LeftAccess)
	require.Equal(t, ViaNodeTable, c.RightAccess)
}

func TestComputeFullyDenormalizedIsSingleTableScan(t *testing.T) {
	rs := &schema.RelationshipSchema{
		Type:        "ACCESSED",
		AccessStyle: schema.Denormalized,
		FromProperties: map[schema.PropertyName]schema.ColumnExpr{"addr": schema.Col("orig_h")},
		ToProperties:   map[schema.PropertyName]schema.ColumnExpr{"addr": schema.Col("resp_h")},
	}
	c := Compute(rs, nil, ast.Out)
	require.Equal(t, SingleTableScan, c.Strategy)
	require.Equal(t, ViaEdgeRow, c.LeftAccess)
	require.Equal(t, ViaEdgeRow, c.RightAccess)
}

func TestComputeOneSidedDenormalizedIsMixedAccess(t *testing.T) {
	rs := &schema.RelationshipSchema{
		Type:           "VIEWED",
		AccessStyle:    schema.Denormalized,
		FromProperties: map[schema.PropertyName]schema.ColumnExpr{"addr": schema.Col("orig_h")},
	}
	c := Compute(rs, nil, ast.Out)
	require.Equal(t, MixedAccess, c.Strategy)
	require.Equal(t, ViaEdgeRow, c.LeftAccess)
	require.Equal(t, ViaNodeTable, c.RightAccess)
}

func TestComputeFkEdgeIsSelfJoin(t *testing.T) {
	rs := &schema.RelationshipSchema{Type: "REPORTS_TO", AccessStyle: schema.FkEdge}
	c := Compute(rs, nil, ast.Out)
	require.Equal(t, FkEdgeJoin, c.Strategy)
	require.Equal(t, ViaSelfJoin, c.RightAccess)
}

func TestComputeIncomingDirectionSwapsEndpointAccess(t *testing.T) {
	rs := &schema.RelationshipSchema{
		Type:           "VIEWED",
		AccessStyle:    schema.Denormalized,
		FromProperties: map[schema.PropertyName]schema.ColumnExpr{"addr": schema.Col("orig_h")},
	}
	out := Compute(rs, nil, ast.Out)
	in := Compute(rs, nil, ast.In)
	require.Equal(t, out.LeftAccess, in.RightAccess)
	require.Equal(t, out.RightAccess, in.LeftAccess)
}

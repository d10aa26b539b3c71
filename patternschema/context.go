// Package patternschema implements the Pattern Schema Resolver (C6): the
// single source of truth for how a GraphRel's endpoints and edge are
// physically accessed, computed once during optimization (C5) and consulted
// read-only by the render-plan builder (C7) for JOIN shape, column
// resolution and CTE generation.
package patternschema

import (
	"github.com/clickgraph/clickgraph/cypher/ast"
	"github.com/clickgraph/clickgraph/schema"
)

// NodeAccess describes how one endpoint of a relationship is reached.
type NodeAccess int

const (
	// ViaNodeTable: the endpoint has its own node table, joined in.
	ViaNodeTable NodeAccess = iota
	// ViaEdgeRow: the endpoint's properties are embedded in the edge's own
	// row (Denormalized/SingleTableScan access), no join required.
	ViaEdgeRow
	// ViaSelfJoin: the endpoint is reached by self-joining the node table
	// through a foreign-key column (FkEdge access).
	ViaSelfJoin
)

// JoinStrategy classifies a GraphRel per spec.md §4.5.1.
type JoinStrategy int

const (
	Traditional JoinStrategy = iota
	SingleTableScan
	MixedAccess
	FkEdgeJoin
	EdgeToEdgeCoupledSameRow
)

func (j JoinStrategy) String() string {
	switch j {
	case SingleTableScan:
		return "SingleTableScan"
	case MixedAccess:
		return "MixedAccess"
	case FkEdgeJoin:
		return "FkEdgeJoin"
	case EdgeToEdgeCoupledSameRow:
		return "EdgeToEdge/CoupledSameRow"
	default:
		return "Traditional"
	}
}

// Context is the per-GraphRel resolution the render-plan builder consults;
// spec.md §4.6 requires it be computed during analysis/optimization and
// handed to rendering as an immutable side-input (spec.md §9 design note),
// rather than recomputed from scratch (recomputation remains available as a
// correctness fallback via Compute, below).
type Context struct {
	LeftAccess  NodeAccess
	RightAccess NodeAccess
	EdgeAccess  NodeAccess
	Strategy    JoinStrategy
	RelTypes    []string
}

// Compute derives a Context from a bound relationship schema; it is the
// single place join-strategy classification happens, called once by the
// optimizer's join-inference pass and available to call again at render
// time as a fallback if the side-input map is ever incomplete (e.g. a
// GraphRel synthesized after the map was built).
func Compute(rs *schema.RelationshipSchema, candidates []*schema.RelationshipSchema, direction ast.Direction) Context {
	if rs == nil {
		types := make([]string, 0, len(candidates))
		for _, c := range candidates {
			types = append(types, c.Type)
		}
		return Context{Strategy: Traditional, RelTypes: types}
	}

	c := Context{RelTypes: []string{rs.Type}}
	switch rs.AccessStyle {
	case schema.Denormalized:
		fromEmbedded := len(rs.FromProperties) > 0
		toEmbedded := len(rs.ToProperties) > 0
		c.EdgeAccess = ViaEdgeRow
		switch {
		case fromEmbedded && toEmbedded:
			c.LeftAccess, c.RightAccess = ViaEdgeRow, ViaEdgeRow
			c.Strategy = SingleTableScan
		case fromEmbedded:
			c.LeftAccess, c.RightAccess = ViaEdgeRow, ViaNodeTable
			c.Strategy = MixedAccess
		case toEmbedded:
			c.LeftAccess, c.RightAccess = ViaNodeTable, ViaEdgeRow
			c.Strategy = MixedAccess
		default:
			c.LeftAccess, c.RightAccess = ViaNodeTable, ViaNodeTable
			c.Strategy = Traditional
		}
	case schema.FkEdge:
		c.LeftAccess = ViaNodeTable
		c.RightAccess = ViaSelfJoin
		c.EdgeAccess = ViaSelfJoin
		c.Strategy = FkEdgeJoin
	case schema.Polymorphic:
		c.LeftAccess = ViaNodeTable
		c.RightAccess = ViaNodeTable
		c.EdgeAccess = ViaNodeTable
		c.Strategy = Traditional
	default: // Standard
		c.LeftAccess = ViaNodeTable
		c.RightAccess = ViaNodeTable
		c.EdgeAccess = ViaNodeTable
		c.Strategy = Traditional
	}
	// LeftAccess/RightAccess above are derived from from/to schema fields;
	// when the pattern was written with an incoming arrow (`<-`), the plan's
	// Left endpoint is actually the schema's "to" side, so swap to keep
	// LeftAccess/RightAccess aligned with GraphRel.Left/Right rather than
	// with From/To.
	if direction == ast.In {
		c.LeftAccess, c.RightAccess = c.RightAccess, c.LeftAccess
	}
	return c
}

package optimizer

import (
	"fmt"

	"github.com/clickgraph/clickgraph/cypher/ast"
	"github.com/clickgraph/clickgraph/patternschema"
	"github.com/clickgraph/clickgraph/plan"
	"github.com/clickgraph/clickgraph/planexpr"
	"github.com/clickgraph/clickgraph/schema"
)

// relKey names a GraphRel for the patternschema.Context side-input map,
// preferring its Cypher alias (`-[r:FOLLOWS]->`) and falling back to a
// positional name for anonymous relationships (`-[:FOLLOWS]->`), since the
// render-plan builder (C7) needs a stable lookup key either way.
func relKey(rel *plan.GraphRel) string {
	if rel.Alias != "" {
		return rel.Alias
	}
	return fmt.Sprintf("__rel_%s_%s_%s", rel.Left.Alias, joinTypes(rel.Types), rel.Right.Alias)
}

func joinTypes(types []string) string {
	s := ""
	for i, t := range types {
		if i > 0 {
			s += "|"
		}
		s += t
	}
	return s
}

// edgeAlias names the table alias an edge table is joined under; a named
// relationship variable (`-[r]->`) uses its own alias directly so property
// references resolved by the analyzer (`r.since`) line up with the FROM/JOIN
// alias the printer emits.
func edgeAlias(rel *plan.GraphRel) string {
	if rel.Alias != "" {
		return rel.Alias
	}
	return fmt.Sprintf("__e_%s_%s", rel.Left.Alias, rel.Right.Alias)
}

// fromToSides returns the node aliases (and node schemas) playing the
// relationship schema's "from" and "to" role, accounting for an incoming
// arrow swapping which written endpoint (Left/Right) plays which role —
// the same convention patternschema.Compute uses for access-style swapping.
func fromToSides(rel *plan.GraphRel) (fromAlias string, fromSchema *schema.NodeSchema, toAlias string, toSchema *schema.NodeSchema) {
	if rel.Direction == ast.In {
		return rel.Right.Alias, rel.Right.NodeSchema, rel.Left.Alias, rel.Left.NodeSchema
	}
	return rel.Left.Alias, rel.Left.NodeSchema, rel.Right.Alias, rel.Right.NodeSchema
}

// joinBuild accumulates the state one buildJoinsForPattern call produces:
// the Joins list under construction, which node aliases are already
// available in the FROM/JOIN list, and the anchor chosen for this pattern.
type joinBuild struct {
	joins       []plan.Join
	available   map[string]bool
	anchorAlias string
	anchorDB    string
	anchorTable string
	anchorFinal bool
	vlpRels     []*plan.GraphRel
	joinKind    plan.JoinKind
}

// buildJoinsForPattern runs anchor selection (C5.3) and join inference
// (C5.5) over one fully direction/schema-resolved elements list, returning
// the assembled GraphJoins plus the per-rel patternschema.Context entries it
// computed along the way.
func buildJoinsForPattern(elements []plan.Node, optional bool) (*plan.GraphJoins, map[string]patternschema.Context, error) {
	jb := &joinBuild{available: map[string]bool{}, joinKind: plan.InnerJoin}
	if optional {
		jb.joinKind = plan.LeftJoin
	}
	joinCtx := map[string]patternschema.Context{}

	for _, el := range elements {
		switch v := el.(type) {
		case *plan.GraphNode:
			jb.admitNode(v)
		case *plan.GraphRel:
			if v.VariableLength != nil || v.ShortestPathMode != ast.NoShortestPath {
				// Endpoints of a VLP edge are still brought into scope (their
				// properties are resolved through the recursive CTE's exported
				// columns at render time, not through a join here), but no Join
				// entry is emitted for the edge itself.
				jb.admitNode(v.Left)
				jb.admitNode(v.Right)
				jb.vlpRels = append(jb.vlpRels, v)
				continue
			}
			pctx := patternschema.Compute(v.RelSchema, v.Candidates, v.Direction)
			joinCtx[relKey(v)] = pctx
			if err := jb.admitRel(v, pctx); err != nil {
				return nil, nil, err
			}
		}
	}

	gj := &plan.GraphJoins{
		Joins:          jb.joins,
		AnchorAlias:    jb.anchorAlias,
		AnchorDatabase: jb.anchorDB,
		AnchorTable:    jb.anchorTable,
		AnchorUseFinal: jb.anchorFinal,
		VLPRels:        jb.vlpRels,
	}
	return gj, joinCtx, nil
}

// admitNode brings a node alias into the FROM/JOIN list as the anchor (the
// pattern's first alias) or, if an anchor already exists and this alias is
// unreachable from it so far, as a disjoint component joined with a cross
// join (spec.md §4.3's comma-separated, alias-disjoint pattern case). The
// cross join is kept as is; a WHERE predicate connecting the two components
// is applied as a filter, not turned into an ON condition.
func (jb *joinBuild) admitNode(n *plan.GraphNode) {
	if n == nil || jb.available[n.Alias] {
		return
	}
	if jb.anchorAlias == "" {
		jb.anchorAlias = n.Alias
		if n.NodeSchema != nil {
			jb.anchorDB = n.NodeSchema.Database
			jb.anchorTable = n.NodeSchema.Table
			jb.anchorFinal = n.NodeSchema.UseFinal
		}
		jb.available[n.Alias] = true
		return
	}
	jb.joins = append(jb.joins, plan.Join{
		Kind:       plan.CrossJoin,
		TableAlias: n.Alias,
		Database:   dbOf(n.NodeSchema),
		Table:      tableOf(n.NodeSchema),
		NodeSchema: n.NodeSchema,
	})
	jb.available[n.Alias] = true
}

func dbOf(ns *schema.NodeSchema) string {
	if ns == nil {
		return ""
	}
	return ns.Database
}
func tableOf(ns *schema.NodeSchema) string {
	if ns == nil {
		return ""
	}
	return ns.Table
}

// admitRel emits the Join entries one GraphRel contributes, per its
// patternschema.Context strategy (spec.md §4.5.1). The strategy governs how
// the ON predicate is built — a dedicated edge table's own FK-style ID
// columns for Traditional/Polymorphic access, the relationship's embedded
// from/to property columns for Denormalized access (SingleTableScan/
// MixedAccess), a self-join through the FkColumn for FkEdgeJoin access — but
// a node alias with its own catalog schema is always joined for real: filter
// and projection tagging (C4.4/C4.5) already resolved its properties against
// that real table (analyzer/tag.go's "a node with its own schema always wins
// over embedding"), so render needs the table present regardless of how
// cheaply the edge row alone could answer a narrower query.
func (jb *joinBuild) admitRel(rel *plan.GraphRel, pctx patternschema.Context) error {
	if pctx.Strategy == patternschema.FkEdgeJoin {
		return jb.admitFkEdge(rel)
	}
	return jb.admitEdgeTable(rel)
}

// admitEdgeTable joins in a relationship's own table once, with an ON
// predicate equating the edge's identity columns to the ID columns of both
// endpoints (each side the edge schema maps), then brings in any endpoint
// node table still missing.
func (jb *joinBuild) admitEdgeTable(rel *plan.GraphRel) error {
	rs := rel.RelSchema
	if rs == nil {
		return nil // unresolved wildcard relationship; no join is emitted for it
	}
	alias := edgeAlias(rel)
	fromAlias, fromSchema, toAlias, toSchema := fromToSides(rel)
	fromEdgeCols := edgeIdentityColumns(rs, fromSchema, true)
	toEdgeCols := edgeIdentityColumns(rs, toSchema, false)

	var on []planexpr.Expr
	if len(fromEdgeCols) > 0 {
		on = append(on, rawEq(alias, fromEdgeCols, fromAlias, idCols(fromSchema)))
	}
	if len(toEdgeCols) > 0 {
		on = append(on, rawEq(alias, toEdgeCols, toAlias, idCols(toSchema)))
	}

	jb.joins = append(jb.joins, plan.Join{
		Kind:       jb.joinKind,
		TableAlias: alias,
		Database:   rs.Database,
		Table:      rs.Table,
		JoiningOn:  on,
		GraphRel:   rel,
	})

	if !jb.available[rel.Left.Alias] {
		leftCols := fromEdgeCols
		if fromAlias != rel.Left.Alias {
			leftCols = toEdgeCols
		}
		jb.joinNodeToEdge(rel.Left, alias, leftCols)
	}
	if !jb.available[rel.Right.Alias] {
		rightCols := toEdgeCols
		if toAlias != rel.Right.Alias {
			rightCols = fromEdgeCols
		}
		jb.joinNodeToEdge(rel.Right, alias, rightCols)
	}
	return nil
}

// edgeIdentityColumns returns the edge table's own columns correlating to
// one endpoint's node identity: FromIDColumn/ToIDColumn for a dedicated edge
// table (Standard/Polymorphic access), or the Denormalized from/to property
// map's columns for that endpoint's NodeID properties when the relationship
// embeds the endpoint instead of declaring FK-style ID columns.
func edgeIdentityColumns(rs *schema.RelationshipSchema, ns *schema.NodeSchema, isFromSide bool) []string {
	if rs.AccessStyle != schema.Denormalized {
		if isFromSide {
			return rs.FromIDColumn
		}
		return rs.ToIDColumn
	}
	props := rs.FromProperties
	if !isFromSide {
		props = rs.ToProperties
	}
	if ns == nil {
		return nil
	}
	cols := make([]string, 0, len(ns.NodeID))
	for _, p := range ns.NodeID {
		m, ok := props[p]
		if !ok {
			return nil // embedding doesn't cover this endpoint's identity; Traditional-style IDColumn ON falls through empty
		}
		cols = append(cols, m.SQL())
	}
	return cols
}

func (jb *joinBuild) joinNodeToEdge(n *plan.GraphNode, edgeAlias string, edgeCols []string) {
	jb.joins = append(jb.joins, plan.Join{
		Kind:       jb.joinKind,
		TableAlias: n.Alias,
		Database:   dbOf(n.NodeSchema),
		Table:      tableOf(n.NodeSchema),
		JoiningOn:  []planexpr.Expr{rawEq(n.Alias, n.NodeSchema.IDColumns(), edgeAlias, edgeCols)},
		NodeSchema: n.NodeSchema,
	})
	jb.available[n.Alias] = true
}

// admitFkEdge joins the "to" endpoint's node table back in through the
// relationship's FkColumn (spec.md §4.5.1's FkEdgeJoin case: no dedicated
// edge table, the edge is the FK column itself).
func (jb *joinBuild) admitFkEdge(rel *plan.GraphRel) error {
	rs := rel.RelSchema
	if rs == nil {
		return nil
	}
	fromAlias, _, toAlias, toSchema := fromToSides(rel)
	newAlias, newSchema := toAlias, toSchema
	if jb.available[toAlias] && !jb.available[fromAlias] {
		newAlias, newSchema = fromAlias, rel.Left.NodeSchema
		if fromAlias == rel.Right.Alias {
			newSchema = rel.Right.NodeSchema
		}
	}
	if jb.available[newAlias] {
		return nil // both endpoints already joined (e.g. a cycle); no new table needed
	}
	on := fmt.Sprintf("%s.%s = %s", fromAlias, rs.FkColumn, schema.SQLTuple(toAlias, toSchema.IDColumns()))
	jb.joins = append(jb.joins, plan.Join{
		Kind:       jb.joinKind,
		TableAlias: newAlias,
		Database:   dbOf(newSchema),
		Table:      tableOf(newSchema),
		JoiningOn:  []planexpr.Expr{planexpr.RawSQL{SQL: on}},
		NodeSchema: newSchema,
		GraphRel:   rel,
	})
	jb.available[newAlias] = true
	return nil
}

func idCols(ns *schema.NodeSchema) []string {
	if ns == nil {
		return nil
	}
	return ns.IDColumns()
}

func rawEq(leftAlias string, leftCols []string, rightAlias string, rightCols []string) planexpr.Expr {
	return planexpr.RawSQL{SQL: schema.SQLEquality(leftAlias, leftCols, rightAlias, rightCols)}
}

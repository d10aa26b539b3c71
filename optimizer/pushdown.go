package optimizer

import (
	"github.com/clickgraph/clickgraph/plan"
	"github.com/clickgraph/clickgraph/planexpr"
)

// splitConjuncts flattens a top-level AND chain into its conjuncts; a nil or
// non-AND expression is returned as a single-element (or empty) slice.
func splitConjuncts(e planexpr.Expr) []planexpr.Expr {
	if e == nil {
		return nil
	}
	if bo, ok := e.(planexpr.BinaryOp); ok && bo.Op == "AND" {
		return append(splitConjuncts(bo.Left), splitConjuncts(bo.Right)...)
	}
	return []planexpr.Expr{e}
}

func andAll(conjuncts []planexpr.Expr) planexpr.Expr {
	var out planexpr.Expr
	for _, c := range conjuncts {
		if out == nil {
			out = c
			continue
		}
		out = planexpr.BinaryOp{Op: "AND", Left: out, Right: c}
	}
	return out
}

// relAliasSet collects one GraphRel's own aliases (its two endpoints and,
// if named, its own variable), for pushdown's "does this conjunct mention
// only this rel's aliases" test.
func relAliasSet(rel *plan.GraphRel) map[string]bool {
	out := map[string]bool{rel.Left.Alias: true, rel.Right.Alias: true}
	if rel.Alias != "" {
		out[rel.Alias] = true
	}
	return out
}

func subsetOf(aliases []string, set map[string]bool) bool {
	for _, a := range aliases {
		if !set[a] {
			return false
		}
	}
	return true
}

// pushdownFilters implements spec.md §4.5's filter-pushdown pass: a WHERE
// conjunct referencing only one GraphRel's own aliases (its two endpoints
// and, if named, its own variable) moves onto that relationship's
// WherePredicate, where it travels with the edge through join building and
// can be applied in the same ON/WHERE the edge itself needs; anything else
// is left for the caller to re-attach above the eventual GraphJoins.
func pushdownFilters(elements []plan.Node, where planexpr.Expr) (remainder planexpr.Expr) {
	conjuncts := splitConjuncts(where)
	var leftover []planexpr.Expr

	for _, c := range conjuncts {
		aliases := planexpr.Aliases(c)
		pushed := false
		for _, el := range elements {
			rel, ok := el.(*plan.GraphRel)
			if !ok || rel.VariableLength != nil {
				continue
			}
			if subsetOf(aliases, relAliasSet(rel)) {
				rel.WherePredicate = andAll(append(splitConjuncts(rel.WherePredicate), c))
				pushed = true
				break
			}
		}
		if !pushed {
			leftover = append(leftover, c)
		}
	}
	return andAll(leftover)
}

// dedupeElements drops repeated non-optional GraphNode occurrences of the
// same alias (the builder can hand comma-separated branches the same
// *GraphNode pointer more than once, e.g. `MATCH (a)-[:X]->(b), (a)-[:Y]->(c)`
// lists `a` in both branches' element slices). An optional occurrence is
// kept: per spec.md §4.3 it still needs its own LEFT JOIN anchor even when
// the alias was already bound by an earlier, non-optional MATCH.
func dedupeElements(elements []plan.Node) []plan.Node {
	seen := map[string]bool{}
	out := make([]plan.Node, 0, len(elements))
	for _, el := range elements {
		n, ok := el.(*plan.GraphNode)
		if !ok {
			out = append(out, el)
			continue
		}
		if !n.Optional && seen[n.Alias] {
			continue
		}
		if !n.Optional {
			seen[n.Alias] = true
		}
		out = append(out, el)
	}
	return out
}

// relationshipUniqueness returns the extra WHERE conjuncts enforcing Cypher's
// relationship-uniqueness rule (spec.md §4.5, Testable Property — no two
// distinct relationship aliases within one MATCH clause may bind the same
// edge row): a pairwise inequality between every two aliased, same-table
// relationships' edge-identity columns.
func relationshipUniqueness(elements []plan.Node) []planexpr.Expr {
	var rels []*plan.GraphRel
	for _, el := range elements {
		if r, ok := el.(*plan.GraphRel); ok && r.Alias != "" && r.RelSchema != nil && r.VariableLength == nil {
			rels = append(rels, r)
		}
	}
	var out []planexpr.Expr
	for i := 0; i < len(rels); i++ {
		for j := i + 1; j < len(rels); j++ {
			a, b := rels[i], rels[j]
			if a.RelSchema.Table != b.RelSchema.Table || a.RelSchema.EdgeIDColumn == "" {
				continue
			}
			col := a.RelSchema.EdgeIDColumn
			out = append(out, planexpr.RawSQL{
				SQL: edgeAlias(a) + "." + col + " <> " + edgeAlias(b) + "." + col,
			})
		}
	}
	return out
}

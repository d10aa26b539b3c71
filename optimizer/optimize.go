// Package optimizer implements the optimizer passes (C5): filter pushdown,
// duplicate-scan removal, anchor-node selection, bidirectional/ambiguous-type
// expansion and join inference, collapsing each GraphPattern into a
// GraphJoins (or a Union of them, when a pattern has more than one viable
// reading) ready for the render-plan builder (C7).
package optimizer

import (
	"github.com/clickgraph/clickgraph/patternschema"
	"github.com/clickgraph/clickgraph/plan"
)

// Result is what Optimize hands to the render-plan builder: the rewritten
// plan plus the per-relationship patternschema.Context side-input that join
// inference computed while it still had the bound schema and direction in
// hand (spec.md §9's "compute once, consult read-only at render" design).
type Result struct {
	Plan       plan.Node
	PatternCtx map[string]patternschema.Context
}

// Optimize runs the C5 passes bottom-up over the analyzed plan, replacing
// every GraphPattern with its joined-and-anchored form.
func Optimize(n plan.Node) (*Result, error) {
	patternCtx := map[string]patternschema.Context{}

	out, err := plan.TransformUp(n, func(node plan.Node) (plan.Node, error) {
		gp, ok := node.(*plan.GraphPattern)
		if !ok {
			return node, nil
		}
		return optimizeGraphPattern(gp, patternCtx)
	})
	if err != nil {
		return nil, err
	}
	return &Result{Plan: out, PatternCtx: patternCtx}, nil
}

// optimizeGraphPattern runs dedup, filter pushdown, ambiguous-reading
// expansion and join inference over one GraphPattern, merging any
// per-variant patternschema.Context entries into the shared side-input map.
func optimizeGraphPattern(gp *plan.GraphPattern, patternCtx map[string]patternschema.Context) (plan.Node, error) {
	elements := dedupeElements(gp.Elements)
	remainder := pushdownFilters(elements, gp.Where)

	axes := buildAxes(elements)
	assignments := enumerateAssignments(axes)

	branches := make([]plan.Node, 0, len(assignments))
	for _, assignment := range assignments {
		variant := applyAssignment(elements, assignment)
		gj, ctxPart, err := buildJoinsForPattern(variant, gp.Optional)
		if err != nil {
			return nil, err
		}
		gj.Input = gp.Input
		for k, v := range ctxPart {
			patternCtx[k] = v
		}

		var branch plan.Node = gj
		if extra := relationshipUniqueness(variant); len(extra) > 0 {
			branch = &plan.Filter{Input: branch, Predicate: andAll(extra)}
		}
		branches = append(branches, branch)
	}

	var result plan.Node
	if len(branches) == 1 {
		result = branches[0]
	} else {
		result = &plan.Union{Inputs: branches, All: true, BranchesKind: "pattern-expansion"}
	}

	if remainder != nil {
		result = &plan.Filter{Input: result, Predicate: remainder}
	}
	return result, nil
}

package optimizer

import (
	"github.com/clickgraph/clickgraph/cypher/ast"
	"github.com/clickgraph/clickgraph/plan"
	"github.com/clickgraph/clickgraph/schema"
)

// relOption is one concrete (direction, schema) choice for a GraphRel that
// arrived at the optimizer still ambiguous: written with `-` (ast.Either) or
// matching more than one relationship schema (wildcard/polymorphic type).
type relOption struct {
	direction ast.Direction
	relSchema *schema.RelationshipSchema
}

type relAxis struct {
	rel     *plan.GraphRel
	options []relOption
}

// buildAxes finds every GraphRel in elements that still has more than one
// viable (direction, schema) reading and records its option set. A rel with
// VariableLength set is left out: it is resolved to a recursive CTE at
// render time (C7/C8), never expanded into join variants here.
func buildAxes(elements []plan.Node) []relAxis {
	var axes []relAxis
	for _, el := range elements {
		rel, ok := el.(*plan.GraphRel)
		if !ok || rel.VariableLength != nil {
			continue
		}

		directions := []ast.Direction{rel.Direction}
		if rel.Direction == ast.Either {
			directions = []ast.Direction{ast.Out, ast.In}
		}

		schemas := []*schema.RelationshipSchema{rel.RelSchema}
		if rel.RelSchema == nil && len(rel.Candidates) > 0 {
			schemas = rel.Candidates
		}

		if len(directions) == 1 && len(schemas) == 1 {
			continue // already fully determined, no axis needed
		}

		var options []relOption
		for _, d := range directions {
			for _, s := range schemas {
				options = append(options, relOption{direction: d, relSchema: s})
			}
		}
		axes = append(axes, relAxis{rel: rel, options: options})
	}
	return axes
}

// enumerateAssignments returns the cartesian product of every axis's option
// set, one map per variant. A pattern with no ambiguous rels returns a
// single empty assignment (no expansion needed).
func enumerateAssignments(axes []relAxis) []map[*plan.GraphRel]relOption {
	assignments := []map[*plan.GraphRel]relOption{{}}
	for _, axis := range axes {
		var next []map[*plan.GraphRel]relOption
		for _, existing := range assignments {
			for _, opt := range axis.options {
				cp := make(map[*plan.GraphRel]relOption, len(existing)+1)
				for k, v := range existing {
					cp[k] = v
				}
				cp[axis.rel] = opt
				next = append(next, cp)
			}
		}
		assignments = next
	}
	return assignments
}

// applyAssignment clones elements, substituting each axis-bearing GraphRel
// with a copy carrying its chosen direction/schema for this variant. Node
// elements and already-determined rels are passed through unchanged (no
// copy needed, since nothing about them varies across variants).
func applyAssignment(elements []plan.Node, assignment map[*plan.GraphRel]relOption) []plan.Node {
	if len(assignment) == 0 {
		return elements
	}
	out := make([]plan.Node, len(elements))
	for i, el := range elements {
		rel, ok := el.(*plan.GraphRel)
		if !ok {
			out[i] = el
			continue
		}
		opt, chosen := assignment[rel]
		if !chosen {
			out[i] = el
			continue
		}
		cp := *rel
		cp.Direction = opt.direction
		cp.RelSchema = opt.relSchema
		cp.Candidates = nil
		out[i] = &cp
	}
	return out
}

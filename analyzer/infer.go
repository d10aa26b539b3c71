package analyzer

import (
	"sort"

	"github.com/clickgraph/clickgraph/cgerrors"
	"github.com/clickgraph/clickgraph/cypher/ast"
	"github.com/clickgraph/clickgraph/plan"
	"github.com/clickgraph/clickgraph/schema"
)

// InferTypes is analyzer pass 2 (spec.md §4.4.2): fills in the label of
// unlabeled nodes and the type set of wildcard relationships by
// intersecting the relationship schemas that could apply, bounded by
// opts.MaxInferredTypes. Mutates GraphNode/GraphRel in place (they are
// pointers reachable from the plan tree built by plan.Build) and returns an
// error on AmbiguousLabel, or RelNotFound when no relationship schema fits a
// wildcard relationship.
func InferTypes(n plan.Node, sch *schema.GraphSchema, maxInferredTypes int) error {
	var rels []*plan.GraphRel
	plan.Inspect(n, func(node plan.Node) bool {
		if r, ok := node.(*plan.GraphRel); ok {
			rels = append(rels, r)
		}
		return true
	})

	for _, r := range rels {
		if err := inferRelTypes(r, sch, maxInferredTypes); err != nil {
			return err
		}
	}
	for _, r := range rels {
		if err := inferEndpointLabel(r.Left, r, sch, maxInferredTypes); err != nil {
			return err
		}
		if err := inferEndpointLabel(r.Right, r, sch, maxInferredTypes); err != nil {
			return err
		}
	}
	return nil
}

// inferRelTypes fills r.Types when the pattern wrote no relationship type at
// all (a bare `-[r]->`), taking every declared type as a candidate and then
// narrowing by whichever endpoint already carries a label.
func inferRelTypes(r *plan.GraphRel, sch *schema.GraphSchema, maxInferredTypes int) error {
	if len(r.Types) > 0 {
		return nil
	}
	candidates := sch.AllRelSchemas()
	candidates = filterByEndpoints(candidates, r.Left.Label, r.Right.Label)
	if len(candidates) == 0 {
		return cgerrors.ErrRelNotFound.New("<wildcard>", sch.Name)
	}
	if len(candidates) > maxInferredTypes {
		return cgerrors.ErrAmbiguousLabel.New(r.Alias, maxInferredTypes, relTypeNames(candidates))
	}
	r.Candidates = candidates
	r.Types = relTypeNames(candidates)
	return nil
}

// inferEndpointLabel fills node.Label when the node pattern wrote no label,
// collecting the from/to label of every relationship schema consistent with
// r's declared types and direction: one label is assigned, several (up to
// maxInferredTypes) become node.LabelCandidates.
func inferEndpointLabel(node *plan.GraphNode, r *plan.GraphRel, sch *schema.GraphSchema, maxInferredTypes int) error {
	if node.Label != "" {
		return nil
	}

	isLeftEndpoint := node == r.Left
	var candidates []*schema.RelationshipSchema
	for _, t := range r.Types {
		candidates = append(candidates, sch.CandidateRels(t)...)
	}

	labelSet := map[string]bool{}
	for _, c := range candidates {
		fromLabel, toLabel := c.FromNodeLabel, c.ToNodeLabel
		if r.Direction == ast.In { // arrow points at left, so left is "to"
			fromLabel, toLabel = toLabel, fromLabel
		}
		if isLeftEndpoint {
			labelSet[fromLabel] = true
		} else {
			labelSet[toLabel] = true
		}
	}

	labels := make([]string, 0, len(labelSet))
	for l := range labelSet {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	switch {
	case len(labels) == 0:
		return cgerrors.ErrAmbiguousLabel.New(node.Alias, maxInferredTypes, labels)
	case len(labels) == 1:
		node.Label = labels[0]
	case len(labels) <= maxInferredTypes:
		node.LabelCandidates = labels
	default:
		return cgerrors.ErrAmbiguousLabel.New(node.Alias, maxInferredTypes, labels)
	}
	return nil
}

func filterByEndpoints(in []*schema.RelationshipSchema, fromLabel, toLabel string) []*schema.RelationshipSchema {
	var out []*schema.RelationshipSchema
	for _, r := range in {
		if fromLabel != "" && r.FromNodeLabel != fromLabel {
			continue
		}
		if toLabel != "" && r.ToNodeLabel != toLabel {
			continue
		}
		out = append(out, r)
	}
	return out
}

func relTypeNames(in []*schema.RelationshipSchema) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range in {
		if !seen[r.Type] {
			seen[r.Type] = true
			out = append(out, r.Type)
		}
	}
	sort.Strings(out)
	return out
}

package analyzer

import (
	"strings"

	"github.com/clickgraph/clickgraph/cgerrors"
	"github.com/clickgraph/clickgraph/plan"
	"github.com/clickgraph/clickgraph/schema"
)

// BindSchema is analyzer pass 3 (spec.md §4.4.3): attaches each GraphNode's
// NodeSchema and each GraphRel's RelationshipSchema (and AccessStyle) via
// the catalog, now that every alias carries a concrete label/type set.
func BindSchema(n plan.Node, sch *schema.GraphSchema) error {
	var bindErr error
	plan.Inspect(n, func(node plan.Node) bool {
		if bindErr != nil {
			return false
		}
		switch v := node.(type) {
		case *plan.GraphNode:
			bindErr = bindNode(v, sch)
		case *plan.GraphRel:
			bindErr = bindRel(v, sch)
		}
		return bindErr == nil
	})
	return bindErr
}

func bindNode(v *plan.GraphNode, sch *schema.GraphSchema) error {
	if len(v.LabelCandidates) > 0 {
		for _, l := range v.LabelCandidates {
			ns, err := sch.LookupNode(l)
			if err != nil {
				return err
			}
			v.NodeSchemaCandidates = append(v.NodeSchemaCandidates, ns)
		}
		return nil
	}
	if v.Label == "" {
		return cgerrors.ErrAmbiguousLabel.New(v.Alias, 0, []string{})
	}
	ns, err := sch.LookupNode(v.Label)
	if err != nil {
		return err
	}
	v.NodeSchema = ns
	return nil
}

func bindRel(v *plan.GraphRel, sch *schema.GraphSchema) error {
	if len(v.Candidates) > 0 {
		// Already resolved to a candidate set by label/type inference
		// (wildcard relationship); access style is decided per-candidate at
		// render time since candidates may mix access styles.
		if len(v.Candidates) == 1 {
			v.RelSchema = v.Candidates[0]
			v.AccessStyle = v.RelSchema.AccessStyle
		}
		return nil
	}

	if len(v.Types) == 1 {
		rs, err := sch.LookupRel(v.Types[0], v.Left.Label, v.Right.Label)
		if err != nil {
			return err
		}
		v.RelSchema = rs
		v.AccessStyle = rs.AccessStyle
		return nil
	}

	// Multiple explicit types in one pattern (`-[:A|B]->`): every named type
	// is a candidate, narrowed by whichever endpoint labels are already
	// known.
	var candidates []*schema.RelationshipSchema
	for _, t := range v.Types {
		candidates = append(candidates, filterByEndpoints(sch.CandidateRels(t), v.Left.Label, v.Right.Label)...)
	}
	if len(candidates) == 0 {
		return cgerrors.ErrRelNotFound.New(strings.Join(v.Types, "|"), sch.Name)
	}
	v.Candidates = candidates
	if len(candidates) == 1 {
		v.RelSchema = candidates[0]
		v.AccessStyle = v.RelSchema.AccessStyle
	}
	return nil
}

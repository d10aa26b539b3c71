package analyzer

import (
	"github.com/clickgraph/clickgraph/plan"
	"github.com/clickgraph/clickgraph/schema"
)

// TagFilters is analyzer pass 4 (spec.md §4.4.4): rewrites every
// GraphPattern.Where and Filter.Predicate from raw PropertyRef expressions
// into schema-resolved ColumnRef/CTE references.
func TagFilters(n plan.Node, scope *Scope, sch *schema.GraphSchema) (plan.Node, error) {
	bc := buildBindingContext(n, scope)
	return plan.TransformUp(n, func(node plan.Node) (plan.Node, error) {
		switch v := node.(type) {
		case *plan.GraphPattern:
			if v.Where == nil {
				return v, nil
			}
			tagged, err := tagExpr(v.Where, bc, sch)
			if err != nil {
				return nil, err
			}
			cp := *v
			cp.Where = tagged
			return &cp, nil

		case *plan.Filter:
			tagged, err := tagExpr(v.Predicate, bc, sch)
			if err != nil {
				return nil, err
			}
			return &plan.Filter{Input: v.Input, Predicate: tagged}, nil

		case *plan.GraphRel:
			if v.WherePredicate == nil {
				return v, nil
			}
			tagged, err := tagExpr(v.WherePredicate, bc, sch)
			if err != nil {
				return nil, err
			}
			cp := *v
			cp.WherePredicate = tagged
			return &cp, nil

		default:
			return node, nil
		}
	})
}

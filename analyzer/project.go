package analyzer

import (
	"github.com/clickgraph/clickgraph/plan"
	"github.com/clickgraph/clickgraph/schema"
)

// TagProjections is analyzer pass 5 (spec.md §4.4.5): the same PropertyRef
// -> ColumnRef rewriting as filter tagging, applied to RETURN/WITH
// projection items, ORDER BY keys and GROUP BY keys/aggregates.
func TagProjections(n plan.Node, scope *Scope, sch *schema.GraphSchema) (plan.Node, error) {
	bc := buildBindingContext(n, scope)
	return plan.TransformUp(n, func(node plan.Node) (plan.Node, error) {
		switch v := node.(type) {
		case *plan.Projection:
			items, err := tagItems(v.Items, bc, sch)
			if err != nil {
				return nil, err
			}
			return &plan.Projection{Input: v.Input, Items: items, Distinct: v.Distinct, Kind: v.Kind}, nil

		case *plan.WithClause:
			items, err := tagItems(v.Items, bc, sch)
			if err != nil {
				return nil, err
			}
			cp := *v
			cp.Items = items
			return &cp, nil

		case *plan.OrderBy:
			keys := make([]plan.OrderKey, len(v.Keys))
			for i, k := range v.Keys {
				tagged, err := tagExpr(k.Expr, bc, sch)
				if err != nil {
					return nil, err
				}
				keys[i] = plan.OrderKey{Expr: tagged, Ascending: k.Ascending}
			}
			return &plan.OrderBy{Input: v.Input, Keys: keys}, nil

		case *plan.GroupBy:
			out := &plan.GroupBy{Input: v.Input}
			for _, k := range v.Keys {
				tagged, err := tagExpr(k, bc, sch)
				if err != nil {
					return nil, err
				}
				out.Keys = append(out.Keys, tagged)
			}
			aggs, err := tagItems(v.Aggregates, bc, sch)
			if err != nil {
				return nil, err
			}
			out.Aggregates = aggs
			if v.Having != nil {
				h, err := tagExpr(v.Having, bc, sch)
				if err != nil {
					return nil, err
				}
				out.Having = h
			}
			return out, nil

		default:
			return node, nil
		}
	})
}

func tagItems(items []plan.ProjItem, bc *bindingContext, sch *schema.GraphSchema) ([]plan.ProjItem, error) {
	out := make([]plan.ProjItem, len(items))
	for i, it := range items {
		tagged, err := tagExpr(it.Expr, bc, sch)
		if err != nil {
			return nil, err
		}
		out[i] = plan.ProjItem{Expr: tagged, Alias: it.Alias}
	}
	return out, nil
}

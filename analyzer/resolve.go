package analyzer

import (
	"github.com/clickgraph/clickgraph/cgerrors"
	"github.com/clickgraph/clickgraph/plan"
	"github.com/clickgraph/clickgraph/planexpr"
)

// ResolveVariables is analyzer pass 1 (spec.md §4.4.1): it assigns every
// alias a TypedVariable, walking the plan bottom-up (the Input chain mirrors
// clause order, oldest clause first) so a WITH's new CTE scope is visible to
// everything after it and invisible to everything before it. Returns the
// scope active at the root (the RETURN clause's view of the world).
func ResolveVariables(n plan.Node) (*Scope, error) {
	return resolveNode(n, NewScope(nil))
}

func resolveNode(n plan.Node, scope *Scope) (*Scope, error) {
	switch v := n.(type) {
	case nil:
		return scope, nil

	case *plan.GraphPattern:
		inner, err := resolveNode(v.Input, scope)
		if err != nil {
			return nil, err
		}
		for _, el := range v.Elements {
			switch e := el.(type) {
			case *plan.GraphNode:
				inner.Bind(TypedVariable{Alias: e.Alias, Source: BaseTable, LabelIfNode: e.Label})
			case *plan.GraphRel:
				if e.Alias != "" {
					inner.Bind(TypedVariable{Alias: e.Alias, Source: BaseTable})
				}
			}
		}
		return inner, nil

	case *plan.WithClause:
		inner, err := resolveNode(v.Input, scope)
		if err != nil {
			return nil, err
		}
		next := NewScope(inner)
		for _, a := range v.ExportedAliases {
			if a == "" {
				continue
			}
			next.Bind(TypedVariable{Alias: a, Source: CteExport, CTEName: v.CTEName, ExportAlias: a})
		}
		return next, nil

	case *plan.UnwindClause:
		inner, err := resolveNode(v.Input, scope)
		if err != nil {
			return nil, err
		}
		inner.Bind(TypedVariable{Alias: v.Binding, Source: BaseTable})
		return inner, nil

	case *plan.CartesianProduct:
		left, err := resolveNode(v.Left, scope)
		if err != nil {
			return nil, err
		}
		right, err := resolveNode(v.Right, left)
		if err != nil {
			return nil, err
		}
		return right, nil

	case *plan.GraphJoins:
		return resolveNode(v.Input, scope)

	case *plan.Filter:
		return resolveNode(v.Input, scope)
	case *plan.Projection:
		return resolveNode(v.Input, scope)
	case *plan.GroupBy:
		return resolveNode(v.Input, scope)
	case *plan.OrderBy:
		return resolveNode(v.Input, scope)
	case *plan.Limit:
		return resolveNode(v.Input, scope)
	case *plan.Call:
		return resolveNode(v.Input, scope)

	case *plan.Union:
		var last *Scope
		for _, in := range v.Inputs {
			s, err := resolveNode(in, NewScope(scope.parent))
			if err != nil {
				return nil, err
			}
			last = s
		}
		return last, nil

	default:
		return nil, cgerrors.ErrInternal.New("resolveNode: unhandled plan node type")
	}
}

// aliasesIn is a small helper shared by later passes: every alias an
// expression touches, via the single generic walker (planexpr.Aliases)
// rather than a bespoke traversal.
func aliasesIn(e planexpr.Expr) []string { return planexpr.Aliases(e) }

package analyzer

import (
	"fmt"

	"github.com/clickgraph/clickgraph/cgerrors"
	"github.com/clickgraph/clickgraph/cypher/ast"
	"github.com/clickgraph/clickgraph/plan"
	"github.com/clickgraph/clickgraph/planexpr"
)

// Validate is analyzer pass 6 (spec.md §4.4.6): checks that every alias
// referenced in an expression is bound, and rejects illegal shortestPath +
// variable-length combinations. Write operations are not representable in
// this plan at all (the parser has no write-clause grammar), so that half of
// "forbid write operations" is enforced by construction rather than by a
// runtime check here.
func Validate(n plan.Node, scope *Scope) error {
	bound := scope.BoundAliases()
	var validationErr error

	check := func(e planexpr.Expr) {
		if validationErr != nil || e == nil {
			return
		}
		for _, alias := range planexpr.Aliases(e) {
			if !bound[alias] {
				validationErr = cgerrors.ErrValidation.New(fmt.Sprintf("reference to unbound alias %q", alias))
				return
			}
		}
	}

	plan.Inspect(n, func(node plan.Node) bool {
		if validationErr != nil {
			return false
		}
		switch v := node.(type) {
		case *plan.GraphRel:
			if v.ShortestPathMode != ast.NoShortestPath && v.VariableLength == nil {
				validationErr = cgerrors.ErrValidation.New(fmt.Sprintf(
					"shortestPath()/allShortestPaths() requires a variable-length relationship, got fixed-length %q", v.Alias))
				return false
			}
			check(v.WherePredicate)
		case *plan.GraphPattern:
			check(v.Where)
		case *plan.Filter:
			check(v.Predicate)
		case *plan.Projection:
			for _, it := range v.Items {
				check(it.Expr)
			}
		case *plan.WithClause:
			for _, it := range v.Items {
				check(it.Expr)
			}
		case *plan.GroupBy:
			for _, k := range v.Keys {
				check(k)
			}
			for _, a := range v.Aggregates {
				check(a.Expr)
			}
			check(v.Having)
		case *plan.OrderBy:
			for _, k := range v.Keys {
				check(k.Expr)
			}
		}
		return validationErr == nil
	})

	return validationErr
}

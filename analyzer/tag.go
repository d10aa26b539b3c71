package analyzer

import (
	"fmt"

	"github.com/clickgraph/clickgraph/cgerrors"
	"github.com/clickgraph/clickgraph/plan"
	"github.com/clickgraph/clickgraph/planexpr"
	"github.com/clickgraph/clickgraph/schema"
)

// denormSide records that node alias is an endpoint of a Denormalized- or
// SingleTableScan-access relationship, so its properties resolve through the
// relationship schema's from/to property maps rather than through a node
// table of its own.
type denormSide struct {
	rel  *schema.RelationshipSchema
	side string
}

// buildBindingContext walks a bound plan tree (after BindSchema) collecting
// every alias's schema binding, so filter tagging (C4.4) and projection
// tagging (C4.5) can resolve alias.property without re-walking the tree per
// expression.
func buildBindingContext(n plan.Node, scope *Scope) *bindingContext {
	bc := newBindingContext(scope)
	denorm := map[string]denormSide{}

	plan.Inspect(n, func(node plan.Node) bool {
		switch v := node.(type) {
		case *plan.GraphNode:
			if v.NodeSchema != nil {
				bc.nodeSchema[v.Alias] = v.NodeSchema
			}
		case *plan.GraphRel:
			if v.Alias != "" && v.RelSchema != nil {
				bc.relSchema[v.Alias] = v.RelSchema
			}
			if v.RelSchema != nil && (v.RelSchema.AccessStyle == schema.Denormalized) {
				denorm[v.Left.Alias] = denormSide{rel: v.RelSchema, side: "from"}
				denorm[v.Right.Alias] = denormSide{rel: v.RelSchema, side: "to"}
			}
		}
		return true
	})

	for alias, d := range denorm {
		if _, isRealNodeTable := bc.nodeSchema[alias]; isRealNodeTable {
			continue // a node with its own schema always wins over embedding
		}
		bc.relSchema[alias] = d.rel
		bc.relSide[alias] = d.side
	}

	return bc
}

// resolveAliasAccess builds the schema.AliasSchema resolve_column needs for
// alias, consulting node bindings first, then relationship/denormalized
// bindings, per spec.md §4.1.
func (bc *bindingContext) resolveAliasAccess(alias string) (schema.AliasSchema, error) {
	if ns, ok := bc.nodeSchema[alias]; ok {
		return schema.AliasSchema{Node: ns}, nil
	}
	if rs, ok := bc.relSchema[alias]; ok {
		return schema.AliasSchema{Rel: rs, RelSide: bc.relSide[alias]}, nil
	}
	return schema.AliasSchema{}, cgerrors.ErrValidation.New(fmt.Sprintf("alias %q has no schema binding", alias))
}

// tagExpr rewrites every PropertyRef in e into a ColumnRef, per spec.md
// §4.4.4/§4.4.5: CTE-sourced aliases route through the exporting CTE's
// underscore-aliased column (never the base-table mapping again); base-table
// aliases resolve through resolve_column (C1).
func tagExpr(e planexpr.Expr, bc *bindingContext, sch *schema.GraphSchema) (planexpr.Expr, error) {
	return planexpr.Rewrite(e, func(x planexpr.Expr) (planexpr.Expr, error) {
		ref, ok := x.(planexpr.PropertyRef)
		if !ok {
			return x, nil
		}
		tv, bound := bc.scope.Lookup(ref.Alias)
		if !bound {
			return nil, cgerrors.ErrValidation.New(fmt.Sprintf("unbound alias %q", ref.Alias))
		}
		if tv.Source == CteExport {
			return planexpr.ColumnRef{
				Alias:     ref.Alias,
				Property:  ref.Property,
				SourceCTE: tv.CTEName,
				CTEColumn: fmt.Sprintf("%s_%s", tv.ExportAlias, ref.Property),
			}, nil
		}
		as, err := bc.resolveAliasAccess(ref.Alias)
		if err != nil {
			return nil, err
		}
		col, err := sch.ResolveColumn(as, ref.Property)
		if err != nil {
			return nil, err
		}
		return planexpr.ColumnRef{Alias: ref.Alias, Property: ref.Property, Column: col}, nil
	})
}

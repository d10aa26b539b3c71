package render

import (
	"fmt"

	"github.com/clickgraph/clickgraph/cgerrors"
	"github.com/clickgraph/clickgraph/internal/ctx"
	"github.com/clickgraph/clickgraph/plan"
	"github.com/clickgraph/clickgraph/planexpr"
	"github.com/clickgraph/clickgraph/schema"
)

// buildGraphJoins translates one optimized GraphJoins (FROM anchor + ordinary
// joins, plus any VLP relationships) into a render core, recursing into its
// own Input (a prior WITH-clause statement, or nil for the first pattern).
func (b *builder) buildGraphJoins(gj *plan.GraphJoins) (*Plan, error) {
	p, err := b.buildCore(gj.Input)
	if err != nil {
		return nil, err
	}
	if p.Union != nil {
		return nil, cgerrors.ErrUnsupportedFeature.New("GraphJoins over a pattern-expansion union input")
	}
	if p.From.Table == "" && p.From.CTERef == "" {
		p.From = TableRef{Database: gj.AnchorDatabase, Table: gj.AnchorTable, Alias: gj.AnchorAlias, UseFinal: gj.AnchorUseFinal}
	} else {
		// The input core already set p.From (an earlier MATCH clause); this
		// pattern's own anchor is cross-joined onto it rather than becoming the
		// FROM table. After a WITH clause the input core holds only the CTE's
		// cross join and no FROM, so the branch above applies instead.
		p.Joins = append(p.Joins, Join{Kind: plan.CrossJoin, Table: TableRef{
			Database: gj.AnchorDatabase, Table: gj.AnchorTable, Alias: gj.AnchorAlias, UseFinal: gj.AnchorUseFinal,
		}})
	}

	for _, j := range gj.Joins {
		on := andConjuncts(j.JoiningOn)
		if j.GraphRel != nil && j.GraphRel.WherePredicate != nil {
			// A filter pushed onto the relationship joins the edge's own ON for
			// an optional (LEFT) join, and the WHERE otherwise.
			if j.Kind == plan.LeftJoin {
				on = andExprs(on, j.GraphRel.WherePredicate)
			} else {
				p.Where = andExprs(p.Where, j.GraphRel.WherePredicate)
			}
		}
		p.Joins = append(p.Joins, Join{
			Kind: j.Kind,
			Table: TableRef{
				Database: j.Database, Table: j.Table, Alias: j.TableAlias,
				UseFinal: j.NodeSchema != nil && j.NodeSchema.UseFinal,
			},
			On: on,
		})
	}

	for _, vlp := range gj.VLPRels {
		join, err := b.buildVLPJoin(vlp)
		if err != nil {
			return nil, err
		}
		p.Joins = append(p.Joins, *join)
	}
	return p, nil
}

func andConjuncts(exprs []planexpr.Expr) planexpr.Expr {
	var out planexpr.Expr
	for _, e := range exprs {
		out = andExprs(out, e)
	}
	return out
}

// buildVLPJoin registers rel's recursive CTE (spec.md §4.8) and returns the
// join correlating it to both of rel's already-admitted endpoint tables.
func (b *builder) buildVLPJoin(rel *plan.GraphRel) (*Join, error) {
	cteName := ctx.VLPName(rel.Left.Alias, rel.Right.Alias)
	pctx := b.patternCtx[relKey(rel)]
	b.ctes = append(b.ctes, CTE{Name: cteName, Recursive: true, VLP: &VLPSpec{Rel: rel, PatternCtx: pctx, CTEName: cteName}})

	if rel.Left.NodeSchema == nil || rel.Right.NodeSchema == nil {
		return nil, cgerrors.ErrUnsupportedFeature.New("variable-length path endpoint missing a node schema")
	}
	on := planexpr.RawSQL{SQL: fmt.Sprintf("%s AND %s",
		schema.SQLEquality(rel.Left.Alias, rel.Left.NodeSchema.IDColumns(), cteName, []string{"start_id"}),
		schema.SQLEquality(rel.Right.Alias, rel.Right.NodeSchema.IDColumns(), cteName, []string{"end_id"}),
	)}
	return &Join{Kind: plan.InnerJoin, Table: TableRef{CTERef: cteName, Alias: cteName}, On: on}, nil
}

// relKey mirrors the optimizer's own naming for the patternschema.Context
// side-input map (a named relationship uses its Cypher alias, an anonymous
// one a synthesized positional name) so render looks entries up the same way
// they were written.
func relKey(rel *plan.GraphRel) string {
	if rel.Alias != "" {
		return rel.Alias
	}
	types := ""
	for i, t := range rel.Types {
		if i > 0 {
			types += "|"
		}
		types += t
	}
	return fmt.Sprintf("__rel_%s_%s_%s", rel.Left.Alias, types, rel.Right.Alias)
}

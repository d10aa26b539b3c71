package render

import (
	"fmt"

	"github.com/clickgraph/clickgraph/cgerrors"
	"github.com/clickgraph/clickgraph/internal/ctx"
	"github.com/clickgraph/clickgraph/patternschema"
	"github.com/clickgraph/clickgraph/plan"
	"github.com/clickgraph/clickgraph/planexpr"
)

// builder accumulates render state across one query: the CTE list grows
// monotonically as WITH clauses and variable-length paths are discovered
// walking the logical plan bottom-up, mirroring CompileContext's own
// per-query counter (internal/ctx) rather than threading an accumulator
// parameter through every call.
type builder struct {
	cc         ctx.CompileContext
	patternCtx map[string]patternschema.Context
	ctes       []CTE
}

// Build runs the render-plan builder (C7) over n, the fully analyzed and
// optimized logical plan, using patternCtx (from optimizer.Result) to
// resolve each GraphRel's join strategy.
func Build(cc ctx.CompileContext, n plan.Node, patternCtx map[string]patternschema.Context) (*Plan, error) {
	b := &builder{cc: cc, patternCtx: patternCtx}
	p, err := b.buildStatement(n)
	if err != nil {
		return nil, err
	}
	p.CTEs = append(b.ctes, p.CTEs...)
	return p, nil
}

// buildStatement peels the outer Limit/OrderBy wrapping common to both a
// RETURN and a WITH clause, then dispatches on the clause body itself.
func (b *builder) buildStatement(n plan.Node) (*Plan, error) {
	var limit, skip planexpr.Expr
	if l, ok := n.(*plan.Limit); ok {
		limit, skip = l.N, l.Skip
		n = l.Input
	}
	var order []OrderItem
	if o, ok := n.(*plan.OrderBy); ok {
		for _, k := range o.Keys {
			order = append(order, OrderItem{Expr: k.Expr, Ascending: k.Ascending})
		}
		n = o.Input
	}

	p, err := b.buildClauseBody(n)
	if err != nil {
		return nil, err
	}
	p.Limit, p.Skip, p.OrderBy = limit, skip, order
	return p, nil
}

// buildClauseBody handles the three shapes a clause body can take once its
// own Limit/OrderBy wrapping (if any) has been peeled: an explicit
// plan.GroupBy (hand-authored plans), or a Projection/WithClause whose items
// may imply one (spec.md §4.7 rule 6 / EXPANSION: GROUP BY is not a distinct
// builder node on the common path — the plan builder always emits
// Projection/WithClause, and render derives GROUP BY from a mix of
// aggregate and non-aggregate items, keeping the logical-plan shape uniform).
func (b *builder) buildClauseBody(n plan.Node) (*Plan, error) {
	switch v := n.(type) {
	case *plan.GroupBy:
		p, err := b.buildCore(v.Input)
		if err != nil {
			return nil, err
		}
		p.SelectItems = itemsToSelect(v.Aggregates)
		for _, k := range v.Keys {
			p.SelectItems = append([]SelectItem{{Expr: k}}, p.SelectItems...)
			p.GroupBy = append(p.GroupBy, k)
		}
		p.Having = v.Having
		return p, nil

	case *plan.Projection:
		return b.buildProjectingBody(v.Input, v.Items, v.Distinct)

	case *plan.WithClause:
		p, err := b.buildProjectingBody(v.Input, v.Items, v.Distinct)
		if err != nil {
			return nil, err
		}
		return p, nil

	default:
		return nil, cgerrors.ErrUnsupportedFeature.New(fmt.Sprintf("clause shape %T has no projection", n))
	}
}

// buildProjectingBody builds one SELECT block's FROM/JOIN/WHERE from input,
// then attaches items — synthesizing a GROUP BY when items mix aggregate and
// non-aggregate expressions.
func (b *builder) buildProjectingBody(input plan.Node, items []plan.ProjItem, distinct bool) (*Plan, error) {
	p, err := b.buildCore(input)
	if err != nil {
		return nil, err
	}
	p.Distinct = distinct

	hasAgg, hasPlain := false, false
	for _, it := range items {
		if planexpr.ContainsAggregate(it.Expr) {
			hasAgg = true
		} else {
			hasPlain = true
		}
	}
	p.SelectItems = itemsToSelect(items)
	if hasAgg && hasPlain {
		for _, it := range items {
			if !planexpr.ContainsAggregate(it.Expr) {
				p.GroupBy = append(p.GroupBy, it.Expr)
			}
		}
	}
	if p.Union != nil {
		for _, branch := range p.Union.Branches {
			branch.SelectItems = p.SelectItems
			branch.Distinct = p.Distinct
		}
	}
	return p, nil
}

func itemsToSelect(items []plan.ProjItem) []SelectItem {
	out := make([]SelectItem, len(items))
	for i, it := range items {
		alias := it.Alias
		if alias == "" {
			// An un-aliased property keeps its Cypher-visible "alias.property" name.
			switch e := it.Expr.(type) {
			case planexpr.ColumnRef:
				alias = e.Alias + "." + e.Property
			case planexpr.PropertyRef:
				alias = e.Alias + "." + e.Property
			}
		}
		out[i] = SelectItem{Expr: it.Expr, Alias: alias}
	}
	return out
}

// buildCore builds the FROM/JOIN/WHERE (or Union of such) rooted at n, the
// part of one clause body below its projection items.
func (b *builder) buildCore(n plan.Node) (*Plan, error) {
	switch v := n.(type) {
	case nil:
		return &Plan{}, nil

	case *plan.Filter:
		p, err := b.buildCore(v.Input)
		if err != nil {
			return nil, err
		}
		p.Where = andExprs(p.Where, v.Predicate)
		return p, nil

	case *plan.Union:
		branches := make([]*Plan, len(v.Inputs))
		for i, in := range v.Inputs {
			bp, err := b.buildCore(in)
			if err != nil {
				return nil, err
			}
			branches[i] = bp
		}
		return &Plan{Union: &UnionPlan{Branches: branches, All: v.All}}, nil

	case *plan.CartesianProduct:
		left, err := b.buildCore(v.Left)
		if err != nil {
			return nil, err
		}
		right, err := b.buildCore(v.Right)
		if err != nil {
			return nil, err
		}
		return b.mergeCrossJoin(left, right)

	case *plan.GraphJoins:
		return b.buildGraphJoins(v)

	case *plan.Scan:
		return &Plan{From: TableRef{Table: v.Table, Alias: v.Alias}, Where: v.InlineFilter}, nil

	case *plan.ViewScan:
		return &Plan{From: TableRef{
			Database: v.SchemaRef.Database, Table: v.SchemaRef.Table, Alias: v.Alias,
			UseFinal: v.SchemaRef.UseFinal, ViewParams: v.SchemaRef.ViewParameters,
		}, Where: v.ViewFilter}, nil

	case *plan.WithClause, *plan.OrderBy, *plan.Limit, *plan.Projection, *plan.GroupBy:
		// A new MATCH/WITH clause's Input chain bottomed out directly on a
		// prior clause's full statement (the common "WITH ... MATCH ..."
		// shape) rather than on another GraphJoins: render it as its own CTE
		// and correlate it in as a cross join, leaning on the WHERE
		// predicates the analyzer already rewrote against its exported
		// ColumnRefs for the actual correlation (spec.md §4.7 rule 1; see
		// DESIGN.md "WITH-to-MATCH correlation" for why this isn't tightened
		// into an INNER JOIN here, the same simplification as cross-branch
		// join detection).
		cteName, err := b.extractCTE(n)
		if err != nil {
			return nil, err
		}
		return &Plan{Joins: []Join{{Kind: plan.CrossJoin, Table: TableRef{CTERef: cteName, Alias: cteName}}}}, nil

	case *plan.UnwindClause:
		return nil, cgerrors.ErrUnsupportedFeature.New("UNWIND")
	case *plan.Call:
		return nil, cgerrors.ErrUnsupportedFeature.New("CALL")

	default:
		return nil, cgerrors.ErrInternal.New(fmt.Sprintf("buildCore: unrecognized node %T", n))
	}
}

// extractCTE renders n (a full clause-body subtree rooted at a WithClause,
// possibly wrapped in its own Filter/OrderBy/Limit) as a standalone CTE and
// registers it, returning its name.
func (b *builder) extractCTE(n plan.Node) (string, error) {
	wc := findWithClause(n)
	if wc == nil {
		return "", cgerrors.ErrInternal.New("extractCTE: no WithClause found in chain")
	}
	sub, err := b.buildStatement(n)
	if err != nil {
		return "", err
	}
	b.ctes = append(b.ctes, CTE{Name: wc.CTEName, Plan: sub})
	return wc.CTEName, nil
}

func findWithClause(n plan.Node) *plan.WithClause {
	for {
		switch v := n.(type) {
		case *plan.Limit:
			n = v.Input
		case *plan.OrderBy:
			n = v.Input
		case *plan.Filter:
			n = v.Input
		case *plan.WithClause:
			return v
		default:
			return nil
		}
	}
}

// mergeCrossJoin combines two independently-built cores into one FROM/JOIN
// list joined by CROSS JOIN (spec.md §4.3's alias-disjoint comma pattern,
// when it spans two separate top-level plan.Node branches rather than one
// GraphJoins' own disjoint components).
func (b *builder) mergeCrossJoin(left, right *Plan) (*Plan, error) {
	if left.Union != nil || right.Union != nil {
		return nil, cgerrors.ErrUnsupportedFeature.New("cartesian product of a pattern-expansion union")
	}
	out := &Plan{From: left.From, Joins: append(append([]Join{}, left.Joins...), Join{Kind: plan.CrossJoin, Table: right.From})}
	out.Joins = append(out.Joins, right.Joins...)
	out.Where = andExprs(left.Where, right.Where)
	return out, nil
}

func andExprs(a, bE planexpr.Expr) planexpr.Expr {
	if a == nil {
		return bE
	}
	if bE == nil {
		return a
	}
	return planexpr.BinaryOp{Op: "AND", Left: a, Right: bE}
}

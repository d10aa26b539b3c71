package plan

import (
	"fmt"

	"github.com/clickgraph/clickgraph/cgerrors"
	"github.com/clickgraph/clickgraph/cypher/ast"
	"github.com/clickgraph/clickgraph/internal/ctx"
	"github.com/clickgraph/clickgraph/planexpr"
)

// Build translates a parsed Cypher ast.Query into the initial, unanalyzed
// logical plan (C3). Nothing here consults the schema catalog: labels may be
// empty, access styles unset, property references left as planexpr.PropertyRef
// — that is the analyzer's job (C4).
func Build(q *ast.Query) (Node, error) {
	if len(q.Parts) == 0 {
		return nil, cgerrors.ErrInternal.New("empty query")
	}
	if len(q.Parts) == 1 {
		return buildSingleQuery(q.Parts[0])
	}

	nodes := make([]Node, len(q.Parts))
	for i, part := range q.Parts {
		n, err := buildSingleQuery(part)
		if err != nil {
			return nil, err
		}
		nodes[i] = n
	}
	// UnionAll[i] describes the join between Parts[i] and Parts[i+1]; a
	// single DISTINCT union requires ALL==false for every branch pairing, so
	// a mixed UNION/UNION ALL sequence collapses to the stricter (non-ALL)
	// semantics, matching openCypher's requirement that UNION mixing is
	// rejected at the clause level — parser.Parse already enforces that, so
	// by the time Build sees it every entry agrees.
	all := true
	for _, a := range q.UnionAll {
		if !a {
			all = false
		}
	}
	return &Union{Inputs: nodes, All: all, BranchesKind: "query-union"}, nil
}

func buildSingleQuery(sq *ast.SingleQuery) (Node, error) {
	b := &builder{aliasNodes: map[string]*GraphNode{}}
	var cur Node
	for _, clause := range sq.Reads {
		n, err := b.buildClause(clause, cur)
		if err != nil {
			return nil, err
		}
		cur = n
	}
	if sq.Return == nil {
		return nil, cgerrors.ErrInternal.New("single query has no RETURN clause")
	}
	return b.buildReturn(sq.Return, cur)
}

// builder carries the state needed across one SingleQuery's clauses: which
// *GraphNode instance an alias maps to, so repeated mentions of the same
// alias within or across (OPTIONAL )MATCH clauses share one node per
// spec.md §4.3 ("connected by shared aliases"). WITH CTE names come from
// ctx.WithCTEName, so no counter is kept here.
type builder struct {
	aliasNodes map[string]*GraphNode
}

func (b *builder) buildClause(clause ast.ReadingClause, input Node) (Node, error) {
	switch c := clause.(type) {
	case *ast.Match:
		return b.buildMatch(c.Patterns, c.Where, false, input)
	case *ast.OptionalMatch:
		return b.buildMatch(c.Patterns, c.Where, true, input)
	case *ast.With:
		return b.buildWith(c, input)
	case *ast.Unwind:
		return &UnwindClause{Input: input, ArrayExpr: planexpr.FromAST(c.Expr), Binding: c.Binding}, nil
	case *ast.Call:
		args := make([]planexpr.Expr, len(c.Args))
		for i, a := range c.Args {
			args[i] = planexpr.FromAST(a)
		}
		return &Call{Input: input, Name: c.Name, Args: args}, nil
	default:
		return nil, cgerrors.ErrInternal.New(fmt.Sprintf("unknown reading clause %T", clause))
	}
}

// buildMatch lowers one (OPTIONAL )MATCH clause's comma-separated pattern
// list into a flat GraphPattern: repeated aliases within the list (or
// reused from an earlier clause) resolve to the same *GraphNode, so
// analysis and join inference see the sharing directly rather than having
// to rediscover it by name.
func (b *builder) buildMatch(patterns []ast.PathPattern, where ast.Expr, optional bool, input Node) (Node, error) {
	var elements []Node
	var extraConjuncts []planexpr.Expr

	for _, p := range patterns {
		elems, conjuncts, err := b.buildPathPattern(p, optional)
		if err != nil {
			return nil, err
		}
		elements = append(elements, elems...)
		extraConjuncts = append(extraConjuncts, conjuncts...)
	}

	var whereExpr planexpr.Expr
	if where != nil {
		whereExpr = planexpr.FromAST(where)
	}
	for _, c := range extraConjuncts {
		whereExpr = andExpr(whereExpr, c)
	}

	return &GraphPattern{Input: input, Optional: optional, Elements: elements, Where: whereExpr}, nil
}

// buildPathPattern lowers one comma-branch (`(a)-[r]->(b)-[s]->(c)` etc.)
// into its GraphNode/GraphRel elements, desugaring inline node/relationship
// properties (`{k: v}`) into WHERE conjuncts per spec.md §4.2's explicit
// "desugared at plan-building time" rule for relationships (and, for the
// same reason, for node inline properties too).
func (b *builder) buildPathPattern(p ast.PathPattern, optional bool) ([]Node, []planexpr.Expr, error) {
	elem := p.Element
	if len(elem.Nodes) != len(elem.Rels)+1 {
		return nil, nil, cgerrors.ErrInternal.New("malformed pattern: node/relationship count mismatch")
	}

	var conjuncts []planexpr.Expr
	nodes := make([]*GraphNode, len(elem.Nodes))
	for i, np := range elem.Nodes {
		gn, err := b.resolveNode(np, optional)
		if err != nil {
			return nil, nil, err
		}
		nodes[i] = gn
		for prop, valExpr := range np.InlineProps {
			conjuncts = append(conjuncts, planexpr.BinaryOp{
				Op:    "=",
				Left:  planexpr.PropertyRef{Alias: gn.Alias, Property: prop},
				Right: planexpr.FromAST(valExpr),
			})
		}
	}

	var out []Node
	seen := map[string]bool{}
	addNode := func(gn *GraphNode) {
		if !seen[gn.Alias] {
			seen[gn.Alias] = true
			out = append(out, gn)
		}
	}

	addNode(nodes[0])
	for i, rp := range elem.Rels {
		left, right := nodes[i], nodes[i+1]
		rel := &GraphRel{
			Alias:          rp.Alias,
			Types:          rp.Types,
			Direction:      rp.Direction,
			Left:           left,
			Right:          right,
			VariableLength: rp.VariableLength,
			PathVariable:   p.PathVariable,
		}
		if p.ShortestPath != ast.NoShortestPath {
			rel.ShortestPathMode = p.ShortestPath
		}
		for prop, valExpr := range rp.InlineProps {
			alias := rp.Alias
			if alias == "" {
				// Anonymous relationship inline props still need an alias to
				// attach the conjunct to; use a position-stable synthetic one
				// so filter-into-GraphRel pushdown (C5.1) can still target it.
				alias = fmt.Sprintf("__rel_%d", i)
				rel.Alias = alias
			}
			conjuncts = append(conjuncts, planexpr.BinaryOp{
				Op:    "=",
				Left:  planexpr.PropertyRef{Alias: alias, Property: prop},
				Right: planexpr.FromAST(valExpr),
			})
		}
		out = append(out, rel)
		addNode(right)
	}

	return out, conjuncts, nil
}

// resolveNode returns the shared *GraphNode for np.Alias, creating it on
// first mention. Labels from a later mention of an already-seen alias are
// ignored (the first binding wins; schema binding will re-validate).
func (b *builder) resolveNode(np *ast.NodePattern, optional bool) (*GraphNode, error) {
	alias := np.Alias
	if alias == "" {
		alias = fmt.Sprintf("__anon_node_%d", len(b.aliasNodes))
	}
	if existing, ok := b.aliasNodes[alias]; ok {
		return existing, nil
	}
	label := ""
	if len(np.Labels) > 0 {
		label = np.Labels[0]
	}
	gn := &GraphNode{Alias: alias, Label: label, Optional: optional}
	b.aliasNodes[alias] = gn
	return gn, nil
}

func (b *builder) buildWith(w *ast.With, input Node) (Node, error) {
	items := make([]ProjItem, len(w.Items))
	exported := make([]string, len(w.Items))
	for i, it := range w.Items {
		items[i] = ProjItem{Expr: planexpr.FromAST(it.Expr), Alias: it.Alias}
		alias := it.Alias
		if alias == "" {
			if v, ok := it.Expr.(ast.Variable); ok {
				alias = v.Name
			}
		}
		exported[i] = alias
	}

	var body Node = &WithClause{
		Input:           input,
		Items:           items,
		Distinct:        w.Distinct,
		ExportedAliases: exported,
		CTEName:         ctx.WithCTEName(exported),
	}

	if w.Where != nil {
		body = &Filter{Input: body, Predicate: planexpr.FromAST(w.Where)}
	}
	if len(w.OrderBy) > 0 {
		keys := make([]OrderKey, len(w.OrderBy))
		for i, o := range w.OrderBy {
			keys[i] = OrderKey{Expr: planexpr.FromAST(o.Expr), Ascending: o.Ascending}
		}
		body = &OrderBy{Input: body, Keys: keys}
	}
	if w.Skip != nil || w.Limit != nil {
		lim := &Limit{Input: body}
		if w.Skip != nil {
			lim.Skip = planexpr.FromAST(w.Skip)
		}
		if w.Limit != nil {
			lim.N = planexpr.FromAST(w.Limit)
		}
		body = lim
	}

	// After a WITH boundary every alias it re-binds must be looked up
	// through the CTE, not reused as the same *GraphNode from before the
	// boundary (a later MATCH mentioning the same name is a fresh pattern
	// variable scoped to the new row shape). Reset tracking for exported
	// names; aliases the WITH did not touch remain resolvable as before.
	for _, a := range exported {
		delete(b.aliasNodes, a)
	}

	return body, nil
}

func (b *builder) buildReturn(r *ast.Return, input Node) (Node, error) {
	items := make([]ProjItem, len(r.Items))
	for i, it := range r.Items {
		items[i] = ProjItem{Expr: planexpr.FromAST(it.Expr), Alias: it.Alias}
	}
	var body Node = &Projection{Input: input, Items: items, Distinct: r.Distinct, Kind: ReturnProjection}

	if len(r.OrderBy) > 0 {
		keys := make([]OrderKey, len(r.OrderBy))
		for i, o := range r.OrderBy {
			keys[i] = OrderKey{Expr: planexpr.FromAST(o.Expr), Ascending: o.Ascending}
		}
		body = &OrderBy{Input: body, Keys: keys}
	}
	if r.Skip != nil || r.Limit != nil {
		lim := &Limit{Input: body}
		if r.Skip != nil {
			lim.Skip = planexpr.FromAST(r.Skip)
		}
		if r.Limit != nil {
			lim.N = planexpr.FromAST(r.Limit)
		}
		body = lim
	}
	return body, nil
}

func andExpr(existing, add planexpr.Expr) planexpr.Expr {
	if existing == nil {
		return add
	}
	return planexpr.BinaryOp{Op: "AND", Left: existing, Right: add}
}

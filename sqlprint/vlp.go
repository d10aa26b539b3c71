package sqlprint

import (
	"fmt"
	"strings"

	"github.com/clickgraph/clickgraph/cgerrors"
	"github.com/clickgraph/clickgraph/cypher/ast"
	"github.com/clickgraph/clickgraph/plan"
	"github.com/clickgraph/clickgraph/planexpr"
	"github.com/clickgraph/clickgraph/render"
	"github.com/clickgraph/clickgraph/schema"
)

// vlpCTE generates one variable-length-path recursive CTE body (spec.md
// §4.8, the hardest subsystem): a base case over hop 1, a recursive case
// extending the path one edge at a time guarded against cycles, unioned
// together and then filtered down to the requested hop-count bound and
// shortest-path mode. Multi-candidate (wildcard/polymorphic) relationships
// union one base/recursive pair per candidate schema — the "recursive CTE
// over a UNION" option of the two the open question (spec.md §9) allows,
// since it needs no query-shape-dependent branching the way the chained-join
// alternative would.
func (pr *printer) vlpCTE(spec *render.VLPSpec) (string, error) {
	rel := spec.Rel
	candidates := rel.Candidates
	if rel.RelSchema != nil {
		candidates = []*schema.RelationshipSchema{rel.RelSchema}
	}
	if len(candidates) == 0 {
		return "", cgerrors.ErrUnsupportedFeature.New("variable-length path with no resolvable relationship schema")
	}
	if rel.Left.NodeSchema == nil || rel.Right.NodeSchema == nil {
		return "", cgerrors.ErrUnsupportedFeature.New("variable-length path endpoint missing a node schema")
	}

	startFilters, relFilters, endFilters := splitVLPFilters(rel)

	var bases, recs []string
	for _, rs := range candidates {
		b, r, err := pr.vlpCandidate(spec, rs, startFilters, relFilters)
		if err != nil {
			return "", err
		}
		bases = append(bases, b)
		recs = append(recs, r)
	}

	body := strings.Join(bases, " UNION ALL ") + " UNION ALL " + strings.Join(recs, " UNION ALL ")

	trailing, err := pr.vlpTrailingFilters(spec, endFilters)
	if err != nil {
		return "", err
	}
	if trailing == "" {
		return body, nil
	}
	return fmt.Sprintf("SELECT * FROM (%s) %s", body, trailing), nil
}

// vlpCandidate builds the base-case and recursive-case SELECTs for one
// candidate relationship schema, specialized by its access style per
// spec.md §4.8's "For other join strategies, specialize" rule.
func (pr *printer) vlpCandidate(spec *render.VLPSpec, rs *schema.RelationshipSchema, startFilters, relFilters []planexpr.Expr) (base, recursive string, err error) {
	rel := spec.Rel
	left, right := rel.Left, rel.Right

	leftID := schema.SQLTuple("l", left.NodeSchema.IDColumns())
	rightIDFromR := schema.SQLTuple("r", right.NodeSchema.IDColumns())
	rightIDFromE := schema.SQLTuple("e", rs.ToIDColumn)
	if rel.Direction == ast.In {
		rightIDFromE = schema.SQLTuple("e", rs.FromIDColumn)
	}

	relPred, err := joinPredicates(relFilters)
	if err != nil {
		return "", "", err
	}
	startPred, err := joinPredicates(startFilters)
	if err != nil {
		return "", "", err
	}

	relSuffix, startSuffix := "", ""
	if relPred != "" {
		relSuffix = " AND " + relPred
	}
	if startPred != "" {
		startSuffix = " AND " + startPred
	}

	switch rs.AccessStyle {
	case schema.FkEdge:
		// No dedicated edge table: the node table self-joins through its own
		// FkColumn, so fk below names the node table's own self-referencing
		// column rather than a separate relationship table's endpoint column.
		fk := rs.FkColumn
		base = fmt.Sprintf(
			"SELECT %s AS start_id, %s AS end_id, [%s] AS path_nodes, 1 AS hop_count FROM %s l JOIN %s r ON l.%s = %s WHERE 1 = 1%s",
			leftID, rightIDFromR, leftID, qualified(left.NodeSchema.Database, left.NodeSchema.Table),
			qualified(right.NodeSchema.Database, right.NodeSchema.Table), fk, rightIDFromR, startSuffix)
		recursive = fmt.Sprintf(
			"SELECT prev.start_id, %s AS end_id, arrayPushBack(prev.path_nodes, %s) AS path_nodes, prev.hop_count + 1 AS hop_count "+
				"FROM %s prev JOIN %s r ON prev.end_id = r.%s WHERE NOT has(prev.path_nodes, %s)%s",
			rightIDFromR, rightIDFromR, spec.CTEName, qualified(right.NodeSchema.Database, right.NodeSchema.Table), fk,
			rightIDFromR, relSuffix)

	default:
		// Standard / Denormalized / Polymorphic: a dedicated (or
		// type-discriminated, or property-embedding) edge table joined
		// between the two node tables. Denormalized still performs this
		// join for real (render only reads endpoint properties off the edge
		// row elsewhere; the path itself always needs the real node rows
		// for downstream property access).
		typeFilter := ""
		if rs.AccessStyle == schema.Polymorphic && rs.TypeColumn != "" {
			typeFilter = fmt.Sprintf(" AND e.%s = %s", rs.TypeColumn, QuoteStringLiteral(rs.TypeValue))
		}
		fromCol, toCol := rs.FromIDColumn, rs.ToIDColumn
		if rel.Direction == ast.In {
			fromCol, toCol = rs.ToIDColumn, rs.FromIDColumn
		}
		base = fmt.Sprintf(
			"SELECT %s AS start_id, %s AS end_id, [%s] AS path_nodes, 1 AS hop_count FROM %s l JOIN %s e ON %s JOIN %s r ON %s WHERE 1 = 1%s%s%s",
			leftID, rightIDFromR, leftID,
			qualified(left.NodeSchema.Database, left.NodeSchema.Table),
			qualified(rs.Database, rs.Table), schema.SQLEquality("e", fromCol, "l", left.NodeSchema.IDColumns()),
			qualified(right.NodeSchema.Database, right.NodeSchema.Table), schema.SQLEquality("r", right.NodeSchema.IDColumns(), "e", toCol),
			typeFilter, relSuffix, startSuffix)
		recursive = fmt.Sprintf(
			"SELECT prev.start_id, %s AS end_id, arrayPushBack(prev.path_nodes, %s) AS path_nodes, prev.hop_count + 1 AS hop_count "+
				"FROM %s prev JOIN %s e ON %s JOIN %s r ON %s "+
				"WHERE NOT has(prev.path_nodes, %s)%s%s",
			rightIDFromE, rightIDFromE,
			spec.CTEName, qualified(rs.Database, rs.Table), fmt.Sprintf("e.%s = prev.end_id", colOrTuple(fromCol)),
			qualified(right.NodeSchema.Database, right.NodeSchema.Table), schema.SQLEquality("r", right.NodeSchema.IDColumns(), "e", toCol),
			rightIDFromE, typeFilter, relSuffix)
	}
	return base, recursive, nil
}

// colOrTuple renders cols as a single bare column name when unary (the
// overwhelmingly common case for edge FK columns), or a parenthesized tuple
// otherwise; schema.SQLEquality already handles the composite comparison, so
// this is used only where a single `col = prev.end_id` scalar is needed.
func colOrTuple(cols []string) string {
	if len(cols) == 1 {
		return cols[0]
	}
	return "(" + strings.Join(cols, ", ") + ")"
}

func qualified(database, table string) string { return QualifiedTable(database, table) }

func joinPredicates(preds []planexpr.Expr) (string, error) {
	if len(preds) == 0 {
		return "", nil
	}
	ep := newExprPrinter()
	parts := make([]string, len(preds))
	for i, p := range preds {
		s, err := ep.Expr(p)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.Join(parts, " AND "), nil
}

// splitVLPFilters categorizes rel.WherePredicate's top-level AND conjuncts
// into start/relationship/end buckets per spec.md §4.7 rule 5 / §4.8: a
// conjunct referencing only the start node's alias applies in the base
// case's WHERE, one referencing only the relationship alias applies to every
// edge join (base and recursive), and one referencing only the end node's
// alias is deferred to vlpTrailingFilters since it must see the final hop
// reached, not every intermediate one. A conjunct referencing more than one
// alias (or none of the three) is conservatively treated as an end filter,
// applied once the full path is known.
func splitVLPFilters(rel *plan.GraphRel) (start, relF, end []planexpr.Expr) {
	for _, c := range andConjunctList(rel.WherePredicate) {
		aliases := exprAliases(c)
		switch {
		case isSubsetOf(aliases, rel.Left.Alias):
			start = append(start, c)
		case isSubsetOf(aliases, rel.Alias):
			relF = append(relF, c)
		default:
			end = append(end, c)
		}
	}
	return start, relF, end
}

func andConjunctList(e planexpr.Expr) []planexpr.Expr {
	if e == nil {
		return nil
	}
	if b, ok := e.(planexpr.BinaryOp); ok && b.Op == "AND" {
		return append(andConjunctList(b.Left), andConjunctList(b.Right)...)
	}
	return []planexpr.Expr{e}
}

func isSubsetOf(aliases map[string]bool, only string) bool {
	if len(aliases) == 0 {
		return false
	}
	for a := range aliases {
		if a != only {
			return false
		}
	}
	return true
}

func exprAliases(e planexpr.Expr) map[string]bool {
	out := map[string]bool{}
	_, _ = planexpr.Rewrite(e, func(x planexpr.Expr) (planexpr.Expr, error) {
		if c, ok := x.(planexpr.ColumnRef); ok {
			out[c.Alias] = true
		}
		return x, nil
	})
	return out
}

// vlpTrailingFilters builds the WHERE/ORDER BY/LIMIT applied once to the
// fully unioned CTE body: the hop-count bound, any end-node filters, and the
// shortestPath/allShortestPaths post-processing (spec.md §4.8).
func (pr *printer) vlpTrailingFilters(spec *render.VLPSpec, endFilters []planexpr.Expr) (string, error) {
	rel := spec.Rel
	var conds []string
	if rel.VariableLength != nil {
		conds = append(conds, fmt.Sprintf("hop_count >= %d", rel.VariableLength.Min))
		if rel.VariableLength.Max != nil {
			conds = append(conds, fmt.Sprintf("hop_count <= %d", *rel.VariableLength.Max))
		}
	}
	endPred, err := joinPredicates(endFilters)
	if err != nil {
		return "", err
	}
	if endPred != "" {
		conds = append(conds, endPred)
	}

	var b strings.Builder
	if len(conds) > 0 {
		fmt.Fprintf(&b, "WHERE %s", strings.Join(conds, " AND "))
	}
	switch rel.ShortestPathMode {
	case ast.ShortestPath:
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString("ORDER BY start_id, end_id, hop_count ASC LIMIT 1 BY start_id, end_id")
	case ast.AllShortestPaths:
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		// Keep every row tied for the minimum hop_count per (start_id,
		// end_id) pair, not just one — QUALIFY with a window function
		// expresses that where LIMIT n BY (single row) cannot.
		b.WriteString("QUALIFY hop_count = MIN(hop_count) OVER (PARTITION BY start_id, end_id)")
	}
	return b.String(), nil
}

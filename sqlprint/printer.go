package sqlprint

import (
	"fmt"
	"strings"

	"github.com/clickgraph/clickgraph/internal/ctx"
	"github.com/clickgraph/clickgraph/plan"
	"github.com/clickgraph/clickgraph/render"
)

// Options tunes printing; zero value matches spec.md defaults.
type Options struct {
	// MaxRecursiveCTEDepth is the bound every recursive CTE's SETTINGS clause
	// enforces (spec.md §4.8's "Bounded recursion"). Default 100.
	MaxRecursiveCTEDepth int
}

func DefaultOptions() Options { return Options{MaxRecursiveCTEDepth: 100} }

// Result is what Print returns: the SQL text and the set of `$name`
// parameters the query actually referenced (spec.md §6 — the executor binds
// these, the printer never inlines them).
type Result struct {
	SQL    string
	Params []string
}

// Print renders plan as a complete ClickHouse SQL statement.
func Print(cc ctx.CompileContext, p *render.Plan, opts Options) (*Result, error) {
	if opts.MaxRecursiveCTEDepth == 0 {
		opts = DefaultOptions()
	}
	pr := &printer{ep: newExprPrinter(), opts: opts}
	sql, err := pr.statement(p)
	if err != nil {
		return nil, err
	}
	params := make([]string, 0, len(pr.ep.params))
	for name := range pr.ep.params {
		params = append(params, name)
	}
	return &Result{SQL: sql, Params: params}, nil
}

type printer struct {
	ep           *exprPrinter
	opts         Options
	usedRecursive bool
}

func (pr *printer) statement(p *render.Plan) (string, error) {
	var b strings.Builder
	if len(p.CTEs) > 0 {
		ctesSQL, err := pr.ctes(p.CTEs)
		if err != nil {
			return "", err
		}
		b.WriteString(ctesSQL)
		b.WriteString(" ")
	}

	body, err := pr.selectBody(p)
	if err != nil {
		return "", err
	}
	b.WriteString(body)

	if pr.usedRecursive {
		fmt.Fprintf(&b, " SETTINGS max_recursive_cte_evaluation_depth = %d", pr.opts.MaxRecursiveCTEDepth)
	}
	return b.String(), nil
}

func (pr *printer) ctes(ctes []render.CTE) (string, error) {
	parts := make([]string, len(ctes))
	for i, c := range ctes {
		if c.VLP != nil {
			pr.usedRecursive = true
			text, err := pr.vlpCTE(c.VLP)
			if err != nil {
				return "", err
			}
			parts[i] = fmt.Sprintf("%s AS (%s)", QuoteIdent(c.Name), text)
			continue
		}
		sub, err := pr.statement(c.Plan)
		if err != nil {
			return "", err
		}
		parts[i] = fmt.Sprintf("%s AS (%s)", QuoteIdent(c.Name), sub)
	}
	return "WITH " + strings.Join(parts, ", "), nil
}

func (pr *printer) selectBody(p *render.Plan) (string, error) {
	if p.Union != nil {
		return pr.unionBody(p)
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	if p.Distinct {
		b.WriteString("DISTINCT ")
	}
	items, err := pr.selectItems(p.SelectItems)
	if err != nil {
		return "", err
	}
	b.WriteString(items)

	from, err := pr.fromClause(p.From, p.Joins)
	if err != nil {
		return "", err
	}
	b.WriteString(from)

	if p.Where != nil {
		w, err := pr.ep.Expr(p.Where)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, " WHERE %s", w)
	}
	if len(p.GroupBy) > 0 {
		keys := make([]string, len(p.GroupBy))
		for i, k := range p.GroupBy {
			s, err := pr.ep.Expr(k)
			if err != nil {
				return "", err
			}
			keys[i] = s
		}
		fmt.Fprintf(&b, " GROUP BY %s", strings.Join(keys, ", "))
	}
	if p.Having != nil {
		h, err := pr.ep.Expr(p.Having)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, " HAVING %s", h)
	}
	if err := pr.orderLimit(&b, p); err != nil {
		return "", err
	}
	return b.String(), nil
}

// unionBody prints each branch's own SELECT, combined with UNION ALL/UNION
// DISTINCT; ORDER BY/LIMIT apply once, after the combined result — valid
// ClickHouse syntax, so no wrapping subquery is needed.
func (pr *printer) unionBody(p *render.Plan) (string, error) {
	parts := make([]string, len(p.Union.Branches))
	for i, branch := range p.Union.Branches {
		branch.SelectItems = p.SelectItems
		branch.Distinct = p.Distinct
		s, err := pr.selectBody(branch)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	joiner := "UNION ALL"
	if !p.Union.All {
		joiner = "UNION DISTINCT"
	}
	var b strings.Builder
	b.WriteString(strings.Join(parts, " "+joiner+" "))
	if err := pr.orderLimit(&b, p); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (pr *printer) orderLimit(b *strings.Builder, p *render.Plan) error {
	if len(p.OrderBy) > 0 {
		keys := make([]string, len(p.OrderBy))
		for i, k := range p.OrderBy {
			s, err := pr.ep.Expr(k.Expr)
			if err != nil {
				return err
			}
			dir := "ASC"
			if !k.Ascending {
				dir = "DESC"
			}
			keys[i] = s + " " + dir
		}
		fmt.Fprintf(b, " ORDER BY %s", strings.Join(keys, ", "))
	}
	if p.Limit != nil {
		n, err := pr.ep.Expr(p.Limit)
		if err != nil {
			return err
		}
		if p.Skip != nil {
			s, err := pr.ep.Expr(p.Skip)
			if err != nil {
				return err
			}
			fmt.Fprintf(b, " LIMIT %s, %s", s, n)
		} else {
			fmt.Fprintf(b, " LIMIT %s", n)
		}
	} else if p.Skip != nil {
		s, err := pr.ep.Expr(p.Skip)
		if err != nil {
			return err
		}
		fmt.Fprintf(b, " LIMIT %s, 18446744073709551615", s)
	}
	return nil
}

func (pr *printer) selectItems(items []render.SelectItem) (string, error) {
	if len(items) == 0 {
		return "*", nil
	}
	parts := make([]string, len(items))
	for i, it := range items {
		s, err := pr.ep.Expr(it.Expr)
		if err != nil {
			return "", err
		}
		if it.Alias != "" {
			s = fmt.Sprintf("%s AS %s", s, quoteOuterAlias(it.Alias))
		}
		parts[i] = s
	}
	return strings.Join(parts, ", "), nil
}

// quoteOuterAlias double-quotes a Cypher-visible outer alias (e.g. "a.name"
// for a WITH-exported property, spec.md §4.7 rule 1) rather than backtick-
// quoting it as an ordinary identifier, since it may contain a literal dot.
func quoteOuterAlias(alias string) string {
	if strings.ContainsAny(alias, ".") {
		return `"` + strings.ReplaceAll(alias, `"`, `""`) + `"`
	}
	return QuoteIdent(alias)
}

func (pr *printer) fromClause(from render.TableRef, joins []render.Join) (string, error) {
	if from.Table == "" && from.CTERef == "" && len(joins) == 0 {
		return "", nil // no MATCH in this query (e.g. `RETURN 1`); ClickHouse allows a bare SELECT
	}
	var b strings.Builder
	b.WriteString(" FROM ")
	b.WriteString(pr.tableRef(from))

	for _, j := range joins {
		kind := joinKindSQL(j.Kind)
		b.WriteString(" " + kind + " JOIN " + pr.tableRef(j.Table))
		if j.On == nil {
			b.WriteString(" ON 1 = 1")
			continue
		}
		on, err := pr.ep.Expr(j.On)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, " ON %s", on)
	}
	return b.String(), nil
}

func joinKindSQL(k plan.JoinKind) string {
	switch k {
	case plan.LeftJoin:
		return "LEFT"
	case plan.CrossJoin:
		return "CROSS"
	default:
		return "INNER"
	}
}

func (pr *printer) tableRef(t render.TableRef) string {
	var name string
	switch {
	case t.CTERef != "":
		name = QuoteIdent(t.CTERef)
	case len(t.ViewParams) > 0:
		name = QualifiedTable(t.Database, t.Table) + "(" + strings.Join(t.ViewParams, ", ") + ")"
	default:
		name = QualifiedTable(t.Database, t.Table)
	}
	final := ""
	if t.UseFinal {
		final = " FINAL"
	}
	alias := ""
	if t.Alias != "" && t.Alias != t.CTERef {
		alias = " AS " + QuoteIdent(t.Alias)
	}
	return name + final + alias
}

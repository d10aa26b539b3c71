package plan

import (
	"fmt"
	"strings"

	"github.com/clickgraph/clickgraph/cypher/ast"
	"github.com/clickgraph/clickgraph/planexpr"
	"github.com/clickgraph/clickgraph/schema"
)

// --- Scan / ViewScan -----------------------------------------------------

// Scan is a bare physical-table scan with no schema-catalog resolution,
// produced only in contexts that bypass label resolution entirely (never
// emitted by the Cypher plan builder itself, kept for parity with spec.md
// §3.3; render still translates one into a FROM table).
type Scan struct {
	Table        string
	Alias        string
	Labels       []string
	InlineFilter planexpr.Expr
}

func (s *Scan) Children() []Node { return nil }
func (s *Scan) WithChildren(children ...Node) (Node, error) {
	if len(children) != 0 {
		return nil, childCountError("Scan", 0, len(children))
	}
	return s, nil
}
func (s *Scan) String() string { return fmt.Sprintf("Scan(%s AS %s)", s.Table, s.Alias) }

// ViewScan is a node label resolved to a physical table via the schema
// catalog, as opposed to a generic Scan (the GLOSSARY's "ViewScan").
type ViewScan struct {
	SchemaRef        *schema.NodeSchema
	Alias            string
	Labels           []string
	ViewFilter       planexpr.Expr
	PropertiesNeeded []string
}

func (v *ViewScan) Children() []Node { return nil }
func (v *ViewScan) WithChildren(children ...Node) (Node, error) {
	if len(children) != 0 {
		return nil, childCountError("ViewScan", 0, len(children))
	}
	return v, nil
}
func (v *ViewScan) String() string { return fmt.Sprintf("ViewScan(%s AS %s)", v.SchemaRef.Table, v.Alias) }

// --- GraphNode / GraphRel -------------------------------------------------

// GraphNode is one node pattern occurrence, before or after schema binding.
type GraphNode struct {
	Alias            string
	Label            string // "" pending label inference (C4.2)
	Optional         bool
	PropertiesNeeded []string
	NodeSchema       *schema.NodeSchema // set by schema binding (C4.3)

	// LabelCandidates holds every label collected when label inference
	// (C4.2) finds more than one possible label for an unlabeled node but the
	// candidate count is within MaxInferredTypes. Empty once Label is
	// non-empty. Render does not read this list or NodeSchemaCandidates.
	LabelCandidates []string
	// NodeSchemaCandidates mirrors LabelCandidates, resolved against the
	// catalog by schema binding (C4.3); parallel to GraphRel.Candidates.
	NodeSchemaCandidates []*schema.NodeSchema
}

func (g *GraphNode) Children() []Node { return nil }
func (g *GraphNode) WithChildren(children ...Node) (Node, error) {
	if len(children) != 0 {
		return nil, childCountError("GraphNode", 0, len(children))
	}
	return g, nil
}
func (g *GraphNode) String() string {
	label := g.Label
	if label == "" {
		label = "?"
	}
	return fmt.Sprintf("GraphNode(%s:%s)", g.Alias, label)
}

// GraphRel is one relationship pattern occurrence linking two GraphNodes.
type GraphRel struct {
	Alias            string
	Types            []string
	Direction        ast.Direction
	Left             *GraphNode
	Right            *GraphNode
	VariableLength   *ast.VariableLengthSpec
	ShortestPathMode ast.ShortestPathMode
	WherePredicate   planexpr.Expr
	PathVariable     string
	IsDenormalized   bool
	AccessStyle      schema.AccessStyle
	RelSchema        *schema.RelationshipSchema
	// Candidates holds every relationship schema that could apply before
	// disambiguation (multi-type patterns, polymorphic edges); populated by
	// label/type inference (C4.2) and schema binding (C4.3).
	Candidates []*schema.RelationshipSchema
}

func (r *GraphRel) Children() []Node { return []Node{r.Left, r.Right} }
func (r *GraphRel) WithChildren(children ...Node) (Node, error) {
	if len(children) != 2 {
		return nil, childCountError("GraphRel", 2, len(children))
	}
	left, lok := children[0].(*GraphNode)
	right, rok := children[1].(*GraphNode)
	if !lok || !rok {
		return nil, childCountError("GraphRel", 2, len(children))
	}
	cp := *r
	cp.Left, cp.Right = left, right
	return &cp, nil
}
func (r *GraphRel) String() string {
	return fmt.Sprintf("GraphRel(%s%s[%s:%v]%s%s)", r.Left.Alias, dirArrowLeft(r.Direction), strings.Join(r.Types, "|"), r.VariableLength, dirArrowRight(r.Direction), r.Right.Alias)
}

func dirArrowLeft(d ast.Direction) string {
	if d == ast.In {
		return "<-"
	}
	return "-"
}
func dirArrowRight(d ast.Direction) string {
	if d == ast.Out {
		return "->"
	}
	return "-"
}

// GraphPattern wraps one MATCH/OPTIONAL MATCH clause's raw pattern elements
// (a flat, source-ordered list of *GraphNode and *GraphRel) plus its own
// WHERE predicate, before join inference (C5.5) collapses it into a single
// GraphJoins node.
type GraphPattern struct {
	Input    Node // previous clause in the query; nil for the first
	Optional bool
	Elements []Node
	Where    planexpr.Expr
}

func (g *GraphPattern) Children() []Node {
	if g.Input == nil {
		return append([]Node{}, g.Elements...)
	}
	return append([]Node{g.Input}, g.Elements...)
}
func (g *GraphPattern) WithChildren(children ...Node) (Node, error) {
	cp := *g
	if g.Input == nil {
		cp.Elements = children
	} else {
		if len(children) < 1 {
			return nil, childCountError("GraphPattern", len(g.Elements)+1, len(children))
		}
		cp.Input = children[0]
		cp.Elements = children[1:]
	}
	return &cp, nil
}
func (g *GraphPattern) String() string {
	kind := "Match"
	if g.Optional {
		kind = "OptionalMatch"
	}
	return fmt.Sprintf("%s(%d elements)", kind, len(g.Elements))
}

// --- Joins / GraphJoins ----------------------------------------------------

type JoinKind int

const (
	InnerJoin JoinKind = iota
	LeftJoin
	CrossJoin
)

func (k JoinKind) String() string {
	switch k {
	case LeftJoin:
		return "LEFT"
	case CrossJoin:
		return "CROSS"
	default:
		return "INNER"
	}
}

// Join is one inferred join (C5.5): a physical table (or CTE alias) brought
// into the FROM list, with its ON predicate and, for graph-pattern-derived
// joins, the originating GraphRel for render-time context.
type Join struct {
	Kind       JoinKind
	TableAlias string
	Database   string
	Table      string
	JoiningOn  []planexpr.Expr
	GraphRel   *GraphRel
	NodeSchema *schema.NodeSchema
}

// GraphJoins is the analyzed, joined-and-anchored form of one GraphPattern:
// a FROM/JOIN shape ready for the render-plan builder.
type GraphJoins struct {
	Input Node
	Joins []Join

	AnchorAlias    string
	AnchorDatabase string
	AnchorTable    string
	// AnchorUseFinal requests FINAL on the anchor scan; mirrors
	// schema.NodeSchema.UseFinal for the table chosen as FROM.
	AnchorUseFinal bool

	// VLPRels holds every variable-length/shortestPath GraphRel found in the
	// source GraphPattern; join inference (C5.5) deliberately does not turn
	// these into Joins, since they compile to recursive CTEs at render time
	// (C7/C8) rather than ordinary joins.
	VLPRels []*GraphRel

	CTEReferences map[string]string
}

func (g *GraphJoins) Children() []Node {
	if g.Input == nil {
		return nil
	}
	return []Node{g.Input}
}
func (g *GraphJoins) WithChildren(children ...Node) (Node, error) {
	cp := *g
	if g.Input == nil {
		if len(children) != 0 {
			return nil, childCountError("GraphJoins", 0, len(children))
		}
		return &cp, nil
	}
	if len(children) != 1 {
		return nil, childCountError("GraphJoins", 1, len(children))
	}
	cp.Input = children[0]
	return &cp, nil
}
func (g *GraphJoins) String() string {
	return fmt.Sprintf("GraphJoins(anchor=%s, joins=%d)", g.AnchorAlias, len(g.Joins))
}

// --- CartesianProduct ------------------------------------------------------

// CartesianProduct correlates two disjoint comma-separated patterns that
// share no alias, per spec.md §4.3. Render emits the right side as a CROSS
// JOIN; a WHERE predicate correlating the two sides stays a filter.
type CartesianProduct struct {
	Left  Node
	Right Node
}

func (c *CartesianProduct) Children() []Node { return []Node{c.Left, c.Right} }
func (c *CartesianProduct) WithChildren(children ...Node) (Node, error) {
	if len(children) != 2 {
		return nil, childCountError("CartesianProduct", 2, len(children))
	}
	return &CartesianProduct{Left: children[0], Right: children[1]}, nil
}
func (c *CartesianProduct) String() string { return "CartesianProduct" }

// --- Filter / Projection / GroupBy / OrderBy / Limit ----------------------

type Filter struct {
	Input     Node
	Predicate planexpr.Expr
}

func (f *Filter) Children() []Node { return []Node{f.Input} }
func (f *Filter) WithChildren(children ...Node) (Node, error) {
	if len(children) != 1 {
		return nil, childCountError("Filter", 1, len(children))
	}
	return &Filter{Input: children[0], Predicate: f.Predicate}, nil
}
func (f *Filter) String() string { return "Filter" }

// ProjectionKind distinguishes a RETURN projection (terminal) from a WITH
// projection (pipeline-internal, eligible to become a CTE).
type ProjectionKind int

const (
	ReturnProjection ProjectionKind = iota
	WithProjection
)

type ProjItem struct {
	Expr  planexpr.Expr
	Alias string
}

type Projection struct {
	Input    Node
	Items    []ProjItem
	Distinct bool
	Kind     ProjectionKind
}

func (p *Projection) Children() []Node { return []Node{p.Input} }
func (p *Projection) WithChildren(children ...Node) (Node, error) {
	if len(children) != 1 {
		return nil, childCountError("Projection", 1, len(children))
	}
	cp := *p
	cp.Input = children[0]
	return &cp, nil
}
func (p *Projection) String() string { return fmt.Sprintf("Projection(%d items)", len(p.Items)) }

type GroupBy struct {
	Input      Node
	Keys       []planexpr.Expr
	Aggregates []ProjItem
	Having     planexpr.Expr
}

func (g *GroupBy) Children() []Node { return []Node{g.Input} }
func (g *GroupBy) WithChildren(children ...Node) (Node, error) {
	if len(children) != 1 {
		return nil, childCountError("GroupBy", 1, len(children))
	}
	cp := *g
	cp.Input = children[0]
	return &cp, nil
}
func (g *GroupBy) String() string { return "GroupBy" }

type OrderKey struct {
	Expr      planexpr.Expr
	Ascending bool
}

type OrderBy struct {
	Input Node
	Keys  []OrderKey
}

func (o *OrderBy) Children() []Node { return []Node{o.Input} }
func (o *OrderBy) WithChildren(children ...Node) (Node, error) {
	if len(children) != 1 {
		return nil, childCountError("OrderBy", 1, len(children))
	}
	cp := *o
	cp.Input = children[0]
	return &cp, nil
}
func (o *OrderBy) String() string { return "OrderBy" }

type Limit struct {
	Input Node
	N     planexpr.Expr
	Skip  planexpr.Expr
}

func (l *Limit) Children() []Node { return []Node{l.Input} }
func (l *Limit) WithChildren(children ...Node) (Node, error) {
	if len(children) != 1 {
		return nil, childCountError("Limit", 1, len(children))
	}
	cp := *l
	cp.Input = children[0]
	return &cp, nil
}
func (l *Limit) String() string { return "Limit" }

// --- Union -------------------------------------------------------------

type Union struct {
	Inputs       []Node
	All          bool
	BranchesKind string // advisory label: "pattern-expansion" or "query-union"
}

func (u *Union) Children() []Node { return u.Inputs }
func (u *Union) WithChildren(children ...Node) (Node, error) {
	if len(children) != len(u.Inputs) {
		return nil, childCountError("Union", len(u.Inputs), len(children))
	}
	return &Union{Inputs: children, All: u.All, BranchesKind: u.BranchesKind}, nil
}
func (u *Union) String() string { return fmt.Sprintf("Union(all=%v, %d branches)", u.All, len(u.Inputs)) }

// --- WithClause / UnwindClause / Call ------------------------------------

// WithClause is the analyzed form of a WITH projection: it opens a new CTE
// scope, exporting ExportedAliases under CTEName.
type WithClause struct {
	Input           Node
	Items           []ProjItem
	Distinct        bool
	ExportedAliases []string
	CTEName         string
}

func (w *WithClause) Children() []Node { return []Node{w.Input} }
func (w *WithClause) WithChildren(children ...Node) (Node, error) {
	if len(children) != 1 {
		return nil, childCountError("WithClause", 1, len(children))
	}
	cp := *w
	cp.Input = children[0]
	return &cp, nil
}
func (w *WithClause) String() string { return fmt.Sprintf("WithClause(cte=%s)", w.CTEName) }

type UnwindClause struct {
	Input     Node
	ArrayExpr planexpr.Expr
	Binding   string
}

func (u *UnwindClause) Children() []Node { return []Node{u.Input} }
func (u *UnwindClause) WithChildren(children ...Node) (Node, error) {
	if len(children) != 1 {
		return nil, childCountError("UnwindClause", 1, len(children))
	}
	cp := *u
	cp.Input = children[0]
	return &cp, nil
}
func (u *UnwindClause) String() string { return fmt.Sprintf("UnwindClause(%s)", u.Binding) }

type Call struct {
	Input Node
	Name  string
	Args  []planexpr.Expr
}

func (c *Call) Children() []Node { return []Node{c.Input} }
func (c *Call) WithChildren(children ...Node) (Node, error) {
	if len(children) != 1 {
		return nil, childCountError("Call", 1, len(children))
	}
	cp := *c
	cp.Input = children[0]
	return &cp, nil
}
func (c *Call) String() string { return fmt.Sprintf("Call(%s)", c.Name) }

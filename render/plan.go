// Package render implements the Render Plan Builder (C7): translating the
// optimized logical plan into a RenderPlan (spec.md §3.4) — a SELECT-shaped
// IR (FROM, JOIN, SELECT items, WHERE, GROUP BY, ORDER BY, LIMIT, CTEs) the
// SQL printer (C8) turns into ClickHouse text. Mirrors the teacher's own
// split between a logical sql.Node tree and the row-iterator plan it
// compiles down to, except here the "physical plan" is SQL text rather than
// an executable operator tree.
package render

import (
	"github.com/clickgraph/clickgraph/patternschema"
	"github.com/clickgraph/clickgraph/plan"
	"github.com/clickgraph/clickgraph/planexpr"
)

// TableRef names one physical table, parameterized view or CTE the printer
// must reference in a FROM or JOIN clause.
type TableRef struct {
	Database string
	Table    string
	Alias    string
	// CTERef, when non-empty, means this reference is to a previously-emitted
	// CTE by name rather than to Database.Table.
	CTERef string

	UseFinal   bool
	ViewParams []string
}

// Join is one FROM-list entry beyond the anchor, carrying its own ON
// predicate (nil for a cross join, printed as "ON 1 = 1" per spec.md §4.7.3).
type Join struct {
	Kind  plan.JoinKind
	Table TableRef
	On    planexpr.Expr
}

// SelectItem is one outer SELECT projection.
type SelectItem struct {
	Expr  planexpr.Expr
	Alias string
}

// OrderItem is one ORDER BY key.
type OrderItem struct {
	Expr      planexpr.Expr
	Ascending bool
}

// VLPSpec carries everything the SQL printer (C8) needs to generate one
// variable-length-path recursive CTE (spec.md §4.8): the originating
// GraphRel, its resolved access context, and the CTE name it was assigned.
type VLPSpec struct {
	Rel        *plan.GraphRel
	PatternCtx patternschema.Context
	CTEName    string
}

// CTE is one entry of the outer WITH clause: either a nested RenderPlan
// (ordinary WITH-clause projection, or recursive-VLP wrapper text built by
// the printer from VLP) or a VLP recursive CTE, whose actual SQL text is
// generated by the printer (C8) from VLP rather than by walking a Plan,
// since its base/recursive terms have no Plan-shaped equivalent.
type CTE struct {
	Name      string
	Recursive bool
	Plan      *Plan
	VLP       *VLPSpec
}

// UnionPlan holds the branches of a pattern-expansion UNION ALL (bidirectional
// or multi-candidate relationship expansion, spec.md §4.5.4): every branch
// shares the same outer SelectItems/Distinct, applied per-branch so ClickHouse
// can apply ORDER BY/LIMIT once, after the combined UNION ALL.
type UnionPlan struct {
	Branches []*Plan
	All      bool
}

// Plan is the render plan (spec.md §3.4): a single SELECT block, or a
// UnionPlan of several, plus the CTEs it and its ancestors introduced.
type Plan struct {
	CTEs []CTE

	// Union is set instead of From/Joins/Where when this Plan's core is a
	// pattern-expansion UNION ALL; SelectItems/Distinct/GroupBy/Having/
	// OrderBy/Limit/Skip still apply to the combined result.
	Union *UnionPlan

	From  TableRef
	Joins []Join
	Where planexpr.Expr

	SelectItems []SelectItem
	Distinct    bool

	// GroupBy/Having are populated either from an explicit plan.GroupBy node
	// or synthesized by the builder when a Projection/WithClause's items mix
	// aggregate and non-aggregate expressions (see buildClauseBody).
	GroupBy []planexpr.Expr
	Having  planexpr.Expr

	OrderBy []OrderItem
	Limit   planexpr.Expr
	Skip    planexpr.Expr
}

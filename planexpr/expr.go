// Package planexpr is the expression representation used from logical-plan
// construction (C3) onward, once a Cypher ast.Expr has had alias/property
// references resolved against the schema catalog (C4.4/C4.5) or left
// unresolved pending a later pass. Keeping one expression tree across C3–C8
// (rather than re-deriving one per stage) lets every pass share the single
// generic rewriting walker described in spec.md §9.
package planexpr

import "github.com/clickgraph/clickgraph/schema"

// Expr is any plan-level expression node.
type Expr interface{ planExprNode() }

type IntLit struct{ Value int64 }
type FloatLit struct{ Value float64 }
type StringLit struct{ Value string }
type BoolLit struct{ Value bool }
type NullLit struct{}
type ListLit struct{ Items []Expr }
type MapLit struct {
	Keys   []string
	Values []Expr
}

func (IntLit) planExprNode()    {}
func (FloatLit) planExprNode()  {}
func (StringLit) planExprNode() {}
func (BoolLit) planExprNode()   {}
func (NullLit) planExprNode()   {}
func (ListLit) planExprNode()   {}
func (MapLit) planExprNode()    {}

// Parameter is a `$name` bind-variable reference, forwarded opaquely to the
// executor per spec.md §6.
type Parameter struct{ Name string }

func (Parameter) planExprNode() {}

// Variable is a bare alias reference with no property access, e.g. `u` in
// `RETURN u` (whole-node return) or a GROUP BY key on a raw alias.
type Variable struct{ Name string }

func (Variable) planExprNode() {}

// PropertyRef is an unresolved `alias.property` reference, as produced
// directly by plan construction (C3) before filter/projection tagging (C4.4,
// C4.5) rewrites it into a ColumnRef.
type PropertyRef struct {
	Alias    string
	Property string
}

func (PropertyRef) planExprNode() {}

// ColumnRef is a PropertyRef resolved against the schema catalog: Column
// carries the physical SQL the printer should emit, SourceCTE is set when
// Alias was redefined by an enclosing WITH (so the reference must go through
// the CTE's exported column, never the base-table mapping again, per
// spec.md §3.3 and Testable Property 5).
type ColumnRef struct {
	Alias      string
	Property   string
	Column     schema.ColumnExpr
	SourceCTE  string
	CTEColumn  string
}

func (ColumnRef) planExprNode() {}

// EndpointRef is a reference to a variable-length-path endpoint column (e.g.
// `t.end_id`, `t.hop_count`) that outer GROUP BY/ORDER BY/aggregate
// expressions must use in place of the Cypher alias, per spec.md §4.7 rule 6.
type EndpointRef struct {
	CTEAlias string
	Column   string
}

func (EndpointRef) planExprNode() {}

// FuncCall covers ordinary functions, aggregates (Aggregate == true) and
// pass-through namespaced calls (Namespace == "ch"/"chagg").
type FuncCall struct {
	Namespace string
	Name      string
	Args      []Expr
	Distinct  bool
	Aggregate bool
}

func (FuncCall) planExprNode() {}

// PathFunc is one of length(p)/nodes(p)/relationships(p)/type(r)/id(x)/
// labels(n)/label(n), bound to the path or alias it was applied to.
type PathFunc struct {
	Kind  string // "length", "nodes", "relationships", "type", "id", "labels", "label"
	Alias string
}

func (PathFunc) planExprNode() {}

type BinaryOp struct {
	Op          string
	Left, Right Expr
}

func (BinaryOp) planExprNode() {}

type UnaryOp struct {
	Op      string
	Operand Expr
}

func (UnaryOp) planExprNode() {}

type WhenClause struct {
	Cond   Expr
	Result Expr
}

type CaseExpr struct {
	Test  Expr
	Whens []WhenClause
	Else  Expr
}

func (CaseExpr) planExprNode() {}

type Subscript struct {
	List  Expr
	Index Expr
}

func (Subscript) planExprNode() {}

type Slice struct {
	List     Expr
	From, To Expr
}

func (Slice) planExprNode() {}

// RawSQL wraps SQL text produced by the schema package's own renderers
// (schema.SQLEquality, schema.SQLTuple) for join ON predicates and similar
// spots where the text is already final and needs no further rewriting.
type RawSQL struct{ SQL string }

func (RawSQL) planExprNode() {}

// Unsupported wraps an expression shape the compiler parses but does not
// translate to SQL (pattern comprehensions and every EXISTS subquery).
// Printing one of these raises cgerrors.ErrUnsupportedFeature rather than
// panicking.
type Unsupported struct {
	Reason string
}

func (Unsupported) planExprNode() {}

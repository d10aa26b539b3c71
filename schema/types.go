// Package schema implements the Schema Catalog (C1): resolution of Cypher
// labels, relationship types and properties against user-declared views of
// physical ClickHouse tables.
package schema

import "fmt"

// PropertyName is a Cypher-visible property name, e.g. the "name" in a.name.
type PropertyName = string

// ColumnExpr is either a bare column name or a SQL scalar expression such as
// toDate(raw). Callers print Expr verbatim and Column as a quoted identifier;
// the printer (C8) decides quoting, not this package.
type ColumnExpr struct {
	Column string // set when the mapping is a plain column reference
	Expr   string // set when the mapping is an arbitrary SQL expression
}

// IsExpr reports whether this mapping is a raw SQL expression rather than a
// simple column reference.
func (c ColumnExpr) IsExpr() bool { return c.Expr != "" }

// SQL returns the text to splice into generated SQL for this mapping.
func (c ColumnExpr) SQL() string {
	if c.IsExpr() {
		return c.Expr
	}
	return c.Column
}

func (c ColumnExpr) String() string { return c.SQL() }

// Col builds a plain column-reference mapping.
func Col(name string) ColumnExpr { return ColumnExpr{Column: name} }

// Expr builds a raw-SQL-expression mapping.
func Expr(sql string) ColumnExpr { return ColumnExpr{Expr: sql} }

// AccessStyle classifies how a relationship's rows relate to its endpoints'
// node rows; it drives join-strategy classification in the Pattern Schema
// Resolver (C6).
type AccessStyle int

const (
	// Standard is a dedicated edge table joined to two node tables.
	Standard AccessStyle = iota
	// Denormalized embeds both endpoints' properties in the edge row itself.
	Denormalized
	// FkEdge models the relationship as a self-referencing FK column on the
	// node table; there is no dedicated edge table.
	FkEdge
	// Polymorphic holds multiple relationship types in one table,
	// distinguished by a type-discriminator column.
	Polymorphic
)

func (a AccessStyle) String() string {
	switch a {
	case Standard:
		return "Standard"
	case Denormalized:
		return "Denormalized"
	case FkEdge:
		return "FkEdge"
	case Polymorphic:
		return "Polymorphic"
	default:
		return fmt.Sprintf("AccessStyle(%d)", int(a))
	}
}

// NodeSchema describes how a Cypher label maps onto a physical table.
type NodeSchema struct {
	Label    string
	Database string
	Table    string

	// NodeID is the ordered property name(s) that make up the node's
	// identity. Most labels have exactly one; composite keys (e.g. tenant_id,
	// user_id) have more, and join predicates must preserve ordering.
	NodeID []PropertyName

	PropertyMappings map[PropertyName]ColumnExpr

	// Filter is an optional SQL predicate applied whenever this node schema
	// is scanned (e.g. a soft-delete filter).
	Filter string

	// UseFinal requests a FINAL modifier on scans of this table, for
	// ReplacingMergeTree-backed views.
	UseFinal bool

	// ViewParameters names ordered parameterized-view arguments
	// (view_name(p1 = $x, ...)); empty for plain tables.
	ViewParameters []string

	// Indexes lists columns known to be indexed. Advisory only: anchor-node
	// selection (C5) takes the pattern's first node alias and does not read it.
	Indexes []string

	// AutoDiscover enables identity-fallback property resolution backed by
	// live column metadata (resolve_column falls back to property==column
	// only when this is true).
	AutoDiscover bool
}

// IDColumns returns the physical columns backing NodeID, resolved through
// PropertyMappings (falling back to identity names when unmapped).
func (n *NodeSchema) IDColumns() []string {
	cols := make([]string, len(n.NodeID))
	for i, p := range n.NodeID {
		if m, ok := n.PropertyMappings[p]; ok {
			cols[i] = m.SQL()
		} else {
			cols[i] = p
		}
	}
	return cols
}

// RelationshipSchema describes how a Cypher relationship type maps onto a
// physical table (or onto a column, in the FkEdge case).
type RelationshipSchema struct {
	Type     string
	Database string
	Table    string

	FromNodeLabel string
	ToNodeLabel   string

	FromIDColumn []string
	ToIDColumn   []string

	// EdgeIDColumn uniquely identifies a relationship row, used to enforce
	// relationship-uniqueness within a single MATCH clause.
	EdgeIDColumn string

	PropertyMappings map[PropertyName]ColumnExpr

	// FromProperties / ToProperties are consulted instead of
	// PropertyMappings when AccessStyle == Denormalized, keyed by the
	// endpoint's own property names.
	FromProperties map[PropertyName]ColumnExpr
	ToProperties   map[PropertyName]ColumnExpr

	Filter string

	AccessStyle AccessStyle

	// TypeColumn discriminates relationship types sharing one physical table
	// when AccessStyle == Polymorphic.
	TypeColumn string
	// TypeValue is this relationship type's discriminator value in
	// TypeColumn.
	TypeValue string

	// FkColumn is the self-referencing foreign key column on the node table
	// when AccessStyle == FkEdge (no dedicated edge table exists).
	FkColumn string
}

// ColumnInfo is one row of physical column metadata, as returned by a
// ColumnDescriber during auto-discovery.
type ColumnInfo struct {
	Name     string
	TypeHint string
}

// ColumnType is a declared type for a bound Cypher $parameter (EXPANSION,
// SPEC_FULL §3.1): when a schema document declares parameter types we
// validate eagerly rather than forwarding opaquely.
type ColumnType string

const (
	TypeString ColumnType = "String"
	TypeInt    ColumnType = "Int"
	TypeFloat  ColumnType = "Float"
	TypeBool   ColumnType = "Bool"
	TypeDate   ColumnType = "Date"
	TypeAny    ColumnType = "Any"
)

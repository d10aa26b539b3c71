// Package analyzer implements the C4 analyzer passes: variable resolution,
// label/type inference, schema binding, filter tagging, projection tagging
// and query validation, run top-down in that fixed order over the logical
// plan built by plan.Build.
package analyzer

import "github.com/clickgraph/clickgraph/schema"

// SourceKind distinguishes a variable bound to a physical base table from
// one re-exported by an enclosing WITH, per spec.md §4.4 rule 1: "later
// passes never re-apply base-schema mapping to a CTE-sourced name."
type SourceKind int

const (
	BaseTable SourceKind = iota
	CteExport
)

// TypedVariable is the resolution record variable resolution (pass 1)
// attaches to every alias in scope.
type TypedVariable struct {
	Alias  string
	Source SourceKind

	// LabelIfNode is the Cypher label, when Alias names a node rather than a
	// relationship or a plain WITH-projected scalar; empty until label
	// inference (pass 2) fills it in for previously-unlabeled nodes.
	LabelIfNode string

	// CTEName / ExportAlias are set when Source == CteExport: the CTE that
	// produced this alias, and the column name it exported it under.
	CTEName     string
	ExportAlias string
}

// Scope is a stack frame of alias -> TypedVariable bindings; WITH opens a
// new Scope so that names the WITH did not re-export fall out of scope
// exactly as openCypher requires.
type Scope struct {
	parent *Scope
	vars   map[string]TypedVariable
}

// NewScope opens a scope nested under parent (nil for the query's root
// scope).
func NewScope(parent *Scope) *Scope {
	return &Scope{parent: parent, vars: map[string]TypedVariable{}}
}

// Bind records v under its own Alias in s.
func (s *Scope) Bind(v TypedVariable) { s.vars[v.Alias] = v }

// Lookup resolves alias in s or any enclosing scope.
func (s *Scope) Lookup(alias string) (TypedVariable, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[alias]; ok {
			return v, true
		}
	}
	return TypedVariable{}, false
}

// BoundAliases returns every alias reachable from s (used by query
// validation, pass 6, to check that every referenced alias is bound).
func (s *Scope) BoundAliases() map[string]bool {
	out := map[string]bool{}
	for cur := s; cur != nil; cur = cur.parent {
		for a := range cur.vars {
			out[a] = true
		}
	}
	return out
}

// bindingContext carries the information filter tagging (pass 4) and
// projection tagging (pass 5) share, collected from the plan after schema
// binding (pass 3): the resolved scope and the schema catalog entry a
// node/relationship alias maps to.
type bindingContext struct {
	scope      *Scope
	nodeSchema map[string]*schema.NodeSchema
	relSchema  map[string]*schema.RelationshipSchema
	relSide    map[string]string // alias -> "from"/"to", for denormalized edges
}

func newBindingContext(scope *Scope) *bindingContext {
	return &bindingContext{
		scope:      scope,
		nodeSchema: map[string]*schema.NodeSchema{},
		relSchema:  map[string]*schema.RelationshipSchema{},
		relSide:    map[string]string{},
	}
}

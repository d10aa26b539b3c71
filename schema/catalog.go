package schema

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/clickgraph/clickgraph/cgerrors"
)

// relKey composes the (database, table, label) index used to disambiguate a
// label that appears in more than one physical table (polymorphic and
// denormalized cases), per spec.md §3.1.
type tableKey struct {
	Database string
	Table    string
	Label    string
}

// GraphSchema is one named, fully-resolved schema: the set of node and
// relationship mappings a compile() call is run against.
type GraphSchema struct {
	Name string

	nodesByLabel map[string]*NodeSchema
	nodesByTable map[tableKey]*NodeSchema
	relsByType   map[string][]*RelationshipSchema

	// Parameters declares $name parameter types (EXPANSION); nil entries mean
	// "forward opaquely", matching spec.md §6 default behavior.
	Parameters map[string]ColumnType
}

// NewGraphSchema builds a GraphSchema from its node and relationship
// declarations, validating the invariants of spec.md §3.1:
//   - a node schema exists for every label a relationship references,
//   - from/to ID column counts match the referenced node's NodeID arity,
//   - property mappings never collide with internal alias columns.
func NewGraphSchema(name string, nodes []*NodeSchema, rels []*RelationshipSchema) (*GraphSchema, error) {
	g := &GraphSchema{
		Name:         name,
		nodesByLabel: make(map[string]*NodeSchema),
		nodesByTable: make(map[tableKey]*NodeSchema),
		relsByType:   make(map[string][]*RelationshipSchema),
	}

	for _, n := range nodes {
		if _, exists := g.nodesByLabel[n.Label]; !exists {
			g.nodesByLabel[n.Label] = n
		}
		g.nodesByTable[tableKey{n.Database, n.Table, n.Label}] = n
	}

	for _, r := range rels {
		if r.AccessStyle != FkEdge {
			if _, ok := g.nodesByLabel[r.FromNodeLabel]; !ok {
				return nil, cgerrors.ErrLabelNotFound.New(r.FromNodeLabel, name)
			}
		}
		if _, ok := g.nodesByLabel[r.ToNodeLabel]; !ok {
			return nil, cgerrors.ErrLabelNotFound.New(r.ToNodeLabel, name)
		}
		if from := g.nodesByLabel[r.FromNodeLabel]; from != nil && r.AccessStyle == Standard {
			if len(r.FromIDColumn) != len(from.NodeID) {
				return nil, cgerrors.ErrInternal.New(fmt.Sprintf(
					"relationship %q from_id_column arity %d does not match %q node_id arity %d",
					r.Type, len(r.FromIDColumn), r.FromNodeLabel, len(from.NodeID)))
			}
		}
		if to := g.nodesByLabel[r.ToNodeLabel]; to != nil && (r.AccessStyle == Standard || r.AccessStyle == Denormalized) {
			if len(r.ToIDColumn) != len(to.NodeID) {
				return nil, cgerrors.ErrInternal.New(fmt.Sprintf(
					"relationship %q to_id_column arity %d does not match %q node_id arity %d",
					r.Type, len(r.ToIDColumn), r.ToNodeLabel, len(to.NodeID)))
			}
		}
		g.relsByType[r.Type] = append(g.relsByType[r.Type], r)
	}

	return g, nil
}

// LookupNode resolves a label to its node schema.
func (g *GraphSchema) LookupNode(label string) (*NodeSchema, error) {
	n, ok := g.nodesByLabel[label]
	if !ok {
		return nil, cgerrors.ErrLabelNotFound.New(label, g.Name)
	}
	return n, nil
}

// LookupNodeForTable resolves a label scoped to a specific (database, table)
// pair, used when the same label appears in multiple physical tables.
func (g *GraphSchema) LookupNodeForTable(database, table, label string) (*NodeSchema, error) {
	n, ok := g.nodesByTable[tableKey{database, table, label}]
	if !ok {
		return nil, cgerrors.ErrLabelNotFound.New(label, g.Name)
	}
	return n, nil
}

// AllLabels returns every declared node label, sorted, for label inference
// (C4.2) to enumerate candidates deterministically.
func (g *GraphSchema) AllLabels() []string {
	out := make([]string, 0, len(g.nodesByLabel))
	for l := range g.nodesByLabel {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// LookupRel resolves a relationship type, optionally narrowed by endpoint
// labels. When more than one relationship schema shares the type and neither
// endpoint narrows it to a single candidate, LookupRel returns
// AmbiguousRelationship with the candidate set attached.
func (g *GraphSchema) LookupRel(relType string, fromLabel, toLabel string) (*RelationshipSchema, error) {
	candidates, ok := g.relsByType[relType]
	if !ok || len(candidates) == 0 {
		return nil, cgerrors.ErrRelNotFound.New(relType, g.Name)
	}

	matches := candidates
	if fromLabel != "" {
		matches = filterRels(matches, func(r *RelationshipSchema) bool { return r.FromNodeLabel == fromLabel })
	}
	if toLabel != "" {
		matches = filterRels(matches, func(r *RelationshipSchema) bool { return r.ToNodeLabel == toLabel })
	}

	switch len(matches) {
	case 0:
		return nil, cgerrors.ErrRelNotFound.New(relType, g.Name)
	case 1:
		return matches[0], nil
	default:
		return nil, cgerrors.ErrAmbiguousRelationship.New(relType, fromLabel, toLabel, describeCandidates(matches))
	}
}

// AllRelSchemas returns every declared relationship schema across every
// type, sorted by (Type, Database, Table) for determinism; used by
// label/type inference (C4.2) when a relationship pattern carries no type
// at all ("wildcard relationship") and every declared type is a candidate.
func (g *GraphSchema) AllRelSchemas() []*RelationshipSchema {
	var out []*RelationshipSchema
	for _, t := range g.allRelTypesSorted() {
		out = append(out, g.relsByType[t]...)
	}
	return out
}

func (g *GraphSchema) allRelTypesSorted() []string {
	out := make([]string, 0, len(g.relsByType))
	for t := range g.relsByType {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// CandidateRels returns every relationship schema declared for relType,
// without attempting to disambiguate — used by label/type inference (C4.2)
// and by polymorphic VLP rendering (C8), which intentionally consult the full
// candidate set.
func (g *GraphSchema) CandidateRels(relType string) []*RelationshipSchema {
	return g.relsByType[relType]
}

func filterRels(in []*RelationshipSchema, pred func(*RelationshipSchema) bool) []*RelationshipSchema {
	var out []*RelationshipSchema
	for _, r := range in {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}

func describeCandidates(rels []*RelationshipSchema) []string {
	out := make([]string, len(rels))
	for i, r := range rels {
		out[i] = fmt.Sprintf("%s->%s (%s.%s)", r.FromNodeLabel, r.ToNodeLabel, r.Database, r.Table)
	}
	return out
}

// AliasSchema is the resolution context resolve_column needs: which node or
// relationship schema an alias is bound to, and (for denormalized edges)
// which side of the edge it represents.
type AliasSchema struct {
	Node *NodeSchema
	Rel  *RelationshipSchema
	// RelSide is "from" or "to" when Rel != nil and the access style is
	// Denormalized; resolve_column consults FromProperties/ToProperties
	// accordingly.
	RelSide string
}

// ResolveColumn implements resolve_column (spec.md §4.1): property mapping
// first, denormalized from/to mapping second, identity fallback last (and
// only when the schema opted into auto-discovery).
func (g *GraphSchema) ResolveColumn(as AliasSchema, property PropertyName) (ColumnExpr, error) {
	switch {
	case as.Node != nil:
		if m, ok := as.Node.PropertyMappings[property]; ok {
			return m, nil
		}
		if as.Node.AutoDiscover {
			return Col(property), nil
		}
		return ColumnExpr{}, cgerrors.ErrPropertyNotFound.New(property, as.Node.Label)

	case as.Rel != nil:
		if as.Rel.AccessStyle == Denormalized {
			var side map[PropertyName]ColumnExpr
			if as.RelSide == "to" {
				side = as.Rel.ToProperties
			} else {
				side = as.Rel.FromProperties
			}
			if m, ok := side[property]; ok {
				return m, nil
			}
		}
		if m, ok := as.Rel.PropertyMappings[property]; ok {
			return m, nil
		}
		return ColumnExpr{}, cgerrors.ErrPropertyNotFound.New(property, as.Rel.Type)
	}
	return ColumnExpr{}, cgerrors.ErrInternal.New("ResolveColumn called with empty AliasSchema")
}

// SQLTuple renders a composite-ID tuple reference for alias, e.g.
// "(a.tenant_id, a.user_id)" for a two-column node ID, or "a.user_id" for a
// single-column one.
func SQLTuple(alias string, cols []string) string {
	if len(cols) == 1 {
		return fmt.Sprintf("%s.%s", alias, cols[0])
	}
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprintf("%s.%s", alias, c)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// SQLEquality renders the column-wise equality predicate between two
// composite-ID tuples: a conjunction of "=" for single-column IDs, or tuple
// equality "(a.x, a.y) = (b.x, b.y)" for composite ones — stable across every
// caller (Traditional join rendering, FkEdge self-joins, cross-branch joins).
func SQLEquality(leftAlias string, leftCols []string, rightAlias string, rightCols []string) string {
	if len(leftCols) != len(rightCols) {
		return fmt.Sprintf("%s = %s", SQLTuple(leftAlias, leftCols), SQLTuple(rightAlias, rightCols))
	}
	if len(leftCols) == 1 {
		return fmt.Sprintf("%s.%s = %s.%s", leftAlias, leftCols[0], rightAlias, rightCols[0])
	}
	return fmt.Sprintf("%s = %s", SQLTuple(leftAlias, leftCols), SQLTuple(rightAlias, rightCols))
}

// Catalog is the process-wide registry of named schemas. Compilation reads a
// *GraphSchema value handed to it by the caller (spec.md §5: "read-only
// during compilation"); Catalog exists purely to give callers a place to
// register/replace schemas atomically between queries, mirroring the
// teacher's own catalog.Catalog (sql.Catalog in the teacher) without any of
// its table-storage responsibilities.
type Catalog struct {
	mu      sync.RWMutex
	schemas map[string]*GraphSchema
}

// NewCatalog returns an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{schemas: make(map[string]*GraphSchema)}
}

// Register atomically installs schema under its own Name, replacing any
// previous registration of the same name.
func (c *Catalog) Register(g *GraphSchema) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.schemas[g.Name] = g
}

// Get resolves a schema by name, applying the USE-clause precedence of
// spec.md §6 is the caller's responsibility; Get itself is a plain lookup.
func (c *Catalog) Get(name string) (*GraphSchema, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g, ok := c.schemas[name]
	if !ok {
		return nil, cgerrors.ErrSchemaNotFound.New(name)
	}
	return g, nil
}

// Names returns every registered schema name, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.schemas))
	for n := range c.schemas {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// DefaultSchemaName is used when neither a USE clause nor a request-scoped
// schema parameter is supplied (spec.md §6).
const DefaultSchemaName = "default"

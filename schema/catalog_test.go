package schema

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clickgraph/clickgraph/cgerrors"
)

func userSchema() *NodeSchema {
	return &NodeSchema{
		Label:    "User",
		Database: "social",
		Table:    "users",
		NodeID:   []PropertyName{"user_id"},
		PropertyMappings: map[PropertyName]ColumnExpr{
			"name": Col("full_name"),
		},
	}
}

func followsSchema() *RelationshipSchema {
	return &RelationshipSchema{
		Type:          "FOLLOWS",
		Database:      "social",
		Table:         "follows",
		FromNodeLabel: "User",
		ToNodeLabel:   "User",
		FromIDColumn:  []string{"from_user_id"},
		ToIDColumn:    []string{"to_user_id"},
		AccessStyle:   Standard,
	}
}

func TestNewGraphSchemaMissingEndpointLabel(t *testing.T) {
	rel := followsSchema()
	_, err := NewGraphSchema("default", nil, []*RelationshipSchema{rel})
	require.Error(t, err)
	require.True(t, cgerrors.ErrLabelNotFound.Is(err))
}

func TestLookupNode(t *testing.T) {
	g, err := NewGraphSchema("default", []*NodeSchema{userSchema()}, nil)
	require.NoError(t, err)

	n, err := g.LookupNode("User")
	require.NoError(t, err)
	require.Equal(t, "users", n.Table)

	_, err = g.LookupNode("Nope")
	require.True(t, cgerrors.ErrLabelNotFound.Is(err))
}

func TestLookupRelAmbiguous(t *testing.T) {
	user := userSchema()
	org := &NodeSchema{Label: "Org", Database: "social", Table: "orgs", NodeID: []PropertyName{"org_id"}}
	r1 := &RelationshipSchema{Type: "MEMBER_OF", Database: "social", Table: "m1", FromNodeLabel: "User", ToNodeLabel: "Org", FromIDColumn: []string{"x"}, ToIDColumn: []string{"y"}}
	r2 := &RelationshipSchema{Type: "MEMBER_OF", Database: "social", Table: "m2", FromNodeLabel: "User", ToNodeLabel: "Org", FromIDColumn: []string{"x"}, ToIDColumn: []string{"y"}}

	g, err := NewGraphSchema("default", []*NodeSchema{user, org}, []*RelationshipSchema{r1, r2})
	require.NoError(t, err)

	_, err = g.LookupRel("MEMBER_OF", "User", "Org")
	require.True(t, cgerrors.ErrAmbiguousRelationship.Is(err))

	require.Len(t, g.CandidateRels("MEMBER_OF"), 2)
}

func TestResolveColumnPropertyMapping(t *testing.T) {
	g, err := NewGraphSchema("default", []*NodeSchema{userSchema()}, nil)
	require.NoError(t, err)
	n, _ := g.LookupNode("User")

	col, err := g.ResolveColumn(AliasSchema{Node: n}, "name")
	require.NoError(t, err)
	require.Equal(t, "full_name", col.SQL())

	_, err = g.ResolveColumn(AliasSchema{Node: n}, "missing")
	require.True(t, cgerrors.ErrPropertyNotFound.Is(err))
}

func TestResolveColumnDenormalized(t *testing.T) {
	rel := &RelationshipSchema{
		Type:          "ACCESSED",
		AccessStyle:   Denormalized,
		FromNodeLabel: "IP",
		ToNodeLabel:   "IP",
		FromProperties: map[PropertyName]ColumnExpr{
			"addr": Col("orig_h"),
		},
		ToProperties: map[PropertyName]ColumnExpr{
			"addr": Col("resp_h"),
		},
	}
	col, err := (&GraphSchema{}).ResolveColumn(AliasSchema{Rel: rel, RelSide: "to"}, "addr")
	require.NoError(t, err)
	require.Equal(t, "resp_h", col.SQL())

	col, err = (&GraphSchema{}).ResolveColumn(AliasSchema{Rel: rel, RelSide: "from"}, "addr")
	require.NoError(t, err)
	require.Equal(t, "orig_h", col.SQL())
}

func TestSQLTupleAndEquality(t *testing.T) {
	require.Equal(t, "a.user_id", SQLTuple("a", []string{"user_id"}))
	require.Equal(t, "(a.tenant_id, a.user_id)", SQLTuple("a", []string{"tenant_id", "user_id"}))

	require.Equal(t, "e.from_user_id = a.user_id",
		SQLEquality("e", []string{"from_user_id"}, "a", []string{"user_id"}))
	require.Equal(t, "(e.from_tenant_id, e.from_user_id) = (a.tenant_id, a.user_id)",
		SQLEquality("e", []string{"from_tenant_id", "from_user_id"}, "a", []string{"tenant_id", "user_id"}))
}

func TestCatalogRegisterIsAtomicReplacement(t *testing.T) {
	c := NewCatalog()
	g1, _ := NewGraphSchema("default", []*NodeSchema{userSchema()}, nil)
	c.Register(g1)

	got, err := c.Get("default")
	require.NoError(t, err)
	require.Same(t, g1, got)

	g2, _ := NewGraphSchema("default", nil, nil)
	c.Register(g2)
	got, err = c.Get("default")
	require.NoError(t, err)
	require.Same(t, g2, got)

	_, err = c.Get("nope")
	require.True(t, cgerrors.ErrSchemaNotFound.Is(err))
}

type fakeDescriber struct {
	calls int
	cols  []ColumnInfo
}

func (f *fakeDescriber) DescribeTable(ctx context.Context, database, table string) ([]ColumnInfo, error) {
	f.calls++
	return f.cols, nil
}

func TestAutoDiscovererCachesByTable(t *testing.T) {
	fd := &fakeDescriber{cols: []ColumnInfo{{Name: "raw_date", TypeHint: "String"}}}
	d := NewAutoDiscoverer(fd, time.Minute)

	n := &NodeSchema{Label: "Event", Database: "db", Table: "events", AutoDiscover: true}
	require.NoError(t, d.Discover(context.Background(), n))
	require.Equal(t, 1, fd.calls)
	require.Contains(t, n.PropertyMappings, "raw_date")

	n2 := &NodeSchema{Label: "Event", Database: "db", Table: "events", AutoDiscover: true}
	require.NoError(t, d.Discover(context.Background(), n2))
	require.Equal(t, 1, fd.calls, "second discover for same table should hit the cache")
}

func TestAutoDiscovererNoopWithoutOptIn(t *testing.T) {
	fd := &fakeDescriber{}
	d := NewAutoDiscoverer(fd, time.Minute)
	n := &NodeSchema{Label: "Event", Database: "db", Table: "events"}
	require.NoError(t, d.Discover(context.Background(), n))
	require.Equal(t, 0, fd.calls)
}

package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clickgraph/clickgraph/cgerrors"
	"github.com/clickgraph/clickgraph/schema"
)

func testRegistry(t *testing.T) Registry {
	t.Helper()
	user := &schema.NodeSchema{
		Label: "User", Database: "social", Table: "users",
		NodeID: []schema.PropertyName{"user_id"},
		PropertyMappings: map[schema.PropertyName]schema.ColumnExpr{
			"name": schema.Col("full_name"),
		},
	}
	follows := &schema.RelationshipSchema{
		Type: "FOLLOWS", Database: "social", Table: "follows",
		FromNodeLabel: "User", ToNodeLabel: "User",
		FromIDColumn: []string{"from_user_id"}, ToIDColumn: []string{"to_user_id"},
		AccessStyle: schema.Standard,
	}
	g, err := schema.NewGraphSchema("default", []*schema.NodeSchema{user}, []*schema.RelationshipSchema{follows})
	require.NoError(t, err)

	other, err := schema.NewGraphSchema("other", []*schema.NodeSchema{user}, []*schema.RelationshipSchema{follows})
	require.NoError(t, err)

	return Registry{"default": g, "other": other}
}

func TestCompileUsesDefaultSchemaWhenUnspecified(t *testing.T) {
	reg := testRegistry(t)
	res, err := Compile(reg, Request{Query: `MATCH (u:User) RETURN u.name`})
	require.NoError(t, err)
	require.Contains(t, res.SQL, "full_name")
}

func TestCompileRequestScopedSchemaNameWins(t *testing.T) {
	reg := testRegistry(t)
	res, err := Compile(reg, Request{Query: `MATCH (u:User) RETURN u.name`, SchemaName: "other"})
	require.NoError(t, err)
	require.Contains(t, res.SQL, "full_name")
}

func TestCompileUseClauseOverridesRequestSchemaName(t *testing.T) {
	reg := testRegistry(t)
	res, err := Compile(reg, Request{Query: `USE other MATCH (u:User) RETURN u.name`, SchemaName: "default"})
	require.NoError(t, err)
	require.Contains(t, res.SQL, "full_name")
}

func TestCompileUnknownSchemaNameFails(t *testing.T) {
	reg := testRegistry(t)
	_, err := Compile(reg, Request{Query: `MATCH (u:User) RETURN u.name`, SchemaName: "nope"})
	require.Error(t, err)
	require.True(t, cgerrors.ErrSchemaNotFound.Is(err))
}

func TestCompileParameterSurfacesInResult(t *testing.T) {
	reg := testRegistry(t)
	res, err := Compile(reg, Request{Query: `MATCH (u:User) WHERE u.name = $name RETURN u.name`})
	require.NoError(t, err)
	require.Contains(t, res.Params, "name")
}

// Package schemaload loads a GraphSchema from a YAML document (spec.md
// §3.1's "user-declared schema"), the on-disk counterpart of the
// programmatically-built schemas the rest of the module constructs in tests.
package schemaload

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/clickgraph/clickgraph/cgerrors"
	"github.com/clickgraph/clickgraph/schema"
)

// doc mirrors one YAML schema file. Field names are lower_snake_case in the
// file, matching the rest of the ClickHouse-facing vocabulary this module
// uses (table/column names) rather than Go's own naming convention.
type doc struct {
	Name          string        `yaml:"name"`
	Parameters    map[string]string `yaml:"parameters"`
	Nodes         []nodeDoc     `yaml:"nodes"`
	Relationships []relDoc      `yaml:"relationships"`
}

type columnMappingDoc struct {
	Column string `yaml:"column"`
	Expr   string `yaml:"expr"`
}

type nodeDoc struct {
	Label        string                      `yaml:"label"`
	Database     string                      `yaml:"database"`
	Table        string                      `yaml:"table"`
	ID           []string                    `yaml:"id"`
	Properties   map[string]columnMappingDoc `yaml:"properties"`
	Filter       string                      `yaml:"filter"`
	UseFinal     bool                        `yaml:"use_final"`
	ViewParams   []string                    `yaml:"view_parameters"`
	AutoDiscover bool                        `yaml:"auto_discover"`
}

type relDoc struct {
	Type           string                      `yaml:"type"`
	Database       string                      `yaml:"database"`
	Table          string                      `yaml:"table"`
	From           string                      `yaml:"from"`
	To             string                      `yaml:"to"`
	FromIDColumn   []string                    `yaml:"from_id_column"`
	ToIDColumn     []string                    `yaml:"to_id_column"`
	EdgeIDColumn   string                      `yaml:"edge_id_column"`
	Properties     map[string]columnMappingDoc `yaml:"properties"`
	FromProperties map[string]columnMappingDoc `yaml:"from_properties"`
	ToProperties   map[string]columnMappingDoc `yaml:"to_properties"`
	Filter         string                      `yaml:"filter"`
	AccessStyle    string                      `yaml:"access_style"`
	TypeColumn     string                      `yaml:"type_column"`
	TypeValue      string                      `yaml:"type_value"`
	FkColumn       string                      `yaml:"fk_column"`
}

// LoadFile reads and parses one schema YAML file into a *schema.GraphSchema.
func LoadFile(path string) (*schema.GraphSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cgerrors.ErrSchemaNotFound.New(fmt.Sprintf("%s: %v", path, err))
	}
	g, err := parse(data)
	if err != nil {
		return nil, err
	}
	logrus.WithField("schema", g.Name).WithField("path", path).Debug("loaded graph schema")
	return g, nil
}

// LoadAll reads every *.yaml/*.yml file in dir, keyed by each schema's own
// declared name (spec.md §6's named-schema registry, consulted by the USE
// clause and the request-scoped schema parameter).
func LoadAll(dir string) (map[string]*schema.GraphSchema, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, cgerrors.ErrSchemaNotFound.New(fmt.Sprintf("%s: %v", dir, err))
	}
	out := make(map[string]*schema.GraphSchema)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		g, err := LoadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		if _, dup := out[g.Name]; dup {
			return nil, cgerrors.ErrValidation.New(fmt.Sprintf("duplicate schema name %q in %s", g.Name, dir))
		}
		out[g.Name] = g
	}
	return out, nil
}

func parse(data []byte) (*schema.GraphSchema, error) {
	var d doc
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, cgerrors.ErrValidation.New(fmt.Sprintf("invalid schema YAML: %v", err))
	}

	nodes := make([]*schema.NodeSchema, len(d.Nodes))
	for i, n := range d.Nodes {
		nodes[i] = &schema.NodeSchema{
			Label:            n.Label,
			Database:         n.Database,
			Table:            n.Table,
			NodeID:           n.ID,
			PropertyMappings: columnMappings(n.Properties),
			Filter:           n.Filter,
			UseFinal:         n.UseFinal,
			ViewParameters:   n.ViewParams,
			AutoDiscover:     n.AutoDiscover,
		}
	}

	rels := make([]*schema.RelationshipSchema, len(d.Relationships))
	for i, r := range d.Relationships {
		style, err := accessStyle(r.AccessStyle)
		if err != nil {
			return nil, err
		}
		rels[i] = &schema.RelationshipSchema{
			Type:             r.Type,
			Database:         r.Database,
			Table:            r.Table,
			FromNodeLabel:    r.From,
			ToNodeLabel:      r.To,
			FromIDColumn:     r.FromIDColumn,
			ToIDColumn:       r.ToIDColumn,
			EdgeIDColumn:     r.EdgeIDColumn,
			PropertyMappings: columnMappings(r.Properties),
			FromProperties:   columnMappings(r.FromProperties),
			ToProperties:     columnMappings(r.ToProperties),
			Filter:           r.Filter,
			AccessStyle:      style,
			TypeColumn:       r.TypeColumn,
			TypeValue:        r.TypeValue,
			FkColumn:         r.FkColumn,
		}
	}

	g, err := schema.NewGraphSchema(d.Name, nodes, rels)
	if err != nil {
		return nil, err
	}
	if len(d.Parameters) > 0 {
		g.Parameters = make(map[string]schema.ColumnType, len(d.Parameters))
		for name, typ := range d.Parameters {
			g.Parameters[name] = schema.ColumnType(typ)
		}
	}
	return g, nil
}

func columnMappings(in map[string]columnMappingDoc) map[schema.PropertyName]schema.ColumnExpr {
	if len(in) == 0 {
		return nil
	}
	out := make(map[schema.PropertyName]schema.ColumnExpr, len(in))
	for prop, m := range in {
		if m.Expr != "" {
			out[prop] = schema.Expr(m.Expr)
		} else {
			out[prop] = schema.Col(m.Column)
		}
	}
	return out
}

func accessStyle(s string) (schema.AccessStyle, error) {
	switch s {
	case "", "standard":
		return schema.Standard, nil
	case "denormalized":
		return schema.Denormalized, nil
	case "fk_edge":
		return schema.FkEdge, nil
	case "polymorphic":
		return schema.Polymorphic, nil
	default:
		return 0, cgerrors.ErrValidation.New(fmt.Sprintf("unknown access_style %q", s))
	}
}

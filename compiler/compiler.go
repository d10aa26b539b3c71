// Package compiler ties the Schema Catalog (C1) through the SQL Printer (C8)
// together into the single entry point spec.md §6 describes: Cypher text in,
// ClickHouse SQL text and bound parameters out.
package compiler

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/clickgraph/clickgraph/analyzer"
	"github.com/clickgraph/clickgraph/cgerrors"
	"github.com/clickgraph/clickgraph/cypher/parser"
	"github.com/clickgraph/clickgraph/internal/ctx"
	"github.com/clickgraph/clickgraph/optimizer"
	"github.com/clickgraph/clickgraph/plan"
	"github.com/clickgraph/clickgraph/render"
	"github.com/clickgraph/clickgraph/schema"
	"github.com/clickgraph/clickgraph/sqlprint"
)

const defaultSchemaName = "default"

// Registry resolves a schema name to its GraphSchema, the way schemaload.LoadAll's
// return value (or any other source a caller assembles) is consulted.
type Registry map[string]*schema.GraphSchema

// Request is one compile() call's input: the query text plus the two lower-
// precedence schema-selection inputs spec.md §6 defines (a Cypher `USE name`
// clause always wins over both).
type Request struct {
	Query string
	// SchemaName is the request-scoped schema parameter, used when the query
	// carries no USE clause. Empty falls through to "default".
	SchemaName string
	Options    ctx.Options
}

// Result is one successful compile: the SQL text and parameter names the
// caller's executor.Runner must bind.
type Result struct {
	SQL    string
	Params []string
}

// Compile runs the full pipeline: parse, resolve the schema (USE clause >
// request-scoped SchemaName > "default"), build the logical plan, analyze,
// optimize, render, and print. Errors from any stage are returned as-is
// (already one of cgerrors' typed variants); no stage is attempted once an
// earlier one fails, per spec.md §7's propagation policy.
func Compile(reg Registry, req Request) (*Result, error) {
	q, err := parser.Parse(req.Query)
	if err != nil {
		return nil, err
	}

	schemaName := req.SchemaName
	if schemaName == "" {
		schemaName = defaultSchemaName
	}
	if len(q.Parts) > 0 && q.Parts[0].Use != "" {
		schemaName = q.Parts[0].Use
	}
	sch, ok := reg[schemaName]
	if !ok {
		return nil, cgerrors.ErrSchemaNotFound.New(schemaName)
	}

	opts := req.Options
	if opts.MaxInferredTypes == 0 && opts.RecursiveVLPGenerator == "" {
		opts = ctx.DefaultOptions()
	}
	cc := ctx.New(sch, opts)
	logrus.WithFields(logrus.Fields{"schema": schemaName}).Debug("compiling query")

	n, err := plan.Build(q)
	if err != nil {
		return nil, err
	}
	ares, err := analyzer.Analyze(n, cc)
	if err != nil {
		return nil, err
	}
	ores, err := optimizer.Optimize(ares.Plan)
	if err != nil {
		return nil, err
	}
	rp, err := render.Build(cc, ores.Plan, ores.PatternCtx)
	if err != nil {
		return nil, err
	}
	printed, err := sqlprint.Print(cc, rp, sqlprint.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("printing plan: %w", err)
	}
	return &Result{SQL: printed.SQL, Params: printed.Params}, nil
}

package analyzer

import (
	"github.com/clickgraph/clickgraph/internal/ctx"
	"github.com/clickgraph/clickgraph/plan"
)

// Result is what Analyze hands to the optimizer (C5): the rewritten plan
// plus the root scope, which the optimizer and render builder (C7) still
// need for CTE alias bookkeeping.
type Result struct {
	Plan  plan.Node
	Scope *Scope
}

// Analyze runs the six analyzer passes in the fixed order spec.md §4.4
// mandates: variable resolution, label/type inference, schema binding,
// filter tagging, projection tagging, query validation.
func Analyze(n plan.Node, cc ctx.CompileContext) (*Result, error) {
	scope, err := ResolveVariables(n)
	if err != nil {
		return nil, err
	}

	if err := InferTypes(n, cc.Schema, cc.Options.MaxInferredTypes); err != nil {
		return nil, err
	}

	if err := BindSchema(n, cc.Schema); err != nil {
		return nil, err
	}

	n, err = TagFilters(n, scope, cc.Schema)
	if err != nil {
		return nil, err
	}

	n, err = TagProjections(n, scope, cc.Schema)
	if err != nil {
		return nil, err
	}

	if err := Validate(n, scope); err != nil {
		return nil, err
	}

	return &Result{Plan: n, Scope: scope}, nil
}

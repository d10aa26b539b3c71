// Package ctx defines CompileContext, the explicit context object threaded
// top-down through every compilation stage in place of the process-wide
// mutable state (schema registry, task-local aliases) the design notes flag
// as a anti-pattern to eliminate (spec.md §9 "Global mutable state").
package ctx

import (
	"fmt"

	"github.com/clickgraph/clickgraph/schema"
)

// Options carries the tunable knobs a single compilation may set, all with
// defaults matching spec.md.
type Options struct {
	// MaxInferredTypes bounds label/type inference (C4.2); ambiguity beyond
	// this is a hard AmbiguousLabel error. Default 5 per spec.md §4.4.
	MaxInferredTypes int

	// RecursiveVLPGenerator names the multi-type variable-length-path CTE
	// strategy (spec.md §9 open question). Only "recursive" (the default)
	// exists: the printer always generates one recursive CTE over a UNION of
	// the candidate edge tables and does not read this field, so any other
	// value, "chained" included, produces the same SQL.
	RecursiveVLPGenerator string
}

// DefaultOptions returns the spec-mandated defaults.
func DefaultOptions() Options {
	return Options{
		MaxInferredTypes:      5,
		RecursiveVLPGenerator: "recursive",
	}
}

// CompileContext is immutable after construction and passed by value (it is
// small and has no mutable fields of its own); the one piece of per-query
// mutable state it owns, the CTE name counter, lives behind a pointer to a
// private counter struct so copies of CompileContext still share one
// sequence, matching "a per-query counter" from spec.md §9.
type CompileContext struct {
	Schema  *schema.GraphSchema
	Options Options

	counter *nameCounter
}

type nameCounter struct{ n int }

// New builds a CompileContext for compiling one query against schema,
// using the supplied options (zero-value Options{} callers should use
// DefaultOptions() first).
func New(sch *schema.GraphSchema, opts Options) CompileContext {
	return CompileContext{Schema: sch, Options: opts, counter: &nameCounter{}}
}

// NextCTEName mints the next deterministic, monotone CTE name for this
// query, per spec.md §9 "Generated-CTE-name stability": names are built from
// a stable hint plus a monotone counter, never a hash, so two compilations of
// the same query produce byte-identical SQL.
func (c CompileContext) NextCTEName(hint string) string {
	c.counter.n++
	if hint == "" {
		hint = "cte"
	}
	return fmt.Sprintf("%s_%d", hint, c.counter.n)
}

// VLPName builds the `vlp_{left}_{right}` recursive CTE name spec.md §9
// prescribes for a variable-length-path expansion between two aliases.
func VLPName(left, right string) string {
	return fmt.Sprintf("vlp_%s_%s", left, right)
}

// WithCTEName builds the `with_{aliases}_cte` name spec.md §9 prescribes for
// a WITH clause's exported CTE.
func WithCTEName(aliases []string) string {
	joined := ""
	for i, a := range aliases {
		if i > 0 {
			joined += "_"
		}
		joined += a
	}
	return fmt.Sprintf("with_%s_cte", joined)
}

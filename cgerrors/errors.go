// Package cgerrors defines the error taxonomy shared by every compiler stage.
//
// Each kind is a gopkg.in/src-d/go-errors.v1 Kind, the same mechanism the
// teacher repository builds its sql.ErrXxx variables from. A pass raises an
// error with Kind.New(args...) and callers distinguish taxonomy members with
// Kind.Is(err), never by string comparison.
package cgerrors

import (
	errors "gopkg.in/src-d/go-errors.v1"
)

var (
	// ErrParse covers every syntactic failure in the Cypher parser. The
	// location is embedded in the formatted message, not carried as a
	// separate field, matching go-errors.v1's single-Kind-per-message style.
	ErrParse = errors.NewKind("parse error at offset %d: expected %s, got %s")

	// ErrTooLarge is raised when a relationship chain exceeds the bounded
	// recursion depth the parser enforces.
	ErrTooLarge = errors.NewKind("pattern exceeds maximum relationship chain depth of %d")

	// Schema errors (C1).
	ErrSchemaNotFound       = errors.NewKind("schema %q not found")
	ErrLabelNotFound        = errors.NewKind("label %q not found in schema %q")
	ErrRelNotFound          = errors.NewKind("relationship type %q not found in schema %q")
	ErrPropertyNotFound     = errors.NewKind("property %q not found on %q")
	ErrAmbiguousRelationship = errors.NewKind("relationship type %q is ambiguous between %s and %s; candidates: %v")

	// ErrAmbiguousLabel is raised by label/type inference (C4.2) when more
	// candidate labels survive intersection than max_inferred_types allows.
	ErrAmbiguousLabel = errors.NewKind("could not infer a single label for alias %q within %d candidates: %v")

	// ErrValidation covers forbidden clauses, illegal pattern shapes,
	// uniqueness violations and disconnected patterns (C4.6).
	ErrValidation = errors.NewKind("validation error: %s")

	// ErrUnsupportedFeature covers syntactically valid but non-translatable
	// shapes, surfaced at render time (C7/C8).
	ErrUnsupportedFeature = errors.NewKind("unsupported feature: %s")

	// ErrUnknownFunction is raised when a function call matches neither the
	// registry nor a pass-through namespace (ch., chagg.).
	ErrUnknownFunction = errors.NewKind("unknown function %q")

	// ErrInternal marks an invariant violated inside a pass; it should never
	// surface for syntactically and semantically valid input.
	ErrInternal = errors.NewKind("internal error: %s")
)

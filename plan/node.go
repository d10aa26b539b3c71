// Package plan implements the logical plan (C3) built from the Cypher AST,
// the tree every analyzer (C4) and optimizer (C5) pass transforms, per
// spec.md §3.3.
package plan

import (
	"fmt"

	"github.com/clickgraph/clickgraph/cgerrors"
)

// Node is a logical plan node. The plan is a closed set of types (spec.md §9
// "Dynamic dispatch on plan nodes: the logical plan is a closed set"); every
// pass exhaustively type-switches rather than relying on open polymorphism.
type Node interface {
	Children() []Node
	WithChildren(children ...Node) (Node, error)
	String() string
}

func childCountError(kind string, want, got int) error {
	return cgerrors.ErrInternal.New(fmt.Sprintf("%s.WithChildren: expected %d children, got %d", kind, want, got))
}

// TransformUp applies fn to every node in n's tree, children before parents
// (post-order), replacing each node with fn's result — the same shape as the
// teacher's plan.TransformUp (sql/plan/transform_test.go).
func TransformUp(n Node, fn func(Node) (Node, error)) (Node, error) {
	if n == nil {
		return nil, nil
	}
	children := n.Children()
	if len(children) > 0 {
		newChildren := make([]Node, len(children))
		for i, c := range children {
			nc, err := TransformUp(c, fn)
			if err != nil {
				return nil, err
			}
			newChildren[i] = nc
		}
		replaced, err := n.WithChildren(newChildren...)
		if err != nil {
			return nil, err
		}
		n = replaced
	}
	return fn(n)
}

// TransformDown applies fn to every node in n's tree, parents before
// children (pre-order); used by passes whose rewrite decision at a node must
// be visible to the traversal of its children (e.g. scope stacking during
// variable resolution, per spec.md §5 "variable resolution is pre-order with
// scope stacking").
func TransformDown(n Node, fn func(Node) (Node, error)) (Node, error) {
	if n == nil {
		return nil, nil
	}
	replaced, err := fn(n)
	if err != nil {
		return nil, err
	}
	children := replaced.Children()
	if len(children) == 0 {
		return replaced, nil
	}
	newChildren := make([]Node, len(children))
	for i, c := range children {
		nc, err := TransformDown(c, fn)
		if err != nil {
			return nil, err
		}
		newChildren[i] = nc
	}
	return replaced.WithChildren(newChildren...)
}

// Inspect walks n's tree pre-order, calling fn on every node without
// replacing anything; used by read-only passes (validation, alias
// collection) that don't need TransformDown's rewrite machinery.
func Inspect(n Node, fn func(Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children() {
		Inspect(c, fn)
	}
}

package planexpr

// Rewrite is the single generic expression-tree visitor referenced in
// spec.md §9: "a single generic visitor with a closure for the substitution
// rule... avoid duplicating traversal code across passes". Every pass that
// needs to touch expressions — filter tagging (C4.4), projection tagging
// (C4.5), CTE alias remapping (C7/C8), VLP alias rewriting (C8) — calls
// Rewrite with a closure that only knows its own substitution rule; Rewrite
// owns the traversal order (post-order: children are rewritten before their
// parent is handed to fn) and the exhaustive match over the closed Expr set.
func Rewrite(e Expr, fn func(Expr) (Expr, error)) (Expr, error) {
	if e == nil {
		return nil, nil
	}
	rewritten, err := rewriteChildren(e, fn)
	if err != nil {
		return nil, err
	}
	return fn(rewritten)
}

func rewriteChildren(e Expr, fn func(Expr) (Expr, error)) (Expr, error) {
	switch v := e.(type) {
	case IntLit, FloatLit, StringLit, BoolLit, NullLit, Parameter, Variable,
		PropertyRef, ColumnRef, EndpointRef, PathFunc, Unsupported:
		return e, nil

	case ListLit:
		items, err := rewriteSlice(v.Items, fn)
		if err != nil {
			return nil, err
		}
		return ListLit{Items: items}, nil

	case MapLit:
		values, err := rewriteSlice(v.Values, fn)
		if err != nil {
			return nil, err
		}
		return MapLit{Keys: v.Keys, Values: values}, nil

	case FuncCall:
		args, err := rewriteSlice(v.Args, fn)
		if err != nil {
			return nil, err
		}
		return FuncCall{Namespace: v.Namespace, Name: v.Name, Args: args, Distinct: v.Distinct, Aggregate: v.Aggregate}, nil

	case BinaryOp:
		left, err := Rewrite(v.Left, fn)
		if err != nil {
			return nil, err
		}
		right, err := Rewrite(v.Right, fn)
		if err != nil {
			return nil, err
		}
		return BinaryOp{Op: v.Op, Left: left, Right: right}, nil

	case UnaryOp:
		operand, err := Rewrite(v.Operand, fn)
		if err != nil {
			return nil, err
		}
		return UnaryOp{Op: v.Op, Operand: operand}, nil

	case CaseExpr:
		var test, els Expr
		var err error
		if v.Test != nil {
			test, err = Rewrite(v.Test, fn)
			if err != nil {
				return nil, err
			}
		}
		if v.Else != nil {
			els, err = Rewrite(v.Else, fn)
			if err != nil {
				return nil, err
			}
		}
		whens := make([]WhenClause, len(v.Whens))
		for i, w := range v.Whens {
			cond, err := Rewrite(w.Cond, fn)
			if err != nil {
				return nil, err
			}
			result, err := Rewrite(w.Result, fn)
			if err != nil {
				return nil, err
			}
			whens[i] = WhenClause{Cond: cond, Result: result}
		}
		return CaseExpr{Test: test, Whens: whens, Else: els}, nil

	case Subscript:
		list, err := Rewrite(v.List, fn)
		if err != nil {
			return nil, err
		}
		index, err := Rewrite(v.Index, fn)
		if err != nil {
			return nil, err
		}
		return Subscript{List: list, Index: index}, nil

	case Slice:
		list, err := Rewrite(v.List, fn)
		if err != nil {
			return nil, err
		}
		var from, to Expr
		if v.From != nil {
			from, err = Rewrite(v.From, fn)
			if err != nil {
				return nil, err
			}
		}
		if v.To != nil {
			to, err = Rewrite(v.To, fn)
			if err != nil {
				return nil, err
			}
		}
		return Slice{List: list, From: from, To: to}, nil

	default:
		return e, nil
	}
}

func rewriteSlice(in []Expr, fn func(Expr) (Expr, error)) ([]Expr, error) {
	if in == nil {
		return nil, nil
	}
	out := make([]Expr, len(in))
	for i, e := range in {
		r, err := Rewrite(e, fn)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

// ContainsAggregate reports whether e contains an aggregate FuncCall anywhere
// in its tree, used by the render-plan builder to decide whether a RETURN/WITH
// projection implies a GROUP BY over its non-aggregate items.
func ContainsAggregate(e Expr) bool {
	found := false
	_, _ = Rewrite(e, func(x Expr) (Expr, error) {
		if fc, ok := x.(FuncCall); ok && fc.Aggregate {
			found = true
		}
		return x, nil
	})
	return found
}

// Aliases collects every alias referenced anywhere in e, via PropertyRef,
// ColumnRef or bare Variable nodes — used by filter pushdown (C5.1) and by
// scope/validity checks (C4.1, C4.6) to find which aliases an expression
// touches without a second bespoke traversal.
func Aliases(e Expr) []string {
	seen := map[string]bool{}
	var out []string
	_, _ = Rewrite(e, func(x Expr) (Expr, error) {
		var alias string
		switch v := x.(type) {
		case PropertyRef:
			alias = v.Alias
		case ColumnRef:
			alias = v.Alias
		case Variable:
			alias = v.Name
		case PathFunc:
			alias = v.Alias
		}
		if alias != "" && !seen[alias] {
			seen[alias] = true
			out = append(out, alias)
		}
		return x, nil
	})
	return out
}

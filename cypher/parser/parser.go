// Package parser implements the deterministic recursive-descent Cypher
// parser (C2): text in, ast.Query or cgerrors.ErrParse out. The shape follows
// the teacher's own hand-written sql/rdparser package — a small struct
// wrapping a token stream, one method per grammar production — rather than a
// generated-grammar parser, since spec.md §3.2 requires a deterministic,
// boundable recursive descent.
package parser

import (
	"strconv"
	"strings"

	"github.com/clickgraph/clickgraph/cgerrors"
	"github.com/clickgraph/clickgraph/cypher/ast"
	"github.com/clickgraph/clickgraph/cypher/lexer"
)

// maxRelChainDepth bounds relationship-chain recursion per spec.md §3.2;
// inputs deeper than this are rejected as TooLarge rather than overflowing
// the Go call stack.
const maxRelChainDepth = 1000

type parser struct {
	toks  []lexer.Token
	pos   int
	depth int
}

// Parse tokenizes and parses src, returning a cgerrors.ErrParse-kind error on
// any syntactic failure, including leftover unconsumed input.
func Parse(src string) (*ast.Query, error) {
	p := &parser{toks: lexer.New(src).Tokens()}
	q, err := p.parseQuery()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind != lexer.EOF {
		return nil, p.errorf("end of input", p.cur().Text)
	}
	return q, nil
}

func (p *parser) cur() lexer.Token { return p.toks[p.pos] }

func (p *parser) advance() lexer.Token {
	t := p.toks[p.pos]
	if t.Kind != lexer.EOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(expected, actual string) error {
	return cgerrors.ErrParse.New(p.cur().Offset, expected, actual)
}

func (p *parser) isKeyword(word string) bool {
	t := p.cur()
	return t.Kind == lexer.Keyword && strings.EqualFold(t.Text, word)
}

func (p *parser) isSymbol(sym string) bool {
	t := p.cur()
	return t.Kind == lexer.Symbol && t.Text == sym
}

func (p *parser) eatKeyword(word string) bool {
	if p.isKeyword(word) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expectKeyword(word string) error {
	if !p.eatKeyword(word) {
		return p.errorf(word, p.cur().Text)
	}
	return nil
}

func (p *parser) eatSymbol(sym string) bool {
	if p.isSymbol(sym) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expectSymbol(sym string) error {
	if !p.eatSymbol(sym) {
		return p.errorf(sym, p.cur().Text)
	}
	return nil
}

// identText accepts any non-keyword identifier, and also a handful of
// keywords that are commonly used as identifiers in practice (relationship
// types, labels, function names outside the reserved set above), but never a
// binary-operator keyword, per spec.md §3.2.
func (p *parser) identText() (string, bool) {
	t := p.cur()
	if t.Kind == lexer.Ident {
		p.advance()
		return t.Text, true
	}
	if t.Kind == lexer.Keyword && !lexer.IsBinaryOperatorKeyword(t.Text) {
		p.advance()
		return t.Text, true
	}
	return "", false
}

// --- Query -------------------------------------------------------------

func (p *parser) parseQuery() (*ast.Query, error) {
	q := &ast.Query{}
	first, err := p.parseSingleQuery()
	if err != nil {
		return nil, err
	}
	q.Parts = append(q.Parts, first)

	for p.isKeyword("UNION") {
		p.advance()
		all := p.eatKeyword("ALL")
		q.UnionAll = append(q.UnionAll, all)
		next, err := p.parseSingleQuery()
		if err != nil {
			return nil, err
		}
		q.Parts = append(q.Parts, next)
	}
	return q, nil
}

func (p *parser) parseSingleQuery() (*ast.SingleQuery, error) {
	sq := &ast.SingleQuery{}

	if p.eatKeyword("USE") {
		name, ok := p.identText()
		if !ok {
			return nil, p.errorf("schema name", p.cur().Text)
		}
		sq.Use = name
	}

	for {
		switch {
		case p.isKeyword("OPTIONAL"):
			clause, err := p.parseOptionalMatch()
			if err != nil {
				return nil, err
			}
			sq.Reads = append(sq.Reads, clause)
		case p.isKeyword("MATCH"):
			clause, err := p.parseMatch()
			if err != nil {
				return nil, err
			}
			sq.Reads = append(sq.Reads, clause)
		case p.isKeyword("WITH"):
			clause, err := p.parseWith()
			if err != nil {
				return nil, err
			}
			sq.Reads = append(sq.Reads, clause)
		case p.isKeyword("UNWIND"):
			clause, err := p.parseUnwind()
			if err != nil {
				return nil, err
			}
			sq.Reads = append(sq.Reads, clause)
		case p.isKeyword("CALL"):
			clause, err := p.parseCall()
			if err != nil {
				return nil, err
			}
			sq.Reads = append(sq.Reads, clause)
		default:
			goto done
		}
	}
done:

	if !p.isKeyword("RETURN") {
		return nil, p.errorf("RETURN", p.cur().Text)
	}
	ret, err := p.parseReturn()
	if err != nil {
		return nil, err
	}
	sq.Return = ret
	return sq, nil
}

// --- MATCH / OPTIONAL MATCH ---------------------------------------------

func (p *parser) parseMatch() (*ast.Match, error) {
	if err := p.expectKeyword("MATCH"); err != nil {
		return nil, err
	}
	patterns, err := p.parsePatternList()
	if err != nil {
		return nil, err
	}
	m := &ast.Match{Patterns: patterns}
	if p.eatKeyword("WHERE") {
		where, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		m.Where = where
	}
	return m, nil
}

// parseOptionalMatch handles "OPTIONAL MATCH" as a single multi-word keyword:
// OPTIONAL must be consumed here, never treated as a standalone clause, and
// the grammar must still allow a WHERE between a preceding MATCH and the next
// OPTIONAL MATCH (that WHERE attaches to the MATCH, which parseMatch already
// handles by returning control to the clause loop after its own WHERE).
func (p *parser) parseOptionalMatch() (*ast.OptionalMatch, error) {
	if err := p.expectKeyword("OPTIONAL"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("MATCH"); err != nil {
		return nil, err
	}
	patterns, err := p.parsePatternList()
	if err != nil {
		return nil, err
	}
	m := &ast.OptionalMatch{Patterns: patterns}
	if p.eatKeyword("WHERE") {
		where, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		m.Where = where
	}
	return m, nil
}

func (p *parser) parsePatternList() ([]ast.PathPattern, error) {
	var out []ast.PathPattern
	for {
		pat, err := p.parsePathPattern()
		if err != nil {
			return nil, err
		}
		out = append(out, pat)
		if !p.eatSymbol(",") {
			break
		}
	}
	return out, nil
}

func (p *parser) parsePathPattern() (ast.PathPattern, error) {
	var pp ast.PathPattern

	if p.cur().Kind == lexer.Ident && p.peekIsAssignAfterIdent() {
		name, _ := p.identText()
		pp.PathVariable = name
		p.advance() // '='
	}

	if p.isKeyword("EXISTS") {
		// handled in expression context only; EXISTS as a pattern keyword is
		// not valid here.
	}

	if ident, ok := p.tryShortestPathWrapper(); ok {
		pp.ShortestPath = ident
	}

	el, err := p.parsePatternElement(0)
	if err != nil {
		return pp, err
	}
	pp.Element = el

	if pp.ShortestPath != ast.NoShortestPath {
		if !p.eatSymbol(")") {
			return pp, p.errorf(")", p.cur().Text)
		}
	}
	return pp, nil
}

func (p *parser) peekIsAssignAfterIdent() bool {
	if p.pos+1 >= len(p.toks) {
		return false
	}
	next := p.toks[p.pos+1]
	return next.Kind == lexer.Symbol && next.Text == "="
}

func (p *parser) tryShortestPathWrapper() (ast.ShortestPathMode, bool) {
	if p.cur().Kind != lexer.Ident {
		return ast.NoShortestPath, false
	}
	name := p.cur().Text
	mode := ast.NoShortestPath
	switch name {
	case "shortestPath":
		mode = ast.ShortestPath
	case "allShortestPaths":
		mode = ast.AllShortestPaths
	default:
		return ast.NoShortestPath, false
	}
	if p.pos+1 >= len(p.toks) || !(p.toks[p.pos+1].Kind == lexer.Symbol && p.toks[p.pos+1].Text == "(") {
		return ast.NoShortestPath, false
	}
	p.advance() // name
	p.advance() // (
	return mode, true
}

// parsePatternElement parses a node (rel node)* chain, bounding recursion
// depth per spec.md §3.2.
func (p *parser) parsePatternElement(depth int) (ast.PatternElement, error) {
	if depth > maxRelChainDepth {
		return ast.PatternElement{}, cgerrors.ErrTooLarge.New(maxRelChainDepth)
	}
	var el ast.PatternElement

	n, err := p.parseNodePattern()
	if err != nil {
		return el, err
	}
	el.Nodes = append(el.Nodes, n)

	for p.isSymbol("-") || p.isSymbol("<-") {
		rel, err := p.parseRelPattern()
		if err != nil {
			return el, err
		}
		el.Rels = append(el.Rels, rel)

		n, err := p.parseNodePattern()
		if err != nil {
			return el, err
		}
		el.Nodes = append(el.Nodes, n)

		if len(el.Rels) > maxRelChainDepth {
			return el, cgerrors.ErrTooLarge.New(maxRelChainDepth)
		}
	}
	return el, nil
}

func (p *parser) parseNodePattern() (*ast.NodePattern, error) {
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	n := &ast.NodePattern{}
	if p.cur().Kind == lexer.Ident {
		n.Alias, _ = p.identText()
	}
	for p.eatSymbol(":") {
		label, ok := p.identText()
		if !ok {
			return nil, p.errorf("label", p.cur().Text)
		}
		n.Labels = append(n.Labels, label)
	}
	if p.isSymbol("{") {
		props, err := p.parseInlineProps()
		if err != nil {
			return nil, err
		}
		n.InlineProps = props
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	return n, nil
}

func (p *parser) parseInlineProps() (map[string]ast.Expr, error) {
	if err := p.expectSymbol("{"); err != nil {
		return nil, err
	}
	props := map[string]ast.Expr{}
	for !p.isSymbol("}") {
		key, ok := p.identText()
		if !ok {
			return nil, p.errorf("property name", p.cur().Text)
		}
		if err := p.expectSymbol(":"); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		props[key] = val
		if !p.eatSymbol(",") {
			break
		}
	}
	if err := p.expectSymbol("}"); err != nil {
		return nil, err
	}
	return props, nil
}

// parseRelPattern parses `-[alias:T1|T2*min..max {props}]->`, `<-...-` and
// `-...-` (undirected).
func (p *parser) parseRelPattern() (*ast.RelPattern, error) {
	rel := &ast.RelPattern{Direction: ast.Either}

	leftArrow := p.eatSymbol("<-")
	if !leftArrow {
		if err := p.expectSymbol("-"); err != nil {
			return nil, err
		}
	}

	if p.eatSymbol("[") {
		if p.cur().Kind == lexer.Ident {
			rel.Alias, _ = p.identText()
		}
		for p.eatSymbol(":") {
			t, ok := p.identText()
			if !ok {
				return nil, p.errorf("relationship type", p.cur().Text)
			}
			rel.Types = append(rel.Types, t)
			for p.eatSymbol("|") {
				t, ok := p.identText()
				if !ok {
					return nil, p.errorf("relationship type", p.cur().Text)
				}
				rel.Types = append(rel.Types, t)
			}
		}
		if p.isSymbol("*") {
			vl, err := p.parseVariableLength()
			if err != nil {
				return nil, err
			}
			rel.VariableLength = vl
		}
		if p.isSymbol("{") {
			props, err := p.parseInlineProps()
			if err != nil {
				return nil, err
			}
			rel.InlineProps = props
		}
		if err := p.expectSymbol("]"); err != nil {
			return nil, err
		}
	}

	switch {
	case p.eatSymbol("->"):
		if leftArrow {
			return nil, p.errorf("end of relationship", "->")
		}
		rel.Direction = ast.Out
	case leftArrow:
		if err := p.expectSymbol("-"); err != nil {
			return nil, err
		}
		rel.Direction = ast.In
	default:
		if err := p.expectSymbol("-"); err != nil {
			return nil, err
		}
		rel.Direction = ast.Either
	}
	return rel, nil
}

func (p *parser) parseVariableLength() (*ast.VariableLengthSpec, error) {
	if err := p.expectSymbol("*"); err != nil {
		return nil, err
	}
	vl := &ast.VariableLengthSpec{Min: 1}
	if p.cur().Kind == lexer.IntLit {
		n, _ := strconv.ParseUint(p.advance().Text, 10, 32)
		vl.Min = uint32(n)
		max := uint32(n)
		vl.Max = &max
	}
	if p.eatSymbol("..") {
		vl.Max = nil
		if p.cur().Kind == lexer.IntLit {
			n, _ := strconv.ParseUint(p.advance().Text, 10, 32)
			max := uint32(n)
			vl.Max = &max
		}
	}
	return vl, nil
}

// --- WITH / UNWIND / CALL / RETURN --------------------------------------

func (p *parser) parseWith() (*ast.With, error) {
	if err := p.expectKeyword("WITH"); err != nil {
		return nil, err
	}
	w := &ast.With{}
	w.Distinct = p.eatKeyword("DISTINCT")
	items, err := p.parseProjectionItems()
	if err != nil {
		return nil, err
	}
	w.Items = items
	if p.eatKeyword("WHERE") {
		where, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		w.Where = where
	}
	if err := p.parseOrderSkipLimit(&w.OrderBy, &w.Skip, &w.Limit); err != nil {
		return nil, err
	}
	return w, nil
}

func (p *parser) parseUnwind() (*ast.Unwind, error) {
	if err := p.expectKeyword("UNWIND"); err != nil {
		return nil, err
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("AS"); err != nil {
		return nil, err
	}
	name, ok := p.identText()
	if !ok {
		return nil, p.errorf("binding name", p.cur().Text)
	}
	return &ast.Unwind{Expr: e, Binding: name}, nil
}

func (p *parser) parseCall() (*ast.Call, error) {
	if err := p.expectKeyword("CALL"); err != nil {
		return nil, err
	}
	name, ok := p.identText()
	if !ok {
		return nil, p.errorf("procedure name", p.cur().Text)
	}
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	var args []ast.Expr
	for !p.isSymbol(")") {
		a, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if !p.eatSymbol(",") {
			break
		}
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	return &ast.Call{Name: name, Args: args}, nil
}

func (p *parser) parseReturn() (*ast.Return, error) {
	if err := p.expectKeyword("RETURN"); err != nil {
		return nil, err
	}
	r := &ast.Return{}
	r.Distinct = p.eatKeyword("DISTINCT")
	items, err := p.parseProjectionItems()
	if err != nil {
		return nil, err
	}
	r.Items = items
	if err := p.parseOrderSkipLimit(&r.OrderBy, &r.Skip, &r.Limit); err != nil {
		return nil, err
	}
	return r, nil
}

func (p *parser) parseProjectionItems() ([]ast.ProjectionItem, error) {
	var out []ast.ProjectionItem
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		item := ast.ProjectionItem{Expr: e}
		if p.eatKeyword("AS") {
			name, ok := p.identText()
			if !ok {
				return nil, p.errorf("alias", p.cur().Text)
			}
			item.Alias = name
		}
		out = append(out, item)
		if !p.eatSymbol(",") {
			break
		}
	}
	return out, nil
}

func (p *parser) parseOrderSkipLimit(orderBy *[]ast.OrderItem, skip, limit *ast.Expr) error {
	if p.eatKeyword("ORDER") {
		if err := p.expectKeyword("BY"); err != nil {
			return err
		}
		for {
			e, err := p.parseExpr()
			if err != nil {
				return err
			}
			asc := true
			if p.eatKeyword("DESC") || p.eatKeyword("DESCENDING") {
				asc = false
			} else {
				p.eatKeyword("ASC")
				p.eatKeyword("ASCENDING")
			}
			*orderBy = append(*orderBy, ast.OrderItem{Expr: e, Ascending: asc})
			if !p.eatSymbol(",") {
				break
			}
		}
	}
	if p.eatKeyword("SKIP") {
		e, err := p.parseExpr()
		if err != nil {
			return err
		}
		*skip = e
	}
	if p.eatKeyword("LIMIT") {
		e, err := p.parseExpr()
		if err != nil {
			return err
		}
		*limit = e
	}
	return nil
}

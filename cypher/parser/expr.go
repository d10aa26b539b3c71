package parser

import (
	"strconv"

	"github.com/clickgraph/clickgraph/cgerrors"
	"github.com/clickgraph/clickgraph/cypher/ast"
	"github.com/clickgraph/clickgraph/cypher/lexer"
)

// parseExpr is the entry point; Cypher's operator precedence (loosest to
// tightest) is OR > XOR > AND > NOT > comparison > additive > multiplicative
// > power > unary > postfix > primary, implemented as one method per level
// (precedence climbing), matching the shape of a hand-written descent parser
// rather than a Pratt table.
func (p *parser) parseExpr() (ast.Expr, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (ast.Expr, error) {
	left, err := p.parseXor()
	if err != nil {
		return nil, err
	}
	for p.eatKeyword("OR") {
		right, err := p.parseXor()
		if err != nil {
			return nil, err
		}
		left = ast.BinaryOp{Op: "OR", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseXor() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.eatKeyword("XOR") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = ast.BinaryOp{Op: "XOR", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.eatKeyword("AND") {
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = ast.BinaryOp{Op: "AND", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (ast.Expr, error) {
	if p.eatKeyword("NOT") {
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return ast.UnaryOp{Op: "NOT", Operand: operand}, nil
	}
	return p.parseComparison()
}

var comparisonSymbols = map[string]string{
	"=": "=", "<>": "<>", "!=": "<>", "<": "<", ">": ">", "<=": "<=", ">=": ">=", "=~": "=~",
}

func (p *parser) parseComparison() (ast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		if p.cur().Kind == lexer.Symbol {
			if op, ok := comparisonSymbols[p.cur().Text]; ok {
				p.advance()
				right, err := p.parseAdditive()
				if err != nil {
					return nil, err
				}
				left = ast.BinaryOp{Op: op, Left: left, Right: right}
				continue
			}
		}
		if p.isKeyword("STARTS") {
			p.advance()
			if err := p.expectKeyword("WITH"); err != nil {
				return nil, err
			}
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = ast.BinaryOp{Op: "STARTS WITH", Left: left, Right: right}
			continue
		}
		if p.isKeyword("ENDS") {
			p.advance()
			if err := p.expectKeyword("WITH"); err != nil {
				return nil, err
			}
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = ast.BinaryOp{Op: "ENDS WITH", Left: left, Right: right}
			continue
		}
		if p.isKeyword("CONTAINS") {
			p.advance()
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = ast.BinaryOp{Op: "CONTAINS", Left: left, Right: right}
			continue
		}
		if p.isKeyword("IN") {
			p.advance()
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = ast.BinaryOp{Op: "IN", Left: left, Right: right}
			continue
		}
		if p.isKeyword("IS") {
			p.advance()
			negate := p.eatKeyword("NOT")
			if err := p.expectKeyword("NULL"); err != nil {
				return nil, err
			}
			op := "IS NULL"
			if negate {
				op = "IS NOT NULL"
			}
			left = ast.UnaryOp{Op: op, Operand: left}
			continue
		}
		break
	}
	return left, nil
}

func (p *parser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.isSymbol("+") || p.isSymbol("-") {
		op := p.advance().Text
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = ast.BinaryOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	for p.isSymbol("*") || p.isSymbol("/") || p.isSymbol("%") {
		op := p.advance().Text
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		left = ast.BinaryOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parsePower() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if p.isSymbol("^") {
		p.advance()
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		return ast.BinaryOp{Op: "^", Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *parser) parseUnary() (ast.Expr, error) {
	if p.isSymbol("-") {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.UnaryOp{Op: "-", Operand: operand}, nil
	}
	if p.isSymbol("+") {
		p.advance()
		return p.parseUnary()
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (ast.Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.isSymbol("."):
			p.advance()
			prop, ok := p.identText()
			if !ok {
				return nil, p.errorf("property name", p.cur().Text)
			}
			e = ast.PropertyAccess{Base: e, Property: prop}
		case p.isSymbol("["):
			p.advance()
			if p.isSymbol("..") {
				p.advance()
				to, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				if err := p.expectSymbol("]"); err != nil {
					return nil, err
				}
				e = ast.ListSlice{List: e, To: to}
				continue
			}
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if p.eatSymbol("..") {
				var to ast.Expr
				if !p.isSymbol("]") {
					to, err = p.parseExpr()
					if err != nil {
						return nil, err
					}
				}
				if err := p.expectSymbol("]"); err != nil {
					return nil, err
				}
				e = ast.ListSlice{List: e, From: idx, To: to}
				continue
			}
			if err := p.expectSymbol("]"); err != nil {
				return nil, err
			}
			e = ast.ListSubscript{List: e, Index: idx}
		default:
			return e, nil
		}
	}
}

func (p *parser) parsePrimary() (ast.Expr, error) {
	t := p.cur()
	switch t.Kind {
	case lexer.IntLit:
		p.advance()
		v, err := strconv.ParseInt(t.Text, 10, 64)
		if err != nil {
			return nil, cgerrors.ErrParse.New(t.Offset, "integer literal", t.Text)
		}
		return ast.IntLiteral{Value: v}, nil
	case lexer.FloatLit:
		p.advance()
		v, err := strconv.ParseFloat(t.Text, 64)
		if err != nil {
			return nil, cgerrors.ErrParse.New(t.Offset, "float literal", t.Text)
		}
		return ast.FloatLiteral{Value: v}, nil
	case lexer.StringLit:
		p.advance()
		return ast.StringLiteral{Value: t.Text}, nil
	case lexer.Parameter:
		p.advance()
		return ast.Parameter{Name: t.Text}, nil
	}

	switch {
	case p.isKeyword("TRUE"):
		p.advance()
		return ast.BoolLiteral{Value: true}, nil
	case p.isKeyword("FALSE"):
		p.advance()
		return ast.BoolLiteral{Value: false}, nil
	case p.isKeyword("NULL"):
		p.advance()
		return ast.NullLiteral{}, nil
	case p.isKeyword("CASE"):
		return p.parseCase()
	case p.isKeyword("EXISTS"):
		return p.parseExistsSubquery()
	case p.isSymbol("("):
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		return e, nil
	case p.isSymbol("["):
		return p.parseListOrComprehension()
	case p.isSymbol("{"):
		return p.parseMapLiteral()
	}

	if t.Kind == lexer.Ident || (t.Kind == lexer.Keyword && !lexer.IsBinaryOperatorKeyword(t.Text)) {
		return p.parseIdentOrCall()
	}

	return nil, p.errorf("expression", t.Text)
}

func (p *parser) parseIdentOrCall() (ast.Expr, error) {
	name, _ := p.identText()

	// namespace.func(args) pass-through call (ch., chagg.), distinguished
	// from plain property access by the '(' immediately after the dotted
	// name.
	if p.isSymbol(".") && p.pos+2 < len(p.toks) &&
		(p.toks[p.pos+1].Kind == lexer.Ident || p.toks[p.pos+1].Kind == lexer.Keyword) &&
		p.toks[p.pos+2].Kind == lexer.Symbol && p.toks[p.pos+2].Text == "(" {
		p.advance() // .
		fn, _ := p.identText()
		args, distinct, err := p.parseArgList()
		if err != nil {
			return nil, err
		}
		return ast.FunctionCall{Namespace: name, Name: fn, Args: args, Distinct: distinct}, nil
	}

	if p.isSymbol("(") {
		args, distinct, err := p.parseArgList()
		if err != nil {
			return nil, err
		}
		return ast.FunctionCall{Name: name, Args: args, Distinct: distinct}, nil
	}

	return ast.Variable{Name: name}, nil
}

func (p *parser) parseArgList() ([]ast.Expr, bool, error) {
	if err := p.expectSymbol("("); err != nil {
		return nil, false, err
	}
	distinct := p.eatKeyword("DISTINCT")
	var args []ast.Expr
	if p.isSymbol("*") {
		p.advance()
		args = append(args, ast.Variable{Name: "*"})
	} else {
		for !p.isSymbol(")") {
			a, err := p.parseExpr()
			if err != nil {
				return nil, false, err
			}
			args = append(args, a)
			if !p.eatSymbol(",") {
				break
			}
		}
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, false, err
	}
	return args, distinct, nil
}

func (p *parser) parseCase() (ast.Expr, error) {
	p.advance() // CASE
	ce := ast.CaseExpr{}
	if !p.isKeyword("WHEN") {
		test, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ce.Test = test
	}
	for p.eatKeyword("WHEN") {
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("THEN"); err != nil {
			return nil, err
		}
		result, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ce.Whens = append(ce.Whens, ast.WhenClause{Cond: cond, Result: result})
	}
	if p.eatKeyword("ELSE") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ce.Else = e
	}
	if err := p.expectKeyword("END"); err != nil {
		return nil, err
	}
	return ce, nil
}

func (p *parser) parseExistsSubquery() (ast.Expr, error) {
	p.advance() // EXISTS
	if err := p.expectSymbol("{"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("MATCH"); err != nil {
		return nil, err
	}
	patterns, err := p.parsePatternList()
	if err != nil {
		return nil, err
	}
	es := ast.ExistsSubquery{Patterns: patterns}
	if p.eatKeyword("WHERE") {
		w, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		es.Where = w
	}
	if err := p.expectSymbol("}"); err != nil {
		return nil, err
	}
	return es, nil
}

// parseListOrComprehension disambiguates `[1, 2, 3]` from
// `[(p)-[:T]->() | p.x]` by peeking for '(' right after '['.
func (p *parser) parseListOrComprehension() (ast.Expr, error) {
	p.advance() // [
	if p.isSymbol("(") {
		el, err := p.parsePatternElement(0)
		if err != nil {
			return nil, err
		}
		pc := ast.PatternComprehension{Pattern: ast.PathPattern{Element: el}}
		if p.eatKeyword("WHERE") {
			w, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			pc.Where = w
		}
		if err := p.expectSymbol("|"); err != nil {
			return nil, err
		}
		proj, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		pc.Projection = proj
		if err := p.expectSymbol("]"); err != nil {
			return nil, err
		}
		return pc, nil
	}

	var items []ast.Expr
	for !p.isSymbol("]") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, e)
		if !p.eatSymbol(",") {
			break
		}
	}
	if err := p.expectSymbol("]"); err != nil {
		return nil, err
	}
	return ast.ListLiteral{Items: items}, nil
}

func (p *parser) parseMapLiteral() (ast.Expr, error) {
	props, err := p.parseInlineProps()
	if err != nil {
		return nil, err
	}
	ml := ast.MapLiteral{}
	for k, v := range props {
		ml.Keys = append(ml.Keys, k)
		ml.Values = append(ml.Values, v)
	}
	return ml, nil
}

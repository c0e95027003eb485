// Package parser turns a token stream into the circuit language's AST.
// Recursive-descent with a precedence-climbing sub-parser for binary
// expressions, following the shape of tokenmodel/dsl's token-driven
// dispatch combined with the circuit language's own grammar.
package parser

import (
	"math/big"

	"github.com/alk0x1/lof/ast"
	"github.com/alk0x1/lof/lexer"
)

// Parser consumes a pre-scanned token stream and produces a Program.
// Failures abort immediately: there is no error recovery.
type Parser struct {
	toks []lexer.Token
	pos  int
}

// Parse lexes and parses source text in one call.
func Parse(src string) (*ast.Program, error) {
	toks, err := lexer.Tokenize(src)
	if err != nil {
		return nil, err
	}
	p := New(toks)
	return p.ParseProgram()
}

// New creates a Parser over an already-tokenized stream.
func New(toks []lexer.Token) *Parser {
	return &Parser{toks: toks}
}

func (p *Parser) cur() lexer.Token  { return p.toks[p.pos] }
func (p *Parser) peek() lexer.Token {
	if p.pos+1 < len(p.toks) {
		return p.toks[p.pos+1]
	}
	return p.toks[len(p.toks)-1]
}

func (p *Parser) advance() lexer.Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) at(tt lexer.TokenType) bool { return p.cur().Type == tt }

func (p *Parser) expect(tt lexer.TokenType) (lexer.Token, error) {
	if p.cur().Type == lexer.EOF && tt != lexer.EOF {
		return lexer.Token{}, &UnexpectedEOFError{Pos: p.cur().Pos}
	}
	if !p.at(tt) {
		return lexer.Token{}, &UnexpectedTokenError{Tok: p.cur()}
	}
	return p.advance(), nil
}

// ParseProgram parses a sequence of top-level declarations until EOF.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	for !p.at(lexer.EOF) {
		decl, err := p.parseDecl()
		if err != nil {
			return nil, err
		}
		prog.Decls = append(prog.Decls, *decl)
	}
	return prog, nil
}

func (p *Parser) parseDecl() (*ast.Expr, error) {
	switch p.cur().Type {
	case lexer.PROOF:
		return p.parseProofOrComponent(true)
	case lexer.COMPONENT:
		return p.parseProofOrComponent(false)
	case lexer.TYPE:
		return p.parseTypeAlias()
	case lexer.ENUM:
		return p.parseEnumDef()
	default:
		return nil, &UnexpectedTokenError{Tok: p.cur()}
	}
}

func (p *Parser) parseProofOrComponent(isProof bool) (*ast.Expr, error) {
	pos := p.cur().Pos
	p.advance() // 'proof' | 'component'
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	generics, err := p.parseGenericsOpt()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LBRACE); err != nil {
		return nil, err
	}
	var signals []ast.Signal
	for p.at(lexer.INPUT) || p.at(lexer.WITNESS) || p.at(lexer.OUTPUT) {
		sig, err := p.parseSignal()
		if err != nil {
			return nil, err
		}
		signals = append(signals, *sig)
	}
	body, err := p.parseBlockBody()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RBRACE); err != nil {
		return nil, err
	}
	kind := ast.EProof
	if !isProof {
		kind = ast.EComponent
	}
	return &ast.Expr{
		Kind:     kind,
		Pos:      ast.Pos{Line: pos.Line, Col: pos.Col},
		DeclName: name.Literal,
		Generics: generics,
		Signals:  signals,
		Body:     body,
	}, nil
}

func (p *Parser) parseGenericsOpt() ([]ast.GenericParam, error) {
	if !p.at(lexer.LT) {
		return nil, nil
	}
	p.advance()
	var gens []ast.GenericParam
	for {
		name, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		g := ast.GenericParam{Name: name.Literal}
		if p.at(lexer.COLON) {
			p.advance()
			t, err := p.parseType()
			if err != nil {
				return nil, err
			}
			g.Bound = t
		}
		gens = append(gens, g)
		if p.at(lexer.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.GT); err != nil {
		return nil, err
	}
	return gens, nil
}

func (p *Parser) parseSignal() (*ast.Signal, error) {
	var vis ast.Visibility
	switch p.cur().Type {
	case lexer.INPUT:
		vis = ast.VisInput
	case lexer.WITNESS:
		vis = ast.VisWitness
	case lexer.OUTPUT:
		vis = ast.VisOutput
	default:
		return nil, &UnexpectedTokenError{Tok: p.cur()}
	}
	p.advance()
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.COLON); err != nil {
		return nil, err
	}
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SEMI); err != nil {
		return nil, err
	}
	return &ast.Signal{Name: name.Literal, Visibility: vis, Type: typ}, nil
}

// parseType parses the type grammar of §4.2: Field<min..max>, Bool, Nat,
// Bits<expr>, Array<type, size>, (t1, t2, ...) tuples, refined { base,
// predicate }, and bare identifiers (generic or alias).
func (p *Parser) parseType() (*ast.Type, error) {
	switch p.cur().Type {
	case lexer.FIELD:
		p.advance()
		t := &ast.Type{Kind: ast.TField, Constraint: ast.Unconstrained}
		if p.at(lexer.LT) {
			p.advance()
			min, err := p.parseIntLiteral()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.DOTDOT); err != nil {
				return nil, err
			}
			max, err := p.parseIntLiteral()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.GT); err != nil {
				return nil, err
			}
			t.Refinement = &ast.Refinement{Kind: ast.RefineRange, Min: min, Max: max}
		}
		return t, nil
	case lexer.BOOL:
		p.advance()
		return &ast.Type{Kind: ast.TBool, Constraint: ast.Unconstrained}, nil
	case lexer.NAT:
		p.advance()
		return &ast.Type{Kind: ast.TNat}, nil
	case lexer.BITS:
		p.advance()
		if _, err := p.expect(lexer.LT); err != nil {
			return nil, err
		}
		widthExpr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.GT); err != nil {
			return nil, err
		}
		return &ast.Type{Kind: ast.TBits, BitsWidth: *widthExpr}, nil
	case lexer.ARRAY:
		p.advance()
		if _, err := p.expect(lexer.LT); err != nil {
			return nil, err
		}
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.COMMA); err != nil {
			return nil, err
		}
		sizeTok, err := p.expect(lexer.INT)
		if err != nil {
			return nil, err
		}
		size := 0
		for _, c := range sizeTok.Literal {
			size = size*10 + int(c-'0')
		}
		if _, err := p.expect(lexer.GT); err != nil {
			return nil, err
		}
		return &ast.Type{Kind: ast.TArray, Elem: elem, Size: size}, nil
	case lexer.REFINED:
		p.advance()
		if _, err := p.expect(lexer.LBRACE); err != nil {
			return nil, err
		}
		base, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.COMMA); err != nil {
			return nil, err
		}
		pred, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RBRACE); err != nil {
			return nil, err
		}
		return &ast.Type{Kind: ast.TRefined, Base: base, Predicate: *pred}, nil
	case lexer.LPAREN:
		p.advance()
		if p.at(lexer.RPAREN) {
			p.advance()
			return &ast.Type{Kind: ast.TUnit}, nil
		}
		var elems []*ast.Type
		for {
			t, err := p.parseType()
			if err != nil {
				return nil, err
			}
			elems = append(elems, t)
			if p.at(lexer.COMMA) {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		if len(elems) == 1 {
			return elems[0], nil
		}
		return &ast.Type{Kind: ast.TTuple, Elems: elems}, nil
	case lexer.IDENT:
		tok := p.advance()
		return &ast.Type{Kind: ast.TIdentifier, Name: tok.Literal}, nil
	default:
		return nil, &InvalidTypeError{Tok: p.cur()}
	}
}

func (p *Parser) parseIntLiteral() (int64, error) {
	neg := false
	if p.at(lexer.MINUS) {
		neg = true
		p.advance()
	}
	tok, err := p.expect(lexer.INT)
	if err != nil {
		return 0, err
	}
	var v int64
	for _, c := range tok.Literal {
		v = v*10 + int64(c-'0')
	}
	if neg {
		v = -v
	}
	return v, nil
}

func (p *Parser) parseTypeAlias() (*ast.Expr, error) {
	p.advance() // 'type'
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.EQ); err != nil {
		return nil, err
	}
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SEMI); err != nil {
		return nil, err
	}
	return &ast.Expr{Kind: ast.ETypeAlias, AliasName: name.Literal, AliasType: t}, nil
}

func (p *Parser) parseEnumDef() (*ast.Expr, error) {
	p.advance() // 'enum'
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LBRACE); err != nil {
		return nil, err
	}
	var variants []ast.EnumVariant
	for !p.at(lexer.RBRACE) {
		vname, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		v := ast.EnumVariant{Name: vname.Literal}
		if p.at(lexer.LPAREN) {
			p.advance()
			for !p.at(lexer.RPAREN) {
				ft, err := p.parseType()
				if err != nil {
					return nil, err
				}
				v.Fields = append(v.Fields, ft)
				if p.at(lexer.COMMA) {
					p.advance()
					continue
				}
				break
			}
			if _, err := p.expect(lexer.RPAREN); err != nil {
				return nil, err
			}
		}
		variants = append(variants, v)
		if p.at(lexer.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RBRACE); err != nil {
		return nil, err
	}
	return &ast.Expr{Kind: ast.EEnumDef, EnumName: name.Literal, EnumVariants: variants}, nil
}

// parseBlockBody parses statements up to (but not consuming) the closing
// brace of the enclosing block, returning an EBlock expression.
func (p *Parser) parseBlockBody() (*ast.Expr, error) {
	var stmts []ast.Expr
	var trailing *ast.Expr
	for !p.at(lexer.RBRACE) && !p.at(lexer.EOF) {
		e, consumedSemi, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if !consumedSemi && (p.at(lexer.RBRACE) || p.at(lexer.EOF)) {
			trailing = e
			break
		}
		stmts = append(stmts, *e)
	}
	return &ast.Expr{Kind: ast.EBlock, Statements: stmts, Trailing: trailing}, nil
}

// parseStatement parses one statement-or-trailing-expression inside a
// block. Returns true for a statement (a `let` or `assert`, whose ';' is
// optional before the closing brace, or an expression terminated by
// ';'); false marks an unterminated expression, a candidate trailing
// expression.
func (p *Parser) parseStatement() (*ast.Expr, bool, error) {
	switch p.cur().Type {
	case lexer.LET:
		e, err := p.parseLetStatement()
		return e, true, err
	case lexer.ASSERT:
		pos := p.cur().Pos
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, false, err
		}
		if !p.at(lexer.RBRACE) {
			if _, err := p.expect(lexer.SEMI); err != nil {
				return nil, false, err
			}
		}
		return &ast.Expr{Kind: ast.EAssert, Pos: goPos(pos), Cond: e}, true, nil
	default:
		e, err := p.parseExpr()
		if err != nil {
			return nil, false, err
		}
		if p.at(lexer.SEMI) {
			p.advance()
			return e, true, nil
		}
		return e, false, nil
	}
}

func goPos(p lexer.Position) ast.Pos { return ast.Pos{Line: p.Line, Col: p.Col} }

// parseLetStatement parses `let pattern = expr;` as a statement. The
// `let pattern = expr in body` expression form is parsed inside
// parsePrimary when `let` appears in expression position.
func (p *Parser) parseLetStatement() (*ast.Expr, error) {
	pos := p.cur().Pos
	p.advance() // 'let'
	pat, err := p.parsePattern()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.EQ); err != nil {
		return nil, err
	}
	val, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.at(lexer.IN) {
		p.advance()
		body, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if !p.at(lexer.RBRACE) {
			if _, err := p.expect(lexer.SEMI); err != nil {
				return nil, err
			}
		}
		return &ast.Expr{Kind: ast.ELet, Pos: goPos(pos), LetPattern: pat, LetValue: val, LetBody: body}, nil
	}
	if _, err := p.expect(lexer.SEMI); err != nil {
		return nil, err
	}
	// statement-form let: LetBody stays nil; the binding stays in scope
	// for the statements that follow it in the enclosing block.
	return &ast.Expr{Kind: ast.ELet, Pos: goPos(pos), LetPattern: pat, LetValue: val, LetBody: nil}, nil
}

func (p *Parser) parsePattern() (ast.Pattern, error) {
	switch p.cur().Type {
	case lexer.UNDERSCORE:
		p.advance()
		return ast.Pattern{Kind: ast.PWildcard}, nil
	case lexer.INT:
		tok := p.advance()
		v := new(big.Int)
		v.SetString(tok.Literal, 10)
		return ast.Pattern{Kind: ast.PLiteral, Literal: v}, nil
	case lexer.LPAREN:
		p.advance()
		var elems []ast.Pattern
		for !p.at(lexer.RPAREN) {
			sub, err := p.parsePattern()
			if err != nil {
				return ast.Pattern{}, err
			}
			elems = append(elems, sub)
			if p.at(lexer.COMMA) {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return ast.Pattern{}, err
		}
		return ast.Pattern{Kind: ast.PTuple, Elements: elems}, nil
	case lexer.IDENT:
		tok := p.advance()
		if p.at(lexer.LPAREN) {
			p.advance()
			var args []ast.Pattern
			for !p.at(lexer.RPAREN) {
				sub, err := p.parsePattern()
				if err != nil {
					return ast.Pattern{}, err
				}
				args = append(args, sub)
				if p.at(lexer.COMMA) {
					p.advance()
					continue
				}
				break
			}
			if _, err := p.expect(lexer.RPAREN); err != nil {
				return ast.Pattern{}, err
			}
			return ast.Pattern{Kind: ast.PConstructor, Name: tok.Literal, Elements: args}, nil
		}
		return ast.Pattern{Kind: ast.PVariable, Name: tok.Literal}, nil
	default:
		return ast.Pattern{}, &UnexpectedTokenError{Tok: p.cur()}
	}
}

// parseExpr parses a full expression at the lowest precedence level
// (triple-equals), per §4.2's chain:
// === (right-assoc) < || < && < comparison < + - < * / < unary ! - < primary
func (p *Parser) parseExpr() (*ast.Expr, error) {
	return p.parseAssertLevel()
}

func (p *Parser) parseAssertLevel() (*ast.Expr, error) {
	left, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.at(lexer.EQEQEQ) {
		pos := p.advance().Pos
		right, err := p.parseAssertLevel() // right-associative
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.EBinary, Pos: goPos(pos), Op: ast.OpAssert, Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *Parser) parseOr() (*ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.OR) {
		pos := p.advance().Pos
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.Expr{Kind: ast.EBinary, Pos: goPos(pos), Op: ast.OpOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (*ast.Expr, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.AND) {
		pos := p.advance().Pos
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &ast.Expr{Kind: ast.EBinary, Pos: goPos(pos), Op: ast.OpAnd, Left: left, Right: right}
	}
	return left, nil
}

var comparisonOps = map[lexer.TokenType]ast.BinOp{
	lexer.EQEQ: ast.OpEq,
	lexer.NEQ:  ast.OpNeq,
	lexer.LT:   ast.OpLt,
	lexer.GT:   ast.OpGt,
	lexer.LE:   ast.OpLe,
	lexer.GE:   ast.OpGe,
}

func (p *Parser) parseComparison() (*ast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if op, ok := comparisonOps[p.cur().Type]; ok {
		pos := p.advance().Pos
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.EBinary, Pos: goPos(pos), Op: op, Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *Parser) parseAdditive() (*ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.PLUS) || p.at(lexer.MINUS) {
		op := ast.OpAdd
		if p.cur().Type == lexer.MINUS {
			op = ast.OpSub
		}
		pos := p.advance().Pos
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.Expr{Kind: ast.EBinary, Pos: goPos(pos), Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (*ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.STAR) || p.at(lexer.SLASH) {
		op := ast.OpMul
		if p.cur().Type == lexer.SLASH {
			op = ast.OpDiv
		}
		pos := p.advance().Pos
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.Expr{Kind: ast.EBinary, Pos: goPos(pos), Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (*ast.Expr, error) {
	if p.at(lexer.NOT) {
		pos := p.advance().Pos
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.EUnaryNot, Pos: goPos(pos), Left: operand}, nil
	}
	if p.at(lexer.MINUS) {
		pos := p.advance().Pos
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.EUnaryNeg, Pos: goPos(pos), Left: operand}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (*ast.Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.LBRACKET) {
		pos := p.advance().Pos
		idx, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RBRACKET); err != nil {
			return nil, err
		}
		e = &ast.Expr{Kind: ast.EArrayIndex, Pos: goPos(pos), Array: e, Index: idx}
	}
	return e, nil
}

func (p *Parser) parsePrimary() (*ast.Expr, error) {
	tok := p.cur()
	switch tok.Type {
	case lexer.INT:
		p.advance()
		v := new(big.Int)
		v.SetString(tok.Literal, 10)
		return &ast.Expr{Kind: ast.ENumber, Pos: goPos(tok.Pos), Value: v}, nil
	case lexer.TRUE:
		p.advance()
		return &ast.Expr{Kind: ast.ENumber, Pos: goPos(tok.Pos), Value: big.NewInt(1)}, nil
	case lexer.FALSE:
		p.advance()
		return &ast.Expr{Kind: ast.ENumber, Pos: goPos(tok.Pos), Value: big.NewInt(0)}, nil
	case lexer.IDENT:
		p.advance()
		if p.at(lexer.LPAREN) {
			p.advance()
			var args []ast.Expr
			for !p.at(lexer.RPAREN) {
				arg, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, *arg)
				if p.at(lexer.COMMA) {
					p.advance()
					continue
				}
				break
			}
			if _, err := p.expect(lexer.RPAREN); err != nil {
				return nil, err
			}
			return &ast.Expr{Kind: ast.ECall, Pos: goPos(tok.Pos), Callee: tok.Literal, Args: args}, nil
		}
		return &ast.Expr{Kind: ast.EVariable, Pos: goPos(tok.Pos), Name: tok.Literal}, nil
	case lexer.LPAREN:
		p.advance()
		if p.at(lexer.RPAREN) {
			p.advance()
			return &ast.Expr{Kind: ast.ETuple, Pos: goPos(tok.Pos)}, nil
		}
		first, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.at(lexer.COMMA) {
			elems := []ast.Expr{*first}
			for p.at(lexer.COMMA) {
				p.advance()
				next, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				elems = append(elems, *next)
			}
			if _, err := p.expect(lexer.RPAREN); err != nil {
				return nil, err
			}
			return &ast.Expr{Kind: ast.ETuple, Pos: goPos(tok.Pos), Elements: elems}, nil
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		return first, nil
	case lexer.LBRACKET:
		p.advance()
		var elems []ast.Expr
		for !p.at(lexer.RBRACKET) {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			elems = append(elems, *e)
			if p.at(lexer.COMMA) {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expect(lexer.RBRACKET); err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.EArrayLiteral, Pos: goPos(tok.Pos), Elements: elems}, nil
	case lexer.LBRACE:
		p.advance()
		block, err := p.parseBlockBody()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RBRACE); err != nil {
			return nil, err
		}
		block.Pos = goPos(tok.Pos)
		return block, nil
	case lexer.MATCH:
		return p.parseMatch()
	case lexer.LET:
		return p.parseLetExpr()
	case lexer.ASSERT:
		p.advance()
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.EAssert, Pos: goPos(tok.Pos), Cond: cond}, nil
	default:
		return nil, &InvalidExpressionError{Tok: tok}
	}
}

func (p *Parser) parseLetExpr() (*ast.Expr, error) {
	pos := p.cur().Pos
	p.advance() // 'let'
	pat, err := p.parsePattern()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.EQ); err != nil {
		return nil, err
	}
	val, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.IN); err != nil {
		return nil, err
	}
	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.Expr{Kind: ast.ELet, Pos: goPos(pos), LetPattern: pat, LetValue: val, LetBody: body}, nil
}

func (p *Parser) parseMatch() (*ast.Expr, error) {
	pos := p.cur().Pos
	p.advance() // 'match'
	scrutinee, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LBRACE); err != nil {
		return nil, err
	}
	var arms []ast.MatchArm
	for !p.at(lexer.RBRACE) {
		pat, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.ARROW); err != nil {
			return nil, err
		}
		body, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		arms = append(arms, ast.MatchArm{Pattern: pat, Body: *body})
		if p.at(lexer.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RBRACE); err != nil {
		return nil, err
	}
	return &ast.Expr{Kind: ast.EMatch, Pos: goPos(pos), Scrutinee: scrutinee, Arms: arms}, nil
}

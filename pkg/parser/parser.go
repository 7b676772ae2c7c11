package parser

import (
	"strconv"
	"strings"

	"github.com/xplshn/gct/pkg/ast"
	"github.com/xplshn/gct/pkg/config"
	"github.com/xplshn/gct/pkg/lexer"
	"github.com/xplshn/gct/pkg/preprocess"
	"github.com/xplshn/gct/pkg/token"
	"github.com/xplshn/gct/pkg/util"
)

// Parser holds the state for the parsing process
type Parser struct {
	tokens   []token.Token
	pos      int
	current  token.Token
	previous token.Token
	cfg      *config.Config
}

// NewParser creates and initializes a new Parser from a token stream
func NewParser(tokens []token.Token, cfg *config.Config) *Parser {
	p := &Parser{tokens: tokens, cfg: cfg}
	if len(tokens) > 0 {
		p.current = p.tokens[0]
	}
	return p
}

// Parse consumes the token stream and returns the translation unit as a
// synthetic top-level block.
func (p *Parser) Parse() (*ast.Node, error) {
	var decls []*ast.Node
	tok := p.current
	for !p.check(token.EOF) {
		if p.match(token.Semi) {
			continue
		}
		decl, err := p.parseTopLevel()
		if err != nil {
			return nil, err
		}
		decls = append(decls, decl)
	}
	return ast.NewBlock(tok, decls, true), nil
}

// Parser helpers
func (p *Parser) advance() {
	if p.pos < len(p.tokens) {
		p.previous = p.current
		p.pos++
		if p.pos < len(p.tokens) {
			p.current = p.tokens[p.pos]
		}
	}
}

func (p *Parser) peek() token.Token {
	if p.pos+1 < len(p.tokens) {
		return p.tokens[p.pos+1]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *Parser) check(tokType token.Type) bool {
	return p.current.Type == tokType
}

func (p *Parser) match(tokType token.Type) bool {
	if !p.check(tokType) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) expect(tokType token.Type, message string) error {
	if p.check(tokType) {
		p.advance()
		return nil
	}
	return util.NewParseError(p.current, "%s", message)
}

func isLValue(node *ast.Node) bool {
	if node == nil {
		return false
	}
	switch node.Type {
	case ast.Ident, ast.Subscript, ast.MemberAccess:
		return true
	case ast.UnaryOp:
		return node.Data.(ast.UnaryOpNode).Op == token.Star
	default:
		return false
	}
}

func isTypeStart(tok token.Token) bool {
	return tok.Type.IsTypeKeyword() || tok.Type == token.Struct ||
		tok.Type == token.Enum || tok.Type == token.Const
}

// Type Parsing

// parseTypeSpec parses a base type: primitives with their
// signedness/length prefixes, or a struct/enum tag reference. Pointer
// stars and array brackets belong to the declarator, not the base.
func (p *Parser) parseTypeSpec() (*ast.CType, error) {
	for p.match(token.Const) {
	}
	unsigned := p.match(token.Unsigned)
	if !unsigned {
		p.match(token.Signed)
	}
	tok := p.current

	var base *ast.CType
	switch {
	case p.match(token.Void):
		base = ast.TypeVoid
	case p.match(token.Char):
		base = ast.TypeChar
	case p.match(token.Bool):
		base = ast.TypeBool
	case p.match(token.Float):
		base = ast.TypeFloat
	case p.match(token.Double):
		base = ast.TypeDouble
	case p.match(token.Short):
		p.match(token.Int)
		base = ast.TypeShort
	case p.match(token.Long):
		p.match(token.Long)
		p.match(token.Int)
		base = ast.TypeLong
	case p.match(token.Int):
		base = ast.TypeInt
	case p.match(token.Struct):
		if err := p.expect(token.Ident, "expected struct tag after 'struct'"); err != nil {
			return nil, err
		}
		if p.check(token.LBrace) {
			return nil, util.NewParseError(p.current, "struct definitions are only allowed at file scope")
		}
		return &ast.CType{Kind: ast.TYPE_STRUCT, Name: p.previous.Value}, nil
	case p.match(token.Enum):
		if err := p.expect(token.Ident, "expected enum tag after 'enum'"); err != nil {
			return nil, err
		}
		if p.check(token.LBrace) {
			return nil, util.NewParseError(p.current, "enum definitions are only allowed at file scope")
		}
		return &ast.CType{Kind: ast.TYPE_ENUM, Name: p.previous.Value}, nil
	default:
		if unsigned {
			base = ast.TypeInt
		} else {
			return nil, util.NewParseError(tok, "expected a type name")
		}
	}
	for p.match(token.Const) {
	}

	if unsigned {
		if !base.IsInteger() {
			return nil, util.NewParseError(tok, "'unsigned' does not apply to %s", base)
		}
		return &ast.CType{Kind: ast.TYPE_PRIMITIVE, Name: base.Name, Unsigned: true}, nil
	}
	return base, nil
}

// parseDeclarator parses '*'* name '[dim]'* and applies it to base.
func (p *Parser) parseDeclarator(base *ast.CType) (*ast.CType, token.Token, error) {
	typ := base
	for p.match(token.Star) {
		typ = ast.PointerTo(typ)
		for p.match(token.Const) {
		}
	}
	if err := p.expect(token.Ident, "expected identifier in declaration"); err != nil {
		return nil, token.Token{}, err
	}
	nameTok := p.previous

	var dims []*ast.Node
	for p.match(token.LBracket) {
		if p.check(token.RBracket) {
			dims = append(dims, nil)
		} else {
			dim, err := p.parseTernaryExpr()
			if err != nil {
				return nil, token.Token{}, err
			}
			dims = append(dims, dim)
		}
		if err := p.expect(token.RBracket, "expected ']' after array dimension"); err != nil {
			return nil, token.Token{}, err
		}
	}
	if len(dims) > 0 {
		typ = ast.ArrayOf(typ, dims)
	}
	return typ, nameTok, nil
}

// Expression Parsing
func getBinaryOpPrecedence(op token.Type) int {
	switch op {
	case token.Star, token.Slash, token.Rem:
		return 13
	case token.Plus, token.Minus:
		return 12
	case token.Shl, token.Shr:
		return 11
	case token.Lt, token.Gt, token.Lte, token.Gte:
		return 10
	case token.EqEq, token.Neq:
		return 9
	case token.And:
		return 8
	case token.Xor:
		return 7
	case token.Or:
		return 6
	case token.AndAnd:
		return 5
	case token.OrOr:
		return 4
	default:
		return -1
	}
}

func parseIntLiteral(text string) int64 {
	digits := strings.TrimRight(text, "uUlL")
	if v, err := strconv.ParseInt(digits, 0, 64); err == nil {
		return v
	}
	v, _ := strconv.ParseUint(digits, 0, 64)
	return int64(v)
}

func (p *Parser) parsePrimaryExpr() (*ast.Node, error) {
	tok := p.current
	switch {
	case p.match(token.Number):
		return ast.NewNumber(tok, parseIntLiteral(p.previous.Value), p.previous.Value), nil
	case p.match(token.FloatNumber):
		text := p.previous.Value
		val, _ := strconv.ParseFloat(strings.TrimRight(text, "fF"), 64)
		return ast.NewFloatNumber(tok, val, text), nil
	case p.match(token.CharLit):
		var val int64
		for _, r := range p.previous.Value {
			val = int64(r)
			break
		}
		return ast.NewCharLit(tok, val), nil
	case p.match(token.String):
		return ast.NewString(tok, p.previous.Value), nil
	case p.match(token.True):
		return ast.NewNumber(tok, 1, ""), nil
	case p.match(token.False):
		return ast.NewNumber(tok, 0, ""), nil
	case p.match(token.Null):
		return ast.NewNumber(tok, 0, ""), nil
	case p.match(token.Ident):
		return ast.NewIdent(tok, p.previous.Value), nil
	case p.match(token.LParen):
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.RParen, "expected ')' after expression"); err != nil {
			return nil, err
		}
		return expr, nil
	}
	return nil, util.NewParseError(tok, "expected an expression")
}

func (p *Parser) parsePostfixExpr() (*ast.Node, error) {
	expr, err := p.parsePrimaryExpr()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.current
		switch {
		case p.match(token.LParen):
			var args []*ast.Node
			if !p.check(token.RParen) {
				for {
					arg, err := p.parseAssignmentExpr()
					if err != nil {
						return nil, err
					}
					args = append(args, arg)
					if !p.match(token.Comma) {
						break
					}
				}
			}
			if err := p.expect(token.RParen, "expected ')' after function arguments"); err != nil {
				return nil, err
			}
			expr = ast.NewFuncCall(tok, expr, args)
		case p.match(token.LBracket):
			index, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expect(token.RBracket, "expected ']' after array index"); err != nil {
				return nil, err
			}
			expr = ast.NewSubscript(tok, expr, index)
		case p.match(token.Dot), p.match(token.Arrow):
			isArrow := p.previous.Type == token.Arrow
			if err := p.expect(token.Ident, "expected member name after '"+p.previous.Type.String()+"'"); err != nil {
				return nil, err
			}
			member := ast.NewIdent(p.previous, p.previous.Value)
			expr = ast.NewMemberAccess(tok, expr, member, isArrow)
		case p.match(token.Inc), p.match(token.Dec):
			if !isLValue(expr) {
				return nil, util.NewParseError(p.previous, "postfix '++' or '--' requires an l-value")
			}
			expr = ast.NewPostfixOp(p.previous, p.previous.Type, expr)
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parseUnaryExpr() (*ast.Node, error) {
	tok := p.current

	// A parenthesized type name is a cast, not a grouped expression.
	if p.check(token.LParen) && isTypeStart(p.peek()) {
		p.advance()
		targetType, err := p.parseCastType()
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.RParen, "expected ')' after type in cast"); err != nil {
			return nil, err
		}
		operand, err := p.parseUnaryExpr()
		if err != nil {
			return nil, err
		}
		return ast.NewTypeCast(tok, operand, targetType), nil
	}

	if p.match(token.Sizeof) {
		return p.parseSizeof(tok)
	}

	if p.match(token.Not) || p.match(token.Complement) || p.match(token.Minus) ||
		p.match(token.Plus) || p.match(token.Inc) || p.match(token.Dec) ||
		p.match(token.Star) || p.match(token.And) {
		op := p.previous.Type
		opToken := p.previous
		operand, err := p.parseUnaryExpr()
		if err != nil {
			return nil, err
		}
		if (op == token.Inc || op == token.Dec) && !isLValue(operand) {
			return nil, util.NewParseError(opToken, "prefix '++' or '--' requires an l-value")
		}
		if op == token.And && !isLValue(operand) {
			return nil, util.NewParseError(opToken, "address-of operator '&' requires an l-value")
		}
		return ast.NewUnaryOp(tok, op, operand), nil
	}
	return p.parsePostfixExpr()
}

func (p *Parser) parseCastType() (*ast.CType, error) {
	typ, err := p.parseTypeSpec()
	if err != nil {
		return nil, err
	}
	for p.match(token.Star) {
		typ = ast.PointerTo(typ)
	}
	return typ, nil
}

func (p *Parser) parseSizeof(tok token.Token) (*ast.Node, error) {
	if p.match(token.LParen) {
		if isTypeStart(p.current) {
			targetType, err := p.parseCastType()
			if err != nil {
				return nil, err
			}
			if err := p.expect(token.RParen, "expected ')' after type in sizeof"); err != nil {
				return nil, err
			}
			return ast.NewSizeof(tok, nil, targetType), nil
		}
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.RParen, "expected ')' after sizeof operand"); err != nil {
			return nil, err
		}
		return ast.NewSizeof(tok, expr, nil), nil
	}
	operand, err := p.parseUnaryExpr()
	if err != nil {
		return nil, err
	}
	return ast.NewSizeof(tok, operand, nil), nil
}

func (p *Parser) parseBinaryExpr(minPrec int) (*ast.Node, error) {
	left, err := p.parseUnaryExpr()
	if err != nil {
		return nil, err
	}
	for {
		op := p.current.Type
		prec := getBinaryOpPrecedence(op)
		if prec < minPrec {
			return left, nil
		}
		opTok := p.current
		p.advance()
		right, err := p.parseBinaryExpr(prec + 1)
		if err != nil {
			return nil, err
		}
		left = ast.NewBinaryOp(opTok, op, left, right)
	}
}

func (p *Parser) parseTernaryExpr() (*ast.Node, error) {
	cond, err := p.parseBinaryExpr(0)
	if err != nil {
		return nil, err
	}
	if p.match(token.Question) {
		tok := p.previous
		thenExpr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.Colon, "expected ':' for ternary operator"); err != nil {
			return nil, err
		}
		elseExpr, err := p.parseAssignmentExpr()
		if err != nil {
			return nil, err
		}
		return ast.NewTernary(tok, cond, thenExpr, elseExpr), nil
	}
	return cond, nil
}

func (p *Parser) parseAssignmentExpr() (*ast.Node, error) {
	left, err := p.parseTernaryExpr()
	if err != nil {
		return nil, err
	}
	if p.current.Type.IsAssignOp() {
		if !isLValue(left) {
			return nil, util.NewParseError(p.current, "invalid target for assignment")
		}
		op := p.current.Type
		tok := p.current
		p.advance()
		right, err := p.parseAssignmentExpr()
		if err != nil {
			return nil, err
		}
		return ast.NewAssign(tok, op, left, right), nil
	}
	return left, nil
}

func (p *Parser) parseExpr() (*ast.Node, error) {
	return p.parseAssignmentExpr()
}

// parseCommaExpr parses the comma-joined expression lists a 'for'
// clause allows.
func (p *Parser) parseCommaExpr() (*ast.Node, error) {
	left, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	for p.check(token.Comma) {
		opTok := p.current
		p.advance()
		right, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinaryOp(opTok, token.Comma, left, right)
	}
	return left, nil
}

// Statement Parsing
func (p *Parser) parseBlockStmt() (*ast.Node, error) {
	tok := p.current
	if err := p.expect(token.LBrace, "expected '{' to start a block"); err != nil {
		return nil, err
	}
	var stmts []*ast.Node
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	if err := p.expect(token.RBrace, "expected '}' after block"); err != nil {
		return nil, err
	}
	return ast.NewBlock(tok, stmts, false), nil
}

func (p *Parser) parseStmt() (*ast.Node, error) {
	tok := p.current
	switch {
	case p.match(token.If):
		if err := p.expect(token.LParen, "expected '(' after 'if'"); err != nil {
			return nil, err
		}
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.RParen, "expected ')' after if condition"); err != nil {
			return nil, err
		}
		thenBody, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		var elseBody *ast.Node
		if p.match(token.Else) {
			if elseBody, err = p.parseStmt(); err != nil {
				return nil, err
			}
		}
		return ast.NewIf(tok, cond, thenBody, elseBody), nil

	case p.match(token.While):
		if err := p.expect(token.LParen, "expected '(' after 'while'"); err != nil {
			return nil, err
		}
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.RParen, "expected ')' after while condition"); err != nil {
			return nil, err
		}
		body, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		return ast.NewWhile(tok, cond, body), nil

	case p.match(token.Do):
		body, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.While, "expected 'while' after do body"); err != nil {
			return nil, err
		}
		if err := p.expect(token.LParen, "expected '(' after 'while'"); err != nil {
			return nil, err
		}
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.RParen, "expected ')' after do-while condition"); err != nil {
			return nil, err
		}
		if err := p.expect(token.Semi, "expected ';' after do-while statement"); err != nil {
			return nil, err
		}
		return ast.NewDoWhile(tok, body, cond), nil

	case p.match(token.For):
		return p.parseFor(tok)

	case p.match(token.Switch):
		return p.parseSwitch(tok)

	case p.check(token.LBrace):
		return p.parseBlockStmt()

	case p.match(token.Return):
		var expr *ast.Node
		var err error
		if !p.check(token.Semi) {
			if expr, err = p.parseExpr(); err != nil {
				return nil, err
			}
		}
		if err := p.expect(token.Semi, "expected ';' after return statement"); err != nil {
			return nil, err
		}
		return ast.NewReturn(tok, expr), nil

	case p.match(token.Break):
		if err := p.expect(token.Semi, "expected ';' after 'break'"); err != nil {
			return nil, err
		}
		return ast.NewBreak(tok), nil

	case p.match(token.Continue):
		if err := p.expect(token.Semi, "expected ';' after 'continue'"); err != nil {
			return nil, err
		}
		return ast.NewContinue(tok), nil

	case p.check(token.Case), p.check(token.Default):
		return nil, util.NewParseError(tok, "'%s' label outside of a switch statement", tok.Type)

	case p.match(token.Semi):
		return ast.NewBlock(tok, nil, true), nil

	case isTypeStart(p.current):
		return p.parseDeclStmt()
	}

	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.Semi, "expected ';' after expression statement"); err != nil {
		return nil, err
	}
	return expr, nil
}

// parseDeclStmt parses one declaration statement. Comma-joined
// declarators split into one VarDecl node each, wrapped in a
// MultiVarDecl when there is more than one.
func (p *Parser) parseDeclStmt() (*ast.Node, error) {
	declTok := p.current
	base, err := p.parseTypeSpec()
	if err != nil {
		return nil, err
	}

	var decls []*ast.Node
	for {
		decl, err := p.parseOneDeclarator(base)
		if err != nil {
			return nil, err
		}
		decls = append(decls, decl)
		if !p.match(token.Comma) {
			break
		}
	}
	if err := p.expect(token.Semi, "expected ';' after declaration"); err != nil {
		return nil, err
	}
	if len(decls) == 1 {
		return decls[0], nil
	}
	return ast.NewMultiVarDecl(declTok, decls), nil
}

func (p *Parser) parseOneDeclarator(base *ast.CType) (*ast.Node, error) {
	typ, nameTok, err := p.parseDeclarator(base)
	if err != nil {
		return nil, err
	}
	var initList []*ast.Node
	isList := false
	if p.match(token.Eq) {
		initList, isList, err = p.parseInitializer()
		if err != nil {
			return nil, err
		}
	}
	return ast.NewVarDecl(nameTok, nameTok.Value, typ, initList, isList), nil
}

// parseInitializer parses either a single expression or a braced list.
// Nested braces become InitList nodes inside the outer list.
func (p *Parser) parseInitializer() ([]*ast.Node, bool, error) {
	if p.match(token.LBrace) {
		listTok := p.previous
		var elems []*ast.Node
		if !p.check(token.RBrace) {
			for {
				elem, err := p.parseInitElement(listTok)
				if err != nil {
					return nil, false, err
				}
				elems = append(elems, elem)
				if !p.match(token.Comma) {
					break
				}
				if p.check(token.RBrace) {
					break
				}
			}
		}
		if err := p.expect(token.RBrace, "expected '}' after initializer list"); err != nil {
			return nil, false, err
		}
		return elems, true, nil
	}
	expr, err := p.parseAssignmentExpr()
	if err != nil {
		return nil, false, err
	}
	return []*ast.Node{expr}, false, nil
}

func (p *Parser) parseInitElement(listTok token.Token) (*ast.Node, error) {
	if p.check(token.LBrace) {
		tok := p.current
		elems, _, err := p.parseInitializer()
		if err != nil {
			return nil, err
		}
		return ast.NewInitList(tok, elems), nil
	}
	return p.parseAssignmentExpr()
}

func (p *Parser) parseFor(tok token.Token) (*ast.Node, error) {
	if err := p.expect(token.LParen, "expected '(' after 'for'"); err != nil {
		return nil, err
	}

	var init, cond, post *ast.Node
	var err error
	switch {
	case p.match(token.Semi):
	case isTypeStart(p.current):
		if !p.cfg.IsFeatureEnabled(config.FeatForDecl) {
			return nil, util.NewParseError(p.current, "declaration in a 'for' initializer is forbidden by the current feature set (-Fno-for-decl)")
		}
		if init, err = p.parseDeclStmt(); err != nil {
			return nil, err
		}
	default:
		if init, err = p.parseCommaExpr(); err != nil {
			return nil, err
		}
		if err := p.expect(token.Semi, "expected ';' after for initializer"); err != nil {
			return nil, err
		}
	}

	if !p.check(token.Semi) {
		if cond, err = p.parseExpr(); err != nil {
			return nil, err
		}
	}
	if err := p.expect(token.Semi, "expected ';' after for condition"); err != nil {
		return nil, err
	}

	if !p.check(token.RParen) {
		if post, err = p.parseCommaExpr(); err != nil {
			return nil, err
		}
	}
	if err := p.expect(token.RParen, "expected ')' after for clauses"); err != nil {
		return nil, err
	}

	body, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	return ast.NewFor(tok, init, cond, post, body), nil
}

// parseSwitch parses a brace-enclosed switch body as a sequence of
// case groups. Statements of a group run until the next label, so the
// source's fall-through structure survives re-emission unchanged.
func (p *Parser) parseSwitch(tok token.Token) (*ast.Node, error) {
	if err := p.expect(token.LParen, "expected '(' after 'switch'"); err != nil {
		return nil, err
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.RParen, "expected ')' after switch expression"); err != nil {
		return nil, err
	}
	bodyTok := p.current
	if err := p.expect(token.LBrace, "expected '{' to start switch body"); err != nil {
		return nil, err
	}

	var groups []*ast.Node
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		groupTok := p.current
		switch {
		case p.match(token.Case):
			var values []*ast.Node
			for {
				value, err := p.parseTernaryExpr()
				if err != nil {
					return nil, err
				}
				values = append(values, value)
				if err := p.expect(token.Colon, "expected ':' after case value"); err != nil {
					return nil, err
				}
				if !p.match(token.Case) {
					break
				}
			}
			body, err := p.parseCaseBody()
			if err != nil {
				return nil, err
			}
			groups = append(groups, ast.NewCase(groupTok, values, body))
		case p.match(token.Default):
			if err := p.expect(token.Colon, "expected ':' after 'default'"); err != nil {
				return nil, err
			}
			body, err := p.parseCaseBody()
			if err != nil {
				return nil, err
			}
			groups = append(groups, ast.NewDefault(groupTok, body))
		default:
			return nil, util.NewParseError(p.current, "expected 'case' or 'default' inside switch body")
		}
	}
	if err := p.expect(token.RBrace, "expected '}' after switch body"); err != nil {
		return nil, err
	}
	body := ast.NewBlock(bodyTok, groups, true)
	return ast.NewSwitch(tok, expr, body), nil
}

func (p *Parser) parseCaseBody() (*ast.Node, error) {
	tok := p.current
	var stmts []*ast.Node
	for !p.check(token.Case) && !p.check(token.Default) && !p.check(token.RBrace) && !p.check(token.EOF) {
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return ast.NewBlock(tok, stmts, true), nil
}

// Top-Level Parsing
func (p *Parser) parseTopLevel() (*ast.Node, error) {
	tok := p.current

	if p.match(token.Struct) {
		if err := p.expect(token.Ident, "expected struct tag after 'struct'"); err != nil {
			return nil, err
		}
		tag := p.previous.Value
		if p.check(token.LBrace) {
			return p.parseStructBody(tok, tag)
		}
		return p.parseGlobalDeclarators(tok, &ast.CType{Kind: ast.TYPE_STRUCT, Name: tag})
	}

	if p.match(token.Enum) {
		if err := p.expect(token.Ident, "expected enum tag after 'enum'"); err != nil {
			return nil, err
		}
		tag := p.previous.Value
		if p.check(token.LBrace) {
			return p.parseEnumBody(tok, tag)
		}
		return p.parseGlobalDeclarators(tok, &ast.CType{Kind: ast.TYPE_ENUM, Name: tag})
	}

	if !isTypeStart(p.current) {
		return nil, util.NewParseError(p.current, "expected a top-level declaration")
	}
	base, err := p.parseTypeSpec()
	if err != nil {
		return nil, err
	}
	return p.parseGlobalDeclarators(tok, base)
}

func (p *Parser) parseGlobalDeclarators(declTok token.Token, base *ast.CType) (*ast.Node, error) {
	typ, nameTok, err := p.parseDeclarator(base)
	if err != nil {
		return nil, err
	}

	if p.check(token.LParen) {
		return p.parseFuncRest(nameTok, typ)
	}

	var decls []*ast.Node
	first, err := p.parseGlobalInit(nameTok, typ)
	if err != nil {
		return nil, err
	}
	decls = append(decls, first)
	for p.match(token.Comma) {
		typ, nameTok, err := p.parseDeclarator(base)
		if err != nil {
			return nil, err
		}
		decl, err := p.parseGlobalInit(nameTok, typ)
		if err != nil {
			return nil, err
		}
		decls = append(decls, decl)
	}
	if err := p.expect(token.Semi, "expected ';' after global declaration"); err != nil {
		return nil, err
	}
	if len(decls) == 1 {
		return decls[0], nil
	}
	return ast.NewMultiVarDecl(declTok, decls), nil
}

func (p *Parser) parseGlobalInit(nameTok token.Token, typ *ast.CType) (*ast.Node, error) {
	var initList []*ast.Node
	isList := false
	var err error
	if p.match(token.Eq) {
		if initList, isList, err = p.parseInitializer(); err != nil {
			return nil, err
		}
	}
	return ast.NewVarDecl(nameTok, nameTok.Value, typ, initList, isList), nil
}

func (p *Parser) parseFuncRest(nameTok token.Token, returnType *ast.CType) (*ast.Node, error) {
	if err := p.expect(token.LParen, "expected '(' after function name"); err != nil {
		return nil, err
	}

	var params []*ast.Node
	if !p.check(token.RParen) {
		if p.check(token.Void) && p.peek().Type == token.RParen {
			p.advance()
		} else {
			for {
				paramBase, err := p.parseTypeSpec()
				if err != nil {
					return nil, err
				}
				paramType, paramTok, err := p.parseDeclarator(paramBase)
				if err != nil {
					return nil, err
				}
				params = append(params, ast.NewVarDecl(paramTok, paramTok.Value, paramType, nil, false))
				if !p.match(token.Comma) {
					break
				}
			}
		}
	}
	if err := p.expect(token.RParen, "expected ')' after parameters"); err != nil {
		return nil, err
	}

	if p.match(token.Semi) {
		return ast.NewFuncDecl(nameTok, nameTok.Value, params, nil, returnType, false, true), nil
	}
	body, err := p.parseBlockStmt()
	if err != nil {
		return nil, err
	}
	return ast.NewFuncDecl(nameTok, nameTok.Value, params, body, returnType, false, false), nil
}

func (p *Parser) parseStructBody(structTok token.Token, tag string) (*ast.Node, error) {
	if err := p.expect(token.LBrace, "expected '{' after struct tag"); err != nil {
		return nil, err
	}
	var fields []*ast.Node
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		base, err := p.parseTypeSpec()
		if err != nil {
			return nil, err
		}
		for {
			typ, nameTok, err := p.parseDeclarator(base)
			if err != nil {
				return nil, err
			}
			fields = append(fields, ast.NewVarDecl(nameTok, nameTok.Value, typ, nil, false))
			if !p.match(token.Comma) {
				break
			}
		}
		if err := p.expect(token.Semi, "expected ';' after struct field"); err != nil {
			return nil, err
		}
	}
	if err := p.expect(token.RBrace, "expected '}' after struct fields"); err != nil {
		return nil, err
	}
	if err := p.expect(token.Semi, "expected ';' after struct definition"); err != nil {
		return nil, err
	}
	return ast.NewStructDecl(structTok, tag, fields), nil
}

func (p *Parser) parseEnumBody(enumTok token.Token, tag string) (*ast.Node, error) {
	if err := p.expect(token.LBrace, "expected '{' after enum tag"); err != nil {
		return nil, err
	}
	var members []ast.EnumMember
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		if err := p.expect(token.Ident, "expected enumerator name"); err != nil {
			return nil, err
		}
		member := ast.EnumMember{Name: p.previous.Value, Tok: p.previous}
		if p.match(token.Eq) {
			value, err := p.parseTernaryExpr()
			if err != nil {
				return nil, err
			}
			member.Value = value
		}
		members = append(members, member)
		if !p.match(token.Comma) {
			break
		}
	}
	if err := p.expect(token.RBrace, "expected '}' after enumerators"); err != nil {
		return nil, err
	}
	if err := p.expect(token.Semi, "expected ';' after enum definition"); err != nil {
		return nil, err
	}
	return ast.NewEnumDecl(enumTok, tag, members), nil
}

// ParseDefines turns the literal object-like macros the preprocessor
// collected into ConstDecl nodes, re-lexing each replacement text.
func ParseDefines(defines []preprocess.Define, cfg *config.Config) ([]*ast.Node, error) {
	var decls []*ast.Node
	for _, def := range defines {
		toks, err := lexer.Tokenize([]rune(def.Value), def.Tok.FileIndex, cfg)
		if err != nil {
			return nil, err
		}
		dp := NewParser(toks, cfg)
		value, err := dp.parseExpr()
		if err != nil {
			return nil, err
		}
		if !dp.check(token.EOF) {
			return nil, util.NewParseError(def.Tok, "macro '%s' does not expand to a single constant", def.Name)
		}
		value = ast.FoldConstants(value)
		decls = append(decls, ast.NewConstDecl(def.Tok, def.Name, value))
	}
	return decls, nil
}

// Package parser turns a token stream into the AST the compiler consumes.
package parser

import (
	"fmt"
	"strconv"
	"unicode"

	"flowa/pkg/ast"
	"flowa/pkg/lexer"
	"flowa/pkg/token"
)

// simpleAtomStart is the set of token types that may open a bare
// application argument without parentheses — juxtaposition ("f x y")
// only extends into these, never into a prefixed or keyword-led
// expression, so `f -x` and `f if c then a else b` require parens.
var simpleAtomStart = map[token.Type]bool{
	token.IDENT:    true,
	token.NUM:      true,
	token.STR:      true,
	token.SYM:      true,
	token.TRUE:     true,
	token.FALSE:    true,
	token.NIL:      true,
	token.LPAREN:   true,
	token.LBRACKET: true,
}

type Parser struct {
	l *lexer.Lexer

	curToken  token.Token
	peekToken token.Token

	errors []string

	// inWhenArm is set while a when arm's body is parsed, so a bare '|'
	// ends the arm instead of being read as bitwise-or.
	inWhenArm bool
}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) Errors() []string { return p.errors }

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t token.Type) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t token.Type) bool { return p.peekToken.Type == t }

func (p *Parser) expectPeek(t token.Type) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.errorf("expected next token to be %s, got %s (%q) instead", t, p.peekToken.Type, p.peekToken.Literal)
	return false
}

func (p *Parser) errorf(format string, args ...interface{}) {
	p.errors = append(p.errors, fmt.Sprintf("line %d, col %d: %s", p.curToken.Line, p.curToken.Column, fmt.Sprintf(format, args...)))
}

// ParseProgram consumes the whole token stream and returns the top-level
// statement list, or nil plus Errors() populated on failure.
func ParseProgram(l *lexer.Lexer) ([]ast.Statement, []string) {
	p := New(l)
	var stmts []ast.Statement
	for !p.curTokenIs(token.EOF) {
		stmt := p.parseStatement()
		if len(p.errors) > 0 {
			return nil, p.errors
		}
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
		p.nextToken()
	}
	return stmts, nil
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case token.DEF:
		return p.parseTopLevelBinding(true)
	case token.LET:
		return p.parseTopLevelBinding(false)
	case token.TYPE:
		return p.parseTypeStatement()
	default:
		tok := p.curToken
		expr := p.parseExpression()
		return &ast.ExprStatement{Token: tok, Expr: expr}
	}
}

// parseTopLevelBinding parses "def name args... = value" or
// "let name = value" at the top level. A trailing "in body" turns the
// whole thing into a single expression statement wrapping a LetExpr,
// exactly as it would read as a sub-expression — the program
// `def f x = x + 1 in f 41` is one expression, not two statements.
func (p *Parser) parseTopLevelBinding(isDef bool) ast.Statement {
	tok := p.curToken
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	name := p.curToken.Literal
	var params []string
	if isDef {
		for p.peekTokenIs(token.IDENT) {
			p.nextToken()
			params = append(params, p.curToken.Literal)
		}
	}
	if !p.expectPeek(token.ASSIGN) {
		return nil
	}
	p.nextToken()
	value := p.parseExpression()

	if p.peekTokenIs(token.IN) {
		p.nextToken()
		p.nextToken()
		body := p.parseExpression()
		return &ast.ExprStatement{Token: tok, Expr: &ast.LetExpr{Token: tok, Name: name, Params: params, Value: value, Body: body}}
	}
	if isDef {
		return &ast.DefStatement{Token: tok, Name: name, Params: params, Value: value}
	}
	return &ast.LetStatement{Token: tok, Name: name, Value: value}
}

// parseMethodDef parses one "def name args... = value" inside a type's
// "with ... end" block — methods never take a trailing "in" clause.
func (p *Parser) parseMethodDef() *ast.DefStatement {
	tok := p.curToken
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	name := p.curToken.Literal
	var params []string
	for p.peekTokenIs(token.IDENT) {
		p.nextToken()
		params = append(params, p.curToken.Literal)
	}
	if !p.expectPeek(token.ASSIGN) {
		return nil
	}
	p.nextToken()
	value := p.parseExpression()
	return &ast.DefStatement{Token: tok, Name: name, Params: params, Value: value}
}

// parseTypeStatement parses:
//
//	type Name(p1, p2)
//	type Name(p1, p2) with
//	  def method self = ...
//	  def init p1 p2 = ...
//	end
//
// A method literally named "init" becomes the type's initializer instead
// of an ordinary method.
func (p *Parser) parseTypeStatement() *ast.TypeStatement {
	tok := p.curToken
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	name := p.curToken.Literal
	var params []string
	if p.peekTokenIs(token.LPAREN) {
		p.nextToken()
		params = p.parseIdentList()
	}

	stmt := &ast.TypeStatement{Token: tok, Name: name, Params: params}
	if !p.peekTokenIs(token.WITH) {
		return stmt
	}
	p.nextToken() // consume WITH
	for !p.peekTokenIs(token.END) {
		if !p.expectPeek(token.DEF) {
			return nil
		}
		def := p.parseMethodDef()
		if def == nil {
			return nil
		}
		if def.Name == "init" {
			stmt.Init = def
		} else {
			stmt.Methods = append(stmt.Methods, def)
		}
	}
	if !p.expectPeek(token.END) {
		return nil
	}
	return stmt
}

// parseIdentList parses a parenthesized, comma-separated identifier list.
// curToken is LPAREN on entry; RPAREN on return.
func (p *Parser) parseIdentList() []string {
	var names []string
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return names
	}
	p.nextToken()
	names = append(names, p.curToken.Literal)
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		names = append(names, p.curToken.Literal)
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return names
}

// --- expressions ---

func (p *Parser) parseExpression() ast.Expression {
	if p.curTokenIs(token.TAILARROW) {
		tok := p.curToken
		p.nextToken()
		inner := p.parseExpression()
		apply, ok := inner.(*ast.ApplyExpr)
		if !ok {
			p.errorf("'=>' must precede a function application")
			return inner
		}
		apply.Tail = true
		apply.Token = tok
		return apply
	}
	return p.parseOr()
}

func (p *Parser) parseOr() ast.Expression {
	left := p.parseAnd()
	for p.peekTokenIs(token.OR) {
		p.nextToken()
		tok := p.curToken
		p.nextToken()
		right := p.parseAnd()
		left = &ast.OrExpr{Token: tok, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAnd() ast.Expression {
	left := p.parseEquality()
	for p.peekTokenIs(token.AND) {
		p.nextToken()
		tok := p.curToken
		p.nextToken()
		right := p.parseEquality()
		left = &ast.AndExpr{Token: tok, Left: left, Right: right}
	}
	return left
}

var equalityOps = map[token.Type]bool{token.EQ: true, token.NEQ: true}
var compareOps = map[token.Type]bool{token.LT: true, token.LE: true, token.GT: true, token.GE: true}
var sumOps = map[token.Type]bool{token.PLUS: true, token.MINUS: true}
var productOps = map[token.Type]bool{
	token.STAR: true, token.SLASH: true, token.PERCENT: true,
	token.AMP: true, token.PIPE: true, token.CARET: true, token.SHL: true, token.SHR: true,
}

func (p *Parser) parseEquality() ast.Expression {
	left := p.parseComparison()
	for equalityOps[p.peekToken.Type] {
		p.nextToken()
		tok := p.curToken
		op := tok.Literal
		p.nextToken()
		right := p.parseComparison()
		left = &ast.BinaryExpr{Token: tok, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseComparison() ast.Expression {
	left := p.parseCons()
	for compareOps[p.peekToken.Type] {
		p.nextToken()
		tok := p.curToken
		op := tok.Literal
		p.nextToken()
		right := p.parseCons()
		left = &ast.BinaryExpr{Token: tok, Op: op, Left: left, Right: right}
	}
	return left
}

// parseCons is right-associative: "1 :: 2 :: xs" == "1 :: (2 :: xs)".
func (p *Parser) parseCons() ast.Expression {
	left := p.parseSum()
	if p.peekTokenIs(token.CONS) {
		p.nextToken()
		tok := p.curToken
		p.nextToken()
		right := p.parseCons()
		return &ast.ConsExpr{Token: tok, Head: left, Tail: right}
	}
	return left
}

func (p *Parser) parseSum() ast.Expression {
	left := p.parseProduct()
	for sumOps[p.peekToken.Type] {
		p.nextToken()
		tok := p.curToken
		op := tok.Literal
		p.nextToken()
		right := p.parseProduct()
		left = &ast.BinaryExpr{Token: tok, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseProduct() ast.Expression {
	left := p.parseUnary()
	for productOps[p.peekToken.Type] && !(p.inWhenArm && p.peekTokenIs(token.PIPE)) {
		p.nextToken()
		tok := p.curToken
		op := tok.Literal
		p.nextToken()
		right := p.parseUnary()
		left = &ast.BinaryExpr{Token: tok, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseUnary() ast.Expression {
	switch p.curToken.Type {
	case token.NOT, token.BANG:
		tok := p.curToken
		p.nextToken()
		right := p.parseUnary()
		return &ast.UnaryExpr{Token: tok, Op: "not", Right: right}
	case token.MINUS:
		tok := p.curToken
		p.nextToken()
		right := p.parseUnary()
		return &ast.UnaryExpr{Token: tok, Op: "-", Right: right}
	case token.TILDE:
		tok := p.curToken
		p.nextToken()
		right := p.parseUnary()
		return &ast.UnaryExpr{Token: tok, Op: "~", Right: right}
	default:
		return p.parseApplication()
	}
}

// parseApplication implements juxtaposition calls: a leading atom followed
// by zero or more further simple atoms on the same source line becomes one
// ApplyExpr. A line break ends the argument list, so consecutive lines
// parse as separate statements.
func (p *Parser) parseApplication() ast.Expression {
	callTok := p.curToken
	left := p.parsePostfix(p.parseAtom())
	var args []ast.Expression
	for simpleAtomStart[p.peekToken.Type] && p.peekToken.Line == p.curToken.Line {
		p.nextToken()
		args = append(args, p.parsePostfix(p.parseAtom()))
	}
	if len(args) == 0 {
		return left
	}
	return &ast.ApplyExpr{Token: callTok, Callee: left, Args: args}
}

// parsePostfix handles field access, tuple indexing, method references and
// invocation chained onto an already-parsed primary expression. A dotted
// access on an identifier that starts with an uppercase letter (the type
// naming convention used throughout the prelude and standard library) is
// treated as a reference into that type rather than an instance field.
//
// A '(' directly attached to the member name ("p.fst()") is method
// invocation; a detached one ("json.decode (x)") opens an ordinary
// parenthesized argument to a juxtaposition call on the accessed field.
// The distinction matters because prelude modules carry their functions
// as instance fields, not type methods.
func (p *Parser) parsePostfix(expr ast.Expression) ast.Expression {
	typeLike := isUpperIdent(expr)
	for p.peekTokenIs(token.DOT) {
		p.nextToken()
		tok := p.curToken
		if p.peekTokenIs(token.NUM) {
			p.nextToken()
			idx, err := strconv.Atoi(p.curToken.Literal)
			if err != nil {
				p.errorf("invalid tuple index %q", p.curToken.Literal)
				return expr
			}
			expr = &ast.TupleIndexExpr{Token: p.curToken, Tuple: expr, Index: idx}
			typeLike = false
			continue
		}
		if !p.expectPeek(token.IDENT) {
			return expr
		}
		name := p.curToken.Literal
		if p.peekAdjacentLParen() {
			p.nextToken()
			args := p.parseParenArgs()
			expr = &ast.InvokeExpr{Token: tok, Obj: expr, Method: name, Args: args}
		} else if typeLike {
			expr = &ast.MethodRefExpr{Token: tok, Type: expr, Method: name}
		} else {
			expr = &ast.FieldExpr{Token: tok, Obj: expr, Field: name}
		}
		typeLike = false
	}
	return expr
}

// peekAdjacentLParen reports whether the next token is a '(' butted
// directly against the identifier in curToken, with no whitespace between.
func (p *Parser) peekAdjacentLParen() bool {
	return p.peekTokenIs(token.LPAREN) &&
		p.peekToken.Line == p.curToken.Line &&
		p.peekToken.Column == p.curToken.Column+len(p.curToken.Literal)
}

func isUpperIdent(e ast.Expression) bool {
	id, ok := e.(*ast.Identifier)
	if !ok || id.Name == "" {
		return false
	}
	return unicode.IsUpper(rune(id.Name[0]))
}

// parseParenArgs parses a parenthesized, comma-separated argument list.
// curToken is LPAREN on entry; RPAREN on return.
func (p *Parser) parseParenArgs() []ast.Expression {
	var args []ast.Expression
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return args
	}
	p.nextToken()
	args = append(args, p.parseExpression())
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		args = append(args, p.parseExpression())
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return args
}

func (p *Parser) parseAtom() ast.Expression {
	switch p.curToken.Type {
	case token.NUM:
		tok := p.curToken
		v, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			p.errorf("invalid number literal %q", tok.Literal)
			return nil
		}
		return &ast.NumberLiteral{Token: tok, Value: v}
	case token.STR:
		return &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
	case token.SYM:
		return &ast.SymbolLiteral{Token: p.curToken, Value: p.curToken.Literal}
	case token.TRUE:
		return &ast.BoolLiteral{Token: p.curToken, Value: true}
	case token.FALSE:
		return &ast.BoolLiteral{Token: p.curToken, Value: false}
	case token.NIL:
		return &ast.NilLiteral{Token: p.curToken}
	case token.WILDCARD:
		return &ast.Identifier{Token: p.curToken, Name: "_"}
	case token.IDENT:
		return &ast.Identifier{Token: p.curToken, Name: p.curToken.Literal}
	case token.LPAREN:
		return p.parseParenOrTuple()
	case token.LBRACKET:
		return p.parseListLiteral()
	case token.FN:
		return p.parseLambda()
	case token.LET:
		return p.parseLetExpr()
	case token.DEF:
		return p.parseDefExpr()
	case token.IF:
		return p.parseIfExpr()
	case token.WHEN:
		return p.parseWhenExpr()
	case token.TRY:
		return p.parseTryExpr()
	case token.NEW:
		return p.parseNewExpr()
	case token.DO:
		return p.parseDoExpr()
	default:
		p.errorf("unexpected token %s (%q) in expression", p.curToken.Type, p.curToken.Literal)
		return nil
	}
}

func (p *Parser) parseParenOrTuple() ast.Expression {
	tok := p.curToken
	savedInWhenArm := p.inWhenArm
	p.inWhenArm = false
	defer func() { p.inWhenArm = savedInWhenArm }()
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return &ast.TupleExpr{Token: tok}
	}
	p.nextToken()
	first := p.parseExpression()
	if !p.peekTokenIs(token.COMMA) {
		if !p.expectPeek(token.RPAREN) {
			return nil
		}
		return first
	}
	elems := []ast.Expression{first}
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		elems = append(elems, p.parseExpression())
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return &ast.TupleExpr{Token: tok, Elements: elems}
}

func (p *Parser) parseListLiteral() ast.Expression {
	tok := p.curToken
	var elems []ast.Expression
	if p.peekTokenIs(token.RBRACKET) {
		p.nextToken()
		return &ast.ListExpr{Token: tok, Elements: elems}
	}
	p.nextToken()
	elems = append(elems, p.parseExpression())
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		elems = append(elems, p.parseExpression())
	}
	if !p.expectPeek(token.RBRACKET) {
		return nil
	}
	return &ast.ListExpr{Token: tok, Elements: elems}
}

func (p *Parser) parseLambda() ast.Expression {
	tok := p.curToken
	var params []string
	for p.peekTokenIs(token.IDENT) {
		p.nextToken()
		params = append(params, p.curToken.Literal)
	}
	if !p.expectPeek(token.ASSIGN) {
		return nil
	}
	p.nextToken()
	body := p.parseExpression()
	return &ast.LambdaExpr{Token: tok, Params: params, Body: body}
}

func (p *Parser) parseLetExpr() ast.Expression {
	tok := p.curToken
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	name := p.curToken.Literal
	if !p.expectPeek(token.ASSIGN) {
		return nil
	}
	p.nextToken()
	value := p.parseExpression()
	var body ast.Expression
	if p.peekTokenIs(token.IN) {
		p.nextToken()
		p.nextToken()
		body = p.parseExpression()
	}
	return &ast.LetExpr{Token: tok, Name: name, Value: value, Body: body}
}

func (p *Parser) parseDefExpr() ast.Expression {
	tok := p.curToken
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	name := p.curToken.Literal
	var params []string
	for p.peekTokenIs(token.IDENT) {
		p.nextToken()
		params = append(params, p.curToken.Literal)
	}
	if !p.expectPeek(token.ASSIGN) {
		return nil
	}
	p.nextToken()
	value := p.parseExpression()
	var body ast.Expression
	if p.peekTokenIs(token.IN) {
		p.nextToken()
		p.nextToken()
		body = p.parseExpression()
	}
	return &ast.LetExpr{Token: tok, Name: name, Params: params, Value: value, Body: body}
}

func (p *Parser) parseIfExpr() ast.Expression {
	tok := p.curToken
	p.nextToken()
	cond := p.parseExpression()
	if !p.expectPeek(token.THEN) {
		return nil
	}
	p.nextToken()
	then := p.parseExpression()
	if !p.expectPeek(token.ELSE) {
		return nil
	}
	p.nextToken()
	els := p.parseExpression()
	return &ast.IfExpr{Token: tok, Cond: cond, Then: then, Else: els}
}

// parseWhenExpr parses:
//
//	when scrutinee with
//	  cond1 -> body1
//	| cond2 -> body2
//	| _ [bind] -> wildcardBody
//	end
//
// Inside an arm body a bare '|' ends the arm; a bitwise-or there has to be
// parenthesized.
func (p *Parser) parseWhenExpr() ast.Expression {
	tok := p.curToken
	p.nextToken()
	scrutinee := p.parseExpression()
	if !p.expectPeek(token.WITH) {
		return nil
	}
	w := &ast.WhenExpr{Token: tok, Scrutinee: scrutinee}
	for {
		p.nextToken()
		if p.curTokenIs(token.WILDCARD) {
			w.HasWildcard = true
			if p.peekTokenIs(token.IDENT) {
				p.nextToken()
				w.WildcardBind = p.curToken.Literal
			}
			if !p.expectPeek(token.ARROW) {
				return nil
			}
			p.nextToken()
			w.WildcardBody = p.parseExpression()
			break
		}
		cond := p.parseExpression()
		if !p.expectPeek(token.ARROW) {
			return nil
		}
		p.nextToken()
		savedInWhenArm := p.inWhenArm
		p.inWhenArm = true
		body := p.parseExpression()
		p.inWhenArm = savedInWhenArm
		w.Arms = append(w.Arms, ast.WhenArm{Cond: cond, Body: body})
		if !p.peekTokenIs(token.PIPE) {
			break
		}
		p.nextToken()
	}
	if !p.expectPeek(token.END) {
		return nil
	}
	return w
}

func (p *Parser) parseTryExpr() ast.Expression {
	tok := p.curToken
	p.nextToken()
	body := p.parseExpression()
	if !p.expectPeek(token.RESCUE) {
		return nil
	}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	bind := p.curToken.Literal
	if !p.expectPeek(token.ARROW) {
		return nil
	}
	p.nextToken()
	rescue := p.parseExpression()
	return &ast.TryExpr{Token: tok, Body: body, Bind: bind, Rescue: rescue}
}

func (p *Parser) parseNewExpr() ast.Expression {
	tok := p.curToken
	p.nextToken()
	typeExpr := p.parseAtom()
	var args []ast.Expression
	if p.peekTokenIs(token.LPAREN) {
		p.nextToken()
		args = p.parseParenArgs()
	}
	return &ast.NewExpr{Token: tok, Type: typeExpr, Args: args}
}

// parseDoExpr parses "do e1, e2, e3 end" — a comma-separated sequence
// whose last expression is the block's result.
func (p *Parser) parseDoExpr() ast.Expression {
	tok := p.curToken
	d := &ast.DoExpr{Token: tok}
	if p.peekTokenIs(token.END) {
		p.nextToken()
		return d
	}
	p.nextToken()
	d.Exprs = append(d.Exprs, p.parseExpression())
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		d.Exprs = append(d.Exprs, p.parseExpression())
	}
	if !p.expectPeek(token.END) {
		return nil
	}
	return d
}

package parser

import (
	"fmt"
	"log/slog"
	"pebble/internal/ast"
	"pebble/internal/lexer"
	"pebble/internal/token"
	"pebble/internal/util"
	"strconv"
)

const (
	_           int = iota
	LOWEST          // statement level
	LOGICAL_OR      // or
	LOGICAL_AND     // and
	EQUALS          // == !=
	COMPARISON      // > or <
	SUM             // +
	PRODUCT         // *
	PREFIX          // -X, +X or not X
)

var precedences = map[token.TokenType]int{
	token.OR:       LOGICAL_OR,
	token.AND:      LOGICAL_AND,
	token.EQ:       EQUALS,
	token.NOT_EQ:   EQUALS,
	token.LT:       COMPARISON,
	token.LT_EQ:    COMPARISON,
	token.GT:       COMPARISON,
	token.GT_EQ:    COMPARISON,
	token.PLUS:     SUM,
	token.MINUS:    SUM,
	token.SLASH:    PRODUCT,
	token.ASTERISK: PRODUCT,
	token.PERCENT:  PRODUCT,
}

// operators maps operator tokens to the symbol stored in the AST.
var operators = map[token.TokenType]string{
	token.OR:       "or",
	token.AND:      "and",
	token.NOT:      "not",
	token.EQ:       "==",
	token.NOT_EQ:   "!=",
	token.LT:       "<",
	token.LT_EQ:    "<=",
	token.GT:       ">",
	token.GT_EQ:    ">=",
	token.PLUS:     "+",
	token.MINUS:    "-",
	token.SLASH:    "/",
	token.ASTERISK: "*",
	token.PERCENT:  "%",
}

// Error is a parse error: an expected-token mismatch, a malformed
// statement or expression, or input that ended too early.
type Error struct {
	Token   token.Token
	Line    int
	Column  int
	Message string
	Context string // source lines leading up to the error with a caret
}

func (e *Error) Error() string {
	return fmt.Sprintf("parse error [%3d:%2d] %s", e.Line, e.Column, e.Message)
}

type Parser struct {
	tokens []token.Token
	src    string // source code here
	pos    int

	curToken token.Token
	// lineBreak is set when NEWLINE tokens were skipped to reach curToken.
	lineBreak bool
}

// Parse tokenizes and parses src in one step.
func Parse(src string) (*ast.Program, error) {
	tokens, err := lexer.Tokenize(src)
	if err != nil {
		return nil, err
	}
	return New(tokens, src).ParseProgram()
}

func New(tokens []token.Token, source string) *Parser {
	p := &Parser{
		tokens: tokens,
		src:    source,
		pos:    -1,
	}
	p.nextToken()
	return p
}

func (p *Parser) tokenAt(i int) token.Token {
	if i < len(p.tokens) {
		return p.tokens[i]
	}
	end := len(p.src)
	if n := len(p.tokens); n > 0 {
		end = p.tokens[n-1].Position
	}
	return token.Token{Type: token.EOF, Position: end}
}

// nextToken advances to the next significant token; NEWLINE tokens are
// skipped and only remembered through lineBreak.
func (p *Parser) nextToken() {
	p.lineBreak = false
	for {
		p.pos++
		p.curToken = p.tokenAt(p.pos)
		if p.curToken.Type != token.NEWLINE {
			return
		}
		p.lineBreak = true
	}
}

func (p *Parser) peekToken() token.Token {
	return p.tokenAt(p.pos + 1)
}

func (p *Parser) curTokenIs(t token.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) errorf(message string, args ...interface{}) *Error {
	line, col := util.GetLineAndColumn(p.src, p.curToken.Position)
	return &Error{
		Token:   p.curToken,
		Line:    line,
		Column:  col,
		Message: fmt.Sprintf(message, args...),
		Context: util.GetContextLines(p.src, line, col, p.curToken.Position),
	}
}

// expect advances past a token of type t or fails naming both tokens.
func (p *Parser) expect(t token.TokenType) error {
	if p.curTokenIs(t) {
		p.nextToken()
		return nil
	}
	return p.errorf("expected %s, got %s instead", t, describe(p.curToken))
}

func describe(tok token.Token) string {
	switch tok.Type {
	case token.IDENT:
		return fmt.Sprintf("identifier %q", tok.Literal)
	case token.NUMBER:
		return "number " + tok.Literal
	case token.STRING:
		return fmt.Sprintf("string %q", tok.Literal)
	case token.EOF:
		return "end of input"
	}
	return string(tok.Type)
}

func (p *Parser) ParseProgram() (*ast.Program, error) {
	program := &ast.Program{}
	program.Statements = []ast.Statement{}

	for !p.curTokenIs(token.EOF) {
		if p.curTokenIs(token.NEWLINE) {
			p.nextToken()
			continue
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		program.Statements = append(program.Statements, stmt)
	}

	slog.Debug("parsed program", slog.Int("statements", len(program.Statements)))
	return program, nil
}

func (p *Parser) parseStatement() (ast.Statement, error) {
	switch p.curToken.Type {
	case token.IF:
		return p.parseIfStatement()
	case token.WHILE:
		return p.parseWhileStatement()
	case token.DEF:
		return p.parseFunctionDefinition()
	case token.RETURN:
		return p.parseReturnStatement()
	case token.PRINT:
		return p.parsePrintStatement()
	case token.IDENT:
		if p.peekToken().Type == token.ASSIGN {
			return p.parseAssignment()
		}
	}
	return p.parseExpressionStatement()
}

func (p *Parser) parseIfStatement() (*ast.IfStatement, error) {
	stmt := &ast.IfStatement{Token: p.curToken}
	p.nextToken()

	var err error
	if stmt.Condition, err = p.parseExpression(LOWEST); err != nil {
		return nil, err
	}
	if err = p.expect(token.COLON); err != nil {
		return nil, err
	}
	if stmt.Consequence, err = p.parseBlock(); err != nil {
		return nil, err
	}

	if p.curTokenIs(token.ELSE) {
		p.nextToken()
		if err = p.expect(token.COLON); err != nil {
			return nil, err
		}
		if stmt.Alternative, err = p.parseBlock(); err != nil {
			return nil, err
		}
	}

	return stmt, nil
}

func (p *Parser) parseWhileStatement() (*ast.WhileStatement, error) {
	stmt := &ast.WhileStatement{Token: p.curToken}
	p.nextToken()

	var err error
	if stmt.Condition, err = p.parseExpression(LOWEST); err != nil {
		return nil, err
	}
	if err = p.expect(token.COLON); err != nil {
		return nil, err
	}
	if stmt.Body, err = p.parseBlock(); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseFunctionDefinition() (*ast.FunctionDefinition, error) {
	def := &ast.FunctionDefinition{Token: p.curToken}
	p.nextToken()

	if !p.curTokenIs(token.IDENT) {
		return nil, p.errorf("expected function name after 'def', got %s", describe(p.curToken))
	}
	def.Name = p.curToken.Literal
	p.nextToken()

	if err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}

	def.Parameters = []string{}
	if !p.curTokenIs(token.RPAREN) {
		for {
			if !p.curTokenIs(token.IDENT) {
				return nil, p.errorf("expected parameter name, got %s", describe(p.curToken))
			}
			def.Parameters = append(def.Parameters, p.curToken.Literal)
			p.nextToken()

			if !p.curTokenIs(token.COMMA) {
				break
			}
			p.nextToken()
		}
	}

	if err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	if err := p.expect(token.COLON); err != nil {
		return nil, err
	}

	var err error
	if def.Body, err = p.parseBlock(); err != nil {
		return nil, err
	}
	return def, nil
}

func (p *Parser) parseReturnStatement() (*ast.ReturnStatement, error) {
	stmt := &ast.ReturnStatement{Token: p.curToken}
	p.nextToken()

	var err error
	if stmt.ReturnValue, err = p.parseExpression(LOWEST); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parsePrintStatement() (*ast.PrintStatement, error) {
	stmt := &ast.PrintStatement{Token: p.curToken}
	p.nextToken()

	var err error
	if stmt.Value, err = p.parseExpression(LOWEST); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseAssignment() (*ast.Assignment, error) {
	stmt := &ast.Assignment{Token: p.curToken, Name: p.curToken.Literal}
	p.nextToken()

	if err := p.expect(token.ASSIGN); err != nil {
		return nil, err
	}

	var err error
	if stmt.Value, err = p.parseExpression(LOWEST); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseExpressionStatement() (*ast.ExpressionStatement, error) {
	stmt := &ast.ExpressionStatement{Token: p.curToken}

	var err error
	if stmt.Expression, err = p.parseExpression(LOWEST); err != nil {
		return nil, err
	}
	return stmt, nil
}

// parseBlock is called with the token after a header's colon. A line
// break there starts an indented block running to the matching DEDENT;
// otherwise the single statement on the same line is the whole block.
func (p *Parser) parseBlock() (*ast.Block, error) {
	block := &ast.Block{Token: p.curToken}

	if !p.lineBreak && !p.curTokenIs(token.INDENT) {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Statements = []ast.Statement{stmt}
		return block, nil
	}

	if err := p.expect(token.INDENT); err != nil {
		return nil, err
	}
	block.Token = p.curToken

	for !p.curTokenIs(token.DEDENT) && !p.curTokenIs(token.EOF) {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Statements = append(block.Statements, stmt)
	}

	if err := p.expect(token.DEDENT); err != nil {
		return nil, err
	}
	return block, nil
}

// parseExpression climbs the precedence table; every binary level is
// left-associative. An operator on a new line does not continue the
// expression.
func (p *Parser) parseExpression(precedence int) (ast.Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for !p.lineBreak {
		opPrecedence, ok := precedences[p.curToken.Type]
		if !ok || opPrecedence <= precedence {
			break
		}

		expr := &ast.InfixExpression{
			Token:    p.curToken,
			Operator: operators[p.curToken.Type],
			Left:     left,
		}
		p.nextToken()

		if expr.Right, err = p.parseExpression(opPrecedence); err != nil {
			return nil, err
		}
		left = expr
	}

	return left, nil
}

func (p *Parser) parseUnary() (ast.Expression, error) {
	switch p.curToken.Type {
	case token.MINUS, token.PLUS, token.NOT:
		expr := &ast.PrefixExpression{
			Token:    p.curToken,
			Operator: operators[p.curToken.Type],
		}
		p.nextToken()

		var err error
		if expr.Right, err = p.parseUnary(); err != nil {
			return nil, err
		}
		return expr, nil
	}
	return p.parseAtom()
}

func (p *Parser) parseAtom() (ast.Expression, error) {
	tok := p.curToken

	switch tok.Type {
	case token.NUMBER:
		value, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return nil, p.errorf("could not parse %q as number", tok.Literal)
		}
		p.nextToken()
		return &ast.NumberLiteral{Token: tok, Value: value}, nil

	case token.STRING:
		p.nextToken()
		return &ast.StringLiteral{Token: tok, Value: tok.Literal}, nil

	case token.TRUE, token.FALSE:
		p.nextToken()
		return &ast.Boolean{Token: tok, Value: tok.Type == token.TRUE}, nil

	case token.IDENT:
		p.nextToken()
		if p.curTokenIs(token.LPAREN) && !p.lineBreak {
			return p.parseCallArguments(tok)
		}
		return &ast.Identifier{Token: tok, Value: tok.Literal}, nil

	case token.LPAREN:
		p.nextToken()
		expr, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return expr, nil

	case token.EOF:
		return nil, p.errorf("unexpected end of input")
	}

	return nil, p.errorf("no expression can start with %s", describe(tok))
}

// parseCallArguments is entered on the '(' following the callee name.
func (p *Parser) parseCallArguments(name token.Token) (*ast.CallExpression, error) {
	call := &ast.CallExpression{Token: name, Function: name.Literal, Arguments: []ast.Expression{}}
	p.nextToken()

	if !p.curTokenIs(token.RPAREN) {
		for {
			arg, err := p.parseExpression(LOWEST)
			if err != nil {
				return nil, err
			}
			call.Arguments = append(call.Arguments, arg)

			if !p.curTokenIs(token.COMMA) {
				break
			}
			p.nextToken()
		}
	}

	if err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return call, nil
}

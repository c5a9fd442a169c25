package lexer

import (
	"pebble/internal/token"
)

// NextToken returns exactly one token per call. Once the input is
// exhausted it drains the remaining DEDENTs one per call and then keeps
// returning EOF.
func (l *Lexer) NextToken() (token.Token, error) {
	var tok token.Token

	if !l.pending.Empty() {
		return l.popPending(), nil
	}

	l.skipWhitespace()

	if l.ch == '\n' {
		return l.readIndentation()
	}

	startPosition := l.position // Record the current position as the start of the token

	if l.atEOF() {
		if len(l.indents) > 1 {
			l.indents = l.indents[:len(l.indents)-1]
			return token.Token{Type: token.DEDENT, Literal: "", Position: startPosition}, nil
		}
		return token.Token{Type: token.EOF, Literal: "", Position: startPosition}, nil
	}

	switch l.ch {
	case '=':
		tok = l.handleCompoundToken(token.ASSIGN, '=', token.EQ)
	case '!':
		tok = l.handleCompoundToken(token.NOT, '=', token.NOT_EQ)
	case '<':
		tok = l.handleCompoundToken(token.LT, '=', token.LT_EQ)
	case '>':
		tok = l.handleCompoundToken(token.GT, '=', token.GT_EQ)
	case '+':
		tok = newToken(token.PLUS, l.ch, startPosition)
	case '-':
		tok = newToken(token.MINUS, l.ch, startPosition)
	case '*':
		tok = newToken(token.ASTERISK, l.ch, startPosition)
	case '/':
		tok = newToken(token.SLASH, l.ch, startPosition)
	case '%':
		tok = newToken(token.PERCENT, l.ch, startPosition)
	case '(':
		tok = newToken(token.LPAREN, l.ch, startPosition)
	case ')':
		tok = newToken(token.RPAREN, l.ch, startPosition)
	case '[':
		tok = newToken(token.LBRACKET, l.ch, startPosition)
	case ']':
		tok = newToken(token.RBRACKET, l.ch, startPosition)
	case ',':
		tok = newToken(token.COMMA, l.ch, startPosition)
	case ':':
		tok = newToken(token.COLON, l.ch, startPosition)
	case '"':
		str, err := l.readString()
		if err != nil {
			return token.Token{Type: token.ILLEGAL, Literal: "\"", Position: startPosition}, err
		}
		return token.Token{Type: token.STRING, Literal: str, Position: startPosition}, nil
	default:
		if isLetter(l.ch) {
			tok.Literal = l.readIdentifier()
			tok.Type = token.LookupIdent(tok.Literal)
			tok.Position = startPosition
			return tok, nil
		} else if isDigit(l.ch) {
			tok.Type = token.NUMBER
			tok.Literal = l.readNumber()
			tok.Position = startPosition
			return tok, nil
		}
		illegal := newToken(token.ILLEGAL, l.ch, startPosition)
		return illegal, l.errorf(startPosition, "unrecognised character %q", l.ch)
	}

	l.readChar()
	return tok, nil
}

package lexer

import (
	"fmt"
	"log/slog"
	"pebble/internal/token"
	"pebble/internal/util"
	"unicode/utf8"

	"github.com/edwingeng/deque"
)

type Lexer struct {
	input        string
	position     int  // current byte position in input (points to start of current rune)
	readPosition int  // next byte position in input (start of next rune)
	ch           rune // current rune under examination; 0 means EOF

	indents []int       // indentation levels of the enclosing blocks, bottom is always 0
	pending deque.Deque // structural tokens queued by a multi-level dedent
}

// Error is a lexical error: an unrecognised character, an unterminated
// string or a dedent that matches no enclosing indentation level.
type Error struct {
	Line    int
	Column  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("lexical error [%3d:%2d] %s", e.Line, e.Column, e.Message)
}

func New(input string) *Lexer {
	l := &Lexer{
		input:   input,
		indents: []int{0},
		pending: deque.NewDeque(),
	}
	l.readChar()
	return l
}

// Tokenize runs the lexer to exhaustion. The returned slice always ends
// with a single EOF token.
func Tokenize(input string) ([]token.Token, error) {
	l := New(input)
	var tokens []token.Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	slog.Debug("tokenized source",
		slog.Int("bytes", len(input)),
		slog.Int("tokens", len(tokens)),
	)
	return tokens, nil
}

func (l *Lexer) errorf(pos int, format string, a ...any) *Error {
	line, col := util.GetLineAndColumn(l.input, pos)
	return &Error{Line: line, Column: col, Message: fmt.Sprintf(format, a...)}
}

func (l *Lexer) atEOF() bool {
	return l.position >= len(l.input)
}

func (l *Lexer) currentIndent() int {
	return l.indents[len(l.indents)-1]
}

func (l *Lexer) popPending() token.Token {
	tok := l.pending.Front().(token.Token)
	l.pending.PopFront()
	return tok
}

// readIndentation is entered with l.ch on a newline. It consumes the line
// break plus any following blank or comment-only lines, measures the
// leading spaces of the next significant line and turns the change in
// depth into INDENT, DEDENT or NEWLINE.
func (l *Lexer) readIndentation() (token.Token, error) {
	start := l.position
	spaces := 0
	for l.ch == '\n' {
		l.readChar()
		spaces = 0
		for l.ch == ' ' || l.ch == '\r' {
			if l.ch == ' ' {
				spaces++
			}
			l.readChar()
		}
		if l.ch == '#' {
			l.skipToLineEnd()
		}
	}
	if l.atEOF() {
		spaces = 0
	}

	switch current := l.currentIndent(); {
	case spaces > current:
		l.indents = append(l.indents, spaces)
		return token.Token{Type: token.INDENT, Literal: "", Position: start}, nil
	case spaces < current:
		for l.currentIndent() > spaces {
			l.indents = l.indents[:len(l.indents)-1]
			l.pending.PushBack(token.Token{Type: token.DEDENT, Literal: "", Position: start})
		}
		if l.currentIndent() != spaces {
			return token.Token{Type: token.ILLEGAL, Position: l.position},
				l.errorf(l.position, "unindent of %d spaces does not match any outer indentation level", spaces)
		}
		return l.popPending(), nil
	default:
		return token.Token{Type: token.NEWLINE, Literal: "\n", Position: start}, nil
	}
}

func (l *Lexer) handleCompoundToken(
	t token.TokenType,
	ch1 rune,
	t1 token.TokenType,
) token.Token {
	startPosition := l.position
	if l.peekChar() == ch1 {
		first := l.ch
		l.readChar()
		literal := string(first) + string(l.ch)
		return token.Token{Type: t1, Literal: literal, Position: startPosition}
	}
	return newToken(t, l.ch, startPosition)
}

func (l *Lexer) skipWhitespace() {
	for {
		switch l.ch {
		case ' ', '\t', '\r':
			l.readChar()
		case '#':
			l.skipToLineEnd()
		default:
			return
		}
	}
}

func (l *Lexer) skipToLineEnd() {
	for l.ch != '\n' && !l.atEOF() {
		l.readChar()
	}
}

// readChar advances by one UTF-8 rune, updating byte positions
func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += size
}

// peekChar returns the next rune without advancing; returns 0 at EOF
func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

// readIdentifier returns the substring (bytes) covering the identifier runes
func (l *Lexer) readIdentifier() string {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

// readNumber accepts digits with at most one decimal point.
func (l *Lexer) readNumber() string {
	start := l.position
	seenPoint := false
	for isDigit(l.ch) || (l.ch == '.' && !seenPoint) {
		if l.ch == '.' {
			seenPoint = true
		}
		l.readChar()
	}
	return l.input[start:l.position]
}

// readString is entered on the opening quote and leaves l.ch on the rune
// after the closing quote. There are no escape sequences.
func (l *Lexer) readString() (string, error) {
	open := l.position
	l.readChar()
	start := l.position
	for l.ch != '"' {
		if l.atEOF() {
			return "", l.errorf(open, "unterminated string literal")
		}
		l.readChar()
	}
	str := l.input[start:l.position]
	l.readChar()
	return str, nil
}

func isLetter(ch rune) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func newToken(tokenType token.TokenType, ch rune, position int) token.Token {
	return token.Token{Type: tokenType, Literal: string(ch), Position: position}
}

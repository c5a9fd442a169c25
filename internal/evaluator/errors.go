package evaluator

import (
	"errors"
	"fmt"
	"pebble/internal/token"
)

// Kinds of runtime failure. Use errors.Is against an evaluation error to
// tell them apart.
var (
	ErrUnknownOperator = errors.New("unknown operator")
	ErrTypeMismatch    = errors.New("type mismatch")
	ErrDivisionByZero  = errors.New("division by zero")
	ErrNotAFunction    = errors.New("not a function")
	ErrArity           = errors.New("wrong number of arguments")
)

// Error is a runtime failure. Evaluation stops at the first one.
type Error struct {
	Kind    error
	Token   token.Token // token of the node that failed
	Message string
}

func (e *Error) Error() string {
	return "evaluation error: " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, tok token.Token, format string, a ...interface{}) *Error {
	return &Error{Kind: kind, Token: tok, Message: fmt.Sprintf(format, a...)}
}

package object

import (
	"math"
	"pebble/internal/ast"
	"strconv"
)

const (
	NULL_OBJ     = "NULL"
	BOOLEAN_OBJ  = "BOOLEAN"
	NUMBER_OBJ   = "NUMBER"
	STRING_OBJ   = "STRING"
	FUNCTION_OBJ = "FUNCTION"

	RETURN_VALUE_OBJ = "RETURN_VALUE"
)

var (
	NULL  = &Null{}
	TRUE  = &Boolean{Value: true}
	FALSE = &Boolean{Value: false}
)

type ObjectType string

type Object interface {
	Type() ObjectType
	Inspect() string
}

type Number struct {
	Value float64
}

func (n *Number) Type() ObjectType { return NUMBER_OBJ }
func (n *Number) Inspect() string  { return FormatNumber(n.Value) }

// FormatNumber renders a float in its shortest decimal form: 5, 2.5, 0.1.
func FormatNumber(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsNaN(v):
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type Boolean struct {
	Value bool
}

func (b *Boolean) Type() ObjectType { return BOOLEAN_OBJ }
func (b *Boolean) Inspect() string  { return strconv.FormatBool(b.Value) }

type String struct {
	Value string
}

func (s *String) Type() ObjectType { return STRING_OBJ }
func (s *String) Inspect() string  { return s.Value }

// Null is the absence of a value: unbound names, calls without a return,
// print and an if without a taken branch all produce it.
type Null struct{}

func (n *Null) Type() ObjectType { return NULL_OBJ }
func (n *Null) Inspect() string  { return "null" }

// ReturnValue carries a returned value up through nested statements to
// the call that unwraps it. Programs can not construct one directly.
type ReturnValue struct {
	Value Object
}

func (rv *ReturnValue) Type() ObjectType { return RETURN_VALUE_OBJ }
func (rv *ReturnValue) Inspect() string  { return rv.Value.Inspect() }

// Function holds its parameter list and body by value. It does not keep
// a reference to the environment it was defined in.
type Function struct {
	Name       string
	Parameters []string
	Body       *ast.Block
}

func (f *Function) Type() ObjectType { return FUNCTION_OBJ }
func (f *Function) Inspect() string  { return "<function>" }

func NativeBoolToBooleanObject(input bool) *Boolean {
	if input {
		return TRUE
	}
	return FALSE
}

// IsTruthy converts any value to a condition: booleans are themselves,
// numbers are true when non-zero, strings when non-empty, null is false
// and everything else is true.
func IsTruthy(obj Object) bool {
	switch obj := obj.(type) {
	case *Boolean:
		return obj.Value
	case *Number:
		return obj.Value != 0
	case *String:
		return obj.Value != ""
	case *Null, nil:
		return false
	default:
		return true
	}
}

// Equal compares two values structurally. Values of different types are
// never equal; comparing them is not an error.
func Equal(left, right Object) bool {
	switch l := left.(type) {
	case *Number:
		r, ok := right.(*Number)
		return ok && l.Value == r.Value
	case *String:
		r, ok := right.(*String)
		return ok && l.Value == r.Value
	case *Boolean:
		r, ok := right.(*Boolean)
		return ok && l.Value == r.Value
	case *Null:
		_, ok := right.(*Null)
		return ok
	case *Function:
		r, ok := right.(*Function)
		return ok && l.Body == r.Body
	case *ReturnValue:
		r, ok := right.(*ReturnValue)
		return ok && Equal(l.Value, r.Value)
	}
	return false
}

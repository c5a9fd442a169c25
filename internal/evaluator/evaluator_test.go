package evaluator

import (
	"bytes"
	"errors"
	"pebble/internal/ast"
	"pebble/internal/object"
	"pebble/internal/parser"
	"pebble/internal/token"
	"testing"
)

func testEval(t *testing.T, input string) (object.Object, string, error) {
	t.Helper()
	program, err := parser.Parse(input)
	if err != nil {
		t.Fatalf("unexpected parse error for %q: %v", input, err)
	}

	var out bytes.Buffer
	result, err := New(&out).Eval(program)
	return result, out.String(), err
}

func evalOrFail(t *testing.T, input string) (object.Object, string) {
	t.Helper()
	result, out, err := testEval(t, input)
	if err != nil {
		t.Fatalf("unexpected error for %q: %v", input, err)
	}
	return result, out
}

func testNumberObject(t *testing.T, obj object.Object, expected float64) bool {
	t.Helper()
	result, ok := obj.(*object.Number)
	if !ok {
		t.Errorf("object is not Number. got=%T (%+v)", obj, obj)
		return false
	}
	if result.Value != expected {
		t.Errorf("object has wrong value. got=%v, want=%v", result.Value, expected)
		return false
	}
	return true
}

func testBooleanObject(t *testing.T, obj object.Object, expected bool) bool {
	t.Helper()
	result, ok := obj.(*object.Boolean)
	if !ok {
		t.Errorf("object is not Boolean. got=%T (%+v)", obj, obj)
		return false
	}
	if result.Value != expected {
		t.Errorf("object has wrong value. got=%t, want=%t", result.Value, expected)
		return false
	}
	return true
}

func TestEvalNumberExpression(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"5", 5},
		{"-5", -5},
		{"+5", 5},
		{"- -5", 5},
		{"1 + 2 * 3", 7},
		{"(1 + 2) * 3", 9},
		{"10 - 4 - 3", 3},
		{"7 / 2", 3.5},
		{"7 % 3", 1},
		{"-7 % 3", -1},
		{"5.5 % 2", 1.5},
		{"2 * (5 + 10) / 3", 10},
	}

	for i, tt := range tests {
		evaluated, _ := evalOrFail(t, tt.input)
		if !testNumberObject(t, evaluated, tt.expected) {
			t.Errorf("tests[%d] - input %q", i, tt.input)
		}
	}
}

func TestEvalBooleanExpression(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"true", true},
		{"false", false},
		{"1 < 2", true},
		{"1 > 2", false},
		{"2 <= 2", true},
		{"3 >= 4", false},
		{"1 == 1", true},
		{"1 != 1", false},
		{`"a" == "a"`, true},
		{`"a" != "b"`, true},
		{`1 == "1"`, false},
		{`1 != "1"`, true},
		{"true == (1 < 2)", true},
		{"not true", false},
		{"not 0", true},
		{`not ""`, true},
		{"not undefined", true},
		{"1 and 2", true},
		{`1 and ""`, false},
		{"0 or false", false},
		{`0 or "x"`, true},
	}

	for i, tt := range tests {
		evaluated, _ := evalOrFail(t, tt.input)
		if !testBooleanObject(t, evaluated, tt.expected) {
			t.Errorf("tests[%d] - input %q", i, tt.input)
		}
	}
}

func TestStringConcatenation(t *testing.T) {
	evaluated, _ := evalOrFail(t, `"Hello" + " " + "World!"`)

	str, ok := evaluated.(*object.String)
	if !ok {
		t.Fatalf("object is not String. got=%T (%+v)", evaluated, evaluated)
	}
	if str.Value != "Hello World!" {
		t.Errorf("String has wrong value. got=%q", str.Value)
	}
}

func TestPrint(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"x = 5\nprint x", "5\n"},
		{"print 2.5", "2.5\n"},
		{`print "hi"`, "hi\n"},
		{"print 1 == 1", "true\n"},
		{"print nothing", "null\n"},
		{"def f():\n    return 1\nprint f", "<function>\n"},
		{"print 1\nprint 2", "1\n2\n"},
	}

	for i, tt := range tests {
		result, out := evalOrFail(t, tt.input)
		if out != tt.expected {
			t.Errorf("tests[%d] - output wrong. expected=%q, got=%q", i, tt.expected, out)
		}
		if result != object.NULL {
			t.Errorf("tests[%d] - print should yield null, got %s", i, result.Inspect())
		}
	}
}

func TestAssignment(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"a = 5", 5},
		{"a = 5\na", 5},
		{"a = 5 * 5\na", 25},
		{"a = 5\nb = a\nb", 5},
		{"a = 5\na = a + 1\na", 6},
	}

	for _, tt := range tests {
		evaluated, _ := evalOrFail(t, tt.input)
		testNumberObject(t, evaluated, tt.expected)
	}
}

func TestUndefinedVariableIsNull(t *testing.T) {
	evaluated, _ := evalOrFail(t, "missing")
	if evaluated != object.NULL {
		t.Errorf("expected null, got %T (%+v)", evaluated, evaluated)
	}
}

func TestIfStatements(t *testing.T) {
	tests := []struct {
		input    string
		expected interface{}
	}{
		{"if true: 10", 10.0},
		{"if false: 10", nil},
		{"if 1: 10", 10.0},
		{"if -1: 10", 10.0},
		{"if 0: 10", nil},
		{`if "": 10`, nil},
		{`if "x": 10`, 10.0},
		{"if undefined: 10", nil},
		{"if 1 < 2: 10\nelse: 20", 10.0},
		{"if 1 > 2: 10\nelse: 20", 20.0},
		{"if 1 > 2:\n    10\nelse:\n    x = 20\n    x + 1", 21.0},
	}

	for i, tt := range tests {
		evaluated, _ := evalOrFail(t, tt.input)
		switch expected := tt.expected.(type) {
		case float64:
			if !testNumberObject(t, evaluated, expected) {
				t.Errorf("tests[%d] - input %q", i, tt.input)
			}
		default:
			if evaluated != object.NULL {
				t.Errorf("tests[%d] - expected null for %q, got %s", i, tt.input, evaluated.Inspect())
			}
		}
	}
}

func TestWhileLoop(t *testing.T) {
	input := `
i = 1
sum = 0
while i <= 10:
    sum = sum + i
    i = i + 1
sum
`
	evaluated, _ := evalOrFail(t, input)
	testNumberObject(t, evaluated, 55)

	evaluated, _ = evalOrFail(t, "while false: 1")
	if evaluated != object.NULL {
		t.Errorf("loop that never ran should yield null, got %s", evaluated.Inspect())
	}

	evaluated, _ = evalOrFail(t, "n = 3\nwhile n > 0: n = n - 1")
	testNumberObject(t, evaluated, 0)
}

func TestIfAndWhileBodiesPersistAssignments(t *testing.T) {
	_, out := evalOrFail(t, "if true:\n    y = 1\nprint y")
	if out != "1\n" {
		t.Errorf("assignment inside if body should persist, got %q", out)
	}

	_, out = evalOrFail(t, "i = 0\nwhile i < 3:\n    last = i\n    i = i + 1\nprint last")
	if out != "2\n" {
		t.Errorf("assignment inside while body should persist, got %q", out)
	}
}

func TestBlockDiscardsBindings(t *testing.T) {
	var out bytes.Buffer
	e := New(&out)
	e.Env().Set("x", &object.Number{Value: 1})

	block := &ast.Block{Statements: []ast.Statement{
		&ast.Assignment{Name: "x", Value: &ast.NumberLiteral{Value: 2}},
		&ast.Assignment{Name: "y", Value: &ast.NumberLiteral{Value: 3}},
		&ast.ExpressionStatement{Expression: &ast.Identifier{Value: "y"}},
	}}

	result, err := e.Eval(block)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testNumberObject(t, result, 3)

	if _, ok := e.Env().Get("y"); ok {
		t.Errorf("y assigned inside block should be gone")
	}
	x, _ := e.Env().Get("x")
	testNumberObject(t, x, 1)
}

func TestBlockRestoresAfterReturn(t *testing.T) {
	e := New(&bytes.Buffer{})

	block := &ast.Block{Statements: []ast.Statement{
		&ast.Assignment{Name: "z", Value: &ast.NumberLiteral{Value: 1}},
		&ast.ReturnStatement{ReturnValue: &ast.Identifier{Value: "z"}},
	}}

	result, err := e.Eval(block)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := result.(*object.ReturnValue); !ok {
		t.Errorf("expected ReturnValue, got %T", result)
	}
	if _, ok := e.Env().Get("z"); ok {
		t.Errorf("z should be discarded even when the block returns")
	}
}

func TestFunctions(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"def add(a, b):\n    return a + b\nadd(2, 3)", 5},
		{"def identity(x): return x\nidentity(5)", 5},
		{"def double(x): return x * 2\ndouble(double(3))", 12},
		{"def k(): return 7\nk()", 7},
		{"x = 10\ndef f(): return x\nf()", 10},
		{"def f(a):\n    if a > 0:\n        return 1\n    return 2\nf(1) + f(-1)", 3},
		{"def f():\n    i = 0\n    while true:\n        i = i + 1\n        if i == 4: return i\nf()", 4},
		{"def f(x): return x\nf(1 + 2 * 3)", 7},
	}

	for i, tt := range tests {
		evaluated, _ := evalOrFail(t, tt.input)
		if !testNumberObject(t, evaluated, tt.expected) {
			t.Errorf("tests[%d] - input %q", i, tt.input)
		}
	}
}

func TestAddPrintsFive(t *testing.T) {
	_, out := evalOrFail(t, "def add(a, b):\n    return a + b\nprint add(2, 3)")
	if out != "5\n" {
		t.Errorf("expected %q, got %q", "5\n", out)
	}
}

func TestRecursion(t *testing.T) {
	input := `
def factorial(n):
    if n <= 1:
        return 1
    return n * factorial(n - 1)
factorial(5)
`
	evaluated, _ := evalOrFail(t, input)
	testNumberObject(t, evaluated, 120)
}

func TestFunctionWithoutReturnIsNull(t *testing.T) {
	evaluated, out := evalOrFail(t, "def f(): print 1\nf()")
	if evaluated != object.NULL {
		t.Errorf("expected null, got %s", evaluated.Inspect())
	}
	if out != "1\n" {
		t.Errorf("body should still run, got %q", out)
	}
}

func TestCallsDoNotMutateCaller(t *testing.T) {
	input := `
x = 1
def f(a):
    x = 100
    y = a
    return x
r = f(5)
`
	var out bytes.Buffer
	e := New(&out)
	program, err := parser.Parse(input)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if _, err := e.Eval(program); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	x, _ := e.Env().Get("x")
	testNumberObject(t, x, 1)
	r, _ := e.Env().Get("r")
	testNumberObject(t, r, 100)
	if _, ok := e.Env().Get("y"); ok {
		t.Errorf("callee binding y leaked into caller")
	}
	if _, ok := e.Env().Get("a"); ok {
		t.Errorf("parameter a leaked into caller")
	}
}

func TestOperandsAlwaysEvaluated(t *testing.T) {
	input := `
def say(v):
    print v
    return v
false and say(1)
true or say(2)
`
	_, out := evalOrFail(t, input)
	if out != "1\n2\n" {
		t.Errorf("both operands should be evaluated, got %q", out)
	}
}

func TestTopLevelReturnStopsProgram(t *testing.T) {
	evaluated, out := evalOrFail(t, "print 1\nreturn 2\nprint 3")
	rv, ok := evaluated.(*object.ReturnValue)
	if !ok {
		t.Fatalf("expected ReturnValue, got %T", evaluated)
	}
	testNumberObject(t, rv.Value, 2)
	if out != "1\n" {
		t.Errorf("statements after return should not run, got %q", out)
	}
}

func TestEvaluationIsRepeatable(t *testing.T) {
	program, err := parser.Parse("(3 + 4) * 2 == 14")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	var out bytes.Buffer
	e := New(&out)
	first, err := e.Eval(program)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := e.Env().Len()
	second, err := e.Eval(program)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !object.Equal(first, second) {
		t.Errorf("results differ: %s vs %s", first.Inspect(), second.Inspect())
	}
	if e.Env().Len() != before || out.Len() != 0 {
		t.Errorf("pure expression had side effects")
	}
}

func TestErrorHandling(t *testing.T) {
	tests := []struct {
		input   string
		kind    error
		message string
	}{
		{`1 + "a"`, ErrTypeMismatch, "unsupported operand types for +: NUMBER and STRING"},
		{`"a" - "b"`, ErrTypeMismatch, "unsupported operand types for -: STRING and STRING"},
		{`"a" < "b"`, ErrTypeMismatch, "unsupported operand types for <: STRING and STRING"},
		{"true * 2", ErrTypeMismatch, "unsupported operand types for *: BOOLEAN and NUMBER"},
		{`-"a"`, ErrTypeMismatch, "unsupported operand type for -: STRING"},
		{"+true", ErrTypeMismatch, "unsupported operand type for +: BOOLEAN"},
		{"1 / 0", ErrDivisionByZero, "division by zero"},
		{"1 % 0", ErrDivisionByZero, "division by zero"},
		{"nope(1)", ErrNotAFunction, "function 'nope' is not defined"},
		{"x = 1\nx()", ErrNotAFunction, "'x' is not a function: NUMBER"},
		{"def add(a, b): return a + b\nadd(1)", ErrArity, "function 'add' expects 2 arguments, got 1"},
		{"def f(): return 1\nf(1, 2)", ErrArity, "function 'f' expects 0 arguments, got 2"},
		{"def f(a): return a / 0\nprint 1\nf(1)", ErrDivisionByZero, "division by zero"},
		{"if 1 + true: print 1", ErrTypeMismatch, "unsupported operand types for +"},
	}

	for i, tt := range tests {
		_, _, err := testEval(t, tt.input)
		if err == nil {
			t.Errorf("tests[%d] - expected an error for %q", i, tt.input)
			continue
		}

		var evalErr *Error
		if !errors.As(err, &evalErr) {
			t.Errorf("tests[%d] - expected *evaluator.Error, got %T: %v", i, err, err)
			continue
		}
		if !errors.Is(err, tt.kind) {
			t.Errorf("tests[%d] - wrong kind. expected=%v, got=%v", i, tt.kind, evalErr.Kind)
		}
		if len(evalErr.Message) < len(tt.message) || evalErr.Message[:len(tt.message)] != tt.message {
			t.Errorf("tests[%d] - wrong message. expected=%q, got=%q", i, tt.message, evalErr.Message)
		}
	}
}

func TestErrorStopsEvaluation(t *testing.T) {
	_, out, err := testEval(t, "print 1\nx = 1 / 0\nprint 2")
	if !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("expected division by zero, got %v", err)
	}
	if out != "1\n" {
		t.Errorf("evaluation should stop at the error, got %q", out)
	}
}

func TestErrorCarriesToken(t *testing.T) {
	_, _, err := testEval(t, "x = 1\ny = x + \"s\"")

	var evalErr *Error
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected *evaluator.Error, got %T", err)
	}
	if evalErr.Token.Type != token.PLUS {
		t.Errorf("error should point at the operator, got %s", evalErr.Token.Type)
	}
}

func TestArityCheckedBeforeArguments(t *testing.T) {
	_, out, err := testEval(t, "def f(a): return a\ndef p():\n    print 1\n    return 1\nf(p(), p())")
	if !errors.Is(err, ErrArity) {
		t.Fatalf("expected arity error, got %v", err)
	}
	if out != "" {
		t.Errorf("arguments should not run when arity is wrong, got %q", out)
	}
}

func TestReset(t *testing.T) {
	e := New(&bytes.Buffer{})
	e.Env().Set("x", object.TRUE)
	e.Reset()
	if e.Env().Len() != 0 {
		t.Errorf("reset should clear the environment")
	}
}

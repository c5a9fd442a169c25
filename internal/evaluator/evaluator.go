package evaluator

import (
	"fmt"
	"io"
	"log/slog"
	"pebble/internal/ast"
	"pebble/internal/object"
)

// Evaluator walks the syntax tree against one current environment.
// print output goes to out.
type Evaluator struct {
	env   *object.Environment
	out   io.Writer
	depth int // active function calls
}

func New(out io.Writer) *Evaluator {
	return &Evaluator{env: object.NewEnvironment(), out: out}
}

// Env returns the current environment.
func (e *Evaluator) Env() *object.Environment {
	return e.env
}

// Reset drops every binding.
func (e *Evaluator) Reset() {
	e.env = object.NewEnvironment()
}

func (e *Evaluator) Eval(node ast.Node) (object.Object, error) {
	switch node := node.(type) {

	// Statements
	case *ast.Program:
		return e.evalStatements(node.Statements)

	case *ast.Block:
		return e.evalBlock(node)

	case *ast.ExpressionStatement:
		return e.Eval(node.Expression)

	case *ast.Assignment:
		val, err := e.Eval(node.Value)
		if err != nil {
			return nil, err
		}
		return e.env.Set(node.Name, val), nil

	case *ast.IfStatement:
		return e.evalIfStatement(node)

	case *ast.WhileStatement:
		return e.evalWhileStatement(node)

	case *ast.FunctionDefinition:
		fn := &object.Function{Name: node.Name, Parameters: node.Parameters, Body: node.Body}
		return e.env.Set(node.Name, fn), nil

	case *ast.ReturnStatement:
		val, err := e.Eval(node.ReturnValue)
		if err != nil {
			return nil, err
		}
		return &object.ReturnValue{Value: val}, nil

	case *ast.PrintStatement:
		val, err := e.Eval(node.Value)
		if err != nil {
			return nil, err
		}
		if _, err := fmt.Fprintln(e.out, val.Inspect()); err != nil {
			return nil, fmt.Errorf("print: %w", err)
		}
		return object.NULL, nil

	// Expressions
	case *ast.NumberLiteral:
		return &object.Number{Value: node.Value}, nil

	case *ast.StringLiteral:
		return &object.String{Value: node.Value}, nil

	case *ast.Boolean:
		return object.NativeBoolToBooleanObject(node.Value), nil

	case *ast.Identifier:
		if val, ok := e.env.Get(node.Value); ok {
			return val, nil
		}
		return object.NULL, nil

	case *ast.PrefixExpression:
		right, err := e.Eval(node.Right)
		if err != nil {
			return nil, err
		}
		return evalPrefixExpression(node, right)

	case *ast.InfixExpression:
		left, err := e.Eval(node.Left)
		if err != nil {
			return nil, err
		}
		right, err := e.Eval(node.Right)
		if err != nil {
			return nil, err
		}
		return evalInfixExpression(node, left, right)

	case *ast.CallExpression:
		return e.evalCallExpression(node)
	}

	return nil, fmt.Errorf("cannot evaluate %T", node)
}

// evalStatements runs statements against the current environment. A
// ReturnValue stops the sequence and is handed back still wrapped.
func (e *Evaluator) evalStatements(stmts []ast.Statement) (object.Object, error) {
	var result object.Object = object.NULL

	for _, statement := range stmts {
		val, err := e.Eval(statement)
		if err != nil {
			return nil, err
		}
		result = val

		if _, ok := result.(*object.ReturnValue); ok {
			return result, nil
		}
	}

	return result, nil
}

// evalBlock discards every binding the block makes or changes.
func (e *Evaluator) evalBlock(block *ast.Block) (object.Object, error) {
	saved := e.env.Clone()
	defer func() { e.env = saved }()

	return e.evalStatements(block.Statements)
}

func (e *Evaluator) evalIfStatement(ie *ast.IfStatement) (object.Object, error) {
	condition, err := e.Eval(ie.Condition)
	if err != nil {
		return nil, err
	}

	switch {
	case object.IsTruthy(condition):
		return e.evalStatements(ie.Consequence.Statements)
	case ie.Alternative != nil:
		return e.evalStatements(ie.Alternative.Statements)
	default:
		return object.NULL, nil
	}
}

func (e *Evaluator) evalWhileStatement(ws *ast.WhileStatement) (object.Object, error) {
	var result object.Object = object.NULL

	for {
		condition, err := e.Eval(ws.Condition)
		if err != nil {
			return nil, err
		}
		if !object.IsTruthy(condition) {
			return result, nil
		}

		result, err = e.evalStatements(ws.Body.Statements)
		if err != nil {
			return nil, err
		}
		if _, ok := result.(*object.ReturnValue); ok {
			return result, nil
		}
	}
}

func (e *Evaluator) evalCallExpression(call *ast.CallExpression) (object.Object, error) {
	val, ok := e.env.Get(call.Function)
	if !ok {
		return nil, newError(ErrNotAFunction, call.Token,
			"function '%s' is not defined", call.Function)
	}
	fn, ok := val.(*object.Function)
	if !ok {
		return nil, newError(ErrNotAFunction, call.Token,
			"'%s' is not a function: %s", call.Function, val.Type())
	}
	if len(call.Arguments) != len(fn.Parameters) {
		return nil, newError(ErrArity, call.Token,
			"function '%s' expects %d arguments, got %d",
			call.Function, len(fn.Parameters), len(call.Arguments))
	}

	callEnv := e.env.Clone()
	for i, arg := range call.Arguments {
		argVal, err := e.Eval(arg)
		if err != nil {
			return nil, err
		}
		callEnv.Set(fn.Parameters[i], argVal)
	}

	callee := &Evaluator{env: callEnv, out: e.out, depth: e.depth + 1}
	slog.Debug("call", "function", call.Function, "depth", callee.depth)

	result, err := callee.Eval(fn.Body)
	if err != nil {
		return nil, err
	}
	if rv, ok := result.(*object.ReturnValue); ok {
		return rv.Value, nil
	}
	return object.NULL, nil
}

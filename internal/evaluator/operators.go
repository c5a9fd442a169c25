package evaluator

import (
	"math"
	"pebble/internal/ast"
	"pebble/internal/object"
)

func evalPrefixExpression(node *ast.PrefixExpression, right object.Object) (object.Object, error) {
	switch node.Operator {
	case "not":
		return object.NativeBoolToBooleanObject(!object.IsTruthy(right)), nil
	case "-", "+":
		num, ok := right.(*object.Number)
		if !ok {
			return nil, newError(ErrTypeMismatch, node.Token,
				"unsupported operand type for %s: %s", node.Operator, right.Type())
		}
		if node.Operator == "-" {
			return &object.Number{Value: -num.Value}, nil
		}
		return num, nil
	default:
		return nil, newError(ErrUnknownOperator, node.Token,
			"unknown operator: %s%s", node.Operator, right.Type())
	}
}

func evalInfixExpression(node *ast.InfixExpression, left, right object.Object) (object.Object, error) {
	switch node.Operator {
	case "==":
		return object.NativeBoolToBooleanObject(object.Equal(left, right)), nil
	case "!=":
		return object.NativeBoolToBooleanObject(!object.Equal(left, right)), nil
	case "and":
		return object.NativeBoolToBooleanObject(object.IsTruthy(left) && object.IsTruthy(right)), nil
	case "or":
		return object.NativeBoolToBooleanObject(object.IsTruthy(left) || object.IsTruthy(right)), nil
	}

	if _, known := numberOperators[node.Operator]; !known {
		return nil, newError(ErrUnknownOperator, node.Token,
			"unknown operator: %s %s %s", left.Type(), node.Operator, right.Type())
	}

	if node.Operator == "+" {
		if l, ok := left.(*object.String); ok {
			if r, ok := right.(*object.String); ok {
				return &object.String{Value: l.Value + r.Value}, nil
			}
		}
	}

	l, lok := left.(*object.Number)
	r, rok := right.(*object.Number)
	if !lok || !rok {
		return nil, newError(ErrTypeMismatch, node.Token,
			"unsupported operand types for %s: %s and %s", node.Operator, left.Type(), right.Type())
	}

	if (node.Operator == "/" || node.Operator == "%") && r.Value == 0 {
		return nil, newError(ErrDivisionByZero, node.Token, "division by zero")
	}

	return numberOperators[node.Operator](l.Value, r.Value), nil
}

var numberOperators = map[string]func(l, r float64) object.Object{
	"+":  func(l, r float64) object.Object { return &object.Number{Value: l + r} },
	"-":  func(l, r float64) object.Object { return &object.Number{Value: l - r} },
	"*":  func(l, r float64) object.Object { return &object.Number{Value: l * r} },
	"/":  func(l, r float64) object.Object { return &object.Number{Value: l / r} },
	"%":  func(l, r float64) object.Object { return &object.Number{Value: math.Mod(l, r)} },
	"<":  func(l, r float64) object.Object { return object.NativeBoolToBooleanObject(l < r) },
	">":  func(l, r float64) object.Object { return object.NativeBoolToBooleanObject(l > r) },
	"<=": func(l, r float64) object.Object { return object.NativeBoolToBooleanObject(l <= r) },
	">=": func(l, r float64) object.Object { return object.NativeBoolToBooleanObject(l >= r) },
}

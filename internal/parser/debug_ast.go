package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"pebble/internal/ast"

	"gopkg.in/yaml.v3"
)

// WalkAST recursively traverses an AST and serializes it into a map structure.
// Keys carry a numeric prefix so that encoders which sort keys keep the
// natural field order.
func WalkAST(node ast.Node) interface{} {
	switch n := node.(type) {
	case *ast.Program:
		return map[string]interface{}{
			"0.type":       "Program",
			"1.statements": walkStatements(n.Statements),
		}

	case *ast.Block:
		if n == nil {
			return nil
		}
		return map[string]interface{}{
			"0.type":       "Block",
			"1.position":   n.Token.Position,
			"2.statements": walkStatements(n.Statements),
		}

	case *ast.ExpressionStatement:
		return map[string]interface{}{
			"0.type":       "ExpressionStatement",
			"1.position":   n.Token.Position,
			"2.expression": WalkAST(n.Expression),
		}

	case *ast.Assignment:
		return map[string]interface{}{
			"0.type":     "Assignment",
			"1.position": n.Token.Position,
			"2.name":     n.Name,
			"3.value":    WalkAST(n.Value),
		}

	case *ast.IfStatement:
		return map[string]interface{}{
			"0.type":        "IfStatement",
			"1.position":    n.Token.Position,
			"2.condition":   WalkAST(n.Condition),
			"3.consequence": WalkAST(n.Consequence),
			"4.alternative": WalkAST(n.Alternative),
		}

	case *ast.WhileStatement:
		return map[string]interface{}{
			"0.type":      "WhileStatement",
			"1.position":  n.Token.Position,
			"2.condition": WalkAST(n.Condition),
			"3.body":      WalkAST(n.Body),
		}

	case *ast.FunctionDefinition:
		return map[string]interface{}{
			"0.type":       "FunctionDefinition",
			"1.position":   n.Token.Position,
			"2.name":       n.Name,
			"3.parameters": n.Parameters,
			"4.body":       WalkAST(n.Body),
		}

	case *ast.ReturnStatement:
		return map[string]interface{}{
			"0.type":        "ReturnStatement",
			"1.position":    n.Token.Position,
			"2.returnValue": WalkAST(n.ReturnValue),
		}

	case *ast.PrintStatement:
		return map[string]interface{}{
			"0.type":     "PrintStatement",
			"1.position": n.Token.Position,
			"2.value":    WalkAST(n.Value),
		}

	case *ast.Identifier:
		return map[string]interface{}{
			"0.type":     "Identifier",
			"1.position": n.Token.Position,
			"2.value":    n.Value,
		}

	case *ast.NumberLiteral:
		return map[string]interface{}{
			"0.type":     "NumberLiteral",
			"1.position": n.Token.Position,
			"2.value":    n.Value,
		}

	case *ast.StringLiteral:
		return map[string]interface{}{
			"0.type":     "StringLiteral",
			"1.position": n.Token.Position,
			"2.value":    n.Value,
		}

	case *ast.Boolean:
		return map[string]interface{}{
			"0.type":     "Boolean",
			"1.position": n.Token.Position,
			"2.value":    n.Value,
		}

	case *ast.PrefixExpression:
		return map[string]interface{}{
			"0.type":     "PrefixExpression",
			"1.position": n.Token.Position,
			"2.operator": n.Operator,
			"3.right":    WalkAST(n.Right),
		}

	case *ast.InfixExpression:
		return map[string]interface{}{
			"0.type":     "InfixExpression",
			"1.position": n.Token.Position,
			"2.left":     WalkAST(n.Left),
			"3.operator": n.Operator,
			"4.right":    WalkAST(n.Right),
		}

	case *ast.CallExpression:
		args := make([]interface{}, len(n.Arguments))
		for i, a := range n.Arguments {
			args[i] = WalkAST(a)
		}
		return map[string]interface{}{
			"0.type":      "CallExpression",
			"1.position":  n.Token.Position,
			"2.function":  n.Function,
			"3.arguments": args,
		}

	case nil:
		return nil

	default:
		return map[string]interface{}{
			"0.type": "Unknown",
			"1.node": fmt.Sprintf("%T", n),
		}
	}
}

func walkStatements(stmts []ast.Statement) []interface{} {
	statements := make([]interface{}, len(stmts))
	for i, s := range stmts {
		statements[i] = WalkAST(s)
	}
	return statements
}

func RenderASTAsJSON(node ast.Node) (string, error) {
	buf := new(bytes.Buffer)
	encoder := json.NewEncoder(buf)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(WalkAST(node)); err != nil {
		return "", fmt.Errorf("failed to encode JSON: %w", err)
	}
	return buf.String(), nil
}

func RenderASTAsYAML(node ast.Node) (string, error) {
	buf := new(bytes.Buffer)
	encoder := yaml.NewEncoder(buf)
	encoder.SetIndent(2)

	if err := encoder.Encode(WalkAST(node)); err != nil {
		return "", fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return "", fmt.Errorf("failed to encode YAML: %w", err)
	}
	return buf.String(), nil
}

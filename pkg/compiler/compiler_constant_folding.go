package compiler

import "flowa/pkg/ast"

// foldConstants evaluates a binary expression whose operands are both
// number literals at compile time, avoiding the opcode + stack traffic
// for expressions like "1 + 2" that appear directly in source.  It does
// not attempt to fold through intermediate non-literal expressions.
func foldConstants(e *ast.BinaryExpr) ast.Expression {
	left, leftOk := e.Left.(*ast.NumberLiteral)
	right, rightOk := e.Right.(*ast.NumberLiteral)
	if !leftOk || !rightOk {
		return nil
	}

	switch e.Op {
	case "+":
		return &ast.NumberLiteral{Token: e.Token, Value: left.Value + right.Value}
	case "-":
		return &ast.NumberLiteral{Token: e.Token, Value: left.Value - right.Value}
	case "*":
		return &ast.NumberLiteral{Token: e.Token, Value: left.Value * right.Value}
	case "/":
		if right.Value == 0 {
			return nil
		}
		return &ast.NumberLiteral{Token: e.Token, Value: left.Value / right.Value}
	case "==":
		return &ast.BoolLiteral{Token: e.Token, Value: left.Value == right.Value}
	case "!=":
		return &ast.BoolLiteral{Token: e.Token, Value: left.Value != right.Value}
	case "<":
		return &ast.BoolLiteral{Token: e.Token, Value: left.Value < right.Value}
	case "<=":
		return &ast.BoolLiteral{Token: e.Token, Value: left.Value <= right.Value}
	case ">":
		return &ast.BoolLiteral{Token: e.Token, Value: left.Value > right.Value}
	case ">=":
		return &ast.BoolLiteral{Token: e.Token, Value: left.Value >= right.Value}
	default:
		return nil
	}
}

package compiler

import (
	"testing"

	"flowa/pkg/ast"
)

func TestFoldConstantsArithmetic(t *testing.T) {
	cases := []struct {
		op   string
		a, b float64
		want float64
	}{
		{"+", 1, 2, 3},
		{"-", 5, 2, 3},
		{"*", 4, 3, 12},
		{"/", 9, 3, 3},
	}
	for _, c := range cases {
		folded := foldConstants(&ast.BinaryExpr{Op: c.op, Left: num(c.a), Right: num(c.b)})
		lit, ok := folded.(*ast.NumberLiteral)
		if !ok {
			t.Fatalf("%s: expected folded NumberLiteral, got %T", c.op, folded)
		}
		if lit.Value != c.want {
			t.Fatalf("%s: want %v, got %v", c.op, c.want, lit.Value)
		}
	}
}

func TestFoldConstantsDivideByZeroDoesNotFold(t *testing.T) {
	folded := foldConstants(&ast.BinaryExpr{Op: "/", Left: num(1), Right: num(0)})
	if folded != nil {
		t.Fatalf("expected division by zero to not fold, got %v", folded)
	}
}

func TestFoldConstantsComparisons(t *testing.T) {
	folded := foldConstants(&ast.BinaryExpr{Op: "<=", Left: num(2), Right: num(2)})
	lit, ok := folded.(*ast.BoolLiteral)
	if !ok {
		t.Fatalf("expected folded BoolLiteral, got %T", folded)
	}
	if !lit.Value {
		t.Fatal("expected 2 <= 2 to fold to true")
	}
}

func TestFoldConstantsNonLiteralOperandDoesNotFold(t *testing.T) {
	folded := foldConstants(&ast.BinaryExpr{Op: "+", Left: num(1), Right: &ast.Identifier{Name: "x"}})
	if folded != nil {
		t.Fatalf("expected non-literal operand to not fold, got %v", folded)
	}
}

package compiler

import (
	"testing"

	"flowa/pkg/ast"
	"flowa/pkg/opcode"
	"flowa/pkg/token"
	"flowa/pkg/value"
)

func concatInstructions(chunks [][]byte) []byte {
	var out []byte
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

func testInstructions(t *testing.T, want [][]byte, got []byte) {
	t.Helper()
	expected := concatInstructions(want)
	if len(got) != len(expected) {
		t.Fatalf("wrong instructions length.\nwant=%v\ngot =%v", expected, got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Fatalf("wrong byte at %d.\nwant=%v\ngot =%v", i, expected, got)
		}
	}
}

func num(v float64) *ast.NumberLiteral { return &ast.NumberLiteral{Value: v} }

func TestLiteralArithmetic(t *testing.T) {
	expr := &ast.BinaryExpr{Op: "+", Left: num(1), Right: &ast.BinaryExpr{Op: "*", Left: num(2), Right: num(3)}}

	bc, err := CompileExpr(expr)
	if err != nil {
		t.Fatalf("compile error: %s", err)
	}

	// "1 + (2 * 3)" is not literal-foldable as a whole because the outer
	// "+" only folds when BOTH of its own operands are literals; here the
	// right operand is itself a BinaryExpr, so it compiles normally and
	// its inner "2 * 3" folds to the literal 6.
	want := [][]byte{
		opcode.Make(opcode.Push, 0), // 1
		opcode.Make(opcode.Push, 1), // 6 (folded 2*3)
		opcode.Make(opcode.Add),
	}
	testInstructions(t, want, bc.Instructions)
}

func TestIfCompilesWithBackpatchedJumps(t *testing.T) {
	expr := &ast.IfExpr{
		Cond: &ast.BoolLiteral{Value: true},
		Then: num(10),
		Else: num(20),
	}
	bc, err := CompileExpr(expr)
	if err != nil {
		t.Fatalf("compile error: %s", err)
	}

	want := [][]byte{
		opcode.Make(opcode.Push, 0),
		opcode.Make(opcode.Jmf, 12),
		opcode.Make(opcode.Push, 1),
		opcode.Make(opcode.Jmp, 15),
		opcode.Make(opcode.Push, 2),
	}
	testInstructions(t, want, bc.Instructions)
}

func TestIdentifierResolvesToLocalOrGlobal(t *testing.T) {
	// fn x = x + y   -- x is a local, y is a free reference => global load.
	expr := &ast.LambdaExpr{
		Params: []string{"x"},
		Body:   &ast.BinaryExpr{Op: "+", Left: &ast.Identifier{Name: "x"}, Right: &ast.Identifier{Name: "y"}},
	}
	bc, err := CompileExpr(expr)
	if err != nil {
		t.Fatalf("compile error: %s", err)
	}
	if len(bc.Constants) == 0 {
		t.Fatal("expected at least one constant (the compiled Fn)")
	}
	fn, ok := bc.Constants[len(bc.Constants)-1].(*value.Fn)
	if !ok {
		t.Fatalf("expected *value.Fn constant, got %T", bc.Constants[len(bc.Constants)-1])
	}
	want := [][]byte{
		opcode.Make(opcode.Save, 0),
		opcode.Make(opcode.Load, 0), // x: local slot 0
		opcode.Make(opcode.Loag, 0), // y: global, pool index 0 (Sym y)
		opcode.Make(opcode.Add),
	}
	testInstructions(t, want, fn.Body.Instructions)
}

// The pool holds at most one entry per distinct literal; a repeated
// literal re-addresses the existing slot.
func TestConstantPoolDeduplicatesLiterals(t *testing.T) {
	prog := []ast.Statement{
		&ast.ExprStatement{Expr: &ast.StringLiteral{Value: "hello"}},
		&ast.ExprStatement{Expr: &ast.StringLiteral{Value: "hello"}},
	}
	bc, err := Compile(prog)
	if err != nil {
		t.Fatalf("compile error: %s", err)
	}
	count := 0
	for _, c := range bc.Constants {
		if value.Equal(c, value.Str("hello")) {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one pooled copy of the literal, found %d", count)
	}
	want := [][]byte{
		opcode.Make(opcode.Push, 0),
		opcode.Make(opcode.Pop),
		opcode.Make(opcode.Push, 0), // same slot, not a new entry
	}
	testInstructions(t, want, bc.Instructions)
}

func TestLetExprWithoutInLeavesNil(t *testing.T) {
	le := &ast.LetExpr{Token: token.Token{Literal: "let"}, Name: "x", Value: num(5)}
	bc, err := CompileExpr(le)
	if err != nil {
		t.Fatalf("compile error: %s", err)
	}
	want := [][]byte{
		opcode.Make(opcode.Push, 0),
		opcode.Make(opcode.Save, 0),
		opcode.Make(opcode.Push, 1), // Nil
	}
	testInstructions(t, want, bc.Instructions)
}

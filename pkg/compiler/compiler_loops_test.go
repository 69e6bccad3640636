package compiler

import (
	"testing"

	"flowa/pkg/ast"
	"flowa/pkg/opcode"
	"flowa/pkg/value"
)

// The language has no while/for loops; iteration is expressed through
// self-recursion and the restricted tail-call form. These tests cover the
// compile shape of that recursion instead of loop constructs.

func findFn(t *testing.T, bc *Bytecode) *value.Fn {
	t.Helper()
	for _, c := range bc.Constants {
		if fn, ok := c.(*value.Fn); ok {
			return fn
		}
	}
	t.Fatal("expected a *value.Fn constant")
	return nil
}

func TestRecursiveDefCompilesTailCallInIfBranch(t *testing.T) {
	// def count n = if n == 0 then n else => count (n - 1)
	body := &ast.IfExpr{
		Cond: &ast.BinaryExpr{Op: "==", Left: &ast.Identifier{Name: "n"}, Right: num(0)},
		Then: &ast.Identifier{Name: "n"},
		Else: &ast.ApplyExpr{
			Callee: &ast.Identifier{Name: "count"},
			Args:   []ast.Expression{&ast.BinaryExpr{Op: "-", Left: &ast.Identifier{Name: "n"}, Right: num(1)}},
			Tail:   true,
		},
	}
	prog := []ast.Statement{
		&ast.DefStatement{Name: "count", Params: []string{"n"}, Value: body},
	}
	bc, err := Compile(prog)
	if err != nil {
		t.Fatalf("compile error: %s", err)
	}
	fn := findFn(t, bc)
	found := false
	for _, b := range fn.Body.Instructions {
		if opcode.Opcode(b) == opcode.TCall {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected TCall somewhere in recursive body, got %v", fn.Body.Instructions)
	}
}

func TestNonTailApplyInsideRecursionEmitsCall(t *testing.T) {
	// def dec n = count (n - 1)   -- no tail marker, plain Call
	body := &ast.ApplyExpr{
		Callee: &ast.Identifier{Name: "count"},
		Args:   []ast.Expression{&ast.BinaryExpr{Op: "-", Left: &ast.Identifier{Name: "n"}, Right: num(1)}},
	}
	prog := []ast.Statement{
		&ast.DefStatement{Name: "dec", Params: []string{"n"}, Value: body},
	}
	bc, err := Compile(prog)
	if err != nil {
		t.Fatalf("compile error: %s", err)
	}
	fn := findFn(t, bc)
	last := fn.Body.Instructions[len(fn.Body.Instructions)-2]
	if opcode.Opcode(last) != opcode.Call {
		t.Fatalf("expected Call, got opcode %v", opcode.Opcode(last))
	}
}

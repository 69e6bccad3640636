package compiler

import (
	"testing"

	"flowa/pkg/ast"
	"flowa/pkg/opcode"
	"flowa/pkg/value"
)

func TestLambdaCompilesParamsAsLeadingSaves(t *testing.T) {
	lambda := &ast.LambdaExpr{
		Params: []string{"a", "b"},
		Body:   &ast.BinaryExpr{Op: "+", Left: &ast.Identifier{Name: "a"}, Right: &ast.Identifier{Name: "b"}},
	}
	bc, err := CompileExpr(lambda)
	if err != nil {
		t.Fatalf("compile error: %s", err)
	}
	if len(bc.Constants) != 1 {
		t.Fatalf("expected exactly one constant (the Fn), got %d", len(bc.Constants))
	}
	fn, ok := bc.Constants[0].(*value.Fn)
	if !ok {
		t.Fatalf("expected *value.Fn constant, got %T", bc.Constants[0])
	}
	if fn.Arity != 2 {
		t.Fatalf("expected arity 2, got %d", fn.Arity)
	}

	want := [][]byte{
		opcode.Make(opcode.Save, 0), // a
		opcode.Make(opcode.Save, 1), // b
		opcode.Make(opcode.Load, 0),
		opcode.Make(opcode.Load, 1),
		opcode.Make(opcode.Add),
	}
	testInstructions(t, want, fn.Body.Instructions)
}

func TestApplyEvaluatesArgumentsInReverse(t *testing.T) {
	apply := &ast.ApplyExpr{
		Callee: &ast.Identifier{Name: "f"},
		Args:   []ast.Expression{num(1), num(2)},
	}
	bc, err := CompileExpr(apply)
	if err != nil {
		t.Fatalf("compile error: %s", err)
	}
	want := [][]byte{
		opcode.Make(opcode.Push, 0), // 2 pushed first
		opcode.Make(opcode.Push, 1), // then 1
		opcode.Make(opcode.Loag, 2), // callee last
		opcode.Make(opcode.Call, 2),
	}
	testInstructions(t, want, bc.Instructions)
}

func TestTailApplyEmitsTCall(t *testing.T) {
	apply := &ast.ApplyExpr{
		Callee: &ast.Identifier{Name: "loop"},
		Args:   []ast.Expression{&ast.Identifier{Name: "n"}},
		Tail:   true,
	}
	bc, err := CompileExpr(apply)
	if err != nil {
		t.Fatalf("compile error: %s", err)
	}
	last := bc.Instructions[len(bc.Instructions)-2]
	if opcode.Opcode(last) != opcode.TCall {
		t.Fatalf("expected trailing TCall, got opcode %v", opcode.Opcode(last))
	}
}

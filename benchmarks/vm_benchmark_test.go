package benchmarks

import (
	"testing"

	"flowa/pkg/compiler"
	"flowa/pkg/lexer"
	"flowa/pkg/parser"
	"flowa/pkg/value"
	"flowa/pkg/vm"
)

var result value.Value

func compileSource(b *testing.B, input string) *compiler.Bytecode {
	b.Helper()
	l := lexer.New(input)
	stmts, perrs := parser.ParseProgram(l)
	if len(perrs) > 0 {
		b.Fatalf("parse errors: %v", perrs)
	}
	bc, err := compiler.Compile(stmts)
	if err != nil {
		b.Fatal(err)
	}
	return bc
}

func BenchmarkVMAddition(b *testing.B) {
	bc := compileSource(b, `
5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5
`)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		machine := vm.New()
		machine.SetConstants(bc.Constants)
		if err := machine.Run(bc.Body()); err != nil {
			b.Fatal(err)
		}
		result = machine.PopLast()
	}
}

func BenchmarkVMComparison(b *testing.B) {
	bc := compileSource(b, "1 < 2")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		machine := vm.New()
		machine.SetConstants(bc.Constants)
		if err := machine.Run(bc.Body()); err != nil {
			b.Fatal(err)
		}
		result = machine.PopLast()
	}
}

func BenchmarkVMTailRecursion(b *testing.B) {
	bc := compileSource(b, `
def sum n acc = if n == 0 then acc else => sum (n - 1) (acc + n)
sum 1000 0
`)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		machine := vm.New()
		machine.SetConstants(bc.Constants)
		if err := machine.Run(bc.Body()); err != nil {
			b.Fatal(err)
		}
		result = machine.PopLast()
	}
}

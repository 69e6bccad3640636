// Command debug_vm compiles and runs a small hard-coded script, printing
// the constant pool, the raw instruction bytes, and the final result —
// a quick smoke check of the compiler/vm wiring.
package main

import (
	"fmt"

	"flowa/pkg/compiler"
	"flowa/pkg/lexer"
	"flowa/pkg/parser"
	"flowa/pkg/vm"
)

func main() {
	input := "let x = 1\nlet y = 2\nx + y"

	l := lexer.New(input)
	stmts, perrs := parser.ParseProgram(l)
	if len(perrs) > 0 {
		panic(fmt.Sprintf("parse errors: %v", perrs))
	}

	bc, err := compiler.Compile(stmts)
	if err != nil {
		panic(err)
	}

	fmt.Printf("Constants: %d\n", len(bc.Constants))
	for i, c := range bc.Constants {
		fmt.Printf("  [%d] = %s\n", i, c.String())
	}

	fmt.Printf("\nInstructions (%d bytes):\n", len(bc.Instructions))
	for i, b := range bc.Instructions {
		fmt.Printf("%02d: %02x\n", i, b)
	}

	machine := vm.New()
	machine.SetConstants(bc.Constants)
	if err := machine.Run(bc.Body()); err != nil {
		panic(err)
	}

	result := machine.PopLast()
	fmt.Printf("\nResult: %s\n", result.String())
}

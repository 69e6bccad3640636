// Command inspect_bytecode compiles a snippet of source and disassembles
// the resulting bytecode: the constant pool followed by one line per
// instruction, each with its raw hex bytes.
package main

import (
	"fmt"
	"os"

	"flowa/pkg/compiler"
	"flowa/pkg/lexer"
	"flowa/pkg/opcode"
	"flowa/pkg/parser"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: inspect_bytecode '<code>'")
		os.Exit(1)
	}

	input := os.Args[1]
	l := lexer.New(input)
	stmts, perrs := parser.ParseProgram(l)

	if len(perrs) != 0 {
		fmt.Println("Parser errors:")
		for _, msg := range perrs {
			fmt.Printf("  %s\n", msg)
		}
		os.Exit(1)
	}

	bc, err := compiler.Compile(stmts)
	if err != nil {
		fmt.Printf("Compiler error: %s\n", err)
		os.Exit(1)
	}

	fmt.Printf("Constants (%d):\n", len(bc.Constants))
	for i, c := range bc.Constants {
		fmt.Printf("  [%d] %s\n", i, c.String())
	}
	fmt.Println()

	fmt.Printf("Instructions (%d bytes):\n", len(bc.Instructions))
	ins := bc.Instructions
	i := 0
	for i < len(ins) {
		def, err := opcode.Lookup(ins[i])
		if err != nil {
			fmt.Printf("%04d ERROR: %s\n", i, err)
			i++
			continue
		}

		operands, read := opcode.ReadOperands(def, ins[i+1:])
		fmt.Printf("%04d %s", i, def.Name)

		for _, op := range operands {
			fmt.Printf(" %d", op)
		}
		fmt.Println()

		fmt.Printf("     Raw: ")
		for k := 0; k < 1+read; k++ {
			fmt.Printf("%02x ", ins[i+k])
		}
		fmt.Println()

		i += 1 + read
	}
}

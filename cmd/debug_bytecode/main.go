// Command debug_bytecode compiles a script and checks every Jmp/Jmf/Try
// instruction's back-patched target in the top-level instruction stream,
// flagging any that still point at offset 0 (the placeholder emitted
// before the jump destination is known) or past the end of the code.
// Function bodies held in the constant pool are not checked.
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
		fmt.Println("Usage: debug_bytecode <file.flowa>")
		os.Exit(1)
	}

	content, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Printf("Error reading file: %s\n", err)
		os.Exit(1)
	}

	l := lexer.New(string(content))
	stmts, perrs := parser.ParseProgram(l)
	if len(perrs) > 0 {
		fmt.Println("Parser errors:")
		for _, msg := range perrs {
			fmt.Printf("  %s\n", msg)
		}
		os.Exit(1)
	}

	bc, err := compiler.Compile(stmts)
	if err != nil {
		fmt.Printf("Compilation failed: %s\n", err)
		os.Exit(1)
	}

	ins := bc.Instructions
	suspect := 0
	i := 0
	for i < len(ins) {
		op := opcode.Opcode(ins[i])
		def, err := opcode.Lookup(byte(op))
		if err != nil {
			i++
			continue
		}

		if op == opcode.Jmp || op == opcode.Jmf || op == opcode.Try {
			target := int(opcode.ReadUint16(ins[i+1:]))
			if target == 0 || target > len(ins) {
				suspect++
				fmt.Printf("suspect back-patch at offset %d: %s -> %d\n", i, def.Name, target)
			}
		}

		i++
		for _, width := range def.OperandWidths {
			i += width
		}
	}

	if suspect == 0 {
		fmt.Println("all jump targets look back-patched correctly")
	} else {
		fmt.Printf("%d suspect jump target(s)\n", suspect)
		os.Exit(1)
	}
}

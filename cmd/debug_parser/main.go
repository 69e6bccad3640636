// Command debug_parser prints the parsed AST for a snippet of source,
// or its parse errors.
package main

import (
	"fmt"
	"os"
	"strings"

	"flowa/pkg/lexer"
	"flowa/pkg/parser"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: debug_parser '<code>'")
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
		fmt.Println()
	}

	var b strings.Builder
	for _, s := range stmts {
		b.WriteString(s.String())
		b.WriteByte('\n')
	}
	fmt.Printf("AST:\n%s\n", b.String())
}

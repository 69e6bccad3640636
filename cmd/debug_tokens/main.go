// Command debug_tokens lexes a snippet (or a file, with -f) and prints
// one line per token with its type, literal and source position.
package main

import (
	"flag"
	"fmt"
	"os"

	"flowa/pkg/lexer"
	"flowa/pkg/token"
)

func main() {
	fromFile := flag.Bool("f", false, "treat the argument as a file path instead of inline source")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Println("Usage: debug_tokens [-f] '<code>'")
		os.Exit(1)
	}

	input := flag.Arg(0)
	if *fromFile {
		content, err := os.ReadFile(input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error reading %s: %v\n", input, err)
			os.Exit(1)
		}
		input = string(content)
	}

	l := lexer.New(input)
	count := 0
	for {
		tok := l.NextToken()
		fmt.Printf("%3d:%-3d %-12s %q\n", tok.Line, tok.Column, tok.Type, tok.Literal)
		count++
		if tok.Type == token.EOF {
			break
		}
	}
	fmt.Printf("\n%d token(s)\n", count)
}

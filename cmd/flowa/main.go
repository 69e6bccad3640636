// Command flowa is the REPL and file evaluator for the language: it
// drives lexer -> parser -> compiler -> vm over a line of input or a
// whole script file.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"flowa/pkg/compiler"
	"flowa/pkg/lexer"
	"flowa/pkg/parser"
	"flowa/pkg/version"
	"flowa/pkg/vm"
)

const prompt = "flowa> "

func printUsage() {
	fmt.Println("Flowa - a small expression-oriented functional language")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  flowa                       Start the REPL")
	fmt.Println("  flowa <script.flowa>        Run a script file")
	fmt.Println("  flowa -debug <script.flowa> Run a script, dumping bytecode first")
	fmt.Println("  flowa --help, -h            Show this help message")
	fmt.Println("  flowa --version, -v         Show version information")
	fmt.Println()
	fmt.Println("Example script:")
	fmt.Println(`  def fib n = if n < 2 then n else fib (n - 1) + fib (n - 2) in fib 10`)
}

func printVersion() {
	fmt.Printf("flowa version %s\n", version.Version)
	fmt.Printf("build date: %s\n", version.BuildDate)
	fmt.Printf("commit: %s\n", version.GitCommit)
}

func main() {
	_ = godotenv.Load()

	helpFlag := flag.Bool("help", false, "show this help message")
	flag.BoolVar(helpFlag, "h", false, "show this help message")
	versionFlag := flag.Bool("version", false, "show version information")
	flag.BoolVar(versionFlag, "v", false, "show version information")
	debugFlag := flag.Bool("debug", false, "dump compiled instructions and constants before running")
	flag.Usage = printUsage
	flag.Parse()

	if *helpFlag {
		printUsage()
		return
	}
	if *versionFlag {
		printVersion()
		return
	}

	args := flag.Args()
	if len(args) < 1 {
		repl(*debugFlag)
		return
	}
	runFile(args[0], *debugFlag)
}

func runFile(path string, debug bool) {
	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading %s: %v\n", path, err)
		os.Exit(1)
	}

	l := lexer.New(string(content))
	stmts, perrs := parser.ParseProgram(l)
	if len(perrs) > 0 {
		fmt.Fprintln(os.Stderr, "parse errors:")
		for _, m := range perrs {
			fmt.Fprintln(os.Stderr, "  "+m)
		}
		os.Exit(1)
	}

	bc, err := compiler.Compile(stmts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "compilation error: %v\n", err)
		os.Exit(1)
	}

	if debug {
		dumpBytecode(bc)
		dumpInsights(analyzeProgram(stmts))
	}

	machine := vm.New()
	machine.SetConstants(bc.Constants)
	if err := machine.Run(bc.Body()); err != nil {
		fmt.Fprintf(os.Stderr, "runtime error: %v\n", err)
		os.Exit(1)
	}
}

// repl is a one-statement-at-a-time evaluator sharing a single VM (and
// therefore a single globals table) and a single compiler across lines.
// One compiler for the whole session means the constant pool only grows,
// so a function defined on an earlier line keeps valid Push/Loag indices
// when called later — each line hands the VM the full accumulated pool.
func repl(debug bool) {
	scanner := bufio.NewScanner(os.Stdin)
	machine := vm.New()
	c := compiler.GetCompiler()
	defer compiler.PutCompiler(c)

	fmt.Println("Flowa REPL - Ctrl-D to exit")
	for {
		fmt.Print(prompt)
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := scanner.Text()
		if line == "" {
			continue
		}

		l := lexer.New(line)
		stmts, perrs := parser.ParseProgram(l)
		if len(perrs) > 0 {
			fmt.Fprintln(os.Stderr, "parse error:")
			for _, m := range perrs {
				fmt.Fprintln(os.Stderr, "  "+m)
			}
			continue
		}

		bc, err := compiler.CompileWith(c, stmts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "compilation error: %v\n", err)
			continue
		}
		if debug {
			dumpBytecode(bc)
			dumpInsights(analyzeProgram(stmts))
		}

		machine.SetConstants(bc.Constants)
		machine.Reset()
		if err := machine.Run(bc.Body()); err != nil {
			fmt.Fprintf(os.Stderr, "runtime error: %v\n", err)
			continue
		}
		fmt.Println(machine.PopLast().String())
	}
}

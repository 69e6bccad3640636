package main

import (
	"fmt"
	"strings"

	"flowa/pkg/ast"
	"flowa/pkg/compiler"
	"flowa/pkg/opcode"
)

// dumpBytecode disassembles bc the way cmd/inspect_bytecode does
// standalone, printing the constant pool followed by one line per
// instruction — used by flowa -debug to show what a script compiled to
// before running it.
func dumpBytecode(bc *compiler.Bytecode) {
	fmt.Printf("constants (%d):\n", len(bc.Constants))
	for i, c := range bc.Constants {
		fmt.Printf("  [%d] %s\n", i, c.String())
	}
	fmt.Println()

	fmt.Printf("instructions (%d bytes):\n", len(bc.Instructions))
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
		i += 1 + read
	}
	fmt.Println()
}

// ProgramInsights is a static summary of a parsed program: every
// top-level binding and how many tail-call sites appear in its body.
// The interesting shape in this language is recursion, so insights
// report tail calls.
type ProgramInsights struct {
	Bindings []BindingInfo
}

type BindingInfo struct {
	Name      string
	Params    []string
	TailCalls int
}

// dumpInsights prints the per-binding summary analyzeProgram builds,
// shown alongside the bytecode dump under -debug.
func dumpInsights(in ProgramInsights) {
	if len(in.Bindings) == 0 {
		return
	}
	fmt.Printf("bindings (%d):\n", len(in.Bindings))
	for _, b := range in.Bindings {
		fmt.Printf("  %s", b.Name)
		if len(b.Params) > 0 {
			fmt.Printf(" %s", strings.Join(b.Params, " "))
		}
		if b.TailCalls > 0 {
			fmt.Printf("  [%d tail call site(s)]", b.TailCalls)
		}
		fmt.Println()
	}
	fmt.Println()
}

// analyzeProgram collects a BindingInfo for each top-level def/let
// statement and one for each method of a type statement.
func analyzeProgram(stmts []ast.Statement) ProgramInsights {
	var insights ProgramInsights
	for _, s := range stmts {
		switch stmt := s.(type) {
		case *ast.DefStatement:
			insights.Bindings = append(insights.Bindings, BindingInfo{
				Name:      stmt.Name,
				Params:    stmt.Params,
				TailCalls: countTailCalls(stmt.Value),
			})
		case *ast.LetStatement:
			insights.Bindings = append(insights.Bindings, BindingInfo{
				Name:      stmt.Name,
				TailCalls: countTailCalls(stmt.Value),
			})
		case *ast.TypeStatement:
			for _, m := range stmt.Methods {
				insights.Bindings = append(insights.Bindings, BindingInfo{
					Name:      stmt.Name + "." + m.Name,
					Params:    m.Params,
					TailCalls: countTailCalls(m.Value),
				})
			}
		}
	}
	return insights
}

// countTailCalls walks e looking for ApplyExpr nodes marked Tail, the
// only form of recursion the compiler turns into a TCall.
func countTailCalls(e ast.Expression) int {
	n := 0
	walkExpr(e, func(node ast.Expression) {
		if apply, ok := node.(*ast.ApplyExpr); ok && apply.Tail {
			n++
		}
	})
	return n
}

func walkExpr(e ast.Expression, visit func(ast.Expression)) {
	if e == nil {
		return
	}
	visit(e)
	switch n := e.(type) {
	case *ast.LambdaExpr:
		walkExpr(n.Body, visit)
	case *ast.LetExpr:
		walkExpr(n.Value, visit)
		walkExpr(n.Body, visit)
	case *ast.IfExpr:
		walkExpr(n.Cond, visit)
		walkExpr(n.Then, visit)
		walkExpr(n.Else, visit)
	case *ast.WhenExpr:
		walkExpr(n.Scrutinee, visit)
		for _, arm := range n.Arms {
			walkExpr(arm.Cond, visit)
			walkExpr(arm.Body, visit)
		}
		walkExpr(n.WildcardBody, visit)
	case *ast.AndExpr:
		walkExpr(n.Left, visit)
		walkExpr(n.Right, visit)
	case *ast.OrExpr:
		walkExpr(n.Left, visit)
		walkExpr(n.Right, visit)
	case *ast.BinaryExpr:
		walkExpr(n.Left, visit)
		walkExpr(n.Right, visit)
	case *ast.UnaryExpr:
		walkExpr(n.Right, visit)
	case *ast.ApplyExpr:
		walkExpr(n.Callee, visit)
		for _, a := range n.Args {
			walkExpr(a, visit)
		}
	case *ast.ListExpr:
		for _, el := range n.Elements {
			walkExpr(el, visit)
		}
	case *ast.ConsExpr:
		walkExpr(n.Head, visit)
		walkExpr(n.Tail, visit)
	case *ast.TupleExpr:
		for _, el := range n.Elements {
			walkExpr(el, visit)
		}
	case *ast.TupleIndexExpr:
		walkExpr(n.Tuple, visit)
	case *ast.DoExpr:
		for _, sub := range n.Exprs {
			walkExpr(sub, visit)
		}
	case *ast.FieldExpr:
		walkExpr(n.Obj, visit)
	case *ast.MethodRefExpr:
		walkExpr(n.Type, visit)
	case *ast.NewExpr:
		walkExpr(n.Type, visit)
		for _, a := range n.Args {
			walkExpr(a, visit)
		}
	case *ast.InvokeExpr:
		walkExpr(n.Obj, visit)
		for _, a := range n.Args {
			walkExpr(a, visit)
		}
	case *ast.TryExpr:
		walkExpr(n.Body, visit)
		walkExpr(n.Rescue, visit)
	}
}

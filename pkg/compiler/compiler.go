// Package compiler lowers an AST into the instruction stream and constant
// pool the VM executes.
package compiler

import (
	"flowa/pkg/ast"
	"flowa/pkg/langerr"
	"flowa/pkg/opcode"
	"flowa/pkg/value"
)

// Bytecode is the top-level (instructions, positions, constant pool)
// triple returned by Compile and CompileExpr — the public surface driven
// by the CLI/REPL and by the VM's Run.
type Bytecode struct {
	Instructions []byte
	Positions    []langerr.Pos
	Constants    []value.Value
}

// Body wraps the instruction stream and its position table as the
// value.Bytecode the VM executes.
func (b *Bytecode) Body() *value.Bytecode {
	return &value.Bytecode{Instructions: b.Instructions, Positions: b.Positions}
}

// Compiler walks an AST, maintaining a stack of scopes and a single,
// ever-growing, de-duplicated constant pool shared by every scope. cur
// tracks the source location of the node being compiled so every emitted
// instruction carries the position runtime errors report.
type Compiler struct {
	scopes    []*scope
	constants []value.Value
	cur       langerr.Pos
}

func New() *Compiler {
	return &Compiler{constants: []value.Value{}}
}

// Compile compiles a whole program: top-level def/let/type declarations
// bind globals; a bare top-level expression leaves its value as the
// final stack-top result (read by PopLast).
func Compile(stmts []ast.Statement) (*Bytecode, error) {
	c := New()
	c.enterScope()
	if err := c.compileProgram(stmts); err != nil {
		return nil, err
	}
	sc := c.leaveScope()
	return &Bytecode{Instructions: sc.instructions, Positions: sc.positions, Constants: c.constants}, nil
}

// CompileExpr compiles a single expression with a fresh compiler and its
// own constant pool. (The REPL keeps one compiler per session and uses
// CompileWith instead.)
func CompileExpr(expr ast.Expression) (*Bytecode, error) {
	c := New()
	c.enterScope()
	if err := c.compileExpr(expr); err != nil {
		return nil, err
	}
	sc := c.leaveScope()
	return &Bytecode{Instructions: sc.instructions, Positions: sc.positions, Constants: c.constants}, nil
}

// CompileWith compiles a whole program using a caller-supplied Compiler
// (see GetCompiler/PutCompiler) instead of allocating a fresh one. A REPL
// holds ONE compiler for its whole session and passes it here line after
// line: the constant pool then only ever grows, so a Push/Loag/Savg index
// embedded in a function compiled on an earlier line stays valid when a
// later line's (larger) pool is handed to the VM. Constant-pool indices
// never shift once assigned.
func CompileWith(c *Compiler, stmts []ast.Statement) (*Bytecode, error) {
	c.enterScope()
	if err := c.compileProgram(stmts); err != nil {
		c.leaveScope()
		return nil, err
	}
	sc := c.leaveScope()
	return &Bytecode{Instructions: sc.instructions, Positions: sc.positions, Constants: c.constants}, nil
}

func (c *Compiler) compileProgram(stmts []ast.Statement) error {
	for i, s := range stmts {
		c.setPos(s)
		switch stmt := s.(type) {
		case *ast.DefStatement:
			if err := c.compileBinding(stmt.Name, stmt.Params, stmt.Value, true); err != nil {
				return err
			}
		case *ast.LetStatement:
			if err := c.compileBinding(stmt.Name, nil, stmt.Value, true); err != nil {
				return err
			}
		case *ast.TypeStatement:
			if err := c.compileType(stmt); err != nil {
				return err
			}
		case *ast.ExprStatement:
			if err := c.compileTopExpr(stmt.Expr); err != nil {
				return err
			}
			if i != len(stmts)-1 {
				c.emit(opcode.Pop)
			}
		default:
			return c.parseErrf("unknown statement %T", s)
		}
	}
	return nil
}

// compileTopExpr compiles one top-level expression statement. A let/def
// expression at this level binds globally rather than to a local slot:
// the scope model has no upvalue capture, so a recursive def's body can
// only reach its own name through the globals table — free variables are
// lifted to globals, exactly like the statement forms of def/let.
func (c *Compiler) compileTopExpr(e ast.Expression) error {
	le, ok := e.(*ast.LetExpr)
	if !ok {
		return c.compileExpr(e)
	}
	if err := c.compileBinding(le.Name, le.Params, le.Value, true); err != nil {
		return err
	}
	if le.Body != nil {
		return c.compileTopExpr(le.Body)
	}
	c.emitPush(value.Nil)
	return nil
}

// compileBinding compiles "name params... = value"; global picks between
// Savg (top-level def/let) and a local Save (let-expression form).
func (c *Compiler) compileBinding(name string, params []string, val ast.Expression, global bool) error {
	if len(params) > 0 {
		fn, err := c.compileLambdaValue(params, name, val)
		if err != nil {
			return err
		}
		idx := c.addConstant(fn)
		c.emit(opcode.Push, idx)
	} else if err := c.compileExpr(val); err != nil {
		return err
	}

	if global {
		idx := c.addConstant(value.NewSym(name))
		c.emit(opcode.Savg, idx)
		return nil
	}

	slot := c.current().define(name)
	c.emit(opcode.Save, slot)
	return nil
}

func (c *Compiler) compileLambdaValue(params []string, name string, body ast.Expression) (*value.Fn, error) {
	c.enterScope()
	for _, p := range params {
		slot := c.current().define(p)
		c.emit(opcode.Save, slot)
	}
	if err := c.compileExpr(body); err != nil {
		c.leaveScope()
		return nil, err
	}
	sc := c.leaveScope()
	bc := &value.Bytecode{Instructions: sc.instructions, Positions: sc.positions}
	return &value.Fn{Name: name, Arity: len(params), Body: bc}, nil
}

func (c *Compiler) compileType(stmt *ast.TypeStatement) error {
	methods := map[string]*value.Fn{}
	for _, m := range stmt.Methods {
		fn, err := c.compileLambdaValue(m.Params, m.Name, m.Value)
		if err != nil {
			return err
		}
		methods[m.Name] = fn
	}
	var init *value.Fn
	if stmt.Init != nil {
		fn, err := c.compileLambdaValue(stmt.Init.Params, stmt.Init.Name, stmt.Init.Value)
		if err != nil {
			return err
		}
		init = fn
	}
	ty := &value.Type{Name: stmt.Name, Params: append([]string(nil), stmt.Params...), Methods: methods, Init: init}
	idx := c.addConstant(ty)
	c.emit(opcode.Push, idx)
	symIdx := c.addConstant(value.NewSym(stmt.Name))
	c.emit(opcode.Savg, symIdx)
	return nil
}

func (c *Compiler) compileExpr(e ast.Expression) error {
	c.setPos(e)
	switch expr := e.(type) {
	case *ast.NumberLiteral:
		c.emitPush(value.Num(expr.Value))
	case *ast.StringLiteral:
		c.emitPush(value.Str(expr.Value))
	case *ast.SymbolLiteral:
		c.emitPush(value.NewSym(expr.Value))
	case *ast.BoolLiteral:
		c.emitPush(value.Bool(expr.Value))
	case *ast.NilLiteral:
		c.emitPush(value.Nil)
	case *ast.Identifier:
		if slot, ok := c.current().resolve(expr.Name); ok {
			c.emit(opcode.Load, slot)
		} else {
			idx := c.addConstant(value.NewSym(expr.Name))
			c.emit(opcode.Loag, idx)
		}
	case *ast.LambdaExpr:
		fn, err := c.compileLambdaValue(expr.Params, "", expr.Body)
		if err != nil {
			return err
		}
		c.emitPush(fn)
	case *ast.LetExpr:
		return c.compileLetExpr(expr)
	case *ast.IfExpr:
		return c.compileIf(expr)
	case *ast.WhenExpr:
		return c.compileWhen(expr)
	case *ast.AndExpr:
		return c.compileAnd(expr)
	case *ast.OrExpr:
		return c.compileOr(expr)
	case *ast.BinaryExpr:
		return c.compileBinary(expr)
	case *ast.UnaryExpr:
		return c.compileUnary(expr)
	case *ast.ApplyExpr:
		return c.compileApply(expr)
	case *ast.ListExpr:
		return c.compileList(expr)
	case *ast.ConsExpr:
		if err := c.compileExpr(expr.Tail); err != nil {
			return err
		}
		if err := c.compileExpr(expr.Head); err != nil {
			return err
		}
		c.emit(opcode.Prep)
	case *ast.TupleExpr:
		for _, el := range expr.Elements {
			if err := c.compileExpr(el); err != nil {
				return err
			}
		}
		c.emit(opcode.Tup, len(expr.Elements))
	case *ast.TupleIndexExpr:
		if err := c.compileExpr(expr.Tuple); err != nil {
			return err
		}
		c.emit(opcode.TupGet, expr.Index)
	case *ast.DoExpr:
		return c.compileDo(expr)
	case *ast.FieldExpr:
		if err := c.compileExpr(expr.Obj); err != nil {
			return err
		}
		idx := c.addConstant(value.NewSym(expr.Field))
		c.emit(opcode.Get, idx)
	case *ast.MethodRefExpr:
		if err := c.compileExpr(expr.Type); err != nil {
			return err
		}
		idx := c.addConstant(value.NewSym(expr.Method))
		c.emit(opcode.Ref, idx)
	case *ast.NewExpr:
		for i := len(expr.Args) - 1; i >= 0; i-- {
			if err := c.compileExpr(expr.Args[i]); err != nil {
				return err
			}
		}
		if err := c.compileExpr(expr.Type); err != nil {
			return err
		}
		c.emit(opcode.New, len(expr.Args))
	case *ast.InvokeExpr:
		return c.compileInvoke(expr)
	case *ast.TryExpr:
		return c.compileTry(expr)
	default:
		return c.parseErrf("unknown expression %T", e)
	}
	return nil
}

func (c *Compiler) compileLetExpr(e *ast.LetExpr) error {
	if err := c.compileBinding(e.Name, e.Params, e.Value, false); err != nil {
		return err
	}
	if e.Body != nil {
		return c.compileExpr(e.Body)
	}
	c.emitPush(value.Nil)
	return nil
}

func (c *Compiler) compileIf(e *ast.IfExpr) error {
	if err := c.compileExpr(e.Cond); err != nil {
		return err
	}
	jmfPos := c.emit(opcode.Jmf, 0)
	if err := c.compileExpr(e.Then); err != nil {
		return err
	}
	jmpPos := c.emit(opcode.Jmp, 0)
	c.patch(jmfPos, c.here())
	if err := c.compileExpr(e.Else); err != nil {
		return err
	}
	c.patch(jmpPos, c.here())
	return nil
}

func (c *Compiler) compileWhen(e *ast.WhenExpr) error {
	if err := c.compileExpr(e.Scrutinee); err != nil {
		return err
	}
	var endJumps []int
	for _, arm := range e.Arms {
		c.emit(opcode.Dup)
		if err := c.compileExpr(arm.Cond); err != nil {
			return err
		}
		c.emit(opcode.Eq)
		jmfPos := c.emit(opcode.Jmf, 0)
		c.emit(opcode.Pop)
		if err := c.compileExpr(arm.Body); err != nil {
			return err
		}
		endJumps = append(endJumps, c.emit(opcode.Jmp, 0))
		c.patch(jmfPos, c.here())
	}
	if e.HasWildcard {
		if e.WildcardBind != "" {
			slot := c.current().define(e.WildcardBind)
			c.emit(opcode.Save, slot)
		}
		if err := c.compileExpr(e.WildcardBody); err != nil {
			return err
		}
	} else {
		c.emit(opcode.Pop)
		c.emitPush(value.Nil)
	}
	for _, p := range endJumps {
		c.patch(p, c.here())
	}
	return nil
}

func (c *Compiler) compileAnd(e *ast.AndExpr) error {
	if err := c.compileExpr(e.Left); err != nil {
		return err
	}
	c.emit(opcode.Dup)
	jmfPos := c.emit(opcode.Jmf, 0)
	c.emit(opcode.Pop)
	if err := c.compileExpr(e.Right); err != nil {
		return err
	}
	c.patch(jmfPos, c.here())
	return nil
}

func (c *Compiler) compileOr(e *ast.OrExpr) error {
	if err := c.compileExpr(e.Left); err != nil {
		return err
	}
	c.emit(opcode.Dup)
	c.emit(opcode.Not)
	jmfPos := c.emit(opcode.Jmf, 0)
	c.emit(opcode.Pop)
	if err := c.compileExpr(e.Right); err != nil {
		return err
	}
	c.patch(jmfPos, c.here())
	return nil
}

func (c *Compiler) compileBinary(e *ast.BinaryExpr) error {
	if folded := foldConstants(e); folded != nil {
		return c.compileExpr(folded)
	}

	swap := e.Op == ">" || e.Op == ">="
	left, right := e.Left, e.Right
	if swap {
		left, right = e.Right, e.Left
	}
	if err := c.compileExpr(left); err != nil {
		return err
	}
	if err := c.compileExpr(right); err != nil {
		return err
	}

	switch e.Op {
	case "+":
		c.emit(opcode.Add)
	case "-":
		c.emit(opcode.Sub)
	case "*":
		c.emit(opcode.Mul)
	case "/":
		c.emit(opcode.Div)
	case "%":
		c.emit(opcode.Mod)
	case "&":
		c.emit(opcode.BitAnd)
	case "|":
		c.emit(opcode.BitOr)
	case "^":
		c.emit(opcode.Xor)
	case "<<":
		c.emit(opcode.Shl)
	case ">>":
		c.emit(opcode.Shr)
	case "==":
		c.emit(opcode.Eq)
	case "!=":
		c.emit(opcode.Eq)
		c.emit(opcode.Not)
	case "<":
		c.emit(opcode.Less)
	case "<=":
		c.emit(opcode.LessEq)
	case ">":
		c.emit(opcode.Less)
	case ">=":
		c.emit(opcode.LessEq)
	default:
		return c.parseErrf("unknown binary operator %q", e.Op)
	}
	return nil
}

func (c *Compiler) compileUnary(e *ast.UnaryExpr) error {
	if err := c.compileExpr(e.Right); err != nil {
		return err
	}
	switch e.Op {
	case "-":
		c.emit(opcode.Neg)
	case "!", "not":
		c.emit(opcode.Not)
	case "~":
		c.emit(opcode.Len)
	default:
		return c.parseErrf("unknown unary operator %q", e.Op)
	}
	return nil
}

func (c *Compiler) compileApply(e *ast.ApplyExpr) error {
	for i := len(e.Args) - 1; i >= 0; i-- {
		if err := c.compileExpr(e.Args[i]); err != nil {
			return err
		}
	}
	if err := c.compileExpr(e.Callee); err != nil {
		return err
	}
	if e.Tail {
		c.emit(opcode.TCall, len(e.Args))
	} else {
		c.emit(opcode.Call, len(e.Args))
	}
	return nil
}

func (c *Compiler) compileList(e *ast.ListExpr) error {
	c.emitPush((*value.List)(nil))
	for i := len(e.Elements) - 1; i >= 0; i-- {
		if err := c.compileExpr(e.Elements[i]); err != nil {
			return err
		}
		c.emit(opcode.Prep)
	}
	return nil
}

func (c *Compiler) compileDo(e *ast.DoExpr) error {
	if len(e.Exprs) == 0 {
		c.emitPush(value.Nil)
		return nil
	}
	for i, sub := range e.Exprs {
		if err := c.compileExpr(sub); err != nil {
			return err
		}
		if i != len(e.Exprs)-1 {
			c.emit(opcode.Pop)
		}
	}
	return nil
}

func (c *Compiler) compileInvoke(e *ast.InvokeExpr) error {
	for i := len(e.Args) - 1; i >= 0; i-- {
		if err := c.compileExpr(e.Args[i]); err != nil {
			return err
		}
	}
	if err := c.compileExpr(e.Obj); err != nil {
		return err
	}
	c.emit(opcode.Dup)
	c.emit(opcode.TypeOf)
	idx := c.addConstant(value.NewSym(e.Method))
	c.emit(opcode.Ref, idx)
	c.emit(opcode.Call, len(e.Args)+1)
	return nil
}

// compileTry lowers try/rescue: Try's patched target is the rescue entry,
// where the VM has already cut the operand stack back to its Try-time
// depth and pushed the raised error's kind symbol — the leading Save
// binds exactly that one value before the rescue body runs.
func (c *Compiler) compileTry(e *ast.TryExpr) error {
	tryPos := c.emit(opcode.Try, 0)
	if err := c.compileExpr(e.Body); err != nil {
		return err
	}
	c.emit(opcode.EndTry)
	endPos := c.emit(opcode.Jmp, 0)
	c.patch(tryPos, c.here())
	slot := c.current().define(e.Bind)
	c.emit(opcode.Save, slot)
	if err := c.compileExpr(e.Rescue); err != nil {
		return err
	}
	c.patch(endPos, c.here())
	return nil
}

// --- low-level emission helpers ---

func (c *Compiler) enterScope() { c.scopes = append(c.scopes, newScope()) }

func (c *Compiler) leaveScope() *scope {
	sc := c.scopes[len(c.scopes)-1]
	c.scopes = c.scopes[:len(c.scopes)-1]
	return sc
}

func (c *Compiler) current() *scope { return c.scopes[len(c.scopes)-1] }

func (c *Compiler) here() int { return len(c.current().instructions) }

func (c *Compiler) emit(op opcode.Opcode, operands ...int) int {
	ins := opcode.Make(op, operands...)
	pos := c.here()
	sc := c.current()
	sc.instructions = append(sc.instructions, ins...)
	for range ins {
		sc.positions = append(sc.positions, c.cur)
	}
	return pos
}

// setPos records n's source location as the position stamped onto every
// instruction emitted until the next node is compiled. Nodes built
// without tokens (tests, synthesized forms) keep the enclosing position.
func (c *Compiler) setPos(n ast.Node) {
	if line, col := n.Pos(); line > 0 {
		c.cur = langerr.Pos{Line: line, Col: col}
	}
}

func (c *Compiler) parseErrf(format string, args ...interface{}) error {
	err := langerr.New(langerr.ParseError, format, args...)
	if c.cur.Line > 0 {
		return err.WithPos(c.cur)
	}
	return err
}

func (c *Compiler) emitPush(v value.Value) {
	idx := c.addConstant(v)
	c.emit(opcode.Push, idx)
}

// patch rewrites the 2-byte operand of the jump/try instruction at pos.
func (c *Compiler) patch(pos int, target int) {
	ins := c.current().instructions
	ins[pos+1] = byte(target >> 8)
	ins[pos+2] = byte(target)
}

// addConstant appends v to the shared pool, reusing an existing
// structurally-equal entry when one exists.
func (c *Compiler) addConstant(v value.Value) int {
	for i, existing := range c.constants {
		if value.Equal(existing, v) {
			return i
		}
	}
	c.constants = append(c.constants, v)
	return len(c.constants) - 1
}

// Package vm executes compiled bytecode against the tagged Value model in
// pkg/value, using the instruction set defined in pkg/opcode.
package vm

import (
	"flowa/pkg/langerr"
	"flowa/pkg/opcode"
	"flowa/pkg/value"
)

const (
	StackSize     = 512
	LocalsSize    = 1024
	MaxCallFrames = 768
)

// frame is one entry on the call-frame stack: the function being executed,
// its instruction pointer, and the base offset into the locals array where
// its slots begin.
type frame struct {
	fn         *value.Fn
	ip         int
	localsBase int
	numLocals  int
}

// handler is one entry on the exception-handler stack: the instruction
// offset to resume at, valid only within the instruction vector of the
// frame that was active when the corresponding Try was executed, the
// frame-stack depth to unwind back to before resuming there, and the
// operand-stack depth at Try time so a partially evaluated try body
// cannot leave stray operands beneath the rescue block's error symbol.
type handler struct {
	target int
	depth  int
	sp     int
}

// VM holds all runtime state for one program. It is not safe for
// concurrent use: exactly one program runs per VM, synchronously.
type VM struct {
	constants []value.Value
	globals   map[string]value.Value

	stack []value.Value
	sp    int

	locals     []value.Value
	usedLocals int

	frames     []*frame
	frameIndex int

	handlers []handler // exception-handler stack

	// source location of the instruction being dispatched, carried as VM
	// fields (not package globals) so independent VMs never interfere.
	line, col int

	lastPopped value.Value
}

// New constructs a VM with the native prelude installed into globals.
func New() *VM {
	vm := &VM{
		globals: make(map[string]value.Value),
		stack:   make([]value.Value, StackSize),
		locals:  make([]value.Value, LocalsSize),
		frames:  make([]*frame, MaxCallFrames),
	}
	installPrelude(vm)
	return vm
}

// SetConstants installs the constant pool produced by the compiler for the
// program about to run.
func (vm *VM) SetConstants(consts []value.Value) {
	vm.constants = consts
}

// GetGlobal looks up a global by name.
func (vm *VM) GetGlobal(name string) (value.Value, bool) {
	v, ok := vm.globals[name]
	return v, ok
}

// SetGlobal installs or overwrites a global.
func (vm *VM) SetGlobal(name string, v value.Value) {
	vm.globals[name] = v
}

// PopLast returns the last value popped off the operand stack by the most
// recent Run — the REPL's "value of the last statement" read.
func (vm *VM) PopLast() value.Value {
	if vm.lastPopped == nil {
		return value.Nil
	}
	return vm.lastPopped
}

// Reset clears per-program runtime state (stack, locals, frames, handlers)
// but leaves globals and the prelude untouched, mirroring a REPL's "new
// statement, same session" semantics.
func (vm *VM) Reset() {
	vm.sp = 0
	vm.usedLocals = 0
	vm.frameIndex = 0
	vm.handlers = vm.handlers[:0]
	vm.line, vm.col = 0, 0
	vm.lastPopped = nil
}

func (vm *VM) push(v value.Value) error {
	if vm.sp >= StackSize {
		return langerr.New(langerr.StackOverflow, "operand stack exceeded %d slots", StackSize)
	}
	vm.stack[vm.sp] = v
	vm.sp++
	return nil
}

func (vm *VM) pop() value.Value {
	vm.sp--
	v := vm.stack[vm.sp]
	vm.stack[vm.sp] = nil
	return v
}

func (vm *VM) top() value.Value {
	return vm.stack[vm.sp-1]
}

func (vm *VM) currentFrame() *frame {
	return vm.frames[vm.frameIndex]
}

func (vm *VM) pushFrame(f *frame) error {
	if vm.frameIndex+1 >= MaxCallFrames {
		return langerr.New(langerr.RecursionErr, "recursion exceeded %d call frames", MaxCallFrames)
	}
	vm.frameIndex++
	vm.frames[vm.frameIndex] = f
	return nil
}

func (vm *VM) popFrame() *frame {
	f := vm.frames[vm.frameIndex]
	vm.frames[vm.frameIndex] = nil
	vm.frameIndex--
	return f
}

func (vm *VM) local(i int) value.Value {
	return vm.locals[vm.currentFrame().localsBase+i]
}

func (vm *VM) setLocal(i int, v value.Value) error {
	f := vm.currentFrame()
	if f.localsBase+i >= LocalsSize {
		return langerr.New(langerr.StackOverflow, "locals array exceeded %d slots", LocalsSize)
	}
	vm.locals[f.localsBase+i] = v
	if i+1 > f.numLocals {
		f.numLocals = i + 1
		if f.localsBase+f.numLocals > vm.usedLocals {
			vm.usedLocals = f.localsBase + f.numLocals
		}
	}
	return nil
}

// Run executes body (the top-level program's or a REPL expression's
// compiled instruction stream plus its position table) to completion,
// under an implicit root frame so Save/Load addressing works the same as
// inside a call.
func (vm *VM) Run(body *value.Bytecode) error {
	root := &frame{fn: &value.Fn{Body: body}, localsBase: vm.usedLocals}
	vm.frameIndex = 0
	vm.frames[0] = root

	if err := vm.runToDepth(-1); err != nil {
		return err
	}
	// Whatever the program's last (unpopped) expression left on the
	// operand stack is its result — PopLast reads it the way a REPL
	// reads "the value of the last statement".
	if vm.sp > 0 {
		vm.lastPopped = vm.pop()
	}
	return nil
}

// runToDepth drives the dispatch loop until the frame stack unwinds back
// down to targetDepth. Pass -1 from Run to mean "run the whole program"
// (the root frame at depth 0 is never popped). Pass the pre-call
// frameIndex from a native caller that pushed exactly one frame and needs
// its return value synchronously — e.g. a type's bytecode initializer,
// see newInstanceViaInit in vm_ops.go — to stop the instant that frame
// returns, without resuming execution of the caller's own instructions.
func (vm *VM) runToDepth(targetDepth int) error {
	for {
		f := vm.currentFrame()
		ins := f.fn.Body.Instructions

		if f.ip >= len(ins) {
			if vm.frameIndex == 0 {
				return nil
			}
			vm.returnFromFrame()
			if vm.frameIndex == targetDepth {
				return nil
			}
			continue
		}

		if ps := f.fn.Body.Positions; f.ip < len(ps) && ps[f.ip].Line > 0 {
			vm.line, vm.col = ps[f.ip].Line, ps[f.ip].Col
		}

		op := opcode.Opcode(ins[f.ip])
		if err := vm.dispatch(op, ins); err != nil {
			err = vm.withPos(err)
			if !vm.recover(err) {
				return err
			}
		}
	}
}

// withPos stamps the current instruction's source location onto a
// taxonomy error that does not carry one yet.
func (vm *VM) withPos(err error) error {
	le, ok := err.(*langerr.Error)
	if !ok || le.HasPos || vm.line == 0 {
		return err
	}
	return le.WithPos(langerr.Pos{Line: vm.line, Col: vm.col})
}

// dispatch executes exactly one instruction and advances (or redirects)
// the current frame's ip accordingly.
func (vm *VM) dispatch(op opcode.Opcode, ins []byte) error {
	f := vm.currentFrame()

	switch op {
	case opcode.Jmp:
		f.ip = int(opcode.ReadUint16(ins[f.ip+1:]))
		return nil
	case opcode.Jmf:
		target := int(opcode.ReadUint16(ins[f.ip+1:]))
		if !value.Truthy(vm.pop()) {
			f.ip = target
		} else {
			f.ip += 3
		}
		return nil
	case opcode.Try:
		target := int(opcode.ReadUint16(ins[f.ip+1:]))
		vm.handlers = append(vm.handlers, handler{target: target, depth: vm.frameIndex, sp: vm.sp})
		f.ip += 3
		return nil
	case opcode.EndTry:
		if len(vm.handlers) > 0 {
			vm.handlers = vm.handlers[:len(vm.handlers)-1]
		}
		f.ip++
		return nil
	case opcode.Call:
		n := int(opcode.ReadUint8(ins[f.ip+1:]))
		f.ip += 2
		return vm.call(n)
	case opcode.TCall:
		n := int(opcode.ReadUint8(ins[f.ip+1:]))
		return vm.tcall(n, f)
	}

	return vm.runOp(op, f, ins)
}

// recover attempts to transfer control to the nearest exception handler.
// Returns false if there is none, in which case the caller should abort.
// The handler's target is only valid in the instruction vector of the
// frame that was current when its Try ran, so any frames pushed by calls
// made from inside the try body are unwound first, releasing their locals
// the same way a normal return would. The operand stack is then cut back
// to its depth at Try time before the error symbol is pushed, so the
// rescue block sees exactly one value: the symbol its leading Save binds.
func (vm *VM) recover(err error) bool {
	if len(vm.handlers) == 0 {
		return false
	}
	h := vm.handlers[len(vm.handlers)-1]
	vm.handlers = vm.handlers[:len(vm.handlers)-1]

	for vm.frameIndex > h.depth {
		vm.returnFromFrame()
	}
	for vm.sp > h.sp {
		vm.pop()
	}

	kind := langerr.TypeError
	if le, ok := err.(*langerr.Error); ok {
		kind = le.Kind
	}
	vm.push(value.NewSym(string(kind)))

	vm.currentFrame().ip = h.target
	return true
}

// returnFromFrame pops the current call frame. The value left on top of
// the operand stack by the callee's body becomes the call's result.
func (vm *VM) returnFromFrame() {
	f := vm.popFrame()
	vm.usedLocals -= f.numLocals
}

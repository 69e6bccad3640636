package vm

import (
	"flowa/pkg/langerr"
	"flowa/pkg/value"
)

// call implements the Call(n) opcode: pop a Fn, pop n arguments (already on
// the stack first-on-top from the compiler's reverse evaluation), and
// either invoke it (native or bytecode, exact arity), or build a partially
// applied Fn when n < fn.Arity.
func (vm *VM) call(n int) error {
	fnVal := vm.pop()
	fn, ok := fnVal.(*value.Fn)
	if !ok {
		return langerr.New(langerr.CallError, "cannot call a value of kind '%s'", fnVal.Kind())
	}

	args := make([]value.Value, n)
	for i := n - 1; i >= 0; i-- {
		args[i] = vm.pop()
	}

	if n > fn.Arity {
		return langerr.New(langerr.CallError, "function %s takes %d argument(s), got %d", fnName(fn), fn.Arity, n)
	}

	if n < fn.Arity {
		partial := fn.WithBound(fn.Arity-n, args)
		return vm.push(partial)
	}

	// args holds this call's own batch reversed (first-declared last); it
	// is joined ahead of any earlier-bound batches, which are reversed the
	// same way and already ordered most-recent-first. The result, full, is
	// the reverse of the complete true argument order.
	full := make([]value.Value, 0, len(fn.Bound)+n)
	full = append(full, args...)
	full = append(full, fn.Bound...)

	if fn.IsNative() {
		result, err := fn.Native(reverseValues(full))
		if err != nil {
			return wrapNativeErr(err)
		}
		return vm.push(result)
	}

	return vm.callBytecode(fn, full)
}

// reverseValues returns a reversed copy of vs, restoring true declared
// parameter order for native calls and direct field zips that have no
// Save-based stack consumption to undo the compiler's reversed evaluation.
func reverseValues(vs []value.Value) []value.Value {
	out := make([]value.Value, len(vs))
	for i, v := range vs {
		out[len(vs)-1-i] = v
	}
	return out
}

// callBytecode pushes a new call frame for fn and primes the operand stack
// with full (last parameter pushed first, so the first parameter ends on
// top) so the callee's leading Save(i) instructions consume them, mirroring
// how the compiler arranges a call site.
func (vm *VM) callBytecode(fn *value.Fn, full []value.Value) error {
	if err := vm.pushFrame(&frame{fn: fn, localsBase: vm.usedLocals}); err != nil {
		return err
	}

	for _, a := range full {
		if err := vm.push(a); err != nil {
			f := vm.popFrame()
			vm.usedLocals -= f.numLocals
			return err
		}
	}

	return nil
}

// tcall implements the TCall(n) opcode: only a self-tail-call (same
// compiled body, matching declared arity) is honored. It restarts the
// current frame in place rather than pushing a new one.
func (vm *VM) tcall(n int, f *frame) error {
	fnVal := vm.pop()
	fn, ok := fnVal.(*value.Fn)
	if !ok {
		return langerr.New(langerr.TailCallError, "tail call target is not a function")
	}
	if fn.IsNative() || fn.Body != f.fn.Body {
		return langerr.New(langerr.TailCallError, "tail call must target the same function")
	}
	if n != fn.Arity {
		return langerr.New(langerr.TailCallError, "tail call arity mismatch: expected %d, got %d", fn.Arity, n)
	}

	args := make([]value.Value, n)
	for i := n - 1; i >= 0; i-- {
		args[i] = vm.pop()
	}

	vm.usedLocals -= f.numLocals
	f.numLocals = 0
	f.ip = 0

	for _, a := range args {
		if err := vm.push(a); err != nil {
			return err
		}
	}
	return nil
}

func fnName(fn *value.Fn) string {
	if fn.Name != "" {
		return fn.Name
	}
	return "<anonymous>"
}

// wrapNativeErr ensures every error surfacing from a native function
// carries a langerr.Kind so the VM's exception machinery can push the
// right symbol on recovery.
func wrapNativeErr(err error) error {
	if _, ok := err.(*langerr.Error); ok {
		return err
	}
	return langerr.New(langerr.ValueError, "%s", err.Error())
}

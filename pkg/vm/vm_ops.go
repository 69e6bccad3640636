package vm

import (
	"flowa/pkg/langerr"
	"flowa/pkg/opcode"
	"flowa/pkg/value"
)

// runOp executes every opcode not already handled by dispatch's control-flow
// and call cases (Jmp/Jmf/Try/EndTry/Call/TCall). It is responsible for
// advancing f.ip past its own operand bytes on success.
func (vm *VM) runOp(op opcode.Opcode, f *frame, ins []byte) error {
	switch op {
	case opcode.Push:
		idx := int(opcode.ReadUint16(ins[f.ip+1:]))
		c, err := vm.constant(idx)
		if err != nil {
			return err
		}
		if err := vm.push(c); err != nil {
			return err
		}
		f.ip += 3
		return nil

	case opcode.Pop:
		vm.lastPopped = vm.pop()
		f.ip++
		return nil

	case opcode.Dup:
		if err := vm.push(vm.top()); err != nil {
			return err
		}
		f.ip++
		return nil

	case opcode.Rev:
		a, b := vm.pop(), vm.pop()
		if err := vm.push(a); err != nil {
			return err
		}
		if err := vm.push(b); err != nil {
			return err
		}
		f.ip++
		return nil

	case opcode.Load:
		i := int(opcode.ReadUint16(ins[f.ip+1:]))
		if err := vm.push(vm.local(i)); err != nil {
			return err
		}
		f.ip += 3
		return nil

	case opcode.Save:
		i := int(opcode.ReadUint16(ins[f.ip+1:]))
		if err := vm.setLocal(i, vm.pop()); err != nil {
			return err
		}
		f.ip += 3
		return nil

	case opcode.Drop:
		if f.numLocals > 0 {
			f.numLocals--
			vm.usedLocals--
		}
		f.ip++
		return nil

	case opcode.Loag:
		idx := int(opcode.ReadUint16(ins[f.ip+1:]))
		name, err := vm.constSym(idx)
		if err != nil {
			return err
		}
		v, ok := vm.globals[name]
		if !ok {
			return langerr.New(langerr.NameError, "undefined global '%s'", name)
		}
		if err := vm.push(v); err != nil {
			return err
		}
		f.ip += 3
		return nil

	case opcode.Savg:
		idx := int(opcode.ReadUint16(ins[f.ip+1:]))
		name, err := vm.constSym(idx)
		if err != nil {
			return err
		}
		vm.globals[name] = vm.pop()
		f.ip += 3
		return nil

	case opcode.Add, opcode.Sub, opcode.Mul, opcode.Div, opcode.Mod,
		opcode.BitAnd, opcode.BitOr, opcode.Xor, opcode.Shl, opcode.Shr:
		return vm.runArith(op, f)

	case opcode.Eq:
		b, a := vm.pop(), vm.pop()
		if err := vm.push(value.Bool(value.Equal(a, b))); err != nil {
			return err
		}
		f.ip++
		return nil

	case opcode.Less, opcode.LessEq:
		b, a := vm.pop(), vm.pop()
		cmp, err := value.OrdCmp(a, b)
		if err != nil {
			return err
		}
		result := cmp < 0
		if op == opcode.LessEq {
			result = cmp <= 0
		}
		if err := vm.push(value.Bool(result)); err != nil {
			return err
		}
		f.ip++
		return nil

	case opcode.Not:
		if err := vm.push(value.Not(vm.pop())); err != nil {
			return err
		}
		f.ip++
		return nil

	case opcode.Neg:
		r, err := value.Neg(vm.pop())
		if err != nil {
			return err
		}
		if err := vm.push(r); err != nil {
			return err
		}
		f.ip++
		return nil

	case opcode.Len:
		n, err := value.Len(vm.pop())
		if err != nil {
			return err
		}
		if err := vm.push(value.Num(n)); err != nil {
			return err
		}
		f.ip++
		return nil

	case opcode.Prep:
		head := vm.pop()
		tailVal := vm.pop()
		list, ok := tailVal.(*value.List)
		if !ok {
			return langerr.New(langerr.TypeError, "cannot prepend onto a '%s'", tailVal.Kind())
		}
		if err := vm.push(list.Prepend(head)); err != nil {
			return err
		}
		f.ip++
		return nil

	case opcode.New:
		n := int(opcode.ReadUint8(ins[f.ip+1:]))
		f.ip += 2
		return vm.newInstance(n)

	case opcode.Get:
		idx := int(opcode.ReadUint16(ins[f.ip+1:]))
		name, err := vm.constSym(idx)
		if err != nil {
			return err
		}
		obj := vm.pop()
		inst, ok := obj.(*value.Instance)
		if !ok {
			return langerr.New(langerr.FieldError, "'%s' has no fields", obj.Kind())
		}
		v, ok := inst.Field(name)
		if !ok {
			return langerr.New(langerr.FieldError, "'%s' has no field '%s'", inst.Ty.Name, name)
		}
		if err := vm.push(v); err != nil {
			return err
		}
		f.ip += 3
		return nil

	case opcode.Ref:
		idx := int(opcode.ReadUint16(ins[f.ip+1:]))
		name, err := vm.constSym(idx)
		if err != nil {
			return err
		}
		obj := vm.pop()
		ty, ok := obj.(*value.Type)
		if !ok {
			return langerr.New(langerr.FieldError, "'%s' has no methods", obj.Kind())
		}
		m, ok := ty.Method(name)
		if !ok {
			return langerr.New(langerr.FieldError, "type '%s' has no method '%s'", ty.Name, name)
		}
		if err := vm.push(m); err != nil {
			return err
		}
		f.ip += 3
		return nil

	case opcode.TypeOf:
		if err := vm.push(value.TypeOf(vm.pop())); err != nil {
			return err
		}
		f.ip++
		return nil

	case opcode.Tup:
		n := int(opcode.ReadUint8(ins[f.ip+1:]))
		elems := make([]value.Value, n)
		for i := n - 1; i >= 0; i-- {
			elems[i] = vm.pop()
		}
		if err := vm.push(&value.Tuple{Elems: elems}); err != nil {
			return err
		}
		f.ip += 2
		return nil

	case opcode.TupGet:
		i := int(opcode.ReadUint8(ins[f.ip+1:]))
		tupVal := vm.pop()
		tup, ok := tupVal.(*value.Tuple)
		if !ok {
			return langerr.New(langerr.TypeError, "cannot index a '%s' as a tuple", tupVal.Kind())
		}
		v, ok := tup.Get(i)
		if !ok {
			return langerr.New(langerr.ValueError, "tuple index %d out of range (len %d)", i, len(tup.Elems))
		}
		if err := vm.push(v); err != nil {
			return err
		}
		f.ip += 2
		return nil
	}

	return langerr.New(langerr.ParseError, "unimplemented opcode %s", op)
}

// constant returns pool entry idx, failing cleanly when the pool handed
// to SetConstants is not the one this bytecode was compiled against.
func (vm *VM) constant(idx int) (value.Value, error) {
	if idx < 0 || idx >= len(vm.constants) {
		return nil, langerr.New(langerr.ValueError, "constant index %d out of range (pool size %d)", idx, len(vm.constants))
	}
	return vm.constants[idx], nil
}

func (vm *VM) constSym(idx int) (string, error) {
	c, err := vm.constant(idx)
	if err != nil {
		return "", err
	}
	s, ok := c.(value.SymVal)
	if !ok {
		return "", langerr.New(langerr.ValueError, "constant %d is not a symbol", idx)
	}
	return s.Sym.String(), nil
}

func (vm *VM) runArith(op opcode.Opcode, f *frame) error {
	b, a := vm.pop(), vm.pop()
	var result value.Value
	var err error
	switch op {
	case opcode.Add:
		result, err = value.Add(a, b)
	case opcode.Sub:
		result, err = value.Sub(a, b)
	case opcode.Mul:
		result, err = value.Mul(a, b)
	case opcode.Div:
		result, err = value.Div(a, b)
	case opcode.Mod:
		result, err = value.Mod(a, b)
	case opcode.BitAnd:
		result, err = value.BitAnd(a, b)
	case opcode.BitOr:
		result, err = value.BitOr(a, b)
	case opcode.Xor:
		result, err = value.Xor(a, b)
	case opcode.Shl:
		result, err = value.Shl(a, b)
	case opcode.Shr:
		result, err = value.Shr(a, b)
	}
	if err != nil {
		return err
	}
	if err := vm.push(result); err != nil {
		return err
	}
	f.ip++
	return nil
}

// newInstance implements New(n): pop a Type and n args, then either call
// the type's initializer (which must return an Instance) or, when none
// exists, zip the args positionally onto the declared parameter names.
func (vm *VM) newInstance(n int) error {
	tyVal := vm.pop()
	ty, ok := tyVal.(*value.Type)
	if !ok {
		return langerr.New(langerr.TypeError, "cannot construct a '%s' as if it were a type", tyVal.Kind())
	}
	args := make([]value.Value, n)
	for i := n - 1; i >= 0; i-- {
		args[i] = vm.pop()
	}

	if ty.Init != nil {
		if ty.Init.IsNative() {
			full := append(append([]value.Value(nil), args...), ty.Init.Bound...)
			result, err := ty.Init.Native(reverseValues(full))
			if err != nil {
				return wrapNativeErr(err)
			}
			inst, ok := result.(*value.Instance)
			if !ok {
				return langerr.New(langerr.ValueError, "initializer for type '%s' did not return an instance", ty.Name)
			}
			return vm.push(inst)
		}
		return vm.newInstanceViaInit(ty, args)
	}

	// args is reversed (first field last); undo that before the positional
	// zip since there is no Save-based stack consumption here to undo it.
	trueArgs := reverseValues(args)
	fields := make(map[string]value.Value, len(ty.Params))
	for i, p := range ty.Params {
		if i < len(trueArgs) {
			fields[p] = trueArgs[i]
		} else {
			fields[p] = value.Nil
		}
	}
	return vm.push(&value.Instance{Ty: ty, Fields: fields})
}

// newInstanceViaInit runs a bytecode initializer to completion on the
// current VM (reentering the dispatch loop via a nested frame push) and
// expects the resulting stack-top value to be an Instance. Handlers
// registered outside the initializer are hidden for the nested run: a
// failure inside it must surface here as an error, with the initializer's
// frames still on the stack for the caller's own recovery to unwind, not
// be half-handled while this nested loop is still driving them.
func (vm *VM) newInstanceViaInit(ty *value.Type, args []value.Value) error {
	depth := vm.frameIndex
	outer := vm.handlers
	vm.handlers = nil
	defer func() { vm.handlers = outer }()

	if err := vm.callBytecode(ty.Init, args); err != nil {
		return err
	}
	if err := vm.runToDepth(depth); err != nil {
		return err
	}
	result := vm.pop()
	inst, ok := result.(*value.Instance)
	if !ok {
		return langerr.New(langerr.ValueError, "initializer for type '%s' did not return an instance", ty.Name)
	}
	return vm.push(inst)
}

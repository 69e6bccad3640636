// Package value implements the tagged Value model described in the
// compiler/VM data model: numbers, strings, interned symbols, booleans,
// nil, cons-lists, tuples, functions (bytecode or native), user-defined
// types and their instances.
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"flowa/pkg/langerr"
)

// Kind tags the concrete shape of a Value.
type Kind uint8

const (
	KindNum Kind = iota
	KindStr
	KindSym
	KindBool
	KindNil
	KindList
	KindTuple
	KindFn
	KindType
	KindInstance
)

func (k Kind) String() string {
	switch k {
	case KindNum:
		return "num"
	case KindStr:
		return "str"
	case KindSym:
		return "sym"
	case KindBool:
		return "bool"
	case KindNil:
		return "nil"
	case KindList:
		return "list"
	case KindTuple:
		return "tuple"
	case KindFn:
		return "fn"
	case KindType:
		return "type"
	case KindInstance:
		return "instance"
	default:
		return "invalid"
	}
}

// Value is any value that can live on the operand stack, in a local slot,
// or in the globals table.
type Value interface {
	Kind() Kind
	String() string
}

// Num is a double-precision number.
type Num float64

func (Num) Kind() Kind { return KindNum }
func (n Num) String() string {
	f := float64(n)
	if f == math.Trunc(f) && !math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Str is an immutable string.
type Str string

func (Str) Kind() Kind         { return KindStr }
func (s Str) String() string   { return string(s) }
func (s Str) Quoted() string   { return strconv.Quote(string(s)) }
func (s Str) Runes() []rune    { return []rune(string(s)) }
func (s Str) byteLen() int     { return len(string(s)) }

// Bool is a boolean.
type Bool bool

func (Bool) Kind() Kind       { return KindBool }
func (b Bool) String() string { return strconv.FormatBool(bool(b)) }

// nilValue is the sole Nil value.
type nilValue struct{}

func (nilValue) Kind() Kind       { return KindNil }
func (nilValue) String() string   { return "nil" }

// Nil is the unit value.
var Nil Value = nilValue{}

// SymVal wraps an interned Sym as a Value.
type SymVal struct{ Sym Sym }

func (SymVal) Kind() Kind         { return KindSym }
func (s SymVal) String() string   { return ":" + s.Sym.String() }

func NewSym(name string) SymVal { return SymVal{Sym: Intern(name)} }

// List is a singly-linked cons-list. A nil *List is the empty list.
type List struct {
	Head Value
	Tail *List
}

func (*List) Kind() Kind { return KindList }

func (l *List) String() string {
	var b strings.Builder
	b.WriteByte('[')
	first := true
	for cur := l; cur != nil; cur = cur.Tail {
		if !first {
			b.WriteString(", ")
		}
		first = false
		b.WriteString(cur.Head.String())
	}
	b.WriteByte(']')
	return b.String()
}

func (l *List) Len() int {
	n := 0
	for cur := l; cur != nil; cur = cur.Tail {
		n++
	}
	return n
}

func (l *List) Empty() bool { return l == nil }

// Prepend returns a new list with v as the new head.
func (l *List) Prepend(v Value) *List { return &List{Head: v, Tail: l} }

// Index returns the nth element (0-based) of the list.
func (l *List) Index(n int) (Value, bool) {
	cur := l
	for i := 0; i < n && cur != nil; i++ {
		cur = cur.Tail
	}
	if cur == nil {
		return nil, false
	}
	return cur.Head, true
}

// Tuple is a fixed-length ordered sequence.
type Tuple struct {
	Elems []Value
}

func (*Tuple) Kind() Kind { return KindTuple }

func (t *Tuple) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (t *Tuple) Get(i int) (Value, bool) {
	if i < 0 || i >= len(t.Elems) {
		return nil, false
	}
	return t.Elems[i], true
}

// Fn is a callable value: either a bytecode function (Body non-nil) or a
// native function (Native non-nil). Partial application produces a new Fn
// that shares Body/Native but carries a reduced Arity and accumulated
// Bound arguments.
type Fn struct {
	Name   string
	Arity  int
	Bound  []Value
	Body   *Bytecode  // nil for native functions
	Native NativeFunc // nil for bytecode functions
}

// NativeFunc is a host-implemented function. Arguments arrive in declared
// parameter order. Errors should be *langerr.Error for taxonomy-consistent
// reporting.
type NativeFunc func(args []Value) (Value, error)

func (*Fn) Kind() Kind { return KindFn }

func (f *Fn) String() string {
	if f.Name != "" {
		return fmt.Sprintf("fn(%s/%d)", f.Name, f.Arity)
	}
	return fmt.Sprintf("fn(%d)", f.Arity)
}

func (f *Fn) IsNative() bool { return f.Native != nil }

// WithBound returns a copy of f with reducedArity and extra args folded into
// the accumulated Bound slice — the partial-application step of Call. extra
// arrives in the same reversed-per-call convention the VM already keeps its
// popped argument batches in, so it is prepended ahead of the previously
// bound batch rather than appended: each batch stays reversed internally,
// and batches stay ordered most-recent-first so the final call (which
// pushes its own freshly popped args followed by Bound) reconstructs the
// true left-to-right argument order once the callee's Save sequence
// consumes the stack.
func (f *Fn) WithBound(reducedArity int, extra []Value) *Fn {
	bound := make([]Value, 0, len(f.Bound)+len(extra))
	bound = append(bound, extra...)
	bound = append(bound, f.Bound...)
	return &Fn{Name: f.Name, Arity: reducedArity, Bound: bound, Body: f.Body, Native: f.Native}
}

// Bytecode is a compiled instruction stream for one function body. The
// constant pool that its Push instructions index into is not carried
// here — it lives once, globally, on the VM (see compiler.Bytecode for
// the top-level (instructions, positions, constants) triple the compiler
// returns). A
// *Bytecode is compared by pointer identity to detect a self tail call.
// Positions runs parallel to Instructions: the entry at each opcode's
// first byte holds the source location that opcode was emitted for, read
// by the VM's dispatch loop for error reporting.
type Bytecode struct {
	Instructions []byte
	Positions    []langerr.Pos
}

// Type is a user-defined type descriptor, or a synthetic descriptor for a
// native prelude module.
type Type struct {
	Name    string
	Params  []string
	Methods map[string]*Fn
	Init    *Fn // optional initializer, nil if absent
}

func (*Type) Kind() Kind       { return KindType }
func (t *Type) String() string { return fmt.Sprintf("type(%s)", t.Name) }

func (t *Type) Method(name string) (*Fn, bool) {
	m, ok := t.Methods[name]
	return m, ok
}

// Instance is a value of a user-defined (or native-module) Type.
type Instance struct {
	Ty     *Type
	Fields map[string]Value
}

func (*Instance) Kind() Kind       { return KindInstance }
func (i *Instance) String() string { return fmt.Sprintf("instance(%s)", i.Ty.Name) }

func (i *Instance) Field(name string) (Value, bool) {
	v, ok := i.Fields[name]
	return v, ok
}

// --- equality, ordering, truthiness ---

// Equal performs structural equality for scalars/lists/tuples and
// reference identity for Fn/Type/Instance.
func Equal(a, b Value) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case Num:
		return av == b.(Num)
	case Str:
		return av == b.(Str)
	case SymVal:
		return av.Sym.Equal(b.(SymVal).Sym)
	case Bool:
		return av == b.(Bool)
	case nilValue:
		return true
	case *List:
		bv := b.(*List)
		for {
			if av == nil && bv == nil {
				return true
			}
			if av == nil || bv == nil {
				return false
			}
			if !Equal(av.Head, bv.Head) {
				return false
			}
			av, bv = av.Tail, bv.Tail
		}
	case *Tuple:
		bv := b.(*Tuple)
		if len(av.Elems) != len(bv.Elems) {
			return false
		}
		for i := range av.Elems {
			if !Equal(av.Elems[i], bv.Elems[i]) {
				return false
			}
		}
		return true
	case *Fn:
		return av == b.(*Fn)
	case *Type:
		return av == b.(*Type)
	case *Instance:
		return av == b.(*Instance)
	default:
		return false
	}
}

// OrdCmp compares two values; only Num×Num is ordered, everything else
// is a TypeError.
func OrdCmp(a, b Value) (int, error) {
	an, aok := a.(Num)
	bn, bok := b.(Num)
	if !aok || !bok {
		return 0, langerr.New(langerr.TypeError, "cmp not supported between '%s' and '%s'", a.Kind(), b.Kind())
	}
	switch {
	case an < bn:
		return -1, nil
	case an > bn:
		return 1, nil
	default:
		return 0, nil
	}
}

// Truthy implements the truthiness law: Nil, Bool(false), Num(0), empty
// Str, and empty List are false; everything else is true.
func Truthy(v Value) bool {
	switch t := v.(type) {
	case Bool:
		return bool(t)
	case nilValue:
		return false
	case Num:
		return t != 0
	case Str:
		return len(t) > 0
	case *List:
		return t != nil
	default:
		return true
	}
}

// Len implements the Len opcode: list length, string byte length, tuple
// arity.
func Len(v Value) (int, error) {
	switch t := v.(type) {
	case *List:
		return t.Len(), nil
	case Str:
		return t.byteLen(), nil
	case *Tuple:
		return len(t.Elems), nil
	default:
		return 0, langerr.New(langerr.TypeError, "'%s' has no length", v.Kind())
	}
}

// TypeOf returns the dynamic Type of a value, synthesizing one for
// built-in kinds and returning the value itself (or its instance's type)
// for Type/Instance values.
func TypeOf(v Value) *Type {
	switch t := v.(type) {
	case *Type:
		return t
	case *Instance:
		return t.Ty
	default:
		return builtinType(v.Kind())
	}
}

var builtinTypes = map[Kind]*Type{}

func builtinType(k Kind) *Type {
	if t, ok := builtinTypes[k]; ok {
		return t
	}
	t := &Type{Name: k.String(), Methods: map[string]*Fn{}}
	builtinTypes[k] = t
	return t
}

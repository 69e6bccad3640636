package value

import "flowa/pkg/langerr"

// Add implements '+': Num+Num is arithmetic, Str+Str is concatenation,
// anything else is a TypeError.
func Add(a, b Value) (Value, error) {
	if an, ok := a.(Num); ok {
		if bn, ok := b.(Num); ok {
			return an + bn, nil
		}
	}
	if as, ok := a.(Str); ok {
		if bs, ok := b.(Str); ok {
			return as + bs, nil
		}
	}
	return nil, typeErr("+", a, b)
}

func numericBinop(name string, a, b Value, f func(x, y float64) float64) (Value, error) {
	an, aok := a.(Num)
	bn, bok := b.(Num)
	if !aok || !bok {
		return nil, typeErr(name, a, b)
	}
	return Num(f(float64(an), float64(bn))), nil
}

func Sub(a, b Value) (Value, error) {
	return numericBinop("-", a, b, func(x, y float64) float64 { return x - y })
}

func Mul(a, b Value) (Value, error) {
	return numericBinop("*", a, b, func(x, y float64) float64 { return x * y })
}

func Div(a, b Value) (Value, error) {
	an, aok := a.(Num)
	bn, bok := b.(Num)
	if !aok || !bok {
		return nil, typeErr("/", a, b)
	}
	if bn == 0 {
		return nil, langerr.New(langerr.ValueError, "division by zero")
	}
	return an / bn, nil
}

// Mod truncates toward zero, the same for the integer fast path and the
// fractional fallback.
func Mod(a, b Value) (Value, error) {
	an, aok := a.(Num)
	bn, bok := b.(Num)
	if !aok || !bok {
		return nil, typeErr("%", a, b)
	}
	if bn == 0 {
		return nil, langerr.New(langerr.ValueError, "division by zero")
	}
	if an.fract() == 0 && bn.fract() == 0 {
		return Num(int64(an) % int64(bn)), nil
	}
	mod := float64(an) - float64(int64(float64(an)/float64(bn)))*float64(bn)
	return Num(mod), nil
}

func (n Num) fract() float64 {
	f := float64(n)
	return f - float64(int64(f))
}

// bitwiseOperand requires an integer-valued Num; anything else is a
// TypeError.
func bitwiseOperand(name string, v Value) (uint64, error) {
	n, ok := v.(Num)
	if !ok || n.fract() != 0 {
		return 0, langerr.New(langerr.TypeError, "cannot apply '%s' to '%s'", name, v.Kind())
	}
	return uint64(n), nil
}

func bitwiseBinop(name string, a, b Value, f func(x, y uint64) uint64) (Value, error) {
	x, err := bitwiseOperand(name, a)
	if err != nil {
		return nil, err
	}
	y, err := bitwiseOperand(name, b)
	if err != nil {
		return nil, err
	}
	return Num(float64(f(x, y))), nil
}

func BitAnd(a, b Value) (Value, error) {
	return bitwiseBinop("&", a, b, func(x, y uint64) uint64 { return x & y })
}

func BitOr(a, b Value) (Value, error) {
	return bitwiseBinop("|", a, b, func(x, y uint64) uint64 { return x | y })
}

func Xor(a, b Value) (Value, error) {
	return bitwiseBinop("^", a, b, func(x, y uint64) uint64 { return x ^ y })
}

func Shl(a, b Value) (Value, error) {
	return bitwiseBinop("<<", a, b, func(x, y uint64) uint64 { return x << y })
}

func Shr(a, b Value) (Value, error) {
	return bitwiseBinop(">>", a, b, func(x, y uint64) uint64 { return x >> y })
}

func Neg(a Value) (Value, error) {
	n, ok := a.(Num)
	if !ok {
		return nil, langerr.New(langerr.TypeError, "cannot apply '-' to '%s'", a.Kind())
	}
	return -n, nil
}

func Not(a Value) Value {
	return Bool(!Truthy(a))
}

func typeErr(op string, a, b Value) error {
	return langerr.New(langerr.TypeError, "cannot apply '%s' between '%s' and '%s'", op, a.Kind(), b.Kind())
}

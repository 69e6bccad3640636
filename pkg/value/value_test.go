package value

import "testing"

func TestEqualScalars(t *testing.T) {
	if !Equal(Num(3), Num(3)) {
		t.Error("Num(3) should equal Num(3)")
	}
	if Equal(Num(3), Num(4)) {
		t.Error("Num(3) should not equal Num(4)")
	}
	if !Equal(Str("hi"), Str("hi")) {
		t.Error("equal strings should compare equal")
	}
	if Equal(Num(3), Str("3")) {
		t.Error("values of different kinds should never be equal")
	}
	if !Equal(Nil, Nil) {
		t.Error("Nil should equal Nil")
	}
}

func TestEqualLists(t *testing.T) {
	a := (*List)(nil).Prepend(Num(2)).Prepend(Num(1))
	b := (*List)(nil).Prepend(Num(2)).Prepend(Num(1))
	if !Equal(a, b) {
		t.Error("structurally identical lists should be equal")
	}
	c := (*List)(nil).Prepend(Num(3)).Prepend(Num(1))
	if Equal(a, c) {
		t.Error("lists differing in an element should not be equal")
	}
}

func TestOrdCmpOnlyOrdersNumbers(t *testing.T) {
	cmp, err := OrdCmp(Num(1), Num(2))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if cmp >= 0 {
		t.Errorf("cmp(1, 2) = %d, want negative", cmp)
	}

	if _, err := OrdCmp(Str("a"), Str("b")); err == nil {
		t.Error("comparing non-Num values should fail with TypeError")
	}
	if _, err := OrdCmp(Num(1), Str("1")); err == nil {
		t.Error("comparing a Num against a non-Num should fail with TypeError")
	}
}

// TestTruthinessLaw checks !!x == to_bool(x) for a representative value
// of every kind the truthiness table distinguishes.
func TestTruthinessLaw(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want bool
	}{
		{"zero", Num(0), false},
		{"nonzero", Num(1), true},
		{"negative", Num(-1), true},
		{"empty string", Str(""), false},
		{"nonempty string", Str("x"), true},
		{"nil", Nil, false},
		{"false", Bool(false), false},
		{"true", Bool(true), true},
		{"empty list", (*List)(nil), false},
		{"nonempty list", (*List)(nil).Prepend(Num(1)), true},
	}
	for _, c := range cases {
		if Truthy(c.v) != c.want {
			t.Errorf("%s: Truthy = %v, want %v", c.name, Truthy(c.v), c.want)
		}
		// !! idempotence: truthiness of a value equals truthiness of its
		// own Bool-wrapped truthiness.
		if Truthy(Bool(Truthy(c.v))) != Truthy(c.v) {
			t.Errorf("%s: truthiness law violated", c.name)
		}
	}
}

func TestLen(t *testing.T) {
	xs := (*List)(nil).Prepend(Num(3)).Prepend(Num(2)).Prepend(Num(1))
	n, err := Len(xs)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if n != 3 {
		t.Errorf("Len(xs) = %d, want 3", n)
	}

	n, err = Len(Str("abc"))
	if err != nil || n != 3 {
		t.Errorf("Len(\"abc\") = %d, %v, want 3, nil", n, err)
	}

	if _, err := Len(Num(5)); err == nil {
		t.Error("Len of a Num should fail with TypeError")
	}
}

func TestModTruncatesTowardZero(t *testing.T) {
	v, err := Mod(Num(7), Num(3))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if v.(Num) != 1 {
		t.Errorf("7 %% 3 = %s, want 1", v.String())
	}

	v, err = Mod(Num(5), Num(2.5))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if v.(Num) != 0 {
		t.Errorf("5 %% 2.5 = %s, want 0", v.String())
	}

	if _, err := Mod(Num(1), Num(0)); err == nil {
		t.Error("modulo by zero should fail with ValueError")
	}
}

func TestTypeOfBuiltinIsStable(t *testing.T) {
	t1 := TypeOf(Num(1))
	t2 := TypeOf(Num(2))
	if t1 != t2 {
		t.Error("TypeOf should return the same synthesized Type for every Num")
	}
	if t1.Name != "num" {
		t.Errorf("TypeOf(Num).Name = %q, want %q", t1.Name, "num")
	}
}

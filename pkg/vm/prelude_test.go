package vm

import (
	"testing"

	"flowa/pkg/value"
)

// Prelude modules are Instances whose native functions live under Fields,
// reached by plain field access + juxtaposed application (auth.hash pass).
// The attached-paren form obj.method(args) binds an implicit self argument
// and is reserved for user-defined type methods; a detached "(", as in
// `auth.verify (auth.hash "x") "x"`, stays a juxtaposition call.
func TestPreludeAuthHashRoundTrips(t *testing.T) {
	v := run(t, `auth.verify (auth.hash "secret") "secret"`)
	b, ok := v.(value.Bool)
	if !ok || !bool(b) {
		t.Fatalf("expected Bool(true), got %T (%s)", v, v.String())
	}
}

func TestPreludeAuthVerifyRejectsWrongPassword(t *testing.T) {
	v := run(t, `auth.verify (auth.hash "secret") "wrong"`)
	b, ok := v.(value.Bool)
	if !ok || bool(b) {
		t.Fatalf("expected Bool(false), got %T (%s)", v, v.String())
	}
}

func TestPreludeJSONRoundTrip(t *testing.T) {
	v := run(t, `json.decode (json.encode 42)`)
	wantNum(t, v, 42.0)
}

func TestPreludeConfigEnvFallsBackToDefault(t *testing.T) {
	v := run(t, `config.env "FLOWA_TEST_UNSET_VAR" "fallback"`)
	s, ok := v.(value.Str)
	if !ok || string(s) != "fallback" {
		t.Fatalf("expected \"fallback\", got %T (%s)", v, v.String())
	}
}

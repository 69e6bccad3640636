package vm

import (
	"github.com/joho/godotenv"

	"flowa/pkg/value"
)

// installPrelude builds the native standard library and binds one module
// instance per concern directly into globals, the same table Savg/Loag
// address for user-level def/let bindings. Every module is a
// *value.Instance of a synthetic *value.Type whose "fields" are native
// Fns rather than data, so json.encode is compiled exactly like any user
// field access (Get) followed by a Call — no separate builtin-dispatch
// opcode is introduced for it.
func installPrelude(vm *VM) {
	// Best-effort .env load; a missing file is not an error.
	_ = godotenv.Load()

	vm.globals["json"] = newNativeModule("JSON", map[string]*value.Fn{
		"encode": nativeFn("json.encode", 1, jsonEncode),
		"decode": nativeFn("json.decode", 1, jsonDecode),
	})
	vm.globals["config"] = newNativeModule("Config", map[string]*value.Fn{
		"env": nativeFn("config.env", 2, configEnv),
	})
	vm.globals["fs"] = newNativeModule("FS", map[string]*value.Fn{
		"read":   nativeFn("fs.read", 1, fsRead),
		"write":  nativeFn("fs.write", 2, fsWrite),
		"append": nativeFn("fs.append", 2, fsAppend),
		"exists": nativeFn("fs.exists", 1, fsExists),
		"remove": nativeFn("fs.remove", 1, fsRemove),
	})
	vm.globals["auth"] = newNativeModule("Auth", map[string]*value.Fn{
		"hash":   nativeFn("auth.hash", 1, authHash),
		"verify": nativeFn("auth.verify", 2, authVerify),
	})
	vm.globals["jwt"] = newNativeModule("JWT", map[string]*value.Fn{
		"sign":   nativeFn("jwt.sign", 3, jwtSign),
		"verify": nativeFn("jwt.verify", 2, jwtVerify),
	})
	vm.globals["http"] = newNativeModule("HTTP", map[string]*value.Fn{
		"get":  nativeFn("http.get", 1, httpGet),
		"post": nativeFn("http.post", 2, httpPost),
	})
	vm.globals["ws"] = newNativeModule("WS", map[string]*value.Fn{
		"dial":  nativeFn("ws.dial", 1, wsDial),
		"send":  nativeFn("ws.send", 2, wsSend),
		"recv":  nativeFn("ws.recv", 1, wsRecv),
		"close": nativeFn("ws.close", 1, wsClose),
	})
	vm.globals["mail"] = newNativeModule("Mail", map[string]*value.Fn{
		"send": nativeFn("mail.send", 1, mailSend),
	})
}

// newNativeModule wraps a name->native-Fn table as an Instance of a
// synthetic, field-only Type — the shape every prelude module takes.
func newNativeModule(name string, fns map[string]*value.Fn) *value.Instance {
	ty := &value.Type{Name: name, Methods: map[string]*value.Fn{}}
	fields := make(map[string]value.Value, len(fns))
	for n, fn := range fns {
		fields[n] = fn
	}
	return &value.Instance{Ty: ty, Fields: fields}
}

func nativeFn(name string, arity int, fn value.NativeFunc) *value.Fn {
	return &value.Fn{Name: name, Arity: arity, Native: fn}
}

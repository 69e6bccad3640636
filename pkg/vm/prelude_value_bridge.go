package vm

import (
	"encoding/json"

	"flowa/pkg/langerr"
	"flowa/pkg/value"
)

// valueToNative converts a Value into the plain interface{} shapes
// encoding/json knows how to marshal: Num -> float64, Str -> string,
// Bool -> bool, Nil -> nil, List -> []interface{}, Tuple -> []interface{},
// Instance -> map[string]interface{} keyed by field name. Fn/Type values
// have no JSON representation and are rejected.
func valueToNative(v value.Value) (interface{}, error) {
	switch t := v.(type) {
	case value.Num:
		return float64(t), nil
	case value.Str:
		return string(t), nil
	case value.Bool:
		return bool(t), nil
	case value.SymVal:
		return t.Sym.String(), nil
	case *value.List:
		out := []interface{}{}
		for cur := t; cur != nil; cur = cur.Tail {
			elem, err := valueToNative(cur.Head)
			if err != nil {
				return nil, err
			}
			out = append(out, elem)
		}
		return out, nil
	case *value.Tuple:
		out := make([]interface{}, len(t.Elems))
		for i, e := range t.Elems {
			conv, err := valueToNative(e)
			if err != nil {
				return nil, err
			}
			out[i] = conv
		}
		return out, nil
	case *value.Instance:
		out := make(map[string]interface{}, len(t.Fields))
		for k, fv := range t.Fields {
			conv, err := valueToNative(fv)
			if err != nil {
				return nil, err
			}
			out[k] = conv
		}
		return out, nil
	default:
		if v == value.Nil {
			return nil, nil
		}
		return nil, langerr.New(langerr.TypeError, "cannot encode a '%s' as JSON", v.Kind())
	}
}

// nativeToValue is the inverse of valueToNative, used to bring a decoded
// JSON document (or an HTTP/JWT native result) back into the Value model.
// JSON objects become Instances of an anonymous "object" Type so field
// access reads the same way a user-defined record does.
func nativeToValue(n interface{}) value.Value {
	switch t := n.(type) {
	case nil:
		return value.Nil
	case float64:
		return value.Num(t)
	case string:
		return value.Str(t)
	case bool:
		return value.Bool(t)
	case []interface{}:
		var list *value.List
		for i := len(t) - 1; i >= 0; i-- {
			list = list.Prepend(nativeToValue(t[i]))
		}
		return list
	case map[string]interface{}:
		fields := make(map[string]value.Value, len(t))
		for k, fv := range t {
			fields[k] = nativeToValue(fv)
		}
		return &value.Instance{Ty: &value.Type{Name: "object", Methods: map[string]*value.Fn{}}, Fields: fields}
	default:
		return value.Nil
	}
}

func jsonEncode(args []value.Value) (value.Value, error) {
	native, err := valueToNative(args[0])
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(native)
	if err != nil {
		return nil, langerr.New(langerr.ValueError, "json encode failed: %s", err)
	}
	return value.Str(b), nil
}

func jsonDecode(args []value.Value) (value.Value, error) {
	s, ok := args[0].(value.Str)
	if !ok {
		return nil, langerr.New(langerr.TypeError, "json.decode expects a string, got '%s'", args[0].Kind())
	}
	var native interface{}
	if err := json.Unmarshal([]byte(s), &native); err != nil {
		return nil, langerr.New(langerr.ValueError, "json decode failed: %s", err)
	}
	return nativeToValue(native), nil
}

// responseInstance builds the map-shaped value every http.get/http.post
// call returns: {status, body, headers}.
func responseInstance(status int, body string, headers map[string]string) *value.Instance {
	headerFields := make(map[string]value.Value, len(headers))
	for k, v := range headers {
		headerFields[k] = value.Str(v)
	}
	fields := map[string]value.Value{
		"status":  value.Num(status),
		"body":    value.Str(body),
		"headers": &value.Instance{Ty: &value.Type{Name: "object", Methods: map[string]*value.Fn{}}, Fields: headerFields},
	}
	return &value.Instance{Ty: &value.Type{Name: "Response", Methods: map[string]*value.Fn{}}, Fields: fields}
}

package vm

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"flowa/pkg/langerr"
	"flowa/pkg/value"
)

// authHash implements auth.hash(password) with bcrypt at default cost.
func authHash(args []value.Value) (value.Value, error) {
	pass, ok := args[0].(value.Str)
	if !ok {
		return nil, langerr.New(langerr.TypeError, "auth.hash expects a string")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
	if err != nil {
		return nil, langerr.New(langerr.ValueError, "auth.hash failed: %s", err)
	}
	return value.Str(hashed), nil
}

// authVerify implements auth.verify(hash, password).
func authVerify(args []value.Value) (value.Value, error) {
	hash, ok := args[0].(value.Str)
	if !ok {
		return nil, langerr.New(langerr.TypeError, "auth.verify hash must be a string")
	}
	pass, ok := args[1].(value.Str)
	if !ok {
		return nil, langerr.New(langerr.TypeError, "auth.verify password must be a string")
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pass))
	return value.Bool(err == nil), nil
}

// jwtSign implements jwt.sign(payload, secret, ttl): payload is an
// object whose fields become claims, ttl is a Go duration string ("24h")
// that sets the exp claim.
func jwtSign(args []value.Value) (value.Value, error) {
	payload, ok := args[0].(*value.Instance)
	if !ok {
		return nil, langerr.New(langerr.TypeError, "jwt.sign payload must be an object")
	}
	secret, ok := args[1].(value.Str)
	if !ok {
		return nil, langerr.New(langerr.TypeError, "jwt.sign secret must be a string")
	}
	ttl, ok := args[2].(value.Str)
	if !ok {
		return nil, langerr.New(langerr.TypeError, "jwt.sign ttl must be a string")
	}

	dur, err := time.ParseDuration(string(ttl))
	if err != nil {
		return nil, langerr.New(langerr.ValueError, "jwt.sign invalid ttl: %s", err)
	}

	claims := jwt.MapClaims{}
	for k, v := range payload.Fields {
		native, err := valueToNative(v)
		if err != nil {
			return nil, err
		}
		claims[k] = native
	}
	claims["exp"] = time.Now().Add(dur).Unix()

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString([]byte(secret))
	if err != nil {
		return nil, langerr.New(langerr.ValueError, "jwt.sign failed: %s", err)
	}
	return value.Str(signed), nil
}

// jwtVerify implements jwt.verify(token, secret): returns the claims as
// an object on success, Nil on an invalid/expired token — no VM-level
// error, callers branch on the returned value.
func jwtVerify(args []value.Value) (value.Value, error) {
	tokStr, ok := args[0].(value.Str)
	if !ok {
		return nil, langerr.New(langerr.TypeError, "jwt.verify token must be a string")
	}
	secret, ok := args[1].(value.Str)
	if !ok {
		return nil, langerr.New(langerr.TypeError, "jwt.verify secret must be a string")
	}

	tok, err := jwt.Parse(string(tokStr), func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return value.Nil, nil
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return value.Nil, nil
	}
	return nativeToValue(map[string]interface{}(claims)), nil
}

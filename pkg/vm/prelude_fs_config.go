package vm

import (
	"os"

	"flowa/pkg/langerr"
	"flowa/pkg/value"
)

// configEnv implements config.env(key, default): read a process
// environment variable, falling back to default when unset or empty.
// Values loaded from .env at startup resolve here too.
func configEnv(args []value.Value) (value.Value, error) {
	key, ok := args[0].(value.Str)
	if !ok {
		return nil, langerr.New(langerr.TypeError, "config.env key must be a string")
	}
	val := os.Getenv(string(key))
	if val == "" {
		if def, ok := args[1].(value.Str); ok {
			return def, nil
		}
	}
	return value.Str(val), nil
}

func fsRead(args []value.Value) (value.Value, error) {
	path, ok := args[0].(value.Str)
	if !ok {
		return nil, langerr.New(langerr.TypeError, "fs.read path must be a string")
	}
	content, err := os.ReadFile(string(path))
	if err != nil {
		return nil, langerr.New(langerr.NameError, "fs.read failed: %s", err)
	}
	return value.Str(content), nil
}

func fsWrite(args []value.Value) (value.Value, error) {
	path, ok := args[0].(value.Str)
	if !ok {
		return nil, langerr.New(langerr.TypeError, "fs.write path must be a string")
	}
	content, ok := args[1].(value.Str)
	if !ok {
		return nil, langerr.New(langerr.TypeError, "fs.write content must be a string")
	}
	if err := os.WriteFile(string(path), []byte(content), 0o644); err != nil {
		return nil, langerr.New(langerr.ValueError, "fs.write failed: %s", err)
	}
	return value.Bool(true), nil
}

func fsAppend(args []value.Value) (value.Value, error) {
	path, ok := args[0].(value.Str)
	if !ok {
		return nil, langerr.New(langerr.TypeError, "fs.append path must be a string")
	}
	content, ok := args[1].(value.Str)
	if !ok {
		return nil, langerr.New(langerr.TypeError, "fs.append content must be a string")
	}
	f, err := os.OpenFile(string(path), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, langerr.New(langerr.ValueError, "fs.append failed: %s", err)
	}
	defer f.Close()
	if _, err := f.WriteString(string(content)); err != nil {
		return nil, langerr.New(langerr.ValueError, "fs.append failed: %s", err)
	}
	return value.Bool(true), nil
}

func fsExists(args []value.Value) (value.Value, error) {
	path, ok := args[0].(value.Str)
	if !ok {
		return nil, langerr.New(langerr.TypeError, "fs.exists path must be a string")
	}
	_, err := os.Stat(string(path))
	return value.Bool(err == nil), nil
}

func fsRemove(args []value.Value) (value.Value, error) {
	path, ok := args[0].(value.Str)
	if !ok {
		return nil, langerr.New(langerr.TypeError, "fs.remove path must be a string")
	}
	if err := os.Remove(string(path)); err != nil {
		return nil, langerr.New(langerr.ValueError, "fs.remove failed: %s", err)
	}
	return value.Bool(true), nil
}

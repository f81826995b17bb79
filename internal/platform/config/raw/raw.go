// Package raw reads environment variables during process bootstrap.
// It must stay import-free of logger and config so either can use it
// before the other is initialized.
package raw

import (
	"os"
	"strings"
)

// Env reads variables under a fixed prefix, e.g. Prefix("LOG_")
type Env struct{ prefix string }

// Prefix returns an Env scoped to the given prefix
func Prefix(p string) Env { return Env{prefix: p} }

func (e Env) lookup(key string) string {
	return strings.TrimSpace(os.Getenv(e.prefix + key))
}

// String returns the variable or def when unset or blank
func (e Env) String(key, def string) string {
	if v := e.lookup(key); v != "" {
		return v
	}
	return def
}

// Bool accepts 1, true, and yes as true; anything else is false
func (e Env) Bool(key string, def bool) bool {
	v := strings.ToLower(e.lookup(key))
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "yes":
		return true
	}
	return false
}

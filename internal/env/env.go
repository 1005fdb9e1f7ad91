// Package env composes the backend's environment from the launcher's own.
package env

import (
	"os"
	"sort"
	"strings"
)

type Var map[string]string

// Env holds overrides applied on top of a base environment.
type Env struct {
	Var Var // explicit overrides (K->V)
	env Var // cached base from OS environment
}

func New() *Env {
	return &Env{
		Var: make(Var),
	}
}

// FromOS caches the current process environment as the base.
func (e *Env) FromOS() {
	e.env = Parse(os.Environ())
}

// FromList uses kvs as the base instead of the OS environment.
func (e *Env) FromList(kvs []string) {
	e.env = Parse(kvs)
}

// Merge composes the final environment list applying order:
// base = OS env (or cached), then e.Var, then extra ("K=V") entries.
// ${VAR} references in override values are expanded against the composed map.
// The result is sorted by key.
func (e *Env) Merge(extra []string) []string {
	if e.env == nil {
		e.FromOS()
	}
	m := make(Var, len(e.env)+len(e.Var)+len(extra))
	for k, v := range e.env {
		m[k] = v
	}
	overrides := make(Var, len(e.Var)+len(extra))
	for k, v := range e.Var {
		if k == "" {
			continue
		}
		overrides[k] = v
	}
	for k, v := range Parse(extra) {
		overrides[k] = v
	}
	for k, v := range overrides {
		m[k] = v
	}
	for k, v := range overrides {
		m[k] = expand(v, m)
	}
	return m.List()
}

// Parse converts "K=V" entries into a map, skipping malformed or empty keys.
// Later entries win.
func Parse(kvs []string) Var {
	m := make(Var, len(kvs))
	for _, kv := range kvs {
		if i := strings.IndexByte(kv, '='); i > 0 {
			m[kv[:i]] = kv[i+1:]
		}
	}
	return m
}

// List returns the map as sorted "K=V" entries.
func (v Var) List() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		if k == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+v[k])
	}
	return out
}

func expand(s string, m Var) string {
	if !strings.Contains(s, "${") {
		return s
	}
	res := s
	for k, v := range m {
		res = strings.ReplaceAll(res, "${"+k+"}", v)
	}
	return res
}

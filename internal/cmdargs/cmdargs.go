// Package cmdargs splits bot command arguments. Values containing spaces,
// such as pay times ("7-8 PM"), can be quoted.
package cmdargs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alufers/paystat-bot/internal/apperr"
	"github.com/google/shlex"
)

// Split breaks s into fields the way a shell would, keeping double or
// single quoted runs together.
func Split(s string) ([]string, error) {
	fields, err := shlex.Split(s)
	if err != nil {
		return nil, fmt.Errorf("cannot split %q: %v: %w", s, err, apperr.ErrValidation)
	}
	return fields, nil
}

// Args holds positional arguments and key=value options.
type Args struct {
	Positional []string
	Named      map[string]string
}

func Parse(s string) (Args, error) {
	fields, err := Split(s)
	if err != nil {
		return Args{}, err
	}
	a := Args{Named: map[string]string{}}
	for _, f := range fields {
		if k, v, ok := strings.Cut(f, "="); ok && k != "" {
			a.Named[strings.ToLower(k)] = v
			continue
		}
		a.Positional = append(a.Positional, f)
	}
	return a, nil
}

// Int returns the named option as an int, or nil when it is absent.
func (a Args) Int(name string) (*int, error) {
	v, ok := a.Named[name]
	if !ok {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, fmt.Errorf("%v must be a whole number, got %q: %w", name, v, apperr.ErrValidation)
	}
	return &n, nil
}

func (a Args) String(name string) *string {
	v, ok := a.Named[name]
	if !ok {
		return nil
	}
	return &v
}

// Ints parses every positional argument as an int; exactly n are required.
func (a Args) Ints(n int, names ...string) ([]int, error) {
	if len(a.Positional) != n {
		return nil, fmt.Errorf("expected %d arguments (%v), got %d: %w", n, strings.Join(names, " "), len(a.Positional), apperr.ErrValidation)
	}
	out := make([]int, n)
	for i, p := range a.Positional {
		v, err := strconv.Atoi(p)
		if err != nil {
			name := fmt.Sprintf("argument %d", i+1)
			if i < len(names) {
				name = names[i]
			}
			return nil, fmt.Errorf("%v must be a whole number, got %q: %w", name, p, apperr.ErrValidation)
		}
		out[i] = v
	}
	return out, nil
}

// Unknown lists named options not in allowed.
func (a Args) Unknown(allowed ...string) []string {
	ok := map[string]bool{}
	for _, k := range allowed {
		ok[k] = true
	}
	var out []string
	for k := range a.Named {
		if !ok[k] {
			out = append(out, k)
		}
	}
	return out
}

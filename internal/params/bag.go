// Package params resolves typed values out of loosely-typed job parameter
// bags. Callers have renamed form fields several times without migrating
// stored parameters, so every lookup takes an ordered list of synonyms.
package params

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Bag is the untyped parameter mapping supplied with a job submission.
type Bag map[string]any

var (
	leadingInt   = regexp.MustCompile(`^\s*[+-]?\d+`)
	leadingFloat = regexp.MustCompile(`^\s*[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
)

func missing(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return true
	}
	return false
}

// Lookup returns the value of the first candidate name that is present,
// non-nil and not an empty string. 0 and false are valid values.
func Lookup(bag Bag, names []string) (any, bool) {
	for _, name := range names {
		v, ok := bag[name]
		if !ok || missing(v) {
			continue
		}
		return v, true
	}
	return nil, false
}

// Resolve returns the first defined candidate value, or def.
func Resolve(bag Bag, names []string, def any) any {
	if v, ok := Lookup(bag, names); ok {
		return v
	}
	return def
}

// Has reports whether any of the candidate names carries a value.
func Has(bag Bag, names []string) bool {
	_, ok := Lookup(bag, names)
	return ok
}

// String renders the resolved value as a string.
func String(bag Bag, names []string, def string) string {
	v, ok := Lookup(bag, names)
	if !ok {
		return def
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return def
	}
	return strings.TrimSpace(s)
}

// Int resolves an integer. Numbers are truncated, strings are parsed up to
// the first non-digit ("12abc" is 12, "3.9" is 3) and anything else
// falls back to def.
func Int(bag Bag, names []string, def int) int {
	v, ok := Lookup(bag, names)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case bool:
		return def
	case string:
		m := leadingInt.FindString(t)
		if m == "" {
			return def
		}
		n, err := strconv.Atoi(strings.TrimSpace(m))
		if err != nil {
			return def
		}
		return n
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return int(f)
}

// Float resolves a floating point value with the same fallbacks as Int.
func Float(bag Bag, names []string, def float64) float64 {
	v, ok := Lookup(bag, names)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case bool:
		return def
	case string:
		m := leadingFloat.FindString(t)
		if m == "" {
			return def
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(m), 64)
		if err != nil {
			return def
		}
		return f
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) {
		return def
	}
	return f
}

// Bool resolves the Yes/No convention used by the job forms. Native
// booleans are used as-is, "yes"/"true" and "no"/"false" are matched
// case-insensitively and everything else falls back to truthiness.
func Bool(bag Bag, names []string, def bool) bool {
	v, ok := Lookup(bag, names)
	if !ok {
		return def
	}
	return truthy(v)
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "yes", "true":
			return true
		case "no", "false":
			return false
		}
		return t != ""
	}
	if f, err := cast.ToFloat64E(v); err == nil {
		return f != 0 && !math.IsNaN(f)
	}
	return v != nil
}

// Strings resolves a list value. Lists are taken element-wise; strings are
// split on commas and whitespace.
func Strings(bag Bag, names []string) []string {
	v, ok := Lookup(bag, names)
	if !ok {
		return nil
	}
	var raw []string
	switch t := v.(type) {
	case []string:
		raw = t
	case []any:
		for _, e := range t {
			if missing(e) {
				continue
			}
			raw = append(raw, cast.ToString(e))
		}
	default:
		raw = strings.FieldsFunc(cast.ToString(v), func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == '\n'
		})
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Clone returns a shallow copy of the bag.
func (b Bag) Clone() Bag {
	out := make(Bag, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

package builder

import (
	_ "embed"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed flags.yaml
var flagsYAML []byte

// FlagRegistry lists the flags each external tool is known to accept. It
// is necessarily incomplete: flag sets vary between RELION versions.
type FlagRegistry struct {
	known map[string]map[string]struct{}
}

// LoadFlags parses a YAML document mapping executable names to flag lists.
func LoadFlags(data []byte) (*FlagRegistry, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse flag registry: %w", err)
	}
	r := &FlagRegistry{known: make(map[string]map[string]struct{}, len(raw))}
	for exe, flags := range raw {
		set := make(map[string]struct{}, len(flags))
		for _, f := range flags {
			set[f] = struct{}{}
		}
		r.known[exe] = set
	}
	return r, nil
}

// DefaultFlags returns the embedded registry.
var DefaultFlags = sync.OnceValue(func() *FlagRegistry {
	r, err := LoadFlags(flagsYAML)
	if err != nil {
		panic(err)
	}
	return r
})

// Known reports whether flag is registered for exe. The _mpi variant
// shares its flags with the plain executable.
func (r *FlagRegistry) Known(exe, flag string) bool {
	if r == nil {
		return false
	}
	exe = strings.TrimSuffix(filepath.Base(exe), "_mpi")
	set, ok := r.known[exe]
	if !ok {
		return false
	}
	_, ok = set[flag]
	return ok
}

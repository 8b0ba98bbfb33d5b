// Package jobtype is the single source of truth for which job kinds exist
// and how each one is built, validated and filed on disk.
package jobtype

import (
	"fmt"
	"slices"
	"sort"

	"github.com/relionflow/api/internal/builder"
	"github.com/relionflow/api/internal/model"
)

// Validator checks a constructed builder before its command is built.
type Validator func(b builder.Builder) builder.Result

// Definition describes one job kind.
type Definition struct {
	ID         string
	StageName  string
	Aliases    []string
	Tier       model.ComputeTier
	NewBuilder builder.Factory
	Validate   Validator
}

// GenericValidator accepts everything. Kinds without their own
// validation use it.
func GenericValidator(builder.Builder) builder.Result { return builder.Valid() }

// BuilderValidator delegates to the builder's own Validate.
func BuilderValidator(b builder.Builder) builder.Result { return b.Validate() }

// Registry resolves kind identifiers and aliases. It is immutable after
// New returns and safe for concurrent use.
type Registry struct {
	builders   map[string]builder.Factory
	validators map[string]Validator
	stages     map[string]string
	canonical  map[string]string
	defs       map[string]*Definition
}

// New builds the registry from the fixed definition set.
func New() (*Registry, error) {
	return build(definitions())
}

func build(defs []Definition) (*Registry, error) {
	r := &Registry{
		builders:   map[string]builder.Factory{},
		validators: map[string]Validator{},
		stages:     map[string]string{},
		canonical:  map[string]string{},
		defs:       map[string]*Definition{},
	}
	for i := range defs {
		d := defs[i]
		if d.ID == "" || d.StageName == "" || d.NewBuilder == nil {
			return nil, fmt.Errorf("jobtype: incomplete definition %q", d.ID)
		}
		if d.Validate == nil {
			d.Validate = GenericValidator
		}
		if !slices.Contains(d.Aliases, d.ID) {
			d.Aliases = append([]string{d.ID}, d.Aliases...)
		}
		if _, dup := r.defs[d.ID]; dup {
			return nil, fmt.Errorf("jobtype: duplicate definition %q", d.ID)
		}
		r.defs[d.ID] = &d
		for _, a := range d.Aliases {
			if owner, taken := r.canonical[a]; taken && owner != d.ID {
				return nil, fmt.Errorf("jobtype: alias %q claimed by both %q and %q", a, owner, d.ID)
			}
			r.builders[a] = d.NewBuilder
			r.validators[a] = d.Validate
			r.stages[a] = d.StageName
			r.canonical[a] = d.ID
		}
	}
	return r, nil
}

// Definition returns the definition a kind or alias resolves to.
func (r *Registry) Definition(kind string) (*Definition, bool) {
	id, ok := r.canonical[kind]
	if !ok {
		return nil, false
	}
	return r.defs[id], true
}

func (r *Registry) Builder(kind string) (builder.Factory, bool) {
	f, ok := r.builders[kind]
	return f, ok
}

func (r *Registry) Validator(kind string) (Validator, bool) {
	v, ok := r.validators[kind]
	return v, ok
}

func (r *Registry) StageName(kind string) (string, bool) {
	s, ok := r.stages[kind]
	return s, ok
}

// Canonical maps an alias onto its canonical kind identifier.
func (r *Registry) Canonical(kind string) (string, bool) {
	id, ok := r.canonical[kind]
	return id, ok
}

func (r *Registry) IsValidType(kind string) bool {
	_, ok := r.canonical[kind]
	return ok
}

// Aliases lists every accepted identifier, sorted.
func (r *Registry) Aliases() []string {
	out := make([]string, 0, len(r.canonical))
	for a := range r.canonical {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// CanonicalTypes lists the canonical kind identifiers, sorted.
func (r *Registry) CanonicalTypes() []string {
	out := make([]string, 0, len(r.defs))
	for id := range r.defs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Definitions returns the definitions ordered by canonical identifier.
func (r *Registry) Definitions() []Definition {
	ids := r.CanonicalTypes()
	out := make([]Definition, len(ids))
	for i, id := range ids {
		out[i] = *r.defs[id]
	}
	return out
}

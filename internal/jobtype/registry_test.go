package jobtype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relionflow/api/internal/builder"
	"github.com/relionflow/api/internal/model"
	"github.com/relionflow/api/internal/params"
)

func TestNew_AllKindsRegistered(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	assert.Len(t, r.CanonicalTypes(), 23)

	for _, d := range r.Definitions() {
		assert.Contains(t, d.Aliases, d.ID, "kind %s", d.ID)
		assert.NotNil(t, d.Validate, "kind %s", d.ID)
	}
}

func TestAliasesResolveToOwningDefinition(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	for _, a := range r.Aliases() {
		d, ok := r.Definition(a)
		require.True(t, ok, a)
		assert.Contains(t, d.Aliases, a)
		stage, _ := r.StageName(a)
		assert.Equal(t, d.StageName, stage)
	}
}

func TestLookups(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	id, ok := r.Canonical("motion_correction")
	require.True(t, ok)
	assert.Equal(t, "motioncorr", id)

	stage, ok := r.StageName("classselect")
	require.True(t, ok)
	assert.Equal(t, "Select", stage)

	d, _ := r.Definition("Refine3D")
	assert.Equal(t, model.TierGPU, d.Tier)

	assert.False(t, r.IsValidType("refine3D"), "identifiers are case-sensitive")
	assert.False(t, r.IsValidType("nope"))
	_, ok = r.Builder("nope")
	assert.False(t, ok)
}

func TestLinkUsesGenericValidator(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	v, ok := r.Validator("link")
	require.True(t, ok)
	f, _ := r.Builder("link")
	b := f(params.Bag{}, model.ProjectContext{RootPath: t.TempDir()}, builder.DefaultOptions())
	assert.True(t, v(b).OK)
}

func TestBuild_RejectsCollisions(t *testing.T) {
	defs := []Definition{
		{ID: "a", StageName: "A", NewBuilder: builder.NewLink, Aliases: []string{"x"}},
		{ID: "b", StageName: "B", NewBuilder: builder.NewLink, Aliases: []string{"x"}},
	}
	_, err := build(defs)
	assert.ErrorContains(t, err, `alias "x"`)

	_, err = build([]Definition{{ID: "a", StageName: "A", NewBuilder: builder.NewLink}, {ID: "a", StageName: "A", NewBuilder: builder.NewLink}})
	assert.ErrorContains(t, err, "duplicate")
}

func TestBuild_AddsCanonicalAlias(t *testing.T) {
	r, err := build([]Definition{{ID: "a", StageName: "A", NewBuilder: builder.NewLink, Aliases: []string{"alpha"}}})
	require.NoError(t, err)
	assert.True(t, r.IsValidType("a"))
	assert.True(t, r.IsValidType("alpha"))
}

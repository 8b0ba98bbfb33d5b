package service

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relionflow/api/internal/model"
)

func TestProjectResolver(t *testing.T) {
	active := t.TempDir()
	archive := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(active, "live"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(archive, "done"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(active, "file"), nil, 0o644))
	r := NewProjectResolver(active, archive)

	p, err := r.Resolve("live")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(active, "live"), p.RootPath)
	assert.False(t, p.Archived)

	p, err = r.Resolve("done")
	require.NoError(t, err)
	assert.True(t, p.Archived)

	_, err = r.Resolve("file")
	assert.ErrorIs(t, err, model.ErrProjectNotFound)

	for _, id := range []string{"", ".", "..", "../live", "a/b", `a\b`} {
		_, err := r.Resolve(id)
		var ve *model.ValidationError
		assert.True(t, errors.As(err, &ve), "id %q: %v", id, err)
	}
}

func TestProjectResolver_NoArchiveRoot(t *testing.T) {
	r := NewProjectResolver(t.TempDir(), "")
	_, err := r.Resolve("anything")
	assert.ErrorIs(t, err, model.ErrProjectNotFound)
}

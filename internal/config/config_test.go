package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relionflow/api/internal/model"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, "sbatch", cfg.Submit.Queue.SubmitCommand)
	assert.Equal(t, "scancel", cfg.Submit.Queue.CancelCommand)
	assert.Equal(t, 30*time.Second, cfg.Watcher.Interval)

	opts := cfg.BuilderOptions()
	assert.Equal(t, model.DestinationLocal, opts.DefaultDestination)
	assert.Equal(t, "mpirun", opts.LocalLauncher)
	assert.NotEmpty(t, opts.HalfMapConventions)
}

func TestLoad_EnvAndSecretFile(t *testing.T) {
	secret := filepath.Join(t.TempDir(), "dsn")
	require.NoError(t, os.WriteFile(secret, []byte("postgres://u:p@db/relion\n"), 0o600))

	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("POSTGRES_DSN_FILE", secret)
	t.Setenv("DEFAULT_DESTINATION", "queue")
	t.Setenv("QUEUE_PARTITION", "gpu")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db/relion", cfg.Store.PostgresDSN)
	assert.Equal(t, "gpu", cfg.Submit.Queue.Partition)
	assert.Equal(t, model.DestinationQueue, cfg.BuilderOptions().DefaultDestination)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	t.Setenv("STORE_BACKEND", "sqlite")
	_, err := Load()
	assert.ErrorContains(t, err, "Backend")
}

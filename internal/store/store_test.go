package store

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relionflow/api/internal/model"
)

func newRecord(project, name string) *model.JobRecord {
	return &model.JobRecord{
		ID:         uuid.New().String(),
		ProjectID:  project,
		JobName:    name,
		Type:       "class3d",
		Status:     model.JobStatusPending,
		Parameters: map[string]any{"maskDiameter": 200.0},
		Command:    []string{"relion_refine", "--o", "Class3D/" + name + "/run"},
		Parents:    []string{"job001"},
		CreatedAt:  time.Now().UTC().Truncate(time.Millisecond),
	}
}

// testStore exercises the Store contract against any backend.
func testStore(t *testing.T, s Store) {
	ctx := context.Background()
	project := "p-" + uuid.New().String()

	t.Run("create and get", func(t *testing.T) {
		job := newRecord(project, "job001")
		require.NoError(t, s.Create(ctx, job))
		got, err := s.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, job.Command, got.Command)
		assert.Equal(t, job.Parents, got.Parents)
		assert.True(t, job.CreatedAt.Equal(got.CreatedAt))

		assert.ErrorIs(t, s.Create(ctx, job), model.ErrDuplicateJob)
	})

	t.Run("missing job", func(t *testing.T) {
		_, err := s.Get(ctx, "nope")
		assert.ErrorIs(t, err, model.ErrJobNotFound)
		_, err = s.Update(ctx, "nope", func(*model.JobRecord) error { return nil })
		assert.ErrorIs(t, err, model.ErrJobNotFound)
	})

	t.Run("update applies atomically", func(t *testing.T) {
		job := newRecord(project, "job002")
		require.NoError(t, s.Create(ctx, job))

		var wg sync.WaitGroup
		results := make(chan error, 8)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Update(ctx, job.ID, func(j *model.JobRecord) error {
					return j.Transition(model.JobStatusRunning, time.Now())
				})
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		var ok int
		for err := range results {
			if err == nil {
				ok++
				continue
			}
			assert.ErrorIs(t, err, model.ErrAlreadySubmitted)
		}
		assert.Equal(t, 1, ok, "exactly one submitter wins")
	})

	t.Run("failed update leaves record", func(t *testing.T) {
		job := newRecord(project, "job003")
		require.NoError(t, s.Create(ctx, job))
		boom := errors.New("boom")
		_, err := s.Update(ctx, job.ID, func(j *model.JobRecord) error {
			j.Status = model.JobStatusFailed
			return boom
		})
		assert.ErrorIs(t, err, boom)
		got, err := s.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusPending, got.Status)
	})

	t.Run("list by project and active", func(t *testing.T) {
		jobs, err := s.ListByProject(ctx, project)
		require.NoError(t, err)
		require.Len(t, jobs, 3)
		assert.Equal(t, "job001", jobs[0].JobName)
		assert.Equal(t, "job003", jobs[2].JobName)

		_, err = s.Update(ctx, jobs[0].ID, func(j *model.JobRecord) error {
			return j.Transition(model.JobStatusCancelled, time.Now())
		})
		require.NoError(t, err)
		active, err := s.ListActive(ctx)
		require.NoError(t, err)
		for _, j := range active {
			assert.NotEqual(t, jobs[0].ID, j.ID)
		}
	})

	t.Run("job numbers are sequential", func(t *testing.T) {
		other := "n-" + uuid.New().String()
		for want := 1; want <= 3; want++ {
			n, err := s.NextJobNumber(ctx, other)
			require.NoError(t, err)
			assert.Equal(t, want, n)
		}
	})
}

func TestMemory(t *testing.T) {
	testStore(t, NewMemory())
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	testStore(t, NewRedis(client, time.Hour))
}

func TestPostgres(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	s, err := NewPostgres(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	testStore(t, s)
}

package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relionflow/api/internal/model"
	"github.com/relionflow/api/internal/store"
	"github.com/relionflow/api/internal/submit"
)

func queuedJob(t *testing.T, st store.Store, status model.JobStatus) *model.JobRecord {
	t.Helper()
	root := t.TempDir()
	job := &model.JobRecord{
		ID:          uuid.New().String(),
		ProjectID:   "p1",
		ProjectRoot: root,
		JobName:     "job004",
		OutputDir:   "AutoPick/job004/",
		Status:      model.JobStatusPending,
		Resources:   model.ResourceSpec{Destination: model.DestinationQueue},
		CreatedAt:   time.Now(),
	}
	require.NoError(t, os.MkdirAll(filepath.Join(root, job.OutputDir), 0o755))
	require.NoError(t, st.Create(context.Background(), job))
	_, err := st.Update(context.Background(), job.ID, func(j *model.JobRecord) error {
		j.SetQueueID("101")
		if err := j.Transition(model.JobStatusRunning, time.Now()); err != nil {
			return err
		}
		if status != model.JobStatusRunning {
			return j.Transition(status, time.Now())
		}
		return nil
	})
	require.NoError(t, err)
	return job
}

func startWatcher(t *testing.T, st store.Store) {
	t.Helper()
	engine, err := submit.New(st, submit.DefaultConfig())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = New(st, engine, 20*time.Millisecond, nil).Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func touch(t *testing.T, job *model.JobRecord, marker string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(job.ProjectRoot, job.OutputDir, marker), nil, 0o644))
}

func TestWatcher_SuccessMarker(t *testing.T) {
	st := store.NewMemory()
	job := queuedJob(t, st, model.JobStatusRunning)
	startWatcher(t, st)

	touch(t, job, submit.MarkerSuccess)
	require.Eventually(t, func() bool {
		got, err := st.Get(context.Background(), job.ID)
		return err == nil && got.Status == model.JobStatusSuccess
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_FailureMarker(t *testing.T) {
	st := store.NewMemory()
	job := queuedJob(t, st, model.JobStatusRunning)
	touch(t, job, submit.MarkerFailure)
	startWatcher(t, st)

	require.Eventually(t, func() bool {
		got, err := st.Get(context.Background(), job.ID)
		return err == nil && got.Status == model.JobStatusFailed && got.Error != nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_CancelledJobIsNotOverwritten(t *testing.T) {
	st := store.NewMemory()
	job := queuedJob(t, st, model.JobStatusCancelled)
	touch(t, job, submit.MarkerSuccess)
	startWatcher(t, st)

	time.Sleep(100 * time.Millisecond)
	got, err := st.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCancelled, got.Status)
}

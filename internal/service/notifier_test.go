package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relionflow/api/internal/model"
	"github.com/relionflow/api/internal/submit"
)

type fakeHub struct {
	mu       sync.Mutex
	statuses []model.JobStatus
}

func (h *fakeHub) BroadcastStatus(job *model.JobRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statuses = append(h.statuses, job.Status)
}

type fakeArchiver struct {
	mu   sync.Mutex
	jobs []string
	err  error
}

func (a *fakeArchiver) ArchiveJobLogs(_ context.Context, job *model.JobRecord) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.jobs = append(a.jobs, job.ID)
	return []string{job.ID + "/run.out"}, a.err
}

func TestNotifier_ArchivesOnlyTerminalJobs(t *testing.T) {
	hub := &fakeHub{}
	arch := &fakeArchiver{}
	n := NewNotifier(hub, arch, nil)

	n.Notify(&model.JobRecord{ID: "a", Status: model.JobStatusRunning})
	n.Notify(&model.JobRecord{ID: "a", Status: model.JobStatusSuccess})
	n.Notify(&model.JobRecord{ID: "b", Status: model.JobStatusFailed})
	n.Wait()

	assert.Equal(t, []model.JobStatus{model.JobStatusRunning, model.JobStatusSuccess, model.JobStatusFailed}, hub.statuses)
	assert.ElementsMatch(t, []string{"a", "b"}, arch.jobs)
}

func TestNotifier_ArchiveErrorIsNotFatal(t *testing.T) {
	arch := &fakeArchiver{err: errors.New("bucket gone")}
	n := NewNotifier(nil, arch, nil)
	n.Notify(&model.JobRecord{ID: "a", Status: model.JobStatusCancelled})
	n.Wait()
	assert.Equal(t, []string{"a"}, arch.jobs)
}

type fakeSubmitter struct{ ids []string }

func (s *fakeSubmitter) Submit(_ context.Context, jobID string) submit.Result {
	s.ids = append(s.ids, jobID)
	return submit.Result{Message: "already submitted", Err: model.ErrAlreadySubmitted}
}

func TestInlineDispatcher_NeverFails(t *testing.T) {
	s := &fakeSubmitter{}
	d := NewInlineDispatcher(s, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, d.Dispatch(ctx, "j1"))
	assert.Equal(t, []string{"j1"}, s.ids)
}

func TestParseSubmitPayload(t *testing.T) {
	task, err := NewSubmitTask("j1")
	require.NoError(t, err)
	assert.Equal(t, TaskTypeSubmit, task.Type())
	p, err := ParseSubmitPayload(task)
	require.NoError(t, err)
	assert.Equal(t, "j1", p.JobID)

	_, err = ParseSubmitPayload(asynq.NewTask(TaskTypeSubmit, []byte(`{}`)))
	assert.Error(t, err)
	_, err = ParseSubmitPayload(asynq.NewTask(TaskTypeSubmit, []byte(`not json`)))
	assert.Error(t, err)
}

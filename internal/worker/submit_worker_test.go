package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relionflow/api/internal/model"
	"github.com/relionflow/api/internal/service"
	"github.com/relionflow/api/internal/submit"
)

type fakeEngine struct {
	ids []string
	res submit.Result
}

func (e *fakeEngine) Submit(_ context.Context, jobID string) submit.Result {
	e.ids = append(e.ids, jobID)
	return e.res
}

func TestProcessTask(t *testing.T) {
	tests := []struct {
		name string
		res  submit.Result
	}{
		{name: "accepted", res: submit.Result{Accepted: true, QueueID: "12"}},
		{name: "duplicate", res: submit.Result{Err: model.ErrAlreadySubmitted, Message: "already"}},
		{name: "rejected", res: submit.Result{Err: errors.New("sbatch: error"), Message: "sbatch: error"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &fakeEngine{res: tt.res}
			task, err := service.NewSubmitTask("job-1")
			require.NoError(t, err)

			require.NoError(t, NewSubmitWorker(e, nil).ProcessTask(context.Background(), task))
			assert.Equal(t, []string{"job-1"}, e.ids)
		})
	}
}

func TestProcessTask_BadPayloadSkipsRetry(t *testing.T) {
	e := &fakeEngine{}
	err := NewSubmitWorker(e, nil).ProcessTask(context.Background(), asynq.NewTask(service.TaskTypeSubmit, []byte("{")))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, e.ids)
}

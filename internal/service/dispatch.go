package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/relionflow/api/internal/submit"
)

const (
	TaskTypeSubmit = "job:submit"
	QueueSubmit    = "submit"
)

// Dispatcher hands a recorded job over to the submission engine.
type Dispatcher interface {
	Dispatch(ctx context.Context, jobID string) error
}

// Submitter is the part of the submission engine a dispatcher drives.
type Submitter interface {
	Submit(ctx context.Context, jobID string) submit.Result
}

// SubmitPayload is the asynq task body.
type SubmitPayload struct {
	JobID string `json:"jobId"`
}

func NewSubmitTask(jobID string) (*asynq.Task, error) {
	data, err := json.Marshal(SubmitPayload{JobID: jobID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSubmit, data), nil
}

func ParseSubmitPayload(t *asynq.Task) (SubmitPayload, error) {
	var p SubmitPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("failed to unmarshal task payload: %w", err)
	}
	if p.JobID == "" {
		return p, fmt.Errorf("task payload has no job id")
	}
	return p, nil
}

// AsynqDispatcher enqueues submissions for the worker server. Tasks are
// never retried: a second attempt could launch the job twice.
type AsynqDispatcher struct {
	client *asynq.Client
}

func NewAsynqDispatcher(client *asynq.Client) *AsynqDispatcher {
	return &AsynqDispatcher{client: client}
}

func (d *AsynqDispatcher) Dispatch(ctx context.Context, jobID string) error {
	task, err := NewSubmitTask(jobID)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	_, err = d.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueSubmit),
		asynq.MaxRetry(0),
		asynq.TaskID(jobID),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// InlineDispatcher submits in the calling goroutine. It is used when no
// Redis is configured.
type InlineDispatcher struct {
	engine Submitter
	log    *slog.Logger
}

func NewInlineDispatcher(engine Submitter, logger *slog.Logger) *InlineDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &InlineDispatcher{engine: engine, log: logger}
}

// Dispatch never fails: a rejected submission is already recorded on the
// job as failed.
func (d *InlineDispatcher) Dispatch(ctx context.Context, jobID string) error {
	res := d.engine.Submit(context.WithoutCancel(ctx), jobID)
	if !res.Accepted {
		d.log.Warn("submission not accepted", "job_id", jobID, "reason", res.Message)
	}
	return nil
}

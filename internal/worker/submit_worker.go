package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/relionflow/api/internal/model"
	"github.com/relionflow/api/internal/service"
)

// SubmitWorker runs dispatched submissions on the asynq server.
type SubmitWorker struct {
	engine service.Submitter
	log    *slog.Logger
}

func NewSubmitWorker(engine service.Submitter, logger *slog.Logger) *SubmitWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubmitWorker{engine: engine, log: logger}
}

// ProcessTask submits the job named in the task. Rejections are recorded
// on the job by the engine, so they are not task errors; only a malformed
// payload is.
func (w *SubmitWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	payload, err := service.ParseSubmitPayload(t)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	log := w.log.With("job_id", payload.JobID)
	log.Info("starting submission")

	res := w.engine.Submit(ctx, payload.JobID)
	switch {
	case res.Accepted:
		log.Info("submission accepted", "queue_id", res.QueueID, "message", res.Message)
	case errors.Is(res.Err, model.ErrAlreadySubmitted), errors.Is(res.Err, model.ErrTerminal):
		log.Warn("duplicate submission ignored", "reason", res.Message)
	default:
		log.Error("submission rejected", "reason", res.Message)
	}
	return nil
}

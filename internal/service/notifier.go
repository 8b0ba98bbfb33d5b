package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/relionflow/api/internal/client"
	"github.com/relionflow/api/internal/model"
)

// StatusBroadcaster publishes job status changes to live subscribers.
type StatusBroadcaster interface {
	BroadcastStatus(job *model.JobRecord)
}

// Notifier fans engine status changes out to the websocket hub and, once
// a job is terminal, archives its logs.
type Notifier struct {
	hub      StatusBroadcaster
	archiver client.LogArchiver
	log      *slog.Logger
	timeout  time.Duration
	wg       sync.WaitGroup
}

func NewNotifier(hub StatusBroadcaster, archiver client.LogArchiver, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{hub: hub, archiver: archiver, log: logger, timeout: 2 * time.Minute}
}

// Notify is a submit.Notifier.
func (n *Notifier) Notify(job *model.JobRecord) {
	if n.hub != nil {
		n.hub.BroadcastStatus(job)
	}
	if n.archiver == nil || !job.Status.IsTerminal() {
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		keys, err := n.archiver.ArchiveJobLogs(ctx, job)
		if err != nil {
			n.log.Warn("log archive failed", "job_id", job.ID, "error", err)
			return
		}
		n.log.Debug("job logs archived", "job_id", job.ID, "objects", len(keys))
	}()
}

// Wait blocks until pending archive uploads have finished.
func (n *Notifier) Wait() { n.wg.Wait() }

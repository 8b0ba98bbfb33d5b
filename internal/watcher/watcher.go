// Package watcher completes queued jobs when the batch script drops its
// exit marker into the job directory.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/relionflow/api/internal/model"
	"github.com/relionflow/api/internal/store"
	"github.com/relionflow/api/internal/submit"
)

// Completer records a job's terminal status.
type Completer interface {
	Complete(ctx context.Context, jobID string, status model.JobStatus, cause error) (*model.JobRecord, error)
}

// Watcher tracks the output directories of running queue jobs. fsnotify
// delivers markers promptly on local disks; the periodic rescan picks up
// new jobs and covers filesystems without inotify.
type Watcher struct {
	store     store.Store
	completer Completer
	interval  time.Duration
	log       *slog.Logger

	mu      sync.Mutex
	watched map[string]string
}

func New(st store.Store, c Completer, interval time.Duration, logger *slog.Logger) *Watcher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		store:     st,
		completer: c,
		interval:  interval,
		log:       logger,
		watched:   map[string]string{},
	}
}

// Run blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start file watcher: %w", err)
	}
	defer fsw.Close()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.scan(ctx, fsw)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.scan(ctx, fsw)
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			dir := filepath.Dir(event.Name)
			w.mu.Lock()
			jobID, tracked := w.watched[dir]
			w.mu.Unlock()
			if tracked {
				w.check(ctx, fsw, dir, jobID)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("file watcher error", "error", err)
		}
	}
}

// scan starts watching new queue jobs and re-checks every tracked
// directory for markers.
func (w *Watcher) scan(ctx context.Context, fsw *fsnotify.Watcher) {
	jobs, err := w.store.ListActive(ctx)
	if err != nil {
		w.log.Error("list active jobs", "error", err)
		return
	}
	for _, job := range jobs {
		if job.Status != model.JobStatusRunning || job.Resources.Destination != model.DestinationQueue || job.QueueID == nil {
			continue
		}
		dir := filepath.Clean(filepath.Join(job.ProjectRoot, job.OutputDir))
		w.mu.Lock()
		_, tracked := w.watched[dir]
		if !tracked {
			w.watched[dir] = job.ID
		}
		w.mu.Unlock()
		if !tracked {
			if err := fsw.Add(dir); err != nil {
				w.log.Debug("cannot watch job directory, polling instead", "dir", dir, "error", err)
			}
		}
		w.check(ctx, fsw, dir, job.ID)
	}
}

func (w *Watcher) check(ctx context.Context, fsw *fsnotify.Watcher, dir, jobID string) {
	var (
		status model.JobStatus
		cause  error
	)
	switch {
	case exists(filepath.Join(dir, submit.MarkerSuccess)):
		status = model.JobStatusSuccess
	case exists(filepath.Join(dir, submit.MarkerFailure)):
		status = model.JobStatusFailed
		cause = errors.New("queue job reported failure")
	default:
		return
	}
	if _, err := w.completer.Complete(ctx, jobID, status, cause); err != nil && !errors.Is(err, model.ErrTerminal) {
		w.log.Error("record queue job completion", "job_id", jobID, "error", err)
		return
	}
	w.log.Info("queue job finished", "job_id", jobID, "status", status)
	w.mu.Lock()
	delete(w.watched, dir)
	w.mu.Unlock()
	_ = fsw.Remove(dir)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

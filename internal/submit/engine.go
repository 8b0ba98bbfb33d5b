// Package submit launches built job commands, either as supervised local
// processes or as SLURM batch scripts, and drives their JobRecords to a
// terminal status.
package submit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/relionflow/api/internal/model"
	"github.com/relionflow/api/internal/store"
)

// Exit marker files written into a job's output directory by queued jobs.
const (
	MarkerSuccess = "RELION_JOB_EXIT_SUCCESS"
	MarkerFailure = "RELION_JOB_EXIT_FAILURE"
	ScriptName    = "run_submit.script"
)

// Result reports whether a submission was accepted.
type Result struct {
	Accepted bool
	QueueID  string
	Message  string
	Err      error
}

// Notifier is called with the record after every status change the engine
// makes.
type Notifier func(job *model.JobRecord)

// Engine submits jobs. It is safe for concurrent use.
type Engine struct {
	store    store.Store
	cfg      Config
	runner   Runner
	log      *slog.Logger
	queueID  *regexp.Regexp
	notifier Notifier
	now      func() time.Time

	mu    sync.Mutex
	procs map[string]*os.Process
	wg    sync.WaitGroup
}

type Option func(*Engine)

func WithRunner(r Runner) Option       { return func(e *Engine) { e.runner = r } }
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.log = l } }
func WithNotifier(n Notifier) Option   { return func(e *Engine) { e.notifier = n } }

// New validates cfg and returns an Engine persisting through st.
func New(st store.Store, cfg Config, opts ...Option) (*Engine, error) {
	re, err := cfg.validate()
	if err != nil {
		return nil, err
	}
	e := &Engine{
		store:   st,
		cfg:     cfg,
		runner:  ExecRunner{},
		log:     slog.Default(),
		queueID: re,
		now:     time.Now,
		procs:   map[string]*os.Process{},
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Submit launches the job with the given id. The record must be pending:
// it is moved to running before anything is spawned, so a second Submit
// of the same job is rejected.
func (e *Engine) Submit(ctx context.Context, jobID string) (res Result) {
	job, err := e.store.Update(ctx, jobID, func(j *model.JobRecord) error {
		return j.Transition(model.JobStatusRunning, e.now())
	})
	if err != nil {
		return Result{Message: err.Error(), Err: err}
	}
	e.notify(job)
	log := e.log.With("job_id", job.ID, "job_name", job.JobName, "destination", job.Resources.Destination)

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("submission panicked: %v", r)
			e.fail(ctx, job.ID, err)
			res = Result{Message: err.Error(), Err: err}
		}
	}()

	switch job.Resources.Destination {
	case model.DestinationQueue:
		queueID, err := e.submitQueue(ctx, job)
		if errors.Is(err, model.ErrTerminal) {
			log.Info("job cancelled while queueing", "queue_id", queueID)
			return Result{QueueID: queueID, Message: err.Error(), Err: err}
		}
		if err != nil {
			log.Error("queue submission failed", "error", err)
			e.fail(ctx, job.ID, err)
			return Result{Message: err.Error(), Err: err}
		}
		log.Info("job queued", "queue_id", queueID)
		return Result{Accepted: true, QueueID: queueID, Message: "submitted to queue"}
	default:
		if err := e.startLocal(job); err != nil {
			log.Error("local start failed", "error", err)
			e.fail(ctx, job.ID, err)
			return Result{Message: err.Error(), Err: err}
		}
		log.Info("job started locally")
		return Result{Accepted: true, Message: "started locally"}
	}
}

// Complete moves a running job to a terminal status. A job that is
// already terminal is left alone and ErrTerminal is returned.
func (e *Engine) Complete(ctx context.Context, jobID string, status model.JobStatus, cause error) (*model.JobRecord, error) {
	job, err := e.store.Update(ctx, jobID, func(j *model.JobRecord) error {
		if err := j.Transition(status, e.now()); err != nil {
			return err
		}
		if cause != nil {
			j.SetError(cause.Error())
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrTerminal) {
			e.log.Debug("completion ignored for terminal job", "job_id", jobID, "status", status)
		}
		return nil, err
	}
	e.notify(job)
	return job, nil
}

func (e *Engine) fail(ctx context.Context, jobID string, cause error) {
	if _, err := e.Complete(context.WithoutCancel(ctx), jobID, model.JobStatusFailed, cause); err != nil && !errors.Is(err, model.ErrTerminal) {
		e.log.Error("failed to record job failure", "job_id", jobID, "error", err)
	}
}

// Cancel marks a job cancelled and then stops it. Local processes are
// signalled; queued jobs are cancelled through the scheduler. The status
// is written first so a process reaped by the signal cannot record a
// failure over the cancel.
func (e *Engine) Cancel(ctx context.Context, jobID string) (*model.JobRecord, error) {
	job, err := e.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: job %s is %s", model.ErrTerminal, job.ID, job.Status)
	}
	wasRunning := job.Status == model.JobStatusRunning
	job, err = e.Complete(ctx, jobID, model.JobStatusCancelled, nil)
	if err != nil {
		return nil, err
	}
	if wasRunning {
		if err := e.stop(ctx, job); err != nil {
			e.log.Error("failed to stop cancelled job", "job_id", job.ID, "error", err)
			return job, err
		}
	}
	return job, nil
}

func (e *Engine) stop(ctx context.Context, job *model.JobRecord) error {
	if job.Resources.Destination == model.DestinationQueue {
		if job.QueueID == nil {
			// submitQueue sees the cancelled record and cancels the id itself.
			return nil
		}
		return e.cancelQueued(ctx, job.ProjectRoot, *job.QueueID)
	}
	e.mu.Lock()
	p := e.procs[job.ID]
	e.mu.Unlock()
	if p == nil {
		return nil
	}
	return stopProcess(p)
}

func (e *Engine) cancelQueued(ctx context.Context, dir, queueID string) error {
	out, err := e.runner.Run(ctx, dir, e.cfg.Queue.CancelCommand, queueID)
	if err != nil {
		return fmt.Errorf("cancel queue job %s: %w: %s", queueID, err, out)
	}
	return nil
}

func stopProcess(p *os.Process) error {
	if err := terminate(p); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("stop process %d: %w", p.Pid, err)
	}
	return nil
}

// Wait blocks until every supervised local process has been reaped.
func (e *Engine) Wait() { e.wg.Wait() }

func (e *Engine) notify(job *model.JobRecord) {
	if e.notifier != nil {
		e.notifier(job)
	}
}

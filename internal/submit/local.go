package submit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/relionflow/api/internal/model"
)

// startLocal spawns the job's command in the project root with its output
// captured in the job directory, then supervises it in the background.
func (e *Engine) startLocal(job *model.JobRecord) error {
	if len(job.Command) == 0 {
		return errors.New("empty command")
	}
	dir := filepath.Join(job.ProjectRoot, job.OutputDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create job directory: %w", err)
	}
	stdout, stderr, err := openLogs(dir)
	if err != nil {
		return err
	}

	argv := e.cfg.Container.wrap(job.Command, launcherWidth(job.Command, e.cfg.LocalLauncher), job.Resources.GPUs, job.ProjectRoot)
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = job.ProjectRoot
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	detach(cmd)
	if err := cmd.Start(); err != nil {
		stdout.Close()
		stderr.Close()
		return fmt.Errorf("start %s: %w", argv[0], err)
	}

	e.mu.Lock()
	e.procs[job.ID] = cmd.Process
	e.mu.Unlock()

	// A cancel that landed before the process was tracked found nothing
	// to signal.
	if cur, err := e.store.Get(context.Background(), job.ID); err == nil && cur.Status.IsTerminal() {
		if err := stopProcess(cmd.Process); err != nil {
			e.log.Error("failed to stop cancelled job", "job_id", job.ID, "error", err)
		}
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer stdout.Close()
		defer stderr.Close()
		e.supervise(job, cmd, stdout, stderr)
	}()
	return nil
}

func openLogs(dir string) (*os.File, *os.File, error) {
	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	stdout, err := os.OpenFile(filepath.Join(dir, "run.out"), flags, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open run.out: %w", err)
	}
	stderr, err := os.OpenFile(filepath.Join(dir, "run.err"), flags, 0o644)
	if err != nil {
		stdout.Close()
		return nil, nil, fmt.Errorf("open run.err: %w", err)
	}
	return stdout, stderr, nil
}

// supervise waits for the process and records the outcome. The post
// command runs only after a clean exit; its failure is noted on the
// record without undoing the success.
func (e *Engine) supervise(job *model.JobRecord, cmd *exec.Cmd, stdout, stderr *os.File) {
	ctx := context.Background()
	log := e.log.With("job_id", job.ID, "job_name", job.JobName)
	waitErr := cmd.Wait()

	e.mu.Lock()
	delete(e.procs, job.ID)
	e.mu.Unlock()

	if waitErr != nil {
		var cause error = waitErr
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			cause = &model.ProcessFailure{ExitCode: exitErr.ExitCode()}
		}
		log.Warn("job process failed", "error", cause)
		e.finish(ctx, job.ID, model.JobStatusFailed, cause)
		return
	}

	var cause error
	if len(job.PostCommand) > 0 {
		if err := e.runPost(job, stdout, stderr); err != nil {
			cause = &model.PostCommandFailure{Err: err}
			log.Warn("post command failed", "error", err)
		}
	}
	log.Info("job finished")
	e.finish(ctx, job.ID, model.JobStatusSuccess, cause)
}

func (e *Engine) runPost(job *model.JobRecord, stdout, stderr *os.File) error {
	argv := e.cfg.Container.wrap(job.PostCommand, 0, job.Resources.GPUs, job.ProjectRoot)
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = job.ProjectRoot
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

func (e *Engine) finish(ctx context.Context, jobID string, status model.JobStatus, cause error) {
	if _, err := e.Complete(ctx, jobID, status, cause); err != nil && !errors.Is(err, model.ErrTerminal) {
		e.log.Error("failed to record job completion", "job_id", jobID, "error", err)
	}
}

package submit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/relionflow/api/internal/model"
)

var cacheEnvName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// submitQueue writes the batch script into the job directory, hands it to
// sbatch and records the scheduler's job id. If the job was cancelled while
// sbatch ran, the new scheduler job is cancelled and ErrTerminal returned.
func (e *Engine) submitQueue(ctx context.Context, job *model.JobRecord) (string, error) {
	dir := filepath.Join(job.ProjectRoot, job.OutputDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create job directory: %w", err)
	}
	script, err := e.buildScript(job)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, ScriptName)
	if err := os.WriteFile(path, script, 0o755); err != nil {
		return "", fmt.Errorf("write batch script: %w", err)
	}

	out, err := e.runner.Run(ctx, job.ProjectRoot, e.cfg.Queue.SubmitCommand, path)
	if err != nil {
		return "", &model.SubmissionFailure{Reason: strings.TrimSpace(string(out)), Err: err}
	}
	m := e.queueID.FindSubmatch(out)
	if m == nil {
		return "", &model.SubmissionFailure{Reason: fmt.Sprintf("no job id in scheduler output %q", strings.TrimSpace(string(out)))}
	}
	queueID := string(m[1])

	updated, err := e.store.Update(ctx, job.ID, func(j *model.JobRecord) error {
		if j.Status.IsTerminal() {
			return fmt.Errorf("%w: job %s is %s", model.ErrTerminal, j.ID, j.Status)
		}
		j.SetQueueID(queueID)
		return nil
	})
	if errors.Is(err, model.ErrTerminal) {
		if cerr := e.cancelQueued(context.WithoutCancel(ctx), job.ProjectRoot, queueID); cerr != nil {
			e.log.Error("failed to cancel queue job of cancelled record", "job_id", job.ID, "queue_id", queueID, "error", cerr)
		}
		return queueID, err
	}
	if err != nil {
		return "", fmt.Errorf("record queue id %s: %w", queueID, err)
	}
	e.notify(updated)
	return queueID, nil
}

func (e *Engine) buildScript(job *model.JobRecord) ([]byte, error) {
	res := job.Resources
	log := e.log.With("job_id", job.ID)

	partition := res.Partition
	if partition == "" {
		partition = e.cfg.Queue.Partition
	}
	partition, err := sanitizePartition(partition)
	if err != nil {
		log.Warn("dropping scheduler partition", "error", err)
		partition = ""
	}
	directives, dropped := sanitizeDirectives(strings.TrimSpace(e.cfg.Queue.ExtraArgs + " " + res.ExtraArgs))
	for _, d := range dropped {
		log.Warn("dropping scheduler directive", "directive", d)
	}

	cacheEnv := e.cfg.Queue.CacheEnv
	if cacheEnv != "" && !cacheEnvName.MatchString(cacheEnv) {
		log.Warn("ignoring invalid cache variable name", "name", cacheEnv)
		cacheEnv = ""
	}
	cacheDir := e.cfg.Queue.CacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(job.ProjectRoot, ".cache")
	}

	argv := e.cfg.Container.wrap(job.Command, 0, res.GPUs, job.ProjectRoot)
	if res.MPIProcs > 1 {
		argv = append([]string{e.cfg.Queue.MPILauncher}, argv...)
	}
	var post string
	if len(job.PostCommand) > 0 {
		post = shellJoin(e.cfg.Container.wrap(job.PostCommand, 0, res.GPUs, job.ProjectRoot))
	}

	return renderScript(scriptData{
		JobName:       job.JobName,
		OutputDir:     job.OutputDir,
		Tasks:         max(1, res.MPIProcs),
		Threads:       max(1, res.Threads),
		Partition:     partition,
		GPUs:          res.GPUs,
		Directives:    directives,
		CacheEnv:      cacheEnv,
		CacheDir:      cacheDir,
		ProjectRoot:   job.ProjectRoot,
		Command:       shellJoin(argv),
		PostCommand:   post,
		SuccessMarker: filepath.Join(job.OutputDir, MarkerSuccess),
		FailureMarker: filepath.Join(job.OutputDir, MarkerFailure),

		RootFailureMarker: filepath.Join(job.ProjectRoot, job.OutputDir, MarkerFailure),
	})
}

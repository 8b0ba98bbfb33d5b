package submit

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relionflow/api/internal/model"
	"github.com/relionflow/api/internal/store"
)

type call struct {
	name string
	args []string
}

// fakeRunner answers scheduler commands without running them.
type fakeRunner struct {
	mu     sync.Mutex
	calls  []call
	output string
	err    error
}

func (f *fakeRunner) Run(_ context.Context, _, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{name, args})
	return []byte(f.output), f.err
}

func newJob(t *testing.T, st store.Store, dest model.Destination, cmd ...string) *model.JobRecord {
	t.Helper()
	job := &model.JobRecord{
		ID:          uuid.New().String(),
		ProjectID:   "p1",
		ProjectRoot: t.TempDir(),
		Type:        "class3d",
		JobName:     "job009",
		OutputDir:   "Class3D/job009/",
		Status:      model.JobStatusPending,
		Command:     cmd,
		Resources:   model.ResourceSpec{Destination: dest, MPIProcs: 1, Threads: 1},
		CreatedAt:   time.Now(),
	}
	require.NoError(t, st.Create(context.Background(), job))
	return job
}

func newEngine(t *testing.T, st store.Store, opts ...Option) *Engine {
	t.Helper()
	e, err := New(st, DefaultConfig(), opts...)
	require.NoError(t, err)
	return e
}

func status(t *testing.T, st store.Store, id string) *model.JobRecord {
	t.Helper()
	job, err := st.Get(context.Background(), id)
	require.NoError(t, err)
	return job
}

func TestLocal_Success(t *testing.T) {
	st := store.NewMemory()
	e := newEngine(t, st)
	job := newJob(t, st, model.DestinationLocal, "sh", "-c", "echo hello; echo oops >&2")

	res := e.Submit(context.Background(), job.ID)
	require.True(t, res.Accepted, res.Message)
	e.Wait()

	got := status(t, st, job.ID)
	assert.Equal(t, model.JobStatusSuccess, got.Status)
	assert.Nil(t, got.Error)
	assert.NotNil(t, got.StartedAt)
	assert.NotNil(t, got.EndedAt)

	out, err := os.ReadFile(filepath.Join(job.ProjectRoot, job.OutputDir, "run.out"))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(out))
	errOut, err := os.ReadFile(filepath.Join(job.ProjectRoot, job.OutputDir, "run.err"))
	require.NoError(t, err)
	assert.Equal(t, "oops\n", string(errOut))
}

func TestLocal_NonZeroExit(t *testing.T) {
	st := store.NewMemory()
	e := newEngine(t, st)
	job := newJob(t, st, model.DestinationLocal, "sh", "-c", "exit 3")

	require.True(t, e.Submit(context.Background(), job.ID).Accepted)
	e.Wait()

	got := status(t, st, job.ID)
	assert.Equal(t, model.JobStatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Contains(t, *got.Error, "code 3")
}

func TestLocal_MissingExecutableFails(t *testing.T) {
	st := store.NewMemory()
	e := newEngine(t, st)
	job := newJob(t, st, model.DestinationLocal, "relion_definitely_not_installed")

	res := e.Submit(context.Background(), job.ID)
	assert.False(t, res.Accepted)
	assert.Error(t, res.Err)
	assert.Equal(t, model.JobStatusFailed, status(t, st, job.ID).Status)
}

func TestLocal_PostCommandFailureKeepsSuccess(t *testing.T) {
	st := store.NewMemory()
	e := newEngine(t, st)
	job := newJob(t, st, model.DestinationLocal, "true")
	_, err := st.Update(context.Background(), job.ID, func(j *model.JobRecord) error {
		j.PostCommand = []string{"false"}
		return nil
	})
	require.NoError(t, err)

	require.True(t, e.Submit(context.Background(), job.ID).Accepted)
	e.Wait()

	got := status(t, st, job.ID)
	assert.Equal(t, model.JobStatusSuccess, got.Status)
	require.NotNil(t, got.Error)
	assert.Contains(t, *got.Error, "post-command failed")
}

func TestSubmit_AtMostOnce(t *testing.T) {
	st := store.NewMemory()
	e := newEngine(t, st)
	job := newJob(t, st, model.DestinationLocal, "true")

	require.True(t, e.Submit(context.Background(), job.ID).Accepted)
	second := e.Submit(context.Background(), job.ID)
	assert.False(t, second.Accepted)
	assert.ErrorIs(t, second.Err, model.ErrAlreadySubmitted)
	e.Wait()
}

func TestCancel_LocalIsFinal(t *testing.T) {
	st := store.NewMemory()
	var mu sync.Mutex
	var seen []model.JobStatus
	e := newEngine(t, st, WithNotifier(func(j *model.JobRecord) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, j.Status)
	}))
	job := newJob(t, st, model.DestinationLocal, "sleep", "30")

	require.True(t, e.Submit(context.Background(), job.ID).Accepted)
	got, err := e.Cancel(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCancelled, got.Status)

	e.Wait()
	assert.Equal(t, model.JobStatusCancelled, status(t, st, job.ID).Status, "completion must not overwrite cancel")

	_, err = e.Cancel(context.Background(), job.ID)
	assert.ErrorIs(t, err, model.ErrTerminal)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []model.JobStatus{model.JobStatusRunning, model.JobStatusCancelled}, seen)
}

func TestCancel_Pending(t *testing.T) {
	st := store.NewMemory()
	e := newEngine(t, st)
	job := newJob(t, st, model.DestinationLocal, "true")

	got, err := e.Cancel(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCancelled, got.Status)

	res := e.Submit(context.Background(), job.ID)
	assert.ErrorIs(t, res.Err, model.ErrTerminal)
}

func TestQueue_SubmitWritesScript(t *testing.T) {
	st := store.NewMemory()
	runner := &fakeRunner{output: "Submitted batch job 4242\n"}
	cfg := DefaultConfig()
	cfg.Queue.ExtraArgs = "--time=02:00:00"
	e, err := New(st, cfg, WithRunner(runner))
	require.NoError(t, err)

	job := newJob(t, st, model.DestinationQueue, "relion_refine_mpi", "--o", "Class3D/job009/run", "--sym", "C1")
	_, err = st.Update(context.Background(), job.ID, func(j *model.JobRecord) error {
		j.Resources = model.ResourceSpec{
			Destination: model.DestinationQueue,
			MPIProcs:    4,
			Threads:     2,
			GPUs:        2,
			Partition:   "gpu",
			ExtraArgs:   "--mem=64G --comment=$(reboot)",
		}
		return nil
	})
	require.NoError(t, err)

	res := e.Submit(context.Background(), job.ID)
	require.True(t, res.Accepted, res.Message)
	assert.Equal(t, "4242", res.QueueID)

	got := status(t, st, job.ID)
	assert.Equal(t, model.JobStatusRunning, got.Status)
	require.NotNil(t, got.QueueID)
	assert.Equal(t, "4242", *got.QueueID)

	path := filepath.Join(job.ProjectRoot, job.OutputDir, ScriptName)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, call{"sbatch", []string{path}}, runner.calls[0])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	script := string(data)
	for _, want := range []string{
		"#SBATCH --ntasks=4",
		"#SBATCH --cpus-per-task=2",
		"#SBATCH --partition=gpu",
		"#SBATCH --gres=gpu:2",
		"#SBATCH --time=02:00:00",
		"#SBATCH --mem=64G",
		"cd " + job.ProjectRoot,
		"srun relion_refine_mpi --o Class3D/job009/run --sym C1",
		"touch Class3D/job009/" + MarkerSuccess,
		"touch Class3D/job009/" + MarkerFailure,
	} {
		assert.Contains(t, script, want)
	}
	assert.NotContains(t, script, "reboot")
}

func TestQueue_UnparseableOutputFails(t *testing.T) {
	st := store.NewMemory()
	e := newEngine(t, st, WithRunner(&fakeRunner{output: "sbatch: error: invalid partition"}))
	job := newJob(t, st, model.DestinationQueue, "relion_refine")

	res := e.Submit(context.Background(), job.ID)
	assert.False(t, res.Accepted)
	var sf *model.SubmissionFailure
	assert.ErrorAs(t, res.Err, &sf)

	got := status(t, st, job.ID)
	assert.Equal(t, model.JobStatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Contains(t, *got.Error, "invalid partition")
}

func TestQueue_Cancel(t *testing.T) {
	st := store.NewMemory()
	runner := &fakeRunner{output: "Submitted batch job 77"}
	e := newEngine(t, st, WithRunner(runner))
	job := newJob(t, st, model.DestinationQueue, "relion_refine")

	require.True(t, e.Submit(context.Background(), job.ID).Accepted)
	_, err := e.Cancel(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, runner.calls, 2)
	assert.Equal(t, call{"scancel", []string{"77"}}, runner.calls[1])
}

func TestQueue_PostCommandInScript(t *testing.T) {
	st := store.NewMemory()
	e := newEngine(t, st)
	job := newJob(t, st, model.DestinationQueue, "relion_refine", "--o", "InitialModel/job009/run")
	job.PostCommand = []string{"relion_align_symmetry", "--sym", "D2"}

	script, err := e.buildScript(job)
	require.NoError(t, err)
	s := string(script)
	post := strings.Index(s, "relion_align_symmetry --sym D2")
	marker := strings.Index(s, MarkerSuccess)
	require.Positive(t, post)
	assert.Less(t, post, marker)
	assert.NotContains(t, s, "srun", "single-process jobs need no launcher")
}

func TestNew_RejectsUnsafeConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"foreign submit binary", func(c *Config) { c.Queue.SubmitCommand = "/usr/bin/qsub" }},
		{"shell as cancel", func(c *Config) { c.Queue.CancelCommand = "/bin/sh" }},
		{"unknown runtime", func(c *Config) { c.Container.Runtime = "docker" }},
		{"bad image", func(c *Config) { c.Container.Image = "docker://Not A Valid/ref" }},
		{"pattern without group", func(c *Config) { c.Queue.IDPattern = `Submitted batch job \d+` }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := New(store.NewMemory(), cfg)
			assert.Error(t, err)
		})
	}

	cfg := DefaultConfig()
	cfg.Queue.SubmitCommand = "/opt/slurm/bin/sbatch"
	cfg.Container.Image = "docker://ghcr.io/example/relion:5.0"
	_, err := New(store.NewMemory(), cfg)
	assert.NoError(t, err)
}

// slowStore delays every write so concurrent completions interleave.
type slowStore struct {
	store.Store
	delay time.Duration
}

func (s *slowStore) Update(ctx context.Context, id string, fn func(*model.JobRecord) error) (*model.JobRecord, error) {
	time.Sleep(s.delay)
	return s.Store.Update(ctx, id, fn)
}

func TestCancel_LocalWithSlowStoreStaysCancelled(t *testing.T) {
	st := &slowStore{Store: store.NewMemory(), delay: 30 * time.Millisecond}
	e := newEngine(t, st)
	job := newJob(t, st, model.DestinationLocal, "sleep", "30")

	require.True(t, e.Submit(context.Background(), job.ID).Accepted)
	got, err := e.Cancel(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCancelled, got.Status)

	e.Wait()
	final := status(t, st, job.ID)
	assert.Equal(t, model.JobStatusCancelled, final.Status)
	assert.Nil(t, final.Error)
}

// cancellingRunner cancels the job while the scheduler is accepting it.
type cancellingRunner struct {
	fakeRunner
	cancel func()
}

func (r *cancellingRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	if name == "sbatch" && r.cancel != nil {
		r.cancel()
	}
	return r.fakeRunner.Run(ctx, dir, name, args...)
}

func TestQueue_CancelDuringSubmissionCancelsSchedulerJob(t *testing.T) {
	st := store.NewMemory()
	runner := &cancellingRunner{fakeRunner: fakeRunner{output: "Submitted batch job 77"}}
	e := newEngine(t, st, WithRunner(runner))
	job := newJob(t, st, model.DestinationQueue, "relion_refine")

	var cancelErr error
	runner.cancel = func() { _, cancelErr = e.Cancel(context.Background(), job.ID) }

	res := e.Submit(context.Background(), job.ID)
	require.NoError(t, cancelErr)
	assert.False(t, res.Accepted)
	assert.ErrorIs(t, res.Err, model.ErrTerminal)
	assert.Equal(t, "77", res.QueueID)

	require.Len(t, runner.calls, 2)
	assert.Equal(t, "sbatch", runner.calls[0].name)
	assert.Equal(t, call{"scancel", []string{"77"}}, runner.calls[1])

	got := status(t, st, job.ID)
	assert.Equal(t, model.JobStatusCancelled, got.Status)
	assert.Nil(t, got.QueueID)
}

func TestQueue_ScriptMarksFailureWhenRootIsMissing(t *testing.T) {
	st := store.NewMemory()
	e := newEngine(t, st)
	job := newJob(t, st, model.DestinationQueue, "relion_refine")

	script, err := e.buildScript(job)
	require.NoError(t, err)
	marker := filepath.Join(job.ProjectRoot, job.OutputDir, MarkerFailure)
	assert.Contains(t, string(script), "cd "+job.ProjectRoot+" || { touch "+marker+"; exit 1; }")
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/relionflow/api/internal/builder"
	"github.com/relionflow/api/internal/graph"
	"github.com/relionflow/api/internal/jobtype"
	"github.com/relionflow/api/internal/model"
	"github.com/relionflow/api/internal/params"
	"github.com/relionflow/api/internal/store"
)

// Canceller stops a job and records it as cancelled.
type Canceller interface {
	Cancel(ctx context.Context, jobID string) (*model.JobRecord, error)
}

// JobService records submissions and hands them to a Dispatcher.
type JobService struct {
	store      store.Store
	registry   *jobtype.Registry
	projects   *ProjectResolver
	opts       builder.Options
	dispatcher Dispatcher
	canceller  Canceller
	log        *slog.Logger
	now        func() time.Time
}

func NewJobService(
	st store.Store,
	registry *jobtype.Registry,
	projects *ProjectResolver,
	opts builder.Options,
	dispatcher Dispatcher,
	canceller Canceller,
	logger *slog.Logger,
) *JobService {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobService{
		store:      st,
		registry:   registry,
		projects:   projects,
		opts:       opts,
		dispatcher: dispatcher,
		canceller:  canceller,
		log:        logger,
		now:        time.Now,
	}
}

type prepared struct {
	def     *jobtype.Definition
	project model.ProjectContext
	bag     params.Bag
	builder builder.Builder
}

func (s *JobService) prepare(req *model.SubmitJobRequest) (*prepared, error) {
	def, ok := s.registry.Definition(req.JobType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownJobType, req.JobType)
	}
	project, err := s.projects.Resolve(req.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.Archived {
		return nil, fmt.Errorf("%w: %s", model.ErrProjectArchived, project.ID)
	}
	bag := params.Bag(req.Parameters).Clone()
	b := def.NewBuilder(bag, project, s.opts)
	if res := def.Validate(b); !res.OK {
		return nil, res.Err()
	}
	// A throwaway build catches kinds that pass validation but cannot
	// produce a command, before a job number is taken.
	if dry := def.NewBuilder(bag, project, s.opts); len(dry.BuildCommand(builder.OutputDir(def.StageName, 1), builder.JobName(1))) == 0 {
		return nil, emptyCommand(dry)
	}
	return &prepared{def: def, project: project, bag: bag, builder: b}, nil
}

// Validate builds the command a submission would run without recording or
// launching anything. The job number shown is a preview and is not
// reserved.
func (s *JobService) Validate(ctx context.Context, req *model.SubmitJobRequest) (*model.ValidateJobResponse, error) {
	p, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.ListByProject(ctx, p.project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	n := len(existing) + 1
	outputDir := builder.OutputDir(p.def.StageName, n)
	cmd := p.builder.BuildCommand(outputDir, builder.JobName(n))
	return &model.ValidateJobResponse{
		Valid:       true,
		Type:        p.def.ID,
		Command:     cmd,
		PostCommand: builder.PostCommandOf(p.builder, outputDir),
		Resources:   builder.Resources(p.builder, p.bag, s.opts.DefaultDestination),
		Parents:     graph.ParentJobs(p.bag),
		Diagnostics: builder.DiagnosticsOf(p.builder),
	}, nil
}

// Submit validates the request, allocates the next job number, records a
// pending job and dispatches it.
func (s *JobService) Submit(ctx context.Context, req *model.SubmitJobRequest, submittedBy string) (*model.SubmitJobResponse, error) {
	p, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	n, err := s.store.NextJobNumber(ctx, p.project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate job number: %w", err)
	}
	jobName := builder.JobName(n)
	outputDir := builder.OutputDir(p.def.StageName, n)

	job := &model.JobRecord{
		ID:          uuid.New().String(),
		ProjectID:   p.project.ID,
		ProjectRoot: p.project.RootPath,
		Type:        p.def.ID,
		JobName:     jobName,
		OutputDir:   outputDir,
		Status:      model.JobStatusPending,
		Parameters:  p.bag,
		Command:     p.builder.BuildCommand(outputDir, jobName),
		PostCommand: builder.PostCommandOf(p.builder, outputDir),
		Resources:   builder.Resources(p.builder, p.bag, s.opts.DefaultDestination),
		Parents:     graph.ParentJobs(p.bag),
		SubmittedBy: submittedBy,
		CreatedAt:   s.now(),
	}
	diags := builder.DiagnosticsOf(p.builder)

	if err := s.store.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	log := s.log.With("job_id", job.ID, "job_name", job.JobName, "type", job.Type, "project_id", job.ProjectID)
	if len(diags) > 0 {
		log.Info("job built with diagnostics", "diagnostics", diags)
	}

	if err := s.dispatcher.Dispatch(ctx, job.ID); err != nil {
		log.Error("dispatch failed", "error", err)
		s.markFailed(ctx, job.ID, err)
		return nil, fmt.Errorf("failed to dispatch job: %w", err)
	}
	log.Info("job recorded")

	return &model.SubmitJobResponse{
		JobID:       job.ID,
		JobName:     job.JobName,
		Type:        job.Type,
		OutputDir:   job.OutputDir,
		Status:      job.Status,
		Command:     job.Command,
		Parents:     job.Parents,
		Diagnostics: diags,
		CreatedAt:   job.CreatedAt,
	}, nil
}

func emptyCommand(b builder.Builder) error {
	msg := "no command could be built"
	if diags := builder.DiagnosticsOf(b); len(diags) > 0 {
		msg = strings.Join(diags, "; ")
	}
	return &model.ValidationError{Code: string(builder.CodeMissingField), Message: msg}
}

func (s *JobService) markFailed(ctx context.Context, jobID string, cause error) {
	_, err := s.store.Update(context.WithoutCancel(ctx), jobID, func(j *model.JobRecord) error {
		if err := j.Transition(model.JobStatusFailed, s.now()); err != nil {
			return err
		}
		j.SetError(cause.Error())
		return nil
	})
	if err != nil && !errors.Is(err, model.ErrTerminal) {
		s.log.Error("failed to mark job failed", "job_id", jobID, "error", err)
	}
}

// Record returns the stored job.
func (s *JobService) Record(ctx context.Context, jobID string) (*model.JobRecord, error) {
	return s.store.Get(ctx, jobID)
}

func (s *JobService) GetStatus(ctx context.Context, jobID string) (*model.JobStatusResponse, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return model.NewJobStatusResponse(job), nil
}

func (s *JobService) Cancel(ctx context.Context, jobID string) (*model.JobCancelResponse, error) {
	job, err := s.canceller.Cancel(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return &model.JobCancelResponse{Success: true, JobID: job.ID, Status: job.Status}, nil
}

// Tree reconstructs the dependency tree of a project. Archived projects
// can be inspected.
func (s *JobService) Tree(ctx context.Context, projectID string) ([]model.JobTreeNode, error) {
	project, err := s.projects.Resolve(projectID)
	if err != nil {
		return nil, err
	}
	jobs, err := s.store.ListByProject(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return graph.Tree(jobs), nil
}

func (s *JobService) JobTypes() []model.JobTypeInfo {
	defs := s.registry.Definitions()
	out := make([]model.JobTypeInfo, 0, len(defs))
	for _, d := range defs {
		out = append(out, model.JobTypeInfo{
			ID:        d.ID,
			StageName: d.StageName,
			Aliases:   d.Aliases,
			Tier:      d.Tier,
		})
	}
	return out
}

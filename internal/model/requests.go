package model

import "time"

// SubmitJobRequest is the body of POST /api/jobs.
type SubmitJobRequest struct {
	ProjectID  string         `json:"projectId" validate:"required,max=128,excludesall=/\\"`
	JobType    string         `json:"jobType" validate:"required,max=64"`
	Parameters map[string]any `json:"parameters" validate:"required"`
}

// SubmitJobResponse is returned once the job is recorded and queued for
// submission.
type SubmitJobResponse struct {
	JobID       string    `json:"jobId"`
	JobName     string    `json:"jobName"`
	Type        string    `json:"type"`
	OutputDir   string    `json:"outputDir"`
	Status      JobStatus `json:"status"`
	Command     []string  `json:"command"`
	Parents     []string  `json:"parents"`
	Diagnostics []string  `json:"diagnostics,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ValidateJobResponse is the dry-run result of POST /api/jobs/validate.
type ValidateJobResponse struct {
	Valid       bool         `json:"valid"`
	Type        string       `json:"type"`
	Command     []string     `json:"command,omitempty"`
	PostCommand []string     `json:"postCommand,omitempty"`
	Resources   ResourceSpec `json:"resources"`
	Parents     []string     `json:"parents"`
	Diagnostics []string     `json:"diagnostics,omitempty"`
}

// JobStatusResponse is returned by GET /api/jobs/:jobId.
type JobStatusResponse struct {
	JobID     string     `json:"jobId"`
	JobName   string     `json:"jobName"`
	Type      string     `json:"type"`
	Status    JobStatus  `json:"status"`
	OutputDir string     `json:"outputDir"`
	Command   []string   `json:"command"`
	QueueID   *string    `json:"queueId"`
	Error     *string    `json:"error"`
	Parents   []string   `json:"parents"`
	CreatedAt time.Time  `json:"createdAt"`
	StartedAt *time.Time `json:"startedAt"`
	EndedAt   *time.Time `json:"endedAt"`
}

// JobCancelResponse is returned by POST /api/jobs/:jobId/cancel.
type JobCancelResponse struct {
	Success bool      `json:"success"`
	JobID   string    `json:"jobId"`
	Status  JobStatus `json:"status"`
}

// JobTypeInfo describes one registered job kind.
type JobTypeInfo struct {
	ID        string      `json:"id"`
	StageName string      `json:"stageName"`
	Aliases   []string    `json:"aliases"`
	Tier      ComputeTier `json:"tier"`
}

// JobTreeNode is one job in a project's reconstructed dependency tree.
type JobTreeNode struct {
	JobName  string    `json:"jobName"`
	JobID    string    `json:"jobId"`
	Type     string    `json:"type"`
	Status   JobStatus `json:"status"`
	Parents  []string  `json:"parents"`
	Children []string  `json:"children"`
}

// NewJobStatusResponse projects a record onto its API shape.
func NewJobStatusResponse(job *JobRecord) *JobStatusResponse {
	return &JobStatusResponse{
		JobID:     job.ID,
		JobName:   job.JobName,
		Type:      job.Type,
		Status:    job.Status,
		OutputDir: job.OutputDir,
		Command:   job.Command,
		QueueID:   job.QueueID,
		Error:     job.Error,
		Parents:   job.Parents,
		CreatedAt: job.CreatedAt,
		StartedAt: job.StartedAt,
		EndedAt:   job.EndedAt,
	}
}

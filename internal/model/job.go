package model

import (
	"fmt"
	"time"
)

// JobStatus is the lifecycle state of a JobRecord.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusSuccess   JobStatus = "success"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsTerminal reports whether no further transition is allowed.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusSuccess || s == JobStatusFailed || s == JobStatusCancelled
}

// JobRecord is the persisted state of one submitted job.
type JobRecord struct {
	ID          string         `json:"id"`
	ProjectID   string         `json:"projectId"`
	ProjectRoot string         `json:"projectRoot"`
	Type        string         `json:"type"`
	JobName     string         `json:"jobName"`
	OutputDir   string         `json:"outputDir"`
	Status      JobStatus      `json:"status"`
	Parameters  map[string]any `json:"parameters"`
	Command     []string       `json:"command"`
	PostCommand []string       `json:"postCommand,omitempty"`
	Resources   ResourceSpec   `json:"resources"`
	QueueID     *string        `json:"queueId"`
	Error       *string        `json:"error"`
	Parents     []string       `json:"parents"`
	SubmittedBy string         `json:"submittedBy,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	StartedAt   *time.Time     `json:"startedAt"`
	EndedAt     *time.Time     `json:"endedAt"`
}

// Transition moves the record to the given status. Terminal records never
// change again and nothing returns to pending.
func (j *JobRecord) Transition(to JobStatus, at time.Time) error {
	if j.Status.IsTerminal() {
		return fmt.Errorf("%w: job %s is %s", ErrTerminal, j.ID, j.Status)
	}
	switch to {
	case JobStatusRunning:
		if j.Status != JobStatusPending {
			return fmt.Errorf("%w: job %s is %s", ErrAlreadySubmitted, j.ID, j.Status)
		}
		j.StartedAt = &at
	case JobStatusSuccess, JobStatusFailed, JobStatusCancelled:
		j.EndedAt = &at
	default:
		return fmt.Errorf("invalid transition of job %s from %s to %s", j.ID, j.Status, to)
	}
	j.Status = to
	return nil
}

// SetError records msg as the job's error message.
func (j *JobRecord) SetError(msg string) {
	j.Error = &msg
}

// SetQueueID records the scheduler-assigned identifier.
func (j *JobRecord) SetQueueID(id string) {
	j.QueueID = &id
}

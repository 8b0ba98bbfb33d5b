package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition_Lifecycle(t *testing.T) {
	now := time.Now()
	job := &JobRecord{ID: "j1", Status: JobStatusPending}

	require.NoError(t, job.Transition(JobStatusRunning, now))
	assert.Equal(t, JobStatusRunning, job.Status)
	require.NotNil(t, job.StartedAt)

	require.NoError(t, job.Transition(JobStatusSuccess, now))
	assert.Equal(t, JobStatusSuccess, job.Status)
	require.NotNil(t, job.EndedAt)
}

func TestTransition_TerminalIsFinal(t *testing.T) {
	for _, terminal := range []JobStatus{JobStatusSuccess, JobStatusFailed, JobStatusCancelled} {
		job := &JobRecord{ID: "j1", Status: terminal}
		for _, to := range []JobStatus{JobStatusRunning, JobStatusSuccess, JobStatusFailed, JobStatusCancelled} {
			err := job.Transition(to, time.Now())
			assert.True(t, errors.Is(err, ErrTerminal), "%s -> %s", terminal, to)
			assert.Equal(t, terminal, job.Status)
		}
	}
}

func TestTransition_RunningOnlyFromPending(t *testing.T) {
	job := &JobRecord{ID: "j1", Status: JobStatusRunning}
	err := job.Transition(JobStatusRunning, time.Now())
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
}

func TestTransition_NoReturnToPending(t *testing.T) {
	job := &JobRecord{ID: "j1", Status: JobStatusRunning}
	assert.Error(t, job.Transition(JobStatusPending, time.Now()))
	assert.Equal(t, JobStatusRunning, job.Status)
}

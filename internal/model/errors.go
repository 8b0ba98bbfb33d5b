package model

import (
	"errors"
	"fmt"
)

var (
	ErrJobNotFound      = errors.New("job not found")
	ErrProjectNotFound  = errors.New("project not found")
	ErrProjectArchived  = errors.New("project is archived")
	ErrUnknownJobType   = errors.New("unknown job type")
	ErrTerminal         = errors.New("job already in terminal state")
	ErrAlreadySubmitted = errors.New("job already submitted")
	ErrDuplicateJob     = errors.New("job already exists")
)

// ValidationError is returned when a parameter bag fails its job kind's
// validation. It is surfaced to the caller before anything is spawned.
type ValidationError struct {
	Code    string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// SubmissionFailure means the scheduler rejected the script or its output
// carried no job identifier.
type SubmissionFailure struct {
	Reason string
	Err    error
}

func (e *SubmissionFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("submission failed: %s: %v", e.Reason, e.Err)
	}
	return "submission failed: " + e.Reason
}

func (e *SubmissionFailure) Unwrap() error { return e.Err }

// ProcessFailure is a local process that exited non-zero.
type ProcessFailure struct {
	ExitCode int
}

func (e *ProcessFailure) Error() string {
	return fmt.Sprintf("process exited with code %d", e.ExitCode)
}

// PostCommandFailure annotates a successful job whose follow-up command
// failed. It never reverts the primary success.
type PostCommandFailure struct {
	Err error
}

func (e *PostCommandFailure) Error() string {
	return fmt.Sprintf("post-command failed: %v", e.Err)
}

func (e *PostCommandFailure) Unwrap() error { return e.Err }

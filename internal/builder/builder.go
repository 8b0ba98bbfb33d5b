// Package builder turns a validated parameter bag into the exact argument
// vector for one RELION tool invocation. There is one Builder per job
// kind; the jobtype registry selects which one handles a submission.
package builder

import (
	"fmt"

	"github.com/relionflow/api/internal/model"
	"github.com/relionflow/api/internal/params"
)

// ErrorCode distinguishes why validation failed so callers can render an
// actionable message.
type ErrorCode string

const (
	CodeMissingField  ErrorCode = "missing_field"
	CodeFileNotFound  ErrorCode = "file_not_found"
	CodeWrongFileType ErrorCode = "wrong_file_type"
	CodeInvalidValue  ErrorCode = "invalid_value"
)

// Result is a validation verdict. A failed Result is a value, not an
// error: validation problems are expected input.
type Result struct {
	OK      bool      `json:"ok"`
	Code    ErrorCode `json:"code,omitempty"`
	Field   string    `json:"field,omitempty"`
	Message string    `json:"message,omitempty"`
}

// Valid is the successful verdict.
func Valid() Result { return Result{OK: true} }

func invalid(code ErrorCode, field, format string, args ...any) Result {
	return Result{Code: code, Field: field, Message: fmt.Sprintf(format, args...)}
}

// Err converts a failed Result into a *model.ValidationError.
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	return &model.ValidationError{Code: string(r.Code), Field: r.Field, Message: r.Message}
}

// Builder validates a parameter bag and produces the argument vector for
// its job kind.
//
// BuildCommand assumes Validate returned OK; calling it on an unvalidated
// bag yields an undefined command.
type Builder interface {
	Validate() Result
	BuildCommand(outputDir, jobName string) []string
	SupportsGPU() bool
	SupportsMPI() bool
}

// PostCommander is implemented by kinds that chain a follow-up command
// after a successful primary run.
type PostCommander interface {
	PostCommand(outputDir string) []string
}

// Diagnoser exposes non-fatal notes collected while building, such as
// dropped or unknown additional arguments.
type Diagnoser interface {
	Diagnostics() []string
}

// Factory constructs a Builder for one submission.
type Factory func(bag params.Bag, project model.ProjectContext, opts Options) Builder

// Options carries process-wide builder settings.
type Options struct {
	Flags              *FlagRegistry
	HalfMapConventions []Convention
	DefaultDestination model.Destination
	LocalLauncher      string
}

// DefaultOptions returns the settings used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Flags:              DefaultFlags(),
		HalfMapConventions: DefaultHalfMapConventions,
		DefaultDestination: model.DestinationLocal,
		LocalLauncher:      "mpirun",
	}
}

// PostCommandOf returns b's follow-up command, if it has one.
func PostCommandOf(b Builder, outputDir string) []string {
	if pc, ok := b.(PostCommander); ok {
		return pc.PostCommand(outputDir)
	}
	return nil
}

// DiagnosticsOf returns the diagnostics b collected, if any.
func DiagnosticsOf(b Builder) []string {
	if d, ok := b.(Diagnoser); ok {
		return d.Diagnostics()
	}
	return nil
}

package crew

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("invalid input")
	ErrInvalidDefinitions = errors.New("invalid pipeline definitions")
	ErrMissingDependency  = errors.New("missing dependency result")
	ErrEmptyOutput        = errors.New("task produced no output")
)

// ValidationError rejects caller input before any task runs.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// DefinitionError reports an inconsistent agent or task definition set.
type DefinitionError struct {
	TaskID string
	Reason string
}

func (e *DefinitionError) Error() string {
	if e.TaskID == "" {
		return fmt.Sprintf("invalid pipeline definitions: %s", e.Reason)
	}
	return fmt.Sprintf("invalid pipeline definitions: task %s: %s", e.TaskID, e.Reason)
}

func (e *DefinitionError) Unwrap() error { return ErrInvalidDefinitions }

// MissingDependencyError means a task was about to run before one of its
// dependencies had a recorded result.
type MissingDependencyError struct {
	TaskID       string
	DependencyID string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("task %s: no result for dependency %s", e.TaskID, e.DependencyID)
}

func (e *MissingDependencyError) Unwrap() error { return ErrMissingDependency }

// TaskExecutionError wraps a failure of the execution capability.
type TaskExecutionError struct {
	TaskID  string
	AgentID string
	Err     error
}

func (e *TaskExecutionError) Error() string {
	return fmt.Sprintf("task %s (agent %s) failed: %v", e.TaskID, e.AgentID, e.Err)
}

func (e *TaskExecutionError) Unwrap() error { return e.Err }

// PipelineError aborts a run at its first failing task. Completed holds the
// results recorded before the failure.
type PipelineError struct {
	RunID        string
	FailedTaskID string
	Cause        error
	Completed    map[string]TaskResult
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline run %s failed at task %s: %v", e.RunID, e.FailedTaskID, e.Cause)
}

func (e *PipelineError) Unwrap() error { return e.Cause }

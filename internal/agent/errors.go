package agent

import (
	"fmt"
	"time"
)

// ValidationError means the goal input was malformed. Fatal before any
// persistence happens.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// PlanningError means the model's plan was unparsable after every repair
// strategy and one constrained retry. Fatal to the task.
type PlanningError struct {
	Err error
}

func (e *PlanningError) Error() string {
	return fmt.Sprintf("planning failed: %v", e.Err)
}

func (e *PlanningError) Unwrap() error {
	return e.Err
}

// ToolError is a step-local tool failure. It feeds retries and replanning
// and is never fatal to the task.
type ToolError struct {
	Tool string
	Err  error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// TimeoutError means the task's wall-clock deadline passed. Fatal regardless
// of remaining steps.
type TimeoutError struct {
	Deadline time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("task deadline of %s exceeded", e.Deadline)
}

package executor

import (
	"time"
)

// Status of one matrix instance. Pending -> (Skipped | Running) ->
// (Success | Failed); Skipped, Success and Failed are absorbing.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// StepResult is the outcome of one step within one instance.
type StepResult struct {
	Name     string        `json:"name"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
	Output   string        `json:"output,omitempty"`
	Err      error         `json:"-"`
}

// RunResult is the outcome of one matrix instance. Steps is truncated at
// the first failure. Immutable once returned.
type RunResult struct {
	Job      string            `json:"job"`
	Instance string            `json:"instance"`
	Values   map[string]string `json:"values,omitempty"`
	Status   Status            `json:"status"`
	Steps    []StepResult      `json:"steps,omitempty"`
	Err      error             `json:"-"`
}

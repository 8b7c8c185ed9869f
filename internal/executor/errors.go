package executor

import "errors"

var (
	// ErrStepTimeout marks a step which exceeded its bounded wait. Fatal
	// to the owning instance only.
	ErrStepTimeout = errors.New("step timed out")

	// ErrStepLaunch marks a command which could not be spawned at all,
	// e.g. a missing executable.
	ErrStepLaunch = errors.New("step could not be launched")

	// ErrStepFailure marks a regular non-zero exit.
	ErrStepFailure = errors.New("step failed")
)

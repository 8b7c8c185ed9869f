package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/go-logr/logr"

	"github.com/kestrelci/kestrel/internal/mask"
	"github.com/kestrelci/kestrel/internal/xio"
)

// StepExecutor executes one resolved step with a fully merged
// environment and reports its outcome.
type StepExecutor interface {
	Execute(ctx context.Context, step ResolvedStep, env map[string]string, prefix string) StepResult
}

type RunnerOption func(*Runner)

func WithLogger(logger logr.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

func WithSecretStore(store *mask.SecretStore) RunnerOption {
	return func(r *Runner) {
		r.masks = store
	}
}

// WithTee streams step output live to the given writer in addition to
// the captured buffer, one prefixed line at a time.
func WithTee(w io.Writer) RunnerOption {
	return func(r *Runner) {
		r.tee = xio.NewSyncWriter(w)
	}
}

func WithWorkDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.workDir = dir
	}
}

func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		logger: logr.Discard(),
		masks:  mask.NewSecretStore(nil),
	}

	for _, o := range opts {
		o(r)
	}

	return r
}

// Runner spawns step commands as local subprocesses. Any filesystem or
// network side effect belongs to the invoked command, the runner itself
// only launches, waits and captures.
type Runner struct {
	logger  logr.Logger
	masks   *mask.SecretStore
	tee     io.Writer
	workDir string
}

func (r *Runner) Execute(ctx context.Context, step ResolvedStep, env map[string]string, prefix string) StepResult {
	result := StepResult{
		Name: step.Name,
	}

	if step.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, step.Timeout)
		defer cancel()
	}

	var buf bytes.Buffer
	out := r.masks.Writer(&buf)

	var sink io.Writer = out
	var live *xio.LineWriter
	if r.tee != nil {
		live = xio.NewPrefixWriter(r.masks.Writer(r.tee), []byte(prefix+" | "))
		sink = io.MultiWriter(out, live)
	}

	cmd := exec.CommandContext(ctx, step.Argv[0], step.Argv[1:]...)
	cmd.Env = envSlice(env)
	cmd.Stdout = sink
	cmd.Stderr = sink

	cmd.Dir = r.workDir
	if step.WorkDir != "" {
		cmd.Dir = step.WorkDir
	}

	r.logger.V(1).Info("execute step", "step", step.Name, "argv", step.Argv, "timeout", step.Timeout)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		result.ExitCode = -1
		result.Err = fmt.Errorf("%s: %s: %w", step.Name, err.Error(), ErrStepLaunch)
		return result
	}

	err := cmd.Wait()
	result.Duration = time.Since(start)

	if live != nil {
		_ = live.Flush()
	}

	result.Output = buf.String()

	switch {
	case ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded):
		result.ExitCode = -1
		result.Err = fmt.Errorf("%s after %s: %w", step.Name, step.Timeout, ErrStepTimeout)
	case err != nil:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			result.Err = fmt.Errorf("%s exited with code %d: %w", step.Name, result.ExitCode, ErrStepFailure)
		} else {
			result.ExitCode = -1
			result.Err = fmt.Errorf("%s: %s: %w", step.Name, err.Error(), ErrStepLaunch)
		}
	}

	return result
}

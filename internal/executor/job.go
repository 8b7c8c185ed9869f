package executor

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/go-logr/logr"

	"github.com/kestrelci/kestrel/internal/actions"
	"github.com/kestrelci/kestrel/internal/matrix"
	"github.com/kestrelci/kestrel/pkg/apis/core/v1beta1"
)

// ResolvedStep is a step whose invocation has been fixed at load time:
// either the shell wrapping of a literal command line or the argv a
// registered action expanded to.
type ResolvedStep struct {
	Name    string
	Argv    []string
	Env     map[string]string
	WorkDir string
	Timeout time.Duration
}

// Job is a runnable job: the declared spec plus its resolved steps.
type Job struct {
	Spec  *v1beta1.Job
	Steps []ResolvedStep
}

var defaultShell = []string{"/bin/sh", "-ec"}

type buildOptions struct {
	shell          []string
	defaultTimeout time.Duration
}

type BuildOption func(*buildOptions)

func WithShell(shell []string) BuildOption {
	return func(o *buildOptions) {
		o.shell = shell
	}
}

// WithDefaultTimeout bounds steps which declare no timeout of their own.
func WithDefaultTimeout(d time.Duration) BuildOption {
	return func(o *buildOptions) {
		o.defaultTimeout = d
	}
}

// NewJob resolves every step of the declared job. Action references are
// expanded through the registry here, at load time, so a broken
// reference aborts the invocation before anything is dispatched.
func NewJob(spec *v1beta1.Job, registry *actions.Registry, opts ...BuildOption) (*Job, error) {
	o := buildOptions{
		shell: defaultShell,
	}

	for _, opt := range opts {
		opt(&o)
	}

	job := &Job{
		Spec:  spec,
		Steps: make([]ResolvedStep, 0, len(spec.Steps)),
	}

	for i, step := range spec.Steps {
		resolved := ResolvedStep{
			Name:    spec.StepName(i),
			Env:     EnvMap(step.Env),
			WorkDir: step.WorkDir,
			Timeout: step.Timeout.Duration,
		}

		if resolved.Timeout == 0 {
			resolved.Timeout = o.defaultTimeout
		}

		if step.Uses != "" {
			invocation, err := registry.Resolve(step)
			if err != nil {
				return nil, err
			}

			resolved.Argv = invocation.Argv
		} else {
			resolved.Argv = append(append([]string{}, o.shell...), step.Run)
		}

		job.Steps = append(job.Steps, resolved)
	}

	return job, nil
}

func NewJobRunner(steps StepExecutor, logger logr.Logger) *JobRunner {
	return &JobRunner{
		steps:  steps,
		logger: logger,
	}
}

// JobRunner runs the steps of one matrix instance in declared order,
// strictly fail-fast: the first failing step is recorded as the terminal
// entry and no later step is invoked.
type JobRunner struct {
	steps  StepExecutor
	logger logr.Logger
}

func (r *JobRunner) Run(ctx context.Context, job *Job, instance matrix.Instance, env map[string]string) RunResult {
	result := RunResult{
		Job:      job.Spec.Name,
		Instance: instance.Name,
		Values:   instance.Values,
		Status:   StatusRunning,
	}

	matrixEnv := make(map[string]string, len(instance.Values))
	for axis, value := range instance.Values {
		matrixEnv[axisEnvName(axis)] = value
	}

	for _, step := range job.Steps {
		stepEnv := MergeEnv(env, matrixEnv, step.Env)
		stepResult := r.steps.Execute(ctx, step, stepEnv, instance.Name)
		result.Steps = append(result.Steps, stepResult)

		if stepResult.Err != nil {
			r.logger.V(1).Info("step failed, remaining steps skipped", "job", job.Spec.Name, "instance", instance.Name, "step", step.Name, "exitCode", stepResult.ExitCode)
			result.Status = StatusFailed
			result.Err = stepResult.Err
			return result
		}
	}

	result.Status = StatusSuccess
	return result
}

func axisEnvName(axis string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToUpper(r)
		}

		return '_'
	}, axis)

	return "KESTREL_MATRIX_" + mapped
}

package executor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelci/kestrel/internal/actions"
	"github.com/kestrelci/kestrel/internal/matrix"
	"github.com/kestrelci/kestrel/pkg/apis/core/v1beta1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// stubExecutor fails the steps listed in failOn and records every
// execution.
type stubExecutor struct {
	failOn   map[string]bool
	executed []string
	envs     []map[string]string
}

func (s *stubExecutor) Execute(ctx context.Context, step ResolvedStep, env map[string]string, prefix string) StepResult {
	s.executed = append(s.executed, step.Name)
	s.envs = append(s.envs, env)

	if s.failOn[step.Name] {
		return StepResult{
			Name:     step.Name,
			ExitCode: 1,
			Err:      fmt.Errorf("%s exited with code 1: %w", step.Name, ErrStepFailure),
		}
	}

	return StepResult{Name: step.Name}
}

func TestNewJob(t *testing.T) {
	tests := []struct {
		name       string
		spec       *v1beta1.Job
		opts       []BuildOption
		expectErr  error
		expectArgv [][]string
	}{
		{
			name: "run steps wrapped in the default shell",
			spec: &v1beta1.Job{
				Name: "build",
				Steps: []v1beta1.Step{
					{Name: "compile", Run: "make build"},
				},
			},
			expectArgv: [][]string{
				{"/bin/sh", "-ec", "make build"},
			},
		},
		{
			name: "custom shell",
			spec: &v1beta1.Job{
				Name: "build",
				Steps: []v1beta1.Step{
					{Name: "compile", Run: "make build"},
				},
			},
			opts: []BuildOption{WithShell([]string{"/bin/bash", "-c"})},
			expectArgv: [][]string{
				{"/bin/bash", "-c", "make build"},
			},
		},
		{
			name: "action reference expanded through the registry",
			spec: &v1beta1.Job{
				Name: "build",
				Steps: []v1beta1.Step{
					{
						Name: "setup",
						Uses: "setup-python@v1",
						With: map[string]string{"python-version": "3.10"},
					},
				},
			},
			expectArgv: [][]string{
				{"pyenv", "local", "3.10"},
			},
		},
		{
			name: "unknown action aborts at load time",
			spec: &v1beta1.Job{
				Name: "build",
				Steps: []v1beta1.Step{
					{Name: "setup", Uses: "nope@v1"},
				},
			},
			expectErr: v1beta1.ErrInvalidWorkflow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job, err := NewJob(tt.spec, actions.Builtin(), tt.opts...)

			if tt.expectErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.expectErr))
				return
			}

			require.NoError(t, err)
			require.Len(t, job.Steps, len(tt.expectArgv))

			for i, argv := range tt.expectArgv {
				assert.Equal(t, argv, job.Steps[i].Argv)
			}
		})
	}
}

func TestNewJobTimeouts(t *testing.T) {
	spec := &v1beta1.Job{
		Name: "build",
		Steps: []v1beta1.Step{
			{Name: "fast", Run: "true", Timeout: metav1.Duration{Duration: time.Second}},
			{Name: "default", Run: "true"},
		},
	}

	job, err := NewJob(spec, actions.Builtin(), WithDefaultTimeout(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, time.Second, job.Steps[0].Timeout)
	assert.Equal(t, time.Minute, job.Steps[1].Timeout)
}

func TestNewJobStepNames(t *testing.T) {
	spec := &v1beta1.Job{
		Name: "build",
		Steps: []v1beta1.Step{
			{Name: "compile", Run: "true"},
			{Run: "true"},
		},
	}

	job, err := NewJob(spec, actions.Builtin())
	require.NoError(t, err)
	assert.Equal(t, "compile", job.Steps[0].Name)
	assert.Equal(t, "step-1", job.Steps[1].Name)
}

func TestJobRunnerFailFast(t *testing.T) {
	tests := []struct {
		name           string
		steps          []string
		failOn         map[string]bool
		expectStatus   Status
		expectExecuted []string
		expectResults  int
	}{
		{
			name:           "all steps succeed in order",
			steps:          []string{"a", "b", "c"},
			expectStatus:   StatusSuccess,
			expectExecuted: []string{"a", "b", "c"},
			expectResults:  3,
		},
		{
			name:           "failure stops later steps",
			steps:          []string{"a", "b", "c"},
			failOn:         map[string]bool{"b": true},
			expectStatus:   StatusFailed,
			expectExecuted: []string{"a", "b"},
			expectResults:  2,
		},
		{
			name:           "first step failure runs nothing else",
			steps:          []string{"a", "b", "c"},
			failOn:         map[string]bool{"a": true},
			expectStatus:   StatusFailed,
			expectExecuted: []string{"a"},
			expectResults:  1,
		},
		{
			name:           "no steps is a success",
			expectStatus:   StatusSuccess,
			expectExecuted: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := &v1beta1.Job{Name: "test"}
			for _, name := range tt.steps {
				spec.Steps = append(spec.Steps, v1beta1.Step{Name: name, Run: "true"})
			}

			job, err := NewJob(spec, actions.Builtin())
			require.NoError(t, err)

			stub := &stubExecutor{failOn: tt.failOn}
			runner := NewJobRunner(stub, logr.Discard())

			instance := matrix.Instance{Job: spec, Name: "test", Values: map[string]string{}}
			result := runner.Run(context.TODO(), job, instance, nil)

			assert.Equal(t, tt.expectStatus, result.Status)
			assert.Equal(t, tt.expectExecuted, stub.executed)
			assert.Len(t, result.Steps, tt.expectResults)

			if tt.expectStatus == StatusFailed {
				assert.True(t, errors.Is(result.Err, ErrStepFailure))
			} else {
				assert.NoError(t, result.Err)
			}
		})
	}
}

func TestJobRunnerEnvPrecedence(t *testing.T) {
	spec := &v1beta1.Job{
		Name: "test",
		Steps: []v1beta1.Step{
			{Name: "a", Run: "true", Env: []string{"LAYER=step", "STEP_ONLY=1"}},
			{Name: "b", Run: "true"},
		},
	}

	job, err := NewJob(spec, actions.Builtin())
	require.NoError(t, err)

	stub := &stubExecutor{}
	runner := NewJobRunner(stub, logr.Discard())

	instance := matrix.Instance{
		Job:    spec,
		Name:   "test-3.10",
		Values: map[string]string{"python": "3.10", "extra-axis": "x"},
	}

	result := runner.Run(context.TODO(), job, instance, map[string]string{
		"LAYER": "job",
		"BASE":  "1",
	})
	require.Equal(t, StatusSuccess, result.Status)
	require.Len(t, stub.envs, 2)

	assert.Equal(t, map[string]string{
		"LAYER":                     "step",
		"STEP_ONLY":                 "1",
		"BASE":                      "1",
		"KESTREL_MATRIX_PYTHON":     "3.10",
		"KESTREL_MATRIX_EXTRA_AXIS": "x",
	}, stub.envs[0])

	assert.Equal(t, map[string]string{
		"LAYER":                     "job",
		"BASE":                      "1",
		"KESTREL_MATRIX_PYTHON":     "3.10",
		"KESTREL_MATRIX_EXTRA_AXIS": "x",
	}, stub.envs[1])
}

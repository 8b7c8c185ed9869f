/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package v1beta1

import (
	"errors"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	APIVersion   = "core.kestrel.dev/v1beta1"
	KindWorkflow = "Workflow"
)

type Workflow struct {
	metav1.TypeMeta `json:",inline"`

	WorkflowSpec `json:",inline"`
}

type WorkflowSpec struct {
	Name             string      `json:"name,omitempty"`
	ShortDescription string      `json:"shortDescription,omitempty"`
	Env              []string    `json:"env,omitempty"`
	Secrets          []SecretVar `json:"secrets,omitempty"`
	Jobs             []Job       `json:"jobs,omitempty"`
}

// Job is one independently triggerable stage of a workflow. Jobs do not
// depend on each other and may run concurrently.
type Job struct {
	Name    string          `json:"name,omitempty"`
	On      []EventKind     `json:"on,omitempty"`
	Paths   []string        `json:"paths,omitempty"`
	If      string          `json:"if,omitempty"`
	Env     []string        `json:"env,omitempty"`
	Secrets []string        `json:"secrets,omitempty"`
	Matrix  *Matrix         `json:"matrix,omitempty"`
	Timeout metav1.Duration `json:"timeout,omitempty"`
	Steps   []Step          `json:"steps,omitempty"`
}

// Matrix axes are an ordered list on purpose, a YAML mapping would not
// preserve declaration order and instance ordering must be deterministic.
type Matrix struct {
	Axes []MatrixAxis `json:"axes,omitempty"`
}

type MatrixAxis struct {
	Name   string   `json:"name,omitempty"`
	Values []string `json:"values,omitempty"`
}

// Step is one unit of work within a job. Exactly one of Run or Uses must
// be set: Run is a literal shell command line, Uses references a
// registered action by `name@version` with parameters in With.
type Step struct {
	Name    string            `json:"name,omitempty"`
	Run     string            `json:"run,omitempty"`
	Uses    string            `json:"uses,omitempty"`
	With    map[string]string `json:"with,omitempty"`
	WorkDir string            `json:"workDir,omitempty"`
	Env     []string          `json:"env,omitempty"`
	Timeout metav1.Duration   `json:"timeout,omitempty"`
}

// SecretVar declares a named credential. A nil value means the value is
// taken from the runner environment (or the secrets file) at dispatch time.
type SecretVar struct {
	Name  string  `json:"name,omitempty"`
	Value *string `json:"value,omitempty"`
}

type EventKind string

const (
	EventPush        EventKind = "push"
	EventPullRequest EventKind = "pull_request"
	EventSchedule    EventKind = "schedule"
	EventManual      EventKind = "manual"
)

var ErrInvalidWorkflow = errors.New("invalid workflow")

// SetDefaults fills the type meta of manifests which omit it, e.g. a
// plain local file written by hand.
func (w *Workflow) SetDefaults() {
	if w.APIVersion == "" {
		w.APIVersion = APIVersion
	}

	if w.Kind == "" {
		w.Kind = KindWorkflow
	}
}

func (w Workflow) Validate() error {
	var errs []error

	if w.APIVersion != "" && w.APIVersion != APIVersion {
		errs = append(errs, fmt.Errorf("unsupported apiVersion %q: %w", w.APIVersion, ErrInvalidWorkflow))
	}

	if w.Kind != "" && w.Kind != KindWorkflow {
		errs = append(errs, fmt.Errorf("unsupported kind %q: %w", w.Kind, ErrInvalidWorkflow))
	}

	if len(w.Jobs) == 0 {
		errs = append(errs, fmt.Errorf("workflow has no jobs: %w", ErrInvalidWorkflow))
	}

	seen := make(map[string]struct{})
	for _, job := range w.Jobs {
		if job.Name == "" {
			errs = append(errs, fmt.Errorf("job without a name: %w", ErrInvalidWorkflow))
			continue
		}

		if _, ok := seen[job.Name]; ok {
			errs = append(errs, fmt.Errorf("duplicate job %q: %w", job.Name, ErrInvalidWorkflow))
		}

		seen[job.Name] = struct{}{}
		errs = append(errs, job.validate()...)
	}

	return errors.Join(errs...)
}

func (j Job) validate() []error {
	var errs []error

	if len(j.Steps) == 0 {
		errs = append(errs, fmt.Errorf("job %q has no steps: %w", j.Name, ErrInvalidWorkflow))
	}

	for i, step := range j.Steps {
		switch {
		case step.Run == "" && step.Uses == "":
			errs = append(errs, fmt.Errorf("job %q step %d has neither run nor uses: %w", j.Name, i, ErrInvalidWorkflow))
		case step.Run != "" && step.Uses != "":
			errs = append(errs, fmt.Errorf("job %q step %d has both run and uses: %w", j.Name, i, ErrInvalidWorkflow))
		case step.Uses == "" && len(step.With) > 0:
			errs = append(errs, fmt.Errorf("job %q step %d sets with without uses: %w", j.Name, i, ErrInvalidWorkflow))
		}
	}

	if j.Matrix != nil {
		for _, axis := range j.Matrix.Axes {
			if axis.Name == "" {
				errs = append(errs, fmt.Errorf("job %q has a matrix axis without a name: %w", j.Name, ErrInvalidWorkflow))
			}
		}
	}

	return errs
}

// StepName returns the declared step name, falling back to a positional
// name for anonymous steps.
func (j Job) StepName(i int) string {
	if i < len(j.Steps) && j.Steps[i].Name != "" {
		return j.Steps[i].Name
	}

	return fmt.Sprintf("step-%d", i)
}

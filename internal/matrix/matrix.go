package matrix

import (
	"fmt"
	"strings"

	"github.com/kestrelci/kestrel/pkg/apis/core/v1beta1"
)

// Instance is one concrete matrix variant of a job, bound to exactly one
// value per declared axis.
type Instance struct {
	Job    *v1beta1.Job
	Name   string
	Values map[string]string
}

// Expand produces the full cross-product of the job's matrix axes, in
// declaration order of the axes and value position within each axis.
// A job without a matrix expands to a single instance with an empty
// assignment. An axis with no values is a definition error, such a job
// could never run a single instance.
func Expand(job *v1beta1.Job) ([]Instance, error) {
	if job.Matrix == nil || len(job.Matrix.Axes) == 0 {
		return []Instance{{
			Job:    job,
			Name:   job.Name,
			Values: map[string]string{},
		}}, nil
	}

	axes := job.Matrix.Axes
	total := 1
	for _, axis := range axes {
		if len(axis.Values) == 0 {
			return nil, fmt.Errorf("matrix axis %q of job %q has no values: %w", axis.Name, job.Name, v1beta1.ErrInvalidWorkflow)
		}

		total *= len(axis.Values)
	}

	instances := make([]Instance, 0, total)
	odometer := make([]int, len(axes))

	for i := 0; i < total; i++ {
		values := make(map[string]string, len(axes))
		parts := make([]string, 0, len(axes)+1)
		parts = append(parts, job.Name)

		for k, axis := range axes {
			values[axis.Name] = axis.Values[odometer[k]]
			parts = append(parts, axis.Values[odometer[k]])
		}

		instances = append(instances, Instance{
			Job:    job,
			Name:   strings.Join(parts, "-"),
			Values: values,
		})

		for k := len(axes) - 1; k >= 0; k-- {
			odometer[k]++
			if odometer[k] < len(axes[k].Values) {
				break
			}

			odometer[k] = 0
		}
	}

	return instances, nil
}

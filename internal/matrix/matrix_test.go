package matrix

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelci/kestrel/pkg/apis/core/v1beta1"
)

func TestExpand(t *testing.T) {
	tests := []struct {
		name          string
		job           *v1beta1.Job
		expectErr     error
		expectCount   int
		expectNames   []string
		expectValues  []map[string]string
	}{
		{
			name:        "job without matrix expands to itself",
			job:         &v1beta1.Job{Name: "build"},
			expectCount: 1,
			expectNames: []string{"build"},
			expectValues: []map[string]string{
				{},
			},
		},
		{
			name: "job with empty axes list expands to itself",
			job: &v1beta1.Job{
				Name:   "build",
				Matrix: &v1beta1.Matrix{},
			},
			expectCount: 1,
			expectNames: []string{"build"},
		},
		{
			name: "single axis expands to one instance per value",
			job: &v1beta1.Job{
				Name: "test",
				Matrix: &v1beta1.Matrix{
					Axes: []v1beta1.MatrixAxis{
						{Name: "python", Values: []string{"3.8", "3.9", "3.10"}},
					},
				},
			},
			expectCount: 3,
			expectNames: []string{"test-3.8", "test-3.9", "test-3.10"},
			expectValues: []map[string]string{
				{"python": "3.8"},
				{"python": "3.9"},
				{"python": "3.10"},
			},
		},
		{
			name: "two axes expand to the cross product in declaration order",
			job: &v1beta1.Job{
				Name: "test",
				Matrix: &v1beta1.Matrix{
					Axes: []v1beta1.MatrixAxis{
						{Name: "os", Values: []string{"linux", "darwin"}},
						{Name: "python", Values: []string{"3.9", "3.10"}},
					},
				},
			},
			expectCount: 4,
			expectNames: []string{
				"test-linux-3.9",
				"test-linux-3.10",
				"test-darwin-3.9",
				"test-darwin-3.10",
			},
			expectValues: []map[string]string{
				{"os": "linux", "python": "3.9"},
				{"os": "linux", "python": "3.10"},
				{"os": "darwin", "python": "3.9"},
				{"os": "darwin", "python": "3.10"},
			},
		},
		{
			name: "three axes multiply",
			job: &v1beta1.Job{
				Name: "test",
				Matrix: &v1beta1.Matrix{
					Axes: []v1beta1.MatrixAxis{
						{Name: "os", Values: []string{"linux", "darwin"}},
						{Name: "arch", Values: []string{"amd64", "arm64", "s390x"}},
						{Name: "python", Values: []string{"3.9", "3.10"}},
					},
				},
			},
			expectCount: 12,
		},
		{
			name: "axis without values is a definition error",
			job: &v1beta1.Job{
				Name: "test",
				Matrix: &v1beta1.Matrix{
					Axes: []v1beta1.MatrixAxis{
						{Name: "os", Values: []string{"linux"}},
						{Name: "python"},
					},
				},
			},
			expectErr: v1beta1.ErrInvalidWorkflow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			instances, err := Expand(tt.job)

			if tt.expectErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.expectErr))
				return
			}

			require.NoError(t, err)
			require.Len(t, instances, tt.expectCount)

			if tt.expectNames != nil {
				names := make([]string, 0, len(instances))
				for _, instance := range instances {
					names = append(names, instance.Name)
				}

				assert.Equal(t, tt.expectNames, names)
			}

			if tt.expectValues != nil {
				for i, expect := range tt.expectValues {
					assert.Equal(t, expect, instances[i].Values)
				}
			}

			for _, instance := range instances {
				assert.Same(t, tt.job, instance.Job)
			}
		})
	}
}

func TestExpandIsDeterministic(t *testing.T) {
	job := &v1beta1.Job{
		Name: "test",
		Matrix: &v1beta1.Matrix{
			Axes: []v1beta1.MatrixAxis{
				{Name: "os", Values: []string{"linux", "darwin", "windows"}},
				{Name: "python", Values: []string{"3.8", "3.9"}},
			},
		},
	}

	first, err := Expand(job)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := Expand(job)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

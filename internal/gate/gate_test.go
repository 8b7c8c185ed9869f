package gate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelci/kestrel/pkg/apis/core/v1beta1"
)

func TestShouldRun(t *testing.T) {
	tests := []struct {
		name          string
		commitMessage string
		expect        bool
	}{
		{
			name:          "empty commit message runs",
			commitMessage: "",
			expect:        true,
		},
		{
			name:          "ordinary commit message runs",
			commitMessage: "fix: handle empty axis",
			expect:        true,
		},
		{
			name:          "skip ci marker skips",
			commitMessage: "chore: bump deps [skip ci]",
			expect:        false,
		},
		{
			name:          "ci skip marker skips",
			commitMessage: "[ci skip] wip",
			expect:        false,
		},
		{
			name:          "marker in the middle of the message skips",
			commitMessage: "fix: typo [skip ci] in readme",
			expect:        false,
		},
		{
			name:          "marker is case sensitive",
			commitMessage: "chore: bump deps [SKIP CI]",
			expect:        true,
		},
		{
			name:          "partial marker runs",
			commitMessage: "document the skip ci marker",
			expect:        true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, ShouldRun(v1beta1.Trigger{
				CommitMessage: tt.commitMessage,
			}))
		})
	}
}

func TestMatchesEvent(t *testing.T) {
	tests := []struct {
		name   string
		on     []v1beta1.EventKind
		event  v1beta1.EventKind
		expect bool
	}{
		{
			name:   "no filter accepts any event",
			event:  v1beta1.EventSchedule,
			expect: true,
		},
		{
			name:   "matching event accepted",
			on:     []v1beta1.EventKind{v1beta1.EventPush, v1beta1.EventPullRequest},
			event:  v1beta1.EventPush,
			expect: true,
		},
		{
			name:   "non matching event rejected",
			on:     []v1beta1.EventKind{v1beta1.EventPush},
			event:  v1beta1.EventPullRequest,
			expect: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &v1beta1.Job{Name: "build", On: tt.on}
			assert.Equal(t, tt.expect, MatchesEvent(job, v1beta1.Trigger{Event: tt.event}))
		})
	}
}

func TestMatchesPaths(t *testing.T) {
	tests := []struct {
		name      string
		patterns  []string
		changed   []string
		expect    bool
		expectErr error
	}{
		{
			name:    "no patterns accept any change set",
			changed: []string{"main.go"},
			expect:  true,
		},
		{
			name:     "no patterns accept an empty change set",
			patterns: nil,
			expect:   true,
		},
		{
			name:     "glob matches a changed file",
			patterns: []string{"docs/*.md"},
			changed:  []string{"main.go", "docs/index.md"},
			expect:   true,
		},
		{
			name:     "no changed file matches",
			patterns: []string{"docs/*.md"},
			changed:  []string{"main.go", "internal/run.go"},
			expect:   false,
		},
		{
			name:     "patterns without changed files never match",
			patterns: []string{"*.go"},
			expect:   false,
		},
		{
			name:      "broken pattern is a definition error",
			patterns:  []string{"[invalid"},
			changed:   []string{"main.go"},
			expectErr: v1beta1.ErrInvalidWorkflow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := MatchesPaths(tt.patterns, tt.changed)

			if tt.expectErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.expectErr))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expect, ok)
		})
	}
}

func TestValidatePaths(t *testing.T) {
	tests := []struct {
		name      string
		patterns  []string
		expectErr error
	}{
		{
			name: "no patterns",
		},
		{
			name:     "valid globs",
			patterns: []string{"docs/*.md", "*.go", "internal/?api/*"},
		},
		{
			name:      "unclosed character class rejected",
			patterns:  []string{"[invalid"},
			expectErr: v1beta1.ErrInvalidWorkflow,
		},
		{
			name:      "one bad pattern among good ones rejected",
			patterns:  []string{"*.go", "[invalid"},
			expectErr: v1beta1.ErrInvalidWorkflow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePaths(tt.patterns)

			if tt.expectErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.expectErr))
				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestCompileCondition(t *testing.T) {
	celEnv, err := NewCelEnv()
	require.NoError(t, err)

	tests := []struct {
		name      string
		expr      string
		expectNil bool
		expectErr error
	}{
		{
			name:      "empty expression compiles to no condition",
			expr:      "",
			expectNil: true,
		},
		{
			name: "valid boolean expression",
			expr: `event == "push"`,
		},
		{
			name: "string extension functions available",
			expr: `branch.startsWith("release/")`,
		},
		{
			name:      "syntax error is a definition error",
			expr:      `event == `,
			expectErr: v1beta1.ErrInvalidWorkflow,
		},
		{
			name:      "non boolean expression is a definition error",
			expr:      `branch`,
			expectErr: v1beta1.ErrInvalidWorkflow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			condition, err := CompileCondition(celEnv, tt.expr)

			if tt.expectErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.expectErr))
				return
			}

			require.NoError(t, err)

			if tt.expectNil {
				assert.Nil(t, condition)
			} else {
				assert.NotNil(t, condition)
			}
		})
	}
}

func TestConditionEval(t *testing.T) {
	celEnv, err := NewCelEnv()
	require.NoError(t, err)

	tests := []struct {
		name    string
		expr    string
		trigger v1beta1.Trigger
		matrix  map[string]string
		expect  bool
	}{
		{
			name: "event match",
			expr: `event == "push"`,
			trigger: v1beta1.Trigger{
				Event: v1beta1.EventPush,
			},
			expect: true,
		},
		{
			name: "event mismatch",
			expr: `event == "push"`,
			trigger: v1beta1.Trigger{
				Event: v1beta1.EventPullRequest,
			},
			expect: false,
		},
		{
			name: "branch prefix",
			expr: `branch.startsWith("release/")`,
			trigger: v1beta1.Trigger{
				Branch: "release/1.2",
			},
			expect: true,
		},
		{
			name:   "matrix assignment visible",
			expr:   `matrix["python"] == "3.10"`,
			matrix: map[string]string{"python": "3.10"},
			expect: true,
		},
		{
			name:   "nil matrix assignment evaluates against an empty map",
			expr:   `"python" in matrix`,
			expect: false,
		},
		{
			name: "commit message visible",
			expr: `commit_message.contains("hotfix")`,
			trigger: v1beta1.Trigger{
				CommitMessage: "hotfix: rollback",
			},
			expect: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			condition, err := CompileCondition(celEnv, tt.expr)
			require.NoError(t, err)

			result, err := condition.Eval(tt.trigger, tt.matrix)
			require.NoError(t, err)
			assert.Equal(t, tt.expect, result)
		})
	}
}

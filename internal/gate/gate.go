package gate

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/kestrelci/kestrel/pkg/apis/core/v1beta1"
)

var skipMarkers = []string{"[skip ci]", "[ci skip]"}

// ShouldRun returns false iff the commit message carries one of the
// case-sensitive skip markers. Evaluated once per invocation, the commit
// message is global to the whole pipeline.
func ShouldRun(trigger v1beta1.Trigger) bool {
	for _, marker := range skipMarkers {
		if strings.Contains(trigger.CommitMessage, marker) {
			return false
		}
	}

	return true
}

// MatchesEvent reports whether the job's trigger filter accepts the
// event. A job without an `on` list accepts every event.
func MatchesEvent(job *v1beta1.Job, trigger v1beta1.Trigger) bool {
	if len(job.On) == 0 {
		return true
	}

	return slices.Contains(job.On, trigger.Event)
}

// MatchesPaths reports whether any changed path matches any of the glob
// patterns. An empty pattern set accepts everything. Path filtering and
// the commit message skip markers are independent gates, both must pass.
func MatchesPaths(patterns []string, changed []string) (bool, error) {
	if len(patterns) == 0 {
		return true, nil
	}

	for _, pattern := range patterns {
		for _, file := range changed {
			ok, err := path.Match(pattern, file)
			if err != nil {
				return false, fmt.Errorf("bad path pattern %q: %v: %w", pattern, err, v1beta1.ErrInvalidWorkflow)
			}

			if ok {
				return true, nil
			}
		}
	}

	return false, nil
}

// ValidatePaths verifies every glob pattern at load time, a malformed
// pattern never reaches dispatch.
func ValidatePaths(patterns []string) error {
	for _, pattern := range patterns {
		if _, err := path.Match(pattern, ""); err != nil {
			return fmt.Errorf("bad path pattern %q: %v: %w", pattern, err, v1beta1.ErrInvalidWorkflow)
		}
	}

	return nil
}

package orchestrator

import (
	"sync"

	"github.com/kestrelci/kestrel/internal/executor"
)

func NewSummary() *Summary {
	return &Summary{
		results: make(map[string][]executor.RunResult),
	}
}

// Summary aggregates every instance outcome of one invocation, keyed by
// job name and ordered by instance expansion order within a job.
type Summary struct {
	mu      sync.Mutex
	order   []string
	results map[string][]executor.RunResult
}

func (s *Summary) add(job string, results []executor.RunResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = append(s.order, job)
	s.results[job] = results
}

func (s *Summary) set(job string, index int, result executor.RunResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results[job][index] = result
}

// Jobs returns the job names in workflow declaration order.
func (s *Summary) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string{}, s.order...)
}

func (s *Summary) Results(job string) []executor.RunResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]executor.RunResult{}, s.results[job]...)
}

// Failed reports whether any instance of any job failed. Skipped
// instances never count as failure.
func (s *Summary) Failed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, results := range s.results {
		for _, result := range results {
			if result.Status == executor.StatusFailed {
				return true
			}
		}
	}

	return false
}

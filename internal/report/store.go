package report

import (
	"sync"

	"github.com/kestrelci/kestrel/internal/executor"
)

// Reporter consumes per-job instance outcomes and renders them once the
// whole invocation is done.
type Reporter interface {
	Report(job string, results []executor.RunResult) error
	Finalize() error
}

type jobResult struct {
	job     string
	results []executor.RunResult
}

type store struct {
	mu   sync.Mutex
	jobs []jobResult
}

func (s *store) Add(job string, results []executor.RunResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, v := range s.jobs {
		if v.job == job {
			s.jobs[i].results = results
			return
		}
	}

	s.jobs = append(s.jobs, jobResult{
		job:     job,
		results: results,
	})
}

func (s *store) Ordered() []jobResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]jobResult{}, s.jobs...)
}

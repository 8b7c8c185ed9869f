package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/kestrelci/kestrel/internal/executor"
)

type jsonReport struct {
	store *store
	w     io.Writer
}

func JSON(w io.Writer) *jsonReport {
	return &jsonReport{
		w:     w,
		store: &store{},
	}
}

func (r *jsonReport) Report(job string, results []executor.RunResult) error {
	r.store.Add(job, results)
	return nil
}

type jsonJob struct {
	Job     string               `json:"job"`
	Results []executor.RunResult `json:"results"`
}

func (r *jsonReport) Finalize() error {
	jobs := make([]jsonJob, 0)
	for _, job := range r.store.Ordered() {
		jobs = append(jobs, jsonJob{
			Job:     job.job,
			Results: job.results,
		})
	}

	b, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(r.w, "%s\n", b)
	return err
}

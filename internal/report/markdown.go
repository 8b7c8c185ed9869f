package report

import (
	"fmt"
	"io"

	"github.com/kestrelci/kestrel/internal/executor"
)

type markdown struct {
	store *store
	w     io.Writer
}

func Markdown(w io.Writer) *markdown {
	return &markdown{
		w:     w,
		store: &store{},
	}
}

func (r *markdown) Report(job string, results []executor.RunResult) error {
	r.store.Add(job, results)
	return nil
}

func (r *markdown) Finalize() error {
	fmt.Fprintln(r.w, "| # | Job | Instance | Status | Failed Step | Duration | Error |")
	fmt.Fprintln(r.w, "| --- | --- | --- | --- | --- | --- | --- |")

	i := 0
	for _, job := range r.store.Ordered() {
		for _, result := range job.results {
			status, lastStep, duration, errMsg := stringify(result)
			if result.Status != executor.StatusFailed {
				lastStep = ""
			}

			fmt.Fprintf(r.w, "| %d | %s | %s | %s | %s | %s | %s |\n",
				i,
				job.job,
				result.Instance,
				status,
				lastStep,
				duration,
				errMsg,
			)
			i++
		}
	}

	return nil
}

package report

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/kestrelci/kestrel/internal/executor"
)

type table struct {
	store *store
	w     io.Writer
}

func Table(w io.Writer) *table {
	return &table{
		w:     w,
		store: &store{},
	}
}

func (r *table) Report(job string, results []executor.RunResult) error {
	r.store.Add(job, results)
	return nil
}

func (r *table) Finalize() error {
	table := tablewriter.NewWriter(r.w)
	table.SetHeader([]string{"#", "Job", "Instance", "Status", "Failed Step", "Duration", "Error"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetCenterSeparator("")
	table.SetHeaderLine(false)
	table.SetReflowDuringAutoWrap(false)

	i := 0
	for _, job := range r.store.Ordered() {
		for _, result := range job.results {
			status, lastStep, duration, errMsg := stringify(result)
			if result.Status != executor.StatusFailed {
				lastStep = ""
			}

			table.Append([]string{
				fmt.Sprintf("%d", i),
				job.job,
				result.Instance,
				status,
				lastStep,
				duration,
				errMsg,
			})
			i++
		}
	}

	table.Render()
	return nil
}

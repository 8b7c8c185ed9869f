package report

import (
	"strings"
	"time"

	"github.com/kestrelci/kestrel/internal/executor"
)

// stringify flattens one instance outcome into table cells: status
// label, the step which terminated the instance, total duration and a
// single-line error message.
func stringify(result executor.RunResult) (status, lastStep, duration, errMsg string) {
	var total time.Duration
	for _, step := range result.Steps {
		total += step.Duration
		lastStep = step.Name
	}

	status = string(result.Status)
	duration = total.Round(time.Millisecond * 10).String()

	if result.Status == executor.StatusSkipped {
		duration = ""
		lastStep = ""
	}

	if result.Err != nil {
		errMsg = strings.ReplaceAll(result.Err.Error(), "\n", " ")
	}

	return status, lastStep, duration, errMsg
}

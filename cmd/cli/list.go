package main

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/kestrelci/kestrel/internal/matrix"
)

var listCmd = &cobra.Command{
	Use:   "list [ref]",
	Short: "List the jobs of a workflow and their matrix instances",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runList,
}

type listFlags struct {
	workflowsDir string `env:"WORKFLOWS_DIR"`
}

var listArgs = listFlags{}

func init() {
	listCmd.Flags().StringVarP(&listArgs.workflowsDir, "workflows-dir", "", ".kestrel/workflows", "Directory bare workflow names resolve against.")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	ref := ""
	if len(args) == 1 {
		ref = args[0]
	}

	workflow, err := newProvider(listArgs.workflowsDir).Resolve(cmd.Context(), ref)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"Job", "Events", "Instances", "Steps", "Condition"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetCenterSeparator("")
	table.SetHeaderLine(false)

	for i := range workflow.Jobs {
		job := &workflow.Jobs[i]

		instances, err := matrix.Expand(job)
		if err != nil {
			return err
		}

		events := make([]string, 0, len(job.On))
		for _, event := range job.On {
			events = append(events, string(event))
		}

		if len(events) == 0 {
			events = []string{"*"}
		}

		table.Append([]string{
			job.Name,
			strings.Join(events, ","),
			fmt.Sprintf("%d", len(instances)),
			fmt.Sprintf("%d", len(job.Steps)),
			job.If,
		})
	}

	table.Render()
	return nil
}

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kestrelci/kestrel/internal/orchestrator"
)

var lintCmd = &cobra.Command{
	Use:   "lint [ref]...",
	Short: "Validate workflow manifests without executing them",
	Long: `Lint resolves each given ref the same way run does, validates the
manifest and compiles every job condition, action reference and matrix.
Without any ref the default workflow file is linted.`,
	RunE: runLint,
}

type lintFlags struct {
	outputFormat OutputFormat
	workflowsDir string `env:"WORKFLOWS_DIR"`
}

var lintArgs = newLintFlags()

func newLintFlags() lintFlags {
	return lintFlags{
		outputFormat: OutputHuman,
	}
}

func init() {
	lintCmd.Flags().VarP(&lintArgs.outputFormat, "output", "o", "Output format. Choice of: \"human\" or \"json\"")
	lintCmd.Flags().StringVarP(&lintArgs.workflowsDir, "workflows-dir", "", ".kestrel/workflows", "Directory bare workflow names resolve against.")
	rootCmd.AddCommand(lintCmd)
}

type OutputFormat string

const (
	OutputHuman OutputFormat = "human"
	OutputJSON  OutputFormat = "json"
)

// String is used both by fmt.Print and by Cobra in help text
func (e *OutputFormat) String() string {
	return string(*e)
}

// Set must have pointer receiver so it doesn't change the value of a copy
func (e *OutputFormat) Set(v string) error {
	switch v {
	case "human", "json":
		*e = OutputFormat(v)
		return nil
	default:
		return fmt.Errorf(`must be one of "human", or "json"`)
	}
}

// Type is only used in help text
func (e *OutputFormat) Type() string {
	return "OutputFormat"
}

func runLint(cmd *cobra.Command, args []string) error {
	orch, err := orchestrator.New(orchestrator.WithLogger(logger))
	if err != nil {
		return err
	}

	refs := args
	if len(refs) == 0 {
		refs = []string{""}
	}

	hasError := false
	if lintArgs.outputFormat == OutputHuman {
		for _, ref := range refs {
			name := ref
			if name == "" {
				name = "<default>"
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n\033[1m%v\033[0m...", name)
			if err := lintRef(cmd, orch, ref); err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "\033[31mERROR\033[0m")
				fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
				hasError = true
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "\033[32mOK\033[0m")
			}
		}
	} else {
		res := map[string]string{}
		for _, ref := range refs {
			if err := lintRef(cmd, orch, ref); err != nil {
				res[ref] = err.Error()
				hasError = true
			} else {
				res[ref] = ""
			}
		}

		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	}

	if hasError {
		return fmt.Errorf("lint failed")
	}

	return nil
}

func lintRef(cmd *cobra.Command, orch *orchestrator.Orchestrator, ref string) error {
	workflow, err := newProvider(lintArgs.workflowsDir).Resolve(cmd.Context(), ref)
	if err != nil {
		return err
	}

	return orch.Lint(workflow)
}

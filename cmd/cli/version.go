package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var versionCmd = &cobra.Command{
	Use:  "version",
	RunE: runVersion,
}

type versionFlags struct {
	json bool `env:"JSON"`
}

var versionArgs = versionFlags{}

func init() {
	versionCmd.Flags().BoolVarP(&versionArgs.json, "json", "", !term.IsTerminal(int(os.Stdout.Fd())), "")
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) error {
	if versionArgs.json {
		fmt.Printf(`{"version":"%s","sha":"%s","date":"%s"}`+"\n", version, commit, date)
		return nil
	}

	fmt.Printf("%s\n%s\n\n%s\t%s\n%s\t%s\n%s\t%s\n",
		"KESTREL",
		"Matrix pipeline orchestrator",
		"Version:",
		version,
		"Commit SHA:",
		commit,
		"Build date:",
		date,
	)

	return nil
}

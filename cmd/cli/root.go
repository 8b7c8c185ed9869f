package main

import (
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kestrelci/kestrel/internal/logsetup"
)

var (
	version = "0.0.0-dev"
	commit  = "none"
	date    = "unknown"
)

type rootFlags struct {
	timeout    time.Duration `env:"TIMEOUT"`
	logOptions *logsetup.Options
}

var rootArgs = rootFlags{
	logOptions: logsetup.DefaultOptions(),
}

var logger logr.Logger
var zapConfig zap.Config

var rootCmd = &cobra.Command{
	Use:               "kestrel",
	Short:             "Matrix pipeline orchestrator",
	PersistentPreRunE: runRoot,
	SilenceUsage:      true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().DurationVarP(&rootArgs.timeout, "timeout", "", 0, "Abort the whole invocation after this duration. `0` means no bound.")
	rootArgs.logOptions.BindFlags(rootCmd.PersistentFlags())
}

func runRoot(cmd *cobra.Command, args []string) error {
	var err error
	logger, zapConfig, err = rootArgs.logOptions.Build()
	return err
}

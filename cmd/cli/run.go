package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/term"

	"github.com/kestrelci/kestrel/internal/actions"
	"github.com/kestrelci/kestrel/internal/executor"
	"github.com/kestrelci/kestrel/internal/logbridge"
	"github.com/kestrelci/kestrel/internal/mask"
	"github.com/kestrelci/kestrel/internal/orchestrator"
	"github.com/kestrelci/kestrel/internal/otelsetup"
	"github.com/kestrelci/kestrel/internal/provider"
	"github.com/kestrelci/kestrel/internal/report"
	"github.com/kestrelci/kestrel/pkg/apis/core/v1beta1"
)

var runCmd = &cobra.Command{
	Use:   "run [ref]",
	Short: "Run the jobs of a workflow against a trigger",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRun,
}

type runFlags struct {
	event         string        `env:"EVENT"`
	branch        string        `env:"BRANCH"`
	commitMessage string        `env:"COMMIT_MESSAGE"`
	changedFiles  []string      `env:"CHANGED_FILES"`
	envs          []string      `env:"ENVS"`
	secretsFile   string        `env:"SECRETS_FILE"`
	workflowsDir  string        `env:"WORKFLOWS_DIR"`
	maxConcurrent int           `env:"MAX_CONCURRENT"`
	stepTimeout   time.Duration `env:"STEP_TIMEOUT"`
	tee           bool          `env:"TEE"`
	report        string        `env:"REPORT"`
	reportOutput  string        `env:"REPORT_OUTPUT"`
	otelOptions   otelsetup.Options
}

var runArgs = runFlags{
	otelOptions: otelsetup.DefaultOptions("kestrel"),
}

const otelName = "github.com/kestrelci/kestrel"

func init() {
	runCmd.Flags().StringVarP(&runArgs.event, "event", "", string(v1beta1.EventPush), "Event kind which triggered this invocation. One of [push, pull_request, schedule, manual].")
	runCmd.Flags().StringVarP(&runArgs.branch, "branch", "", "", "Branch the trigger refers to.")
	runCmd.Flags().StringVarP(&runArgs.commitMessage, "commit-message", "m", "", "Message of the latest commit. Carries the [skip ci]/[ci skip] opt-out.")
	runCmd.Flags().StringSliceVarP(&runArgs.changedFiles, "changed-file", "", nil, "Changed file path, repeatable. Evaluated against job path filters.")
	runCmd.Flags().StringSliceVarP(&runArgs.envs, "env", "e", nil, "Pass envs to every step.")
	runCmd.Flags().StringVarP(&runArgs.secretsFile, "secrets-file", "", "", "Dotenv file providing values for declared secrets.")
	runCmd.Flags().StringVarP(&runArgs.workflowsDir, "workflows-dir", "", ".kestrel/workflows", "Directory bare workflow names resolve against.")
	runCmd.Flags().IntVarP(&runArgs.maxConcurrent, "max-concurrent", "", 0, "Upper bound of concurrently running matrix instances. `0` means unbounded.")
	runCmd.Flags().DurationVarP(&runArgs.stepTimeout, "step-timeout", "", 10*time.Minute, "Default timeout for steps without an own one.")
	runCmd.Flags().BoolVarP(&runArgs.tee, "tee", "", term.IsTerminal(int(os.Stdout.Fd())), "Stream step output live, prefixed per instance.")
	runCmd.Flags().StringVarP(&runArgs.report, "report", "r", "table", "Report summary at the end of execution. One of [none, table, json, markdown].")
	runCmd.Flags().StringVarP(&runArgs.reportOutput, "report-output", "", electDefaultReportOutput(), "Destination for the report output.")
	runArgs.otelOptions.BindFlags(runCmd.Flags())

	rootCmd.AddCommand(runCmd)
}

var ErrWorkflowFailed = errors.New("workflow failed")

func electDefaultReportOutput() string {
	if os.Getenv("GITHUB_STEP_SUMMARY") != "" {
		return os.Getenv("GITHUB_STEP_SUMMARY")
	}

	return os.Stdout.Name()
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if rootArgs.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, rootArgs.timeout)
		defer cancel()
	}

	meter, tracer, shutdown, err := setupTelemetry(ctx)
	if err != nil {
		return err
	}

	defer shutdown()

	ref := ""
	if len(args) == 1 {
		ref = args[0]
	}

	workflow, err := newProvider(runArgs.workflowsDir).Resolve(ctx, ref)
	if err != nil {
		return err
	}

	masks := mask.NewSecretStore(nil)
	stepOpts := []executor.RunnerOption{
		executor.WithLogger(logger),
		executor.WithSecretStore(masks),
	}

	if runArgs.tee {
		stepOpts = append(stepOpts, executor.WithTee(os.Stdout))
	}

	orch, err := orchestrator.New(
		orchestrator.WithLogger(logger),
		orchestrator.WithPool(pond.NewPool(runArgs.maxConcurrent)),
		orchestrator.WithRegistry(actions.Builtin()),
		orchestrator.WithSteps(executor.NewRunner(stepOpts...)),
		orchestrator.WithEnv(executor.MergeEnv(executor.EnvMap(os.Environ()), executor.EnvMap(runArgs.envs))),
		orchestrator.WithSecretsFile(runArgs.secretsFile),
		orchestrator.WithSecretStore(masks),
		orchestrator.WithMeter(meter),
		orchestrator.WithTracer(tracer),
		orchestrator.WithBuildOptions(executor.WithDefaultTimeout(runArgs.stepTimeout)),
	)
	if err != nil {
		return err
	}

	trigger := v1beta1.Trigger{
		Event:         v1beta1.EventKind(runArgs.event),
		Branch:        runArgs.branch,
		CommitMessage: runArgs.commitMessage,
		ChangedPaths:  runArgs.changedFiles,
	}

	summary, err := orch.Run(ctx, workflow, trigger)
	if err != nil {
		return err
	}

	if err := writeReport(summary); err != nil {
		return err
	}

	if summary.Failed() {
		return ErrWorkflowFailed
	}

	return nil
}

func newProvider(workflowsDir string) provider.Interface {
	return provider.New(
		provider.WithHTTP(nil, 3, time.Second),
		provider.WithFile(),
		provider.WithWorkflowFile(),
		provider.WithDir(workflowsDir),
	)
}

func writeReport(summary *orchestrator.Summary) error {
	if runArgs.report == "none" {
		return nil
	}

	output := os.Stdout
	if runArgs.reportOutput != os.Stdout.Name() {
		f, err := os.OpenFile(runArgs.reportOutput, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}

		defer f.Close()
		output = f
	}

	var reporter report.Reporter
	switch runArgs.report {
	case "table":
		reporter = report.Table(output)
	case "json":
		reporter = report.JSON(output)
	case "markdown":
		reporter = report.Markdown(output)
	default:
		return fmt.Errorf("unknown report type: %q", runArgs.report)
	}

	for _, job := range summary.Jobs() {
		if err := reporter.Report(job, summary.Results(job)); err != nil {
			return err
		}
	}

	return reporter.Finalize()
}

func setupTelemetry(ctx context.Context) (metric.Meter, trace.Tracer, func(), error) {
	noShutdown := func() {}

	traceProvider, err := runArgs.otelOptions.BuildTraceProvider(ctx)
	if err != nil {
		return nil, nil, noShutdown, err
	}

	meterProvider, err := runArgs.otelOptions.BuildMeterProvider(ctx)
	if err != nil {
		return nil, nil, noShutdown, err
	}

	loggerProvider, err := runArgs.otelOptions.BuildLoggerProvider(ctx)
	if err != nil {
		return nil, nil, noShutdown, err
	}

	if loggerProvider != nil {
		logger, _, err = rootArgs.logOptions.Build(logbridge.OtelCore(loggerProvider.Logger(otelName)))
		if err != nil {
			return nil, nil, noShutdown, err
		}
	}

	shutdown := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if traceProvider != nil {
			_ = traceProvider.Shutdown(shutdownCtx)
		}

		if meterProvider != nil {
			_ = meterProvider.Shutdown(shutdownCtx)
		}

		if loggerProvider != nil {
			_ = loggerProvider.Shutdown(shutdownCtx)
		}
	}

	var meter metric.Meter
	var tracer trace.Tracer
	if meterProvider != nil {
		meter = meterProvider.Meter(otelName)
	}

	if traceProvider != nil {
		tracer = traceProvider.Tracer(otelName)
	}

	return meter, tracer, shutdown, nil
}

package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/alitto/pond/v2"
	"github.com/go-logr/logr"
	"github.com/google/cel-go/cel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/kestrelci/kestrel/internal/actions"
	"github.com/kestrelci/kestrel/internal/executor"
	"github.com/kestrelci/kestrel/internal/gate"
	"github.com/kestrelci/kestrel/internal/mask"
	"github.com/kestrelci/kestrel/internal/matrix"
	"github.com/kestrelci/kestrel/internal/secrets"
	"github.com/kestrelci/kestrel/pkg/apis/core/v1beta1"
)

type Option func(*Orchestrator)

func WithLogger(logger logr.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

func WithPool(pool pond.Pool) Option {
	return func(o *Orchestrator) {
		o.pool = pool
	}
}

func WithSteps(steps executor.StepExecutor) Option {
	return func(o *Orchestrator) {
		o.steps = steps
	}
}

func WithRegistry(registry *actions.Registry) Option {
	return func(o *Orchestrator) {
		o.registry = registry
	}
}

// WithEnv sets the inherited base environment every step starts from.
func WithEnv(env map[string]string) Option {
	return func(o *Orchestrator) {
		o.env = env
	}
}

// WithSecretsFile points at a dotenv file resolved against the
// workflow's declared secrets.
func WithSecretsFile(path string) Option {
	return func(o *Orchestrator) {
		o.secretsFile = path
	}
}

func WithSecretStore(store *mask.SecretStore) Option {
	return func(o *Orchestrator) {
		o.masks = store
	}
}

// WithMeter replaces the default noop meter. A nil meter keeps it.
func WithMeter(meter metric.Meter) Option {
	return func(o *Orchestrator) {
		if meter != nil {
			o.meter = meter
		}
	}
}

// WithTracer replaces the default noop tracer. A nil tracer keeps it.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

func WithBuildOptions(opts ...executor.BuildOption) Option {
	return func(o *Orchestrator) {
		o.buildOptions = opts
	}
}

func New(opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		logger:   logr.Discard(),
		pool:     pond.NewPool(0),
		registry: actions.Builtin(),
		masks:    mask.NewSecretStore(nil),
		env:      map[string]string{},
		meter:    noop.NewMeterProvider().Meter("kestrel"),
		tracer:   tracenoop.NewTracerProvider().Tracer("kestrel"),
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.steps == nil {
		o.steps = executor.NewRunner(executor.WithLogger(o.logger), executor.WithSecretStore(o.masks))
	}

	var err error
	o.celEnv, err = gate.NewCelEnv()
	if err != nil {
		return nil, err
	}

	o.stepDuration, err = o.meter.Float64Histogram("kestrel.step.duration",
		metric.WithDescription("Wall time of one step execution."),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	o.instances, err = o.meter.Int64Counter("kestrel.instances.total",
		metric.WithDescription("Matrix instances by terminal status."))
	if err != nil {
		return nil, err
	}

	return o, nil
}

// Orchestrator owns the independent jobs of one workflow: it expands
// each job's matrix, applies the gates, dispatches instances onto the
// worker pool and aggregates the outcome.
type Orchestrator struct {
	logger       logr.Logger
	pool         pond.Pool
	steps        executor.StepExecutor
	registry     *actions.Registry
	masks        *mask.SecretStore
	env          map[string]string
	secretsFile  string
	buildOptions []executor.BuildOption

	celEnv       *cel.Env
	meter        metric.Meter
	tracer       trace.Tracer
	stepDuration metric.Float64Histogram
	instances    metric.Int64Counter
}

// jobPlan is one job after load-time resolution: resolved steps,
// compiled condition, fully expanded matrix.
type jobPlan struct {
	spec      *v1beta1.Job
	job       *executor.Job
	condition *gate.Condition
	instances []matrix.Instance
	env       map[string]string
}

// Run executes the workflow against one trigger. The returned error is
// non-nil only for definition problems which abort the invocation before
// any instance was dispatched; execution failures live in the summary.
func (o *Orchestrator) Run(ctx context.Context, workflow v1beta1.Workflow, trigger v1beta1.Trigger) (*Summary, error) {
	plans, err := o.plan(workflow, true)
	if err != nil {
		return nil, err
	}

	summary := NewSummary()
	shouldRun := gate.ShouldRun(trigger)
	if !shouldRun {
		o.logger.Info("commit message requested a skip, no job will run", "commitMessage", trigger.CommitMessage)
	}

	ctx, span := o.tracer.Start(ctx, "workflow")
	defer span.End()

	var group errgroup.Group
	for _, plan := range plans {
		summary.add(plan.spec.Name, make([]executor.RunResult, len(plan.instances)))

		group.Go(func() error {
			return o.runJob(ctx, plan, trigger, shouldRun, summary)
		})
	}

	if err := group.Wait(); err != nil {
		return summary, err
	}

	return summary, nil
}

// Lint runs the whole load-time resolution without dispatching
// anything: validation, action references, conditions and matrix
// expansion. Secret values are not required to be present.
func (o *Orchestrator) Lint(workflow v1beta1.Workflow) error {
	_, err := o.plan(workflow, false)
	return err
}

// plan resolves every job up front so that any configuration error
// surfaces before a single instance is dispatched.
func (o *Orchestrator) plan(workflow v1beta1.Workflow, resolveSecrets bool) ([]jobPlan, error) {
	if err := workflow.Validate(); err != nil {
		return nil, err
	}

	resolved := map[string]string{}
	if resolveSecrets {
		var err error
		resolved, err = secrets.Load(workflow.Secrets, envSlice(o.env), o.secretsFile)
		if err != nil {
			return nil, err
		}
	}

	plans := make([]jobPlan, 0, len(workflow.Jobs))
	var errs []error

	for i := range workflow.Jobs {
		spec := &workflow.Jobs[i]
		plan := jobPlan{spec: spec}

		var err error
		plan.job, err = executor.NewJob(spec, o.registry, o.buildOptions...)
		if err != nil {
			errs = append(errs, err)
		}

		plan.condition, err = gate.CompileCondition(o.celEnv, spec.If)
		if err != nil {
			errs = append(errs, err)
		}

		if err := gate.ValidatePaths(spec.Paths); err != nil {
			errs = append(errs, fmt.Errorf("job %q: %w", spec.Name, err))
		}

		plan.instances, err = matrix.Expand(spec)
		if err != nil {
			errs = append(errs, err)
		}

		jobSecrets := map[string]string{}
		if resolveSecrets {
			jobSecrets, err = secrets.Select(resolved, spec.Secrets)
			if err != nil {
				errs = append(errs, err)
			}
		}

		for _, value := range jobSecrets {
			o.masks.AddSecrets([]byte(value))
		}

		plan.env = executor.MergeEnv(o.env,
			executor.EnvMap(workflow.Env),
			executor.EnvMap(spec.Env),
			jobSecrets,
		)

		plans = append(plans, plan)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return plans, nil
}

func (o *Orchestrator) runJob(ctx context.Context, plan jobPlan, trigger v1beta1.Trigger, shouldRun bool, summary *Summary) error {
	pathsMatch, err := gate.MatchesPaths(plan.spec.Paths, trigger.ChangedPaths)
	if err != nil {
		return err
	}

	gated := shouldRun && pathsMatch && gate.MatchesEvent(plan.spec, trigger)

	// all conditions are evaluated before any instance is dispatched
	dispatch := make([]bool, len(plan.instances))
	for i, instance := range plan.instances {
		if !gated {
			continue
		}

		if plan.condition != nil {
			ok, err := plan.condition.Eval(trigger, instance.Values)
			if err != nil {
				return err
			}

			if !ok {
				continue
			}
		}

		dispatch[i] = true
	}

	runner := executor.NewJobRunner(o.steps, o.logger)
	results := make(chan indexedResult)
	dispatched := 0

	for i, instance := range plan.instances {
		if !dispatch[i] {
			o.finish(ctx, summary, plan.spec.Name, i, skippedResult(plan.spec.Name, instance))
			continue
		}

		dispatched++
		o.pool.Go(func() {
			instanceCtx, span := o.tracer.Start(ctx, fmt.Sprintf("instance/%s", instance.Name))
			defer span.End()

			results <- indexedResult{
				index:  i,
				result: runner.Run(instanceCtx, plan.job, instance, plan.env),
			}
		})
	}

	for done := 0; done < dispatched; done++ {
		res := <-results
		o.finish(ctx, summary, plan.spec.Name, res.index, res.result)
	}

	return nil
}

func (o *Orchestrator) finish(ctx context.Context, summary *Summary, job string, index int, result executor.RunResult) {
	summary.set(job, index, result)

	o.instances.Add(ctx, 1, metric.WithAttributes(
		attribute.String("job", job),
		attribute.String("status", string(result.Status)),
	))

	for _, step := range result.Steps {
		o.stepDuration.Record(ctx, step.Duration.Seconds(), metric.WithAttributes(
			attribute.String("job", job),
			attribute.String("step", step.Name),
		))
	}

	o.logger.V(1).Info("instance finished", "job", job, "instance", result.Instance, "status", result.Status)
}

type indexedResult struct {
	index  int
	result executor.RunResult
}

func skippedResult(job string, instance matrix.Instance) executor.RunResult {
	return executor.RunResult{
		Job:      job,
		Instance: instance.Name,
		Values:   instance.Values,
		Status:   executor.StatusSkipped,
	}
}

func envSlice(env map[string]string) []string {
	envs := make([]string, 0, len(env))
	for k, v := range env {
		envs = append(envs, fmt.Sprintf("%s=%s", k, v))
	}

	return envs
}

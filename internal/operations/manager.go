package operations

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"acceptcli/internal/infrastructure"
)

// TracerName names the tracer of pipeline spans
const TracerName = "acceptcli/operations"

// Manager runs the registered steps of an acceptance run in dependency order
type Manager struct {
	registry *Registry
	manifest *RunManifest
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewManager creates a manager over registry. The manifest receives step
// timings; it may be nil.
func NewManager(registry *Registry, manifest *RunManifest, logger *slog.Logger) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		registry: registry,
		manifest: manifest,
		logger:   infrastructure.WithComponent(logger, "operations"),
		tracer:   otel.Tracer(TracerName),
	}
}

// Manifest returns the run manifest, or nil
func (m *Manager) Manifest() *RunManifest {
	return m.manifest
}

// Run executes every step sequentially. The first failure stops the run and
// the remaining steps are marked skipped.
func (m *Manager) Run(ctx context.Context, state *RunState) error {
	steps, err := m.registry.GetDependencyOrder()
	if err != nil {
		state.Fail(err)
		return err
	}

	ctx, span := m.tracer.Start(ctx, "operation.run",
		trace.WithAttributes(
			attribute.String("run.id", state.ID),
			attribute.Int("run.step_count", len(steps)),
		))
	defer span.End()

	for _, step := range steps {
		state.SetStep(step.ID(), NewStepState(step.ID(), step.Name()))
	}

	state.Start()
	m.logger.InfoContext(ctx, "Run started",
		slog.String("run_id", state.ID),
		slog.Int("step_count", m.registry.Count()),
		slog.Any("registered", m.registry.ListIDs()))

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			err = NewCancellationError(step.ID(), err)
			m.skipRemaining(state, steps[i:], "run cancelled")
			return m.fail(ctx, span, state, err)
		}

		if err := m.executeStep(ctx, state, step); err != nil {
			m.skipRemaining(state, steps[i+1:], fmt.Sprintf("step %s failed", step.ID()))
			return m.fail(ctx, span, state, err)
		}
	}

	state.Complete()
	span.SetStatus(codes.Ok, "")
	m.logger.InfoContext(ctx, "Run completed",
		slog.String("run_id", state.ID),
		slog.Duration("duration", state.Duration()))
	return nil
}

func (m *Manager) executeStep(ctx context.Context, state *RunState, step Step) error {
	stepState := state.GetStep(step.ID())
	for _, dep := range step.GetDependencies() {
		if depState := state.GetStep(dep); depState == nil || depState.GetStatus() != StepStatusCompleted {
			err := NewDependencyError(step.ID(), dep)
			stepState.Fail(err)
			m.recordSkip(step, err.Error())
			return err
		}
	}
	if err := step.Validate(state); err != nil {
		stepState.Fail(err)
		m.recordSkip(step, err.Error())
		return WrapError(err, step.ID())
	}

	ctx, span := m.tracer.Start(ctx, "operation.step."+step.ID(),
		trace.WithAttributes(
			attribute.String("run.id", state.ID),
			attribute.String("step.id", step.ID()),
		))
	defer span.End()

	stepState.Start()
	if m.manifest != nil {
		m.manifest.RecordStepStart(step.ID(), step.Name())
	}
	m.logger.InfoContext(ctx, "Step started", slog.String("step", step.ID()))

	start := time.Now()
	if err := step.Execute(ctx, state); err != nil {
		stepState.Fail(err)
		if m.manifest != nil {
			m.manifest.RecordStepFailure(step.ID(), err)
		}
		span.SetStatus(codes.Error, err.Error())
		infrastructure.RecordError(ctx, err)
		m.logger.ErrorContext(ctx, "Step failed",
			slog.String("step", step.ID()),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()))
		return WrapError(err, step.ID())
	}

	stepState.Complete()
	infrastructure.SetSpanAttributes(ctx, stepState.Metadata)
	if m.manifest != nil {
		m.manifest.RecordStepCompletion(step.ID(), stepState.Metadata)
	}
	m.logger.InfoContext(ctx, "Step completed",
		slog.String("step", step.ID()),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (m *Manager) skipRemaining(state *RunState, steps []Step, reason string) {
	for _, step := range steps {
		if s := state.GetStep(step.ID()); s != nil && s.GetStatus() == StepStatusPending {
			s.Skip(reason)
			m.recordSkip(step, reason)
		}
	}
}

func (m *Manager) recordSkip(step Step, reason string) {
	if m.manifest != nil {
		m.manifest.RecordStepSkipped(step.ID(), step.Name(), reason)
	}
}

func (m *Manager) fail(ctx context.Context, span trace.Span, state *RunState, err error) error {
	state.Fail(err)
	span.SetStatus(codes.Error, err.Error())
	m.logger.ErrorContext(ctx, "Run failed",
		slog.String("run_id", state.ID),
		slog.String("error_type", string(GetErrorType(err))),
		slog.String("error", err.Error()))
	return err
}

// Package acceptance compares reduced observed and simulated tables across
// the acceptance criteria and builds the network comparison artifacts.
package acceptance

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"acceptcli/internal/crosswalk"
	apperrors "acceptcli/internal/errors"
	"acceptcli/internal/infrastructure"
	"acceptcli/pkg/contracts/domain"
)

var tracer = otel.Tracer("acceptcli/acceptance")

// Result is the output of one comparison run
type Result struct {
	Records    []domain.ComparisonRecord  `json:"records"`
	Statistics []Statistics               `json:"statistics"`
	Roadway    []domain.RoadwayNetworkRow `json:"roadway"`
	Transit    []domain.TransitNetworkRow `json:"transit"`
}

// Engine runs a fixed set of criteria
type Engine struct {
	criteria []Criterion
	logger   *slog.Logger
	metrics  *infrastructure.RunMetrics
}

// NewEngine validates the criteria and orders them by number
func NewEngine(criteria []Criterion, logger *slog.Logger, metrics *infrastructure.RunMetrics) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	seen := make(map[int]bool, len(criteria))
	sorted := make([]Criterion, 0, len(criteria))
	for _, c := range criteria {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if seen[c.Number] {
			return nil, apperrors.NewInvariantError(fmt.Sprintf("criterion number %d defined twice", c.Number))
		}
		seen[c.Number] = true
		sorted = append(sorted, c)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Number < sorted[j].Number })

	return &Engine{
		criteria: sorted,
		logger:   infrastructure.WithComponent(logger, "acceptance"),
		metrics:  metrics,
	}, nil
}

// Criteria returns the engine's criteria in number order
func (e *Engine) Criteria() []Criterion {
	return append([]Criterion(nil), e.criteria...)
}

// Run compares every criterion and builds the network artifacts. Records are
// concatenated in criterion number order.
func (e *Engine) Run(ctx context.Context, in Inputs) (*Result, error) {
	if in.Observed == nil || in.Simulated == nil {
		return nil, apperrors.NewInvariantError("comparison needs both observed and simulated tables")
	}

	res := &Result{}
	for _, c := range e.criteria {
		records, stats := e.runCriterion(ctx, c, in)
		res.Records = append(res.Records, records...)
		res.Statistics = append(res.Statistics, stats)
	}

	res.Roadway = RoadwayNetwork(in.Observed.TrafficCounts, in.Simulated.Links)
	res.Transit = TransitNetwork(in.Simulated.Segments, in.Simulated.LineBoardings, in.Observed.LineBoardings)

	e.logger.InfoContext(ctx, "Comparison completed",
		slog.Int("criteria", len(e.criteria)),
		slog.Int("records", len(res.Records)),
		slog.Int("roadway_rows", len(res.Roadway)),
		slog.Int("transit_rows", len(res.Transit)))
	return res, nil
}

func (e *Engine) runCriterion(ctx context.Context, c Criterion, in Inputs) ([]domain.ComparisonRecord, Statistics) {
	ctx, span := tracer.Start(ctx, "acceptance.criterion", trace.WithAttributes(
		attribute.Int("criteria_number", c.Number),
		attribute.String("criteria_name", c.Name),
		attribute.String("join", c.Join.String()),
	))
	defer span.End()

	records := c.Compare(in)
	stats := Summarize(c, records)

	span.SetAttributes(
		attribute.Int("records", len(records)),
		attribute.Int("matched", stats.Matched),
	)
	e.metrics.Records(ctx, c.Number, len(records))
	unmatched := stats.ObservedOnly
	if c.Join == crosswalk.Outer {
		unmatched += stats.SimulatedOnly
	}
	e.metrics.Unmatched(ctx, fmt.Sprintf("criterion_%02d", c.Number), unmatched)

	level := slog.LevelInfo
	if !stats.Passed() {
		level = slog.LevelWarn
	}
	e.logger.Log(ctx, level, "Criterion compared",
		slog.Int("criteria_number", c.Number),
		slog.String("criteria_name", c.Name),
		slog.Int("records", len(records)),
		slog.Int("matched", stats.Matched),
		slog.Int("observed_only", stats.ObservedOnly),
		slog.Int("simulated_only", stats.SimulatedOnly),
		slog.Float64("percent_rmse", stats.PercentRMSE),
		slog.Bool("passed", stats.Passed()))
	return records, stats
}

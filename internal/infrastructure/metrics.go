package infrastructure

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RunMetrics holds the counters recorded during one acceptance run.
// A nil *RunMetrics is valid and records nothing.
type RunMetrics struct {
	rowsReduced metric.Int64Counter
	cacheHits   metric.Int64Counter
	cacheMisses metric.Int64Counter
	records     metric.Int64Counter
	unmatched   metric.Int64Counter
}

// NewRunMetrics creates the run counters on meter
func NewRunMetrics(meter metric.Meter) (*RunMetrics, error) {
	rowsReduced, err := meter.Int64Counter(
		"acceptance_rows_reduced",
		metric.WithDescription("Rows produced by the observed and simulated reducers"),
	)
	if err != nil {
		return nil, err
	}

	cacheHits, err := meter.Int64Counter(
		"acceptance_cache_hits",
		metric.WithDescription("Reduced artifacts loaded from the cache"),
	)
	if err != nil {
		return nil, err
	}

	cacheMisses, err := meter.Int64Counter(
		"acceptance_cache_misses",
		metric.WithDescription("Reduced artifacts recomputed"),
	)
	if err != nil {
		return nil, err
	}

	records, err := meter.Int64Counter(
		"acceptance_comparison_records",
		metric.WithDescription("Comparison records emitted per criterion"),
	)
	if err != nil {
		return nil, err
	}

	unmatched, err := meter.Int64Counter(
		"acceptance_unmatched_joins",
		metric.WithDescription("Join keys with no match in a crosswalk"),
	)
	if err != nil {
		return nil, err
	}

	return &RunMetrics{
		rowsReduced: rowsReduced,
		cacheHits:   cacheHits,
		cacheMisses: cacheMisses,
		records:     records,
		unmatched:   unmatched,
	}, nil
}

// RowsReduced counts rows produced for a source table
func (m *RunMetrics) RowsReduced(ctx context.Context, source string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.rowsReduced.Add(ctx, int64(n), metric.WithAttributes(attribute.String("source", source)))
}

// CacheLookup counts a cache hit or miss for an artifact
func (m *RunMetrics) CacheLookup(ctx context.Context, artifact string, hit bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("artifact", artifact))
	if hit {
		m.cacheHits.Add(ctx, 1, attrs)
		return
	}
	m.cacheMisses.Add(ctx, 1, attrs)
}

// Records counts comparison records emitted by a criterion
func (m *RunMetrics) Records(ctx context.Context, criterion int, n int) {
	if m == nil {
		return
	}
	m.records.Add(ctx, int64(n), metric.WithAttributes(attribute.String("criterion", strconv.Itoa(criterion))))
}

// Unmatched counts join keys that found no crosswalk entry
func (m *RunMetrics) Unmatched(ctx context.Context, crosswalk string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.unmatched.Add(ctx, int64(n), metric.WithAttributes(attribute.String("crosswalk", crosswalk)))
}

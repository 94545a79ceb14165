package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *bytes.Buffer {
	return &bytes.Buffer{}
}

func TestOTelInitialization(t *testing.T) {
	buf := testLogger()
	traceFile := filepath.Join(t.TempDir(), "out", "trace.json")

	providers, err := InitializeOTel(OTelConfig{
		ServiceName:   "acceptance-test",
		EnableTracing: true,
		TraceFile:     traceFile,
	}, NewLogger(buf, nil))
	require.NoError(t, err)
	require.NotNil(t, providers.TracerProvider)
	require.NotNil(t, providers.Metrics)

	ctx, span := providers.Tracer.Start(context.Background(), "step.observed")
	SetSpanAttributes(ctx, map[string]interface{}{
		"rows":      10,
		"source":    "traffic_counts",
		"cached":    false,
		"ratio":     0.5,
		"link_id":   int64(7),
		"criterion": struct{}{},
	})
	RecordError(ctx, errors.New("boom"))
	span.End()

	require.NoError(t, providers.Shutdown(context.Background()))

	content, err := os.ReadFile(traceFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "step.observed")
	assert.Contains(t, string(content), "traffic_counts")
	assert.Contains(t, buf.String(), "OpenTelemetry initialization complete")
}

func TestOTelTracingDisabled(t *testing.T) {
	providers, err := InitializeOTel(OTelConfig{}, NewLogger(testLogger(), nil))
	require.NoError(t, err)

	assert.Nil(t, providers.TracerProvider)
	require.NotNil(t, providers.Tracer)

	ctx, span := providers.Tracer.Start(context.Background(), "noop")
	assert.False(t, span.IsRecording())
	RecordError(ctx, errors.New("ignored"))
	span.End()

	require.NoError(t, providers.Shutdown(context.Background()))
}

func TestRunMetricsTextfile(t *testing.T) {
	providers, err := InitializeOTel(OTelConfig{}, NewLogger(testLogger(), nil))
	require.NoError(t, err)

	ctx := context.Background()
	m := providers.Metrics
	m.RowsReduced(ctx, "traffic_counts", 42)
	m.CacheLookup(ctx, "observed_counts", true)
	m.CacheLookup(ctx, "simulated_links", false)
	m.Records(ctx, 1, 12)
	m.Unmatched(ctx, "count_station_links", 3)

	path := filepath.Join(t.TempDir(), "metrics", "acceptance.prom")
	require.NoError(t, providers.WriteMetrics(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(content)
	assert.Contains(t, text, "acceptance_rows_reduced")
	assert.Contains(t, text, `source="traffic_counts"`)
	assert.Contains(t, text, "acceptance_cache_hits")
	assert.Contains(t, text, "acceptance_cache_misses")
	assert.Contains(t, text, `criterion="1"`)
	assert.Contains(t, text, `crosswalk="count_station_links"`)

	require.NoError(t, providers.Shutdown(ctx))
}

func TestRunMetricsNilSafe(t *testing.T) {
	var m *RunMetrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.RowsReduced(ctx, "x", 1)
		m.CacheLookup(ctx, "x", true)
		m.Records(ctx, 1, 1)
		m.Unmatched(ctx, "x", 1)
	})

	var p *OTelProviders
	assert.NoError(t, p.WriteMetrics("ignored"))
}

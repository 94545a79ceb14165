package exporter

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"

	"acceptcli/internal/acceptance"
	"acceptcli/internal/config"
	"acceptcli/internal/infrastructure"
	"acceptcli/pkg/contracts/domain"
)

var tracer = otel.Tracer("acceptcli/exporter")

// Exporter writes every output artifact of a run
type Exporter struct {
	paths  *config.Paths
	csv    *CSVWriter
	logger *slog.Logger
}

// New creates an exporter writing to paths
func New(paths *config.Paths, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	logger = infrastructure.WithComponent(logger, "exporter")
	return &Exporter{paths: paths, csv: NewCSVWriter(paths, logger), logger: logger}
}

// Export writes the three GeoJSON artifacts, the comparison and statistics
// CSV files, and the statistics workbook. It returns the written paths.
func (e *Exporter) Export(ctx context.Context, res *acceptance.Result) ([]string, error) {
	ctx, span := tracer.Start(ctx, "exporter.export")
	defer span.End()

	steps := []struct {
		path  string
		write func(path string) error
	}{
		{e.paths.RoadwayGeoJSON, func(p string) error { return WriteGeoJSON(p, RoadwayCollection(res.Roadway)) }},
		{e.paths.TransitGeoJSON, func(p string) error { return WriteGeoJSON(p, TransitCollection(res.Transit)) }},
		{e.paths.OtherGeoJSON, func(p string) error { return WriteGeoJSON(p, ComparisonCollection(res.Records)) }},
		{e.paths.ComparisonsCSV, func(p string) error { return e.writeComparisons(p, res.Records) }},
		{e.paths.StatisticsCSV, func(p string) error { return e.writeStatistics(p, res.Statistics) }},
		{e.paths.StatisticsXLSX, func(p string) error { return WriteStatisticsWorkbook(p, res.Statistics, res.Records) }},
	}

	written := make([]string, 0, len(steps))
	for _, s := range steps {
		if err := s.write(s.path); err != nil {
			infrastructure.RecordError(ctx, err)
			return written, err
		}
		written = append(written, s.path)
		e.logger.InfoContext(ctx, "Artifact written", slog.String("path", s.path))
	}
	return written, nil
}

func (e *Exporter) writeComparisons(path string, records []domain.ComparisonRecord) error {
	stream, err := e.csv.CreateStreamWriter(path, domain.ComparisonColumns)
	if err != nil {
		return err
	}
	for _, r := range records {
		if err := stream.WriteRecord(r.Values()); err != nil {
			stream.Close()
			return err
		}
	}
	return stream.Close()
}

func (e *Exporter) writeStatistics(path string, stats []acceptance.Statistics) error {
	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, s.Values())
	}
	return e.csv.WriteSimpleCSV(path, acceptance.StatisticsColumns, rows)
}

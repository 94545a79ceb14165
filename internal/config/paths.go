package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Artifact file names written to the output directory
const (
	RoadwayComparisonsFile = "roadway-network-comparisons.geojson"
	TransitComparisonsFile = "transit-network-comparisons.geojson"
	OtherComparisonsFile   = "other-comparisons.geojson"
	ComparisonsCSVFile     = "acceptance-comparisons.csv"
	StatisticsCSVFile      = "acceptance-statistics.csv"
	StatisticsXLSXFile     = "acceptance-statistics.xlsx"
	ManifestFile           = "run_manifest.json"
)

// Paths contains every output location of a run.
// This is the single source of truth for artifact paths.
type Paths struct {
	OutputDir string
	CacheDir  string
	LogsDir   string

	RoadwayGeoJSON string
	TransitGeoJSON string
	OtherGeoJSON   string
	ComparisonsCSV string
	StatisticsCSV  string
	StatisticsXLSX string
	ManifestJSON   string
	TraceFile      string
	MetricsFile    string
}

// GetPaths derives the run paths from the configuration
func (c *Config) GetPaths() *Paths {
	out := c.Run.OutputDir
	return &Paths{
		OutputDir:      out,
		CacheDir:       c.Run.CacheDir,
		LogsDir:        filepath.Dir(c.Logging.FilePath),
		RoadwayGeoJSON: filepath.Join(out, RoadwayComparisonsFile),
		TransitGeoJSON: filepath.Join(out, TransitComparisonsFile),
		OtherGeoJSON:   filepath.Join(out, OtherComparisonsFile),
		ComparisonsCSV: filepath.Join(out, ComparisonsCSVFile),
		StatisticsCSV:  filepath.Join(out, StatisticsCSVFile),
		StatisticsXLSX: filepath.Join(out, StatisticsXLSXFile),
		ManifestJSON:   filepath.Join(out, ManifestFile),
		TraceFile:      inDir(out, c.Telemetry.TraceFile),
		MetricsFile:    inDir(out, c.Telemetry.MetricsFile),
	}
}

func inDir(dir, name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.OutputDir,
		p.CacheDir,
	}

	logger := slog.Default()

	for _, dir := range directories {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		logger.Debug("Ensured directory exists",
			slog.String("directory", dir))
	}

	return nil
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// LogPathResolution logs the resolved output locations
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("output", p.OutputDir),
			slog.String("cache", p.CacheDir),
		),
		slog.Group("artifacts",
			slog.String("roadway", p.RoadwayGeoJSON),
			slog.String("transit", p.TransitGeoJSON),
			slog.String("other", p.OtherGeoJSON),
			slog.String("statistics", p.StatisticsXLSX),
			slog.String("manifest", p.ManifestJSON),
		))
}

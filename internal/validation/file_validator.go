package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"acceptcli/internal/config"
	apperrors "acceptcli/internal/errors"
)

// FileKind is the expected format of an input file
type FileKind int

const (
	// KindTable is a CSV or XLSX table
	KindTable FileKind = iota
	// KindGeoJSON is a GeoJSON feature collection
	KindGeoJSON
	// KindReport is a fixed-width text report
	KindReport
)

// Input names one configured input file
type Input struct {
	Key  string
	Path string
	Kind FileKind
}

// FileValidator checks input and output locations before a run
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{logger: logger}
}

// Inputs lists every input file of cfg under its YAML key
func Inputs(cfg *config.Config) []Input {
	inputs := []Input{
		{"canonical.agency_names", cfg.Canonical.AgencyNames, KindTable},
		{"canonical.station_names", cfg.Canonical.StationNames, KindTable},
		{"canonical.counties", cfg.Canonical.Counties, KindTable},
		{"crosswalks.count_station_links", cfg.Crosswalks.CountStationLinks, KindTable},
		{"crosswalks.key_locations", cfg.Crosswalks.KeyLocations, KindTable},
		{"crosswalks.zone_districts", cfg.Crosswalks.ZoneDistricts, KindTable},
		{"crosswalks.maz_geography", cfg.Crosswalks.MazGeography, KindTable},
		{"crosswalks.standard_nodes", cfg.Crosswalks.StandardNodes, KindTable},
		{"crosswalks.mode_codes", cfg.Crosswalks.ModeCodes, KindTable},
		{"crosswalks.survey_routes", cfg.Crosswalks.SurveyRoutes, KindTable},
		{"observed.traffic_counts", cfg.Observed.TrafficCounts, KindTable},
		{"observed.survey_boardings", cfg.Observed.SurveyBoardings, KindTable},
		{"observed.ctpp_flows", cfg.Observed.CtppFlows, KindTable},
		{"observed.zero_vehicle", cfg.Observed.ZeroVehicle, KindTable},
		{"observed.tract_centroids", cfg.Observed.TractCentroids, KindGeoJSON},
		{"observed.bart_station_flows", cfg.Observed.BartStationFlows, KindTable},
		{"observed.rail_access", cfg.Observed.RailAccess, KindTable},
		{"observed.survey_trips", cfg.Observed.SurveyTrips, KindTable},
		{"simulated.roadway_assignment", cfg.Simulated.RoadwayAssignment, KindTable},
		{"simulated.roadway_network", cfg.Simulated.RoadwayNetwork, KindGeoJSON},
		{"simulated.transit_boardings", cfg.Simulated.TransitBoardings, KindTable},
		{"simulated.transit_segments", cfg.Simulated.TransitSegments, KindTable},
		{"simulated.skims", cfg.Simulated.Skims, KindTable},
		{"simulated.transit_demand", cfg.Simulated.TransitDemand, KindTable},
		{"simulated.households", cfg.Simulated.Households, KindTable},
		{"simulated.workers", cfg.Simulated.Workers, KindTable},
		{"simulated.transit_access", cfg.Simulated.TransitAccess, KindTable},
	}
	for i, r := range cfg.Simulated.StationReports {
		inputs = append(inputs, Input{fmt.Sprintf("simulated.station_reports[%d]", i), r.Path, KindReport})
	}
	return inputs
}

// ValidateInputs checks every input file and reports all failures in one
// STORAGE error
func (v *FileValidator) ValidateInputs(inputs []Input) error {
	var failed []string
	for _, in := range inputs {
		var err error
		switch in.Kind {
		case KindTable:
			err = v.ValidateTableFile(in.Path)
		case KindGeoJSON:
			err = v.ValidateGeoJSONFile(in.Path)
		default:
			err = v.ValidateFile(in.Path)
		}
		if err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", in.Key, err))
		}
	}
	if len(failed) > 0 {
		return apperrors.NewStorageError(
			fmt.Sprintf("%d input files failed validation", len(failed)),
			errors.New(strings.Join(failed, "; ")))
	}

	v.logger.Info("Input files validated", slog.Int("files", len(inputs)))
	return nil
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	// Verify it's writable by creating a test file
	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Debug("Output directory validated", slog.String("directory", dir))
	return nil
}

// ValidateFile checks if a specific file exists and is readable
func (v *FileValidator) ValidateFile(path string) error {
	if path == "" {
		return fmt.Errorf("no path configured")
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist", slog.String("file", path))
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file", slog.String("path", path))
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateTableFile checks that path is a readable CSV or XLSX file and not
// a spreadsheet lock file
func (v *FileValidator) ValidateTableFile(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".csv" && ext != ".xlsx" {
		v.logger.Error("File is not a CSV or XLSX table",
			slog.String("file", path),
			slog.String("extension", ext))
		return fmt.Errorf("file %s is not a CSV or XLSX table (extension: %s)", path, ext)
	}
	if strings.HasPrefix(filepath.Base(path), "~$") {
		return fmt.Errorf("file %s is a temporary Excel file", path)
	}
	return nil
}

// ValidateGeoJSONFile checks that path is a readable GeoJSON file
func (v *FileValidator) ValidateGeoJSONFile(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".geojson" && ext != ".json" {
		v.logger.Error("File is not GeoJSON",
			slog.String("file", path),
			slog.String("extension", ext))
		return fmt.Errorf("file %s is not GeoJSON (extension: %s)", path, ext)
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "acceptcli/internal/errors"
)

// EnvPrefix namespaces every environment override, e.g. ACCEPT_RUN_OUTPUT_DIR
const EnvPrefix = "ACCEPT"

// Config represents the complete run configuration
type Config struct {
	Run        RunConfig       `yaml:"run" envconfig:"RUN"`
	Canonical  CanonicalConfig `yaml:"canonical" envconfig:"CANONICAL"`
	Crosswalks CrosswalkConfig `yaml:"crosswalks" envconfig:"CROSSWALKS"`
	Observed   ObservedConfig  `yaml:"observed" envconfig:"OBSERVED"`
	Simulated  SimulatedConfig `yaml:"simulated" envconfig:"SIMULATED"`
	Criteria   CriteriaConfig  `yaml:"criteria" envconfig:"CRITERIA"`
	Standards  StandardsConfig `yaml:"standards" ignored:"true"`
	Logging    LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry  TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// RunConfig contains run-wide settings
type RunConfig struct {
	// BaseDir anchors relative input paths; defaults to the config file's directory
	BaseDir           string `yaml:"base_dir" envconfig:"BASE_DIR"`
	OutputDir         string `yaml:"output_dir" envconfig:"OUTPUT_DIR" validate:"required"`
	CacheDir          string `yaml:"cache_dir" envconfig:"CACHE_DIR" validate:"required"`
	Recompute         bool   `yaml:"recompute" envconfig:"RECOMPUTE"`
	RelevantYears     []int  `yaml:"relevant_years" envconfig:"RELEVANT_YEARS" validate:"required,min=1,dive,gt=1900"`
	ManagedLaneOffset int64  `yaml:"managed_lane_offset" envconfig:"MANAGED_LANE_OFFSET" validate:"gt=0"`
	ScenarioName      string `yaml:"scenario_name" envconfig:"SCENARIO_NAME"`
}

// CanonicalConfig lists the identity reference tables
type CanonicalConfig struct {
	AgencyNames  string `yaml:"agency_names" envconfig:"AGENCY_NAMES" validate:"required"`
	StationNames string `yaml:"station_names" envconfig:"STATION_NAMES" validate:"required"`
	Counties     string `yaml:"counties" envconfig:"COUNTIES" validate:"required"`
}

// CrosswalkConfig lists the ID-space translation tables
type CrosswalkConfig struct {
	CountStationLinks string `yaml:"count_station_links" envconfig:"COUNT_STATION_LINKS" validate:"required"`
	ZoneDistricts     string `yaml:"zone_districts" envconfig:"ZONE_DISTRICTS" validate:"required"`
	MazGeography      string `yaml:"maz_geography" envconfig:"MAZ_GEOGRAPHY" validate:"required"`
	StandardNodes     string `yaml:"standard_nodes" envconfig:"STANDARD_NODES" validate:"required"`
	ModeCodes         string `yaml:"mode_codes" envconfig:"MODE_CODES" validate:"required"`
	SurveyRoutes      string `yaml:"survey_routes" envconfig:"SURVEY_ROUTES" validate:"required"`
	KeyLocations      string `yaml:"key_locations" envconfig:"KEY_LOCATIONS" validate:"required"`
}

// ObservedConfig lists the field observation sources
type ObservedConfig struct {
	TrafficCounts    string `yaml:"traffic_counts" envconfig:"TRAFFIC_COUNTS" validate:"required"`
	SurveyBoardings  string `yaml:"survey_boardings" envconfig:"SURVEY_BOARDINGS" validate:"required"`
	CtppFlows        string `yaml:"ctpp_flows" envconfig:"CTPP_FLOWS" validate:"required"`
	ZeroVehicle      string `yaml:"zero_vehicle" envconfig:"ZERO_VEHICLE" validate:"required"`
	TractCentroids   string `yaml:"tract_centroids" envconfig:"TRACT_CENTROIDS" validate:"required"`
	BartStationFlows string `yaml:"bart_station_flows" envconfig:"BART_STATION_FLOWS" validate:"required"`
	RailAccess       string `yaml:"rail_access" envconfig:"RAIL_ACCESS" validate:"required"`
	SurveyTrips      string `yaml:"survey_trips" envconfig:"SURVEY_TRIPS" validate:"required"`
}

// SimulatedConfig lists the scenario outputs
type SimulatedConfig struct {
	RoadwayAssignment string          `yaml:"roadway_assignment" envconfig:"ROADWAY_ASSIGNMENT" validate:"required"`
	RoadwayNetwork    string          `yaml:"roadway_network" envconfig:"ROADWAY_NETWORK" validate:"required"`
	TransitBoardings  string          `yaml:"transit_boardings" envconfig:"TRANSIT_BOARDINGS" validate:"required"`
	TransitSegments   string          `yaml:"transit_segments" envconfig:"TRANSIT_SEGMENTS" validate:"required"`
	Skims             string          `yaml:"skims" envconfig:"SKIMS" validate:"required"`
	TransitDemand     string          `yaml:"transit_demand" envconfig:"TRANSIT_DEMAND" validate:"required"`
	StationReports    []StationReport `yaml:"station_reports" ignored:"true" validate:"required,min=1,dive"`
	Households        string          `yaml:"households" envconfig:"HOUSEHOLDS" validate:"required"`
	Workers           string          `yaml:"workers" envconfig:"WORKERS" validate:"required"`
	TransitAccess     string          `yaml:"transit_access" envconfig:"TRANSIT_ACCESS" validate:"required"`
}

// StationReport is one fixed-width station-to-station report
type StationReport struct {
	Path       string `yaml:"path" validate:"required"`
	Operator   string `yaml:"operator" validate:"required"`
	PathType   string `yaml:"path_type"`
	TimePeriod string `yaml:"time_period" validate:"required"`
}

// CriteriaConfig parameterizes the special-case criteria
type CriteriaConfig struct {
	BartOperator    string `yaml:"bart_operator" envconfig:"BART_OPERATOR" validate:"required"`
	ParkAndRideMode string `yaml:"park_and_ride_mode" envconfig:"PARK_AND_RIDE_MODE" validate:"required"`
}

// StandardsConfig optionally overrides the built-in threshold tables
type StandardsConfig struct {
	Roadway *StandardTable `yaml:"roadway"`
	Florida *StandardTable `yaml:"florida"`
}

// StandardTable is a breakpoint/tolerance pair list
type StandardTable struct {
	Breakpoints []float64 `yaml:"breakpoints" validate:"required,min=1"`
	Tolerances  []float64 `yaml:"tolerances" validate:"required,min=1"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" validate:"omitempty,oneof=debug info warn warning error"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT" validate:"omitempty,oneof=console file both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// TelemetryConfig controls run tracing and the metrics textfile
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled" envconfig:"ENABLED"`
	ServiceName string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	TraceFile   string `yaml:"trace_file" envconfig:"TRACE_FILE"`
	MetricsFile string `yaml:"metrics_file" envconfig:"METRICS_FILE"`
}

// Load reads the YAML file at path over the defaults, applies ACCEPT_*
// environment overrides, resolves relative paths and validates the result.
// A missing required key is reported as a CONFIG error naming the key.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, apperrors.NewConfigError("failed to load config from file", err).
				WithContext("path", path)
		}
		if cfg.Run.BaseDir == "" {
			cfg.Run.BaseDir = filepath.Dir(path)
		}
	}

	// Environment variables take precedence over the file
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.resolvePaths()
	return cfg, nil
}

// loadFromFile merges a YAML file into cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks required keys and value ranges
func (c *Config) Validate() error {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	err := v.Struct(c)
	if err == nil {
		return c.validateStandards()
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewConfigError("config validation failed", err)
	}

	first := verrs[0]
	key := yamlKey(first.Namespace())
	if first.Tag() == "required" {
		return apperrors.NewMissingKeyError(key)
	}
	return apperrors.NewConfigError(
		fmt.Sprintf("invalid value for %q: failed %q check", key, first.Tag()), nil).
		WithContext("key", key)
}

func (c *Config) validateStandards() error {
	for key, table := range map[string]*StandardTable{
		"standards.roadway": c.Standards.Roadway,
		"standards.florida": c.Standards.Florida,
	} {
		if table == nil {
			continue
		}
		if len(table.Breakpoints) == 0 || len(table.Breakpoints) != len(table.Tolerances) {
			return apperrors.NewConfigError(
				fmt.Sprintf("%s needs matching breakpoints and tolerances", key), nil).
				WithContext("key", key)
		}
	}
	return nil
}

// yamlKey turns a validator namespace such as "Config.run.output_dir" into
// the dotted YAML key "run.output_dir"
func yamlKey(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

// resolvePaths anchors every relative input path at Run.BaseDir
func (c *Config) resolvePaths() {
	base := c.Run.BaseDir
	if base == "" {
		return
	}
	for _, p := range c.inputPaths() {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}

func (c *Config) inputPaths() []*string {
	paths := []*string{
		&c.Run.OutputDir,
		&c.Run.CacheDir,
		&c.Canonical.AgencyNames,
		&c.Canonical.StationNames,
		&c.Canonical.Counties,
		&c.Crosswalks.CountStationLinks,
		&c.Crosswalks.ZoneDistricts,
		&c.Crosswalks.MazGeography,
		&c.Crosswalks.StandardNodes,
		&c.Crosswalks.ModeCodes,
		&c.Crosswalks.SurveyRoutes,
		&c.Crosswalks.KeyLocations,
		&c.Observed.TrafficCounts,
		&c.Observed.SurveyBoardings,
		&c.Observed.CtppFlows,
		&c.Observed.ZeroVehicle,
		&c.Observed.TractCentroids,
		&c.Observed.BartStationFlows,
		&c.Observed.RailAccess,
		&c.Observed.SurveyTrips,
		&c.Simulated.RoadwayAssignment,
		&c.Simulated.RoadwayNetwork,
		&c.Simulated.TransitBoardings,
		&c.Simulated.TransitSegments,
		&c.Simulated.Skims,
		&c.Simulated.TransitDemand,
		&c.Simulated.Households,
		&c.Simulated.Workers,
		&c.Simulated.TransitAccess,
	}
	for i := range c.Simulated.StationReports {
		paths = append(paths, &c.Simulated.StationReports[i].Path)
	}
	return paths
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Run: RunConfig{
			CacheDir:          "cache",
			ManagedLaneOffset: 1000000,
			ScenarioName:      "base",
		},
		Criteria: CriteriaConfig{
			BartOperator:    "BART",
			ParkAndRideMode: "Park and Ride",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/acceptance.log",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "acceptance",
			TraceFile:   "trace.json",
			MetricsFile: "acceptance.prom",
		},
	}
}

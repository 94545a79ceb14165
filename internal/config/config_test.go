package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	apperrors "acceptcli/internal/errors"
)

// fullConfig returns a YAML document with every required key set
func fullConfig() map[string]map[string]interface{} {
	return map[string]map[string]interface{}{
		"run": {
			"output_dir":     "out",
			"relevant_years": []int{2014, 2015, 2016},
		},
		"canonical": {
			"agency_names":  "ref/agency_names.csv",
			"station_names": "ref/station_names.csv",
			"counties":      "ref/counties.csv",
		},
		"crosswalks": {
			"count_station_links": "xw/count_station_links.csv",
			"zone_districts":      "xw/zone_districts.csv",
			"maz_geography":       "xw/maz_geography.csv",
			"standard_nodes":      "xw/standard_nodes.csv",
			"mode_codes":          "xw/mode_codes.csv",
			"survey_routes":       "xw/survey_routes.csv",
			"key_locations":       "xw/key_locations.csv",
		},
		"observed": {
			"traffic_counts":     "obs/traffic_counts.csv",
			"survey_boardings":   "obs/survey_boardings.xlsx",
			"ctpp_flows":         "obs/ctpp_flows.csv",
			"zero_vehicle":       "obs/zero_vehicle.csv",
			"tract_centroids":    "obs/tract_centroids.geojson",
			"bart_station_flows": "obs/bart_station_flows.csv",
			"rail_access":        "obs/rail_access.csv",
			"survey_trips":       "obs/survey_trips.csv",
		},
		"simulated": {
			"roadway_assignment": "sim/roadway_assignment.csv",
			"roadway_network":    "sim/roadway_network.geojson",
			"transit_boardings":  "sim/transit_boardings.csv",
			"transit_segments":   "sim/transit_segments.csv",
			"skims":              "sim/skims.csv",
			"transit_demand":     "sim/transit_demand.csv",
			"households":         "sim/households.csv",
			"workers":            "sim/workers.csv",
			"transit_access":     "sim/transit_access.csv",
			"station_reports": []map[string]string{
				{"path": "sim/bart_am.txt", "operator": "BART", "path_type": "walk", "time_period": "AM"},
			},
		},
	}
}

func writeConfig(t *testing.T, doc interface{}) string {
	t.Helper()
	data, err := yaml.Marshal(doc)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "acceptance.yaml")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, fullConfig())
	base := filepath.Dir(path)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, base, cfg.Run.BaseDir)
	assert.Equal(t, filepath.Join(base, "out"), cfg.Run.OutputDir)
	assert.Equal(t, filepath.Join(base, "cache"), cfg.Run.CacheDir, "default cache dir resolves against base")
	assert.Equal(t, []int{2014, 2015, 2016}, cfg.Run.RelevantYears)
	assert.Equal(t, int64(1000000), cfg.Run.ManagedLaneOffset)
	assert.False(t, cfg.Run.Recompute)
	assert.Equal(t, filepath.Join(base, "obs", "traffic_counts.csv"), cfg.Observed.TrafficCounts)
	require.Len(t, cfg.Simulated.StationReports, 1)
	assert.Equal(t, filepath.Join(base, "sim", "bart_am.txt"), cfg.Simulated.StationReports[0].Path)
	assert.Equal(t, "BART", cfg.Criteria.BartOperator)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Nil(t, cfg.Standards.Roadway)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, fullConfig())

	t.Setenv("ACCEPT_RUN_RECOMPUTE", "true")
	t.Setenv("ACCEPT_RUN_RELEVANT_YEARS", "2018,2019")
	t.Setenv("ACCEPT_RUN_MANAGED_LANE_OFFSET", "500000")
	t.Setenv("ACCEPT_LOGGING_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Run.Recompute)
	assert.Equal(t, []int{2018, 2019}, cfg.Run.RelevantYears)
	assert.Equal(t, int64(500000), cfg.Run.ManagedLaneOffset)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_MissingRequiredKey(t *testing.T) {
	tests := []struct {
		name    string
		section string
		key     string
		wantKey string
	}{
		{name: "observed source", section: "observed", key: "traffic_counts", wantKey: "observed.traffic_counts"},
		{name: "canonical table", section: "canonical", key: "agency_names", wantKey: "canonical.agency_names"},
		{name: "output directory", section: "run", key: "output_dir", wantKey: "run.output_dir"},
		{name: "relevant years", section: "run", key: "relevant_years", wantKey: "run.relevant_years"},
		{name: "station reports", section: "simulated", key: "station_reports", wantKey: "simulated.station_reports"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := fullConfig()
			delete(doc[tt.section], tt.key)
			path := writeConfig(t, doc)

			cfg, err := Load(path)
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
			assert.Contains(t, err.Error(), tt.wantKey)
		})
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	doc := fullConfig()
	doc["logging"] = map[string]interface{}{"level": "verbose"}
	_, err := Load(writeConfig(t, doc))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
	assert.Contains(t, err.Error(), "logging.level")

	doc = fullConfig()
	doc["standards"] = map[string]interface{}{
		"florida": map[string]interface{}{
			"breakpoints": []float64{500, 1500},
			"tolerances":  []float64{1.5},
		},
	}
	_, err = Load(writeConfig(t, doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "standards.florida")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, int64(1000000), cfg.Run.ManagedLaneOffset)
	assert.Equal(t, "cache", cfg.Run.CacheDir)
	assert.Equal(t, "Park and Ride", cfg.Criteria.ParkAndRideMode)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.False(t, cfg.Telemetry.Enabled)

	err := cfg.Validate()
	require.Error(t, err, "defaults alone lack input paths")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}

package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	"acceptcli/internal/config"
	apperrors "acceptcli/internal/errors"
	"acceptcli/internal/files"
	"acceptcli/internal/operations"
	"acceptcli/pkg/contracts"
)

var inputFiles = map[string]map[string]string{
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
	},
}

const stationReport = "sim/bart_am.txt"

// writeConfig writes a configuration naming every input under dir and
// creates the input files. It returns the configuration path.
func writeConfig(t *testing.T, dir string) string {
	t.Helper()

	doc := map[string]interface{}{
		"run": map[string]interface{}{
			"output_dir":     "out",
			"relevant_years": []int{2014, 2015, 2016},
		},
	}
	var paths []string
	for section, keys := range inputFiles {
		values := make(map[string]interface{}, len(keys))
		for key, path := range keys {
			values[key] = path
			paths = append(paths, path)
		}
		doc[section] = values
	}
	doc["simulated"].(map[string]interface{})["station_reports"] = []map[string]string{
		{"path": stationReport, "operator": "BART", "time_period": "AM"},
	}
	paths = append(paths, stationReport)

	for _, p := range paths {
		full := filepath.Join(dir, p)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte("x"), 0644))
	}

	data, err := yaml.Marshal(doc)
	require.NoError(t, err)
	path := filepath.Join(dir, "acceptance.yaml")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"config", apperrors.NewMissingKeyError("run.output_dir"), 2},
		{"wrapped config", operations.WrapError(apperrors.NewConfigError("bad", nil), "observed"), 2},
		{"storage", apperrors.NewStorageError("disk", nil), 1},
		{"plain", errors.New("boom"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestRootCommand_Version(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "acceptance "+contracts.GetBuildInfo().String()+"\n", out)
	assert.True(t, strings.HasPrefix(out, "acceptance "+contracts.Version+" (commit: "))
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)

	out, err := execute(t, "validate", "--config", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "28 input files OK\n", out)

	require.NoError(t, os.Remove(filepath.Join(dir, "obs", "rail_access.csv")))
	_, err = execute(t, "validate", "--config", cfgPath)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))
	assert.Contains(t, err.Error(), "observed.rail_access")
	assert.Equal(t, 1, exitCode(err))
}

func TestValidateCommand_MissingConfig(t *testing.T) {
	_, err := execute(t, "validate", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
}

func TestStatusCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)

	_, err := execute(t, "status", "--config", cfgPath)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))
	assert.Contains(t, err.Error(), "no completed run found")

	old := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	m := operations.NewRunManifest("run-7", "2015_TM152")
	m.Cache = operations.CacheSummary{
		Dir: filepath.Join(dir, "cache"),
		Artifacts: []files.FileInfo{
			{Name: "observed_counts", ModTime: old},
			{Name: "simulated_links", ModTime: old.Add(time.Hour)},
		},
	}
	m.Criteria = []operations.CriterionSummary{{Number: 4, Name: "Transit route boardings", Records: 3, Matched: 3, Passed: true}}
	m.Finish(nil)
	require.NoError(t, m.SaveToFile(filepath.Join(dir, "out", config.ManifestFile)))

	out, err := execute(t, "status", "--config", cfgPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Run run-7 completed (scenario 2015_TM152)\n"))
	assert.Contains(t, out, "Built by acceptance "+contracts.Version)
	assert.Contains(t, out, "2 artifacts, newest simulated_links at 2026-03-01T10:00:00Z")
	assert.Contains(t, out, "Transit route boardings")
	assert.True(t, strings.HasSuffix(out, "Run run-7 wrote 0 artifacts\n"))
}

func TestRunCommand_RejectsArgs(t *testing.T) {
	_, err := execute(t, "run", "extra")
	require.Error(t, err)
}

func TestLoadConfig_Overrides(t *testing.T) {
	cfgPath := writeConfig(t, t.TempDir())

	cfg, err := loadConfig(&options{ConfigFile: cfgPath})
	require.NoError(t, err)
	assert.False(t, cfg.Run.Recompute)
	assert.Equal(t, "info", cfg.Logging.Level)

	cfg, err = loadConfig(&options{
		ConfigFile: cfgPath,
		Recompute:  true,
		OutputDir:  "elsewhere",
		LogLevel:   "debug",
	})
	require.NoError(t, err)
	assert.True(t, cfg.Run.Recompute)
	assert.Equal(t, "elsewhere", cfg.Run.OutputDir)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestPrintSummary(t *testing.T) {
	m := operations.NewRunManifest("run-1", "base")
	m.Criteria = []operations.CriterionSummary{
		{Number: 1, Name: "Roadway flows", Records: 10, Matched: 8, ObservedOnly: 1, SimulatedOnly: 1, Passed: true},
		{Number: 2, Name: "Transit boardings", Records: 4, Matched: 4},
	}
	m.SetOutputs([]string{"a.csv", "b.csv"})

	var out bytes.Buffer
	require.NoError(t, printSummary(&out, m))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "CRITERION"))
	assert.Contains(t, lines[1], "Roadway flows")
	assert.True(t, strings.HasSuffix(lines[1], "pass"))
	assert.True(t, strings.HasSuffix(lines[2], "fail"))
	assert.Equal(t, "Run run-1 wrote 2 artifacts", lines[4])
}

package validation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acceptcli/internal/config"
	apperrors "acceptcli/internal/errors"
)

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("test"), 0644))
	return path
}

func TestFileValidator_ValidateTableFile(t *testing.T) {
	tests := []struct {
		name          string
		setupFunc     func(t *testing.T) string
		wantErr       bool
		errorContains string
	}{
		{
			name:      "csv file",
			setupFunc: func(t *testing.T) string { return writeFile(t, t.TempDir(), "counts.csv") },
		},
		{
			name:      "xlsx file with upper case extension",
			setupFunc: func(t *testing.T) string { return writeFile(t, t.TempDir(), "boardings.XLSX") },
		},
		{
			name:          "wrong extension",
			setupFunc:     func(t *testing.T) string { return writeFile(t, t.TempDir(), "counts.txt") },
			wantErr:       true,
			errorContains: "not a CSV or XLSX table",
		},
		{
			name:          "temporary excel file",
			setupFunc:     func(t *testing.T) string { return writeFile(t, t.TempDir(), "~$boardings.xlsx") },
			wantErr:       true,
			errorContains: "temporary Excel file",
		},
		{
			name:          "missing file",
			setupFunc:     func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.csv") },
			wantErr:       true,
			errorContains: "does not exist",
		},
		{
			name:          "directory",
			setupFunc:     func(t *testing.T) string { return t.TempDir() },
			wantErr:       true,
			errorContains: "is a directory",
		},
		{
			name:          "empty path",
			setupFunc:     func(t *testing.T) string { return "" },
			wantErr:       true,
			errorContains: "no path configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewFileValidator(nil)
			err := v.ValidateTableFile(tt.setupFunc(t))

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFileValidator_ValidateGeoJSONFile(t *testing.T) {
	dir := t.TempDir()
	v := NewFileValidator(nil)

	assert.NoError(t, v.ValidateGeoJSONFile(writeFile(t, dir, "network.geojson")))
	assert.NoError(t, v.ValidateGeoJSONFile(writeFile(t, dir, "centroids.json")))

	err := v.ValidateGeoJSONFile(writeFile(t, dir, "network.shp"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not GeoJSON")
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	v := NewFileValidator(nil)

	dir := filepath.Join(t.TempDir(), "out", "nested")
	require.NoError(t, v.ValidateOutputDirectory(dir))
	assert.DirExists(t, dir)
	assert.NoFileExists(t, filepath.Join(dir, ".write_test"))

	blocker := writeFile(t, t.TempDir(), "blocker")
	err := v.ValidateOutputDirectory(filepath.Join(blocker, "out"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create output directory")
}

func TestFileValidator_ValidateInputs(t *testing.T) {
	dir := t.TempDir()
	v := NewFileValidator(nil)

	inputs := []Input{
		{Key: "observed.traffic_counts", Path: writeFile(t, dir, "counts.csv"), Kind: KindTable},
		{Key: "simulated.roadway_network", Path: writeFile(t, dir, "network.geojson"), Kind: KindGeoJSON},
		{Key: "simulated.station_reports[0]", Path: writeFile(t, dir, "bart_am.txt"), Kind: KindReport},
	}
	require.NoError(t, v.ValidateInputs(inputs))

	inputs = append(inputs,
		Input{Key: "observed.ctpp_flows", Path: filepath.Join(dir, "ctpp.csv"), Kind: KindTable},
		Input{Key: "observed.tract_centroids", Path: writeFile(t, dir, "centroids.csv"), Kind: KindGeoJSON},
	)
	err := v.ValidateInputs(inputs)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))
	assert.Contains(t, err.Error(), "2 input files failed validation")

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	cause := appErr.Unwrap().Error()
	assert.Contains(t, cause, "observed.ctpp_flows")
	assert.Contains(t, cause, "observed.tract_centroids")
	assert.False(t, strings.Contains(cause, "traffic_counts"))
}

func TestInputs(t *testing.T) {
	cfg := config.Default()
	cfg.Observed.TrafficCounts = "counts.csv"
	cfg.Simulated.RoadwayNetwork = "network.geojson"
	cfg.Simulated.StationReports = []config.StationReport{
		{Path: "am.txt", Operator: "BART", TimePeriod: "AM"},
		{Path: "pm.txt", Operator: "BART", TimePeriod: "PM"},
	}

	inputs := Inputs(cfg)
	byKey := make(map[string]Input, len(inputs))
	for _, in := range inputs {
		byKey[in.Key] = in
	}

	assert.Len(t, inputs, 29)
	assert.Equal(t, Input{"observed.traffic_counts", "counts.csv", KindTable}, byKey["observed.traffic_counts"])
	assert.Equal(t, KindGeoJSON, byKey["simulated.roadway_network"].Kind)
	assert.Equal(t, KindGeoJSON, byKey["observed.tract_centroids"].Kind)
	assert.Equal(t, Input{"simulated.station_reports[1]", "pm.txt", KindReport}, byKey["simulated.station_reports[1]"])
}

package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acceptcli/internal/config"
	apperrors "acceptcli/internal/errors"
)

func setupTestEnv(t *testing.T) (*CSVWriter, string) {
	t.Helper()
	dir := t.TempDir()
	return NewCSVWriter(&config.Paths{OutputDir: dir}, nil), dir
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	content = bytes.TrimPrefix(content, utf8BOM)
	return strings.Split(strings.TrimSpace(string(content)), "\n")
}

func TestCSVWriter_WriteCSV(t *testing.T) {
	writer, dir := setupTestEnv(t)

	tests := []struct {
		name     string
		filePath string
		options  WriteOptions
		validate func(t *testing.T, path string)
	}{
		{
			name:     "headers and records",
			filePath: "basic.csv",
			options: WriteOptions{
				Headers: []string{"station_id", "time_period", "observed"},
				Records: [][]string{{"S1", "AM", "120"}, {"S2", "PM", "80.5"}},
			},
			validate: func(t *testing.T, path string) {
				content, err := os.ReadFile(path)
				require.NoError(t, err)
				assert.False(t, bytes.HasPrefix(content, utf8BOM))

				records, err := csv.NewReader(bytes.NewReader(content)).ReadAll()
				require.NoError(t, err)
				require.Len(t, records, 3)
				assert.Equal(t, []string{"station_id", "time_period", "observed"}, records[0])
				assert.Equal(t, []string{"S2", "PM", "80.5"}, records[2])
			},
		},
		{
			name:     "BOM prefix",
			filePath: "bom.csv",
			options: WriteOptions{
				Headers:   []string{"county"},
				Records:   [][]string{{"San Francisco"}},
				BOMPrefix: true,
			},
			validate: func(t *testing.T, path string) {
				content, err := os.ReadFile(path)
				require.NoError(t, err)
				assert.True(t, bytes.HasPrefix(content, utf8BOM))
			},
		},
		{
			name:     "quotes fields with commas",
			filePath: "quoted.csv",
			options: WriteOptions{
				Headers: []string{"station_name"},
				Records: [][]string{{"Civic Center, UN Plaza"}},
			},
			validate: func(t *testing.T, path string) {
				lines := readLines(t, path)
				require.Len(t, lines, 2)
				assert.Equal(t, `"Civic Center, UN Plaza"`, lines[1])
			},
		},
		{
			name:     "nested relative path",
			filePath: filepath.Join("criteria", "nested.csv"),
			options: WriteOptions{
				Headers: []string{"a"},
				Records: [][]string{{"1"}},
			},
			validate: func(t *testing.T, path string) {
				assert.FileExists(t, path)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := writer.WriteCSV(tt.filePath, tt.options)
			require.NoError(t, err)
			tt.validate(t, filepath.Join(dir, tt.filePath))
		})
	}
}

func TestCSVWriter_Append(t *testing.T) {
	writer, dir := setupTestEnv(t)

	require.NoError(t, writer.WriteSimpleCSV("append.csv", []string{"c1", "c2"}, [][]string{{"a", "b"}}))
	require.NoError(t, writer.WriteCSV("append.csv", WriteOptions{
		Headers:   []string{"ignored", "header"},
		Records:   [][]string{{"c", "d"}},
		Append:    true,
		BOMPrefix: true,
	}))

	content, err := os.ReadFile(filepath.Join(dir, "append.csv"))
	require.NoError(t, err)
	assert.Equal(t, 1, bytes.Count(content, utf8BOM), "BOM only written once")

	lines := readLines(t, filepath.Join(dir, "append.csv"))
	assert.Equal(t, []string{"c1,c2", "a,b", "c,d"}, lines)
}

func TestCSVWriter_WriteSimpleCSV(t *testing.T) {
	writer, dir := setupTestEnv(t)

	err := writer.WriteSimpleCSV("simple.csv", []string{"operator", "boardings"}, [][]string{
		{"BART", "412000"},
		{"SF Muni", "598000"},
	})
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(dir, "simple.csv"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(content, utf8BOM))

	lines := readLines(t, filepath.Join(dir, "simple.csv"))
	assert.Equal(t, []string{"operator,boardings", "BART,412000", "SF Muni,598000"}, lines)
}

func TestCSVWriter_StreamWriter(t *testing.T) {
	writer, dir := setupTestEnv(t)

	stream, err := writer.CreateStreamWriter("stream.csv", []string{"line_name", "boardings"})
	require.NoError(t, err)
	for _, r := range [][]string{{"MUN38_I", "110"}, {"MUN38_O", "95"}} {
		require.NoError(t, stream.WriteRecord(r))
	}
	require.NoError(t, stream.Close())

	lines := readLines(t, filepath.Join(dir, "stream.csv"))
	assert.Equal(t, []string{"line_name,boardings", "MUN38_I,110", "MUN38_O,95"}, lines)
}

func TestCSVWriter_ResolvePath(t *testing.T) {
	writer, dir := setupTestEnv(t)
	abs := filepath.Join(dir, "elsewhere", "file.csv")

	assert.Equal(t, abs, writer.resolvePath(abs))
	assert.Equal(t, filepath.Join(dir, "report.csv"), writer.resolvePath("report.csv"))

	bare := NewCSVWriter(nil, nil)
	assert.Equal(t, "report.csv", bare.resolvePath("report.csv"))
}

func TestCSVWriter_StorageErrors(t *testing.T) {
	writer, dir := setupTestEnv(t)

	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	err := writer.WriteCSV(filepath.Join("blocker", "out.csv"), WriteOptions{Headers: []string{"a"}})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))

	_, err = writer.CreateStreamWriter(filepath.Join("blocker", "stream.csv"), nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))
}

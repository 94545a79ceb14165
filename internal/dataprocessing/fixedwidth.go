package dataprocessing

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	apperrors "acceptcli/internal/errors"
)

// Field is one column of a fixed-width layout, covering [Start, End)
// characters of the line
type Field struct {
	Name  string
	Start int
	End   int
}

// Layout describes a fixed-width text report
type Layout struct {
	Fields []Field
	// SkipLines drops the report banner before the first data line
	SkipLines int
	// CommentPrefix marks separator or subtotal lines to ignore
	CommentPrefix string
}

// StationReportLayout is the station-to-station report written by the
// transit assignment: boarding station, alighting station, riders
var StationReportLayout = Layout{
	Fields: []Field{
		{Name: "boarding_station", Start: 0, End: 30},
		{Name: "alighting_station", Start: 30, End: 60},
		{Name: "riders", Start: 60, End: 72},
	},
	SkipLines:     2,
	CommentPrefix: "--",
}

// Validate checks that fields are named, non-empty and do not overlap
func (l Layout) Validate() error {
	prevEnd := 0
	for _, f := range l.Fields {
		if f.Name == "" || f.End <= f.Start || f.Start < prevEnd {
			return apperrors.NewParsingError(fmt.Sprintf("invalid fixed-width field %q [%d,%d)", f.Name, f.Start, f.End), nil)
		}
		prevEnd = f.End
	}
	return nil
}

// ParseFixedWidth reads a fixed-width report into a Table whose header is the
// layout's field names. Short lines yield blank trailing fields.
func ParseFixedWidth(r io.Reader, layout Layout) (*Table, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}

	header := make([]string, len(layout.Fields))
	for i, f := range layout.Fields {
		header[i] = f.Name
	}

	var rows [][]string
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if line <= layout.SkipLines || strings.TrimSpace(text) == "" {
			continue
		}
		if layout.CommentPrefix != "" && strings.HasPrefix(strings.TrimSpace(text), layout.CommentPrefix) {
			continue
		}

		chars := []rune(text)
		row := make([]string, len(layout.Fields))
		for i, f := range layout.Fields {
			row[i] = strings.TrimSpace(slice(chars, f.Start, f.End))
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.NewParsingError("failed to read fixed-width report", err)
	}

	return NewTable("", header, rows), nil
}

// ReadFixedWidth parses the fixed-width report at path
func ReadFixedWidth(path string, layout Layout) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open report", err).WithContext("path", path)
	}
	defer f.Close()

	t, err := ParseFixedWidth(f, layout)
	if err != nil {
		return nil, err
	}
	t.Path = path
	return t, nil
}

func slice(chars []rune, start, end int) string {
	if start >= len(chars) {
		return ""
	}
	if end > len(chars) {
		end = len(chars)
	}
	return string(chars[start:end])
}

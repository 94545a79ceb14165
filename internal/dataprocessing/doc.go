// Package dataprocessing reads the raw input files of an acceptance run into
// uniform in-memory tables.
//
// # Formats
//
// Three input shapes are supported:
//
//  1. Tables: .csv files and .xlsx workbooks. Workbooks may carry title rows
//     above the header; the header is located by scanning for the required
//     columns.
//  2. Fixed-width reports: station-to-station assignment output, described by
//     a Layout.
//  3. GeoJSON: network link shapes and zone or tract geometries, decoded with
//     github.com/paulmach/orb.
//
// # Usage
//
//	table, err := dataprocessing.ReadTable("counts.csv", "station_id", "flow")
//	if err != nil {
//	    return err
//	}
//	for i := 0; i < table.Len(); i++ {
//	    flow, err := table.Float(i, "flow")
//	    ...
//	}
//
// Column lookup is case-insensitive. Missing required columns and malformed
// numeric cells are reported as PARSING errors carrying the file path, row and
// column.
package dataprocessing

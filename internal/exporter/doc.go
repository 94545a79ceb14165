// Package exporter writes the comparison artifacts of a run.
//
// Three GeoJSON feature collections share their property schema with the
// comparison engine's row types:
//
//	roadway-network-comparisons.geojson   one LineString per link and period
//	transit-network-comparisons.geojson   one LineString per line segment and period
//	other-comparisons.geojson             one feature per criterion record
//
// The comparison records and per criterion statistics are also written as
// CSV (UTF-8 with BOM) and as an XLSX workbook.
package exporter

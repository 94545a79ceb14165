// Package shared holds helpers used across the acceptance packages.
//
// The testutil subpackage provides:
//
//   - BufferedSlogHandler, which captures slog records so tests can assert on
//     warnings such as alias collisions or dropped station pairs
//   - CSV, XLSX and text fixture writers for reducer and registry tests
//
// Example usage:
//
//	func TestReducer(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    path := testutil.WriteCSV(t, t.TempDir(), "counts.csv",
//	        []string{"station_id", "flow"}, []string{"S1", "10"})
//	    ...
//	    testutil.AssertLogContains(t, logs, slog.LevelWarn, "unmatched")
//	}
package shared

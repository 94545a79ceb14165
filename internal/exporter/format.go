package exporter

// formatBool formats a pass/fail flag for tabular output
func formatBool(b bool) string {
	if b {
		return "pass"
	}
	return "fail"
}

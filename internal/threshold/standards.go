package threshold

// Roadway RMSE standard by daily volume. Tolerances are maximum percent RMSE.
var (
	roadwayBreakpoints = []float64{
		250, 1000, 2000, 3000, 4000, 5000, 6250, 7750, 9250, 11250, 13750,
		16250, 18750, 22500, 27500, 32500, 37500, 45000, 55000, 65000, 75000,
	}
	roadwayTolerances = []float64{
		200, 100, 62, 54, 48, 45, 42, 39, 36, 34, 31,
		30, 28, 26, 24, 22, 21, 19, 17, 16, 15,
	}
)

// Florida transit boardings guideline by observed daily boardings. Tolerances
// are the allowed fractional deviation.
var (
	floridaBreakpoints = []float64{500, 1500, 2500, 7500, 12500, 27500}
	floridaTolerances  = []float64{1.50, 1.00, 0.65, 0.35, 0.25, 0.20}
)

// HourlyScale converts the daily roadway standard to hourly volumes
const HourlyScale = 0.1

// DefaultRoadway returns the daily roadway RMSE standard
func DefaultRoadway() *Table {
	return MustTable("roadway", roadwayBreakpoints, roadwayTolerances)
}

// DefaultFlorida returns the transit boardings guideline
func DefaultFlorida() *Table {
	return MustTable("florida", floridaBreakpoints, floridaTolerances)
}

// OrDefault builds a table from override values, falling back to def when
// no override is given
func OrDefault(name string, breakpoints, tolerances []float64, def func() *Table) (*Table, error) {
	if len(breakpoints) == 0 && len(tolerances) == 0 {
		return def(), nil
	}
	return NewTable(name, breakpoints, tolerances)
}

package acceptance

import (
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"acceptcli/pkg/contracts/domain"
)

// CategoryStatistics is the error of one standards category against its
// tolerance
type CategoryStatistics struct {
	Category    string  `json:"category"`
	Tolerance   float64 `json:"tolerance"`
	Matched     int     `json:"matched"`
	PercentRMSE float64 `json:"percent_rmse"`
	Pass        bool    `json:"pass"`
}

// Statistics summarizes the records of one criterion. Errors are computed
// over matched records only.
type Statistics struct {
	CriteriaNumber int     `json:"criteria_number"`
	CriteriaName   string  `json:"criteria_name"`
	Records        int     `json:"records"`
	Matched        int     `json:"matched"`
	ObservedOnly   int     `json:"observed_only"`
	SimulatedOnly  int     `json:"simulated_only"`
	RMSE           float64 `json:"rmse"`
	PercentRMSE    float64 `json:"percent_rmse"`
	MeanObserved   float64 `json:"mean_observed"`
	MeanSimulated  float64 `json:"mean_simulated"`

	Categories []CategoryStatistics `json:"categories,omitempty"`
}

// StatisticsColumns is the column order of the statistics table
var StatisticsColumns = []string{
	"criteria_number",
	"criteria_name",
	"records",
	"matched",
	"observed_only",
	"simulated_only",
	"rmse",
	"percent_rmse",
	"mean_observed",
	"mean_simulated",
}

// Values returns the statistics as strings in StatisticsColumns order
func (s Statistics) Values() []string {
	return []string{
		strconv.Itoa(s.CriteriaNumber),
		s.CriteriaName,
		strconv.Itoa(s.Records),
		strconv.Itoa(s.Matched),
		strconv.Itoa(s.ObservedOnly),
		strconv.Itoa(s.SimulatedOnly),
		domain.FormatFloat(s.RMSE),
		domain.FormatFloat(s.PercentRMSE),
		domain.FormatFloat(s.MeanObserved),
		domain.FormatFloat(s.MeanSimulated),
	}
}

// Passed reports whether every category is within tolerance. Criteria
// without categories always pass.
func (s Statistics) Passed() bool {
	for _, c := range s.Categories {
		if !c.Pass {
			return false
		}
	}
	return true
}

// Summarize computes the statistics of a criterion's records
func Summarize(c Criterion, records []domain.ComparisonRecord) Statistics {
	s := Statistics{CriteriaNumber: c.Number, CriteriaName: c.Name, Records: len(records)}

	var obs, sim []float64
	for _, r := range records {
		switch {
		case r.Matched():
			obs = append(obs, *r.ObservedOutcome)
			sim = append(sim, *r.SimulatedOutcome)
		case r.ObservedOutcome != nil:
			s.ObservedOnly++
		case r.SimulatedOutcome != nil:
			s.SimulatedOnly++
		}
	}
	s.Matched = len(obs)
	if s.Matched > 0 {
		s.RMSE, s.PercentRMSE = errorStats(obs, sim)
		s.MeanObserved = stat.Mean(obs, nil)
		s.MeanSimulated = stat.Mean(sim, nil)
	}

	if c.ByCategory {
		s.Categories = categoryStats(records)
	}
	return s
}

// errorStats returns the root mean square error of sim against obs and the
// RMSE as a percentage of the mean observed value (zero when that mean is
// zero)
func errorStats(obs, sim []float64) (rmse, pct float64) {
	rmse = floats.Distance(obs, sim, 2) / math.Sqrt(float64(len(obs)))
	if mean := stat.Mean(obs, nil); mean != 0 {
		pct = rmse / mean * 100
	}
	return rmse, pct
}

// categoryStats groups matched records by their category dimension. The
// tolerance of a category is the record's numeric acceptance threshold.
func categoryStats(records []domain.ComparisonRecord) []CategoryStatistics {
	type group struct {
		tolerance float64
		obs, sim  []float64
	}
	groups := make(map[string]*group)
	var labels []string
	for _, r := range records {
		if !r.Matched() {
			continue
		}
		label := r.Dimension(CategoryDimension)
		tol, err := strconv.ParseFloat(r.AcceptanceThreshold, 64)
		if err != nil {
			continue
		}
		g, ok := groups[label]
		if !ok {
			g = &group{tolerance: tol}
			groups[label] = g
			labels = append(labels, label)
		}
		g.obs = append(g.obs, *r.ObservedOutcome)
		g.sim = append(g.sim, *r.SimulatedOutcome)
	}

	sort.Slice(labels, func(i, j int) bool {
		a, errA := strconv.ParseFloat(labels[i], 64)
		b, errB := strconv.ParseFloat(labels[j], 64)
		if errA != nil || errB != nil {
			return labels[i] < labels[j]
		}
		return a < b
	})

	out := make([]CategoryStatistics, 0, len(labels))
	for _, label := range labels {
		g := groups[label]
		_, pct := errorStats(g.obs, g.sim)
		out = append(out, CategoryStatistics{
			Category:    label,
			Tolerance:   g.tolerance,
			Matched:     len(g.obs),
			PercentRMSE: pct,
			Pass:        pct <= g.tolerance,
		})
	}
	return out
}

package acceptance

import (
	"fmt"
	"strings"

	"acceptcli/internal/canonical"
	"acceptcli/internal/config"
	"acceptcli/internal/crosswalk"
	apperrors "acceptcli/internal/errors"
	"acceptcli/internal/observed"
	"acceptcli/internal/simulated"
	"acceptcli/pkg/contracts/domain"
)

// Acceptance thresholds of criteria without a per-row tolerance
const (
	ThresholdRMSE       = "RMSE"
	ThresholdDifference = "Percent difference"
	ThresholdShare      = "Share difference"
	ThresholdPattern    = "Spatial pattern"
)

// CategoryDimension names the dimension holding a standards category
const CategoryDimension = "category"

// Inputs are the reduced tables a criterion selects from
type Inputs struct {
	Observed  *observed.Tables
	Simulated *simulated.Tables
}

// Selector picks a criterion's observed and simulated outcomes
type Selector func(c Criterion, in Inputs) (obs, sim []Outcome)

// Criterion is one acceptance comparison. Criteria are independent; the
// parameters below cover the variants that share a selector.
type Criterion struct {
	Number     int
	Name       string
	Threshold  string
	Join       crosswalk.JoinKind
	Dimensions [3]string

	// Operator restricts station flow criteria to one canonical operator
	Operator string
	// Aggregation selects how station flows are summarized
	Aggregation domain.FlowAggregation
	// AccessMode restricts access share criteria to one access mode
	AccessMode string
	// ByCategory adds per category statistics against the row tolerances
	ByCategory bool

	Select Selector
}

// Compare runs the criterion against the reduced tables
func (c Criterion) Compare(in Inputs) []domain.ComparisonRecord {
	obs, sim := c.Select(c, in)
	return compare(c, obs, sim)
}

// Validate checks that a criterion can run
func (c Criterion) Validate() error {
	switch {
	case c.Number <= 0:
		return apperrors.NewInvariantError(fmt.Sprintf("criterion %q has no number", c.Name))
	case c.Name == "":
		return apperrors.NewInvariantError(fmt.Sprintf("criterion %d has no name", c.Number))
	case c.Select == nil:
		return apperrors.NewInvariantError(fmt.Sprintf("criterion %d has no selector", c.Number))
	case c.Dimensions[0] == "":
		return apperrors.NewInvariantError(fmt.Sprintf("criterion %d has no dimensions", c.Number))
	}
	return nil
}

// DefaultCriteria returns the fourteen acceptance criteria. The BART and
// park-and-ride criteria take their operator and access mode from cfg.
func DefaultCriteria(cfg config.CriteriaConfig, reg *canonical.Registry) []Criterion {
	bart := crosswalk.OperatorName(reg, cfg.BartOperator)

	return []Criterion{
		{
			Number:     1,
			Name:       "Roadway volumes by daily category",
			Join:       crosswalk.Left,
			Dimensions: [3]string{"station", "vehicle_class", CategoryDimension},
			ByCategory: true,
			Select:     selectDailyVolumes,
		},
		{
			Number:     2,
			Name:       "Roadway time period volumes by hourly category",
			Join:       crosswalk.Left,
			Dimensions: [3]string{"station", "time_period", CategoryDimension},
			ByCategory: true,
			Select:     selectPeriodVolumes,
		},
		{
			Number:     3,
			Name:       "Key arterial and bridge volumes",
			Threshold:  ThresholdDifference,
			Join:       crosswalk.Left,
			Dimensions: [3]string{"key_location", "time_period", "vehicle_class"},
			Select:     selectKeyLocations,
		},
		{
			Number:     4,
			Name:       "Transit route boardings",
			Join:       crosswalk.Left,
			Dimensions: [3]string{"operator", "route", "technology"},
			Select:     selectRouteBoardings,
		},
		{
			Number:     5,
			Name:       "Rail operator boardings",
			Threshold:  ThresholdDifference,
			Join:       crosswalk.Outer,
			Dimensions: [3]string{"operator", "time_period"},
			Select:     selectRailOperators,
		},
		{
			Number:     6,
			Name:       "Transit boardings by technology",
			Threshold:  ThresholdDifference,
			Join:       crosswalk.Outer,
			Dimensions: [3]string{"technology", "time_period"},
			Select:     selectTechnologies,
		},
		{
			Number:     7,
			Name:       "Home-work county flows",
			Threshold:  ThresholdRMSE,
			Join:       crosswalk.Left,
			Dimensions: [3]string{"residence_county", "work_county"},
			Select:     selectCountyFlows,
		},
		{
			Number:     8,
			Name:       "Zero-vehicle household share by tract",
			Threshold:  ThresholdPattern,
			Join:       crosswalk.Left,
			Dimensions: [3]string{"tract"},
			Select:     selectTractShares,
		},
		{
			Number:      9,
			Name:        "BART station-to-station flows",
			Threshold:   ThresholdRMSE,
			Join:        crosswalk.Left,
			Dimensions:  [3]string{"boarding_station", "alighting_station"},
			Operator:    bart,
			Aggregation: domain.BoardingAlighting,
			Select:      selectStationFlows,
		},
		{
			Number:      10,
			Name:        "BART boardings by station",
			Threshold:   ThresholdDifference,
			Join:        crosswalk.Outer,
			Dimensions:  [3]string{"boarding_station"},
			Operator:    bart,
			Aggregation: domain.BoardingOnly,
			Select:      selectStationFlows,
		},
		{
			Number:      11,
			Name:        "BART alightings by station",
			Threshold:   ThresholdDifference,
			Join:        crosswalk.Outer,
			Dimensions:  [3]string{"alighting_station"},
			Operator:    bart,
			Aggregation: domain.AlightingOnly,
			Select:      selectStationFlows,
		},
		{
			Number:     12,
			Name:       "Rail access mode shares",
			Threshold:  ThresholdShare,
			Join:       crosswalk.Outer,
			Dimensions: [3]string{"operator", "access_mode"},
			Select:     selectAccessShares,
		},
		{
			Number:     13,
			Name:       "Park-and-ride access shares",
			Threshold:  ThresholdShare,
			Join:       crosswalk.Outer,
			Dimensions: [3]string{"operator", "access_mode"},
			AccessMode: cfg.ParkAndRideMode,
			Select:     selectAccessShares,
		},
		{
			Number:     14,
			Name:       "District-to-district technology flows",
			Threshold:  ThresholdRMSE,
			Join:       crosswalk.Left,
			Dimensions: [3]string{"orig_district", "dest_district", "technology"},
			Select:     selectDistrictFlows,
		},
	}
}

type linkPeriod struct {
	id     int64
	period domain.TimePeriod
}

func indexLinks(links []domain.LinkFlow) map[linkPeriod]domain.LinkFlow {
	index := make(map[linkPeriod]domain.LinkFlow, len(links))
	for _, l := range links {
		index[linkPeriod{l.ModelLinkID, l.TimePeriod}] = l
	}
	return index
}

// countedLink returns the simulated link of a count row in the same period
func countedLink(links map[linkPeriod]domain.LinkFlow, c domain.TrafficCount) (domain.LinkFlow, bool) {
	if c.ModelLinkID == nil {
		return domain.LinkFlow{}, false
	}
	l, ok := links[linkPeriod{*c.ModelLinkID, c.TimePeriod}]
	return l, ok
}

func selectDailyVolumes(_ Criterion, in Inputs) (obs, sim []Outcome) {
	links := indexLinks(in.Simulated.Links)
	for _, c := range in.Observed.TrafficCounts {
		if !c.TimePeriod.IsDaily() {
			continue
		}
		o := Outcome{
			Values:    [3]string{c.StationKey(), string(c.VehicleClass), c.Category},
			Value:     c.Flow,
			Threshold: domain.FormatFloat(c.Tolerance),
		}
		if l, ok := countedLink(links, c); ok {
			o.Geometry = lineGeometry(l.Geometry)
			sim = append(sim, Outcome{Values: o.Values, Value: l.ClassFlow(c.VehicleClass), Geometry: o.Geometry})
		}
		obs = append(obs, o)
	}
	return obs, sim
}

func selectPeriodVolumes(_ Criterion, in Inputs) (obs, sim []Outcome) {
	links := indexLinks(in.Simulated.Links)
	for _, c := range in.Observed.TrafficCounts {
		if c.TimePeriod.IsDaily() || c.VehicleClass != domain.VehicleAll {
			continue
		}
		o := Outcome{
			Values:    [3]string{c.StationKey(), string(c.TimePeriod), c.Category},
			Value:     c.Flow,
			Threshold: domain.FormatFloat(c.Tolerance),
		}
		if l, ok := countedLink(links, c); ok {
			o.Geometry = lineGeometry(l.Geometry)
			sim = append(sim, Outcome{Values: o.Values, Value: l.TotalFlow(), Geometry: o.Geometry})
		}
		obs = append(obs, o)
	}
	return obs, sim
}

func selectKeyLocations(_ Criterion, in Inputs) (obs, sim []Outcome) {
	links := indexLinks(in.Simulated.Links)
	for _, c := range in.Observed.TrafficCounts {
		if c.KeyLocation == "" {
			continue
		}
		values := [3]string{c.KeyLocation, string(c.TimePeriod), string(c.VehicleClass)}
		obs = append(obs, Outcome{Values: values, Value: c.Flow})
		if l, ok := countedLink(links, c); ok {
			sim = append(sim, Outcome{Values: values, Value: l.ClassFlow(c.VehicleClass)})
		}
	}
	return obs, sim
}

type routeKey struct {
	operator string
	route    string
	tech     domain.Technology
}

// selectRouteBoardings compares daily survey boardings of non-rail routes
// with the simulated daily boardings of the lines serving each route
func selectRouteBoardings(_ Criterion, in Inputs) (obs, sim []Outcome) {
	var dailyLines []domain.LineBoarding
	for _, b := range in.Simulated.LineBoardings {
		if b.TimePeriod.IsDaily() {
			dailyLines = append(dailyLines, b)
		}
	}
	_, daily := crosswalk.GroupSum(dailyLines,
		func(b domain.LineBoarding) lineDirection { return lineDirection{b.LineName, b.Direction} }, lineBoardings)
	_, byName := crosswalk.GroupSum(dailyLines,
		func(b domain.LineBoarding) string { return b.LineName }, lineBoardings)
	lines := make(map[routeKey][]lineDirection)
	for _, lb := range in.Observed.LineBoardings {
		if lb.TimePeriod.IsDaily() {
			k := routeKey{lb.Operator, lb.Route, lb.Technology}
			lines[k] = append(lines[k], lineDirection{lb.SimLineName, lb.SimDirection})
		}
	}

	for _, s := range in.Observed.SurveyBoardings {
		if !s.TimePeriod.IsDaily() || s.Technology.IsRail() {
			continue
		}
		values := [3]string{s.Operator, s.Route, string(s.Technology)}
		o := Outcome{Values: values, Value: s.Boardings}
		if s.FloridaTolerance != nil {
			o.Threshold = domain.FormatFloat(*s.FloridaTolerance)
		}
		obs = append(obs, o)

		if total, ok := routeBoardings(lines[routeKey{s.Operator, s.Route, s.Technology}], daily, byName); ok {
			sim = append(sim, Outcome{Values: values, Value: total})
		}
	}
	return obs, sim
}

type lineDirection struct {
	name      string
	direction string
}

func lineBoardings(b domain.LineBoarding) float64 {
	return b.Boardings
}

// routeBoardings sums the simulated boardings of a route's lines, counting
// each line direction once. A line listed without a direction, or whose
// direction the simulation does not report, contributes all of its boardings.
func routeBoardings(lines []lineDirection, daily map[lineDirection]float64, byName map[string]float64) (float64, bool) {
	var names []string
	directions := make(map[string]map[string]bool)
	for _, l := range lines {
		if _, ok := directions[l.name]; !ok {
			names = append(names, l.name)
			directions[l.name] = make(map[string]bool)
		}
		directions[l.name][l.direction] = true
	}

	var total float64
	found := false
	for _, name := range names {
		dirs := directions[name]
		whole := dirs[""]
		if !whole {
			for d := range dirs {
				if _, ok := daily[lineDirection{name, d}]; !ok {
					whole = true
					break
				}
			}
		}
		if whole {
			if v, ok := byName[name]; ok {
				total += v
				found = true
			}
			continue
		}
		for d := range dirs {
			total += daily[lineDirection{name, d}]
			found = true
		}
	}
	return total, found
}

func selectRailOperators(_ Criterion, in Inputs) (obs, sim []Outcome) {
	for _, s := range in.Observed.SurveyBoardings {
		if s.Technology.IsRail() {
			obs = append(obs, Outcome{Values: [3]string{s.Operator, string(s.TimePeriod)}, Value: s.Boardings})
		}
	}
	for _, b := range in.Simulated.LineBoardings {
		if b.Technology.IsRail() {
			sim = append(sim, Outcome{Values: [3]string{b.Operator, string(b.TimePeriod)}, Value: b.Boardings})
		}
	}
	return obs, sim
}

func selectTechnologies(_ Criterion, in Inputs) (obs, sim []Outcome) {
	for _, s := range in.Observed.SurveyBoardings {
		if s.Technology != "" {
			obs = append(obs, Outcome{Values: [3]string{string(s.Technology), string(s.TimePeriod)}, Value: s.Boardings})
		}
	}
	for _, b := range in.Simulated.LineBoardings {
		if b.Technology != "" {
			sim = append(sim, Outcome{Values: [3]string{string(b.Technology), string(b.TimePeriod)}, Value: b.Boardings})
		}
	}
	return obs, sim
}

func selectCountyFlows(_ Criterion, in Inputs) (obs, sim []Outcome) {
	for _, f := range in.Observed.CountyFlows {
		obs = append(obs, Outcome{Values: [3]string{f.ResidenceCounty, f.WorkCounty}, Value: f.Workers})
	}
	for _, f := range in.Simulated.CountyFlows {
		sim = append(sim, Outcome{Values: [3]string{f.ResidenceCounty, f.WorkCounty}, Value: f.Workers})
	}
	return obs, sim
}

func selectTractShares(_ Criterion, in Inputs) (obs, sim []Outcome) {
	for _, s := range in.Observed.TractShares {
		o := Outcome{Values: [3]string{s.Tract}, Value: s.Share}
		if s.Centroid != nil {
			o.Geometry = *s.Centroid
		}
		obs = append(obs, o)
	}
	for _, s := range in.Simulated.TractShares {
		sim = append(sim, Outcome{Values: [3]string{s.Tract}, Value: s.Share})
	}
	return obs, sim
}

func stationValues(a domain.FlowAggregation, f domain.StationFlow) [3]string {
	switch a {
	case domain.BoardingOnly:
		return [3]string{f.Boarding}
	case domain.AlightingOnly:
		return [3]string{f.Alighting}
	default:
		return [3]string{f.Boarding, f.Alighting}
	}
}

func selectStationFlows(c Criterion, in Inputs) (obs, sim []Outcome) {
	for _, f := range in.Observed.StationFlows {
		if c.Operator == "" || f.Operator == c.Operator {
			obs = append(obs, Outcome{Values: stationValues(c.Aggregation, f), Value: f.Riders})
		}
	}
	for _, f := range in.Simulated.StationFlows {
		if c.Operator == "" || f.Operator == c.Operator {
			sim = append(sim, Outcome{Values: stationValues(c.Aggregation, f), Value: f.Riders})
		}
	}
	return obs, sim
}

func selectAccessShares(c Criterion, in Inputs) (obs, sim []Outcome) {
	keep := func(s domain.AccessShare) bool {
		return c.AccessMode == "" || strings.EqualFold(strings.TrimSpace(s.AccessMode), strings.TrimSpace(c.AccessMode))
	}
	for _, s := range in.Observed.AccessShares {
		if keep(s) {
			obs = append(obs, Outcome{Values: [3]string{s.Operator, s.AccessMode}, Value: s.Share})
		}
	}
	for _, s := range in.Simulated.AccessShares {
		if keep(s) {
			sim = append(sim, Outcome{Values: [3]string{s.Operator, s.AccessMode}, Value: s.Share})
		}
	}
	return obs, sim
}

func selectDistrictFlows(_ Criterion, in Inputs) (obs, sim []Outcome) {
	for _, f := range in.Observed.SurveyTrips.DistrictFlows {
		obs = append(obs, Outcome{Values: [3]string{f.OrigDistrict, f.DestDistrict, string(f.Technology)}, Value: f.Trips})
	}
	for _, f := range in.Simulated.TechFlows {
		sim = append(sim, Outcome{Values: [3]string{f.OrigDistrict, f.DestDistrict, string(f.Technology)}, Value: f.Trips})
	}
	return obs, sim
}

package observed

import (
	"context"
	"log/slog"
	"sort"

	"acceptcli/internal/crosswalk"
	"acceptcli/internal/dataprocessing"
	apperrors "acceptcli/internal/errors"
	"acceptcli/pkg/contracts/domain"
)

// HalvingFactor splits a non-directional survey total across the two
// directional simulated lines of a route
const HalvingFactor = 0.5

type routeKey struct {
	operator   string
	technology domain.Technology
	route      string
}

type routePeriodKey struct {
	routeKey
	period domain.TimePeriod
}

// SurveyBoardings aggregates on-board survey boardings by operator,
// technology, route and time period. Operators are canonicalized. Routes
// without an explicit daily row get one summed from their periods. Daily
// rows carry the Florida guideline category.
func (r *Reducer) SurveyBoardings(ctx context.Context) ([]domain.SurveyBoarding, error) {
	path := r.opts.Sources.SurveyBoardings
	t, err := dataprocessing.ReadTable(path, "operator", "technology", "route", "time_period", "boardings")
	if err != nil {
		return nil, err
	}

	var order []routePeriodKey
	sums := make(map[routePeriodKey]float64)
	hasDaily := make(map[routeKey]bool)
	for i := 0; i < t.Len(); i++ {
		period, err := domain.ParseTimePeriod(t.String(i, "time_period"))
		if err != nil {
			return nil, apperrors.NewParsingError("invalid survey time period", err).
				WithContext("path", path).WithContext("row", i+1)
		}
		boardings, err := t.Float(i, "boardings")
		if err != nil {
			return nil, err
		}

		rk := routeKey{
			operator:   crosswalk.OperatorName(r.opts.Registry, t.String(i, "operator")),
			technology: domain.ParseTechnology(t.String(i, "technology")),
			route:      t.String(i, "route"),
		}
		key := routePeriodKey{routeKey: rk, period: period}
		if _, ok := sums[key]; !ok {
			order = append(order, key)
		}
		sums[key] += boardings
		if period.IsDaily() {
			hasDaily[rk] = true
		}
	}

	derived := 0
	for _, key := range append([]routePeriodKey(nil), order...) {
		if hasDaily[key.routeKey] {
			continue
		}
		daily := routePeriodKey{routeKey: key.routeKey, period: domain.PeriodDaily}
		if _, ok := sums[daily]; !ok {
			order = append(order, daily)
			derived++
		}
		sums[daily] += sums[key]
	}

	sort.SliceStable(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.operator != b.operator {
			return a.operator < b.operator
		}
		if a.route != b.route {
			return a.route < b.route
		}
		if a.technology != b.technology {
			return a.technology < b.technology
		}
		return periodRank(a.period) < periodRank(b.period)
	})

	var (
		rows      = make([]domain.SurveyBoarding, 0, len(order))
		dailyRows []int
		dailySums []float64
	)
	for _, key := range order {
		if key.period.IsDaily() {
			dailyRows = append(dailyRows, len(rows))
			dailySums = append(dailySums, sums[key])
		}
		rows = append(rows, domain.SurveyBoarding{
			Operator:   key.operator,
			Technology: key.technology,
			Route:      key.route,
			TimePeriod: key.period,
			Boardings:  sums[key],
			Lineage:    r.lineage(path, nil),
		})
	}

	cats, err := r.opts.Florida.CategorizeAll(dailySums)
	if err != nil {
		return nil, err
	}
	for i, cat := range cats {
		tol := cat.Tolerance
		rows[dailyRows[i]].FloridaCategory = cat.Label
		rows[dailyRows[i]].FloridaTolerance = &tol
	}

	r.logger.InfoContext(ctx, "Survey boardings reduced",
		slog.String("path", path),
		slog.Int("rows", len(rows)),
		slog.Int("derived_daily_rows", derived))
	return rows, nil
}

// LineBoardings translates survey routes to simulated lines. A non-rail
// time-period record matched to a direction-specific line is halved; daily
// records and rail records keep their boardings. Routes without a simulated
// line are counted and dropped.
func (r *Reducer) LineBoardings(ctx context.Context, survey []domain.SurveyBoarding) []domain.LineSurveyBoarding {
	var (
		rows      []domain.LineSurveyBoarding
		unmatched = make(map[crosswalk.RouteKey]bool)
	)
	for _, s := range survey {
		key := crosswalk.RouteKey{Operator: s.Operator, Route: s.Route}
		lines, ok := r.opts.Crosswalks.SurveyRoutes.Lookup(key)
		if !ok {
			if !unmatched[key] {
				r.logger.DebugContext(ctx, "Missing crosswalk entry",
					slog.String("error", apperrors.NewMissingCrosswalk("survey_routes", key.Operator+" "+key.Route).Error()))
			}
			unmatched[key] = true
			continue
		}
		for _, line := range lines {
			row := domain.LineSurveyBoarding{
				SurveyBoarding: s,
				SimLineName:    line.Name,
				SimDirection:   line.Direction,
			}
			if ShouldHalve(s.Technology, s.TimePeriod, line.Direction) {
				row.Boardings *= HalvingFactor
				row.Halved = true
			}
			rows = append(rows, row)
		}
	}

	if len(unmatched) > 0 {
		r.opts.Metrics.Unmatched(ctx, "survey_routes", len(unmatched))
		r.logger.WarnContext(ctx, "Survey routes without a simulated line",
			slog.Int("routes", len(unmatched)))
	}
	return rows
}

// ShouldHalve reports whether a survey record is split across directions
func ShouldHalve(tech domain.Technology, period domain.TimePeriod, simDirection string) bool {
	return !tech.IsRail() && !period.IsDaily() && simDirection != ""
}

type zonePair struct {
	orig, dest string
}

type districtTechKey struct {
	pair crosswalk.DistrictPair
	tech domain.Technology
}

// SurveyTrips derives boardings per linked trip for each surveyed zone pair
// and the observed boardings by technology between district pairs
func (r *Reducer) SurveyTrips(ctx context.Context) (SurveyTrips, error) {
	path := r.opts.Sources.SurveyTrips
	t, err := dataprocessing.ReadTable(path, "orig_zone", "dest_zone", "technology", "trips", "boardings")
	if err != nil {
		return SurveyTrips{}, err
	}

	var (
		pairOrder      []zonePair
		pairTrips      = make(map[zonePair]float64)
		pairBoards     = make(map[zonePair]float64)
		flowOrder      []districtTechKey
		flows          = make(map[districtTechKey]float64)
		totalTrips     float64
		totalBoardings float64
		zones          []string
	)
	for i := 0; i < t.Len(); i++ {
		trips, err := t.Float(i, "trips")
		if err != nil {
			return SurveyTrips{}, err
		}
		boardings, err := t.Float(i, "boardings")
		if err != nil {
			return SurveyTrips{}, err
		}
		pair := zonePair{
			orig: crosswalk.NormalizeID(t.String(i, "orig_zone")),
			dest: crosswalk.NormalizeID(t.String(i, "dest_zone")),
		}
		if _, ok := pairTrips[pair]; !ok {
			pairOrder = append(pairOrder, pair)
		}
		pairTrips[pair] += trips
		pairBoards[pair] += boardings
		totalTrips += trips
		totalBoardings += boardings
		zones = append(zones, pair.orig, pair.dest)

		fk := districtTechKey{
			pair: r.opts.Crosswalks.Districts.Pair(pair.orig, pair.dest),
			tech: domain.ParseTechnology(t.String(i, "technology")),
		}
		if _, ok := flows[fk]; !ok {
			flowOrder = append(flowOrder, fk)
		}
		flows[fk] += boardings
	}

	out := SurveyTrips{}
	if totalTrips > 0 {
		out.GlobalRate = totalBoardings / totalTrips
	}
	for _, p := range pairOrder {
		if pairTrips[p] <= 0 {
			continue
		}
		out.Rates = append(out.Rates, domain.BoardingRate{
			OrigZone: p.orig,
			DestZone: p.dest,
			Rate:     pairBoards[p] / pairTrips[p],
		})
	}
	for _, k := range flowOrder {
		out.DistrictFlows = append(out.DistrictFlows, domain.DistrictFlow{
			OrigDistrict: k.pair.Orig,
			DestDistrict: k.pair.Dest,
			Technology:   k.tech,
			Trips:        flows[k],
			Lineage:      r.lineage(path, nil),
		})
	}

	if n := r.opts.Crosswalks.Districts.Unassigned(zones); n > 0 {
		r.opts.Metrics.Unmatched(ctx, "zone_districts", n)
		r.logger.WarnContext(ctx, "Survey zones without a district", slog.Int("zones", n))
	}
	r.logger.InfoContext(ctx, "Survey trips reduced",
		slog.String("path", path),
		slog.Int("zone_pairs", len(out.Rates)),
		slog.Float64("global_rate", out.GlobalRate))
	return out, nil
}

func periodRank(p domain.TimePeriod) int {
	for i, mp := range domain.ModelPeriods {
		if mp == p {
			return i
		}
	}
	return len(domain.ModelPeriods)
}

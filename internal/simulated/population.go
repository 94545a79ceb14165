package simulated

import (
	"context"
	"log/slog"
	"sort"

	"acceptcli/internal/canonical"
	"acceptcli/internal/crosswalk"
	"acceptcli/internal/dataprocessing"
	"acceptcli/internal/observed"
	"acceptcli/pkg/contracts/domain"
)

type stationPair struct {
	operator            string
	boarding, alighting string
}

// StationFlows sums the fixed-width station-to-station reports of every
// operator, path type and period into canonical boarding and alighting
// pairs. Rows naming a station the registry does not know are dropped.
func (r *Reducer) StationFlows(ctx context.Context) ([]domain.StationFlow, error) {
	var (
		order   []stationPair
		riders  = make(map[stationPair]float64)
		dropped = make(map[string]int)
		sources = make(map[stationPair]string)
	)
	for _, report := range r.opts.Sources.StationReports {
		t, err := dataprocessing.ReadFixedWidth(report.Path, dataprocessing.StationReportLayout)
		if err != nil {
			return nil, err
		}
		operator := crosswalk.OperatorName(r.opts.Registry, report.Operator)

		for i := 0; i < t.Len(); i++ {
			n, err := t.Float(i, "riders")
			if err != nil {
				return nil, err
			}
			board := r.opts.Registry.Station(operator, t.String(i, "boarding_station"))
			alight := r.opts.Registry.Station(operator, t.String(i, "alighting_station"))
			if board.IsMissing() || alight.IsMissing() {
				dropped[operator]++
				continue
			}
			key := stationPair{operator, string(board), string(alight)}
			if _, ok := riders[key]; !ok {
				order = append(order, key)
				sources[key] = report.Path
			}
			riders[key] += n
		}
		r.logger.DebugContext(ctx, "Station report read",
			slog.String("path", report.Path),
			slog.String("operator", operator),
			slog.String("path_type", report.PathType),
			slog.String("time_period", report.TimePeriod),
			slog.Int("rows", t.Len()))
	}

	flows := make([]domain.StationFlow, 0, len(order))
	for _, k := range order {
		flows = append(flows, domain.StationFlow{
			Operator:  k.operator,
			Boarding:  k.boarding,
			Alighting: k.alighting,
			Riders:    riders[k],
			Lineage:   lineage(sources[k]),
		})
	}

	for operator, n := range dropped {
		r.opts.Metrics.Unmatched(ctx, "station_names", n)
		r.logger.WarnContext(ctx, "Simulated station pairs with unknown stations dropped",
			slog.String("operator", operator),
			slog.Int("rows", n))
	}
	r.logger.InfoContext(ctx, "Station flows reduced",
		slog.Int("reports", len(r.opts.Sources.StationReports)),
		slog.Int("pairs", len(flows)))
	return flows, nil
}

type countyPair struct {
	home, work canonical.Name
}

// CountyFlows counts simulated workers by home and work county. Micro zones
// resolve to counties through the geography crosswalk and the registry;
// workers whose zones have no known county are dropped.
func (r *Reducer) CountyFlows(ctx context.Context) ([]domain.CountyFlow, error) {
	path := r.opts.Sources.Workers
	t, err := dataprocessing.ReadTable(path, "person_id", "home_maz", "work_maz")
	if err != nil {
		return nil, err
	}

	var (
		order   []countyPair
		workers = make(map[countyPair]float64)
		homeSum = make(map[canonical.Name]float64)
		dropped int
	)
	for i := 0; i < t.Len(); i++ {
		home := r.mazCounty(t.String(i, "home_maz"))
		work := r.mazCounty(t.String(i, "work_maz"))
		if home.IsMissing() || work.IsMissing() {
			dropped++
			continue
		}
		key := countyPair{home, work}
		if _, ok := workers[key]; !ok {
			order = append(order, key)
		}
		workers[key]++
		homeSum[home]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].home != order[j].home {
			return order[i].home < order[j].home
		}
		return order[i].work < order[j].work
	})

	flows := make([]domain.CountyFlow, 0, len(order))
	for _, k := range order {
		flows = append(flows, domain.CountyFlow{
			ResidenceCounty: string(k.home),
			WorkCounty:      string(k.work),
			Workers:         workers[k],
			Share:           workers[k] / homeSum[k.home],
			Lineage:         lineage(path),
		})
	}

	if dropped > 0 {
		r.opts.Metrics.Unmatched(ctx, "maz_geography", dropped)
		r.logger.WarnContext(ctx, "Workers without a known county dropped", slog.Int("workers", dropped))
	}
	r.logger.InfoContext(ctx, "County flows reduced", slog.String("path", path), slog.Int("rows", len(flows)))
	return flows, nil
}

func (r *Reducer) mazCounty(maz string) canonical.Name {
	geo, ok := r.opts.Crosswalks.MazGeography.Lookup(crosswalk.NormalizeID(maz))
	if !ok {
		return canonical.Missing
	}
	return r.opts.Registry.County(geo.County)
}

// TractShares computes the share of simulated households without a vehicle
// per census tract
func (r *Reducer) TractShares(ctx context.Context) ([]domain.TractShare, error) {
	path := r.opts.Sources.Households
	t, err := dataprocessing.ReadTable(path, "hh_id", "maz", "autos")
	if err != nil {
		return nil, err
	}

	var (
		hh      = make(map[string]float64)
		zero    = make(map[string]float64)
		dropped int
	)
	for i := 0; i < t.Len(); i++ {
		autos, err := t.Int(i, "autos")
		if err != nil {
			return nil, err
		}
		geo, ok := r.opts.Crosswalks.MazGeography.Lookup(crosswalk.NormalizeID(t.String(i, "maz")))
		if !ok || geo.Tract == "" {
			dropped++
			continue
		}
		hh[geo.Tract]++
		if autos == 0 {
			zero[geo.Tract]++
		}
	}

	tracts := make([]string, 0, len(hh))
	for tract := range hh {
		tracts = append(tracts, tract)
	}
	sort.Strings(tracts)

	shares := make([]domain.TractShare, 0, len(tracts))
	for _, tract := range tracts {
		shares = append(shares, domain.TractShare{
			Tract:       tract,
			Households:  hh[tract],
			ZeroVehicle: zero[tract],
			Share:       zero[tract] / hh[tract],
			Lineage:     lineage(path),
		})
	}

	if dropped > 0 {
		r.opts.Metrics.Unmatched(ctx, "maz_geography", dropped)
		r.logger.WarnContext(ctx, "Households without a tract dropped", slog.Int("households", dropped))
	}
	r.logger.InfoContext(ctx, "Tract shares reduced", slog.String("path", path), slog.Int("rows", len(shares)))
	return shares, nil
}

// AccessShares reduces simulated rail access trips to per operator access
// mode shares
func (r *Reducer) AccessShares(ctx context.Context) ([]domain.AccessShare, error) {
	path := r.opts.Sources.TransitAccess
	t, err := dataprocessing.ReadTable(path, "operator", "access_mode", "trips")
	if err != nil {
		return nil, err
	}

	shares, err := observed.ReduceAccess(t, func(raw string) string {
		return crosswalk.OperatorName(r.opts.Registry, raw)
	}, lineage(path))
	if err != nil {
		return nil, err
	}
	r.logger.InfoContext(ctx, "Access shares reduced", slog.String("path", path), slog.Int("rows", len(shares)))
	return shares, nil
}

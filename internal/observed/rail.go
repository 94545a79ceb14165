package observed

import (
	"context"
	"log/slog"

	"acceptcli/internal/crosswalk"
	"acceptcli/internal/dataprocessing"
	"acceptcli/pkg/contracts/domain"
)

type stationPair struct {
	boarding, alighting string
}

// StationFlows reduces the observed station-to-station table of the BART
// operator to canonical station pairs. Pairs naming an unknown station are
// dropped and counted.
func (r *Reducer) StationFlows(ctx context.Context) ([]domain.StationFlow, error) {
	path := r.opts.Sources.BartStationFlows
	t, err := dataprocessing.ReadTable(path, "boarding_station", "alighting_station", "riders")
	if err != nil {
		return nil, err
	}

	operator := crosswalk.OperatorName(r.opts.Registry, r.opts.BartOperator)
	var (
		order   []stationPair
		riders  = make(map[stationPair]float64)
		dropped int
	)
	for i := 0; i < t.Len(); i++ {
		n, err := t.Float(i, "riders")
		if err != nil {
			return nil, err
		}
		board := r.opts.Registry.Station(operator, t.String(i, "boarding_station"))
		alight := r.opts.Registry.Station(operator, t.String(i, "alighting_station"))
		if board.IsMissing() || alight.IsMissing() {
			dropped++
			continue
		}
		key := stationPair{string(board), string(alight)}
		if _, ok := riders[key]; !ok {
			order = append(order, key)
		}
		riders[key] += n
	}

	flows := make([]domain.StationFlow, 0, len(order))
	for _, k := range order {
		flows = append(flows, domain.StationFlow{
			Operator:  operator,
			Boarding:  k.boarding,
			Alighting: k.alighting,
			Riders:    riders[k],
			Lineage:   r.lineage(path, nil),
		})
	}

	if dropped > 0 {
		r.opts.Metrics.Unmatched(ctx, "station_names", dropped)
		r.logger.WarnContext(ctx, "Observed station pairs with unknown stations dropped",
			slog.String("operator", operator),
			slog.Int("rows", dropped))
	}
	r.logger.InfoContext(ctx, "Station flows reduced", slog.String("path", path), slog.Int("pairs", len(flows)))
	return flows, nil
}

// AccessShares reduces observed rail access trips to per operator access
// mode shares
func (r *Reducer) AccessShares(ctx context.Context) ([]domain.AccessShare, error) {
	path := r.opts.Sources.RailAccess
	t, err := dataprocessing.ReadTable(path, "operator", "access_mode", "trips")
	if err != nil {
		return nil, err
	}

	shares, err := ReduceAccess(t, func(raw string) string {
		return crosswalk.OperatorName(r.opts.Registry, raw)
	}, r.lineage(path, nil))
	if err != nil {
		return nil, err
	}
	r.logger.InfoContext(ctx, "Access shares reduced", slog.String("path", path), slog.Int("rows", len(shares)))
	return shares, nil
}

type accessKey struct {
	operator, mode string
}

// ReduceAccess sums trips per operator and access mode and computes each
// mode's share of its operator's trips. The simulated reducer uses the same
// reduction for modelled access trips.
func ReduceAccess(t *dataprocessing.Table, operatorName func(string) string, lineage domain.Lineage) ([]domain.AccessShare, error) {
	var (
		order []accessKey
		trips = make(map[accessKey]float64)
		total = make(map[string]float64)
	)
	for i := 0; i < t.Len(); i++ {
		n, err := t.Float(i, "trips")
		if err != nil {
			return nil, err
		}
		key := accessKey{operator: operatorName(t.String(i, "operator")), mode: t.String(i, "access_mode")}
		if _, ok := trips[key]; !ok {
			order = append(order, key)
		}
		trips[key] += n
		total[key.operator] += n
	}

	shares := make([]domain.AccessShare, 0, len(order))
	for _, k := range order {
		s := domain.AccessShare{
			Operator:   k.operator,
			AccessMode: k.mode,
			Trips:      trips[k],
			Lineage:    lineage,
		}
		if total[k.operator] > 0 {
			s.Share = s.Trips / total[k.operator]
		}
		shares = append(shares, s)
	}
	return shares, nil
}

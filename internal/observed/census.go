package observed

import (
	"context"
	"log/slog"
	"sort"

	"acceptcli/internal/canonical"
	"acceptcli/internal/dataprocessing"
	"acceptcli/pkg/contracts/domain"
)

type countyPair struct {
	home, work canonical.Name
}

// CountyFlows reduces CTPP home-work flows to canonical county pairs with the
// share of each residence county's workers. Counties the registry does not
// know are dropped; the remaining county set must equal the reference list.
func (r *Reducer) CountyFlows(ctx context.Context) ([]domain.CountyFlow, error) {
	path := r.opts.Sources.CtppFlows
	t, err := dataprocessing.ReadTable(path, "residence_county", "work_county", "workers")
	if err != nil {
		return nil, err
	}

	var (
		order   []countyPair
		workers = make(map[countyPair]float64)
		homeSum = make(map[canonical.Name]float64)
		names   []canonical.Name
		dropped int
	)
	for i := 0; i < t.Len(); i++ {
		w, err := t.Float(i, "workers")
		if err != nil {
			return nil, err
		}
		home := r.opts.Registry.County(t.String(i, "residence_county"))
		work := r.opts.Registry.County(t.String(i, "work_county"))
		names = append(names, home, work)
		if home.IsMissing() || work.IsMissing() {
			dropped++
			continue
		}

		key := countyPair{home, work}
		if _, ok := workers[key]; !ok {
			order = append(order, key)
		}
		workers[key] += w
		homeSum[home] += w
	}

	if err := r.opts.Registry.CheckCounties(path, names); err != nil {
		return nil, err
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].home != order[j].home {
			return order[i].home < order[j].home
		}
		return order[i].work < order[j].work
	})

	flows := make([]domain.CountyFlow, 0, len(order))
	for _, k := range order {
		flow := domain.CountyFlow{
			ResidenceCounty: string(k.home),
			WorkCounty:      string(k.work),
			Workers:         workers[k],
			Lineage:         r.lineage(path, nil),
		}
		if total := homeSum[k.home]; total > 0 {
			flow.Share = flow.Workers / total
		}
		flows = append(flows, flow)
	}

	if dropped > 0 {
		r.logger.WarnContext(ctx, "CTPP rows with unknown counties dropped", slog.Int("rows", dropped))
	}
	r.logger.InfoContext(ctx, "County flows reduced", slog.String("path", path), slog.Int("rows", len(flows)))
	return flows, nil
}

// TractShares reduces zero-vehicle household counts to a share per tract,
// attaching the tract centroid when the centroid file has one
func (r *Reducer) TractShares(ctx context.Context) ([]domain.TractShare, error) {
	path := r.opts.Sources.ZeroVehicle
	t, err := dataprocessing.ReadTable(path, "tract", "households", "zero_vehicle_households")
	if err != nil {
		return nil, err
	}

	centroids, err := dataprocessing.ReadCentroids(r.opts.Sources.TractCentroids, "tract")
	if err != nil {
		return nil, err
	}

	var (
		order []string
		hh    = make(map[string]float64)
		zero  = make(map[string]float64)
	)
	for i := 0; i < t.Len(); i++ {
		tract := t.String(i, "tract")
		households, err := t.Float(i, "households")
		if err != nil {
			return nil, err
		}
		zv, err := t.Float(i, "zero_vehicle_households")
		if err != nil {
			return nil, err
		}
		if _, ok := hh[tract]; !ok {
			order = append(order, tract)
		}
		hh[tract] += households
		zero[tract] += zv
	}

	sort.Strings(order)
	shares := make([]domain.TractShare, 0, len(order))
	missing := 0
	for _, tract := range order {
		share := domain.TractShare{
			Tract:       tract,
			Households:  hh[tract],
			ZeroVehicle: zero[tract],
			Lineage:     r.lineage(path, nil),
		}
		if share.Households > 0 {
			share.Share = share.ZeroVehicle / share.Households
		}
		if pt, ok := centroids[tract]; ok {
			p := pt
			share.Centroid = &p
		} else {
			missing++
		}
		shares = append(shares, share)
	}

	if missing > 0 {
		r.opts.Metrics.Unmatched(ctx, "tract_centroids", missing)
		r.logger.WarnContext(ctx, "Tracts without a centroid", slog.Int("tracts", missing))
	}
	r.logger.InfoContext(ctx, "Tract shares reduced", slog.String("path", path), slog.Int("rows", len(shares)))
	return shares, nil
}

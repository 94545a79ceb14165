package simulated

import (
	"context"
	"log/slog"

	"acceptcli/internal/crosswalk"
	"acceptcli/internal/dataprocessing"
	apperrors "acceptcli/internal/errors"
	"acceptcli/internal/observed"
	"acceptcli/pkg/contracts/domain"
)

type odKey struct {
	period     domain.TimePeriod
	orig, dest string
}

type ivtShare struct {
	tech domain.Technology
	ivt  float64
}

type districtTechKey struct {
	pair crosswalk.DistrictPair
	tech domain.Technology
}

// TechnologyFlows splits simulated linked transit trips into boardings by
// technology and rolls them up to district pairs. Each OD pair contributes
// trips x boardings per trip x (technology IVT / total IVT); the boarding
// rate is the surveyed rate of the zone pair, or the global rate when the
// survey did not observe the pair. Periods are summed.
func (r *Reducer) TechnologyFlows(ctx context.Context, trips observed.SurveyTrips) ([]domain.DistrictFlow, error) {
	skims, err := r.readSkims()
	if err != nil {
		return nil, err
	}

	path := r.opts.Sources.TransitDemand
	t, err := dataprocessing.ReadTable(path, "time_period", "orig", "dest", "trips")
	if err != nil {
		return nil, err
	}

	rates := make(map[[2]string]float64, len(trips.Rates))
	for _, rate := range trips.Rates {
		rates[[2]string{rate.OrigZone, rate.DestZone}] = rate.Rate
	}

	var (
		order     []districtTechKey
		flows     = make(map[districtTechKey]float64)
		zones     []string
		unskimmed int
		fallback  int
	)
	for i := 0; i < t.Len(); i++ {
		period, err := domain.ParseTimePeriod(t.String(i, "time_period"))
		if err != nil {
			return nil, apperrors.NewParsingError("invalid demand time period", err).
				WithContext("path", path).WithContext("row", i+1)
		}
		n, err := t.Float(i, "trips")
		if err != nil {
			return nil, err
		}
		od := odKey{period, crosswalk.NormalizeID(t.String(i, "orig")), crosswalk.NormalizeID(t.String(i, "dest"))}
		zones = append(zones, od.orig, od.dest)

		shares := skims[od]
		var total float64
		for _, s := range shares {
			total += s.ivt
		}
		if total <= 0 {
			if n > 0 {
				unskimmed++
			}
			continue
		}

		rate, ok := rates[[2]string{od.orig, od.dest}]
		if !ok {
			rate = trips.GlobalRate
			fallback++
		}

		pair := r.opts.Crosswalks.Districts.Pair(od.orig, od.dest)
		for _, s := range shares {
			k := districtTechKey{pair: pair, tech: s.tech}
			if _, ok := flows[k]; !ok {
				order = append(order, k)
			}
			flows[k] += n * rate * s.ivt / total
		}
	}

	out := make([]domain.DistrictFlow, 0, len(order))
	for _, k := range order {
		out = append(out, domain.DistrictFlow{
			OrigDistrict: k.pair.Orig,
			DestDistrict: k.pair.Dest,
			Technology:   k.tech,
			Trips:        flows[k],
			Lineage:      lineage(path),
		})
	}

	if n := r.opts.Crosswalks.Districts.Unassigned(zones); n > 0 {
		r.opts.Metrics.Unmatched(ctx, "zone_districts", n)
		r.logger.WarnContext(ctx, "Demand zones without a district", slog.Int("zones", n))
	}
	if unskimmed > 0 {
		r.logger.WarnContext(ctx, "Demand without in-vehicle time skims dropped", slog.Int("rows", unskimmed))
	}
	r.logger.InfoContext(ctx, "Technology flows reduced",
		slog.String("path", path),
		slog.Int("rows", len(out)),
		slog.Int("global_rate_pairs", fallback))
	return out, nil
}

// readSkims returns per technology in-vehicle time for each period and OD
// pair, in file order
func (r *Reducer) readSkims() (map[odKey][]ivtShare, error) {
	path := r.opts.Sources.Skims
	t, err := dataprocessing.ReadTable(path, "time_period", "orig", "dest", "technology", "ivt")
	if err != nil {
		return nil, err
	}

	skims := make(map[odKey][]ivtShare)
	for i := 0; i < t.Len(); i++ {
		period, err := domain.ParseTimePeriod(t.String(i, "time_period"))
		if err != nil {
			return nil, apperrors.NewParsingError("invalid skim time period", err).
				WithContext("path", path).WithContext("row", i+1)
		}
		ivt, err := t.Float(i, "ivt")
		if err != nil {
			return nil, err
		}
		if ivt < 0 {
			return nil, apperrors.NewInvariantError("negative in-vehicle time in skims").
				WithContext("path", path).WithContext("row", i+1)
		}
		od := odKey{period, crosswalk.NormalizeID(t.String(i, "orig")), crosswalk.NormalizeID(t.String(i, "dest"))}
		skims[od] = append(skims[od], ivtShare{tech: domain.ParseTechnology(t.String(i, "technology")), ivt: ivt})
	}
	return skims, nil
}

package observed

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"acceptcli/internal/crosswalk"
	"acceptcli/internal/dataprocessing"
	apperrors "acceptcli/internal/errors"
	"acceptcli/pkg/contracts/domain"
)

type countKey struct {
	station crosswalk.StationLinkKey
	class   domain.VehicleClass
}

// TrafficCounts reduces hourly counts to per station, direction and vehicle
// class flows. Each hour takes the median across the relevant years; hours
// are summed into time periods and into a daily total. Daily rows are
// categorized with the daily roadway standard and period rows with the
// hourly standard applied to the average hourly flow.
func (r *Reducer) TrafficCounts(ctx context.Context) ([]domain.TrafficCount, error) {
	path := r.opts.Sources.TrafficCounts
	t, err := dataprocessing.ReadTable(path, "station_id", "direction", "year", "hour", "vehicle_class", "flow")
	if err != nil {
		return nil, err
	}

	relevant := make(map[int]bool, len(r.opts.RelevantYears))
	for _, y := range r.opts.RelevantYears {
		relevant[y] = true
	}

	samples := make(map[countKey]map[int][]float64)
	usedYears := make(map[countKey]map[int]bool)
	for i := 0; i < t.Len(); i++ {
		year, err := t.Int(i, "year")
		if err != nil {
			return nil, err
		}
		if len(relevant) > 0 && !relevant[int(year)] {
			continue
		}
		hour, err := t.Int(i, "hour")
		if err != nil {
			return nil, err
		}
		flow, ok, err := t.OptionalFloat(i, "flow")
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		class, err := domain.ParseVehicleClass(t.String(i, "vehicle_class"))
		if err != nil {
			return nil, apperrors.NewParsingError("invalid vehicle class", err).
				WithContext("path", path).WithContext("row", i+1)
		}
		if _, err := domain.PeriodForHour(int(hour)); err != nil {
			return nil, apperrors.NewParsingError("invalid count hour", err).
				WithContext("path", path).WithContext("row", i+1)
		}

		key := countKey{
			station: crosswalk.NewStationLinkKey(t.String(i, "station_id"), t.String(i, "direction")),
			class:   class,
		}
		if samples[key] == nil {
			samples[key] = make(map[int][]float64)
		}
		samples[key][int(hour)] = append(samples[key][int(hour)], flow)
		if usedYears[key] == nil {
			usedYears[key] = make(map[int]bool)
		}
		usedYears[key][int(year)] = true
	}

	periodFlow := make(map[countKey]map[domain.TimePeriod]float64, len(samples))
	for key, hours := range samples {
		flows := make(map[domain.TimePeriod]float64)
		for hour := 0; hour < 24; hour++ {
			values, ok := hours[hour]
			if !ok {
				continue
			}
			period, _ := domain.PeriodForHour(hour)
			m := median(values)
			flows[period] += m
			flows[domain.PeriodDaily] += m
		}
		periodFlow[key] = flows
	}

	keys := make([]countKey, 0, len(periodFlow))
	for k := range periodFlow {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.station.StationID != b.station.StationID {
			return a.station.StationID < b.station.StationID
		}
		if a.station.Direction != b.station.Direction {
			return a.station.Direction < b.station.Direction
		}
		return a.class < b.class
	})

	periods := append(append([]domain.TimePeriod(nil), domain.ModelPeriods...), domain.PeriodDaily)
	var (
		counts    []domain.TrafficCount
		unmatched int
	)
	for _, k := range keys {
		var linkID *int64
		if id, ok := r.opts.Crosswalks.StationLinks.Link(k.station); ok {
			linkID = &id
		} else {
			unmatched++
			r.logger.DebugContext(ctx, "Missing crosswalk entry",
				slog.String("error", apperrors.NewMissingCrosswalk("count_station_links", k.station).Error()))
		}
		label := r.keyLocation(k.station)
		years := sortedYears(usedYears[k])

		for _, p := range periods {
			flow, ok := periodFlow[k][p]
			if !ok {
				continue
			}
			row := domain.TrafficCount{
				StationID:    k.station.StationID,
				Direction:    k.station.Direction,
				TimePeriod:   p,
				VehicleClass: k.class,
				Flow:         flow,
				ModelLinkID:  linkID,
				KeyLocation:  label,
				Lineage:      r.lineage(path, years),
			}
			if err := r.categorizeCount(&row); err != nil {
				return nil, err
			}
			counts = append(counts, row)
		}
	}

	if unmatched > 0 {
		r.opts.Metrics.Unmatched(ctx, "count_station_links", unmatched)
		r.logger.WarnContext(ctx, "Count stations without a model link",
			slog.Int("stations", unmatched))
	}
	r.logger.InfoContext(ctx, "Traffic counts reduced",
		slog.String("path", path),
		slog.Int("rows", len(counts)),
		slog.Int("stations", len(keys)))
	return counts, nil
}

func (r *Reducer) categorizeCount(row *domain.TrafficCount) error {
	table, volume := r.opts.Roadway, row.Flow
	if !row.TimePeriod.IsDaily() {
		table, volume = r.hourly, row.Flow/row.TimePeriod.Hours()
	}
	cat, err := table.Categorize(volume)
	if err != nil {
		return err
	}
	row.Category = cat.Label
	row.Tolerance = cat.Tolerance
	return nil
}

// keyLocation returns the key arterial or bridge label of a station, trying
// the direction-qualified entry first
func (r *Reducer) keyLocation(key crosswalk.StationLinkKey) string {
	cw := r.opts.Crosswalks.KeyLocations
	if cw == nil {
		return ""
	}
	if label, ok := cw.Lookup(key); ok {
		return strings.TrimSpace(label)
	}
	label, _ := cw.Lookup(crosswalk.StationLinkKey{StationID: key.StationID})
	return strings.TrimSpace(label)
}

// median returns the middle value, averaging the two middle values of an
// even-length sample
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func sortedYears(set map[int]bool) []int {
	years := make([]int, 0, len(set))
	for y := range set {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

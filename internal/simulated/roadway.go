package simulated

import (
	"context"
	"log/slog"
	"sort"

	"acceptcli/internal/crosswalk"
	"acceptcli/internal/dataprocessing"
	apperrors "acceptcli/internal/errors"
	"acceptcli/pkg/contracts/domain"
)

// Links reduces the roadway assignment to one row per link and period plus a
// derived daily row. Managed lane rows are folded into their general purpose
// parents first. Geometry and end nodes come from the network shapes.
func (r *Reducer) Links(ctx context.Context) ([]domain.LinkFlow, error) {
	path := r.opts.Sources.RoadwayAssignment
	t, err := dataprocessing.ReadTable(path,
		"model_link_id", "time_period", "flow_da", "flow_s2", "flow_s3", "flow_truck", "speed", "capacity")
	if err != nil {
		return nil, err
	}

	links := make([]domain.LinkFlow, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		l, err := linkRow(t, i)
		if err != nil {
			return nil, err
		}
		links = append(links, l)
	}

	res := crosswalk.ReconcileManaged(links, r.opts.ManagedLaneOffset)
	links = append(res.Links, dailyLinks(res.Links)...)

	shapes, err := dataprocessing.ReadLinkShapes(r.opts.Sources.RoadwayNetwork)
	if err != nil {
		return nil, err
	}
	missing := make(map[int64]bool)
	for i := range links {
		shape, ok := shapes[links[i].ModelLinkID]
		if !ok {
			missing[links[i].ModelLinkID] = true
			continue
		}
		links[i].ANode = shape.ANode
		links[i].BNode = shape.BNode
		links[i].Geometry = shape.Geometry
	}

	sort.SliceStable(links, func(i, j int) bool {
		if links[i].ModelLinkID != links[j].ModelLinkID {
			return links[i].ModelLinkID < links[j].ModelLinkID
		}
		return periodRank(links[i].TimePeriod) < periodRank(links[j].TimePeriod)
	})

	if len(missing) > 0 {
		r.opts.Metrics.Unmatched(ctx, "roadway_network", len(missing))
		r.logger.WarnContext(ctx, "Assigned links without network geometry", slog.Int("links", len(missing)))
	}
	r.logger.InfoContext(ctx, "Roadway links reduced",
		slog.String("path", path),
		slog.Int("rows", len(links)),
		slog.Int("managed_merged", res.Merged))
	return links, nil
}

func linkRow(t *dataprocessing.Table, i int) (domain.LinkFlow, error) {
	var l domain.LinkFlow
	id, err := t.Int(i, "model_link_id")
	if err != nil {
		return l, err
	}
	period, err := domain.ParseTimePeriod(t.String(i, "time_period"))
	if err != nil {
		return l, apperrors.NewParsingError("invalid assignment time period", err).
			WithContext("path", t.Path).WithContext("row", i+1)
	}
	if period.IsDaily() {
		return l, apperrors.NewParsingError("assignment rows must be per period, found daily", nil).
			WithContext("path", t.Path).WithContext("row", i+1)
	}
	l.ModelLinkID = id
	l.TimePeriod = period

	for _, f := range []struct {
		col string
		dst *float64
	}{
		{"flow_da", &l.FlowDA},
		{"flow_s2", &l.FlowS2},
		{"flow_s3", &l.FlowS3},
		{"flow_truck", &l.FlowTruck},
		{"speed", &l.Speed},
		{"capacity", &l.Capacity},
	} {
		if *f.dst, err = t.Float(i, f.col); err != nil {
			return l, err
		}
	}
	return l, nil
}

// dailyLinks sums flows and capacity across periods per link. Daily speed is
// the flow weighted mean, or the plain mean for links without flow.
func dailyLinks(links []domain.LinkFlow) []domain.LinkFlow {
	var order []int64
	daily := make(map[int64]*domain.LinkFlow)
	speedFlow := make(map[int64]float64)
	speedSum := make(map[int64]float64)
	periods := make(map[int64]int)

	for _, l := range links {
		d, ok := daily[l.ModelLinkID]
		if !ok {
			d = &domain.LinkFlow{ModelLinkID: l.ModelLinkID, TimePeriod: domain.PeriodDaily}
			daily[l.ModelLinkID] = d
			order = append(order, l.ModelLinkID)
		}
		d.FlowDA += l.FlowDA
		d.FlowS2 += l.FlowS2
		d.FlowS3 += l.FlowS3
		d.FlowTruck += l.FlowTruck
		d.Capacity += l.Capacity
		d.Managed.FlowDA += l.Managed.FlowDA
		d.Managed.FlowS2 += l.Managed.FlowS2
		d.Managed.FlowS3 += l.Managed.FlowS3
		d.Managed.FlowTruck += l.Managed.FlowTruck
		if l.Managed.LinkID != nil {
			d.Managed.LinkID = l.Managed.LinkID
		}

		speedFlow[l.ModelLinkID] += l.Speed * l.GeneralFlow()
		speedSum[l.ModelLinkID] += l.Speed
		periods[l.ModelLinkID]++
	}

	out := make([]domain.LinkFlow, 0, len(order))
	for _, id := range order {
		d := daily[id]
		if flow := d.GeneralFlow(); flow > 0 {
			d.Speed = speedFlow[id] / flow
		} else {
			d.Speed = speedSum[id] / float64(periods[id])
		}
		out = append(out, *d)
	}
	return out
}

// periodRank orders model periods in clock order with daily last
func periodRank(p domain.TimePeriod) int {
	for i, mp := range domain.ModelPeriods {
		if p == mp {
			return i
		}
	}
	return len(domain.ModelPeriods)
}

// Package simulated reduces scenario outputs (roadway assignment, transit
// boardings and loads, skims, synthetic population, station reports) into
// the same typed rows as the observed reducer.
package simulated

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"acceptcli/internal/canonical"
	"acceptcli/internal/config"
	"acceptcli/internal/crosswalk"
	"acceptcli/internal/files"
	"acceptcli/internal/infrastructure"
	"acceptcli/internal/observed"
	"acceptcli/pkg/contracts/domain"
)

// Cached artifact names
const (
	ArtifactLinks         = "simulated_roadway_links"
	ArtifactLineBoardings = "simulated_line_boardings"
	ArtifactSegments      = "simulated_line_segments"
	ArtifactTechFlows     = "simulated_technology_flows"
	ArtifactStationFlows  = "simulated_station_flows"
	ArtifactCountyFlows   = "simulated_county_flows"
	ArtifactTractShares   = "simulated_tract_shares"
	ArtifactAccessShares  = "simulated_access_shares"
)

var tracer = otel.Tracer("acceptcli/simulated")

// Options wires a Reducer to its inputs
type Options struct {
	Sources           config.SimulatedConfig
	ManagedLaneOffset int64

	Registry   *canonical.Registry
	Crosswalks *crosswalk.Set

	Cache   *files.Cache
	Logger  *slog.Logger
	Metrics *infrastructure.RunMetrics
}

// Reducer produces the simulated tables of one run
type Reducer struct {
	opts   Options
	logger *slog.Logger
}

// Tables holds every simulated table
type Tables struct {
	Links         []domain.LinkFlow     `json:"links"`
	LineBoardings []domain.LineBoarding `json:"line_boardings"`
	Segments      []domain.LineSegment  `json:"segments"`
	TechFlows     []domain.DistrictFlow `json:"technology_flows"`
	StationFlows  []domain.StationFlow  `json:"station_flows"`
	CountyFlows   []domain.CountyFlow   `json:"county_flows"`
	TractShares   []domain.TractShare   `json:"tract_shares"`
	AccessShares  []domain.AccessShare  `json:"access_shares"`
}

// NewReducer creates a simulated reducer
func NewReducer(opts Options) *Reducer {
	if opts.ManagedLaneOffset <= 0 {
		opts.ManagedLaneOffset = crosswalk.DefaultManagedLaneOffset
	}
	if opts.Crosswalks == nil {
		opts.Crosswalks = &crosswalk.Set{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Registry == nil {
		opts.Registry = canonical.NewBuilder(logger).Build()
	}
	return &Reducer{opts: opts, logger: infrastructure.WithComponent(logger, "simulated")}
}

// Reduce produces every simulated table. The technology split needs the
// observed survey boarding rates.
func (r *Reducer) Reduce(ctx context.Context, trips observed.SurveyTrips) (*Tables, error) {
	t := &Tables{}

	steps := []struct {
		artifact string
		out      interface{}
		compute  func(context.Context) error
		rows     func() int
	}{
		{ArtifactLinks, &t.Links, func(ctx context.Context) (err error) {
			t.Links, err = r.Links(ctx)
			return err
		}, func() int { return len(t.Links) }},
		{ArtifactLineBoardings, &t.LineBoardings, func(ctx context.Context) (err error) {
			t.LineBoardings, err = r.LineBoardings(ctx)
			return err
		}, func() int { return len(t.LineBoardings) }},
		{ArtifactSegments, &t.Segments, func(ctx context.Context) (err error) {
			t.Segments, err = r.Segments(ctx)
			return err
		}, func() int { return len(t.Segments) }},
		{ArtifactTechFlows, &t.TechFlows, func(ctx context.Context) (err error) {
			t.TechFlows, err = r.TechnologyFlows(ctx, trips)
			return err
		}, func() int { return len(t.TechFlows) }},
		{ArtifactStationFlows, &t.StationFlows, func(ctx context.Context) (err error) {
			t.StationFlows, err = r.StationFlows(ctx)
			return err
		}, func() int { return len(t.StationFlows) }},
		{ArtifactCountyFlows, &t.CountyFlows, func(ctx context.Context) (err error) {
			t.CountyFlows, err = r.CountyFlows(ctx)
			return err
		}, func() int { return len(t.CountyFlows) }},
		{ArtifactTractShares, &t.TractShares, func(ctx context.Context) (err error) {
			t.TractShares, err = r.TractShares(ctx)
			return err
		}, func() int { return len(t.TractShares) }},
		{ArtifactAccessShares, &t.AccessShares, func(ctx context.Context) (err error) {
			t.AccessShares, err = r.AccessShares(ctx)
			return err
		}, func() int { return len(t.AccessShares) }},
	}

	for _, s := range steps {
		if err := r.resolve(ctx, s.artifact, s.out, s.compute); err != nil {
			return nil, err
		}
		r.opts.Metrics.RowsReduced(ctx, s.artifact, s.rows())
	}
	return t, nil
}

func (r *Reducer) resolve(ctx context.Context, artifact string, out interface{}, compute func(context.Context) error) error {
	ctx, span := tracer.Start(ctx, "simulated."+artifact, trace.WithAttributes(attribute.String("artifact", artifact)))
	defer span.End()

	run := func() error { return compute(ctx) }
	var err error
	if r.opts.Cache == nil {
		err = run()
	} else {
		err = r.opts.Cache.Resolve(ctx, artifact, out, run)
	}
	if err != nil {
		infrastructure.RecordError(ctx, err)
	}
	return err
}

func lineage(path string) domain.Lineage {
	return domain.Lineage{Source: path}
}

// Package observed reduces field observation sources (traffic counts,
// on-board surveys, census extracts, station flows) into the typed rows the
// comparison engine consumes.
//
// Each reduction is cached as one artifact; a cached artifact is loaded
// instead of recomputed unless the run asks for recomputation.
package observed

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
	"acceptcli/internal/threshold"
	"acceptcli/pkg/contracts/domain"
)

// Cached artifact names
const (
	ArtifactTrafficCounts   = "observed_traffic_counts"
	ArtifactSurveyBoardings = "observed_survey_boardings"
	ArtifactLineBoardings   = "observed_line_boardings"
	ArtifactCountyFlows     = "observed_county_flows"
	ArtifactTractShares     = "observed_tract_shares"
	ArtifactStationFlows    = "observed_station_flows"
	ArtifactAccessShares    = "observed_access_shares"
	ArtifactSurveyTrips     = "observed_survey_trips"
)

var tracer = otel.Tracer("acceptcli/observed")

// Options wires a Reducer to its inputs
type Options struct {
	Sources       config.ObservedConfig
	RelevantYears []int
	// BartOperator names the operator whose station flows are observed
	BartOperator string

	Registry   *canonical.Registry
	Crosswalks *crosswalk.Set
	Roadway    *threshold.Table
	Florida    *threshold.Table

	Cache   *files.Cache
	Logger  *slog.Logger
	Metrics *infrastructure.RunMetrics
}

// Reducer produces the observed tables of one run
type Reducer struct {
	opts   Options
	hourly *threshold.Table
	logger *slog.Logger
}

// SurveyTrips is the reduced on-board survey trip table
type SurveyTrips struct {
	Rates []domain.BoardingRate `json:"rates"`
	// GlobalRate is total boardings over total trips, used for zone pairs
	// the survey did not observe
	GlobalRate    float64               `json:"global_rate"`
	DistrictFlows []domain.DistrictFlow `json:"district_flows"`
}

// Tables holds every observed table
type Tables struct {
	TrafficCounts   []domain.TrafficCount       `json:"traffic_counts"`
	SurveyBoardings []domain.SurveyBoarding     `json:"survey_boardings"`
	LineBoardings   []domain.LineSurveyBoarding `json:"line_boardings"`
	CountyFlows     []domain.CountyFlow         `json:"county_flows"`
	TractShares     []domain.TractShare         `json:"tract_shares"`
	StationFlows    []domain.StationFlow        `json:"station_flows"`
	AccessShares    []domain.AccessShare        `json:"access_shares"`
	SurveyTrips     SurveyTrips                 `json:"survey_trips"`
}

// NewReducer creates an observed reducer. Missing threshold tables default
// to the built-in standards.
func NewReducer(opts Options) *Reducer {
	if opts.Roadway == nil {
		opts.Roadway = threshold.DefaultRoadway()
	}
	if opts.Florida == nil {
		opts.Florida = threshold.DefaultFlorida()
	}
	if opts.Crosswalks == nil {
		opts.Crosswalks = &crosswalk.Set{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reducer{
		opts:   opts,
		hourly: opts.Roadway.Scale(threshold.HourlyScale),
		logger: infrastructure.WithComponent(logger, "observed"),
	}
}

// Reduce produces every observed table, loading cached artifacts when allowed
func (r *Reducer) Reduce(ctx context.Context) (*Tables, error) {
	t := &Tables{}

	steps := []struct {
		artifact string
		out      interface{}
		compute  func(context.Context) error
		rows     func() int
	}{
		{ArtifactTrafficCounts, &t.TrafficCounts, func(ctx context.Context) (err error) {
			t.TrafficCounts, err = r.TrafficCounts(ctx)
			return err
		}, func() int { return len(t.TrafficCounts) }},
		{ArtifactSurveyBoardings, &t.SurveyBoardings, func(ctx context.Context) (err error) {
			t.SurveyBoardings, err = r.SurveyBoardings(ctx)
			return err
		}, func() int { return len(t.SurveyBoardings) }},
		{ArtifactLineBoardings, &t.LineBoardings, func(ctx context.Context) error {
			t.LineBoardings = r.LineBoardings(ctx, t.SurveyBoardings)
			return nil
		}, func() int { return len(t.LineBoardings) }},
		{ArtifactCountyFlows, &t.CountyFlows, func(ctx context.Context) (err error) {
			t.CountyFlows, err = r.CountyFlows(ctx)
			return err
		}, func() int { return len(t.CountyFlows) }},
		{ArtifactTractShares, &t.TractShares, func(ctx context.Context) (err error) {
			t.TractShares, err = r.TractShares(ctx)
			return err
		}, func() int { return len(t.TractShares) }},
		{ArtifactStationFlows, &t.StationFlows, func(ctx context.Context) (err error) {
			t.StationFlows, err = r.StationFlows(ctx)
			return err
		}, func() int { return len(t.StationFlows) }},
		{ArtifactAccessShares, &t.AccessShares, func(ctx context.Context) (err error) {
			t.AccessShares, err = r.AccessShares(ctx)
			return err
		}, func() int { return len(t.AccessShares) }},
		{ArtifactSurveyTrips, &t.SurveyTrips, func(ctx context.Context) (err error) {
			t.SurveyTrips, err = r.SurveyTrips(ctx)
			return err
		}, func() int { return len(t.SurveyTrips.DistrictFlows) }},
	}

	for _, s := range steps {
		if err := r.resolve(ctx, s.artifact, s.out, s.compute); err != nil {
			return nil, err
		}
		r.opts.Metrics.RowsReduced(ctx, s.artifact, s.rows())
	}
	return t, nil
}

// resolve runs compute inside a span, through the cache when one is set
func (r *Reducer) resolve(ctx context.Context, artifact string, out interface{}, compute func(context.Context) error) error {
	ctx, span := tracer.Start(ctx, "observed."+artifact, trace.WithAttributes(attribute.String("artifact", artifact)))
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

// lineage tags rows produced from path
func (r *Reducer) lineage(path string, years []int) domain.Lineage {
	return domain.Lineage{Source: path, Years: years}
}

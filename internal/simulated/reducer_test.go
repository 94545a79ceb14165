package simulated

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acceptcli/internal/canonical"
	"acceptcli/internal/config"
	"acceptcli/internal/crosswalk"
	apperrors "acceptcli/internal/errors"
	"acceptcli/internal/files"
	"acceptcli/internal/observed"
	"acceptcli/internal/shared/testutil"
	"acceptcli/pkg/contracts/domain"
)

const networkJSON = `{"type":"FeatureCollection","features":[
  {"type":"Feature","geometry":{"type":"LineString","coordinates":[[0,0],[1,0]]},"properties":{"model_link_id":101,"a_node":1,"b_node":2}},
  {"type":"Feature","geometry":{"type":"LineString","coordinates":[[1,0],[2,0]]},"properties":{"model_link_id":102,"a_node":2,"b_node":3}}]}`

func testRegistry() *canonical.Registry {
	b := canonical.NewBuilder(nil)
	b.Add(canonical.DomainAgency, "San Francisco Muni", "SF Muni")
	b.Add(canonical.DomainAgency, "BART", "Bay Area Rapid Transit")
	b.AddStation("BART", "Embarcadero", "EMBR")
	b.AddStation("BART", "Fruitvale")
	b.Add(canonical.DomainCounty, "Alameda")
	b.Add(canonical.DomainCounty, "San Francisco", "SF County")
	return b.Build()
}

func testCrosswalks(t *testing.T) *crosswalk.Set {
	set := &crosswalk.Set{
		Districts:     crosswalk.NewDistricts(),
		MazGeography:  crosswalk.New[string, crosswalk.Geography]("maz_geography"),
		StandardNodes: crosswalk.New[int64, int64]("standard_nodes"),
		ModeCodes:     crosswalk.New[string, crosswalk.Mode]("mode_codes"),
	}
	require.NoError(t, set.Districts.Add("1", "A"))
	require.NoError(t, set.Districts.Add("2", "A"))
	require.NoError(t, set.Districts.Add("3", "B"))
	require.NoError(t, set.MazGeography.Add("100", crosswalk.Geography{County: "Alameda", Tract: "T1"}))
	require.NoError(t, set.MazGeography.Add("200", crosswalk.Geography{County: "SF County", Tract: "T2"}))
	require.NoError(t, set.MazGeography.Add("300", crosswalk.Geography{County: "Unknown Co", Tract: "T3"}))
	require.NoError(t, set.StandardNodes.Add(11, 1))
	require.NoError(t, set.StandardNodes.Add(12, 2))
	require.NoError(t, set.ModeCodes.Add("10", crosswalk.Mode{Operator: "San Francisco Muni", Technology: domain.TechLocalBus}))
	require.NoError(t, set.ModeCodes.Add("20", crosswalk.Mode{Operator: "BART", Technology: domain.TechHeavyRail}))
	return set
}

func stationReport(lines ...string) string {
	var b strings.Builder
	b.WriteString("STATION TO STATION FLOWS\n")
	b.WriteString("BOARD                         ALIGHT                        RIDERS\n")
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString("\n")
	}
	b.WriteString("------------------------------------------------------------------------\n")
	return b.String()
}

func reportLine(board, alight string, riders float64) string {
	return fmt.Sprintf("%-30s%-30s%12.2f", board, alight, riders)
}

func writeSources(t *testing.T, dir string) config.SimulatedConfig {
	return config.SimulatedConfig{
		RoadwayAssignment: testutil.WriteCSV(t, dir, "assignment.csv",
			[]string{"model_link_id", "time_period", "flow_da", "flow_s2", "flow_s3", "flow_truck", "speed", "capacity"},
			[]string{"101", "AM", "100", "10", "5", "20", "30", "1000"},
			[]string{"101", "PM", "50", "0", "0", "10", "40", "800"},
			[]string{"1000101", "AM", "40", "0", "0", "5", "60", "500"},
			[]string{"102", "AM", "0", "0", "0", "0", "25", "900"},
			[]string{"102", "PM", "0", "0", "0", "0", "35", "900"}),
		RoadwayNetwork: testutil.WriteText(t, dir, "network.geojson", networkJSON),
		TransitBoardings: testutil.WriteCSV(t, dir, "boardings.csv",
			[]string{"line_name", "mode_code", "direction", "time_period", "boardings"},
			[]string{"MUN38_I", "10", "i", "AM", "100"},
			[]string{"MUN38_I", "10", "I", "PM", "50"},
			[]string{"MUN38_I", "10", "I", "AM", "10"},
			[]string{"BART_RED", "20", "", "AM", "500"},
			[]string{"X1", "99", "", "AM", "5"}),
		TransitSegments: testutil.WriteCSV(t, dir, "segments.csv",
			[]string{"line_name", "segment_seq", "i_node", "j_node", "time_period", "volume", "capacity_total", "capacity_seated"},
			[]string{"MUN38_I", "1", "11", "12", "AM", "50", "100", "40"},
			[]string{"MUN38_I", "1", "11", "12", "PM", "30", "100", "40"},
			[]string{"MUN38_I", "2", "12", "99", "AM", "20", "100", "50"}),
		Skims: testutil.WriteCSV(t, dir, "skims.csv",
			[]string{"time_period", "orig", "dest", "technology", "ivt"},
			[]string{"AM", "1", "3", "Local Bus", "30"},
			[]string{"AM", "1", "3", "Heavy Rail", "10"},
			[]string{"AM", "2", "3", "Local Bus", "20"},
			[]string{"PM", "1", "3", "Local Bus", "10"}),
		TransitDemand: testutil.WriteCSV(t, dir, "demand.csv",
			[]string{"time_period", "orig", "dest", "trips"},
			[]string{"AM", "1", "3", "100"},
			[]string{"AM", "2", "3", "40"},
			[]string{"PM", "1.0", "3", "10"},
			[]string{"AM", "5", "5", "7"}),
		StationReports: []config.StationReport{
			{
				Path: testutil.WriteText(t, dir, "bart_am.txt", stationReport(
					reportLine("EMBR", "Fruitvale", 100),
					reportLine("Embarcadero", "Nowhere", 5))),
				Operator:   "Bay Area Rapid Transit",
				PathType:   "walk",
				TimePeriod: "AM",
			},
			{
				Path:       testutil.WriteText(t, dir, "bart_pm.txt", stationReport(reportLine("Embarcadero", "Fruitvale", 40))),
				Operator:   "BART",
				PathType:   "walk",
				TimePeriod: "PM",
			},
		},
		Households: testutil.WriteCSV(t, dir, "households.csv",
			[]string{"hh_id", "maz", "autos"},
			[]string{"1", "100", "0"},
			[]string{"2", "100", "2"},
			[]string{"3", "200", "0"},
			[]string{"4", "999", "1"}),
		Workers: testutil.WriteCSV(t, dir, "workers.csv",
			[]string{"person_id", "home_maz", "work_maz"},
			[]string{"1", "100", "100"},
			[]string{"2", "100", "200"},
			[]string{"3", "100", "200"},
			[]string{"4", "200", "200"},
			[]string{"5", "300", "100"}),
		TransitAccess: testutil.WriteCSV(t, dir, "access.csv",
			[]string{"operator", "access_mode", "trips"},
			[]string{"BART", "Walk", "30"},
			[]string{"Bay Area Rapid Transit", "Park and Ride", "70"}),
	}
}

func surveyTrips() observed.SurveyTrips {
	return observed.SurveyTrips{
		Rates:      []domain.BoardingRate{{OrigZone: "1", DestZone: "3", Rate: 1.25}},
		GlobalRate: 1.2,
	}
}

func newTestReducer(t *testing.T, sources config.SimulatedConfig, logger *slog.Logger) *Reducer {
	return NewReducer(Options{
		Sources:    sources,
		Registry:   testRegistry(),
		Crosswalks: testCrosswalks(t),
		Logger:     logger,
	})
}

func TestLinks(t *testing.T) {
	r := newTestReducer(t, writeSources(t, t.TempDir()), nil)

	links, err := r.Links(context.Background())
	require.NoError(t, err)
	require.Len(t, links, 6, "managed lane row folded into its parent, plus one daily row per link")

	am := links[0]
	assert.Equal(t, int64(101), am.ModelLinkID)
	assert.Equal(t, domain.PeriodAM, am.TimePeriod)
	assert.Equal(t, 135.0, am.GeneralFlow())
	assert.Equal(t, 180.0, am.TotalFlow(), "general purpose plus managed lane")
	assert.Equal(t, 25.0, am.TruckFlow())
	require.NotNil(t, am.Managed.LinkID)
	assert.Equal(t, int64(1000101), *am.Managed.LinkID)
	assert.Equal(t, int64(1), am.ANode)
	assert.Equal(t, int64(2), am.BNode)
	assert.Equal(t, orb.LineString{{0, 0}, {1, 0}}, am.Geometry)

	pm := links[1]
	assert.Equal(t, domain.PeriodPM, pm.TimePeriod)
	assert.Nil(t, pm.Managed.LinkID)
	assert.Equal(t, pm.GeneralFlow(), pm.TotalFlow(), "without a managed lane combined equals general purpose")

	daily := links[2]
	assert.Equal(t, domain.PeriodDaily, daily.TimePeriod)
	assert.Equal(t, 195.0, daily.GeneralFlow())
	assert.Equal(t, 240.0, daily.TotalFlow())
	assert.Equal(t, 1800.0, daily.Capacity)
	assert.InDelta(t, 6450.0/195.0, daily.Speed, 1e-9, "flow weighted speed")
	assert.Equal(t, orb.LineString{{0, 0}, {1, 0}}, daily.Geometry)

	empty := links[5]
	assert.Equal(t, int64(102), empty.ModelLinkID)
	assert.Equal(t, domain.PeriodDaily, empty.TimePeriod)
	assert.Equal(t, 30.0, empty.Speed, "plain mean without flow")
}

func TestLinks_DailyAssignmentRow(t *testing.T) {
	dir := t.TempDir()
	sources := writeSources(t, dir)
	sources.RoadwayAssignment = testutil.WriteCSV(t, dir, "bad.csv",
		[]string{"model_link_id", "time_period", "flow_da", "flow_s2", "flow_s3", "flow_truck", "speed", "capacity"},
		[]string{"101", "daily", "1", "1", "1", "1", "1", "1"})

	_, err := newTestReducer(t, sources, nil).Links(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))
}

func TestLineBoardings(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	r := newTestReducer(t, writeSources(t, t.TempDir()), logger)

	rows, err := r.LineBoardings(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 7)

	assert.Equal(t, "BART_RED", rows[0].LineName)
	assert.Equal(t, "BART", rows[0].Operator)
	assert.Equal(t, domain.TechHeavyRail, rows[0].Technology)
	assert.Equal(t, domain.PeriodDaily, rows[1].TimePeriod)
	assert.Equal(t, 500.0, rows[1].Boardings)

	am := rows[2]
	assert.Equal(t, "MUN38_I", am.LineName)
	assert.Equal(t, "I", am.Direction)
	assert.Equal(t, "San Francisco Muni", am.Operator)
	assert.Equal(t, 110.0, am.Boardings)
	assert.Equal(t, domain.PeriodPM, rows[3].TimePeriod)
	assert.Equal(t, domain.PeriodDaily, rows[4].TimePeriod)
	assert.Equal(t, 160.0, rows[4].Boardings)

	unknown := rows[5]
	assert.Equal(t, "X1", unknown.LineName)
	assert.Empty(t, unknown.Operator)
	assert.Equal(t, "99", unknown.ModeCode)
	testutil.AssertLogContains(t, handler, slog.LevelWarn, "Lines with unknown mode codes")
}

func TestSegments(t *testing.T) {
	r := newTestReducer(t, writeSources(t, t.TempDir()), nil)

	segments, err := r.Segments(context.Background())
	require.NoError(t, err)
	require.Len(t, segments, 5)

	first := segments[0]
	assert.Equal(t, 1, first.SegmentSeq)
	assert.Equal(t, domain.PeriodAM, first.TimePeriod)
	assert.Equal(t, orb.LineString{{0, 0}, {1, 0}}, first.Geometry)
	assert.Equal(t, 0.5, first.VolumeCapacity())
	assert.Equal(t, 1.25, first.VolumeSeated())

	daily := segments[2]
	assert.Equal(t, domain.PeriodDaily, daily.TimePeriod)
	assert.Equal(t, 80.0, daily.Volume)
	assert.Equal(t, 200.0, daily.CapacityTotal)
	assert.Equal(t, 0.4, daily.VolumeCapacity())

	assert.Equal(t, 2, segments[3].SegmentSeq)
	assert.Nil(t, segments[3].Geometry, "node 99 has no standard node")
}

func TestTechnologyFlows(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	r := newTestReducer(t, writeSources(t, t.TempDir()), logger)

	flows, err := r.TechnologyFlows(context.Background(), surveyTrips())
	require.NoError(t, err)
	require.Len(t, flows, 2)

	bus := flows[0]
	assert.Equal(t, "A", bus.OrigDistrict)
	assert.Equal(t, "B", bus.DestDistrict)
	assert.Equal(t, domain.TechLocalBus, bus.Technology)
	// 100 x 1.25 x 30/40 + 40 x 1.2 (global rate) + 10 x 1.25
	assert.InDelta(t, 154.25, bus.Trips, 1e-9)

	rail := flows[1]
	assert.Equal(t, domain.TechHeavyRail, rail.Technology)
	assert.InDelta(t, 31.25, rail.Trips, 1e-9)

	testutil.AssertLogContains(t, handler, slog.LevelWarn, "Demand zones without a district")
	testutil.AssertLogContains(t, handler, slog.LevelWarn, "Demand without in-vehicle time skims dropped")
}

func TestStationFlows(t *testing.T) {
	r := newTestReducer(t, writeSources(t, t.TempDir()), nil)

	flows, err := r.StationFlows(context.Background())
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.Equal(t, "BART", flows[0].Operator)
	assert.Equal(t, "Embarcadero", flows[0].Boarding)
	assert.Equal(t, "Fruitvale", flows[0].Alighting)
	assert.Equal(t, 140.0, flows[0].Riders, "reports of both periods summed")
}

func TestCountyFlowsAndTractShares(t *testing.T) {
	r := newTestReducer(t, writeSources(t, t.TempDir()), nil)
	ctx := context.Background()

	flows, err := r.CountyFlows(ctx)
	require.NoError(t, err)
	require.Len(t, flows, 3)
	assert.Equal(t, "Alameda", flows[0].ResidenceCounty)
	assert.Equal(t, "Alameda", flows[0].WorkCounty)
	assert.InDelta(t, 1.0/3.0, flows[0].Share, 1e-9)
	assert.Equal(t, "San Francisco", flows[1].WorkCounty)
	assert.Equal(t, 2.0, flows[1].Workers)
	assert.Equal(t, 1.0, flows[2].Share)

	shares, err := r.TractShares(ctx)
	require.NoError(t, err)
	require.Len(t, shares, 2)
	assert.Equal(t, "T1", shares[0].Tract)
	assert.Equal(t, 0.5, shares[0].Share)
	assert.Equal(t, 1.0, shares[1].Share)
	assert.Nil(t, shares[0].Centroid)
}

func TestAccessShares(t *testing.T) {
	r := newTestReducer(t, writeSources(t, t.TempDir()), nil)

	shares, err := r.AccessShares(context.Background())
	require.NoError(t, err)
	require.Len(t, shares, 2)
	assert.Equal(t, "BART", shares[1].Operator)
	assert.Equal(t, "Park and Ride", shares[1].AccessMode)
	assert.Equal(t, 0.7, shares[1].Share)
}

func TestReduceWithCache(t *testing.T) {
	dir := t.TempDir()
	sources := writeSources(t, dir)
	cacheDir := filepath.Join(dir, "cache")
	ctx := context.Background()

	cache := files.NewCache(cacheDir, false, nil, nil)
	r := NewReducer(Options{
		Sources:    sources,
		Registry:   testRegistry(),
		Crosswalks: testCrosswalks(t),
		Cache:      cache,
	})
	tables, err := r.Reduce(ctx, surveyTrips())
	require.NoError(t, err)
	assert.Len(t, tables.Links, 6)
	assert.Len(t, tables.TechFlows, 2)
	assert.Len(t, cache.Used(), 8)

	sources.RoadwayAssignment = filepath.Join(dir, "moved.csv")
	cached, err := NewReducer(Options{
		Sources:    sources,
		Registry:   testRegistry(),
		Crosswalks: testCrosswalks(t),
		Cache:      files.NewCache(cacheDir, false, nil, nil),
	}).Reduce(ctx, surveyTrips())
	require.NoError(t, err)
	assert.Equal(t, tables.Links[0].TotalFlow(), cached.Links[0].TotalFlow())
	assert.Equal(t, tables.StationFlows, cached.StationFlows)
}

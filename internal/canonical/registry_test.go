package canonical

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acceptcli/internal/config"
	apperrors "acceptcli/internal/errors"
	"acceptcli/internal/shared/testutil"
)

func testRegistry(t *testing.T) (*Registry, *testutil.BufferedSlogHandler) {
	logger, logs := testutil.NewTestLogger(t)
	b := NewBuilder(logger)
	b.Add(DomainAgency, "San Francisco Muni", "SF Muni", "Muni", "SFMTA")
	b.Add(DomainAgency, "BART", "Bay Area Rapid Transit")
	b.AddStation("Bay Area Rapid Transit", "Embarcadero", "EMBR", "Embarcadero Station")
	b.AddStation("SF Muni", "Embarcadero", "Embarcadero Muni")
	b.AddStation("BART", "12th St. Oakland City Center", "12th St", "Oakland City Center")
	b.Add(DomainCounty, "Alameda", "Alameda County")
	b.Add(DomainCounty, "San Francisco", "SF County")
	return b.Build(), logs
}

func TestResolveKnownAliases(t *testing.T) {
	reg, _ := testRegistry(t)

	tests := []struct {
		raw  string
		want Name
	}{
		{"SF Muni", "San Francisco Muni"},
		{"  sf   muni ", "San Francisco Muni"},
		{"San Francisco Muni", "San Francisco Muni"},
		{"SFMTA", "San Francisco Muni"},
		{"Bay Area Rapid Transit", "BART"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := reg.Agency(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.True(t, reg.Contains(DomainAgency, got))
		})
	}
}

func TestResolveUnknownIsMissing(t *testing.T) {
	reg, _ := testRegistry(t)

	for _, raw := range []string{"Unknown Co", "", "   ", "Muni Metro"} {
		got := reg.Agency(raw)
		assert.True(t, got.IsMissing(), "raw %q", raw)
	}
	assert.Equal(t, Missing, reg.County("Unknown Co"))
	assert.Equal(t, Missing, reg.Resolve(Domain("vessel"), "Muni"))
}

func TestStationScopedByOperator(t *testing.T) {
	reg, _ := testRegistry(t)

	assert.Equal(t, Name("Embarcadero"), reg.Station("BART", "EMBR"))
	assert.Equal(t, Name("Embarcadero"), reg.Station("Bay Area Rapid Transit", "embarcadero station"))
	assert.Equal(t, Name("Embarcadero"), reg.Station("Muni", "Embarcadero Muni"))

	assert.Equal(t, Missing, reg.Station("Muni", "EMBR"), "aliases do not leak across operators")
	assert.Equal(t, Missing, reg.Station("BART", "Castro"))
	assert.Equal(t, Missing, reg.Station("Caltrain", "Embarcadero"))
	assert.Equal(t, Name("12th St. Oakland City Center"), reg.Station("BART", "12th St"))
}

func TestAliasCollisionLastWins(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	b := NewBuilder(logger)
	b.Add(DomainAgency, "Golden Gate Transit", "GG")
	b.Add(DomainAgency, "Golden Gate Ferry", "GG")
	b.Add(DomainAgency, "Golden Gate Ferry", "GGF")
	reg := b.Build()

	assert.Equal(t, Name("Golden Gate Ferry"), reg.Agency("GG"))
	assert.Equal(t, Name("Golden Gate Transit"), reg.Agency("Golden Gate Transit"))

	ambiguities := reg.Ambiguities()
	require.Len(t, ambiguities, 1, "re-adding the same pair is not a collision")
	assert.Equal(t, Ambiguity{
		Domain:   DomainAgency,
		Alias:    "gg",
		Previous: "Golden Gate Transit",
		Winner:   "Golden Gate Ferry",
	}, ambiguities[0])

	testutil.AssertLogContains(t, logs, slog.LevelWarn, "Alias claimed by more than one canonical name")
	testutil.AssertLogAttr(t, logs, "alias", "gg")
}

func TestCheckCounties(t *testing.T) {
	reg, _ := testRegistry(t)

	observed := []Name{reg.County("Alameda County"), reg.County("SF County"), reg.County("Unknown Co")}
	assert.NoError(t, reg.CheckCounties("ctpp", observed), "Missing names are excluded from the check")

	err := reg.CheckCounties("ctpp", []Name{"Alameda", "Marin"})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInvariant))
	assert.Contains(t, err.Error(), "absent [San Francisco]")
	assert.Contains(t, err.Error(), "unexpected [Marin]")
}

func TestCanonicals(t *testing.T) {
	reg, _ := testRegistry(t)
	assert.Equal(t, []Name{"BART", "San Francisco Muni"}, reg.Canonicals(DomainAgency))
	assert.Empty(t, reg.Canonicals(Domain("vessel")))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	cfg := config.CanonicalConfig{
		AgencyNames: testutil.WriteCSV(t, dir, "agencies.csv",
			[]string{"canonical", "alternate_01", "alternate_02"},
			[]string{"San Francisco Muni", "SF Muni", ""},
			[]string{"BART", "Bay Area Rapid Transit", "BART District"}),
		StationNames: testutil.WriteXLSX(t, dir, "stations.xlsx", 2,
			[]string{"operator", "canonical", "alternate_1"},
			[]string{"Bay Area Rapid Transit", "Montgomery St.", "Montgomery"}),
		Counties: testutil.WriteCSV(t, dir, "counties.csv", []string{"county"},
			[]string{"Alameda"}, []string{"Contra Costa"}),
	}

	reg, err := Load(cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, Name("San Francisco Muni"), reg.Agency("SF Muni"))
	assert.Equal(t, Name("BART"), reg.Agency("BART District"))
	assert.Equal(t, Name("Montgomery St."), reg.Station("BART", "Montgomery"))
	assert.Equal(t, []Name{"Alameda", "Contra Costa"}, reg.Canonicals(DomainCounty))
}

func TestLoad_MissingColumn(t *testing.T) {
	dir := t.TempDir()
	cfg := config.CanonicalConfig{
		AgencyNames:  testutil.WriteCSV(t, dir, "agencies.csv", []string{"name"}, []string{"BART"}),
		StationNames: testutil.WriteCSV(t, dir, "stations.csv", []string{"operator", "canonical"}),
		Counties:     testutil.WriteCSV(t, dir, "counties.csv", []string{"county"}),
	}

	_, err := Load(cfg, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))
}

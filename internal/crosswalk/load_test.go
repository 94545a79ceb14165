package crosswalk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acceptcli/internal/canonical"
	"acceptcli/internal/config"
	apperrors "acceptcli/internal/errors"
	"acceptcli/internal/shared/testutil"
	"acceptcli/pkg/contracts/domain"
)

func crosswalkConfig(t *testing.T, dir string) config.CrosswalkConfig {
	return config.CrosswalkConfig{
		CountStationLinks: testutil.WriteCSV(t, dir, "station_links.csv",
			[]string{"station_id", "direction", "model_link_id"},
			[]string{"S1", "NB", "101"}, []string{"S1", "SB", "102"}),
		KeyLocations: testutil.WriteCSV(t, dir, "key_locations.csv",
			[]string{"station_id", "direction", "key_location"},
			[]string{"S1", "NB", "Bay Bridge"}),
		ZoneDistricts: testutil.WriteCSV(t, dir, "zones.csv",
			[]string{"zone", "district"}, []string{"1.0", "1"}, []string{"2", "2"}),
		MazGeography: testutil.WriteCSV(t, dir, "maz.csv",
			[]string{"maz", "county", "tract"}, []string{"10001", "Alameda", "06001400100"}),
		StandardNodes: testutil.WriteCSV(t, dir, "nodes.csv",
			[]string{"sim_node", "standard_node"}, []string{"1", "5001"}, []string{"2", "5002"}),
		ModeCodes: testutil.WriteCSV(t, dir, "modes.csv",
			[]string{"mode_code", "operator", "technology"},
			[]string{"12", "SF Muni", "LR"}, []string{"120", "BART", "Heavy Rail"}),
		SurveyRoutes: testutil.WriteCSV(t, dir, "routes.csv",
			[]string{"operator", "route", "sim_line_name", "direction"},
			[]string{"SF Muni", "N", "MUN_N_I", "ib"},
			[]string{"SF Muni", "N", "MUN_N_O", "ob"},
			[]string{"BART", "Red", "BART_RED", ""}),
	}
}

func TestLoad(t *testing.T) {
	b := canonical.NewBuilder(nil)
	b.Add(canonical.DomainAgency, "San Francisco Muni", "SF Muni")
	reg := b.Build()

	set, err := Load(crosswalkConfig(t, t.TempDir()), reg, nil)
	require.NoError(t, err)

	id, ok := set.StationLinks.Link(NewStationLinkKey("S1", "SB"))
	require.True(t, ok)
	assert.Equal(t, int64(102), id)

	label, ok := set.KeyLocations.Lookup(NewStationLinkKey("S1", "NB"))
	require.True(t, ok)
	assert.Equal(t, "Bay Bridge", label)

	assert.Equal(t, "1", set.Districts.District("1"))
	geo, ok := set.MazGeography.Lookup("10001")
	require.True(t, ok)
	assert.Equal(t, "06001400100", geo.Tract)

	mode, ok := set.ModeCodes.Lookup("12")
	require.True(t, ok)
	assert.Equal(t, Mode{Operator: "San Francisco Muni", Technology: domain.TechLightRail}, mode)

	lines, ok := set.SurveyRoutes.Lookup(RouteKey{Operator: "San Francisco Muni", Route: "N"})
	require.True(t, ok)
	assert.Equal(t, []SimLine{{Name: "MUN_N_I", Direction: "IB"}, {Name: "MUN_N_O", Direction: "OB"}}, lines)

	lines, ok = set.SurveyRoutes.Lookup(RouteKey{Operator: "BART", Route: "Red"})
	require.True(t, ok, "operators missing from the registry keep their raw name")
	assert.Equal(t, "", lines[0].Direction)
}

func TestLoad_DuplicateNode(t *testing.T) {
	dir := t.TempDir()
	cfg := crosswalkConfig(t, dir)
	cfg.StandardNodes = testutil.WriteCSV(t, dir, "nodes_dup.csv",
		[]string{"sim_node", "standard_node"}, []string{"1", "5001"}, []string{"1", "5002"})

	_, err := Load(cfg, nil, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInvariant))
}

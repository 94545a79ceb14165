package crosswalk

import (
	"log/slog"
	"math"
	"strconv"
	"strings"

	"acceptcli/internal/canonical"
	"acceptcli/internal/config"
	"acceptcli/internal/dataprocessing"
	apperrors "acceptcli/internal/errors"
	"acceptcli/pkg/contracts/domain"
)

// Geography locates a micro zone in census geography
type Geography struct {
	County string `json:"county"`
	Tract  string `json:"tract"`
}

// Mode is the operator and technology of a simulation mode code
type Mode struct {
	Operator   string            `json:"operator"`
	Technology domain.Technology `json:"technology"`
}

// RouteKey identifies a survey route within its operator
type RouteKey struct {
	Operator string
	Route    string
}

// SimLine is one simulated line serving a survey route
type SimLine struct {
	Name      string `json:"sim_line_name"`
	Direction string `json:"direction,omitempty"`
}

// Set holds every crosswalk used by a run
type Set struct {
	StationLinks  *StationLinks
	KeyLocations  *Crosswalk[StationLinkKey, string]
	Districts     Districts
	MazGeography  *Crosswalk[string, Geography]
	StandardNodes *Crosswalk[int64, int64]
	ModeCodes     *Crosswalk[string, Mode]
	SurveyRoutes  *Crosswalk[RouteKey, []SimLine]
}

// NormalizeID drops a zero fractional part from numeric identifiers so that
// "12" and "12.0" name the same zone. Other values are only trimmed.
func NormalizeID(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, ".") {
		return s
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return s
	}
	return strconv.FormatInt(int64(f), 10)
}

// OperatorName canonicalizes an operator, keeping the trimmed raw name when
// the registry does not know it
func OperatorName(reg *canonical.Registry, raw string) string {
	if reg != nil {
		if n := reg.Agency(raw); !n.IsMissing() {
			return string(n)
		}
	}
	return strings.Join(strings.Fields(raw), " ")
}

// Load reads every configured crosswalk table
func Load(cfg config.CrosswalkConfig, reg *canonical.Registry, logger *slog.Logger) (*Set, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "crosswalk"))

	set := &Set{
		StationLinks:  NewStationLinks(),
		KeyLocations:  New[StationLinkKey, string]("key_locations"),
		Districts:     NewDistricts(),
		MazGeography:  New[string, Geography]("maz_geography"),
		StandardNodes: New[int64, int64]("standard_nodes"),
		ModeCodes:     New[string, Mode]("mode_codes"),
		SurveyRoutes:  New[RouteKey, []SimLine]("survey_routes"),
	}

	loaders := []struct {
		path     string
		required []string
		load     func(*dataprocessing.Table) error
	}{
		{cfg.CountStationLinks, []string{"station_id", "direction", "model_link_id"}, set.loadStationLinks},
		{cfg.KeyLocations, []string{"station_id", "direction", "key_location"}, set.loadKeyLocations},
		{cfg.ZoneDistricts, []string{"zone", "district"}, set.loadDistricts},
		{cfg.MazGeography, []string{"maz", "county", "tract"}, set.loadMazGeography},
		{cfg.StandardNodes, []string{"sim_node", "standard_node"}, set.loadStandardNodes},
		{cfg.ModeCodes, []string{"mode_code", "operator", "technology"}, func(t *dataprocessing.Table) error {
			return set.loadModeCodes(t, reg)
		}},
		{cfg.SurveyRoutes, []string{"operator", "route", "sim_line_name", "direction"}, func(t *dataprocessing.Table) error {
			return set.loadSurveyRoutes(t, reg)
		}},
	}

	for _, l := range loaders {
		table, err := dataprocessing.ReadTable(l.path, l.required...)
		if err != nil {
			return nil, err
		}
		if err := l.load(table); err != nil {
			return nil, err
		}
	}

	logger.Info("Crosswalks loaded",
		slog.Int("count_station_links", set.StationLinks.Len()),
		slog.Int("key_locations", set.KeyLocations.Len()),
		slog.Int("zone_districts", set.Districts.Len()),
		slog.Int("maz_geography", set.MazGeography.Len()),
		slog.Int("standard_nodes", set.StandardNodes.Len()),
		slog.Int("mode_codes", set.ModeCodes.Len()),
		slog.Int("survey_routes", set.SurveyRoutes.Len()))
	return set, nil
}

func (s *Set) loadStationLinks(t *dataprocessing.Table) error {
	for i := 0; i < t.Len(); i++ {
		id, err := t.Int(i, "model_link_id")
		if err != nil {
			return err
		}
		key := NewStationLinkKey(t.String(i, "station_id"), t.String(i, "direction"))
		if err := s.StationLinks.Add(key, id); err != nil {
			return withPath(err, t)
		}
	}
	return nil
}

func (s *Set) loadKeyLocations(t *dataprocessing.Table) error {
	for i := 0; i < t.Len(); i++ {
		key := NewStationLinkKey(t.String(i, "station_id"), t.String(i, "direction"))
		if err := s.KeyLocations.Add(key, t.String(i, "key_location")); err != nil {
			return withPath(err, t)
		}
	}
	return nil
}

func (s *Set) loadDistricts(t *dataprocessing.Table) error {
	for i := 0; i < t.Len(); i++ {
		if err := s.Districts.Add(NormalizeID(t.String(i, "zone")), NormalizeID(t.String(i, "district"))); err != nil {
			return withPath(err, t)
		}
	}
	return nil
}

func (s *Set) loadMazGeography(t *dataprocessing.Table) error {
	for i := 0; i < t.Len(); i++ {
		geo := Geography{County: t.String(i, "county"), Tract: t.String(i, "tract")}
		if err := s.MazGeography.Add(NormalizeID(t.String(i, "maz")), geo); err != nil {
			return withPath(err, t)
		}
	}
	return nil
}

func (s *Set) loadStandardNodes(t *dataprocessing.Table) error {
	for i := 0; i < t.Len(); i++ {
		sim, err := t.Int(i, "sim_node")
		if err != nil {
			return err
		}
		std, err := t.Int(i, "standard_node")
		if err != nil {
			return err
		}
		if err := s.StandardNodes.Add(sim, std); err != nil {
			return withPath(err, t)
		}
	}
	return nil
}

func (s *Set) loadModeCodes(t *dataprocessing.Table, reg *canonical.Registry) error {
	for i := 0; i < t.Len(); i++ {
		mode := Mode{
			Operator:   OperatorName(reg, t.String(i, "operator")),
			Technology: domain.ParseTechnology(t.String(i, "technology")),
		}
		if err := s.ModeCodes.Add(NormalizeID(t.String(i, "mode_code")), mode); err != nil {
			return withPath(err, t)
		}
	}
	return nil
}

// loadSurveyRoutes groups the simulated lines of each survey route; a route
// served by both directions of a line maps to two SimLines
func (s *Set) loadSurveyRoutes(t *dataprocessing.Table, reg *canonical.Registry) error {
	lines := make(map[RouteKey][]SimLine)
	var order []RouteKey
	for i := 0; i < t.Len(); i++ {
		key := RouteKey{
			Operator: OperatorName(reg, t.String(i, "operator")),
			Route:    t.String(i, "route"),
		}
		if _, ok := lines[key]; !ok {
			order = append(order, key)
		}
		lines[key] = append(lines[key], SimLine{
			Name:      t.String(i, "sim_line_name"),
			Direction: strings.ToUpper(t.String(i, "direction")),
		})
	}
	for _, key := range order {
		if err := s.SurveyRoutes.Add(key, lines[key]); err != nil {
			return err
		}
	}
	return nil
}

func withPath(err error, t *dataprocessing.Table) error {
	if app, ok := err.(*apperrors.AppError); ok {
		return app.WithContext("path", t.Path)
	}
	return err
}

package operations

import (
	"context"
	"log/slog"

	"acceptcli/internal/acceptance"
	"acceptcli/internal/canonical"
	"acceptcli/internal/config"
	"acceptcli/internal/crosswalk"
	"acceptcli/internal/exporter"
	"acceptcli/internal/files"
	"acceptcli/internal/infrastructure"
	"acceptcli/internal/observed"
	"acceptcli/internal/simulated"
	"acceptcli/internal/threshold"
	"acceptcli/pkg/contracts/domain"
)

// Services holds what the steps of one run share
type Services struct {
	Config   *config.Config
	Paths    *config.Paths
	Cache    *files.Cache
	Manifest *RunManifest
	Metrics  *infrastructure.RunMetrics
	Logger   *slog.Logger
}

func (s *Services) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// NewAcceptanceRegistry registers the five steps of an acceptance run
func NewAcceptanceRegistry(svc *Services) (*Registry, error) {
	r := NewRegistry()
	for _, step := range []Step{
		NewCanonicalStep(svc),
		NewObservedStep(svc),
		NewSimulatedStep(svc),
		NewCompareStep(svc),
		NewExportStep(svc),
	} {
		if err := r.Register(step); err != nil {
			return nil, err
		}
	}
	if err := r.ValidateDependencies(); err != nil {
		return nil, err
	}
	return r, nil
}

// CanonicalStep builds the identity registry and loads the crosswalks
type CanonicalStep struct {
	BaseStep
	svc *Services
}

// NewCanonicalStep creates the registry step
func NewCanonicalStep(svc *Services) *CanonicalStep {
	return &CanonicalStep{BaseStep: NewBaseStep(StepIDCanonical, StepNameCanonical), svc: svc}
}

// Validate always passes; the step reads configuration only
func (s *CanonicalStep) Validate(_ *RunState) error {
	return nil
}

// Execute loads the canonical names and every crosswalk table
func (s *CanonicalStep) Execute(ctx context.Context, state *RunState) error {
	logger := s.svc.logger()
	reg, err := canonical.Load(s.svc.Config.Canonical, logger)
	if err != nil {
		return err
	}
	set, err := crosswalk.Load(s.svc.Config.Crosswalks, reg, logger)
	if err != nil {
		return err
	}
	state.Registry = reg
	state.Crosswalks = set

	ambiguities := len(reg.Ambiguities())
	if ambiguities > 0 {
		logger.WarnContext(ctx, "Aliases claimed by more than one canonical name",
			slog.Int("ambiguities", ambiguities))
	}
	if s.svc.Manifest != nil {
		s.svc.Manifest.SetAmbiguities(ambiguities)
	}

	stepState := state.GetStep(s.ID())
	stepState.SetMetadata(MetadataAmbiguities, ambiguities)
	stepState.SetMetadata(MetadataCrosswalks, map[string]int{
		"count_station_links": set.StationLinks.Len(),
		"key_locations":       set.KeyLocations.Len(),
		"zone_districts":      set.Districts.Len(),
		"maz_geography":       set.MazGeography.Len(),
		"standard_nodes":      set.StandardNodes.Len(),
		"mode_codes":          set.ModeCodes.Len(),
		"survey_routes":       set.SurveyRoutes.Len(),
	})
	return nil
}

// ObservedStep reduces the field observation sources
type ObservedStep struct {
	BaseStep
	svc *Services
}

// NewObservedStep creates the observed reduction step
func NewObservedStep(svc *Services) *ObservedStep {
	return &ObservedStep{BaseStep: NewBaseStep(StepIDObserved, StepNameObserved, StepIDCanonical), svc: svc}
}

// Validate requires the registry and crosswalks
func (s *ObservedStep) Validate(state *RunState) error {
	if state.Registry == nil || state.Crosswalks == nil {
		return NewValidationError(s.ID(), "identity registry and crosswalks not loaded")
	}
	return nil
}

// Execute reduces every observed table
func (s *ObservedStep) Execute(ctx context.Context, state *RunState) error {
	cfg := s.svc.Config
	roadway, err := standardTable("roadway", cfg.Standards.Roadway, threshold.DefaultRoadway)
	if err != nil {
		return err
	}
	florida, err := standardTable("florida", cfg.Standards.Florida, threshold.DefaultFlorida)
	if err != nil {
		return err
	}

	tables, err := observed.NewReducer(observed.Options{
		Sources:       cfg.Observed,
		RelevantYears: cfg.Run.RelevantYears,
		BartOperator:  cfg.Criteria.BartOperator,
		Registry:      state.Registry,
		Crosswalks:    state.Crosswalks,
		Roadway:       roadway,
		Florida:       florida,
		Cache:         s.svc.Cache,
		Logger:        s.svc.Logger,
		Metrics:       s.svc.Metrics,
	}).Reduce(ctx)
	if err != nil {
		return err
	}
	state.Observed = tables

	s.recordLineage(observedLineage(tables))
	state.GetStep(s.ID()).SetMetadata(MetadataRows, map[string]int{
		observed.ArtifactTrafficCounts:   len(tables.TrafficCounts),
		observed.ArtifactSurveyBoardings: len(tables.SurveyBoardings),
		observed.ArtifactLineBoardings:   len(tables.LineBoardings),
		observed.ArtifactCountyFlows:     len(tables.CountyFlows),
		observed.ArtifactTractShares:     len(tables.TractShares),
		observed.ArtifactStationFlows:    len(tables.StationFlows),
		observed.ArtifactAccessShares:    len(tables.AccessShares),
		observed.ArtifactSurveyTrips:     len(tables.SurveyTrips.DistrictFlows),
	})
	return nil
}

func (s *ObservedStep) recordLineage(lineage []domain.Lineage) {
	if s.svc.Manifest == nil {
		return
	}
	for _, l := range lineage {
		s.svc.Manifest.AddLineage(l)
	}
}

// SimulatedStep reduces the scenario outputs
type SimulatedStep struct {
	BaseStep
	svc *Services
}

// NewSimulatedStep creates the simulated reduction step. It follows the
// observed step because the technology split uses surveyed boarding rates.
func NewSimulatedStep(svc *Services) *SimulatedStep {
	return &SimulatedStep{BaseStep: NewBaseStep(StepIDSimulated, StepNameSimulated, StepIDObserved), svc: svc}
}

// Validate requires the observed survey trips
func (s *SimulatedStep) Validate(state *RunState) error {
	if state.Observed == nil {
		return NewValidationError(s.ID(), "observed tables not reduced")
	}
	return nil
}

// Execute reduces every simulated table
func (s *SimulatedStep) Execute(ctx context.Context, state *RunState) error {
	cfg := s.svc.Config
	tables, err := simulated.NewReducer(simulated.Options{
		Sources:           cfg.Simulated,
		ManagedLaneOffset: cfg.Run.ManagedLaneOffset,
		Registry:          state.Registry,
		Crosswalks:        state.Crosswalks,
		Cache:             s.svc.Cache,
		Logger:            s.svc.Logger,
		Metrics:           s.svc.Metrics,
	}).Reduce(ctx, state.Observed.SurveyTrips)
	if err != nil {
		return err
	}
	state.Simulated = tables

	state.GetStep(s.ID()).SetMetadata(MetadataRows, map[string]int{
		simulated.ArtifactLinks:         len(tables.Links),
		simulated.ArtifactLineBoardings: len(tables.LineBoardings),
		simulated.ArtifactSegments:      len(tables.Segments),
		simulated.ArtifactTechFlows:     len(tables.TechFlows),
		simulated.ArtifactStationFlows:  len(tables.StationFlows),
		simulated.ArtifactCountyFlows:   len(tables.CountyFlows),
		simulated.ArtifactTractShares:   len(tables.TractShares),
		simulated.ArtifactAccessShares:  len(tables.AccessShares),
	})
	return nil
}

// CompareStep runs the acceptance criteria
type CompareStep struct {
	BaseStep
	svc *Services
}

// NewCompareStep creates the comparison step
func NewCompareStep(svc *Services) *CompareStep {
	return &CompareStep{BaseStep: NewBaseStep(StepIDCompare, StepNameCompare, StepIDSimulated), svc: svc}
}

// Validate requires both table sets
func (s *CompareStep) Validate(state *RunState) error {
	if state.Observed == nil || state.Simulated == nil {
		return NewValidationError(s.ID(), "observed and simulated tables not reduced")
	}
	return nil
}

// Execute compares every criterion
func (s *CompareStep) Execute(ctx context.Context, state *RunState) error {
	engine, err := acceptance.NewEngine(
		acceptance.DefaultCriteria(s.svc.Config.Criteria, state.Registry),
		s.svc.Logger, s.svc.Metrics)
	if err != nil {
		return err
	}
	res, err := engine.Run(ctx, acceptance.Inputs{Observed: state.Observed, Simulated: state.Simulated})
	if err != nil {
		return err
	}
	state.Result = res

	failed := 0
	for _, st := range res.Statistics {
		if !st.Passed() {
			failed++
		}
	}
	if s.svc.Manifest != nil {
		s.svc.Manifest.SetResult(res)
	}
	stepState := state.GetStep(s.ID())
	stepState.SetMetadata(MetadataRecords, len(res.Records))
	stepState.SetMetadata(MetadataFailed, failed)
	return nil
}

// ExportStep writes the output artifacts
type ExportStep struct {
	BaseStep
	svc *Services
}

// NewExportStep creates the export step
func NewExportStep(svc *Services) *ExportStep {
	return &ExportStep{BaseStep: NewBaseStep(StepIDExport, StepNameExport, StepIDCompare), svc: svc}
}

// Validate requires a comparison result
func (s *ExportStep) Validate(state *RunState) error {
	if state.Result == nil {
		return NewValidationError(s.ID(), "no comparison result")
	}
	return nil
}

// Execute writes every artifact and records the cache usage
func (s *ExportStep) Execute(ctx context.Context, state *RunState) error {
	if err := s.svc.Paths.EnsureDirectories(); err != nil {
		return err
	}
	written, err := exporter.New(s.svc.Paths, s.svc.Logger).Export(ctx, state.Result)
	state.Outputs = written
	if err != nil {
		return err
	}

	if m := s.svc.Manifest; m != nil {
		m.SetOutputs(written)
		if s.svc.Cache != nil {
			if err := m.SetCache(s.svc.Cache, s.svc.Config.Run.Recompute); err != nil {
				return err
			}
		}
	}
	state.GetStep(s.ID()).SetMetadata(MetadataOutputs, len(written))
	return nil
}

// standardTable builds a threshold table from an optional override
func standardTable(name string, override *config.StandardTable, def func() *threshold.Table) (*threshold.Table, error) {
	if override == nil {
		return def(), nil
	}
	return threshold.OrDefault(name, override.Breakpoints, override.Tolerances, def)
}

// observedLineage returns the lineage of every traffic count and of the
// first row of each other table
func observedLineage(t *observed.Tables) []domain.Lineage {
	var out []domain.Lineage
	for _, c := range t.TrafficCounts {
		out = append(out, c.Lineage)
	}
	if len(t.SurveyBoardings) > 0 {
		out = append(out, t.SurveyBoardings[0].Lineage)
	}
	if len(t.CountyFlows) > 0 {
		out = append(out, t.CountyFlows[0].Lineage)
	}
	if len(t.TractShares) > 0 {
		out = append(out, t.TractShares[0].Lineage)
	}
	if len(t.StationFlows) > 0 {
		out = append(out, t.StationFlows[0].Lineage)
	}
	if len(t.AccessShares) > 0 {
		out = append(out, t.AccessShares[0].Lineage)
	}
	if len(t.SurveyTrips.DistrictFlows) > 0 {
		out = append(out, t.SurveyTrips.DistrictFlows[0].Lineage)
	}
	return out
}

package operations

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"acceptcli/internal/acceptance"
	"acceptcli/internal/files"
	"acceptcli/pkg/contracts"
	"acceptcli/pkg/contracts/domain"
)

// RunManifest records what one run read, reused and produced
type RunManifest struct {
	mu sync.RWMutex

	RunID       string              `json:"run_id"`
	Scenario    string              `json:"scenario,omitempty"`
	Build       contracts.BuildInfo `json:"build"`
	StartTime   time.Time           `json:"start_time"`
	EndTime     *time.Time          `json:"end_time,omitempty"`
	Status      RunStatus           `json:"status"`
	LastUpdated time.Time           `json:"last_updated"`
	Error       string              `json:"error,omitempty"`

	Steps []StepExecution `json:"steps"`

	Cache       CacheSummary       `json:"cache"`
	Ambiguities int                `json:"identity_ambiguities"`
	Lineage     map[string][]int   `json:"lineage,omitempty"`
	Criteria    []CriterionSummary `json:"criteria,omitempty"`
	Outputs     []string           `json:"outputs,omitempty"`
}

// StepExecution tracks the execution of a single step
type StepExecution struct {
	StepID    string                 `json:"step_id"`
	StepName  string                 `json:"step_name"`
	StartTime time.Time              `json:"start_time"`
	EndTime   time.Time              `json:"end_time,omitempty"`
	Duration  string                 `json:"duration,omitempty"`
	Status    StepStatus             `json:"status"`
	Error     string                 `json:"error,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// CacheSummary lists the cached artifacts on disk and those the run resolved
type CacheSummary struct {
	Dir       string           `json:"dir"`
	Recompute bool             `json:"recompute"`
	Artifacts []files.FileInfo `json:"artifacts"`
	Used      []string         `json:"used"`
}

// CriterionSummary is the per criterion record and join count of a run
type CriterionSummary struct {
	Number        int    `json:"criteria_number"`
	Name          string `json:"criteria_name"`
	Records       int    `json:"records"`
	Matched       int    `json:"matched"`
	ObservedOnly  int    `json:"observed_only"`
	SimulatedOnly int    `json:"simulated_only"`
	Passed        bool   `json:"passed"`
}

// NewRunManifest creates a pending manifest for run runID
func NewRunManifest(runID, scenario string) *RunManifest {
	now := time.Now()
	return &RunManifest{
		RunID:       runID,
		Scenario:    scenario,
		Build:       contracts.GetBuildInfo(),
		StartTime:   now,
		Status:      RunStatusPending,
		LastUpdated: now,
		Steps:       []StepExecution{},
	}
}

// RecordStepStart records the start of a step
func (m *RunManifest) RecordStepStart(stepID, stepName string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Status = RunStatusRunning
	m.Steps = append(m.Steps, StepExecution{
		StepID:    stepID,
		StepName:  stepName,
		StartTime: time.Now(),
		Status:    StepStatusActive,
	})
	m.LastUpdated = time.Now()
}

// RecordStepCompletion records the completion of a step
func (m *RunManifest) RecordStepCompletion(stepID string, metadata map[string]interface{}) {
	m.finishStep(stepID, StepStatusCompleted, nil, metadata)
}

// RecordStepFailure records a step failure and fails the run
func (m *RunManifest) RecordStepFailure(stepID string, err error) {
	m.finishStep(stepID, StepStatusFailed, err, nil)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Status = RunStatusFailed
	m.Error = fmt.Sprintf("step %s failed: %v", stepID, err)
}

// RecordStepSkipped records a step that never started
func (m *RunManifest) RecordStepSkipped(stepID, stepName, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.Steps = append(m.Steps, StepExecution{
		StepID:    stepID,
		StepName:  stepName,
		StartTime: now,
		EndTime:   now,
		Status:    StepStatusSkipped,
		Error:     reason,
	})
	m.LastUpdated = now
}

func (m *RunManifest) finishStep(stepID string, status StepStatus, err error, metadata map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for i := len(m.Steps) - 1; i >= 0; i-- {
		if m.Steps[i].StepID != stepID {
			continue
		}
		m.Steps[i].EndTime = now
		m.Steps[i].Duration = now.Sub(m.Steps[i].StartTime).String()
		m.Steps[i].Status = status
		m.Steps[i].Metadata = metadata
		if err != nil {
			m.Steps[i].Error = err.Error()
		}
		break
	}
	m.LastUpdated = now
}

// SetCache records the cache directory listing and the artifacts the run used
func (m *RunManifest) SetCache(cache *files.Cache, recompute bool) error {
	artifacts, err := cache.Artifacts()
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cache = CacheSummary{
		Dir:       cache.Dir(),
		Recompute: recompute,
		Artifacts: artifacts,
		Used:      cache.Used(),
	}
	return nil
}

// AddLineage records the years an input source contributed
func (m *RunManifest) AddLineage(l domain.Lineage) {
	if l.Source == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Lineage == nil {
		m.Lineage = make(map[string][]int)
	}
	years := append(m.Lineage[l.Source], l.Years...)
	sort.Ints(years)
	m.Lineage[l.Source] = uniqueInts(years)
}

// SetAmbiguities records how many aliases were claimed twice
func (m *RunManifest) SetAmbiguities(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Ambiguities = n
}

// SetOutputs records the written artifact paths
func (m *RunManifest) SetOutputs(paths []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Outputs = append([]string(nil), paths...)
}

// SetResult records per criterion counts of a comparison result
func (m *RunManifest) SetResult(res *acceptance.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Criteria = m.Criteria[:0]
	for _, s := range res.Statistics {
		m.Criteria = append(m.Criteria, CriterionSummary{
			Number:        s.CriteriaNumber,
			Name:          s.CriteriaName,
			Records:       s.Records,
			Matched:       s.Matched,
			ObservedOnly:  s.ObservedOnly,
			SimulatedOnly: s.SimulatedOnly,
			Passed:        s.Passed(),
		})
	}
}

// Finish marks the run complete or failed
func (m *RunManifest) Finish(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.EndTime = &now
	m.LastUpdated = now
	if err != nil {
		m.Status = RunStatusFailed
		if m.Error == "" {
			m.Error = err.Error()
		}
		return
	}
	m.Status = RunStatusCompleted
}

// SaveToFile writes the manifest as indented JSON
func (m *RunManifest) SaveToFile(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest file: %w", err)
	}
	return nil
}

// LoadRunManifest reads a manifest written by SaveToFile
func LoadRunManifest(path string) (*RunManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}

	var manifest RunManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	return &manifest, nil
}

func uniqueInts(sorted []int) []int {
	var out []int
	for _, v := range sorted {
		if len(out) == 0 || out[len(out)-1] != v {
			out = append(out, v)
		}
	}
	return out
}

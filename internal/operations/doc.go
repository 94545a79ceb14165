// Package operations runs an acceptance run as a sequence of dependent steps.
//
// Core Components:
//
// Step: a single unit of work. Steps declare the steps they depend on and
// validate the run state before they execute.
//
// Registry: registers steps, validates their dependencies and orders them
// topologically. Ties keep registration order.
//
// Manager: executes the ordered steps one at a time. The first failure stops
// the run and the remaining steps are recorded as skipped.
//
// RunState: the step states of one run and the tables each step hands to
// the next.
//
// RunManifest: the JSON record of a run. It lists step timings, the cache
// artifacts the run reused, the years each input contributed and the per
// criterion join counts.
//
// The five acceptance steps are registered by NewAcceptanceRegistry:
//
//	canonical -> observed -> simulated -> compare -> export
//
// Example usage:
//
//	svc := &operations.Services{Config: cfg, Paths: paths, Cache: cache, Manifest: manifest, Logger: logger}
//	registry, err := operations.NewAcceptanceRegistry(svc)
//	if err != nil {
//		return err
//	}
//	err = operations.NewManager(registry, manifest, logger).Run(ctx, operations.NewRunState(runID))
package operations

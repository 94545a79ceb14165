// Package config provides the run configuration for the acceptance pipeline.
// It handles loading configuration from multiple sources, validation, and
// resolution of every input and output path.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. YAML configuration file
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern ACCEPT_<SECTION>_<KEY>:
//
//	ACCEPT_RUN_OUTPUT_DIR=/data/out
//	ACCEPT_RUN_RECOMPUTE=true
//	ACCEPT_RUN_RELEVANT_YEARS=2014,2015,2016
//	ACCEPT_LOGGING_LEVEL=debug
//
// # Validation
//
// Every input file key is required. A missing key fails Load with a CONFIG
// error naming the dotted YAML key, before any input is read:
//
//	cfg, err := config.Load("acceptance.yaml")
//	if errors.IsType(err, errors.ErrTypeConfig) {
//	    // e.g. required configuration key "observed.traffic_counts" is not set
//	}
//
// # Path Management
//
// Relative input paths are resolved against run.base_dir, which defaults to
// the directory holding the YAML file. Output locations come from Paths:
//
//	paths := cfg.GetPaths()
//	paths.EnsureDirectories()
package config

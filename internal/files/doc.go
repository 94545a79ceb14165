// Package files provides the on-disk cache for reduced observed and simulated
// tables.
//
// Each artifact is one JSON document named after the table it holds. A run
// either loads an existing artifact or recomputes and stores it:
//
//	cache := files.NewCache(paths.CacheDir, cfg.Run.Recompute, logger, metrics)
//
//	var counts []domain.TrafficCount
//	err := cache.Resolve(ctx, "observed_traffic_counts", &counts, func() error {
//	    counts, err = reducer.TrafficCounts(ctx)
//	    return err
//	})
//
// Artifacts lists what is present in the cache directory and Used lists what
// the current run resolved; both feed the run manifest.
package files

package solver

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// SolveParallel runs independent restart workers over the same model, each
// with its own state and RNG stream, and merges the best outcome. The cost
// cache is the only structure shared between workers; it is advisory, so
// contention can slow search but never change feasibility. Each worker is
// individually deterministic, the merge order is not.
func SolveParallel(ctx context.Context, m *Model, logger *zap.Logger, workers int) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers < 2 {
		return New(m, logger).Solve(ctx)
	}

	cache := NewCostCache(m.cfg.CostCacheCapacity)
	baseSeed := m.cfg.RNGSeed
	if baseSeed == 0 {
		baseSeed = int64(m.fingerprint)
	}

	results := make([]*Result, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			cfg := m.cfg
			cfg.RNGSeed = baseSeed + int64(w)*7919
			worker := *m
			worker.cfg = cfg
			s := NewWithCache(&worker, logger.With(zap.Int("worker", w)), cache)
			results[w], errs[w] = s.Solve(ctx)
		}(w)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return mergeResults(results), nil
}

// mergeResults picks the strongest outcome: cheapest complete schedule,
// then most complete partial, then any definitive infeasibility, then
// cancellation. Stats are summed across workers.
func mergeResults(results []*Result) *Result {
	var best *Result
	var stats Stats
	for _, res := range results {
		if res == nil {
			continue
		}
		stats.Nodes += res.Stats.Nodes
		stats.Restarts += res.Stats.Restarts
		stats.CacheHits = res.Stats.CacheHits
		stats.CacheMisses = res.Stats.CacheMisses
		if res.Stats.Elapsed > stats.Elapsed {
			stats.Elapsed = res.Stats.Elapsed
		}
		if best == nil || betterResult(res, best) {
			best = res
		}
	}
	if best == nil {
		return &Result{Status: StatusInfeasible, Reason: ReasonTimeout}
	}
	merged := *best
	merged.Stats = stats
	return &merged
}

func betterResult(a, b *Result) bool {
	rank := func(r *Result) int {
		switch r.Status {
		case StatusSuccess:
			return 3
		case StatusPartialSuccess:
			return 2
		case StatusInfeasible:
			return 1
		default:
			return 0
		}
	}
	if rank(a) != rank(b) {
		return rank(a) > rank(b)
	}
	switch a.Status {
	case StatusSuccess:
		return a.Cost < b.Cost
	case StatusPartialSuccess:
		return len(a.UnmetCurricula) < len(b.UnmetCurricula)
	}
	return false
}

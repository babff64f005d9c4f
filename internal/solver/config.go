package solver

import (
	"fmt"
	"time"
)

// Weights are the soft-cost component weights. All must be non-negative.
type Weights struct {
	TeacherSpread   float64 `json:"teacher_spread" mapstructure:"teacher_spread" validate:"gte=0"`
	ClassContinuity float64 `json:"class_continuity" mapstructure:"class_continuity" validate:"gte=0"`
	SubjectSpacing  float64 `json:"subject_spacing" mapstructure:"subject_spacing" validate:"gte=0"`
	PreferredPeriod float64 `json:"preferred_period" mapstructure:"preferred_period" validate:"gte=0"`
}

// Config is the solve-time option record.
type Config struct {
	DaysPerWeek   int     `json:"days_per_week" mapstructure:"days_per_week" validate:"gt=0"`
	PeriodsPerDay int     `json:"periods_per_day" mapstructure:"periods_per_day" validate:"gt=0"`
	Weights       Weights `json:"weights" mapstructure:"weights"`

	NodeBudgetPerRestart int           `json:"node_budget_per_restart" mapstructure:"node_budget_per_restart" validate:"gt=0"`
	MaxRestarts          int           `json:"max_restarts" mapstructure:"max_restarts" validate:"gte=0"`
	WallClockBudget      time.Duration `json:"wall_clock_budget_ms" mapstructure:"wall_clock_budget_ms"`

	CostCacheCapacity int `json:"cost_cache_capacity" mapstructure:"cost_cache_capacity" validate:"gt=0"`
	SwapFrontierLimit int `json:"swap_frontier_limit" mapstructure:"swap_frontier_limit" validate:"gt=0"`
	MaxSwapChain      int `json:"max_swap_chain" mapstructure:"max_swap_chain" validate:"gt=0,lte=5"`

	AllowSameDaySameSubject bool `json:"allow_same_day_same_subject" mapstructure:"allow_same_day_same_subject"`

	// ParallelRestarts runs this many independent restart workers. Values
	// below 2 keep the solve on a single goroutine.
	ParallelRestarts int `json:"parallel_restarts" mapstructure:"parallel_restarts"`

	// RNGSeed seeds value-ordering tie breaks. Zero derives the seed from the
	// problem fingerprint, keeping solves reproducible per problem.
	RNGSeed int64 `json:"rng_seed" mapstructure:"rng_seed"`
}

// DefaultConfig returns the documented option defaults.
func DefaultConfig() Config {
	return Config{
		DaysPerWeek:   5,
		PeriodsPerDay: 8,
		Weights: Weights{
			TeacherSpread:   1.0,
			ClassContinuity: 1.0,
			SubjectSpacing:  1.0,
			PreferredPeriod: 0.5,
		},
		NodeBudgetPerRestart: 200_000,
		MaxRestarts:          8,
		WallClockBudget:      30 * time.Second,
		CostCacheCapacity:    1 << 16,
		SwapFrontierLimit:    10_000,
		MaxSwapChain:         3,
		ParallelRestarts:     1,
	}
}

// Grid returns the time grid the config describes.
func (c Config) Grid() TimeGrid {
	return TimeGrid{Days: c.DaysPerWeek, Periods: c.PeriodsPerDay}
}

// Validate rejects option combinations the solver cannot honour. Stored
// forbidden masks are 64-bit integers, so the grid must fit in one word.
func (c Config) Validate() error {
	if c.DaysPerWeek <= 0 || c.PeriodsPerDay <= 0 {
		return fmt.Errorf("grid dimensions must be positive, got %dx%d", c.DaysPerWeek, c.PeriodsPerDay)
	}
	if c.DaysPerWeek*c.PeriodsPerDay > 64 {
		return fmt.Errorf("grid %dx%d exceeds the 64-slot mask width", c.DaysPerWeek, c.PeriodsPerDay)
	}
	for name, w := range map[string]float64{
		"teacher_spread":   c.Weights.TeacherSpread,
		"class_continuity": c.Weights.ClassContinuity,
		"subject_spacing":  c.Weights.SubjectSpacing,
		"preferred_period": c.Weights.PreferredPeriod,
	} {
		if w < 0 {
			return fmt.Errorf("weight %s must be non-negative, got %f", name, w)
		}
	}
	if c.NodeBudgetPerRestart <= 0 {
		return fmt.Errorf("node_budget_per_restart must be positive")
	}
	if c.MaxRestarts < 0 {
		return fmt.Errorf("max_restarts must be non-negative")
	}
	if c.CostCacheCapacity <= 0 {
		return fmt.Errorf("cost_cache_capacity must be positive")
	}
	if c.SwapFrontierLimit <= 0 {
		return fmt.Errorf("swap_frontier_limit must be positive")
	}
	if c.MaxSwapChain <= 0 || c.MaxSwapChain > 5 {
		return fmt.Errorf("max_swap_chain must be between 1 and 5, got %d", c.MaxSwapChain)
	}
	return nil
}

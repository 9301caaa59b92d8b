package universe

import (
	"fmt"
	"time"
)

// BoundaryMode selects what happens to a cell that leaves the bounds.
type BoundaryMode string

const (
	// BoundaryBounce clamps the offending coordinate to the boundary and
	// flips the matching velocity component, scaled by the restitution.
	BoundaryBounce BoundaryMode = "bounce"
	// BoundaryWrap shifts the coordinate by exactly one bounds-extent;
	// velocity is unchanged.
	BoundaryWrap BoundaryMode = "wrap"
)

// Config is the full construction-time configuration of a universe.
// Validation happens once in New; no per-tick condition is ever fatal.
type Config struct {
	Width  float64
	Height float64
	Seed   int64

	// Energy economy.
	Ratio                 float64 // food share of spawned energy, [0,1]
	WasteFactor           float64
	VenomEnergyToToxicity float64
	FoodDegradeFactor     float64
	VenomDegradeFactor    float64
	CleanupDepleted       bool
	MaxNewFoods           int
	MaxNewVenoms          int
	MinUnitFood           float64
	MinUnitVenom          float64

	// Boundary policy.
	BoundaryMode      BoundaryMode
	BounceRestitution float64

	// Interactions.
	ContactResolution ContactResolution
	GridCellSize      float64
	EatRate           float64
	PoisonRate        float64

	// Population.
	PopulationCap     int
	InitialCells      int
	InitialCellEnergy float64

	Cell CellParams

	// Bound on each external movement policy call.
	PolicyTimeout time.Duration
}

// ConfigError is the only terminal error class: invalid construction
// parameters, rejected before any tick runs.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// DefaultConfig returns a complete, runnable configuration. Tuning files
// override individual values.
func DefaultConfig() Config {
	return Config{
		Width:  100,
		Height: 100,
		Seed:   42,

		Ratio:                 0.6,
		WasteFactor:           0.95,
		VenomEnergyToToxicity: 1.0,
		FoodDegradeFactor:     0.95,
		VenomDegradeFactor:    0.90,
		CleanupDepleted:       true,
		MaxNewFoods:           6,
		MaxNewVenoms:          6,
		MinUnitFood:           1.0,
		MinUnitVenom:          1.0,

		BoundaryMode:      BoundaryBounce,
		BounceRestitution: 0.8,

		ContactResolution: ResolveAll,
		GridCellSize:      10,
		EatRate:           0.5,
		PoisonRate:        0.5,

		PopulationCap:     256,
		InitialCells:      5,
		InitialCellEnergy: 20,

		Cell: CellParams{
			BasalMetabolism:      0.05,
			MoveCostPerUnit:      0.02,
			DeathThreshold:       0,
			MaxAge:               400,
			ReproEnergyThreshold: 25,
			ReproAgeThreshold:    10,
			ReproProbability:     0.2,
			ReproFraction:        0.45,
			ReproOverhead:        1.0,
			OffspringOffset:      3.0,

			ColorMutationRate:     0.1,
			ColorMutationStrength: 0.15,

			AccelTheta:      0.15,
			AccelSigma:      0.12,
			VelocityDamping: 0.92,
			FoodAttraction:  0.35,
			VisionRadius:    30,
			MaxSpeed:        2.5,
		},

		PolicyTimeout: 50 * time.Millisecond,
	}
}

func (c *Config) validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return &ConfigError{Field: "width/height", Reason: "bounds must be positive"}
	}
	if c.Ratio < 0 || c.Ratio > 1 {
		return &ConfigError{Field: "ratio", Reason: fmt.Sprintf("must be in [0,1], got %v", c.Ratio)}
	}
	if c.WasteFactor < 0 || c.WasteFactor > 1 {
		return &ConfigError{Field: "waste_factor", Reason: "must be in [0,1]"}
	}
	if c.FoodDegradeFactor < 0 || c.FoodDegradeFactor > 1 {
		return &ConfigError{Field: "food_degrade_factor", Reason: "must be in [0,1]"}
	}
	if c.VenomDegradeFactor < 0 || c.VenomDegradeFactor > 1 {
		return &ConfigError{Field: "venom_degrade_factor", Reason: "must be in [0,1]"}
	}
	if c.MinUnitFood <= 0 || c.MinUnitVenom <= 0 {
		return &ConfigError{Field: "min_unit", Reason: "minimum chunk units must be positive"}
	}
	if c.MaxNewFoods < 0 || c.MaxNewVenoms < 0 {
		return &ConfigError{Field: "max_new", Reason: "per-tick spawn caps must be >= 0"}
	}
	switch c.BoundaryMode {
	case BoundaryBounce, BoundaryWrap:
	default:
		return &ConfigError{Field: "boundary_mode", Reason: fmt.Sprintf("unknown mode %q", c.BoundaryMode)}
	}
	switch c.ContactResolution {
	case ResolveAll, ResolveNearest:
	default:
		return &ConfigError{Field: "contact_resolution", Reason: fmt.Sprintf("unknown mode %q", c.ContactResolution)}
	}
	if c.GridCellSize <= 0 {
		return &ConfigError{Field: "grid_cell_size", Reason: "must be positive"}
	}
	if c.PopulationCap <= 0 {
		return &ConfigError{Field: "population_cap", Reason: "must be positive"}
	}
	if c.Cell.ReproFraction <= 0 || c.Cell.ReproFraction >= 1 {
		return &ConfigError{Field: "cell.repro_fraction", Reason: "must be in (0,1)"}
	}
	if c.Cell.MaxAge <= 0 {
		return &ConfigError{Field: "cell.max_age", Reason: "must be positive"}
	}
	return nil
}

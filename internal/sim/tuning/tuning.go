// Package tuning loads the yaml run configuration and maps it onto the
// simulation config.
package tuning

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"cellarium.dev/internal/sim/universe"
)

type Tuning struct {
	Seed int64 `yaml:"seed"`

	World       World       `yaml:"world"`
	Energy      Energy      `yaml:"energy"`
	Interaction Interaction `yaml:"interaction"`
	Cell        Cell        `yaml:"cell"`
	Policy      Policy      `yaml:"policy"`
}

type World struct {
	Width             float64 `yaml:"width"`
	Height            float64 `yaml:"height"`
	BoundaryMode      string  `yaml:"boundary_mode"`
	BounceRestitution float64 `yaml:"bounce_restitution"`
	PopulationCap     int     `yaml:"population_cap"`
	InitialCells      int     `yaml:"initial_cells"`
	InitialCellEnergy float64 `yaml:"initial_cell_energy"`
}

type Energy struct {
	Ratio                 float64 `yaml:"ratio"`
	WasteFactor           float64 `yaml:"waste_factor"`
	InputMin              float64 `yaml:"input_min"`
	InputMax              float64 `yaml:"input_max"`
	VenomEnergyToToxicity float64 `yaml:"venom_energy_to_toxicity"`
	FoodDegradeFactor     float64 `yaml:"food_degrade_factor"`
	VenomDegradeFactor    float64 `yaml:"venom_degrade_factor"`
	CleanupDepleted       *bool   `yaml:"cleanup_depleted"`
	MaxNewFoods           int     `yaml:"max_new_foods"`
	MaxNewVenoms          int     `yaml:"max_new_venoms"`
	MinUnitFood           float64 `yaml:"min_unit_food"`
	MinUnitVenom          float64 `yaml:"min_unit_venom"`
}

type Interaction struct {
	ContactResolution string  `yaml:"contact_resolution"`
	GridCellSize      float64 `yaml:"grid_cell_size"`
	EatRate           float64 `yaml:"eat_rate"`
	PoisonRate        float64 `yaml:"poison_rate"`
}

type Cell struct {
	BasalMetabolism float64 `yaml:"basal_metabolism"`
	MoveCostPerUnit float64 `yaml:"move_cost_per_unit"`
	DeathThreshold  float64 `yaml:"death_threshold"`
	MaxAge          int     `yaml:"max_age"`

	ReproEnergyThreshold float64 `yaml:"repro_energy_threshold"`
	ReproAgeThreshold    int     `yaml:"repro_age_threshold"`
	ReproProbability     float64 `yaml:"repro_probability"`
	ReproFraction        float64 `yaml:"repro_fraction"`
	ReproOverhead        float64 `yaml:"repro_overhead"`
	OffspringOffset      float64 `yaml:"offspring_offset"`

	ColorMutationRate     float64 `yaml:"color_mutation_rate"`
	ColorMutationStrength float64 `yaml:"color_mutation_strength"`

	AccelTheta      float64 `yaml:"accel_theta"`
	AccelSigma      float64 `yaml:"accel_sigma"`
	VelocityDamping float64 `yaml:"velocity_damping"`
	FoodAttraction  float64 `yaml:"food_attraction"`
	VisionRadius    float64 `yaml:"vision_radius"`
	MaxSpeed        float64 `yaml:"max_speed"`
}

type Policy struct {
	TimeoutMs int `yaml:"timeout_ms"`
}

// Defaults mirrors universe.DefaultConfig with the standard input range.
func Defaults() Tuning {
	var t Tuning
	t.applyFrom(universe.DefaultConfig())
	t.Energy.InputMin = 1.0
	t.Energy.InputMax = 7.0
	return t
}

// Load reads a tuning yaml. Unset values fall back to defaults when the
// resulting config is built.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning yaml: %w", err)
	}
	return t, nil
}

// UniverseConfig builds the simulation config. seed overrides the file
// value when non-zero. Validation happens in universe.New.
func (t Tuning) UniverseConfig(seed int64) universe.Config {
	if seed == 0 {
		seed = t.Seed
	}
	cleanup := true
	if t.Energy.CleanupDepleted != nil {
		cleanup = *t.Energy.CleanupDepleted
	}
	return universe.Config{
		Width:  t.World.Width,
		Height: t.World.Height,
		Seed:   seed,

		Ratio:                 t.Energy.Ratio,
		WasteFactor:           t.Energy.WasteFactor,
		VenomEnergyToToxicity: t.Energy.VenomEnergyToToxicity,
		FoodDegradeFactor:     t.Energy.FoodDegradeFactor,
		VenomDegradeFactor:    t.Energy.VenomDegradeFactor,
		CleanupDepleted:       cleanup,
		MaxNewFoods:           t.Energy.MaxNewFoods,
		MaxNewVenoms:          t.Energy.MaxNewVenoms,
		MinUnitFood:           t.Energy.MinUnitFood,
		MinUnitVenom:          t.Energy.MinUnitVenom,

		BoundaryMode:      universe.BoundaryMode(t.World.BoundaryMode),
		BounceRestitution: t.World.BounceRestitution,

		ContactResolution: universe.ContactResolution(t.Interaction.ContactResolution),
		GridCellSize:      t.Interaction.GridCellSize,
		EatRate:           t.Interaction.EatRate,
		PoisonRate:        t.Interaction.PoisonRate,

		PopulationCap:     t.World.PopulationCap,
		InitialCells:      t.World.InitialCells,
		InitialCellEnergy: t.World.InitialCellEnergy,

		Cell: universe.CellParams{
			BasalMetabolism:      t.Cell.BasalMetabolism,
			MoveCostPerUnit:      t.Cell.MoveCostPerUnit,
			DeathThreshold:       t.Cell.DeathThreshold,
			MaxAge:               t.Cell.MaxAge,
			ReproEnergyThreshold: t.Cell.ReproEnergyThreshold,
			ReproAgeThreshold:    t.Cell.ReproAgeThreshold,
			ReproProbability:     t.Cell.ReproProbability,
			ReproFraction:        t.Cell.ReproFraction,
			ReproOverhead:        t.Cell.ReproOverhead,
			OffspringOffset:      t.Cell.OffspringOffset,

			ColorMutationRate:     t.Cell.ColorMutationRate,
			ColorMutationStrength: t.Cell.ColorMutationStrength,

			AccelTheta:      t.Cell.AccelTheta,
			AccelSigma:      t.Cell.AccelSigma,
			VelocityDamping: t.Cell.VelocityDamping,
			FoodAttraction:  t.Cell.FoodAttraction,
			VisionRadius:    t.Cell.VisionRadius,
			MaxSpeed:        t.Cell.MaxSpeed,
		},

		PolicyTimeout: time.Duration(t.Policy.TimeoutMs) * time.Millisecond,
	}
}

// applyFrom fills the tuning from a simulation config (used for defaults).
func (t *Tuning) applyFrom(c universe.Config) {
	t.Seed = c.Seed

	t.World = World{
		Width:             c.Width,
		Height:            c.Height,
		BoundaryMode:      string(c.BoundaryMode),
		BounceRestitution: c.BounceRestitution,
		PopulationCap:     c.PopulationCap,
		InitialCells:      c.InitialCells,
		InitialCellEnergy: c.InitialCellEnergy,
	}
	cleanup := c.CleanupDepleted
	t.Energy = Energy{
		Ratio:                 c.Ratio,
		WasteFactor:           c.WasteFactor,
		VenomEnergyToToxicity: c.VenomEnergyToToxicity,
		FoodDegradeFactor:     c.FoodDegradeFactor,
		VenomDegradeFactor:    c.VenomDegradeFactor,
		CleanupDepleted:       &cleanup,
		MaxNewFoods:           c.MaxNewFoods,
		MaxNewVenoms:          c.MaxNewVenoms,
		MinUnitFood:           c.MinUnitFood,
		MinUnitVenom:          c.MinUnitVenom,
	}
	t.Interaction = Interaction{
		ContactResolution: string(c.ContactResolution),
		GridCellSize:      c.GridCellSize,
		EatRate:           c.EatRate,
		PoisonRate:        c.PoisonRate,
	}
	t.Cell = Cell{
		BasalMetabolism:       c.Cell.BasalMetabolism,
		MoveCostPerUnit:       c.Cell.MoveCostPerUnit,
		DeathThreshold:        c.Cell.DeathThreshold,
		MaxAge:                c.Cell.MaxAge,
		ReproEnergyThreshold:  c.Cell.ReproEnergyThreshold,
		ReproAgeThreshold:     c.Cell.ReproAgeThreshold,
		ReproProbability:      c.Cell.ReproProbability,
		ReproFraction:         c.Cell.ReproFraction,
		ReproOverhead:         c.Cell.ReproOverhead,
		OffspringOffset:       c.Cell.OffspringOffset,
		ColorMutationRate:     c.Cell.ColorMutationRate,
		ColorMutationStrength: c.Cell.ColorMutationStrength,
		AccelTheta:            c.Cell.AccelTheta,
		AccelSigma:            c.Cell.AccelSigma,
		VelocityDamping:       c.Cell.VelocityDamping,
		FoodAttraction:        c.Cell.FoodAttraction,
		VisionRadius:          c.Cell.VisionRadius,
		MaxSpeed:              c.Cell.MaxSpeed,
	}
	t.Policy = Policy{TimeoutMs: int(c.PolicyTimeout / time.Millisecond)}
}

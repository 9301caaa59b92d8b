package universe

import (
	"math"
	"math/rand"
)

// Color is a heritable RGB trait, channels in [0,1]. Offspring copy it
// unless a per-channel mutation fires.
type Color struct {
	R float64
	G float64
	B float64
}

// CellParams are the per-instance tunables. Offspring inherit the parent's
// params unchanged; only Color mutates.
type CellParams struct {
	BasalMetabolism float64
	MoveCostPerUnit float64
	DeathThreshold  float64
	MaxAge          int

	ReproEnergyThreshold float64
	ReproAgeThreshold    int
	ReproProbability     float64
	ReproFraction        float64
	ReproOverhead        float64
	OffspringOffset      float64

	ColorMutationRate     float64
	ColorMutationStrength float64

	// Movement process constants.
	AccelTheta      float64 // mean reversion strength toward zero acceleration
	AccelSigma      float64 // per-axis gaussian noise scale
	VelocityDamping float64
	FoodAttraction  float64 // blend weight toward nearest visible food
	VisionRadius    float64
	MaxSpeed        float64
}

// Cell is a mobile energy-consuming agent. It mutates only itself during
// its own turn; the universe owns the live collection.
type Cell struct {
	ID     string
	Energy float64
	Age    int
	Pos    Vec2
	Vel    Vec2
	Acc    Vec2
	Color  Color
	Params CellParams

	dead bool
}

func (c *Cell) Dead() bool { return c.dead }

// Radius follows the same diameter-as-energy convention as resources.
func (c *Cell) Radius() float64 { return c.Energy / 2 }

func (c *Cell) View() CellView {
	return CellView{ID: c.ID, Energy: c.Energy, Age: c.Age, Pos: c.Pos, Vel: c.Vel}
}

func (c *Cell) die() {
	c.dead = true
	c.Energy = 0
}

// Step runs one tick of the cell's life in fixed order: metabolism, death
// check, movement, reproduction. A non-nil external velocity (from a
// movement policy, already vetted by the runner) replaces the built-in
// heuristic for this tick. Returns the offspring cell, or nil.
func (c *Cell) Step(rng *rand.Rand, external *Vec2, nearestFood *ResourceView, newID func() string) *Cell {
	if c.dead {
		return nil
	}

	c.Age++
	c.Energy -= c.Params.BasalMetabolism + c.Params.MoveCostPerUnit*c.Vel.Len()

	if c.Age >= c.Params.MaxAge || c.Energy <= c.Params.DeathThreshold {
		c.die()
		return nil
	}

	if external != nil {
		c.Vel = *external
	} else {
		c.stepHeuristic(rng, nearestFood)
	}
	c.clampSpeed()
	c.Pos = c.Pos.Add(c.Vel)

	return c.stepReproduction(rng, newID)
}

// stepHeuristic updates velocity with a mean-reverting (Ornstein-Uhlenbeck)
// acceleration walk, damped integration, and an optional attraction blend
// toward the nearest visible food.
func (c *Cell) stepHeuristic(rng *rand.Rand, nearestFood *ResourceView) {
	p := c.Params
	c.Acc.X += p.AccelTheta*(0-c.Acc.X) + p.AccelSigma*rng.NormFloat64()
	c.Acc.Y += p.AccelTheta*(0-c.Acc.Y) + p.AccelSigma*rng.NormFloat64()

	c.Vel = c.Vel.Add(c.Acc).Scale(p.VelocityDamping)

	if nearestFood != nil && p.FoodAttraction > 0 {
		speed := c.Vel.Len()
		if speed > 1e-9 {
			dir := Vec2{nearestFood.Pos.X - c.Pos.X, nearestFood.Pos.Y - c.Pos.Y}.Normalized()
			blended := c.Vel.Scale(1 - p.FoodAttraction).Add(dir.Scale(p.FoodAttraction * speed))
			c.Vel = blended.Normalized().Scale(speed)
		}
	}
}

func (c *Cell) clampSpeed() {
	if c.Params.MaxSpeed <= 0 {
		return
	}
	if speed := c.Vel.Len(); speed > c.Params.MaxSpeed {
		c.Vel = c.Vel.Scale(c.Params.MaxSpeed / speed)
	}
}

// stepReproduction runs the reproduction protocol. Death pre-empts
// reproduction: if paying for the offspring would leave the parent at or
// below zero, the offspring is discarded and the parent dies instead.
func (c *Cell) stepReproduction(rng *rand.Rand, newID func() string) *Cell {
	p := c.Params
	if c.Energy < p.ReproEnergyThreshold || c.Age < p.ReproAgeThreshold {
		return nil
	}
	if rng.Float64() >= p.ReproProbability {
		return nil
	}

	childEnergy := c.Energy * p.ReproFraction
	c.Energy -= childEnergy + p.ReproOverhead
	if c.Energy <= 0 {
		c.die()
		return nil
	}

	angle := rng.Float64() * 2 * math.Pi
	speed := rng.Float64() * p.MaxSpeed * 0.5
	off := p.OffspringOffset
	child := &Cell{
		ID:     newID(),
		Energy: childEnergy,
		Pos: Vec2{
			X: c.Pos.X + (rng.Float64()*2-1)*off,
			Y: c.Pos.Y + (rng.Float64()*2-1)*off,
		},
		Vel:    Vec2{math.Cos(angle) * speed, math.Sin(angle) * speed},
		Color:  c.mutatedColor(rng),
		Params: c.Params,
	}
	return child
}

func (c *Cell) mutatedColor(rng *rand.Rand) Color {
	p := c.Params
	mutate := func(v float64) float64 {
		if rng.Float64() >= p.ColorMutationRate {
			return v
		}
		v += (rng.Float64()*2 - 1) * p.ColorMutationStrength
		return math.Min(1, math.Max(0, v))
	}
	return Color{R: mutate(c.Color.R), G: mutate(c.Color.G), B: mutate(c.Color.B)}
}

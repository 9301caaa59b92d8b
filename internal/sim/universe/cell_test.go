package universe

import (
	"math/rand"
	"testing"
)

func testCell(energy float64) *Cell {
	cfg := DefaultConfig()
	return &Cell{
		ID:     "C1",
		Energy: energy,
		Pos:    Vec2{50, 50},
		Params: cfg.Cell,
	}
}

func noID() string { return "C-child" }

func TestCell_MetabolismAgesAndDrains(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	c := testCell(10)
	c.Params.ReproProbability = 0
	c.Vel = Vec2{1, 0}

	before := c.Energy
	c.Step(rng, nil, nil, noID)

	if c.Age != 1 {
		t.Fatalf("age=%d, want 1", c.Age)
	}
	if c.Energy >= before {
		t.Fatalf("energy did not drain: %v -> %v", before, c.Energy)
	}
}

func TestCell_DeathShortCircuitsReproduction(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	c := testCell(0.01)
	// Guarantee the trial would otherwise succeed.
	c.Params.ReproProbability = 1
	c.Params.ReproEnergyThreshold = 0
	c.Params.ReproAgeThreshold = 0
	c.Params.BasalMetabolism = 1

	child := c.Step(rng, nil, nil, noID)
	if child != nil {
		t.Fatalf("dead cell returned offspring")
	}
	if !c.Dead() {
		t.Fatalf("cell should be dead")
	}
	if c.Energy != 0 {
		t.Fatalf("dead cell energy=%v, want 0", c.Energy)
	}
}

func TestCell_MaxAgeIsFatal(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	c := testCell(100)
	c.Params.MaxAge = 3
	c.Params.ReproProbability = 0

	for i := 0; i < 3; i++ {
		c.Step(rng, nil, nil, noID)
	}
	if !c.Dead() {
		t.Fatalf("cell should die at max age, age=%d", c.Age)
	}
}

func TestCell_ReproductionDeductsEnergy(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	c := testCell(40)
	c.Age = 20
	c.Params.ReproProbability = 1
	c.Params.BasalMetabolism = 0
	c.Params.MoveCostPerUnit = 0

	child := c.Step(rng, nil, nil, func() string { return "C2" })
	if child == nil {
		t.Fatalf("expected offspring")
	}
	if child.ID != "C2" || child.Age != 0 {
		t.Fatalf("bad offspring identity: id=%s age=%d", child.ID, child.Age)
	}
	wantChild := 40 * c.Params.ReproFraction
	if child.Energy != wantChild {
		t.Fatalf("child energy=%v, want %v", child.Energy, wantChild)
	}
	wantParent := 40 - wantChild - c.Params.ReproOverhead
	if c.Energy != wantParent {
		t.Fatalf("parent energy=%v, want %v", c.Energy, wantParent)
	}
	if child.Params != c.Params {
		t.Fatalf("offspring must inherit parent params")
	}
}

func TestCell_ReproductionDeathPreemption(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	c := testCell(30)
	c.Age = 20
	c.Params.ReproProbability = 1
	c.Params.ReproEnergyThreshold = 10
	c.Params.BasalMetabolism = 0
	c.Params.MoveCostPerUnit = 0
	// Overhead large enough that paying for the child kills the parent.
	c.Params.ReproFraction = 0.5
	c.Params.ReproOverhead = 100

	child := c.Step(rng, nil, nil, noID)
	if child != nil {
		t.Fatalf("reproduction that kills the parent must return no offspring")
	}
	if !c.Dead() || c.Energy != 0 {
		t.Fatalf("parent should be dead with energy 0, got dead=%v energy=%v", c.Dead(), c.Energy)
	}
}

func TestCell_SpeedClampedUnderExternalVelocity(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	c := testCell(50)
	c.Params.ReproProbability = 0
	c.Params.MaxSpeed = 2

	ext := Vec2{100, 0}
	c.Step(rng, &ext, nil, noID)
	if got := c.Vel.Len(); got > 2+1e-9 {
		t.Fatalf("speed %v exceeds clamp 2", got)
	}
}

func TestCell_FoodAttractionTurnsToward(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	c := testCell(50)
	c.Params.ReproProbability = 0
	c.Params.AccelSigma = 0 // no noise, pure attraction geometry
	c.Params.FoodAttraction = 1
	c.Vel = Vec2{0, 1}

	food := &ResourceView{ID: "F1", Value: 5, Pos: Vec2{60, 50}}
	c.Step(rng, nil, food, noID)

	if c.Vel.X <= 0 {
		t.Fatalf("velocity should turn toward food at +x, got %+v", c.Vel)
	}
}

func TestCell_ColorMutationStaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	c := testCell(80)
	c.Color = Color{R: 0.01, G: 0.99, B: 0.5}
	c.Params.ColorMutationRate = 1
	c.Params.ColorMutationStrength = 0.5

	for i := 0; i < 100; i++ {
		col := c.mutatedColor(rng)
		for _, ch := range []float64{col.R, col.G, col.B} {
			if ch < 0 || ch > 1 {
				t.Fatalf("mutated channel out of range: %+v", col)
			}
		}
	}
}

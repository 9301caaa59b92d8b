package universe

// ContactResolution selects how many simultaneous contacts a cell resolves
// per tick.
type ContactResolution string

const (
	// ResolveAll resolves every food and venom contact in range.
	ResolveAll ContactResolution = "all"
	// ResolveNearest resolves at most one food and one venom, nearest each.
	ResolveNearest ContactResolution = "nearest"
)

// interactions resolves contact-based transfers for one tick using the
// per-tick resource grids. Cell energy and resource values never go
// negative.
type interactions struct {
	resolution ContactResolution
	eatRate    float64
	poisonRate float64

	foods  *Grid[*Food]
	venoms *Grid[*Venom]

	// Largest resource radius in each grid this tick. Querying with
	// cellRadius+pad guarantees no in-contact resource is missed before
	// the exact per-item radius check.
	foodPad  float64
	venomPad float64

	// scratch buffers reused across cells within a tick
	foodHits  []*Food
	venomHits []*Venom
}

// apply resolves all of the cell's contacts for this tick.
func (ie *interactions) apply(c *Cell) {
	if c.dead {
		return
	}

	ie.foodHits = ie.foods.Query(c.Pos, c.Radius()+ie.foodPad, ie.foodHits[:0])
	ie.venomHits = ie.venoms.Query(c.Pos, c.Radius()+ie.venomPad, ie.venomHits[:0])

	foods := ie.foodHits
	venoms := ie.venomHits
	if ie.resolution == ResolveNearest {
		foods = nearestFoodContact(c, foods)
		venoms = nearestVenomContact(c, venoms)
	}

	for _, f := range foods {
		if !inContact(c.Pos, f.Pos, c.Radius()+f.Radius()) {
			continue
		}
		ie.eat(c, f)
	}
	for _, v := range venoms {
		if !inContact(c.Pos, v.Pos, c.Radius()+v.Radius()) {
			continue
		}
		ie.poison(c, v)
	}
}

// eat transfers energy from food to cell. The rate scales with a size
// ratio: a large cell eats a small food item proportionally faster, and
// the transfer never exceeds the food's remaining energy.
func (ie *interactions) eat(c *Cell, f *Food) {
	if f.Energy <= 0 {
		return
	}
	sizeFactor := c.Energy / (c.Energy + f.Energy + 1e-9)
	amt := f.Energy * ie.eatRate * 2 * sizeFactor
	if amt > f.Energy {
		amt = f.Energy
	}
	if amt <= 0 {
		return
	}
	f.Energy -= amt
	c.Energy += amt
}

// poison applies venom damage. Potency scales against the cell's current
// energy, so weaker cells take proportionally more damage. The venom
// expends what it deals; cell energy clamps at 0.
func (ie *interactions) poison(c *Cell, v *Venom) {
	if v.Toxicity <= 0 || c.Energy <= 0 {
		return
	}
	potency := v.Toxicity / (v.Toxicity + c.Energy + 1e-9)
	dmg := v.Toxicity * ie.poisonRate * 2 * potency
	if dmg > v.Toxicity {
		dmg = v.Toxicity
	}
	if dmg <= 0 {
		return
	}
	v.Toxicity -= dmg
	c.Energy -= dmg
	if c.Energy < 0 {
		c.Energy = 0
	}
}

func inContact(a, b Vec2, radii float64) bool { return dist(a, b) <= radii }

func nearestFoodContact(c *Cell, foods []*Food) []*Food {
	var best *Food
	bestD := 0.0
	for _, f := range foods {
		d := dist(c.Pos, f.Pos)
		if d > c.Radius()+f.Radius() {
			continue
		}
		if best == nil || d < bestD {
			best, bestD = f, d
		}
	}
	if best == nil {
		return nil
	}
	return []*Food{best}
}

func nearestVenomContact(c *Cell, venoms []*Venom) []*Venom {
	var best *Venom
	bestD := 0.0
	for _, v := range venoms {
		d := dist(c.Pos, v.Pos)
		if d > c.Radius()+v.Radius() {
			continue
		}
		if best == nil || d < bestD {
			best, bestD = v, d
		}
	}
	if best == nil {
		return nil
	}
	return []*Venom{best}
}

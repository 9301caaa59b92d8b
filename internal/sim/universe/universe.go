package universe

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
)

// Universe is a single-threaded, turn-based simulation. All state must be
// accessed only from the goroutine driving Step (or the Run loop).
type Universe struct {
	cfg Config
	rng *rand.Rand

	tick   uint64
	ledger float64 // running total of all energy ever injected

	cells  []*Cell
	foods  []*Food
	venoms []*Venom

	inter  interactions
	runner policyRunner

	nextCellNum  uint64
	nextFoodNum  uint64
	nextVenomNum uint64

	births        uint64
	deaths        uint64
	overflowDrops uint64

	// Loop plumbing (see loop.go). May stay unused when the caller drives
	// Step directly.
	observerJoin  chan ObserverJoinRequest
	observerLeave chan string
	observers     map[string]*observerState
	stop          chan struct{}
	stopOnce      sync.Once

	tickSink TickSink
	logger   *log.Logger

	// scratch
	hoodFoods  []ResourceView
	hoodVenoms []ResourceView
}

// StepResult reports what one tick created, for observability.
type StepResult struct {
	Foods     []*Food
	Venoms    []*Venom
	Offspring []*Cell
}

// TickSink receives one entry per completed tick (tick log, run index).
// A nil sink disables recording. Sink errors are logged, never fatal.
type TickSink interface {
	WriteTick(e TickLogEntry) error
}

// TickLogEntry is the recorded per-tick summary.
type TickLogEntry struct {
	Tick      uint64   `json:"tick"`
	Ledger    float64  `json:"ledger"`
	Cells     int      `json:"cells"`
	Foods     int      `json:"foods"`
	Venoms    int      `json:"venoms"`
	NewFoods  []string `json:"new_foods,omitempty"`
	NewVenoms []string `json:"new_venoms,omitempty"`
	NewCells  []string `json:"new_cells,omitempty"`
	Digest    string   `json:"digest"`
}

// New validates cfg and builds a universe with its initial population.
// The only terminal error class is ConfigError; once New succeeds, no
// per-tick condition aborts the simulation.
func New(cfg Config) (*Universe, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	u := &Universe{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
		inter: interactions{
			resolution: cfg.ContactResolution,
			eatRate:    cfg.EatRate,
			poisonRate: cfg.PoisonRate,
		},
		runner:        policyRunner{timeout: cfg.PolicyTimeout},
		observerJoin:  make(chan ObserverJoinRequest, 4),
		observerLeave: make(chan string, 4),
		observers:     make(map[string]*observerState),
		stop:          make(chan struct{}),
	}
	for i := 0; i < cfg.InitialCells; i++ {
		u.AddCell(u.newCell(cfg.InitialCellEnergy, u.randPos()))
	}
	return u, nil
}

// SetMovementPolicy installs an external movement source. Must be called
// before the first tick. A nil policy restores the built-in heuristic.
func (u *Universe) SetMovementPolicy(p MovementPolicy) { u.runner.policy = p }

func (u *Universe) SetTickSink(s TickSink) { u.tickSink = s }

func (u *Universe) SetLogger(l *log.Logger) {
	u.logger = l
	u.runner.log = l
}

func (u *Universe) Config() Config        { return u.cfg }
func (u *Universe) CurrentTick() uint64   { return u.tick }
func (u *Universe) Ledger() float64       { return u.ledger }
func (u *Universe) Births() uint64        { return u.births }
func (u *Universe) Deaths() uint64        { return u.deaths }
func (u *Universe) OverflowDrops() uint64 { return u.overflowDrops }
func (u *Universe) PolicyFailures() uint64 {
	return u.runner.failures
}

// Counts returns live cells, foods, venoms.
func (u *Universe) Counts() (cells, foods, venoms int) {
	return len(u.cells), len(u.foods), len(u.venoms)
}

// AddCell hands ownership of c to the universe. Used for seeding and by
// tests; offspring merging during a tick goes through the buffered path in
// Step instead.
func (u *Universe) AddCell(c *Cell) { u.cells = append(u.cells, c) }

func (u *Universe) AddFood(f *Food)   { u.foods = append(u.foods, f) }
func (u *Universe) AddVenom(v *Venom) { u.venoms = append(u.venoms, v) }

func (u *Universe) newCell(energy float64, pos Vec2) *Cell {
	u.nextCellNum++
	return &Cell{
		ID:     fmt.Sprintf("C%d", u.nextCellNum),
		Energy: energy,
		Pos:    pos,
		Color:  Color{R: u.rng.Float64(), G: u.rng.Float64(), B: u.rng.Float64()},
		Params: u.cfg.Cell,
	}
}

func (u *Universe) newCellID() string {
	u.nextCellNum++
	return fmt.Sprintf("C%d", u.nextCellNum)
}

func (u *Universe) randPos() Vec2 {
	return Vec2{
		X: u.rng.Float64() * u.cfg.Width,
		Y: u.rng.Float64() * u.cfg.Height,
	}
}

// Step advances the simulation by one tick:
//
//  1. rebuild the resource grids from the live collections
//  2. per live cell (stable snapshot): Cell.Step, boundary policy,
//     interactions; buffer offspring
//  3. merge buffered offspring under the population cap
//  4. partition inputEnergy into new food and venom; grow the ledger
//  5. degrade resources, remove depleted resources and dead cells
//
// Boundary correction deliberately runs before interaction resolution so
// interactions always see in-bounds positions.
func (u *Universe) Step(inputEnergy float64) StepResult {
	u.tick++
	u.rebuildGrids()

	var offspring []*Cell
	live := u.cells // stable snapshot: offspring merge happens after the pass
	for _, c := range live {
		if c.dead {
			continue
		}
		hood := u.neighborhood(c)
		ext := u.decideExternal(c, hood)
		child := c.Step(u.rng, ext, nearestFoodView(c.Pos, hood.Foods), u.newCellID)
		u.enforceBounds(c)
		u.inter.apply(c)
		if child != nil {
			offspring = append(offspring, child)
		}
	}

	merged := u.mergeOffspring(offspring)

	res := StepResult{Offspring: merged}
	res.Foods, res.Venoms = u.spawnResources(inputEnergy)
	u.ledger += inputEnergy

	u.degradeAndCleanup()
	return res
}

func (u *Universe) rebuildGrids() {
	maxCellR := 0.0
	for _, c := range u.cells {
		if r := c.Radius(); r > maxCellR {
			maxCellR = r
		}
	}
	foodPad, venomPad := 0.0, 0.0
	for _, f := range u.foods {
		if r := f.Radius(); r > foodPad {
			foodPad = r
		}
	}
	for _, v := range u.venoms {
		if r := v.Radius(); r > venomPad {
			venomPad = r
		}
	}

	// The 3x3 scan contract needs cellSize >= the largest interaction
	// query radius; grow the bucket size when entities outgrow the
	// configured one.
	size := u.cfg.GridCellSize
	if need := maxCellR + foodPad; need > size {
		size = need
	}
	if need := maxCellR + venomPad; need > size {
		size = need
	}

	foodGrid := NewGrid(size, func(f *Food) Vec2 { return f.Pos })
	for _, f := range u.foods {
		if f.Energy > 0 {
			foodGrid.Insert(f)
		}
	}
	venomGrid := NewGrid(size, func(v *Venom) Vec2 { return v.Pos })
	for _, v := range u.venoms {
		if v.Toxicity > 0 {
			venomGrid.Insert(v)
		}
	}
	u.inter.foods = foodGrid
	u.inter.venoms = venomGrid
	u.inter.foodPad = foodPad
	u.inter.venomPad = venomPad
}

// neighborhood collects the food and venom visible to c. The backing
// slices are reused across cells within a tick; policies must not retain
// them past the call.
func (u *Universe) neighborhood(c *Cell) Neighborhood {
	u.hoodFoods = u.hoodFoods[:0]
	u.hoodVenoms = u.hoodVenoms[:0]
	r := c.Params.VisionRadius
	if r <= 0 {
		return Neighborhood{}
	}
	for _, f := range u.inter.foods.Query(c.Pos, r, nil) {
		u.hoodFoods = append(u.hoodFoods, ResourceView{ID: f.ID, Value: f.Energy, Pos: f.Pos})
	}
	for _, v := range u.inter.venoms.Query(c.Pos, r, nil) {
		u.hoodVenoms = append(u.hoodVenoms, ResourceView{ID: v.ID, Value: v.Toxicity, Pos: v.Pos})
	}
	return Neighborhood{Foods: u.hoodFoods, Venoms: u.hoodVenoms}
}

// decideExternal consults the installed movement policy, substituting
// bounded jitter when the policy fails. Returns nil when no policy is
// installed, selecting the built-in heuristic.
func (u *Universe) decideExternal(c *Cell, hood Neighborhood) *Vec2 {
	if u.runner.policy == nil {
		return nil
	}
	v, ok := u.runner.decide(c.View(), hood)
	if !ok {
		v = fallbackVelocity(u.rng, c.Params.MaxSpeed)
	}
	return &v
}

func nearestFoodView(pos Vec2, foods []ResourceView) *ResourceView {
	var best *ResourceView
	bestD := 0.0
	for i := range foods {
		d := dist(pos, foods[i].Pos)
		if best == nil || d < bestD {
			best, bestD = &foods[i], d
		}
	}
	return best
}

func (u *Universe) mergeOffspring(offspring []*Cell) []*Cell {
	var merged []*Cell
	for _, child := range offspring {
		if len(u.cells) >= u.cfg.PopulationCap {
			// Parent already paid the energy cost; the loss is accepted
			// and surfaced through the overflow counter.
			u.overflowDrops++
			continue
		}
		// The birth offset can land past the wall when the parent sits on
		// the boundary; newborns obey the boundary policy like everyone.
		u.enforceBounds(child)
		u.cells = append(u.cells, child)
		merged = append(merged, child)
		u.births++
	}
	return merged
}

func (u *Universe) spawnResources(inputEnergy float64) ([]*Food, []*Venom) {
	usable := inputEnergy * u.cfg.WasteFactor * (0.8 + u.rng.Float64()*0.19)
	ef := usable * u.cfg.Ratio
	ev := usable * (1.0 - u.cfg.Ratio)

	var foods []*Food
	for _, e := range Partition(u.rng, ef, u.cfg.MinUnitFood, u.cfg.MaxNewFoods) {
		u.nextFoodNum++
		f := &Food{
			ID:     fmt.Sprintf("F%d", u.nextFoodNum),
			Energy: e,
			Pos:    u.randPos(),
		}
		u.foods = append(u.foods, f)
		foods = append(foods, f)
	}

	var venoms []*Venom
	for _, e := range Partition(u.rng, ev, u.cfg.MinUnitVenom, u.cfg.MaxNewVenoms) {
		u.nextVenomNum++
		v := &Venom{
			ID:       fmt.Sprintf("V%d", u.nextVenomNum),
			Toxicity: e * u.cfg.VenomEnergyToToxicity,
			Pos:      u.randPos(),
		}
		u.venoms = append(u.venoms, v)
		venoms = append(venoms, v)
	}
	return foods, venoms
}

func (u *Universe) degradeAndCleanup() {
	for _, f := range u.foods {
		f.Degrade(u.cfg.FoodDegradeFactor)
	}
	for _, v := range u.venoms {
		v.Degrade(u.cfg.VenomDegradeFactor)
	}

	if u.cfg.CleanupDepleted {
		foods := u.foods[:0]
		for _, f := range u.foods {
			if f.Energy > 0 {
				foods = append(foods, f)
			}
		}
		u.foods = foods

		venoms := u.venoms[:0]
		for _, v := range u.venoms {
			if v.Toxicity > 0 {
				venoms = append(venoms, v)
			}
		}
		u.venoms = venoms
	}

	cells := u.cells[:0]
	for _, c := range u.cells {
		if c.dead {
			u.deaths++
			continue
		}
		cells = append(cells, c)
	}
	u.cells = cells
}

// enforceBounds applies the configured boundary policy to a cell that
// stepped outside [0,width] x [0,height].
func (u *Universe) enforceBounds(c *Cell) {
	w, h := u.cfg.Width, u.cfg.Height
	switch u.cfg.BoundaryMode {
	case BoundaryWrap:
		if c.Pos.X > w {
			c.Pos.X -= w
		} else if c.Pos.X < 0 {
			c.Pos.X += w
		}
		if c.Pos.Y > h {
			c.Pos.Y -= h
		} else if c.Pos.Y < 0 {
			c.Pos.Y += h
		}
	default: // bounce
		r := u.cfg.BounceRestitution
		if c.Pos.X > w {
			c.Pos.X = w
			c.Vel.X = -c.Vel.X * r
		} else if c.Pos.X < 0 {
			c.Pos.X = 0
			c.Vel.X = -c.Vel.X * r
		}
		if c.Pos.Y > h {
			c.Pos.Y = h
			c.Vel.Y = -c.Vel.Y * r
		} else if c.Pos.Y < 0 {
			c.Pos.Y = 0
			c.Vel.Y = -c.Vel.Y * r
		}
	}
}

// InputEnergy draws the per-tick energy injection for the Run loop.
func (u *Universe) InputEnergy(min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + u.rng.Float64()*(max-min)
}

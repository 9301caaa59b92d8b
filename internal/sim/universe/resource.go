package universe

// depletionEpsilon is the floor below which a degraded resource value snaps
// to exactly 0 and the resource becomes eligible for cleanup.
const depletionEpsilon = 0.01

// Food is a beneficial resource. Its contact radius follows the
// diameter-as-energy convention: radius = energy/2.
type Food struct {
	ID     string
	Energy float64
	Pos    Vec2
}

func (f *Food) Radius() float64 { return f.Energy / 2 }

// Degrade multiplies remaining energy by factor and floors sub-epsilon
// values to exactly 0. Degrading a depleted food is a no-op.
func (f *Food) Degrade(factor float64) {
	f.Energy *= factor
	if f.Energy < depletionEpsilon {
		f.Energy = 0
	}
}

// Venom is a harmful resource. Contact radius = toxicity/2.
type Venom struct {
	ID       string
	Toxicity float64
	Pos      Vec2
}

func (v *Venom) Radius() float64 { return v.Toxicity / 2 }

func (v *Venom) Degrade(factor float64) {
	v.Toxicity *= factor
	if v.Toxicity < depletionEpsilon {
		v.Toxicity = 0
	}
}

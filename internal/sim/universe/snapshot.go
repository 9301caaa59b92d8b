package universe

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"

	"cellarium.dev/internal/protocol"
)

// Snapshot exports the current state for rendering/recording/reporting
// collaborators. It never mutates simulation state.
func (u *Universe) Snapshot() protocol.SnapshotMsg {
	msg := protocol.SnapshotMsg{
		Type:            protocol.TypeSnapshot,
		ProtocolVersion: protocol.Version,
		Tick:            u.tick,
		Bounds:          [2]float64{u.cfg.Width, u.cfg.Height},
		Ledger:          u.ledger,
		Foods:           make([]protocol.FoodState, 0, len(u.foods)),
		Venoms:          make([]protocol.VenomState, 0, len(u.venoms)),
		Cells:           make([]protocol.CellState, 0, len(u.cells)),
	}
	for _, f := range u.foods {
		msg.Foods = append(msg.Foods, protocol.FoodState{
			ID:     f.ID,
			Energy: f.Energy,
			Pos:    [2]float64{f.Pos.X, f.Pos.Y},
		})
	}
	for _, v := range u.venoms {
		msg.Venoms = append(msg.Venoms, protocol.VenomState{
			ID:       v.ID,
			Toxicity: v.Toxicity,
			Pos:      [2]float64{v.Pos.X, v.Pos.Y},
		})
	}
	for _, c := range u.cells {
		msg.Cells = append(msg.Cells, protocol.CellState{
			ID:       c.ID,
			Energy:   c.Energy,
			Age:      c.Age,
			Pos:      [2]float64{c.Pos.X, c.Pos.Y},
			Vel:      [2]float64{c.Vel.X, c.Vel.Y},
			Diameter: c.Energy,
			Color:    [3]float64{c.Color.R, c.Color.G, c.Color.B},
		})
	}
	return msg
}

// StateDigest hashes the canonical state for determinism tests and replay
// verification. Two universes with the same seed and input stream produce
// identical digests tick for tick.
func (u *Universe) StateDigest() string {
	h := sha256.New()
	var tmp [8]byte

	writeU64 := func(x uint64) {
		binary.LittleEndian.PutUint64(tmp[:], x)
		h.Write(tmp[:])
	}
	writeF64 := func(f float64) { writeU64(math.Float64bits(f)) }

	writeU64(u.tick)
	writeF64(u.ledger)

	writeU64(uint64(len(u.cells)))
	for _, c := range u.cells {
		h.Write([]byte(c.ID))
		writeF64(c.Energy)
		writeU64(uint64(c.Age))
		writeF64(c.Pos.X)
		writeF64(c.Pos.Y)
		writeF64(c.Vel.X)
		writeF64(c.Vel.Y)
	}
	writeU64(uint64(len(u.foods)))
	for _, f := range u.foods {
		h.Write([]byte(f.ID))
		writeF64(f.Energy)
		writeF64(f.Pos.X)
		writeF64(f.Pos.Y)
	}
	writeU64(uint64(len(u.venoms)))
	for _, v := range u.venoms {
		h.Write([]byte(v.ID))
		writeF64(v.Toxicity)
		writeF64(v.Pos.X)
		writeF64(v.Pos.Y)
	}
	return hex.EncodeToString(h.Sum(nil))
}

package protocol

// SubscribeMsg opens (or retunes) an observer session. EveryTicks thins
// the stream: 1 or 0 means every tick.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	EveryTicks      int    `json:"every_ticks,omitempty"`
}

// SnapshotMsg is the read-only per-tick state export. Lists are ordered
// (insertion order, deterministic under a fixed seed).
type SnapshotMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	Tick            uint64       `json:"tick"`
	Bounds          [2]float64   `json:"bounds"` // width, height
	Ledger          float64      `json:"ledger"`
	Foods           []FoodState  `json:"foods"`
	Venoms          []VenomState `json:"venoms"`
	Cells           []CellState  `json:"cells"`
}

type FoodState struct {
	ID     string     `json:"id"`
	Energy float64    `json:"energy"`
	Pos    [2]float64 `json:"position"`
}

type VenomState struct {
	ID       string     `json:"id"`
	Toxicity float64    `json:"toxicity"`
	Pos      [2]float64 `json:"position"`
}

type CellState struct {
	ID       string     `json:"id"`
	Energy   float64    `json:"energy"`
	Age      int        `json:"age"`
	Pos      [2]float64 `json:"position"`
	Vel      [2]float64 `json:"velocity"`
	Diameter float64    `json:"diameter"`
	Color    [3]float64 `json:"color"` // rgb, each in [0,1]
}

// BootstrapResponse is served over plain HTTP so observers can learn the
// world parameters before subscribing.
type BootstrapResponse struct {
	ProtocolVersion string     `json:"protocol_version"`
	Tick            uint64     `json:"tick"`
	Bounds          [2]float64 `json:"bounds"`
	Seed            int64      `json:"seed"`
}

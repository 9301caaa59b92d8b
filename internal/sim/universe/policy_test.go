package universe

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

type fixedPolicy struct {
	vx, vy float64
}

func (p fixedPolicy) Decide(CellView, Neighborhood) (float64, float64, error) {
	return p.vx, p.vy, nil
}

type failingPolicy struct{ err error }

func (p failingPolicy) Decide(CellView, Neighborhood) (float64, float64, error) {
	return 0, 0, p.err
}

type nanPolicy struct{}

func (nanPolicy) Decide(CellView, Neighborhood) (float64, float64, error) {
	return math.NaN(), 0, nil
}

type slowPolicy struct{ delay time.Duration }

func (p slowPolicy) Decide(CellView, Neighborhood) (float64, float64, error) {
	time.Sleep(p.delay)
	return 1, 1, nil
}

func TestPolicy_ExternalVelocityIsApplied(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialCells = 1
	cfg.Cell.MaxSpeed = 10
	cfg.Cell.ReproProbability = 0
	cfg.BoundaryMode = BoundaryWrap // bounce would flip the asserted velocity
	uni, err := New(cfg)
	if err != nil {
		t.Fatalf("universe: %v", err)
	}
	uni.SetMovementPolicy(fixedPolicy{vx: 3, vy: 0})

	uni.Step(0)
	snap := uni.Snapshot()
	if len(snap.Cells) != 1 {
		t.Fatalf("expected one live cell")
	}
	if snap.Cells[0].Vel != [2]float64{3, 0} {
		t.Fatalf("velocity=%v, want [3 0]", snap.Cells[0].Vel)
	}
}

func TestPolicy_OutputClampedToMaxSpeed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialCells = 1
	cfg.Cell.MaxSpeed = 2
	cfg.Cell.ReproProbability = 0
	uni, err := New(cfg)
	if err != nil {
		t.Fatalf("universe: %v", err)
	}
	uni.SetMovementPolicy(fixedPolicy{vx: 1000, vy: 1000})

	uni.Step(0)
	snap := uni.Snapshot()
	speed := math.Hypot(snap.Cells[0].Vel[0], snap.Cells[0].Vel[1])
	if speed > 2+1e-9 {
		t.Fatalf("speed %v exceeds clamp", speed)
	}
}

func TestPolicy_ErrorFallsBackAndCounts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialCells = 3
	uni, err := New(cfg)
	if err != nil {
		t.Fatalf("universe: %v", err)
	}
	uni.SetMovementPolicy(failingPolicy{err: errors.New("remote unavailable")})

	uni.Step(0)
	if uni.PolicyFailures() != 3 {
		t.Fatalf("policy failures=%d, want one per cell", uni.PolicyFailures())
	}
	// The tick completed: every cell aged.
	for _, c := range uni.Snapshot().Cells {
		if c.Age != 1 {
			t.Fatalf("cell %s did not complete its turn", c.ID)
		}
	}
}

func TestPolicy_NonFiniteOutputIsRejected(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialCells = 1
	uni, err := New(cfg)
	if err != nil {
		t.Fatalf("universe: %v", err)
	}
	uni.SetMovementPolicy(nanPolicy{})

	uni.Step(0)
	if uni.PolicyFailures() != 1 {
		t.Fatalf("non-finite output not counted as failure")
	}
	v := uni.Snapshot().Cells[0].Vel
	if math.IsNaN(v[0]) || math.IsNaN(v[1]) {
		t.Fatalf("NaN velocity leaked into the simulation: %v", v)
	}
}

func TestPolicy_TimeoutUsesFallback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialCells = 1
	cfg.PolicyTimeout = 5 * time.Millisecond
	uni, err := New(cfg)
	if err != nil {
		t.Fatalf("universe: %v", err)
	}
	uni.SetMovementPolicy(slowPolicy{delay: 200 * time.Millisecond})

	start := time.Now()
	uni.Step(0)
	if time.Since(start) > 150*time.Millisecond {
		t.Fatalf("tick blocked on a slow policy")
	}
	if uni.PolicyFailures() != 1 {
		t.Fatalf("timeout not counted as failure")
	}
}

func TestRun_FixedTickCountFeedsSink(t *testing.T) {
	cfg := DefaultConfig()
	uni, err := New(cfg)
	if err != nil {
		t.Fatalf("universe: %v", err)
	}
	var entries []TickLogEntry
	uni.SetTickSink(sinkFunc(func(e TickLogEntry) error {
		entries = append(entries, e)
		return nil
	}))

	if err := uni.Run(context.Background(), RunParams{Ticks: 5, InputMin: 1, InputMax: 7}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("sink saw %d entries, want 5", len(entries))
	}
	for i, e := range entries {
		if e.Tick != uint64(i+1) {
			t.Fatalf("entry %d has tick %d", i, e.Tick)
		}
		if e.Digest == "" {
			t.Fatalf("entry %d missing digest", i)
		}
	}
}

func TestRun_ContextCancelStopsBetweenTicks(t *testing.T) {
	uni, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("universe: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := uni.Run(ctx, RunParams{Ticks: 0}); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if uni.CurrentTick() != 0 {
		t.Fatalf("canceled run still ticked")
	}
}

func TestStop_IsIdempotentAndHaltsRun(t *testing.T) {
	uni, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("universe: %v", err)
	}
	uni.Stop()
	uni.Stop() // second call must not panic

	if err := uni.Run(context.Background(), RunParams{Ticks: 5}); err != nil {
		t.Fatalf("run after stop: %v", err)
	}
	if uni.CurrentTick() != 0 {
		t.Fatalf("stopped universe still ticked")
	}
}

type sinkFunc func(TickLogEntry) error

func (f sinkFunc) WriteTick(e TickLogEntry) error { return f(e) }

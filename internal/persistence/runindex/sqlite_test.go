package runindex

import (
	"path/filepath"
	"testing"

	"cellarium.dev/internal/sim/universe"
)

func TestIndex_RunLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	x, err := Open(path, "run-1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := x.StartRun(42, []byte(`{"seed":42}`)); err != nil {
		t.Fatalf("start run: %v", err)
	}
	for tick := uint64(1); tick <= 20; tick++ {
		err := x.WriteTick(universe.TickLogEntry{
			Tick:   tick,
			Ledger: float64(tick) * 3.5,
			Cells:  5,
			Foods:  int(tick),
			Digest: "d",
		})
		if err != nil {
			t.Fatalf("write tick %d: %v", tick, err)
		}
	}
	if err := x.FinishRun(RunTotals{FinalTick: 20, FinalLedger: 70, Births: 2, Deaths: 1}); err != nil {
		t.Fatalf("finish run: %v", err)
	}
	if err := x.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopen and confirm the writer goroutine drained everything.
	x2, err := Open(path, "run-1")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer x2.Close()

	last, err := x2.LastTick()
	if err != nil {
		t.Fatalf("last tick: %v", err)
	}
	if last.Tick != 20 || last.Ledger != 70 || last.Foods != 20 {
		t.Fatalf("last tick row mismatch: %+v", last)
	}

	var finalTick uint64
	var births uint64
	row := x2.db.QueryRow(`SELECT final_tick, births FROM runs WHERE run_id=?`, "run-1")
	if err := row.Scan(&finalTick, &births); err != nil {
		t.Fatalf("runs row: %v", err)
	}
	if finalTick != 20 || births != 2 {
		t.Fatalf("run totals mismatch: final_tick=%d births=%d", finalTick, births)
	}
}

func TestIndex_WriteTickUpserts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	x, err := Open(path, "run-1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := x.StartRun(1, []byte(`{}`)); err != nil {
		t.Fatalf("start run: %v", err)
	}

	_ = x.WriteTick(universe.TickLogEntry{Tick: 1, Ledger: 1, Digest: "old"})
	_ = x.WriteTick(universe.TickLogEntry{Tick: 1, Ledger: 2, Digest: "new"})
	if err := x.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	x2, err := Open(path, "run-1")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer x2.Close()
	last, err := x2.LastTick()
	if err != nil {
		t.Fatalf("last tick: %v", err)
	}
	if last.Digest != "new" || last.Ledger != 2 {
		t.Fatalf("replayed tick was not replaced: %+v", last)
	}
}

func TestIndex_WriteAfterCloseIsNoop(t *testing.T) {
	x, err := Open(filepath.Join(t.TempDir(), "runs.db"), "run-1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := x.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := x.WriteTick(universe.TickLogEntry{Tick: 1}); err != nil {
		t.Fatalf("write after close must be a silent no-op, got %v", err)
	}
}

func TestIndex_SeparateRunsDoNotMix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	a, err := Open(path, "run-a")
	if err != nil {
		t.Fatalf("open a: %v", err)
	}
	_ = a.StartRun(1, []byte(`{}`))
	_ = a.WriteTick(universe.TickLogEntry{Tick: 7, Digest: "a"})
	if err := a.Close(); err != nil {
		t.Fatalf("close a: %v", err)
	}

	b, err := Open(path, "run-b")
	if err != nil {
		t.Fatalf("open b: %v", err)
	}
	defer b.Close()
	_ = b.StartRun(2, []byte(`{}`))
	if _, err := b.LastTick(); err == nil {
		t.Fatalf("run-b should have no ticks yet")
	}
}

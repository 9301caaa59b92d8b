// Package runindex keeps a sqlite read-model of simulation runs: one row
// per run plus per-tick summaries. It is a secondary index for reporting;
// the tick log remains the source of truth and the simulation never reads
// from it.
package runindex

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"cellarium.dev/internal/sim/universe"
)

type Index struct {
	db *sql.DB

	runID string

	ch   chan universe.TickLogEntry
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

// Open creates the database (and schema) at path and starts the single
// writer goroutine for runID.
func Open(path, runID string) (*Index, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	x := &Index{
		db:    db,
		runID: runID,
		// Buffered so bursty ticks never stall the sim loop.
		ch: make(chan universe.TickLogEntry, 8192),
	}
	x.wg.Add(1)
	go func() {
		defer x.wg.Done()
		x.loop()
	}()
	return x, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits the append-style workload; NORMAL durability is fine for
	// a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			config_json TEXT NOT NULL,
			finished_at TEXT,
			final_tick INTEGER,
			final_ledger REAL,
			births INTEGER,
			deaths INTEGER,
			overflow_drops INTEGER,
			policy_failures INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			ledger REAL NOT NULL,
			cells INTEGER NOT NULL,
			foods INTEGER NOT NULL,
			venoms INTEGER NOT NULL,
			digest TEXT NOT NULL,
			PRIMARY KEY (run_id, tick)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_ticks_run ON ticks(run_id, tick);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// StartRun registers the run row. Synchronous: runs once at startup.
func (x *Index) StartRun(seed int64, configJSON []byte) error {
	if x == nil {
		return nil
	}
	_, err := x.db.Exec(
		`INSERT OR REPLACE INTO runs(run_id,seed,started_at,config_json) VALUES(?,?,?,?)`,
		x.runID, seed, time.Now().UTC().Format(time.RFC3339Nano), string(configJSON),
	)
	return err
}

// RunTotals are the counters recorded when a run finishes.
type RunTotals struct {
	FinalTick      uint64
	FinalLedger    float64
	Births         uint64
	Deaths         uint64
	OverflowDrops  uint64
	PolicyFailures uint64
}

// FinishRun stores the end-of-run totals. Call after the loop has stopped
// and before Close.
func (x *Index) FinishRun(t RunTotals) error {
	if x == nil {
		return nil
	}
	_, err := x.db.Exec(
		`UPDATE runs SET finished_at=?, final_tick=?, final_ledger=?, births=?, deaths=?, overflow_drops=?, policy_failures=? WHERE run_id=?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		t.FinalTick, t.FinalLedger, t.Births, t.Deaths, t.OverflowDrops, t.PolicyFailures,
		x.runID,
	)
	return err
}

// WriteTick satisfies universe.TickSink. Entries are queued to the writer
// goroutine and dropped when it falls behind; the tick log is the durable
// record.
func (x *Index) WriteTick(e universe.TickLogEntry) error {
	if x == nil || x.closed.Load() {
		return nil
	}
	select {
	case x.ch <- e:
	default:
	}
	return nil
}

func (x *Index) loop() {
	insert, err := x.db.Prepare(
		`INSERT OR REPLACE INTO ticks(run_id,tick,ledger,cells,foods,venoms,digest) VALUES(?,?,?,?,?,?,?)`,
	)
	if err != nil {
		return
	}
	defer insert.Close()

	for e := range x.ch {
		_, _ = insert.Exec(x.runID, e.Tick, e.Ledger, e.Cells, e.Foods, e.Venoms, e.Digest)
	}
}

// LastTick returns the highest recorded tick summary for the run.
func (x *Index) LastTick() (universe.TickLogEntry, error) {
	var e universe.TickLogEntry
	row := x.db.QueryRow(
		`SELECT tick, ledger, cells, foods, venoms, digest FROM ticks WHERE run_id=? ORDER BY tick DESC LIMIT 1`,
		x.runID,
	)
	err := row.Scan(&e.Tick, &e.Ledger, &e.Cells, &e.Foods, &e.Venoms, &e.Digest)
	return e, err
}

func (x *Index) Close() error {
	var err error
	x.once.Do(func() {
		x.closed.Store(true)
		close(x.ch)
		x.wg.Wait()
		err = x.db.Close()
	})
	return err
}

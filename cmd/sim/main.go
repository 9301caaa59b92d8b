package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"cellarium.dev/internal/persistence/runindex"
	"cellarium.dev/internal/persistence/ticklog"
	"cellarium.dev/internal/sim/tuning"
	"cellarium.dev/internal/sim/universe"
	"cellarium.dev/internal/transport/observer"
)

func main() {
	var (
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		seed       = flag.Int64("seed", 0, "rng seed (0 = use tuning value)")
		ticks      = flag.Uint64("ticks", 100, "tick count (0 = run until interrupted)")
		tickMs     = flag.Int("tick_ms", 0, "real-time pacing per tick in ms (0 = free-run)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		record     = flag.Bool("record", false, "record a compressed tick log under the data dir")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite run index")
		obsAddr    = flag.String("observer", "", "observer http listen address (empty to disable)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[sim] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", *tuningPath)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	cfg := tune.UniverseConfig(*seed)
	uni, err := universe.New(cfg)
	if err != nil {
		logger.Fatalf("universe: %v", err)
	}
	uni.SetLogger(logger)

	runID := uuid.NewString()
	runDir := filepath.Join(*dataDir, "runs", runID)

	var sinks multiSink
	var tlog *ticklog.Writer
	if *record {
		tlog, err = ticklog.NewWriter(runDir)
		if err != nil {
			logger.Fatalf("open tick log: %v", err)
		}
		defer tlog.Close()
		sinks = append(sinks, tlog)
		logger.Printf("recording to %s", tlog.Path())
	}

	var idx *runindex.Index
	if !*disableDB {
		idx, err = runindex.Open(filepath.Join(*dataDir, "runs.db"), runID)
		if err != nil {
			logger.Fatalf("open run index: %v", err)
		}
		defer idx.Close()
		cfgJSON, _ := json.Marshal(tune)
		if err := idx.StartRun(cfg.Seed, cfgJSON); err != nil {
			logger.Fatalf("register run: %v", err)
		}
		sinks = append(sinks, idx)
	}
	if len(sinks) > 0 {
		uni.SetTickSink(sinks)
	}

	if addr := strings.TrimSpace(*obsAddr); addr != "" {
		obs := observer.NewServer(uni, logger)
		mux := http.NewServeMux()
		mux.HandleFunc("/v1/bootstrap", obs.BootstrapHandler())
		mux.HandleFunc("/v1/observe", obs.WSHandler())
		srv := &http.Server{Addr: addr, Handler: mux}
		go func() {
			logger.Printf("observer stream on ws://%s/v1/observe", addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Printf("observer server: %v", err)
			}
		}()
		defer srv.Close()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cells, foods, venoms := uni.Counts()
	logger.Printf("run %s: seed=%d cells=%d foods=%d venoms=%d", runID, cfg.Seed, cells, foods, venoms)

	err = uni.Run(ctx, universe.RunParams{
		Ticks:    *ticks,
		Interval: time.Duration(*tickMs) * time.Millisecond,
		InputMin: tune.Energy.InputMin,
		InputMax: tune.Energy.InputMax,
	})
	if err != nil && err != context.Canceled {
		logger.Printf("run: %v", err)
	}

	report(logger, uni)

	if idx != nil {
		if err := idx.FinishRun(runindex.RunTotals{
			FinalTick:      uni.CurrentTick(),
			FinalLedger:    uni.Ledger(),
			Births:         uni.Births(),
			Deaths:         uni.Deaths(),
			OverflowDrops:  uni.OverflowDrops(),
			PolicyFailures: uni.PolicyFailures(),
		}); err != nil {
			logger.Printf("finish run: %v", err)
		}
	}
}

func report(logger *log.Logger, u *universe.Universe) {
	cells, foods, venoms := u.Counts()
	logger.Printf("final state: tick=%d energy=%.2f cells=%d foods=%d venoms=%d", u.CurrentTick(), u.Ledger(), cells, foods, venoms)
	logger.Printf("totals: births=%d deaths=%d overflow_drops=%d policy_failures=%d", u.Births(), u.Deaths(), u.OverflowDrops(), u.PolicyFailures())
}

// multiSink fans one tick entry out to every recorder.
type multiSink []universe.TickSink

func (m multiSink) WriteTick(e universe.TickLogEntry) error {
	var first error
	for _, s := range m {
		if err := s.WriteTick(e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

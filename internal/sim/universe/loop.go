package universe

import (
	"context"
	"encoding/json"
	"time"
)

// ObserverJoinRequest attaches a read-only snapshot consumer to the loop.
type ObserverJoinRequest struct {
	SessionID  string
	Out        chan []byte
	EveryTicks int
}

type observerState struct {
	out        chan []byte
	everyTicks int
}

func (u *Universe) ObserverJoin() chan<- ObserverJoinRequest { return u.observerJoin }
func (u *Universe) ObserverLeave() chan<- string             { return u.observerLeave }

// RunParams drive the loop. Ticks == 0 runs until the context is
// canceled; Interval == 0 free-runs without pacing.
type RunParams struct {
	Ticks    uint64
	Interval time.Duration
	InputMin float64
	InputMax float64
}

// Run drives the universe from its own goroutine: one tick at a time,
// observer churn handled between ticks. Cancellation is only observed
// between ticks, never mid-tick.
func (u *Universe) Run(ctx context.Context, p RunParams) error {
	var tickC <-chan time.Time
	if p.Interval > 0 {
		ticker := time.NewTicker(p.Interval)
		defer ticker.Stop()
		tickC = ticker.C
	}

	for done := uint64(0); p.Ticks == 0 || done < p.Ticks; done++ {
		u.drainObserverChurn()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-u.stop:
			return nil
		default:
		}
		if tickC != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-u.stop:
				return nil
			case <-tickC:
			}
		}

		res := u.Step(u.InputEnergy(p.InputMin, p.InputMax))
		u.afterTick(res)
	}
	return nil
}

// Stop ends Run between ticks. Safe to call more than once.
func (u *Universe) Stop() {
	u.stopOnce.Do(func() { close(u.stop) })
}

func (u *Universe) drainObserverChurn() {
	for {
		select {
		case req := <-u.observerJoin:
			every := req.EveryTicks
			if every <= 0 {
				every = 1
			}
			u.observers[req.SessionID] = &observerState{out: req.Out, everyTicks: every}
		case id := <-u.observerLeave:
			delete(u.observers, id)
		default:
			return
		}
	}
}

// afterTick records the tick and fans the snapshot out to observers.
// Recording failures are logged and never abort the run.
func (u *Universe) afterTick(res StepResult) {
	if u.tickSink == nil && len(u.observers) == 0 {
		return
	}

	if u.tickSink != nil {
		entry := TickLogEntry{
			Tick:      u.tick,
			Ledger:    u.ledger,
			Cells:     len(u.cells),
			Foods:     len(u.foods),
			Venoms:    len(u.venoms),
			NewFoods:  idsOfFoods(res.Foods),
			NewVenoms: idsOfVenoms(res.Venoms),
			NewCells:  idsOfCells(res.Offspring),
			Digest:    u.StateDigest(),
		}
		if err := u.tickSink.WriteTick(entry); err != nil && u.logger != nil {
			u.logger.Printf("tick sink: %v", err)
		}
	}

	if len(u.observers) == 0 {
		return
	}
	b, err := json.Marshal(u.Snapshot())
	if err != nil {
		return
	}
	for _, obs := range u.observers {
		if u.tick%uint64(obs.everyTicks) != 0 {
			continue
		}
		sendLatest(obs.out, b)
	}
}

func idsOfFoods(fs []*Food) []string {
	var ids []string
	for _, f := range fs {
		ids = append(ids, f.ID)
	}
	return ids
}

func idsOfVenoms(vs []*Venom) []string {
	var ids []string
	for _, v := range vs {
		ids = append(ids, v.ID)
	}
	return ids
}

func idsOfCells(cs []*Cell) []string {
	var ids []string
	for _, c := range cs {
		ids = append(ids, c.ID)
	}
	return ids
}

// sendLatest drops the oldest queued snapshot when the consumer lags, so a
// slow observer never blocks the loop.
func sendLatest(out chan []byte, b []byte) {
	for {
		select {
		case out <- b:
			return
		default:
			select {
			case <-out:
			default:
			}
		}
	}
}

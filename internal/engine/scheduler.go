package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DrawTick is one scheduler emission. Exactly one of the three cases
// holds: a drawn number, sequence exhaustion (one interval after the
// final number), or a scheduler failure.
type DrawTick struct {
	RoundID   uuid.UUID
	Number    int
	Exhausted bool
	Err       error
}

// DrawScheduler emits the numbers of a round's pre-shuffled sequence,
// one per fixed interval. One scheduler instance serves all rounds;
// each Start spawns a goroutine bound to the round id.
//
// Sends to the round's tick channel are guarded by the round's stop
// signal, so Stop is deterministic: once Stop returns, no further tick
// is delivered for that round even if the consumer stopped reading.
type DrawScheduler struct {
	interval time.Duration
	log      zerolog.Logger

	mu   sync.Mutex
	runs map[uuid.UUID]*drawRun
}

type drawRun struct {
	stop chan struct{}
	done chan struct{}
}

func NewDrawScheduler(interval time.Duration, log zerolog.Logger) *DrawScheduler {
	return &DrawScheduler{
		interval: interval,
		log:      log.With().Str("component", "draw_scheduler").Logger(),
		runs:     make(map[uuid.UUID]*drawRun),
	}
}

// Start begins emitting seq to out, one number per interval, followed
// by a single exhausted tick one interval after the last number. The
// gap gives claims that need the final number the same one-interval
// window every earlier number had before the round resolves.
// Idempotent: a second Start for an already-running round is a no-op.
func (s *DrawScheduler) Start(roundID uuid.UUID, seq []int, out chan<- DrawTick) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, running := s.runs[roundID]; running {
		return
	}

	run := &drawRun{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	s.runs[roundID] = run

	go s.emit(roundID, seq, out, run)
}

// Stop cancels the round's timer and waits for its goroutine to exit.
// After Stop returns no further tick is emitted for the round. Safe to
// call for rounds that were never started or already finished.
func (s *DrawScheduler) Stop(roundID uuid.UUID) {
	s.mu.Lock()
	run, ok := s.runs[roundID]
	if ok {
		delete(s.runs, roundID)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	close(run.stop)
	<-run.done
}

func (s *DrawScheduler) emit(roundID uuid.UUID, seq []int, out chan<- DrawTick, run *drawRun) {
	defer close(run.done)
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().
				Str("round_id", roundID.String()).
				Interface("panic", r).
				Msg("draw emission panicked")
			s.deliver(run, out, DrawTick{
				RoundID: roundID,
				Err:     fmt.Errorf("draw emission panicked: %v", r),
			})
		}
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-run.stop:
			return
		case <-ticker.C:
		}

		tick := DrawTick{RoundID: roundID, Exhausted: true}
		if i < len(seq) {
			tick = DrawTick{RoundID: roundID, Number: seq[i]}
		}
		if !s.deliver(run, out, tick) {
			return
		}
		if tick.Exhausted {
			return
		}
	}
}

// deliver sends tick unless the round has been stopped. Reports whether
// the tick was handed off.
func (s *DrawScheduler) deliver(run *drawRun, out chan<- DrawTick, tick DrawTick) bool {
	select {
	case <-run.stop:
		return false
	case out <- tick:
		return true
	}
}

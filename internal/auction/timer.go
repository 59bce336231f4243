package auction

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pitchside/auctioneer/internal/events"
	"github.com/pitchside/auctioneer/internal/models"
)

// The countdown runner is shared by the pre-auction countdown and the
// per-lot bid timer; the session invariant that at most one of them is
// active at a time means a single runner is always enough.
//
// Every start bumps a generation counter and every stop bumps it again,
// so a tick that raced with a stop sees a stale generation and is
// discarded. A cancelled countdown can never resolve a later, unrelated
// lot.

// startCountdownLocked launches the per-second runner. Callers must hold
// e.mu and must have put the session into a ticking state first.
func (e *Engine) startCountdownLocked() {
	e.stopCountdownLocked()

	e.gen++
	gen := e.gen
	ctx, cancel := context.WithCancel(context.Background())
	e.cancelTicker = cancel

	go e.runTicker(ctx, gen)
}

// stopCountdownLocked cancels any running countdown and invalidates
// pending ticks. Callers must hold e.mu.
func (e *Engine) stopCountdownLocked() {
	e.gen++
	if e.cancelTicker != nil {
		e.cancelTicker()
		e.cancelTicker = nil
	}
}

func (e *Engine) runTicker(ctx context.Context, gen uint64) {
	ticker := e.clock.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if !e.tick(gen) {
				return
			}
		}
	}
}

// tick advances whichever countdown is live by one second. It returns
// false once the runner should exit: stale generation, countdown
// finished, or nothing left to tick.
func (e *Engine) tick(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.gen {
		return false
	}

	switch {
	case e.preActive:
		e.preRemaining--
		e.touchLocked()
		e.emit(events.New(events.EventTypePreCountdownTick, events.TimerTickPayload{SecondsRemaining: e.preRemaining}))
		if e.preRemaining > 0 {
			return true
		}

		e.preActive = false
		e.stopCountdownLocked()
		if err := e.startAuctionLocked(); err != nil {
			// Players were all removed mid-countdown; nothing to run.
			log.Warn().Err(err).Msg("pre-auction countdown expired but auction could not start")
		}
		e.emitStateLocked()
		return false

	case e.timerStatus == models.TimerRunning:
		e.timeRemaining--
		e.touchLocked()
		e.emit(events.New(events.EventTypeTimerTick, events.TimerTickPayload{SecondsRemaining: e.timeRemaining}))
		if e.timeRemaining > 0 {
			return true
		}

		log.Info().Int("round", e.round).Int("lot_index", e.idx).Msg("bid timer expired, resolving lot")
		e.timerStatus = models.TimerIdle
		e.stopCountdownLocked()
		e.resolveLotLocked()
		e.emitStateLocked()
		return false

	case e.timerStatus == models.TimerPaused:
		// Frozen: keep the runner alive, do not advance time.
		return true

	default:
		return false
	}
}

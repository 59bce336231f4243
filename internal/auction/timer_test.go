package auction

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pitchside/auctioneer/internal/config"
	"github.com/pitchside/auctioneer/internal/models"
)

// waitFor polls for a condition that a tick goroutine will establish.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func newClockedEngine(t *testing.T, settings config.Settings) (*Engine, *clockwork.FakeClock) {
	t.Helper()
	fc := clockwork.NewFakeClock()
	e := NewEngine(fc, settings, nil)
	t.Cleanup(e.Close)
	return e, fc
}

func TestTimerExpiry_ResolvesUnsold(t *testing.T) {
	t.Parallel()
	settings := testSettings()
	settings.TimerSeconds = 2
	e, fc := newClockedEngine(t, settings)

	e.AddPlayer("Kohli", "Batsman", 1000)
	e.StartAuction()
	e.StartTimer()
	fc.BlockUntil(1)

	fc.Advance(time.Second)
	waitFor(t, func() bool { return e.Snapshot().TimeRemaining == 1 }, "first tick")

	fc.Advance(time.Second)
	waitFor(t, func() bool { return e.Snapshot().AuctionRound == 2 }, "unsold lot requeued")

	snap := e.Snapshot()
	if snap.TimerActive {
		t.Error("timer still active after expiry")
	}
	if snap.AuctionEnded {
		t.Error("auction ended under requeue policy")
	}
}

func TestTimerExpiry_CommitsWinningBid(t *testing.T) {
	t.Parallel()
	settings := testSettings()
	settings.TimerSeconds = 1
	e, fc := newClockedEngine(t, settings)

	e.AddPlayer("Kohli", "Batsman", 1000)
	e.StartAuction()
	e.StartTimer()
	fc.BlockUntil(1)

	if res, _ := e.PlaceBid(models.TeamCaptain2, 2000); !res.Accepted {
		t.Fatalf("bid rejected: %s", res.Reason)
	}

	fc.Advance(time.Second)
	waitFor(t, func() bool { return e.Snapshot().AuctionEnded }, "auction end")

	snap := e.Snapshot()
	if snap.Players[0].SoldTo != string(models.TeamCaptain2) || snap.Players[0].SoldPrice != 2000 {
		t.Errorf("outcome = %q/%d, want captain2/2000", snap.Players[0].SoldTo, snap.Players[0].SoldPrice)
	}
	if snap.Captain2Balance != 3000 {
		t.Errorf("captain2 balance = %d, want 3000", snap.Captain2Balance)
	}
}

func TestTimerPause_FreezesCountdown(t *testing.T) {
	t.Parallel()
	settings := testSettings()
	settings.TimerSeconds = 5
	e, fc := newClockedEngine(t, settings)

	e.AddPlayer("Kohli", "Batsman", 1000)
	e.StartAuction()
	e.StartTimer()
	fc.BlockUntil(1)

	fc.Advance(time.Second)
	waitFor(t, func() bool { return e.Snapshot().TimeRemaining == 4 }, "first tick")

	e.PauseTimer()
	fc.Advance(time.Second)
	fc.Advance(time.Second)

	// Paused ticks are consumed but must not advance the countdown.
	time.Sleep(50 * time.Millisecond)
	snap := e.Snapshot()
	if snap.TimeRemaining != 4 || !snap.TimerPaused {
		t.Fatalf("paused countdown moved: remaining=%d paused=%v", snap.TimeRemaining, snap.TimerPaused)
	}

	e.ResumeTimer()
	fc.Advance(time.Second)
	waitFor(t, func() bool { return e.Snapshot().TimeRemaining == 3 }, "tick after resume")
}

func TestTimerStop_CancelsWithoutResolving(t *testing.T) {
	t.Parallel()
	settings := testSettings()
	settings.TimerSeconds = 2
	e, fc := newClockedEngine(t, settings)

	e.AddPlayer("Kohli", "Batsman", 1000)
	e.StartAuction()
	e.StartTimer()
	fc.BlockUntil(1)

	e.StopTimer()
	fc.Advance(time.Second)
	fc.Advance(time.Second)

	// Any tick delivered after the stop carries a stale generation.
	time.Sleep(50 * time.Millisecond)
	snap := e.Snapshot()
	if snap.TimerActive {
		t.Error("timer active after stop")
	}
	if snap.TimeRemaining != 2 {
		t.Errorf("remaining = %d, want reset to 2", snap.TimeRemaining)
	}
	if snap.Players[0].SoldTo != "" {
		t.Errorf("stop resolved the lot: %q", snap.Players[0].SoldTo)
	}
	if snap.AuctionRound != 1 {
		t.Errorf("round advanced to %d", snap.AuctionRound)
	}
}

func TestPreCountdown_AutoStartsAuction(t *testing.T) {
	t.Parallel()
	e, fc := newClockedEngine(t, testSettings())

	e.AddPlayer("Kohli", "Batsman", 1000)
	if _, err := e.StartPreAuctionCountdown(2); err != nil {
		t.Fatalf("StartPreAuctionCountdown: %v", err)
	}
	fc.BlockUntil(1)

	fc.Advance(time.Second)
	waitFor(t, func() bool { return e.Snapshot().PreAuctionTimer == 1 }, "countdown tick")

	fc.Advance(time.Second)
	waitFor(t, func() bool { return e.Snapshot().AuctionActive }, "auto start")

	snap := e.Snapshot()
	if snap.PreAuctionActive {
		t.Error("countdown still active after auto start")
	}
	if snap.Phase != models.PhaseLive || snap.AuctionRound != 1 {
		t.Errorf("phase/round = %v/%d after auto start", snap.Phase, snap.AuctionRound)
	}
	// The bid timer does not start on its own.
	if snap.TimerActive {
		t.Error("bid timer started without a command")
	}
}

func TestForceEnd_DuringPreCountdown(t *testing.T) {
	t.Parallel()
	e, fc := newClockedEngine(t, testSettings())

	e.AddPlayer("Kohli", "Batsman", 1000)
	e.StartPreAuctionCountdown(30)
	fc.BlockUntil(1)

	snap, err := e.ForceEndAuction()
	if err != nil {
		t.Fatalf("ForceEndAuction: %v", err)
	}
	if snap.PreAuctionActive || !snap.AuctionEnded {
		t.Errorf("state after force end: pre=%v ended=%v", snap.PreAuctionActive, snap.AuctionEnded)
	}

	fc.Advance(time.Second)
	time.Sleep(50 * time.Millisecond)
	if e.Snapshot().AuctionActive {
		t.Error("cancelled countdown still started the auction")
	}
}

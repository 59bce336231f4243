package auction

import (
	"github.com/pitchside/auctioneer/internal/models"
)

// Snapshot is the materialized session state handed to every observer,
// whether they poll for it or receive it over a push transport. Field
// names follow the wire format the web clients already consume.
type Snapshot struct {
	Players []models.Player `json:"players"`

	// CurrentPlayer is the lot on the block, nil unless the auction is
	// live with lots remaining. CurrentPlayerIndex indexes into the
	// current round's lot list, not the full player list.
	CurrentPlayer      *models.Player `json:"currentPlayer,omitempty"`
	CurrentPlayerIndex int            `json:"currentPlayerIndex"`
	LotsInRound        int            `json:"lotsInRound"`

	CurrentBid    int64  `json:"currentBid"`
	HighestBidder string `json:"highestBidder,omitempty"`

	Captain1Balance int64           `json:"captain1Balance"`
	Captain2Balance int64           `json:"captain2Balance"`
	Captain1Team    []models.Player `json:"captain1Team"`
	Captain2Team    []models.Player `json:"captain2Team"`

	TimerActive   bool `json:"timerActive"`
	TimerPaused   bool `json:"timerPaused"`
	TimeRemaining int  `json:"timeRemaining"`

	PreAuctionActive bool `json:"preAuctionActive"`
	PreAuctionTimer  int  `json:"preAuctionTimer"`

	AuctionStarted bool `json:"auctionStarted"`
	AuctionActive  bool `json:"auctionActive"`
	AuctionEnded   bool `json:"auctionEnded"`
	AuctionRound   int  `json:"auctionRound"`

	Phase models.Phase `json:"phase"`

	// LastUpdate is a unix-millisecond stamp bumped on every mutation,
	// kept for poll-based clients that diff on it.
	LastUpdate int64 `json:"lastUpdate"`
}

// snapshotLocked materializes the session. Callers must hold e.mu.
func (e *Engine) snapshotLocked() Snapshot {
	snap := Snapshot{
		Players:            make([]models.Player, 0, len(e.players)),
		CurrentPlayerIndex: e.idx,
		LotsInRound:        len(e.lots),
		CurrentBid:         e.currentBid,
		HighestBidder:      string(e.highestBidder),
		Captain1Balance:    e.balances[models.TeamCaptain1],
		Captain2Balance:    e.balances[models.TeamCaptain2],
		Captain1Team:       append([]models.Player(nil), e.rosters[models.TeamCaptain1]...),
		Captain2Team:       append([]models.Player(nil), e.rosters[models.TeamCaptain2]...),
		TimerActive:        e.timerStatus != models.TimerIdle,
		TimerPaused:        e.timerStatus == models.TimerPaused,
		TimeRemaining:      e.timeRemaining,
		PreAuctionActive:   e.preActive,
		PreAuctionTimer:    e.preRemaining,
		AuctionStarted:     e.started,
		AuctionActive:      e.active,
		AuctionEnded:       e.ended,
		AuctionRound:       e.round,
		Phase:              e.phaseLocked(),
		LastUpdate:         e.lastUpdate.UnixMilli(),
	}

	for _, p := range e.players {
		snap.Players = append(snap.Players, *p)
	}
	if e.active && e.idx < len(e.lots) {
		lot := *e.lots[e.idx]
		snap.CurrentPlayer = &lot
	}
	return snap
}

func (e *Engine) phaseLocked() models.Phase {
	switch {
	case e.ended:
		return models.PhaseEnded
	case e.preActive:
		return models.PhasePreCountdown
	case e.active:
		return models.PhaseLive
	default:
		return models.PhaseNotStarted
	}
}

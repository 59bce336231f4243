package auction

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/pitchside/auctioneer/internal/config"
	"github.com/pitchside/auctioneer/internal/events"
	"github.com/pitchside/auctioneer/internal/models"
)

// Engine owns the single auction session. Every mutation funnels through
// its command methods; each command runs atomically under one mutex and
// returns a materialized snapshot, so concurrent bids are serialized
// first-committer-wins against the latest committed state.
type Engine struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	settings config.Settings
	publish  func(events.Event)

	// players is the full registry in lot order; lots is the current
	// round's list. Round 1 offers every player, later rounds only the
	// previous round's unsold lots.
	players []*models.Player
	lots    []*models.Player
	idx     int

	currentBid    int64
	highestBidder models.TeamID
	balances      map[models.TeamID]int64
	rosters       map[models.TeamID][]models.Player

	round   int
	started bool
	active  bool
	ended   bool

	preActive    bool
	preRemaining int

	timerStatus   models.TimerStatus
	timeRemaining int

	lastUpdate time.Time

	gen          uint64
	cancelTicker context.CancelFunc
}

// NewEngine creates the process-wide session. publish receives an event
// for every state change and must not block; pass nil to discard events.
func NewEngine(clock clockwork.Clock, settings config.Settings, publish func(events.Event)) *Engine {
	e := &Engine{
		clock:    clock,
		settings: settings,
		publish:  publish,
	}
	e.resetLocked()
	return e
}

// Close cancels any running countdown. The engine is not usable after.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopCountdownLocked()
}

func (e *Engine) emit(ev events.Event) {
	if e.publish != nil {
		e.publish(ev)
	}
}

func (e *Engine) emitStateLocked() {
	e.emit(events.New(events.EventTypeStateUpdated, e.snapshotLocked()))
}

func (e *Engine) touchLocked() {
	e.lastUpdate = e.clock.Now()
}

// resetLocked wipes the session back to its initial NOT_STARTED shape.
func (e *Engine) resetLocked() {
	e.stopCountdownLocked()
	e.players = nil
	e.lots = nil
	e.idx = 0
	e.currentBid = 0
	e.highestBidder = ""
	e.balances = map[models.TeamID]int64{
		models.TeamCaptain1: e.settings.DefaultBalance,
		models.TeamCaptain2: e.settings.DefaultBalance,
	}
	e.rosters = map[models.TeamID][]models.Player{}
	e.round = 1
	e.started = false
	e.active = false
	e.ended = false
	e.preActive = false
	e.preRemaining = 0
	e.timerStatus = models.TimerIdle
	e.timeRemaining = e.settings.TimerSeconds
	e.touchLocked()
}

// Snapshot returns the current session state; safe for polling at any
// frequency.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// AddPlayer registers a new lot at the end of the bidding order.
func (e *Engine) AddPlayer(name, role string, basePrice int64) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.preActive || e.active {
		return e.snapshotLocked(), fmt.Errorf("%w: cannot add players while the auction is running", ErrInvalidCommand)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return e.snapshotLocked(), fmt.Errorf("%w: player name is required", ErrValidation)
	}
	if basePrice < 1 {
		return e.snapshotLocked(), fmt.Errorf("%w: base price must be >= 1, got %d", ErrValidation, basePrice)
	}

	player := &models.Player{
		ID:        uuid.New(),
		Name:      name,
		Role:      strings.TrimSpace(role),
		BasePrice: basePrice,
		AddedAt:   e.clock.Now(),
	}
	e.players = append(e.players, player)
	e.touchLocked()

	log.Info().Str("player_id", player.ID.String()).Str("name", player.Name).Int64("base_price", basePrice).Msg("player added")
	e.emitStateLocked()
	return e.snapshotLocked(), nil
}

// RemovePlayer deletes a lot; only permitted before the auction starts.
func (e *Engine) RemovePlayer(id uuid.UUID) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.preActive || e.active {
		return e.snapshotLocked(), fmt.Errorf("%w: cannot remove players while the auction is running", ErrInvalidCommand)
	}

	pos := -1
	for i, p := range e.players {
		if p.ID == id {
			pos = i
			break
		}
	}
	if pos < 0 {
		return e.snapshotLocked(), fmt.Errorf("%w: no player with id %s", ErrNotFound, id)
	}
	e.players = append(e.players[:pos], e.players[pos+1:]...)

	// The lot may also sit in a stale round list; drop it there too and
	// keep the index in range.
	for i, p := range e.lots {
		if p.ID == id {
			e.lots = append(e.lots[:i], e.lots[i+1:]...)
			if i <= e.idx && e.idx > 0 {
				e.idx--
			}
			break
		}
	}
	if e.idx > len(e.lots) {
		e.idx = len(e.lots)
	}

	e.touchLocked()
	log.Info().Str("player_id", id.String()).Msg("player removed")
	e.emitStateLocked()
	return e.snapshotLocked(), nil
}

// SetBalances sets both captain purses; only valid while inactive.
func (e *Engine) SetBalances(captain1, captain2 int64) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.preActive || e.active {
		return e.snapshotLocked(), fmt.Errorf("%w: cannot set balances while the auction is running", ErrInvalidCommand)
	}
	if captain1 < 0 || captain2 < 0 {
		return e.snapshotLocked(), fmt.Errorf("%w: balances must be >= 0", ErrValidation)
	}

	e.balances[models.TeamCaptain1] = captain1
	e.balances[models.TeamCaptain2] = captain2
	e.touchLocked()

	log.Info().Int64("captain1", captain1).Int64("captain2", captain2).Msg("balances set")
	e.emitStateLocked()
	return e.snapshotLocked(), nil
}

// UpdateBalance sets a single captain's purse; only valid while inactive.
func (e *Engine) UpdateBalance(team models.TeamID, amount int64) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.preActive || e.active {
		return e.snapshotLocked(), fmt.Errorf("%w: cannot update balances while the auction is running", ErrInvalidCommand)
	}
	if !team.Valid() {
		return e.snapshotLocked(), fmt.Errorf("%w: unknown team %q", ErrValidation, team)
	}
	if amount < 0 {
		return e.snapshotLocked(), fmt.Errorf("%w: balance must be >= 0, got %d", ErrValidation, amount)
	}

	e.balances[team] = amount
	e.touchLocked()
	e.emitStateLocked()
	return e.snapshotLocked(), nil
}

// StartPreAuctionCountdown schedules an automatic auction start after the
// given number of seconds.
func (e *Engine) StartPreAuctionCountdown(seconds int) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if seconds < 1 {
		return e.snapshotLocked(), fmt.Errorf("%w: countdown must be >= 1 second, got %d", ErrValidation, seconds)
	}
	if e.ended {
		return e.snapshotLocked(), fmt.Errorf("%w: auction already ended; restart first", ErrInvalidCommand)
	}
	if e.preActive || e.active {
		return e.snapshotLocked(), fmt.Errorf("%w: auction is already running", ErrInvalidCommand)
	}
	if len(e.players) == 0 {
		return e.snapshotLocked(), fmt.Errorf("%w: no players registered", ErrInvalidCommand)
	}

	e.preActive = true
	e.preRemaining = seconds
	e.touchLocked()
	e.startCountdownLocked()

	log.Info().Int("seconds", seconds).Msg("pre-auction countdown started")
	e.emitStateLocked()
	return e.snapshotLocked(), nil
}

// StartAuction puts the first lot on the block. A pending pre-auction
// countdown is cancelled; it exists only to call this.
func (e *Engine) StartAuction() (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.startAuctionLocked(); err != nil {
		return e.snapshotLocked(), err
	}
	e.emitStateLocked()
	return e.snapshotLocked(), nil
}

func (e *Engine) startAuctionLocked() error {
	if e.ended {
		return fmt.Errorf("%w: auction already ended; restart first", ErrInvalidCommand)
	}
	if e.active {
		return fmt.Errorf("%w: auction is already live", ErrInvalidCommand)
	}
	if len(e.players) == 0 {
		return fmt.Errorf("%w: no players registered", ErrInvalidCommand)
	}

	if e.preActive {
		e.preActive = false
		e.preRemaining = 0
		e.stopCountdownLocked()
	}

	for _, p := range e.players {
		p.ClearOutcome()
	}
	e.lots = append([]*models.Player(nil), e.players...)
	e.idx = 0
	e.round = 1
	e.started = true
	e.active = true
	e.timerStatus = models.TimerIdle
	e.timeRemaining = e.settings.TimerSeconds
	e.seedLotLocked()
	e.touchLocked()

	log.Info().Int("players", len(e.players)).Msg("auction started")
	e.emit(events.New(events.EventTypeAuctionStarted, nil))
	e.emitNextPlayerLocked()
	return nil
}

// seedLotLocked opens the lot at e.idx: current bid starts at the floor
// with no bidder.
func (e *Engine) seedLotLocked() {
	e.currentBid = e.lots[e.idx].BasePrice
	e.highestBidder = ""
}

func (e *Engine) emitNextPlayerLocked() {
	lot := e.lots[e.idx]
	e.emit(events.New(events.EventTypeNextPlayer, events.NextPlayerPayload{
		PlayerID:  lot.ID.String(),
		Name:      lot.Name,
		Role:      lot.Role,
		BasePrice: lot.BasePrice,
		Round:     e.round,
	}))
}

// StartTimer opens the bidding window for the lot on the block.
func (e *Engine) StartTimer() (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.active {
		return e.snapshotLocked(), fmt.Errorf("%w: no live auction", ErrInvalidCommand)
	}
	if e.idx >= len(e.lots) {
		return e.snapshotLocked(), fmt.Errorf("%w: no lots remaining", ErrInvalidCommand)
	}
	if e.timerStatus != models.TimerIdle {
		return e.snapshotLocked(), fmt.Errorf("%w: timer already running", ErrInvalidCommand)
	}

	e.timerStatus = models.TimerRunning
	e.timeRemaining = e.settings.TimerSeconds
	e.touchLocked()
	e.startCountdownLocked()

	log.Info().Int("seconds", e.timeRemaining).Int("round", e.round).Int("lot_index", e.idx).Msg("bid timer started")
	e.emitStateLocked()
	return e.snapshotLocked(), nil
}

// PauseTimer freezes the countdown; bids are rejected until resumed.
func (e *Engine) PauseTimer() (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.timerStatus != models.TimerRunning {
		return e.snapshotLocked(), fmt.Errorf("%w: timer is not running", ErrInvalidCommand)
	}
	e.timerStatus = models.TimerPaused
	e.touchLocked()

	log.Info().Int("remaining", e.timeRemaining).Msg("bid timer paused")
	e.emitStateLocked()
	return e.snapshotLocked(), nil
}

// ResumeTimer continues a paused countdown from where it stopped.
func (e *Engine) ResumeTimer() (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.timerStatus != models.TimerPaused {
		return e.snapshotLocked(), fmt.Errorf("%w: timer is not paused", ErrInvalidCommand)
	}
	e.timerStatus = models.TimerRunning
	e.touchLocked()

	log.Info().Int("remaining", e.timeRemaining).Msg("bid timer resumed")
	e.emitStateLocked()
	return e.snapshotLocked(), nil
}

// StopTimer cancels the countdown without resolving the lot.
func (e *Engine) StopTimer() (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.active {
		return e.snapshotLocked(), fmt.Errorf("%w: no live auction", ErrInvalidCommand)
	}

	e.timerStatus = models.TimerIdle
	e.timeRemaining = e.settings.TimerSeconds
	e.stopCountdownLocked()
	e.touchLocked()

	log.Info().Msg("bid timer stopped")
	e.emitStateLocked()
	return e.snapshotLocked(), nil
}

// BidResult reports the outcome of a bid attempt together with the state
// the decision was made against.
type BidResult struct {
	Accepted bool
	Reason   string
	Snapshot Snapshot
}

// Bid rejection reasons.
const (
	ReasonNotLive             = "auction is not live"
	ReasonTimerNotRunning     = "bidding window is not open"
	ReasonTimerPaused         = "bidding is paused"
	ReasonBelowMinimum        = "bid below minimum"
	ReasonInsufficientBalance = "insufficient balance"
)

// PlaceBid validates and commits a captain's bid. Rejections are part of
// the normal protocol and come back in the result; the error is reserved
// for malformed input.
func (e *Engine) PlaceBid(team models.TeamID, amount int64) (BidResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !team.Valid() {
		return BidResult{Snapshot: e.snapshotLocked()}, fmt.Errorf("%w: unknown team %q", ErrValidation, team)
	}
	if amount <= 0 {
		return BidResult{Snapshot: e.snapshotLocked()}, fmt.Errorf("%w: bid must be positive, got %d", ErrValidation, amount)
	}

	reject := func(reason string) (BidResult, error) {
		log.Debug().Str("team", string(team)).Int64("amount", amount).Str("reason", reason).Msg("bid rejected")
		return BidResult{Reason: reason, Snapshot: e.snapshotLocked()}, nil
	}

	if !e.active || e.idx >= len(e.lots) {
		return reject(ReasonNotLive)
	}
	switch e.timerStatus {
	case models.TimerPaused:
		return reject(ReasonTimerPaused)
	case models.TimerRunning:
	default:
		return reject(ReasonTimerNotRunning)
	}

	lot := e.lots[e.idx]
	minimum := e.currentBid + e.settings.BidStep
	if minimum < lot.BasePrice {
		minimum = lot.BasePrice
	}
	if amount < minimum {
		return reject(ReasonBelowMinimum)
	}
	if amount > e.balances[team] {
		return reject(ReasonInsufficientBalance)
	}

	e.currentBid = amount
	e.highestBidder = team
	e.touchLocked()

	log.Info().Str("team", string(team)).Int64("amount", amount).Str("player", lot.Name).Msg("bid accepted")
	e.emit(events.New(events.EventTypeNewBid, events.NewBidPayload{
		PlayerID: lot.ID.String(),
		Captain:  string(team),
		Amount:   amount,
	}))
	e.emitStateLocked()
	return BidResult{Accepted: true, Snapshot: e.snapshotLocked()}, nil
}

// NextLot resolves the lot on the block and advances. The timer-expiry
// path funnels into the same resolution.
func (e *Engine) NextLot() (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.active {
		return e.snapshotLocked(), fmt.Errorf("%w: no live auction", ErrInvalidCommand)
	}
	if e.idx >= len(e.lots) {
		return e.snapshotLocked(), fmt.Errorf("%w: no lots remaining", ErrInvalidCommand)
	}

	e.timerStatus = models.TimerIdle
	e.stopCountdownLocked()
	e.resolveLotLocked()
	e.emitStateLocked()
	return e.snapshotLocked(), nil
}

// resolveLotLocked commits the current lot's outcome and moves on: the
// highest bidder wins at the current bid, or the lot is tagged unsold.
// Reaching the end of the round either requeues unsold lots into a fresh
// round or ends the auction, per the configured end policy.
func (e *Engine) resolveLotLocked() {
	lot := e.lots[e.idx]

	if e.highestBidder != "" && e.currentBid > 0 {
		lot.SoldTo = string(e.highestBidder)
		lot.SoldPrice = e.currentBid
		e.rosters[e.highestBidder] = append(e.rosters[e.highestBidder], *lot)
		e.balances[e.highestBidder] -= e.currentBid

		log.Info().Str("player", lot.Name).Str("sold_to", lot.SoldTo).Int64("price", lot.SoldPrice).Msg("lot sold")
		e.emit(events.New(events.EventTypePlayerSold, events.PlayerSoldPayload{
			PlayerID: lot.ID.String(),
			Name:     lot.Name,
			SoldTo:   lot.SoldTo,
			Price:    lot.SoldPrice,
			Round:    e.round,
		}))
	} else {
		lot.SoldTo = models.SoldToUnsold
		lot.SoldPrice = 0

		log.Info().Str("player", lot.Name).Int("round", e.round).Msg("lot unsold")
		e.emit(events.New(events.EventTypePlayerUnsold, events.PlayerUnsoldPayload{
			PlayerID: lot.ID.String(),
			Name:     lot.Name,
			Round:    e.round,
		}))
	}

	e.currentBid = 0
	e.highestBidder = ""
	e.timerStatus = models.TimerIdle
	e.timeRemaining = e.settings.TimerSeconds
	e.idx++
	e.touchLocked()

	if e.idx >= len(e.lots) {
		e.finishRoundLocked()
		return
	}
	e.seedLotLocked()
	e.emitNextPlayerLocked()
}

// finishRoundLocked runs the round-end check: no unsold lots (or a
// single-pass policy) ends the auction, otherwise the unsold lots come
// back as a fresh round.
func (e *Engine) finishRoundLocked() {
	var unsold []*models.Player
	for _, p := range e.lots {
		if p.Unsold() {
			unsold = append(unsold, p)
		}
	}

	if len(unsold) == 0 || e.settings.EndPolicy == models.EndPolicySinglePass {
		e.endLocked()
		return
	}

	e.round++
	for _, p := range unsold {
		p.ClearOutcome()
	}
	e.lots = unsold
	e.idx = 0
	e.seedLotLocked()
	e.touchLocked()

	log.Info().Int("round", e.round).Int("lots", len(e.lots)).Msg("re-auction round started")
	e.emit(events.New(events.EventTypeRoundStarted, events.RoundStartedPayload{
		Round: e.round,
		Lots:  len(e.lots),
	}))
	e.emitNextPlayerLocked()
}

func (e *Engine) endLocked() {
	e.active = false
	e.ended = true
	e.timerStatus = models.TimerIdle
	e.stopCountdownLocked()
	e.touchLocked()

	sold := 0
	for _, p := range e.players {
		if p.Sold() {
			sold++
		}
	}
	log.Info().Int("rounds", e.round).Int("sold", sold).Int("total", len(e.players)).Msg("auction ended")
	e.emit(events.New(events.EventTypeAuctionEnded, events.AuctionEndedPayload{
		Rounds:       e.round,
		PlayersSold:  sold,
		PlayersTotal: len(e.players),
	}))
}

// ForceEndAuction ends the auction immediately, whatever remains.
func (e *Engine) ForceEndAuction() (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ended {
		return e.snapshotLocked(), fmt.Errorf("%w: auction already ended", ErrInvalidCommand)
	}
	if !e.active && !e.preActive {
		return e.snapshotLocked(), fmt.Errorf("%w: no auction to end", ErrInvalidCommand)
	}

	e.preActive = false
	e.preRemaining = 0
	e.endLocked()
	e.emitStateLocked()
	return e.snapshotLocked(), nil
}

// Restart wipes the whole session back to NOT_STARTED; the only way to
// reuse the process for a new auction. Also served as "clear data".
func (e *Engine) Restart() (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.resetLocked()
	log.Info().Msg("session restarted")
	e.emitStateLocked()
	return e.snapshotLocked(), nil
}

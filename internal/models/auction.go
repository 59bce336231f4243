package models

import (
	"time"

	"github.com/google/uuid"
)

// TeamID identifies one of the two bidding captains.
type TeamID string

const (
	TeamCaptain1 TeamID = "captain1"
	TeamCaptain2 TeamID = "captain2"
)

// Valid reports whether t is one of the two fixed captain identities.
func (t TeamID) Valid() bool {
	return t == TeamCaptain1 || t == TeamCaptain2
}

// Other returns the opposing captain.
func (t TeamID) Other() TeamID {
	if t == TeamCaptain1 {
		return TeamCaptain2
	}
	return TeamCaptain1
}

// SoldToUnsold marks a lot that went through a round without a single bid.
const SoldToUnsold = "unsold"

// Player is a single auction lot.
type Player struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	BasePrice int64     `json:"basePrice"`

	// Sale outcome; SoldTo is empty until the lot resolves, then holds a
	// TeamID or SoldToUnsold.
	SoldTo    string `json:"soldTo,omitempty"`
	SoldPrice int64  `json:"soldPrice,omitempty"`

	AddedAt time.Time `json:"addedAt"`
}

// Sold reports whether the lot resolved to a winning captain.
func (p *Player) Sold() bool {
	return p.SoldTo != "" && p.SoldTo != SoldToUnsold
}

// Unsold reports whether the lot went through its round without a bid.
func (p *Player) Unsold() bool {
	return p.SoldTo == SoldToUnsold
}

// ClearOutcome resets the sale outcome so the lot can be offered again.
func (p *Player) ClearOutcome() {
	p.SoldTo = ""
	p.SoldPrice = 0
}

// TimerStatus is the countdown sub-state of the live auction.
type TimerStatus string

const (
	TimerIdle    TimerStatus = "IDLE"
	TimerRunning TimerStatus = "RUNNING"
	TimerPaused  TimerStatus = "PAUSED"
)

// Phase is the coarse lifecycle state of the auction session.
type Phase string

const (
	PhaseNotStarted   Phase = "NOT_STARTED"
	PhasePreCountdown Phase = "PRE_COUNTDOWN"
	PhaseLive         Phase = "LIVE"
	PhaseEnded        Phase = "ENDED"
)

// EndPolicy controls what happens when a round finishes with unsold lots.
type EndPolicy string

const (
	// EndPolicyRequeueUnsold re-auctions unsold lots in further rounds
	// until a full pass sells everything.
	EndPolicyRequeueUnsold EndPolicy = "requeue_unsold"
	// EndPolicySinglePass ends the auction after one pass over the lots,
	// sold or not.
	EndPolicySinglePass EndPolicy = "single_pass"
)

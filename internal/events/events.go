package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType identifies the kind of auction event.
type EventType string

const (
	// EventTypeStateUpdated carries a full session snapshot and is
	// published after every successful mutation.
	EventTypeStateUpdated EventType = "StateUpdated"

	EventTypeAuctionStarted   EventType = "AuctionStarted"
	EventTypeAuctionEnded     EventType = "AuctionEnded"
	EventTypeNewBid           EventType = "NewBid"
	EventTypePlayerSold       EventType = "PlayerSold"
	EventTypePlayerUnsold     EventType = "PlayerUnsold"
	EventTypeNextPlayer       EventType = "NextPlayer"
	EventTypeRoundStarted     EventType = "RoundStarted"
	EventTypeTimerTick        EventType = "TimerTick"
	EventTypePreCountdownTick EventType = "PreCountdownTick"
)

// Event is the envelope pushed to every observer transport.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// New builds an envelope around an already-marshalable payload. Payloads
// that fail to marshal are published with empty data rather than dropped.
func New(t EventType, payload any) Event {
	ev := Event{
		ID:        uuid.New().String(),
		Type:      t,
		Timestamp: time.Now().UTC(),
	}
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			ev.Data = data
		}
	}
	return ev
}

// NewBidPayload is the payload for a NewBid event.
type NewBidPayload struct {
	PlayerID string `json:"playerId"`
	Captain  string `json:"captain"`
	Amount   int64  `json:"amount"`
}

// PlayerSoldPayload is the payload for a PlayerSold event.
type PlayerSoldPayload struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	SoldTo   string `json:"soldTo"`
	Price    int64  `json:"price"`
	Round    int    `json:"round"`
}

// PlayerUnsoldPayload is the payload for a PlayerUnsold event.
type PlayerUnsoldPayload struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Round    int    `json:"round"`
}

// NextPlayerPayload announces the lot now on the block.
type NextPlayerPayload struct {
	PlayerID  string `json:"playerId"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	BasePrice int64  `json:"basePrice"`
	Round     int    `json:"round"`
}

// RoundStartedPayload announces a re-auction round of unsold lots.
type RoundStartedPayload struct {
	Round int `json:"round"`
	Lots  int `json:"lots"`
}

// TimerTickPayload is published once per second while a countdown runs.
type TimerTickPayload struct {
	SecondsRemaining int `json:"secondsRemaining"`
}

// AuctionEndedPayload summarizes the final result.
type AuctionEndedPayload struct {
	Rounds       int `json:"rounds"`
	PlayersSold  int `json:"playersSold"`
	PlayersTotal int `json:"playersTotal"`
}

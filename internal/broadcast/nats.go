package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

const natsSubjectPrefix = "auction.events."

// NATSMirror republishes every broker event onto a NATS subject per
// event type, for deployments that bridge the auction feed to external
// consumers. The in-process transports never depend on it.
type NATSMirror struct {
	nc     *nats.Conn
	broker *Broker
}

// NewNATSMirror connects to the given NATS URL.
func NewNATSMirror(url string, broker *Broker) (*NATSMirror, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATSMirror{nc: nc, broker: broker}, nil
}

// Run forwards broker events to NATS until the context is cancelled.
func (m *NATSMirror) Run(ctx context.Context) {
	ch, cancel := m.broker.Subscribe()
	defer cancel()

	log.Info().Msg("NATS mirror started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("NATS mirror shutting down")
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				log.Error().Err(err).Str("event_type", string(ev.Type)).Msg("failed to marshal event for NATS")
				continue
			}
			subject := natsSubjectPrefix + string(ev.Type)
			if err := m.nc.Publish(subject, data); err != nil {
				log.Error().Err(err).Str("subject", subject).Msg("failed to publish event to NATS")
			}
		}
	}
}

// Close drains and closes the NATS connection.
func (m *NATSMirror) Close() {
	if err := m.nc.Drain(); err != nil {
		log.Error().Err(err).Msg("failed to drain NATS connection")
	}
}

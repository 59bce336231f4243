package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/pitchside/auctioneer/internal/auction"
	"github.com/pitchside/auctioneer/internal/events"
)

// SnapshotFunc supplies the state sent to a client immediately after its
// connection upgrades, so new observers never wait for the next event.
type SnapshotFunc func() auction.Snapshot

// ConnectionManager owns all WebSocket observers of the auction session
// and fans broker events out to them.
type ConnectionManager struct {
	connections map[*Connection]bool
	mu          sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	snapshot SnapshotFunc
}

// Connection is one WebSocket client.
type Connection struct {
	ID      string
	Role    string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	ConnectedAt time.Time
}

// ConnectionConfig holds tunables for WebSocket connections.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns the default WebSocket configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a manager that hydrates new clients via
// snapshot.
func NewConnectionManager(config ConnectionConfig, snapshot SnapshotFunc) *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:   config,
		snapshot: snapshot,
	}
}

// RunFanout consumes broker events and broadcasts each to every
// connected client until the context is cancelled.
func (cm *ConnectionManager) RunFanout(ctx context.Context, ch <-chan events.Event) {
	log.Info().Msg("websocket fanout started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("websocket fanout shutting down")
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			cm.Broadcast(ev)
		}
	}
}

// UpgradeConnection upgrades an HTTP request to a WebSocket observer and
// sends it an immediate state snapshot.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, role string) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Role:        role,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
	}

	// Hydrate before registering: the snapshot must be queued ahead of
	// any broadcast, and nothing may send on Send outside the manager
	// lock once the connection is visible to Broadcast.
	if cm.snapshot != nil {
		hydrate := events.New(events.EventTypeStateUpdated, cm.snapshot())
		if data, err := json.Marshal(hydrate); err == nil {
			connection.Send <- data
		}
	}
	cm.register(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().Str("connection_id", connection.ID).Str("role", role).Msg("websocket connection established")
	return nil
}

func (cm *ConnectionManager) register(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.connections[conn] = true
}

// unregister removes the connection and closes its Send channel. Send is
// closed only here, under the write lock, and only once per connection;
// both pumps and the eviction path may call this.
func (cm *ConnectionManager) unregister(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if _, ok := cm.connections[conn]; ok {
		delete(cm.connections, conn)
		close(conn.Send)
		log.Info().Str("connection_id", conn.ID).Str("role", conn.Role).Msg("websocket connection closed")
	}
}

// Broadcast sends an event to every connected client. Clients whose send
// buffer is full are evicted rather than allowed to stall the fanout.
// Sends happen under the lock: unregister closes Send while holding the
// write lock, so a registered connection's channel is never closed
// mid-send.
func (cm *ConnectionManager) Broadcast(ev events.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(ev.Type)).Msg("failed to marshal event for broadcast")
		return
	}

	var evicted []*Connection
	cm.mu.RLock()
	for conn := range cm.connections {
		select {
		case conn.Send <- data:
		default:
			evicted = append(evicted, conn)
		}
	}
	cm.mu.RUnlock()

	for _, conn := range evicted {
		log.Warn().Str("connection_id", conn.ID).Msg("send buffer full, closing connection")
		cm.unregister(conn)
		conn.Conn.Close()
	}
}

// ConnectionCount reports the number of connected observers.
func (cm *ConnectionManager) ConnectionCount() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.connections)
}

// writePump sends outbound messages and keepalive pings.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregister(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to write websocket message")
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains inbound frames. Observers never mutate state over the
// socket; all writes go through the HTTP command surface.
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("unexpected websocket close")
			}
			return
		}
		log.Debug().Str("connection_id", c.ID).RawJSON("message", message).Msg("ignoring client message")
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

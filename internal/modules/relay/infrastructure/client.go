package infrastructure

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"swiftDropWs/internal/modules/relay/domain"
)

// Client is one live WebSocket connection. Identity stays empty until the
// authenticate handshake succeeds; until then only ping and authenticate are
// honoured by the command processor.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	socketID string

	mu       sync.RWMutex
	userID   string
	role     string
	lastSeen time.Time
	closed   bool

	subscribed map[string]struct{}
	locLimiter *rate.Limiter
	commands   *CommandProcessor
	closeOnce  sync.Once
}

// NewClient wraps an upgraded connection. locationRate bounds how many
// courier_location_update actions per second the connection may emit.
func NewClient(hub *Hub, conn *websocket.Conn, buf int, locationRate rate.Limit, locationBurst int, commands *CommandProcessor) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, buf),
		socketID:   uuid.NewString(),
		lastSeen:   time.Now().UTC(),
		subscribed: make(map[string]struct{}),
		locLimiter: rate.NewLimiter(locationRate, locationBurst),
		commands:   commands,
	}
}

// SocketID returns the transport-assigned connection identifier.
func (c *Client) SocketID() string { return c.socketID }

// UserID returns the authenticated user id, or "" before the handshake.
func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// Role returns the authenticated role, or "" before the handshake.
func (c *Client) Role() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.role
}

// Authenticated reports whether the handshake has completed.
func (c *Client) Authenticated() bool { return c.UserID() != "" }

func (c *Client) setIdentity(userID, role string) {
	c.mu.Lock()
	c.userID = userID
	c.role = role
	c.mu.Unlock()
}

func (c *Client) touch() {
	c.mu.Lock()
	c.lastSeen = time.Now().UTC()
	c.mu.Unlock()
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		// The closed flag and the channel close happen under the write lock;
		// enqueue sends only under the read lock, so no push can race the close.
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// enqueue queues marshalled bytes for the write pump. It reports false only
// when a live connection's buffer is full; pushes to a closed connection are
// dropped silently.
func (c *Client) enqueue(data []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// SendMessage marshals and queues a message for this connection only.
func (c *Client) SendMessage(msg *domain.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("ws marshal error", slog.Any("error", err))
		return
	}
	if !c.enqueue(data) {
		slog.Warn("ws send buffer full", slog.String("socketId", c.socketID), slog.String("userId", c.UserID()))
		go c.hub.DetachClient(c)
	}
}

func (c *Client) WritePump() {
	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				slog.Warn("ws write error", slog.String("socketId", c.socketID), slog.Any("error", err))
				return
			}
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				slog.Warn("ws ping error", slog.String("socketId", c.socketID), slog.Any("error", err))
				return
			}
		}
	}
}

func (c *Client) ReadPump() {
	c.conn.SetReadLimit(1 << 16)
	_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})
	defer c.hub.DetachClient(c)
	for {
		var action Action
		_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		if err := c.conn.ReadJSON(&action); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("ws read error", slog.String("socketId", c.socketID), slog.String("userId", c.UserID()), slog.Any("error", err))
			}
			return
		}
		c.touch()
		if c.commands != nil {
			c.commands.Process(c, action)
		}
	}
}

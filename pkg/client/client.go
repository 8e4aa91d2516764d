// Package client is the Go client for the swiftDrop realtime relay: it owns
// one WebSocket connection with bounded reconnection, replays the auth
// handshake after every connect, and surfaces server events through a typed
// subscription bus. Delivery is at-most-once; anything durable must be
// re-fetched from the REST API.
package client

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var ErrNotConnected = errors.New("relay client: not connected")

const (
	defaultDialTimeout       = 20 * time.Second
	defaultReconnectAttempts = 5
	defaultReconnectDelay    = time.Second
)

// Identity is the claim sent in the authenticate handshake.
type Identity struct {
	UserID   string `json:"userId"`
	UserType string `json:"userType"`
	Token    string `json:"token"`
}

// Options configures a relay client.
type Options struct {
	// Endpoint is the ws:// or wss:// URL of the relay.
	Endpoint string
	// Identity, when set, is sent as an authenticate action after every
	// successful transport connect, including reconnects.
	Identity *Identity
	// DialTimeout bounds a single connection attempt. Default 20s.
	DialTimeout time.Duration
	// ReconnectAttempts caps consecutive failed attempts before the client
	// goes terminal until Connect is called again. Default 5.
	ReconnectAttempts int
	// ReconnectDelay is the fixed pause between attempts. Default 1s.
	ReconnectDelay time.Duration
	Logger         *slog.Logger
}

// State is a snapshot of the connection surfaced to UI code.
type State struct {
	Connected     bool
	Authenticated bool
	SocketID      string
	LastError     string
}

// Client is a relay connection manager. Construct it with New and own it from
// the application's composition root; it is not a process-wide singleton.
type Client struct {
	opts   Options
	bus    *bus
	logger *slog.Logger

	mu    sync.Mutex
	conn  *websocket.Conn
	state State
	gen   uint64

	writeMu sync.Mutex

	wmu      sync.Mutex
	watchers map[uint64]chan State
	wseq     uint64
}

func New(opts Options) (*Client, error) {
	if opts.Endpoint == "" {
		return nil, errors.New("relay client: endpoint required")
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	if opts.ReconnectAttempts <= 0 {
		opts.ReconnectAttempts = defaultReconnectAttempts
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = defaultReconnectDelay
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		opts:     opts,
		bus:      newBus(opts.Logger),
		logger:   opts.Logger,
		watchers: make(map[uint64]chan State),
	}, nil
}

// On registers a handler for one event and returns its unsubscribe func.
// Multiple registrations for the same event fire in registration order and
// unsubscribe independently.
func (c *Client) On(event Event, fn Handler) func() {
	return c.bus.on(event, fn)
}

// Connect starts the connection loop. Any existing transport is closed first.
// Dial failures are reported as connection_error events, never returned: the
// loop retries up to ReconnectAttempts with a fixed delay, then goes terminal
// until Connect is called again.
func (c *Client) Connect() {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.state = State{}
	c.mu.Unlock()
	c.notifyWatchers()

	go c.connectLoop(gen)
}

// Disconnect closes the transport and clears the authenticated state. Safe to
// call repeatedly; only an actual transition emits a disconnected event.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.gen++
	wasConnected := c.state.Connected
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.state = State{}
	c.mu.Unlock()

	if wasConnected {
		c.notifyWatchers()
		c.bus.dispatch(EventDisconnected, localMessage(EventDisconnected, map[string]any{"reason": "client disconnect"}))
	}
}

// IsConnected reports whether the transport is currently up.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Connected
}

// IsAuthenticated reports whether the handshake has been acknowledged.
func (c *Client) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Authenticated
}

// SocketID returns the server-assigned connection id, or "" while down.
func (c *Client) SocketID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.SocketID
}

// Authenticate replaces the identity and, when connected, sends the
// handshake immediately.
func (c *Client) Authenticate(identity Identity) error {
	c.mu.Lock()
	c.opts.Identity = &identity
	c.mu.Unlock()
	return c.emit(actionAuthenticate, identity)
}

func (c *Client) currentGen() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func (c *Client) connectLoop(gen uint64) {
	for attempt := 1; attempt <= c.opts.ReconnectAttempts; attempt++ {
		if c.currentGen() != gen {
			return
		}
		dialer := websocket.Dialer{HandshakeTimeout: c.opts.DialTimeout}
		conn, _, err := dialer.Dial(c.opts.Endpoint, nil)
		if err != nil {
			c.setLastError(err.Error())
			c.logger.Warn("relay dial failed", slog.Int("attempt", attempt), slog.Any("error", err))
			c.bus.dispatch(EventConnectionError, localMessage(EventConnectionError, map[string]any{
				"error":   err.Error(),
				"attempt": attempt,
			}))
			if attempt < c.opts.ReconnectAttempts {
				time.Sleep(c.opts.ReconnectDelay)
			}
			continue
		}

		c.mu.Lock()
		if c.gen != gen {
			c.mu.Unlock()
			_ = conn.Close()
			return
		}
		c.conn = conn
		c.state = State{Connected: true}
		identity := c.opts.Identity
		c.mu.Unlock()
		c.notifyWatchers()

		if identity != nil {
			if err := c.emit(actionAuthenticate, *identity); err != nil {
				c.logger.Warn("handshake send failed", slog.Any("error", err))
			}
		}

		c.readLoop(conn, gen)
		if c.currentGen() != gen {
			return
		}

		c.mu.Lock()
		c.conn = nil
		c.state = State{LastError: c.state.LastError}
		c.mu.Unlock()
		c.notifyWatchers()
		c.bus.dispatch(EventDisconnected, localMessage(EventDisconnected, map[string]any{"reason": "connection lost"}))

		// A fresh drop gets the full reconnection budget again.
		attempt = 0
	}

	c.setLastError("reconnect attempts exhausted")
	c.notifyWatchers()
	c.bus.dispatch(EventConnectionError, localMessage(EventConnectionError, map[string]any{
		"error": "reconnect attempts exhausted",
	}))
	c.logger.Warn("relay reconnect attempts exhausted", slog.Int("attempts", c.opts.ReconnectAttempts))
}

func (c *Client) readLoop(conn *websocket.Conn, gen uint64) {
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if c.currentGen() == gen {
				c.logger.Debug("relay read closed", slog.Any("error", err))
			}
			return
		}
		c.handleInbound(&msg)
	}
}

var knownEvents = map[Event]struct{}{
	EventConnected: {}, EventAuthenticated: {}, EventError: {}, EventPong: {},
	EventOrderUpdate: {}, EventCourierLocation: {}, EventHubInventoryChanged: {},
	EventNewOrderNotification: {}, EventDeliveryOpportunity: {}, EventDeliveryAssigned: {},
	EventNewMessage: {}, EventSystemNotification: {}, EventEmergencyNotification: {},
	EventLowInventoryAlert: {},
}

func (c *Client) handleInbound(msg *Message) {
	event := Event(msg.Action)
	if _, ok := knownEvents[event]; !ok {
		c.logger.Debug("relay event ignored", slog.String("action", msg.Action))
		return
	}

	switch event {
	case EventConnected:
		var data struct {
			SocketID string `json:"socketId"`
		}
		_ = json.Unmarshal(msg.Data, &data)
		c.mu.Lock()
		c.state.SocketID = data.SocketID
		c.state.LastError = ""
		c.mu.Unlock()
		c.notifyWatchers()
	case EventAuthenticated:
		c.mu.Lock()
		c.state.Authenticated = true
		c.mu.Unlock()
		c.notifyWatchers()
	}

	c.bus.dispatch(event, msg)
}

func (c *Client) setLastError(reason string) {
	c.mu.Lock()
	c.state.LastError = reason
	c.mu.Unlock()
}

type frame struct {
	Action  string `json:"action"`
	Payload any    `json:"payload,omitempty"`
}

// emit writes one action frame. While disconnected the action is dropped with
// a warning; it is never queued or retried.
func (c *Client) emit(action string, payload any) error {
	c.mu.Lock()
	conn := c.conn
	connected := c.state.Connected
	c.mu.Unlock()
	if !connected || conn == nil {
		c.logger.Warn("action dropped: not connected", slog.String("action", action))
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(frame{Action: action, Payload: payload})
}

// Package realtime is a minimal Socket.IO (Engine.IO v4) client over WebSocket.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/travel-bot/internal/models"
)

// Engine.IO packet types.
const (
	engineOpen    = '0'
	engineClose   = '1'
	enginePing    = '2'
	enginePong    = '3'
	engineMessage = '4'
)

// Socket.IO packet types, carried inside an Engine.IO message.
const (
	socketConnect      = '0'
	socketDisconnect   = '1'
	socketEvent        = '2'
	socketConnectError = '4'
)

// PositionEvent is the Socket.IO event that carries position envelopes.
const PositionEvent = "websocket"

var (
	ErrNotConnected = errors.New("socket.io client is not connected")
	ErrHandshake    = errors.New("socket.io handshake failed")
)

// Handler receives the first argument of an inbound event.
type Handler func(payload json.RawMessage)

type openPacket struct {
	SID          string `json:"sid"`
	PingInterval int    `json:"pingInterval"`
	PingTimeout  int    `json:"pingTimeout"`
}

// Client is a Socket.IO client bound to the default namespace. It does not
// reconnect.
type Client struct {
	serverURL string
	dialer    *websocket.Dialer

	handlersMu sync.RWMutex
	handlers   map[string][]Handler

	writeMu sync.Mutex
	conn    *websocket.Conn

	connected chan struct{}
	connErr   chan error
	done      chan struct{}
	closeOnce sync.Once
	sid       string
}

// New creates a client for serverURL (http, https, ws or wss).
func New(serverURL string) *Client {
	return &Client{
		serverURL: serverURL,
		dialer:    websocket.DefaultDialer,
		handlers:  make(map[string][]Handler),
		connected: make(chan struct{}),
		connErr:   make(chan error, 1),
		done:      make(chan struct{}),
	}
}

// On registers h for inbound event. Handlers run on their own goroutine.
func (c *Client) On(event string, h Handler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.handlers[event] = append(c.handlers[event], h)
}

// Done is closed when the connection is gone.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// SID returns the Engine.IO session id.
func (c *Client) SID() string {
	return c.sid
}

// EndpointURL converts a server URL into the Engine.IO WebSocket endpoint.
func EndpointURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid socket.io server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported socket.io scheme %q", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/socket.io/"
	}
	q := u.Query()
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Connect dials the server, completes the Engine.IO handshake and joins the
// default namespace.
func (c *Client) Connect(ctx context.Context) error {
	endpoint, err := EndpointURL(c.serverURL)
	if err != nil {
		return err
	}

	conn, _, err := c.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to dial socket.io server: %w", err)
	}

	// Unblocks the handshake reads when ctx ends before Connect returns.
	handshake := make(chan struct{})
	defer close(handshake)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-handshake:
		}
	}()

	_, msg, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("failed to read open packet: %w", ctxErr)
		}
		return fmt.Errorf("failed to read open packet: %w", err)
	}
	if len(msg) == 0 || msg[0] != engineOpen {
		conn.Close()
		return fmt.Errorf("%w: unexpected packet %q", ErrHandshake, msg)
	}
	var open openPacket
	if err := json.Unmarshal(msg[1:], &open); err != nil {
		conn.Close()
		return fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	c.sid = open.SID
	c.conn = conn

	if err := c.write(string([]byte{engineMessage, socketConnect})); err != nil {
		conn.Close()
		return err
	}

	go c.readLoop()

	select {
	case <-c.connected:
		log.WithField("sid", c.sid).Info("Connected to Socket.IO server")
		return nil
	case err := <-c.connErr:
		c.Close()
		return err
	case <-c.done:
		select {
		case err := <-c.connErr:
			return err
		default:
			return ErrNotConnected
		}
	case <-ctx.Done():
		c.Close()
		return ctx.Err()
	}
}

func (c *Client) readLoop() {
	defer c.shutdown()
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.WithError(err).Debug("Socket.IO read failed")
			}
			return
		}
		if !c.handlePacket(msg) {
			return
		}
	}
}

// handlePacket processes one Engine.IO packet and reports whether to keep reading.
func (c *Client) handlePacket(msg []byte) bool {
	if len(msg) == 0 {
		return true
	}
	switch msg[0] {
	case enginePing:
		if err := c.write(string(enginePong)); err != nil {
			log.WithError(err).Error("Failed to answer Socket.IO ping")
			return false
		}
	case engineClose:
		return false
	case engineMessage:
		return c.handleSocketPacket(msg[1:])
	}
	return true
}

func (c *Client) handleSocketPacket(msg []byte) bool {
	if len(msg) == 0 {
		return true
	}
	switch msg[0] {
	case socketConnect:
		select {
		case <-c.connected:
		default:
			close(c.connected)
		}
	case socketConnectError:
		select {
		case c.connErr <- fmt.Errorf("%w: %s", ErrHandshake, msg[1:]):
		default:
		}
		return false
	case socketDisconnect:
		return false
	case socketEvent:
		c.dispatch(msg[1:])
	}
	return true
}

// dispatch decodes `<ackID>["event",payload]` and runs the handlers.
func (c *Client) dispatch(body []byte) {
	start := strings.IndexByte(string(body), '[')
	if start < 0 {
		log.WithField("packet", string(body)).Warn("Malformed Socket.IO event")
		return
	}
	var args []json.RawMessage
	if err := json.Unmarshal(body[start:], &args); err != nil || len(args) == 0 {
		log.WithField("packet", string(body)).Warn("Malformed Socket.IO event")
		return
	}
	var event string
	if err := json.Unmarshal(args[0], &event); err != nil {
		log.WithField("packet", string(body)).Warn("Socket.IO event without a name")
		return
	}
	var payload json.RawMessage
	if len(args) > 1 {
		payload = args[1]
	}

	c.handlersMu.RLock()
	handlers := append([]Handler(nil), c.handlers[event]...)
	c.handlersMu.RUnlock()

	for _, h := range handlers {
		go h(payload)
	}
}

// Emit sends an event with one argument.
func (c *Client) Emit(event string, data interface{}) error {
	if c.conn == nil {
		return ErrNotConnected
	}
	select {
	case <-c.done:
		return ErrNotConnected
	default:
	}
	body, err := json.Marshal([]interface{}{event, data})
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event, err)
	}
	return c.write(string([]byte{engineMessage, socketEvent}) + string(body))
}

// EmitPosition publishes a waypoint on the trip's travel channel.
func (c *Client) EmitPosition(paymentID string, loc models.Location) error {
	return c.Emit(PositionEvent, models.PositionEvent{
		Event: models.TravelEvent(paymentID),
		Data:  loc,
	})
}

func (c *Client) write(packet string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, []byte(packet))
}

// Close leaves the namespace and closes the socket.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	select {
	case <-c.done:
		return nil
	default:
	}
	c.write(string([]byte{engineMessage, socketDisconnect}))
	c.writeMu.Lock()
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.writeMu.Unlock()
	c.shutdown()
	return nil
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		c.conn.Close()
		close(c.done)
		log.Info("Disconnected from Socket.IO server")
	})
}

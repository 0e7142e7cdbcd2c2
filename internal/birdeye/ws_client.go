package birdeye

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// WSConfig configures WebSocket connections.
type WSConfig struct {
	// HandshakeTimeout bounds the dial.
	HandshakeTimeout time.Duration
	// WriteTimeout bounds every write, including pings.
	WriteTimeout time.Duration
	// Origin is sent in the handshake; upstream rejects connections without it.
	Origin string
	// Subprotocol requested during the handshake.
	Subprotocol string
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		Origin:           "ws://public-api.birdeye.so",
		Subprotocol:      "echo-protocol",
	}
}

// ErrMissingAPIKey is returned when dialing without a credential.
var ErrMissingAPIKey = errors.New("birdeye: api key not configured")

// WSDialer opens authenticated feed connections.
type WSDialer struct {
	endpoint string
	apiKey   string
	config   WSConfig
}

// NewWSDialer creates a dialer for endpoint. A nil config uses DefaultWSConfig.
func NewWSDialer(endpoint, apiKey string, config *WSConfig) *WSDialer {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if endpoint == "" {
		endpoint = DefaultWSURL
	}
	return &WSDialer{endpoint: endpoint, apiKey: apiKey, config: cfg}
}

// Endpoint returns the URL dialed, with the credential attached as x-api-key.
func (d *WSDialer) Endpoint() (string, error) {
	u, err := url.Parse(d.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse ws endpoint: %w", err)
	}
	q := u.Query()
	q.Set("x-api-key", d.apiKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Dial establishes a new connection.
func (d *WSDialer) Dial(ctx context.Context) (*WSConn, error) {
	if d.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	endpoint, err := d.Endpoint()
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: d.config.HandshakeTimeout,
	}
	if d.config.Subprotocol != "" {
		dialer.Subprotocols = []string{d.config.Subprotocol}
	}
	header := http.Header{}
	if d.config.Origin != "" {
		header.Set("Origin", d.config.Origin)
	}

	conn, resp, err := dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	c := &WSConn{conn: conn, config: d.config}
	c.lastPong.Store(time.Now().UnixNano())
	conn.SetPongHandler(func(string) error {
		c.lastPong.Store(time.Now().UnixNano())
		return nil
	})
	return c, nil
}

// WSConn is one feed connection. ReadFrame must be called from a single
// goroutine; writes are serialized internally and may come from any goroutine.
type WSConn struct {
	conn     *websocket.Conn
	config   WSConfig
	writeMu  sync.Mutex
	closed   atomic.Bool
	lastPong atomic.Int64
}

// SubscribeNewListings requests the new-listing stream.
func (c *WSConn) SubscribeNewListings() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := c.conn.WriteJSON(map[string]string{"type": MsgSubscribeNewListing}); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

// ReadFrame blocks until the next data frame arrives or the connection fails.
func (c *WSConn) ReadFrame() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("websocket read: %w", err)
	}
	return data, nil
}

// Ping sends a keepalive control frame.
func (c *WSConn) Ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(c.config.WriteTimeout)
	if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
		return fmt.Errorf("write ping: %w", err)
	}
	return nil
}

// LastPong returns when the last pong was received, or the dial time.
func (c *WSConn) LastPong() time.Time {
	return time.Unix(0, c.lastPong.Load())
}

// Close sends a close frame and closes the connection. Safe to call twice.
func (c *WSConn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()

	return c.conn.Close()
}

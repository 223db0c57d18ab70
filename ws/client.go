// Package ws implements the event channel client: a WebSocket connection to
// the SMS gateway with auto-reconnect, keepalive, and ordered delivery of
// incoming events to a single registered handler.
package ws

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hybridz/smsgate/config"
	"github.com/hybridz/smsgate/transport"
)

const writeWait = 5 * time.Second

// State is the connection lifecycle state.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateReconnecting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Client owns one event channel connection. A Client runs at most once:
// after it reaches StateClosed a new Client must be constructed. It can be
// driven blocking (Run) or in the background (Start + Stop/Done); both
// drivers share the same connection loop, so reconnect and dispatch behavior
// do not depend on the mode.
type Client struct {
	cfg     *config.WebSocketConfig
	opts    transport.Options
	backoff backoffPolicy
	logger  *zap.Logger

	registry registry

	mu      sync.Mutex
	state   State
	conn    *websocket.Conn
	retries int
	forced  bool
	stopped bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	err     error
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. The default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTLS pins the gateway certificate used for wss:// URLs.
func WithTLS(t *config.TLSConfig) Option {
	return func(c *Client) {
		if t != nil {
			c.opts.Certificate = t.Certificate
		}
	}
}

// New creates an event channel client. The config is owned by the client
// and must not be mutated afterwards.
func New(cfg *config.WebSocketConfig, opts ...Option) *Client {
	cfg.Normalize()

	c := &Client{
		cfg:    cfg,
		opts:   transport.Options{Authorization: cfg.Authorization},
		logger: zap.NewNop(),
		backoff: backoffPolicy{
			Initial:    cfg.ReconnectInterval,
			Max:        cfg.MaxBackoff,
			Multiplier: 2.0,
			Jitter:     0.1,
		},
		state: StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnEvent installs the event handler, replacing any prior one. Safe to call
// at any time, including while connected and from inside a running handler;
// a delivery already in flight completes with the prior handler. With no
// handler installed, events are dropped.
func (c *Client) OnEvent(h Handler) {
	c.registry.set(h)
}

// Reconnect drops the open connection so the loop establishes a fresh one.
// The cycle skips backoff and does not count against MaxReconnectAttempts;
// it happens even with AutoReconnect disabled. Returns ErrNotConnected when
// the channel is not currently open.
func (c *Client) Reconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateOpen || c.conn == nil {
		return ErrNotConnected
	}
	c.forced = true
	c.conn.Close()
	return nil
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connected reports whether the event channel is currently open.
func (c *Client) Connected() bool {
	return c.State() == StateOpen
}

// Err returns the terminal error after the client has closed. It is nil
// after a graceful Stop.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Run connects and blocks until the client is stopped, the context is
// cancelled, or the connection fails terminally. It returns nil only on a
// graceful Stop. Calling Run on a non-idle client returns ErrAlreadyRunning.
func (c *Client) Run(ctx context.Context) error {
	if err := c.begin(); err != nil {
		return err
	}
	return c.loop(ctx)
}

// Start launches the connection loop in the background and returns
// immediately. Use Stop to shut it down and Done/Err to observe termination.
// Calling Start on a non-idle client returns ErrAlreadyRunning.
func (c *Client) Start(ctx context.Context) error {
	if err := c.begin(); err != nil {
		return err
	}
	go func() {
		// The terminal error is kept in c.err for Err().
		_ = c.loop(ctx)
	}()
	return nil
}

// Stop shuts the client down: it interrupts a pending read or backoff wait,
// performs the close handshake when connected, and waits for the loop to
// finish. Stop is idempotent and a no-op on a never-started client.
func (c *Client) Stop() {
	c.mu.Lock()
	if c.doneCh == nil {
		c.mu.Unlock()
		return
	}
	if !c.stopped {
		c.stopped = true
		close(c.stopCh)
	}
	done := c.doneCh
	c.mu.Unlock()
	<-done
}

// Done returns a channel closed when the client reaches StateClosed. For a
// never-started client the returned channel is already closed.
func (c *Client) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doneCh == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return c.doneCh
}

// begin transitions Idle -> Connecting. Any other starting state is a
// programmer error; the existing connection is left untouched.
func (c *Client) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle {
		return ErrAlreadyRunning
	}
	c.state = StateConnecting
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	return nil
}

func (c *Client) loop(ctx context.Context) (err error) {
	defer func() {
		c.mu.Lock()
		c.state = StateClosed
		c.err = err
		close(c.doneCh)
		c.mu.Unlock()
		c.logger.Debug("event channel client closed", zap.Error(err))
	}()

	target, err := c.eventURL()
	if err != nil {
		return err
	}

	for {
		opened, connErr := c.runConnection(ctx, target)

		if c.stopRequested() {
			if opened {
				c.registry.dispatch(connectionEvent(false, false))
			}
			return nil
		}
		if ctx.Err() != nil {
			if opened {
				c.registry.dispatch(connectionEvent(false, false))
			}
			return ctx.Err()
		}
		if errors.Is(connErr, ErrUnauthorized) {
			c.registry.dispatch(connectionEvent(false, false))
			return connErr
		}

		c.mu.Lock()
		forced := c.forced
		c.forced = false
		c.mu.Unlock()
		if forced {
			c.registry.dispatch(connectionEvent(false, true))
			c.setState(StateConnecting)
			continue
		}

		c.mu.Lock()
		c.retries++
		retries := c.retries
		c.mu.Unlock()

		willReconnect := c.cfg.AutoReconnect &&
			(c.cfg.MaxReconnectAttempts == 0 || retries < c.cfg.MaxReconnectAttempts)

		c.registry.dispatch(connectionEvent(false, willReconnect))

		if !willReconnect {
			if c.cfg.AutoReconnect {
				return fmt.Errorf("%w after %d attempts: %v", ErrMaxAttempts, retries, connErr)
			}
			return connErr
		}

		c.setState(StateReconnecting)
		delay := c.backoff.Delay(retries)
		c.logger.Debug("reconnecting to event channel",
			zap.Int("attempt", retries),
			zap.Duration("delay", delay),
			zap.Error(connErr),
		)

		select {
		case <-time.After(delay):
		case <-c.stopCh:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
		c.setState(StateConnecting)
	}
}

// runConnection performs one connect/read cycle. It reports whether the
// channel reached Open, and the error that ended the cycle. A nil error
// with opened=true means the cycle ended by Stop or context cancellation.
func (c *Client) runConnection(ctx context.Context, target string) (bool, error) {
	conn, err := transport.DialEvents(ctx, target, c.opts)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		conn.Close()
		return false, nil
	}
	c.conn = conn
	c.state = StateOpen
	c.retries = 0
	c.mu.Unlock()

	c.logger.Info("event channel connected", zap.String("url", c.cfg.URL))
	c.registry.dispatch(connectionEvent(true, false))

	err = c.readLoop(ctx, conn)

	c.mu.Lock()
	c.conn = nil
	c.mu.Unlock()
	conn.Close()
	return true, err
}

// readLoop reads events until the connection drops or the client stops.
// Each event is fully dispatched before the next read begins; there is no
// read-ahead buffering.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	connDone := make(chan struct{})
	defer close(connDone)

	// Unblock a pending read promptly on Stop or context cancellation by
	// closing the connection underneath it.
	go func() {
		select {
		case <-c.stopCh:
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			conn.Close()
		case <-ctx.Done():
			conn.Close()
		case <-connDone:
		}
	}()

	conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	})
	go c.pingLoop(conn, connDone)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.stopRequested() || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("event channel read: %w", err)
		}

		ev, err := decodeEvent(data)
		if err != nil {
			c.logger.Warn("dropping malformed event",
				zap.ByteString("payload", data), zap.Error(err))
			continue
		}
		c.registry.dispatch(ev)
	}
}

// pingLoop keeps the connection alive. WriteControl is safe to call
// concurrently with the reader; a missed pong shows up as a read deadline
// error in readLoop.
func (c *Client) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Client) stopRequested() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}

// eventURL builds the connection URL, appending the events filter when set.
func (c *Client) eventURL() (string, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parse event channel url: %w", err)
	}
	if len(c.cfg.Events) > 0 {
		q := u.Query()
		q.Set("events", strings.Join(c.cfg.Events, ","))
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

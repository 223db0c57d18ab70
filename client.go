// Package smsgate is a client for the SMS gateway. It bundles the two
// gateway interfaces: the WebSocket event channel for real-time message
// reception (ws) and the HTTP request/response API for sending messages and
// bulk historical reads (rest). Either interface may be configured alone.
package smsgate

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/hybridz/smsgate/config"
	"github.com/hybridz/smsgate/rest"
	"github.com/hybridz/smsgate/types"
	"github.com/hybridz/smsgate/ws"
)

var (
	// ErrNoHTTP is returned by HTTP when no HTTP interface is configured.
	ErrNoHTTP = errors.New("smsgate: no http interface configured")

	// ErrNoWebSocket is returned by WS (and the event channel helpers) when
	// no event channel is configured.
	ErrNoWebSocket = errors.New("smsgate: no websocket interface configured")
)

// Client is the top-level gateway client.
type Client struct {
	cfg  *config.ClientConfig
	http *rest.Client
	ws   *ws.Client
}

// Option configures a Client.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger sets the logger used by both sub-clients. The default is a
// no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// New builds a client from the configuration. The configuration is owned by
// the client and must not be mutated afterwards.
func New(cfg *config.ClientConfig, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client{cfg: cfg}

	if cfg.HTTP != nil {
		httpClient, err := rest.New(cfg.HTTP, cfg.TLS, rest.WithLogger(o.logger))
		if err != nil {
			return nil, err
		}
		c.http = httpClient
	}

	if cfg.WebSocket != nil {
		c.ws = ws.New(cfg.WebSocket, ws.WithTLS(cfg.TLS), ws.WithLogger(o.logger))
	}

	return c, nil
}

// HTTP returns the request/response sub-client, or ErrNoHTTP when the
// configuration has no HTTP interface.
func (c *Client) HTTP() (*rest.Client, error) {
	if c.http == nil {
		return nil, ErrNoHTTP
	}
	return c.http, nil
}

// WS returns the event channel sub-client, or ErrNoWebSocket when the
// configuration has no event channel.
func (c *Client) WS() (*ws.Client, error) {
	if c.ws == nil {
		return nil, ErrNoWebSocket
	}
	return c.ws, nil
}

// OnEvent registers the event handler for the event channel.
func (c *Client) OnEvent(h ws.Handler) error {
	if c.ws == nil {
		return ErrNoWebSocket
	}
	c.ws.OnEvent(h)
	return nil
}

// OnMessage registers a handler that receives only incoming SMS messages,
// discarding all other event types.
func (c *Client) OnMessage(fn func(types.StoredMessage)) error {
	return c.OnEvent(func(ev ws.Event) {
		if ev.Type != ws.EventIncoming {
			return
		}
		msg, err := ev.Message()
		if err != nil {
			return
		}
		fn(*msg)
	})
}

// Run connects the event channel and blocks until shutdown.
func (c *Client) Run(ctx context.Context) error {
	if c.ws == nil {
		return ErrNoWebSocket
	}
	return c.ws.Run(ctx)
}

// Start connects the event channel in the background.
func (c *Client) Start(ctx context.Context) error {
	if c.ws == nil {
		return ErrNoWebSocket
	}
	return c.ws.Start(ctx)
}

// Stop shuts down the event channel. No-op when none is configured or
// running.
func (c *Client) Stop() {
	if c.ws != nil {
		c.ws.Stop()
	}
}

// Send submits a simple text message through the HTTP interface.
func (c *Client) Send(ctx context.Context, to, content string) (*rest.SendReceipt, error) {
	if c.http == nil {
		return nil, ErrNoHTTP
	}
	return c.http.SendSMS(ctx, rest.SimpleMessage(to, content))
}

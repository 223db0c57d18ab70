// Package config holds the client configuration for both gateway interfaces.
// Configurations can be built programmatically with the With* helpers or
// loaded from a TOML file with environment overrides via Load.
package config

import (
	"errors"
	"time"
)

// Defaults applied by Normalize when a field is unset.
const (
	// DefaultBaseTimeout is the timeout for HTTP requests served from the
	// gateway's database (no modem round-trip).
	DefaultBaseTimeout = 5 * time.Second

	// DefaultModemTimeout is the timeout for HTTP requests that must reach
	// the modem and wait on the carrier. Longer than the base timeout.
	DefaultModemTimeout = 20 * time.Second

	// DefaultReconnectInterval is the base delay between reconnect attempts.
	// Consecutive attempts back off exponentially up to DefaultMaxBackoff.
	DefaultReconnectInterval = 5 * time.Second

	// DefaultMaxBackoff caps the reconnect delay.
	DefaultMaxBackoff = 60 * time.Second

	// DefaultPingInterval is how often the event channel is pinged.
	DefaultPingInterval = 10 * time.Second

	// DefaultPongTimeout is how long to wait for traffic after a ping before
	// the connection counts as dead.
	DefaultPongTimeout = 30 * time.Second

	// DefaultPageSize is the paginator page size.
	DefaultPageSize = 50
)

// ClientConfig is the full client configuration. Either interface may be
// absent; the corresponding sub-client is then unavailable.
type ClientConfig struct {
	HTTP      *HTTPConfig
	WebSocket *WebSocketConfig
	TLS       *TLSConfig
}

// HTTPOnly builds a configuration with just the request/response interface.
func HTTPOnly(url string) *ClientConfig {
	return &ClientConfig{HTTP: NewHTTP(url)}
}

// WebSocketOnly builds a configuration with just the event channel.
func WebSocketOnly(url string) *ClientConfig {
	return &ClientConfig{WebSocket: NewWebSocket(url)}
}

// Both builds a configuration with both interfaces.
func Both(httpURL, wsURL string) *ClientConfig {
	return &ClientConfig{HTTP: NewHTTP(httpURL), WebSocket: NewWebSocket(wsURL)}
}

// WithAuth applies the same authorization token to both interfaces.
func (c *ClientConfig) WithAuth(token string) *ClientConfig {
	if c.HTTP != nil {
		c.HTTP.Authorization = token
	}
	if c.WebSocket != nil {
		c.WebSocket.Authorization = token
	}
	return c
}

// WithCertificate pins the gateway CA certificate for both interfaces.
func (c *ClientConfig) WithCertificate(path string) *ClientConfig {
	c.TLS = &TLSConfig{Certificate: path}
	return c
}

// Validate normalizes defaults and rejects configurations that configure
// neither interface.
func (c *ClientConfig) Validate() error {
	if c.HTTP == nil && c.WebSocket == nil {
		return errors.New("config: neither http nor websocket is configured")
	}
	if c.HTTP != nil {
		if c.HTTP.URL == "" {
			return errors.New("config: http url is required")
		}
		c.HTTP.Normalize()
	}
	if c.WebSocket != nil {
		if c.WebSocket.URL == "" {
			return errors.New("config: websocket url is required")
		}
		c.WebSocket.Normalize()
	}
	return nil
}

// HTTPConfig configures the request/response interface.
type HTTPConfig struct {
	// URL is the HTTP base URL, e.g. http://192.168.1.2:3000.
	URL string

	// Authorization is an optional bearer token.
	Authorization string

	// BaseTimeout applies to requests answered from the gateway database.
	BaseTimeout time.Duration

	// ModemTimeout applies to requests that must wait on the modem. Zero
	// falls back to BaseTimeout.
	ModemTimeout time.Duration

	// PageSize is the default paginator page size.
	PageSize int
}

// NewHTTP creates an HTTP configuration with default timeouts.
func NewHTTP(url string) *HTTPConfig {
	cfg := &HTTPConfig{URL: url}
	cfg.Normalize()
	return cfg
}

// WithAuth sets the authorization token.
func (c *HTTPConfig) WithAuth(token string) *HTTPConfig {
	c.Authorization = token
	return c
}

// WithBaseTimeout sets the base request timeout.
func (c *HTTPConfig) WithBaseTimeout(d time.Duration) *HTTPConfig {
	c.BaseTimeout = d
	return c
}

// WithModemTimeout sets the modem request timeout.
func (c *HTTPConfig) WithModemTimeout(d time.Duration) *HTTPConfig {
	c.ModemTimeout = d
	return c
}

// WithPageSize sets the default paginator page size.
func (c *HTTPConfig) WithPageSize(n int) *HTTPConfig {
	c.PageSize = n
	return c
}

// Normalize fills unset fields with defaults.
func (c *HTTPConfig) Normalize() {
	if c.BaseTimeout <= 0 {
		c.BaseTimeout = DefaultBaseTimeout
	}
	if c.ModemTimeout <= 0 {
		c.ModemTimeout = DefaultModemTimeout
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
}

// WebSocketConfig configures the event channel.
type WebSocketConfig struct {
	// URL is the event channel URL, e.g. ws://192.168.1.2:3000/ws.
	URL string

	// Authorization is an optional bearer token.
	Authorization string

	// AutoReconnect re-establishes the channel after a disconnect.
	AutoReconnect bool

	// ReconnectInterval is the base reconnect delay; attempts back off
	// exponentially from it up to MaxBackoff.
	ReconnectInterval time.Duration

	// MaxBackoff caps the reconnect delay.
	MaxBackoff time.Duration

	// MaxReconnectAttempts bounds consecutive failed attempts. Zero means
	// unlimited; the caller decides when to give up via Stop.
	MaxReconnectAttempts int

	// PingInterval is how often pings are sent while connected.
	PingInterval time.Duration

	// PongTimeout is how long to wait for any traffic after a ping before
	// treating the connection as dead.
	PongTimeout time.Duration

	// Events optionally restricts which event types the server pushes. It
	// is sent as the events= query parameter. Empty means all events.
	Events []string
}

// NewWebSocket creates a WebSocket configuration with auto-reconnect enabled
// and default intervals.
func NewWebSocket(url string) *WebSocketConfig {
	cfg := &WebSocketConfig{URL: url, AutoReconnect: true}
	cfg.Normalize()
	return cfg
}

// WithAuth sets the authorization token.
func (c *WebSocketConfig) WithAuth(token string) *WebSocketConfig {
	c.Authorization = token
	return c
}

// WithAutoReconnect enables or disables reconnection.
func (c *WebSocketConfig) WithAutoReconnect(enabled bool) *WebSocketConfig {
	c.AutoReconnect = enabled
	return c
}

// WithReconnectInterval sets the base reconnect delay.
func (c *WebSocketConfig) WithReconnectInterval(d time.Duration) *WebSocketConfig {
	c.ReconnectInterval = d
	return c
}

// WithMaxReconnectAttempts bounds consecutive failed attempts (0 = unlimited).
func (c *WebSocketConfig) WithMaxReconnectAttempts(n int) *WebSocketConfig {
	c.MaxReconnectAttempts = n
	return c
}

// WithPingInterval sets the keepalive ping interval.
func (c *WebSocketConfig) WithPingInterval(d time.Duration) *WebSocketConfig {
	c.PingInterval = d
	return c
}

// WithPongTimeout sets the keepalive pong timeout.
func (c *WebSocketConfig) WithPongTimeout(d time.Duration) *WebSocketConfig {
	c.PongTimeout = d
	return c
}

// WithEvents restricts the pushed event types. Nil disables filtering.
func (c *WebSocketConfig) WithEvents(events ...string) *WebSocketConfig {
	c.Events = events
	return c
}

// Normalize fills unset fields with defaults.
func (c *WebSocketConfig) Normalize() {
	if c.ReconnectInterval <= 0 {
		c.ReconnectInterval = DefaultReconnectInterval
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = DefaultMaxBackoff
	}
	if c.PingInterval <= 0 {
		c.PingInterval = DefaultPingInterval
	}
	if c.PongTimeout <= 0 {
		c.PongTimeout = DefaultPongTimeout
	}
}

// TLSConfig pins the gateway certificate.
type TLSConfig struct {
	// Certificate is a path to a PEM or DER CA certificate.
	Certificate string
}

// Package rest implements the request/response interface of the SMS gateway:
// sending messages, querying stored data, and modem status queries, plus a
// lazy paginator for bulk historical reads.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hybridz/smsgate/config"
	"github.com/hybridz/smsgate/transport"
)

// Client talks to the gateway HTTP API. Requests answered from the gateway
// database use the base timeout; requests that must reach the modem use the
// longer modem timeout.
type Client struct {
	baseURL  string
	auth     string
	pageSize int
	logger   *zap.Logger

	base  *http.Client
	modem *http.Client
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

// New creates an HTTP API client.
func New(cfg *config.HTTPConfig, tlsCfg *config.TLSConfig, opts ...Option) (*Client, error) {
	cfg.Normalize()

	topts := transport.Options{Authorization: cfg.Authorization}
	if tlsCfg != nil {
		topts.Certificate = tlsCfg.Certificate
	}

	base, err := transport.NewHTTPClient(topts, cfg.BaseTimeout)
	if err != nil {
		return nil, err
	}
	modem, err := transport.NewHTTPClient(topts, cfg.ModemTimeout)
	if err != nil {
		return nil, err
	}

	c := &Client{
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		auth:     cfg.Authorization,
		pageSize: cfg.PageSize,
		logger:   zap.NewNop(),
		base:     base,
		modem:    modem,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// PageSize returns the configured default page size.
func (c *Client) PageSize() int {
	return c.pageSize
}

// envelope is the gateway response wrapper.
type envelope struct {
	Success  bool            `json:"success"`
	Response json.RawMessage `json:"response"`
	Error    string          `json:"error"`
}

// do performs one API exchange and decodes the envelope's response field
// into out (skipped when out is nil). Modem requests use the longer timeout.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}, viaModem bool) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.auth != "" {
		req.Header.Set("Authorization", "Bearer "+c.auth)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	client := c.base
	if viaModem {
		client = c.modem
	}

	c.logger.Debug("gateway request",
		zap.String("method", method), zap.String("path", path), zap.Bool("modem", viaModem))

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("unmarshal envelope: %w", err)
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = "unknown api error"
		}
		return &APIError{Message: msg}
	}

	if out != nil {
		if err := json.Unmarshal(env.Response, out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// modemEnvelope wraps modem query payloads: the type tag must match the
// requested query.
type modemEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// doModem performs a modem query and checks the payload type tag.
func (c *Client) doModem(ctx context.Context, path, wantType string, out interface{}) error {
	var me modemEnvelope
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &me, true); err != nil {
		return err
	}
	if me.Type != wantType {
		return &TypeMismatchError{Expected: wantType, Actual: me.Type}
	}
	return json.Unmarshal(me.Data, out)
}

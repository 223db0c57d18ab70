// Package transport opens the channels to the SMS gateway: the long-lived
// WebSocket event channel and the HTTP request/response client. It owns
// certificate loading and authorization headers; callers own everything that
// flows over the channels.
package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

const handshakeTimeout = 10 * time.Second

// ErrUnauthorized is returned when the gateway rejects the handshake with a
// 401, meaning the token is missing or invalid. It is never retried.
var ErrUnauthorized = errors.New("smsgate/transport: gateway rejected authorization")

// Options carries the parameters shared by both channel kinds.
type Options struct {
	// Authorization is an optional bearer token applied to every request.
	Authorization string

	// Certificate is an optional path to a CA certificate (PEM or DER) used
	// to verify the gateway. Empty means the default trust store.
	Certificate string
}

// Header builds the request headers implied by the options.
func (o Options) Header() http.Header {
	h := make(http.Header)
	if o.Authorization != "" {
		h.Set("Authorization", "Bearer "+o.Authorization)
	}
	return h
}

// TLSConfig loads the pinned certificate into a tls.Config, or returns nil
// when no certificate is configured so the default trust store applies.
func (o Options) TLSConfig() (*tls.Config, error) {
	if o.Certificate == "" {
		return nil, nil
	}

	data, err := os.ReadFile(o.Certificate)
	if err != nil {
		return nil, fmt.Errorf("read certificate %s: %w", o.Certificate, err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		// Not PEM; try raw DER.
		cert, err := x509.ParseCertificate(data)
		if err != nil {
			return nil, fmt.Errorf("parse certificate %s: not PEM or DER", o.Certificate)
		}
		pool.AddCert(cert)
	}

	return &tls.Config{RootCAs: pool}, nil
}

// DialEvents opens the WebSocket event channel. The returned connection is
// exclusively owned by the caller. A 401 handshake response maps to
// ErrUnauthorized; every other failure is wrapped as a connect error.
func DialEvents(ctx context.Context, url string, opts Options) (*websocket.Conn, error) {
	tlsCfg, err := opts.TLSConfig()
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
		TLSClientConfig:  tlsCfg,
	}

	conn, resp, err := dialer.DialContext(ctx, url, opts.Header())
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("connect event channel %s: %w", url, err)
	}
	return conn, nil
}

// NewHTTPClient builds the request/response client with the given overall
// timeout and the options' certificate applied.
func NewHTTPClient(opts Options, timeout time.Duration) (*http.Client, error) {
	tlsCfg, err := opts.TLSConfig()
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: timeout}
	if tlsCfg != nil {
		client.Transport = &http.Transport{TLSClientConfig: tlsCfg}
	}
	return client, nil
}

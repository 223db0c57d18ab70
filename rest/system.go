package rest

import (
	"context"
	"net/http"
)

// GetPhoneNumber returns the gateway's configured sender number, useful for
// client identification. Empty when the gateway has none configured.
func (c *Client) GetPhoneNumber(ctx context.Context) (string, error) {
	var number *string
	if err := c.do(ctx, http.MethodGet, "/sys/phone-number", nil, nil, &number, false); err != nil {
		return "", err
	}
	if number == nil {
		return "", nil
	}
	return *number, nil
}

// GetVersion returns the gateway software version string, semver with an
// optional feature suffix, e.g. "0.0.1+sentry".
func (c *Client) GetVersion(ctx context.Context) (string, error) {
	var version string
	if err := c.do(ctx, http.MethodGet, "/sys/version", nil, nil, &version, false); err != nil {
		return "", err
	}
	return version, nil
}

package ws

import (
	"errors"

	"github.com/hybridz/smsgate/transport"
)

var (
	// ErrAlreadyRunning is returned when Run or Start is called on a client
	// that is not Idle. The existing connection is left untouched.
	ErrAlreadyRunning = errors.New("smsgate/ws: client already running")

	// ErrUnauthorized is returned when the gateway rejects the token. It is
	// terminal: the client will not retry an unauthorized connection.
	ErrUnauthorized = transport.ErrUnauthorized

	// ErrMaxAttempts is returned when MaxReconnectAttempts consecutive
	// connection attempts have failed.
	ErrMaxAttempts = errors.New("smsgate/ws: maximum reconnect attempts reached")

	// ErrNotConnected is returned by Reconnect when the event channel is not
	// currently open.
	ErrNotConnected = errors.New("smsgate/ws: event channel not connected")
)

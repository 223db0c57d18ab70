// Package watch delivers incoming SMS messages from whatever path is
// available: the real-time event channel, a polling fallback against the
// HTTP API, or both fanned in with deduplication.
package watch

import (
	"context"

	"github.com/hybridz/smsgate/types"
)

// Source produces incoming messages until its context is cancelled.
type Source interface {
	Run(ctx context.Context, out chan<- types.StoredMessage) error
}

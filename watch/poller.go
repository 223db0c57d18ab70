package watch

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/hybridz/smsgate/rest"
	"github.com/hybridz/smsgate/types"
)

// Fetch returns one page of stored messages, usually a closure over
// rest.Client.GetMessages. The poller always requests the newest page
// (Reverse set).
type Fetch func(ctx context.Context, opts rest.PageOptions) ([]types.StoredMessage, error)

// Poller is a polling fallback Source for environments where the event
// channel cannot be reached. It fetches the newest page of messages on an
// interval and forwards incoming messages it has not seen before, tracking
// the highest message ID as its cursor.
type Poller struct {
	// Fetch supplies message pages. Required.
	Fetch Fetch

	// Interval between polls. Defaults to 30 seconds.
	Interval time.Duration

	// Limit is the page size per poll. Defaults to 50.
	Limit int

	// Logger defaults to a no-op logger.
	Logger *zap.Logger

	lastID int64
}

// Run polls immediately, then on the interval, until ctx is cancelled.
func (p *Poller) Run(ctx context.Context, out chan<- types.StoredMessage) error {
	if p.Fetch == nil {
		return errors.New("watch: poller requires a fetch function")
	}
	if p.Interval <= 0 {
		p.Interval = 30 * time.Second
	}
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}

	// Establish the cursor first so old history is not replayed.
	p.prime(ctx)

	p.poll(ctx, out)

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.poll(ctx, out)
		}
	}
}

// prime sets the cursor to the newest stored message. A failed prime leaves
// the cursor at zero; the first successful poll then forwards whatever the
// newest page holds.
func (p *Poller) prime(ctx context.Context) {
	msgs, err := p.Fetch(ctx, rest.PageOptions{Limit: 1, Reverse: true})
	if err != nil {
		p.Logger.Warn("poller prime failed", zap.Error(err))
		return
	}
	if len(msgs) > 0 {
		p.lastID = msgs[0].MessageID
	}
}

func (p *Poller) poll(ctx context.Context, out chan<- types.StoredMessage) {
	msgs, err := p.Fetch(ctx, rest.PageOptions{Limit: p.Limit, Reverse: true})
	if err != nil {
		p.Logger.Warn("poll failed", zap.Error(err))
		return
	}

	// Newest first; collect unseen incoming messages, then forward oldest
	// first so arrival order is preserved.
	var fresh []types.StoredMessage
	for _, msg := range msgs {
		if msg.MessageID <= p.lastID {
			break
		}
		if msg.IsOutgoing {
			continue
		}
		fresh = append(fresh, msg)
	}

	if len(msgs) > 0 && msgs[0].MessageID > p.lastID {
		p.lastID = msgs[0].MessageID
	}

	for i := len(fresh) - 1; i >= 0; i-- {
		select {
		case <-ctx.Done():
			return
		case out <- fresh[i]:
		}
	}

	if len(fresh) > 0 {
		p.Logger.Debug("forwarded polled messages", zap.Int("count", len(fresh)))
	}
}

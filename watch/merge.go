package watch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hybridz/smsgate/types"
)

// Merge fans in multiple Sources with message-ID deduplication, so the
// event channel and the polling fallback can run side by side without
// delivering the same message twice.
type Merge struct {
	Sources []Source

	// Logger defaults to a no-op logger.
	Logger *zap.Logger

	seen sync.Map
}

// Run starts all sources concurrently, forwards unique messages to out, and
// closes out once every source has finished.
func (m *Merge) Run(ctx context.Context, out chan<- types.StoredMessage) error {
	if m.Logger == nil {
		m.Logger = zap.NewNop()
	}

	ch := make(chan types.StoredMessage, 64)

	var wg sync.WaitGroup
	for _, src := range m.Sources {
		wg.Add(1)
		go func(s Source) {
			defer wg.Done()
			if err := s.Run(ctx, ch); err != nil && ctx.Err() == nil {
				m.Logger.Warn("source stopped", zap.Error(err))
			}
		}(src)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	for msg := range ch {
		if _, loaded := m.seen.LoadOrStore(msg.MessageID, struct{}{}); loaded {
			m.Logger.Debug("skipping duplicate message", zap.Int64("message_id", msg.MessageID))
			continue
		}
		select {
		case out <- msg:
		case <-ctx.Done():
			close(out)
			return ctx.Err()
		}
	}

	close(out)
	return nil
}

// StartCleanup periodically clears the dedup set to bound memory over long
// runs. Call it in its own goroutine.
func (m *Merge) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.seen.Range(func(key, _ interface{}) bool {
				m.seen.Delete(key)
				return true
			})
		}
	}
}

package watch

import (
	"context"

	"github.com/hybridz/smsgate/types"
	"github.com/hybridz/smsgate/ws"
)

// EventSource adapts the event channel client into a Source, forwarding
// incoming messages and ignoring every other event type.
//
// The Source owns the client's handler slot and run lifecycle; do not call
// OnEvent or Run/Start on the client while the source is running.
type EventSource struct {
	Client *ws.Client
}

// Run registers the forwarding handler and drives the client until ctx is
// cancelled or the channel fails terminally.
func (s *EventSource) Run(ctx context.Context, out chan<- types.StoredMessage) error {
	s.Client.OnEvent(func(ev ws.Event) {
		if ev.Type != ws.EventIncoming {
			return
		}
		msg, err := ev.Message()
		if err != nil {
			return
		}
		select {
		case <-ctx.Done():
		case out <- *msg:
		}
	})
	return s.Client.Run(ctx)
}

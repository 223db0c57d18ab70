// Package guard filters incoming messages by sender: an optional allowlist
// plus per-sender rate limiting. Wrap an event handler with Guard.Wrap to
// apply the policy on the event channel.
package guard

import (
	"strings"
	"sync"
	"time"

	"github.com/hybridz/smsgate/types"
	"github.com/hybridz/smsgate/ws"
)

// Verdict is the outcome of a sender check.
type Verdict int

const (
	Allow Verdict = iota
	Deny
	RateLimited
)

// Config describes the filtering policy.
type Config struct {
	// Mode is "open" (everyone allowed) or "allowlist".
	Mode string

	// Allowed lists permitted sender numbers when Mode is "allowlist".
	Allowed []string

	// RateLimit is the number of messages allowed per sender per window.
	// Zero disables rate limiting.
	RateLimit int

	// RateWindow is the rate limiting window.
	RateWindow time.Duration
}

// bucket tracks the remaining tokens for one sender.
type bucket struct {
	tokens    int
	windowEnd time.Time
}

// Guard enforces the sender policy. Safe for concurrent use.
type Guard struct {
	mode      string
	allowed   map[string]struct{}
	rateLimit int
	window    time.Duration
	now       func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

// New creates a Guard from the policy config.
func New(cfg Config) *Guard {
	allowed := make(map[string]struct{}, len(cfg.Allowed))
	for _, phone := range cfg.Allowed {
		allowed[normalize(phone)] = struct{}{}
	}

	return &Guard{
		mode:      cfg.Mode,
		allowed:   allowed,
		rateLimit: cfg.RateLimit,
		window:    cfg.RateWindow,
		now:       time.Now,
		buckets:   make(map[string]*bucket),
	}
}

// Check returns Allow, Deny, or RateLimited for the given sender.
func (g *Guard) Check(from string) Verdict {
	n := normalize(from)

	if g.mode == "allowlist" {
		if _, ok := g.allowed[n]; !ok {
			return Deny
		}
	}

	if g.rateLimit <= 0 {
		return Allow
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	b, ok := g.buckets[n]
	if !ok || now.After(b.windowEnd) {
		g.buckets[n] = &bucket{
			tokens:    g.rateLimit - 1,
			windowEnd: now.Add(g.window),
		}
		return Allow
	}

	if b.tokens <= 0 {
		return RateLimited
	}
	b.tokens--
	return Allow
}

// Wrap returns a handler that forwards events to h, applying the policy to
// incoming messages. Denied and rate-limited messages are dropped; onDrop,
// when non-nil, observes them with the verdict. Non-message events pass
// through unfiltered.
func (g *Guard) Wrap(h ws.Handler, onDrop func(types.StoredMessage, Verdict)) ws.Handler {
	return func(ev ws.Event) {
		if ev.Type == ws.EventIncoming {
			msg, err := ev.Message()
			if err == nil {
				if v := g.Check(msg.PhoneNumber); v != Allow {
					if onDrop != nil {
						onDrop(*msg, v)
					}
					return
				}
			}
		}
		h(ev)
	}
}

// normalize strips all characters except digits and a leading +.
func normalize(phone string) string {
	if phone == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(phone))

	for i, r := range phone {
		if r == '+' && i == 0 {
			b.WriteRune(r)
		} else if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	return b.String()
}

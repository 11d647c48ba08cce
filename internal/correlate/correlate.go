// Package correlate matches out-of-band decisions back to the request that
// asked for them. The bridge timeout is the only cancellation primitive:
// once a request expires, the host has its fallback reply and later
// decisions must never reach the wire again.
package correlate

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/vburojevic/hookd/internal/domain"
)

type pending struct {
	ch    chan domain.Decision
	timer *clock.Timer
}

// Pending is the table of requests whose reply is still held open.
type Pending struct {
	mu      sync.Mutex
	clock   clock.Clock
	waiting map[string]*pending
}

// New creates an empty table. clk may be nil for the wall clock.
func New(clk clock.Clock) *Pending {
	if clk == nil {
		clk = clock.New()
	}
	return &Pending{clock: clk, waiting: map[string]*pending{}}
}

// Register opens a decision window for a request and returns a channel that
// yields exactly one decision: the resolver's, or a timeout fallback once
// the window elapses. A zero window times out immediately.
func (p *Pending) Register(requestID string, window time.Duration) <-chan domain.Decision {
	ch := make(chan domain.Decision, 1)
	if window <= 0 {
		ch <- domain.Decision{Type: domain.DecisionPassthrough, Source: domain.SourceTimeout}
		return ch
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	entry := &pending{ch: ch}
	entry.timer = p.clock.AfterFunc(window, func() {
		p.expire(requestID)
	})
	p.waiting[requestID] = entry
	return ch
}

// Resolve delivers a decision for a still-pending request. It reports false
// when the request is unknown or already expired; such decisions are
// dropped for the wire (the caller may still surface them to the feed).
func (p *Pending) Resolve(requestID string, d domain.Decision) bool {
	p.mu.Lock()
	entry, ok := p.waiting[requestID]
	if ok {
		delete(p.waiting, requestID)
	}
	p.mu.Unlock()
	if !ok {
		return false
	}
	entry.timer.Stop()
	entry.ch <- d
	return true
}

// Outstanding returns how many requests are still waiting.
func (p *Pending) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.waiting)
}

func (p *Pending) expire(requestID string) {
	p.mu.Lock()
	entry, ok := p.waiting[requestID]
	if ok {
		delete(p.waiting, requestID)
	}
	p.mu.Unlock()
	if !ok {
		return
	}
	entry.ch <- domain.Decision{Type: domain.DecisionPassthrough, Source: domain.SourceTimeout}
}

package realtime

import (
	"context"
	"time"
)

// reconnection is the transport's redial policy, configured the way
// Socket.IO clients configure theirs: a fixed delay between attempts and a
// cap on consecutive failures. A successful connect resets the count.
type reconnection struct {
	attempts int
	delay    time.Duration
	tries    int
}

func newReconnection(opts Options) *reconnection {
	return &reconnection{attempts: opts.ReconnectAttempts, delay: opts.ReconnectDelay}
}

func (r *reconnection) reset() { r.tries = 0 }

func (r *reconnection) exhausted() bool { return r.tries >= r.attempts }

// backoff waits before the next attempt and counts it. It returns false
// when ctx ends first.
func (r *reconnection) backoff(ctx context.Context) bool {
	r.tries++
	t := time.NewTimer(r.delay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

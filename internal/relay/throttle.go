// Package relay holds the pieces of the direct message relay that do not
// talk to Telegram.
package relay

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Default spam limits: five messages inside ten seconds.
const (
	MessageLimit = 5
	TimeWindow   = 10 * time.Second
)

// Throttle rate limits relayed messages per sender.
type Throttle struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	idle    time.Duration
	senders map[int64]*sender
}

type sender struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewThrottle allows burst messages per window for each sender. Senders
// quiet for longer than ten windows are forgotten.
func NewThrottle(burst int, window time.Duration) *Throttle {
	return &Throttle{
		limit:   rate.Every(window / time.Duration(burst)),
		burst:   burst,
		idle:    10 * window,
		senders: map[int64]*sender{},
	}
}

// Allow reports whether a message from userID at now may be relayed.
func (t *Throttle) Allow(userID int64, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.senders[userID]
	if !ok {
		s = &sender{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.senders[userID] = s
	}
	s.lastSeen = now
	t.sweep(now)
	return s.limiter.AllowN(now, 1)
}

func (t *Throttle) sweep(now time.Time) {
	for id, s := range t.senders {
		if now.Sub(s.lastSeen) > t.idle {
			delete(t.senders, id)
		}
	}
}

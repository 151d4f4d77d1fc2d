package relay

import (
	"sync"
	"time"
)

// AutoReplyDelay is how long a relayed message may go unanswered before the
// sender gets an automatic "we'll get back to you" reply.
const AutoReplyDelay = 2 * time.Minute

// AutoReply tracks relayed conversations that are waiting for a staff answer.
type AutoReply struct {
	delay time.Duration
	send  func(userChatID int64)

	mu      sync.Mutex
	pending map[int64]*time.Timer
}

func NewAutoReply(delay time.Duration, send func(userChatID int64)) *AutoReply {
	return &AutoReply{delay: delay, send: send, pending: map[int64]*time.Timer{}}
}

// Arm starts (or restarts) the wait for userChatID.
func (a *AutoReply) Arm(userChatID int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if t, ok := a.pending[userChatID]; ok {
		t.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(a.delay, func() {
		a.mu.Lock()
		current, ok := a.pending[userChatID]
		if ok && current == timer {
			delete(a.pending, userChatID)
		}
		a.mu.Unlock()
		if ok && current == timer {
			a.send(userChatID)
		}
	})
	a.pending[userChatID] = timer
}

// Answered cancels the pending auto-reply for userChatID.
func (a *AutoReply) Answered(userChatID int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if t, ok := a.pending[userChatID]; ok {
		t.Stop()
		delete(a.pending, userChatID)
	}
}

func (a *AutoReply) Pending(userChatID int64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.pending[userChatID]
	return ok
}

// Stop cancels every pending auto-reply.
func (a *AutoReply) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for id, t := range a.pending {
		t.Stop()
		delete(a.pending, id)
	}
}

package paytime

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alufers/paystat-bot/internal/apperr"
)

// ChoiceTimeout is how long a boundary confirmation stays open.
const ChoiceTimeout = 10 * time.Minute

type Choice struct {
	Slot     string
	TimedOut bool
}

// Chooser asks someone to pick one of options. It returns a Choice with
// TimedOut set when nobody answered before ctx expired.
type Chooser interface {
	Choose(ctx context.Context, options []string) (Choice, error)
}

// Await settles r into a single slot, asking chooser when r is ambiguous.
// No answer within timeout yields apperr.ErrCancelled.
func Await(ctx context.Context, r Resolution, chooser Chooser, timeout time.Duration) (string, error) {
	if !r.Ambiguous {
		return r.Slot, nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	c, err := chooser.Choose(ctx, r.Options())
	if err != nil {
		return "", err
	}
	if c.TimedOut {
		return "", fmt.Errorf("no pay time was selected: %w", apperr.ErrCancelled)
	}
	for _, o := range r.Options() {
		if o == c.Slot {
			return c.Slot, nil
		}
	}
	return "", fmt.Errorf("%q was not one of the offered pay times: %w", c.Slot, apperr.ErrValidation)
}

var (
	ErrUnknownToken = errors.New("no pending choice for token")
	ErrNotAsker     = errors.New("choice belongs to another user")
)

type question struct {
	asker  int64
	answer chan string
}

// Broker pairs outstanding questions with the answers that arrive later on
// an unrelated event, e.g. a button press. Waiting blocks only the caller.
type Broker struct {
	mu      sync.Mutex
	pending map[string]*question
}

func NewBroker() *Broker {
	return &Broker{pending: map[string]*question{}}
}

func newToken() string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%x", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

// Open registers a new question that only asker may answer and returns its
// token.
func (b *Broker) Open(asker int64) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	for {
		tok := newToken()
		if _, taken := b.pending[tok]; !taken {
			b.pending[tok] = &question{asker: asker, answer: make(chan string, 1)}
			return tok
		}
	}
}

// Wait blocks until an answer for token arrives or ctx ends. The token is
// closed either way.
func (b *Broker) Wait(ctx context.Context, token string) (Choice, error) {
	b.mu.Lock()
	q, ok := b.pending[token]
	b.mu.Unlock()
	if !ok {
		return Choice{}, ErrUnknownToken
	}
	defer b.close(token)
	select {
	case slot := <-q.answer:
		return Choice{Slot: slot}, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Choice{TimedOut: true}, nil
		}
		return Choice{}, ctx.Err()
	}
}

// Deliver answers the question behind token on behalf of user from. Only
// the asker's first answer counts.
func (b *Broker) Deliver(token string, from int64, slot string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.pending[token]
	if !ok {
		return ErrUnknownToken
	}
	if q.asker != from {
		return ErrNotAsker
	}
	select {
	case q.answer <- slot:
		return nil
	default:
		return fmt.Errorf("choice %v already answered", token)
	}
}

// Cancel drops a question nobody will wait for, e.g. when the prompt could
// not be sent.
func (b *Broker) Cancel(token string) {
	b.close(token)
}

func (b *Broker) close(token string) {
	b.mu.Lock()
	delete(b.pending, token)
	b.mu.Unlock()
}

func (b *Broker) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

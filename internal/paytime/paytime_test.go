package paytime

import (
	"context"
	"testing"
	"time"

	"github.com/alufers/paystat-bot/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(h, m int) time.Time {
	return time.Date(2026, 10, 16, h, m, 0, 0, time.UTC)
}

func TestResolveBoundaries(t *testing.T) {
	r := Resolve(at(7, 24))
	assert.True(t, r.Ambiguous)
	assert.Equal(t, [2]string{"6-7 AM", "7-8 AM"}, r.Candidates)
	assert.Equal(t, "2026-10-16", r.Date)

	r = Resolve(at(7, 26))
	assert.False(t, r.Ambiguous)
	assert.Equal(t, "7-8 AM", r.Slot)

	r = Resolve(at(7, 25))
	assert.False(t, r.Ambiguous)

	r = Resolve(at(7, 51))
	assert.True(t, r.Ambiguous)
	assert.Equal(t, [2]string{"7-8 AM", "12-1 PM"}, r.Candidates)

	r = Resolve(at(7, 49))
	assert.Equal(t, "7-8 AM", r.Slot)
}

func TestResolveFirstAndLastSlotHaveOneNeighbour(t *testing.T) {
	r := Resolve(at(0, 5))
	assert.False(t, r.Ambiguous)
	assert.Equal(t, "12-1 AM", r.Slot)

	r = Resolve(at(19, 55))
	assert.False(t, r.Ambiguous)
	assert.Equal(t, "7-8 PM", r.Slot)
}

func TestResolveFallsBackToPreviousHour(t *testing.T) {
	r := Resolve(at(20, 10))
	assert.Equal(t, "7-8 PM", r.Slot)
	assert.Equal(t, "2026-10-16", r.Date)

	r = Resolve(at(2, 30))
	assert.Equal(t, "1-2 AM", r.Slot)

	r = Resolve(at(16, 0))
	assert.Equal(t, FallbackLabel, r.Slot)
	assert.False(t, r.Ambiguous)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("1-2 PM"))
	assert.False(t, Valid("4-5 PM"))
	assert.Len(t, Labels(), 8)
}

type fixedChooser struct {
	choice Choice
	asked  []string
}

func (f *fixedChooser) Choose(ctx context.Context, options []string) (Choice, error) {
	f.asked = options
	return f.choice, nil
}

func TestAwaitUnambiguousSkipsChooser(t *testing.T) {
	c := &fixedChooser{}
	slot, err := Await(context.Background(), Resolve(at(7, 30)), c, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "7-8 AM", slot)
	assert.Nil(t, c.asked)
}

func TestAwaitChosen(t *testing.T) {
	c := &fixedChooser{choice: Choice{Slot: "6-7 AM"}}
	slot, err := Await(context.Background(), Resolve(at(7, 10)), c, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "6-7 AM", slot)
	assert.Equal(t, []string{"6-7 AM", "7-8 AM"}, c.asked)
}

func TestAwaitTimeoutCancels(t *testing.T) {
	c := &fixedChooser{choice: Choice{TimedOut: true}}
	_, err := Await(context.Background(), Resolve(at(7, 10)), c, time.Second)
	assert.ErrorIs(t, err, apperr.ErrCancelled)
}

func TestAwaitRejectsForeignSlot(t *testing.T) {
	c := &fixedChooser{choice: Choice{Slot: "1-2 PM"}}
	_, err := Await(context.Background(), Resolve(at(7, 10)), c, time.Second)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestBrokerDeliver(t *testing.T) {
	b := NewBroker()
	tok := b.Open(42)
	go func() {
		assert.NoError(t, b.Deliver(tok, 42, "7-8 AM"))
	}()
	c, err := b.Wait(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, Choice{Slot: "7-8 AM"}, c)
	assert.Equal(t, 0, b.Pending())
	assert.ErrorIs(t, b.Deliver(tok, 42, "7-8 AM"), ErrUnknownToken)
}

func TestBrokerOnlyFirstAnswerCounts(t *testing.T) {
	b := NewBroker()
	tok := b.Open(42)
	require.NoError(t, b.Deliver(tok, 42, "6-7 AM"))
	assert.Error(t, b.Deliver(tok, 42, "7-8 AM"))
	c, err := b.Wait(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "6-7 AM", c.Slot)
}

func TestBrokerRejectsOtherUsers(t *testing.T) {
	b := NewBroker()
	tok := b.Open(42)
	assert.ErrorIs(t, b.Deliver(tok, 43, "6-7 AM"), ErrNotAsker)
	require.NoError(t, b.Deliver(tok, 42, "7-8 AM"))
	c, err := b.Wait(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "7-8 AM", c.Slot)
}

func TestBrokerTimeout(t *testing.T) {
	b := NewBroker()
	tok := b.Open(42)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	c, err := b.Wait(ctx, tok)
	require.NoError(t, err)
	assert.True(t, c.TimedOut)
	assert.Equal(t, 0, b.Pending())
}

func TestBrokerCancelled(t *testing.T) {
	b := NewBroker()
	tok := b.Open(42)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.Wait(ctx, tok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBrokerUnknownToken(t *testing.T) {
	_, err := NewBroker().Wait(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownToken)
}

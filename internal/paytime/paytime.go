// Package paytime maps the current time onto one of the fixed pay slots.
// Near a slot boundary the answer is ambiguous and the caller has to ask a
// human which of the two neighbouring slots was meant.
package paytime

import (
	"time"
)

type Slot struct {
	Start int // hour of day, inclusive
	End   int // hour of day, exclusive
	Label string
}

var Slots = []Slot{
	{0, 1, "12-1 AM"},
	{1, 2, "1-2 AM"},
	{6, 7, "6-7 AM"},
	{7, 8, "7-8 AM"},
	{12, 13, "12-1 PM"},
	{13, 14, "1-2 PM"},
	{18, 19, "6-7 PM"},
	{19, 20, "7-8 PM"},
}

// FallbackLabel is used when neither the current nor the previous hour falls
// in a slot.
const FallbackLabel = "4-5 PM"

// Within this many minutes of a slot's start, the previous slot is also a
// candidate; from this minute on, the next one is.
const (
	leadBuffer  = 25
	trailBuffer = 50
)

// LastSlot is the slot whose record triggers the daily stats summary.
const LastSlot = "7-8 PM"

const dateLayout = "2006-01-02"

type Resolution struct {
	Date string
	// Slot is set when the time maps to exactly one slot.
	Slot string
	// Candidates holds the two neighbouring slots when Ambiguous.
	Candidates [2]string
	Ambiguous  bool
}

func (r Resolution) Options() []string {
	if r.Ambiguous {
		return r.Candidates[:]
	}
	return []string{r.Slot}
}

// Resolve picks the pay slot for now. It always returns an answer.
func Resolve(now time.Time) Resolution {
	h, m := now.Hour(), now.Minute()
	date := now.Format(dateLayout)
	for i, s := range Slots {
		if h < s.Start || h >= s.End {
			continue
		}
		switch {
		case m < leadBuffer && i > 0:
			return Resolution{Date: date, Candidates: [2]string{Slots[i-1].Label, s.Label}, Ambiguous: true}
		case m >= trailBuffer && i < len(Slots)-1:
			return Resolution{Date: date, Candidates: [2]string{s.Label, Slots[i+1].Label}, Ambiguous: true}
		default:
			return Resolution{Date: date, Slot: s.Label}
		}
	}

	prev := now.Add(-time.Hour)
	label := FallbackLabel
	for i := len(Slots) - 1; i >= 0; i-- {
		if s := Slots[i]; s.Start <= prev.Hour() && prev.Hour() < s.End {
			label = s.Label
			break
		}
	}
	return Resolution{Date: prev.Format(dateLayout), Slot: label}
}

// Valid reports whether label names one of the pay slots.
func Valid(label string) bool {
	for _, s := range Slots {
		if s.Label == label {
			return true
		}
	}
	return false
}

func Labels() []string {
	out := make([]string, len(Slots))
	for i, s := range Slots {
		out[i] = s.Label
	}
	return out
}

// Package voids tracks pay voids per user. Three voids inside one week earn
// a 24 hour pay ban; a void while banned restarts the ban.
package voids

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/alufers/paystat-bot/internal/apperr"
	"github.com/alufers/paystat-bot/internal/clock"
	"go.uber.org/zap"
)

const (
	VoidsPerBan = 3
	BanLength   = 24 * time.Hour
)

// banLayout is how ban expiries are written: a local wall time without zone.
const banLayout = "2006-01-02T15:04:05"

// Record is the stored state of one user.
type Record struct {
	VoidCount int        `json:"void_count"`
	BanUntil  *time.Time `json:"-"`
}

type recordJSON struct {
	VoidCount int     `json:"void_count"`
	BanUntil  *string `json:"ban_until"`
}

// Document is the whole void file.
type Document struct {
	Voids map[string]Record `json:"voids"`
	// loc is the zone ban expiries are written in and read back from.
	loc *time.Location
}

func NewDocument(loc *time.Location) *Document {
	return &Document{Voids: map[string]Record{}, loc: loc}
}

func (d *Document) location() *time.Location {
	if d.loc == nil {
		return time.Local
	}
	return d.loc
}

func (d *Document) MarshalJSON() ([]byte, error) {
	out := struct {
		Voids map[string]recordJSON `json:"voids"`
	}{Voids: make(map[string]recordJSON, len(d.Voids))}
	for k, r := range d.Voids {
		rj := recordJSON{VoidCount: r.VoidCount}
		if r.BanUntil != nil {
			s := r.BanUntil.In(d.location()).Format(banLayout)
			rj.BanUntil = &s
		}
		out.Voids[k] = rj
	}
	return json.Marshal(out)
}

func (d *Document) UnmarshalJSON(b []byte) error {
	var in struct {
		Voids map[string]recordJSON `json:"voids"`
	}
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	d.Voids = make(map[string]Record, len(in.Voids))
	for k, rj := range in.Voids {
		r := Record{VoidCount: rj.VoidCount}
		if rj.BanUntil != nil && *rj.BanUntil != "" {
			t, err := parseBan(*rj.BanUntil, d.location())
			if err != nil {
				return fmt.Errorf("ban_until for %q: %w", k, err)
			}
			r.BanUntil = &t
		}
		d.Voids[k] = r
	}
	return nil
}

func parseBan(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{banLayout, "2006-01-02T15:04:05.999999"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func (d *Document) clone() *Document {
	out := &Document{Voids: make(map[string]Record, len(d.Voids)), loc: d.loc}
	for k, v := range d.Voids {
		out.Voids[k] = v
	}
	return out
}

type Storage interface {
	Load(loc *time.Location) (*Document, error)
	Save(*Document) error
}

type Kind int

const (
	VoidRecorded Kind = iota
	BanApplied
	BanExtended
)

func (k Kind) String() string {
	switch k {
	case VoidRecorded:
		return "void recorded"
	case BanApplied:
		return "ban applied"
	case BanExtended:
		return "ban extended"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Outcome describes what a void did.
type Outcome struct {
	Kind Kind
	// User is the normalised key, Label the name as typed.
	User     string
	Label    string
	Count    int
	BanUntil time.Time
}

type Tracker struct {
	mu      sync.Mutex
	clock   clock.Clock
	storage Storage
	doc     *Document
	log     *zap.Logger
}

// NewTracker loads the void file. Bans are computed on the wall clock of
// loc, so expiries land on the hour in that zone.
func NewTracker(storage Storage, c clock.Clock, loc *time.Location, log *zap.Logger) (*Tracker, error) {
	if loc == nil {
		loc = time.Local
	}
	doc, err := storage.Load(loc)
	if err != nil {
		return nil, fmt.Errorf("load voids: %w", err)
	}
	return &Tracker{
		clock:   clock.InLocation(c, loc),
		storage: storage,
		doc:     doc,
		log:     log.Named("voids"),
	}, nil
}

// Key normalises a username the way void records are keyed.
func Key(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// CeilHour rounds t up to the next full hour of its own wall clock; t on the
// hour is unchanged.
func CeilHour(t time.Time) time.Time {
	floor := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
	if floor.Equal(t) {
		return t
	}
	return floor.Add(time.Hour)
}

// RecordVoid counts one void against username and persists the result before
// returning it.
func (t *Tracker) RecordVoid(username string) (Outcome, error) {
	key := Key(username)
	if key == "" {
		return Outcome{}, fmt.Errorf("username is required: %w", apperr.ErrValidation)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	rec := t.doc.Voids[key]
	out := Outcome{User: key, Label: strings.TrimSpace(username)}

	if rec.BanUntil != nil {
		if rec.BanUntil.After(now) {
			until := CeilHour(now.Add(BanLength))
			if !until.After(*rec.BanUntil) {
				until = rec.BanUntil.Add(time.Hour)
			}
			rec.BanUntil = &until
			out.Kind, out.Count, out.BanUntil = BanExtended, rec.VoidCount, until
			return out, t.commit(key, rec, out)
		}
		rec = Record{}
	}

	rec.VoidCount++
	if rec.VoidCount >= VoidsPerBan {
		until := CeilHour(now.Add(BanLength))
		rec = Record{VoidCount: 0, BanUntil: &until}
		out.Kind, out.Count, out.BanUntil = BanApplied, 0, until
		return out, t.commit(key, rec, out)
	}
	out.Kind, out.Count = VoidRecorded, rec.VoidCount
	return out, t.commit(key, rec, out)
}

func (t *Tracker) commit(key string, rec Record, out Outcome) error {
	next := t.doc.clone()
	next.Voids[key] = rec
	if err := t.storage.Save(next); err != nil {
		t.log.Error("save failed, void discarded", zap.String("user", key), zap.Error(err))
		return fmt.Errorf("record void for %v: %w: %v", key, apperr.ErrPersistence, err)
	}
	t.doc = next
	t.log.Info(out.Kind.String(), zap.String("user", key), zap.Int("void_count", out.Count), zap.Time("ban_until", out.BanUntil))
	return nil
}

// Reset forgets every user's voids and bans.
func (t *Tracker) Reset() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	next := t.doc.clone()
	next.Voids = map[string]Record{}
	if err := t.storage.Save(next); err != nil {
		return fmt.Errorf("reset voids: %w: %v", apperr.ErrPersistence, err)
	}
	cleared := len(t.doc.Voids)
	t.doc = next
	t.log.Info("voids reset", zap.Int("cleared", cleared))
	return nil
}

// Status returns the stored record for username, zero when absent.
func (t *Tracker) Status(username string) Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.doc.Voids[Key(username)]
}

// Banned reports whether username is banned at the current time.
func (t *Tracker) Banned(username string) (bool, time.Time) {
	rec := t.Status(username)
	if rec.BanUntil == nil || !rec.BanUntil.After(t.clock.Now()) {
		return false, time.Time{}
	}
	return true, *rec.BanUntil
}

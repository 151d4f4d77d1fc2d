package ledger

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"

	"github.com/alufers/paystat-bot/internal/apperr"
)

// Period is the content of one monthly ledger file.
type Period struct {
	Records      map[string][]PayRecord `json:"records"`
	DailyTotals  map[string]Totals      `json:"daily_totals"`
	WeeklyTotals map[string]Totals      `json:"weekly_totals"`
}

func NewPeriod() *Period {
	p := &Period{}
	p.normalize()
	return p
}

func (p *Period) normalize() {
	if p.Records == nil {
		p.Records = map[string][]PayRecord{}
	}
	if p.DailyTotals == nil {
		p.DailyTotals = map[string]Totals{}
	}
	if p.WeeklyTotals == nil {
		p.WeeklyTotals = map[string]Totals{}
	}
}

func (p *Period) Clone() *Period {
	out := &Period{
		Records:      make(map[string][]PayRecord, len(p.Records)),
		DailyTotals:  make(map[string]Totals, len(p.DailyTotals)),
		WeeklyTotals: make(map[string]Totals, len(p.WeeklyTotals)),
	}
	for k, recs := range p.Records {
		cp := make([]PayRecord, len(recs))
		for i, r := range recs {
			cp[i] = r.clone()
		}
		out.Records[k] = cp
	}
	for k, v := range p.DailyTotals {
		out.DailyTotals[k] = v
	}
	for k, v := range p.WeeklyTotals {
		out.WeeklyTotals[k] = v
	}
	return out
}

// IDSource draws candidate record ids. It is retried until it produces an id
// not yet used in the period.
type IDSource func() string

// RandomID draws a five digit id in 10000..99999.
func RandomID() string {
	return strconv.Itoa(10000 + rand.Intn(90000))
}

// Candidate is a pay run about to be recorded.
type Candidate struct {
	PayDate       string
	PayTime       string
	TotalClaiming int
	PeoplePaid    int
	PaytimePaid   int
	BonusPaid     int
}

func (c Candidate) validate() error {
	if _, err := ParseDate(c.PayDate); err != nil {
		return fmt.Errorf("pay date %q must be YYYY-MM-DD: %w", c.PayDate, apperr.ErrValidation)
	}
	if strings.TrimSpace(c.PayTime) == "" {
		return fmt.Errorf("pay time is required: %w", apperr.ErrValidation)
	}
	return validateCounts(c.TotalClaiming, c.PeoplePaid, c.PaytimePaid, c.BonusPaid)
}

// CheckCounts validates the head counts and amounts without a date or slot,
// so a bad command can be refused before a pay time is asked for.
func (c Candidate) CheckCounts() error {
	return validateCounts(c.TotalClaiming, c.PeoplePaid, c.PaytimePaid, c.BonusPaid)
}

func validateCounts(totalClaiming, peoplePaid, paytimePaid, bonusPaid int) error {
	switch {
	case totalClaiming < 0:
		return fmt.Errorf("total claiming (%d) cannot be negative: %w", totalClaiming, apperr.ErrValidation)
	case peoplePaid < 0:
		return fmt.Errorf("people paid (%d) cannot be negative: %w", peoplePaid, apperr.ErrValidation)
	case peoplePaid > totalClaiming:
		return fmt.Errorf("people paid (%d) cannot exceed total claiming (%d): %w", peoplePaid, totalClaiming, apperr.ErrValidation)
	case paytimePaid < 0:
		return fmt.Errorf("paytime paid (%d) cannot be negative: %w", paytimePaid, apperr.ErrValidation)
	case bonusPaid < 0:
		return fmt.Errorf("bonus paid (%d) cannot be negative: %w", bonusPaid, apperr.ErrValidation)
	}
	return nil
}

func (p *Period) has(payDate, payTime string) bool {
	for _, recs := range p.Records {
		for _, r := range recs {
			if r.PayDate == payDate && r.PayTime == payTime {
				return true
			}
		}
	}
	return false
}

func (p *Period) ids() map[string]bool {
	ids := map[string]bool{}
	for _, recs := range p.Records {
		for _, r := range recs {
			ids[r.RecordID] = true
		}
	}
	return ids
}

// locate returns the date bucket and index of a record.
func (p *Period) locate(recordID string) (string, int, bool) {
	for date, recs := range p.Records {
		for i, r := range recs {
			if r.RecordID == recordID {
				return date, i, true
			}
		}
	}
	return "", 0, false
}

func (p *Period) apply(payDate string, delta Totals) {
	week, _ := WeekStart(payDate)
	p.DailyTotals[payDate] = p.DailyTotals[payDate].Add(delta)
	p.WeeklyTotals[week] = p.WeeklyTotals[week].Add(delta)
}

// AddRecord stores c under a fresh record id and folds it into the daily and
// weekly totals. A second record for the same date and pay time is rejected.
func (p *Period) AddRecord(c Candidate, ids IDSource) (PayRecord, error) {
	p.normalize()
	if err := c.validate(); err != nil {
		return PayRecord{}, err
	}
	if p.has(c.PayDate, c.PayTime) {
		return PayRecord{}, fmt.Errorf("a record already exists for %v at %v: %w", c.PayDate, c.PayTime, apperr.ErrDuplicate)
	}
	if ids == nil {
		ids = RandomID
	}
	used := p.ids()
	id := ids()
	for used[id] {
		id = ids()
	}
	rec := PayRecord{
		RecordID:      id,
		PayDate:       c.PayDate,
		PayTime:       c.PayTime,
		TotalClaiming: c.TotalClaiming,
		PeoplePaid:    c.PeoplePaid,
		PaytimePaid:   c.PaytimePaid,
		BonusPaid:     c.BonusPaid,
	}
	rec.derive()
	p.Records[c.PayDate] = append(p.Records[c.PayDate], rec)
	p.apply(c.PayDate, rec.totals())
	return rec.clone(), nil
}

// AttachMessageReference records the chat message showing the record.
func (p *Period) AttachMessageReference(recordID string, messageID int64) error {
	date, i, ok := p.locate(recordID)
	if !ok {
		return fmt.Errorf("no record found with id %v: %w", recordID, apperr.ErrNotFound)
	}
	id := messageID
	p.Records[date][i].MessageID = &id
	return nil
}

func (p *Period) FindByID(recordID string) (PayRecord, error) {
	date, i, ok := p.locate(recordID)
	if !ok {
		return PayRecord{}, fmt.Errorf("no record found with id %v: %w", recordID, apperr.ErrNotFound)
	}
	return p.Records[date][i].clone(), nil
}

// Edit lists the fields to change; nil fields are left alone.
type Edit struct {
	TotalClaiming *int
	PeoplePaid    *int
	PaytimePaid   *int
	BonusPaid     *int
	PayTime       *string
}

func (e Edit) Empty() bool {
	return e.TotalClaiming == nil && e.PeoplePaid == nil && e.PaytimePaid == nil && e.BonusPaid == nil && e.PayTime == nil
}

type Change struct {
	Field string
	Old   string
	New   string
}

func (c Change) String() string {
	return fmt.Sprintf("%v: %v -> %v", c.Field, c.Old, c.New)
}

// EditRecord applies e to a record and moves the daily and weekly totals by
// the difference between the old and new values. The edit is validated as a
// whole before anything changes.
func (p *Period) EditRecord(recordID string, e Edit) (PayRecord, []Change, error) {
	p.normalize()
	date, i, ok := p.locate(recordID)
	if !ok {
		return PayRecord{}, nil, fmt.Errorf("no record found with id %v: %w", recordID, apperr.ErrNotFound)
	}
	old := p.Records[date][i]
	next := old.clone()
	var changes []Change

	setInt := func(field string, dst *int, v *int) {
		if v == nil {
			return
		}
		changes = append(changes, Change{Field: field, Old: strconv.Itoa(*dst), New: strconv.Itoa(*v)})
		*dst = *v
	}
	setInt("Total Claiming", &next.TotalClaiming, e.TotalClaiming)
	setInt("People Paid", &next.PeoplePaid, e.PeoplePaid)
	setInt("Paytime Paid", &next.PaytimePaid, e.PaytimePaid)
	setInt("Bonus Paid", &next.BonusPaid, e.BonusPaid)
	if e.PayTime != nil {
		payTime := strings.TrimSpace(*e.PayTime)
		if payTime == "" {
			return PayRecord{}, nil, fmt.Errorf("pay time cannot be empty: %w", apperr.ErrValidation)
		}
		if payTime != old.PayTime && p.has(old.PayDate, payTime) {
			return PayRecord{}, nil, fmt.Errorf("a record already exists for %v at %v: %w", old.PayDate, payTime, apperr.ErrDuplicate)
		}
		changes = append(changes, Change{Field: "Pay Time", Old: old.PayTime, New: payTime})
		next.PayTime = payTime
	}
	if err := validateCounts(next.TotalClaiming, next.PeoplePaid, next.PaytimePaid, next.BonusPaid); err != nil {
		return PayRecord{}, nil, err
	}
	next.derive()

	p.Records[date][i] = next
	p.apply(next.PayDate, next.totals().Sub(old.totals()))
	return next.clone(), changes, nil
}

// Daily returns the totals for date, zero if nothing was recorded.
func (p *Period) Daily(date string) Totals {
	return p.DailyTotals[date]
}

// Weekly returns the totals for the week starting weekStart.
func (p *Period) Weekly(weekStart string) Totals {
	return p.WeeklyTotals[weekStart]
}

// Each calls fn for every record, ordered by date then insertion.
func (p *Period) Each(fn func(PayRecord)) {
	dates := make([]string, 0, len(p.Records))
	for d := range p.Records {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	for _, d := range dates {
		for _, r := range p.Records[d] {
			fn(r.clone())
		}
	}
}

func (p *Period) Len() int {
	n := 0
	for _, recs := range p.Records {
		n += len(recs)
	}
	return n
}

// Recompute rebuilds the daily and weekly totals from the records alone.
func (p *Period) Recompute() (daily, weekly map[string]Totals) {
	daily = map[string]Totals{}
	weekly = map[string]Totals{}
	p.Each(func(r PayRecord) {
		week, err := WeekStart(r.PayDate)
		if err != nil {
			return
		}
		daily[r.PayDate] = daily[r.PayDate].Add(r.totals())
		weekly[week] = weekly[week].Add(r.totals())
	})
	return daily, weekly
}

// Drift lists the dates and weeks whose stored totals differ from a full
// recomputation. An empty result means the incremental totals are exact.
func (p *Period) Drift() []string {
	daily, weekly := p.Recompute()
	var out []string
	cmp := func(kind string, stored, want map[string]Totals) {
		keys := map[string]bool{}
		for k := range stored {
			keys[k] = true
		}
		for k := range want {
			keys[k] = true
		}
		for k := range keys {
			if stored[k] != want[k] {
				out = append(out, kind+" "+k)
			}
		}
	}
	cmp("daily", p.DailyTotals, daily)
	cmp("weekly", p.WeeklyTotals, weekly)
	sort.Strings(out)
	return out
}

// Package ledger keeps the monthly pay-run ledger: one record per pay slot,
// plus running daily and weekly totals that are maintained incrementally on
// every add and edit.
package ledger

import (
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// PayRecord is a single recorded pay run.
type PayRecord struct {
	RecordID      string `json:"record_id"`
	PayDate       string `json:"pay_date"`
	PayTime       string `json:"pay_time"`
	TotalClaiming int    `json:"total_claiming"`
	PeoplePaid    int    `json:"people_paid"`
	PeopleDenied  int    `json:"people_denied"`
	PaytimePaid   int    `json:"paytime_paid"`
	BonusPaid     int    `json:"bonus_paid"`
	TotalPaid     int    `json:"total_paid"`
	// MessageID points at the confirmation card posted in the pay chat. It is
	// unset until that card exists.
	MessageID *int64 `json:"message_id,omitempty"`
}

func (r *PayRecord) derive() {
	r.PeopleDenied = r.TotalClaiming - r.PeoplePaid
	r.TotalPaid = r.PaytimePaid + r.BonusPaid
}

func (r PayRecord) totals() Totals {
	return Totals{
		PeoplePaid:   r.PeoplePaid,
		PeopleDenied: r.PeopleDenied,
		PaytimePaid:  r.PaytimePaid,
		BonusPaid:    r.BonusPaid,
		TotalPaid:    r.TotalPaid,
	}
}

func (r PayRecord) clone() PayRecord {
	if r.MessageID != nil {
		id := *r.MessageID
		r.MessageID = &id
	}
	return r
}

// Totals is an aggregate over the records of one day or one week.
type Totals struct {
	PeoplePaid   int `json:"people_paid"`
	PeopleDenied int `json:"people_denied"`
	PaytimePaid  int `json:"paytime_paid"`
	BonusPaid    int `json:"bonus_paid"`
	TotalPaid    int `json:"total_paid"`
}

func (t Totals) Add(o Totals) Totals {
	return Totals{
		PeoplePaid:   t.PeoplePaid + o.PeoplePaid,
		PeopleDenied: t.PeopleDenied + o.PeopleDenied,
		PaytimePaid:  t.PaytimePaid + o.PaytimePaid,
		BonusPaid:    t.BonusPaid + o.BonusPaid,
		TotalPaid:    t.TotalPaid + o.TotalPaid,
	}
}

func (t Totals) Sub(o Totals) Totals {
	return t.Add(Totals{
		PeoplePaid:   -o.PeoplePaid,
		PeopleDenied: -o.PeopleDenied,
		PaytimePaid:  -o.PaytimePaid,
		BonusPaid:    -o.BonusPaid,
		TotalPaid:    -o.TotalPaid,
	})
}

// ParseDate parses a YYYY-MM-DD date as a plain calendar day.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// WeekStart returns the Monday of the week containing date.
func WeekStart(date string) (string, error) {
	d, err := ParseDate(date)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", date, err)
	}
	isoWeekday := int(d.Weekday())
	if isoWeekday == 0 {
		isoWeekday = 7
	}
	return d.AddDate(0, 0, -(isoWeekday - 1)).Format(DateLayout), nil
}

// PeriodName names the ledger period that t falls in, e.g. OCT_2026.
func PeriodName(t time.Time) string {
	return strings.ToUpper(t.Format("Jan_2006"))
}

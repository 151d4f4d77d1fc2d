package ledger

import (
	"fmt"
	"strconv"

	"github.com/alufers/paystat-bot/internal/apperr"
)

// Criteria selects records for a lookup. A record matches when any supplied
// criterion matches it, so a record id combined with an amount range returns
// the union of both.
type Criteria struct {
	MessageID *int64
	RecordID  string
	// PayDate and PayTime only match as a pair.
	PayDate   string
	PayTime   string
	MinAmount *int
	MaxAmount *int
	MinBonus  *int
	MaxBonus  *int
}

func (c Criteria) Empty() bool {
	return c.MessageID == nil && c.RecordID == "" && c.PayDate == "" && c.PayTime == "" &&
		c.MinAmount == nil && c.MaxAmount == nil && c.MinBonus == nil && c.MaxBonus == nil
}

func (c Criteria) Validate() error {
	if (c.PayDate == "") != (c.PayTime == "") {
		return fmt.Errorf("pay_time and pay_date must be provided together: %w", apperr.ErrValidation)
	}
	if c.PayDate != "" {
		if _, err := ParseDate(c.PayDate); err != nil {
			return fmt.Errorf("pay_date %q must be YYYY-MM-DD: %w", c.PayDate, apperr.ErrValidation)
		}
	}
	return nil
}

func inRange(v int, lo, hi *int) bool {
	if lo == nil && hi == nil {
		return false
	}
	if lo != nil && v < *lo {
		return false
	}
	if hi != nil && v > *hi {
		return false
	}
	return true
}

func (c Criteria) Match(r PayRecord) bool {
	switch {
	case c.MessageID != nil && r.MessageID != nil && *r.MessageID == *c.MessageID:
		return true
	case c.RecordID != "" && r.RecordID == c.RecordID:
		return true
	case c.PayTime != "" && r.PayTime == c.PayTime && r.PayDate == c.PayDate:
		return true
	case inRange(r.PaytimePaid, c.MinAmount, c.MaxAmount):
		return true
	case inRange(r.BonusPaid, c.MinBonus, c.MaxBonus):
		return true
	}
	return false
}

// Search returns every record matched by c, ordered by date.
func (p *Period) Search(c Criteria) ([]PayRecord, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	var out []PayRecord
	p.Each(func(r PayRecord) {
		if c.Match(r) {
			out = append(out, r)
		}
	})
	return out, nil
}

// ParseMessageID parses a chat message id as typed by a user.
func ParseMessageID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("message id %q is not a number: %w", s, apperr.ErrValidation)
	}
	return id, nil
}

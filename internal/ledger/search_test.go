package ledger

import (
	"testing"

	"github.com/alufers/paystat-bot/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func searchFixture(t *testing.T) *Period {
	t.Helper()
	p := NewPeriod()
	add := func(id, date, slot string, paytime, bonus int) {
		_, err := p.AddRecord(Candidate{PayDate: date, PayTime: slot, TotalClaiming: 5, PeoplePaid: 5, PaytimePaid: paytime, BonusPaid: bonus}, seqIDs(id))
		require.NoError(t, err)
	}
	add("11111", "2026-10-15", "7-8 AM", 100, 0)
	add("22222", "2026-10-14", "12-1 PM", 300, 50)
	add("33333", "2026-10-16", "7-8 PM", 500, 10)
	require.NoError(t, p.AttachMessageReference("33333", 9001))
	return p
}

func ids(recs []PayRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.RecordID
	}
	return out
}

func TestSearchSingleCriteria(t *testing.T) {
	p := searchFixture(t)
	msg := int64(9001)

	got, err := p.Search(Criteria{MessageID: &msg})
	require.NoError(t, err)
	assert.Equal(t, []string{"33333"}, ids(got))

	got, err = p.Search(Criteria{RecordID: "11111"})
	require.NoError(t, err)
	assert.Equal(t, []string{"11111"}, ids(got))

	got, err = p.Search(Criteria{PayDate: "2026-10-14", PayTime: "12-1 PM"})
	require.NoError(t, err)
	assert.Equal(t, []string{"22222"}, ids(got))

	got, err = p.Search(Criteria{MinAmount: intp(200)})
	require.NoError(t, err)
	assert.Equal(t, []string{"22222", "33333"}, ids(got), "ordered by date")

	got, err = p.Search(Criteria{MaxAmount: intp(300)})
	require.NoError(t, err)
	assert.Equal(t, []string{"22222", "11111"}, ids(got))

	got, err = p.Search(Criteria{MinBonus: intp(5), MaxBonus: intp(20)})
	require.NoError(t, err)
	assert.Equal(t, []string{"33333"}, ids(got))
}

func TestSearchIsUnionOfCriteria(t *testing.T) {
	p := searchFixture(t)
	got, err := p.Search(Criteria{RecordID: "11111", MinAmount: intp(400)})
	require.NoError(t, err)
	assert.Equal(t, []string{"11111", "33333"}, ids(got))
}

func TestSearchRequiresDateAndTimeTogether(t *testing.T) {
	p := searchFixture(t)
	_, err := p.Search(Criteria{PayTime: "7-8 AM"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = p.Search(Criteria{PayDate: "2026-10-15"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSearchNoCriteriaMatchesNothing(t *testing.T) {
	got, err := searchFixture(t).Search(Criteria{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseMessageID(t *testing.T) {
	id, err := ParseMessageID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	_, err = ParseMessageID("abc")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

package ledger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alufers/paystat-bot/internal/apperr"
	"github.com/alufers/paystat-bot/internal/jsonfile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStorage struct {
	period *Period
	fail   bool
	saves  int
}

func (s *failingStorage) Load() (*Period, error) { return s.period.Clone(), nil }

func (s *failingStorage) Save(p *Period) error {
	if s.fail {
		return errors.New("disk full")
	}
	s.saves++
	s.period = p.Clone()
	return nil
}

func TestBookPersistsEveryMutation(t *testing.T) {
	path := PeriodFile(t.TempDir(), "OCT_2026")
	book, err := Open("OCT_2026", FileStorage{Path: path}, WithIDSource(seqIDs("12345")))
	require.NoError(t, err)

	rec, err := book.AddRecord(Candidate{PayDate: "2026-10-16", PayTime: "7-8 AM", TotalClaiming: 4, PeoplePaid: 3, PaytimePaid: 90, BonusPaid: 10})
	require.NoError(t, err)
	require.NoError(t, book.AttachMessageReference(rec.RecordID, 55))

	reopened, err := Open("OCT_2026", FileStorage{Path: path})
	require.NoError(t, err)
	got, err := reopened.FindByID("12345")
	require.NoError(t, err)
	require.NotNil(t, got.MessageID)
	assert.Equal(t, int64(55), *got.MessageID)
	assert.Equal(t, book.DailyTotals("2026-10-16"), reopened.DailyTotals("2026-10-16"))
	assert.Equal(t, book.WeeklyTotals("2026-10-12"), reopened.WeeklyTotals("2026-10-12"))
}

func TestBookCreatesEmptyPeriodFile(t *testing.T) {
	path := PeriodFile(t.TempDir(), "OCT_2026")
	_, err := Open("OCT_2026", FileStorage{Path: path})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"records": {}, "daily_totals": {}, "weekly_totals": {}}`, string(data))
}

func TestBookSaveFailureLeavesStateUntouched(t *testing.T) {
	storage := &failingStorage{period: NewPeriod()}
	book, err := Open("OCT_2026", storage, WithIDSource(seqIDs("12345")))
	require.NoError(t, err)
	rec, err := book.AddRecord(Candidate{PayDate: "2026-10-16", PayTime: "7-8 AM", TotalClaiming: 4, PeoplePaid: 3})
	require.NoError(t, err)
	before := book.Snapshot()

	storage.fail = true
	_, err = book.AddRecord(Candidate{PayDate: "2026-10-16", PayTime: "12-1 PM", TotalClaiming: 4, PeoplePaid: 3})
	assert.ErrorIs(t, err, apperr.ErrPersistence)
	_, _, err = book.EditRecord(rec.RecordID, Edit{PeoplePaid: intp(1)})
	assert.ErrorIs(t, err, apperr.ErrPersistence)

	assert.Equal(t, before, book.Snapshot())
	assert.Equal(t, before, storage.period)
}

func TestBookAttachIsIdempotent(t *testing.T) {
	storage := &failingStorage{period: NewPeriod()}
	book, err := Open("OCT_2026", storage)
	require.NoError(t, err)
	rec, err := book.AddRecord(Candidate{PayDate: "2026-10-16", PayTime: "7-8 AM"})
	require.NoError(t, err)

	require.NoError(t, book.AttachMessageReference(rec.RecordID, 1))
	saves := storage.saves
	require.NoError(t, book.AttachMessageReference(rec.RecordID, 1))
	assert.Equal(t, saves, storage.saves)
}

func TestPeriodFileRoundTrip(t *testing.T) {
	p := searchFixture(t)
	path := filepath.Join(t.TempDir(), "OCT_2026.json")
	require.NoError(t, jsonfile.Write(path, p))

	loaded, err := FileStorage{Path: path}.Load()
	require.NoError(t, err)
	assert.Equal(t, p, loaded)
}

func TestPeriodFileLayout(t *testing.T) {
	p := NewPeriod()
	_, err := p.AddRecord(Candidate{PayDate: "2026-10-16", PayTime: "7-8 AM", TotalClaiming: 2, PeoplePaid: 1, PaytimePaid: 10, BonusPaid: 5}, seqIDs("12345"))
	require.NoError(t, err)
	require.NoError(t, p.AttachMessageReference("12345", 99))

	data, err := jsonfile.Encode(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{
	    "records": {"2026-10-16": [{
	        "record_id": "12345", "pay_date": "2026-10-16", "pay_time": "7-8 AM",
	        "total_claiming": 2, "people_paid": 1, "people_denied": 1,
	        "paytime_paid": 10, "bonus_paid": 5, "total_paid": 15, "message_id": 99}]},
	    "daily_totals": {"2026-10-16": {"people_paid": 1, "people_denied": 1, "paytime_paid": 10, "bonus_paid": 5, "total_paid": 15}},
	    "weekly_totals": {"2026-10-12": {"people_paid": 1, "people_denied": 1, "paytime_paid": 10, "bonus_paid": 5, "total_paid": 15}}
	}`, string(data))
}

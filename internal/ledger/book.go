package ledger

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/alufers/paystat-bot/internal/apperr"
	"github.com/alufers/paystat-bot/internal/jsonfile"
	"go.uber.org/zap"
)

// Storage loads and saves a whole period at once.
type Storage interface {
	Load() (*Period, error)
	Save(*Period) error
}

// FileStorage keeps a period in one JSON file.
type FileStorage struct {
	Path string
}

// PeriodFile is the path of the ledger file for the named period in dir.
func PeriodFile(dir, period string) string {
	return filepath.Join(dir, period+".json")
}

func (s FileStorage) Load() (*Period, error) {
	if _, err := jsonfile.Ensure(s.Path, NewPeriod()); err != nil {
		return nil, err
	}
	p := &Period{}
	if err := jsonfile.Read(s.Path, p); err != nil {
		return nil, err
	}
	p.normalize()
	return p, nil
}

func (s FileStorage) Save(p *Period) error {
	return jsonfile.Write(s.Path, p)
}

// Book is the active period, written through to its storage on every
// mutation. Mutations are applied to a copy and only swapped in once the
// save succeeded, so memory and disk never disagree.
//
// The mutex only protects the in-memory value. Two processes sharing one
// period file can still overwrite each other's writes.
type Book struct {
	mu      sync.Mutex
	name    string
	storage Storage
	period  *Period
	ids     IDSource
	log     *zap.Logger
}

type Option func(*Book)

func WithIDSource(ids IDSource) Option {
	return func(b *Book) { b.ids = ids }
}

func WithLogger(log *zap.Logger) Option {
	return func(b *Book) { b.log = log }
}

func Open(name string, storage Storage, opts ...Option) (*Book, error) {
	b := &Book{
		name:    name,
		storage: storage,
		ids:     RandomID,
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(b)
	}
	p, err := storage.Load()
	if err != nil {
		return nil, fmt.Errorf("load period %v: %w", name, err)
	}
	b.period = p
	b.log = b.log.Named("ledger").With(zap.String("period", name))
	b.log.Info("period loaded", zap.Int("records", p.Len()))
	return b, nil
}

func (b *Book) Name() string {
	return b.name
}

func (b *Book) mutate(op string, fn func(p *Period) error) error {
	next := b.period.Clone()
	if err := fn(next); err != nil {
		return err
	}
	if err := b.storage.Save(next); err != nil {
		b.log.Error("save failed, change discarded", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%v: %w: %v", op, apperr.ErrPersistence, err)
	}
	b.period = next
	return nil
}

func (b *Book) AddRecord(c Candidate) (PayRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var rec PayRecord
	err := b.mutate("add record", func(p *Period) error {
		var err error
		rec, err = p.AddRecord(c, b.ids)
		return err
	})
	if err != nil {
		return PayRecord{}, err
	}
	b.log.Info("record added",
		zap.String("record_id", rec.RecordID),
		zap.String("pay_date", rec.PayDate),
		zap.String("pay_time", rec.PayTime))
	return rec, nil
}

func (b *Book) AttachMessageReference(recordID string, messageID int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if rec, err := b.period.FindByID(recordID); err == nil && rec.MessageID != nil && *rec.MessageID == messageID {
		return nil
	}
	return b.mutate("attach message", func(p *Period) error {
		return p.AttachMessageReference(recordID, messageID)
	})
}

func (b *Book) FindByID(recordID string) (PayRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.period.FindByID(recordID)
}

func (b *Book) EditRecord(recordID string, e Edit) (PayRecord, []Change, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var (
		rec     PayRecord
		changes []Change
	)
	err := b.mutate("edit record", func(p *Period) error {
		var err error
		rec, changes, err = p.EditRecord(recordID, e)
		return err
	})
	if err != nil {
		return PayRecord{}, nil, err
	}
	b.log.Info("record edited", zap.String("record_id", recordID), zap.Int("changes", len(changes)))
	return rec, changes, nil
}

func (b *Book) Search(c Criteria) ([]PayRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.period.Search(c)
}

func (b *Book) DailyTotals(date string) Totals {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.period.Daily(date)
}

func (b *Book) WeeklyTotals(weekStart string) Totals {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.period.Weekly(weekStart)
}

// Snapshot returns a copy of the whole period.
func (b *Book) Snapshot() *Period {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.period.Clone()
}

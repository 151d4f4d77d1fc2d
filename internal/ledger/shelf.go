package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/alufers/paystat-bot/internal/apperr"
)

// Shelf opens one Book per monthly period file in a directory and keeps
// them open.
type Shelf struct {
	dir  string
	opts []Option

	mu    sync.Mutex
	books map[string]*Book
}

func NewShelf(dir string, opts ...Option) *Shelf {
	return &Shelf{dir: dir, opts: opts, books: map[string]*Book{}}
}

func (s *Shelf) Dir() string {
	return s.dir
}

// Period returns the book for the named period, creating its file if needed.
func (s *Shelf) Period(name string) (*Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.books[name]; ok {
		return b, nil
	}
	b, err := Open(name, FileStorage{Path: PeriodFile(s.dir, name)}, s.opts...)
	if err != nil {
		return nil, err
	}
	s.books[name] = b
	return b, nil
}

// At returns the book for the period containing t.
func (s *Shelf) At(t time.Time) (*Book, error) {
	return s.Period(PeriodName(t))
}

// ForDate returns the book holding records for a YYYY-MM-DD date.
func (s *Shelf) ForDate(date string) (*Book, error) {
	t, err := ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, apperr.ErrValidation)
	}
	return s.At(t)
}

package receipt

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store keeps processed receipts in memory, indexed by id and by identity key.
// Both indexes change together under the write lock.
type Store struct {
	mu    sync.RWMutex
	byID  map[string]*Record
	byKey map[IdentityKey]string

	now   func() time.Time
	newID func() string
	loc   *time.Location
}

// StoreOption customises a Store.
type StoreOption func(*Store)

// WithClock overrides the wall clock used for the future-purchase check.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides the record id generator.
func WithIDGenerator(newID func() string) StoreOption {
	return func(s *Store) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithLocation sets the zone purchase date/times are interpreted in.
func WithLocation(loc *time.Location) StoreOption {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// NewStore constructs an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		byID:  make(map[string]*Record),
		byKey: make(map[IdentityKey]string),
		now:   time.Now,
		newID: uuid.NewString,
		loc:   time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Process validates and scores the input and stores it. A receipt whose
// identity key is already present is rejected with a *DuplicateError.
func (s *Store) Process(in Input) (*Record, error) {
	rec, err := build(in, s.newID, s.now(), s.loc)
	if err != nil {
		return nil, err
	}
	key := rec.IdentityKey()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byKey[key]; exists {
		return nil, &DuplicateError{Key: key}
	}
	if _, exists := s.byID[rec.id]; exists {
		return nil, fmt.Errorf("receipt: generated id %q already in use", rec.id)
	}
	s.byID[rec.id] = rec
	s.byKey[key] = rec.id
	return rec, nil
}

// Get returns the stored record or a *NotFoundError.
func (s *Store) Get(id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return rec, nil
}

// Points returns the points of the stored record.
func (s *Store) Points(id string) (int, error) {
	rec, err := s.Get(id)
	if err != nil {
		return 0, err
	}
	return rec.Points(), nil
}

// Formatted returns the display projection of the stored record.
func (s *Store) Formatted(id string) (View, error) {
	rec, err := s.Get(id)
	if err != nil {
		return View{}, err
	}
	return rec.View(), nil
}

// Has reports whether id is stored.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byID[id]
	return ok
}

// Count returns the number of stored records.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Clear drops every record and identity key.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[string]*Record)
	s.byKey = make(map[IdentityKey]string)
}

// Package memstore provides an in-memory domain.Store used by tests and
// dry runs over captured data.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/quoteworks/docnum/internal/numbering/domain"
)

// Store is a goroutine-safe in-memory partition enforcing per-domain number uniqueness.
type Store struct {
	mu      sync.Mutex
	desc    domain.DomainDescriptor
	records []domain.NumberRecord
	nextID  int64

	// unavailable makes every call fail with StoreUnavailableError.
	unavailable bool
	// failUpdates maps record ids to errors returned by UpdateNumber.
	failUpdates map[int64]error
	writes      int
}

// Ensure Store implements domain.Store.
var _ domain.Store = (*Store)(nil)

// New creates an empty store for desc.
func New(desc domain.DomainDescriptor) *Store {
	return &Store{desc: desc, nextID: 1, failUpdates: make(map[int64]error)}
}

// Seed is a record preloaded into a store.
type Seed struct {
	Number    string
	Label     string
	CreatedAt *time.Time
}

// WithRecords appends seeds in order, assigning sequential ids. Seeds skip the
// uniqueness check so tests can model corrupted partitions.
func (s *Store) WithRecords(seeds ...Seed) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, seed := range seeds {
		s.records = append(s.records, s.newRecord(seed.Number, seed.Label, seed.CreatedAt))
	}
	return s
}

// SetUnavailable toggles simulated unavailability.
func (s *Store) SetUnavailable(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = v
}

// FailUpdate makes UpdateNumber for recordID return err.
func (s *Store) FailUpdate(recordID int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failUpdates[recordID] = err
}

// Writes returns how many successful UpdateNumber and Insert calls were made.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Numbers returns the stored numbers in row order.
func (s *Store) Numbers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.records))
	for i, r := range s.records {
		out[i] = r.Number
	}
	return out
}

// Record returns the record with the given id.
func (s *Store) Record(id int64) (domain.NumberRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.RecordID == id {
			return r, true
		}
	}
	return domain.NumberRecord{}, false
}

// Descriptor returns the static description of the partition.
func (s *Store) Descriptor() domain.DomainDescriptor {
	return s.desc
}

// ListNumbers returns every record with a non-empty number, in row order.
func (s *Store) ListNumbers(ctx context.Context) ([]domain.NumberRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return nil, &domain.StoreUnavailableError{Domain: s.desc.Name, Err: errSimulated}
	}
	out := make([]domain.NumberRecord, 0, len(s.records))
	for _, r := range s.records {
		if r.Number == "" {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// UpdateNumber rewrites the number of one record.
func (s *Store) UpdateNumber(ctx context.Context, recordID int64, newNumber string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return &domain.StoreUnavailableError{Domain: s.desc.Name, Err: errSimulated}
	}
	if err, ok := s.failUpdates[recordID]; ok {
		return err
	}
	idx := -1
	for i, r := range s.records {
		if r.RecordID == recordID {
			idx = i
			continue
		}
		if r.Number == newNumber {
			return &domain.ConstraintViolationError{Domain: s.desc.Name, Number: newNumber}
		}
	}
	if idx < 0 {
		return &domain.NotFoundError{Domain: s.desc.Name, RecordID: recordID}
	}
	s.records[idx].Number = newNumber
	s.records[idx].Malformed = !domain.IsWellFormed(newNumber, s.desc.Prefix)
	s.writes++
	return nil
}

// Insert persists a new numbered record and returns its identifier.
func (s *Store) Insert(ctx context.Context, rec domain.NewRecord) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return 0, &domain.StoreUnavailableError{Domain: s.desc.Name, Err: errSimulated}
	}
	for _, r := range s.records {
		if r.Number == rec.Number {
			return 0, &domain.ConstraintViolationError{Domain: s.desc.Name, Number: rec.Number}
		}
	}
	var created *time.Time
	if !rec.CreatedAt.IsZero() {
		t := rec.CreatedAt
		created = &t
	}
	r := s.newRecord(rec.Number, rec.Label, created)
	s.records = append(s.records, r)
	s.writes++
	return r.RecordID, nil
}

func (s *Store) newRecord(number, label string, created *time.Time) domain.NumberRecord {
	r := domain.NumberRecord{
		Domain:    s.desc.Name,
		RecordID:  s.nextID,
		Number:    number,
		Label:     label,
		CreatedAt: created,
		Malformed: number != "" && !domain.IsWellFormed(number, s.desc.Prefix),
	}
	s.nextID++
	return r
}

type simulatedError struct{}

func (simulatedError) Error() string { return "simulated outage" }

var errSimulated error = simulatedError{}

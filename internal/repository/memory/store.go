// Package memory keeps incidents, their history and the classification
// registry in process memory. It backs the service when no Postgres DSN is
// configured and stands in for Postgres in tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/repository"
)

// Store holds all in-memory state shared by the repositories.
type Store struct {
	mu            sync.RWMutex
	incidents     map[string]domain.Incident
	byNumber      map[int64]string
	nextNumber    int64
	history       map[string][]domain.HistoryRecord
	log           []domain.HistoryRecord
	nextHistoryID int64
	entities      map[domain.ClassificationKind]map[string]domain.ClassificationEntity
	users         map[string]domain.User

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	now func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		incidents: make(map[string]domain.Incident),
		byNumber:  make(map[int64]string),
		history:   make(map[string][]domain.HistoryRecord),
		entities:  make(map[domain.ClassificationKind]map[string]domain.ClassificationEntity),
		users:     make(map[string]domain.User),
		locks:     make(map[string]*sync.Mutex),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source used for store-assigned timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Incidents returns the incident repository view of the store.
func (s *Store) Incidents() repository.IncidentRepository {
	return &incidentRepository{store: s}
}

// History returns the ledger repository view of the store.
func (s *Store) History() repository.HistoryRepository {
	return &historyRepository{store: s}
}

// Classifications returns the registry repository view of the store.
func (s *Store) Classifications() repository.ClassificationRepository {
	return &classificationRepository{store: s}
}

// UnitOfWork returns the transaction boundary for the store.
func (s *Store) UnitOfWork() repository.UnitOfWork {
	return &unitOfWork{store: s}
}

func (s *Store) incidentLock(id string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	m, ok := s.locks[id]
	if !ok {
		m = &sync.Mutex{}
		s.locks[id] = m
	}
	return m
}

// tx tracks the incident locks held by one unit of work.
type tx struct {
	held map[string]*sync.Mutex
}

func (t *tx) lock(id string, m *sync.Mutex) {
	if _, ok := t.held[id]; ok {
		return
	}
	m.Lock()
	t.held[id] = m
}

func (t *tx) release() {
	for id, m := range t.held {
		m.Unlock()
		delete(t.held, id)
	}
}

// unitOfWork serializes work per incident. Writes become visible as soon as
// they are made; a failing unit of work does not undo earlier writes.
type unitOfWork struct {
	store *Store
}

func (u *unitOfWork) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := repository.TxFromContext(ctx).(*tx); ok {
		return fn(ctx)
	}
	t := &tx{held: make(map[string]*sync.Mutex)}
	defer t.release()
	return fn(repository.WithTxContext(ctx, t))
}

func cloneID(id *string) *string {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func cloneIncident(in domain.Incident) domain.Incident {
	in.AssigneeID = cloneID(in.AssigneeID)
	in.InitialAssigneeID = cloneID(in.InitialAssigneeID)
	return in
}

func cloneRecord(in domain.HistoryRecord) domain.HistoryRecord {
	in.PreviousAssigneeID = cloneID(in.PreviousAssigneeID)
	in.NewAssigneeID = cloneID(in.NewAssigneeID)
	return in
}

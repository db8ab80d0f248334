package service

import (
	"context"
	"errors"
	"time"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/repository"
	apperrors "github.com/spec-kit/incident-service/pkg/util/errorutil"
)

// LedgerService owns the append-only incident history and the views derived
// from it.
type LedgerService struct {
	history   repository.HistoryRepository
	incidents repository.IncidentRepository
	clock     func() time.Time
}

// LedgerDependencies bundles repositories for the ledger.
type LedgerDependencies struct {
	HistoryRepo  repository.HistoryRepository
	IncidentRepo repository.IncidentRepository
	Clock        func() time.Time
}

// AppendInput carries one transition to record.
type AppendInput struct {
	IncidentID         string
	PreviousStatus     domain.IncidentStatus
	NewStatus          domain.IncidentStatus
	PreviousAssigneeID *string
	NewAssigneeID      *string
	Comment            string
	ActorID            string
}

// HistoryListFilter describes ledger-wide listing filters.
type HistoryListFilter struct {
	NewStatuses []domain.IncidentStatus
	UserID      *string
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

// ConsistencyReport compares an incident's projection with its replayed ledger.
type ConsistencyReport struct {
	IncidentID string
	Projected  domain.CurrentState
	Replayed   domain.CurrentState
	Records    int
	Consistent bool
}

// DashboardStats summarizes a set of incidents.
type DashboardStats struct {
	Total                int
	Counts               domain.StatusCounts
	MostFrequentDay      string
	MostReportedCategory string
}

// NewLedgerService constructs the service.
func NewLedgerService(deps LedgerDependencies) *LedgerService {
	clock := deps.Clock
	if clock == nil {
		clock = defaultClock
	}
	return &LedgerService{
		history:   deps.HistoryRepo,
		incidents: deps.IncidentRepo,
		clock:     clock,
	}
}

// Append records a transition. The timestamp never goes backwards relative to
// the incident's latest record. No business validation happens here.
func (s *LedgerService) Append(ctx context.Context, input AppendInput) (*domain.HistoryRecord, error) {
	head, err := s.Head(ctx, input.IncidentID)
	if err != nil {
		return nil, err
	}
	stamp := s.clock()
	if head != nil && stamp.Before(head.ChangeTimestamp) {
		stamp = head.ChangeTimestamp
	}

	record := &domain.HistoryRecord{
		IncidentID:         input.IncidentID,
		PreviousStatus:     input.PreviousStatus,
		NewStatus:          input.NewStatus,
		PreviousAssigneeID: input.PreviousAssigneeID,
		NewAssigneeID:      input.NewAssigneeID,
		Comment:            input.Comment,
		UserID:             input.ActorID,
		ChangeTimestamp:    stamp,
	}
	if err := s.history.Append(ctx, record); err != nil {
		return nil, apperrors.NewStorageFault(err)
	}
	return record, nil
}

// Head returns the incident's latest record, or nil when it has none.
func (s *LedgerService) Head(ctx context.Context, incidentID string) (*domain.HistoryRecord, error) {
	head, err := s.history.Latest(ctx, incidentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, apperrors.NewStorageFault(err)
	}
	return head, nil
}

// ListForIncident returns the incident's records oldest first. Unknown
// incidents have an empty history.
func (s *LedgerService) ListForIncident(ctx context.Context, incidentID string) ([]domain.HistoryRecord, error) {
	records, err := s.history.ListByIncident(ctx, incidentID)
	if err != nil {
		return nil, apperrors.NewStorageFault(err)
	}
	return records, nil
}

// ListHistory returns records across incidents, newest first.
func (s *LedgerService) ListHistory(ctx context.Context, filter HistoryListFilter) ([]domain.HistoryRecord, error) {
	records, err := s.history.List(ctx, repository.HistoryFilter{
		NewStatuses: filter.NewStatuses,
		UserID:      filter.UserID,
		From:        filter.From,
		To:          filter.To,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	})
	if err != nil {
		return nil, apperrors.NewStorageFault(err)
	}
	return records, nil
}

// ReplayCurrentState folds the ledger into the incident's current state.
func (s *LedgerService) ReplayCurrentState(ctx context.Context, incidentID string) (domain.CurrentState, error) {
	incident, err := s.loadIncident(ctx, incidentID)
	if err != nil {
		return domain.CurrentState{}, err
	}
	state, _, err := s.replay(ctx, incident)
	return state, err
}

// Verify compares the incident's projection with its replayed ledger.
func (s *LedgerService) Verify(ctx context.Context, incident *domain.Incident) (ConsistencyReport, error) {
	state, records, err := s.replay(ctx, incident)
	if err != nil {
		return ConsistencyReport{}, err
	}
	projected := incident.State()
	return ConsistencyReport{
		IncidentID: incident.ID,
		Projected:  projected,
		Replayed:   state,
		Records:    records,
		Consistent: projected.SameLifecycle(state),
	}, nil
}

// VerifyByID loads the incident and verifies it.
func (s *LedgerService) VerifyByID(ctx context.Context, incidentID string) (ConsistencyReport, error) {
	incident, err := s.loadIncident(ctx, incidentID)
	if err != nil {
		return ConsistencyReport{}, err
	}
	return s.Verify(ctx, incident)
}

// Summarize computes dashboard aggregates over incidents.
func (s *LedgerService) Summarize(incidents []domain.Incident) DashboardStats {
	return DashboardStats{
		Total:                len(incidents),
		Counts:               domain.AggregateStatusCounts(incidents),
		MostFrequentDay:      domain.MostFrequentDay(incidents),
		MostReportedCategory: domain.MostReportedCategory(incidents),
	}
}

func (s *LedgerService) replay(ctx context.Context, incident *domain.Incident) (domain.CurrentState, int, error) {
	records, err := s.ListForIncident(ctx, incident.ID)
	if err != nil {
		return domain.CurrentState{}, 0, err
	}
	return domain.Replay(incident.CreationState(), records), len(records), nil
}

func (s *LedgerService) loadIncident(ctx context.Context, incidentID string) (*domain.Incident, error) {
	incident, err := s.incidents.GetByID(ctx, incidentID)
	if err != nil {
		return nil, incidentLookupError(err, incidentID)
	}
	return incident, nil
}

package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/events"
	"github.com/spec-kit/incident-service/internal/observability"
	"github.com/spec-kit/incident-service/internal/repository"
	apperrors "github.com/spec-kit/incident-service/pkg/util/errorutil"
)

// IncidentService owns incident records and is the only writer of their
// status and assignee.
type IncidentService struct {
	incidents  repository.IncidentRepository
	registry   *RegistryService
	ledger     *LedgerService
	unitOfWork repository.UnitOfWork
	metrics    *observability.Metrics
	events     eventPublisher
}

// IncidentDependencies bundles collaborators for the incident service.
type IncidentDependencies struct {
	IncidentRepo repository.IncidentRepository
	Registry     *RegistryService
	Ledger       *LedgerService
	UnitOfWork   repository.UnitOfWork
	Dispatcher   events.Dispatcher
	Metrics      *observability.Metrics
	Logger       *zap.Logger
	Clock        func() time.Time
}

// IncidentCreateInput describes an incident report.
type IncidentCreateInput struct {
	Classification      domain.Classification
	ObserverDescription string
	IncidentDate        time.Time
	IncidentTime        string
}

// IncidentListFilter describes the administrative listing filters.
type IncidentListFilter struct {
	Statuses       []domain.IncidentStatus
	WorkLocationID *string
	CategoryID     *string
	AssigneeID     *string
	CreatorID      *string
	Limit          int
	Offset         int
}

// TransitionInput describes a requested lifecycle change. NewStatus is free
// text and is normalized; a nil or blank NewAssigneeID unassigns.
type TransitionInput struct {
	IncidentID    string
	NewStatus     string
	NewAssigneeID *string
	Comment       string
	ActorID       string
}

// TransitionResult pairs the updated incident with the record that moved it.
type TransitionResult struct {
	Incident *domain.Incident
	History  *domain.HistoryRecord
}

// NewIncidentService constructs the service.
func NewIncidentService(deps IncidentDependencies) *IncidentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = defaultClock
	}
	return &IncidentService{
		incidents:  deps.IncidentRepo,
		registry:   deps.Registry,
		ledger:     deps.Ledger,
		unitOfWork: deps.UnitOfWork,
		metrics:    deps.Metrics,
		events:     eventPublisher{dispatcher: deps.Dispatcher, logger: logger, clock: clock},
	}
}

// CreateIncident stores a new OPEN incident. The default assignee is the
// owner of the work location, when it has one.
func (s *IncidentService) CreateIncident(ctx context.Context, actorID string, input IncidentCreateInput) (*domain.Incident, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return nil, apperrors.NewValidationError("actor required", nil)
	}
	if input.IncidentDate.IsZero() {
		return nil, apperrors.NewValidationError("incident_date required", nil)
	}
	location, err := s.registry.ValidateClassification(ctx, input.Classification)
	if err != nil {
		return nil, err
	}

	assignee := domain.DefaultAssignee(location)
	incident := &domain.Incident{
		ID:                  uuid.NewString(),
		WorkLocationID:      input.Classification.WorkLocationID,
		TypeID:              input.Classification.TypeID,
		CategoryID:          input.Classification.CategoryID,
		SubcategoryID:       input.Classification.SubcategoryID,
		ObserverDescription: strings.TrimSpace(input.ObserverDescription),
		IncidentDate:        input.IncidentDate,
		IncidentTime:        strings.TrimSpace(input.IncidentTime),
		Status:              domain.IncidentStatusOpen,
		AssigneeID:          assignee,
		InitialAssigneeID:   assignee,
		CreatorID:           actorID,
	}
	if err := s.incidents.Create(ctx, incident); err != nil {
		return nil, apperrors.NewStorageFault(err)
	}

	s.events.publish(ctx, events.Event{
		Type:          events.EventIncidentReported,
		IncidentID:    incident.ID,
		DisplayNumber: incident.DisplayNumber,
		ActorID:       actorID,
		Payload: events.IncidentReportedPayload{
			WorkLocationID: incident.WorkLocationID,
			CategoryID:     incident.CategoryID,
			IncidentDate:   incident.IncidentDate.Format(domain.DayLayout),
			AssigneeID:     incident.AssigneeID,
		},
	})
	return incident, nil
}

// GetByID returns one incident.
func (s *IncidentService) GetByID(ctx context.Context, id string) (*domain.Incident, error) {
	incident, err := s.incidents.GetByID(ctx, id)
	if err != nil {
		return nil, incidentLookupError(err, id)
	}
	return incident, nil
}

// GetByDisplayNumber returns the incident with the given human-facing number.
func (s *IncidentService) GetByDisplayNumber(ctx context.Context, displayNumber int64) (*domain.Incident, error) {
	incident, err := s.incidents.GetByDisplayNumber(ctx, displayNumber)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("incident", map[string]any{"display_number": displayNumber})
		}
		return nil, apperrors.NewStorageFault(err)
	}
	return incident, nil
}

// ListForUser returns the incidents a user reported or is assigned to,
// newest report first.
func (s *IncidentService) ListForUser(ctx context.Context, userID string, view domain.ListView) ([]domain.Incident, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.NewValidationError("user required", nil)
	}
	filter := repository.IncidentFilter{}
	switch view {
	case domain.ViewReporter:
		filter.CreatorID = &userID
	case domain.ViewAssignee:
		filter.AssigneeID = &userID
	default:
		return nil, apperrors.NewValidationError("unknown list view", map[string]any{"view": view})
	}
	incidents, err := s.incidents.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewStorageFault(err)
	}
	return incidents, nil
}

// ListIncidents returns incidents across all users.
func (s *IncidentService) ListIncidents(ctx context.Context, filter IncidentListFilter) ([]domain.Incident, error) {
	incidents, err := s.incidents.List(ctx, repository.IncidentFilter{
		CreatorID:      filter.CreatorID,
		AssigneeID:     filter.AssigneeID,
		WorkLocationID: filter.WorkLocationID,
		CategoryID:     filter.CategoryID,
		Statuses:       filter.Statuses,
		Limit:          filter.Limit,
		Offset:         filter.Offset,
	})
	if err != nil {
		return nil, apperrors.NewStorageFault(err)
	}
	return incidents, nil
}

// ApplyTransition moves an incident to a new status and assignee. The history
// record is written first and the projection second, under the incident's
// lock; if the append fails the incident is left untouched.
func (s *IncidentService) ApplyTransition(ctx context.Context, input TransitionInput) (*TransitionResult, error) {
	actorID := strings.TrimSpace(input.ActorID)
	if actorID == "" {
		return nil, apperrors.NewValidationError("actor required", nil)
	}
	newStatus, ok := domain.NormalizeStatus(input.NewStatus)
	if !ok {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{
			"new_status": input.NewStatus,
			"allowed":    domain.IncidentStatuses,
		})
	}
	newAssignee := normalizeID(input.NewAssigneeID)
	if newAssignee != nil {
		if _, err := s.registry.GetUser(ctx, *newAssignee); err != nil {
			if apperrors.IsNotFound(err) {
				return nil, apperrors.NewValidationError("unknown assignee", map[string]any{"new_assignee_id": *newAssignee})
			}
			return nil, err
		}
	}
	comment := strings.TrimSpace(input.Comment)

	var result TransitionResult
	err := s.unitOfWork.WithTx(ctx, func(ctx context.Context) error {
		incident, err := s.incidents.GetForUpdate(ctx, input.IncidentID)
		if err != nil {
			return incidentLookupError(err, input.IncidentID)
		}

		previous := incident.CreationState()
		head, err := s.ledger.Head(ctx, incident.ID)
		if err != nil {
			return err
		}
		if head != nil {
			previous = head.NewState()
		}

		record, err := s.ledger.Append(ctx, AppendInput{
			IncidentID:         incident.ID,
			PreviousStatus:     previous.Status,
			NewStatus:          newStatus,
			PreviousAssigneeID: previous.AssigneeID,
			NewAssigneeID:      newAssignee,
			Comment:            comment,
			ActorID:            actorID,
		})
		if err != nil {
			return err
		}

		next := domain.CurrentState{Status: newStatus, AssigneeID: newAssignee, ActionTaken: incident.ActionTaken}
		if comment != "" {
			next.ActionTaken = comment
		}
		incident.ApplyState(next)
		if err := s.incidents.UpdateState(ctx, incident); err != nil {
			return apperrors.NewStorageFault(err)
		}

		result = TransitionResult{Incident: incident, History: record}
		return nil
	})
	if err != nil {
		return nil, asServiceError(err)
	}

	s.metrics.RecordTransition(string(newStatus))
	s.events.publish(ctx, events.Event{
		Type:          events.EventIncidentTransitioned,
		IncidentID:    result.Incident.ID,
		DisplayNumber: result.Incident.DisplayNumber,
		ActorID:       actorID,
		Timestamp:     result.History.ChangeTimestamp,
		Payload: events.IncidentTransitionedPayload{
			HistoryID:          result.History.ID,
			PreviousStatus:     result.History.PreviousStatus,
			NewStatus:          result.History.NewStatus,
			PreviousAssigneeID: result.History.PreviousAssigneeID,
			NewAssigneeID:      result.History.NewAssigneeID,
			Comment:            result.History.Comment,
		},
	})
	return &result, nil
}

// Reclassify replaces the incident's registry references. Status, assignee
// and history are not touched.
func (s *IncidentService) Reclassify(ctx context.Context, actorID, incidentID string, refs domain.Classification) (*domain.Incident, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return nil, apperrors.NewValidationError("actor required", nil)
	}
	if _, err := s.registry.ValidateClassification(ctx, refs); err != nil {
		return nil, err
	}

	var updated *domain.Incident
	err := s.unitOfWork.WithTx(ctx, func(ctx context.Context) error {
		incident, err := s.incidents.GetForUpdate(ctx, incidentID)
		if err != nil {
			return incidentLookupError(err, incidentID)
		}
		incident.WorkLocationID = refs.WorkLocationID
		incident.TypeID = refs.TypeID
		incident.CategoryID = refs.CategoryID
		incident.SubcategoryID = refs.SubcategoryID
		if err := s.incidents.UpdateClassification(ctx, incident); err != nil {
			return apperrors.NewStorageFault(err)
		}
		updated = incident
		return nil
	})
	if err != nil {
		return nil, asServiceError(err)
	}

	s.events.publish(ctx, events.Event{
		Type:          events.EventIncidentReclassified,
		IncidentID:    updated.ID,
		DisplayNumber: updated.DisplayNumber,
		ActorID:       actorID,
		Payload: events.IncidentReclassifiedPayload{
			WorkLocationID: updated.WorkLocationID,
			TypeID:         updated.TypeID,
			CategoryID:     updated.CategoryID,
			SubcategoryID:  updated.SubcategoryID,
		},
	})
	return updated, nil
}

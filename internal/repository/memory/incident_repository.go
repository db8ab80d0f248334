package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/repository"
)

type incidentRepository struct {
	store *Store
}

func (r *incidentRepository) Create(ctx context.Context, incident *domain.Incident) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.incidents[incident.ID]; exists {
		return fmt.Errorf("incident %s already exists", incident.ID)
	}
	s.nextNumber++
	now := s.now()
	incident.DisplayNumber = s.nextNumber
	if incident.ReportedDate.IsZero() {
		incident.ReportedDate = now
	}
	incident.UpdatedAt = now

	s.incidents[incident.ID] = cloneIncident(*incident)
	s.byNumber[incident.DisplayNumber] = incident.ID
	return nil
}

func (r *incidentRepository) GetByID(ctx context.Context, id string) (*domain.Incident, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	incident, ok := s.incidents[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneIncident(incident)
	return &out, nil
}

func (r *incidentRepository) GetByDisplayNumber(ctx context.Context, displayNumber int64) (*domain.Incident, error) {
	r.store.mu.RLock()
	id, ok := r.store.byNumber[displayNumber]
	r.store.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *incidentRepository) GetForUpdate(ctx context.Context, id string) (*domain.Incident, error) {
	r.store.mu.RLock()
	_, exists := r.store.incidents[id]
	r.store.mu.RUnlock()
	if !exists {
		return nil, repository.ErrNotFound
	}
	if t, ok := repository.TxFromContext(ctx).(*tx); ok {
		t.lock(id, r.store.incidentLock(id))
	}
	return r.GetByID(ctx, id)
}

func (r *incidentRepository) List(ctx context.Context, filter repository.IncidentFilter) ([]domain.Incident, error) {
	s := r.store
	s.mu.RLock()
	result := []domain.Incident{}
	for _, incident := range s.incidents {
		if matchesIncident(&incident, filter) {
			result = append(result, cloneIncident(incident))
		}
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].ReportedDate.Equal(result[j].ReportedDate) {
			return result[i].ReportedDate.After(result[j].ReportedDate)
		}
		return result[i].DisplayNumber > result[j].DisplayNumber
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []domain.Incident{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

func matchesIncident(incident *domain.Incident, filter repository.IncidentFilter) bool {
	if filter.CreatorID != nil && incident.CreatorID != *filter.CreatorID {
		return false
	}
	if filter.AssigneeID != nil && (incident.AssigneeID == nil || *incident.AssigneeID != *filter.AssigneeID) {
		return false
	}
	if filter.WorkLocationID != nil && incident.WorkLocationID != *filter.WorkLocationID {
		return false
	}
	if filter.CategoryID != nil && incident.CategoryID != *filter.CategoryID {
		return false
	}
	if len(filter.Statuses) > 0 {
		matched := false
		for _, status := range filter.Statuses {
			if incident.Status == status {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func (r *incidentRepository) UpdateState(ctx context.Context, incident *domain.Incident) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.incidents[incident.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Status = incident.Status
	stored.AssigneeID = cloneID(incident.AssigneeID)
	stored.ActionTaken = incident.ActionTaken
	stored.UpdatedAt = s.now()
	s.incidents[incident.ID] = stored
	incident.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *incidentRepository) UpdateClassification(ctx context.Context, incident *domain.Incident) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.incidents[incident.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.WorkLocationID = incident.WorkLocationID
	stored.TypeID = incident.TypeID
	stored.CategoryID = incident.CategoryID
	stored.SubcategoryID = incident.SubcategoryID
	stored.UpdatedAt = s.now()
	s.incidents[incident.ID] = stored
	incident.UpdatedAt = stored.UpdatedAt
	return nil
}

package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/repository"
)

type historyRepository struct {
	store *Store
}

func (r *historyRepository) Append(ctx context.Context, record *domain.HistoryRecord) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.incidents[record.IncidentID]; !ok {
		return fmt.Errorf("append history: incident %s does not exist", record.IncidentID)
	}
	s.nextHistoryID++
	record.ID = s.nextHistoryID
	if record.ChangeTimestamp.IsZero() {
		record.ChangeTimestamp = s.now()
	}

	stored := cloneRecord(*record)
	s.history[record.IncidentID] = append(s.history[record.IncidentID], stored)
	s.log = append(s.log, stored)
	return nil
}

func (r *historyRepository) ListByIncident(ctx context.Context, incidentID string) ([]domain.HistoryRecord, error) {
	s := r.store
	s.mu.RLock()
	records := s.history[incidentID]
	result := make([]domain.HistoryRecord, 0, len(records))
	for _, record := range records {
		result = append(result, cloneRecord(record))
	}
	s.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].ChangeTimestamp.Equal(result[j].ChangeTimestamp) {
			return result[i].ChangeTimestamp.Before(result[j].ChangeTimestamp)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *historyRepository) Latest(ctx context.Context, incidentID string) (*domain.HistoryRecord, error) {
	records, err := r.ListByIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, repository.ErrNotFound
	}
	latest := records[len(records)-1]
	return &latest, nil
}

func (r *historyRepository) List(ctx context.Context, filter repository.HistoryFilter) ([]domain.HistoryRecord, error) {
	s := r.store
	s.mu.RLock()
	result := []domain.HistoryRecord{}
	for _, record := range s.log {
		if matchesHistory(&record, filter) {
			result = append(result, cloneRecord(record))
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].ChangeTimestamp.Equal(result[j].ChangeTimestamp) {
			return result[i].ChangeTimestamp.After(result[j].ChangeTimestamp)
		}
		return result[i].ID > result[j].ID
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []domain.HistoryRecord{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

func matchesHistory(record *domain.HistoryRecord, filter repository.HistoryFilter) bool {
	if len(filter.NewStatuses) > 0 {
		matched := false
		for _, status := range filter.NewStatuses {
			if record.NewStatus == status {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if filter.UserID != nil && record.UserID != *filter.UserID {
		return false
	}
	if filter.From != nil && record.ChangeTimestamp.Before(*filter.From) {
		return false
	}
	if filter.To != nil && record.ChangeTimestamp.After(*filter.To) {
		return false
	}
	return true
}

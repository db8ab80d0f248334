package memory

import (
	"context"
	"sort"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/repository"
)

type classificationRepository struct {
	store *Store
}

func (r *classificationRepository) Get(ctx context.Context, kind domain.ClassificationKind, id string) (*domain.ClassificationEntity, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	entity, ok := s.entities[kind][id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &entity, nil
}

func (r *classificationRepository) List(ctx context.Context, kind domain.ClassificationKind) ([]domain.ClassificationEntity, error) {
	s := r.store
	s.mu.RLock()
	result := make([]domain.ClassificationEntity, 0, len(s.entities[kind]))
	for _, entity := range s.entities[kind] {
		result = append(result, entity)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *classificationRepository) Upsert(ctx context.Context, entity *domain.ClassificationEntity) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entities[entity.Kind] == nil {
		s.entities[entity.Kind] = make(map[string]domain.ClassificationEntity)
	}
	s.entities[entity.Kind][entity.ID] = *entity
	return nil
}

func (r *classificationRepository) GetUser(ctx context.Context, id string) (*domain.User, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (r *classificationRepository) ListUsers(ctx context.Context) ([]domain.User, error) {
	s := r.store
	s.mu.RLock()
	result := make([]domain.User, 0, len(s.users))
	for _, user := range s.users {
		result = append(result, user)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *classificationRepository) UpsertUser(ctx context.Context, user *domain.User) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = *user
	return nil
}

package service

import (
	"context"
	"errors"
	"strings"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/repository"
	apperrors "github.com/spec-kit/incident-service/pkg/util/errorutil"
)

// RegistryService answers lookups against the classification registry.
type RegistryService struct {
	repo repository.ClassificationRepository
}

// NewRegistryService constructs the service.
func NewRegistryService(repo repository.ClassificationRepository) *RegistryService {
	return &RegistryService{repo: repo}
}

// Lookup returns one registry entity.
func (s *RegistryService) Lookup(ctx context.Context, kind domain.ClassificationKind, id string) (*domain.ClassificationEntity, error) {
	if !kind.Valid() {
		return nil, apperrors.NewValidationError("unknown classification kind", map[string]any{"kind": kind})
	}
	entity, err := s.repo.Get(ctx, kind, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound(string(kind), map[string]any{"id": id})
		}
		return nil, apperrors.NewStorageFault(err)
	}
	return entity, nil
}

// List returns every entity of a kind.
func (s *RegistryService) List(ctx context.Context, kind domain.ClassificationKind) ([]domain.ClassificationEntity, error) {
	if !kind.Valid() {
		return nil, apperrors.NewValidationError("unknown classification kind", map[string]any{"kind": kind})
	}
	entities, err := s.repo.List(ctx, kind)
	if err != nil {
		return nil, apperrors.NewStorageFault(err)
	}
	return entities, nil
}

// GetUser returns a registry user.
func (s *RegistryService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": id})
		}
		return nil, apperrors.NewStorageFault(err)
	}
	return user, nil
}

// ListUsers returns every registry user.
func (s *RegistryService) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, apperrors.NewStorageFault(err)
	}
	return users, nil
}

// ValidateClassification checks that every reference exists and that the
// subcategory belongs to the category. It returns the resolved work location.
func (s *RegistryService) ValidateClassification(ctx context.Context, refs domain.Classification) (*domain.ClassificationEntity, error) {
	required := map[string]string{
		"work_location_id": refs.WorkLocationID,
		"type_id":          refs.TypeID,
		"category_id":      refs.CategoryID,
		"subcategory_id":   refs.SubcategoryID,
	}
	missing := []string{}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("classification fields required", map[string]any{"missing": sortedStrings(missing)})
	}

	checks := []struct {
		field string
		kind  domain.ClassificationKind
		id    string
	}{
		{"work_location_id", domain.KindWorkLocation, refs.WorkLocationID},
		{"type_id", domain.KindType, refs.TypeID},
		{"category_id", domain.KindCategory, refs.CategoryID},
		{"subcategory_id", domain.KindSubcategory, refs.SubcategoryID},
	}
	resolved := make(map[domain.ClassificationKind]*domain.ClassificationEntity, len(checks))
	unknown := map[string]any{}
	for _, check := range checks {
		entity, err := s.repo.Get(ctx, check.kind, check.id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				unknown[check.field] = check.id
				continue
			}
			return nil, apperrors.NewStorageFault(err)
		}
		resolved[check.kind] = entity
	}
	if len(unknown) > 0 {
		return nil, apperrors.NewValidationError("unknown classification reference", unknown)
	}

	sub := resolved[domain.KindSubcategory]
	if sub.ParentID != "" && sub.ParentID != refs.CategoryID {
		return nil, apperrors.NewValidationError("subcategory does not belong to category", map[string]any{
			"subcategory_id": refs.SubcategoryID,
			"category_id":    refs.CategoryID,
		})
	}
	return resolved[domain.KindWorkLocation], nil
}

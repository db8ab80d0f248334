// Package registry loads classification registry seed files.
package registry

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/repository"
)

// Seed is the YAML document shape:
//
//	users:
//	  - {id: u-1, name: Asha, email: asha@example.com, role: ADMIN}
//	work_locations:
//	  - {id: bay-1, name: Bay 1, owner_user_id: u-1, owner_email: asha@example.com, location_type: Bay}
//	categories:
//	  - {id: cat-1, name: Slip}
//	subcategories:
//	  - {id: sub-1, name: Wet floor, category_id: cat-1}
type Seed struct {
	Users         []UserSeed         `yaml:"users"`
	WorkLocations []WorkLocationSeed `yaml:"work_locations"`
	Types         []EntrySeed        `yaml:"types"`
	Categories    []EntrySeed        `yaml:"categories"`
	Subcategories []SubcategorySeed  `yaml:"subcategories"`
}

// UserSeed describes a registry user.
type UserSeed struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	Email      string `yaml:"email"`
	Role       string `yaml:"role"`
	EmployeeID string `yaml:"employee_id"`
	Department string `yaml:"department"`
}

// EntrySeed describes a plain named entity.
type EntrySeed struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// WorkLocationSeed describes a work location and its owner.
type WorkLocationSeed struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	OwnerUserID  string `yaml:"owner_user_id"`
	OwnerEmail   string `yaml:"owner_email"`
	LocationType string `yaml:"location_type"`
}

// SubcategorySeed describes a subcategory under a category.
type SubcategorySeed struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	CategoryID string `yaml:"category_id"`
}

// ApplyResult counts what a seed wrote.
type ApplyResult struct {
	Users    int
	Entities int
}

// LoadFile reads and validates a seed file.
func LoadFile(path string) (*Seed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes and validates a seed document.
func Parse(raw []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	if err := seed.validate(); err != nil {
		return nil, err
	}
	return &seed, nil
}

func (s *Seed) validate() error {
	users := make(map[string]struct{}, len(s.Users))
	for i, u := range s.Users {
		if strings.TrimSpace(u.ID) == "" || strings.TrimSpace(u.Name) == "" {
			return fmt.Errorf("users[%d]: id and name required", i)
		}
		users[u.ID] = struct{}{}
	}
	for i, loc := range s.WorkLocations {
		if strings.TrimSpace(loc.ID) == "" || strings.TrimSpace(loc.Name) == "" {
			return fmt.Errorf("work_locations[%d]: id and name required", i)
		}
		if loc.OwnerUserID != "" {
			if _, ok := users[loc.OwnerUserID]; !ok {
				return fmt.Errorf("work_locations[%d]: owner %q is not a seeded user", i, loc.OwnerUserID)
			}
		}
	}
	for name, entries := range map[string][]EntrySeed{"types": s.Types, "categories": s.Categories} {
		for i, e := range entries {
			if strings.TrimSpace(e.ID) == "" || strings.TrimSpace(e.Name) == "" {
				return fmt.Errorf("%s[%d]: id and name required", name, i)
			}
		}
	}
	categories := make(map[string]struct{}, len(s.Categories))
	for _, c := range s.Categories {
		categories[c.ID] = struct{}{}
	}
	for i, sub := range s.Subcategories {
		if strings.TrimSpace(sub.ID) == "" || strings.TrimSpace(sub.Name) == "" {
			return fmt.Errorf("subcategories[%d]: id and name required", i)
		}
		if sub.CategoryID != "" {
			if _, ok := categories[sub.CategoryID]; !ok {
				return fmt.Errorf("subcategories[%d]: category %q is not seeded", i, sub.CategoryID)
			}
		}
	}
	return nil
}

// Apply upserts every seeded user and entity.
func Apply(ctx context.Context, repo repository.ClassificationRepository, seed *Seed) (ApplyResult, error) {
	var result ApplyResult
	for _, u := range seed.Users {
		user := &domain.User{
			ID:         u.ID,
			Name:       u.Name,
			Email:      u.Email,
			Role:       domain.ParseUserRole(u.Role),
			EmployeeID: u.EmployeeID,
			Department: u.Department,
		}
		if err := repo.UpsertUser(ctx, user); err != nil {
			return result, fmt.Errorf("seed user %s: %w", u.ID, err)
		}
		result.Users++
	}

	entities := make([]domain.ClassificationEntity, 0,
		len(seed.WorkLocations)+len(seed.Types)+len(seed.Categories)+len(seed.Subcategories))
	for _, loc := range seed.WorkLocations {
		entities = append(entities, domain.ClassificationEntity{
			Kind:         domain.KindWorkLocation,
			ID:           loc.ID,
			Name:         loc.Name,
			OwnerUserID:  loc.OwnerUserID,
			OwnerEmail:   loc.OwnerEmail,
			LocationType: loc.LocationType,
		})
	}
	for _, t := range seed.Types {
		entities = append(entities, domain.ClassificationEntity{Kind: domain.KindType, ID: t.ID, Name: t.Name})
	}
	for _, c := range seed.Categories {
		entities = append(entities, domain.ClassificationEntity{Kind: domain.KindCategory, ID: c.ID, Name: c.Name})
	}
	for _, sub := range seed.Subcategories {
		entities = append(entities, domain.ClassificationEntity{
			Kind:     domain.KindSubcategory,
			ID:       sub.ID,
			Name:     sub.Name,
			ParentID: sub.CategoryID,
		})
	}
	for i := range entities {
		if err := repo.Upsert(ctx, &entities[i]); err != nil {
			return result, fmt.Errorf("seed %s %s: %w", entities[i].Kind, entities[i].ID, err)
		}
		result.Entities++
	}
	return result, nil
}

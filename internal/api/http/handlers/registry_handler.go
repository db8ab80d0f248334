package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-service/internal/api/dto"
	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/service"
)

// RegistryHandler serves the read-only classification registry.
type RegistryHandler struct {
	registry *service.RegistryService
}

// NewRegistryHandler constructs handler.
func NewRegistryHandler(registry *service.RegistryService) *RegistryHandler {
	return &RegistryHandler{registry: registry}
}

// List returns a handler listing one registry kind.
func (h *RegistryHandler) List(kind domain.ClassificationKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		entities, err := h.registry.List(c.UserContext(), kind)
		if err != nil {
			return err
		}
		items := make([]dto.ClassificationResponse, 0, len(entities))
		for _, e := range entities {
			items = append(items, dto.ClassificationResponse{
				ID:           e.ID,
				Kind:         e.Kind,
				Name:         e.Name,
				CategoryID:   e.ParentID,
				OwnerUserID:  e.OwnerUserID,
				OwnerEmail:   e.OwnerEmail,
				LocationType: e.LocationType,
			})
		}
		return c.JSON(fiber.Map{"data": items})
	}
}

// Get GET /api/<kind>/:id.
func (h *RegistryHandler) Get(kind domain.ClassificationKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		e, err := h.registry.Lookup(c.UserContext(), kind, c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": dto.ClassificationResponse{
			ID:           e.ID,
			Kind:         e.Kind,
			Name:         e.Name,
			CategoryID:   e.ParentID,
			OwnerUserID:  e.OwnerUserID,
			OwnerEmail:   e.OwnerEmail,
			LocationType: e.LocationType,
		}})
	}
}

// ListUsers GET /api/auth.
func (h *RegistryHandler) ListUsers(c *fiber.Ctx) error {
	users, err := h.registry.ListUsers(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(users))
	for _, u := range users {
		items = append(items, userResponse(&u))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Me GET /api/auth/me.
func (h *RegistryHandler) Me(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(p.User)})
}

func userResponse(u *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       u.Role,
		EmployeeID: u.EmployeeID,
		Department: u.Department,
	}
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-service/internal/api/dto"
	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/service"
	apperrors "github.com/spec-kit/incident-service/pkg/util/errorutil"
)

// IncidentsHandler manages incident endpoints.
type IncidentsHandler struct {
	service *service.IncidentService
}

// NewIncidentsHandler constructs handler.
func NewIncidentsHandler(incidentService *service.IncidentService) *IncidentsHandler {
	return &IncidentsHandler{service: incidentService}
}

// CreateIncident POST /api/incidents.
func (h *IncidentsHandler) CreateIncident(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.CreateIncidentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	incidentDate, err := parseDay(req.IncidentDate)
	if err != nil {
		return apperrors.NewValidationError("incident_date must be YYYY-MM-DD", map[string]any{"incident_date": req.IncidentDate})
	}

	incident, err := h.service.CreateIncident(c.UserContext(), p.ActorID(), service.IncidentCreateInput{
		Classification: domain.Classification{
			WorkLocationID: req.WorkLocationID,
			TypeID:         req.TypeID,
			CategoryID:     req.CategoryID,
			SubcategoryID:  req.SubcategoryID,
		},
		ObserverDescription: req.ObserverDescription,
		IncidentDate:        incidentDate,
		IncidentTime:        req.IncidentTime,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": incidentResponse(incident)})
}

// ListAll GET /api/incidents.
func (h *IncidentsHandler) ListAll(c *fiber.Ctx) error {
	statuses, err := parseStatuses(c.Query("status"))
	if err != nil {
		return err
	}
	limit, offset := parsePage(c)
	incidents, err := h.service.ListIncidents(c.UserContext(), service.IncidentListFilter{
		Statuses:       statuses,
		WorkLocationID: optionalQuery(c, "work_location_id"),
		CategoryID:     optionalQuery(c, "category_id"),
		AssigneeID:     optionalQuery(c, "assignee_id"),
		CreatorID:      optionalQuery(c, "creator_id"),
		Limit:          limit,
		Offset:         offset,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": incidentList(incidents)})
}

// ListReported GET /api/incidents/id/getuser.
func (h *IncidentsHandler) ListReported(c *fiber.Ctx) error {
	return h.listForUser(c, domain.ViewReporter)
}

// ListAssigned GET /api/incidents/assignto/getuser.
func (h *IncidentsHandler) ListAssigned(c *fiber.Ctx) error {
	return h.listForUser(c, domain.ViewAssignee)
}

func (h *IncidentsHandler) listForUser(c *fiber.Ctx, view domain.ListView) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	incidents, err := h.service.ListForUser(c.UserContext(), p.ActorID(), view)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": incidentList(incidents)})
}

// GetIncident GET /api/incidents/:id.
func (h *IncidentsHandler) GetIncident(c *fiber.Ctx) error {
	incident, err := h.service.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": incidentResponse(incident)})
}

// GetByNumber GET /api/incidents/No/:no.
func (h *IncidentsHandler) GetByNumber(c *fiber.Ctx) error {
	number, err := strconv.ParseInt(c.Params("no"), 10, 64)
	if err != nil || number <= 0 {
		return apperrors.NewValidationError("incident number must be a positive integer", map[string]any{"no": c.Params("no")})
	}
	incident, err := h.service.GetByDisplayNumber(c.UserContext(), number)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": incidentResponse(incident)})
}

// Reclassify PATCH /api/incidents/:id/classification.
func (h *IncidentsHandler) Reclassify(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.ReclassifyIncidentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	incident, err := h.service.Reclassify(c.UserContext(), p.ActorID(), c.Params("id"), domain.Classification{
		WorkLocationID: req.WorkLocationID,
		TypeID:         req.TypeID,
		CategoryID:     req.CategoryID,
		SubcategoryID:  req.SubcategoryID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": incidentResponse(incident)})
}

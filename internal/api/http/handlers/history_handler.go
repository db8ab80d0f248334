package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-service/internal/api/dto"
	"github.com/spec-kit/incident-service/internal/service"
	apperrors "github.com/spec-kit/incident-service/pkg/util/errorutil"
)

// HistoryHandler exposes transitions and the incident ledger.
type HistoryHandler struct {
	incidents *service.IncidentService
	ledger    *service.LedgerService
}

// NewHistoryHandler constructs handler.
func NewHistoryHandler(incidents *service.IncidentService, ledger *service.LedgerService) *HistoryHandler {
	return &HistoryHandler{incidents: incidents, ledger: ledger}
}

// Transition POST /api/incident-history.
func (h *HistoryHandler) Transition(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.IncidentID) == "" {
		return apperrors.NewValidationError("incident_id required", nil)
	}

	result, err := h.incidents.ApplyTransition(c.UserContext(), service.TransitionInput{
		IncidentID:    req.IncidentID,
		NewStatus:     req.NewStatus,
		NewAssigneeID: req.NewAssigneeID,
		Comment:       req.Comment,
		ActorID:       p.ActorID(),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.TransitionResponse{
		Incident: incidentResponse(result.Incident),
		History:  historyResponse(result.History),
	}})
}

// ListAll GET /api/incident-history.
func (h *HistoryHandler) ListAll(c *fiber.Ctx) error {
	statuses, err := parseStatuses(c.Query("status"))
	if err != nil {
		return err
	}
	from, err := parseTime("from", c.Query("from"))
	if err != nil {
		return err
	}
	to, err := parseTime("to", c.Query("to"))
	if err != nil {
		return err
	}
	limit, offset := parsePage(c)
	records, err := h.ledger.ListHistory(c.UserContext(), service.HistoryListFilter{
		NewStatuses: statuses,
		UserID:      optionalQuery(c, "user_id"),
		From:        from,
		To:          to,
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": historyList(records)})
}

// ListForIncident GET /api/incident-history/incident/:id.
func (h *HistoryHandler) ListForIncident(c *fiber.Ctx) error {
	records, err := h.ledger.ListForIncident(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": historyList(records)})
}

// Replay GET /api/incident-history/incident/:id/replay.
func (h *HistoryHandler) Replay(c *fiber.Ctx) error {
	report, err := h.ledger.VerifyByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ReplayResponse{
		IncidentID: report.IncidentID,
		Replayed:   stateResponse(report.Replayed),
		Projected:  stateResponse(report.Projected),
		Records:    report.Records,
		Consistent: report.Consistent,
	}})
}

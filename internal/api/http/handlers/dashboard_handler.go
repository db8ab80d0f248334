package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-service/internal/api/dto"
	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/service"
)

// DashboardHandler serves incident aggregates.
type DashboardHandler struct {
	incidents *service.IncidentService
	ledger    *service.LedgerService
	registry  *service.RegistryService
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(incidents *service.IncidentService, ledger *service.LedgerService, registry *service.RegistryService) *DashboardHandler {
	return &DashboardHandler{incidents: incidents, ledger: ledger, registry: registry}
}

// Overview GET /api/dashboard.
func (h *DashboardHandler) Overview(c *fiber.Ctx) error {
	incidents, err := h.incidents.ListIncidents(c.UserContext(), service.IncidentListFilter{})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.summarize(c.UserContext(), incidents)})
}

// Mine GET /api/dashboard/me.
func (h *DashboardHandler) Mine(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	incidents, err := h.incidents.ListForUser(c.UserContext(), p.ActorID(), domain.ViewReporter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.summarize(c.UserContext(), incidents)})
}

func (h *DashboardHandler) summarize(ctx context.Context, incidents []domain.Incident) dto.DashboardResponse {
	stats := h.ledger.Summarize(incidents)
	resp := dto.DashboardResponse{
		Total: stats.Total,
		Counts: dto.StatusCountsResponse{
			Open:       stats.Counts.Open,
			InProgress: stats.Counts.InProgress,
			Closed:     stats.Counts.Closed,
		},
		MostFrequentDay:        stats.MostFrequentDay,
		MostReportedCategoryID: stats.MostReportedCategory,
	}
	// the name is decoration; a registry miss leaves it blank
	if stats.MostReportedCategory != "" && h.registry != nil {
		if category, err := h.registry.Lookup(ctx, domain.KindCategory, stats.MostReportedCategory); err == nil {
			resp.MostReportedCategoryName = category.Name
		}
	}
	return resp
}

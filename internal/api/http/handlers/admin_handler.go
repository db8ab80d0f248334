package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-service/internal/api/dto"
	"github.com/spec-kit/incident-service/internal/observability"
	"github.com/spec-kit/incident-service/internal/service"
)

// AdminHandler exposes operational endpoints for administrators.
type AdminHandler struct {
	reconciler *service.ReconcileService
	metrics    *observability.Metrics
}

// NewAdminHandler constructs handler.
func NewAdminHandler(reconciler *service.ReconcileService, metrics *observability.Metrics) *AdminHandler {
	return &AdminHandler{reconciler: reconciler, metrics: metrics}
}

// Reconcile POST /api/admin/reconcile?dry_run=true.
func (h *AdminHandler) Reconcile(c *fiber.Ctx) error {
	dryRun := c.QueryBool("dry_run", false)
	report, err := h.reconciler.Run(c.UserContext(), dryRun)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ReconcileResponse{
		Checked:    report.Checked,
		Mismatched: nonNil(report.Mismatched),
		Repaired:   nonNil(report.Repaired),
		DryRun:     report.DryRun,
	}})
}

// Metrics GET /api/admin/metrics.
func (h *AdminHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.metrics.Snapshot()})
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

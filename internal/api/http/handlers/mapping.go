package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-service/internal/api/dto"
	"github.com/spec-kit/incident-service/internal/auth"
	"github.com/spec-kit/incident-service/internal/domain"
	apperrors "github.com/spec-kit/incident-service/pkg/util/errorutil"
)

func principal(c *fiber.Ctx) (*auth.Principal, error) {
	p, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return p, nil
}

func incidentResponse(incident *domain.Incident) dto.IncidentResponse {
	resp := dto.IncidentResponse{
		ID:                  incident.ID,
		DisplayNumber:       incident.DisplayNumber,
		WorkLocationID:      incident.WorkLocationID,
		TypeID:              incident.TypeID,
		CategoryID:          incident.CategoryID,
		SubcategoryID:       incident.SubcategoryID,
		ObserverDescription: incident.ObserverDescription,
		IncidentTime:        incident.IncidentTime,
		ReportedDate:        incident.ReportedDate,
		Status:              incident.Status,
		AssigneeID:          incident.AssigneeID,
		CreatorID:           incident.CreatorID,
		ActionTaken:         incident.ActionTaken,
		UpdatedAt:           incident.UpdatedAt,
	}
	if !incident.IncidentDate.IsZero() {
		resp.IncidentDate = incident.IncidentDate.Format(domain.DayLayout)
	}
	return resp
}

func incidentList(incidents []domain.Incident) []dto.IncidentResponse {
	items := make([]dto.IncidentResponse, 0, len(incidents))
	for i := range incidents {
		items = append(items, incidentResponse(&incidents[i]))
	}
	return items
}

func historyResponse(record *domain.HistoryRecord) dto.HistoryResponse {
	return dto.HistoryResponse{
		HistoryID:          record.ID,
		IncidentID:         record.IncidentID,
		PreviousStatus:     record.PreviousStatus,
		NewStatus:          record.NewStatus,
		PreviousAssigneeID: record.PreviousAssigneeID,
		NewAssigneeID:      record.NewAssigneeID,
		Comment:            record.Comment,
		UserID:             record.UserID,
		ChangeTimestamp:    record.ChangeTimestamp,
	}
}

func historyList(records []domain.HistoryRecord) []dto.HistoryResponse {
	items := make([]dto.HistoryResponse, 0, len(records))
	for i := range records {
		items = append(items, historyResponse(&records[i]))
	}
	return items
}

func stateResponse(state domain.CurrentState) dto.StateResponse {
	return dto.StateResponse{
		Status:      state.Status,
		AssigneeID:  state.AssigneeID,
		ActionTaken: state.ActionTaken,
	}
}

// parseStatuses reads a comma-separated status filter.
func parseStatuses(raw string) ([]domain.IncidentStatus, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	statuses := []domain.IncidentStatus{}
	for _, part := range strings.Split(raw, ",") {
		status, ok := domain.NormalizeStatus(part)
		if !ok {
			return nil, apperrors.NewValidationError("invalid status filter", map[string]any{"status": part})
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func parseDay(val string) (time.Time, error) {
	return time.Parse(domain.DayLayout, strings.TrimSpace(val))
}

// parseTime reads an optional RFC3339 query value named key.
func parseTime(key, val string) (*time.Time, error) {
	val = strings.TrimSpace(val)
	if val == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil, apperrors.NewValidationError(key+" must be an RFC3339 timestamp", map[string]any{key: val})
	}
	return &t, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

// parsePage turns page/page_size into limit/offset; without page_size the
// listing is unpaginated.
func parsePage(c *fiber.Ctx) (limit, offset int) {
	pageSize := parseInt(c.Query("page_size"), 0)
	if pageSize == 0 {
		return 0, 0
	}
	page := parseInt(c.Query("page"), 1)
	return pageSize, (page - 1) * pageSize
}

func optionalQuery(c *fiber.Ctx, key string) *string {
	val := strings.TrimSpace(c.Query(key))
	if val == "" {
		return nil
	}
	return &val
}

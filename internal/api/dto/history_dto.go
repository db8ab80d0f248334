package dto

import (
	"time"

	"github.com/spec-kit/incident-service/internal/domain"
)

// TransitionRequest payload. A null or empty new_assignee_id unassigns.
type TransitionRequest struct {
	IncidentID    string  `json:"incident_id"`
	NewStatus     string  `json:"new_status"`
	NewAssigneeID *string `json:"new_assignee_id"`
	Comment       string  `json:"comment"`
}

// HistoryResponse represents one ledger record.
type HistoryResponse struct {
	HistoryID          int64                 `json:"history_id"`
	IncidentID         string                `json:"incident_id"`
	PreviousStatus     domain.IncidentStatus `json:"previous_status"`
	NewStatus          domain.IncidentStatus `json:"new_status"`
	PreviousAssigneeID *string               `json:"previous_assignee_id"`
	NewAssigneeID      *string               `json:"new_assignee_id"`
	Comment            string                `json:"comment"`
	UserID             string                `json:"user_id"`
	ChangeTimestamp    time.Time             `json:"change_timestamp"`
}

// TransitionResponse returns the updated incident with the record that moved it.
type TransitionResponse struct {
	Incident IncidentResponse `json:"incident"`
	History  HistoryResponse  `json:"history"`
}

// StateResponse is a lifecycle state.
type StateResponse struct {
	Status      domain.IncidentStatus `json:"status"`
	AssigneeID  *string               `json:"assignee_id"`
	ActionTaken string                `json:"action_taken"`
}

// ReplayResponse compares the replayed ledger with the stored projection.
type ReplayResponse struct {
	IncidentID string        `json:"incident_id"`
	Replayed   StateResponse `json:"replayed"`
	Projected  StateResponse `json:"projected"`
	Records    int           `json:"records"`
	Consistent bool          `json:"consistent"`
}

package events

import (
	"time"

	"github.com/spec-kit/incident-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventIncidentReported           EventType = "incident_reported"
	EventIncidentTransitioned       EventType = "incident_transitioned"
	EventIncidentReclassified       EventType = "incident_reclassified"
	EventIncidentProjectionRepaired EventType = "incident_projection_repaired"
)

// AllEventTypes lists every event the services publish.
var AllEventTypes = []EventType{
	EventIncidentReported,
	EventIncidentTransitioned,
	EventIncidentReclassified,
	EventIncidentProjectionRepaired,
}

// Event represents a domain event emitted by services.
type Event struct {
	ID            string      `json:"id"`
	Type          EventType   `json:"type"`
	IncidentID    string      `json:"incident_id"`
	DisplayNumber int64       `json:"display_number"`
	ActorID       string      `json:"actor_id"`
	Timestamp     time.Time   `json:"timestamp"`
	Payload       interface{} `json:"payload"`
}

// IncidentReportedPayload payload.
type IncidentReportedPayload struct {
	WorkLocationID string  `json:"work_location_id"`
	CategoryID     string  `json:"category_id"`
	IncidentDate   string  `json:"incident_date"`
	AssigneeID     *string `json:"assignee_id,omitempty"`
}

// IncidentTransitionedPayload mirrors the appended history record.
type IncidentTransitionedPayload struct {
	HistoryID          int64                 `json:"history_id"`
	PreviousStatus     domain.IncidentStatus `json:"previous_status"`
	NewStatus          domain.IncidentStatus `json:"new_status"`
	PreviousAssigneeID *string               `json:"previous_assignee_id,omitempty"`
	NewAssigneeID      *string               `json:"new_assignee_id,omitempty"`
	Comment            string                `json:"comment,omitempty"`
}

// IncidentReclassifiedPayload payload.
type IncidentReclassifiedPayload struct {
	WorkLocationID string `json:"work_location_id"`
	TypeID         string `json:"type_id"`
	CategoryID     string `json:"category_id"`
	SubcategoryID  string `json:"subcategory_id"`
}

// ProjectionRepairedPayload describes a projection overwritten from the ledger.
type ProjectionRepairedPayload struct {
	PreviousStatus     domain.IncidentStatus `json:"previous_status"`
	RepairedStatus     domain.IncidentStatus `json:"repaired_status"`
	PreviousAssigneeID *string               `json:"previous_assignee_id,omitempty"`
	RepairedAssigneeID *string               `json:"repaired_assignee_id,omitempty"`
}

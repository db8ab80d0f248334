package dto

import (
	"time"

	"github.com/spec-kit/incident-service/internal/domain"
)

// CreateIncidentRequest payload. IncidentDate is YYYY-MM-DD, IncidentTime HH:MM.
type CreateIncidentRequest struct {
	WorkLocationID      string `json:"work_location_id"`
	TypeID              string `json:"type_id"`
	CategoryID          string `json:"category_id"`
	SubcategoryID       string `json:"subcategory_id"`
	ObserverDescription string `json:"observer_description"`
	IncidentDate        string `json:"incident_date"`
	IncidentTime        string `json:"incident_time"`
}

// ReclassifyIncidentRequest payload.
type ReclassifyIncidentRequest struct {
	WorkLocationID string `json:"work_location_id"`
	TypeID         string `json:"type_id"`
	CategoryID     string `json:"category_id"`
	SubcategoryID  string `json:"subcategory_id"`
}

// IncidentResponse represents an incident and its projected state.
type IncidentResponse struct {
	ID                  string                `json:"id"`
	DisplayNumber       int64                 `json:"no"`
	WorkLocationID      string                `json:"work_location_id"`
	TypeID              string                `json:"type_id"`
	CategoryID          string                `json:"category_id"`
	SubcategoryID       string                `json:"subcategory_id"`
	ObserverDescription string                `json:"observer_description"`
	IncidentDate        string                `json:"incident_date"`
	IncidentTime        string                `json:"incident_time"`
	ReportedDate        time.Time             `json:"reported_date"`
	Status              domain.IncidentStatus `json:"status"`
	AssigneeID          *string               `json:"assignee_id"`
	CreatorID           string                `json:"creator_id"`
	ActionTaken         string                `json:"action_taken"`
	UpdatedAt           time.Time             `json:"updated_at"`
}

// StatusCountsResponse tallies incidents per status.
type StatusCountsResponse struct {
	Open       int `json:"open"`
	InProgress int `json:"in_progress"`
	Closed     int `json:"closed"`
}

// DashboardResponse summarizes a set of incidents.
type DashboardResponse struct {
	Total                    int                  `json:"total"`
	Counts                   StatusCountsResponse `json:"counts"`
	MostFrequentDay          string               `json:"most_frequent_day"`
	MostReportedCategoryID   string               `json:"most_reported_category_id"`
	MostReportedCategoryName string               `json:"most_reported_category_name,omitempty"`
}

// ReconcileResponse reports a reconciliation pass.
type ReconcileResponse struct {
	Checked    int      `json:"checked"`
	Mismatched []string `json:"mismatched"`
	Repaired   []string `json:"repaired"`
	DryRun     bool     `json:"dry_run"`
}

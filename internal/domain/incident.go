package domain

import (
	"strings"
	"time"
)

// IncidentStatus enumerates lifecycle states for incidents.
type IncidentStatus string

const (
	IncidentStatusOpen       IncidentStatus = "OPEN"
	IncidentStatusInProgress IncidentStatus = "IN_PROGRESS"
	IncidentStatusClosed     IncidentStatus = "CLOSED"
)

// IncidentStatuses lists the canonical statuses in lifecycle order.
var IncidentStatuses = []IncidentStatus{
	IncidentStatusOpen,
	IncidentStatusInProgress,
	IncidentStatusClosed,
}

// NormalizeStatus maps free-form status text onto the canonical enumeration.
// Matching ignores case, spaces, underscores and hyphens, so "Open",
// "IN PROGRESS", "InProgress", "in_progress" and "Close" are all accepted.
func NormalizeStatus(raw string) (IncidentStatus, bool) {
	key := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-', '\t':
			return -1
		}
		return r
	}, strings.ToUpper(strings.TrimSpace(raw)))

	switch key {
	case "OPEN":
		return IncidentStatusOpen, true
	case "INPROGRESS":
		return IncidentStatusInProgress, true
	case "CLOSED", "CLOSE":
		return IncidentStatusClosed, true
	}
	return "", false
}

// IsCanonical reports whether the status is one of the enumerated values.
func (s IncidentStatus) IsCanonical() bool {
	switch s {
	case IncidentStatusOpen, IncidentStatusInProgress, IncidentStatusClosed:
		return true
	}
	return false
}

// ListView selects which side of an incident a user listing is keyed on.
type ListView string

const (
	ViewReporter ListView = "REPORTER"
	ViewAssignee ListView = "ASSIGNEE"
)

// Incident is the aggregate for a reported workplace-safety event.
// Status and AssigneeID are a projection of the incident's history.
type Incident struct {
	ID                  string
	DisplayNumber       int64
	WorkLocationID      string
	TypeID              string
	CategoryID          string
	SubcategoryID       string
	ObserverDescription string
	IncidentDate        time.Time
	IncidentTime        string
	ReportedDate        time.Time
	Status              IncidentStatus
	AssigneeID          *string
	InitialAssigneeID   *string
	CreatorID           string
	ActionTaken         string
	UpdatedAt           time.Time
}

// CreationState returns the lifecycle state the incident had when it was reported.
func (i *Incident) CreationState() CurrentState {
	return CurrentState{
		Status:     IncidentStatusOpen,
		AssigneeID: cloneID(i.InitialAssigneeID),
	}
}

// State returns the projected lifecycle state.
func (i *Incident) State() CurrentState {
	return CurrentState{
		Status:      i.Status,
		AssigneeID:  cloneID(i.AssigneeID),
		ActionTaken: i.ActionTaken,
	}
}

// ApplyState overwrites the projected lifecycle fields.
func (i *Incident) ApplyState(state CurrentState) {
	i.Status = state.Status
	i.AssigneeID = cloneID(state.AssigneeID)
	i.ActionTaken = state.ActionTaken
}

// Classification groups the incident's registry references.
type Classification struct {
	WorkLocationID string
	TypeID         string
	CategoryID     string
	SubcategoryID  string
}

// Classification returns the incident's current registry references.
func (i *Incident) Classification() Classification {
	return Classification{
		WorkLocationID: i.WorkLocationID,
		TypeID:         i.TypeID,
		CategoryID:     i.CategoryID,
		SubcategoryID:  i.SubcategoryID,
	}
}

func cloneID(id *string) *string {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

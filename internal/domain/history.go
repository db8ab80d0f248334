package domain

import "time"

// HistoryRecord is an immutable lifecycle ledger entry.
type HistoryRecord struct {
	ID                 int64
	IncidentID         string
	PreviousStatus     IncidentStatus
	NewStatus          IncidentStatus
	PreviousAssigneeID *string
	NewAssigneeID      *string
	Comment            string
	UserID             string
	ChangeTimestamp    time.Time
}

// PreviousState returns the state the record transitioned from.
func (h *HistoryRecord) PreviousState() CurrentState {
	return CurrentState{Status: h.PreviousStatus, AssigneeID: cloneID(h.PreviousAssigneeID)}
}

// NewState returns the state the record transitioned to.
func (h *HistoryRecord) NewState() CurrentState {
	return CurrentState{Status: h.NewStatus, AssigneeID: cloneID(h.NewAssigneeID)}
}

// CurrentState is the lifecycle state derived from the ledger.
type CurrentState struct {
	Status      IncidentStatus
	AssigneeID  *string
	ActionTaken string
}

// SameLifecycle reports whether status and assignee agree.
func (s CurrentState) SameLifecycle(other CurrentState) bool {
	return s.Status == other.Status && SameAssignee(s.AssigneeID, other.AssigneeID)
}

// SameAssignee compares optional assignee references.
func SameAssignee(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// StatusCounts tallies incidents per canonical status.
type StatusCounts struct {
	Open       int
	InProgress int
	Closed     int
}

// Total returns the number of counted incidents.
func (c StatusCounts) Total() int {
	return c.Open + c.InProgress + c.Closed
}

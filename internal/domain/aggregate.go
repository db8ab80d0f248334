package domain

// DayLayout formats calendar days in aggregates and payloads.
const DayLayout = "2006-01-02"

// Replay folds an ordered ledger into the incident's current state. An empty
// ledger yields the creation defaults. ActionTaken tracks the latest non-empty
// comment.
func Replay(defaults CurrentState, records []HistoryRecord) CurrentState {
	state := CurrentState{
		Status:      defaults.Status,
		AssigneeID:  cloneID(defaults.AssigneeID),
		ActionTaken: defaults.ActionTaken,
	}
	for i := range records {
		state.Status = records[i].NewStatus
		state.AssigneeID = cloneID(records[i].NewAssigneeID)
		if records[i].Comment != "" {
			state.ActionTaken = records[i].Comment
		}
	}
	return state
}

// AggregateStatusCounts counts incidents by normalized status. Incidents whose
// stored status is not recognized are left out of every bucket.
func AggregateStatusCounts(incidents []Incident) StatusCounts {
	var counts StatusCounts
	for i := range incidents {
		status, ok := NormalizeStatus(string(incidents[i].Status))
		if !ok {
			continue
		}
		switch status {
		case IncidentStatusOpen:
			counts.Open++
		case IncidentStatusInProgress:
			counts.InProgress++
		case IncidentStatusClosed:
			counts.Closed++
		}
	}
	return counts
}

// MostFrequentDay returns the incident date (YYYY-MM-DD) that occurs most
// often, or "" for an empty input. Ties go to the day seen first.
func MostFrequentDay(incidents []Incident) string {
	return mostFrequent(incidents, func(inc *Incident) string {
		if inc.IncidentDate.IsZero() {
			return ""
		}
		return inc.IncidentDate.Format(DayLayout)
	})
}

// MostReportedCategory returns the category id referenced most often, or ""
// for an empty input. Ties go to the category seen first.
func MostReportedCategory(incidents []Incident) string {
	return mostFrequent(incidents, func(inc *Incident) string {
		return inc.CategoryID
	})
}

func mostFrequent(incidents []Incident, key func(*Incident) string) string {
	counts := make(map[string]int, len(incidents))
	order := make([]string, 0, len(incidents))
	for i := range incidents {
		k := key(&incidents[i])
		if k == "" {
			continue
		}
		if _, seen := counts[k]; !seen {
			order = append(order, k)
		}
		counts[k]++
	}

	best, bestCount := "", 0
	for _, k := range order {
		if counts[k] > bestCount {
			best, bestCount = k, counts[k]
		}
	}
	return best
}

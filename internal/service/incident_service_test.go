package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/events"
	"github.com/spec-kit/incident-service/internal/repository"
	"github.com/spec-kit/incident-service/internal/service"
	apperrors "github.com/spec-kit/incident-service/pkg/util/errorutil"
)

func TestCreateIncident_DefaultsToOpenWithLocationOwner(t *testing.T) {
	f := newFixture(t)

	incident := f.report(t, "u-reporter", slipAtBay(), "2024-03-01")
	require.NotEmpty(t, incident.ID)
	require.Equal(t, int64(1), incident.DisplayNumber)
	require.Equal(t, domain.IncidentStatusOpen, incident.Status)
	require.Equal(t, "u-owner", *incident.AssigneeID)
	require.Equal(t, "u-owner", *incident.InitialAssigneeID)
	require.Equal(t, "u-reporter", incident.CreatorID)

	history, err := f.ledger.ListForIncident(context.Background(), incident.ID)
	require.NoError(t, err)
	require.Empty(t, history)

	reported := f.recorder.ofType(events.EventIncidentReported)
	require.Len(t, reported, 1)
	require.Equal(t, incident.ID, reported[0].IncidentID)
}

func TestCreateIncident_LocationWithoutOwnerIsUnassigned(t *testing.T) {
	f := newFixture(t)
	refs := slipAtBay()
	refs.WorkLocationID = "loc-office"

	incident := f.report(t, "u-reporter", refs, "2024-03-01")
	require.Nil(t, incident.AssigneeID)
}

func TestCreateIncident_RejectsBadClassification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	refs := slipAtBay()
	refs.CategoryID = "cat-unknown"
	_, err := f.service.CreateIncident(ctx, "u-reporter", service.IncidentCreateInput{Classification: refs, IncidentDate: date})
	require.True(t, apperrors.IsValidation(err))

	refs = slipAtBay()
	refs.SubcategoryID = "sub-smoke"
	_, err = f.service.CreateIncident(ctx, "u-reporter", service.IncidentCreateInput{Classification: refs, IncidentDate: date})
	require.True(t, apperrors.IsValidation(err))

	_, err = f.service.CreateIncident(ctx, "u-reporter", service.IncidentCreateInput{Classification: domain.Classification{}, IncidentDate: date})
	require.True(t, apperrors.IsValidation(err))

	_, err = f.service.CreateIncident(ctx, "u-reporter", service.IncidentCreateInput{Classification: slipAtBay()})
	require.True(t, apperrors.IsValidation(err))

	_, err = f.service.CreateIncident(ctx, " ", service.IncidentCreateInput{Classification: slipAtBay(), IncidentDate: date})
	require.True(t, apperrors.IsValidation(err))

	all, err := f.service.ListIncidents(ctx, service.IncidentListFilter{})
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestApplyTransition_FirstTransitionRecordsCreationDefaults(t *testing.T) {
	f := newFixture(t)
	refs := slipAtBay()
	refs.WorkLocationID = "loc-office"
	incident := f.report(t, "u-reporter", refs, "2024-03-01")

	result := f.transition(t, incident.ID, "IN_PROGRESS", ptr("u-alice"), "started", "u-admin")
	require.Equal(t, domain.IncidentStatusInProgress, result.Incident.Status)
	require.Equal(t, "u-alice", *result.Incident.AssigneeID)
	require.Equal(t, "started", result.Incident.ActionTaken)

	stored, err := f.service.GetByID(context.Background(), incident.ID)
	require.NoError(t, err)
	require.Equal(t, domain.IncidentStatusInProgress, stored.Status)
	require.Equal(t, "u-alice", *stored.AssigneeID)

	history, err := f.ledger.ListForIncident(context.Background(), incident.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	record := history[0]
	require.Equal(t, domain.IncidentStatusOpen, record.PreviousStatus)
	require.Equal(t, domain.IncidentStatusInProgress, record.NewStatus)
	require.Nil(t, record.PreviousAssigneeID)
	require.Equal(t, "u-alice", *record.NewAssigneeID)
	require.Equal(t, "started", record.Comment)
	require.Equal(t, "u-admin", record.UserID)
	require.Equal(t, result.History.ID, record.ID)
}

func TestApplyTransition_FirstRecordIgnoresDriftedProjection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	incident := f.report(t, "u-reporter", slipAtBay(), "2024-03-01")

	drifted := *incident
	drifted.ApplyState(domain.CurrentState{Status: domain.IncidentStatusClosed})
	require.NoError(t, f.incidents.UpdateState(ctx, &drifted))

	result := f.transition(t, incident.ID, "IN_PROGRESS", ptr("u-alice"), "", "u-admin")
	require.Equal(t, domain.IncidentStatusOpen, result.History.PreviousStatus)
	require.NotNil(t, result.History.PreviousAssigneeID)
	require.Equal(t, "u-owner", *result.History.PreviousAssigneeID)

	history, err := f.ledger.ListForIncident(ctx, incident.ID)
	require.NoError(t, err)
	require.Equal(t, incident.CreationState().Status, history[0].PreviousStatus)
	require.True(t, domain.SameAssignee(incident.CreationState().AssigneeID, history[0].PreviousAssigneeID))

	report, err := f.ledger.VerifyByID(ctx, incident.ID)
	require.NoError(t, err)
	require.True(t, report.Consistent)
}

func TestApplyTransition_SequentialTransitionsReplayToClosed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	incident := f.report(t, "u-reporter", slipAtBay(), "2024-03-01")

	f.transition(t, incident.ID, "In Progress", ptr("u-alice"), "looking", "u-admin")
	f.transition(t, incident.ID, "Close", ptr("u-alice"), "", "u-alice")

	state, err := f.ledger.ReplayCurrentState(ctx, incident.ID)
	require.NoError(t, err)
	require.Equal(t, domain.IncidentStatusClosed, state.Status)
	require.Equal(t, "looking", state.ActionTaken)

	history, err := f.ledger.ListForIncident(ctx, incident.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, domain.IncidentStatusInProgress, history[1].PreviousStatus)
	require.Equal(t, "u-owner", *history[0].PreviousAssigneeID)

	stored, err := f.service.GetByID(ctx, incident.ID)
	require.NoError(t, err)
	require.Equal(t, "looking", stored.ActionTaken)

	report, err := f.ledger.VerifyByID(ctx, incident.ID)
	require.NoError(t, err)
	require.True(t, report.Consistent)
	require.Equal(t, 2, report.Records)
}

func TestApplyTransition_PermitsReopenAndSelfTransitions(t *testing.T) {
	f := newFixture(t)
	incident := f.report(t, "u-reporter", slipAtBay(), "2024-03-01")

	f.transition(t, incident.ID, "CLOSED", nil, "", "u-admin")
	result := f.transition(t, incident.ID, "OPEN", nil, "reopened", "u-admin")
	require.Equal(t, domain.IncidentStatusOpen, result.Incident.Status)
	require.Equal(t, domain.IncidentStatusClosed, result.History.PreviousStatus)

	result = f.transition(t, incident.ID, "OPEN", nil, "", "u-admin")
	require.Equal(t, domain.IncidentStatusOpen, result.History.PreviousStatus)
	require.Equal(t, domain.IncidentStatusOpen, result.History.NewStatus)
	require.Equal(t, "reopened", result.Incident.ActionTaken)
}

func TestApplyTransition_BlankAssigneeUnassigns(t *testing.T) {
	f := newFixture(t)
	incident := f.report(t, "u-reporter", slipAtBay(), "2024-03-01")

	result := f.transition(t, incident.ID, "IN_PROGRESS", ptr("  "), "", "u-admin")
	require.Nil(t, result.Incident.AssigneeID)
	require.Equal(t, "u-owner", *result.History.PreviousAssigneeID)
	require.Nil(t, result.History.NewAssigneeID)
}

func TestApplyTransition_UnknownIncidentLeavesNoHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.ApplyTransition(ctx, service.TransitionInput{
		IncidentID: "missing",
		NewStatus:  "CLOSED",
		ActorID:    "u-admin",
	})
	require.True(t, apperrors.IsNotFound(err))

	history, err := f.ledger.ListForIncident(ctx, "missing")
	require.NoError(t, err)
	require.Empty(t, history)

	_, err = f.ledger.ReplayCurrentState(ctx, "missing")
	require.True(t, apperrors.IsNotFound(err))
}

func TestApplyTransition_ValidationFailuresWriteNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	incident := f.report(t, "u-reporter", slipAtBay(), "2024-03-01")

	inputs := []service.TransitionInput{
		{IncidentID: incident.ID, NewStatus: "ESCALATED", ActorID: "u-admin"},
		{IncidentID: incident.ID, NewStatus: "", ActorID: "u-admin"},
		{IncidentID: incident.ID, NewStatus: "CLOSED", ActorID: ""},
		{IncidentID: incident.ID, NewStatus: "CLOSED", NewAssigneeID: ptr("u-ghost"), ActorID: "u-admin"},
	}
	for _, input := range inputs {
		_, err := f.service.ApplyTransition(ctx, input)
		require.True(t, apperrors.IsValidation(err), "%+v", input)
	}

	history, err := f.ledger.ListForIncident(ctx, incident.ID)
	require.NoError(t, err)
	require.Empty(t, history)

	stored, err := f.service.GetByID(ctx, incident.ID)
	require.NoError(t, err)
	require.Equal(t, domain.IncidentStatusOpen, stored.Status)
	require.Empty(t, f.recorder.ofType(events.EventIncidentTransitioned))
}

func TestApplyTransition_FailedAppendLeavesIncidentUntouched(t *testing.T) {
	history := &failingHistory{}
	f := newFixture(t, withHistory(func(inner repository.HistoryRepository) repository.HistoryRepository {
		history.HistoryRepository = inner
		return history
	}))
	ctx := context.Background()
	incident := f.report(t, "u-reporter", slipAtBay(), "2024-03-01")

	history.fail = true
	_, err := f.service.ApplyTransition(ctx, service.TransitionInput{
		IncidentID: incident.ID,
		NewStatus:  "CLOSED",
		ActorID:    "u-admin",
	})
	require.True(t, apperrors.IsStorageFault(err))
	require.ErrorIs(t, err, errInjected)

	stored, err := f.service.GetByID(ctx, incident.ID)
	require.NoError(t, err)
	require.Equal(t, domain.IncidentStatusOpen, stored.Status)
	require.Equal(t, "u-owner", *stored.AssigneeID)
	require.Empty(t, f.recorder.ofType(events.EventIncidentTransitioned))

	history.fail = false
	f.transition(t, incident.ID, "CLOSED", nil, "", "u-admin")
	records, err := f.ledger.ListForIncident(ctx, incident.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestApplyTransition_TimestampsNeverGoBackwards(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &steppedClock{times: []time.Time{
		base,                       // reported event
		base.Add(10 * time.Minute), // first transition
		base.Add(5 * time.Minute),  // clock skew
	}}
	f := newFixture(t, withClock(clock.now))
	incident := f.report(t, "u-reporter", slipAtBay(), "2024-03-01")

	first := f.transition(t, incident.ID, "IN_PROGRESS", nil, "", "u-admin")
	second := f.transition(t, incident.ID, "CLOSED", nil, "", "u-admin")
	require.Equal(t, base.Add(10*time.Minute), first.History.ChangeTimestamp)
	require.Equal(t, first.History.ChangeTimestamp, second.History.ChangeTimestamp)

	records, err := f.ledger.ListForIncident(context.Background(), incident.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{first.History.ID, second.History.ID}, []int64{records[0].ID, records[1].ID})
}

func TestApplyTransition_ConcurrentCallsKeepChainContinuous(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	incident := f.report(t, "u-reporter", slipAtBay(), "2024-03-01")

	const workers = 16
	statuses := []string{"OPEN", "IN_PROGRESS", "CLOSED"}
	assignees := []string{"u-alice", "u-bob"}

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.service.ApplyTransition(ctx, service.TransitionInput{
				IncidentID:    incident.ID,
				NewStatus:     statuses[i%len(statuses)],
				NewAssigneeID: ptr(assignees[i%len(assignees)]),
				Comment:       fmt.Sprintf("step %d", i),
				ActorID:       "u-admin",
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	records, err := f.ledger.ListForIncident(ctx, incident.ID)
	require.NoError(t, err)
	require.Len(t, records, workers)

	prev := incident.CreationState()
	for _, record := range records {
		require.True(t, record.PreviousState().SameLifecycle(prev), "chain broken at record %d", record.ID)
		prev = record.NewState()
	}

	report, err := f.ledger.VerifyByID(ctx, incident.ID)
	require.NoError(t, err)
	require.True(t, report.Consistent)
	require.Len(t, f.recorder.ofType(events.EventIncidentTransitioned), workers)
	require.Equal(t, int64(workers), sumValues(f.metrics.Snapshot().Transitions))
}

func TestListForUser_NewestFirstPerView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	tick := base
	f.store.SetClock(func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	})

	first := f.report(t, "u-reporter", slipAtBay(), "2024-03-01")
	second := f.report(t, "u-reporter", slipAtBay(), "2024-03-02")
	f.report(t, "u-alice", slipAtBay(), "2024-03-03")
	f.transition(t, first.ID, "IN_PROGRESS", ptr("u-bob"), "", "u-admin")

	reported, err := f.service.ListForUser(ctx, "u-reporter", domain.ViewReporter)
	require.NoError(t, err)
	require.Len(t, reported, 2)
	require.Equal(t, second.ID, reported[0].ID)
	require.Equal(t, first.ID, reported[1].ID)

	assigned, err := f.service.ListForUser(ctx, "u-bob", domain.ViewAssignee)
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	require.Equal(t, first.ID, assigned[0].ID)

	owned, err := f.service.ListForUser(ctx, "u-owner", domain.ViewAssignee)
	require.NoError(t, err)
	require.Len(t, owned, 2)

	_, err = f.service.ListForUser(ctx, "u-bob", domain.ListView("OTHER"))
	require.True(t, apperrors.IsValidation(err))
}

func TestListIncidents_Filters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fire := domain.Classification{WorkLocationID: "loc-office", TypeID: "type-near-miss", CategoryID: "cat-fire", SubcategoryID: "sub-smoke"}

	slip := f.report(t, "u-reporter", slipAtBay(), "2024-03-01")
	f.report(t, "u-reporter", fire, "2024-03-01")
	f.transition(t, slip.ID, "CLOSED", nil, "", "u-admin")

	closed, err := f.service.ListIncidents(ctx, service.IncidentListFilter{Statuses: []domain.IncidentStatus{domain.IncidentStatusClosed}})
	require.NoError(t, err)
	require.Len(t, closed, 1)
	require.Equal(t, slip.ID, closed[0].ID)

	category := "cat-fire"
	byCategory, err := f.service.ListIncidents(ctx, service.IncidentListFilter{CategoryID: &category})
	require.NoError(t, err)
	require.Len(t, byCategory, 1)

	paged, err := f.service.ListIncidents(ctx, service.IncidentListFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
}

func TestGetByDisplayNumber(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	incident := f.report(t, "u-reporter", slipAtBay(), "2024-03-01")

	found, err := f.service.GetByDisplayNumber(ctx, incident.DisplayNumber)
	require.NoError(t, err)
	require.Equal(t, incident.ID, found.ID)

	_, err = f.service.GetByDisplayNumber(ctx, 999)
	require.True(t, apperrors.IsNotFound(err))
}

func TestReclassify_KeepsLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	incident := f.report(t, "u-reporter", slipAtBay(), "2024-03-01")
	f.transition(t, incident.ID, "IN_PROGRESS", ptr("u-alice"), "", "u-admin")

	fire := domain.Classification{WorkLocationID: "loc-office", TypeID: "type-near-miss", CategoryID: "cat-fire", SubcategoryID: "sub-smoke"}
	updated, err := f.service.Reclassify(ctx, "u-admin", incident.ID, fire)
	require.NoError(t, err)
	require.Equal(t, "cat-fire", updated.CategoryID)
	require.Equal(t, domain.IncidentStatusInProgress, updated.Status)
	require.Equal(t, "u-alice", *updated.AssigneeID)

	records, err := f.ledger.ListForIncident(ctx, incident.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Len(t, f.recorder.ofType(events.EventIncidentReclassified), 1)

	_, err = f.service.Reclassify(ctx, "u-admin", "missing", fire)
	require.True(t, apperrors.IsNotFound(err))
}

func sumValues(m map[string]int64) int64 {
	var total int64
	for _, v := range m {
		total += v
	}
	return total
}

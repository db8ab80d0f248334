package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/events"
	"github.com/spec-kit/incident-service/internal/observability"
	"github.com/spec-kit/incident-service/internal/repository"
	"github.com/spec-kit/incident-service/internal/repository/memory"
	"github.com/spec-kit/incident-service/internal/service"
)

var errInjected = errors.New("injected storage failure")

type fixture struct {
	store      *memory.Store
	history    repository.HistoryRepository
	incidents  repository.IncidentRepository
	registry   *service.RegistryService
	ledger     *service.LedgerService
	service    *service.IncidentService
	reconciler *service.ReconcileService
	metrics    *observability.Metrics
	recorder   *eventRecorder
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	history   func(repository.HistoryRepository) repository.HistoryRepository
	incidents func(repository.IncidentRepository) repository.IncidentRepository
	clock     func() time.Time
}

func withHistory(wrap func(repository.HistoryRepository) repository.HistoryRepository) fixtureOption {
	return func(c *fixtureConfig) { c.history = wrap }
}

func withIncidents(wrap func(repository.IncidentRepository) repository.IncidentRepository) fixtureOption {
	return func(c *fixtureConfig) { c.incidents = wrap }
}

func withClock(clock func() time.Time) fixtureOption {
	return func(c *fixtureConfig) { c.clock = clock }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	cfg := fixtureConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	store := memory.NewStore()
	seedRegistry(t, store.Classifications())

	historyRepo := store.History()
	if cfg.history != nil {
		historyRepo = cfg.history(historyRepo)
	}
	incidentRepo := store.Incidents()
	if cfg.incidents != nil {
		incidentRepo = cfg.incidents(incidentRepo)
	}

	dispatcher := events.NewInMemoryDispatcher()
	recorder := &eventRecorder{}
	for _, eventType := range events.AllEventTypes {
		dispatcher.Subscribe(eventType, recorder.handle)
	}
	metrics := observability.NewMetrics()

	registry := service.NewRegistryService(store.Classifications())
	ledger := service.NewLedgerService(service.LedgerDependencies{
		HistoryRepo:  historyRepo,
		IncidentRepo: incidentRepo,
		Clock:        cfg.clock,
	})
	incidents := service.NewIncidentService(service.IncidentDependencies{
		IncidentRepo: incidentRepo,
		Registry:     registry,
		Ledger:       ledger,
		UnitOfWork:   store.UnitOfWork(),
		Dispatcher:   dispatcher,
		Metrics:      metrics,
		Clock:        cfg.clock,
	})
	reconciler := service.NewReconcileService(service.ReconcileDependencies{
		IncidentRepo: store.Incidents(),
		Ledger:       ledger,
		UnitOfWork:   store.UnitOfWork(),
		Dispatcher:   dispatcher,
		Metrics:      metrics,
	})

	return &fixture{
		store:      store,
		history:    store.History(),
		incidents:  store.Incidents(),
		registry:   registry,
		ledger:     ledger,
		service:    incidents,
		reconciler: reconciler,
		metrics:    metrics,
		recorder:   recorder,
	}
}

func seedRegistry(t *testing.T, repo repository.ClassificationRepository) {
	t.Helper()
	ctx := context.Background()
	users := []domain.User{
		{ID: "u-admin", Name: "Ada Admin", Role: domain.UserRoleAdmin},
		{ID: "u-reporter", Name: "Rae Reporter", Role: domain.UserRoleUser},
		{ID: "u-owner", Name: "Owen Owner", Role: domain.UserRoleUser},
		{ID: "u-alice", Name: "Alice", Role: domain.UserRoleUser},
		{ID: "u-bob", Name: "Bob", Role: domain.UserRoleUser},
	}
	for i := range users {
		require.NoError(t, repo.UpsertUser(ctx, &users[i]))
	}
	entities := []domain.ClassificationEntity{
		{Kind: domain.KindWorkLocation, ID: "loc-bay", Name: "Loading Bay", OwnerUserID: "u-owner", LocationType: "Bay"},
		{Kind: domain.KindWorkLocation, ID: "loc-office", Name: "Office"},
		{Kind: domain.KindType, ID: "type-near-miss", Name: "Near miss"},
		{Kind: domain.KindCategory, ID: "cat-slip", Name: "Slip"},
		{Kind: domain.KindCategory, ID: "cat-fire", Name: "Fire"},
		{Kind: domain.KindSubcategory, ID: "sub-wet", Name: "Wet floor", ParentID: "cat-slip"},
		{Kind: domain.KindSubcategory, ID: "sub-smoke", Name: "Smoke", ParentID: "cat-fire"},
	}
	for i := range entities {
		require.NoError(t, repo.Upsert(ctx, &entities[i]))
	}
}

func slipAtBay() domain.Classification {
	return domain.Classification{
		WorkLocationID: "loc-bay",
		TypeID:         "type-near-miss",
		CategoryID:     "cat-slip",
		SubcategoryID:  "sub-wet",
	}
}

func (f *fixture) report(t *testing.T, actorID string, refs domain.Classification, date string) *domain.Incident {
	t.Helper()
	incidentDate, err := time.Parse(domain.DayLayout, date)
	require.NoError(t, err)
	incident, err := f.service.CreateIncident(context.Background(), actorID, service.IncidentCreateInput{
		Classification:      refs,
		ObserverDescription: "spill near dock door",
		IncidentDate:        incidentDate,
		IncidentTime:        "09:30",
	})
	require.NoError(t, err)
	return incident
}

func (f *fixture) transition(t *testing.T, incidentID, status string, assignee *string, comment, actor string) *service.TransitionResult {
	t.Helper()
	result, err := f.service.ApplyTransition(context.Background(), service.TransitionInput{
		IncidentID:    incidentID,
		NewStatus:     status,
		NewAssigneeID: assignee,
		Comment:       comment,
		ActorID:       actor,
	})
	require.NoError(t, err)
	return result
}

func ptr(s string) *string { return &s }

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) handle(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) ofType(eventType events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []events.Event{}
	for _, e := range r.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// failingHistory rejects appends while fail is set.
type failingHistory struct {
	repository.HistoryRepository
	fail bool
}

func (h *failingHistory) Append(ctx context.Context, record *domain.HistoryRecord) error {
	if h.fail {
		return errInjected
	}
	return h.HistoryRepository.Append(ctx, record)
}

// failingState rejects projection updates while fail is set.
type failingState struct {
	repository.IncidentRepository
	fail bool
}

func (r *failingState) UpdateState(ctx context.Context, incident *domain.Incident) error {
	if r.fail {
		return errInjected
	}
	return r.IncidentRepository.UpdateState(ctx, incident)
}

// steppedClock returns the queued instants in order, repeating the last one.
type steppedClock struct {
	mu    sync.Mutex
	times []time.Time
}

func (c *steppedClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := c.times[0]
	if len(c.times) > 1 {
		c.times = c.times[1:]
	}
	return next
}

// ticking returns a clock that advances one second per call.
func ticking(start time.Time) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Second)
		return current
	}
}

package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/incident-service/internal/config"
	"github.com/spec-kit/incident-service/internal/events"
	"github.com/spec-kit/incident-service/internal/observability"
	"github.com/spec-kit/incident-service/internal/persistence"
	"github.com/spec-kit/incident-service/internal/registry"
	"github.com/spec-kit/incident-service/internal/repository"
	"github.com/spec-kit/incident-service/internal/repository/memory"
	"github.com/spec-kit/incident-service/internal/service"
)

// runtime holds the wired dependency graph shared by every subcommand.
type runtime struct {
	cfg        *config.Config
	logger     *zap.Logger
	postgres   *persistence.Postgres
	metrics    *observability.Metrics
	dispatcher events.Dispatcher

	classifications repository.ClassificationRepository
	registry        *service.RegistryService
	ledger          *service.LedgerService
	incidents       *service.IncidentService
	reconciler      *service.ReconcileService
}

// loadConfig reads configuration and builds the logger.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

// newRuntime picks the Postgres store when POSTGRES_DSN is set and the
// in-memory store otherwise, then wires services on top of it.
func newRuntime(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*runtime, error) {
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	var (
		incidentRepo repository.IncidentRepository
		historyRepo  repository.HistoryRepository
		classRepo    repository.ClassificationRepository
		unitOfWork   repository.UnitOfWork
	)
	if pg.Configured() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				pg.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		pool := pg.PoolHandle()
		incidentRepo = repository.NewIncidentRepository(pool)
		historyRepo = repository.NewHistoryRepository(pool)
		classRepo = repository.NewClassificationRepository(pool)
		unitOfWork = repository.NewUnitOfWork(pool)
	} else {
		store := memory.NewStore()
		incidentRepo = store.Incidents()
		historyRepo = store.History()
		classRepo = store.Classifications()
		unitOfWork = store.UnitOfWork()
	}

	rt := &runtime{
		cfg:             cfg,
		logger:          logger,
		postgres:        pg,
		metrics:         observability.NewMetrics(),
		dispatcher:      events.NewInMemoryDispatcher(),
		classifications: classRepo,
	}

	// seeding upserts, so applying it on every start is safe for Postgres too
	switch {
	case cfg.Registry.SeedPath != "":
		if _, err := rt.applySeed(ctx, cfg.Registry.SeedPath); err != nil {
			pg.Close()
			return nil, err
		}
	case !pg.Configured():
		logger.Warn("in-memory store without REGISTRY_SEED_PATH; no users can authenticate")
	}

	rt.registry = service.NewRegistryService(classRepo)
	rt.ledger = service.NewLedgerService(service.LedgerDependencies{
		HistoryRepo:  historyRepo,
		IncidentRepo: incidentRepo,
	})
	rt.incidents = service.NewIncidentService(service.IncidentDependencies{
		IncidentRepo: incidentRepo,
		Registry:     rt.registry,
		Ledger:       rt.ledger,
		UnitOfWork:   unitOfWork,
		Dispatcher:   rt.dispatcher,
		Metrics:      rt.metrics,
		Logger:       logger,
	})
	rt.reconciler = service.NewReconcileService(service.ReconcileDependencies{
		IncidentRepo: incidentRepo,
		Ledger:       rt.ledger,
		UnitOfWork:   unitOfWork,
		Dispatcher:   rt.dispatcher,
		Metrics:      rt.metrics,
		Logger:       logger,
	})
	return rt, nil
}

func (rt *runtime) applySeed(ctx context.Context, path string) (registry.ApplyResult, error) {
	seed, err := registry.LoadFile(path)
	if err != nil {
		return registry.ApplyResult{}, err
	}
	result, err := registry.Apply(ctx, rt.classifications, seed)
	if err != nil {
		return result, err
	}
	rt.logger.Info("registry seeded",
		zap.String("path", path),
		zap.Int("users", result.Users),
		zap.Int("entities", result.Entities))
	return result, nil
}

func (rt *runtime) Close() {
	rt.postgres.Close()
	_ = rt.logger.Sync()
}

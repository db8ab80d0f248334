package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/events"
	"github.com/spec-kit/incident-service/internal/observability"
	"github.com/spec-kit/incident-service/internal/repository"
	apperrors "github.com/spec-kit/incident-service/pkg/util/errorutil"
)

// ReconcileService finds incidents whose projection disagrees with their
// ledger and rewrites the projection from the ledger.
type ReconcileService struct {
	incidents  repository.IncidentRepository
	ledger     *LedgerService
	unitOfWork repository.UnitOfWork
	metrics    *observability.Metrics
	logger     *zap.Logger
	events     eventPublisher
}

// ReconcileDependencies bundles collaborators for reconciliation.
type ReconcileDependencies struct {
	IncidentRepo repository.IncidentRepository
	Ledger       *LedgerService
	UnitOfWork   repository.UnitOfWork
	Dispatcher   events.Dispatcher
	Metrics      *observability.Metrics
	Logger       *zap.Logger
	Clock        func() time.Time
}

// ReconcileReport summarizes one reconciliation pass.
type ReconcileReport struct {
	Checked    int
	Mismatched []string
	Repaired   []string
	DryRun     bool
}

// NewReconcileService constructs the service.
func NewReconcileService(deps ReconcileDependencies) *ReconcileService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = defaultClock
	}
	return &ReconcileService{
		incidents:  deps.IncidentRepo,
		ledger:     deps.Ledger,
		unitOfWork: deps.UnitOfWork,
		metrics:    deps.Metrics,
		logger:     logger,
		events:     eventPublisher{dispatcher: deps.Dispatcher, logger: logger, clock: clock},
	}
}

// Run checks every incident. Unless dryRun is set, mismatched projections are
// overwritten with the replayed state.
func (s *ReconcileService) Run(ctx context.Context, dryRun bool) (ReconcileReport, error) {
	report := ReconcileReport{Mismatched: []string{}, Repaired: []string{}, DryRun: dryRun}

	incidents, err := s.incidents.List(ctx, repository.IncidentFilter{})
	if err != nil {
		return report, apperrors.NewStorageFault(err)
	}

	for i := range incidents {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		check, err := s.ledger.Verify(ctx, &incidents[i])
		if err != nil {
			return report, err
		}
		report.Checked++
		if check.Consistent {
			continue
		}
		report.Mismatched = append(report.Mismatched, check.IncidentID)
		if dryRun {
			s.logger.Warn("projection mismatch",
				zap.String("incident_id", check.IncidentID),
				zap.String("projected_status", string(check.Projected.Status)),
				zap.String("replayed_status", string(check.Replayed.Status)))
			continue
		}
		repaired, err := s.repair(ctx, check.IncidentID)
		if err != nil {
			return report, err
		}
		if repaired {
			report.Repaired = append(report.Repaired, check.IncidentID)
		}
	}

	s.metrics.RecordReconcile(len(report.Repaired))
	s.logger.Info("reconciliation finished",
		zap.Int("checked", report.Checked),
		zap.Int("mismatched", len(report.Mismatched)),
		zap.Int("repaired", len(report.Repaired)),
		zap.Bool("dry_run", dryRun))
	return report, nil
}

// repair re-verifies under the incident lock, since a transition may have
// landed after the unlocked check.
func (s *ReconcileService) repair(ctx context.Context, incidentID string) (bool, error) {
	var (
		repaired bool
		before   domain.CurrentState
		after    domain.CurrentState
		number   int64
	)
	err := s.unitOfWork.WithTx(ctx, func(ctx context.Context) error {
		incident, err := s.incidents.GetForUpdate(ctx, incidentID)
		if err != nil {
			return incidentLookupError(err, incidentID)
		}
		check, err := s.ledger.Verify(ctx, incident)
		if err != nil {
			return err
		}
		if check.Consistent {
			return nil
		}
		before, after, number = check.Projected, check.Replayed, incident.DisplayNumber
		incident.ApplyState(check.Replayed)
		if err := s.incidents.UpdateState(ctx, incident); err != nil {
			return apperrors.NewStorageFault(err)
		}
		repaired = true
		return nil
	})
	if err != nil {
		return false, asServiceError(err)
	}
	if !repaired {
		return false, nil
	}

	s.logger.Warn("projection repaired from ledger",
		zap.String("incident_id", incidentID),
		zap.String("from_status", string(before.Status)),
		zap.String("to_status", string(after.Status)))
	s.events.publish(ctx, events.Event{
		Type:          events.EventIncidentProjectionRepaired,
		IncidentID:    incidentID,
		DisplayNumber: number,
		ActorID:       "system",
		Payload: events.ProjectionRepairedPayload{
			PreviousStatus:     before.Status,
			RepairedStatus:     after.Status,
			PreviousAssigneeID: before.AssigneeID,
			RepairedAssigneeID: after.AssigneeID,
		},
	})
	return true, nil
}

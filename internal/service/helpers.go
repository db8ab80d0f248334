package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-service/internal/events"
	"github.com/spec-kit/incident-service/internal/repository"
	apperrors "github.com/spec-kit/incident-service/pkg/util/errorutil"
)

// eventPublisher stamps and dispatches events. Dispatch failures are logged,
// never returned: the write they describe has already committed.
type eventPublisher struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	clock      func() time.Time
}

func (p eventPublisher) publish(ctx context.Context, event events.Event) {
	if p.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.clock()
	}
	if err := p.dispatcher.Publish(ctx, event); err != nil && p.logger != nil {
		p.logger.Warn("event dispatch failed",
			zap.String("event_type", string(event.Type)),
			zap.String("incident_id", event.IncidentID),
			zap.Error(err))
	}
}

func incidentLookupError(err error, incidentID string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("incident", map[string]any{"incident_id": incidentID})
	}
	return apperrors.NewStorageFault(err)
}

// asServiceError keeps domain errors and reports anything else as a storage fault.
func asServiceError(err error) error {
	if err == nil || apperrors.IsDomainError(err) {
		return err
	}
	return apperrors.NewStorageFault(err)
}

// normalizeID trims an optional id; blank means absent.
func normalizeID(id *string) *string {
	if id == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*id)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func sortedStrings(values []string) []string {
	out := append([]string(nil), values...)
	sort.Strings(out)
	return out
}

func defaultClock() time.Time {
	return time.Now().UTC()
}

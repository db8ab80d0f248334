package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/incident-service/internal/config"
	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/events"
)

// NotificationService logs the notifications an incident event would trigger.
// Delivery is left to downstream consumers.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventIncidentReported, n.handleIncidentReported)
	n.dispatcher.Subscribe(events.EventIncidentTransitioned, n.handleIncidentTransitioned)
	n.dispatcher.Subscribe(events.EventIncidentProjectionRepaired, n.handleProjectionRepaired)
}

func (n *NotificationService) handleIncidentReported(ctx context.Context, event events.Event) error {
	n.logger.Info("IncidentReported",
		zap.String("incident_id", event.IncidentID),
		zap.Int64("display_number", event.DisplayNumber),
		zap.Any("payload", event.Payload))
	if payload, ok := event.Payload.(events.IncidentReportedPayload); ok && payload.AssigneeID != nil {
		n.sendEmailNotificationStub(ctx, event, *payload.AssigneeID)
	}
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleIncidentTransitioned(ctx context.Context, event events.Event) error {
	n.logger.Info("IncidentTransitioned",
		zap.String("incident_id", event.IncidentID),
		zap.String("actor_id", event.ActorID),
		zap.Any("payload", event.Payload))
	if payload, ok := event.Payload.(events.IncidentTransitionedPayload); ok && payload.NewAssigneeID != nil &&
		!domain.SameAssignee(payload.PreviousAssigneeID, payload.NewAssigneeID) {
		n.sendEmailNotificationStub(ctx, event, *payload.NewAssigneeID)
	}
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleProjectionRepaired(ctx context.Context, event events.Event) error {
	n.logger.Warn("IncidentProjectionRepaired", zap.String("incident_id", event.IncidentID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event, recipientID string) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("recipient_id", recipientID),
		zap.String("incident_id", event.IncidentID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("incident_id", event.IncidentID),
		zap.String("event_type", string(event.Type)))
}

package worker

import (
	"github.com/spec-kit/incident-service/internal/events"
	"github.com/spec-kit/incident-service/internal/service"
)

// StartNotificationWorker registers notification handlers and, when a
// forwarder is configured, the NATS bridge.
func StartNotificationWorker(dispatcher events.Dispatcher, notificationService *service.NotificationService, forwarder *events.NATSForwarder) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if forwarder != nil {
		forwarder.Register(dispatcher)
	}
}

package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/incident-service/internal/config"
	"github.com/spec-kit/incident-service/internal/events"
	"github.com/spec-kit/incident-service/internal/service"
)

func TestNotificationService_NotifiesNewAssigneeOnly(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(dispatcher, zap.New(core), config.NotificationConfig{
		EmailFrom:  "safety@example.com",
		WebhookURL: "https://hooks.example.com/incidents",
	})
	notifications.RegisterHandlers()
	ctx := context.Background()

	same := "u-1"
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		Type:       events.EventIncidentTransitioned,
		IncidentID: "inc-1",
		Payload: events.IncidentTransitionedPayload{
			PreviousAssigneeID: &same,
			NewAssigneeID:      &same,
		},
	}))
	require.Zero(t, logs.FilterMessage("sendEmailNotificationStub").Len())
	require.Equal(t, 1, logs.FilterMessage("sendWebhookNotificationStub").Len())

	next := "u-2"
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		Type:       events.EventIncidentTransitioned,
		IncidentID: "inc-1",
		Payload: events.IncidentTransitionedPayload{
			PreviousAssigneeID: &same,
			NewAssigneeID:      &next,
		},
	}))
	emails := logs.FilterMessage("sendEmailNotificationStub").All()
	require.Len(t, emails, 1)
	require.Equal(t, "u-2", emails[0].ContextMap()["recipient_id"])

	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		Type:       events.EventIncidentProjectionRepaired,
		IncidentID: "inc-1",
	}))
	require.Equal(t, 1, logs.FilterMessage("IncidentProjectionRepaired").Len())
}

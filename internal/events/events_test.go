package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDispatcher_RunsEveryHandlerAndJoinsErrors(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string
	d.Subscribe(EventIncidentTransitioned, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("first failed")
	})
	d.Subscribe(EventIncidentTransitioned, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventIncidentReported, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventIncidentTransitioned})
	require.Error(t, err)
	require.Contains(t, err.Error(), "first failed")
	require.Equal(t, []string{"first", "second"}, calls)

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventIncidentReclassified}))
}

type capturePublisher struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
	err      error
}

func (p *capturePublisher) Publish(subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, data)
	return nil
}

func TestNATSForwarder_PublishesJSONOnTypedSubject(t *testing.T) {
	pub := &capturePublisher{}
	d := NewInMemoryDispatcher()
	fwd := NewNATSForwarder(pub, " safety. ", zap.NewNop())
	fwd.Register(d)

	require.Equal(t, "safety.incident_reported", fwd.Subject(EventIncidentReported))

	assignee := "u-2"
	err := d.Publish(context.Background(), Event{
		ID:         "evt-1",
		Type:       EventIncidentTransitioned,
		IncidentID: "inc-1",
		Payload:    IncidentTransitionedPayload{HistoryID: 7, NewStatus: "CLOSED", NewAssigneeID: &assignee},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"safety.incident_transitioned"}, pub.subjects)

	var decoded struct {
		ID         string `json:"id"`
		IncidentID string `json:"incident_id"`
		Payload    struct {
			HistoryID     int64  `json:"history_id"`
			NewStatus     string `json:"new_status"`
			NewAssigneeID string `json:"new_assignee_id"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(pub.payloads[0], &decoded))
	require.Equal(t, "inc-1", decoded.IncidentID)
	require.Equal(t, int64(7), decoded.Payload.HistoryID)
	require.Equal(t, "u-2", decoded.Payload.NewAssigneeID)
}

func TestNATSForwarder_DefaultPrefixAndPublishFailure(t *testing.T) {
	pub := &capturePublisher{err: errors.New("no responders")}
	d := NewInMemoryDispatcher()
	fwd := NewNATSForwarder(pub, "", zap.NewNop())
	fwd.Register(d)

	require.Equal(t, "incidents.incident_projection_repaired", fwd.Subject(EventIncidentProjectionRepaired))
	err := d.Publish(context.Background(), Event{Type: EventIncidentReported})
	require.ErrorContains(t, err, "no responders")
}

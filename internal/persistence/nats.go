package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-service/internal/config"
)

// NATS wraps the connection used to forward incident events.
type NATS struct {
	Conn *nats.Conn
}

// NewNATS connects when NATS_URL is provided; otherwise forwarding stays off.
func NewNATS(cfg config.NotificationConfig, logger *zap.Logger) (*NATS, error) {
	if cfg.NATSURL == "" {
		logger.Info("NATS_URL not provided; event forwarding disabled")
		return &NATS{}, nil
	}

	conn, err := nats.Connect(cfg.NATSURL,
		nats.Name("incident-service"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, err
	}

	logger.Info("connected to nats", zap.String("url", conn.ConnectedUrl()))
	return &NATS{Conn: conn}, nil
}

// Enabled reports whether a connection is available.
func (n *NATS) Enabled() bool {
	return n != nil && n.Conn != nil
}

// Close drains pending publishes and closes the connection.
func (n *NATS) Close() {
	if !n.Enabled() {
		return
	}
	if err := n.Conn.Drain(); err != nil {
		n.Conn.Close()
	}
}

// Configured mirrors Enabled for readiness probes.
func (n *NATS) Configured() bool {
	return n.Enabled()
}

// Ping round-trips to the server. ctx must carry a deadline.
func (n *NATS) Ping(ctx context.Context) error {
	if !n.Enabled() {
		return errors.New("nats not configured")
	}
	return n.Conn.FlushWithContext(ctx)
}

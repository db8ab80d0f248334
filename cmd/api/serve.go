package main

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/incident-service/internal/api/http"
	"github.com/spec-kit/incident-service/internal/api/http/handlers"
	"github.com/spec-kit/incident-service/internal/auth"
	"github.com/spec-kit/incident-service/internal/events"
	"github.com/spec-kit/incident-service/internal/persistence"
	"github.com/spec-kit/incident-service/internal/service"
	"github.com/spec-kit/incident-service/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func cmdServe() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API with the notification and reconcile workers",
		Action: func(ctx context.Context, _ *cli.Command) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			rt, err := newRuntime(ctx, cfg, logger)
			if err != nil {
				logger.Error("failed to initialize", zap.Error(err))
				return err
			}
			defer rt.Close()

			redis := persistence.NewRedis(ctx, cfg.Redis, logger)
			defer redis.Close()

			natsConn, err := persistence.NewNATS(cfg.Notification, logger)
			if err != nil {
				logger.Error("failed to connect nats", zap.Error(err))
				return err
			}
			defer natsConn.Close()

			var forwarder *events.NATSForwarder
			if natsConn.Enabled() {
				forwarder = events.NewNATSForwarder(natsConn.Conn, cfg.Notification.NATSSubjectPrefix, logger)
			}
			notifications := service.NewNotificationService(rt.dispatcher, logger, cfg.Notification)
			worker.StartNotificationWorker(rt.dispatcher, notifications, forwarder)

			reconcileWorker, err := worker.StartReconcileWorker(ctx, cfg.Reconcile, rt.reconciler, logger)
			if err != nil {
				logger.Error("failed to schedule reconciliation", zap.Error(err))
				return err
			}
			defer reconcileWorker.Stop()

			tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

			app := fiber.New(fiber.Config{
				AppName:               cfg.App.Name,
				DisableStartupMessage: true,
			})
			httptransport.RegisterMiddlewares(app, logger, rt.metrics, cfg.App.RequestTimeout())

			routes := httptransport.RouteConfig{
				Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
					"postgres": rt.postgres,
					"redis":    redis,
					"nats":     natsConn,
				}),
				Incidents:      handlers.NewIncidentsHandler(rt.incidents),
				History:        handlers.NewHistoryHandler(rt.incidents, rt.ledger),
				Dashboard:      handlers.NewDashboardHandler(rt.incidents, rt.ledger, rt.registry),
				Registry:       handlers.NewRegistryHandler(rt.registry),
				Admin:          handlers.NewAdminHandler(rt.reconciler, rt.metrics),
				AuthMiddleware: auth.NewAuthMiddleware(tokens, rt.registry),
				Logger:         logger,
			}
			if redis.Configured() {
				routes.Idempotency = persistence.NewIdempotencyStore(redis, cfg.Redis.IdempotencyTTL())
			}
			httptransport.RegisterRoutes(app, routes)

			listenErr := make(chan error, 1)
			go func() {
				logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
				listenErr <- app.Listen(cfg.App.Addr())
			}()

			select {
			case err := <-listenErr:
				if err != nil {
					logger.Error("fiber listen", zap.Error(err))
				}
				return err
			case <-ctx.Done():
				logger.Info("shutting down")
			}

			if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
				logger.Warn("http shutdown", zap.Error(err))
			}
			return nil
		},
	}
}

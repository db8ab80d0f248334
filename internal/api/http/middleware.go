package http

import (
	"context"
	"errors"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-service/internal/auth"
	"github.com/spec-kit/incident-service/internal/observability"
	"github.com/spec-kit/incident-service/internal/persistence"
	apperrors "github.com/spec-kit/incident-service/pkg/util/errorutil"
)

const (
	// IdempotencyHeader carries the client-chosen key for write requests.
	IdempotencyHeader = "Idempotency-Key"
	// ReplayHeader marks a response served from the idempotency store.
	ReplayHeader = "Idempotent-Replay"
)

// IdempotencyStore reserves keys and keeps completed responses.
type IdempotencyStore interface {
	Begin(ctx context.Context, key string) (*persistence.StoredResponse, error)
	Complete(ctx context.Context, key string, resp persistence.StoredResponse) error
	Release(ctx context.Context, key string) error
}

// RegisterMiddlewares attaches global middlewares. The request logger runs
// outermost so it sees the status written by the error handler.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	app.Use(observability.RequestLogger(logger, metrics))
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(errorHandlingMiddleware(logger, metrics))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				domainErr := apperrors.ToDomainError(err)
				metrics.RecordError(c.Route().Path, c.Method(), domainErr.Code)
				response := fiber.Map{"error": fiber.Map{
					"code":    domainErr.Code,
					"message": domainErr.Message,
				}}
				if len(domainErr.Details) > 0 {
					response["error"].(fiber.Map)["details"] = domainErr.Details
				}
				if domainErr.HTTPStatus >= 500 {
					logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
				}
				c.Status(domainErr.HTTPStatus)
				_ = c.JSON(response)
				err = nil
			}
		}()
		return c.Next()
	}
}

// idempotencyMiddleware replays the stored response for a repeated
// Idempotency-Key. Keys are scoped to the caller, method and path. Failed
// requests release their key so the client can retry. When the store is
// unreachable the request proceeds without protection.
func idempotencyMiddleware(store IdempotencyStore, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := strings.TrimSpace(c.Get(IdempotencyHeader))
		if header == "" || store == nil {
			return c.Next()
		}
		actorID := ""
		if p, ok := auth.PrincipalFromContext(c); ok {
			actorID = p.ActorID()
		}
		key := strings.Join([]string{actorID, c.Method(), c.Path(), header}, "|")

		stored, err := store.Begin(c.UserContext(), key)
		switch {
		case errors.Is(err, persistence.ErrIdempotencyInFlight):
			return apperrors.NewConflict("a request with this idempotency key is still in progress", map[string]any{"key": header})
		case err != nil:
			logger.Warn("idempotency store unavailable", zap.Error(err))
			return c.Next()
		case stored != nil:
			c.Set(ReplayHeader, "true")
			if stored.ContentType != "" {
				c.Set(fiber.HeaderContentType, stored.ContentType)
			}
			return c.Status(stored.Status).Send(stored.Body)
		}

		// the request context may already be cancelled by the time we clean up
		cleanupCtx := context.WithoutCancel(c.UserContext())
		if err := c.Next(); err != nil {
			if relErr := store.Release(cleanupCtx, key); relErr != nil {
				logger.Warn("release idempotency key", zap.Error(relErr))
			}
			return err
		}

		status := c.Response().StatusCode()
		if status >= fiber.StatusInternalServerError {
			if relErr := store.Release(cleanupCtx, key); relErr != nil {
				logger.Warn("release idempotency key", zap.Error(relErr))
			}
			return nil
		}
		resp := persistence.StoredResponse{
			Status:      status,
			ContentType: string(c.Response().Header.ContentType()),
			Body:        append([]byte(nil), c.Response().Body()...),
		}
		if err := store.Complete(cleanupCtx, key, resp); err != nil {
			logger.Warn("store idempotent response", zap.Error(err))
		}
		return nil
	}
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-service/internal/auth"
	"github.com/spec-kit/incident-service/internal/persistence"
)

func cmdMigrate() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply database migrations to POSTGRES_DSN",
		Action: func(ctx context.Context, _ *cli.Command) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pg.Close()
			if !pg.Configured() {
				return fmt.Errorf("POSTGRES_DSN is required for migrate")
			}
			return persistence.RunMigrations(ctx, pg.PoolHandle(), logger)
		},
	}
}

func cmdReconcile() *cli.Command {
	var dryRun bool

	return &cli.Command{
		Name:  "reconcile",
		Usage: "Compare every incident with its replayed history and repair drift",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "dry-run",
				Usage:       "Report mismatches without repairing them",
				Sources:     cli.EnvVars("RECONCILE_DRY_RUN"),
				Destination: &dryRun,
			},
		},
		Action: func(ctx context.Context, _ *cli.Command) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			rt, err := newRuntime(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			report, err := rt.reconciler.Run(ctx, dryRun)
			if err != nil {
				return err
			}
			logger.Info("reconciliation finished",
				zap.Int("checked", report.Checked),
				zap.Strings("mismatched", report.Mismatched),
				zap.Strings("repaired", report.Repaired),
				zap.Bool("dry_run", report.DryRun))
			return nil
		},
	}
}

func cmdSeed() *cli.Command {
	var path string

	return &cli.Command{
		Name:  "seed",
		Usage: "Load users and classifications from a YAML file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "Seed file path",
				Sources:     cli.EnvVars("REGISTRY_SEED_PATH"),
				Required:    true,
				Destination: &path,
			},
		},
		Action: func(ctx context.Context, _ *cli.Command) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			// the runtime must not seed the memory store a second time
			cfg.Registry.SeedPath = ""
			rt, err := newRuntime(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer rt.Close()
			if !rt.postgres.Configured() {
				logger.Warn("seeding the in-memory store; data is discarded on exit")
			}
			_, err = rt.applySeed(ctx, path)
			return err
		},
	}
}

func cmdIssueToken() *cli.Command {
	var userID string

	return &cli.Command{
		Name:  "issue-token",
		Usage: "Mint a bearer token for a registry user",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "user",
				Aliases:     []string{"u"},
				Usage:       "Registry user id",
				Required:    true,
				Destination: &userID,
			},
		},
		Action: func(ctx context.Context, _ *cli.Command) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			rt, err := newRuntime(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			user, err := rt.registry.GetUser(ctx, userID)
			if err != nil {
				return fmt.Errorf("resolve user %s: %w", userID, err)
			}
			tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
			token, expiresAt, err := tokens.GenerateToken(user)
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, token)
			logger.Info("token issued", zap.String("user_id", user.ID), zap.Time("expires_at", expiresAt))
			return nil
		},
	}
}

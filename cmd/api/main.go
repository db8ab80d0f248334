package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:                  "incident-service",
		Usage:                 "Safety incident reporting with an append-only lifecycle ledger",
		Version:               version,
		DefaultCommand:        "serve",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			cmdServe(),
			cmdMigrate(),
			cmdReconcile(),
			cmdSeed(),
			cmdIssueToken(),
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Package main is the entry point for the taskctl CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"taskctl/internal/backend/taskapi"
	"taskctl/internal/cli"
	"taskctl/internal/commands"
	"taskctl/internal/config"
	"taskctl/internal/logging"
	"taskctl/internal/service"
)

func main() {
	// Create context that cancels on interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	factory := func(ctx context.Context, cfg *config.Config) (service.Service, error) {
		c, err := taskapi.New(ctx, cfg, logging.New(os.Stderr, cfg.Debug))
		if err != nil {
			return nil, err
		}
		return c, nil
	}

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)

	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

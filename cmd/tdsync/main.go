// Package main is the entry point for the tdsync CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"tdsync/internal/backend/resttodo"
	"tdsync/internal/cli"
	"tdsync/internal/commands"
	"tdsync/internal/config"
	"tdsync/internal/service"
	"tdsync/internal/session"
)

func main() {
	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	// The session store is the gateway's token source.
	factory := func(ctx context.Context, cfg *config.Config) (service.Service, error) {
		return resttodo.New(cfg, session.Load(cfg)), nil
	}

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)

	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	os.Exit(code)
}

// Package main is the entry point for the streaktodo CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"streaktodo/internal/cli"
	"streaktodo/internal/commands"
)

func main() {
	// Cancel on interrupt so serve and login can shut down cleanly
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, cli.OpenStore)

	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"satguard/global"
	"satguard/initialize"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	app, err := initialize.Build(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "startup failed:", err)
		os.Exit(1)
	}
	defer app.Hub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() { errCh <- app.Monitor.Run(ctx) }()
	go func() { errCh <- app.Ingest.Consume(ctx) }()

	global.Logger.Info().Msg("satguard started")
	err = <-errCh
	stop()
	<-errCh
	if err != nil && !errors.Is(err, context.Canceled) {
		global.Logger.Error().Err(err).Msg("satguard stopped")
		os.Exit(1)
	}
	global.Logger.Info().Msg("satguard stopped")
}

// Package main seeds the local development databases with demo data.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ledgerline/commission/internal/platform/cmd"
	"github.com/ledgerline/commission/internal/platform/config"
	"github.com/ledgerline/commission/internal/tools/seed"
)

func main() {
	_ = godotenv.Load()

	cfg, err := seed.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("Error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = cmd.RunWithTelemetry(ctx, cmd.ServiceSeed, func(ctx context.Context) error {
		return seed.Run(ctx, cfg, os.Stdout, os.Stderr)
	})
	if err != nil {
		config.Exitf("Error: %v", err)
	}
}

package main

import (
	"context"
	"fmt"
	"os"

	"nvrgate/internal/app"
	"nvrgate/internal/cli"
	"nvrgate/internal/config"
	"nvrgate/internal/log"
	"nvrgate/internal/service"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	args, err := cli.ParseLoginArgs(argv, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	var cfg *config.AppConfig
	if args.ConfigPath != "" {
		cfg, err = config.LoadFile(args.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	logger := log.NewWithWriter(os.Stderr, cfg.Environment, cfg.Log.Level)
	ctx := context.Background()

	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open account store")
		return 1
	}
	defer stores.Close()

	issuer := service.NewSessionIssuer(stores.Users, stores.Sessions, logger)
	bearer := cli.BearerConfig{Secret: cfg.Security.BearerSecret, TTL: cfg.Security.BearerTTL}
	if err := cli.RunLogin(ctx, args, issuer, bearer, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

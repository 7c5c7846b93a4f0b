package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parking-system/internal/config"
	"parking-system/internal/logging"
	"parking-system/internal/parking"
	"parking-system/internal/server"
	"parking-system/internal/shell"
	"parking-system/internal/store/memory"
	"parking-system/internal/store/postgres"
)

var (
	mode = flag.String("mode", "cli", "Mode to run: cli, server, or both")
	port = flag.String("port", "", "Port for HTTP server (overrides PORT)")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Logger().Fatal().Err(err).Msg("failed to load config")
	}
	if *port != "" {
		cfg.Port = *port
	}

	// stdout belongs to the interactive shell.
	logging.InitWithWriter(os.Stderr, cfg.IsDevelopment())
	log := logging.Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryProvider, err := parking.NewTelemetryProvider(ctx, cfg.OTelServiceName, cfg.OTelEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.Store).Msg("failed to open store")
	}
	defer closeStore()

	svc, err := parking.NewInstrumentedSessionService(ctx,
		parking.NewSessionService(store, cfg.FareCalculator()),
		telemetryProvider,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create session service")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	switch *mode {
	case "cli":
		runCLI(ctx, cancel, svc, sigChan)
	case "server":
		runServer(ctx, cancel, cfg, svc, sigChan)
	case "both":
		runBoth(ctx, cancel, cfg, svc, sigChan)
	default:
		log.Fatal().Str("mode", *mode).Msg("invalid mode, must be cli, server, or both")
	}

	shutdownTelemetry(telemetryProvider)
}

func openStore(ctx context.Context, cfg *config.Config) (parking.Store, func(), error) {
	spots := parking.Provision(cfg.CarSpots, cfg.BikeSpots)

	if cfg.Store == config.StoreMemory {
		return memory.NewStore(spots), func() {}, nil
	}

	db, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	if err := postgres.Seed(ctx, db, spots); err != nil {
		db.Close()
		return nil, nil, err
	}
	return postgres.NewStore(db), func() { db.Close() }, nil
}

func runCLI(ctx context.Context, cancel context.CancelFunc, svc *parking.InstrumentedSessionService, sigChan chan os.Signal) {
	go func() {
		<-sigChan
		logging.Logger().Info().Msg("shutting down")
		cancel()
	}()

	shell.NewShell(svc, os.Stdin, os.Stdout).Run(ctx)
}

func shutdownServer(srv *server.Server) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Logger().Error().Err(err).Msg("server shutdown error")
	}
}

func runServer(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, svc *parking.InstrumentedSessionService, sigChan chan os.Signal) {
	srv := server.NewServer(cfg.Port, svc)

	go func() {
		<-sigChan
		logging.Logger().Info().Msg("received shutdown signal")
		shutdownServer(srv)
		cancel()
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Logger().Error().Err(err).Msg("server error")
	}
}

func runBoth(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, svc *parking.InstrumentedSessionService, sigChan chan os.Signal) {
	srv := server.NewServer(cfg.Port, svc)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Start()
	}()

	cliDone := make(chan bool, 1)
	go func() {
		shell.NewShell(svc, os.Stdin, os.Stdout).Run(ctx)
		cliDone <- true
	}()

	go func() {
		<-sigChan
		logging.Logger().Info().Msg("received shutdown signal")
		cancel()
	}()

	log := logging.Logger()
	select {
	case err := <-serverDone:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
		}
	case <-cliDone:
		log.Info().Msg("CLI exited")
	case <-ctx.Done():
		log.Info().Msg("context cancelled")
	}

	shutdownServer(srv)
}

func shutdownTelemetry(telemetryProvider *parking.TelemetryProvider) {
	logging.Logger().Info().Msg("shutting down telemetry")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := telemetryProvider.Shutdown(shutdownCtx); err != nil {
		logging.Logger().Error().Err(err).Msg("error shutting down telemetry")
	}
}

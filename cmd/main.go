package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/tournament-engine/config"
	"github.com/Dosada05/tournament-engine/db"
	"github.com/Dosada05/tournament-engine/handlers"
	"github.com/Dosada05/tournament-engine/ledger"
	"github.com/Dosada05/tournament-engine/metrics"
	"github.com/Dosada05/tournament-engine/notify"
	api "github.com/Dosada05/tournament-engine/routes"
	"github.com/Dosada05/tournament-engine/scheduler"
	"github.com/Dosada05/tournament-engine/services"
	"github.com/Dosada05/tournament-engine/simulation"
	"github.com/Dosada05/tournament-engine/storage"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "tournament-engine",
		Usage: "tournament lifecycle engine",
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			simulateCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func newLogger(level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply database migrations",
		Action: func(c *cli.Context) error {
			logger := newLogger(slog.LevelInfo)
			dsn, err := config.DatabaseURL()
			if err != nil {
				return err
			}
			dbConn, err := db.Connect(dsn, 5*time.Second)
			if err != nil {
				return err
			}
			defer dbConn.Close()
			return db.Migrate(c.Context, dbConn, logger)
		},
	}
}

func simulateCommand() *cli.Command {
	return &cli.Command{
		Name:      "simulate",
		Usage:     "play a scenario on the in-memory store and print a JSON report",
		ArgsUsage: "<scenario.yaml>",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "seed", Usage: "override the scenario seed"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("scenario file is required", 2)
			}
			logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

			sc, err := simulation.LoadScenario(c.Args().First())
			if err != nil {
				return err
			}
			if c.IsSet("seed") {
				seed := c.Int64("seed")
				sc.Seed = &seed
			}
			report, err := simulation.Run(c.Context, sc, logger)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "migrate", Usage: "apply migrations before serving", Value: true},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			return serve(c.Context, cfg, c.Bool("migrate"))
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, migrate bool) error {
	logger := newLogger(cfg.LogLevel)
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	if migrate {
		if err := db.Migrate(ctx, dbConn, logger); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// WebSocket Hub
	hub := notify.NewHub(logger)
	go hub.Run(ctx)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	engineMetrics := metrics.New(registry)

	var creditLedger services.CreditLedger = ledger.NewLogLedger(logger)
	if cfg.LedgerURL != "" {
		creditLedger = ledger.NewHTTPClient(cfg.LedgerURL, cfg.LedgerToken, logger)
	} else {
		logger.Warn("LEDGER_URL is not set, credits are only logged")
	}

	var archive services.ArchiveStore
	r2cfg := storage.R2ArchiveConfig{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
		Endpoint:        cfg.R2Endpoint,
	}
	if r2cfg.Enabled() {
		r2, err := storage.NewR2Archive(ctx, r2cfg)
		if err != nil {
			return err
		}
		archive = r2
		logger.Info("R2 archive initialized", slog.String("bucket", cfg.R2BucketName))
	} else {
		logger.Warn("R2 archive is not configured, tournament archives are disabled")
	}

	store := services.NewPostgresStore(dbConn, logger)
	tournamentService := services.NewTournamentService(store, hub, logger)
	progressionService := services.NewProgressionService(store, hub, engineMetrics, logger)
	standingsService := services.NewStandingsService(store, logger)
	rewardService := services.NewRewardService(store, services.RewardDeps{
		Ledger:   creditLedger,
		Notifier: hub,
		Archive:  archive,
		Metrics:  engineMetrics,
	}, logger)
	logger.Info("services initialized")

	sched, err := scheduler.New(rewardService, cfg.RewardSweepInterval, logger)
	if err != nil {
		return err
	}
	sched.Start()

	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Tournament: handlers.NewTournamentHandler(tournamentService),
		Session:    handlers.NewSessionHandler(progressionService),
		Ranking:    handlers.NewRankingHandler(standingsService),
		Reward:     handlers.NewRewardHandler(rewardService),
		WebSocket:  handlers.NewWebSocketHandler(hub, tournamentService, cfg.CORSAllowedOrigins, logger),
	}, api.Options{
		JWTSecret:      []byte(cfg.JWTSecretKey),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Metrics:        engineMetrics.Handler(),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	var runErr error
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			_ = server.Close()
			runErr = err
		}
	}

	if err := sched.Shutdown(); err != nil {
		logger.Error("scheduler shutdown failed", slog.Any("error", err))
	}
	// Ждём начисления и загрузку архивов, начатые до остановки.
	rewardService.Wait()
	logger.Info("application exited")
	return runErr
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/palabeo/palabeo/internal/auth"
	"github.com/palabeo/palabeo/internal/config"
	"github.com/palabeo/palabeo/internal/denylist"
	"github.com/palabeo/palabeo/internal/event"
	"github.com/palabeo/palabeo/internal/metrics"
	"github.com/palabeo/palabeo/internal/ratelimit"
	"github.com/palabeo/palabeo/internal/service"
	"github.com/palabeo/palabeo/internal/storage/postgres"
	redisstore "github.com/palabeo/palabeo/internal/storage/redis"
	"github.com/palabeo/palabeo/internal/translator"
	grpcTransport "github.com/palabeo/palabeo/internal/transport/grpc"
	httpTransport "github.com/palabeo/palabeo/internal/transport/http"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "palabeo",
		Short:         "Vocabulary trainer API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment")

	// setup loads configuration and installs the logger for a subcommand.
	setup := func() (*config.Config, *slog.Logger, error) {
		cfg, err := config.Load(envFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return nil, nil, err
		}
		logger := newLogger(cfg)
		slog.SetDefault(logger)
		return cfg, logger, nil
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and gRPC servers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			if err := run(cmd.Context(), cfg, logger); err != nil {
				logger.Error("application error", "error", err)
				return err
			}
			return nil
		},
	}

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			db, err := postgres.New(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				logger.Error("connect to database", "error", err)
				return err
			}
			defer db.Close()

			if err := db.Migrate(cmd.Context(), cfg.MigrationsDir, logger); err != nil {
				logger.Error("migration failed", "error", err)
				return err
			}
			return nil
		},
	}

	root.AddCommand(serve, migrate)
	return root
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger.Info("connecting to database")
	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info("database connected")

	if err := db.Migrate(ctx, cfg.MigrationsDir, logger); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	repos := db.Repositories()

	healthChecks := map[string]httpTransport.HealthCheck{
		"database": db.Ping,
	}

	// Rate limits and translations are shared through Redis when configured.
	var (
		limitStore ratelimit.Store
		cache      translator.Cache = translator.NoopCache{}
	)
	if cfg.RedisURL != "" {
		client, err := redisstore.Connect(ctx, cfg.RedisURL, redisstore.DefaultOptions())
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer client.Close()
		logger.Info("redis connected")

		limitStore = ratelimit.NewRedisStore(client)
		cache = translator.NewRedisCache(client, cfg.TranslationCacheTTL)
		healthChecks["redis"] = redisstore.Healthcheck(client)
	} else {
		memStore := ratelimit.NewMemoryStore()
		defer memStore.Close()
		limitStore = memStore
	}

	passwords, err := denylist.NewSource(cfg.PasswordDenylistFile, logger)
	if err != nil {
		return fmt.Errorf("load password denylist: %w", err)
	}
	go func() {
		if err := passwords.Watch(ctx); err != nil {
			logger.Error("password denylist watcher stopped", "error", err)
		}
	}()

	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector = metrics.NewCollector()
	}

	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		SecretKey:       cfg.JWTSecretKey,
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
		Issuer:          "palabeo",
		Audience:        []string{},
	})

	publisher := event.NewLoggingPublisher(logger)
	defer publisher.Close()

	authService := service.NewAuthService(repos.Users, repos.Tokens, jwtManager, auth.NewHasher(0), passwords, publisher)
	userService := service.NewUserService(repos.Users, repos.Tokens, publisher)
	wordService := service.NewWordService(repos.Words, publisher)
	quizService := service.NewQuizService(repos.Words, publisher)
	translateService := service.NewTranslateService(
		translator.NewClient(cfg.TranslatorURL, cfg.TranslatorAPIKey, cfg.TranslatorTimeout),
		cache,
		collector,
		logger,
	)

	errChan := make(chan error, 2)

	httpServer := httpTransport.NewServer(cfg, httpTransport.Deps{
		Auth:         authService,
		Users:        userService,
		Words:        wordService,
		Quiz:         quizService,
		Translate:    translateService,
		Limiter:      ratelimit.New(limitStore, cfg.RateLimitRequests, cfg.RateLimitWindow),
		Metrics:      collector,
		HealthChecks: healthChecks,
	}, logger)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		logger.Info("starting HTTP server", "addr", addr)
		if err := httpServer.ListenAndServe(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	grpcServer := grpcTransport.NewServer(authService, passwords, collector, logger)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.GRPCPort)
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			errChan <- fmt.Errorf("gRPC listen: %w", err)
			return
		}
		logger.Info("starting gRPC server", "addr", addr)
		if err := grpcServer.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errChan <- fmt.Errorf("gRPC server: %w", err)
		}
	}()

	scheduler := cron.New()
	if cfg.SessionCleanupSchedule != "" {
		_, err := scheduler.AddFunc(cfg.SessionCleanupSchedule, func() {
			removed, err := authService.CleanupExpiredTokens(ctx)
			if err != nil {
				logger.Error("token cleanup failed", "error", err)
				return
			}
			logger.Info("expired tokens removed", "count", removed)
		})
		if err != nil {
			return fmt.Errorf("schedule token cleanup: %w", err)
		}
	}
	scheduler.Start()

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-errChan:
		logger.Error("server error", "error", err)
		return err
	}

	logger.Info("initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	grpcServer.GracefulStop()
	<-scheduler.Stop().Done()

	cancel()

	logger.Info("shutdown complete")
	return nil
}

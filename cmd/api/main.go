package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ledger-gateway/internal/api/http"
	"github.com/spec-kit/ledger-gateway/internal/api/http/handlers"
	"github.com/spec-kit/ledger-gateway/internal/auth"
	"github.com/spec-kit/ledger-gateway/internal/config"
	"github.com/spec-kit/ledger-gateway/internal/events"
	"github.com/spec-kit/ledger-gateway/internal/fabric"
	"github.com/spec-kit/ledger-gateway/internal/ledger"
	"github.com/spec-kit/ledger-gateway/internal/observability"
	"github.com/spec-kit/ledger-gateway/internal/persistence"
	"github.com/spec-kit/ledger-gateway/internal/repository"
	"github.com/spec-kit/ledger-gateway/internal/service"
	"github.com/spec-kit/ledger-gateway/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	var dataRemote, configRemote ledger.Remote
	if cfg.Ledger.Enabled() {
		conn, err := fabric.Connect(cfg.Ledger, logger)
		if err != nil {
			logger.Fatal("failed to connect ledger gateway", zap.Error(err))
		}
		defer conn.Close()
		dataRemote = conn.Contract(cfg.Ledger.DataContractName)
		configRemote = conn.Contract(cfg.Ledger.ConfigContractName)
	} else {
		logger.Warn("LEDGER_PEER_ENDPOINT not set; ledger routes will answer 503")
	}
	dataGateway := ledger.NewGateway(dataRemote, ledger.GatewayOptions{
		Name:     cfg.Ledger.DataContractName,
		PageSize: cfg.Ledger.PageSize,
		MaxPages: cfg.Ledger.MaxPages,
		Recorder: metrics,
	}, logger)
	configGateway := ledger.NewGateway(configRemote, ledger.GatewayOptions{
		Name:     cfg.Ledger.ConfigContractName,
		Recorder: metrics,
	}, logger)

	userRepo := repository.NewUserRepository(pg.PoolHandle())
	tokens := auth.NewTokenCodec([]byte(cfg.Auth.JWTSecret), cfg.Auth.AccessTokenTTLMinutes)
	throttle := auth.NewLoginThrottle(redis, cfg.Auth.LoginMaxAttempts, cfg.Auth.LoginLockout(), logger)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:   userRepo,
		Tokens:     tokens,
		Throttle:   throttle,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	queryService := service.NewQueryService(dataGateway, dispatcher, cfg.Ledger.PageSize, logger)
	configService := service.NewConfigService(configGateway, dispatcher, logger)
	notifications := service.NewNotificationService(dispatcher, service.LogMailer{Logger: logger}, logger, cfg.Notification)
	worker.Start(dispatcher, notifications, logger)

	if cfg.Auth.BootstrapAdmin() {
		if err := authService.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			logger.Fatal("failed to bootstrap administrator", zap.Error(err))
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, dataGateway, metrics),
		Users:   handlers.NewUsersHandler(authService),
		Queries: handlers.NewQueriesHandler(queryService),
		Configs: handlers.NewConfigsHandler(configService),
		Gate:    auth.NewGate(tokens, userRepo, logger, httptransport.PublicPaths...),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/simatecve/contact-pulse-engine-sub000/internal/api/handler"
	"github.com/simatecve/contact-pulse-engine-sub000/internal/api/middleware"
	"github.com/simatecve/contact-pulse-engine-sub000/internal/app"
	"github.com/simatecve/contact-pulse-engine-sub000/internal/automation"
	"github.com/simatecve/contact-pulse-engine-sub000/internal/config"
	"github.com/simatecve/contact-pulse-engine-sub000/internal/logger"
	"github.com/simatecve/contact-pulse-engine-sub000/internal/notifier"
	"github.com/simatecve/contact-pulse-engine-sub000/internal/pkg/breaker"
	"github.com/simatecve/contact-pulse-engine-sub000/internal/server"
	"github.com/simatecve/contact-pulse-engine-sub000/internal/service/auth"
	"github.com/simatecve/contact-pulse-engine-sub000/internal/service/connection"
)

func main() {
	cfg := config.Load()

	logr, err := logger.New(cfg.App.Env, cfg.Log.Level)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logr.Sync()

	logr.Info("iniciando la aplicación",
		zap.String("env", cfg.App.Env),
		zap.String("log_level", cfg.Log.Level),
		zap.String("port", cfg.App.Port),
		zap.String("db_driver", cfg.Storage.Driver),
	)

	repos, err := app.NewRepositories(cfg, logr)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	registry := automation.NewRegistry(
		repos.WebhookEndpoint,
		time.Duration(cfg.Automation.RegistryRefreshSeconds)*time.Second,
		logr,
	)
	breakerReg := breaker.NewRegistry(
		cfg.Automation.BreakerMaxFailures,
		time.Duration(cfg.Automation.BreakerResetSeconds)*time.Second,
	)
	executor := automation.NewExecutor(
		registry,
		breakerReg,
		time.Duration(cfg.Automation.RequestTimeoutSeconds)*time.Second,
		logr,
	)

	svcOpts := connection.Options{
		Repo:      repos.Connection,
		Events:    repos.EventLog,
		Executor:  executor,
		Queue:     repos.EventQueue,
		Logger:    logr,
		SecretKey: cfg.Automation.SecretKeyEnc,
	}
	if repos.LockManager != nil {
		svcOpts.Locks = repos.LockManager
	}
	connectionService := connection.NewService(svcOpts)
	authService := auth.NewService(cfg.JWT.Secret, cfg.JWT.ExpHours, repos.User)

	delivery := notifier.NewDelivery(logr, cfg.Notifier.MaxRetries)
	pool := notifier.NewPool(notifier.Options{
		Queue:      repos.EventQueue,
		Conns:      repos.Connection,
		Events:     repos.EventLog,
		Delivery:   delivery,
		Logger:     logr,
		SecretKey:  cfg.Automation.SecretKeyEnc,
		NumWorkers: cfg.Notifier.Workers,
	})
	pool.Start(context.Background())
	logr.Info("notifier iniciado", zap.Int("workers", cfg.Notifier.Workers))

	router := server.NewRouter(server.Options{
		Env:               cfg.App.Env,
		AuthSecret:        cfg.JWT.Secret,
		ConnectionHandler: handler.NewConnectionHandler(connectionService, logr),
		ProxyHandler:      handler.NewProxyHandler(executor, logr),
		EndpointHandler:   handler.NewEndpointHandler(repos.WebhookEndpoint, registry, logr),
		EventHandler:      handler.NewEventHandler(repos.EventLog),
		AuthHandler:       handler.NewAuthHandler(authService),
		HealthHandler:     handler.NewHealthHandler(),
		RateLimit: middleware.RateLimitOption{
			Enabled:  cfg.RateLimit.Enabled,
			Requests: cfg.RateLimit.Requests,
			Window:   time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
			Prefix:   cfg.RateLimit.Prefix,
			Limiter:  repos.RateLimiter,
			Logger:   logr,
		},
		IPRateLimit: middleware.IPRateLimitOption{
			Enabled:        cfg.IPRateLimit.Enabled,
			Requests:       cfg.IPRateLimit.Requests,
			WindowSeconds:  cfg.IPRateLimit.WindowSeconds,
			SkipPrivateIPs: cfg.IPRateLimit.SkipPrivateIPs,
			Limiter:        repos.RateLimiter,
			Logger:         logr,
		},
	})

	application := app.New(cfg, logr, router)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := application.Run(context.Background()); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logr.Info("señal de apagado recibida")
	case err := <-errCh:
		logr.Error("el servidor terminó con error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool.Stop()

	if repos.RedisClient != nil {
		if err := repos.RedisClient.Close(); err != nil {
			logr.Warn("error al cerrar Redis", zap.Error(err))
		}
	}

	if err := application.Shutdown(shutdownCtx); err != nil {
		logr.Error("error en el apagado del servidor", zap.Error(err))
	} else {
		logr.Info("servidor apagado")
	}
}

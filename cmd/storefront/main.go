package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/servana/storefront/internal/booking"
	"github.com/servana/storefront/internal/cart"
	"github.com/servana/storefront/internal/debounce"
	"github.com/servana/storefront/internal/handlers"
	"github.com/servana/storefront/internal/platform/config"
	"github.com/servana/storefront/internal/platform/metrics"
	"github.com/servana/storefront/internal/platform/observability"
	"github.com/servana/storefront/internal/remote"
	enginesync "github.com/servana/storefront/internal/sync"
)

func main() {
	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("storefront")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	metricSet := metrics.New()

	client, err := remote.NewClient(remote.ClientDeps{
		BaseURL: cfg.Remote.BaseURL,
		Timeout: cfg.Remote.Timeout,
		Logger:  observability.EventHook(logger.Named("remote")),
	})
	if err != nil {
		logger.Fatal("failed to initialise remote client", zap.Error(err))
	}

	store, err := cart.NewStore(cart.StoreDeps{
		TaxRate: cfg.Cart.TaxRate,
		Logger:  observability.EventHook(logger.Named("cart")),
	})
	if err != nil {
		logger.Fatal("failed to initialise cart store", zap.Error(err))
	}

	scheduler := debounce.NewScheduler()
	defer scheduler.Stop()

	orchestrator, err := enginesync.NewOrchestrator(enginesync.OrchestratorDeps{
		Store:     store,
		Backend:   client,
		Scheduler: scheduler,
		SaveDelay: cfg.Cart.SaveDelay,
		Logger:    observability.EventHook(logger.Named("sync")),
		Metrics:   metricSet,
	})
	if err != nil {
		logger.Fatal("failed to initialise sync orchestrator", zap.Error(err))
	}
	defer orchestrator.Close()

	bookingService, err := booking.NewService(booking.ServiceDeps{
		Backend: client,
		Store:   booking.NewStore(),
		Logger:  observability.EventHook(logger.Named("booking")),
	})
	if err != nil {
		logger.Fatal("failed to initialise booking service", zap.Error(err))
	}

	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(logger),
			handlers.SessionMiddleware(time.Now),
			observability.RequestLoggerMiddleware(),
			observability.RecoveryMiddleware(logger),
			metricSet.Middleware,
		),
		handlers.WithMetricsHandler(metricSet.Handler()),
		handlers.WithCartRoutes(handlers.NewCartHandlers(orchestrator, store).Routes),
		handlers.WithBookingRoutes(handlers.NewBookingHandlers(bookingService).Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("storefront engine listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	// Push any pending cart changes before the process goes away.
	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := orchestrator.Flush(flushCtx); err != nil {
		logger.Warn("final cart flush failed", zap.Error(err))
	}
	flushCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/notifyhub/queue-watch/internal/api"
	"github.com/notifyhub/queue-watch/internal/config"
	"github.com/notifyhub/queue-watch/internal/icons"
	"github.com/notifyhub/queue-watch/internal/messenger"
	"github.com/notifyhub/queue-watch/internal/metrics"
	"github.com/notifyhub/queue-watch/internal/monitor"
	"github.com/notifyhub/queue-watch/internal/notify"
	"github.com/notifyhub/queue-watch/internal/ratelimiter"
	"github.com/notifyhub/queue-watch/internal/statussource"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ---- core dependencies ----
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	src, err := statussource.NewHTTPSource(cfg.StatusSourceBaseURL, cfg.StatusRequestTimeout)
	if err != nil {
		logger.Fatal("invalid status source", zap.Error(err))
	}
	limiter := ratelimiter.New(cfg.PollRateLimit)
	iconLoader := icons.NewLoader(cfg.IconDir, logger)

	// Context for all background goroutines; cancelled on shutdown signal.
	bgCtx, cancelBackground := context.WithCancel(ctx)
	defer cancelBackground()

	go func() {
		if err := iconLoader.Watch(bgCtx); err != nil {
			logger.Warn("icon directory not watched", zap.Error(err))
		}
	}()

	// ---- notification path ----
	// Only a websocket controller counts as delivery; the log keeps a record
	// of every notification, seen or not.
	hub := messenger.NewHub(logger, cfg.AllowedOrigins...)
	dispatcher := notify.NewDispatcher(
		notify.Recorded{Surface: hub, Record: notify.NewLogSurface(logger)},
		notify.Options{
			Icons:            iconLoader,
			IconName:         cfg.NotificationIcon,
			BadgeName:        cfg.NotificationBadge,
			StatusPagePath:   cfg.StatusPagePath,
			NavigationBuffer: cfg.NavigationBuffer,
		},
		logger,
	)
	go hub.ForwardNavigations(bgCtx, dispatcher.Navigations())

	// ---- monitor ----
	ctrl := monitor.NewController(src, dispatcher, monitor.Options{
		Interval:           cfg.PollInterval,
		NotifyOnTransition: cfg.NotifyPolicy == config.NotifyTransition,
		Limiter:            limiter,
		Hooks:              m.MonitorHooks(),
	}, logger)
	msgr := messenger.New(ctrl, dispatcher, logger)

	if cfg.SweepCron != "" {
		sweeper, err := monitor.NewSweeper(ctrl, cfg.SweepCron, logger)
		if err != nil {
			logger.Fatal("invalid sweep schedule", zap.Error(err))
		}
		go sweeper.Run(bgCtx)
	}

	// ---- HTTP server ----
	router := api.NewRouter(ctrl, msgr, hub, reg, cfg.AllowedOrigins, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      h2c.NewHandler(router, &http2.Server{}),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.Duration("poll_interval", ctrl.Interval()),
			zap.String("notify_policy", string(cfg.NotifyPolicy)),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Stop every session and wait for in-flight polls to be abandoned.
	ctrl.Shutdown()

	// 3. Stop the sweeper, icon watcher and navigation forwarder.
	cancelBackground()

	logger.Info("server stopped cleanly")
}

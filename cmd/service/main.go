package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-widget/internal/client"
	"github.com/kjstillabower/weather-widget/internal/config"
	httphandler "github.com/kjstillabower/weather-widget/internal/http"
	"github.com/kjstillabower/weather-widget/internal/lifecycle"
	"github.com/kjstillabower/weather-widget/internal/observability"
	"github.com/kjstillabower/weather-widget/internal/options"
	"github.com/kjstillabower/weather-widget/internal/refresh"
	"github.com/kjstillabower/weather-widget/internal/traffic"
)

func main() {
	logger, err := observability.NewLogger("weather-widget")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	weatherClient, err := client.NewWeatherAPIClient(cfg.WeatherAPIURL, cfg.WeatherAPITimeout)
	if err != nil {
		logger.Fatal("weather client", zap.Error(err))
	}

	traffic.SetRetention(cfg.HealthWindow)
	opts := options.New(cfg)
	refresher := refresh.New(weatherClient, logger, refresh.Config{
		SkipOverlapping: cfg.SkipOverlapping,
		Immediate:       cfg.Immediate,
	})
	unwatch := refresher.Watch(opts)
	defer unwatch()

	hub := httphandler.NewHub(logger)
	unfollow := hub.Follow(refresher.Cell())
	defer unfollow()

	healthConfig := &httphandler.HealthConfig{
		Window:     cfg.HealthWindow,
		FailurePct: cfg.HealthFailurePct,
		Armed:      func() bool { return refresher.ActiveSchedules() > 0 },
	}
	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	handler := httphandler.NewHandler(refresher.Cell(), opts, hub, healthConfig, logger, cfg.LocationMaxLength)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      httphandler.NewRouter(handler, logger, limiter),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()
	lifecycle.SetPhase(lifecycle.Running)

	// SIGHUP reloads the config file; changed options re-arm the schedule.
	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	defer signal.Stop(reload)
	go func() {
		for range reload {
			next, err := config.Load()
			if err != nil {
				logger.Error("config reload failed", zap.Error(err))
				continue
			}
			changed := opts.Apply(next)
			logger.Info("config reloaded", zap.Strings("changed", changed))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetPhase(lifecycle.ShuttingDown)
	refresher.Stop()
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	inFlight := httphandler.InFlightCount()
	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if err := observability.FlushTelemetry(logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

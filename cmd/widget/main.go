package main

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-widget/internal/client"
	"github.com/kjstillabower/weather-widget/internal/config"
	"github.com/kjstillabower/weather-widget/internal/observability"
	"github.com/kjstillabower/weather-widget/internal/options"
	"github.com/kjstillabower/weather-widget/internal/refresh"
	"github.com/kjstillabower/weather-widget/internal/widget"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "weather-widget: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logPath := os.Getenv("WIDGET_LOG")
	if logPath == "" {
		logPath = filepath.Join(os.TempDir(), "weather-widget.log")
	}
	// The terminal belongs to the view; logs go to a file.
	logger, err := observability.NewFileLogger("weather-widget-tui", logPath)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = observability.FlushTelemetry(logger) }()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	weatherClient, err := client.NewWeatherAPIClient(cfg.WeatherAPIURL, cfg.WeatherAPITimeout)
	if err != nil {
		return fmt.Errorf("weather client: %w", err)
	}

	opts := options.New(cfg)
	refresher := refresh.New(weatherClient, logger, refresh.Config{
		SkipOverlapping: cfg.SkipOverlapping,
		Immediate:       cfg.Immediate,
	})
	defer refresher.Stop()

	w := widget.New(refresher.Cell(), opts.Unit, cfg.HourlyCount)
	p := tea.NewProgram(widget.NewModel(w, opts.Unit), tea.WithAltScreen())
	unbind := widget.Bind(p, refresher.Cell())
	defer unbind()

	// Watch arms the first schedule; with Immediate the first tick may land
	// before Run starts, which Bind tolerates.
	unwatch := refresher.Watch(opts)
	defer unwatch()

	logger.Info("widget starting", zap.String("location", cfg.WeatherLocation), zap.Duration("interval", cfg.WeatherInterval))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	logger.Info("widget stopped")
	return nil
}

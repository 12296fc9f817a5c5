//go:build integration
// +build integration

package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-widget/internal/config"
	"github.com/kjstillabower/weather-widget/internal/models"
	"github.com/kjstillabower/weather-widget/internal/options"
	"github.com/kjstillabower/weather-widget/internal/refresh"
	testhelpers "github.com/kjstillabower/weather-widget/internal/testhelpers"
)

// setupIntegrationRouter wires a live refresher behind the router.
func setupIntegrationRouter(t *testing.T) (http.Handler, *options.Options, *refresh.Refresher) {
	cfg := testhelpers.GetIntegrationConfig(t)
	r := testhelpers.SetupIntegrationRefresher(t, cfg)
	opts := options.New(&config.Config{
		WeatherKey:      cfg.APIKey,
		WeatherInterval: time.Minute,
		WeatherLocation: cfg.Location,
		WeatherUnit:     "imperial",
	})
	t.Cleanup(r.Watch(opts))

	hub := NewHub(nil)
	t.Cleanup(hub.Close)
	health := &HealthConfig{Window: time.Minute, FailurePct: 50, Armed: func() bool { return r.ActiveSchedules() > 0 }}
	h := NewHandler(r.Cell(), opts, hub, health, zap.NewNop(), 100)
	return NewRouter(h, zap.NewNop(), nil), opts, r
}

// waitLive polls GET /weather until the sentinel header clears.
func waitLive(t *testing.T, router http.Handler) models.Weather {
	t.Helper()
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/weather", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("GET /weather status = %d", w.Code)
		}
		if w.Header().Get(SentinelHeader) == "" {
			var weather models.Weather
			if err := json.Unmarshal(w.Body.Bytes(), &weather); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			return weather
		}
		time.Sleep(200 * time.Millisecond)
	}
	t.Fatal("weather never left the placeholder")
	return models.Weather{}
}

func TestIntegration_WeatherGoesLive(t *testing.T) {
	router, _, _ := setupIntegrationRouter(t)

	weather := waitLive(t, router)
	if weather.Location.Name == "" || len(weather.Forecast.ForecastDay) == 0 {
		t.Errorf("live weather incomplete: %+v", weather.Location)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("GET /health status = %d, body %s", w.Code, w.Body.String())
	}
}

// TestIntegration_BadKeyFallsBack verifies an API error payload resets the cell.
func TestIntegration_BadKeyFallsBack(t *testing.T) {
	router, opts, _ := setupIntegrationRouter(t)
	waitLive(t, router)

	next := opts.Snapshot()
	next.Key = "invalid-key"
	opts.Set(next)

	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/weather", nil))
		if w.Header().Get(SentinelHeader) == "true" {
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	t.Error("cell kept live data after the key was invalidated")
}

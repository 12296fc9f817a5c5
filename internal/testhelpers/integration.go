//go:build integration
// +build integration

package testhelpers

import (
	"os"
	"testing"
	"time"

	"github.com/kjstillabower/weather-widget/internal/client"
	"github.com/kjstillabower/weather-widget/internal/config"
	"github.com/kjstillabower/weather-widget/internal/observability"
	"github.com/kjstillabower/weather-widget/internal/refresh"
)

// IntegrationTestConfig holds configuration for integration tests.
type IntegrationTestConfig struct {
	APIKey   string
	APIURL   string
	Location string
}

// GetIntegrationConfig loads integration test configuration from environment.
// Skips test if WEATHER_API_KEY is not set.
func GetIntegrationConfig(t *testing.T) IntegrationTestConfig {
	apiKey := os.Getenv("WEATHER_API_KEY")
	if apiKey == "" {
		t.Skip("WEATHER_API_KEY not set, skipping integration test")
	}

	apiURL := os.Getenv("WEATHER_API_URL")
	if apiURL == "" {
		apiURL = config.DefaultWeatherAPIURL
	}
	location := os.Getenv("WEATHER_LOCATION")
	if location == "" {
		location = "New York"
	}

	return IntegrationTestConfig{
		APIKey:   apiKey,
		APIURL:   apiURL,
		Location: location,
	}
}

// SetupIntegrationClient creates a weatherapi.com client for integration tests.
func SetupIntegrationClient(t *testing.T, cfg IntegrationTestConfig) *client.WeatherAPIClient {
	c, err := client.NewWeatherAPIClient(cfg.APIURL, 10*time.Second)
	if err != nil {
		t.Fatalf("NewWeatherAPIClient() error = %v", err)
	}
	return c
}

// SetupIntegrationRefresher creates a refresher against the live API that fires
// immediately. It is stopped when the test ends.
func SetupIntegrationRefresher(t *testing.T, cfg IntegrationTestConfig) *refresh.Refresher {
	logger, err := observability.NewLogger("weather-widget-integration")
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	r := refresh.New(SetupIntegrationClient(t, cfg), logger, refresh.Config{Immediate: true, SkipOverlapping: true})
	t.Cleanup(r.Stop)
	return r
}

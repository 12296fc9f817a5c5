package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultWeatherAPIURL = "https://api.weatherapi.com/v1/forecast.json"
	DefaultInterval      = 60 * time.Second
)

// Config holds widget and service configuration loaded from YAML and env.
type Config struct {
	ServerPort string

	WeatherAPIURL     string
	WeatherAPITimeout time.Duration // 0 leaves the transport default in place

	// menus.clock.weather.*
	WeatherKey      string
	WeatherInterval time.Duration
	WeatherLocation string
	WeatherUnit     string // "imperial" or "metric"
	SkipOverlapping bool
	Immediate       bool // first tick on arm instead of after one interval
	HourlyCount     int

	RateLimitRPS   int
	RateLimitBurst int

	ShutdownTimeout               time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration

	HealthWindow     time.Duration
	HealthFailurePct int

	LocationMaxLength int
}

// flexDuration keeps the raw scalar so both "60s" and bare milliseconds (60000) decode.
type flexDuration string

func (d *flexDuration) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", n.Line)
	}
	*d = flexDuration(n.Value)
	return nil
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	WeatherAPI struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"weather_api"`

	Menus struct {
		Clock struct {
			Weather struct {
				Key             string       `yaml:"key"`
				Interval        flexDuration `yaml:"interval"`
				Location        string       `yaml:"location"`
				Unit            string       `yaml:"unit"`
				SkipOverlapping bool         `yaml:"skip_overlapping"`
				Immediate       *bool        `yaml:"immediate"`
				HourlyCount     int          `yaml:"hourly_count"`
			} `yaml:"weather"`
		} `yaml:"clock"`
	} `yaml:"menus"`

	Reliability struct {
		RateLimitRPS   int `yaml:"rate_limit_rps"`
		RateLimitBurst int `yaml:"rate_limit_burst"`
	} `yaml:"reliability"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`

	Health struct {
		Window     string `yaml:"window"`
		FailurePct int    `yaml:"failure_pct"`
	} `yaml:"health"`

	Validation struct {
		LocationMaxLength int `yaml:"location_max_length"`
	} `yaml:"validation"`
}

type secretsFile struct {
	WeatherAPIKey string `yaml:"weather_api_key"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) under the
// working directory. See LoadDir.
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	return LoadDir(cwd)
}

// LoadDir reads root/config/{ENV_NAME}.yaml and root/config/secrets.yaml.
// The API key comes from WEATHER_API_KEY, then menus.clock.weather.key, then the
// secrets file. An empty key is allowed; the API answers with an error payload.
func LoadDir(root string) (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	configPath := filepath.Join(root, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}

	cfg.ServerPort = fc.Server.Port
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	w := fc.Menus.Clock.Weather
	cfg.WeatherKey = os.Getenv("WEATHER_API_KEY")
	if cfg.WeatherKey == "" {
		cfg.WeatherKey = strings.TrimSpace(w.Key)
	}
	if cfg.WeatherKey == "" {
		secretsPath := filepath.Join(root, "config", "secrets.yaml")
		secretsData, err := os.ReadFile(secretsPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read secrets file: %w", err)
			}
		} else {
			var sec secretsFile
			if err := yaml.Unmarshal(secretsData, &sec); err != nil {
				return nil, fmt.Errorf("parse secrets file: %w", err)
			}
			cfg.WeatherKey = sec.WeatherAPIKey
		}
	}

	cfg.WeatherInterval = parseInterval(string(w.Interval), DefaultInterval)
	cfg.WeatherLocation = w.Location
	if v := os.Getenv("WEATHER_LOCATION"); v != "" {
		cfg.WeatherLocation = v
	}
	cfg.WeatherUnit = strings.TrimSpace(strings.ToLower(w.Unit))
	if cfg.WeatherUnit == "" {
		cfg.WeatherUnit = "imperial"
	}
	cfg.SkipOverlapping = w.SkipOverlapping
	cfg.Immediate = true
	if w.Immediate != nil {
		cfg.Immediate = *w.Immediate
	}
	cfg.HourlyCount = w.HourlyCount
	if cfg.HourlyCount <= 0 {
		cfg.HourlyCount = 4
	}

	cfg.WeatherAPIURL = strings.TrimSpace(os.Getenv("WEATHER_API_URL"))
	if cfg.WeatherAPIURL == "" {
		cfg.WeatherAPIURL = strings.TrimSpace(fc.WeatherAPI.URL)
	}
	if cfg.WeatherAPIURL == "" {
		cfg.WeatherAPIURL = DefaultWeatherAPIURL
	}
	cfg.WeatherAPITimeout = parseDurationOrZero(fc.WeatherAPI.Timeout, 0)

	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 20
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 40
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 10*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 5*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	cfg.HealthWindow = parseDuration(fc.Health.Window, 10*time.Minute)
	cfg.HealthFailurePct = fc.Health.FailurePct
	if cfg.HealthFailurePct <= 0 {
		cfg.HealthFailurePct = 50
	}

	cfg.LocationMaxLength = fc.Validation.LocationMaxLength
	if cfg.LocationMaxLength <= 0 {
		cfg.LocationMaxLength = 100
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseInterval parses a poll interval. Bare integers are milliseconds; anything
// else goes through time.ParseDuration. Empty, invalid or non-positive values
// fall back to defaultVal.
func parseInterval(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		if ms <= 0 {
			return defaultVal
		}
		return time.Duration(ms) * time.Millisecond
	}
	return parseDuration(s, defaultVal)
}

// ParseInterval is parseInterval with no fallback: it reports invalid input.
// Used by the options endpoint where a bad value must be rejected.
func ParseInterval(s string) (time.Duration, error) {
	d := parseInterval(s, 0)
	if d <= 0 {
		return 0, fmt.Errorf("interval %q must be a positive duration or millisecond count", s)
	}
	return d, nil
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Returns zero or negative durations as-is (caller should handle fallback).
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load validation of configuration values.
func validate(cfg *Config) error {
	if cfg.WeatherAPITimeout < 0 {
		return fmt.Errorf("weather_api.timeout must not be negative")
	}
	switch cfg.WeatherUnit {
	case "imperial", "metric":
		// valid
	default:
		return fmt.Errorf("menus.clock.weather.unit must be imperial or metric, got %q", cfg.WeatherUnit)
	}
	if cfg.HealthFailurePct > 100 {
		return fmt.Errorf("health.failure_pct must be <= 100, got %d", cfg.HealthFailurePct)
	}
	return nil
}

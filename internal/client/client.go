package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kjstillabower/weather-widget/internal/models"
	"github.com/kjstillabower/weather-widget/internal/observability"
)

// ForecastClient fetches and decodes one forecast for a key and location.
type ForecastClient interface {
	Forecast(ctx context.Context, key, location string) (models.Weather, error)
}

var (
	ErrTransport       = errors.New("weather transport failure")
	ErrUnexpectedShape = errors.New("unexpected weather response shape")
	ErrDecode          = errors.New("decode weather response")
	ErrAPI             = errors.New("weather api error")
	ErrInvalidURL      = errors.New("invalid weather API URL")
)

// maxBodyBytes bounds a single response; a one-day forecast is a few tens of KB.
const maxBodyBytes = 4 << 20

// APIError is the logical failure payload: {"error":{"code":1006,"message":"..."}}.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("weather api error %d", e.Code)
	}
	return fmt.Sprintf("weather api error %d: %s", e.Code, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrAPI
}

// WeatherAPIClient talks to the weatherapi.com forecast endpoint.
type WeatherAPIClient struct {
	baseURL string
	client  *http.Client
}

// NewWeatherAPIClient returns a client for baseURL. A zero timeout leaves the
// transport's own behaviour in place.
func NewWeatherAPIClient(baseURL string, timeout time.Duration) (*WeatherAPIClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	return &WeatherAPIClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// ForecastURL builds the request URL. Spaces in location become %20; nothing else
// in key or location is escaped.
func ForecastURL(baseURL, key, location string) string {
	return baseURL + "?key=" + key +
		"&q=" + strings.ReplaceAll(location, " ", "%20") +
		"&days=1&aqi=no&alerts=no"
}

// Forecast performs one GET and decodes the body. The HTTP status is not
// inspected: weatherapi.com reports failures in the body.
func (c *WeatherAPIClient) Forecast(ctx context.Context, key, location string) (models.Weather, error) {
	body, err := c.fetch(ctx, ForecastURL(c.baseURL, key, location))
	if err != nil {
		return models.Weather{}, err
	}
	return Decode(body)
}

func (c *WeatherAPIClient) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		observability.WeatherAPIDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("%w: build request: %v", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	if corrID := CorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		observability.WeatherAPIDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	observability.WeatherAPIDuration.WithLabelValues(statusLabel(resp.StatusCode)).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %w", ErrTransport, err)
	}
	return body, nil
}

// Decode classifies and decodes a forecast body:
//   - not JSON, JSON null, or JSON that does not fit the Weather shape: ErrDecode
//   - JSON that is not an object (array, string, number, boolean): ErrUnexpectedShape
//   - an object with a top-level "error" key: *APIError (matches ErrAPI)
//
// Otherwise the decoded value is returned as is.
func Decode(body []byte) (models.Weather, error) {
	if !json.Valid(body) {
		var probe interface{}
		err := json.Unmarshal(body, &probe)
		return models.Weather{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	trimmed := bytes.TrimSpace(body)
	if bytes.Equal(trimmed, []byte("null")) {
		return models.Weather{}, fmt.Errorf("%w: null body", ErrDecode)
	}
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return models.Weather{}, fmt.Errorf("%w: %s", ErrUnexpectedShape, jsonKind(trimmed))
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &top); err != nil {
		return models.Weather{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if raw, ok := top["error"]; ok {
		apiErr := &APIError{}
		// The payload shape is best effort; the key alone marks the failure.
		_ = json.Unmarshal(raw, apiErr)
		return models.Weather{}, apiErr
	}

	var w models.Weather
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return models.Weather{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return w, nil
}

func jsonKind(b []byte) string {
	if len(b) == 0 {
		return "empty"
	}
	switch b[0] {
	case '[':
		return "array"
	case '"':
		return "string"
	case 't', 'f':
		return "boolean"
	default:
		return "number"
	}
}

type correlationIDKey struct{}

// WithCorrelationID attaches id to ctx; Forecast sends it as X-Correlation-ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationID returns the id set by WithCorrelationID, or "".
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return id
	}
	return ""
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}

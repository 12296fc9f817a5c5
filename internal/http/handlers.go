package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-widget/internal/config"
	"github.com/kjstillabower/weather-widget/internal/lifecycle"
	"github.com/kjstillabower/weather-widget/internal/models"
	"github.com/kjstillabower/weather-widget/internal/observable"
	"github.com/kjstillabower/weather-widget/internal/options"
	"github.com/kjstillabower/weather-widget/internal/traffic"
	"github.com/kjstillabower/weather-widget/internal/validation"
)

// SentinelHeader is set to "true" on GET /weather while the cell holds the placeholder.
const SentinelHeader = "X-Weather-Sentinel"

// DefaultKeepalive is the event-stream comment interval.
const DefaultKeepalive = 30 * time.Second

// HealthConfig holds thresholds for the health handler.
type HealthConfig struct {
	Window     time.Duration
	FailurePct int
	// Armed, when set, reports whether a refresh schedule is live.
	Armed func() bool
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	cell              *observable.Variable[models.Weather]
	opts              *options.Options
	hub               *Hub
	healthConfig      *HealthConfig
	logger            *zap.Logger
	locationMaxLength int
	keepalive         time.Duration

	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler.
func NewHandler(
	cell *observable.Variable[models.Weather],
	opts *options.Options,
	hub *Hub,
	healthConfig *HealthConfig,
	logger *zap.Logger,
	locationMaxLength int,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		cell:              cell,
		opts:              opts,
		hub:               hub,
		healthConfig:      healthConfig,
		logger:            logger,
		locationMaxLength: locationMaxLength,
		keepalive:         DefaultKeepalive,
	}
}

// SetKeepalive overrides the event-stream keepalive interval.
func (h *Handler) SetKeepalive(d time.Duration) {
	if d > 0 {
		h.keepalive = d
	}
}

// GetWeather handles GET /weather: the current cell value as served by the API.
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	current := h.cell.Get()
	if models.IsDefault(current) {
		w.Header().Set(SentinelHeader, "true")
	}
	writeJSON(w, http.StatusOK, current)
}

// StreamWeather handles GET /weather/events. The stream opens with a "connected"
// event and a snapshot of the cell, then carries one "weather" event per write.
func (h *Handler) StreamWeather(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	// The server write timeout would cut the stream.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	clientID := r.Header.Get("X-Client-Id")
	if clientID == "" {
		clientID = uuid.NewString()
	}
	logger := loggerFrom(r, h.logger).With(zap.String("client_id", clientID))

	events := h.hub.Add(clientID)
	defer h.hub.Remove(clientID, events)

	w.WriteHeader(http.StatusOK)
	initial := []Event{
		{ID: h.hub.NextID(), Type: "connected", Data: map[string]string{"clientId": clientID}},
		NewWeatherEvent(h.cell.Get()),
	}
	initial[1].ID = h.hub.NextID()
	for _, e := range initial {
		if err := writeEvent(w, e); err != nil {
			logger.Debug("event stream write failed", zap.Error(err))
			return
		}
	}
	if err := rc.Flush(); err != nil {
		logger.Warn("event stream flush unsupported", zap.Error(err))
		return
	}

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(w, e); err != nil {
				logger.Debug("event stream write failed", zap.Error(err))
				return
			}
			_ = rc.Flush()
		case <-keepalive.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				logger.Debug("event stream keepalive failed", zap.Error(err))
				return
			}
			_ = rc.Flush()
		}
	}
}

// optionsResponse is the public view of the option set. The key is never echoed.
type optionsResponse struct {
	KeySet     bool     `json:"keySet"`
	Interval   string   `json:"interval"`
	IntervalMs int64    `json:"intervalMs"`
	Location   string   `json:"location"`
	Unit       string   `json:"unit"`
	Changed    []string `json:"changed,omitempty"`
}

func newOptionsResponse(s options.Snapshot, changed []string) optionsResponse {
	return optionsResponse{
		KeySet:     s.Key != "",
		Interval:   s.Interval.String(),
		IntervalMs: s.Interval.Milliseconds(),
		Location:   s.Location,
		Unit:       s.Unit,
		Changed:    changed,
	}
}

// GetOptions handles GET /options.
func (h *Handler) GetOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newOptionsResponse(h.opts.Snapshot(), nil))
}

// optionsPatch is the PATCH /options body. Absent fields are left unchanged.
// interval accepts a Go duration string or a millisecond count.
type optionsPatch struct {
	Key      *string         `json:"key"`
	Interval json.RawMessage `json:"interval"`
	Location *string         `json:"location"`
	Unit     *string         `json:"unit"`
}

// PatchOptions handles PATCH /options. Changes to key, interval or location
// re-arm the refresh schedule.
func (h *Handler) PatchOptions(w http.ResponseWriter, r *http.Request) {
	var patch optionsPatch
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "request body must be a JSON object of options")
		return
	}

	next := h.opts.Snapshot()
	if patch.Key != nil {
		next.Key = *patch.Key
	}
	if len(patch.Interval) > 0 {
		d, err := parseIntervalJSON(patch.Interval)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "INVALID_INTERVAL", err.Error())
			return
		}
		next.Interval = d
	}
	if patch.Location != nil {
		loc, err := validation.ValidateLocation(*patch.Location, h.locationMaxLength)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "INVALID_LOCATION", err.Error())
			return
		}
		next.Location = loc
	}
	if patch.Unit != nil {
		unit, err := validation.ValidateUnit(*patch.Unit)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "INVALID_UNIT", err.Error())
			return
		}
		next.Unit = unit
	}

	changed := h.opts.Set(next)
	if len(changed) > 0 {
		loggerFrom(r, h.logger).Info("options updated", zap.Strings("changed", changed))
	}
	writeJSON(w, http.StatusOK, newOptionsResponse(h.opts.Snapshot(), changed))
}

var errIntervalType = errors.New("interval must be a duration string or a millisecond count")

func parseIntervalJSON(raw json.RawMessage) (time.Duration, error) {
	raw = bytes.TrimSpace(raw)
	var s string
	switch {
	case len(raw) > 0 && raw[0] == '"':
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, errIntervalType
		}
	case len(raw) > 0 && (raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9')):
		s = string(raw)
		if _, err := strconv.ParseInt(s, 10, 64); err != nil {
			return 0, errIntervalType
		}
	default:
		return 0, errIntervalType
	}
	return config.ParseInterval(s)
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := map[string]string{"weatherApi": "healthy", "refresh": "armed"}
	if result.reason == "failure_rate_breach" {
		checks["weatherApi"] = "unhealthy"
	}
	if h.healthConfig != nil && h.healthConfig.Armed != nil && !h.healthConfig.Armed() {
		checks["refresh"] = "not_armed"
	}

	resp := map[string]interface{}{
		"status":      result.status,
		"service":     "weather-widget",
		"version":     "dev",
		"checks":      checks,
		"placeholder": models.IsDefault(h.cell.Get()),
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}
	if last := traffic.LastSuccess(); !last.IsZero() {
		resp["lastSuccess"] = last.UTC().Format(time.RFC3339)
	}
	writeJSON(w, result.statusCode, resp)
}

// computeHealthStatus evaluates conditions in priority order:
// shutting-down > starting > not armed > failure rate > healthy.
func (h *Handler) computeHealthStatus() healthResult {
	switch lifecycle.Current() {
	case lifecycle.ShuttingDown:
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	case lifecycle.Starting:
		return healthResult{"starting", http.StatusServiceUnavailable, "startup"}
	}
	if h.healthConfig == nil {
		return healthResult{"healthy", http.StatusOK, ""}
	}
	if h.healthConfig.Armed != nil && !h.healthConfig.Armed() {
		return healthResult{"degraded", http.StatusServiceUnavailable, "not_armed"}
	}
	if h.healthConfig.Window > 0 && h.healthConfig.FailurePct > 0 {
		failures, total := traffic.FailureRate(h.healthConfig.Window)
		if total > 0 && float64(failures)*100/float64(total) >= float64(h.healthConfig.FailurePct) {
			return healthResult{"degraded", http.StatusServiceUnavailable, "failure_rate_breach"}
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": correlationIDFrom(r),
		},
	})
}

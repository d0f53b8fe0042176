package analytics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/linuxapphub/apphub-analytics/pkg/httputil"
	"github.com/linuxapphub/apphub-analytics/pkg/middleware"
	"github.com/linuxapphub/apphub-analytics/pkg/observability"
)

// Handlers exposes the analytics service over HTTP.
type Handlers struct {
	service     *Service
	limiter     *middleware.RateLimiter
	logger      *observability.Logger
	metrics     *observability.Metrics
	otelMetrics *observability.OTelMetrics
}

// NewHandlers creates the HTTP handlers. metrics and otelMetrics may be nil
// when the corresponding exporter is disabled.
func NewHandlers(service *Service, limiter *middleware.RateLimiter, logger *observability.Logger, metrics *observability.Metrics, otelMetrics *observability.OTelMetrics) *Handlers {
	return &Handlers{
		service:     service,
		limiter:     limiter,
		logger:      logger,
		metrics:     metrics,
		otelMetrics: otelMetrics,
	}
}

// RegisterRoutes mounts the analytics endpoint on the router.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/analytics", h.HandleAnalytics).
		Methods(http.MethodGet, http.MethodPost, http.MethodOptions)
}

type trackRequest struct {
	AppName    string     `json:"appName"`
	ActionType ActionType `json:"actionType"`
	Timestamp  int64      `json:"timestamp,omitempty"`
}

type trackResponse struct {
	Success bool          `json:"success"`
	Tracked *TrackedEvent `json:"tracked"`
}

type popularResponse struct {
	Success     bool         `json:"success"`
	Timeframe   string       `json:"timeframe"`
	PopularApps []PopularApp `json:"popular_apps"`
	TotalFound  int          `json:"total_found"`
	GeneratedAt time.Time    `json:"generated_at"`
}

type statsResponse struct {
	Success bool           `json:"success"`
	Stats   *StatsSnapshot `json:"stats"`
}

// HandleAnalytics dispatches on the action query parameter. The endpoint is
// CORS-open: it serves a public static site from arbitrary origins.
func (h *Handlers) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	switch r.URL.Query().Get("action") {
	case "track":
		h.handleTrack(w, r)
	case "popular":
		h.handlePopular(w, r)
	case "stats":
		h.handleStats(w, r)
	default:
		httputil.WriteErrorMessage(w, http.StatusBadRequest, "Invalid action")
	}
}

func (h *Handlers) handleTrack(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.WriteMethodNotAllowed(w)
		return
	}

	clientIP := middleware.ClientIP(r)
	allowed, err := h.limiter.Allow(r.Context(), clientIP)
	if err != nil {
		h.logger.WithError(err).Error("rate limit check failed")
		httputil.WriteInternalError(w, err)
		return
	}
	if !allowed {
		if h.metrics != nil {
			h.metrics.RateLimitedTotal.Inc()
		}
		h.logger.WithField("client_ip", clientIP).Warn("rate limit exceeded")
		httputil.WriteTooManyRequests(w, "Rate limit exceeded")
		return
	}

	var req trackRequest
	if err := httputil.DecodeJSONBody(r, &req); err != nil {
		if h.metrics != nil {
			h.metrics.EventsRejectedTotal.WithLabelValues("bad_body").Inc()
		}
		httputil.WriteValidationError(w, err.Error())
		return
	}

	tracked, err := h.service.Track(r.Context(), Event{
		AppName:    req.AppName,
		ActionType: req.ActionType,
		Timestamp:  req.Timestamp,
	})
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			if h.metrics != nil {
				h.metrics.EventsRejectedTotal.WithLabelValues("validation").Inc()
			}
			httputil.WriteValidationError(w, verr.Error())
			return
		}
		h.logger.WithError(err).Error("failed to track event")
		httputil.WriteInternalError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.EventsTrackedTotal.WithLabelValues(string(tracked.Action)).Inc()
	}
	if h.otelMetrics != nil {
		h.otelMetrics.RecordEvent(r.Context(), string(tracked.Action))
	}
	httputil.WriteSuccess(w, trackResponse{Success: true, Tracked: tracked})
}

func (h *Handlers) handlePopular(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.WriteMethodNotAllowed(w)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	timeframe := r.URL.Query().Get("timeframe")

	result, err := h.service.Popular(r.Context(), limit, timeframe)
	if err != nil {
		// Popular never returns an error today; keep the 500 path anyway
		h.logger.WithError(err).Error("failed to rank popular apps")
		httputil.WriteInternalError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.PopularQueriesTotal.WithLabelValues(result.Timeframe).Inc()
	}
	if h.otelMetrics != nil {
		h.otelMetrics.RecordPopularQuery(r.Context(), result.Timeframe)
	}
	httputil.WriteSuccess(w, popularResponse{
		Success:     true,
		Timeframe:   result.Timeframe,
		PopularApps: result.Apps,
		TotalFound:  result.TotalFound,
		GeneratedAt: result.GeneratedAt.UTC(),
	})
}

func (h *Handlers) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.WriteMethodNotAllowed(w)
		return
	}

	snapshot, err := h.service.Stats(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("failed to build stats snapshot")
		httputil.WriteInternalError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.StatsQueriesTotal.Inc()
		h.metrics.UniqueAppsTotal.Set(float64(snapshot.Global.UniqueApps))
		h.metrics.TotalInteractionsTotal.Set(float64(snapshot.Global.TotalInteractions))
	}
	if h.otelMetrics != nil {
		h.otelMetrics.RecordStatsQuery(r.Context())
	}
	httputil.WriteSuccess(w, statsResponse{Success: true, Stats: snapshot})
}

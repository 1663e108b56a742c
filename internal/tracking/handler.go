package tracking

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ignite/engagement-tracker/internal/domain"
	"github.com/ignite/engagement-tracker/internal/pkg/httputil"
	"github.com/ignite/engagement-tracker/internal/pkg/logger"
	"github.com/ignite/engagement-tracker/internal/pkg/metrics"
	"github.com/ignite/engagement-tracker/internal/service/engagement"
)

const healthTimeout = 2 * time.Second

// Options configures a Handler.
type Options struct {
	// Metrics receives request and tracking counters. Nil creates a private set.
	Metrics *metrics.Metrics
	// ExposeErrorDetails echoes internal error text in 500 bodies.
	ExposeErrorDetails bool
	// AllowedOrigins for CORS. Empty allows every origin.
	AllowedOrigins []string
	// BaseURL is the public root shown on the dashboard.
	BaseURL string
}

type Handler struct {
	svc           *engagement.Service
	metrics       *metrics.Metrics
	exposeDetails bool
	origins       []string
	baseURL       string
}

func NewHandler(svc *engagement.Service, opts Options) *Handler {
	m := opts.Metrics
	if m == nil {
		m = metrics.NewMetrics("engagement", nil)
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Handler{
		svc:           svc,
		metrics:       m,
		exposeDetails: opts.ExposeErrorDetails,
		origins:       origins,
		baseURL:       opts.BaseURL,
	}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/", h.HandleDashboard)
	r.Post("/register", h.HandleRegister)
	r.Post("/track/register", h.HandleRegister)
	r.Get("/track/{id}/open.gif", h.HandleOpen)
	r.Get("/track/{id}/click", h.HandleClick)
	r.Get("/stats", h.HandleStats)
	r.Get("/contacts/filter", h.HandleFilter)
	r.Get("/health", h.HandleHealth)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	return r
}

type registerResponse struct {
	TrackingID string `json:"trackingId"`
	Message    string `json:"message"`
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in engagement.RegisterInput
	if !httputil.Decode(w, r, &in) {
		h.metrics.Registrations.WithLabelValues("invalid").Inc()
		return
	}

	rec, err := h.svc.Register(r.Context(), in)
	if err != nil {
		var verr *engagement.ValidationError
		if errors.As(err, &verr) {
			h.metrics.Registrations.WithLabelValues("invalid").Inc()
		} else {
			h.metrics.Registrations.WithLabelValues("failed").Inc()
		}
		h.writeError(w, "Failed to register email", err)
		return
	}

	h.metrics.Registrations.WithLabelValues("created").Inc()
	logger.Info("contact registered", "email", in.Email, "tracking_id", rec.TrackingID)
	httputil.Created(w, registerResponse{
		TrackingID: rec.TrackingID,
		Message:    "Email registered successfully",
	})
}

// HandleOpen always answers with the pixel, whatever happened to the write.
func (h *Handler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	_ = h.track(domain.EventOpen, id, func() engagement.Outcome {
		return h.svc.RecordOpen(r.Context(), id)
	})
	servePixel(w)
}

// HandleClick redirects to the url query parameter. Only a missing url is
// reported to the client; tracking failures never change the response.
func (h *Handler) HandleClick(w http.ResponseWriter, r *http.Request) {
	dest, err := h.svc.ClickDestination(r.URL.Query().Get("url"))
	if err != nil {
		h.writeError(w, "Failed to track click", err)
		return
	}

	id := chi.URLParam(r, "id")
	_ = h.track(domain.EventClick, id, func() engagement.Outcome {
		return h.svc.RecordClick(r.Context(), id)
	})
	redirect(w, dest)
}

// redirect sends dest as the Location verbatim; relative values are not
// resolved against the tracking path.
func redirect(w http.ResponseWriter, dest string) {
	w.Header().Set("Location", dest)
	w.WriteHeader(http.StatusFound)
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		h.writeError(w, "Failed to retrieve statistics", err)
		return
	}
	httputil.OK(w, stats)
}

func (h *Handler) HandleFilter(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.FilterContacts(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		h.writeError(w, "Failed to filter contacts", err)
		return
	}
	httputil.OK(w, list)
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := h.svc.Ping(ctx); err != nil {
		logger.Warn("health check failed", "error", err)
		httputil.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	httputil.OK(w, map[string]string{"status": "ok"})
}

// track runs a tracking write and reports its outcome to logs and metrics.
// A panic in the write becomes a failed outcome so the caller can still
// serve its fixed response.
func (h *Handler) track(event domain.TrackingEventType, id string, record func() engagement.Outcome) (out engagement.Outcome) {
	defer func() {
		if p := recover(); p != nil {
			out = engagement.Outcome{TrackingID: id, Event: event, Err: fmt.Errorf("panic: %v", p)}
		}
		h.observe(out)
	}()
	return record()
}

func (h *Handler) observe(out engagement.Outcome) {
	event := string(out.Event)
	switch {
	case out.Err != nil:
		h.metrics.TrackingEvents.WithLabelValues(event, metrics.ResultFailed).Inc()
		logger.Warn("tracking write failed, response unaffected",
			"event", event, "tracking_id", out.TrackingID, "error", out.Err)
	case !out.Matched:
		h.metrics.TrackingEvents.WithLabelValues(event, metrics.ResultUnmatched).Inc()
		logger.Debug("unknown tracking id", "event", event, "tracking_id", out.TrackingID)
	default:
		h.metrics.TrackingEvents.WithLabelValues(event, metrics.ResultMatched).Inc()
		logger.Info("tracking event recorded", "event", event, "tracking_id", out.TrackingID)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, err error) {
	var verr *engagement.ValidationError
	if errors.As(err, &verr) {
		httputil.BadRequest(w, "validation_error", verr.Error())
		return
	}
	httputil.InternalError(w, message, err, h.exposeDetails)
}

package tracking

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ignite/engagement-tracker/internal/pkg/logger"
)

// requestLogger logs one line per request and observes its duration under
// the matched route pattern, so /track/{id}/open.gif is one series.
func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)

		h.metrics.RequestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(elapsed.Seconds())

		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"route", route,
			"status", status,
			"bytes", ww.BytesWritten(),
			"latency_ms", elapsed.Milliseconds(),
			"remote_ip", r.RemoteAddr,
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

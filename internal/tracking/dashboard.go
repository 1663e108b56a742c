package tracking

import (
	_ "embed"
	"html/template"
	"net/http"

	"github.com/ignite/engagement-tracker/internal/pkg/logger"
)

//go:embed dashboard.html
var dashboardHTML string

var dashboardTmpl = template.Must(template.New("dashboard").Parse(dashboardHTML))

type dashboardData struct {
	BaseURL string
}

// HandleDashboard serves a static page that reads /stats and /contacts/filter.
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTmpl.Execute(w, dashboardData{BaseURL: h.baseURL}); err != nil {
		logger.Error("dashboard render failed", "error", err)
	}
}

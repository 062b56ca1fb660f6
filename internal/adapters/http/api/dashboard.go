package api

import (
	"net/http"
)

// dashboardHandler serves the classification form.
type dashboardHandler struct {
	page []byte
}

func newDashboardHandler() *dashboardHandler {
	return &dashboardHandler{page: dashboardPage}
}

// HandleDashboard handles GET /dashboard requests. The page loads profiles
// from /profiles, posts the form to /classify and draws the result gauge.
func (h *dashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(h.page)
}

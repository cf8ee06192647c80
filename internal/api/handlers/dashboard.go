package handlers

import (
	"net/http"

	"github.com/dom/progress-tracker/internal/api/middleware"
	"github.com/dom/progress-tracker/internal/service"
)

type DashboardHandler struct {
	progress *service.ProgressService
}

func NewDashboardHandler(progress *service.ProgressService) *DashboardHandler {
	return &DashboardHandler{progress: progress}
}

type DashboardResponse struct {
	Success bool `json:"success"`
	*service.Dashboard
}

func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	sc, _ := middleware.GetSession(r.Context())
	userID, ok := sc.UserID()
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	dashboard, err := h.progress.Dashboard(r.Context(), userID, sc.Username())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, DashboardResponse{Success: true, Dashboard: dashboard})
}

package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/garnizeh/built/pkg/models"
)

func activityProject(a *models.ActivityLog) *uuid.UUID { return a.ProjectID }

// GetActivityLog serves GET /activity_log/{id}. Activity logs are never
// created, changed or removed over HTTP.
func (h *Handlers) GetActivityLog(w http.ResponseWriter, r *http.Request) {
	getOne(h, w, r, "activitylog", activityProject)
}

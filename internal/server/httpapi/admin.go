package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/ojtauth/internal/api"
	"github.com/dmitrijs2005/ojtauth/internal/models"
	"github.com/dmitrijs2005/ojtauth/internal/server/services"
)

func (h *handler) provision(w http.ResponseWriter, r *http.Request) {
	var req api.ProvisionRequest
	if !decode(w, r, &req) {
		return
	}
	user, err := h.admin.Provision(r.Context(), UserFromContext(r.Context()), services.ProvisionInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		Role:        req.Role,
		Institution: req.Institution,
		Batch:       req.Batch,
		Term:        req.Term,
		InternID:    req.InternID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, api.UserResponse{User: user})
}

func (h *handler) listLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.admin.ListLogs(r.Context(), UserFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if logs == nil {
		logs = []*models.SystemLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

func (h *handler) archiveLogs(w http.ResponseWriter, r *http.Request) {
	res, err := h.admin.ArchiveLogs(r.Context(), UserFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, api.ArchiveResponse{Key: res.Key, URL: res.URL, Count: res.Count})
}

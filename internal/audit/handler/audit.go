package handler

import (
	"net/http"
	"strconv"

	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/internal/audit/repository"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/httputil"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/logger"
)

// AuditHandler exposes the activity log for review screens
type AuditHandler struct {
	repo   *repository.AuditRepository
	logger *logger.Logger
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(repo *repository.AuditRepository, log *logger.Logger) *AuditHandler {
	return &AuditHandler{
		repo:   repo,
		logger: log,
	}
}

// List lists activity log entries with filters
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	params := repository.ListParams{
		Page:    1,
		PerPage: 20,
	}

	if page, _ := strconv.Atoi(r.URL.Query().Get("page")); page > 0 {
		params.Page = page
	}
	if perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page")); perPage > 0 && perPage <= 100 {
		params.PerPage = perPage
	}
	if actorID, err := strconv.ParseInt(r.URL.Query().Get("actor_id"), 10, 64); err == nil && actorID > 0 {
		params.ActorID = &actorID
	}
	if action := r.URL.Query().Get("action"); action != "" {
		params.Action = &action
	}
	if entityType := r.URL.Query().Get("entity_type"); entityType != "" {
		params.EntityType = &entityType
	}
	if entityID := r.URL.Query().Get("entity_id"); entityID != "" {
		params.EntityID = &entityID
	}

	entries, total, err := h.repo.List(r.Context(), params)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	totalPages := int(total) / params.PerPage
	if int(total)%params.PerPage > 0 {
		totalPages++
	}

	httputil.JSONWithMeta(w, http.StatusOK, entries, &httputil.Meta{
		Page:       params.Page,
		PerPage:    params.PerPage,
		Total:      total,
		TotalPages: totalPages,
	})
}

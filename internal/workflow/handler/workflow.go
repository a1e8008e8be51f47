package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/internal/workflow/domain"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/internal/workflow/service"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/errors"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/httputil"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/logger"
)

// WorkflowHandler handles certificate workflow endpoints
type WorkflowHandler struct {
	service *service.WorkflowService
	logger  *logger.Logger
}

// NewWorkflowHandler creates a new workflow handler
func NewWorkflowHandler(svc *service.WorkflowService, log *logger.Logger) *WorkflowHandler {
	return &WorkflowHandler{
		service: svc,
		logger:  log,
	}
}

// TransitionRequest is the request body for applying a workflow transition
type TransitionRequest struct {
	CertificateType string `json:"certificate_type" validate:"required,oneof=birth marriage death"`
	CertificateID   int64  `json:"certificate_id" validate:"required,gt=0"`
	TransitionType  string `json:"transition_type" validate:"required"`
	Notes           string `json:"notes" validate:"max=2000"`
}

// Transition applies a workflow transition to a certificate
func (h *WorkflowHandler) Transition(w http.ResponseWriter, r *http.Request) {
	var req TransitionRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	record, err := h.service.ApplyTransition(r.Context(), domain.TransitionRequest{
		CertificateType: domain.CertificateType(req.CertificateType),
		CertificateID:   req.CertificateID,
		TransitionType:  domain.TransitionType(req.TransitionType),
		Notes:           req.Notes,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, record)
}

// StateResponse wraps the workflow state of a certificate. A certificate
// that never entered the workflow reports the pseudo-state "none".
type StateResponse struct {
	CertificateType string                `json:"certificate_type"`
	CertificateID   int64                 `json:"certificate_id"`
	CurrentState    string                `json:"current_state"`
	State           *domain.WorkflowState `json:"state,omitempty"`
}

// GetState returns the current workflow state of a certificate
func (h *WorkflowHandler) GetState(w http.ResponseWriter, r *http.Request) {
	certType, certID, err := certificateRef(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	state, err := h.service.GetState(r.Context(), certType, certID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	resp := StateResponse{
		CertificateType: string(certType),
		CertificateID:   certID,
		CurrentState:    "none",
	}
	if state != nil {
		resp.CurrentState = string(state.CurrentState)
		resp.State = state
	}

	httputil.JSON(w, http.StatusOK, resp)
}

// GetHistory returns the transition history of a certificate
func (h *WorkflowHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	certType, certID, err := certificateRef(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	history, err := h.service.GetHistory(r.Context(), certType, certID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, history)
}

func certificateRef(r *http.Request) (domain.CertificateType, int64, error) {
	certType := domain.CertificateType(chi.URLParam(r, "type"))
	if !certType.Valid() {
		return "", 0, errors.Validation(map[string]string{
			"certificate_type": "must be one of: birth, marriage, death",
		})
	}

	certID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || certID <= 0 {
		return "", 0, errors.Validation(map[string]string{
			"certificate_id": "must be a positive integer",
		})
	}

	return certType, certID, nil
}

package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Esha-Sharmaa/noting-backend/internal/service"
	"github.com/Esha-Sharmaa/noting-backend/pkg/httputil"
	"github.com/Esha-Sharmaa/noting-backend/pkg/middleware"
	"github.com/Esha-Sharmaa/noting-backend/pkg/validator"
)

// LabelHandler handles label CRUD.
type LabelHandler struct {
	service *service.LabelService
	logger  *slog.Logger
}

// NewLabelHandler creates a new label HTTP handler.
func NewLabelHandler(svc *service.LabelService, logger *slog.Logger) *LabelHandler {
	return &LabelHandler{service: svc, logger: logger}
}

// CreateLabelRequest is the JSON request body for creating a label.
type CreateLabelRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

// List handles GET /api/v1/labels
func (h *LabelHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	labels, err := h.service.ListLabels(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, labels, "labels fetched successfully")
}

// Create handles POST /api/v1/labels/create-label
func (h *LabelHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateLabelRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	label, err := h.service.CreateLabel(r.Context(), userID, req.Name)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusCreated, label, "label created successfully")
}

// Delete handles DELETE /api/v1/labels/delete-label/{id}
func (h *LabelHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	labelID := chi.URLParam(r, "id")

	if err := h.service.DeleteLabel(r.Context(), userID, labelID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, map[string]string{"id": labelID}, "label deleted successfully")
}

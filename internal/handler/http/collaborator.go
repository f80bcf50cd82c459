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

// CollaboratorHandler handles note sharing grants.
type CollaboratorHandler struct {
	service *service.CollaboratorService
	logger  *slog.Logger
}

// NewCollaboratorHandler creates a new collaborator HTTP handler.
func NewCollaboratorHandler(svc *service.CollaboratorService, logger *slog.Logger) *CollaboratorHandler {
	return &CollaboratorHandler{service: svc, logger: logger}
}

// AddCollaboratorRequest is the JSON request body for granting note access.
type AddCollaboratorRequest struct {
	NoteID     string `json:"noteId" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Permission string `json:"permission" validate:"omitempty,oneof=view edit"`
}

// Add handles POST /api/v1/collaborators/add
func (h *CollaboratorHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req AddCollaboratorRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	collab, err := h.service.AddCollaborator(r.Context(), userID, service.AddCollaboratorInput{
		NoteID:     req.NoteID,
		Email:      req.Email,
		Permission: req.Permission,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusCreated, collab, "collaborator added successfully")
}

// Remove handles DELETE /api/v1/collaborators/delete/{id}
func (h *CollaboratorHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	collabID := chi.URLParam(r, "id")

	if err := h.service.RemoveCollaborator(r.Context(), userID, collabID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, map[string]string{"id": collabID}, "collaborator removed successfully")
}

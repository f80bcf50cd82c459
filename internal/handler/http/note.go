package http

import (
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Esha-Sharmaa/noting-backend/internal/service"
	"github.com/Esha-Sharmaa/noting-backend/internal/storage"
	apperrors "github.com/Esha-Sharmaa/noting-backend/pkg/errors"
	"github.com/Esha-Sharmaa/noting-backend/pkg/httputil"
	"github.com/Esha-Sharmaa/noting-backend/pkg/middleware"
	"github.com/Esha-Sharmaa/noting-backend/pkg/validator"
)

// maxNoteImageSize caps note image uploads at 10MB.
const maxNoteImageSize = 10 << 20

// NoteHandler handles note CRUD, flag transitions, and label links.
type NoteHandler struct {
	service *service.NoteService
	logger  *slog.Logger
}

// NewNoteHandler creates a new note HTTP handler.
func NewNoteHandler(svc *service.NoteService, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// NoteRequest is the JSON request body for creating or editing a note.
// Image notes use multipart form data instead, with the same field names
// plus a "noteImage" file part.
type NoteRequest struct {
	Title     string   `json:"title" validate:"required,min=1,max=255"`
	Content   string   `json:"content"`
	Type      string   `json:"type" validate:"omitempty,oneof=text image list"`
	ListItems []string `json:"listItems"`
}

// LabelLinkRequest is the JSON request body for attaching a label to a note.
type LabelLinkRequest struct {
	NoteID  string `json:"noteId" validate:"required"`
	LabelID string `json:"labelId" validate:"required"`
}

// decodeNoteInput reads a note payload from either a JSON or a multipart
// request. Multipart is required for image notes so the file rides along
// with the fields.
func (h *NoteHandler) decodeNoteInput(w http.ResponseWriter, r *http.Request) (*service.NoteInput, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if strings.HasPrefix(mediaType, "multipart/") {
		if err := r.ParseMultipartForm(maxNoteImageSize); err != nil {
			return nil, apperrors.InvalidInput("invalid multipart form: " + err.Error())
		}

		input := &service.NoteInput{
			Title:     r.FormValue("title"),
			Content:   r.FormValue("content"),
			Type:      r.FormValue("type"),
			ListItems: r.PostForm["listItems"],
		}

		if file, header, err := r.FormFile("noteImage"); err == nil {
			defer file.Close()
			input.Image = &storage.UploadInput{
				Key:         header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Size:        header.Size,
				Data:        file,
			}
			return input, nil
		}
		return input, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req NoteRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		return nil, err
	}
	return &service.NoteInput{
		Title:     req.Title,
		Content:   req.Content,
		Type:      req.Type,
		ListItems: req.ListItems,
	}, nil
}

// --- Handlers ---

// Create handles POST /api/v1/notes/add
func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	input, err := h.decodeNoteInput(w, r)
	if err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	note, err := h.service.CreateNote(r.Context(), userID, *input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusCreated, note, "note created successfully")
}

// List handles GET /api/v1/notes
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	notes, err := h.service.ListNotes(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, notes, "notes fetched successfully")
}

// ListShared handles GET /api/v1/notes/collab
func (h *NoteHandler) ListShared(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	notes, err := h.service.ListSharedNotes(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, notes, "shared notes fetched successfully")
}

// Get handles GET /api/v1/notes/{id}
func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	noteID := chi.URLParam(r, "id")

	detail, err := h.service.GetNote(r.Context(), userID, noteID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, detail, "note fetched successfully")
}

// Edit handles PUT /api/v1/notes/edit/{id}
func (h *NoteHandler) Edit(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	noteID := chi.URLParam(r, "id")

	input, err := h.decodeNoteInput(w, r)
	if err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	note, err := h.service.EditNote(r.Context(), userID, noteID, *input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, note, "note updated successfully")
}

// Delete handles DELETE /api/v1/notes/delete/{id}
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	noteID := chi.URLParam(r, "id")

	if err := h.service.DeleteNote(r.Context(), userID, noteID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, map[string]string{"id": noteID}, "note deleted successfully")
}

// flagHandler adapts the single-flag transitions to HTTP.
func (h *NoteHandler) flagHandler(message string, op func(r *http.Request, userID, noteID string) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		noteID := chi.URLParam(r, "id")

		note, err := op(r, userID, noteID)
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}

		httputil.WriteSuccess(w, http.StatusOK, note, message)
	}
}

// Archive handles PATCH /api/v1/notes/archive/{id}
func (h *NoteHandler) Archive(w http.ResponseWriter, r *http.Request) {
	h.flagHandler("note archived", func(r *http.Request, userID, noteID string) (any, error) {
		return h.service.ArchiveNote(r.Context(), userID, noteID)
	})(w, r)
}

// Unarchive handles PATCH /api/v1/notes/unarchive/{id}
func (h *NoteHandler) Unarchive(w http.ResponseWriter, r *http.Request) {
	h.flagHandler("note unarchived", func(r *http.Request, userID, noteID string) (any, error) {
		return h.service.UnarchiveNote(r.Context(), userID, noteID)
	})(w, r)
}

// Trash handles PATCH /api/v1/notes/trash/{id}
func (h *NoteHandler) Trash(w http.ResponseWriter, r *http.Request) {
	h.flagHandler("note moved to trash", func(r *http.Request, userID, noteID string) (any, error) {
		return h.service.TrashNote(r.Context(), userID, noteID)
	})(w, r)
}

// Restore handles PATCH /api/v1/notes/restore-trash/{id}
func (h *NoteHandler) Restore(w http.ResponseWriter, r *http.Request) {
	h.flagHandler("note restored", func(r *http.Request, userID, noteID string) (any, error) {
		return h.service.RestoreNote(r.Context(), userID, noteID)
	})(w, r)
}

// Pin handles PATCH /api/v1/notes/pin-note/{id}
func (h *NoteHandler) Pin(w http.ResponseWriter, r *http.Request) {
	h.flagHandler("note pinned", func(r *http.Request, userID, noteID string) (any, error) {
		return h.service.PinNote(r.Context(), userID, noteID)
	})(w, r)
}

// Unpin handles PATCH /api/v1/notes/unpin-note/{id}
func (h *NoteHandler) Unpin(w http.ResponseWriter, r *http.Request) {
	h.flagHandler("note unpinned", func(r *http.Request, userID, noteID string) (any, error) {
		return h.service.UnpinNote(r.Context(), userID, noteID)
	})(w, r)
}

// AttachLabel handles POST /api/v1/notes/labels/add
func (h *NoteHandler) AttachLabel(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req LabelLinkRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	note, err := h.service.AttachLabel(r.Context(), userID, req.NoteID, req.LabelID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, note, "label attached successfully")
}

// DetachLabel handles DELETE /api/v1/notes/labels/delete/{labelId}/{noteId}
func (h *NoteHandler) DetachLabel(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	labelID := chi.URLParam(r, "labelId")
	noteID := chi.URLParam(r, "noteId")

	if err := h.service.DetachLabel(r.Context(), userID, noteID, labelID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, map[string]string{"noteId": noteID, "labelId": labelID}, "label detached successfully")
}

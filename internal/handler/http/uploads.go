package http

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Esha-Sharmaa/noting-backend/internal/storage"
	"github.com/Esha-Sharmaa/noting-backend/pkg/httputil"
)

// UploadsHandler serves stored files (note images, avatars) by key.
type UploadsHandler struct {
	store  storage.Storage
	logger *slog.Logger
}

// NewUploadsHandler creates a handler serving files out of the storage backend.
func NewUploadsHandler(store storage.Storage, logger *slog.Logger) *UploadsHandler {
	return &UploadsHandler{store: store, logger: logger}
}

// Serve handles GET /uploads/*
func (h *UploadsHandler) Serve(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if key == "" {
		http.NotFound(w, r)
		return
	}

	rc, contentType, err := h.store.Open(r.Context(), key)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	defer rc.Close()

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")

	if _, err := io.Copy(w, rc); err != nil {
		h.logger.WarnContext(r.Context(), "serve upload interrupted",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

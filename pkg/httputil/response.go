package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/Esha-Sharmaa/noting-backend/pkg/errors"
	"github.com/Esha-Sharmaa/noting-backend/pkg/logger"
	"github.com/Esha-Sharmaa/noting-backend/pkg/validator"
)

// Response is the standard JSON success envelope. StatusCode mirrors the HTTP
// status of the response.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// ErrorEnvelope is the standard JSON failure envelope. Data is always null.
type ErrorEnvelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
	Data    any               `json:"data"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteSuccess writes the success envelope with the given status, data, and message.
func WriteSuccess(w http.ResponseWriter, status int, data any, message string) {
	WriteJSON(w, status, Response{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    true,
	})
}

// WriteError translates an application error into the failure envelope. The
// HTTP status comes from the error's taxonomy mapping; internal errors are
// logged with their cause and surfaced with a generic message only. It prefers
// the request-scoped logger from context (set by the RequestLogger middleware)
// over the fallback logger.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() {
		l = fallback
	}

	status := apperrors.HTTPStatus(err)
	message := "an unexpected error occurred, please try again later"
	var fields map[string]string

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		status = appErr.Status
		message = appErr.Message
		fields = appErr.Fields
	} else {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			message = "resource not found"
		case errors.Is(err, apperrors.ErrAlreadyExists):
			message = "resource already exists"
		case errors.Is(err, apperrors.ErrInvalidInput):
			message = err.Error()
		}
	}

	if status == http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "internal error",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		// Never leak internals to the client.
		message = "an unexpected error occurred, please try again later"
		fields = nil
	}

	WriteJSON(w, status, ErrorEnvelope{
		Success: false,
		Message: message,
		Errors:  fields,
		Data:    nil,
	})
}

// WriteValidationError writes a 422 failure envelope with field-level errors
// for a validator.ValidationError, or a 400 for any other decode failure.
func WriteValidationError(w http.ResponseWriter, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusUnprocessableEntity, ErrorEnvelope{
			Success: false,
			Message: "request validation failed",
			Errors:  valErr.Fields(),
			Data:    nil,
		})
		return
	}

	WriteJSON(w, http.StatusBadRequest, ErrorEnvelope{
		Success: false,
		Message: err.Error(),
		Data:    nil,
	})
}

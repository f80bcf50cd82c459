package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Esha-Sharmaa/noting-backend/pkg/errors"
	"github.com/Esha-Sharmaa/noting-backend/pkg/validator"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWriteSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccess(rec, http.StatusCreated, map[string]string{"id": "1"}, "Note added successfully")

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decodeEnvelope(t, rec)
	assert.Equal(t, float64(http.StatusCreated), body["statusCode"])
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Note added successfully", body["message"])
	assert.Equal(t, "1", body["data"].(map[string]any)["id"])
}

func TestWriteError_AppError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/notes/delete/x", nil)

	WriteError(rec, req, apperrors.Forbidden("you do not have permission to delete this note"), testLogger())

	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "you do not have permission to delete this note", body["message"])
	assert.Nil(t, body["data"])
}

func TestWriteError_SentinelNotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notes/x", nil)

	WriteError(rec, req, apperrors.ErrNotFound, testLogger())

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, "resource not found", body["message"])
}

func TestWriteError_InternalHidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", nil)

	WriteError(rec, req, errors.New("pq: connection refused on 10.0.0.3"), testLogger())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, false, body["success"])
	assert.NotContains(t, body["message"], "10.0.0.3")
	assert.NotContains(t, body["message"], "connection refused")
}

func TestWriteValidationError_FieldMap(t *testing.T) {
	type registerReq struct {
		Email    string `validate:"required,email"`
		Password string `validate:"required,min=8"`
	}

	err := validator.Validate(registerReq{Email: "nope", Password: "x"})
	require.Error(t, err)

	rec := httptest.NewRecorder()
	WriteValidationError(rec, err)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, false, body["success"])

	fields := body["errors"].(map[string]any)
	assert.Contains(t, fields, "Email")
	assert.Contains(t, fields, "Password")
}

func TestWriteValidationError_PlainError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteValidationError(rec, errors.New("decode request body: unexpected EOF"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

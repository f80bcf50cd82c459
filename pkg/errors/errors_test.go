package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotFound(t *testing.T) {
	err := NotFound("note", "abc-123")

	assert.Equal(t, "NOT_FOUND", err.Code)
	assert.Equal(t, http.StatusNotFound, err.Status)
	assert.Contains(t, err.Message, "note")
	assert.Contains(t, err.Message, "abc-123")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAlreadyExists(t *testing.T) {
	err := AlreadyExists("user", "email", "a@x.com")

	assert.Equal(t, "ALREADY_EXISTS", err.Code)
	assert.Equal(t, http.StatusConflict, err.Status)
	assert.Contains(t, err.Message, `"a@x.com"`)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestConflict(t *testing.T) {
	err := Conflict("user is already a collaborator on this note")

	assert.Equal(t, "CONFLICT", err.Code)
	assert.Equal(t, http.StatusConflict, err.Status)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestValidation(t *testing.T) {
	err := Validation(map[string]string{"email": "must be a valid email address"})

	assert.Equal(t, "VALIDATION_ERROR", err.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, err.Status)
	assert.Equal(t, "must be a valid email address", err.Fields["email"])
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUnauthorizedAndForbidden(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, Unauthorized("invalid token").Status)
	assert.Equal(t, http.StatusForbidden, Forbidden("not your note").Status)
}

func TestInternal_WrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal(cause)

	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.ErrorIs(t, err, cause)
	// The client-facing message must not leak the cause.
	assert.Equal(t, "an internal error occurred", err.Message)
}

func TestAppError_ErrorString(t *testing.T) {
	err := &AppError{Code: "X", Message: "boom", Err: errors.New("root")}
	assert.Equal(t, "X: boom: root", err.Error())

	err = &AppError{Code: "X", Message: "boom"}
	assert.Equal(t, "X: boom", err.Error())
}

func TestHTTPStatus_Sentinels(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{ErrNotFound, http.StatusNotFound},
		{ErrAlreadyExists, http.StatusConflict},
		{ErrConflict, http.StatusConflict},
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrValidation, http.StatusUnprocessableEntity},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrForbidden, http.StatusForbidden},
		{errors.New("anything else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.status, HTTPStatus(tt.err), "for %v", tt.err)
	}
}

func TestHTTPStatus_WrappedSentinel(t *testing.T) {
	err := fmt.Errorf("load note: %w", ErrNotFound)
	assert.Equal(t, http.StatusNotFound, HTTPStatus(err))
}

func TestHTTPStatus_AppErrorTakesPrecedence(t *testing.T) {
	err := fmt.Errorf("outer: %w", Forbidden("nope"))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(err))
}

package http

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Esha-Sharmaa/noting-backend/internal/domain"
	apperrors "github.com/Esha-Sharmaa/noting-backend/pkg/errors"
)

func TestListLabels_Success(t *testing.T) {
	f := newRouterFixture(t)
	user := sampleTestUser()
	token := f.actAsUser(t, user)

	labels := []domain.Label{{ID: "label-1", UserID: user.ID, Name: "work"}}
	f.labelRepo.On("ListByOwner", mock.Anything, user.ID).Return(labels, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/labels/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := f.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	got, ok := resp.Data.([]any)
	require.True(t, ok)
	assert.Len(t, got, 1)
}

func TestCreateLabel_Success(t *testing.T) {
	f := newRouterFixture(t)
	user := sampleTestUser()
	token := f.actAsUser(t, user)

	f.labelRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Label")).Return(nil)

	body := bytes.NewBufferString(`{"name":"work"}`)
	req := jsonRequest(http.MethodPost, "/api/v1/labels/create-label", body)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := f.do(req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeEnvelope(t, rec)
	label, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "work", label["name"])
	assert.Equal(t, user.ID, label["user_id"])
}

func TestCreateLabel_DuplicateName(t *testing.T) {
	f := newRouterFixture(t)
	user := sampleTestUser()
	token := f.actAsUser(t, user)

	f.labelRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Label")).
		Return(apperrors.Conflict("label name already in use"))

	body := bytes.NewBufferString(`{"name":"work"}`)
	req := jsonRequest(http.MethodPost, "/api/v1/labels/create-label", body)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := f.do(req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateLabel_EmptyName(t *testing.T) {
	f := newRouterFixture(t)
	user := sampleTestUser()
	token := f.actAsUser(t, user)

	body := bytes.NewBufferString(`{"name":""}`)
	req := jsonRequest(http.MethodPost, "/api/v1/labels/create-label", body)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := f.do(req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDeleteLabel_Success(t *testing.T) {
	f := newRouterFixture(t)
	user := sampleTestUser()
	token := f.actAsUser(t, user)

	label := &domain.Label{ID: "label-1", UserID: user.ID, Name: "work"}
	f.labelRepo.On("GetByID", mock.Anything, label.ID).Return(label, nil)
	f.labelRepo.On("Delete", mock.Anything, label.ID).Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/labels/delete-label/label-1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := f.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)
	f.labelRepo.AssertExpectations(t)
}

func TestDeleteLabel_NotOwnerForbidden(t *testing.T) {
	f := newRouterFixture(t)
	stranger := sampleTestUser()
	stranger.ID = "550e8400-e29b-41d4-a716-446655449999"
	token := f.actAsUser(t, stranger)

	label := &domain.Label{ID: "label-1", UserID: testUserID, Name: "work"}
	f.labelRepo.On("GetByID", mock.Anything, label.ID).Return(label, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/labels/delete-label/label-1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := f.do(req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

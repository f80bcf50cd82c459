package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/Esha-Sharmaa/noting-backend/pkg/errors"
	"github.com/Esha-Sharmaa/noting-backend/pkg/httputil"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ============================================================================
// Register Tests
// ============================================================================

func TestRegister_Success(t *testing.T) {
	f := newRouterFixture(t)

	f.userRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)

	body := bytes.NewBufferString(`{"email":"esha@example.com","password":"Str0ngPass","fullName":"Esha Sharma"}`)
	rec := f.do(jsonRequest(http.MethodPost, "/api/v1/users/register", body))

	assert.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.True(t, resp.Success)

	user, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "esha@example.com", user["email"])
	assert.NotContains(t, user, "password_hash")
	f.userRepo.AssertExpectations(t)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newRouterFixture(t)

	f.userRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).
		Return(apperrors.AlreadyExists("user", "email", "esha@example.com"))

	body := bytes.NewBufferString(`{"email":"esha@example.com","password":"Str0ngPass","fullName":"Esha Sharma"}`)
	rec := f.do(jsonRequest(http.MethodPost, "/api/v1/users/register", body))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegister_MissingFields(t *testing.T) {
	f := newRouterFixture(t)

	body := bytes.NewBufferString(`{"email":"esha@example.com"}`)
	rec := f.do(jsonRequest(http.MethodPost, "/api/v1/users/register", body))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRegister_RejectsNonJSONContentType(t *testing.T) {
	f := newRouterFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", bytes.NewBufferString("email=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := f.do(req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

// ============================================================================
// Login Tests
// ============================================================================

func TestLogin_Success_SetsCookies(t *testing.T) {
	f := newRouterFixture(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("Str0ngPass"), bcrypt.MinCost)
	require.NoError(t, err)
	user := sampleTestUser()
	user.PasswordHash = string(hash)

	f.userRepo.On("GetByEmail", mock.Anything, "esha@example.com").Return(user, nil)
	f.userRepo.On("UpdateRefreshToken", mock.Anything, user.ID, mock.AnythingOfType("string")).Return(nil)

	body := bytes.NewBufferString(`{"email":"esha@example.com","password":"Str0ngPass"}`)
	rec := f.do(jsonRequest(http.MethodPost, "/api/v1/users/login", body))

	assert.Equal(t, http.StatusOK, rec.Code)

	access := cookieByName(rec, "accessToken")
	require.NotNil(t, access)
	assert.True(t, access.HttpOnly)
	assert.NotEmpty(t, access.Value)

	refresh := cookieByName(rec, "refreshToken")
	require.NotNil(t, refresh)
	assert.True(t, refresh.HttpOnly)
	assert.NotEmpty(t, refresh.Value)
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newRouterFixture(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("Str0ngPass"), bcrypt.MinCost)
	require.NoError(t, err)
	user := sampleTestUser()
	user.PasswordHash = string(hash)

	f.userRepo.On("GetByEmail", mock.Anything, "esha@example.com").Return(user, nil)

	body := bytes.NewBufferString(`{"email":"esha@example.com","password":"WrongPass1"}`)
	rec := f.do(jsonRequest(http.MethodPost, "/api/v1/users/login", body))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, cookieByName(rec, "accessToken"))
}

func TestLogin_UnknownEmail(t *testing.T) {
	f := newRouterFixture(t)

	f.userRepo.On("GetByEmail", mock.Anything, "ghost@example.com").
		Return(nil, apperrors.NotFound("user", "ghost@example.com"))

	body := bytes.NewBufferString(`{"email":"ghost@example.com","password":"Str0ngPass"}`)
	rec := f.do(jsonRequest(http.MethodPost, "/api/v1/users/login", body))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// ============================================================================
// RefreshToken Tests
// ============================================================================

func TestRefreshToken_FromCookie(t *testing.T) {
	f := newRouterFixture(t)
	user := sampleTestUser()

	refresh, err := f.jwt.GenerateRefreshToken(user.ID)
	require.NoError(t, err)
	user.RefreshToken = refresh

	f.userRepo.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	f.userRepo.On("RotateRefreshToken", mock.Anything, user.ID, refresh, mock.AnythingOfType("string")).Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: refresh})
	rec := f.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, cookieByName(rec, "accessToken"))
	f.userRepo.AssertExpectations(t)
}

func TestRefreshToken_Replay_ClearsCookies(t *testing.T) {
	f := newRouterFixture(t)
	user := sampleTestUser()

	presented, err := f.jwt.GenerateRefreshToken(user.ID)
	require.NoError(t, err)
	// The stored token is a different one: the presented token was already
	// rotated out.
	stored, err := f.jwt.GenerateRefreshToken(user.ID)
	require.NoError(t, err)
	user.RefreshToken = stored

	f.userRepo.On("GetByID", mock.Anything, user.ID).Return(user, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: presented})
	rec := f.do(req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	access := cookieByName(rec, "accessToken")
	require.NotNil(t, access)
	assert.Empty(t, access.Value)
	assert.Negative(t, access.MaxAge)
}

func TestRefreshToken_Missing(t *testing.T) {
	f := newRouterFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	rec := f.do(req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshToken_FromBody(t *testing.T) {
	f := newRouterFixture(t)
	user := sampleTestUser()

	refresh, err := f.jwt.GenerateRefreshToken(user.ID)
	require.NoError(t, err)
	user.RefreshToken = refresh

	f.userRepo.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	f.userRepo.On("RotateRefreshToken", mock.Anything, user.ID, refresh, mock.AnythingOfType("string")).Return(nil)

	body := bytes.NewBufferString(fmt.Sprintf(`{"refreshToken":%q}`, refresh))
	rec := f.do(jsonRequest(http.MethodPost, "/api/v1/users/refresh-token", body))

	assert.Equal(t, http.StatusOK, rec.Code)
}

// ============================================================================
// Logout / Profile Tests
// ============================================================================

func TestLogout_ClearsCookies(t *testing.T) {
	f := newRouterFixture(t)
	user := sampleTestUser()
	token := f.actAsUser(t, user)

	f.userRepo.On("UpdateRefreshToken", mock.Anything, user.ID, "").Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := f.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)

	access := cookieByName(rec, "accessToken")
	require.NotNil(t, access)
	assert.Negative(t, access.MaxAge)
}

func TestGetProfile_Success(t *testing.T) {
	f := newRouterFixture(t)
	user := sampleTestUser()
	token := f.actAsUser(t, user)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := f.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	profile, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, user.Email, profile["email"])
}

func TestGetProfile_Unauthorized(t *testing.T) {
	f := newRouterFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/profile", nil)
	rec := f.do(req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetProfile_ExpiredToken(t *testing.T) {
	f := newRouterFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/profile", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rec := f.do(req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetProfile_AcceptsCookieToken(t *testing.T) {
	f := newRouterFixture(t)
	user := sampleTestUser()
	token := f.actAsUser(t, user)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/profile", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: token})
	rec := f.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

// ============================================================================
// Avatar Tests
// ============================================================================

func TestUpdateAvatar_Success(t *testing.T) {
	f := newRouterFixture(t)
	user := sampleTestUser()
	token := f.actAsUser(t, user)

	f.userRepo.On("Update", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)

	body, contentType := multipartBody(t, "avatar", "me.png", "image/png", []byte("png-bytes"), nil)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/users/avatar", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := f.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	profile, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, profile["avatar"], "/uploads/avatars/"+user.ID+"/")
}

func TestUpdateAvatar_MissingFile(t *testing.T) {
	f := newRouterFixture(t)
	user := sampleTestUser()
	token := f.actAsUser(t, user)

	body, contentType := multipartBody(t, "", "", "", nil, map[string]string{"unrelated": "field"})
	req := httptest.NewRequest(http.MethodPut, "/api/v1/users/avatar", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := f.do(req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

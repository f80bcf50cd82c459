package http

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/Esha-Sharmaa/noting-backend/internal/service"
	"github.com/Esha-Sharmaa/noting-backend/internal/storage"
	apperrors "github.com/Esha-Sharmaa/noting-backend/pkg/errors"
	"github.com/Esha-Sharmaa/noting-backend/pkg/httputil"
	"github.com/Esha-Sharmaa/noting-backend/pkg/middleware"
	"github.com/Esha-Sharmaa/noting-backend/pkg/validator"
)

// maxAvatarSize caps avatar uploads at 5MB.
const maxAvatarSize = 5 << 20

// AuthHandler handles registration, login, token refresh, logout, profile,
// and the Google OAuth flow.
type AuthHandler struct {
	service     *service.AuthService
	oauth       *service.GoogleOAuth
	cookies     CookieConfig
	frontendURL string
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler. oauth may be nil when
// Google login is not configured.
func NewAuthHandler(svc *service.AuthService, oauth *service.GoogleOAuth, cookies CookieConfig, frontendURL string, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:     svc,
		oauth:       oauth,
		cookies:     cookies,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

// --- Request DTOs ---

// RegisterRequest is the JSON request body for user registration.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"fullName" validate:"required,min=1,max=100"`
}

// LoginRequest is the JSON request body for user login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest is the JSON request body for token refresh. The body is
// optional because browser clients carry the token in a cookie instead.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// --- Handlers ---

// Register handles POST /api/v1/users/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req RegisterRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	user, err := h.service.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusCreated, user, "user registered successfully")
}

// Login handles POST /api/v1/users/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req LoginRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	user, pair, err := h.service.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	setTokenCookies(w, h.cookies, pair, h.service.AccessExpiry(), h.service.RefreshExpiry())
	httputil.WriteSuccess(w, http.StatusOK, map[string]any{
		"user":   user,
		"tokens": pair,
	}, "login successful")
}

// RefreshToken handles POST /api/v1/users/refresh-token. The refresh token
// comes from the cookie when present, else from the JSON body.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	token := ""
	if c, err := r.Cookie(refreshTokenCookie); err == nil {
		token = c.Value
	}
	if token == "" && r.ContentLength > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		var req RefreshRequest
		if err := validator.DecodeAndValidate(r, &req); err != nil {
			httputil.WriteValidationError(w, err)
			return
		}
		token = req.RefreshToken
	}
	if token == "" {
		httputil.WriteError(w, r, apperrors.Unauthorized("refresh token is required"), h.logger)
		return
	}

	pair, err := h.service.RefreshTokens(r.Context(), token)
	if err != nil {
		clearTokenCookies(w, h.cookies)
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	setTokenCookies(w, h.cookies, pair, h.service.AccessExpiry(), h.service.RefreshExpiry())
	httputil.WriteSuccess(w, http.StatusOK, pair, "tokens refreshed successfully")
}

// Logout handles POST /api/v1/users/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	if err := h.service.Logout(r.Context(), userID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	clearTokenCookies(w, h.cookies)
	httputil.WriteSuccess(w, http.StatusOK, nil, "logged out successfully")
}

// GetProfile handles GET /api/v1/users/profile
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	user, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, user, "profile fetched successfully")
}

// UpdateAvatar handles PATCH /api/v1/users/avatar with a multipart "avatar" file.
func (h *AuthHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	if err := r.ParseMultipartForm(maxAvatarSize); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid multipart form: "+err.Error()), h.logger)
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("avatar file is required"), h.logger)
		return
	}
	defer file.Close()

	user, err := h.service.UpdateAvatar(r.Context(), userID, &storage.UploadInput{
		Key:         header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Data:        file,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, user, "avatar updated successfully")
}

// --- Google OAuth ---

// GoogleLogin handles GET /auth/google. It stores an anti-forgery state in a
// short-lived cookie and redirects to the provider consent screen.
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("google login is not configured"), h.logger)
		return
	}

	state, err := randomState()
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.oauth.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// GoogleCallback handles GET /auth/google/callback. On success the user is
// logged in via cookies and redirected back to the frontend.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("google login is not configured"), h.logger)
		return
	}

	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		httputil.WriteError(w, r, apperrors.Unauthorized("oauth state mismatch"), h.logger)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("authorization code is required"), h.logger)
		return
	}

	profile, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "oauth exchange failed", slog.String("error", err.Error()))
		httputil.WriteError(w, r, apperrors.Unauthorized("google login failed"), h.logger)
		return
	}

	_, pair, err := h.service.OAuthLogin(r.Context(), *profile)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	// The state cookie is single-use.
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})

	setTokenCookies(w, h.cookies, pair, h.service.AccessExpiry(), h.service.RefreshExpiry())
	http.Redirect(w, r, h.frontendURL, http.StatusTemporaryRedirect)
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

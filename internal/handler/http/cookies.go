package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/Esha-Sharmaa/noting-backend/internal/domain"
)

// Cookie names for the auth token pair.
const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
	oauthStateCookie   = "oauthState"
)

// CookieConfig controls the attributes of the auth cookies.
type CookieConfig struct {
	Secure   bool
	SameSite string
	Domain   string
}

func (c CookieConfig) sameSite() http.SameSite {
	switch strings.ToLower(c.SameSite) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// setTokenCookies stores both tokens as http-only cookies so browser clients
// never see them from script.
func setTokenCookies(w http.ResponseWriter, cfg CookieConfig, pair *domain.TokenPair, accessTTL, refreshTTL time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    pair.AccessToken,
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   int(accessTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.sameSite(),
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    pair.RefreshToken,
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   int(refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.sameSite(),
	})
}

// clearTokenCookies expires both auth cookies.
func clearTokenCookies(w http.ResponseWriter, cfg CookieConfig) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   cfg.Domain,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   cfg.Secure,
			SameSite: cfg.sameSite(),
		})
	}
}

package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Esha-Sharmaa/noting-backend/internal/service"
	"github.com/Esha-Sharmaa/noting-backend/internal/storage"
	"github.com/Esha-Sharmaa/noting-backend/pkg/health"
	"github.com/Esha-Sharmaa/noting-backend/pkg/middleware"
)

// RouterConfig bundles the dependencies of the HTTP router.
type RouterConfig struct {
	AuthService         *service.AuthService
	NoteService         *service.NoteService
	LabelService        *service.LabelService
	CollaboratorService *service.CollaboratorService
	OAuth               *service.GoogleOAuth
	Store               storage.Storage
	Health              *health.Handler
	Logger              *slog.Logger
	CORS                middleware.CORSConfig
	Cookies             CookieConfig
	FrontendURL         string
	PprofAllowedCIDRs   []string
}

// NewRouter creates a chi router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.Tracing("noting-backend"))
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.PrometheusMetrics("noting"))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Hello From the server"))
	})

	// Health check and metrics endpoints
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	if len(cfg.PprofAllowedCIDRs) > 0 {
		middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, cfg.Logger)
	}

	// The middleware resolves identity through a verified token plus a live
	// user lookup, so deleted accounts fail even with an unexpired token.
	requireAuth := middleware.Auth(accessTokenCookie, func(ctx context.Context, token string) (*middleware.Claims, error) {
		user, err := cfg.AuthService.Authenticate(ctx, token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{
			UserID:      user.ID,
			Email:       user.Email,
			DisplayName: user.FullName,
			AvatarURL:   user.AvatarURL,
		}, nil
	})

	authHandler := NewAuthHandler(cfg.AuthService, cfg.OAuth, cfg.Cookies, cfg.FrontendURL, cfg.Logger)
	noteHandler := NewNoteHandler(cfg.NoteService, cfg.Logger)
	labelHandler := NewLabelHandler(cfg.LabelService, cfg.Logger)
	collabHandler := NewCollaboratorHandler(cfg.CollaboratorService, cfg.Logger)
	uploadsHandler := NewUploadsHandler(cfg.Store, cfg.Logger)

	// Stored files (note images, avatars)
	r.Get("/uploads/*", uploadsHandler.Serve)

	// Google OAuth flow (public)
	r.Get("/auth/google", authHandler.GoogleLogin)
	r.Get("/auth/google/callback", authHandler.GoogleCallback)

	// User account endpoints
	r.Route("/api/v1/users", func(r chi.Router) {
		r.With(ContentTypeJSON).Post("/register", authHandler.Register)
		r.With(ContentTypeJSON).Post("/login", authHandler.Login)
		r.Post("/refresh-token", authHandler.RefreshToken)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/logout", authHandler.Logout)
			r.Get("/profile", authHandler.GetProfile)
			r.Put("/avatar", authHandler.UpdateAvatar)
		})
	})

	// Note endpoints (auth required)
	r.Route("/api/v1/notes", func(r chi.Router) {
		r.Use(requireAuth)

		r.Get("/", noteHandler.List)
		r.Get("/collab", noteHandler.ListShared)
		r.Post("/add", noteHandler.Create)
		r.Put("/edit/{id}", noteHandler.Edit)
		r.Delete("/delete/{id}", noteHandler.Delete)

		r.Put("/archive/{id}", noteHandler.Archive)
		r.Put("/unarchive/{id}", noteHandler.Unarchive)
		r.Put("/trash/{id}", noteHandler.Trash)
		r.Put("/restore-trash/{id}", noteHandler.Restore)
		r.Put("/pin-note/{id}", noteHandler.Pin)
		r.Put("/unpin-note/{id}", noteHandler.Unpin)

		r.With(ContentTypeJSON).Put("/labels/add", noteHandler.AttachLabel)
		r.Delete("/labels/delete/{labelId}/{noteId}", noteHandler.DetachLabel)

		r.Get("/{id}", noteHandler.Get)
	})

	// Label endpoints (auth required)
	r.Route("/api/v1/labels", func(r chi.Router) {
		r.Use(requireAuth)

		r.Get("/", labelHandler.List)
		r.With(ContentTypeJSON).Post("/create-label", labelHandler.Create)
		r.Delete("/delete-label/{id}", labelHandler.Delete)
	})

	// Collaborator endpoints (auth required)
	r.Route("/api/v1/collaborators", func(r chi.Router) {
		r.Use(requireAuth)

		r.With(ContentTypeJSON).Post("/add", collabHandler.Add)
		r.Delete("/delete/{id}", collabHandler.Remove)
	})

	return r
}

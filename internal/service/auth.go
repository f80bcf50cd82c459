package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Esha-Sharmaa/noting-backend/internal/auth"
	"github.com/Esha-Sharmaa/noting-backend/internal/domain"
	"github.com/Esha-Sharmaa/noting-backend/internal/event"
	"github.com/Esha-Sharmaa/noting-backend/internal/repository"
	"github.com/Esha-Sharmaa/noting-backend/internal/storage"
	apperrors "github.com/Esha-Sharmaa/noting-backend/pkg/errors"
)

// bcryptCost is the cost factor for bcrypt password hashing.
const bcryptCost = 12

// minPasswordLength is the minimum password length required.
const minPasswordLength = 8

// opTimeout bounds each persistence call made during token verification
// and rotation so a stalled store cannot hang the auth path.
const opTimeout = 5 * time.Second

// AuthService implements account registration, login, token issuance and
// rotation, and profile management.
type AuthService struct {
	userRepo   repository.UserRepository
	jwtManager *auth.JWTManager
	store      storage.Storage
	producer   *event.Producer
	logger     *slog.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(
	userRepo repository.UserRepository,
	jwtManager *auth.JWTManager,
	store storage.Storage,
	producer *event.Producer,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtManager: jwtManager,
		store:      store,
		producer:   producer,
		logger:     logger,
	}
}

// --- Input types ---

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	FullName string
	Email    string
	Password string
}

// LoginInput holds the parameters for user login.
type LoginInput struct {
	Email    string
	Password string
}

// OAuthProfile is the identity returned by an OAuth provider.
type OAuthProfile struct {
	OAuthID   string
	Email     string
	FullName  string
	AvatarURL string
}

// --- Session operations ---

// Register creates a new user account. The caller is not logged in
// automatically; a separate login issues tokens.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	if input.FullName == "" {
		return nil, apperrors.InvalidInput("full name is required")
	}
	if input.Email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        normalizeEmail(input.Email),
		PasswordHash: string(hashedPassword),
		FullName:     input.FullName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	// Publish registration event (non-blocking on failure).
	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return sanitize(user), nil
}

// Login authenticates a user with email and password and issues a token
// pair. Unknown emails and wrong passwords produce the same error so the
// response never reveals whether an account exists.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*domain.User, *domain.TokenPair, error) {
	if input.Email == "" {
		return nil, nil, apperrors.InvalidInput("email is required")
	}
	if input.Password == "" {
		return nil, nil, apperrors.InvalidInput("password is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		// Only a genuine miss maps to the generic 401; a store failure
		// must stay retryable.
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.Unauthorized("invalid email or password")
		}
		return nil, nil, fmt.Errorf("load user by email: %w", err)
	}

	// OAuth-only accounts have no password to compare.
	if user.PasswordHash == "" {
		return nil, nil, apperrors.Unauthorized("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, nil, apperrors.Unauthorized("invalid email or password")
	}

	tokens, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("issue tokens: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return sanitize(user), tokens, nil
}

// OAuthLogin finds or creates the account matching an OAuth profile and
// issues a token pair. An existing local account with the same email is
// linked to the provider on first OAuth login.
func (s *AuthService) OAuthLogin(ctx context.Context, profile OAuthProfile) (*domain.User, *domain.TokenPair, error) {
	if profile.OAuthID == "" || profile.Email == "" {
		return nil, nil, apperrors.InvalidInput("incomplete oauth profile")
	}

	user, err := s.userRepo.GetByOAuthID(ctx, profile.OAuthID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, fmt.Errorf("load user by oauth id: %w", err)
		}
		user, err = s.userRepo.GetByEmail(ctx, normalizeEmail(profile.Email))
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, fmt.Errorf("load user by email: %w", err)
		}
		if err == nil {
			// Link the provider identity to the existing local account.
			user.OAuthID = profile.OAuthID
			if user.AvatarURL == "" {
				user.AvatarURL = profile.AvatarURL
			}
			if err := s.userRepo.Update(ctx, user); err != nil {
				return nil, nil, fmt.Errorf("link oauth account: %w", err)
			}
		} else {
			now := time.Now().UTC()
			user = &domain.User{
				ID:        uuid.New().String(),
				Email:     normalizeEmail(profile.Email),
				FullName:  profile.FullName,
				AvatarURL: profile.AvatarURL,
				OAuthID:   profile.OAuthID,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.userRepo.Create(ctx, user); err != nil {
				return nil, nil, fmt.Errorf("create oauth user: %w", err)
			}

			if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
				s.logger.ErrorContext(ctx, "failed to publish user.registered event",
					slog.String("user_id", user.ID),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	tokens, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("issue tokens: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in via oauth",
		slog.String("user_id", user.ID),
	)

	return sanitize(user), tokens, nil
}

// RefreshTokens verifies a presented refresh token and rotates it: the new
// pair replaces the stored token, and the presented token is dead afterwards.
// A presented token that does not match the stored one is treated as replayed
// and rejected.
func (s *AuthService) RefreshTokens(ctx context.Context, presented string) (*domain.TokenPair, error) {
	if presented == "" {
		return nil, apperrors.Unauthorized("refresh token is required")
	}

	claims, err := s.jwtManager.ValidateRefreshToken(presented)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired refresh token")
	}

	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	user, err := s.userRepo.GetByID(opCtx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("invalid or expired refresh token")
		}
		return nil, fmt.Errorf("get user for token refresh: %w", err)
	}

	// Exact match with the stored token detects replay of a rotated-out or
	// revoked token.
	if user.RefreshToken != presented {
		s.logger.WarnContext(ctx, "refresh token replay detected",
			slog.String("user_id", user.ID),
		)
		return nil, apperrors.Unauthorized("invalid or expired refresh token")
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Email, user.FullName)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	// Atomic compare-and-swap: if a concurrent refresh rotated first, this
	// one loses and the presented token is rejected.
	if err := s.userRepo.RotateRefreshToken(opCtx, user.ID, presented, refreshToken); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("invalid or expired refresh token")
		}
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	s.logger.InfoContext(ctx, "tokens refreshed",
		slog.String("user_id", user.ID),
	)

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Logout clears the user's stored refresh token. Logging out twice is not
// an error.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.userRepo.UpdateRefreshToken(ctx, userID, ""); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("clear refresh token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged out",
		slog.String("user_id", userID),
	)

	return nil
}

// Authenticate validates an access token and loads the live user record.
// A valid token whose user no longer exists is rejected.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.jwtManager.ValidateAccessToken(token)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired access token")
	}

	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	user, err := s.userRepo.GetByID(opCtx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("account no longer exists")
		}
		return nil, fmt.Errorf("load user for access token: %w", err)
	}

	return sanitize(user), nil
}

// AccessExpiry returns the lifetime of issued access tokens.
func (s *AuthService) AccessExpiry() time.Duration {
	return s.jwtManager.AccessExpiry()
}

// RefreshExpiry returns the lifetime of issued refresh tokens.
func (s *AuthService) RefreshExpiry() time.Duration {
	return s.jwtManager.RefreshExpiry()
}

// --- Profile operations ---

// GetProfile retrieves the sanitized user record.
func (s *AuthService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("user", userID)
		}
		return nil, fmt.Errorf("get user profile: %w", err)
	}
	return sanitize(user), nil
}

// UpdateAvatar uploads a new avatar image and stores its URL on the user.
func (s *AuthService) UpdateAvatar(ctx context.Context, userID string, input *storage.UploadInput) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("user", userID)
		}
		return nil, fmt.Errorf("get user for avatar update: %w", err)
	}

	input.Key = fmt.Sprintf("avatars/%s/%s", userID, input.Key)
	result, err := s.store.Upload(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("upload avatar: %w", err)
	}

	user.AvatarURL = result.URL
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("save avatar url: %w", err)
	}

	s.logger.InfoContext(ctx, "avatar updated",
		slog.String("user_id", userID),
	)

	return sanitize(user), nil
}

// --- Helpers ---

// issueTokenPair signs a fresh access/refresh pair and persists the refresh
// token, overwriting any previous one. A login on a second device therefore
// invalidates the first device's refresh token.
func (s *AuthService) issueTokenPair(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Email, user.FullName)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := s.userRepo.UpdateRefreshToken(opCtx, user.ID, refreshToken); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// sanitize returns a copy of the user safe to hand outside the service.
func sanitize(u *domain.User) *domain.User {
	c := *u
	c.PasswordHash = ""
	c.RefreshToken = ""
	c.OAuthID = ""
	return &c
}

// normalizeEmail lowercases and trims an email address for lookups and storage.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validatePassword checks that the password meets minimum complexity requirements.
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	var hasUpper, hasLower, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit {
		return apperrors.InvalidInput("password must contain at least one uppercase letter, one lowercase letter, and one digit")
	}

	return nil
}

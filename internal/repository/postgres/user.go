package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Esha-Sharmaa/noting-backend/internal/domain"
	"github.com/Esha-Sharmaa/noting-backend/pkg/database"
	apperrors "github.com/Esha-Sharmaa/noting-backend/pkg/errors"
)

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user into the database.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, full_name, avatar_url, oauth_id, refresh_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		u.ID,
		u.Email,
		u.PasswordHash,
		u.FullName,
		u.AvatarURL,
		u.OAuthID,
		u.RefreshToken,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT id, email, password_hash, full_name, avatar_url, oauth_id, refresh_token, created_at, updated_at
		FROM users
		WHERE id = $1`

	return r.scanUser(ctx, query, id)
}

// GetByEmail retrieves a user by their email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT id, email, password_hash, full_name, avatar_url, oauth_id, refresh_token, created_at, updated_at
		FROM users
		WHERE email = $1`

	ctx, end := database.TraceQuery(ctx, "GetUserByEmail", query)
	user, err := r.scanUser(ctx, query, email)
	end(err)
	return user, err
}

// GetByOAuthID retrieves a user by their OAuth provider subject id.
func (r *UserRepository) GetByOAuthID(ctx context.Context, oauthID string) (*domain.User, error) {
	query := `
		SELECT id, email, password_hash, full_name, avatar_url, oauth_id, refresh_token, created_at, updated_at
		FROM users
		WHERE oauth_id = $1`

	return r.scanUser(ctx, query, oauthID)
}

// Update modifies an existing user in the database.
func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	u.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE users
		SET email = $1, password_hash = $2, full_name = $3, avatar_url = $4, oauth_id = $5, updated_at = $6
		WHERE id = $7`

	ct, err := r.db.Exec(ctx, query,
		u.Email,
		u.PasswordHash,
		u.FullName,
		u.AvatarURL,
		u.OAuthID,
		u.UpdatedAt,
		u.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
		return fmt.Errorf("update user: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", u.ID)
	}

	return nil
}

// UpdateRefreshToken overwrites the user's stored refresh token. An empty
// token clears it.
func (r *UserRepository) UpdateRefreshToken(ctx context.Context, userID, token string) error {
	query := `UPDATE users SET refresh_token = $1, updated_at = $2 WHERE id = $3`

	ct, err := r.db.Exec(ctx, query, token, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("update refresh token: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", userID)
	}

	return nil
}

// RotateRefreshToken atomically swaps the stored refresh token for next, but
// only when the stored value still equals current. The single UPDATE makes
// concurrent rotations race-safe: exactly one wins, the rest see ErrNotFound.
func (r *UserRepository) RotateRefreshToken(ctx context.Context, userID, current, next string) error {
	query := `UPDATE users SET refresh_token = $1, updated_at = $2 WHERE id = $3 AND refresh_token = $4`

	ct, err := r.db.Exec(ctx, query, next, time.Now().UTC(), userID, current)
	if err != nil {
		return fmt.Errorf("rotate refresh token: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// Delete removes a user from the database by their ID.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM users WHERE id = $1`

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", id)
	}

	return nil
}

// scanUser is a helper that executes a query expected to return a single user row.
func (r *UserRepository) scanUser(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var u domain.User

	err := r.db.QueryRow(ctx, query, args...).Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FullName,
		&u.AvatarURL,
		&u.OAuthID,
		&u.RefreshToken,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	return &u, nil
}

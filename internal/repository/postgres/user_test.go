package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Esha-Sharmaa/noting-backend/internal/domain"
	"github.com/Esha-Sharmaa/noting-backend/pkg/database"
	apperrors "github.com/Esha-Sharmaa/noting-backend/pkg/errors"
)

func newUserTestFixture(t *testing.T) (*UserRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	repo := NewUserRepository(mock)
	return repo, mock
}

func sampleUser() *domain.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.User{
		ID:           "u-1234",
		Email:        "alice@example.com",
		PasswordHash: "hash-abc",
		FullName:     "Alice Smith",
		AvatarURL:    "",
		OAuthID:      "",
		RefreshToken: "",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// userColumns returns the 9 column names scanned by scanUser and inserted by Create.
func userColumns() []string {
	return []string{
		"id", "email", "password_hash", "full_name", "avatar_url",
		"oauth_id", "refresh_token", "created_at", "updated_at",
	}
}

func userRow(u *domain.User) *pgxmock.Rows {
	return pgxmock.NewRows(userColumns()).AddRow(
		u.ID, u.Email, u.PasswordHash, u.FullName, u.AvatarURL,
		u.OAuthID, u.RefreshToken, u.CreatedAt, u.UpdatedAt,
	)
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestUserRepository_Create_Success(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()

	mock.ExpectExec("INSERT INTO users").
		WithArgs(
			u.ID, u.Email, u.PasswordHash, u.FullName, u.AvatarURL,
			u.OAuthID, u.RefreshToken, u.CreatedAt, u.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), u)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_DuplicateEmail(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()

	mock.ExpectExec("INSERT INTO users").
		WithArgs(
			u.ID, u.Email, u.PasswordHash, u.FullName, u.AvatarURL,
			u.OAuthID, u.RefreshToken, u.CreatedAt, u.UpdatedAt,
		).
		WillReturnError(fmt.Errorf("ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)"))

	err := repo.Create(context.Background(), u)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 409, appErr.Status)
}

// ---------------------------------------------------------------------------
// Get
// ---------------------------------------------------------------------------

func TestUserRepository_GetByID_Success(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs(u.ID).
		WillReturnRows(userRow(u))

	got, err := repo.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)
	assert.Equal(t, u.FullName, got.FullName)
}

func TestUserRepository_GetByEmail_NotFound(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("missing@example.com").
		WillReturnRows(pgxmock.NewRows(userColumns()))

	_, err := repo.GetByEmail(context.Background(), "missing@example.com")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUserRepository_GetByOAuthID_Success(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()
	u.OAuthID = "google-9"

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("google-9").
		WillReturnRows(userRow(u))

	got, err := repo.GetByOAuthID(context.Background(), "google-9")
	require.NoError(t, err)
	assert.Equal(t, "google-9", got.OAuthID)
}

// ---------------------------------------------------------------------------
// Refresh token
// ---------------------------------------------------------------------------

func TestUserRepository_UpdateRefreshToken_Success(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("UPDATE users SET refresh_token").
		WithArgs("new-token", pgxmock.AnyArg(), "u-1234").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.UpdateRefreshToken(context.Background(), "u-1234", "new-token")
	assert.NoError(t, err)
}

func TestUserRepository_UpdateRefreshToken_UserGone(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("UPDATE users SET refresh_token").
		WithArgs("new-token", pgxmock.AnyArg(), "u-gone").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdateRefreshToken(context.Background(), "u-gone", "new-token")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUserRepository_RotateRefreshToken_Success(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("UPDATE users SET refresh_token").
		WithArgs("next-token", pgxmock.AnyArg(), "u-1234", "current-token").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.RotateRefreshToken(context.Background(), "u-1234", "current-token", "next-token")
	assert.NoError(t, err)
}

func TestUserRepository_RotateRefreshToken_StaleToken(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	// Stored value no longer matches: a concurrent rotation already won.
	mock.ExpectExec("UPDATE users SET refresh_token").
		WithArgs("next-token", pgxmock.AnyArg(), "u-1234", "stale-token").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.RotateRefreshToken(context.Background(), "u-1234", "stale-token", "next-token")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// ---------------------------------------------------------------------------
// Update / Delete
// ---------------------------------------------------------------------------

func TestUserRepository_Update_NotFound(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()
	u.ID = "u-missing"

	mock.ExpectExec("UPDATE users").
		WithArgs(u.Email, u.PasswordHash, u.FullName, u.AvatarURL, u.OAuthID, pgxmock.AnyArg(), u.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), u)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 404, appErr.Status)
}

func TestUserRepository_Delete_Success(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM users").
		WithArgs("u-1234").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err := repo.Delete(context.Background(), "u-1234")
	assert.NoError(t, err)
}

func TestUserRepository_GetByID_QueryError(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("u-1234").
		WillReturnError(errors.New("connection refused"))

	_, err := repo.GetByID(context.Background(), "u-1234")
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
}

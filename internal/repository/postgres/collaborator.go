package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Esha-Sharmaa/noting-backend/internal/domain"
	apperrors "github.com/Esha-Sharmaa/noting-backend/pkg/errors"
)

// CollaboratorRepository implements repository.CollaboratorRepository using PostgreSQL.
type CollaboratorRepository struct {
	db DB
}

// NewCollaboratorRepository creates a new PostgreSQL-backed collaborator repository.
func NewCollaboratorRepository(db DB) *CollaboratorRepository {
	return &CollaboratorRepository{db: db}
}

// Create inserts a new collaborator grant. A unique constraint on
// (note_id, user_id) backs the duplicate check done in the service.
func (r *CollaboratorRepository) Create(ctx context.Context, c *domain.Collaborator) error {
	query := `
		INSERT INTO collaborators (id, note_id, user_id, permission, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query, c.ID, c.NoteID, c.UserID, c.Permission, c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("user is already a collaborator on this note")
		}
		return fmt.Errorf("insert collaborator: %w", err)
	}

	return nil
}

// GetByID retrieves a collaborator grant by its ID.
func (r *CollaboratorRepository) GetByID(ctx context.Context, id string) (*domain.Collaborator, error) {
	query := `SELECT id, note_id, user_id, permission, created_at FROM collaborators WHERE id = $1`

	var c domain.Collaborator
	err := r.db.QueryRow(ctx, query, id).Scan(&c.ID, &c.NoteID, &c.UserID, &c.Permission, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan collaborator: %w", err)
	}

	return &c, nil
}

// ListByNote returns all grants on a note with the collaborating users'
// sanitized profiles attached.
func (r *CollaboratorRepository) ListByNote(ctx context.Context, noteID string) ([]domain.Collaborator, error) {
	query := `
		SELECT c.id, c.note_id, c.user_id, c.permission, c.created_at,
		       u.id, u.email, u.full_name, u.avatar_url
		FROM collaborators c
		JOIN users u ON u.id = c.user_id
		WHERE c.note_id = $1
		ORDER BY c.created_at ASC`

	rows, err := r.db.Query(ctx, query, noteID)
	if err != nil {
		return nil, fmt.Errorf("list collaborators: %w", err)
	}
	defer rows.Close()

	collabs := []domain.Collaborator{}
	for rows.Next() {
		var c domain.Collaborator
		var u domain.User
		if err := rows.Scan(
			&c.ID, &c.NoteID, &c.UserID, &c.Permission, &c.CreatedAt,
			&u.ID, &u.Email, &u.FullName, &u.AvatarURL,
		); err != nil {
			return nil, fmt.Errorf("scan collaborator row: %w", err)
		}
		c.User = &u
		collabs = append(collabs, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collaborator rows: %w", err)
	}

	return collabs, nil
}

// Exists checks whether the user already holds a grant on the note.
func (r *CollaboratorRepository) Exists(ctx context.Context, noteID, userID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM collaborators WHERE note_id = $1 AND user_id = $2)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, noteID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check collaborator exists: %w", err)
	}

	return exists, nil
}

// Delete removes a collaborator grant by its ID.
func (r *CollaboratorRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM collaborators WHERE id = $1`

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete collaborator: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("collaborator", id)
	}

	return nil
}

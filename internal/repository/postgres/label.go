package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Esha-Sharmaa/noting-backend/internal/domain"
	apperrors "github.com/Esha-Sharmaa/noting-backend/pkg/errors"
)

// LabelRepository implements repository.LabelRepository using PostgreSQL.
type LabelRepository struct {
	db DB
}

// NewLabelRepository creates a new PostgreSQL-backed label repository.
func NewLabelRepository(db DB) *LabelRepository {
	return &LabelRepository{db: db}
}

// Create inserts a new label into the database.
func (r *LabelRepository) Create(ctx context.Context, l *domain.Label) error {
	query := `
		INSERT INTO labels (id, user_id, name, created_at)
		VALUES ($1, $2, $3, $4)`

	_, err := r.db.Exec(ctx, query, l.ID, l.UserID, l.Name, l.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("label", "name", l.Name)
		}
		return fmt.Errorf("insert label: %w", err)
	}

	return nil
}

// GetByID retrieves a label by its ID.
func (r *LabelRepository) GetByID(ctx context.Context, id string) (*domain.Label, error) {
	query := `SELECT id, user_id, name, created_at FROM labels WHERE id = $1`

	var l domain.Label
	err := r.db.QueryRow(ctx, query, id).Scan(&l.ID, &l.UserID, &l.Name, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan label: %w", err)
	}

	return &l, nil
}

// ListByOwner returns all labels owned by the user, alphabetically.
func (r *LabelRepository) ListByOwner(ctx context.Context, userID string) ([]domain.Label, error) {
	query := `SELECT id, user_id, name, created_at FROM labels WHERE user_id = $1 ORDER BY name ASC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	defer rows.Close()

	labels := []domain.Label{}
	for rows.Next() {
		var l domain.Label
		if err := rows.Scan(&l.ID, &l.UserID, &l.Name, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan label row: %w", err)
		}
		labels = append(labels, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate label rows: %w", err)
	}

	return labels, nil
}

// Delete removes a label and its note links in a single transaction.
func (r *LabelRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM note_labels WHERE label_id = $1`, id); err != nil {
		return fmt.Errorf("delete label links: %w", err)
	}

	ct, err := tx.Exec(ctx, `DELETE FROM labels WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete label: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("label", id)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

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

const noteColumns = `id, user_id, title, content, type, image_url, list_items, is_pinned, is_archived, is_trashed, trashed_at, created_at, updated_at`

// NoteRepository implements repository.NoteRepository using PostgreSQL.
type NoteRepository struct {
	db DB
}

// NewNoteRepository creates a new PostgreSQL-backed note repository.
func NewNoteRepository(db DB) *NoteRepository {
	return &NoteRepository{db: db}
}

// Create inserts a new note into the database.
func (r *NoteRepository) Create(ctx context.Context, n *domain.Note) error {
	query := `
		INSERT INTO notes (id, user_id, title, content, type, image_url, list_items, is_pinned, is_archived, is_trashed, trashed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.Exec(ctx, query,
		n.ID,
		n.UserID,
		n.Title,
		n.Content,
		n.Type,
		n.ImageURL,
		n.ListItems,
		n.IsPinned,
		n.IsArchived,
		n.IsTrashed,
		n.TrashedAt,
		n.CreatedAt,
		n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}

	return nil
}

// GetByID retrieves a note with its labels attached.
func (r *NoteRepository) GetByID(ctx context.Context, id string) (*domain.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE id = $1`

	var n domain.Note
	err := r.db.QueryRow(ctx, query, id).Scan(
		&n.ID,
		&n.UserID,
		&n.Title,
		&n.Content,
		&n.Type,
		&n.ImageURL,
		&n.ListItems,
		&n.IsPinned,
		&n.IsArchived,
		&n.IsTrashed,
		&n.TrashedAt,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan note: %w", err)
	}

	labels, err := r.labelsForNote(ctx, n.ID)
	if err != nil {
		return nil, err
	}
	n.Labels = labels

	return &n, nil
}

// ListByOwner returns all non-trashed notes owned by the user, pinned first,
// newest first within each group. Labels are attached in a second query.
func (r *NoteRepository) ListByOwner(ctx context.Context, userID string) ([]*domain.Note, error) {
	query := `
		SELECT ` + noteColumns + `
		FROM notes
		WHERE user_id = $1 AND is_trashed = false
		ORDER BY is_pinned DESC, updated_at DESC`

	notes, err := r.queryNotes(ctx, query, userID)
	if err != nil {
		return nil, err
	}

	if err := r.attachLabels(ctx, notes); err != nil {
		return nil, err
	}

	return notes, nil
}

// ListSharedWith returns the notes visible to the user through collaborator
// grants, with the owner's sanitized profile and the granted permission.
func (r *NoteRepository) ListSharedWith(ctx context.Context, userID string) ([]domain.SharedNote, error) {
	query := `
		SELECT n.id, n.user_id, n.title, n.content, n.type, n.image_url, n.list_items,
		       n.is_pinned, n.is_archived, n.is_trashed, n.trashed_at, n.created_at, n.updated_at,
		       u.id, u.email, u.full_name, u.avatar_url,
		       c.permission
		FROM collaborators c
		JOIN notes n ON n.id = c.note_id
		JOIN users u ON u.id = n.user_id
		WHERE c.user_id = $1 AND n.is_trashed = false
		ORDER BY n.updated_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list shared notes: %w", err)
	}
	defer rows.Close()

	shared := []domain.SharedNote{}
	for rows.Next() {
		var s domain.SharedNote
		if err := rows.Scan(
			&s.Note.ID,
			&s.Note.UserID,
			&s.Note.Title,
			&s.Note.Content,
			&s.Note.Type,
			&s.Note.ImageURL,
			&s.Note.ListItems,
			&s.Note.IsPinned,
			&s.Note.IsArchived,
			&s.Note.IsTrashed,
			&s.Note.TrashedAt,
			&s.Note.CreatedAt,
			&s.Note.UpdatedAt,
			&s.Owner.ID,
			&s.Owner.Email,
			&s.Owner.FullName,
			&s.Owner.AvatarURL,
			&s.Permission,
		); err != nil {
			return nil, fmt.Errorf("scan shared note row: %w", err)
		}
		shared = append(shared, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shared note rows: %w", err)
	}

	return shared, nil
}

// ListTrashedBefore returns trashed notes whose trashed_at predates the cutoff.
func (r *NoteRepository) ListTrashedBefore(ctx context.Context, cutoff time.Time) ([]*domain.Note, error) {
	query := `
		SELECT ` + noteColumns + `
		FROM notes
		WHERE is_trashed = true AND trashed_at < $1
		ORDER BY trashed_at ASC`

	ctx, end := database.TraceQuery(ctx, "ListTrashedNotesBefore", query)
	notes, err := r.queryNotes(ctx, query, cutoff)
	end(err)
	return notes, err
}

// Update modifies an existing note in the database.
func (r *NoteRepository) Update(ctx context.Context, n *domain.Note) error {
	n.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE notes
		SET title = $1, content = $2, type = $3, image_url = $4, list_items = $5,
		    is_pinned = $6, is_archived = $7, is_trashed = $8, trashed_at = $9, updated_at = $10
		WHERE id = $11`

	ct, err := r.db.Exec(ctx, query,
		n.Title,
		n.Content,
		n.Type,
		n.ImageURL,
		n.ListItems,
		n.IsPinned,
		n.IsArchived,
		n.IsTrashed,
		n.TrashedAt,
		n.UpdatedAt,
		n.ID,
	)
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("note", n.ID)
	}

	return nil
}

// Delete removes a note together with its collaborator grants and label
// links in a single transaction.
func (r *NoteRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM collaborators WHERE note_id = $1`, id); err != nil {
		return fmt.Errorf("delete note collaborators: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM note_labels WHERE note_id = $1`, id); err != nil {
		return fmt.Errorf("delete note label links: %w", err)
	}

	ct, err := tx.Exec(ctx, `DELETE FROM notes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("note", id)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// AttachLabel links a label to a note. Attaching an already-attached label
// is a no-op.
func (r *NoteRepository) AttachLabel(ctx context.Context, noteID, labelID string) error {
	query := `
		INSERT INTO note_labels (note_id, label_id)
		VALUES ($1, $2)
		ON CONFLICT (note_id, label_id) DO NOTHING`

	_, err := r.db.Exec(ctx, query, noteID, labelID)
	if err != nil {
		return fmt.Errorf("attach label: %w", err)
	}

	return nil
}

// DetachLabel removes a label link from a note.
func (r *NoteRepository) DetachLabel(ctx context.Context, noteID, labelID string) error {
	query := `DELETE FROM note_labels WHERE note_id = $1 AND label_id = $2`

	ct, err := r.db.Exec(ctx, query, noteID, labelID)
	if err != nil {
		return fmt.Errorf("detach label: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("note label", labelID)
	}

	return nil
}

// queryNotes executes a query returning note rows.
func (r *NoteRepository) queryNotes(ctx context.Context, query string, args ...any) ([]*domain.Note, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	notes := []*domain.Note{}
	for rows.Next() {
		var n domain.Note
		if err := rows.Scan(
			&n.ID,
			&n.UserID,
			&n.Title,
			&n.Content,
			&n.Type,
			&n.ImageURL,
			&n.ListItems,
			&n.IsPinned,
			&n.IsArchived,
			&n.IsTrashed,
			&n.TrashedAt,
			&n.CreatedAt,
			&n.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan note row: %w", err)
		}
		notes = append(notes, &n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate note rows: %w", err)
	}

	return notes, nil
}

// labelsForNote loads the labels attached to a single note.
func (r *NoteRepository) labelsForNote(ctx context.Context, noteID string) ([]domain.Label, error) {
	query := `
		SELECT l.id, l.user_id, l.name, l.created_at
		FROM labels l
		JOIN note_labels nl ON nl.label_id = l.id
		WHERE nl.note_id = $1
		ORDER BY l.name ASC`

	rows, err := r.db.Query(ctx, query, noteID)
	if err != nil {
		return nil, fmt.Errorf("query note labels: %w", err)
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

// attachLabels loads label links for a batch of notes with one query.
func (r *NoteRepository) attachLabels(ctx context.Context, notes []*domain.Note) error {
	if len(notes) == 0 {
		return nil
	}

	ids := make([]string, 0, len(notes))
	byID := make(map[string]*domain.Note, len(notes))
	for _, n := range notes {
		ids = append(ids, n.ID)
		byID[n.ID] = n
		n.Labels = []domain.Label{}
	}

	query := `
		SELECT nl.note_id, l.id, l.user_id, l.name, l.created_at
		FROM note_labels nl
		JOIN labels l ON l.id = nl.label_id
		WHERE nl.note_id = ANY($1)
		ORDER BY l.name ASC`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("query note labels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var noteID string
		var l domain.Label
		if err := rows.Scan(&noteID, &l.ID, &l.UserID, &l.Name, &l.CreatedAt); err != nil {
			return fmt.Errorf("scan label row: %w", err)
		}
		if n, ok := byID[noteID]; ok {
			n.Labels = append(n.Labels, l)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate label rows: %w", err)
	}

	return nil
}

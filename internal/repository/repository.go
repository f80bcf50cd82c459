package repository

import (
	"context"
	"time"

	"github.com/Esha-Sharmaa/noting-backend/internal/domain"
)

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user into the store.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetByOAuthID retrieves a user by their OAuth provider subject id.
	GetByOAuthID(ctx context.Context, oauthID string) (*domain.User, error)

	// Update modifies an existing user in the store.
	Update(ctx context.Context, user *domain.User) error

	// UpdateRefreshToken overwrites the user's stored refresh token. An empty
	// token clears it. Each user holds at most one live refresh token.
	UpdateRefreshToken(ctx context.Context, userID, token string) error

	// RotateRefreshToken atomically replaces the stored refresh token, but
	// only when the stored value still equals current. Returns ErrNotFound
	// when it does not, which callers treat as a replayed or revoked token.
	RotateRefreshToken(ctx context.Context, userID, current, next string) error

	// Delete removes a user from the store by their identifier.
	Delete(ctx context.Context, id string) error
}

// NoteRepository defines the interface for note persistence operations.
type NoteRepository interface {
	// Create inserts a new note into the store.
	Create(ctx context.Context, note *domain.Note) error

	// GetByID retrieves a note with its labels attached.
	GetByID(ctx context.Context, id string) (*domain.Note, error)

	// ListByOwner returns all non-trashed notes owned by the user,
	// pinned notes first, newest first within each group.
	ListByOwner(ctx context.Context, userID string) ([]*domain.Note, error)

	// ListSharedWith returns the notes the user can see through
	// collaborator grants, with the owner profile and permission.
	ListSharedWith(ctx context.Context, userID string) ([]domain.SharedNote, error)

	// ListTrashedBefore returns trashed notes whose trashed_at predates the cutoff.
	ListTrashedBefore(ctx context.Context, cutoff time.Time) ([]*domain.Note, error)

	// Update modifies an existing note in the store.
	Update(ctx context.Context, note *domain.Note) error

	// Delete removes a note and its collaborator grants and label links.
	Delete(ctx context.Context, id string) error

	// AttachLabel links a label to a note (idempotent).
	AttachLabel(ctx context.Context, noteID, labelID string) error

	// DetachLabel removes a label link from a note.
	DetachLabel(ctx context.Context, noteID, labelID string) error
}

// LabelRepository defines the interface for label persistence operations.
type LabelRepository interface {
	// Create inserts a new label into the store.
	Create(ctx context.Context, label *domain.Label) error

	// GetByID retrieves a label by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Label, error)

	// ListByOwner returns all labels owned by the user.
	ListByOwner(ctx context.Context, userID string) ([]domain.Label, error)

	// Delete removes a label and its note links.
	Delete(ctx context.Context, id string) error
}

// CollaboratorRepository defines the interface for collaborator grant
// persistence operations.
type CollaboratorRepository interface {
	// Create inserts a new collaborator grant.
	Create(ctx context.Context, collab *domain.Collaborator) error

	// GetByID retrieves a grant by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Collaborator, error)

	// ListByNote returns all grants on a note with the collaborating
	// users' sanitized profiles attached.
	ListByNote(ctx context.Context, noteID string) ([]domain.Collaborator, error)

	// Exists checks whether the user already holds a grant on the note.
	Exists(ctx context.Context, noteID, userID string) (bool, error)

	// Delete removes a grant by its unique identifier.
	Delete(ctx context.Context, id string) error
}

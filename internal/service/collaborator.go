package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Esha-Sharmaa/noting-backend/internal/domain"
	"github.com/Esha-Sharmaa/noting-backend/internal/repository"
	apperrors "github.com/Esha-Sharmaa/noting-backend/pkg/errors"
)

// CollaboratorService implements collaborator grant management. Only a
// note's owner can add or remove grants.
type CollaboratorService struct {
	collabRepo repository.CollaboratorRepository
	noteRepo   repository.NoteRepository
	userRepo   repository.UserRepository
	logger     *slog.Logger
}

// NewCollaboratorService creates a new collaborator service.
func NewCollaboratorService(
	collabRepo repository.CollaboratorRepository,
	noteRepo repository.NoteRepository,
	userRepo repository.UserRepository,
	logger *slog.Logger,
) *CollaboratorService {
	return &CollaboratorService{
		collabRepo: collabRepo,
		noteRepo:   noteRepo,
		userRepo:   userRepo,
		logger:     logger,
	}
}

// AddCollaboratorInput holds the parameters for granting note access.
type AddCollaboratorInput struct {
	NoteID     string
	Email      string
	Permission string
}

// AddCollaborator grants a user access to a note the caller owns. The
// grantee is looked up by email; the owner cannot grant to themselves, and
// a user holds at most one grant per note.
func (s *CollaboratorService) AddCollaborator(ctx context.Context, userID string, input AddCollaboratorInput) (*domain.Collaborator, error) {
	if input.NoteID == "" {
		return nil, apperrors.InvalidInput("note id is required")
	}
	if input.Email == "" {
		return nil, apperrors.InvalidInput("collaborator email is required")
	}
	if input.Permission == "" {
		input.Permission = domain.PermissionView
	}
	if !domain.IsValidPermission(input.Permission) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid permission %q", input.Permission))
	}

	note, err := s.noteRepo.GetByID(ctx, input.NoteID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("note", input.NoteID)
		}
		return nil, fmt.Errorf("get note: %w", err)
	}
	if !note.IsOwnedBy(userID) {
		return nil, apperrors.Forbidden("only the note owner can add collaborators")
	}

	grantee, err := s.userRepo.GetByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("user", input.Email)
		}
		return nil, fmt.Errorf("get collaborator user: %w", err)
	}

	if grantee.ID == note.UserID {
		return nil, apperrors.Conflict("the note owner cannot be added as a collaborator")
	}

	exists, err := s.collabRepo.Exists(ctx, note.ID, grantee.ID)
	if err != nil {
		return nil, fmt.Errorf("check existing grant: %w", err)
	}
	if exists {
		return nil, apperrors.Conflict("user is already a collaborator on this note")
	}

	collab := &domain.Collaborator{
		ID:         uuid.New().String(),
		NoteID:     note.ID,
		UserID:     grantee.ID,
		Permission: input.Permission,
		CreatedAt:  time.Now().UTC(),
	}

	// The unique constraint on (note_id, user_id) backs the Exists check
	// against concurrent adds.
	if err := s.collabRepo.Create(ctx, collab); err != nil {
		return nil, fmt.Errorf("create collaborator: %w", err)
	}

	collab.User = sanitize(grantee)

	s.logger.InfoContext(ctx, "collaborator added",
		slog.String("note_id", note.ID),
		slog.String("owner_id", userID),
		slog.String("collaborator_id", grantee.ID),
	)

	return collab, nil
}

// RemoveCollaborator deletes a grant. The caller must own the note the
// grant references.
func (s *CollaboratorService) RemoveCollaborator(ctx context.Context, userID, collabID string) error {
	collab, err := s.collabRepo.GetByID(ctx, collabID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("collaborator", collabID)
		}
		return fmt.Errorf("get collaborator: %w", err)
	}

	note, err := s.noteRepo.GetByID(ctx, collab.NoteID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("note", collab.NoteID)
		}
		return fmt.Errorf("get note: %w", err)
	}
	if !note.IsOwnedBy(userID) {
		return apperrors.Forbidden("only the note owner can remove collaborators")
	}

	if err := s.collabRepo.Delete(ctx, collabID); err != nil {
		return fmt.Errorf("delete collaborator: %w", err)
	}

	s.logger.InfoContext(ctx, "collaborator removed",
		slog.String("note_id", note.ID),
		slog.String("owner_id", userID),
		slog.String("collaborator_id", collab.UserID),
	)

	return nil
}

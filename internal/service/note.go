package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Esha-Sharmaa/noting-backend/internal/domain"
	"github.com/Esha-Sharmaa/noting-backend/internal/event"
	"github.com/Esha-Sharmaa/noting-backend/internal/repository"
	"github.com/Esha-Sharmaa/noting-backend/internal/storage"
	apperrors "github.com/Esha-Sharmaa/noting-backend/pkg/errors"
)

// NoteService implements note CRUD, flag transitions, label links, and the
// trash purge. Every mutation is owner-only.
type NoteService struct {
	noteRepo   repository.NoteRepository
	labelRepo  repository.LabelRepository
	collabRepo repository.CollaboratorRepository
	store      storage.Storage
	producer   *event.Producer
	logger     *slog.Logger
}

// NewNoteService creates a new note service.
func NewNoteService(
	noteRepo repository.NoteRepository,
	labelRepo repository.LabelRepository,
	collabRepo repository.CollaboratorRepository,
	store storage.Storage,
	producer *event.Producer,
	logger *slog.Logger,
) *NoteService {
	return &NoteService{
		noteRepo:   noteRepo,
		labelRepo:  labelRepo,
		collabRepo: collabRepo,
		store:      store,
		producer:   producer,
		logger:     logger,
	}
}

// --- Input types ---

// NoteInput holds the parameters for creating or editing a note. Exactly one
// payload shape is persisted per type: content for text, an uploaded image
// for image, list items for list.
type NoteInput struct {
	Title     string
	Content   string
	Type      string
	ListItems []string
	Image     *storage.UploadInput
}

// NoteDetail is a note with its collaborator grants expanded.
type NoteDetail struct {
	Note          *domain.Note          `json:"note"`
	Collaborators []domain.Collaborator `json:"collaborators"`
}

// --- CRUD ---

// CreateNote creates a note owned by the caller.
func (s *NoteService) CreateNote(ctx context.Context, userID string, input NoteInput) (*domain.Note, error) {
	if err := validateNoteInput(&input); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	note := &domain.Note{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     input.Title,
		Type:      input.Type,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.applyContent(ctx, note, &input); err != nil {
		return nil, err
	}

	if err := s.noteRepo.Create(ctx, note); err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}

	s.logger.InfoContext(ctx, "note created",
		slog.String("note_id", note.ID),
		slog.String("user_id", userID),
		slog.String("type", note.Type),
	)

	return note, nil
}

// GetNote returns a note with labels and collaborator grants expanded.
// Visible to the owner and to collaborators.
func (s *NoteService) GetNote(ctx context.Context, userID, noteID string) (*NoteDetail, error) {
	note, err := s.noteRepo.GetByID(ctx, noteID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("note", noteID)
		}
		return nil, fmt.Errorf("get note: %w", err)
	}

	collabs, err := s.collabRepo.ListByNote(ctx, noteID)
	if err != nil {
		return nil, fmt.Errorf("list note collaborators: %w", err)
	}

	if !note.IsOwnedBy(userID) && !holdsGrant(collabs, userID) {
		return nil, apperrors.Forbidden("you do not have access to this note")
	}

	return &NoteDetail{Note: note, Collaborators: collabs}, nil
}

// ListNotes returns the caller's non-trashed notes, pinned first.
func (s *NoteService) ListNotes(ctx context.Context, userID string) ([]*domain.Note, error) {
	notes, err := s.noteRepo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

// ListSharedNotes returns the notes shared with the caller through
// collaborator grants.
func (s *NoteService) ListSharedNotes(ctx context.Context, userID string) ([]domain.SharedNote, error) {
	shared, err := s.noteRepo.ListSharedWith(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list shared notes: %w", err)
	}
	return shared, nil
}

// EditNote updates a note's title and typed content. Owner only.
func (s *NoteService) EditNote(ctx context.Context, userID, noteID string, input NoteInput) (*domain.Note, error) {
	if err := validateNoteInput(&input); err != nil {
		return nil, err
	}

	note, err := s.ownedNote(ctx, userID, noteID)
	if err != nil {
		return nil, err
	}

	note.Title = input.Title
	note.Type = input.Type
	note.Content = ""
	note.ListItems = nil
	if input.Image == nil && input.Type != domain.NoteTypeImage {
		note.ImageURL = ""
	}

	if err := s.applyContent(ctx, note, &input); err != nil {
		return nil, err
	}

	if err := s.noteRepo.Update(ctx, note); err != nil {
		return nil, fmt.Errorf("update note: %w", err)
	}

	s.logger.InfoContext(ctx, "note updated",
		slog.String("note_id", noteID),
		slog.String("user_id", userID),
	)

	return note, nil
}

// DeleteNote permanently removes a note, its grants, and its label links.
// Owner only.
func (s *NoteService) DeleteNote(ctx context.Context, userID, noteID string) error {
	if _, err := s.ownedNote(ctx, userID, noteID); err != nil {
		return err
	}

	if err := s.noteRepo.Delete(ctx, noteID); err != nil {
		return fmt.Errorf("delete note: %w", err)
	}

	s.logger.InfoContext(ctx, "note deleted",
		slog.String("note_id", noteID),
		slog.String("user_id", userID),
	)

	return nil
}

// --- Flag transitions ---

// ArchiveNote marks a note archived. Owner only.
func (s *NoteService) ArchiveNote(ctx context.Context, userID, noteID string) (*domain.Note, error) {
	return s.setFlags(ctx, userID, noteID, func(n *domain.Note) {
		n.IsArchived = true
	})
}

// UnarchiveNote clears the archived flag. Owner only.
func (s *NoteService) UnarchiveNote(ctx context.Context, userID, noteID string) (*domain.Note, error) {
	return s.setFlags(ctx, userID, noteID, func(n *domain.Note) {
		n.IsArchived = false
	})
}

// TrashNote moves a note to the trash and stamps the trash time. Owner only.
func (s *NoteService) TrashNote(ctx context.Context, userID, noteID string) (*domain.Note, error) {
	note, err := s.setFlags(ctx, userID, noteID, func(n *domain.Note) {
		now := time.Now().UTC()
		n.IsTrashed = true
		n.TrashedAt = &now
	})
	if err != nil {
		return nil, err
	}

	if err := s.producer.PublishNoteTrashed(ctx, note); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish note.trashed event",
			slog.String("note_id", note.ID),
			slog.String("error", err.Error()),
		)
	}

	return note, nil
}

// RestoreNote pulls a note back out of the trash. Owner only.
func (s *NoteService) RestoreNote(ctx context.Context, userID, noteID string) (*domain.Note, error) {
	return s.setFlags(ctx, userID, noteID, func(n *domain.Note) {
		n.IsTrashed = false
		n.TrashedAt = nil
	})
}

// PinNote marks a note pinned. Owner only.
func (s *NoteService) PinNote(ctx context.Context, userID, noteID string) (*domain.Note, error) {
	return s.setFlags(ctx, userID, noteID, func(n *domain.Note) {
		n.IsPinned = true
	})
}

// UnpinNote clears the pinned flag. Owner only.
func (s *NoteService) UnpinNote(ctx context.Context, userID, noteID string) (*domain.Note, error) {
	return s.setFlags(ctx, userID, noteID, func(n *domain.Note) {
		n.IsPinned = false
	})
}

// --- Label links ---

// AttachLabel links a label the caller owns to a note the caller owns.
func (s *NoteService) AttachLabel(ctx context.Context, userID, noteID, labelID string) (*domain.Note, error) {
	if _, err := s.ownedNote(ctx, userID, noteID); err != nil {
		return nil, err
	}

	label, err := s.labelRepo.GetByID(ctx, labelID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("label", labelID)
		}
		return nil, fmt.Errorf("get label: %w", err)
	}
	if label.UserID != userID {
		return nil, apperrors.Forbidden("you do not own this label")
	}

	if err := s.noteRepo.AttachLabel(ctx, noteID, labelID); err != nil {
		return nil, fmt.Errorf("attach label: %w", err)
	}

	note, err := s.noteRepo.GetByID(ctx, noteID)
	if err != nil {
		return nil, fmt.Errorf("reload note: %w", err)
	}

	return note, nil
}

// DetachLabel removes a label link from a note the caller owns.
func (s *NoteService) DetachLabel(ctx context.Context, userID, noteID, labelID string) error {
	if _, err := s.ownedNote(ctx, userID, noteID); err != nil {
		return err
	}

	if err := s.noteRepo.DetachLabel(ctx, noteID, labelID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("label", labelID)
		}
		return fmt.Errorf("detach label: %w", err)
	}

	return nil
}

// --- Trash purge ---

// PurgeTrashed permanently deletes notes trashed longer ago than the
// retention window. Failures on individual notes are logged and skipped so
// one bad row cannot stall the batch. Returns the number of notes purged.
func (s *NoteService) PurgeTrashed(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-retention)

	notes, err := s.noteRepo.ListTrashedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list expired trash: %w", err)
	}

	purged := 0
	for _, note := range notes {
		if err := s.noteRepo.Delete(ctx, note.ID); err != nil {
			s.logger.ErrorContext(ctx, "failed to purge trashed note",
				slog.String("note_id", note.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		if err := s.producer.PublishNotePurged(ctx, note); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish note.purged event",
				slog.String("note_id", note.ID),
				slog.String("error", err.Error()),
			)
		}

		purged++
	}

	if purged > 0 {
		s.logger.InfoContext(ctx, "trash purge completed",
			slog.Int("purged", purged),
			slog.Time("cutoff", cutoff),
		)
	}

	return purged, nil
}

// --- Helpers ---

// ownedNote loads a note and enforces the owner-only guard: unknown notes
// are NotFound, notes owned by someone else are Forbidden.
func (s *NoteService) ownedNote(ctx context.Context, userID, noteID string) (*domain.Note, error) {
	note, err := s.noteRepo.GetByID(ctx, noteID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("note", noteID)
		}
		return nil, fmt.Errorf("get note: %w", err)
	}

	if !note.IsOwnedBy(userID) {
		return nil, apperrors.Forbidden("you do not own this note")
	}

	return note, nil
}

// setFlags loads an owned note, applies the mutation, and persists it.
func (s *NoteService) setFlags(ctx context.Context, userID, noteID string, mutate func(*domain.Note)) (*domain.Note, error) {
	note, err := s.ownedNote(ctx, userID, noteID)
	if err != nil {
		return nil, err
	}

	mutate(note)

	if err := s.noteRepo.Update(ctx, note); err != nil {
		return nil, fmt.Errorf("update note: %w", err)
	}

	return note, nil
}

// applyContent persists the typed payload onto the note, uploading the
// image for image notes.
func (s *NoteService) applyContent(ctx context.Context, note *domain.Note, input *NoteInput) error {
	switch input.Type {
	case domain.NoteTypeText:
		note.Content = input.Content
	case domain.NoteTypeList:
		note.ListItems = input.ListItems
	case domain.NoteTypeImage:
		if input.Image != nil {
			input.Image.Key = fmt.Sprintf("notes/%s/%s", note.ID, input.Image.Key)
			result, err := s.store.Upload(ctx, input.Image)
			if err != nil {
				return fmt.Errorf("upload note image: %w", err)
			}
			note.ImageURL = result.URL
		}
		if note.ImageURL == "" {
			return apperrors.InvalidInput("an image file is required for image notes")
		}
	}
	return nil
}

// holdsGrant reports whether the user appears in the grant list.
func holdsGrant(collabs []domain.Collaborator, userID string) bool {
	for _, c := range collabs {
		if c.UserID == userID {
			return true
		}
	}
	return false
}

// validateNoteInput checks the shared invariants for create and edit.
func validateNoteInput(input *NoteInput) error {
	if input.Title == "" {
		return apperrors.InvalidInput("title is required")
	}
	if input.Type == "" {
		input.Type = domain.NoteTypeText
	}
	if !domain.IsValidNoteType(input.Type) {
		return apperrors.InvalidInput(fmt.Sprintf("invalid note type %q", input.Type))
	}
	if input.Type == domain.NoteTypeList && len(input.ListItems) == 0 {
		return apperrors.InvalidInput("list notes require at least one item")
	}
	return nil
}

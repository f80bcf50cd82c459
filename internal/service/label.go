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

// LabelService implements label management. Labels are private to their
// owner; deleting one detaches it everywhere.
type LabelService struct {
	labelRepo repository.LabelRepository
	logger    *slog.Logger
}

// NewLabelService creates a new label service.
func NewLabelService(labelRepo repository.LabelRepository, logger *slog.Logger) *LabelService {
	return &LabelService{
		labelRepo: labelRepo,
		logger:    logger,
	}
}

// CreateLabel creates a label owned by the caller. Duplicate names per
// owner are rejected with a conflict.
func (s *LabelService) CreateLabel(ctx context.Context, userID, name string) (*domain.Label, error) {
	if name == "" {
		return nil, apperrors.InvalidInput("label name is required")
	}

	label := &domain.Label{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.labelRepo.Create(ctx, label); err != nil {
		return nil, fmt.Errorf("create label: %w", err)
	}

	s.logger.InfoContext(ctx, "label created",
		slog.String("label_id", label.ID),
		slog.String("user_id", userID),
	)

	return label, nil
}

// ListLabels returns the caller's labels.
func (s *LabelService) ListLabels(ctx context.Context, userID string) ([]domain.Label, error) {
	labels, err := s.labelRepo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	return labels, nil
}

// DeleteLabel removes a label the caller owns, along with its note links.
func (s *LabelService) DeleteLabel(ctx context.Context, userID, labelID string) error {
	label, err := s.labelRepo.GetByID(ctx, labelID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("label", labelID)
		}
		return fmt.Errorf("get label: %w", err)
	}

	if label.UserID != userID {
		return apperrors.Forbidden("you do not own this label")
	}

	if err := s.labelRepo.Delete(ctx, labelID); err != nil {
		return fmt.Errorf("delete label: %w", err)
	}

	s.logger.InfoContext(ctx, "label deleted",
		slog.String("label_id", labelID),
		slog.String("user_id", userID),
	)

	return nil
}

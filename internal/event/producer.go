package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Esha-Sharmaa/noting-backend/internal/domain"
	pkgkafka "github.com/Esha-Sharmaa/noting-backend/pkg/kafka"
)

// Kafka topic constants for domain events.
const (
	TopicUserRegistered = "noting.user.registered"
	TopicNoteTrashed    = "noting.note.trashed"
	TopicNotePurged     = "noting.note.purged"
)

// Aggregate type constants.
const (
	AggregateTypeUser = "user"
	AggregateTypeNote = "note"
)

// Source identifier for events originating from this service.
const SourceNotingBackend = "noting-backend"

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// NoteTrashedData is the payload for a note.trashed event.
type NoteTrashedData struct {
	NoteID    string `json:"note_id"`
	UserID    string `json:"user_id"`
	TrashedAt string `json:"trashed_at"`
}

// NotePurgedData is the payload for a note.purged event.
type NotePurgedData struct {
	NoteID string `json:"note_id"`
	UserID string `json:"user_id"`
}

// Producer publishes domain events to Kafka. Publishing is best-effort:
// callers log failures and carry on rather than failing the request.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new domain event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	data := UserRegisteredData{
		ID:       user.ID,
		Email:    user.Email,
		FullName: user.FullName,
	}

	event, err := pkgkafka.NewEvent(TopicUserRegistered, user.ID, AggregateTypeUser, SourceNotingBackend, data)
	if err != nil {
		return fmt.Errorf("create user.registered event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserRegistered, event); err != nil {
		return fmt.Errorf("publish user.registered event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.registered event",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return nil
}

// PublishNoteTrashed publishes a note.trashed event.
func (p *Producer) PublishNoteTrashed(ctx context.Context, note *domain.Note) error {
	data := NoteTrashedData{
		NoteID: note.ID,
		UserID: note.UserID,
	}
	if note.TrashedAt != nil {
		data.TrashedAt = note.TrashedAt.UTC().Format(time.RFC3339)
	}

	event, err := pkgkafka.NewEvent(TopicNoteTrashed, note.ID, AggregateTypeNote, SourceNotingBackend, data)
	if err != nil {
		return fmt.Errorf("create note.trashed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicNoteTrashed, event); err != nil {
		return fmt.Errorf("publish note.trashed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published note.trashed event",
		slog.String("note_id", note.ID),
		slog.String("user_id", note.UserID),
	)

	return nil
}

// PublishNotePurged publishes a note.purged event.
func (p *Producer) PublishNotePurged(ctx context.Context, note *domain.Note) error {
	data := NotePurgedData{
		NoteID: note.ID,
		UserID: note.UserID,
	}

	event, err := pkgkafka.NewEvent(TopicNotePurged, note.ID, AggregateTypeNote, SourceNotingBackend, data)
	if err != nil {
		return fmt.Errorf("create note.purged event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicNotePurged, event); err != nil {
		return fmt.Errorf("publish note.purged event: %w", err)
	}

	p.logger.DebugContext(ctx, "published note.purged event",
		slog.String("note_id", note.ID),
		slog.String("user_id", note.UserID),
	)

	return nil
}

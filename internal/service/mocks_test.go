package service

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/Esha-Sharmaa/noting-backend/internal/auth"
	"github.com/Esha-Sharmaa/noting-backend/internal/domain"
	"github.com/Esha-Sharmaa/noting-backend/internal/event"
	"github.com/Esha-Sharmaa/noting-backend/internal/storage/memory"
	pkgkafka "github.com/Esha-Sharmaa/noting-backend/pkg/kafka"
)

// --- Mock User Repository ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByOAuthID(ctx context.Context, oauthID string) (*domain.User, error) {
	args := m.Called(ctx, oauthID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) UpdateRefreshToken(ctx context.Context, userID, token string) error {
	args := m.Called(ctx, userID, token)
	return args.Error(0)
}

func (m *mockUserRepository) RotateRefreshToken(ctx context.Context, userID, current, next string) error {
	args := m.Called(ctx, userID, current, next)
	return args.Error(0)
}

func (m *mockUserRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- Mock Note Repository ---

type mockNoteRepository struct {
	mock.Mock
}

func (m *mockNoteRepository) Create(ctx context.Context, note *domain.Note) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}

func (m *mockNoteRepository) GetByID(ctx context.Context, id string) (*domain.Note, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Note), args.Error(1)
}

func (m *mockNoteRepository) ListByOwner(ctx context.Context, userID string) ([]*domain.Note, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Note), args.Error(1)
}

func (m *mockNoteRepository) ListSharedWith(ctx context.Context, userID string) ([]domain.SharedNote, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SharedNote), args.Error(1)
}

func (m *mockNoteRepository) ListTrashedBefore(ctx context.Context, cutoff time.Time) ([]*domain.Note, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Note), args.Error(1)
}

func (m *mockNoteRepository) Update(ctx context.Context, note *domain.Note) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}

func (m *mockNoteRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockNoteRepository) AttachLabel(ctx context.Context, noteID, labelID string) error {
	args := m.Called(ctx, noteID, labelID)
	return args.Error(0)
}

func (m *mockNoteRepository) DetachLabel(ctx context.Context, noteID, labelID string) error {
	args := m.Called(ctx, noteID, labelID)
	return args.Error(0)
}

// --- Mock Label Repository ---

type mockLabelRepository struct {
	mock.Mock
}

func (m *mockLabelRepository) Create(ctx context.Context, label *domain.Label) error {
	args := m.Called(ctx, label)
	return args.Error(0)
}

func (m *mockLabelRepository) GetByID(ctx context.Context, id string) (*domain.Label, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Label), args.Error(1)
}

func (m *mockLabelRepository) ListByOwner(ctx context.Context, userID string) ([]domain.Label, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Label), args.Error(1)
}

func (m *mockLabelRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- Mock Collaborator Repository ---

type mockCollaboratorRepository struct {
	mock.Mock
}

func (m *mockCollaboratorRepository) Create(ctx context.Context, collab *domain.Collaborator) error {
	args := m.Called(ctx, collab)
	return args.Error(0)
}

func (m *mockCollaboratorRepository) GetByID(ctx context.Context, id string) (*domain.Collaborator, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Collaborator), args.Error(1)
}

func (m *mockCollaboratorRepository) ListByNote(ctx context.Context, noteID string) ([]domain.Collaborator, error) {
	args := m.Called(ctx, noteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Collaborator), args.Error(1)
}

func (m *mockCollaboratorRepository) Exists(ctx context.Context, noteID, userID string) (bool, error) {
	args := m.Called(ctx, noteID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockCollaboratorRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestJWTManager() *auth.JWTManager {
	return auth.NewJWTManager("test-access-secret-key", "test-refresh-secret-key", 15*time.Minute, 7*24*time.Hour)
}

func newTestEventProducer() *event.Producer {
	logger := newTestLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	kafkaProducer := pkgkafka.NewProducer(kafkaCfg, logger)
	return event.NewProducer(kafkaProducer, logger)
}

func newTestStorage(t *testing.T) *memory.Storage {
	t.Helper()
	return memory.New("http://localhost:8080")
}

package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Esha-Sharmaa/noting-backend/internal/auth"
	"github.com/Esha-Sharmaa/noting-backend/internal/domain"
	"github.com/Esha-Sharmaa/noting-backend/internal/event"
	"github.com/Esha-Sharmaa/noting-backend/internal/service"
	"github.com/Esha-Sharmaa/noting-backend/internal/storage/memory"
	"github.com/Esha-Sharmaa/noting-backend/pkg/health"
	pkgkafka "github.com/Esha-Sharmaa/noting-backend/pkg/kafka"
	"github.com/Esha-Sharmaa/noting-backend/pkg/middleware"
)

// ============================================================================
// Mock Repositories
// ============================================================================

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetByOAuthID(ctx context.Context, oauthID string) (*domain.User, error) {
	args := m.Called(ctx, oauthID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepo) UpdateRefreshToken(ctx context.Context, userID, token string) error {
	args := m.Called(ctx, userID, token)
	return args.Error(0)
}

func (m *mockUserRepo) RotateRefreshToken(ctx context.Context, userID, current, next string) error {
	args := m.Called(ctx, userID, current, next)
	return args.Error(0)
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockNoteRepo struct {
	mock.Mock
}

func (m *mockNoteRepo) Create(ctx context.Context, note *domain.Note) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}

func (m *mockNoteRepo) GetByID(ctx context.Context, id string) (*domain.Note, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Note), args.Error(1)
}

func (m *mockNoteRepo) ListByOwner(ctx context.Context, userID string) ([]*domain.Note, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Note), args.Error(1)
}

func (m *mockNoteRepo) ListSharedWith(ctx context.Context, userID string) ([]domain.SharedNote, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SharedNote), args.Error(1)
}

func (m *mockNoteRepo) ListTrashedBefore(ctx context.Context, cutoff time.Time) ([]*domain.Note, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Note), args.Error(1)
}

func (m *mockNoteRepo) Update(ctx context.Context, note *domain.Note) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}

func (m *mockNoteRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockNoteRepo) AttachLabel(ctx context.Context, noteID, labelID string) error {
	args := m.Called(ctx, noteID, labelID)
	return args.Error(0)
}

func (m *mockNoteRepo) DetachLabel(ctx context.Context, noteID, labelID string) error {
	args := m.Called(ctx, noteID, labelID)
	return args.Error(0)
}

type mockLabelRepo struct {
	mock.Mock
}

func (m *mockLabelRepo) Create(ctx context.Context, label *domain.Label) error {
	args := m.Called(ctx, label)
	return args.Error(0)
}

func (m *mockLabelRepo) GetByID(ctx context.Context, id string) (*domain.Label, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Label), args.Error(1)
}

func (m *mockLabelRepo) ListByOwner(ctx context.Context, userID string) ([]domain.Label, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Label), args.Error(1)
}

func (m *mockLabelRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockCollabRepo struct {
	mock.Mock
}

func (m *mockCollabRepo) Create(ctx context.Context, collab *domain.Collaborator) error {
	args := m.Called(ctx, collab)
	return args.Error(0)
}

func (m *mockCollabRepo) GetByID(ctx context.Context, id string) (*domain.Collaborator, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Collaborator), args.Error(1)
}

func (m *mockCollabRepo) ListByNote(ctx context.Context, noteID string) ([]domain.Collaborator, error) {
	args := m.Called(ctx, noteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Collaborator), args.Error(1)
}

func (m *mockCollabRepo) Exists(ctx context.Context, noteID, userID string) (bool, error) {
	args := m.Called(ctx, noteID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockCollabRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// ============================================================================
// Test Fixture
// ============================================================================

const testUserID = "550e8400-e29b-41d4-a716-446655440001"
const testNoteID = "550e8400-e29b-41d4-a716-446655440002"

func handlerTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func handlerTestEventProducer() *event.Producer {
	logger := handlerTestLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	kafkaProducer := pkgkafka.NewProducer(kafkaCfg, logger)
	return event.NewProducer(kafkaProducer, logger)
}

// routerFixture wires the full router over mocked repositories. Auth uses the
// real token path: tests mint an access token with the fixture's JWT manager
// and register a GetByID expectation for the caller.
type routerFixture struct {
	userRepo   *mockUserRepo
	noteRepo   *mockNoteRepo
	labelRepo  *mockLabelRepo
	collabRepo *mockCollabRepo
	store      *memory.Storage
	jwt        *auth.JWTManager
	router     http.Handler
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	logger := handlerTestLogger()
	producer := handlerTestEventProducer()
	jwtManager := auth.NewJWTManager("test-access-secret-key", "test-refresh-secret-key", 15*time.Minute, 7*24*time.Hour)
	store := memory.New("http://localhost:8080")

	f := &routerFixture{
		userRepo:   new(mockUserRepo),
		noteRepo:   new(mockNoteRepo),
		labelRepo:  new(mockLabelRepo),
		collabRepo: new(mockCollabRepo),
		store:      store,
		jwt:        jwtManager,
	}

	authService := service.NewAuthService(f.userRepo, jwtManager, store, producer, logger)
	noteService := service.NewNoteService(f.noteRepo, f.labelRepo, f.collabRepo, store, producer, logger)
	labelService := service.NewLabelService(f.labelRepo, logger)
	collabService := service.NewCollaboratorService(f.collabRepo, f.noteRepo, f.userRepo, logger)

	f.router = NewRouter(RouterConfig{
		AuthService:         authService,
		NoteService:         noteService,
		LabelService:        labelService,
		CollaboratorService: collabService,
		Store:               store,
		Health:              health.NewHandler(),
		Logger:              logger,
		CORS:                middleware.CORSConfig{AllowedOrigins: []string{"*"}, Environment: "development"},
		Cookies:             CookieConfig{},
		FrontendURL:         "http://localhost:5173",
	})

	return f
}

// actAsUser registers the live user lookup the auth middleware performs and
// returns a bearer token for the user.
func (f *routerFixture) actAsUser(t *testing.T, user *domain.User) string {
	t.Helper()
	f.userRepo.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	token, err := f.jwt.GenerateAccessToken(user.ID, user.Email, user.FullName)
	require.NoError(t, err)
	return token
}

func (f *routerFixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// multipartBody builds a multipart form with an optional file part and extra
// string fields, returning the body and its content type.
func multipartBody(t *testing.T, fileField, fileName, fileType string, fileData []byte, fields map[string]string) (io.Reader, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if fileField != "" {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fileField, fileName))
		hdr.Set("Content-Type", fileType)
		part, err := w.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write(fileData)
		require.NoError(t, err)
	}

	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	return &buf, w.FormDataContentType()
}

func sampleTestUser() *domain.User {
	now := time.Now().UTC()
	return &domain.User{
		ID:           testUserID,
		Email:        "esha@example.com",
		PasswordHash: "$2a$10$hashedpassword",
		FullName:     "Esha Sharma",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func sampleTestNote() *domain.Note {
	now := time.Now().UTC()
	return &domain.Note{
		ID:        testNoteID,
		UserID:    testUserID,
		Title:     "groceries",
		Content:   "milk and eggs",
		Type:      domain.NoteTypeText,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

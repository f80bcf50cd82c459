package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/Esha-Sharmaa/noting-backend/internal/storage"
	apperrors "github.com/Esha-Sharmaa/noting-backend/pkg/errors"
)

// fileEntry holds an uploaded file's bytes and metadata.
type fileEntry struct {
	Key         string
	ContentType string
	Data        []byte
	URL         string
}

// Storage implements storage.Storage using an in-memory map. Files are held
// in process memory and served back through the uploads route. Suitable for
// single-replica deployments and tests.
type Storage struct {
	mu      sync.RWMutex
	files   map[string]*fileEntry
	baseURL string
}

// New creates a new in-memory storage instance.
func New(baseURL string) *Storage {
	return &Storage{
		files:   make(map[string]*fileEntry),
		baseURL: baseURL,
	}
}

// Upload reads and stores the file bytes and returns the generated URL.
func (s *Storage) Upload(_ context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	data, err := io.ReadAll(input.Data)
	if err != nil {
		return nil, fmt.Errorf("read upload data: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	url := fmt.Sprintf("%s/uploads/%s", s.baseURL, input.Key)

	s.files[input.Key] = &fileEntry{
		Key:         input.Key,
		ContentType: input.ContentType,
		Data:        data,
		URL:         url,
	}

	return &storage.UploadResult{
		Key: input.Key,
		URL: url,
	}, nil
}

// Open returns a reader over the stored file bytes and its content type.
func (s *Storage) Open(_ context.Context, key string) (io.ReadCloser, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.files[key]
	if !exists {
		return nil, "", apperrors.NotFound("file", key)
	}

	return io.NopCloser(bytes.NewReader(entry.Data)), entry.ContentType, nil
}

// Delete removes a file from memory.
func (s *Storage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.files[key]; !exists {
		return apperrors.NotFound("file", key)
	}

	delete(s.files, key)
	return nil
}

// GetURL returns the URL for the given key.
func (s *Storage) GetURL(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.files[key]
	if !exists {
		return "", apperrors.NotFound("file", key)
	}

	return entry.URL, nil
}

package queue_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kiranshivaraju/mediaqueue/internal/store"
	"github.com/kiranshivaraju/mediaqueue/pkg/models"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory FileSource + ResultStore.
type fakeStore struct {
	mu    sync.Mutex
	files map[int64]*models.File
	meta  map[int64]*models.FileMetadata

	getErr      error
	startErr    error
	completeErr error

	started   []int64
	completed []int64
	failed    map[int64]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		files:  make(map[int64]*models.File),
		meta:   make(map[int64]*models.FileMetadata),
		failed: make(map[int64]string),
	}
}

func (s *fakeStore) addFile(f models.File) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[f.ID] = &f
}

func (s *fakeStore) GetFile(_ context.Context, id int64) (*models.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	f, ok := s.files[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (s *fakeStore) MarkProcessingStarted(_ context.Context, fileID int64, batchID string, startedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return s.startErr
	}
	status := models.StatusProcessing
	s.meta[fileID] = &models.FileMetadata{
		FileID:              fileID,
		BatchID:             &batchID,
		ProcessingStatus:    &status,
		ProcessingStartedAt: &startedAt,
	}
	s.started = append(s.started, fileID)
	return nil
}

func (s *fakeStore) MarkProcessingCompleted(_ context.Context, fileID int64, result models.ProcessingResult, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completeErr != nil {
		return s.completeErr
	}
	m, ok := s.meta[fileID]
	if !ok || *m.ProcessingStatus != models.StatusProcessing {
		return store.ErrInvalidTransition
	}
	status := models.StatusCompleted
	transcript := result.Transcript
	score := result.Sentiment.Compound
	m.ProcessingStatus = &status
	m.Transcript = &transcript
	m.SentimentScore = &score
	m.Entities = result.Entities
	m.Speakers = result.Speakers
	m.ProcessingCompletedAt = &completedAt
	s.completed = append(s.completed, fileID)
	return nil
}

func (s *fakeStore) MarkProcessingFailed(_ context.Context, fileID int64, message string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := models.StatusFailed
	m, ok := s.meta[fileID]
	if !ok {
		m = &models.FileMetadata{FileID: fileID}
		s.meta[fileID] = m
	}
	m.ProcessingStatus = &status
	m.ProcessingError = &message
	m.ProcessingCompletedAt = nil
	s.failed[fileID] = message
	return nil
}

func (s *fakeStore) metadata(fileID int64) (models.FileMetadata, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meta[fileID]
	if !ok {
		return models.FileMetadata{}, false
	}
	return *m, true
}

func (s *fakeStore) failure(fileID int64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.failed[fileID]
	return msg, ok
}

func (s *fakeStore) startedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.started)
}

// fakeCache records invalidated file ids.
type fakeCache struct {
	mu          sync.Mutex
	invalidated []int64
}

func (c *fakeCache) InvalidateFileMetadata(_ context.Context, fileID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, fileID)
	return nil
}

func (c *fakeCache) ids() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int64(nil), c.invalidated...)
}

// fakeStarter counts Ensure calls without starting anything.
type fakeStarter struct {
	mu    sync.Mutex
	calls []int64
}

func (f *fakeStarter) Ensure(userID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, userID)
	return true
}

func (f *fakeStarter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func textFile(t *testing.T, id, userID int64, content string) models.File {
	t.Helper()
	return models.File{
		ID:       id,
		UserID:   userID,
		Filename: "notes.txt",
		Filepath: writeFile(t, "notes.txt", []byte(content)),
		Filetype: "txt",
	}
}

func audioFile(t *testing.T, id, userID int64) models.File {
	t.Helper()
	return models.File{
		ID:       id,
		UserID:   userID,
		Filename: "call.wav",
		Filepath: writeFile(t, "call.wav", []byte("RIFF")),
		Filetype: "wav",
	}
}

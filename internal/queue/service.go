package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/mediaqueue/internal/metrics"
	"github.com/kiranshivaraju/mediaqueue/internal/store"
	"github.com/kiranshivaraju/mediaqueue/pkg/models"
)

// FileSource resolves the files named in an enqueue request.
type FileSource interface {
	GetFile(ctx context.Context, id int64) (*models.File, error)
}

// WorkerStarter guarantees a live worker for a user.
type WorkerStarter interface {
	Ensure(userID int64) bool
}

// EnqueueResult describes one accepted batch.
type EnqueueResult struct {
	BatchID     string  `json:"batch_id"`
	QueuedFiles []int64 `json:"queued_files"`
}

// Service is the entry point for enqueueing batches and polling their status.
type Service struct {
	files    FileSource
	registry *Registry
	workers  WorkerStarter
	cache    MetadataCache
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a Service. cache may be nil.
func NewService(files FileSource, registry *Registry, workers WorkerStarter, cache MetadataCache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		files:    files,
		registry: registry,
		workers:  workers,
		cache:    cache,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Enqueue queues every file in fileIDs that exists and belongs to userID
// under a single new batch id. Unknown and foreign files are skipped. Each
// queued file has status queued before Enqueue returns.
func (s *Service) Enqueue(ctx context.Context, userID int64, fileIDs []int64) (EnqueueResult, error) {
	if len(fileIDs) == 0 {
		return EnqueueResult{}, fmt.Errorf("%w: file_ids must not be empty", ErrInvalidRequest)
	}

	seen := make(map[int64]bool, len(fileIDs))
	accepted := make([]*models.File, 0, len(fileIDs))
	for _, id := range fileIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		file, err := s.files.GetFile(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return EnqueueResult{}, fmt.Errorf("looking up file %d: %w", id, err)
		}
		if file.UserID != userID {
			continue
		}
		accepted = append(accepted, file)
	}

	result := EnqueueResult{BatchID: uuid.NewString(), QueuedFiles: make([]int64, 0, len(accepted))}
	if len(accepted) == 0 {
		return result, nil
	}

	queue, table := s.registry.GetOrCreate(userID)
	for _, file := range accepted {
		queuedAt := s.now()
		table.Set(file.ID, models.ProcessingStatus{
			Status:   models.StatusQueued,
			Progress: 0,
			BatchID:  result.BatchID,
			QueuedAt: &queuedAt,
		})
		queue.Push(models.WorkItem{File: *file, BatchID: result.BatchID})
		result.QueuedFiles = append(result.QueuedFiles, file.ID)

		if s.cache != nil {
			if err := s.cache.InvalidateFileMetadata(ctx, file.ID); err != nil {
				s.logger.Warn("invalidating cached metadata", "file_id", file.ID, "error", err)
			}
		}
	}
	metrics.ItemsEnqueuedTotal.Add(float64(len(accepted)))

	s.workers.Ensure(userID)

	s.logger.Info("batch enqueued",
		"user_id", userID,
		"batch_id", result.BatchID,
		"queued", len(result.QueuedFiles),
		"requested", len(fileIDs),
	)
	return result, nil
}

// Status returns a snapshot of every file status for userID. A user who
// never enqueued gets an empty map.
func (s *Service) Status(userID int64) map[int64]models.ProcessingStatus {
	_, table, ok := s.registry.Lookup(userID)
	if !ok {
		return map[int64]models.ProcessingStatus{}
	}
	return table.Snapshot()
}

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/mediaqueue/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")
var ErrInvalidTransition = errors.New("invalid processing status transition")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, user *models.User) error

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error

	CreateFile(ctx context.Context, file *models.File) error
	GetFile(ctx context.Context, id int64) (*models.File, error)
	ListFiles(ctx context.Context, userID int64) ([]*models.File, error)
	DeleteFile(ctx context.Context, id int64, userID int64) error

	GetFileMetadata(ctx context.Context, fileID int64) (*models.FileMetadata, error)
	MarkProcessingStarted(ctx context.Context, fileID int64, batchID string, startedAt time.Time) error
	MarkProcessingCompleted(ctx context.Context, fileID int64, result models.ProcessingResult, completedAt time.Time) error
	MarkProcessingFailed(ctx context.Context, fileID int64, message string, failedAt time.Time) error
}

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/mediaqueue/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Users ---

func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, email, created_at) VALUES ($1, $2, $3) RETURNING id`,
		user.Username, user.Email, user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// --- API Keys ---

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name, key_hash, key_prefix, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.Name, &k.KeyHash, &k.KeyPrefix,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, user_id, name, key_hash, key_prefix, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		key.ID, key.UserID, key.Name, key.KeyHash, key.KeyPrefix, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

// --- Files ---

func (s *PostgresStore) CreateFile(ctx context.Context, file *models.File) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO files (user_id, filename, filepath, filetype, size, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		file.UserID, file.Filename, file.Filepath, file.Filetype, file.Size, file.CreatedAt,
	).Scan(&file.ID)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetFile(ctx context.Context, id int64) (*models.File, error) {
	var f models.File
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, filename, filepath, COALESCE(filetype, ''), size, created_at
		 FROM files WHERE id = $1`, id,
	).Scan(&f.ID, &f.UserID, &f.Filename, &f.Filepath, &f.Filetype, &f.Size, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	return &f, nil
}

func (s *PostgresStore) ListFiles(ctx context.Context, userID int64) ([]*models.File, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, filename, filepath, COALESCE(filetype, ''), size, created_at
		 FROM files WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	files := []*models.File{}
	for rows.Next() {
		var f models.File
		if err := rows.Scan(&f.ID, &f.UserID, &f.Filename, &f.Filepath, &f.Filetype,
			&f.Size, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, &f)
	}
	return files, rows.Err()
}

func (s *PostgresStore) DeleteFile(ctx context.Context, id int64, userID int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM files WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- File Metadata ---

func (s *PostgresStore) GetFileMetadata(ctx context.Context, fileID int64) (*models.FileMetadata, error) {
	var m models.FileMetadata
	err := s.pool.QueryRow(ctx,
		`SELECT id, file_id, transcript, sentiment_score, entities, speakers, batch_id,
		        processing_status, processing_started_at, processing_completed_at,
		        processing_error, processed_at
		 FROM file_metadata WHERE file_id = $1`, fileID,
	).Scan(&m.ID, &m.FileID, &m.Transcript, &m.SentimentScore, &m.Entities, &m.Speakers,
		&m.BatchID, &m.ProcessingStatus, &m.ProcessingStartedAt, &m.ProcessingCompletedAt,
		&m.ProcessingError, &m.ProcessedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get file metadata: %w", err)
	}
	return &m, nil
}

// MarkProcessingStarted creates the metadata row on first attempt, or resets an
// existing one for reprocessing. Previous results stay until the new attempt completes.
func (s *PostgresStore) MarkProcessingStarted(ctx context.Context, fileID int64, batchID string, startedAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO file_metadata (file_id, batch_id, processing_status, processing_started_at, processed_at)
		 VALUES ($1, $2, $3, $4, $4)
		 ON CONFLICT (file_id) DO UPDATE SET
		   batch_id = EXCLUDED.batch_id,
		   processing_status = EXCLUDED.processing_status,
		   processing_started_at = EXCLUDED.processing_started_at,
		   processing_completed_at = NULL,
		   processing_error = NULL`,
		fileID, batchID, models.StatusProcessing, startedAt)
	if err != nil {
		return fmt.Errorf("mark processing started: %w", err)
	}
	return nil
}

// MarkProcessingCompleted stores the results. Only a row currently in
// processing may complete.
func (s *PostgresStore) MarkProcessingCompleted(ctx context.Context, fileID int64, result models.ProcessingResult, completedAt time.Time) error {
	entities := result.Entities
	if entities == nil {
		entities = []models.Entity{}
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE file_metadata SET
		   transcript = $2,
		   sentiment_score = $3,
		   entities = $4,
		   speakers = $5,
		   processing_status = $6,
		   processing_completed_at = $7,
		   processing_error = NULL,
		   processed_at = $7
		 WHERE file_id = $1 AND processing_status = $8`,
		fileID, result.Transcript, result.Sentiment.Compound, entities, result.Speakers,
		models.StatusCompleted, completedAt, models.StatusProcessing)
	if err != nil {
		return fmt.Errorf("mark processing completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: file %d is not processing", ErrInvalidTransition, fileID)
	}
	return nil
}

// MarkProcessingFailed records a failure. It upserts so a failure that happens
// before the start marker was written still leaves a durable record.
func (s *PostgresStore) MarkProcessingFailed(ctx context.Context, fileID int64, message string, failedAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO file_metadata (file_id, processing_status, processing_error, processed_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (file_id) DO UPDATE SET
		   processing_status = EXCLUDED.processing_status,
		   processing_error = EXCLUDED.processing_error,
		   processing_completed_at = NULL,
		   processed_at = EXCLUDED.processed_at`,
		fileID, models.StatusFailed, message, failedAt)
	if err != nil {
		return fmt.Errorf("mark processing failed: %w", err)
	}
	return nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

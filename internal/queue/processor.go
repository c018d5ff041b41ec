package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/kiranshivaraju/mediaqueue/internal/metrics"
	"github.com/kiranshivaraju/mediaqueue/pkg/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Progress checkpoints within one processing attempt.
const (
	progressStarted    = 0
	progressTranscript = 25
	progressSpeakers   = 50
	progressAnalyzed   = 75
	progressDone       = 100
)

// ResultStore persists processing transitions for a file.
type ResultStore interface {
	MarkProcessingStarted(ctx context.Context, fileID int64, batchID string, startedAt time.Time) error
	MarkProcessingCompleted(ctx context.Context, fileID int64, result models.ProcessingResult, completedAt time.Time) error
	MarkProcessingFailed(ctx context.Context, fileID int64, message string, failedAt time.Time) error
}

// MetadataCache drops cached file metadata once it is stale.
type MetadataCache interface {
	InvalidateFileMetadata(ctx context.Context, fileID int64) error
}

// Outcome statuses besides models.StatusCompleted and models.StatusFailed.
const (
	// OutcomeSkipped marks an item whose file was re-enqueued under a newer
	// batch before the item was dequeued.
	OutcomeSkipped = "skipped"
	// OutcomeInterrupted marks an item cut short by worker shutdown.
	OutcomeInterrupted = "interrupted"
)

// Outcome is the result of processing one work item.
type Outcome struct {
	Status string
	Result *models.ProcessingResult
	Err    error
}

// ItemProcessor processes a single work item for the queue owner userID,
// recording every transition in table.
type ItemProcessor interface {
	Process(ctx context.Context, userID int64, item models.WorkItem, table *StatusTable) Outcome
}

// Processor runs the analysis pipeline for one file: extract text (transcribe
// and diarize audio, or read a text file), then score sentiment and extract
// entities.
type Processor struct {
	executor    models.TaskExecutor
	store       ResultStore
	cache       MetadataCache
	taskTimeout time.Duration
	logger      *slog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewProcessor creates a Processor. cache may be nil. A zero taskTimeout
// leaves executor calls bounded only by ctx.
func NewProcessor(executor models.TaskExecutor, store ResultStore, cache MetadataCache, taskTimeout time.Duration, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		executor:    executor,
		store:       store,
		cache:       cache,
		taskTimeout: taskTimeout,
		logger:      logger,
		tracer:      otel.Tracer("github.com/kiranshivaraju/mediaqueue/internal/queue"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (p *Processor) Process(ctx context.Context, userID int64, item models.WorkItem, table *StatusTable) (out Outcome) {
	ctx, span := p.tracer.Start(ctx, "queue.process", trace.WithAttributes(
		attribute.Int64("user.id", userID),
		attribute.Int64("file.id", item.File.ID),
		attribute.String("file.type", item.File.Filetype),
		attribute.String("batch.id", item.BatchID),
	))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			metrics.PanicsRecoveredTotal.WithLabelValues("processor").Inc()
			out = p.fail(ctx, table, item, fmt.Errorf("panic while processing file %d: %v", item.File.ID, r), true)
		}
		span.SetAttributes(attribute.String("outcome", out.Status))
		if out.Err != nil {
			span.RecordError(out.Err)
			span.SetStatus(codes.Error, out.Err.Error())
		}
	}()

	if st, ok := table.Get(item.File.ID); ok && st.BatchID != item.BatchID {
		metrics.ItemsProcessedTotal.WithLabelValues(OutcomeSkipped).Inc()
		p.logger.Info("skipping superseded work item",
			"user_id", userID,
			"file_id", item.File.ID,
			"batch_id", item.BatchID,
			"current_batch_id", st.BatchID,
		)
		return Outcome{Status: OutcomeSkipped}
	}

	if item.File.UserID != userID {
		err := fmt.Errorf("%w: file %d is owned by user %d", ErrOwnershipMismatch, item.File.ID, item.File.UserID)
		return p.fail(ctx, table, item, err, false)
	}

	result, err := p.run(ctx, item, table)
	if err != nil {
		if ctx.Err() != nil {
			return p.interrupted(userID, item, err)
		}
		return p.fail(ctx, table, item, err, true)
	}

	completedAt := p.now()
	err = p.stage(ctx, "persist", false, func(ctx context.Context) error {
		return p.store.MarkProcessingCompleted(ctx, item.File.ID, result, completedAt)
	})
	if err != nil {
		if ctx.Err() != nil {
			return p.interrupted(userID, item, err)
		}
		return p.fail(ctx, table, item, fmt.Errorf("%w: %v", ErrPersistence, err), true)
	}
	p.invalidate(ctx, item.File.ID)

	p.transition(table, item, func(s *models.ProcessingStatus) {
		s.Status = models.StatusCompleted
		s.Progress = progressDone
		s.CompletedAt = &completedAt
		s.Results = &result
	})

	metrics.ItemsProcessedTotal.WithLabelValues(models.StatusCompleted).Inc()
	p.logger.Info("file processed",
		"user_id", userID,
		"file_id", item.File.ID,
		"batch_id", item.BatchID,
	)
	return Outcome{Status: models.StatusCompleted, Result: &result}
}

func (p *Processor) run(ctx context.Context, item models.WorkItem, table *StatusTable) (models.ProcessingResult, error) {
	file := item.File
	startedAt := p.now()
	if err := p.store.MarkProcessingStarted(ctx, file.ID, item.BatchID, startedAt); err != nil {
		return models.ProcessingResult{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	p.transition(table, item, func(s *models.ProcessingStatus) {
		s.Status = models.StatusProcessing
		s.Progress = progressStarted
		s.StartedAt = &startedAt
		s.CompletedAt = nil
		s.FailedAt = nil
		s.Error = ""
		s.Results = nil
	})

	var result models.ProcessingResult

	if file.IsAudio() {
		err := p.stage(ctx, "transcribe", true, func(ctx context.Context) error {
			text, err := p.executor.Transcribe(ctx, file.Filepath)
			result.Transcript = text
			return err
		})
		if err != nil {
			return result, err
		}
		p.setProgress(table, item, progressTranscript)

		err = p.stage(ctx, "diarize", true, func(ctx context.Context) error {
			speakers, err := p.executor.Diarize(ctx, file.Filepath)
			result.Speakers = speakers
			return err
		})
		if err != nil {
			return result, err
		}
	} else {
		err := p.stage(ctx, "read", false, func(context.Context) error {
			text, err := readText(file.Filepath)
			result.Transcript = text
			return err
		})
		if err != nil {
			return result, err
		}
	}
	p.setProgress(table, item, progressSpeakers)

	err := p.stage(ctx, "sentiment", true, func(ctx context.Context) error {
		scores, err := p.executor.AnalyzeSentiment(ctx, result.Transcript)
		result.Sentiment = scores
		return err
	})
	if err != nil {
		return result, err
	}

	err = p.stage(ctx, "entities", true, func(ctx context.Context) error {
		entities, err := p.executor.ExtractEntities(ctx, result.Transcript)
		result.Entities = entities
		return err
	})
	if err != nil {
		return result, err
	}
	if result.Entities == nil {
		result.Entities = []models.Entity{}
	}
	p.setProgress(table, item, progressAnalyzed)

	return result, nil
}

// stage runs fn inside a span and records its duration. Executor stages get
// the per-task deadline.
func (p *Processor) stage(ctx context.Context, name string, executorCall bool, fn func(context.Context) error) error {
	ctx, span := p.tracer.Start(ctx, "queue.stage."+name)
	defer span.End()

	if executorCall && p.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.taskTimeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx)
	metrics.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if err != nil && executorCall && errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, models.ErrExecutorTimeout) {
		err = fmt.Errorf("%w: %s: %v", models.ErrExecutorTimeout, name, err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (p *Processor) fail(ctx context.Context, table *StatusTable, item models.WorkItem, err error, persist bool) Outcome {
	failedAt := p.now()
	p.transition(table, item, func(s *models.ProcessingStatus) {
		s.Status = models.StatusFailed
		s.Error = err.Error()
		s.FailedAt = &failedAt
		s.Results = nil
	})

	if persist {
		// The failure record must outlive a cancelled worker context.
		wctx := context.WithoutCancel(ctx)
		if perr := p.store.MarkProcessingFailed(wctx, item.File.ID, err.Error(), failedAt); perr != nil {
			p.logger.Error("recording processing failure",
				"file_id", item.File.ID,
				"batch_id", item.BatchID,
				"error", perr,
			)
		}
		p.invalidate(wctx, item.File.ID)
	}

	metrics.ItemsProcessedTotal.WithLabelValues(models.StatusFailed).Inc()
	p.logger.Warn("file processing failed",
		"user_id", item.File.UserID,
		"file_id", item.File.ID,
		"batch_id", item.BatchID,
		"error", err,
	)
	return Outcome{Status: models.StatusFailed, Err: err}
}

// interrupted ends an item whose worker context was cancelled. Nothing is
// persisted, so the stored row keeps its last transition.
func (p *Processor) interrupted(userID int64, item models.WorkItem, err error) Outcome {
	metrics.ItemsProcessedTotal.WithLabelValues(OutcomeInterrupted).Inc()
	p.logger.Info("file processing interrupted",
		"user_id", userID,
		"file_id", item.File.ID,
		"batch_id", item.BatchID,
		"error", err,
	)
	return Outcome{Status: OutcomeInterrupted, Err: err}
}

// transition updates the file's entry unless a newer enqueue has replaced it.
func (p *Processor) transition(table *StatusTable, item models.WorkItem, fn func(*models.ProcessingStatus)) {
	table.Update(item.File.ID, func(s *models.ProcessingStatus) {
		if s.BatchID != item.BatchID {
			return
		}
		fn(s)
	})
}

func (p *Processor) setProgress(table *StatusTable, item models.WorkItem, progress int) {
	p.transition(table, item, func(s *models.ProcessingStatus) {
		if !s.IsTerminal() && progress > s.Progress {
			s.Progress = progress
		}
	})
}

func (p *Processor) invalidate(ctx context.Context, fileID int64) {
	if p.cache == nil {
		return
	}
	if err := p.cache.InvalidateFileMetadata(ctx, fileID); err != nil {
		p.logger.Warn("invalidating cached metadata", "file_id", fileID, "error", err)
	}
}

// readText loads a text file as UTF-8. A UTF-8 or UTF-16 byte order mark is
// honored and stripped; anything else must already be valid UTF-8.
func readText(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrReadFile, err)
	}

	decoded, _, err := transform.Bytes(unicode.BOMOverride(encoding.UTF8Validator), raw)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnsupportedEncoding, path, err)
	}
	return string(decoded), nil
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	mw "github.com/kiranshivaraju/mediaqueue/internal/api/middleware"
	"github.com/kiranshivaraju/mediaqueue/internal/api/response"
	"github.com/kiranshivaraju/mediaqueue/internal/queue"
	"github.com/kiranshivaraju/mediaqueue/pkg/models"
)

// BatchService defines the queue operations the process handlers depend on.
type BatchService interface {
	Enqueue(ctx context.Context, userID int64, fileIDs []int64) (queue.EnqueueResult, error)
	Status(userID int64) map[int64]models.ProcessingStatus
}

type enqueueRequest struct {
	FileIDs []int64 `json:"file_ids"`
}

type enqueueResponse struct {
	Message     string  `json:"message"`
	BatchID     string  `json:"batch_id"`
	QueuedFiles []int64 `json:"queued_files"`
}

// NewEnqueueHandler returns an http.HandlerFunc for POST /api/v1/process/batch.
func NewEnqueueHandler(svc BatchService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		var req enqueueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		result, err := svc.Enqueue(r.Context(), userID, req.FileIDs)
		if err != nil {
			if errors.Is(err, queue.ErrInvalidRequest) {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"file_ids must be a non-empty list", nil)
				return
			}
			slog.Error("enqueue batch", "user_id", userID, "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		response.Accepted(w, enqueueResponse{
			Message:     "Batch processing started",
			BatchID:     result.BatchID,
			QueuedFiles: result.QueuedFiles,
		})
	}
}

// NewStatusHandler returns an http.HandlerFunc for GET /api/v1/process/status.
// The body maps each of the caller's file ids to its latest processing status.
func NewStatusHandler(svc BatchService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}
		response.JSON(w, svc.Status(userID))
	}
}

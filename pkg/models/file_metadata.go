package models

import "time"

// FileMetadata holds the persisted analysis results and processing state for a file.
// There is at most one row per file; reprocessing mutates it in place.
type FileMetadata struct {
	ID                    int64                `db:"id"                      json:"id"`
	FileID                int64                `db:"file_id"                 json:"file_id"`
	Transcript            *string              `db:"transcript"              json:"transcript,omitempty"`
	SentimentScore        *float64             `db:"sentiment_score"         json:"sentiment_score,omitempty"`
	Entities              []Entity             `db:"entities"                json:"entities,omitempty"`
	Speakers              map[string][]float64 `db:"speakers"                json:"speakers"`
	BatchID               *string              `db:"batch_id"                json:"batch_id,omitempty"`
	ProcessingStatus      *string              `db:"processing_status"       json:"processing_status,omitempty"`
	ProcessingStartedAt   *time.Time           `db:"processing_started_at"   json:"processing_started_at,omitempty"`
	ProcessingCompletedAt *time.Time           `db:"processing_completed_at" json:"processing_completed_at,omitempty"`
	ProcessingError       *string              `db:"processing_error"        json:"processing_error,omitempty"`
	ProcessedAt           time.Time            `db:"processed_at"            json:"processed_at"`
}

// Package models contains shared data models used across the mediaqueue codebase.
package models

import (
	"context"
	"errors"
)

// Errors reported by TaskExecutor implementations.
var (
	ErrTranscription       = errors.New("transcription failed")
	ErrDiarization         = errors.New("diarization failed")
	ErrExecutorUnavailable = errors.New("task executor unavailable")
	ErrExecutorTimeout     = errors.New("task executor timeout")
	ErrInvalidResponse     = errors.New("task executor returned invalid response")
)

// TaskExecutor is the core interface that all analysis backends must implement.
// Never call a specific backend directly. Always inject this interface.
type TaskExecutor interface {
	// Transcribe converts the audio file at path into text.
	Transcribe(ctx context.Context, path string) (string, error)
	// Diarize maps each detected speaker label to the offsets (seconds) at which it speaks.
	Diarize(ctx context.Context, path string) (map[string][]float64, error)
	// AnalyzeSentiment scores the polarity of text.
	AnalyzeSentiment(ctx context.Context, text string) (SentimentScores, error)
	// ExtractEntities returns the named entities found in text, in document order.
	ExtractEntities(ctx context.Context, text string) ([]Entity, error)
	// Name returns the executor identifier (e.g., "remote", "mock").
	Name() string
}

// SentimentScores holds polarity scores for a transcript. Compound is the
// normalized aggregate in [-1, 1].
type SentimentScores struct {
	Neg      float64 `json:"neg"`
	Neu      float64 `json:"neu"`
	Pos      float64 `json:"pos"`
	Compound float64 `json:"compound"`
}

// Entity is a named entity span within a transcript.
type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

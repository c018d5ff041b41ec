package models

import "time"

const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// WorkItem is a single unit of queued work. It is consumed exactly once and
// never persisted on its own.
type WorkItem struct {
	File    File
	BatchID string
}

// ProcessingResult is the output of a successful pipeline run.
type ProcessingResult struct {
	Transcript string               `json:"transcript"`
	Sentiment  SentimentScores      `json:"sentiment"`
	Entities   []Entity             `json:"entities"`
	Speakers   map[string][]float64 `json:"speakers"`
}

// ProcessingStatus is the in-memory view of a file's progress through the
// pipeline. Clients poll it until status is completed or failed.
type ProcessingStatus struct {
	Status      string            `json:"status"`
	Progress    int               `json:"progress"`
	BatchID     string            `json:"batch_id,omitempty"`
	QueuedAt    *time.Time        `json:"queued_at,omitempty"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	FailedAt    *time.Time        `json:"failed_at,omitempty"`
	Error       string            `json:"error,omitempty"`
	Results     *ProcessingResult `json:"results,omitempty"`
}

// IsTerminal reports whether the status can only change through a new enqueue.
func (s ProcessingStatus) IsTerminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusFailed
}

// Clone returns a deep copy so callers never share mutable state with the status table.
func (s ProcessingStatus) Clone() ProcessingStatus {
	out := s
	out.QueuedAt = cloneTime(s.QueuedAt)
	out.StartedAt = cloneTime(s.StartedAt)
	out.CompletedAt = cloneTime(s.CompletedAt)
	out.FailedAt = cloneTime(s.FailedAt)
	if s.Results != nil {
		r := s.Results.Clone()
		out.Results = &r
	}
	return out
}

// Clone returns a deep copy of the result.
func (r ProcessingResult) Clone() ProcessingResult {
	out := r
	if r.Entities != nil {
		out.Entities = append([]Entity(nil), r.Entities...)
	}
	if r.Speakers != nil {
		out.Speakers = make(map[string][]float64, len(r.Speakers))
		for label, offsets := range r.Speakers {
			out.Speakers[label] = append([]float64(nil), offsets...)
		}
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

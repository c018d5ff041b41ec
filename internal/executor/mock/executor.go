package mock

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/kiranshivaraju/mediaqueue/pkg/models"
)

// MockExecutor satisfies models.TaskExecutor for development and tests.
type MockExecutor struct {
	Name_                string
	TranscribeFunc       func(ctx context.Context, path string) (string, error)
	DiarizeFunc          func(ctx context.Context, path string) (map[string][]float64, error)
	AnalyzeSentimentFunc func(ctx context.Context, text string) (models.SentimentScores, error)
	ExtractEntitiesFunc  func(ctx context.Context, text string) ([]models.Entity, error)
}

func (m *MockExecutor) Name() string { return m.Name_ }

func (m *MockExecutor) Transcribe(ctx context.Context, path string) (string, error) {
	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, path)
	}
	return "", nil
}

func (m *MockExecutor) Diarize(ctx context.Context, path string) (map[string][]float64, error) {
	if m.DiarizeFunc != nil {
		return m.DiarizeFunc(ctx, path)
	}
	return map[string][]float64{}, nil
}

func (m *MockExecutor) AnalyzeSentiment(ctx context.Context, text string) (models.SentimentScores, error) {
	if m.AnalyzeSentimentFunc != nil {
		return m.AnalyzeSentimentFunc(ctx, text)
	}
	return models.SentimentScores{}, nil
}

func (m *MockExecutor) ExtractEntities(ctx context.Context, text string) ([]models.Entity, error) {
	if m.ExtractEntitiesFunc != nil {
		return m.ExtractEntitiesFunc(ctx, text)
	}
	return []models.Entity{}, nil
}

// NewMockExecutor returns a MockExecutor with deterministic default responses.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{
		Name_: "mock",
		TranscribeFunc: func(_ context.Context, path string) (string, error) {
			return fmt.Sprintf("Mock transcript of %s", filepath.Base(path)), nil
		},
		DiarizeFunc: func(_ context.Context, _ string) (map[string][]float64, error) {
			return map[string][]float64{
				"speaker_0": {0, 0.064},
				"speaker_1": {1.28},
			}, nil
		},
		AnalyzeSentimentFunc: func(_ context.Context, _ string) (models.SentimentScores, error) {
			return models.SentimentScores{Neg: 0.1, Neu: 0.6, Pos: 0.3, Compound: 0.42}, nil
		},
		ExtractEntitiesFunc: func(_ context.Context, text string) ([]models.Entity, error) {
			if text == "" {
				return []models.Entity{}, nil
			}
			return []models.Entity{{Text: "Mock", Label: "ORG", Start: 0, End: 4}}, nil
		},
	}
}

// NewFailingExecutor returns a MockExecutor whose every call returns err.
func NewFailingExecutor(err error) *MockExecutor {
	return &MockExecutor{
		Name_: "mock-failing",
		TranscribeFunc: func(_ context.Context, _ string) (string, error) {
			return "", err
		},
		DiarizeFunc: func(_ context.Context, _ string) (map[string][]float64, error) {
			return nil, err
		},
		AnalyzeSentimentFunc: func(_ context.Context, _ string) (models.SentimentScores, error) {
			return models.SentimentScores{}, err
		},
		ExtractEntitiesFunc: func(_ context.Context, _ string) ([]models.Entity, error) {
			return nil, err
		},
	}
}

// NewBlockingExecutor returns a MockExecutor whose calls block until the context is done.
func NewBlockingExecutor() *MockExecutor {
	block := func(ctx context.Context) error {
		<-ctx.Done()
		return fmt.Errorf("%w: %v", models.ErrExecutorTimeout, ctx.Err())
	}
	return &MockExecutor{
		Name_: "mock-blocking",
		TranscribeFunc: func(ctx context.Context, _ string) (string, error) {
			return "", block(ctx)
		},
		DiarizeFunc: func(ctx context.Context, _ string) (map[string][]float64, error) {
			return nil, block(ctx)
		},
		AnalyzeSentimentFunc: func(ctx context.Context, _ string) (models.SentimentScores, error) {
			return models.SentimentScores{}, block(ctx)
		},
		ExtractEntitiesFunc: func(ctx context.Context, _ string) ([]models.Entity, error) {
			return nil, block(ctx)
		},
	}
}

// Compile-time check that MockExecutor implements TaskExecutor.
var _ models.TaskExecutor = (*MockExecutor)(nil)

// Package remote implements models.TaskExecutor against an analysis sidecar
// that exposes speech and text models over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/kiranshivaraju/mediaqueue/internal/config"
	"github.com/kiranshivaraju/mediaqueue/pkg/models"
)

// maxErrorBody bounds how much of a failed response body ends up in an error message.
const maxErrorBody = 512

// Executor implements models.TaskExecutor using the sidecar's HTTP API.
type Executor struct {
	baseURL string
	client  *http.Client
}

// NewExecutor creates a new remote executor.
func NewExecutor(cfg config.RemoteExecutorConfig) *Executor {
	return &Executor{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

func (e *Executor) Name() string { return "remote" }

func (e *Executor) Transcribe(ctx context.Context, path string) (string, error) {
	var resp transcribeResponse
	if err := e.postFile(ctx, "/v1/transcribe", path, models.ErrTranscription, &resp); err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (e *Executor) Diarize(ctx context.Context, path string) (map[string][]float64, error) {
	var resp diarizeResponse
	if err := e.postFile(ctx, "/v1/diarize", path, models.ErrDiarization, &resp); err != nil {
		return nil, err
	}
	if resp.Speakers == nil {
		return map[string][]float64{}, nil
	}
	return resp.Speakers, nil
}

func (e *Executor) AnalyzeSentiment(ctx context.Context, text string) (models.SentimentScores, error) {
	var resp models.SentimentScores
	if err := e.postJSON(ctx, "/v1/sentiment", textRequest{Text: text}, &resp); err != nil {
		return models.SentimentScores{}, err
	}
	if resp.Compound < -1 || resp.Compound > 1 {
		return models.SentimentScores{}, fmt.Errorf("%w: compound score %f out of range", models.ErrInvalidResponse, resp.Compound)
	}
	return resp, nil
}

func (e *Executor) ExtractEntities(ctx context.Context, text string) ([]models.Entity, error) {
	var resp entitiesResponse
	if err := e.postJSON(ctx, "/v1/entities", textRequest{Text: text}, &resp); err != nil {
		return nil, err
	}

	entities := make([]models.Entity, 0, len(resp.Entities))
	for _, ent := range resp.Entities {
		entities = append(entities, models.Entity{
			Text:  ent.Text,
			Label: ent.Label,
			Start: ent.StartChar,
			End:   ent.EndChar,
		})
	}
	return entities, nil
}

// postFile uploads the file at path as multipart form field "file".
// Non-2xx responses are reported as stageErr.
func (e *Executor) postFile(ctx context.Context, endpoint, path string, stageErr error, out any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %v", stageErr, path, err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("building multipart body: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("%w: reading %s: %v", stageErr, path, err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("building multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+endpoint, &body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return e.do(req, stageErr, out)
}

func (e *Executor) postJSON(ctx context.Context, endpoint string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return e.do(req, models.ErrInvalidResponse, out)
}

func (e *Executor) do(req *http.Request, statusErr error, out any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusBadGateway:
		return fmt.Errorf("%w: status %d", models.ErrExecutorUnavailable, resp.StatusCode)
	case resp.StatusCode == http.StatusGatewayTimeout:
		return fmt.Errorf("%w: status %d", models.ErrExecutorTimeout, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: status %d: %s", statusErr, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", models.ErrInvalidResponse, err)
	}
	return nil
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", models.ErrExecutorTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", models.ErrExecutorTimeout, err)
	}

	return fmt.Errorf("%w: %v", models.ErrExecutorUnavailable, err)
}

// --- Sidecar wire types ---

type textRequest struct {
	Text string `json:"text"`
}

type transcribeResponse struct {
	Text string `json:"text"`
}

type diarizeResponse struct {
	Speakers map[string][]float64 `json:"speakers"`
}

type entitiesResponse struct {
	Entities []sidecarEntity `json:"entities"`
}

type sidecarEntity struct {
	Text      string `json:"text"`
	Label     string `json:"label"`
	StartChar int    `json:"start_char"`
	EndChar   int    `json:"end_char"`
}

// Compile-time check that Executor implements TaskExecutor.
var _ models.TaskExecutor = (*Executor)(nil)

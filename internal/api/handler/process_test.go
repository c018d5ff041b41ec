package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	mw "github.com/kiranshivaraju/mediaqueue/internal/api/middleware"
	"github.com/kiranshivaraju/mediaqueue/internal/queue"
	"github.com/kiranshivaraju/mediaqueue/pkg/models"
)

// --- mock BatchService ---

type mockBatchService struct {
	enqueue func(userID int64, fileIDs []int64) (queue.EnqueueResult, error)
	status  map[int64]map[int64]models.ProcessingStatus
}

func (m *mockBatchService) Enqueue(_ context.Context, userID int64, fileIDs []int64) (queue.EnqueueResult, error) {
	return m.enqueue(userID, fileIDs)
}

func (m *mockBatchService) Status(userID int64) map[int64]models.ProcessingStatus {
	if s, ok := m.status[userID]; ok {
		return s
	}
	return map[int64]models.ProcessingStatus{}
}

// --- helpers ---

func withUser(r *http.Request, userID int64) *http.Request {
	return r.WithContext(mw.SetUserID(r.Context(), userID))
}

func enqueueReq(t *testing.T, body string, userID int64) *http.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/process/batch", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return withUser(r, userID)
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	env := struct {
		Data any `json:"data"`
	}{Data: v}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func errCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return env.Error.Code
}

// --- enqueue ---

func TestEnqueueHandler_Accepted(t *testing.T) {
	var gotUser int64
	var gotIDs []int64
	svc := &mockBatchService{enqueue: func(userID int64, ids []int64) (queue.EnqueueResult, error) {
		gotUser, gotIDs = userID, ids
		return queue.EnqueueResult{BatchID: "b-1", QueuedFiles: []int64{1}}, nil
	}}

	rec := httptest.NewRecorder()
	NewEnqueueHandler(svc).ServeHTTP(rec, enqueueReq(t, `{"file_ids":[1,2]}`, 10))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var data enqueueResponse
	decodeData(t, rec, &data)
	if data.Message != "Batch processing started" {
		t.Errorf("unexpected message: %q", data.Message)
	}
	if data.BatchID != "b-1" {
		t.Errorf("unexpected batch id: %q", data.BatchID)
	}
	if fmt.Sprint(data.QueuedFiles) != "[1]" {
		t.Errorf("unexpected queued files: %v", data.QueuedFiles)
	}
	if gotUser != 10 || fmt.Sprint(gotIDs) != "[1 2]" {
		t.Errorf("service called with user=%d ids=%v", gotUser, gotIDs)
	}
}

func TestEnqueueHandler_NothingQueuedStillAccepted(t *testing.T) {
	svc := &mockBatchService{enqueue: func(int64, []int64) (queue.EnqueueResult, error) {
		return queue.EnqueueResult{BatchID: "b-2", QueuedFiles: []int64{}}, nil
	}}

	rec := httptest.NewRecorder()
	NewEnqueueHandler(svc).ServeHTTP(rec, enqueueReq(t, `{"file_ids":[99]}`, 10))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"queued_files":[]`) {
		t.Errorf("queued_files must be an empty list: %s", rec.Body.String())
	}
}

func TestEnqueueHandler_InvalidJSON(t *testing.T) {
	svc := &mockBatchService{enqueue: func(int64, []int64) (queue.EnqueueResult, error) {
		t.Error("service must not be called")
		return queue.EnqueueResult{}, nil
	}}

	for _, body := range []string{`not json`, `{"file_ids":"1"}`, `{"file_ids":[1.5]}`} {
		rec := httptest.NewRecorder()
		NewEnqueueHandler(svc).ServeHTTP(rec, enqueueReq(t, body, 10))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestEnqueueHandler_EmptyList(t *testing.T) {
	svc := &mockBatchService{enqueue: func(int64, []int64) (queue.EnqueueResult, error) {
		return queue.EnqueueResult{}, fmt.Errorf("%w: file_ids must not be empty", queue.ErrInvalidRequest)
	}}

	rec := httptest.NewRecorder()
	NewEnqueueHandler(svc).ServeHTTP(rec, enqueueReq(t, `{"file_ids":[]}`, 10))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if code := errCode(t, rec); code != "INVALID_REQUEST" {
		t.Errorf("expected INVALID_REQUEST, got %s", code)
	}
}

func TestEnqueueHandler_StoreFailure(t *testing.T) {
	svc := &mockBatchService{enqueue: func(int64, []int64) (queue.EnqueueResult, error) {
		return queue.EnqueueResult{}, errors.New("db down")
	}}

	rec := httptest.NewRecorder()
	NewEnqueueHandler(svc).ServeHTTP(rec, enqueueReq(t, `{"file_ids":[1]}`, 10))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "db down") {
		t.Error("internal error details must not leak")
	}
}

func TestEnqueueHandler_MissingUser(t *testing.T) {
	svc := &mockBatchService{}
	r := httptest.NewRequest(http.MethodPost, "/api/v1/process/batch", strings.NewReader(`{"file_ids":[1]}`))

	rec := httptest.NewRecorder()
	NewEnqueueHandler(svc).ServeHTTP(rec, r)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

// --- status ---

func TestStatusHandler_KeyedByFileID(t *testing.T) {
	svc := &mockBatchService{status: map[int64]map[int64]models.ProcessingStatus{
		10: {
			1: {Status: models.StatusCompleted, Progress: 100, BatchID: "b-1"},
			2: {Status: models.StatusQueued, Progress: 0, BatchID: "b-1"},
		},
	}}

	rec := httptest.NewRecorder()
	r := withUser(httptest.NewRequest(http.MethodGet, "/api/v1/process/status", nil), 10)
	NewStatusHandler(svc).ServeHTTP(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var data map[string]models.ProcessingStatus
	decodeData(t, rec, &data)
	if len(data) != 2 {
		t.Fatalf("expected 2 entries, got %v", data)
	}
	if data["1"].Status != models.StatusCompleted || data["1"].Progress != 100 {
		t.Errorf("unexpected entry for file 1: %+v", data["1"])
	}
	if data["2"].Status != models.StatusQueued {
		t.Errorf("unexpected entry for file 2: %+v", data["2"])
	}
}

func TestStatusHandler_UnknownUserEmpty(t *testing.T) {
	svc := &mockBatchService{}

	rec := httptest.NewRecorder()
	r := withUser(httptest.NewRequest(http.MethodGet, "/api/v1/process/status", nil), 77)
	NewStatusHandler(svc).ServeHTTP(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"data":{}}` {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

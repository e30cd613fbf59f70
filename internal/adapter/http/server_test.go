package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"queuectl/internal/adapter/sqlite"
	"queuectl/internal/domain"
)

func setupTestServer(t *testing.T) (*Server, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("sqlite.New() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	svc := domain.NewService(store)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(svc, nil, ":0", 3, logger), store
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	srv, _ := setupTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestServer_Index(t *testing.T) {
	srv, _ := setupTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
}

func TestServer_Enqueue(t *testing.T) {
	srv, _ := setupTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/jobs", `{"id":"j1","command":"echo hi"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var resp jobResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.ID != "j1" || resp.State != "pending" {
		t.Errorf("response = %+v, want pending j1", resp)
	}
	if resp.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want configured default 3", resp.MaxRetries)
	}
}

func TestServer_Enqueue_Errors(t *testing.T) {
	srv, _ := setupTestServer(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", `{`, http.StatusBadRequest},
		{"missing command", `{"id":"j1"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodPost, "/api/jobs", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestServer_Enqueue_Duplicate(t *testing.T) {
	srv, _ := setupTestServer(t)

	if rec := doJSON(t, srv, http.MethodPost, "/api/jobs", `{"id":"j1","command":"echo hi"}`); rec.Code != http.StatusCreated {
		t.Fatalf("first enqueue status = %d", rec.Code)
	}
	rec := doJSON(t, srv, http.MethodPost, "/api/jobs", `{"id":"j1","command":"echo again"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestServer_GetJob(t *testing.T) {
	srv, _ := setupTestServer(t)
	doJSON(t, srv, http.MethodPost, "/api/jobs", `{"id":"j1","command":"echo hi"}`)

	rec := doJSON(t, srv, http.MethodGet, "/api/jobs/j1", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/jobs/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestServer_ListJobs(t *testing.T) {
	srv, _ := setupTestServer(t)
	doJSON(t, srv, http.MethodPost, "/api/jobs", `{"id":"j1","command":"echo 1"}`)
	doJSON(t, srv, http.MethodPost, "/api/jobs", `{"id":"j2","command":"echo 2"}`)

	rec := doJSON(t, srv, http.MethodGet, "/api/jobs", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp struct {
		Jobs []jobResponse `json:"jobs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Jobs) != 2 {
		t.Errorf("jobs = %d, want 2", len(resp.Jobs))
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/jobs?state=bogus", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bogus state status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestServer_Status(t *testing.T) {
	srv, _ := setupTestServer(t)
	doJSON(t, srv, http.MethodPost, "/api/jobs", `{"id":"j1","command":"echo hi"}`)

	rec := doJSON(t, srv, http.MethodGet, "/api/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp struct {
		ActiveWorkers int            `json:"active_workers"`
		Stats         map[string]int `json:"stats"`
		Total         int            `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Total != 1 || resp.Stats["pending"] != 1 {
		t.Errorf("response = %+v, want 1 pending job", resp)
	}
	if resp.ActiveWorkers != 0 {
		t.Errorf("active_workers = %d, want 0 without a pid file", resp.ActiveWorkers)
	}
}

func TestServer_DLQRetry(t *testing.T) {
	srv, store := setupTestServer(t)
	ctx := context.Background()

	// Drive a job into the dead letter queue.
	doJSON(t, srv, http.MethodPost, "/api/jobs", `{"id":"j1","command":"exit 1","max_retries":0}`)
	if _, err := store.ClaimNext(ctx); err != nil {
		t.Fatalf("ClaimNext() error = %v", err)
	}
	if _, err := store.RecordOutcome(ctx, "j1", domain.Failed("boom"), 2); err != nil {
		t.Fatalf("RecordOutcome() error = %v", err)
	}

	rec := doJSON(t, srv, http.MethodGet, "/api/dlq", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("dlq list status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"j1"`) {
		t.Errorf("dlq list missing job: %s", rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/dlq/j1/retry", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("retry status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp jobResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.State != "pending" || resp.Attempts != 0 {
		t.Errorf("retried job = %+v, want pending with 0 attempts", resp)
	}

	// Retrying a live job is a conflict; unknown ids are not found.
	rec = doJSON(t, srv, http.MethodPost, "/api/dlq/j1/retry", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("retry live job status = %d, want %d", rec.Code, http.StatusConflict)
	}
	rec = doJSON(t, srv, http.MethodPost, "/api/dlq/missing/retry", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("retry missing job status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

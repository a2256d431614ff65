package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/handpose/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "handpose-api-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() {
		os.RemoveAll(tmpDir)
	})

	dbPath := filepath.Join(tmpDir, "test.db")
	s, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func createRun(t *testing.T, s *store.Store, input string, started time.Time) *store.Run {
	t.Helper()
	run := &store.Run{Input: input, Mode: "video", Detector: "mock", StartedAt: started}
	if err := s.Runs().Create(run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}
	return run
}

func TestRunsHandler_List(t *testing.T) {
	s := newTestStore(t)
	handler := NewRunsHandler(s)

	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	createRun(t, s, "first.mp4", base)
	createRun(t, s, "second.mp4", base.Add(time.Minute))

	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var response listRunsResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(response.Runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(response.Runs))
	}
	if response.Runs[0].Input != "second.mp4" {
		t.Errorf("expected newest run first, got %s", response.Runs[0].Input)
	}
	if response.Runs[0].Status != "running" {
		t.Errorf("expected status running, got %s", response.Runs[0].Status)
	}
}

func TestRunsHandler_ListLimit(t *testing.T) {
	s := newTestStore(t)
	handler := NewRunsHandler(s)

	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		createRun(t, s, "clip.mp4", base.Add(time.Duration(i)*time.Second))
	}

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantRuns   int
	}{
		{name: "limit 1", query: "?limit=1", wantStatus: http.StatusOK, wantRuns: 1},
		{name: "no limit", query: "", wantStatus: http.StatusOK, wantRuns: 3},
		{name: "bad limit", query: "?limit=abc", wantStatus: http.StatusBadRequest},
		{name: "negative limit", query: "?limit=-2", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/runs"+tt.query, nil)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var response listRunsResponse
			if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if len(response.Runs) != tt.wantRuns {
				t.Errorf("expected %d runs, got %d", tt.wantRuns, len(response.Runs))
			}
		})
	}
}

func TestRunsHandler_Get(t *testing.T) {
	s := newTestStore(t)
	handler := NewRunsHandler(s)

	run := createRun(t, s, "clip.mp4", time.Now())
	dets := []store.DetectionRecord{{
		Label: "hand", Score: 0.98, X0: 1, Y0: 2, X1: 3, Y1: 4,
		Keypoints: []store.KeypointRecord{{Index: 0, X: 2, Y: 3, Score: 0.7}},
	}}
	if err := s.Detections().CreateFrame(run.ID, 5, dets); err != nil {
		t.Fatalf("failed to create frame: %v", err)
	}
	if err := s.Runs().Finish(run.ID, store.RunStatusCompleted, 6, nil); err != nil {
		t.Fatalf("failed to finish run: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/runs/"+run.ID, nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response runDetailResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.ID != run.ID {
		t.Errorf("expected ID %s, got %s", run.ID, response.ID)
	}
	if response.Status != "completed" || response.Frames != 6 {
		t.Errorf("unexpected status/frames %s/%d", response.Status, response.Frames)
	}
	if response.FinishedAt == nil {
		t.Error("expected finished_at to be set")
	}
	if len(response.Detections) != 1 || response.Detections[0].FrameIndex != 5 {
		t.Fatalf("unexpected detections %+v", response.Detections)
	}
	if len(response.Detections[0].Keypoints) != 1 {
		t.Errorf("expected 1 keypoint, got %d", len(response.Detections[0].Keypoints))
	}
}

func TestRunsHandler_GetNotFound(t *testing.T) {
	s := newTestStore(t)
	handler := NewRunsHandler(s)

	req := httptest.NewRequest(http.MethodGet, "/api/runs/non-existent-id", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}

	var response errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Error != "Run not found" {
		t.Errorf("expected error 'Run not found', got %q", response.Error)
	}
}

func TestRunsHandler_MethodNotAllowed(t *testing.T) {
	s := newTestStore(t)
	handler := NewRunsHandler(s)

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		req := httptest.NewRequest(method, "/api/runs", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
		}
	}
}

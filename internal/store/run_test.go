package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunRepository_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	repo := s.Runs()

	run := &Run{Input: "clip.mp4", Mode: "video", Detector: "custom_rcnn"}
	if err := repo.Create(run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	if run.ID == "" {
		t.Fatal("ID should be assigned on create")
	}
	if run.StartedAt.IsZero() {
		t.Error("StartedAt should be set on create")
	}
	if run.Status != RunStatusRunning {
		t.Errorf("Status = %q, want %q", run.Status, RunStatusRunning)
	}

	got, err := repo.GetByID(run.ID)
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if got.Input != "clip.mp4" || got.Mode != "video" || got.Detector != "custom_rcnn" {
		t.Errorf("unexpected run %+v", got)
	}
	if got.FinishedAt != nil {
		t.Error("FinishedAt should be nil for a running run")
	}
}

func TestRunRepository_Finish(t *testing.T) {
	s := newTestStore(t)
	repo := s.Runs()

	run := &Run{Input: "webcam:0", Mode: "webcam", Detector: "faster_rcnn"}
	if err := repo.Create(run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	if err := repo.Finish(run.ID, RunStatusFailed, 42, errors.New("read frame 42: camera unplugged")); err != nil {
		t.Fatalf("failed to finish run: %v", err)
	}

	got, err := repo.GetByID(run.ID)
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if got.Status != RunStatusFailed {
		t.Errorf("Status = %q, want %q", got.Status, RunStatusFailed)
	}
	if got.Frames != 42 {
		t.Errorf("Frames = %d, want 42", got.Frames)
	}
	if got.Error != "read frame 42: camera unplugged" {
		t.Errorf("Error = %q", got.Error)
	}
	if got.FinishedAt == nil {
		t.Error("FinishedAt should be set after finish")
	}
}

func TestRunRepository_NotFound(t *testing.T) {
	s := newTestStore(t)
	repo := s.Runs()

	if _, err := repo.GetByID("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
	if err := repo.Finish("missing", RunStatusCompleted, 0, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("Finish() error = %v, want ErrNotFound", err)
	}
}

func TestRunRepository_List(t *testing.T) {
	s := newTestStore(t)
	repo := s.Runs()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, input := range []string{"a.mp4", "b.mp4", "c.mp4"} {
		run := &Run{Input: input, Mode: "video", Detector: "mock", StartedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}
	}

	runs, err := repo.List(0)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}

	var inputs []string
	for _, r := range runs {
		inputs = append(inputs, r.Input)
	}
	if diff := cmp.Diff([]string{"c.mp4", "b.mp4", "a.mp4"}, inputs); diff != "" {
		t.Errorf("List() order mismatch (-want +got):\n%s", diff)
	}

	limited, err := repo.List(2)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("List(2) returned %d runs", len(limited))
	}
}

func TestDetectionRepository_CreateFrameAndList(t *testing.T) {
	s := newTestStore(t)

	run := &Run{Input: "clip.mp4", Mode: "video", Detector: "mock"}
	if err := s.Runs().Create(run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	repo := s.Detections()

	frame0 := []DetectionRecord{{
		Label: "hand", Score: 0.97,
		X0: 100, Y0: 100, X1: 300, Y1: 500,
		CenterX: 200, CenterY: 300, ScaleX: 1.875, ScaleY: 2.5,
		Keypoints: []KeypointRecord{
			{Index: 0, X: 200, Y: 480, Score: 0.9},
			{Index: 1, X: 220, Y: 450, Score: 0.8},
		},
	}}
	frame3 := []DetectionRecord{
		{Label: "hand", Score: 0.95, X0: 10, Y0: 10, X1: 20, Y1: 20},
		{Label: "hand", Score: 0.91, X0: 30, Y0: 30, X1: 40, Y1: 40},
	}

	if err := repo.CreateFrame(run.ID, 0, frame0); err != nil {
		t.Fatalf("failed to create frame 0: %v", err)
	}
	if err := repo.CreateFrame(run.ID, 3, frame3); err != nil {
		t.Fatalf("failed to create frame 3: %v", err)
	}
	if err := repo.CreateFrame(run.ID, 4, nil); err != nil {
		t.Fatalf("empty frame should be a no-op: %v", err)
	}

	if frame0[0].ID == 0 {
		t.Error("ID should be written back on create")
	}

	got, err := repo.ListByRun(run.ID)
	if err != nil {
		t.Fatalf("failed to list detections: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 detections, got %d", len(got))
	}

	if diff := cmp.Diff(frame0[0], got[0]); diff != "" {
		t.Errorf("frame 0 detection mismatch (-want +got):\n%s", diff)
	}
	if got[1].FrameIndex != 3 || got[2].FrameIndex != 3 {
		t.Errorf("frame indexes = %d, %d, want 3, 3", got[1].FrameIndex, got[2].FrameIndex)
	}
	if len(got[1].Keypoints) != 0 {
		t.Errorf("expected no keypoints, got %v", got[1].Keypoints)
	}

	n, err := repo.CountByRun(run.ID)
	if err != nil {
		t.Fatalf("failed to count detections: %v", err)
	}
	if n != 3 {
		t.Errorf("CountByRun() = %d, want 3", n)
	}
}

func TestDetectionRepository_CascadeOnRunDelete(t *testing.T) {
	s := newTestStore(t)

	run := &Run{Input: "hand.jpg", Mode: "image", Detector: "mock"}
	if err := s.Runs().Create(run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}
	dets := []DetectionRecord{{Label: "hand", Score: 0.99, X1: 1, Y1: 1, Keypoints: []KeypointRecord{{Index: 0}}}}
	if err := s.Detections().CreateFrame(run.ID, 0, dets); err != nil {
		t.Fatalf("failed to create frame: %v", err)
	}

	if _, err := s.DB().Exec(`DELETE FROM runs WHERE id = ?`, run.ID); err != nil {
		t.Fatalf("failed to delete run: %v", err)
	}

	var n int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM keypoints`).Scan(&n); err != nil {
		t.Fatalf("failed to count keypoints: %v", err)
	}
	if n != 0 {
		t.Errorf("expected keypoints to cascade, %d left", n)
	}
}

func TestDetectionRepository_UnknownRun(t *testing.T) {
	s := newTestStore(t)

	dets := []DetectionRecord{{Label: "hand", Score: 0.99}}
	if err := s.Detections().CreateFrame("missing", 0, dets); err == nil {
		t.Error("expected foreign key error for unknown run")
	}
}

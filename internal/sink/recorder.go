package sink

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/ayusman/handpose/internal/result"
	"github.com/ayusman/handpose/internal/store"
)

// Recorder persists each frame's poses into the run log. It does not own
// the run; the pipeline creates and finishes it.
type Recorder struct {
	store  *store.Store
	runID  string
	frames int
}

// NewRecorder records into runID.
func NewRecorder(s *store.Store, runID string) *Recorder {
	return &Recorder{store: s, runID: runID}
}

// Write stores every pose of r in one transaction. Frames without poses
// only advance the counter.
func (rec *Recorder) Write(frame *gocv.Mat, r *result.Frame) error {
	rec.frames++
	if len(r.Poses) == 0 {
		return nil
	}
	if err := rec.store.Detections().CreateFrame(rec.runID, r.Index, Records(r)); err != nil {
		return fmt.Errorf("record frame %d: %w", r.Index, err)
	}
	return nil
}

// Frames returns how many frames were seen.
func (rec *Recorder) Frames() int {
	return rec.frames
}

// Close is a no-op; the store outlives the recorder.
func (rec *Recorder) Close() error {
	return nil
}

// Records converts the poses of r into store rows.
func Records(r *result.Frame) []store.DetectionRecord {
	out := make([]store.DetectionRecord, 0, len(r.Poses))
	for _, p := range r.Poses {
		d := store.DetectionRecord{
			Label:   p.Detection.Label,
			Score:   p.Detection.Score,
			X0:      p.Detection.Box.X0,
			Y0:      p.Detection.Box.Y0,
			X1:      p.Detection.Box.X1,
			Y1:      p.Detection.Box.Y1,
			CenterX: p.Region.Center.X,
			CenterY: p.Region.Center.Y,
			ScaleX:  p.Region.Scale.X,
			ScaleY:  p.Region.Scale.Y,
		}
		for i, kp := range p.Keypoints {
			d.Keypoints = append(d.Keypoints, store.KeypointRecord{Index: i, X: kp.X, Y: kp.Y, Score: kp.Score})
		}
		out = append(out, d)
	}
	return out
}

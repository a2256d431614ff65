// Package detector provides the box detectors that run ahead of keypoint
// estimation, plus the filter that narrows their output to the target class.
package detector

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/ayusman/handpose/internal/geometry"
)

// Detection is one candidate box reported by a detector.
type Detection struct {
	ClassID int                  `json:"class_id"`
	Label   string               `json:"label"`
	Box     geometry.BoundingBox `json:"box"`
	Score   float64              `json:"score"`
}

// Detector defines the interface for detection backends.
type Detector interface {
	// Detect analyzes a BGR frame and returns every candidate box in frame
	// pixel coordinates, in the order the backend produced them.
	// Returns an empty slice if nothing was found.
	Detect(frame *gocv.Mat) ([]Detection, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Backend selects a detector implementation.
type Backend string

const (
	// BackendFasterRCNN is a stock COCO Faster R-CNN graph.
	BackendFasterRCNN Backend = "faster_rcnn"
	// BackendCustomRCNN is a fine-tuned R-CNN exported to ONNX.
	BackendCustomRCNN Backend = "custom_rcnn"
	// BackendMock returns canned detections.
	BackendMock Backend = "mock"
)

// Config holds configuration options for a detector backend.
type Config struct {
	Backend Backend

	// ModelPath is the weights file (.pb for faster_rcnn, .onnx for custom_rcnn).
	ModelPath string

	// ConfigPath is the optional graph description (.pbtxt for faster_rcnn).
	ConfigPath string

	// Classes maps custom_rcnn label ids to names. Index 0 is background.
	Classes []string

	// InputWidth and InputHeight resize frames before inference.
	// Zero keeps the frame's own size.
	InputWidth  int
	InputHeight int
}

// DefaultConfig returns a Config for the fine-tuned hand detector.
func DefaultConfig() Config {
	return Config{
		Backend:   BackendCustomRCNN,
		ModelPath: "models/hand_rcnn.onnx",
		Classes:   []string{"__background__", "hand"},
	}
}

// New creates the detector selected by cfg.Backend.
func New(cfg Config) (Detector, error) {
	switch cfg.Backend {
	case BackendFasterRCNN:
		return NewFasterRCNN(cfg)
	case BackendCustomRCNN:
		return NewCustomRCNN(cfg)
	case BackendMock:
		return NewMockDetector(), nil
	default:
		return nil, fmt.Errorf("unknown detector backend %q", cfg.Backend)
	}
}

// inputSize returns the blob size for a frame.
func (c Config) inputSize(frame *gocv.Mat) image.Point {
	if c.InputWidth > 0 && c.InputHeight > 0 {
		return image.Pt(c.InputWidth, c.InputHeight)
	}
	return image.Pt(frame.Cols(), frame.Rows())
}

func labelFor(classes []string, id int) string {
	if id < 0 || id >= len(classes) {
		return fmt.Sprintf("class_%d", id)
	}
	return classes[id]
}

// Package pose estimates keypoints inside a detected region. An Estimator
// works on a fixed-size patch; the Adapter crops that patch out of a frame
// and maps the answer back to frame pixels.
package pose

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Keypoint is one estimated joint. X and Y are pixels in whatever space the
// producer works in (patch space for an Estimator, frame space for Adapter).
type Keypoint struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Score float64 `json:"score"`
}

// Normalization holds per-channel statistics applied to [0,1] pixel values,
// in the patch's channel order.
type Normalization struct {
	Mean [3]float64 `json:"mean"`
	Std  [3]float64 `json:"std"`
}

// DefaultNormalization returns the ImageNet statistics the keypoint models
// were trained with.
func DefaultNormalization() Normalization {
	return Normalization{
		Mean: [3]float64{0.485, 0.456, 0.406},
		Std:  [3]float64{0.229, 0.224, 0.225},
	}
}

// Validate rejects a zero or negative standard deviation.
func (n Normalization) Validate() error {
	for i, s := range n.Std {
		if s <= 0 {
			return fmt.Errorf("normalization std[%d] must be positive, got %v", i, s)
		}
	}
	return nil
}

// Estimator defines the interface for keypoint backends.
type Estimator interface {
	// Estimate returns one keypoint per joint in patch pixel coordinates.
	Estimate(patch gocv.Mat, norm Normalization) ([]Keypoint, error)

	// Close releases any resources held by the estimator.
	Close() error
}

// Backend selects an estimator implementation.
type Backend string

const (
	BackendDNN     Backend = "dnn"
	BackendProcess Backend = "process"
	BackendMock    Backend = "mock"
)

// Config holds configuration options for keypoint estimation.
type Config struct {
	Backend Backend

	// ModelPath is the ONNX heatmap model used by the dnn backend.
	ModelPath string

	// ServiceCmd is the helper command line used by the process backend.
	ServiceCmd string

	// ImageWidth and ImageHeight are the network input (patch) size.
	ImageWidth  int
	ImageHeight int

	// HeatmapWidth and HeatmapHeight are the network output size.
	HeatmapWidth  int
	HeatmapHeight int

	NumJoints int

	// PostProcess enables the quarter-pixel shift toward the higher neighbour.
	PostProcess bool

	// ColorRGB converts patches to RGB before estimation.
	ColorRGB bool

	Normalization Normalization
}

// DefaultConfig returns a Config for a 21-joint hand model at 192x256.
func DefaultConfig() Config {
	return Config{
		Backend:       BackendDNN,
		ModelPath:     "models/pose_hrnet_hand.onnx",
		ServiceCmd:    "python3 scripts/pose_service.py",
		ImageWidth:    192,
		ImageHeight:   256,
		HeatmapWidth:  48,
		HeatmapHeight: 64,
		NumJoints:     21,
		PostProcess:   true,
		ColorRGB:      true,
		Normalization: DefaultNormalization(),
	}
}

// New creates the estimator selected by cfg.Backend.
func New(cfg Config) (Estimator, error) {
	switch cfg.Backend {
	case BackendDNN:
		return NewDNN(cfg)
	case BackendProcess:
		return NewProcess(cfg)
	case BackendMock:
		return NewMockEstimator(), nil
	default:
		return nil, fmt.Errorf("unknown pose backend %q", cfg.Backend)
	}
}

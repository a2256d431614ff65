package pose

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/handpose/internal/geometry"
)

// Adapter turns an Estimator into a frame-level predictor: it warps the
// region into a patch of the network input size, runs the estimator, and
// maps the keypoints back into frame pixels.
type Adapter struct {
	estimator Estimator
	width     int
	height    int
	colorRGB  bool
	norm      Normalization
}

// NewAdapter wraps est with the patch geometry from cfg.
func NewAdapter(est Estimator, cfg Config) *Adapter {
	return &Adapter{
		estimator: est,
		width:     cfg.ImageWidth,
		height:    cfg.ImageHeight,
		colorRGB:  cfg.ColorRGB,
		norm:      cfg.Normalization,
	}
}

// InputSize returns the patch size the estimator sees.
func (a *Adapter) InputSize() (int, int) {
	return a.width, a.height
}

// Predict estimates keypoints for region and returns them in frame pixels.
func (a *Adapter) Predict(frame *gocv.Mat, region geometry.Region) ([]Keypoint, error) {
	if frame == nil || frame.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	forward, err := geometry.AffineTransform(region, 0, a.width, a.height, false)
	if err != nil {
		return nil, fmt.Errorf("forward transform: %w", err)
	}
	inverse, err := forward.Invert()
	if err != nil {
		return nil, fmt.Errorf("inverse transform: %w", err)
	}

	m := affineMat(forward)
	defer m.Close()

	patch := gocv.NewMat()
	defer patch.Close()
	gocv.WarpAffineWithParams(*frame, &patch, m, image.Pt(a.width, a.height),
		gocv.InterpolationLinear, gocv.BorderConstant, color.RGBA{})

	if a.colorRGB {
		gocv.CvtColor(patch, &patch, gocv.ColorBGRToRGB)
	}

	kps, err := a.estimator.Estimate(patch, a.norm)
	if err != nil {
		return nil, fmt.Errorf("estimate: %w", err)
	}

	return mapKeypoints(kps, inverse), nil
}

// Close closes the wrapped estimator.
func (a *Adapter) Close() error {
	return a.estimator.Close()
}

// mapKeypoints applies t to each keypoint, keeping scores.
func mapKeypoints(kps []Keypoint, t geometry.Affine) []Keypoint {
	out := make([]Keypoint, len(kps))
	for i, kp := range kps {
		p := t.Apply(geometry.Point{X: kp.X, Y: kp.Y})
		out[i] = Keypoint{X: p.X, Y: p.Y, Score: kp.Score}
	}
	return out
}

func affineMat(a geometry.Affine) gocv.Mat {
	m := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	for r := 0; r < 2; r++ {
		for c := 0; c < 3; c++ {
			m.SetDoubleAt(r, c, a[r][c])
		}
	}
	return m
}

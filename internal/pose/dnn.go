package pose

import (
	"fmt"
	"image"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// DNN runs an ONNX heatmap model through OpenCV DNN. The model takes a
// normalized [1,3,H,W] patch and emits [1,K,h,w] heatmaps.
type DNN struct {
	net    gocv.Net
	config Config
	mu     sync.Mutex
}

// NewDNN loads the model at cfg.ModelPath.
func NewDNN(cfg Config) (*DNN, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load pose model from %s", cfg.ModelPath)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &DNN{net: net, config: cfg}, nil
}

// Estimate runs the model on patch and decodes its heatmaps.
func (d *DNN) Estimate(patch gocv.Mat, norm Normalization) ([]Keypoint, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if patch.Empty() {
		return nil, fmt.Errorf("empty patch")
	}

	pw, ph := patch.Cols(), patch.Rows()

	// Channel order is already what the model expects.
	blob := gocv.BlobFromImage(patch, 1.0/255.0, image.Pt(pw, ph), gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	data, err := blob.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	if err := normalizeCHW(data, pw*ph, norm); err != nil {
		return nil, err
	}

	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	defer out.Close()

	joints, hh, hw, err := heatmapShape(out.Size(), d.config)
	if err != nil {
		return nil, err
	}

	heat, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read heatmaps: %w", err)
	}

	kps, err := DecodeHeatmaps(heat, joints, hh, hw, d.config.PostProcess)
	if err != nil {
		return nil, err
	}

	scaleHeatmap(kps, float64(pw)/float64(hw), float64(ph)/float64(hh))
	log.Debugf("pose: decoded %d joint(s) from %dx%d heatmaps", joints, hw, hh)
	return kps, nil
}

// Close releases the network.
func (d *DNN) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

// heatmapShape reads K, h, w from a [1,K,h,w] output, falling back to the
// configured sizes when the output is not four-dimensional.
func heatmapShape(dims []int, cfg Config) (int, int, int, error) {
	if len(dims) == 4 {
		if cfg.NumJoints > 0 && dims[1] != cfg.NumJoints {
			return 0, 0, 0, fmt.Errorf("model emits %d joints, config expects %d", dims[1], cfg.NumJoints)
		}
		return dims[1], dims[2], dims[3], nil
	}
	if cfg.NumJoints <= 0 || cfg.HeatmapWidth <= 0 || cfg.HeatmapHeight <= 0 {
		return 0, 0, 0, fmt.Errorf("unexpected heatmap output shape %v", dims)
	}
	return cfg.NumJoints, cfg.HeatmapHeight, cfg.HeatmapWidth, nil
}

// scaleHeatmap moves keypoints from heatmap cells to patch pixels.
func scaleHeatmap(kps []Keypoint, sx, sy float64) {
	for i := range kps {
		kps[i].X *= sx
		kps[i].Y *= sy
	}
}

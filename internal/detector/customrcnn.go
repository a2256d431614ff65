package detector

import (
	"fmt"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/handpose/internal/geometry"
)

// Output names of the exported R-CNN graph.
var rcnnOutputs = []string{"boxes", "labels", "scores"}

// CustomRCNN runs a fine-tuned R-CNN exported to ONNX. The graph takes a
// 0-1 RGB image and emits boxes in input pixels with per-box labels and scores.
type CustomRCNN struct {
	net    gocv.Net
	config Config
	mu     sync.Mutex
}

// NewCustomRCNN loads the ONNX graph at cfg.ModelPath.
func NewCustomRCNN(cfg Config) (*CustomRCNN, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}
	if len(cfg.Classes) < 2 {
		return nil, fmt.Errorf("custom_rcnn needs background plus at least one class, got %v", cfg.Classes)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load R-CNN from %s", cfg.ModelPath)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &CustomRCNN{net: net, config: cfg}, nil
}

// Detect runs the graph on frame and returns every reported box.
func (d *CustomRCNN) Detect(frame *gocv.Mat) ([]Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if frame == nil || frame.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	size := d.config.inputSize(frame)
	blob := gocv.BlobFromImage(*frame, 1.0/255.0, size, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	outs := d.net.ForwardLayers(rcnnOutputs)
	defer func() {
		for i := range outs {
			outs[i].Close()
		}
	}()
	if len(outs) != len(rcnnOutputs) {
		return nil, fmt.Errorf("expected %d outputs, got %d", len(rcnnOutputs), len(outs))
	}

	boxes, err := outs[0].DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read boxes: %w", err)
	}
	labels, err := matLabels(outs[1])
	if err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	scores, err := outs[2].DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read scores: %w", err)
	}

	sx := float64(frame.Cols()) / float64(size.X)
	sy := float64(frame.Rows()) / float64(size.Y)

	dets, err := parseRCNNOutputs(boxes, labels, scores, sx, sy, d.config.Classes)
	if err != nil {
		return nil, err
	}
	log.Debugf("custom_rcnn: %d candidate box(es)", len(dets))
	return dets, nil
}

// Close releases the network.
func (d *CustomRCNN) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

// matLabels reads a label tensor that OpenCV may hand back as float or int.
func matLabels(m gocv.Mat) ([]int, error) {
	switch m.Type() {
	case gocv.MatTypeCV32S:
		raw, err := m.DataPtrInt32()
		if err != nil {
			return nil, err
		}
		labels := make([]int, len(raw))
		for i, v := range raw {
			labels[i] = int(v)
		}
		return labels, nil
	case gocv.MatTypeCV32F:
		raw, err := m.DataPtrFloat32()
		if err != nil {
			return nil, err
		}
		labels := make([]int, len(raw))
		for i, v := range raw {
			labels[i] = int(v)
		}
		return labels, nil
	default:
		return nil, fmt.Errorf("unsupported label tensor type %v", m.Type())
	}
}

// parseRCNNOutputs zips the three output tensors into detections, scaling
// boxes from blob pixels to frame pixels by (sx, sy).
func parseRCNNOutputs(boxes []float32, labels []int, scores []float32, sx, sy float64, classes []string) ([]Detection, error) {
	n := len(scores)
	if len(labels) != n || len(boxes) != n*4 {
		return nil, fmt.Errorf("mismatched outputs: %d boxes values, %d labels, %d scores", len(boxes), len(labels), n)
	}

	dets := make([]Detection, 0, n)
	for i := 0; i < n; i++ {
		b := boxes[i*4 : i*4+4]
		dets = append(dets, Detection{
			ClassID: labels[i],
			Label:   labelFor(classes, labels[i]),
			Box: geometry.BoundingBox{
				X0: float64(b[0]) * sx,
				Y0: float64(b[1]) * sy,
				X1: float64(b[2]) * sx,
				Y1: float64(b[3]) * sy,
			},
			Score: float64(scores[i]),
		})
	}
	return dets, nil
}

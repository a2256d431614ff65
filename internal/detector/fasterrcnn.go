package detector

import (
	"fmt"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/handpose/internal/geometry"
)

// rowWidth is the number of values per detection in a TensorFlow Object
// Detection API output: image id, class id, score, x0, y0, x1, y1.
const rowWidth = 7

// FasterRCNN runs a stock COCO Faster R-CNN graph through OpenCV DNN.
type FasterRCNN struct {
	net    gocv.Net
	config Config
	mu     sync.Mutex
}

// NewFasterRCNN loads the graph at cfg.ModelPath (and cfg.ConfigPath if set).
func NewFasterRCNN(cfg Config) (*FasterRCNN, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	net := gocv.ReadNet(cfg.ModelPath, cfg.ConfigPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load Faster R-CNN from %s", cfg.ModelPath)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &FasterRCNN{net: net, config: cfg}, nil
}

// Detect runs the graph on frame and returns every reported box.
func (d *FasterRCNN) Detect(frame *gocv.Mat) ([]Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if frame == nil || frame.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	// The graph normalizes internally; it takes 0-255 RGB.
	blob := gocv.BlobFromImage(*frame, 1.0, d.config.inputSize(frame), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read detections: %w", err)
	}

	dets := parseDetectionRows(data, float64(frame.Cols()), float64(frame.Rows()))
	log.Debugf("faster_rcnn: %d candidate box(es)", len(dets))
	return dets, nil
}

// Close releases the network.
func (d *FasterRCNN) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

// parseDetectionRows decodes [1,1,N,7] output with coordinates normalized to
// the frame. OpenCV reports class ids without the background slot.
func parseDetectionRows(data []float32, frameW, frameH float64) []Detection {
	var dets []Detection
	for i := 0; i+rowWidth <= len(data); i += rowWidth {
		row := data[i : i+rowWidth]
		score := float64(row[2])
		if score <= 0 {
			continue
		}

		classID := int(row[1]) + 1
		dets = append(dets, Detection{
			ClassID: classID,
			Label:   labelFor(COCOInstanceNames, classID),
			Box: geometry.BoundingBox{
				X0: float64(row[3]) * frameW,
				Y0: float64(row[4]) * frameH,
				X1: float64(row[5]) * frameW,
				Y1: float64(row[6]) * frameH,
			},
			Score: score,
		})
	}
	return dets
}

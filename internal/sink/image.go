package sink

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/handpose/internal/result"
)

// DefaultImagePath is where an annotated still image is saved.
const DefaultImagePath = "output.jpg"

// ImageWriter saves each frame it receives to the same file; for a still
// image input that is exactly one write.
type ImageWriter struct {
	path   string
	writes int
}

// NewImageWriter creates a writer for path, or DefaultImagePath when empty.
func NewImageWriter(path string) *ImageWriter {
	if path == "" {
		path = DefaultImagePath
	}
	return &ImageWriter{path: path}
}

// Write encodes frame to the file.
func (w *ImageWriter) Write(frame *gocv.Mat, r *result.Frame) error {
	if ok := gocv.IMWrite(w.path, *frame); !ok {
		return fmt.Errorf("write image %s", w.path)
	}
	w.writes++
	return nil
}

// Close reports where the image went.
func (w *ImageWriter) Close() error {
	if w.writes > 0 {
		log.Printf("The result image has been saved as %s", w.path)
	}
	return nil
}

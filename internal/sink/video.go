package sink

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/handpose/internal/result"
)

// Video output defaults.
const (
	DefaultFourCC   = "MJPG"
	DefaultVideoFPS = 30.0

	// progressEvery is how often, in frames, progress is logged.
	progressEvery = 10
)

// VideoWriter encodes frames into a video file. The file is created on the
// first frame so that it takes the source's resolution.
type VideoWriter struct {
	path   string
	fourcc string
	fps    float64
	writer *gocv.VideoWriter
	frames int
}

// NewVideoWriter creates a writer for path. Empty fourcc and non-positive
// fps fall back to MJPG at 30 fps.
func NewVideoWriter(path, fourcc string, fps float64) *VideoWriter {
	if fourcc == "" {
		fourcc = DefaultFourCC
	}
	if fps <= 0 {
		fps = DefaultVideoFPS
	}
	return &VideoWriter{path: path, fourcc: fourcc, fps: fps}
}

// Write appends frame to the video.
func (v *VideoWriter) Write(frame *gocv.Mat, r *result.Frame) error {
	if v.writer == nil {
		w, err := gocv.VideoWriterFile(v.path, v.fourcc, v.fps, frame.Cols(), frame.Rows(), true)
		if err != nil {
			return fmt.Errorf("create video %s: %w", v.path, err)
		}
		if !w.IsOpened() {
			w.Close()
			return fmt.Errorf("create video %s: codec %s unavailable", v.path, v.fourcc)
		}
		v.writer = w
		log.Debugf("video: %s %dx%d @ %.0f fps", v.fourcc, frame.Cols(), frame.Rows(), v.fps)
	}

	if v.frames%progressEvery == 0 {
		log.Printf("Writing frame %d", v.frames)
	}
	if err := v.writer.Write(*frame); err != nil {
		return fmt.Errorf("write frame %d: %w", v.frames, err)
	}
	v.frames++
	return nil
}

// Frames returns how many frames were written.
func (v *VideoWriter) Frames() int {
	return v.frames
}

// Close finalizes the file.
func (v *VideoWriter) Close() error {
	if v.writer == nil {
		return nil
	}
	err := v.writer.Close()
	v.writer = nil
	if err == nil {
		log.Printf("Video has been saved as %s", v.path)
	}
	return err
}

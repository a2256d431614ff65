package capture

import (
	"errors"
	"fmt"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// VideoFile reads frames from a video file until it runs out.
type VideoFile struct {
	path    string
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
	total   int
	frames  int
}

// NewVideoFile creates a source for the video at path.
func NewVideoFile(path string) *VideoFile {
	return &VideoFile{path: path}
}

// Open opens the file and reads its frame count.
func (v *VideoFile) Open() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.running {
		return nil
	}

	if _, err := os.Stat(v.path); err != nil {
		return fmt.Errorf("open video: %w", err)
	}

	capture, err := gocv.VideoCaptureFile(v.path)
	if err != nil {
		return fmt.Errorf("open video %s: %w", v.path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("open video %s: unsupported or corrupt file", v.path)
	}

	v.capture = capture
	v.total = int(capture.Get(gocv.VideoCaptureFrameCount))
	v.frames = 0
	v.running = true

	return nil
}

// Close releases the file.
func (v *VideoFile) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.running || v.capture == nil {
		v.running = false
		return nil
	}

	err := v.capture.Close()
	v.capture = nil
	v.running = false

	return err
}

// ReadFrame returns the next frame. Once at least one frame was delivered a
// failed read is ErrEndOfStream, since the container's frame count is only
// an estimate. A file that yields no frame at all is a *StreamReadError.
func (v *VideoFile) ReadFrame() (*gocv.Mat, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.running || v.capture == nil {
		return nil, ErrSourceNotOpen
	}

	mat := gocv.NewMat()
	if ok := v.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		if atEnd(v.frames) {
			if v.total > 0 && v.frames < v.total {
				log.WithField("source", v.path).Debugf("Decoder stopped at frame %d of an announced %d", v.frames, v.total)
			}
			return nil, ErrEndOfStream
		}
		return nil, &StreamReadError{
			Source: v.path,
			Frame:  v.frames,
			Err:    fmt.Errorf("no decodable frame (%d announced)", v.total),
		}
	}

	v.frames++
	return &mat, nil
}

// FrameCount returns the number of frames the container announced, or 0.
func (v *VideoFile) FrameCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.total
}

// IsOpen returns true while the file is open.
func (v *VideoFile) IsOpen() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.running
}

// Kind returns KindVideo.
func (v *VideoFile) Kind() Kind { return KindVideo }

// Name returns the file path.
func (v *VideoFile) Name() string { return v.path }

// atEnd decides whether a failed read after read delivered frames is the
// natural end of the file.
func atEnd(read int) bool {
	return read > 0
}

// StillImage yields a single frame loaded from an image file.
type StillImage struct {
	path    string
	img     gocv.Mat
	mu      sync.Mutex
	running bool
	served  bool
}

// NewStillImage creates a source for the image at path.
func NewStillImage(path string) *StillImage {
	return &StillImage{path: path}
}

// Open decodes the image.
func (s *StillImage) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	if _, err := os.Stat(s.path); err != nil {
		return fmt.Errorf("open image: %w", err)
	}

	img := gocv.IMRead(s.path, gocv.IMReadColor)
	if img.Empty() {
		img.Close()
		return fmt.Errorf("open image %s: %w", s.path, errors.New("unsupported or corrupt file"))
	}

	s.img = img
	s.served = false
	s.running = true
	return nil
}

// Close releases the decoded image.
func (s *StillImage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.running = false
	return s.img.Close()
}

// ReadFrame returns a copy of the image once, then ErrEndOfStream.
func (s *StillImage) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil, ErrSourceNotOpen
	}
	if s.served {
		return nil, ErrEndOfStream
	}

	frame := s.img.Clone()
	s.served = true
	return &frame, nil
}

// IsOpen returns true while the image is loaded.
func (s *StillImage) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Kind returns KindImage.
func (s *StillImage) Kind() Kind { return KindImage }

// Name returns the file path.
func (s *StillImage) Name() string { return s.path }

package capture

import (
	"errors"
	"fmt"
	"image"
	"sync"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// Frame geometry requested from webcams. Drivers may pick something else;
// Size reports what was negotiated.
const (
	RequestWidth  = 640
	RequestHeight = 480
)

// Camera reads from a webcam. It never ends on its own.
type Camera struct {
	deviceID int

	mu      sync.Mutex
	capture *gocv.VideoCapture
	size    image.Point
	frames  int
}

func NewCamera(deviceID int) *Camera {
	return &Camera{deviceID: deviceID}
}

// Open starts the device. Opening an open camera is a no-op.
func (c *Camera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture != nil {
		return nil
	}

	vc, err := gocv.OpenVideoCapture(c.deviceID)
	if err != nil {
		return fmt.Errorf("open webcam %d: %w", c.deviceID, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return fmt.Errorf("open webcam %d: device unavailable", c.deviceID)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, RequestWidth)
	vc.Set(gocv.VideoCaptureFrameHeight, RequestHeight)
	c.size = image.Pt(int(vc.Get(gocv.VideoCaptureFrameWidth)), int(vc.Get(gocv.VideoCaptureFrameHeight)))
	log.WithField("source", c.name()).Debugf("Webcam negotiated %dx%d", c.size.X, c.size.Y)

	c.capture = vc
	c.frames = 0
	return nil
}

func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil
	}
	err := c.capture.Close()
	c.capture = nil
	return err
}

// ReadFrame grabs the next frame. Any failure is a *StreamReadError.
func (c *Camera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil, ErrSourceNotOpen
	}

	mat := gocv.NewMat()
	var cause error
	switch {
	case !c.capture.Read(&mat):
		cause = errors.New("device returned no frame")
	case mat.Empty():
		cause = errors.New("device returned an empty frame")
	}
	if cause != nil {
		mat.Close()
		return nil, &StreamReadError{Source: c.name(), Frame: c.frames, Err: cause}
	}

	c.frames++
	return &mat, nil
}

// Size is the negotiated frame size, zero until opened.
func (c *Camera) Size() image.Point {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

func (c *Camera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capture != nil
}

func (c *Camera) Kind() Kind { return KindWebcam }

func (c *Camera) Name() string { return c.name() }

func (c *Camera) name() string {
	return fmt.Sprintf("webcam:%d", c.deviceID)
}

// Package capture provides the frame sources the pipeline reads from:
// a webcam, a video file or a single still image, all through GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"strings"

	"gocv.io/x/gocv"
)

var (
	// ErrSourceNotOpen is returned when reading from a source that is not open.
	ErrSourceNotOpen = errors.New("source is not open")

	// ErrEndOfStream is returned once a finite source has no more frames.
	ErrEndOfStream = errors.New("end of stream")
)

// Kind identifies the type of input.
type Kind string

const (
	KindWebcam Kind = "webcam"
	KindVideo  Kind = "video"
	KindImage  Kind = "image"
)

// Source defines the interface for frame sources.
type Source interface {
	Open() error
	Close() error

	// ReadFrame returns the next BGR frame. The caller is responsible for
	// closing the returned Mat. Finite sources return ErrEndOfStream when
	// exhausted; a failed read returns a *StreamReadError.
	ReadFrame() (*gocv.Mat, error)

	IsOpen() bool
	Kind() Kind

	// Name is the device or path the source reads from.
	Name() string
}

// StreamReadError reports a frame that could not be read mid-stream.
type StreamReadError struct {
	Source string
	Frame  int
	Err    error
}

func (e *StreamReadError) Error() string {
	return fmt.Sprintf("read frame %d from %s: %v", e.Frame, e.Source, e.Err)
}

func (e *StreamReadError) Unwrap() error {
	return e.Err
}

// InputSelectionError reports a missing or ambiguous input choice.
type InputSelectionError struct {
	Selected []string
}

func (e *InputSelectionError) Error() string {
	if len(e.Selected) == 0 {
		return "no input selected: use one of --video, --webcam or --image"
	}
	return fmt.Sprintf("conflicting inputs selected (%s): use exactly one", strings.Join(e.Selected, ", "))
}

// Selection is the user's choice of input.
type Selection struct {
	Video  string
	Webcam bool
	Image  string

	// Device is the webcam index.
	Device int
}

// Count returns how many inputs are selected.
func (s Selection) Count() int {
	return len(s.selected())
}

func (s Selection) selected() []string {
	var names []string
	if s.Video != "" {
		names = append(names, "--video")
	}
	if s.Webcam {
		names = append(names, "--webcam")
	}
	if s.Image != "" {
		names = append(names, "--image")
	}
	return names
}

// Select returns the unopened source for s. Exactly one input must be chosen.
func Select(s Selection) (Source, error) {
	if names := s.selected(); len(names) != 1 {
		return nil, &InputSelectionError{Selected: names}
	}

	switch {
	case s.Video != "":
		return NewVideoFile(s.Video), nil
	case s.Webcam:
		return NewCamera(s.Device), nil
	default:
		return NewStillImage(s.Image), nil
	}
}

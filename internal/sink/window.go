package sink

import (
	"gocv.io/x/gocv"

	"github.com/ayusman/handpose/internal/result"
)

// WindowTitle is the title of the display window.
const WindowTitle = "demo"

// Window shows frames in an interactive OpenCV window. Pressing q (or Esc)
// stops the pipeline.
type Window struct {
	title  string
	window *gocv.Window
	hold   bool
}

// NewWindow creates a display. With hold set, the final frame of a finite
// input stays on screen until a key is pressed.
func NewWindow(hold bool) *Window {
	return &Window{title: WindowTitle, hold: hold}
}

// Write shows frame and polls the keyboard.
func (w *Window) Write(frame *gocv.Mat, r *result.Frame) error {
	if w.window == nil {
		w.window = gocv.NewWindow(w.title)
	}
	w.window.IMShow(*frame)

	delay := 1
	if w.hold && r.Last {
		delay = 0
	}
	if quitKey(w.window.WaitKey(delay)) {
		return ErrStop
	}
	return nil
}

// Close destroys the window.
func (w *Window) Close() error {
	if w.window == nil {
		return nil
	}
	err := w.window.Close()
	w.window = nil
	return err
}

func quitKey(key int) bool {
	key &= 0xff
	return key == 'q' || key == 27
}

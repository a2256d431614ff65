package capture

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockSource plays back pre-recorded frames for testing.
type MockSource struct {
	frames  []*gocv.Mat
	index   int
	loop    bool
	kind    Kind
	mu      sync.Mutex
	running bool

	failAt  int
	failErr error

	opens  int
	closes int
}

// NewMockSource plays frames in order, reporting kind.
func NewMockSource(kind Kind, frames []*gocv.Mat, loop bool) *MockSource {
	return &MockSource{
		frames: frames,
		loop:   loop,
		kind:   kind,
		failAt: -1,
	}
}

func (c *MockSource) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
	c.index = 0
	c.opens++
	return nil
}

func (c *MockSource) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	c.closes++
	return nil
}

func (c *MockSource) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil, ErrSourceNotOpen
	}

	if c.failAt >= 0 && c.index == c.failAt {
		return nil, &StreamReadError{Source: "mock", Frame: c.index, Err: c.failErr}
	}

	if c.index >= len(c.frames) {
		if c.loop && len(c.frames) > 0 {
			c.index = 0
		} else {
			return nil, ErrEndOfStream
		}
	}

	// Clone the frame so the original isn't modified
	frame := c.frames[c.index].Clone()
	c.index++

	return &frame, nil
}

func (c *MockSource) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *MockSource) Kind() Kind   { return c.kind }
func (c *MockSource) Name() string { return "mock" }

// FailAt makes the read of frame index fail with err.
func (c *MockSource) FailAt(index int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failAt = index
	c.failErr = err
}

// Opens returns how many times Open ran.
func (c *MockSource) Opens() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens
}

// Closes returns how many times Close ran.
func (c *MockSource) Closes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

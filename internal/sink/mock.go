package sink

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/handpose/internal/result"
)

// MockSink is a test implementation of the Sink interface. It records what
// it was given instead of writing anywhere.
type MockSink struct {
	mu      sync.Mutex
	results []result.Frame
	frames  []gocv.Mat
	keep    bool
	err     error
	errAt   int
	closes  int
}

// NewMockSink creates a MockSink. With keepFrames set it clones every
// frame it receives; release them with Release.
func NewMockSink(keepFrames bool) *MockSink {
	return &MockSink{keep: keepFrames, errAt: -1}
}

// FailAt makes the write of the n-th frame (0-based) return err.
func (m *MockSink) FailAt(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errAt = n
	m.err = err
}

func (m *MockSink) Write(frame *gocv.Mat, r *result.Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.errAt >= 0 && len(m.results) == m.errAt {
		return m.err
	}

	m.results = append(m.results, *r)
	if m.keep {
		m.frames = append(m.frames, frame.Clone())
	}
	return nil
}

func (m *MockSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes++
	return nil
}

// Results returns the recorded results in write order.
func (m *MockSink) Results() []result.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]result.Frame, len(m.results))
	copy(out, m.results)
	return out
}

// Frames returns the cloned frames. Only populated with keepFrames.
func (m *MockSink) Frames() []gocv.Mat {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frames
}

// Closes returns how many times Close ran.
func (m *MockSink) Closes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}

// Release frees the cloned frames.
func (m *MockSink) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.frames {
		m.frames[i].Close()
	}
	m.frames = nil
}

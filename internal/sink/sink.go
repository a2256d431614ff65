// Package sink provides the destinations annotated frames are written to.
package sink

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/handpose/internal/result"
)

// ErrStop is returned by a sink when the user asked to stop, for example by
// pressing q in the display window. The pipeline treats it as a clean end.
var ErrStop = errors.New("stopped by user")

// Sink receives every annotated frame along with what was found in it.
type Sink interface {
	// Write consumes one frame. The sink must not keep frame after returning.
	Write(frame *gocv.Mat, r *result.Frame) error

	// Close flushes and releases the sink. It is called exactly once.
	Close() error
}

// Multi fans each frame out to several sinks in order.
type Multi struct {
	sinks  []Sink
	mu     sync.Mutex
	closed []bool
}

// NewMulti creates a fan-out over sinks. Nil entries are skipped.
func NewMulti(sinks ...Sink) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	m.closed = make([]bool, len(m.sinks))
	return m
}

// Len returns the number of sinks.
func (m *Multi) Len() int {
	return len(m.sinks)
}

// Write passes the frame to every sink, stopping at the first error.
func (m *Multi) Write(frame *gocv.Mat, r *result.Frame) error {
	for i, s := range m.sinks {
		if err := s.Write(frame, r); err != nil {
			if errors.Is(err, ErrStop) {
				return err
			}
			return fmt.Errorf("sink %d (%T): %w", i, s, err)
		}
	}
	return nil
}

// Close closes every sink that is still open and joins their errors.
// Calling Close again is a no-op.
func (m *Multi) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for i, s := range m.sinks {
		if m.closed[i] {
			continue
		}
		m.closed[i] = true
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sink %d (%T): %w", i, s, err))
		}
	}
	return errors.Join(errs...)
}

package pose

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockEstimator is a test implementation of the Estimator interface.
// It returns configured keypoints and records what it was asked.
type MockEstimator struct {
	mu        sync.Mutex
	keypoints []Keypoint
	err       error
	calls     int
	lastSize  [2]int
	lastNorm  Normalization
	closed    int
}

// NewMockEstimator creates a new MockEstimator instance.
func NewMockEstimator() *MockEstimator {
	return &MockEstimator{}
}

// SetKeypoints sets the patch-space keypoints returned by Estimate.
func (m *MockEstimator) SetKeypoints(kps []Keypoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keypoints = kps
}

// SetError sets the error returned by Estimate.
func (m *MockEstimator) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Estimate returns the configured keypoints or error.
func (m *MockEstimator) Estimate(patch gocv.Mat, norm Normalization) ([]Keypoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastSize = [2]int{patch.Cols(), patch.Rows()}
	m.lastNorm = norm
	if m.err != nil {
		return nil, m.err
	}
	out := make([]Keypoint, len(m.keypoints))
	copy(out, m.keypoints)
	return out, nil
}

// Close records the call.
func (m *MockEstimator) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

// Calls returns how many times Estimate ran.
func (m *MockEstimator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastPatchSize returns the width and height of the last patch seen.
func (m *MockEstimator) LastPatchSize() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSize[0], m.lastSize[1]
}

// LastNormalization returns the normalization passed to the last call.
func (m *MockEstimator) LastNormalization() Normalization {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastNorm
}

// Closed returns how many times Close ran.
func (m *MockEstimator) Closed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Package result defines the per-frame record handed from the pipeline to
// its sinks.
package result

import (
	"time"

	"github.com/ayusman/handpose/internal/detector"
	"github.com/ayusman/handpose/internal/geometry"
	"github.com/ayusman/handpose/internal/pose"
)

// Pose is one filtered detection with its region and estimated keypoints
// in frame pixels.
type Pose struct {
	Detection detector.Detection `json:"detection"`
	Region    geometry.Region    `json:"region"`
	Keypoints []pose.Keypoint    `json:"keypoints"`
}

// Frame is everything the pipeline learned about one input frame.
type Frame struct {
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`

	// Detections are the boxes that passed the filter.
	Detections []detector.Detection `json:"detections"`
	Poses      []Pose               `json:"poses"`

	// FPS is the processing rate measured for this frame.
	FPS float64 `json:"fps"`

	// Last is set on the final frame of a finite input.
	Last bool `json:"last"`
}

// HasPoses reports whether any keypoints were estimated.
func (f *Frame) HasPoses() bool {
	return len(f.Poses) > 0
}

// Package skeleton holds the static keypoint graphs used to draw poses.
package skeleton

import (
	"fmt"
	"image/color"
)

// Edge connects two keypoint indices.
type Edge [2]int

// Skeleton is a read-only keypoint graph with one display color per edge.
type Skeleton struct {
	Name   string
	Names  []string     // keypoint names, indexed by keypoint
	Edges  []Edge       // drawn in order
	Colors []color.RGBA // parallel to Edges
}

// NumKeypoints returns the number of keypoints the skeleton expects.
func (s Skeleton) NumKeypoints() int {
	return len(s.Names)
}

// Validate checks that every edge references a known keypoint and has a color.
func (s Skeleton) Validate() error {
	if len(s.Edges) != len(s.Colors) {
		return fmt.Errorf("skeleton %s: %d edges but %d colors", s.Name, len(s.Edges), len(s.Colors))
	}
	for i, e := range s.Edges {
		for _, k := range e {
			if k < 0 || k >= len(s.Names) {
				return fmt.Errorf("skeleton %s: edge %d references keypoint %d of %d", s.Name, i, k, len(s.Names))
			}
		}
	}
	return nil
}

// ForJoints returns the skeleton for a network emitting n keypoints.
func ForJoints(n int) (Skeleton, error) {
	switch n {
	case HandKeypoints:
		return Hand(), nil
	case COCOKeypoints:
		return COCO(), nil
	default:
		return Skeleton{}, fmt.Errorf("no skeleton for %d keypoints", n)
	}
}

// bgr converts an OpenCV-ordered (blue, green, red) triple.
func bgr(b, g, r uint8) color.RGBA {
	return color.RGBA{R: r, G: g, B: b, A: 0}
}

// Package geometry maps detection boxes to the center/scale regions expected by
// the keypoint network and builds the affine transforms between the two.
package geometry

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// Region constants shared with the keypoint network's preprocessing.
const (
	// PixelStd is the number of pixels in one unit of Region.Scale.
	PixelStd = 200.0
	// Padding enlarges every region to give the network context around the box.
	Padding = 1.25
)

// ErrInvalidBox is matched by every InvalidBoxError via errors.Is.
var ErrInvalidBox = errors.New("invalid bounding box")

// Point is a 2D point in pixel coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BoundingBox is an axis-aligned box given by its top-left (X0,Y0) and
// bottom-right (X1,Y1) corners in image pixels.
type BoundingBox struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Width returns X1-X0.
func (b BoundingBox) Width() float64 { return b.X1 - b.X0 }

// Height returns Y1-Y0.
func (b BoundingBox) Height() float64 { return b.Y1 - b.Y0 }

// Center returns the box midpoint.
func (b BoundingBox) Center() Point {
	return Point{X: b.X0 + b.Width()*0.5, Y: b.Y0 + b.Height()*0.5}
}

// Rect rounds the box to an image.Rectangle for drawing.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(
		int(math.Round(b.X0)), int(math.Round(b.Y0)),
		int(math.Round(b.X1)), int(math.Round(b.Y1)),
	)
}

// Validate reports an InvalidBoxError when the box has non-finite corners or
// a non-positive width or height.
func (b BoundingBox) Validate() error {
	for _, v := range [...]float64{b.X0, b.Y0, b.X1, b.Y1} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &InvalidBoxError{Box: b, Reason: "non-finite corner"}
		}
	}
	if b.Width() <= 0 {
		return &InvalidBoxError{Box: b, Reason: "width must be positive"}
	}
	if b.Height() <= 0 {
		return &InvalidBoxError{Box: b, Reason: "height must be positive"}
	}
	return nil
}

// InvalidBoxError describes a box that cannot be mapped to a region.
type InvalidBoxError struct {
	Box    BoundingBox
	Reason string
}

func (e *InvalidBoxError) Error() string {
	return fmt.Sprintf("invalid bounding box (%g,%g)-(%g,%g): %s",
		e.Box.X0, e.Box.Y0, e.Box.X1, e.Box.Y1, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidBox) true.
func (e *InvalidBoxError) Is(target error) bool {
	return target == ErrInvalidBox
}

// Region is the center/scale description of a crop. Scale is expressed in
// units of PixelStd pixels.
type Region struct {
	Center Point `json:"center"`
	Scale  Point `json:"scale"`
}

// BoxToRegion converts a box into the region the keypoint network expects for
// an input of width x height pixels. The shorter side of the box (relative to
// the network aspect ratio) is grown until the aspect ratios match, then both
// sides are multiplied by Padding. The box is never cropped.
func BoxToRegion(box BoundingBox, width, height int) (Region, error) {
	if err := box.Validate(); err != nil {
		return Region{}, err
	}
	if width <= 0 || height <= 0 {
		return Region{}, fmt.Errorf("network input size %dx%d must be positive", width, height)
	}

	w, h := box.Width(), box.Height()
	aspect := float64(width) / float64(height)

	if w > aspect*h {
		h = w / aspect
	} else if w < aspect*h {
		w = h * aspect
	}

	return Region{
		Center: box.Center(),
		Scale: Point{
			X: w / PixelStd * Padding,
			Y: h / PixelStd * Padding,
		},
	}, nil
}

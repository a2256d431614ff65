// Package render draws detections, skeletons and the FPS overlay onto frames.
package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"github.com/ayusman/handpose/internal/geometry"
	"github.com/ayusman/handpose/internal/pose"
	"github.com/ayusman/handpose/internal/result"
	"github.com/ayusman/handpose/internal/skeleton"
)

// ClampLimit bounds drawn coordinates. Points beyond the frame are left to
// OpenCV's clipping; this only keeps them inside int32 drawing math.
const ClampLimit = 1 << 15

const (
	JointRadius   = 6
	LineThickness = 2
	BoxThickness  = 3
	FPSFontScale  = 1.2
	FPSThickness  = 2
)

var (
	// BoxColor is used for detection outlines and the FPS text.
	BoxColor = color.RGBA{G: 255}

	// FPSOrigin is the bottom-left corner of the FPS text.
	FPSOrigin = image.Pt(25, 40)
)

// Renderer draws poses using a fixed skeleton.
type Renderer struct {
	skeleton skeleton.Skeleton
}

// New creates a Renderer for s.
func New(s skeleton.Skeleton) *Renderer {
	return &Renderer{skeleton: s}
}

// Skeleton returns the graph used for drawing.
func (r *Renderer) Skeleton() skeleton.Skeleton {
	return r.skeleton
}

// Draw annotates img with every box and pose in f, plus the FPS overlay when
// showFPS is set. A frame with no detections is left untouched.
func (r *Renderer) Draw(img *gocv.Mat, f *result.Frame, showFPS bool) {
	for _, d := range f.Detections {
		DrawBox(img, d.Box)
	}
	for _, p := range f.Poses {
		r.DrawPose(img, p.Keypoints)
	}
	if showFPS {
		DrawFPS(img, f.FPS)
	}
}

// DrawPose draws, edge by edge, both joints as filled circles and then the
// connecting line in the edge's color.
func (r *Renderer) DrawPose(img *gocv.Mat, kps []pose.Keypoint) {
	for _, s := range segments(kps, r.skeleton) {
		gocv.Circle(img, s.From, JointRadius, s.Color, -1)
		gocv.Circle(img, s.To, JointRadius, s.Color, -1)
		gocv.Line(img, s.From, s.To, s.Color, LineThickness)
	}
}

// DrawBox outlines box.
func DrawBox(img *gocv.Mat, box geometry.BoundingBox) {
	rect := image.Rectangle{
		Min: clampPoint(box.X0, box.Y0),
		Max: clampPoint(box.X1, box.Y1),
	}
	gocv.Rectangle(img, rect, BoxColor, BoxThickness)
}

// DrawFPS writes the frame rate in the top-left corner.
func DrawFPS(img *gocv.Mat, fps float64) {
	gocv.PutText(img, FormatFPS(fps), FPSOrigin, gocv.FontHersheySimplex, FPSFontScale, BoxColor, FPSThickness)
}

// FormatFPS returns the overlay text for fps.
func FormatFPS(fps float64) string {
	return fmt.Sprintf("fps: %.2f", fps)
}

// segment is one drawable skeleton edge.
type segment struct {
	From, To image.Point
	Color    color.RGBA
}

// segments resolves the skeleton against kps. Edges that reference a
// missing keypoint or a non-finite coordinate are skipped.
func segments(kps []pose.Keypoint, s skeleton.Skeleton) []segment {
	var out []segment
	for i, e := range s.Edges {
		a, b := e[0], e[1]
		if a < 0 || b < 0 || a >= len(kps) || b >= len(kps) {
			continue
		}
		if !finite(kps[a]) || !finite(kps[b]) {
			continue
		}
		c := BoxColor
		if i < len(s.Colors) {
			c = s.Colors[i]
		}
		out = append(out, segment{
			From:  clampPoint(kps[a].X, kps[a].Y),
			To:    clampPoint(kps[b].X, kps[b].Y),
			Color: c,
		})
	}
	return out
}

func finite(k pose.Keypoint) bool {
	return !math.IsNaN(k.X) && !math.IsNaN(k.Y) && !math.IsInf(k.X, 0) && !math.IsInf(k.Y, 0)
}

func clampPoint(x, y float64) image.Point {
	return image.Pt(clamp(x), clamp(y))
}

func clamp(v float64) int {
	v = math.Round(v)
	if v > ClampLimit {
		return ClampLimit
	}
	if v < -ClampLimit {
		return -ClampLimit
	}
	return int(v)
}

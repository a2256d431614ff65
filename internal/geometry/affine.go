package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Affine is a 2x3 affine transform in row-major order:
//
//	x' = A[0][0]*x + A[0][1]*y + A[0][2]
//	y' = A[1][0]*x + A[1][1]*y + A[1][2]
type Affine [2][3]float64

// Apply maps p through the transform.
func (a Affine) Apply(p Point) Point {
	return Point{
		X: a[0][0]*p.X + a[0][1]*p.Y + a[0][2],
		Y: a[1][0]*p.X + a[1][1]*p.Y + a[1][2],
	}
}

// Invert returns the inverse transform.
func (a Affine) Invert() (Affine, error) {
	m := mat.NewDense(3, 3, []float64{
		a[0][0], a[0][1], a[0][2],
		a[1][0], a[1][1], a[1][2],
		0, 0, 1,
	})

	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return Affine{}, fmt.Errorf("invert affine: %w", err)
	}

	return Affine{
		{inv.At(0, 0), inv.At(0, 1), inv.At(0, 2)},
		{inv.At(1, 0), inv.At(1, 1), inv.At(1, 2)},
	}, nil
}

// AffineTransform builds the transform that maps region (rotated by rotDeg
// degrees around its center) onto an outW x outH image. With inverse set it
// returns the mapping from the output image back to source pixels instead.
//
// The transform is fixed by three correspondences: the region center goes to
// the output center, the point half the region width above the center goes to
// the point half the output width above the output center, and a third point
// perpendicular to those two completes the frame.
func AffineTransform(region Region, rotDeg float64, outW, outH int, inverse bool) (Affine, error) {
	if region.Scale.X <= 0 || region.Scale.Y <= 0 {
		return Affine{}, fmt.Errorf("region scale (%g,%g) must be positive", region.Scale.X, region.Scale.Y)
	}
	if outW <= 0 || outH <= 0 {
		return Affine{}, fmt.Errorf("output size %dx%d must be positive", outW, outH)
	}

	srcW := region.Scale.X * PixelStd
	dstW := float64(outW)
	dstH := float64(outH)

	rot := math.Pi * rotDeg / 180
	srcDir := rotate(Point{X: 0, Y: srcW * -0.5}, rot)
	dstDir := Point{X: 0, Y: dstW * -0.5}

	var src, dst [3]Point
	src[0] = region.Center
	src[1] = Point{X: region.Center.X + srcDir.X, Y: region.Center.Y + srcDir.Y}
	dst[0] = Point{X: dstW * 0.5, Y: dstH * 0.5}
	dst[1] = Point{X: dst[0].X + dstDir.X, Y: dst[0].Y + dstDir.Y}
	src[2] = thirdPoint(src[0], src[1])
	dst[2] = thirdPoint(dst[0], dst[1])

	if inverse {
		return solveAffine(dst, src)
	}
	return solveAffine(src, dst)
}

// solveAffine finds the transform taking each src[i] to dst[i].
func solveAffine(src, dst [3]Point) (Affine, error) {
	s := mat.NewDense(3, 3, []float64{
		src[0].X, src[0].Y, 1,
		src[1].X, src[1].Y, 1,
		src[2].X, src[2].Y, 1,
	})
	d := mat.NewDense(3, 2, []float64{
		dst[0].X, dst[0].Y,
		dst[1].X, dst[1].Y,
		dst[2].X, dst[2].Y,
	})

	var x mat.Dense
	if err := x.Solve(s, d); err != nil {
		return Affine{}, fmt.Errorf("solve affine: %w", err)
	}

	return Affine{
		{x.At(0, 0), x.At(1, 0), x.At(2, 0)},
		{x.At(0, 1), x.At(1, 1), x.At(2, 1)},
	}, nil
}

func rotate(p Point, rad float64) Point {
	sn, cs := math.Sincos(rad)
	return Point{
		X: p.X*cs - p.Y*sn,
		Y: p.X*sn + p.Y*cs,
	}
}

// thirdPoint returns b plus the vector a-b rotated by 90 degrees.
func thirdPoint(a, b Point) Point {
	dx, dy := a.X-b.X, a.Y-b.Y
	return Point{X: b.X - dy, Y: b.Y + dx}
}

package geometry

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

const epsilon = 1e-9

func TestBoundingBox_Validate(t *testing.T) {
	tests := []struct {
		name    string
		box     BoundingBox
		wantErr bool
	}{
		{name: "regular box", box: BoundingBox{X0: 10, Y0: 20, X1: 30, Y1: 60}},
		{name: "negative corners are fine", box: BoundingBox{X0: -200, Y0: -10, X1: 0, Y1: 550}},
		{name: "zero width", box: BoundingBox{X0: 10, Y0: 20, X1: 10, Y1: 60}, wantErr: true},
		{name: "zero height", box: BoundingBox{X0: 10, Y0: 20, X1: 30, Y1: 20}, wantErr: true},
		{name: "inverted corners", box: BoundingBox{X0: 30, Y0: 60, X1: 10, Y1: 20}, wantErr: true},
		{name: "NaN corner", box: BoundingBox{X0: math.NaN(), Y0: 0, X1: 10, Y1: 10}, wantErr: true},
		{name: "infinite corner", box: BoundingBox{X0: 0, Y0: 0, X1: math.Inf(1), Y1: 10}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.box.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}

			if !errors.Is(err, ErrInvalidBox) {
				t.Errorf("errors.Is(err, ErrInvalidBox) = false for %v", err)
			}
			var boxErr *InvalidBoxError
			if !errors.As(err, &boxErr) {
				t.Fatalf("expected *InvalidBoxError, got %T", err)
			}
			if boxErr.Reason == "" {
				t.Error("expected a reason on InvalidBoxError")
			}
		})
	}
}

func TestBoxToRegion_Scenario(t *testing.T) {
	// 200x400 box against a 192x256 (aspect 0.75) network input.
	// 200 < 0.75*400, so the width grows to 300: scale (1.5, 2.0) before
	// padding, (1.875, 2.5) after.
	box := BoundingBox{X0: 100, Y0: 100, X1: 300, Y1: 500}

	got, err := BoxToRegion(box, 192, 256)
	if err != nil {
		t.Fatalf("BoxToRegion() error = %v", err)
	}

	want := Region{
		Center: Point{X: 200, Y: 300},
		Scale:  Point{X: 1.875, Y: 2.5},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, epsilon)); diff != "" {
		t.Errorf("BoxToRegion() mismatch (-want +got):\n%s", diff)
	}
}

func TestBoxToRegion_WideBox(t *testing.T) {
	// 400x100 box: width dominates, height grows to 400/0.75.
	box := BoundingBox{X0: 0, Y0: 0, X1: 400, Y1: 100}

	got, err := BoxToRegion(box, 192, 256)
	if err != nil {
		t.Fatalf("BoxToRegion() error = %v", err)
	}

	want := Region{
		Center: Point{X: 200, Y: 50},
		Scale:  Point{X: 400 / PixelStd * Padding, Y: 400 / 0.75 / PixelStd * Padding},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, epsilon)); diff != "" {
		t.Errorf("BoxToRegion() mismatch (-want +got):\n%s", diff)
	}
}

func TestBoxToRegion_AspectAndGrowth(t *testing.T) {
	boxes := []BoundingBox{
		{X0: 0, Y0: 0, X1: 1, Y1: 1},
		{X0: 100, Y0: 100, X1: 300, Y1: 500},
		{X0: -25, Y0: 190, X1: 220, Y1: 500},
		{X0: 430, Y0: 410, X1: 970, Y1: 880},
		{X0: 276.5, Y0: 68.25, X1: 567.125, Y1: 393},
		{X0: 0, Y0: 0, X1: 1920, Y1: 3},
	}
	sizes := [][2]int{{192, 256}, {256, 256}, {288, 384}, {256, 192}}

	for _, size := range sizes {
		aspect := float64(size[0]) / float64(size[1])
		for _, box := range boxes {
			region, err := BoxToRegion(box, size[0], size[1])
			if err != nil {
				t.Fatalf("BoxToRegion(%v, %v) error = %v", box, size, err)
			}

			ratio := region.Scale.X / region.Scale.Y
			if math.Abs(ratio-aspect) > 1e-9*aspect {
				t.Errorf("box %v size %v: scale ratio %f, want %f", box, size, ratio, aspect)
			}

			naiveX := box.Width() / PixelStd
			naiveY := box.Height() / PixelStd
			if region.Scale.X < naiveX || region.Scale.Y < naiveY {
				t.Errorf("box %v size %v: scale %v shrank below naive (%f,%f)",
					box, size, region.Scale, naiveX, naiveY)
			}
		}
	}
}

func TestBoxToRegion_Idempotent(t *testing.T) {
	box := BoundingBox{X0: 12.5, Y0: 7.25, X1: 99.75, Y1: 301}

	first, err := BoxToRegion(box, 192, 256)
	if err != nil {
		t.Fatalf("BoxToRegion() error = %v", err)
	}
	second, err := BoxToRegion(box, 192, 256)
	if err != nil {
		t.Fatalf("BoxToRegion() error = %v", err)
	}

	if first != second {
		t.Errorf("BoxToRegion() not deterministic: %v vs %v", first, second)
	}
}

func TestBoxToRegion_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		box    BoundingBox
		width  int
		height int
	}{
		{name: "zero width", box: BoundingBox{X0: 5, Y0: 5, X1: 5, Y1: 50}, width: 192, height: 256},
		{name: "zero height", box: BoundingBox{X0: 5, Y0: 5, X1: 50, Y1: 5}, width: 192, height: 256},
		{name: "zero area", box: BoundingBox{}, width: 192, height: 256},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			region, err := BoxToRegion(tt.box, tt.width, tt.height)
			if !errors.Is(err, ErrInvalidBox) {
				t.Fatalf("expected ErrInvalidBox, got %v", err)
			}
			if region != (Region{}) {
				t.Errorf("expected zero region on error, got %v", region)
			}
		})
	}

	t.Run("non-positive network size", func(t *testing.T) {
		_, err := BoxToRegion(BoundingBox{X1: 10, Y1: 10}, 0, 256)
		if err == nil {
			t.Fatal("expected error for zero network width")
		}
		if errors.Is(err, ErrInvalidBox) {
			t.Error("network size error should not be an InvalidBoxError")
		}
	})
}

func TestBoundingBox_Rect(t *testing.T) {
	box := BoundingBox{X0: 10.4, Y0: 20.6, X1: 30.5, Y1: 40.49}
	r := box.Rect()

	if r.Min.X != 10 || r.Min.Y != 21 || r.Max.X != 31 || r.Max.Y != 40 {
		t.Errorf("Rect() = %v", r)
	}
}

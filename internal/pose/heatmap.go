package pose

import (
	"fmt"
	"math"
)

// DecodeHeatmaps reads joints heatmaps of h x w values laid out row-major,
// one after the other, and returns each joint's peak in heatmap coordinates.
//
// Non-finite values are ignored. A joint whose peak is not positive decodes
// to (0,0), and one with no finite value at all also gets a zero score. With
// postProcess set, a peak more than one cell inside the border moves a
// quarter pixel toward its higher neighbour on each axis.
func DecodeHeatmaps(data []float32, joints, h, w int, postProcess bool) ([]Keypoint, error) {
	if joints <= 0 || h <= 0 || w <= 0 {
		return nil, fmt.Errorf("invalid heatmap shape %dx%dx%d", joints, h, w)
	}
	size := h * w
	if len(data) < joints*size {
		return nil, fmt.Errorf("heatmap data has %d values, need %d", len(data), joints*size)
	}

	kps := make([]Keypoint, joints)
	for j := 0; j < joints; j++ {
		hm := data[j*size : (j+1)*size]

		idx := -1
		for i, v := range hm {
			if !finite(v) {
				continue
			}
			if idx < 0 || v > hm[idx] {
				idx = i
			}
		}
		if idx < 0 {
			continue
		}
		peak := float64(hm[idx])
		kps[j].Score = peak
		if peak <= 0 {
			continue
		}

		px, py := idx%w, idx/w
		x, y := float64(px), float64(py)
		if postProcess && px > 1 && px < w-1 && py > 1 && py < h-1 {
			x += 0.25 * sign(hm[py*w+px+1]-hm[py*w+px-1])
			y += 0.25 * sign(hm[(py+1)*w+px]-hm[(py-1)*w+px])
		}
		kps[j].X, kps[j].Y = x, y
	}
	return kps, nil
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func sign(v float32) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// normalizeCHW applies (v - mean) / std per channel to a planar blob of
// three channels of plane values each.
func normalizeCHW(data []float32, plane int, norm Normalization) error {
	if plane <= 0 || len(data) < 3*plane {
		return fmt.Errorf("blob has %d values, need %d", len(data), 3*plane)
	}
	for c := 0; c < 3; c++ {
		mean, std := float32(norm.Mean[c]), float32(norm.Std[c])
		ch := data[c*plane : (c+1)*plane]
		for i := range ch {
			ch[i] = (ch[i] - mean) / std
		}
	}
	return nil
}

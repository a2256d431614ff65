package detector

// Filter keeps the detections scoring strictly above threshold whose label is
// target, in their original order. A nil result means nothing qualified this
// frame, which is not an error.
func Filter(dets []Detection, threshold float64, target string) []Detection {
	var kept []Detection
	for _, d := range dets {
		if d.Score > threshold && d.Label == target {
			kept = append(kept, d)
		}
	}
	return kept
}

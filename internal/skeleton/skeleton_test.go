package skeleton

import (
	"image/color"
	"testing"
)

func TestBuiltinSkeletons(t *testing.T) {
	tests := []struct {
		name      string
		skeleton  Skeleton
		keypoints int
		edges     int
	}{
		{name: "hand", skeleton: Hand(), keypoints: 21, edges: 23},
		{name: "coco", skeleton: COCO(), keypoints: 17, edges: 17},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.skeleton.Validate(); err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if got := tt.skeleton.NumKeypoints(); got != tt.keypoints {
				t.Errorf("NumKeypoints() = %d, want %d", got, tt.keypoints)
			}
			if got := len(tt.skeleton.Edges); got != tt.edges {
				t.Errorf("len(Edges) = %d, want %d", got, tt.edges)
			}
		})
	}
}

func TestHand_FingerChains(t *testing.T) {
	hand := Hand()

	// Every fingertip must be reachable from the wrist.
	adj := make(map[int][]int)
	for _, e := range hand.Edges {
		adj[e[0]] = append(adj[e[0]], e[1])
		adj[e[1]] = append(adj[e[1]], e[0])
	}

	seen := map[int]bool{Wrist: true}
	queue := []int{Wrist}
	for len(queue) > 0 {
		k := queue[0]
		queue = queue[1:]
		for _, n := range adj[k] {
			if !seen[n] {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}

	for _, tip := range []int{ThumbTip, IndexTip, MiddleTip, RingTip, PinkyTip} {
		if !seen[tip] {
			t.Errorf("keypoint %s not connected to the wrist", hand.Names[tip])
		}
	}
}

func TestHand_ColorsAreBGRConverted(t *testing.T) {
	// The first edges are drawn in OpenCV (240,2,127), i.e. red 127, blue 240.
	got := Hand().Colors[0]
	want := color.RGBA{R: 127, G: 2, B: 240}
	if got != want {
		t.Errorf("Colors[0] = %v, want %v", got, want)
	}
}

func TestForJoints(t *testing.T) {
	tests := []struct {
		joints   int
		wantName string
		wantErr  bool
	}{
		{joints: 21, wantName: "hand"},
		{joints: 17, wantName: "coco"},
		{joints: 16, wantErr: true},
		{joints: 0, wantErr: true},
	}

	for _, tt := range tests {
		s, err := ForJoints(tt.joints)
		if (err != nil) != tt.wantErr {
			t.Errorf("ForJoints(%d) error = %v, wantErr %v", tt.joints, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && s.Name != tt.wantName {
			t.Errorf("ForJoints(%d) = %s, want %s", tt.joints, s.Name, tt.wantName)
		}
	}
}

func TestValidate_Errors(t *testing.T) {
	bad := Skeleton{
		Name:   "bad",
		Names:  []string{"a", "b"},
		Edges:  []Edge{{0, 2}},
		Colors: []color.RGBA{{}},
	}
	if err := bad.Validate(); err == nil {
		t.Error("expected error for out-of-range edge")
	}

	mismatch := Skeleton{
		Name:  "mismatch",
		Names: []string{"a", "b"},
		Edges: []Edge{{0, 1}},
	}
	if err := mismatch.Validate(); err == nil {
		t.Error("expected error for missing colors")
	}
}

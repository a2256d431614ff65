package skeleton

import "image/color"

// COCOKeypoints is the number of keypoints in the COCO body layout.
const COCOKeypoints = 17

var cocoNames = []string{
	"nose",
	"left_eye", "right_eye",
	"left_ear", "right_ear",
	"left_shoulder", "right_shoulder",
	"left_elbow", "right_elbow",
	"left_wrist", "right_wrist",
	"left_hip", "right_hip",
	"left_knee", "right_knee",
	"left_ankle", "right_ankle",
}

var cocoEdges = []Edge{
	{1, 3}, {1, 0}, {2, 4}, {2, 0}, {0, 5}, {0, 6},
	{5, 7}, {7, 9}, {6, 8}, {8, 10}, {5, 11}, {6, 12},
	{11, 12}, {11, 13}, {13, 15}, {12, 14}, {14, 16},
}

var cocoColors = []color.RGBA{
	bgr(255, 0, 0), bgr(255, 85, 0), bgr(255, 170, 0), bgr(255, 255, 0),
	bgr(170, 255, 0), bgr(85, 255, 0), bgr(0, 255, 0), bgr(0, 255, 85),
	bgr(0, 255, 170), bgr(0, 255, 255), bgr(0, 170, 255), bgr(0, 85, 255),
	bgr(0, 0, 255), bgr(85, 0, 255), bgr(170, 0, 255), bgr(255, 0, 255),
	bgr(255, 0, 170),
}

// COCO returns the 17-keypoint COCO body skeleton.
func COCO() Skeleton {
	return Skeleton{
		Name:   "coco",
		Names:  cocoNames,
		Edges:  cocoEdges,
		Colors: cocoColors,
	}
}

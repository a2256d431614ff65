package skeleton

import "image/color"

// Hand keypoint indices (wrist first, then four joints per finger from the
// thumb to the pinky).
const (
	Wrist         = 0
	ThumbCMC      = 1
	ThumbMCP      = 2
	ThumbIP       = 3
	ThumbTip      = 4
	IndexMCP      = 5
	IndexPIP      = 6
	IndexDIP      = 7
	IndexTip      = 8
	MiddleMCP     = 9
	MiddlePIP     = 10
	MiddleDIP     = 11
	MiddleTip     = 12
	RingMCP       = 13
	RingPIP       = 14
	RingDIP       = 15
	RingTip       = 16
	PinkyMCP      = 17
	PinkyPIP      = 18
	PinkyDIP      = 19
	PinkyTip      = 20
	HandKeypoints = 21
)

var handNames = []string{
	"wrist",
	"thumb_cmc", "thumb_mcp", "thumb_ip", "thumb_tip",
	"index_mcp", "index_pip", "index_dip", "index_tip",
	"middle_mcp", "middle_pip", "middle_dip", "middle_tip",
	"ring_mcp", "ring_pip", "ring_dip", "ring_tip",
	"pinky_mcp", "pinky_pip", "pinky_dip", "pinky_tip",
}

// Palm spokes and knuckle line first, then each finger from base to tip.
var handEdges = []Edge{
	{Wrist, ThumbCMC}, {Wrist, IndexMCP}, {Wrist, MiddleMCP},
	{Wrist, RingMCP}, {Wrist, PinkyMCP}, {ThumbCMC, IndexMCP},
	{IndexMCP, MiddleMCP}, {MiddleMCP, RingMCP}, {ThumbCMC, ThumbMCP},
	{ThumbMCP, ThumbIP}, {ThumbIP, ThumbTip}, {IndexMCP, IndexPIP},
	{IndexPIP, IndexDIP}, {IndexDIP, IndexTip}, {MiddleMCP, MiddlePIP},
	{MiddlePIP, MiddleDIP}, {MiddleDIP, MiddleTip}, {RingMCP, RingPIP},
	{RingPIP, RingDIP}, {RingDIP, RingTip}, {PinkyMCP, PinkyPIP},
	{PinkyPIP, PinkyDIP}, {PinkyDIP, PinkyTip},
}

var handColors = []color.RGBA{
	bgr(240, 2, 127), bgr(240, 2, 127), bgr(240, 2, 127),
	bgr(240, 2, 127), bgr(240, 2, 127),
	bgr(255, 255, 51), bgr(255, 255, 51),
	bgr(254, 153, 41), bgr(44, 127, 184),
	bgr(217, 95, 14), bgr(0, 0, 255),
	bgr(255, 255, 51), bgr(255, 255, 51), bgr(228, 26, 28),
	bgr(49, 163, 84), bgr(252, 176, 243), bgr(0, 176, 240),
	bgr(255, 255, 0), bgr(169, 209, 142),
	bgr(255, 255, 0), bgr(169, 209, 142),
	bgr(255, 255, 0), bgr(169, 209, 142),
}

// Hand returns the 21-keypoint hand skeleton.
func Hand() Skeleton {
	return Skeleton{
		Name:   "hand",
		Names:  handNames,
		Edges:  handEdges,
		Colors: handColors,
	}
}

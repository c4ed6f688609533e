// Package vision holds the hand-landmark vocabulary produced by an external
// hand-tracking pipeline and the per-frame gesture classifiers built on it.
package vision

import "time"

// HandLandmarkCount is the number of labeled points the tracking pipeline
// reports per detected hand.
const HandLandmarkCount = 21

// Landmark indices, following the tracking pipeline's hand model ordering.
// Only the fingertip/PIP pairs of the four fingers are read by the gesture
// classifiers; the rest are carried through for consumers that want them.
const (
	LandmarkWrist           = 0
	LandmarkThumbTip        = 4
	LandmarkIndexFingerPIP  = 6
	LandmarkIndexFingerTip  = 8
	LandmarkMiddleFingerPIP = 10
	LandmarkMiddleFingerTip = 12
	LandmarkRingFingerPIP   = 14
	LandmarkRingFingerTip   = 16
	LandmarkPinkyPIP        = 18
	LandmarkPinkyTip        = 20
)

// Landmark is a single tracked point in normalized image coordinates. Y grows
// downward, so a fingertip "above" its joint has the smaller Y.
type Landmark struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Hand is one detected hand's full landmark set for a single frame.
type Hand struct {
	Landmarks [HandLandmarkCount]Landmark `json:"landmarks"`
}

// Frame carries every hand detected in a single camera frame.
type Frame struct {
	Hands     []Hand    `json:"hands"`
	Timestamp time.Time `json:"timestamp"`
}

package vision

// fingerJoints pairs each finger's tip with its proximal interphalangeal
// joint. The thumb is deliberately excluded; its abduction axis makes the
// tip/PIP comparison unreliable.
var fingerJoints = [4][2]int{
	{LandmarkIndexFingerTip, LandmarkIndexFingerPIP},
	{LandmarkMiddleFingerTip, LandmarkMiddleFingerPIP},
	{LandmarkRingFingerTip, LandmarkRingFingerPIP},
	{LandmarkPinkyTip, LandmarkPinkyPIP},
}

func (h Hand) fingerExtended(finger int) bool {
	tip, pip := fingerJoints[finger][0], fingerJoints[finger][1]
	return h.Landmarks[tip].Y < h.Landmarks[pip].Y
}

func (h Hand) fingerCurled(finger int) bool {
	tip, pip := fingerJoints[finger][0], fingerJoints[finger][1]
	return h.Landmarks[tip].Y > h.Landmarks[pip].Y
}

// IsOpenPalm reports whether all four fingertips sit above their proximal
// joints. Strict comparisons keep this mutually exclusive with IsClosedFist
// for any single hand; a hand can match neither.
func IsOpenPalm(hand Hand) bool {
	for finger := range fingerJoints {
		if !hand.fingerExtended(finger) {
			return false
		}
	}
	return true
}

// IsClosedFist reports whether all four fingertips sit below their proximal
// joints.
func IsClosedFist(hand Hand) bool {
	for finger := range fingerJoints {
		if !hand.fingerCurled(finger) {
			return false
		}
	}
	return true
}

// IsVictoryHand reports whether index and middle fingers are extended while
// ring and pinky are curled.
func IsVictoryHand(hand Hand) bool {
	return hand.fingerExtended(0) && hand.fingerExtended(1) &&
		hand.fingerCurled(2) && hand.fingerCurled(3)
}

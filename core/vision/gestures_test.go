package vision

import "testing"

// handWithFingers builds a hand whose four fingers (index, middle, ring,
// pinky) are either extended (tip above PIP) or curled (tip below PIP).
func handWithFingers(extended [4]bool) Hand {
	var hand Hand
	for finger, joints := range fingerJoints {
		tip, pip := joints[0], joints[1]
		hand.Landmarks[pip].Y = 0.5
		if extended[finger] {
			hand.Landmarks[tip].Y = 0.3
		} else {
			hand.Landmarks[tip].Y = 0.7
		}
	}
	return hand
}

func TestIsOpenPalmRequiresAllFingersExtended(t *testing.T) {
	if !IsOpenPalm(handWithFingers([4]bool{true, true, true, true})) {
		t.Fatalf("expected fully extended hand to classify as open palm")
	}

	for finger := range fingerJoints {
		fingers := [4]bool{true, true, true, true}
		fingers[finger] = false
		if IsOpenPalm(handWithFingers(fingers)) {
			t.Fatalf("expected open palm to fail with finger %d curled", finger)
		}
	}
}

func TestIsClosedFistRequiresAllFingersCurled(t *testing.T) {
	if !IsClosedFist(handWithFingers([4]bool{false, false, false, false})) {
		t.Fatalf("expected fully curled hand to classify as closed fist")
	}

	for finger := range fingerJoints {
		fingers := [4]bool{false, false, false, false}
		fingers[finger] = true
		if IsClosedFist(handWithFingers(fingers)) {
			t.Fatalf("expected closed fist to fail with finger %d extended", finger)
		}
	}
}

func TestOpenPalmAndClosedFistAreMutuallyExclusive(t *testing.T) {
	for mask := 0; mask < 16; mask++ {
		var fingers [4]bool
		for finger := range fingers {
			fingers[finger] = mask&(1<<finger) != 0
		}
		hand := handWithFingers(fingers)
		if IsOpenPalm(hand) && IsClosedFist(hand) {
			t.Fatalf("hand %v classified as both open palm and closed fist", fingers)
		}
	}
}

func TestFlatHandMatchesNeitherPalmNorFist(t *testing.T) {
	var hand Hand
	for _, joints := range fingerJoints {
		hand.Landmarks[joints[0]].Y = 0.5
		hand.Landmarks[joints[1]].Y = 0.5
	}

	if IsOpenPalm(hand) {
		t.Fatalf("expected hand with tips level with joints not to be an open palm")
	}
	if IsClosedFist(hand) {
		t.Fatalf("expected hand with tips level with joints not to be a closed fist")
	}
}

func TestIsVictoryHand(t *testing.T) {
	victory := handWithFingers([4]bool{true, true, false, false})
	if !IsVictoryHand(victory) {
		t.Fatalf("expected index+middle extended with ring+pinky curled to be a victory hand")
	}
	if IsOpenPalm(victory) || IsClosedFist(victory) {
		t.Fatalf("expected victory hand to match neither open palm nor closed fist")
	}

	if IsVictoryHand(handWithFingers([4]bool{true, true, true, false})) {
		t.Fatalf("expected victory hand to fail with ring finger extended")
	}
	if IsVictoryHand(handWithFingers([4]bool{true, false, false, false})) {
		t.Fatalf("expected victory hand to fail with middle finger curled")
	}
}

package orchestration

import (
	"sync"
	"time"

	"github.com/voiceos-labs/voiceos-core/core/vision"
)

// defaultGestureCooldown is the minimum time between accepted gesture
// transitions. Classification is per frame with no hysteresis, so the
// cooldown is the only thing keeping a held gesture from firing on every
// frame.
const defaultGestureCooldown = 2 * time.Second

type gestureAction int

const (
	gestureActionNone gestureAction = iota
	gestureActionStartListening
	gestureActionStopListening
	gestureActionResetConversation
)

// gestureControl debounces raw per-frame gesture classifications into
// discrete actions. An open palm starts listening, a closed fist stops it,
// and a victory sign resets the conversation. The reset is only read while
// idle, so a sloppy fist release cannot wipe the history mid-capture.
type gestureControl struct {
	mu             sync.Mutex
	cooldown       time.Duration
	lastActivation time.Time

	now func() time.Time
}

func newGestureControl(cooldown time.Duration) *gestureControl {
	return &gestureControl{cooldown: cooldown, now: time.Now}
}

// observe classifies one hand against the current listening state and
// returns the action to take, if any. Detections inside the cooldown window
// are dropped; the window restarts only on accepted transitions.
func (g *gestureControl) observe(hand vision.Hand, listening bool) gestureAction {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if now.Sub(g.lastActivation) <= g.cooldown {
		return gestureActionNone
	}

	action := gestureActionNone
	if listening {
		if vision.IsClosedFist(hand) {
			action = gestureActionStopListening
		}
	} else if vision.IsOpenPalm(hand) {
		action = gestureActionStartListening
	} else if vision.IsVictoryHand(hand) {
		action = gestureActionResetConversation
	}

	if action != gestureActionNone {
		g.lastActivation = now
	}
	return action
}

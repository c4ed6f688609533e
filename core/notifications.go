package orchestration

import "log"

// notifier wraps the configured speech synthesizer for status cues and
// spoken responses. A new cue preempts whatever is currently being spoken:
// stale speech about an interrupted turn is worse than silence, so there is
// no queue.
type notifier struct {
	synthesizer Synthesizer
}

func (n *notifier) set(synthesizer Synthesizer) {
	if n != nil {
		n.synthesizer = synthesizer
	}
}

func (n *notifier) isConfigured() bool {
	return n != nil && n.synthesizer != nil
}

// Speak stops any in-progress speech and speaks text. Fire and forget;
// playback failures are logged, never surfaced.
func (n *notifier) Speak(text string) {
	if !n.isConfigured() || text == "" {
		return
	}

	n.synthesizer.Stop()
	if err := n.synthesizer.Speak(text); err != nil {
		log.Println("Warning: failed to speak notification:", err)
	}
}

func (n *notifier) Stop() {
	if !n.isConfigured() {
		return
	}

	n.synthesizer.Stop()
}

// Package macos speaks text aloud through the system voice using the native
// say command.
package macos

import (
	"fmt"
	"os/exec"
	"sync"
)

type Speaker struct {
	voice string

	mu      sync.Mutex
	current *exec.Cmd
}

type SpeakerOption func(*Speaker)

// WithVoice selects the system voice used for playback. The default is
// whatever voice is configured system-wide.
func WithVoice(voice string) SpeakerOption {
	return func(s *Speaker) {
		s.voice = voice
	}
}

func NewSpeaker(opts ...SpeakerOption) *Speaker {
	speaker := &Speaker{}
	for _, opt := range opts {
		opt(speaker)
	}
	return speaker
}

// Speak pronounces text aloud, interrupting whatever was being spoken before.
// Markdown decorations and characters the voice would read out loud are
// stripped first; text that is empty after stripping is ignored.
func (s *Speaker) Speak(text string) error {
	clean := sanitize(text)
	if clean == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	args := []string{}
	if s.voice != "" {
		args = append(args, "-v", s.voice)
	}
	args = append(args, clean)

	cmd := exec.Command("say", args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start speech playback: %w", err)
	}
	s.current = cmd

	go func() {
		_ = cmd.Wait()
		s.mu.Lock()
		if s.current == cmd {
			s.current = nil
		}
		s.mu.Unlock()
	}()

	return nil
}

// Stop interrupts the current speech, if any.
func (s *Speaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Speaker) stopLocked() {
	if s.current == nil {
		return
	}
	_ = s.current.Process.Kill()
	s.current = nil
}

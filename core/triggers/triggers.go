// Package triggers defines the command vocabulary produced by the assistant's
// trigger sources. Every source, whatever its modality, reduces to a Command.
package triggers

import "time"

// Source identifies the modality that produced a command.
type Source string

const (
	SourceGesture  Source = "gesture"
	SourceWakeWord Source = "wake-word"
	SourceTyped    Source = "typed"
)

// Command is one recognized user instruction. Immutable once built.
type Command struct {
	Text   string
	Source Source

	timestamp time.Time
}

func (c Command) String() string {
	return c.Text
}

// Timestamp reports when the command was produced.
func (c Command) Timestamp() time.Time {
	return c.timestamp
}

// IsTranscribed reports whether the command text came from speech rather than
// a keyboard. Transcribed text gets extra cleanup before dispatch.
func (c Command) IsTranscribed() bool {
	return c.Source == SourceGesture || c.Source == SourceWakeWord
}

func newCommand(text string, source Source) Command {
	return Command{Text: text, Source: source, timestamp: time.Now()}
}

// NewGestureCommand wraps a transcript captured between gesture transitions.
func NewGestureCommand(text string) Command {
	return newCommand(text, SourceGesture)
}

// NewWakeWordCommand wraps a spoken command that followed a wake word.
func NewWakeWordCommand(text string) Command {
	return newCommand(text, SourceWakeWord)
}

// NewTypedCommand wraps text entered through a panel or console.
func NewTypedCommand(text string) Command {
	return newCommand(text, SourceTyped)
}

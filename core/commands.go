package orchestration

import (
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/voiceos-labs/voiceos-core/core/agents"
	"github.com/voiceos-labs/voiceos-core/core/triggers"
)

// Spoken status cues. Kept to a word or two so a cue finishes before the
// next one can preempt it.
const (
	cueListening    = "Listening"
	cueProcessing   = "Processing"
	cueDone         = "Done"
	cueBusy         = "Busy"
	cueApology      = "Sorry, something went wrong."
	cueHistoryReset = "History reset"
)

// cleanTranscript normalizes a command before dispatch. Capture opens right
// after the spoken "Listening" cue, so the cue itself sometimes leaks into
// the start of the transcript and is stripped along with leading
// punctuation. Typed commands only get whitespace trimming.
func cleanTranscript(text string, transcribed bool) string {
	text = strings.TrimSpace(text)
	if !transcribed {
		return text
	}

	if len(text) >= len(cueListening) && strings.EqualFold(text[:len(cueListening)], cueListening) {
		text = text[len(cueListening):]
	}
	return strings.TrimLeft(text, ".,!?- ")
}

// SubmitCommand routes one recognized command: the fast path first, then the
// remote exchange through the scheduler. Safe to call from any trigger
// goroutine. Returns the handle tracking the remote exchange, or nil when
// the command was handled locally or dropped.
func (o *Orchestrator) SubmitCommand(command triggers.Command) *TaskHandle {
	ctx, span := tracer.Start(o.baseContext, "submit command")
	defer span.End()
	span.SetAttributes(attribute.String("command.source", string(command.Source)))

	text := cleanTranscript(command.Text, command.IsTranscribed())
	if text == "" {
		span.AddEvent("empty command dropped")
		return nil
	}

	if o.orchestrateOptions.onCommand != nil {
		o.orchestrateOptions.onCommand(text, command.Source)
	}

	if command.Source == triggers.SourceGesture {
		o.notifier.Speak(cueProcessing)
	}

	content := []agents.ContentBlock{agents.TextBlock{Text: text}}
	if note := o.fastPath.dispatch(ctx, text); note != "" {
		span.AddEvent("fast path handled command")
		if o.orchestrateOptions.onFastPath != nil {
			o.orchestrateOptions.onFastPath(note)
		}
		if o.fastPath.config.Mode == FastPathShortCircuit {
			o.notifier.Speak(cueDone)
			return nil
		}
		content = append(content, agents.TextBlock{Text: "\n\n(" + note + ")"})
	}

	turns, generation := o.conversation.appendUser(agents.NewUserTurn(content...))

	handle := newTaskHandle(text)
	if !o.scheduler.Submit(scheduledCommand{
		handle:     handle,
		turns:      turns,
		generation: generation,
		queuedAt:   time.Now(),
	}) {
		handle.finish(TaskCancelled, nil)
	}
	return handle
}

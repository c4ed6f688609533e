package orchestration

import (
	"context"
	"time"

	"github.com/voiceos-labs/voiceos-core/core/actions"
	"github.com/voiceos-labs/voiceos-core/core/agents"
	"github.com/voiceos-labs/voiceos-core/core/speech"
	"github.com/voiceos-labs/voiceos-core/core/triggers"
)

type OrchestratorOption func(*Orchestrator)

// AgentClient runs one full remote exchange against a history snapshot.
type AgentClient interface {
	RunExchange(ctx context.Context, history []agents.Turn, opts ...agents.ExchangeOption) ([]agents.Turn, error)
}

func WithAgentClient(client AgentClient) OrchestratorOption {
	return func(o *Orchestrator) {
		o.agent.set(client)
	}
}

// Transcriber captures microphone audio and turns it into text. Both calls
// block until their context is cancelled or, for wake-word listening, a
// command is heard.
type Transcriber interface {
	CaptureUntilStopped(ctx context.Context, opts ...speech.CaptureOption) (string, error)
	ListenForWakeWord(ctx context.Context, wakeWords []string, opts ...speech.CaptureOption) (string, error)
}

func WithTranscriber(client Transcriber) OrchestratorOption {
	return func(o *Orchestrator) {
		o.transcriber.set(client)
	}
}

// Synthesizer speaks text aloud. Speak starts playback and returns; Stop
// interrupts whatever is playing.
type Synthesizer interface {
	Speak(text string) error
	Stop()
}

func WithSynthesizer(client Synthesizer) OrchestratorOption {
	return func(o *Orchestrator) {
		o.notifier.set(client)
	}
}

// AppController launches and gracefully quits applications.
type AppController interface {
	LaunchApp(ctx context.Context, name string) error
	QuitApp(ctx context.Context, name string) error
}

func WithAppController(controller AppController) OrchestratorOption {
	return func(o *Orchestrator) {
		o.apps.set(controller)
	}
}

// ScreenController drives the pointer, keyboard and screen capture.
// Coordinates are in desktop space; the orchestrator scales agent
// coordinates before they get here.
type ScreenController interface {
	Screenshot(ctx context.Context) ([]byte, error)
	ScreenSize(ctx context.Context) (int, int, error)
	MoveMouse(ctx context.Context, to actions.Point) error
	Drag(ctx context.Context, to actions.Point) error
	Click(ctx context.Context, kind actions.ClickKind, at *actions.Point) error
	TypeText(ctx context.Context, text string) error
	PressKey(ctx context.Context, combo string) error
	Scroll(ctx context.Context, direction actions.ScrollDirection, amount int) error
	CursorPosition(ctx context.Context) (actions.Point, error)
}

func WithScreenController(controller ScreenController) OrchestratorOption {
	return func(o *Orchestrator) {
		o.screen.set(controller)
	}
}

// WithFastPath replaces the fast-path configuration. Zero fields keep their
// defaults.
func WithFastPath(config FastPathConfig) OrchestratorOption {
	return func(o *Orchestrator) {
		defaults := defaultFastPathConfig()
		if config.Mode == "" {
			config.Mode = defaults.Mode
		}
		if config.MaxAppNameTokens <= 0 {
			config.MaxAppNameTokens = defaults.MaxAppNameTokens
		}
		if config.Conjunctions == nil {
			config.Conjunctions = defaults.Conjunctions
		}
		o.fastPath.config = config
	}
}

func WithGestureCooldown(cooldown time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if cooldown > 0 {
			o.gestures.cooldown = cooldown
		}
	}
}

func WithModel(model string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.model = model
	}
}

// WithSystemPromptSuffix appends entry-point specific instructions to the
// agent's system prompt, e.g. asking for one-sentence answers when responses
// are spoken aloud.
func WithSystemPromptSuffix(suffix string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.systemPromptSuffix = suffix
	}
}

func WithMaxTokens(maxTokens int) OrchestratorOption {
	return func(o *Orchestrator) {
		o.maxTokens = maxTokens
	}
}

// WithImageRetentionLimit caps how many recent screenshots are kept in
// outgoing requests. Zero keeps all of them.
func WithImageRetentionLimit(limit int) OrchestratorOption {
	return func(o *Orchestrator) {
		o.imageRetentionLimit = limit
	}
}

// WithWakeWords replaces the wake words accepted by RunWakeWordLoop.
func WithWakeWords(words ...string) OrchestratorOption {
	return func(o *Orchestrator) {
		if len(words) > 0 {
			o.wakeWords = words
		}
	}
}

// WithTools adds tools the agent may invoke. Repeating this option appends.
func WithTools(tools ...agents.Tool) OrchestratorOption {
	return func(o *Orchestrator) {
		o.tools = append(o.tools, tools...)
	}
}

// WithDesktopControlTools equips the agent with the built-in computer and
// application tools, backed by the configured controllers. Order relative to
// the controller options does not matter.
func WithDesktopControlTools() OrchestratorOption {
	return func(o *Orchestrator) {
		o.tools = append(o.tools, computerTool(o), appControlTool(o))
	}
}

type OrchestrateOptions struct {
	onCommand               func(command string, source triggers.Source)
	onInterimTranscription  func(transcript string)
	onTranscription         func(transcript string)
	onResponse              func(response string)
	onToolUse               func(name string)
	onToolOutput            func(name string, output string)
	onResponseEnd           func()
	onCancellation          func()
	onFailure               func(err error)
	onFastPath              func(note string)
	onListeningStateChanged func(listening bool)
	onHistoryReset          func()
}

type OrchestrateOption func(*OrchestrateOptions)

// WithCommandCallback registers a callback for every accepted command, after
// transcript cleanup and before dispatch.
func WithCommandCallback(callback func(command string, source triggers.Source)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onCommand = callback
	}
}

// WithInterimTranscriptionCallback registers a callback for interim
// transcriptions produced while a capture is in progress.
func WithInterimTranscriptionCallback(callback func(transcript string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onInterimTranscription = callback
	}
}

// WithTranscriptionCallback registers a callback for finalized transcription
// segments.
func WithTranscriptionCallback(callback func(transcript string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onTranscription = callback
	}
}

func WithResponseCallback(callback func(response string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onResponse = callback
	}
}

// WithToolUseCallback registers a callback for every tool invocation the
// agent requests during an exchange.
func WithToolUseCallback(callback func(name string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onToolUse = callback
	}
}

// WithToolOutputCallback registers a callback for the text output of every
// tool invocation. Screenshot payloads are not forwarded.
func WithToolOutputCallback(callback func(name string, output string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onToolOutput = callback
	}
}

func WithResponseEndCallback(callback func()) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onResponseEnd = callback
	}
}

func WithCancellationCallback(callback func()) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onCancellation = callback
	}
}

func WithFailureCallback(callback func(err error)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onFailure = callback
	}
}

// WithFastPathCallback registers a callback invoked with the note of every
// command the fast path handled locally.
func WithFastPathCallback(callback func(note string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onFastPath = callback
	}
}

func WithListeningStateCallback(callback func(listening bool)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onListeningStateChanged = callback
	}
}

func WithHistoryResetCallback(callback func()) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onHistoryReset = callback
	}
}

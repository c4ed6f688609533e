package orchestration

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/voiceos-labs/voiceos-core/core/agents"
	"github.com/voiceos-labs/voiceos-core/core/vision"
)

const (
	defaultImageRetentionLimit = 10

	defaultWakeWord = "voiceos"
)

type Orchestrator struct {
	conversation conversation
	scheduler    *turnScheduler
	gestures     *gestureControl
	fastPath     fastPath

	// agent is the exchange facade used to handle optional client wiring.
	agent agentConnection
	// transcriber is the capture facade used to normalize listening behavior.
	transcriber speechCapture
	notifier    notifier
	apps        appControl
	screen      screenControl

	model               string
	systemPromptSuffix  string
	maxTokens           int
	imageRetentionLimit int
	wakeWords           []string
	tools               []agents.Tool

	listeningMu      sync.Mutex
	listening        bool
	listeningSession *listeningSession

	orchestrateOptions OrchestrateOptions
	baseContext        context.Context

	closeOnce sync.Once
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		scheduler:           newTurnScheduler(),
		gestures:            newGestureControl(defaultGestureCooldown),
		imageRetentionLimit: defaultImageRetentionLimit,
		wakeWords:           []string{defaultWakeWord},
		baseContext:         context.Background(),
	}
	o.fastPath = fastPath{config: defaultFastPathConfig(), apps: &o.apps}
	o.scheduler.SetOnFinished(o.announceTaskEnd)

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Orchestrate starts the loop that serves submitted commands until ctx is
// cancelled or Close is called.
//
// ctx is used as a base context for any agent and tool calls, allowing for
// cancellation.
//
// Contract: call Orchestrate at most once per orchestrator instance.
// Repeated or concurrent calls are unsupported and may race while callbacks
// are being reconfigured.
func (o *Orchestrator) Orchestrate(ctx context.Context, opts ...OrchestrateOption) {
	if !o.scheduler.CanSubmit() {
		log.Println("Warning: orchestrator already closed, skipping Orchestrate")
		return
	}

	o.orchestrateOptions = OrchestrateOptions{}
	for _, opt := range opts {
		opt(&o.orchestrateOptions)
	}

	o.baseContext = ctx

	if started := o.scheduler.StartLoop(ctx, o.runCommandTurn); started {
		go func() {
			<-ctx.Done()
			o.Close()
		}()
	}
}

// Close stops listening, cancels the command being served, drops anything
// still queued and waits for the loop to drain. Safe to call more than once.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		o.listeningMu.Lock()
		session := o.listeningSession
		o.listeningMu.Unlock()
		if session != nil {
			session.cancel()
			<-session.done
		}

		o.scheduler.CancelCurrent()
		o.scheduler.Stop()
		o.scheduler.AwaitDone()
		for _, command := range o.scheduler.Clear() {
			command.handle.finish(TaskCancelled, nil)
		}

		o.notifier.Stop()
	})
}

// ObserveFrame feeds one hand-tracking frame into gesture control.
func (o *Orchestrator) ObserveFrame(frame vision.Frame) {
	for _, hand := range frame.Hands {
		o.ObserveHand(hand)
	}
}

// ObserveHand maps a single detected hand onto the listening controls: an
// open palm starts listening, a closed fist stops it and a victory sign
// resets the conversation while idle.
func (o *Orchestrator) ObserveHand(hand vision.Hand) {
	switch o.gestures.observe(hand, o.IsListening()) {
	case gestureActionStartListening:
		o.StartListening()
	case gestureActionStopListening:
		o.StopListening()
	case gestureActionResetConversation:
		o.ResetConversation()
	}
}

// ResetConversation speaks the reset cue, cancels the command being served
// and clears the conversation history. Turns a cancelled exchange commits
// while unwinding belong to the old generation and are discarded.
func (o *Orchestrator) ResetConversation() {
	o.notifier.Speak(cueHistoryReset)
	o.scheduler.CancelCurrent()
	o.conversation.reset()

	if o.orchestrateOptions.onHistoryReset != nil {
		o.orchestrateOptions.onHistoryReset()
	}
}

// Speak synthesizes the given text, interrupting anything currently being
// spoken.
func (o *Orchestrator) Speak(text string) {
	o.notifier.Speak(text)
}

// StopSpeaking interrupts any in-progress speech.
func (o *Orchestrator) StopSpeaking() {
	o.notifier.Stop()
}

// History returns a copy of the committed conversation history.
func (o *Orchestrator) History() []agents.Turn {
	return o.conversation.history()
}

// CurrentTask returns the handle of the command currently being served, nil
// when idle.
func (o *Orchestrator) CurrentTask() *TaskHandle {
	return o.scheduler.Current()
}

func (o *Orchestrator) runCommandTurn(ctx context.Context, command scheduledCommand) error {
	if !o.agent.isConfigured() {
		return fmt.Errorf("no agent client configured")
	}

	opts := []agents.ExchangeOption{
		agents.WithImageRetentionLimit(o.imageRetentionLimit),
		agents.WithTools(o.tools...),
		agents.WithProgressCallback(func(block agents.ContentBlock) {
			switch block := block.(type) {
			case agents.TextBlock:
				o.notifier.Speak(block.Text)
				if o.orchestrateOptions.onResponse != nil {
					o.orchestrateOptions.onResponse(block.Text)
				}
			case agents.ToolUseBlock:
				if o.orchestrateOptions.onToolUse != nil {
					o.orchestrateOptions.onToolUse(block.Name)
				}
			}
		}),
		agents.WithTurnCommitter(func(turn agents.Turn) {
			if !o.conversation.commit(command.generation, turn) {
				log.Println("Warning: discarding turn committed after history reset")
			}
		}),
	}
	if o.orchestrateOptions.onToolOutput != nil {
		opts = append(opts, agents.WithToolOutputCallback(func(name string, result agents.ToolResultBlock) {
			o.orchestrateOptions.onToolOutput(name, result.Content)
		}))
	}
	if o.model != "" {
		opts = append(opts, agents.WithModel(o.model))
	}
	if o.systemPromptSuffix != "" {
		opts = append(opts, agents.WithSystemPromptSuffix(o.systemPromptSuffix))
	}
	if o.maxTokens > 0 {
		opts = append(opts, agents.WithMaxTokens(o.maxTokens))
	}

	if _, err := o.agent.RunExchange(ctx, command.turns, opts...); err != nil {
		return err
	}

	if o.orchestrateOptions.onResponseEnd != nil {
		o.orchestrateOptions.onResponseEnd()
	}
	return nil
}

// announceTaskEnd turns terminal task states into their spoken cues. Runs on
// the scheduler loop after every handle finishes.
func (o *Orchestrator) announceTaskEnd(handle *TaskHandle) {
	switch handle.State() {
	case TaskCancelled:
		o.notifier.Speak(cueBusy)
		if o.orchestrateOptions.onCancellation != nil {
			o.orchestrateOptions.onCancellation()
		}
	case TaskFailed:
		log.Println("Failed to process command:", handle.Err())
		o.notifier.Speak(cueApology)
		if o.orchestrateOptions.onFailure != nil {
			o.orchestrateOptions.onFailure(handle.Err())
		}
	}
}

package orchestration

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/voiceos-labs/voiceos-core/core/agents"
	"github.com/voiceos-labs/voiceos-core/core/speech"
	"github.com/voiceos-labs/voiceos-core/core/triggers"
)

func TestOrchestratorServesTypedCommand(t *testing.T) {
	voice := &scriptedSynthesizer{}
	agent := &scriptedAgentClient{
		run: func(ctx context.Context, history []agents.Turn, options agents.ExchangeOptions) ([]agents.Turn, error) {
			response := agents.NewAssistantTurn(agents.TextBlock{Text: "It is noon."})
			options.OnProgress(agents.TextBlock{Text: "It is noon."})
			options.OnTurn(response)
			return append(history, response), nil
		},
	}

	o := NewOrchestrator(WithAgentClient(agent), WithSynthesizer(voice))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.Orchestrate(ctx)
	defer o.Close()

	handle := o.SubmitCommand(triggers.NewTypedCommand("what time is it"))
	if handle == nil {
		t.Fatal("expected a task handle, got nil")
	}
	awaitState(t, handle, TaskCompleted)

	if got := agent.callCount(); got != 1 {
		t.Fatalf("expected 1 exchange, got %d", got)
	}
	call := agent.lastCall()
	if len(call) != 1 || call[0].Text() != "what time is it" {
		t.Fatalf("expected an exchange over the submitted command, got %+v", call)
	}

	history := o.History()
	if len(history) != 2 {
		t.Fatalf("expected user and assistant turns in history, got %d", len(history))
	}
	if !slices.Contains(voice.spoken(), "It is noon.") {
		t.Fatalf("expected the response to be spoken, got %v", voice.spoken())
	}
}

func TestGestureCommandStripsListeningEcho(t *testing.T) {
	voice := &scriptedSynthesizer{}
	agent := &scriptedAgentClient{}

	o := NewOrchestrator(WithAgentClient(agent), WithSynthesizer(voice))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.Orchestrate(ctx)
	defer o.Close()

	handle := o.SubmitCommand(triggers.NewGestureCommand("Listening, what time is it"))
	if handle == nil {
		t.Fatal("expected a task handle, got nil")
	}
	awaitState(t, handle, TaskCompleted)

	call := agent.lastCall()
	if len(call) != 1 || call[0].Text() != "what time is it" {
		t.Fatalf("expected the echoed cue to be stripped, got %+v", call)
	}
	if !slices.Contains(voice.spoken(), cueProcessing) {
		t.Fatalf("expected the processing cue for a gesture command, got %v", voice.spoken())
	}
}

func TestEmptyTranscriptIsDropped(t *testing.T) {
	voice := &scriptedSynthesizer{}
	agent := &scriptedAgentClient{}

	o := NewOrchestrator(WithAgentClient(agent), WithSynthesizer(voice))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.Orchestrate(ctx)
	defer o.Close()

	handle := o.SubmitCommand(triggers.NewGestureCommand(" Listening.,  "))
	if handle != nil {
		t.Fatalf("expected no handle for an empty transcript, got state %v", handle.State())
	}
	if got := o.History(); len(got) != 0 {
		t.Fatalf("expected history to stay empty, got %d turns", len(got))
	}
	if got := voice.spoken(); len(got) != 0 {
		t.Fatalf("expected no cues for a dropped command, got %v", got)
	}
}

func TestFastPathShortCircuitSkipsExchange(t *testing.T) {
	voice := &scriptedSynthesizer{}
	agent := &scriptedAgentClient{}
	controller := &scriptedAppController{}

	o := NewOrchestrator(
		WithAgentClient(agent),
		WithSynthesizer(voice),
		WithAppController(controller),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.Orchestrate(ctx)
	defer o.Close()

	handle := o.SubmitCommand(triggers.NewTypedCommand("open safari"))
	if handle != nil {
		t.Fatalf("expected locally handled command to return no handle, got state %v", handle.State())
	}
	if len(controller.launched) != 1 || controller.launched[0] != "safari" {
		t.Fatalf("expected safari to be launched, got %v", controller.launched)
	}
	if !slices.Contains(voice.spoken(), cueDone) {
		t.Fatalf("expected the done cue, got %v", voice.spoken())
	}
	if got := agent.callCount(); got != 0 {
		t.Fatalf("expected no exchange, got %d", got)
	}
	if got := o.History(); len(got) != 0 {
		t.Fatalf("expected history to stay empty, got %d turns", len(got))
	}
}

func TestFastPathAnnotateAddsSystemNote(t *testing.T) {
	voice := &scriptedSynthesizer{}
	agent := &scriptedAgentClient{}
	controller := &scriptedAppController{}

	o := NewOrchestrator(
		WithAgentClient(agent),
		WithSynthesizer(voice),
		WithAppController(controller),
		WithFastPath(FastPathConfig{Mode: FastPathAnnotate}),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.Orchestrate(ctx)
	defer o.Close()

	handle := o.SubmitCommand(triggers.NewTypedCommand("open safari"))
	if handle == nil {
		t.Fatal("expected the exchange to still run in annotate mode, got nil handle")
	}
	awaitState(t, handle, TaskCompleted)

	if len(controller.launched) != 1 || controller.launched[0] != "safari" {
		t.Fatalf("expected safari to be launched, got %v", controller.launched)
	}
	call := agent.lastCall()
	if len(call) != 1 || len(call[0].Content) != 2 {
		t.Fatalf("expected one user turn with command and note, got %+v", call)
	}
	note, ok := call[0].Content[1].(agents.TextBlock)
	if !ok || !strings.Contains(note.Text, "already opened the application 'safari'") {
		t.Fatalf("expected a system note about the launch, got %+v", call[0].Content[1])
	}
}

func TestNewCommandPreemptsRunning(t *testing.T) {
	voice := &scriptedSynthesizer{}
	started := make(chan string, 2)
	agent := &scriptedAgentClient{
		run: func(ctx context.Context, history []agents.Turn, options agents.ExchangeOptions) ([]agents.Turn, error) {
			command := history[len(history)-1].Text()
			started <- command
			if command == "first task" {
				<-ctx.Done()
				return nil, ctx.Err()
			}
			response := agents.NewAssistantTurn(agents.TextBlock{Text: "done"})
			options.OnTurn(response)
			return append(history, response), nil
		},
	}

	o := NewOrchestrator(WithAgentClient(agent), WithSynthesizer(voice))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cancelled := make(chan struct{}, 2)
	o.Orchestrate(ctx, WithCancellationCallback(func() { cancelled <- struct{}{} }))
	defer o.Close()

	first := o.SubmitCommand(triggers.NewTypedCommand("first task"))
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the first exchange to start")
	}
	second := o.SubmitCommand(triggers.NewTypedCommand("second task"))

	awaitState(t, first, TaskCancelled)
	awaitState(t, second, TaskCompleted)

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the cancellation callback")
	}
	if !slices.Contains(voice.spoken(), cueBusy) {
		t.Fatalf("expected the busy cue after preemption, got %v", voice.spoken())
	}

	history := o.History()
	if len(history) != 3 {
		t.Fatalf("expected both commands and one response in history, got %d turns", len(history))
	}
	if history[0].Role != agents.RoleUser || history[1].Role != agents.RoleUser || history[2].Role != agents.RoleAssistant {
		t.Fatalf("expected user, user, assistant, got %v, %v, %v", history[0].Role, history[1].Role, history[2].Role)
	}
}

func TestResetDiscardsLateCommits(t *testing.T) {
	voice := &scriptedSynthesizer{}
	entered := make(chan struct{})
	release := make(chan struct{})
	agent := &scriptedAgentClient{
		run: func(ctx context.Context, history []agents.Turn, options agents.ExchangeOptions) ([]agents.Turn, error) {
			close(entered)
			<-release
			options.OnTurn(agents.NewAssistantTurn(agents.TextBlock{Text: "too late"}))
			return nil, ctx.Err()
		},
	}

	o := NewOrchestrator(WithAgentClient(agent), WithSynthesizer(voice))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	resets := make(chan struct{}, 1)
	o.Orchestrate(ctx, WithHistoryResetCallback(func() { resets <- struct{}{} }))
	defer o.Close()

	handle := o.SubmitCommand(triggers.NewTypedCommand("reorganize my desktop"))
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the exchange to start")
	}

	o.ResetConversation()
	select {
	case <-resets:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the reset callback")
	}
	close(release)

	awaitState(t, handle, TaskCancelled)
	if got := o.History(); len(got) != 0 {
		t.Fatalf("expected empty history after reset, got %d turns", len(got))
	}
	if !slices.Contains(voice.spoken(), cueHistoryReset) {
		t.Fatalf("expected the reset cue, got %v", voice.spoken())
	}
}

func TestFailedExchangeSpeaksApology(t *testing.T) {
	voice := &scriptedSynthesizer{}
	agent := &scriptedAgentClient{
		run: func(ctx context.Context, history []agents.Turn, options agents.ExchangeOptions) ([]agents.Turn, error) {
			return nil, errors.New("model unavailable")
		},
	}

	o := NewOrchestrator(WithAgentClient(agent), WithSynthesizer(voice))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	failures := make(chan error, 1)
	o.Orchestrate(ctx, WithFailureCallback(func(err error) { failures <- err }))
	defer o.Close()

	handle := o.SubmitCommand(triggers.NewTypedCommand("break things"))
	awaitState(t, handle, TaskFailed)

	select {
	case err := <-failures:
		if err == nil || !strings.Contains(err.Error(), "model unavailable") {
			t.Fatalf("expected the exchange error to be reported, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the failure callback")
	}
	if !slices.Contains(voice.spoken(), cueApology) {
		t.Fatalf("expected the apology cue, got %v", voice.spoken())
	}
}

func TestListeningFlowSubmitsTranscript(t *testing.T) {
	voice := &scriptedSynthesizer{}
	agent := &scriptedAgentClient{}
	transcriber := &scriptedTranscriber{transcript: "open the pod bay doors"}

	o := NewOrchestrator(
		WithAgentClient(agent),
		WithSynthesizer(voice),
		WithTranscriber(transcriber),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	commands := make(chan string, 1)
	responses := make(chan struct{}, 1)
	o.Orchestrate(ctx,
		WithCommandCallback(func(command string, source triggers.Source) {
			if source == triggers.SourceGesture {
				commands <- command
			}
		}),
		WithResponseEndCallback(func() { responses <- struct{}{} }),
	)
	defer o.Close()

	if !o.StartListening() {
		t.Fatal("expected listening to start")
	}
	if !o.IsListening() {
		t.Fatal("expected orchestrator to report listening")
	}
	if o.StartListening() {
		t.Fatal("expected a second capture to be rejected while one is running")
	}

	o.StopListening()

	select {
	case command := <-commands:
		if command != "open the pod bay doors" {
			t.Fatalf("expected the captured transcript, got %q", command)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the captured command")
	}
	select {
	case <-responses:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the exchange to finish")
	}

	if o.IsListening() {
		t.Fatal("expected listening to stop after capture")
	}
	spoken := voice.spoken()
	if !slices.Contains(spoken, cueListening) {
		t.Fatalf("expected the listening cue, got %v", spoken)
	}
	if !slices.Contains(spoken, cueProcessing) {
		t.Fatalf("expected the processing cue, got %v", spoken)
	}
}

func TestWakeWordLoopSubmitsHeardCommands(t *testing.T) {
	type heardCommand struct {
		text   string
		source triggers.Source
	}

	voice := &scriptedSynthesizer{}
	agent := &scriptedAgentClient{}
	transcriber := &scriptedTranscriber{wakeCommands: make(chan string, 1)}

	o := NewOrchestrator(
		WithAgentClient(agent),
		WithSynthesizer(voice),
		WithTranscriber(transcriber),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	commands := make(chan heardCommand, 1)
	o.Orchestrate(ctx, WithCommandCallback(func(command string, source triggers.Source) {
		commands <- heardCommand{text: command, source: source}
	}))
	defer o.Close()

	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	loopDone := make(chan error, 1)
	go func() { loopDone <- o.RunWakeWordLoop(loopCtx) }()

	transcriber.wakeCommands <- "turn on dark mode"

	select {
	case command := <-commands:
		if command.text != "turn on dark mode" || command.source != triggers.SourceWakeWord {
			t.Fatalf("expected a wake-word command, got %+v", command)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the wake-word command")
	}

	stopLoop()
	select {
	case err := <-loopDone:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected the loop to end with cancellation, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the loop to stop")
	}
}

func TestSpeakInterruptsPreviousUtterance(t *testing.T) {
	voice := &scriptedSynthesizer{}
	o := NewOrchestrator(WithSynthesizer(voice))

	o.Speak("first announcement")
	o.Speak("second announcement")

	want := []string{"stop", "speak:first announcement", "stop", "speak:second announcement"}
	if got := voice.allEvents(); !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestCloseCancelsQueuedCommands(t *testing.T) {
	voice := &scriptedSynthesizer{}
	started := make(chan struct{}, 1)
	agent := &scriptedAgentClient{
		run: func(ctx context.Context, history []agents.Turn, options agents.ExchangeOptions) ([]agents.Turn, error) {
			started <- struct{}{}
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	o := NewOrchestrator(WithAgentClient(agent), WithSynthesizer(voice))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.Orchestrate(ctx)

	first := o.SubmitCommand(triggers.NewTypedCommand("first task"))
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the first exchange to start")
	}
	second := o.SubmitCommand(triggers.NewTypedCommand("second task"))

	o.Close()
	o.Close()

	awaitState(t, first, TaskCancelled)
	awaitState(t, second, TaskCancelled)

	third := o.SubmitCommand(triggers.NewTypedCommand("third task"))
	if third == nil {
		t.Fatal("expected a handle even after close, got nil")
	}
	awaitState(t, third, TaskCancelled)
}

type scriptedSynthesizer struct {
	mu     sync.Mutex
	events []string
}

func (s *scriptedSynthesizer) Speak(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, "speak:"+text)
	return nil
}

func (s *scriptedSynthesizer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, "stop")
}

func (s *scriptedSynthesizer) allEvents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.events)
}

func (s *scriptedSynthesizer) spoken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var spoken []string
	for _, event := range s.events {
		if text, ok := strings.CutPrefix(event, "speak:"); ok {
			spoken = append(spoken, text)
		}
	}
	return spoken
}

type scriptedAgentClient struct {
	mu    sync.Mutex
	calls [][]agents.Turn

	run func(ctx context.Context, history []agents.Turn, options agents.ExchangeOptions) ([]agents.Turn, error)
}

func (c *scriptedAgentClient) RunExchange(ctx context.Context, history []agents.Turn, opts ...agents.ExchangeOption) ([]agents.Turn, error) {
	options := agents.ExchangeOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	c.mu.Lock()
	c.calls = append(c.calls, history)
	c.mu.Unlock()

	if c.run == nil {
		response := agents.NewAssistantTurn(agents.TextBlock{Text: "ok"})
		if options.OnTurn != nil {
			options.OnTurn(response)
		}
		return append(history, response), nil
	}
	return c.run(ctx, history, options)
}

func (c *scriptedAgentClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.calls)
}

func (c *scriptedAgentClient) lastCall() []agents.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.calls) == 0 {
		return nil
	}
	return c.calls[len(c.calls)-1]
}

type scriptedTranscriber struct {
	transcript   string
	wakeCommands chan string
}

func (t *scriptedTranscriber) CaptureUntilStopped(ctx context.Context, opts ...speech.CaptureOption) (string, error) {
	options := speech.CaptureOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	<-ctx.Done()
	if options.TranscriptionCallback != nil {
		options.TranscriptionCallback(t.transcript)
	}
	return t.transcript, nil
}

func (t *scriptedTranscriber) ListenForWakeWord(ctx context.Context, wakeWords []string, opts ...speech.CaptureOption) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case command := <-t.wakeCommands:
		return command, nil
	}
}

package orchestration

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/voiceos-labs/voiceos-core/core/speech"
	"github.com/voiceos-labs/voiceos-core/core/triggers"
)

// listeningCueDelay gives the spoken "Listening" cue time to finish before
// the microphone opens, so the cue itself does not end up in the transcript.
const listeningCueDelay = 500 * time.Millisecond

// speechCapture wraps the configured transcriber.
type speechCapture struct {
	client Transcriber
}

func (s *speechCapture) set(client Transcriber) {
	if s != nil {
		s.client = client
	}
}

func (s *speechCapture) isConfigured() bool {
	return s != nil && s.client != nil
}

func (s *speechCapture) CaptureUntilStopped(ctx context.Context, opts ...speech.CaptureOption) (string, error) {
	if !s.isConfigured() {
		return "", nil
	}

	return s.client.CaptureUntilStopped(ctx, opts...)
}

func (s *speechCapture) ListenForWakeWord(ctx context.Context, wakeWords []string, opts ...speech.CaptureOption) (string, error) {
	if !s.isConfigured() {
		return "", nil
	}

	return s.client.ListenForWakeWord(ctx, wakeWords, opts...)
}

// listeningSession is one in-progress transcript capture.
type listeningSession struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// IsListening reports whether a capture is in progress.
func (o *Orchestrator) IsListening() bool {
	o.listeningMu.Lock()
	defer o.listeningMu.Unlock()

	return o.listening
}

func (o *Orchestrator) setListeningState(listening bool) {
	o.listeningMu.Lock()
	changed := o.listening != listening
	o.listening = listening
	o.listeningMu.Unlock()

	if changed && o.orchestrateOptions.onListeningStateChanged != nil {
		o.orchestrateOptions.onListeningStateChanged(listening)
	}
}

// StartListening speaks the capture cue and begins a blocking transcript
// capture on its own goroutine. Returns false when a capture is already in
// progress or no transcriber is configured.
func (o *Orchestrator) StartListening() bool {
	if !o.transcriber.isConfigured() {
		return false
	}

	o.listeningMu.Lock()
	if o.listeningSession != nil {
		o.listeningMu.Unlock()
		return false
	}
	captureCtx, cancel := context.WithCancel(o.baseContext)
	session := &listeningSession{cancel: cancel, done: make(chan struct{})}
	o.listeningSession = session
	o.listeningMu.Unlock()

	o.notifier.Speak(cueListening)
	o.setListeningState(true)

	go func() {
		defer close(session.done)
		defer cancel()

		time.Sleep(listeningCueDelay)

		transcript, err := o.transcriber.CaptureUntilStopped(captureCtx,
			speech.WithInterimTranscriptionCallback(o.orchestrateOptions.onInterimTranscription),
			speech.WithTranscriptionCallback(o.orchestrateOptions.onTranscription),
		)

		o.clearListeningSession(session)
		o.setListeningState(false)

		if err != nil {
			log.Println("Failed to capture command:", err)
			return
		}
		o.SubmitCommand(triggers.NewGestureCommand(transcript))
	}()

	return true
}

// StopListening signals the in-progress capture to stop. The capture worker
// then finishes assembling the transcript and submits it as a command;
// stopping is how a spoken command gets delivered, not how it gets thrown
// away.
func (o *Orchestrator) StopListening() {
	o.listeningMu.Lock()
	session := o.listeningSession
	o.listeningMu.Unlock()

	if session == nil {
		return
	}

	o.setListeningState(false)
	session.cancel()
}

func (o *Orchestrator) clearListeningSession(session *listeningSession) {
	o.listeningMu.Lock()
	if o.listeningSession == session {
		o.listeningSession = nil
	}
	o.listeningMu.Unlock()
}

// RunWakeWordLoop keeps the microphone open and submits every command heard
// after a configured wake word. It blocks until ctx is cancelled; transient
// capture errors are logged and retried after a short pause.
func (o *Orchestrator) RunWakeWordLoop(ctx context.Context) error {
	if !o.transcriber.isConfigured() {
		return fmt.Errorf("no transcriber configured")
	}

	for {
		command, err := o.transcriber.ListenForWakeWord(ctx, o.wakeWords,
			speech.WithInterimTranscriptionCallback(o.orchestrateOptions.onInterimTranscription),
			speech.WithTranscriptionCallback(o.orchestrateOptions.onTranscription),
		)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Println("Failed to listen for wake word:", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}
		if command == "" {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}

		o.SubmitCommand(triggers.NewWakeWordCommand(command))
	}
}

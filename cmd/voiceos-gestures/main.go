// Command voiceos-gestures runs the assistant hands-free: hand landmarks
// from the camera sidecar drive listening, while transcripts and agent
// progress are mirrored on stdout.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	orchestration "github.com/voiceos-labs/voiceos-core/core"
	macosactions "github.com/voiceos-labs/voiceos-core/core/actions/macos"
	"github.com/voiceos-labs/voiceos-core/core/agents/anthropic"
	"github.com/voiceos-labs/voiceos-core/core/audio/miniaudio"
	"github.com/voiceos-labs/voiceos-core/core/audio/portaudio"
	"github.com/voiceos-labs/voiceos-core/core/speech/deepgram"
	macosspeech "github.com/voiceos-labs/voiceos-core/core/speech/macos"
	"github.com/voiceos-labs/voiceos-core/core/triggers"
	"github.com/voiceos-labs/voiceos-core/core/vision/tracker"
	"github.com/voiceos-labs/voiceos-core/internal/config"
)

// Spoken responses are the only feedback channel while the user's hands are
// busy, so the agent is told to keep them to a sentence.
const (
	gestureSystemPromptSuffix  = "User is using a gesture-controlled voice assistant. Be EXTREMELY concise. Max 1 sentence."
	gestureImageRetentionLimit = 3
)

const portaudioBufferSize = 1024

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config file")
	audioBackend := flag.String("audio", "portaudio", "audio capture backend: miniaudio or portaudio")
	flag.Parse()

	if err := run(*configPath, *audioBackend); err != nil {
		log.Fatalln(err)
	}
}

func run(configPath, audioBackend string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return errors.New("ANTHROPIC_API_KEY is not set")
	}
	if os.Getenv("DEEPGRAM_API_KEY") == "" {
		return errors.New("DEEPGRAM_API_KEY is not set")
	}

	source, err := newAudioSource(audioBackend)
	if err != nil {
		return err
	}
	defer source.Close()

	var captureOpts []deepgram.ClientOption
	if cfg.Speech.ListenURL != "" {
		captureOpts = append(captureOpts, deepgram.WithListenURL(cfg.Speech.ListenURL))
	}
	var speakerOpts []macosspeech.SpeakerOption
	if cfg.Speech.Voice != "" {
		speakerOpts = append(speakerOpts, macosspeech.WithVoice(cfg.Speech.Voice))
	}
	controller := macosactions.NewController()

	imageLimit := gestureImageRetentionLimit
	if cfg.Agent.ImageRetentionLimit > 0 {
		imageLimit = cfg.Agent.ImageRetentionLimit
	}
	opts := []orchestration.OrchestratorOption{
		orchestration.WithAgentClient(anthropic.NewClient(apiKey)),
		orchestration.WithTranscriber(deepgram.NewClient(source, captureOpts...)),
		orchestration.WithSynthesizer(macosspeech.NewSpeaker(speakerOpts...)),
		orchestration.WithAppController(controller),
		orchestration.WithScreenController(controller),
		orchestration.WithDesktopControlTools(),
		orchestration.WithSystemPromptSuffix(gestureSystemPromptSuffix),
		orchestration.WithImageRetentionLimit(imageLimit),
		orchestration.WithGestureCooldown(cfg.Gestures.Cooldown()),
		orchestration.WithFastPath(orchestration.FastPathConfig{
			Mode:             orchestration.FastPathMode(cfg.FastPath.Mode),
			MaxAppNameTokens: cfg.FastPath.MaxAppNameTokens,
			Conjunctions:     cfg.FastPath.Conjunctions,
		}),
	}
	if cfg.Agent.Model != "" {
		opts = append(opts, orchestration.WithModel(cfg.Agent.Model))
	}
	if cfg.Agent.MaxTokens > 0 {
		opts = append(opts, orchestration.WithMaxTokens(cfg.Agent.MaxTokens))
	}
	orchestrator := orchestration.NewOrchestrator(opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orchestrator.Orchestrate(ctx,
		orchestration.WithListeningStateCallback(func(listening bool) {
			if listening {
				fmt.Println("\n👂 Listening... (make a fist to finish)")
			}
		}),
		orchestration.WithCommandCallback(func(command string, _ triggers.Source) {
			fmt.Printf("\n🗣️ User: %s\n", command)
			fmt.Println("🤔 Thinking...")
		}),
		orchestration.WithFastPathCallback(func(note string) {
			fmt.Printf("ℹ️ %s\n", note)
		}),
		orchestration.WithResponseCallback(func(response string) {
			fmt.Printf("\n🤖 Agent: %s\n", response)
		}),
		orchestration.WithToolUseCallback(func(name string) {
			fmt.Printf("🛠️ Tool Use: %s\n", name)
		}),
		orchestration.WithFailureCallback(func(err error) {
			fmt.Printf("\n❌ Error: %v\n", err)
		}),
		orchestration.WithHistoryResetCallback(func() {
			fmt.Println("\n🧹 History reset")
		}),
	)

	var feedOpts []tracker.ClientOption
	if cfg.Gestures.TrackerURL != "" {
		feedOpts = append(feedOpts, tracker.WithFeedURL(cfg.Gestures.TrackerURL))
	}
	feed := tracker.NewClient(feedOpts...)

	fmt.Println("🖐️ Gesture Control Active:")
	fmt.Println("   ✋ Open Palm   = Start Listening")
	fmt.Println("   ✊ Closed Fist = Stop & Process")
	fmt.Println("   ✌️ Victory     = Reset Conversation")

	err = runTrackerFeed(ctx, feed, orchestrator)
	orchestrator.Close()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	fmt.Println("\n👋 Exiting...")
	return nil
}

// runTrackerFeed keeps the landmark subscription alive until ctx is
// cancelled. The camera sidecar restarts independently, so dropped
// connections are retried after a short pause.
func runTrackerFeed(ctx context.Context, feed *tracker.Client, orchestrator *orchestration.Orchestrator) error {
	for {
		err := feed.Subscribe(ctx, orchestrator.ObserveFrame)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			log.Println("Failed to read hand tracking feed:", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

// audioSource is the capture contract both microphone backends satisfy.
type audioSource interface {
	deepgram.AudioSource
	Close()
}

func newAudioSource(backend string) (audioSource, error) {
	switch backend {
	case "miniaudio":
		client, err := miniaudio.NewClient()
		if err != nil {
			return nil, err
		}
		return client, nil
	case "portaudio":
		client, err := portaudio.NewClient(portaudioBufferSize)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q: want miniaudio or portaudio", backend)
	}
}

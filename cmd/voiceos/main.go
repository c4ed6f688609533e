// Command voiceos runs the assistant as a wake-word console. It keeps the
// microphone open, waits for a configured wake word and hands every command
// heard after it to the orchestrator, mirroring progress on stdout.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	orchestration "github.com/voiceos-labs/voiceos-core/core"
	macosactions "github.com/voiceos-labs/voiceos-core/core/actions/macos"
	"github.com/voiceos-labs/voiceos-core/core/agents/anthropic"
	"github.com/voiceos-labs/voiceos-core/core/audio/miniaudio"
	"github.com/voiceos-labs/voiceos-core/core/audio/portaudio"
	"github.com/voiceos-labs/voiceos-core/core/speech/deepgram"
	macosspeech "github.com/voiceos-labs/voiceos-core/core/speech/macos"
	"github.com/voiceos-labs/voiceos-core/core/triggers"
	"github.com/voiceos-labs/voiceos-core/internal/config"
)

const portaudioBufferSize = 1024

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config file")
	audioBackend := flag.String("audio", "miniaudio", "audio capture backend: miniaudio or portaudio")
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

	opts := []orchestration.OrchestratorOption{
		orchestration.WithAgentClient(anthropic.NewClient(apiKey)),
		orchestration.WithTranscriber(deepgram.NewClient(source, captureOpts...)),
		orchestration.WithSynthesizer(macosspeech.NewSpeaker(speakerOpts...)),
		orchestration.WithAppController(controller),
		orchestration.WithScreenController(controller),
		orchestration.WithDesktopControlTools(),
		orchestration.WithWakeWords(cfg.Speech.WakeWords...),
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
	if cfg.Agent.ImageRetentionLimit > 0 {
		opts = append(opts, orchestration.WithImageRetentionLimit(cfg.Agent.ImageRetentionLimit))
	}
	orchestrator := orchestration.NewOrchestrator(opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wakeWord := cfg.Speech.WakeWords[0]
	printListening := func() {
		fmt.Printf("\n👂 Listening for '%s'...\n", wakeWord)
	}

	orchestrator.Orchestrate(ctx,
		orchestration.WithCommandCallback(func(command string, _ triggers.Source) {
			fmt.Printf("\n🗣️ User: %s\n", command)
			fmt.Printf("🤔 Thinking... (Say '%s' to interrupt)\n", wakeWord)
		}),
		orchestration.WithFastPathCallback(func(note string) {
			fmt.Printf("ℹ️ %s\n", note)
			printListening()
		}),
		orchestration.WithResponseCallback(func(response string) {
			fmt.Printf("\n🤖 Agent: %s\n", response)
		}),
		orchestration.WithToolUseCallback(func(name string) {
			fmt.Printf("🛠️ Tool Use: %s\n", name)
		}),
		orchestration.WithToolOutputCallback(func(_ string, output string) {
			if output == "" {
				return
			}
			if runes := []rune(output); len(runes) > 200 {
				output = string(runes[:200]) + "..."
			}
			fmt.Printf("⚙️ Tool Output: %s\n", output)
		}),
		orchestration.WithResponseEndCallback(printListening),
		orchestration.WithFailureCallback(func(err error) {
			fmt.Printf("\n❌ Error: %v\n", err)
			printListening()
		}),
	)

	model := cfg.Agent.Model
	if model == "" {
		model = anthropic.DefaultModel
	}
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("🎙️ VoiceOS Headless Mode (%s)\n", runtime.GOOS)
	fmt.Println("🤖 Model:", model)
	fmt.Println(strings.Repeat("=", 50))
	printListening()

	err = orchestrator.RunWakeWordLoop(ctx)
	orchestrator.Close()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	fmt.Println("\n👋 Exiting...")
	return nil
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

// Command voiceos-panel runs the assistant as a small terminal panel: a
// status line, a text prompt and a push-to-talk toggle. Agent progress
// arrives through orchestrator callbacks and is forwarded to the UI as
// messages, so the update loop stays the only writer of UI state.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	orchestration "github.com/voiceos-labs/voiceos-core/core"
	macosactions "github.com/voiceos-labs/voiceos-core/core/actions/macos"
	"github.com/voiceos-labs/voiceos-core/core/agents/anthropic"
	"github.com/voiceos-labs/voiceos-core/core/audio/miniaudio"
	"github.com/voiceos-labs/voiceos-core/core/speech/deepgram"
	macosspeech "github.com/voiceos-labs/voiceos-core/core/speech/macos"
	"github.com/voiceos-labs/voiceos-core/core/triggers"
	"github.com/voiceos-labs/voiceos-core/internal/config"
)

// The panel competes with whatever the user is doing, so the agent is told
// to stay terse and the screenshot history is kept short.
const (
	panelSystemPromptSuffix  = "User is using a floating overlay. Be EXTREMELY concise. Do not narrate obvious steps. Only speak when necessary or to confirm completion. Max 1 sentence."
	panelImageRetentionLimit = 3
)

const (
	statusReady        = "Ready"
	statusThinking     = "Thinking..."
	statusTranscribing = "Transcribing..."
	statusRecording    = "Recording... (Press ctrl+l to stop)"
	statusFastPath     = "Done (Fast Path)"
	statusError        = "Error"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Fatalln(err)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return errors.New("ANTHROPIC_API_KEY is not set")
	}

	var speakerOpts []macosspeech.SpeakerOption
	if cfg.Speech.Voice != "" {
		speakerOpts = append(speakerOpts, macosspeech.WithVoice(cfg.Speech.Voice))
	}
	controller := macosactions.NewController()

	imageLimit := panelImageRetentionLimit
	if cfg.Agent.ImageRetentionLimit > 0 {
		imageLimit = cfg.Agent.ImageRetentionLimit
	}
	opts := []orchestration.OrchestratorOption{
		orchestration.WithAgentClient(anthropic.NewClient(apiKey)),
		orchestration.WithSynthesizer(macosspeech.NewSpeaker(speakerOpts...)),
		orchestration.WithAppController(controller),
		orchestration.WithScreenController(controller),
		orchestration.WithDesktopControlTools(),
		orchestration.WithSystemPromptSuffix(panelSystemPromptSuffix),
		orchestration.WithImageRetentionLimit(imageLimit),
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

	// The microphone is optional here: without a Deepgram key the panel
	// still works as a typed prompt.
	micEnabled := os.Getenv("DEEPGRAM_API_KEY") != ""
	if micEnabled {
		source, err := miniaudio.NewClient()
		if err != nil {
			log.Println("Warning: microphone unavailable:", err)
			micEnabled = false
		} else {
			defer source.Close()
			var captureOpts []deepgram.ClientOption
			if cfg.Speech.ListenURL != "" {
				captureOpts = append(captureOpts, deepgram.WithListenURL(cfg.Speech.ListenURL))
			}
			opts = append(opts, orchestration.WithTranscriber(deepgram.NewClient(source, captureOpts...)))
		}
	}

	orchestrator := orchestration.NewOrchestrator(opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := tea.NewProgram(newModel(orchestrator, micEnabled), tea.WithAltScreen())

	orchestrator.Orchestrate(ctx,
		orchestration.WithCommandCallback(func(command string, _ triggers.Source) {
			p.Send(commandAcceptedMsg{command: command})
		}),
		orchestration.WithInterimTranscriptionCallback(func(transcript string) {
			p.Send(interimTranscriptMsg{transcript: transcript})
		}),
		orchestration.WithResponseCallback(func(response string) {
			p.Send(agentTextMsg{text: response})
		}),
		orchestration.WithToolUseCallback(func(name string) {
			p.Send(toolUseMsg{name: name})
		}),
		orchestration.WithResponseEndCallback(func() {
			p.Send(exchangeDoneMsg{})
		}),
		orchestration.WithFastPathCallback(func(note string) {
			p.Send(fastPathMsg{note: note})
		}),
		orchestration.WithFailureCallback(func(err error) {
			p.Send(failureMsg{err: err})
		}),
		orchestration.WithListeningStateCallback(func(listening bool) {
			p.Send(listeningMsg{active: listening})
		}),
		orchestration.WithHistoryResetCallback(func() {
			p.Send(historyResetMsg{})
		}),
	)

	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	_, runErr := p.Run()
	orchestrator.Close()
	return runErr
}

type commandAcceptedMsg struct{ command string }
type interimTranscriptMsg struct{ transcript string }
type agentTextMsg struct{ text string }
type toolUseMsg struct{ name string }
type exchangeDoneMsg struct{}
type fastPathMsg struct{ note string }
type failureMsg struct{ err error }
type listeningMsg struct{ active bool }
type historyResetMsg struct{}

type uiStyles struct {
	frame       lipgloss.Style
	title       lipgloss.Style
	status      lipgloss.Style
	errorStatus lipgloss.Style
	help        lipgloss.Style
}

func newStyles() uiStyles {
	return uiStyles{
		frame: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1),
		title:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		status:      lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		errorStatus: lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true),
		help:        lipgloss.NewStyle().Faint(true),
	}
}

type model struct {
	orchestrator *orchestration.Orchestrator
	micEnabled   bool

	input   textinput.Model
	spinner spinner.Model
	styles  uiStyles

	status    string
	response  string
	busy      bool
	listening bool
	width     int
}

func newModel(orchestrator *orchestration.Orchestrator, micEnabled bool) model {
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "Type a command"
	input.CharLimit = 500
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	return model{
		orchestrator: orchestrator,
		micEnabled:   micEnabled,
		input:        input,
		spinner:      sp,
		styles:       newStyles(),
		status:       statusReady,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(msg.Width-8, 20)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case commandAcceptedMsg:
		m.busy = true
		m.status = "Processing: " + snippet(msg.command, 20)
		return m, nil

	case interimTranscriptMsg:
		if m.listening {
			m.response = msg.transcript
		}
		return m, nil

	case agentTextMsg:
		m.response = msg.text
		m.status = "Agent: " + snippet(msg.text, 30)
		return m, nil

	case toolUseMsg:
		m.status = "Tool: " + msg.name
		return m, nil

	case exchangeDoneMsg:
		m.busy = false
		m.status = statusReady
		return m, nil

	case fastPathMsg:
		m.busy = false
		m.response = msg.note
		m.status = statusFastPath
		return m, nil

	case failureMsg:
		m.busy = false
		m.response = msg.err.Error()
		m.status = statusError
		return m, nil

	case listeningMsg:
		m.listening = msg.active
		if msg.active {
			m.response = ""
			m.status = statusRecording
		} else if m.status == statusRecording {
			m.busy = true
			m.status = statusTranscribing
		}
		return m, nil

	case historyResetMsg:
		m.busy = false
		m.response = ""
		m.status = statusReady
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			m.input.Reset()
			m.busy = true
			m.status = statusThinking
			return m, m.submitCmd(text)

		case "ctrl+l":
			if !m.micEnabled {
				return m, nil
			}
			if m.listening {
				m.status = statusTranscribing
				m.busy = true
				return m, m.stopListeningCmd()
			}
			return m, m.startListeningCmd()

		case "ctrl+r":
			return m, m.resetCmd()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// The orchestrator calls out to AppleScript and the speech synthesizer, so
// every interaction runs as a command instead of blocking the update loop.
func (m model) submitCmd(text string) tea.Cmd {
	return func() tea.Msg {
		m.orchestrator.SubmitCommand(triggers.NewTypedCommand(text))
		return nil
	}
}

func (m model) startListeningCmd() tea.Cmd {
	return func() tea.Msg {
		m.orchestrator.StopSpeaking()
		m.orchestrator.StartListening()
		return nil
	}
}

func (m model) stopListeningCmd() tea.Cmd {
	return func() tea.Msg {
		m.orchestrator.StopListening()
		return nil
	}
}

func (m model) resetCmd() tea.Cmd {
	return func() tea.Msg {
		m.orchestrator.ResetConversation()
		return nil
	}
}

func (m model) View() string {
	wrapWidth := m.width - 6
	if wrapWidth < 24 {
		wrapWidth = 60
	}

	body := m.response
	if body == "" {
		if m.micEnabled {
			body = "Type a command, or press ctrl+l and speak."
		} else {
			body = "Type a command. (Set DEEPGRAM_API_KEY to enable the microphone.)"
		}
	}

	status := m.status
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	statusStyle := m.styles.status
	if m.status == statusError {
		statusStyle = m.styles.errorStatus
	}

	legend := "enter send · ctrl+r reset · esc quit"
	if m.micEnabled {
		legend = "enter send · ctrl+l mic · ctrl+r reset · esc quit"
	}

	var b strings.Builder
	b.WriteString(m.styles.title.Render("VoiceOS"))
	b.WriteString("\n\n")
	b.WriteString(wordwrap.String(body, wrapWidth))
	b.WriteString("\n\n")
	b.WriteString(statusStyle.Render(status))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.styles.help.Render(legend))

	return m.styles.frame.Render(b.String())
}

func snippet(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return fmt.Sprintf("%s...", string(runes[:limit]))
}

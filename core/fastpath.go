package orchestration

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
)

// FastPathMode selects what happens after a fast-path action runs.
type FastPathMode string

const (
	// FastPathShortCircuit finishes the command locally: a short "Done" cue
	// is spoken and the remote agent is never invoked.
	FastPathShortCircuit FastPathMode = "short-circuit"
	// FastPathAnnotate still runs the remote exchange, with the action's
	// note appended to the outgoing user turn so the agent does not repeat
	// the action.
	FastPathAnnotate FastPathMode = "annotate"
)

// FastPathConfig tunes the dispatcher. The token cap and conjunction markers
// guard against misfiring on compound instructions like "open settings and
// close mail"; they are heuristics, not invariants, so they stay
// configurable.
type FastPathConfig struct {
	Mode             FastPathMode
	MaxAppNameTokens int
	Conjunctions     []string
}

func defaultFastPathConfig() FastPathConfig {
	return FastPathConfig{
		Mode:             FastPathShortCircuit,
		MaxAppNameTokens: 3,
		Conjunctions:     []string{"and", "then"},
	}
}

var (
	openIntent  = regexp.MustCompile(`^(?:open|launch|start)\s+(?:the\s+)?(.+)$`)
	closeIntent = regexp.MustCompile(`^(?:close|quit|exit|terminate|kill)\s+(?:the\s+)?(.+)$`)

	appNamePunctuation = regexp.MustCompile(`[^\w\s]`)
)

// fastPath pattern-matches a command against the two local actions (launch,
// quit) before any remote round-trip.
type fastPath struct {
	config FastPathConfig
	apps   *appControl
}

// dispatch runs the command locally when it matches a local action and
// returns a note describing what was done. An empty note means nothing ran:
// a pattern miss, a guard rejection and an OS action failure all fall
// through to the remote path silently.
func (f *fastPath) dispatch(ctx context.Context, command string) string {
	if !f.apps.isConfigured() {
		return ""
	}

	text := strings.ToLower(strings.TrimSpace(command))

	if match := openIntent.FindStringSubmatch(text); match != nil {
		app := f.cleanAppName(match[1])
		if app == "" {
			return ""
		}
		if err := f.apps.LaunchApp(ctx, app); err != nil {
			log.Println("Warning: fast-path launch failed:", err)
			return ""
		}
		return fmt.Sprintf("System Note: I have already opened the application '%s' for you via a fast-path command. You do not need to open it again. Proceed with any subsequent steps.", app)
	}

	if match := closeIntent.FindStringSubmatch(text); match != nil {
		app := f.cleanAppName(match[1])
		if app == "" {
			return ""
		}
		if err := f.apps.QuitApp(ctx, app); err != nil {
			log.Println("Warning: fast-path quit failed:", err)
			return ""
		}
		return fmt.Sprintf("System Note: I have already closed the application '%s' for you via a fast-path command. You do not need to close it again.", app)
	}

	return ""
}

// cleanAppName strips punctuation from the captured remainder and applies
// the misfire guard. Returns "" when the remainder is too long or reads like
// a compound instruction.
func (f *fastPath) cleanAppName(rest string) string {
	app := strings.TrimSpace(appNamePunctuation.ReplaceAllString(rest, ""))
	if app == "" {
		return ""
	}

	if len(strings.Fields(app)) > f.config.MaxAppNameTokens {
		return ""
	}
	for _, conjunction := range f.config.Conjunctions {
		if strings.Contains(app, " "+conjunction+" ") {
			return ""
		}
	}
	return app
}

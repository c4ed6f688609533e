// Package config loads the YAML settings shared by the voiceos entry points.
// Everything has a usable default; a missing config file is not an error.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where entry points look when no config flag is given.
const DefaultPath = "voiceos.yaml"

// Fast-path modes accepted by fast_path.mode.
const (
	ModeShortCircuit = "short-circuit"
	ModeAnnotate     = "annotate"
)

type Config struct {
	Agent    AgentConfig    `yaml:"agent"`
	Speech   SpeechConfig   `yaml:"speech"`
	FastPath FastPathConfig `yaml:"fast_path"`
	Gestures GesturesConfig `yaml:"gestures"`
}

// AgentConfig tunes the remote exchange. Zero values defer to the agent
// client's own defaults and to the entry point's preferences.
type AgentConfig struct {
	Model               string `yaml:"model"`
	MaxTokens           int    `yaml:"max_tokens"`
	ImageRetentionLimit int    `yaml:"image_retention_limit"`
}

type SpeechConfig struct {
	WakeWords []string `yaml:"wake_words"`
	// Voice selects the synthesizer voice; empty means the system default.
	Voice string `yaml:"voice"`
	// ListenURL overrides the transcription endpoint; empty means the
	// provider default.
	ListenURL string `yaml:"listen_url"`
}

type FastPathConfig struct {
	Mode             string   `yaml:"mode"`
	MaxAppNameTokens int      `yaml:"max_app_name_tokens"`
	Conjunctions     []string `yaml:"conjunctions"`
}

type GesturesConfig struct {
	// TrackerURL overrides the hand tracker feed; empty means the tracker
	// client's default.
	TrackerURL  string  `yaml:"tracker_url"`
	CooldownSec float64 `yaml:"cooldown_sec"`
}

// Cooldown returns the gesture cooldown as a duration.
func (g GesturesConfig) Cooldown() time.Duration {
	return time.Duration(g.CooldownSec * float64(time.Second))
}

func Default() Config {
	return Config{
		Speech: SpeechConfig{
			WakeWords: []string{"voiceos"},
		},
		FastPath: FastPathConfig{
			Mode:             ModeShortCircuit,
			MaxAppNameTokens: 3,
			Conjunctions:     []string{"and", "then"},
		},
		Gestures: GesturesConfig{
			CooldownSec: 2.0,
		},
	}
}

// Load reads the file at path over the defaults. A missing file yields the
// defaults; an unreadable or invalid one is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// normalize refills fields an explicit empty value would otherwise zero out.
func (c *Config) normalize() {
	defaults := Default()
	if len(c.Speech.WakeWords) == 0 {
		c.Speech.WakeWords = defaults.Speech.WakeWords
	}
	if c.FastPath.Mode == "" {
		c.FastPath.Mode = defaults.FastPath.Mode
	}
	if c.FastPath.MaxAppNameTokens == 0 {
		c.FastPath.MaxAppNameTokens = defaults.FastPath.MaxAppNameTokens
	}
	if c.FastPath.Conjunctions == nil {
		c.FastPath.Conjunctions = defaults.FastPath.Conjunctions
	}
	if c.Gestures.CooldownSec == 0 {
		c.Gestures.CooldownSec = defaults.Gestures.CooldownSec
	}
}

func (c Config) Validate() error {
	if c.FastPath.Mode != ModeShortCircuit && c.FastPath.Mode != ModeAnnotate {
		return fmt.Errorf("fast_path.mode must be %q or %q, got %q", ModeShortCircuit, ModeAnnotate, c.FastPath.Mode)
	}
	if c.FastPath.MaxAppNameTokens < 0 {
		return fmt.Errorf("fast_path.max_app_name_tokens must not be negative, got %d", c.FastPath.MaxAppNameTokens)
	}
	if c.Gestures.CooldownSec < 0 {
		return fmt.Errorf("gestures.cooldown_sec must not be negative, got %g", c.Gestures.CooldownSec)
	}
	if c.Agent.MaxTokens < 0 {
		return fmt.Errorf("agent.max_tokens must not be negative, got %d", c.Agent.MaxTokens)
	}
	if c.Agent.ImageRetentionLimit < 0 {
		return fmt.Errorf("agent.image_retention_limit must not be negative, got %d", c.Agent.ImageRetentionLimit)
	}
	return nil
}

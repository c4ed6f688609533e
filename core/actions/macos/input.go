package macos

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/voiceos-labs/voiceos-core/core/actions"
)

const (
	typingGroupSize = 50
	typingDelayMs   = 2
)

var clickCommands = map[actions.ClickKind]string{
	actions.ClickLeft:   "c",
	actions.ClickRight:  "rc",
	actions.ClickMiddle: "mc",
	actions.ClickDouble: "dc",
	actions.ClickTriple: "tc",
}

var modifierKeys = map[string]string{
	"cmd":     "cmd",
	"command": "cmd",
	"ctrl":    "ctrl",
	"control": "ctrl",
	"alt":     "alt",
	"option":  "alt",
	"shift":   "shift",
	"fn":      "fn",
}

var specialKeys = map[string]string{
	"return":    "return",
	"enter":     "return",
	"escape":    "esc",
	"esc":       "esc",
	"space":     "space",
	"tab":       "tab",
	"backspace": "delete",
	"delete":    "fwd-delete",
	"up":        "arrow-up",
	"down":      "arrow-down",
	"left":      "arrow-left",
	"right":     "arrow-right",
	"pageup":    "page-up",
	"pagedown":  "page-down",
	"home":      "home",
	"end":       "end",
}

func (c *Controller) MoveMouse(ctx context.Context, to actions.Point) error {
	return c.cliclick(ctx, "m:"+coordArg(&to))
}

// Drag presses the mouse button at the current pointer position and releases
// it at the target.
func (c *Controller) Drag(ctx context.Context, to actions.Point) error {
	return c.cliclick(ctx, "dd:.", "du:"+coordArg(&to))
}

func (c *Controller) Click(ctx context.Context, kind actions.ClickKind, at *actions.Point) error {
	command, ok := clickCommands[kind]
	if !ok {
		return fmt.Errorf("unsupported click kind: %s", kind)
	}
	return c.cliclick(ctx, command+":"+coordArg(at))
}

// TypeText types literal text in short bursts with a small delay between
// keystrokes.
func (c *Controller) TypeText(ctx context.Context, text string) error {
	runes := []rune(text)
	for start := 0; start < len(runes); start += typingGroupSize {
		end := min(start+typingGroupSize, len(runes))
		if err := c.cliclick(ctx, "w:"+strconv.Itoa(typingDelayMs), "t:"+string(runes[start:end])); err != nil {
			return err
		}
	}
	return nil
}

// PressKey presses a key or key combination such as "enter" or "cmd+space".
// Modifiers are held around the final key.
func (c *Controller) PressKey(ctx context.Context, combo string) error {
	args, err := keyArgs(combo)
	if err != nil {
		return err
	}
	return c.cliclick(ctx, args...)
}

// Scroll scrolls by pages; cliclick has no scroll command, so a page keypress
// stands in for roughly five scroll clicks.
func (c *Controller) Scroll(ctx context.Context, direction actions.ScrollDirection, amount int) error {
	key := "kp:page-down"
	if direction == actions.ScrollUp {
		key = "kp:page-up"
	}

	presses := max(amount/5, 1)
	args := make([]string, 0, presses)
	for range presses {
		args = append(args, key)
	}
	return c.cliclick(ctx, args...)
}

func keyArgs(combo string) ([]string, error) {
	modifiers := []string{}
	key := ""
	for _, part := range strings.Split(combo, "+") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if modifier, ok := modifierKeys[part]; ok {
			modifiers = append(modifiers, modifier)
			continue
		}
		if key != "" {
			return nil, fmt.Errorf("key combination %q has more than one non-modifier key", combo)
		}
		key = part
	}

	if len(modifiers) == 0 && key == "" {
		return nil, fmt.Errorf("empty key combination")
	}

	args := []string{}
	for _, modifier := range modifiers {
		args = append(args, "kd:"+modifier)
	}
	if key != "" {
		if special, ok := specialKeys[key]; ok {
			args = append(args, "kp:"+special)
		} else {
			args = append(args, "t:"+key)
		}
	}
	for i := len(modifiers) - 1; i >= 0; i-- {
		args = append(args, "ku:"+modifiers[i])
	}
	return args, nil
}

func coordArg(at *actions.Point) string {
	if at == nil {
		return "."
	}
	return fmt.Sprintf("%d,%d", at.X, at.Y)
}

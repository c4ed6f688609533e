package macos

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// LaunchApp opens the named application, bringing it to the foreground if it
// is already running.
func (c *Controller) LaunchApp(ctx context.Context, name string) error {
	cmd := exec.CommandContext(ctx, "open", "-a", name)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to open %q: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// QuitApp asks the named application to quit gracefully.
func (c *Controller) QuitApp(ctx context.Context, name string) error {
	script := fmt.Sprintf(`quit app "%s"`, escapeAppleScript(name))
	cmd := exec.CommandContext(ctx, "osascript", "-e", script)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to quit %q: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

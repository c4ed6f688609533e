// Package macos drives the local desktop with the native macOS command-line
// tools: cliclick for pointer and keyboard input, screencapture for
// screenshots, and open and osascript for application control.
package macos

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Controller implements application and screen control for macOS.
type Controller struct{}

func NewController() *Controller {
	return &Controller{}
}

func (c *Controller) cliclick(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "cliclick", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("cliclick: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

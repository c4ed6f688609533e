package macos

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/voiceos-labs/voiceos-core/core/actions"
)

// Screenshot captures the screen, downscales it to the resolution shared
// with the assistant and returns the PNG bytes.
func (c *Controller) Screenshot(ctx context.Context) ([]byte, error) {
	path := filepath.Join(os.TempDir(), fmt.Sprintf("screenshot_%s.png", uuid.NewString()))
	defer os.Remove(path)

	cmd := exec.CommandContext(ctx, "screencapture", "-x", path)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("screencapture: %w: %s", err, strings.TrimSpace(string(out)))
	}

	cmd = exec.CommandContext(ctx, "sips", "-z",
		strconv.Itoa(actions.ScaledScreenHeight), strconv.Itoa(actions.ScaledScreenWidth), path)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("sips: %w: %s", err, strings.TrimSpace(string(out)))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read screenshot: %w", err)
	}
	return data, nil
}

// ScreenSize returns the dimensions of the desktop in points, the coordinate
// space cliclick operates in.
func (c *Controller) ScreenSize(ctx context.Context) (int, int, error) {
	cmd := exec.CommandContext(ctx, "osascript", "-e",
		`tell application "Finder" to get bounds of window of desktop`)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, 0, fmt.Errorf("osascript: %w: %s", err, strings.TrimSpace(string(out)))
	}

	return parseDesktopBounds(string(out))
}

func (c *Controller) CursorPosition(ctx context.Context) (actions.Point, error) {
	cmd := exec.CommandContext(ctx, "cliclick", "p")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return actions.Point{}, fmt.Errorf("cliclick: %w: %s", err, strings.TrimSpace(string(out)))
	}

	return parseCursorPosition(string(out))
}

func parseDesktopBounds(out string) (int, int, error) {
	fields := strings.Split(strings.TrimSpace(out), ",")
	if len(fields) != 4 {
		return 0, 0, fmt.Errorf("unexpected desktop bounds: %q", out)
	}

	width, err := strconv.Atoi(strings.TrimSpace(fields[2]))
	if err != nil {
		return 0, 0, fmt.Errorf("unexpected desktop bounds: %q", out)
	}
	height, err := strconv.Atoi(strings.TrimSpace(fields[3]))
	if err != nil {
		return 0, 0, fmt.Errorf("unexpected desktop bounds: %q", out)
	}
	return width, height, nil
}

func parseCursorPosition(out string) (actions.Point, error) {
	coords := strings.Split(strings.TrimSpace(out), ",")
	if len(coords) != 2 {
		return actions.Point{}, fmt.Errorf("unexpected cursor position: %q", out)
	}

	x, err := strconv.Atoi(strings.TrimSpace(coords[0]))
	if err != nil {
		return actions.Point{}, fmt.Errorf("unexpected cursor position: %q", out)
	}
	y, err := strconv.Atoi(strings.TrimSpace(coords[1]))
	if err != nil {
		return actions.Point{}, fmt.Errorf("unexpected cursor position: %q", out)
	}
	return actions.Point{X: x, Y: y}, nil
}

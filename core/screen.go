package orchestration

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/voiceos-labs/voiceos-core/core/actions"
)

// screenControl wraps the configured screen controller and owns the mapping
// between the agent's coordinate space and the real desktop. The agent only
// ever sees screenshots downscaled to actions.ScaledScreenWidth by
// actions.ScaledScreenHeight, so every coordinate it sends back has to be
// scaled up before it reaches the pointer.
type screenControl struct {
	controller ScreenController

	sizeMu sync.Mutex
	width  int
	height int
}

func (s *screenControl) set(controller ScreenController) {
	if s != nil {
		s.controller = controller
	}
}

func (s *screenControl) isConfigured() bool {
	return s != nil && s.controller != nil
}

// size returns the desktop size in the automation tool's coordinate space,
// cached after the first successful read.
func (s *screenControl) size(ctx context.Context) (int, int, error) {
	if !s.isConfigured() {
		return 0, 0, fmt.Errorf("no screen controller configured")
	}

	s.sizeMu.Lock()
	defer s.sizeMu.Unlock()

	if s.width > 0 && s.height > 0 {
		return s.width, s.height, nil
	}

	width, height, err := s.controller.ScreenSize(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read screen size: %w", err)
	}
	s.width, s.height = width, height
	return width, height, nil
}

// scalePoint maps a point from the agent's downscaled screenshot space to
// desktop coordinates.
func (s *screenControl) scalePoint(ctx context.Context, p actions.Point) (actions.Point, error) {
	width, height, err := s.size(ctx)
	if err != nil {
		return actions.Point{}, err
	}

	return actions.Point{
		X: int(math.Round(float64(p.X) * float64(width) / float64(actions.ScaledScreenWidth))),
		Y: int(math.Round(float64(p.Y) * float64(height) / float64(actions.ScaledScreenHeight))),
	}, nil
}

func (s *screenControl) Screenshot(ctx context.Context) ([]byte, error) {
	if !s.isConfigured() {
		return nil, fmt.Errorf("no screen controller configured")
	}

	return s.controller.Screenshot(ctx)
}

func (s *screenControl) MoveMouse(ctx context.Context, to actions.Point) error {
	if !s.isConfigured() {
		return fmt.Errorf("no screen controller configured")
	}

	return s.controller.MoveMouse(ctx, to)
}

func (s *screenControl) Drag(ctx context.Context, to actions.Point) error {
	if !s.isConfigured() {
		return fmt.Errorf("no screen controller configured")
	}

	return s.controller.Drag(ctx, to)
}

func (s *screenControl) Click(ctx context.Context, kind actions.ClickKind, at *actions.Point) error {
	if !s.isConfigured() {
		return fmt.Errorf("no screen controller configured")
	}

	return s.controller.Click(ctx, kind, at)
}

func (s *screenControl) TypeText(ctx context.Context, text string) error {
	if !s.isConfigured() {
		return fmt.Errorf("no screen controller configured")
	}

	return s.controller.TypeText(ctx, text)
}

func (s *screenControl) PressKey(ctx context.Context, combo string) error {
	if !s.isConfigured() {
		return fmt.Errorf("no screen controller configured")
	}

	return s.controller.PressKey(ctx, combo)
}

func (s *screenControl) Scroll(ctx context.Context, direction actions.ScrollDirection, amount int) error {
	if !s.isConfigured() {
		return fmt.Errorf("no screen controller configured")
	}

	return s.controller.Scroll(ctx, direction, amount)
}

func (s *screenControl) CursorPosition(ctx context.Context) (actions.Point, error) {
	if !s.isConfigured() {
		return actions.Point{}, fmt.Errorf("no screen controller configured")
	}

	return s.controller.CursorPosition(ctx)
}

package orchestration

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"time"

	"github.com/voiceos-labs/voiceos-core/core/actions"
	"github.com/voiceos-labs/voiceos-core/core/agents"
)

// screenshotDelay is how long an action gets to take visual effect before
// the follow-up screenshot is captured.
const screenshotDelay = 100 * time.Millisecond

const (
	defaultWaitSeconds  = 1.0
	defaultScrollAmount = 10
)

var clickKinds = map[string]actions.ClickKind{
	"left_click":   actions.ClickLeft,
	"right_click":  actions.ClickRight,
	"middle_click": actions.ClickMiddle,
	"double_click": actions.ClickDouble,
	"triple_click": actions.ClickTriple,
}

type computerToolParams struct {
	Action          string  `json:"action"`
	Text            string  `json:"text,omitempty"`
	Coordinate      []int   `json:"coordinate,omitempty"`
	Duration        float64 `json:"duration,omitempty"`
	ScrollDirection string  `json:"scroll_direction,omitempty"`
	ScrollAmount    int     `json:"scroll_amount,omitempty"`
}

// computerTool exposes the screen, mouse and keyboard to the agent. Actions
// that change what is on screen return a follow-up screenshot so the agent
// can see the result.
func computerTool(o *Orchestrator) agents.Tool {
	description := fmt.Sprintf(
		"Control the computer's mouse, keyboard and screen. Screenshots are downscaled to %dx%d and coordinates use that space. "+
			"Actions: screenshot, left_click, right_click, middle_click, double_click, triple_click (coordinate optional, defaults to the cursor), "+
			"mouse_move, left_click_drag (coordinate required), type, key (text required), scroll (scroll_direction up|down, scroll_amount), "+
			"wait (duration in seconds), cursor_position.",
		actions.ScaledScreenWidth, actions.ScaledScreenHeight,
	)
	return agents.NewTool("computer", description,
		func(ctx context.Context, params computerToolParams) (agents.ToolOutput, error) {
			return o.runComputerAction(ctx, params)
		})
}

func (o *Orchestrator) runComputerAction(ctx context.Context, params computerToolParams) (agents.ToolOutput, error) {
	switch params.Action {
	case "screenshot":
		image, err := o.takeScreenshot(ctx)
		if err != nil {
			return agents.ToolOutput{}, err
		}
		return agents.ToolOutput{Image: image}, nil

	case "left_click", "right_click", "middle_click", "double_click", "triple_click":
		at, err := o.optionalPoint(ctx, params.Coordinate)
		if err != nil {
			return agents.ToolOutput{}, err
		}
		if err := o.screen.Click(ctx, clickKinds[params.Action], at); err != nil {
			return agents.ToolOutput{}, err
		}
		return o.outputWithScreenshot(ctx, "")

	case "mouse_move":
		to, err := o.requiredPoint(ctx, params.Coordinate, params.Action)
		if err != nil {
			return agents.ToolOutput{}, err
		}
		if err := o.screen.MoveMouse(ctx, to); err != nil {
			return agents.ToolOutput{}, err
		}
		return agents.ToolOutput{}, nil

	case "left_click_drag":
		to, err := o.requiredPoint(ctx, params.Coordinate, params.Action)
		if err != nil {
			return agents.ToolOutput{}, err
		}
		if err := o.screen.Drag(ctx, to); err != nil {
			return agents.ToolOutput{}, err
		}
		return agents.ToolOutput{}, nil

	case "type":
		if params.Text == "" {
			return agents.ToolOutput{}, fmt.Errorf("text is required for %s", params.Action)
		}
		if err := o.screen.TypeText(ctx, params.Text); err != nil {
			return agents.ToolOutput{}, err
		}
		return o.outputWithScreenshot(ctx, "Typed: "+params.Text)

	case "key":
		if params.Text == "" {
			return agents.ToolOutput{}, fmt.Errorf("text is required for %s", params.Action)
		}
		if err := o.screen.PressKey(ctx, params.Text); err != nil {
			return agents.ToolOutput{}, err
		}
		return o.outputWithScreenshot(ctx, "Pressed key: "+params.Text)

	case "scroll":
		if params.Coordinate != nil {
			to, err := o.requiredPoint(ctx, params.Coordinate, params.Action)
			if err != nil {
				return agents.ToolOutput{}, err
			}
			if err := o.screen.MoveMouse(ctx, to); err != nil {
				return agents.ToolOutput{}, err
			}
		}
		direction := actions.ScrollDown
		if params.ScrollDirection == string(actions.ScrollUp) {
			direction = actions.ScrollUp
		}
		amount := params.ScrollAmount
		if amount <= 0 {
			amount = defaultScrollAmount
		}
		if err := o.screen.Scroll(ctx, direction, amount); err != nil {
			return agents.ToolOutput{}, err
		}
		return o.outputWithScreenshot(ctx, fmt.Sprintf("Scrolled %s by %d", direction, amount))

	case "wait":
		duration := params.Duration
		if duration <= 0 {
			duration = defaultWaitSeconds
		}
		select {
		case <-ctx.Done():
			return agents.ToolOutput{}, ctx.Err()
		case <-time.After(time.Duration(duration * float64(time.Second))):
		}
		return agents.ToolOutput{Text: fmt.Sprintf("Waited %g seconds", duration)}, nil

	case "cursor_position":
		position, err := o.screen.CursorPosition(ctx)
		if err != nil {
			return agents.ToolOutput{}, err
		}
		return agents.ToolOutput{Text: fmt.Sprintf("X=%d,Y=%d", position.X, position.Y)}, nil

	default:
		return agents.ToolOutput{}, fmt.Errorf("invalid action: %s", params.Action)
	}
}

// optionalPoint maps an agent coordinate to desktop space. A nil coordinate
// means the current pointer position.
func (o *Orchestrator) optionalPoint(ctx context.Context, coordinate []int) (*actions.Point, error) {
	if coordinate == nil {
		return nil, nil
	}
	if len(coordinate) != 2 {
		return nil, fmt.Errorf("coordinate must be [x, y], got %v", coordinate)
	}

	point, err := o.screen.scalePoint(ctx, actions.Point{X: coordinate[0], Y: coordinate[1]})
	if err != nil {
		return nil, err
	}
	return &point, nil
}

func (o *Orchestrator) requiredPoint(ctx context.Context, coordinate []int, action string) (actions.Point, error) {
	if coordinate == nil {
		return actions.Point{}, fmt.Errorf("coordinate is required for %s", action)
	}

	point, err := o.optionalPoint(ctx, coordinate)
	if err != nil {
		return actions.Point{}, err
	}
	return *point, nil
}

func (o *Orchestrator) takeScreenshot(ctx context.Context) (*agents.ImageBlock, error) {
	image, err := o.screen.Screenshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to take screenshot: %w", err)
	}

	return &agents.ImageBlock{
		MediaType: "image/png",
		Data:      base64.StdEncoding.EncodeToString(image),
	}, nil
}

// outputWithScreenshot waits for the action to take visual effect, then
// captures a follow-up screenshot. Screenshot failures degrade to text-only
// output rather than failing the action that already ran.
func (o *Orchestrator) outputWithScreenshot(ctx context.Context, text string) (agents.ToolOutput, error) {
	select {
	case <-ctx.Done():
		return agents.ToolOutput{}, ctx.Err()
	case <-time.After(screenshotDelay):
	}

	image, err := o.takeScreenshot(ctx)
	if err != nil {
		log.Println("Warning: follow-up screenshot failed:", err)
		return agents.ToolOutput{Text: text}, nil
	}
	return agents.ToolOutput{Text: text, Image: image}, nil
}

type appToolParams struct {
	Action string `json:"action"`
	Name   string `json:"name"`
}

// appControlTool lets the agent launch or quit applications directly instead
// of hunting for dock icons on screenshots.
func appControlTool(o *Orchestrator) agents.Tool {
	return agents.NewTool("application",
		"Launch or gracefully quit a macOS application by name. Actions: launch, quit.",
		func(ctx context.Context, params appToolParams) (agents.ToolOutput, error) {
			if params.Name == "" {
				return agents.ToolOutput{}, fmt.Errorf("name is required")
			}

			switch params.Action {
			case "launch":
				if err := o.apps.LaunchApp(ctx, params.Name); err != nil {
					return agents.ToolOutput{}, err
				}
				return agents.ToolOutput{Text: "Launched " + params.Name}, nil
			case "quit":
				if err := o.apps.QuitApp(ctx, params.Name); err != nil {
					return agents.ToolOutput{}, err
				}
				return agents.ToolOutput{Text: "Quit " + params.Name}, nil
			default:
				return agents.ToolOutput{}, fmt.Errorf("invalid action: %s", params.Action)
			}
		})
}

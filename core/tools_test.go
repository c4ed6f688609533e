package orchestration

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/voiceos-labs/voiceos-core/core/actions"
)

func newToolTestOrchestrator(controller ScreenController) *Orchestrator {
	return NewOrchestrator(WithScreenController(controller))
}

func TestClickScalesCoordinateToDesktopSpace(t *testing.T) {
	controller := newScriptedScreenController(2732, 1536)
	o := newToolTestOrchestrator(controller)

	output, err := o.runComputerAction(context.Background(), computerToolParams{
		Action:     "left_click",
		Coordinate: []int{100, 200},
	})
	if err != nil {
		t.Fatalf("expected click to succeed, got %v", err)
	}

	if len(controller.clicks) != 1 {
		t.Fatalf("expected 1 click, got %d", len(controller.clicks))
	}
	click := controller.clicks[0]
	if click.kind != actions.ClickLeft {
		t.Fatalf("expected a left click, got %v", click.kind)
	}
	if click.at == nil || *click.at != (actions.Point{X: 200, Y: 400}) {
		t.Fatalf("expected click at desktop (200, 400), got %v", click.at)
	}
	if output.Image == nil {
		t.Fatal("expected a follow-up screenshot")
	}
}

func TestClickWithoutCoordinateClicksInPlace(t *testing.T) {
	controller := newScriptedScreenController(2732, 1536)
	o := newToolTestOrchestrator(controller)

	if _, err := o.runComputerAction(context.Background(), computerToolParams{Action: "right_click"}); err != nil {
		t.Fatalf("expected click to succeed, got %v", err)
	}

	if len(controller.clicks) != 1 || controller.clicks[0].at != nil {
		t.Fatalf("expected 1 click at the current pointer position, got %+v", controller.clicks)
	}
	if controller.clicks[0].kind != actions.ClickRight {
		t.Fatalf("expected a right click, got %v", controller.clicks[0].kind)
	}
}

func TestMouseMoveRequiresCoordinate(t *testing.T) {
	controller := newScriptedScreenController(2732, 1536)
	o := newToolTestOrchestrator(controller)

	_, err := o.runComputerAction(context.Background(), computerToolParams{Action: "mouse_move"})
	if err == nil || !strings.Contains(err.Error(), "coordinate is required for mouse_move") {
		t.Fatalf("expected a missing coordinate error, got %v", err)
	}
	if len(controller.moved) != 0 {
		t.Fatalf("expected no movement, got %v", controller.moved)
	}
}

func TestMouseMoveReturnsNoScreenshot(t *testing.T) {
	controller := newScriptedScreenController(2732, 1536)
	o := newToolTestOrchestrator(controller)

	output, err := o.runComputerAction(context.Background(), computerToolParams{
		Action:     "mouse_move",
		Coordinate: []int{683, 384},
	})
	if err != nil {
		t.Fatalf("expected move to succeed, got %v", err)
	}

	if len(controller.moved) != 1 || controller.moved[0] != (actions.Point{X: 1366, Y: 768}) {
		t.Fatalf("expected a move to desktop (1366, 768), got %v", controller.moved)
	}
	if output.Text != "" || output.Image != nil {
		t.Fatalf("expected empty output for mouse_move, got %+v", output)
	}
}

func TestMalformedCoordinateIsRejected(t *testing.T) {
	controller := newScriptedScreenController(2732, 1536)
	o := newToolTestOrchestrator(controller)

	_, err := o.runComputerAction(context.Background(), computerToolParams{
		Action:     "left_click",
		Coordinate: []int{1},
	})
	if err == nil || !strings.Contains(err.Error(), "coordinate must be [x, y]") {
		t.Fatalf("expected a malformed coordinate error, got %v", err)
	}
}

func TestTypeEchoesTextWithScreenshot(t *testing.T) {
	controller := newScriptedScreenController(2732, 1536)
	o := newToolTestOrchestrator(controller)

	output, err := o.runComputerAction(context.Background(), computerToolParams{
		Action: "type",
		Text:   "hello world",
	})
	if err != nil {
		t.Fatalf("expected typing to succeed, got %v", err)
	}

	if len(controller.typed) != 1 || controller.typed[0] != "hello world" {
		t.Fatalf("expected the text to be typed, got %v", controller.typed)
	}
	if output.Text != "Typed: hello world" {
		t.Fatalf("expected typed echo, got %q", output.Text)
	}
	if output.Image == nil {
		t.Fatal("expected a follow-up screenshot")
	}
}

func TestKeyRequiresText(t *testing.T) {
	controller := newScriptedScreenController(2732, 1536)
	o := newToolTestOrchestrator(controller)

	_, err := o.runComputerAction(context.Background(), computerToolParams{Action: "key"})
	if err == nil || !strings.Contains(err.Error(), "text is required for key") {
		t.Fatalf("expected a missing text error, got %v", err)
	}
}

func TestScrollDefaultsDirectionAndAmount(t *testing.T) {
	controller := newScriptedScreenController(2732, 1536)
	o := newToolTestOrchestrator(controller)

	output, err := o.runComputerAction(context.Background(), computerToolParams{Action: "scroll"})
	if err != nil {
		t.Fatalf("expected scroll to succeed, got %v", err)
	}

	if len(controller.scrolls) != 1 {
		t.Fatalf("expected 1 scroll, got %d", len(controller.scrolls))
	}
	scroll := controller.scrolls[0]
	if scroll.direction != actions.ScrollDown || scroll.amount != 10 {
		t.Fatalf("expected a default scroll down by 10, got %+v", scroll)
	}
	if output.Text != "Scrolled down by 10" {
		t.Fatalf("expected scroll echo, got %q", output.Text)
	}
}

func TestScrollMovesFirstWhenCoordinateGiven(t *testing.T) {
	controller := newScriptedScreenController(2732, 1536)
	o := newToolTestOrchestrator(controller)

	output, err := o.runComputerAction(context.Background(), computerToolParams{
		Action:          "scroll",
		Coordinate:      []int{100, 100},
		ScrollDirection: "up",
		ScrollAmount:    3,
	})
	if err != nil {
		t.Fatalf("expected scroll to succeed, got %v", err)
	}

	if len(controller.moved) != 1 || controller.moved[0] != (actions.Point{X: 200, Y: 200}) {
		t.Fatalf("expected a move to desktop (200, 200) before scrolling, got %v", controller.moved)
	}
	if len(controller.scrolls) != 1 || controller.scrolls[0] != (recordedScroll{direction: actions.ScrollUp, amount: 3}) {
		t.Fatalf("expected a scroll up by 3, got %+v", controller.scrolls)
	}
	if output.Text != "Scrolled up by 3" {
		t.Fatalf("expected scroll echo, got %q", output.Text)
	}
}

func TestWaitReportsDuration(t *testing.T) {
	controller := newScriptedScreenController(2732, 1536)
	o := newToolTestOrchestrator(controller)

	output, err := o.runComputerAction(context.Background(), computerToolParams{
		Action:   "wait",
		Duration: 0.2,
	})
	if err != nil {
		t.Fatalf("expected wait to succeed, got %v", err)
	}
	if output.Text != "Waited 0.2 seconds" {
		t.Fatalf("expected wait echo, got %q", output.Text)
	}
}

func TestWaitStopsOnCancelledContext(t *testing.T) {
	controller := newScriptedScreenController(2732, 1536)
	o := newToolTestOrchestrator(controller)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.runComputerAction(ctx, computerToolParams{Action: "wait", Duration: 30})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestCursorPositionReportsDesktopCoordinates(t *testing.T) {
	controller := newScriptedScreenController(2732, 1536)
	controller.cursor = actions.Point{X: 640, Y: 480}
	o := newToolTestOrchestrator(controller)

	output, err := o.runComputerAction(context.Background(), computerToolParams{Action: "cursor_position"})
	if err != nil {
		t.Fatalf("expected cursor_position to succeed, got %v", err)
	}
	if output.Text != "X=640,Y=480" {
		t.Fatalf("expected raw desktop coordinates, got %q", output.Text)
	}
}

func TestScreenshotActionReturnsImage(t *testing.T) {
	controller := newScriptedScreenController(2732, 1536)
	o := newToolTestOrchestrator(controller)

	output, err := o.runComputerAction(context.Background(), computerToolParams{Action: "screenshot"})
	if err != nil {
		t.Fatalf("expected screenshot to succeed, got %v", err)
	}
	if output.Image == nil || output.Image.MediaType != "image/png" {
		t.Fatalf("expected a png image block, got %+v", output.Image)
	}
	if want := base64.StdEncoding.EncodeToString(controller.screenshot); output.Image.Data != want {
		t.Fatalf("expected base64 screenshot data, got %q", output.Image.Data)
	}
}

func TestScreenshotFailureDegradesToText(t *testing.T) {
	controller := newScriptedScreenController(2732, 1536)
	controller.screenshotErr = errors.New("capture device busy")
	o := newToolTestOrchestrator(controller)

	output, err := o.runComputerAction(context.Background(), computerToolParams{
		Action: "type",
		Text:   "hi",
	})
	if err != nil {
		t.Fatalf("expected the action to survive a screenshot failure, got %v", err)
	}
	if output.Text != "Typed: hi" || output.Image != nil {
		t.Fatalf("expected text-only output, got %+v", output)
	}
}

func TestInvalidActionIsRejected(t *testing.T) {
	controller := newScriptedScreenController(2732, 1536)
	o := newToolTestOrchestrator(controller)

	_, err := o.runComputerAction(context.Background(), computerToolParams{Action: "teleport"})
	if err == nil || !strings.Contains(err.Error(), "invalid action: teleport") {
		t.Fatalf("expected an invalid action error, got %v", err)
	}
}

func TestScreenSizeIsCachedAfterFirstRead(t *testing.T) {
	controller := newScriptedScreenController(2732, 1536)
	o := newToolTestOrchestrator(controller)

	for range 3 {
		if _, err := o.runComputerAction(context.Background(), computerToolParams{
			Action:     "left_click",
			Coordinate: []int{10, 10},
		}); err != nil {
			t.Fatalf("expected click to succeed, got %v", err)
		}
	}

	if controller.sizeReads != 1 {
		t.Fatalf("expected 1 screen size read, got %d", controller.sizeReads)
	}
}

func TestComputerToolDecodesAgentInput(t *testing.T) {
	controller := newScriptedScreenController(2732, 1536)
	o := newToolTestOrchestrator(controller)
	tool := computerTool(o)

	if tool.Name != "computer" {
		t.Fatalf("expected the computer tool, got %q", tool.Name)
	}

	input := json.RawMessage(`{"action": "mouse_move", "coordinate": [683, 384]}`)
	if _, err := tool.Execute(context.Background(), input); err != nil {
		t.Fatalf("expected the tool call to succeed, got %v", err)
	}

	if len(controller.moved) != 1 || controller.moved[0] != (actions.Point{X: 1366, Y: 768}) {
		t.Fatalf("expected a move to desktop (1366, 768), got %v", controller.moved)
	}
}

func TestAppToolLaunchesAndQuits(t *testing.T) {
	controller := &scriptedAppController{}
	o := NewOrchestrator(WithAppController(controller))
	tool := appControlTool(o)

	output, err := tool.Execute(context.Background(), json.RawMessage(`{"action": "launch", "name": "Safari"}`))
	if err != nil {
		t.Fatalf("expected launch to succeed, got %v", err)
	}
	if output.Text != "Launched Safari" {
		t.Fatalf("expected launch echo, got %q", output.Text)
	}

	output, err = tool.Execute(context.Background(), json.RawMessage(`{"action": "quit", "name": "Safari"}`))
	if err != nil {
		t.Fatalf("expected quit to succeed, got %v", err)
	}
	if output.Text != "Quit Safari" {
		t.Fatalf("expected quit echo, got %q", output.Text)
	}

	if len(controller.launched) != 1 || len(controller.quit) != 1 {
		t.Fatalf("expected one launch and one quit, got %v and %v", controller.launched, controller.quit)
	}
}

func TestAppToolRejectsMissingName(t *testing.T) {
	o := NewOrchestrator(WithAppController(&scriptedAppController{}))
	tool := appControlTool(o)

	_, err := tool.Execute(context.Background(), json.RawMessage(`{"action": "launch"}`))
	if err == nil || !strings.Contains(err.Error(), "name is required") {
		t.Fatalf("expected a missing name error, got %v", err)
	}
}

type recordedClick struct {
	kind actions.ClickKind
	at   *actions.Point
}

type recordedScroll struct {
	direction actions.ScrollDirection
	amount    int
}

type scriptedScreenController struct {
	width     int
	height    int
	sizeReads int

	screenshot    []byte
	screenshotErr error

	moved   []actions.Point
	dragged []actions.Point
	clicks  []recordedClick
	typed   []string
	keys    []string
	scrolls []recordedScroll
	cursor  actions.Point
}

func newScriptedScreenController(width, height int) *scriptedScreenController {
	return &scriptedScreenController{width: width, height: height, screenshot: []byte("not a real png")}
}

func (c *scriptedScreenController) Screenshot(ctx context.Context) ([]byte, error) {
	if c.screenshotErr != nil {
		return nil, c.screenshotErr
	}
	return c.screenshot, nil
}

func (c *scriptedScreenController) ScreenSize(ctx context.Context) (int, int, error) {
	c.sizeReads++
	return c.width, c.height, nil
}

func (c *scriptedScreenController) MoveMouse(ctx context.Context, to actions.Point) error {
	c.moved = append(c.moved, to)
	return nil
}

func (c *scriptedScreenController) Drag(ctx context.Context, to actions.Point) error {
	c.dragged = append(c.dragged, to)
	return nil
}

func (c *scriptedScreenController) Click(ctx context.Context, kind actions.ClickKind, at *actions.Point) error {
	c.clicks = append(c.clicks, recordedClick{kind: kind, at: at})
	return nil
}

func (c *scriptedScreenController) TypeText(ctx context.Context, text string) error {
	c.typed = append(c.typed, text)
	return nil
}

func (c *scriptedScreenController) PressKey(ctx context.Context, combo string) error {
	c.keys = append(c.keys, combo)
	return nil
}

func (c *scriptedScreenController) Scroll(ctx context.Context, direction actions.ScrollDirection, amount int) error {
	c.scrolls = append(c.scrolls, recordedScroll{direction: direction, amount: amount})
	return nil
}

func (c *scriptedScreenController) CursorPosition(ctx context.Context) (actions.Point, error) {
	return c.cursor, nil
}

// Package actions holds the vocabulary shared between the desktop-control
// implementations and the components that drive them.
package actions

// Screenshots are downscaled to this resolution before they reach the
// assistant, and assistant coordinates are mapped back from it.
const (
	ScaledScreenWidth  = 1366
	ScaledScreenHeight = 768
)

// Point is a position on the physical screen. A nil *Point means the current
// pointer position.
type Point struct {
	X int
	Y int
}

type ClickKind string

const (
	ClickLeft   ClickKind = "left"
	ClickRight  ClickKind = "right"
	ClickMiddle ClickKind = "middle"
	ClickDouble ClickKind = "double"
	ClickTriple ClickKind = "triple"
)

type ScrollDirection string

const (
	ScrollUp   ScrollDirection = "up"
	ScrollDown ScrollDirection = "down"
)

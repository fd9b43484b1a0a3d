package output

import (
	"fmt"

	"github.com/vedantwpatil/mouse-monitor/internal/tracking"
)

// Kind labels the channel an update belongs to.
type Kind string

const (
	KindClick  Kind = "click"
	KindMove   Kind = "move"
	KindScroll Kind = "scroll"
)

// EventName is the name browser overlays receive for the kind.
func (k Kind) EventName() string {
	switch k {
	case KindClick:
		return "MouseClick"
	case KindMove:
		return "MouseMove"
	case KindScroll:
		return "MouseScroll"
	default:
		return string(k)
	}
}

// Payload is the structured data carried by one update.
type Payload interface {
	Kind() Kind
	// Text renders the payload for plain text sinks.
	Text() string
}

// ClickPayload reports a button press.
type ClickPayload struct {
	Button  string `json:"button"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Pressed bool   `json:"pressed"`
}

func (ClickPayload) Kind() Kind { return KindClick }

func (p ClickPayload) Text() string { return p.Button }

// MovePayload reports the cursor position.
type MovePayload struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (MovePayload) Kind() Kind { return KindMove }

func (p MovePayload) Text() string { return fmt.Sprintf("%d, %d", p.X, p.Y) }

// ScrollPayload reports one step of a scroll burst.
type ScrollPayload struct {
	X  int `json:"x"`
	Y  int `json:"y"`
	DX int `json:"dx"`
	DY int `json:"dy"`
}

func (ScrollPayload) Kind() Kind { return KindScroll }

func (p ScrollPayload) Text() string {
	return fmt.Sprintf("%d, %d, %d, %d", p.X, p.Y, p.DX, p.DY)
}

// FromClick converts a buffered click.
func FromClick(ev tracking.ClickEvent) ClickPayload {
	return ClickPayload{Button: ev.Button.Code(), X: ev.X, Y: ev.Y, Pressed: ev.Pressed}
}

// FromMove converts a buffered move.
func FromMove(ev tracking.MoveEvent) MovePayload {
	return MovePayload{X: ev.X, Y: ev.Y}
}

// FromScroll converts an emitted scroll step.
func FromScroll(ev tracking.ScrollEvent) ScrollPayload {
	return ScrollPayload{X: ev.X, Y: ev.Y, DX: ev.DX, DY: ev.DY}
}

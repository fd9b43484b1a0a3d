package tracking

// Channel identifies one independently monitored input category.
type Channel int

const (
	ChannelClick Channel = iota
	ChannelMove
	ChannelScroll
)

// Channels lists every channel in tick order.
var Channels = []Channel{ChannelClick, ChannelMove, ChannelScroll}

func (c Channel) String() string {
	switch c {
	case ChannelClick:
		return "click"
	case ChannelMove:
		return "move"
	case ChannelScroll:
		return "scroll"
	default:
		return "unknown"
	}
}

// Button is a mouse button the monitor reports on.
type Button int

const (
	ButtonPrimary Button = iota + 1
	ButtonSecondary
	ButtonMiddle
)

// Code returns the label sinks receive for the button.
func (b Button) Code() string {
	switch b {
	case ButtonPrimary:
		return "MB1"
	case ButtonSecondary:
		return "MB2"
	case ButtonMiddle:
		return "MB3"
	default:
		return ""
	}
}

// ClickEvent is a button press at a screen position.
// Only press transitions are recorded, so Pressed is always true in practice.
type ClickEvent struct {
	Button  Button
	X       int
	Y       int
	Pressed bool
}

// MoveEvent holds the cursor position as of the last hook notification.
type MoveEvent struct {
	X int
	Y int
}

// ScrollEvent is one emitted step of a decaying scroll burst.
// DX and DY are already truncated toward zero.
type ScrollEvent struct {
	X  int
	Y  int
	DX int
	DY int
}

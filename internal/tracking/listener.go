package tracking

import (
	"errors"
	"sync"

	hook "github.com/robotn/gohook"
)

// ErrListenerRunning is returned when starting a listener twice.
var ErrListenerRunning = errors.New("listener already running")

// wheelHorizontal is uiohook's direction for sideways wheel rotation.
const wheelHorizontal uint8 = 4

// ListenerConfig wires a listener to its channel, buffer and hook.
type ListenerConfig struct {
	Channel Channel
	Buffer  *Buffer
	Source  EventSource
	// Locate seeds the move channel with the current cursor position on
	// start. Nil skips seeding.
	Locate CursorLocator
}

// Listener feeds one channel of the buffer from hook callbacks. Its handler
// only ever touches the buffer.
type Listener struct {
	channel Channel
	buf     *Buffer
	src     EventSource
	locate  CursorLocator

	mu          sync.Mutex
	unsubscribe func()
}

// NewListener validates cfg and returns a stopped listener.
func NewListener(cfg ListenerConfig) (*Listener, error) {
	if cfg.Buffer == nil {
		return nil, errors.New("listener requires a buffer")
	}
	if cfg.Source == nil {
		return nil, errors.New("listener requires an event source")
	}
	return &Listener{
		channel: cfg.Channel,
		buf:     cfg.Buffer,
		src:     cfg.Source,
		locate:  cfg.Locate,
	}, nil
}

// Channel returns the channel this listener feeds.
func (l *Listener) Channel() Channel {
	return l.channel
}

// Start subscribes to the hook.
func (l *Listener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.unsubscribe != nil {
		return ErrListenerRunning
	}
	if l.channel == ChannelMove && l.locate != nil {
		x, y := l.locate()
		l.buf.SetMove(MoveEvent{X: x, Y: y})
	}
	l.unsubscribe = l.src.Subscribe(l.handle)
	return nil
}

// Stop unsubscribes. No callback runs after Stop returns.
func (l *Listener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.unsubscribe == nil {
		return
	}
	l.unsubscribe()
	l.unsubscribe = nil
}

// Running reports whether the listener is subscribed.
func (l *Listener) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.unsubscribe != nil
}

func (l *Listener) handle(e hook.Event) {
	switch l.channel {
	case ChannelClick:
		// gohook's MouseHold is uiohook's "pressed"; MouseDown arrives on
		// release and MouseUp after it, both are ignored.
		if e.Kind != hook.MouseHold {
			return
		}
		button, ok := mapButton(e.Button)
		if !ok {
			return
		}
		l.buf.PushClick(ClickEvent{
			Button:  button,
			X:       int(e.X),
			Y:       int(e.Y),
			Pressed: true,
		})

	case ChannelMove:
		if e.Kind != hook.MouseMove && e.Kind != hook.MouseDrag {
			return
		}
		l.buf.SetMove(MoveEvent{X: int(e.X), Y: int(e.Y)})

	case ChannelScroll:
		if e.Kind != hook.MouseWheel {
			return
		}
		dx, dy := wheelDelta(e)
		l.buf.AccumulateScroll(int(e.X), int(e.Y), dx, dy)
	}
}

func mapButton(native uint16) (Button, bool) {
	switch native {
	case hook.MouseMap["left"]:
		return ButtonPrimary, true
	case hook.MouseMap["right"]:
		return ButtonSecondary, true
	case hook.MouseMap["center"]:
		return ButtonMiddle, true
	default:
		return 0, false
	}
}

// wheelDelta converts a wheel notification to (dx, dy) with positive dy
// meaning up. uiohook reports downward vertical rotation as positive.
func wheelDelta(e hook.Event) (dx, dy float64) {
	rotation := float64(e.Rotation)
	if e.Direction == wheelHorizontal {
		return rotation, 0
	}
	return 0, -rotation
}

package monitor

import (
	"log/slog"
	"time"

	"github.com/vedantwpatil/mouse-monitor/internal/host"
	"github.com/vedantwpatil/mouse-monitor/internal/output"
	"github.com/vedantwpatil/mouse-monitor/internal/tracking"
)

// TickPeriod is how often buffered events are forwarded.
const TickPeriod = 50 * time.Millisecond

// Timers is the host's periodic callback facility.
type Timers interface {
	AddTimer(fn host.TimerFunc, period time.Duration) host.TimerID
	RemoveTimer(id host.TimerID)
}

// Sender delivers payloads to named sinks on the main thread.
type Sender interface {
	Send(m host.Main, sink string, p output.Payload)
}

// Ticker drains a session's buffer on every tick and forwards the events.
// It lives on the main thread.
type Ticker struct {
	timers Timers
	out    Sender
	logger *slog.Logger

	id         host.TimerID
	registered bool
	session    *Session
}

// NewTicker returns an unregistered ticker.
func NewTicker(timers Timers, out Sender, logger *slog.Logger) *Ticker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ticker{timers: timers, out: out, logger: logger}
}

// Register points the ticker at s and (re)adds the timer. An existing
// registration is removed first so the tick never fires twice per period.
func (t *Ticker) Register(s *Session) {
	t.Cancel()
	t.session = s
	t.id = t.timers.AddTimer(t.Tick, TickPeriod)
	t.registered = true
}

// Cancel removes the timer and forgets the session.
func (t *Ticker) Cancel() {
	if t.registered {
		t.timers.RemoveTimer(t.id)
		t.registered = false
	}
	t.session = nil
}

// Registered reports whether the timer is active.
func (t *Ticker) Registered() bool {
	return t.registered
}

// Tick forwards clicks, then the latest move, then one scroll step. The
// buffer lock is released before anything is sent.
func (t *Ticker) Tick(m host.Main) {
	s := t.session
	if s == nil {
		return
	}

	if click := s.Settings.Click; click.Enabled {
		clicks, dropped := s.Buffer.DrainClicks()
		if dropped > 0 {
			t.logger.Warn("click queue overflowed", "session", s.ID, "dropped", dropped)
		}
		for _, ev := range clicks {
			t.out.Send(m, click.Sink, output.FromClick(ev))
		}
	}

	if move := s.Settings.Move; move.Enabled {
		if ev, ok := s.Buffer.TakeMove(); ok {
			t.out.Send(m, move.Sink, output.FromMove(ev))
		}
	}

	if scroll := s.Settings.Scroll; scroll.Enabled {
		if ev, ok := s.Buffer.PeekAndDecayScroll(); ok {
			t.out.Send(m, scroll.Sink, output.FromScroll(ev))
		}
	}
}

// channelsOf lists the enabled channels of s in tick order.
func channelsOf(s *Session) []tracking.Channel {
	var out []tracking.Channel
	for _, ch := range tracking.Channels {
		if s.Enabled(ch) {
			out = append(out, ch)
		}
	}
	return out
}

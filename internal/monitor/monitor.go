// Package monitor owns the lifecycle of a monitoring session: the hook
// listeners feeding the buffer and the ticker draining it.
package monitor

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vedantwpatil/mouse-monitor/internal/config"
	"github.com/vedantwpatil/mouse-monitor/internal/host"
	"github.com/vedantwpatil/mouse-monitor/internal/tracking"
)

// Options wires a Monitor to the host and the hook.
type Options struct {
	Timers Timers
	Sender Sender
	Source tracking.EventSource
	// Locate seeds the move channel on start; nil disables seeding.
	Locate           tracking.CursorLocator
	MaxPendingClicks int
	Logger           *slog.Logger
	Clock            func() time.Time
}

// Monitor starts and stops listeners and the ticker. Every method must be
// called on the main thread.
type Monitor struct {
	source           tracking.EventSource
	locate           tracking.CursorLocator
	maxPendingClicks int
	logger           *slog.Logger
	clock            func() time.Time

	ticker    *Ticker
	session   *Session
	listeners map[tracking.Channel]*tracking.Listener
}

// New validates opts and returns an idle monitor.
func New(opts Options) (*Monitor, error) {
	if opts.Timers == nil {
		return nil, errors.New("monitor requires host timers")
	}
	if opts.Sender == nil {
		return nil, errors.New("monitor requires an output sender")
	}
	if opts.Source == nil {
		return nil, errors.New("monitor requires an event source")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Monitor{
		source:           opts.Source,
		locate:           opts.Locate,
		maxPendingClicks: opts.MaxPendingClicks,
		logger:           logger,
		clock:            clock,
		ticker:           NewTicker(opts.Timers, opts.Sender, logger),
		listeners:        make(map[tracking.Channel]*tracking.Listener),
	}, nil
}

// Configure stops whatever is running and starts a fresh session for the
// enabled channels of settings.
func (m *Monitor) Configure(main host.Main, settings config.Settings) error {
	if !main.Valid() {
		return errors.New("configure must run on the main thread")
	}
	m.stop()

	session := &Session{
		ID:       uuid.NewString(),
		Settings: settings,
		Buffer:   tracking.NewBuffer(tracking.BufferOptions{MaxPendingClicks: m.maxPendingClicks}),
		Started:  m.clock(),
	}

	for _, ch := range channelsOf(session) {
		l, err := tracking.NewListener(tracking.ListenerConfig{
			Channel: ch,
			Buffer:  session.Buffer,
			Source:  m.source,
			Locate:  m.locate,
		})
		if err == nil {
			err = l.Start()
		}
		if err != nil {
			m.stopListeners()
			return fmt.Errorf("start %s listener: %w", ch, err)
		}
		m.listeners[ch] = l
	}

	m.session = session
	m.ticker.Register(session)

	m.logger.Info("monitoring session started",
		"session", session.ID,
		"click", sinkOrOff(settings.Click),
		"move", sinkOrOff(settings.Move),
		"scroll", sinkOrOff(settings.Scroll),
	)
	return nil
}

// Teardown stops every listener, cancels the ticker and discards anything
// still buffered.
func (m *Monitor) Teardown(main host.Main) {
	if !main.Valid() {
		m.logger.Error("teardown outside the main thread")
		return
	}
	m.stop()
}

// Session returns the active session, or nil.
func (m *Monitor) Session() *Session {
	return m.session
}

// IsRunning reports whether a session is active.
func (m *Monitor) IsRunning() bool {
	return m.session != nil
}

// Listening reports whether a listener for ch is alive.
func (m *Monitor) Listening(ch tracking.Channel) bool {
	l, ok := m.listeners[ch]
	return ok && l.Running()
}

func (m *Monitor) stop() {
	m.stopListeners()
	m.ticker.Cancel()
	if m.session != nil {
		m.session.Buffer.Reset()
		m.logger.Info("monitoring session stopped",
			"session", m.session.ID,
			"duration", m.clock().Sub(m.session.Started).Round(time.Millisecond),
		)
		m.session = nil
	}
}

func (m *Monitor) stopListeners() {
	for ch, l := range m.listeners {
		l.Stop()
		delete(m.listeners, ch)
	}
}

func sinkOrOff(ch config.ChannelSettings) string {
	if !ch.Enabled {
		return "off"
	}
	return ch.Sink
}

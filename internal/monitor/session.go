package monitor

import (
	"time"

	"github.com/vedantwpatil/mouse-monitor/internal/config"
	"github.com/vedantwpatil/mouse-monitor/internal/tracking"
)

// Session is the state of one monitoring run, from Configure to the next
// Configure or Teardown. Listeners and the ticker share its buffer.
type Session struct {
	ID       string
	Settings config.Settings
	Buffer   *tracking.Buffer
	Started  time.Time
}

// Channel returns the settings for ch.
func (s *Session) Channel(ch tracking.Channel) config.ChannelSettings {
	switch ch {
	case tracking.ChannelClick:
		return s.Settings.Click
	case tracking.ChannelMove:
		return s.Settings.Move
	case tracking.ChannelScroll:
		return s.Settings.Scroll
	default:
		return config.ChannelSettings{}
	}
}

// Enabled reports whether ch is monitored in this session.
func (s *Session) Enabled(ch tracking.Channel) bool {
	return s.Channel(ch).Enabled
}

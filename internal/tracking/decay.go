package tracking

import "math"

// Decay holds the tuning of the scroll smoothing.
type Decay struct {
	// Factor multiplies the accumulated delta after every emitted step.
	Factor float64
	// Significance is the magnitude that starts (and keeps) a burst decaying.
	Significance float64
	// Snap is the magnitude below which a component is forced to zero.
	Snap float64
}

// DefaultDecay is the tuning used by the monitor.
var DefaultDecay = Decay{
	Factor:       0.8,
	Significance: 0.1,
	Snap:         0.5,
}

// significant reports whether either component is large enough to emit.
func (d Decay) significant(dx, dy float64) bool {
	return math.Abs(dx) > d.Significance || math.Abs(dy) > d.Significance
}

// step applies one decay to a component.
func (d Decay) step(v float64) float64 {
	v *= d.Factor
	if math.Abs(v) < d.Snap {
		return 0
	}
	return v
}

// scrollState is the accumulator plus the Idle/Decaying flag. last is the
// step most recently emitted in the current burst.
type scrollState struct {
	x, y     int
	dx, dy   float64
	decaying bool

	last    [2]int
	hasLast bool
}

func (s *scrollState) accumulate(d Decay, x, y int, dx, dy float64) {
	s.x, s.y = x, y
	s.dx += dx
	s.dy += dy
	s.hasLast = false
	if d.significant(s.dx, s.dy) {
		s.decaying = true
	}
}

// next emits the current step and decays the remainder. A step that
// truncates to the one emitted last is decayed silently. The tick that finds
// the burst spent moves back to Idle without emitting.
func (s *scrollState) next(d Decay) (ScrollEvent, bool) {
	if !s.decaying {
		return ScrollEvent{}, false
	}
	if !d.significant(s.dx, s.dy) {
		*s = scrollState{x: s.x, y: s.y}
		return ScrollEvent{}, false
	}

	step := [2]int{int(s.dx), int(s.dy)}
	s.dx = d.step(s.dx)
	s.dy = d.step(s.dy)
	if s.hasLast && step == s.last {
		return ScrollEvent{}, false
	}
	s.last, s.hasLast = step, true

	return ScrollEvent{X: s.x, Y: s.y, DX: step[0], DY: step[1]}, true
}

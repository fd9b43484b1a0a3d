package tracking

import "sync"

// DefaultMaxPendingClicks bounds the click queue between two ticks.
const DefaultMaxPendingClicks = 256

// BufferOptions configures a Buffer.
type BufferOptions struct {
	// MaxPendingClicks caps queued clicks; the oldest is dropped on overflow.
	// Zero means unbounded.
	MaxPendingClicks int
	Decay            Decay
}

// Buffer is the only state shared between hook goroutines and the main
// thread. One mutex guards all three channels and is never held across I/O.
type Buffer struct {
	mu sync.Mutex

	clicks    []ClickEvent
	maxClicks int
	dropped   int

	move    MoveEvent
	hasMove bool

	decay  Decay
	scroll scrollState
}

// NewBuffer returns an empty buffer. A zero Decay selects DefaultDecay.
func NewBuffer(opts BufferOptions) *Buffer {
	decay := opts.Decay
	if decay == (Decay{}) {
		decay = DefaultDecay
	}
	maxClicks := opts.MaxPendingClicks
	if maxClicks < 0 {
		maxClicks = 0
	}
	return &Buffer{
		maxClicks: maxClicks,
		decay:     decay,
	}
}

// PushClick queues a click in arrival order.
func (b *Buffer) PushClick(ev ClickEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.maxClicks > 0 && len(b.clicks) >= b.maxClicks {
		copy(b.clicks, b.clicks[1:])
		b.clicks = b.clicks[:len(b.clicks)-1]
		b.dropped++
	}
	b.clicks = append(b.clicks, ev)
}

// SetMove replaces any unconsumed position.
func (b *Buffer) SetMove(ev MoveEvent) {
	b.mu.Lock()
	b.move = ev
	b.hasMove = true
	b.mu.Unlock()
}

// AccumulateScroll adds a wheel delta and records the cursor position.
func (b *Buffer) AccumulateScroll(x, y int, dx, dy float64) {
	b.mu.Lock()
	b.scroll.accumulate(b.decay, x, y, dx, dy)
	b.mu.Unlock()
}

// DrainClicks empties the click queue, returning it in FIFO order together
// with the number of clicks dropped since the previous drain.
func (b *Buffer) DrainClicks() ([]ClickEvent, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	clicks := b.clicks
	dropped := b.dropped
	b.clicks = nil
	b.dropped = 0
	return clicks, dropped
}

// TakeMove returns the latest position once and then clears it.
func (b *Buffer) TakeMove() (MoveEvent, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.hasMove {
		return MoveEvent{}, false
	}
	ev := b.move
	b.move = MoveEvent{}
	b.hasMove = false
	return ev, true
}

// PeekAndDecayScroll emits the next step of the current scroll burst, if any.
func (b *Buffer) PeekAndDecayScroll() (ScrollEvent, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.scroll.next(b.decay)
}

// Scrolling reports whether a scroll burst is still decaying.
func (b *Buffer) Scrolling() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.scroll.decaying
}

// Reset discards everything pending, including decay state.
func (b *Buffer) Reset() {
	b.mu.Lock()
	b.clicks = nil
	b.dropped = 0
	b.move = MoveEvent{}
	b.hasMove = false
	b.scroll = scrollState{}
	b.mu.Unlock()
}

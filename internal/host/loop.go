// Package host provides the single main thread that owns sink state. Timer
// callbacks and posted tasks run one at a time on the goroutine inside Run.
package host

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Main is handed to every callback the loop runs. Operations that are only
// valid on the main thread take one as proof of where they are called from.
type Main struct {
	loop *Loop
}

// Loop returns the loop that issued the token.
func (m Main) Loop() *Loop {
	return m.loop
}

// Valid reports whether the token was issued by a loop.
func (m Main) Valid() bool {
	return m.loop != nil
}

// TimerFunc is a periodic callback.
type TimerFunc func(Main)

// TimerID identifies a timer registration.
type TimerID uint64

type timer struct {
	fn     TimerFunc
	period time.Duration
	next   time.Time
}

// Loop is a cooperative single-threaded scheduler.
type Loop struct {
	clock func() time.Time

	mu      sync.Mutex
	timers  map[TimerID]*timer
	order   []TimerID
	nextID  TimerID
	tasks   []func(Main)
	wake    chan struct{}
	running bool
}

// ErrRunning is returned when Run is entered twice.
var ErrRunning = errors.New("host loop already running")

// NewLoop returns an idle loop using the wall clock.
func NewLoop() *Loop {
	return NewLoopWithClock(time.Now)
}

// NewLoopWithClock returns a loop scheduling timers against clock.
func NewLoopWithClock(clock func() time.Time) *Loop {
	if clock == nil {
		clock = time.Now
	}
	return &Loop{
		clock:  clock,
		timers: make(map[TimerID]*timer),
		wake:   make(chan struct{}, 1),
	}
}

// AddTimer registers fn to run every period. Registering the same function
// twice yields two independent timers.
func (l *Loop) AddTimer(fn TimerFunc, period time.Duration) TimerID {
	if period <= 0 {
		period = time.Millisecond
	}
	l.mu.Lock()
	l.nextID++
	id := l.nextID
	l.timers[id] = &timer{fn: fn, period: period, next: l.clock().Add(period)}
	l.order = append(l.order, id)
	l.mu.Unlock()
	l.signal()
	return id
}

// RemoveTimer cancels a registration. Unknown ids are ignored.
func (l *Loop) RemoveTimer(id TimerID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.timers[id]; !ok {
		return
	}
	delete(l.timers, id)
	for i, other := range l.order {
		if other == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

// Timers returns the number of active registrations.
func (l *Loop) Timers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.timers)
}

// Post queues fn to run on the main thread. Safe from any goroutine.
func (l *Loop) Post(fn func(Main)) {
	l.mu.Lock()
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()
	l.signal()
}

// Poll runs queued tasks and then every timer due at now, in registration
// order. Run calls it repeatedly; it must only be called from the goroutine
// that owns the loop.
func (l *Loop) Poll(now time.Time) {
	m := Main{loop: l}

	l.mu.Lock()
	tasks := l.tasks
	l.tasks = nil
	l.mu.Unlock()
	for _, fn := range tasks {
		fn(m)
	}

	l.mu.Lock()
	due := make([]TimerID, 0, len(l.order))
	for _, id := range l.order {
		if t := l.timers[id]; !now.Before(t.next) {
			due = append(due, id)
		}
	}
	l.mu.Unlock()

	for _, id := range due {
		l.mu.Lock()
		t, ok := l.timers[id]
		if ok {
			// Skip missed periods instead of firing a burst.
			for !now.Before(t.next) {
				t.next = t.next.Add(t.period)
			}
		}
		l.mu.Unlock()
		// A callback earlier in this pass may have removed it.
		if ok {
			t.fn(m)
		}
	}
}

// Run drives the loop until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return ErrRunning
	}
	l.running = true
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	for {
		l.Poll(l.clock())

		wait := l.untilNext(l.clock())
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-l.wake:
			t.Stop()
		case <-t.C:
		}
	}
}

func (l *Loop) untilNext(now time.Time) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.tasks) > 0 {
		return 0
	}
	wait := time.Second
	for _, t := range l.timers {
		if d := t.next.Sub(now); d < wait {
			wait = d
		}
	}
	if wait < 0 {
		wait = 0
	}
	return wait
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

package tracking

import (
	"sync"

	hook "github.com/robotn/gohook"
)

// EventSource delivers raw hook events to subscribers on a background
// goroutine. Once the returned unsubscribe func returns, the handler is
// never invoked again.
type EventSource interface {
	Subscribe(fn func(hook.Event)) (unsubscribe func())
}

// GlobalHook shares gohook's process-wide hook between listeners. The hook
// is started with the first subscriber and ended with the last.
type GlobalHook struct {
	// runMu serialises starting and ending the underlying hook.
	runMu sync.Mutex

	// mu guards subs and gen; dispatch holds it for reading while handlers
	// run.
	mu   sync.RWMutex
	subs map[int]func(hook.Event)
	next int
	// gen identifies the current run of the hook. Events pumped by an
	// earlier run are dropped.
	gen uint64

	start func() chan hook.Event
	end   func()
}

// NewGlobalHook returns a source backed by github.com/robotn/gohook.
func NewGlobalHook() *GlobalHook {
	return newGlobalHook(hook.Start, hook.End)
}

func newGlobalHook(start func() chan hook.Event, end func()) *GlobalHook {
	return &GlobalHook{
		subs:  make(map[int]func(hook.Event)),
		start: start,
		end:   end,
	}
}

// Subscribe registers fn and starts the hook if it is not running.
func (h *GlobalHook) Subscribe(fn func(hook.Event)) func() {
	h.runMu.Lock()
	defer h.runMu.Unlock()

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = fn
	first := len(h.subs) == 1
	if first {
		h.gen++
	}
	gen := h.gen
	h.mu.Unlock()

	if first {
		go h.pump(gen, h.start())
	}

	var once sync.Once
	return func() {
		once.Do(func() { h.unsubscribe(id) })
	}
}

func (h *GlobalHook) unsubscribe(id int) {
	h.runMu.Lock()
	defer h.runMu.Unlock()

	h.mu.Lock()
	if _, ok := h.subs[id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.subs, id)
	last := len(h.subs) == 0
	if last {
		h.gen++
	}
	h.mu.Unlock()

	if last {
		h.end()
	}
}

// Running reports whether any subscriber is attached.
func (h *GlobalHook) Running() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs) > 0
}

func (h *GlobalHook) pump(gen uint64, events chan hook.Event) {
	for ev := range events {
		h.dispatch(gen, ev)
	}
}

func (h *GlobalHook) dispatch(gen uint64, ev hook.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if gen != h.gen {
		return
	}
	for _, fn := range h.subs {
		fn(ev)
	}
}

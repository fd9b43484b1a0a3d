// Package output delivers formatted mouse events to named sinks.
package output

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"
)

// SinkType is the kind of visual element a sink is.
type SinkType string

const (
	// BrowserSource receives {eventName, jsonString} and re-dispatches it
	// inside an overlay page.
	BrowserSource SinkType = "browser_source"
	// TextSource receives {text}.
	TextSource SinkType = "text_source"
)

// Known reports whether t is a supported sink type.
func (t SinkType) Known() bool {
	return t == BrowserSource || t == TextSource
}

// Settings is the structured update a sink receives.
type Settings map[string]string

// Sink is a named visual element owned by the host.
type Sink interface {
	Name() string
	Type() SinkType
	Update(settings Settings) error
	Close() error
}

// SinkInfo describes a registered sink.
type SinkInfo struct {
	Name string   `json:"name"`
	Type SinkType `json:"type"`
}

// ErrSinkExists is returned when registering a duplicate name.
var ErrSinkExists = errors.New("sink already registered")

type entry struct {
	sink    Sink
	refs    int
	removed bool
}

// Registry resolves sinks by name. Acquired sinks stay open until released,
// even if removed in the meantime.
type Registry struct {
	mu    sync.Mutex
	sinks map[string]*entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sinks: make(map[string]*entry)}
}

// Register adds a sink under its name.
func (r *Registry) Register(s Sink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if name == "" {
		return errors.New("sink name must not be empty")
	}
	if _, ok := r.sinks[name]; ok {
		return fmt.Errorf("register %q: %w", name, ErrSinkExists)
	}
	r.sinks[name] = &entry{sink: s}
	return nil
}

// Remove unregisters a sink. It is closed once no handle is outstanding.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	e, ok := r.sinks[name]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	delete(r.sinks, name)
	e.removed = true
	closeNow := e.refs == 0
	r.mu.Unlock()

	if closeNow {
		return e.sink.Close()
	}
	return nil
}

// Acquire resolves name and returns the sink with a release func that must
// be called when done.
func (r *Registry) Acquire(name string) (Sink, func(), bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sinks[name]
	if !ok {
		return nil, nil, false
	}
	e.refs++

	var once sync.Once
	release := func() {
		once.Do(func() { r.release(e) })
	}
	return e.sink, release, true
}

func (r *Registry) release(e *entry) {
	r.mu.Lock()
	e.refs--
	closeNow := e.removed && e.refs == 0
	r.mu.Unlock()

	if closeNow {
		_ = e.sink.Close()
	}
}

// Enumerate lists sinks of the given type sorted by name. An empty type
// lists every sink.
func (r *Registry) Enumerate(typ SinkType) []SinkInfo {
	r.mu.Lock()
	entries := lo.Values(r.sinks)
	r.mu.Unlock()

	matching := lo.Filter(entries, func(e *entry, _ int) bool {
		return typ == "" || e.sink.Type() == typ
	})
	infos := lo.Map(matching, func(e *entry, _ int) SinkInfo {
		return SinkInfo{Name: e.sink.Name(), Type: e.sink.Type()}
	})
	slices.SortFunc(infos, func(a, b SinkInfo) int { return strings.Compare(a.Name, b.Name) })
	return infos
}

// Close removes and closes every sink.
func (r *Registry) Close() error {
	r.mu.Lock()
	names := lo.Keys(r.sinks)
	r.mu.Unlock()

	var errs []error
	for _, name := range names {
		if err := r.Remove(name); err != nil {
			errs = append(errs, fmt.Errorf("close %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

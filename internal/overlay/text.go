package overlay

import (
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/vedantwpatil/mouse-monitor/internal/output"
)

// TextSource holds the latest text pushed to it.
type TextSource struct {
	name string

	mu   sync.RWMutex
	text string
}

// NewTextSource returns an empty text source.
func NewTextSource(name string) *TextSource {
	return &TextSource{name: name}
}

func (t *TextSource) Name() string { return t.name }

func (t *TextSource) Type() output.SinkType { return output.TextSource }

// Update replaces the displayed text.
func (t *TextSource) Update(settings output.Settings) error {
	text, ok := settings["text"]
	if !ok {
		return errors.New("text source update requires text")
	}
	t.mu.Lock()
	t.text = text
	t.mu.Unlock()
	return nil
}

// Text returns the current text.
func (t *TextSource) Text() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.text
}

func (t *TextSource) Close() error { return nil }

// ServeHTTP writes the current text.
func (t *TextSource) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	io.WriteString(w, t.Text())
}

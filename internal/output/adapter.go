package output

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/vedantwpatil/mouse-monitor/internal/host"
)

// Adapter formats payloads for the sink they are addressed to. It is a
// main-thread capability: every call requires a host.Main.
type Adapter struct {
	registry *Registry
	logger   *slog.Logger
}

// NewAdapter returns an adapter resolving sinks from registry.
func NewAdapter(registry *Registry, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{registry: registry, logger: logger}
}

// Send delivers p to the named sink. A missing sink is skipped silently and
// a failing sink is only logged, so callers never abort on delivery.
func (a *Adapter) Send(m host.Main, sinkName string, p Payload) {
	if !m.Valid() {
		a.logger.Error("sink update outside the main thread", "sink", sinkName, "kind", p.Kind())
		return
	}

	sink, release, ok := a.registry.Acquire(sinkName)
	if !ok {
		return
	}
	defer release()

	settings, err := Format(sink.Type(), p)
	if err != nil {
		a.logger.Debug("format update", "sink", sinkName, "kind", p.Kind(), "error", err)
		return
	}
	if err := sink.Update(settings); err != nil {
		a.logger.Debug("update sink", "sink", sinkName, "kind", p.Kind(), "error", err)
	}
}

// Format renders p into the structured update expected by a sink type.
func Format(typ SinkType, p Payload) (Settings, error) {
	switch typ {
	case BrowserSource:
		data, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", p.Kind(), err)
		}
		return Settings{
			"eventName":  p.Kind().EventName(),
			"jsonString": string(data),
		}, nil
	case TextSource:
		return Settings{"text": p.Text()}, nil
	default:
		return nil, fmt.Errorf("unsupported sink type %q", typ)
	}
}

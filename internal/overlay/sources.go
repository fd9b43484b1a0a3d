package overlay

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/vedantwpatil/mouse-monitor/internal/output"
)

// SourceSpec names a sink the server should host.
type SourceSpec struct {
	Name string
	Type output.SinkType
}

// Sync makes registry hold exactly the sources in want. Sinks whose type
// changed are replaced; the rest are left untouched so connected clients
// survive a reload.
func Sync(registry *output.Registry, want []SourceSpec, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	have := make(map[string]output.SinkType)
	for _, info := range registry.Enumerate("") {
		have[info.Name] = info.Type
	}
	wanted := make(map[string]bool, len(want))
	for _, spec := range want {
		wanted[spec.Name] = true
	}

	var errs []error
	for name, typ := range have {
		keep := wanted[name]
		for _, spec := range want {
			if spec.Name == name && spec.Type != typ {
				keep = false
			}
		}
		if keep {
			continue
		}
		if err := registry.Remove(name); err != nil {
			errs = append(errs, fmt.Errorf("remove %q: %w", name, err))
		}
		delete(have, name)
		logger.Debug("overlay source removed", "name", name, "type", typ)
	}

	for _, spec := range want {
		if _, ok := have[spec.Name]; ok {
			continue
		}
		sink, err := New(spec.Name, spec.Type, logger)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := registry.Register(sink); err != nil {
			errs = append(errs, err)
			continue
		}
		logger.Debug("overlay source added", "name", spec.Name, "type", spec.Type)
	}
	return errors.Join(errs...)
}

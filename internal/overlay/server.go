package overlay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/vedantwpatil/mouse-monitor/internal/output"
)

// New builds a sink of the given type.
func New(name string, typ output.SinkType, logger *slog.Logger) (output.Sink, error) {
	switch typ {
	case output.BrowserSource:
		return NewBrowserSource(name, logger), nil
	case output.TextSource:
		return NewTextSource(name), nil
	default:
		return nil, fmt.Errorf("unsupported source type %q", typ)
	}
}

var pageTemplate = template.Must(template.New("overlay").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Name}}</title></head>
<body>
<script>
(function connect() {
  const proto = location.protocol === "https:" ? "wss://" : "ws://";
  const ws = new WebSocket(proto + location.host + {{.WSPath}});
  ws.onmessage = (msg) => {
    const ev = JSON.parse(msg.data);
    window.dispatchEvent(new CustomEvent(ev.eventName, { detail: JSON.parse(ev.jsonString) }));
  };
  ws.onclose = () => setTimeout(connect, 1000);
})();
</script>
</body>
</html>
`))

// Server exposes registered sinks over HTTP.
type Server struct {
	registry *output.Registry
	logger   *slog.Logger
	http     *http.Server
}

// NewServer returns a server resolving sinks from registry.
func NewServer(registry *output.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{registry: registry, logger: logger}
	s.http = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the routes:
//
//	GET /sources              sink enumeration
//	GET /sources/{name}       overlay page for a browser source
//	GET /sources/{name}/ws    browser source websocket
//	GET /sources/{name}/text  current text of a text source
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /sources", s.handleList)
	mux.HandleFunc("GET /sources/{name}", s.handlePage)
	mux.HandleFunc("GET /sources/{name}/ws", s.handleSink(output.BrowserSource))
	mux.HandleFunc("GET /sources/{name}/text", s.handleSink(output.TextSource))
	return mux
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	typ := output.SinkType(r.URL.Query().Get("type"))
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.registry.Enumerate(typ)); err != nil {
		s.logger.Debug("encode source list", "error", err)
	}
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	sink, release, ok := s.registry.Acquire(name)
	if !ok {
		http.NotFound(w, r)
		return
	}
	typ := sink.Type()
	release()
	if typ != output.BrowserSource {
		http.Error(w, "not a browser source", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := pageTemplate.Execute(w, struct {
		Name   string
		WSPath string
	}{
		Name:   name,
		WSPath: "/sources/" + name + "/ws",
	})
	if err != nil {
		s.logger.Debug("render overlay page", "source", name, "error", err)
	}
}

func (s *Server) handleSink(typ output.SinkType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sink, release, ok := s.registry.Acquire(r.PathValue("name"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		defer release()

		h, isHandler := sink.(http.Handler)
		if sink.Type() != typ || !isHandler {
			http.NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	}
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("overlay server listening", "addr", ln.Addr().String())
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve overlays: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for handlers to return.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

package overlay

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vedantwpatil/mouse-monitor/internal/output"
)

func newTestServer(t *testing.T, sinks ...output.Sink) (*httptest.Server, *output.Registry) {
	t.Helper()
	registry := output.NewRegistry()
	for _, s := range sinks {
		if err := registry.Register(s); err != nil {
			t.Fatalf("register %s: %v", s.Name(), err)
		}
	}
	srv := httptest.NewServer(NewServer(registry, nil).Handler())
	t.Cleanup(func() {
		registry.Close()
		srv.Close()
	})
	return srv, registry
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBrowserSourceDeliversToConnectedPage(t *testing.T) {
	browser := NewBrowserSource("clicks", nil)
	srv, _ := newTestServer(t, browser)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sources/clicks/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitFor(t, func() bool { return browser.Clients() == 1 })

	settings, err := output.Format(output.BrowserSource, output.ClickPayload{Button: "MB1", X: 1, Y: 2, Pressed: true})
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	if err := browser.Update(settings); err != nil {
		t.Fatalf("update: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg browserMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.EventName != "MouseClick" || msg.JSONString != `{"button":"MB1","x":1,"y":2,"pressed":true}` {
		t.Fatalf("unexpected message %+v", msg)
	}

	if err := browser.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if browser.Clients() != 0 {
		t.Fatalf("expected clients to be dropped on close")
	}
	if err := browser.Update(settings); err == nil {
		t.Fatalf("expected update on closed source to fail")
	}
}

func TestBrowserSourceRejectsMalformedUpdate(t *testing.T) {
	browser := NewBrowserSource("b", nil)
	if err := browser.Update(output.Settings{"text": "x"}); err == nil {
		t.Fatalf("expected error without eventName")
	}
}

func TestTextSourceServesLatestText(t *testing.T) {
	text := NewTextSource("label")
	srv, _ := newTestServer(t, text)

	if err := text.Update(output.Settings{"text": "12, 34"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := text.Update(output.Settings{"eventName": "x"}); err == nil {
		t.Fatalf("expected error without text")
	}

	resp, err := http.Get(srv.URL + "/sources/label/text")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "12, 34" {
		t.Fatalf("expected latest text, got %q", body)
	}
}

func TestServerRoutes(t *testing.T) {
	srv, _ := newTestServer(t, NewBrowserSource("overlay", nil), NewTextSource("label"))

	resp, err := http.Get(srv.URL + "/sources?type=browser_source")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var infos []output.SinkInfo
	if err := json.NewDecoder(resp.Body).Decode(&infos); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	resp.Body.Close()
	if len(infos) != 1 || infos[0].Name != "overlay" {
		t.Fatalf("unexpected list %+v", infos)
	}

	resp, err = http.Get(srv.URL + "/sources/overlay")
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	page, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(page), "CustomEvent") {
		t.Fatalf("expected overlay page, got %d", resp.StatusCode)
	}

	for _, path := range []string{"/sources/label", "/sources/missing", "/sources/overlay/text", "/sources/label/ws"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, resp.StatusCode)
		}
	}
}

func TestNewBuildsKnownTypes(t *testing.T) {
	if s, err := New("a", output.BrowserSource, nil); err != nil || s.Type() != output.BrowserSource {
		t.Fatalf("expected browser source, got %v %v", s, err)
	}
	if s, err := New("b", output.TextSource, nil); err != nil || s.Type() != output.TextSource {
		t.Fatalf("expected text source, got %v %v", s, err)
	}
	if _, err := New("c", "image_source", nil); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

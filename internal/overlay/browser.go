// Package overlay implements the sinks the monitor renders into: browser
// overlay pages fed over websockets and plain text sources.
package overlay

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vedantwpatil/mouse-monitor/internal/output"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
	sendQueue  = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Overlay pages are loaded by local streaming software from any origin.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// BrowserSource broadcasts updates to every overlay page connected to it.
type BrowserSource struct {
	name   string
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// browserMessage is what overlay pages receive per update.
type browserMessage struct {
	EventName  string `json:"eventName"`
	JSONString string `json:"jsonString"`
}

// NewBrowserSource returns a browser source with no connected pages.
func NewBrowserSource(name string, logger *slog.Logger) *BrowserSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &BrowserSource{
		name:    name,
		logger:  logger.With("sink", name),
		clients: make(map[*client]struct{}),
	}
}

func (b *BrowserSource) Name() string { return b.name }

func (b *BrowserSource) Type() output.SinkType { return output.BrowserSource }

// Update queues the event for every page without blocking. Pages that fall
// behind are disconnected.
func (b *BrowserSource) Update(settings output.Settings) error {
	eventName, ok := settings["eventName"]
	if !ok {
		return errors.New("browser source update requires eventName")
	}
	data, err := json.Marshal(browserMessage{EventName: eventName, JSONString: settings["jsonString"]})
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errors.New("browser source closed")
	}
	for c := range b.clients {
		select {
		case c.send <- data:
		default:
			b.logger.Warn("dropping slow overlay client", "remote", c.conn.RemoteAddr().String())
			b.dropLocked(c)
		}
	}
	return nil
}

// Clients returns the number of connected pages.
func (b *BrowserSource) Clients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Close disconnects every page.
func (b *BrowserSource) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for c := range b.clients {
		b.dropLocked(c)
	}
	return nil
}

func (b *BrowserSource) dropLocked(c *client) {
	if _, ok := b.clients[c]; !ok {
		return
	}
	delete(b.clients, c)
	close(c.send)
}

func (b *BrowserSource) drop(c *client) {
	b.mu.Lock()
	b.dropLocked(c)
	b.mu.Unlock()
}

// ServeHTTP upgrades an overlay page connection.
func (b *BrowserSource) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Debug("upgrade overlay connection", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendQueue)}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		conn.Close()
		return
	}
	b.clients[c] = struct{}{}
	total := len(b.clients)
	b.mu.Unlock()
	b.logger.Info("overlay connected", "remote", r.RemoteAddr, "clients", total)

	go b.writePump(c)
	go b.readPump(c)
}

// readPump only watches for the page going away.
func (b *BrowserSource) readPump(c *client) {
	defer func() {
		b.drop(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				b.logger.Debug("overlay read", "error", err)
			}
			return
		}
	}
}

func (b *BrowserSource) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

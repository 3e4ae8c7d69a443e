// Package wsbridge implements platform.NativeBridge on top of a browser tab.
//
// The Server serves a small page that opens a WebSocket back to it. Method
// calls from Go are forwarded to the page, which runs them against
// navigator.geolocation and answers with result frames; readings come back
// as event frames routed to platform.HandleEvent. This lets a terminal
// program use the geolocation of whatever browser has the page open.
//
// When a page goes away, or is replaced by a newer one, its in-flight calls
// fail with platform.ErrClosed and every announced stream receives an error
// with code platform.CodeDisconnected.
package wsbridge

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/go-drift/geolocation/pkg/errors"
	"github.com/go-drift/geolocation/pkg/platform"
)

const (
	// DefaultInvokeTimeout bounds how long a method call waits for the page.
	DefaultInvokeTimeout = 10 * time.Second

	pingInterval   = 30 * time.Second
	pongWait       = 60 * time.Second
	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024
)

//go:embed page.html
var page []byte

// Server is a platform.NativeBridge backed by the most recently connected page.
type Server struct {
	// InvokeTimeout overrides DefaultInvokeTimeout when non-zero.
	InvokeTimeout time.Duration

	upgrader websocket.Upgrader

	mu        sync.Mutex
	client    *client
	streams   map[string]bool
	connected chan struct{}

	nextCallID atomic.Int64
}

// NewServer creates a Server with no connected page.
func NewServer() *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The page is served from this same server.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		streams:   make(map[string]bool),
		connected: make(chan struct{}),
	}
}

// Handler serves the page at "/" and the WebSocket endpoint at "/ws".
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(page)
	})
	mux.HandleFunc("/ws", s.serveWS)
	return mux
}

// WaitConnected blocks until a page has connected or ctx is done.
func (s *Server) WaitConnected(ctx context.Context) error {
	select {
	case <-s.connected:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SessionID returns the id of the connected page, or "" if none.
func (s *Server) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return ""
	}
	return s.client.session
}

// InvokeMethod implements platform.NativeBridge.
func (s *Server) InvokeMethod(channel, method string, args []byte) ([]byte, error) {
	id := s.nextCallID.Add(1)
	reply := make(chan frame, 1)

	s.mu.Lock()
	c := s.client
	if c == nil {
		s.mu.Unlock()
		return nil, platform.ErrNotConnected
	}
	c.calls[id] = reply
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(c.calls, id)
		s.mu.Unlock()
	}()

	if err := c.sendFrame(frame{Type: frameInvoke, ID: id, Channel: channel, Method: method, Args: args}); err != nil {
		return nil, err
	}

	timeout := s.InvokeTimeout
	if timeout == 0 {
		timeout = DefaultInvokeTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case f, ok := <-reply:
		if !ok {
			return nil, platform.ErrClosed
		}
		if f.Error != nil {
			return nil, f.Error
		}
		return f.Result, nil
	case <-timer.C:
		return nil, fmt.Errorf("%s.%s: %w", channel, method, platform.ErrTimeout)
	}
}

// StartEventStream implements platform.NativeBridge. Streams are remembered
// and announced again to every page that connects later.
func (s *Server) StartEventStream(channel string) error {
	s.mu.Lock()
	s.streams[channel] = true
	c := s.client
	s.mu.Unlock()
	if c == nil {
		return nil
	}
	return c.sendFrame(frame{Type: frameListen, Channel: channel})
}

// StopEventStream implements platform.NativeBridge.
func (s *Server) StopEventStream(channel string) error {
	s.mu.Lock()
	delete(s.streams, channel)
	c := s.client
	s.mu.Unlock()
	if c == nil {
		return nil
	}
	return c.sendFrame(frame{Type: frameCancel, Channel: channel})
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		errors.Report(&errors.GeoError{Op: "wsbridge.upgrade", Kind: errors.KindPlatform, Err: err})
		return
	}

	c := &client{
		session: uuid.NewString(),
		conn:    conn,
		send:    make(chan []byte, 256),
		events:  make(chan frame, 256),
		calls:   make(map[int64]chan frame),
		done:    make(chan struct{}),
	}

	s.mu.Lock()
	previous := s.client
	s.mu.Unlock()
	if previous != nil {
		s.dropClient(previous)
	}

	s.mu.Lock()
	s.client = c
	streams := make([]string, 0, len(s.streams))
	for name := range s.streams {
		streams = append(streams, name)
	}
	s.mu.Unlock()

	go c.writePump()
	go c.eventPump()
	_ = c.sendFrame(frame{Type: frameHello, Session: c.session})
	for _, name := range streams {
		_ = c.sendFrame(frame{Type: frameListen, Channel: name})
	}

	s.mu.Lock()
	select {
	case <-s.connected:
	default:
		close(s.connected)
	}
	s.mu.Unlock()

	s.readPump(c)
}

func (s *Server) readPump(c *client) {
	defer s.dropClient(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				errors.Report(&errors.GeoError{Op: "wsbridge.read", Kind: errors.KindPlatform, Err: err})
			}
			return
		}

		var f frame
		if err := json.Unmarshal(message, &f); err != nil {
			errors.Report(&errors.GeoError{Op: "wsbridge.read", Kind: errors.KindParsing, Err: err})
			continue
		}
		s.route(c, f)
	}
}

// dropClient closes c, fails its in-flight calls and tells every stream
// that the page is gone. Only the first call for a client has any effect.
func (s *Server) dropClient(c *client) {
	s.mu.Lock()
	if c.dropped {
		s.mu.Unlock()
		return
	}
	c.dropped = true
	for id, reply := range c.calls {
		close(reply)
		delete(c.calls, id)
	}
	if s.client == c {
		s.client = nil
	}
	streams := make([]string, 0, len(s.streams))
	for name := range s.streams {
		streams = append(streams, name)
	}
	s.mu.Unlock()

	c.close()
	msg := fmt.Sprintf("page %s disconnected", c.session)
	for _, name := range streams {
		_ = platform.HandleEventError(name, platform.CodeDisconnected, msg)
	}
}

func (s *Server) route(c *client, f frame) {
	switch f.Type {
	case frameResult:
		s.mu.Lock()
		reply := c.calls[f.ID]
		s.mu.Unlock()
		if reply != nil {
			select {
			case reply <- f:
			default:
			}
		}
	case frameEvent, frameEventError, frameEventDone:
		// Events are handled off the read loop so a callback that calls
		// back into the bridge does not wait on its own reader.
		select {
		case c.events <- f:
		case <-c.done:
		}
	default:
		errors.Report(&errors.GeoError{
			Op:   "wsbridge.route",
			Kind: errors.KindParsing,
			Err:  fmt.Errorf("unknown frame type %q", f.Type),
		})
	}
}

func (c *client) eventPump() {
	for {
		select {
		case f := <-c.events:
			handleEvent(f)
		case <-c.done:
			return
		}
	}
}

func handleEvent(f frame) {
	switch f.Type {
	case frameEvent:
		_ = platform.HandleEvent(f.Channel, f.Data)
	case frameEventError:
		_ = platform.HandleEventError(f.Channel, f.Code, f.Message)
	case frameEventDone:
		_ = platform.HandleEventDone(f.Channel)
	}
}

// client is one connected page.
type client struct {
	session string
	conn    *websocket.Conn
	send    chan []byte
	events  chan frame

	// guarded by Server.mu
	calls   map[int64]chan frame
	dropped bool

	closeOnce sync.Once
	done      chan struct{}
}

func (c *client) sendFrame(f frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return platform.ErrClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return platform.ErrClosed
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"go-harmony/debug"
)

// WebSocketServer accepts a single game connection on WebSocketPath. Each
// text message is one state document.
type WebSocketServer struct {
	ln       net.Listener
	srv      *http.Server
	upgrader websocket.Upgrader
	conns    chan *websocket.Conn
	errc     chan error
	taken    atomic.Bool
}

// ListenWebSocket starts serving on addr.
func ListenWebSocket(addr string) (*WebSocketServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("bridge: listen %s: %w", addr, err)
	}
	s := &WebSocketServer{
		ln:    ln,
		conns: make(chan *websocket.Conn, 1),
		errc:  make(chan error, 1),
		upgrader: websocket.Upgrader{
			ReadBufferSize: ReadChunk,
			CheckOrigin:    func(r *http.Request) bool { return true },
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc(WebSocketPath, s.handle)
	s.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case s.errc <- err:
			default:
			}
		}
	}()
	return s, nil
}

func (s *WebSocketServer) handle(w http.ResponseWriter, r *http.Request) {
	if s.taken.Swap(true) {
		http.Error(w, "a game is already connected", http.StatusConflict)
		return
	}
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.taken.Store(false)
		debug.For("bridge").Warn("websocket upgrade failed", "err", err)
		return
	}
	s.conns <- ws
}

// Addr is the bound address.
func (s *WebSocketServer) Addr() net.Addr {
	return s.ln.Addr()
}

// Accept waits for the game to connect.
func (s *WebSocketServer) Accept(ctx context.Context) (Source, error) {
	debug.For("bridge").Info("waiting for game", "url", "ws://"+s.ln.Addr().String()+WebSocketPath)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-s.errc:
		return nil, fmt.Errorf("bridge: serve: %w", err)
	case ws := <-s.conns:
		debug.For("bridge").Info("game connected", "remote", ws.RemoteAddr().String())
		return newWSSource(ws, IdleTimeout), nil
	}
}

// Close stops the server. An accepted connection stays open until its
// source is closed.
func (s *WebSocketServer) Close() error {
	return s.srv.Close()
}

type wsSource struct {
	ws     *websocket.Conn
	idle   time.Duration
	msgs   chan []byte
	errc   chan error
	done   chan struct{}
	once   sync.Once
	failed error // set once the connection can no longer be read
}

// errClosedOversize ends a session whose game sent a message over the
// limit. The connection is closed with 1009 by then.
var errClosedOversize = errors.New("bridge: websocket closed after oversized message")

func newWSSource(ws *websocket.Conn, idle time.Duration) *wsSource {
	ws.SetReadLimit(MaxBuffer)
	s := &wsSource{
		ws:   ws,
		idle: idle,
		msgs: make(chan []byte),
		errc: make(chan error, 1),
		done: make(chan struct{}),
	}
	go s.readLoop()
	return s
}

// readLoop owns the connection's reads. A read timeout would break the
// connection, so idleness is measured in Next instead.
func (s *wsSource) readLoop() {
	for {
		typ, data, err := s.ws.ReadMessage()
		if err != nil {
			s.errc <- err
			return
		}
		if typ != websocket.TextMessage {
			continue
		}
		select {
		case s.msgs <- data:
		case <-s.done:
			return
		}
	}
}

func (s *wsSource) Next() ([]byte, error) {
	if s.failed != nil {
		return nil, s.failed
	}
	timer := time.NewTimer(s.idle)
	defer timer.Stop()
	select {
	case data := <-s.msgs:
		return bytes.TrimRight(data, "\r\n"), nil
	case err := <-s.errc:
		if errors.Is(err, websocket.ErrReadLimit) {
			debug.For("bridge").Warn("dropping oversized message", "limit", MaxBuffer)
			s.failed = errClosedOversize
			return nil, ErrOversize
		}
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, io.EOF
		}
		return nil, err
	case <-timer.C:
		return nil, ErrIdle
	}
}

func (s *wsSource) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.ws.Close()
	})
	return err
}

package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"go-harmony/debug"
)

// Listener accepts a single game connection.
type Listener struct {
	ln net.Listener
}

// Listen binds addr. An empty addr uses DefaultAddr.
func Listen(addr string) (*Listener, error) {
	if addr == "" {
		addr = DefaultAddr
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("bridge: listen %s: %w", addr, err)
	}
	return &Listener{ln: ln}, nil
}

// Addr is the bound address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Accept waits for the game to connect, then stops listening.
func (l *Listener) Accept(ctx context.Context) (Source, error) {
	stop := context.AfterFunc(ctx, func() { l.ln.Close() })
	defer stop()

	debug.For("bridge").Info("waiting for game", "addr", l.ln.Addr().String())
	conn, err := l.ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("bridge: accept: %w", err)
	}
	l.ln.Close()
	debug.For("bridge").Info("game connected", "remote", conn.RemoteAddr().String())
	return NewLineSource(conn), nil
}

// Close stops listening.
func (l *Listener) Close() error {
	return l.ln.Close()
}

// deadlineConn is the part of net.Conn a LineSource needs.
type deadlineConn interface {
	Read(p []byte) (int, error)
	SetReadDeadline(t time.Time) error
	Close() error
}

// LineSource frames newline-delimited payloads from a stream.
type LineSource struct {
	conn  deadlineConn
	idle  time.Duration
	chunk []byte
	buf   []byte
}

// NewLineSource reads conn with the default idle timeout.
func NewLineSource(conn deadlineConn) *LineSource {
	return &LineSource{
		conn:  conn,
		idle:  IdleTimeout,
		chunk: make([]byte, ReadChunk),
	}
}

// Next returns the next line without its newline. Buffered lines are
// returned before reading again.
func (s *LineSource) Next() ([]byte, error) {
	for {
		if i := bytes.IndexByte(s.buf, '\n'); i >= 0 {
			line := bytes.Clone(s.buf[:i])
			s.buf = s.buf[i+1:]
			return bytes.TrimSuffix(line, []byte{'\r'}), nil
		}

		if err := s.conn.SetReadDeadline(time.Now().Add(s.idle)); err != nil {
			return nil, err
		}
		n, err := s.conn.Read(s.chunk)
		if n > 0 {
			s.buf = append(s.buf, s.chunk[:n]...)
			if len(s.buf) > MaxBuffer {
				debug.For("bridge").Warn("dropping oversized buffer", "bytes", len(s.buf), "limit", MaxBuffer)
				s.buf = nil
				return nil, ErrOversize
			}
		}
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				if n > 0 {
					continue
				}
				return nil, ErrIdle
			}
			return nil, err
		}
	}
}

// Close closes the connection.
func (s *LineSource) Close() error {
	return s.conn.Close()
}

package bridge

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"go-harmony/sequencer"
	"go-harmony/theory"
)

func TestParseGameState(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		health float64
		foes   []Enemy
		env    Environment
	}{
		{"empty", `{}`, 1, nil, Environment{}},
		{"health", `{"playerHealth":0.25}`, 0.25, nil, Environment{}},
		{"wrong type", `{"playerHealth":"low"}`, 1, nil, Environment{}},
		{"clamped high", `{"playerHealth":3}`, 1, nil, Environment{}},
		{"clamped low", `{"playerHealth":-2}`, 0, nil, Environment{}},
		{
			"enemies",
			`{"enemies":[{"type":"zombie","distance":4},{"type":"","distance":1},{"distance":2},"bat",{"type":"bat","distance":-3},{"type":"wolf","distance":"far"}]}`,
			1,
			[]Enemy{{"zombie", 4}, {"bat", 0}, {"wolf", 0}},
			Environment{},
		},
		{"environment string", `{"environment":"cave"}`, 1, nil, Environment{Type: "cave"}},
		{
			"environment object",
			`{"environment":{"type":"forest","tags":["night","",3,"rain"]}}`,
			1, nil,
			Environment{Type: "forest", Tags: []string{"night", "rain"}},
		},
		{"environment wrong type", `{"environment":7}`, 1, nil, Environment{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gs, err := ParseGameState([]byte(tt.in))
			if err != nil {
				t.Fatalf("ParseGameState: %v", err)
			}
			if gs.PlayerHealth != tt.health {
				t.Errorf("health = %v, want %v", gs.PlayerHealth, tt.health)
			}
			if len(gs.Enemies) != len(tt.foes) {
				t.Fatalf("enemies = %+v, want %+v", gs.Enemies, tt.foes)
			}
			for i := range tt.foes {
				if gs.Enemies[i] != tt.foes[i] {
					t.Errorf("enemy %d = %+v, want %+v", i, gs.Enemies[i], tt.foes[i])
				}
			}
			if gs.Environment.Type != tt.env.Type || strings.Join(gs.Environment.Tags, ",") != strings.Join(tt.env.Tags, ",") {
				t.Errorf("environment = %+v, want %+v", gs.Environment, tt.env)
			}
		})
	}
}

func TestParseGameStateErrors(t *testing.T) {
	for _, in := range []string{``, `[1,2]`, `null`, `{"playerHealth":`} {
		if _, err := ParseGameState([]byte(in)); err == nil {
			t.Errorf("ParseGameState(%q) succeeded", in)
		}
	}
}

func TestParseGameStateCapsEnemies(t *testing.T) {
	var b strings.Builder
	b.WriteString(`{"enemies":[`)
	for i := 0; i < 300; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(`{"type":"rat","distance":1}`)
	}
	b.WriteString(`]}`)
	gs, err := ParseGameState([]byte(b.String()))
	if err != nil {
		t.Fatal(err)
	}
	if len(gs.Enemies) != MaxEnemies {
		t.Fatalf("got %d enemies, want %d", len(gs.Enemies), MaxEnemies)
	}
}

func TestLineSourceFraming(t *testing.T) {
	client, server := net.Pipe()
	src := NewLineSource(server)
	src.idle = 50 * time.Millisecond
	defer src.Close()

	go func() {
		client.Write([]byte("{\"a\":1}\n{\"b\""))
		client.Write([]byte(":2}\r\n"))
	}()

	for _, want := range []string{`{"a":1}`, `{"b":2}`} {
		got, err := src.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if string(got) != want {
			t.Fatalf("Next = %q, want %q", got, want)
		}
	}

	if _, err := src.Next(); !errors.Is(err, ErrIdle) {
		t.Fatalf("err = %v, want ErrIdle", err)
	}

	client.Close()
	if _, err := src.Next(); err == nil || errors.Is(err, ErrIdle) {
		t.Fatalf("err = %v, want a connection error", err)
	}
}

func TestLineSourceDropsOversize(t *testing.T) {
	client, server := net.Pipe()
	src := NewLineSource(server)
	src.idle = time.Second
	defer src.Close()

	go func() {
		client.Write(bytes.Repeat([]byte{'x'}, MaxBuffer+ReadChunk))
		client.Write([]byte("\n{\"ok\":true}\n"))
	}()

	sawOversize := false
	for i := 0; i < 4; i++ {
		got, err := src.Next()
		if errors.Is(err, ErrOversize) {
			sawOversize = true
			continue
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if string(got) == `{"ok":true}` {
			if !sawOversize {
				t.Fatal("oversized buffer was not reported")
			}
			return
		}
		if len(got) > MaxBuffer {
			t.Fatalf("returned a %d byte payload", len(got))
		}
	}
	t.Fatal("payload after the oversized one never arrived")
}

type scripted struct {
	steps  []step
	closed bool
}

type step struct {
	payload string
	err     error
}

func (s *scripted) Next() ([]byte, error) {
	if len(s.steps) == 0 {
		return nil, io.EOF
	}
	st := s.steps[0]
	s.steps = s.steps[1:]
	return []byte(st.payload), st.err
}

func (s *scripted) Close() error {
	s.closed = true
	return nil
}

type recordingController struct {
	mu    sync.Mutex
	calls []string
}

func (c *recordingController) record(s string) {
	c.mu.Lock()
	c.calls = append(c.calls, s)
	c.mu.Unlock()
}

func (c *recordingController) Pause()  { c.record("pause") }
func (c *recordingController) Resume() { c.record("resume") }
func (c *recordingController) SetConnected(v bool) {
	if v {
		c.record("connected")
	} else {
		c.record("disconnected")
	}
}

func healthScale(gs GameState) sequencer.MusicState {
	st := sequencer.DefaultMusicState()
	st.Intensity = 1 - gs.PlayerHealth
	if gs.Environment.Type == "cave" {
		st.Scale = theory.Phrygian
	}
	return st
}

func TestReceiverDrivesScheduler(t *testing.T) {
	src := &scripted{steps: []step{
		{payload: `{"playerHealth":0.5}`},
		{err: ErrIdle},
		{err: ErrIdle},
		{payload: `not json`},
		{err: ErrOversize},
		{payload: `{"environment":"cave"}`},
	}}
	ctl := &recordingController{}
	feed := sequencer.NewStateFeed()
	r := NewReceiver(src, EvaluatorFunc(healthScale), feed, ctl)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := strings.Join(ctl.calls, ","); got != "pause,resume,disconnected" {
		t.Fatalf("calls = %s", got)
	}
	if r.Updates() != 2 || r.Dropped() != 2 {
		t.Fatalf("updates=%d dropped=%d", r.Updates(), r.Dropped())
	}
	st, ok := feed.Latest()
	if !ok || st.Scale != theory.Phrygian || st.Intensity != 0 {
		t.Fatalf("latest = %+v", st)
	}
	if !src.closed {
		t.Fatal("source not closed")
	}
}

func TestReceiverStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &scripted{steps: []step{{payload: `{}`}}}
	r := NewReceiver(src, EvaluatorFunc(healthScale), sequencer.NewStateFeed(), &recordingController{})
	if err := r.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestListenerAcceptsOneGame(t *testing.T) {
	l, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	addr := l.Addr().String()

	go func() {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return
		}
		conn.Write([]byte(`{"playerHealth":0.1}` + "\n"))
		time.Sleep(time.Second)
		conn.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	src, err := l.Accept(ctx)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	defer src.Close()

	got, err := src.Next()
	if err != nil || string(got) != `{"playerHealth":0.1}` {
		t.Fatalf("Next = %q, %v", got, err)
	}
	if conn, err := net.Dial("tcp", addr); err == nil {
		conn.Close()
		t.Fatal("second game was accepted")
	}
}

func TestListenerAcceptCancelled(t *testing.T) {
	l, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Accept(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
}

func TestWebSocketServer(t *testing.T) {
	s, err := ListenWebSocket("127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	url := "ws://" + s.Addr().String() + WebSocketPath

	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer ws.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	src, err := s.Accept(ctx)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	defer src.Close()

	if _, _, err := websocket.DefaultDialer.Dial(url, nil); err == nil {
		t.Fatal("second game was accepted")
	}

	if err := ws.WriteMessage(websocket.TextMessage, []byte(`{"environment":"cave"}`+"\n")); err != nil {
		t.Fatal(err)
	}
	got, err := src.Next()
	if err != nil || string(got) != `{"environment":"cave"}` {
		t.Fatalf("Next = %q, %v", got, err)
	}
	if _, err := src.Next(); !errors.Is(err, ErrIdle) {
		t.Fatalf("err = %v, want ErrIdle", err)
	}

	ws.Close()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, err := src.Next()
		if err != nil && !errors.Is(err, ErrIdle) {
			return
		}
	}
	t.Fatal("closed connection not reported")
}

func TestWebSocketDropsOversize(t *testing.T) {
	s, err := ListenWebSocket("127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws://"+s.Addr().String()+WebSocketPath, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer ws.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	src, err := s.Accept(ctx)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	defer src.Close()

	// the server stops reading at the frame header, so the write may block
	go ws.WriteMessage(websocket.TextMessage, bytes.Repeat([]byte{'x'}, MaxBuffer+1))

	deadline := time.Now().Add(2 * time.Second)
	for {
		_, err := src.Next()
		if errors.Is(err, ErrOversize) {
			break
		}
		if !errors.Is(err, ErrIdle) || time.Now().After(deadline) {
			t.Fatalf("err = %v, want ErrOversize", err)
		}
	}
	if _, err := src.Next(); err == nil || errors.Is(err, ErrIdle) || errors.Is(err, ErrOversize) {
		t.Fatalf("err = %v, want the session to end", err)
	}
}

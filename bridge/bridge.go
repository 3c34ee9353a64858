// Package bridge connects a running game to the music engine. The game
// streams newline-delimited JSON state over TCP (or WebSocket); the
// receiver turns each document into a music state for the scheduler and
// maps silence and disconnects onto pause and stop.
package bridge

import (
	"errors"
	"time"

	"go-harmony/sequencer"
)

// Defaults of the game transport.
const (
	DefaultAddr   = "127.0.0.1:5555"
	ReadChunk     = 4096
	IdleTimeout   = 150 * time.Millisecond
	MaxBuffer     = 256 << 10
	WebSocketPath = "/state"
)

var (
	// ErrIdle means nothing arrived within the idle timeout.
	ErrIdle = errors.New("bridge: idle")
	// ErrOversize means a payload grew past MaxBuffer and was dropped.
	ErrOversize = errors.New("bridge: payload too large")
)

// Source yields one payload per call. Any error other than ErrIdle and
// ErrOversize means the game is gone.
type Source interface {
	Next() ([]byte, error)
	Close() error
}

// Controller is what the receiver drives, usually a *sequencer.Scheduler.
type Controller interface {
	Pause()
	Resume()
	SetConnected(bool)
}

// Evaluator maps a game state onto a music state.
type Evaluator interface {
	Evaluate(GameState) sequencer.MusicState
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(GameState) sequencer.MusicState

func (f EvaluatorFunc) Evaluate(gs GameState) sequencer.MusicState {
	return f(gs)
}

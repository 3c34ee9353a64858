package bridge

import (
	"context"
	"errors"
	"io"
	"sync/atomic"

	"go-harmony/debug"
	"go-harmony/sequencer"
)

// Receiver reads game updates and drives the scheduler: silence pauses,
// the next update resumes, a lost connection stops it.
type Receiver struct {
	src  Source
	eval Evaluator
	feed *sequencer.StateFeed
	ctl  Controller

	paused  bool
	updates atomic.Int64
	dropped atomic.Int64
}

// NewReceiver wires a source to a scheduler.
func NewReceiver(src Source, eval Evaluator, feed *sequencer.StateFeed, ctl Controller) *Receiver {
	return &Receiver{src: src, eval: eval, feed: feed, ctl: ctl}
}

// Updates is the number of states published.
func (r *Receiver) Updates() int64 {
	return r.updates.Load()
}

// Dropped is the number of payloads that could not be used.
func (r *Receiver) Dropped() int64 {
	return r.dropped.Load()
}

// Run receives until the connection is lost or ctx is done. The source is
// closed on return. A lost connection is not an error.
func (r *Receiver) Run(ctx context.Context) error {
	defer r.src.Close()
	log := debug.For("bridge")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		payload, err := r.src.Next()
		switch {
		case errors.Is(err, ErrIdle):
			if !r.paused {
				r.paused = true
				r.ctl.Pause()
			}
			continue
		case errors.Is(err, ErrOversize):
			r.dropped.Add(1)
			continue
		case err != nil:
			if errors.Is(err, io.EOF) {
				log.Info("game disconnected")
			} else {
				log.Warn("game connection failed", "err", err)
			}
			r.ctl.SetConnected(false)
			return nil
		}

		if r.paused {
			r.paused = false
			r.ctl.Resume()
		}

		gs, err := ParseGameState(payload)
		if err != nil {
			r.dropped.Add(1)
			debug.LogEvery(32, "bridge", "bad payload: %v", err)
			continue
		}
		r.feed.Publish(r.eval.Evaluate(gs))
		r.updates.Add(1)
		debug.Log("bridge", "update: health=%.2f enemies=%d env=%q", gs.PlayerHealth, len(gs.Enemies), gs.Environment.Type)
	}
}

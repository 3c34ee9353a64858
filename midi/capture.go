package midi

import (
	"context"

	"go-harmony/melody"
)

// Capture turns live keyboard input into a training track. The first key
// press is tick zero. Not safe for concurrent use.
type Capture struct {
	ts      melody.TimeSignature
	started bool
	start   NoteEvent
	track   melody.Track
	open    map[uint8][]int
	last    int64
}

// NewCapture records at the given timing.
func NewCapture(ts melody.TimeSignature) *Capture {
	return &Capture{ts: ts, open: make(map[uint8][]int)}
}

func (c *Capture) tick(e NoteEvent) int64 {
	ms := melody.ToMillis(e.Time.Sub(c.start.Time))
	return int64(ms/c.ts.MsPerTick + 0.5)
}

// Add records one key press or release. Releases before the first press
// are ignored.
func (c *Capture) Add(e NoteEvent) {
	if !c.started {
		if !e.On() {
			return
		}
		c.started = true
		c.start = e
	}
	t := c.tick(e)
	c.last = max(c.last, t)
	if e.On() {
		c.track = append(c.track, melody.NotePair{
			Note:     melody.Note(e.Note),
			Velocity: e.Velocity,
			OnTick:   t,
			OffTick:  -1,
		})
		c.open[e.Note] = append(c.open[e.Note], len(c.track)-1)
		return
	}
	if q := c.open[e.Note]; len(q) > 0 {
		c.track[q[0]].OffTick = t
		c.open[e.Note] = q[1:]
	}
}

// Len is the number of notes captured.
func (c *Capture) Len() int {
	return len(c.track)
}

// Track returns the captured notes. Keys still held end at the last event.
func (c *Capture) Track() melody.Track {
	out := make(melody.Track, len(c.track))
	copy(out, c.track)
	for i := range out {
		if out[i].OffTick < 0 {
			out[i].OffTick = max(c.last, out[i].OnTick)
		}
	}
	return out
}

// Run adds events from ch until it closes or ctx is done.
func (c *Capture) Run(ctx context.Context, ch <-chan NoteEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			c.Add(e)
		}
	}
}

// WriteFile saves the capture as a Standard MIDI File.
func (c *Capture) WriteFile(path string) error {
	return melody.WriteFile(path, []melody.Track{c.Track()}, c.ts)
}

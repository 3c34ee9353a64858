package midi

import (
	"sort"
	"sync"
	"time"

	"go-harmony/melody"
)

// Recorder is a sink that keeps every command it receives with the time it
// arrived. It backs tests and the session capture of `harmony run`.
type Recorder struct {
	mu     sync.Mutex
	now    func() time.Time
	start  time.Time
	events []Event
}

// NewRecorder starts recording now. A nil now uses time.Now.
func NewRecorder(now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{now: now, start: now()}
}

func (r *Recorder) add(e Event) {
	r.mu.Lock()
	e.At = r.now().Sub(r.start)
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *Recorder) PlayNote(note, channel, velocity uint8) {
	r.add(Event{Type: NoteOn, Channel: channel, Note: note, Velocity: velocity})
}

func (r *Recorder) StopNote(note, channel uint8) {
	r.add(Event{Type: NoteOff, Channel: channel, Note: note})
}

func (r *Recorder) AllNotesOff() {
	r.add(Event{Type: CC, Note: CCAllNotesOff})
}

func (r *Recorder) ProgramChange(channel, program uint8) {
	r.add(Event{Type: ProgramChange, Channel: channel, Note: program})
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Reset drops recorded events and restarts the clock.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.start = r.now()
	r.mu.Unlock()
}

// Tracks links the recorded note-ons and note-offs into one track per
// channel, in channel order. Notes still sounding at an all-notes-off, or
// at the end, are closed there.
func (r *Recorder) Tracks(ts melody.TimeSignature) []melody.Track {
	events := r.Events()
	toTick := func(d time.Duration) int64 {
		return int64(melody.ToMillis(d)/ts.MsPerTick + 0.5)
	}

	type key struct{ ch, note uint8 }
	open := make(map[key][]int)
	byChannel := make(map[uint8]melody.Track)
	var end int64

	closeNote := func(k key, i int, tick int64) {
		tr := byChannel[k.ch]
		tr[i].OffTick = tick
	}
	for _, e := range events {
		tick := toTick(e.At)
		end = max(end, tick)
		switch {
		case e.Type == NoteOn && e.Velocity > 0:
			k := key{e.Channel, e.Note}
			byChannel[e.Channel] = append(byChannel[e.Channel], melody.NotePair{
				Channel:  e.Channel,
				Note:     melody.Note(e.Note),
				Velocity: e.Velocity,
				OnTick:   tick,
				OffTick:  -1,
			})
			open[k] = append(open[k], len(byChannel[e.Channel])-1)
		case e.Type == NoteOff || e.Type == NoteOn:
			k := key{e.Channel, e.Note}
			if q := open[k]; len(q) > 0 {
				closeNote(k, q[0], tick)
				open[k] = q[1:]
			}
		case e.Type == CC && e.Note == CCAllNotesOff:
			for k, q := range open {
				for _, i := range q {
					closeNote(k, i, tick)
				}
				delete(open, k)
			}
		}
	}
	for k, q := range open {
		for _, i := range q {
			closeNote(k, i, end)
		}
	}

	channels := make([]int, 0, len(byChannel))
	for ch := range byChannel {
		channels = append(channels, int(ch))
	}
	sort.Ints(channels)
	tracks := make([]melody.Track, 0, len(channels))
	for _, ch := range channels {
		tracks = append(tracks, byChannel[uint8(ch)])
	}
	return tracks
}

// WriteFile saves the recording as a Standard MIDI File.
func (r *Recorder) WriteFile(path string, ts melody.TimeSignature) error {
	return melody.WriteFile(path, r.Tracks(ts), ts)
}

package melody

import (
	"math"

	"go-harmony/theory"
)

// Builder accumulates events of a melody. A Builder owns its events until
// Build hands them to an immutable Melody.
type Builder struct {
	events []Event
}

// Append adds an event at the end.
func (b *Builder) Append(e Event) {
	b.events = append(b.events, e)
}

// Len is the number of events appended so far.
func (b *Builder) Len() int {
	return len(b.events)
}

// Build freezes the events and computes the derived fields.
func (b *Builder) Build() *Melody {
	m := &Melody{events: b.events}
	b.events = nil

	m.shortest = math.MaxFloat64
	notes := make([]int, 0, len(m.events))
	for _, e := range m.events {
		if e.Kind != Simple && e.Duration < m.shortest {
			m.shortest = e.Duration
		}
		if e.Note.Audible() {
			notes = append(notes, int(e.Note))
		}
	}
	if m.shortest == math.MaxFloat64 {
		m.shortest = 0
	}
	m.key = theory.DetectKey(notes)
	return m
}

// Melody is an ordered, read-only sequence of events with its detected key
// and shortest note length.
type Melody struct {
	events   []Event
	key      theory.KeyResult
	shortest float64
}

// New builds a melody from events.
func New(events ...Event) *Melody {
	b := &Builder{}
	for _, e := range events {
		b.Append(e)
	}
	return b.Build()
}

// FromFile extracts a melody of Fixed events from a MIDI file.
func FromFile(f *File) *Melody {
	b := &Builder{}
	ts := f.Timing
	Extract(f.Tracks, ts, func(n Note, start, dur float64) {
		b.Append(FixedEvent(n, ts.MTPAt(start), dur))
	})
	return b.Build()
}

// Len is the number of events.
func (m *Melody) Len() int {
	return len(m.events)
}

// At returns the i-th event.
func (m *Melody) At(i int) Event {
	return m.events[i]
}

// Events returns the events. Callers must not modify the slice.
func (m *Melody) Events() []Event {
	return m.events
}

// Notes returns the note of every event.
func (m *Melody) Notes() []Note {
	out := make([]Note, len(m.events))
	for i, e := range m.events {
		out[i] = e.Note
	}
	return out
}

// KeyRoot is the detected major key, 0 when none was found.
func (m *Melody) KeyRoot() int {
	return m.key.Best
}

// Key is the full key detection result.
func (m *Melody) Key() theory.KeyResult {
	return m.key
}

// ShortestNoteLength is the shortest timed event in ms.
func (m *Melody) ShortestNoteLength() float64 {
	return m.shortest
}

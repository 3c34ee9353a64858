// Package melody models melodies as chronological event streams and turns
// Standard MIDI Files into them.
package melody

import (
	"fmt"
	"time"

	"go-harmony/theory"
)

// Note is a MIDI pitch 0..127 or one of the sentinels Start and Pause.
type Note int

const (
	// Start fills a generation context before enough notes exist.
	Start Note = -1
	// Pause is a rest.
	Pause Note = -2
)

// Audible reports whether the note actually sounds.
func (n Note) Audible() bool {
	return theory.Audible(int(n))
}

func (n Note) String() string {
	switch n {
	case Start:
		return "START"
	case Pause:
		return "PAUSE"
	}
	return theory.NoteName(int(n), true)
}

// Kind tags the variant an Event holds.
type Kind uint8

const (
	Simple Kind = iota
	Fixed
	Scheduled
)

func (k Kind) String() string {
	switch k {
	case Simple:
		return "simple"
	case Fixed:
		return "fixed"
	case Scheduled:
		return "scheduled"
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// MTP is a measure-relative time point. Measures count from 1.
type MTP struct {
	Measure int
	Offset  float64 // ms from the measure start
}

// Event is a note or rest. Which timing fields are meaningful depends on
// Kind: Fixed uses MTP and Duration, Scheduled uses At and Duration.
// Two events are the same context symbol when their notes are equal.
type Event struct {
	Kind     Kind
	Note     Note
	MTP      MTP
	At       time.Time
	Duration float64 // ms
}

// SimpleEvent carries only a note.
func SimpleEvent(n Note) Event {
	return Event{Kind: Simple, Note: n}
}

// FixedEvent places a note inside a measure.
func FixedEvent(n Note, mtp MTP, durationMs float64) Event {
	return Event{Kind: Fixed, Note: n, MTP: mtp, Duration: durationMs}
}

// ScheduledEvent places a note at a wall-clock time.
func ScheduledEvent(n Note, at time.Time, durationMs float64) Event {
	return Event{Kind: Scheduled, Note: n, At: at, Duration: durationMs}
}

// SameNote reports context equality.
func (e Event) SameNote(o Event) bool {
	return e.Note == o.Note
}

func (e Event) String() string {
	switch e.Kind {
	case Fixed:
		return fmt.Sprintf("%s m%d+%.1fms (%.1fms)", e.Note, e.MTP.Measure, e.MTP.Offset, e.Duration)
	case Scheduled:
		return fmt.Sprintf("%s @%s (%.1fms)", e.Note, e.At.Format("15:04:05.000"), e.Duration)
	}
	return e.Note.String()
}

package sequencer

import (
	"fmt"
	"sort"
	"time"

	"go-harmony/melody"
)

// PlaybackEvent is a note-on or note-off due at an offset from the session
// anchor. A resume moves the anchor, never the events.
type PlaybackEvent struct {
	At       time.Duration
	Note     uint8
	Channel  uint8
	Velocity uint8
	On       bool
	Seq      uint64 // insertion order, breaks ties
}

func (e PlaybackEvent) String() string {
	kind := "off"
	if e.On {
		kind = "on"
	}
	return fmt.Sprintf("%v ch%d %s %d", e.At, e.Channel, kind, e.Note)
}

// queue collects the playback events of a measure.
type queue struct {
	events []PlaybackEvent
	seq    uint64
}

func (q *queue) push(at time.Duration, note int, inst Instrument, on bool) {
	q.seq++
	q.events = append(q.events, PlaybackEvent{
		At:       at,
		Note:     uint8(note),
		Channel:  inst.Channel,
		Velocity: inst.Velocity,
		On:       on,
		Seq:      q.seq,
	})
}

// note schedules an on/off pair. atMs and durMs are milliseconds from the
// anchor. Notes outside the MIDI range are dropped.
func (q *queue) note(note int, atMs, durMs float64, inst Instrument) {
	if note < 0 || note > 127 {
		return
	}
	at := melody.Millis(atMs)
	q.push(at, note, inst, true)
	q.push(at+melody.Millis(durMs), note, inst, false)
}

// take hands over the collected events and empties the queue.
func (q *queue) take() []PlaybackEvent {
	out := q.events
	q.events = nil
	return out
}

// splitDue separates events due by end from the ones that overflow into a
// later measure. Both keep their relative order.
func splitDue(events []PlaybackEvent, end time.Duration) (due, later []PlaybackEvent) {
	for _, e := range events {
		if e.At <= end {
			due = append(due, e)
		} else {
			later = append(later, e)
		}
	}
	return due, later
}

// sortEvents orders by time, then insertion.
func sortEvents(events []PlaybackEvent) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].At != events[j].At {
			return events[i].At < events[j].At
		}
		return events[i].Seq < events[j].Seq
	})
}

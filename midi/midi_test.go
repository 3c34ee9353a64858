package midi

import (
	"errors"
	"testing"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"go-harmony/melody"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(ms float64) { c.t = c.t.Add(melody.Millis(ms)) }

func TestSenderSinkTracksSoundingNotes(t *testing.T) {
	var sent []gomidi.Message
	s := NewSenderSink("test", func(m gomidi.Message) error {
		sent = append(sent, m)
		return nil
	})

	s.PlayNote(60, 0, 100)
	s.PlayNote(64, 1, 90)
	s.StopNote(60, 0)
	sent = nil

	s.AllNotesOff()
	// one note-off for the held note, then all-notes-off on 16 channels
	if len(sent) != 17 {
		t.Fatalf("sent %d messages, want 17", len(sent))
	}
	var ch, key, vel uint8
	if !sent[0].GetNoteOff(&ch, &key, &vel) || ch != 1 || key != 64 {
		t.Fatalf("first message = %v, want note off ch1 64", sent[0])
	}
	var cc, val uint8
	if !sent[16].GetControlChange(&ch, &cc, &val) || ch != 15 || cc != CCAllNotesOff {
		t.Fatalf("last message = %v", sent[16])
	}
}

func TestSenderSinkCountsErrors(t *testing.T) {
	s := NewSenderSink("broken", func(gomidi.Message) error { return errors.New("gone") })
	s.PlayNote(60, 0, 100)
	s.ProgramChange(0, 48)
	if s.Errors() != 2 {
		t.Fatalf("Errors = %d, want 2", s.Errors())
	}
}

func TestMultiFansOut(t *testing.T) {
	a, b := NewRecorder(nil), NewRecorder(nil)
	m := Multi(a, b, Discard)
	m.ProgramChange(2, 33)
	m.PlayNote(40, 2, 127)
	if len(a.Events()) != 2 || len(b.Events()) != 2 {
		t.Fatalf("recorded %d and %d events", len(a.Events()), len(b.Events()))
	}
}

func TestRecorderTracks(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	r := NewRecorder(clk.now)
	ts := melody.DefaultTimeSignature() // 480 ticks per 500 ms

	r.PlayNote(60, 0, 100)
	r.PlayNote(36, 9, 127)
	r.StopNote(36, 9)
	clk.advance(500)
	r.StopNote(60, 0)
	r.PlayNote(62, 0, 100)
	clk.advance(250)
	r.AllNotesOff()

	tracks := r.Tracks(ts)
	if len(tracks) != 2 {
		t.Fatalf("got %d tracks, want 2", len(tracks))
	}
	lead := tracks[0]
	if len(lead) != 2 {
		t.Fatalf("lead = %+v", lead)
	}
	if lead[0].OnTick != 0 || lead[0].OffTick != 480 {
		t.Errorf("first note = %+v", lead[0])
	}
	if lead[1].OnTick != 480 || lead[1].OffTick != 720 {
		t.Errorf("second note closed by all-notes-off = %+v", lead[1])
	}
	if drums := tracks[1]; len(drums) != 1 || drums[0].Channel != 9 || drums[0].OffTick != 0 {
		t.Errorf("drums = %+v", drums)
	}
}

func TestCapture(t *testing.T) {
	ts := melody.DefaultTimeSignature()
	c := NewCapture(ts)
	t0 := time.Unix(100, 0)
	at := func(ms float64) time.Time { return t0.Add(melody.Millis(ms)) }

	c.Add(NoteEvent{Note: 50, Velocity: 0, Time: at(-100)}) // stray release
	c.Add(NoteEvent{Note: 60, Velocity: 90, Time: at(0)})
	c.Add(NoteEvent{Note: 60, Velocity: 0, Time: at(500)})
	c.Add(NoteEvent{Note: 67, Velocity: 80, Time: at(1000)})
	c.Add(NoteEvent{Note: 64, Velocity: 0, Time: at(1250)}) // never pressed

	tr := c.Track()
	if len(tr) != 2 {
		t.Fatalf("track = %+v", tr)
	}
	if tr[0].OnTick != 0 || tr[0].OffTick != 480 {
		t.Errorf("note 0 = %+v", tr[0])
	}
	if tr[1].OnTick != 960 || tr[1].OffTick != 1200 {
		t.Errorf("held note = %+v, want closed at the last event", tr[1])
	}
}

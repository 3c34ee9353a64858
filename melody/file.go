package melody

import (
	"fmt"
	"io"
	"os"
	"sort"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"go-harmony/theory"
)

// File is a parsed Standard MIDI File reduced to what the engine needs.
type File struct {
	Path        string
	Tracks      []Track
	Timing      TimeSignature
	LengthTicks int64
}

// Load parses a MIDI file from disk.
func Load(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer fh.Close()

	f, err := Read(fh)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	f.Path = path
	return f, nil
}

// Read parses a MIDI file. Tempo and meter come from the first track, the
// last occurrence winning; note-ons are linked to the next note-off of the
// same channel and key.
func Read(r io.Reader) (*File, error) {
	sm, err := smf.ReadFrom(r)
	if err != nil {
		return nil, err
	}

	tpq := DefaultTicksPerQuarter
	if mt, ok := sm.TimeFormat.(smf.MetricTicks); ok {
		tpq = int(mt.Ticks4th())
	}

	num, denom, bpm := 4, 4, DefaultBPM
	if len(sm.Tracks) > 0 {
		for _, ev := range sm.Tracks[0] {
			var b float64
			var n, d uint8
			if ev.Message.GetMetaTempo(&b) {
				bpm = b
			}
			if ev.Message.GetMetaMeter(&n, &d) {
				num, denom = int(n), int(d)
			}
		}
	}

	f := &File{Timing: NewTimeSignature(num, denom, bpm, tpq)}
	for _, tr := range sm.Tracks {
		linked, end := linkTrack(tr)
		if end > f.LengthTicks {
			f.LengthTicks = end
		}
		f.Tracks = append(f.Tracks, linked)
	}
	return f, nil
}

func linkTrack(tr smf.Track) (Track, int64) {
	var (
		out  Track
		tick int64
		open = make(map[uint16][]int)
	)
	for _, ev := range tr {
		tick += int64(ev.Delta)

		var ch, key, vel uint8
		switch {
		case ev.Message.GetNoteOn(&ch, &key, &vel) && vel > 0:
			k := uint16(ch)<<8 | uint16(key)
			open[k] = append(open[k], len(out))
			out = append(out, NotePair{Channel: ch, Note: Note(key), Velocity: vel, OnTick: tick, OffTick: -1})
		case ev.Message.GetNoteOff(&ch, &key, &vel), ev.Message.GetNoteOn(&ch, &key, &vel):
			k := uint16(ch)<<8 | uint16(key)
			if q := open[k]; len(q) > 0 {
				out[q[0]].OffTick = tick
				open[k] = q[1:]
			}
		}
	}
	for i := range out {
		if out[i].OffTick < 0 {
			out[i].OffTick = tick
		}
	}
	return out, tick
}

// LengthMs is the file duration at its current timing.
func (f *File) LengthMs() float64 {
	return float64(f.LengthTicks) * f.Timing.MsPerTick
}

// Notes returns every audible extracted note.
func (f *File) Notes() []int {
	var notes []int
	Extract(f.Tracks, f.Timing, func(n Note, _, _ float64) {
		if n.Audible() {
			notes = append(notes, int(n))
		}
	})
	return notes
}

// Key detects the file's key from its audible notes.
func (f *File) Key() theory.KeyResult {
	return theory.DetectKey(f.Notes())
}

// Write encodes tracks of linked notes as a Standard MIDI File with a
// leading tempo track.
func Write(w io.Writer, tracks []Track, ts TimeSignature) error {
	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(uint16(ts.TicksPerQuarter))

	var meta smf.Track
	meta.Add(0, smf.MetaMeter(uint8(ts.Num), uint8(ts.Denom)))
	meta.Add(0, smf.MetaTempo(ts.BPM))
	meta.Close(0)
	if err := sm.Add(meta); err != nil {
		return fmt.Errorf("add tempo track: %w", err)
	}

	for i, tr := range tracks {
		if err := sm.Add(encodeTrack(tr)); err != nil {
			return fmt.Errorf("add track %d: %w", i, err)
		}
	}
	_, err := sm.WriteTo(w)
	return err
}

// WriteFile is Write to a path.
func WriteFile(path string, tracks []Track, ts TimeSignature) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(fh, tracks, ts); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}

type rawEvent struct {
	tick int64
	on   bool
	p    NotePair
}

func encodeTrack(tr Track) smf.Track {
	events := make([]rawEvent, 0, 2*len(tr))
	for _, p := range tr {
		events = append(events, rawEvent{tick: p.OnTick, on: true, p: p}, rawEvent{tick: p.OffTick, p: p})
	}
	// Offs sort before ons on the same tick so repeated keys re-strike.
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return !events[i].on && events[j].on
	})

	var out smf.Track
	var last int64
	for _, ev := range events {
		delta := uint32(ev.tick - last)
		last = ev.tick
		if ev.on {
			out.Add(delta, gomidi.NoteOn(ev.p.Channel, uint8(ev.p.Note), ev.p.Velocity))
		} else {
			out.Add(delta, gomidi.NoteOff(ev.p.Channel, uint8(ev.p.Note)))
		}
	}
	out.Close(0)
	return out
}

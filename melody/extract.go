package melody

import "sort"

// MinPauseLength is the shortest gap (ms) between notes that becomes a
// Pause event.
const MinPauseLength = 100.0

// NotePair is a note-on linked with its note-off.
type NotePair struct {
	Channel  uint8
	Note     Note
	Velocity uint8
	OnTick   int64
	OffTick  int64
}

// Track is the linked notes of one MIDI track, in note-on order.
type Track []NotePair

// EmitFunc receives one extracted note or pause.
type EmitFunc func(n Note, startMs, durationMs float64)

// Extract walks every track in order and reports each sounding note with
// its start and duration in ms, preceded by a Pause when the gap since the
// previous emitted event exceeds MinPauseLength.
//
// Tracks are processed one after another and are not merged by time: the
// end of the last emitted event carries over into the next track, so a
// second track starting at tick 0 produces no leading pause.
func Extract(tracks []Track, ts TimeSignature, emit EmitFunc) {
	lastEnd := 0.0
	for _, tr := range tracks {
		pairs := make(Track, len(tr))
		copy(pairs, tr)
		sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].OnTick < pairs[j].OnTick })

		for _, p := range pairs {
			if p.Velocity == 0 {
				continue
			}
			start := float64(p.OnTick) * ts.MsPerTick
			dur := float64(p.OffTick-p.OnTick) * ts.MsPerTick

			if gap := start - lastEnd; gap > MinPauseLength {
				emit(Pause, lastEnd, gap)
			}
			emit(p.Note, start, dur)
			lastEnd = start + dur
		}
	}
}

// ExtractedEvent is one item of an extraction, for callers that want a
// slice instead of a callback.
type ExtractedEvent struct {
	Note     Note
	StartMs  float64
	Duration float64
}

// ExtractAll collects the output of Extract.
func ExtractAll(tracks []Track, ts TimeSignature) []ExtractedEvent {
	var out []ExtractedEvent
	Extract(tracks, ts, func(n Note, start, dur float64) {
		out = append(out, ExtractedEvent{Note: n, StartMs: start, Duration: dur})
	})
	return out
}

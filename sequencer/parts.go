package sequencer

import (
	"go-harmony/debug"
	"go-harmony/melody"
	"go-harmony/theory"
)

// scheduleChord emits the voice leading from prev to next at the measure
// start: releases first, then strikes.
func (s *Scheduler) scheduleChord(prev, next theory.Chord, startMs float64, st MusicState) {
	v := theory.Transition(prev, next, st.ChordLayers, s.justResumed.Swap(false))
	at := melody.Millis(startMs)
	for _, n := range v.Offs {
		s.q.push(at, n, Chords, false)
	}
	for _, n := range v.Ons {
		s.q.push(at, n, Chords, true)
	}
}

// scheduleMelody places the generated notes. Pulse plays each note for half
// its length, leaving the rest of it silent, and stacks octave layers.
func (s *Scheduler) scheduleMelody(notes []timedNote, st MusicState) {
	for _, n := range notes {
		if !theory.Audible(n.note) {
			continue
		}
		dur := n.durMs
		if st.LeadStyle == LeadPulse {
			dur *= 0.5
		}
		s.q.note(n.note, n.atMs, dur, Lead)
		for i := 2; n.note+(i-1)*12 < 128; i++ {
			if st.LeadLayers >= i {
				s.q.note(n.note+(i-1)*12, n.atMs, dur, Lead)
			}
		}
	}
}

// scheduleBass plays the chord root in the selected style.
func (s *Scheduler) scheduleBass(chord theory.Chord, startMs float64, st MusicState) {
	if chord.IsZero() {
		return
	}
	root := chord.Root
	beat := s.ts.MsPerBeat

	switch st.BassStyle {
	case BassSustain:
		note := root + 24
		if root == 0 {
			note = root + 36
		}
		s.q.note(note, startMs, s.ts.MsPerMeasure, Bass)
	case BassPulse:
		note := lowBass(root)
		for i := 0; i < s.ts.Num; i++ {
			s.q.note(note, startMs+float64(i)*beat, beat*0.6, Bass)
		}
	case BassFast:
		note := lowBass(root)
		for i := 0; i < s.ts.Num*4; i++ {
			n := note
			if (i-2)%4 == 0 {
				n += 12
			}
			s.q.note(n, startMs+float64(i)*0.25*beat, beat*0.15, Bass)
		}
	}
}

func lowBass(root int) int {
	if root == 11 {
		return root + 12
	}
	return root + 24
}

// scheduleDrums plays the pattern's hits as zero-length notes.
func (s *Scheduler) scheduleDrums(startMs float64, st MusicState) {
	if st.DrumPattern == DrumsNone {
		return
	}
	hits, ok := Pattern(st.DrumPattern, s.ts.Num, s.ts.Denom)
	if !ok {
		debug.LogEvery(16, "sequencer", "no %s drum pattern for %d/%d", st.DrumPattern, s.ts.Num, s.ts.Denom)
		return
	}
	for _, h := range hits {
		note := int(s.cfg.Kit.Notes[h.Voice])
		for _, b := range h.Beats {
			s.q.note(note, startMs+b*s.ts.MsPerBeat, 0, Drums)
		}
	}
}

package sequencer

import (
	"math"
	"sort"

	"go-harmony/debug"
	"go-harmony/melody"
	"go-harmony/theory"
)

// themePlayer is an active theme and its play-head.
type themePlayer struct {
	path     string
	inst     Instrument
	key      int
	msOffset float64 // play-head within the theme at the current tempo
}

// syncThemes activates and deactivates themes to match want.
func (s *Scheduler) syncThemes(want map[string]int) {
	log := debug.For("sequencer")
	for path := range s.playing {
		if _, ok := want[path]; !ok {
			delete(s.playing, path)
			log.Info("theme removed", "path", path)
		}
	}

	paths := make([]string, 0, len(want))
	for p := range want {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		program := uint8(want[path])
		if tp, ok := s.playing[path]; ok {
			if tp.inst.Program != program {
				tp.inst.Program = program
				s.sink.ProgramChange(tp.inst.Channel, program)
			}
			continue
		}
		if s.themes == nil {
			continue
		}
		f, err := s.themes.Get(path)
		if err != nil {
			debug.LogEvery(64, "sequencer", "theme %s unavailable: %v", path, err)
			continue
		}
		ch := nextThemeChannel(func(ch uint8) bool {
			for _, tp := range s.playing {
				if tp.inst.Channel == ch {
					return true
				}
			}
			return false
		})
		if ch < 0 {
			debug.LogEvery(64, "sequencer", "no free channel for theme %s", path)
			continue
		}
		tp := &themePlayer{
			path: path,
			inst: Instrument{Channel: uint8(ch), Program: program, Velocity: 127},
			key:  f.Key().Best,
		}
		s.playing[path] = tp
		s.sink.ProgramChange(tp.inst.Channel, program)
		log.Info("theme added", "path", path, "channel", ch, "program", ProgramName(int(program)))
	}
}

// scheduleThemes plays this measure's slice of every active theme.
func (s *Scheduler) scheduleThemes(startMs float64, chord theory.Chord) {
	paths := make([]string, 0, len(s.playing))
	for p := range s.playing {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		tp := s.playing[path]
		f, err := s.themes.Get(path)
		if err != nil {
			continue
		}
		s.scheduleTheme(tp, f, startMs, chord)
	}
}

// scheduleTheme places the notes of the looped theme that fall in the
// measure after the play-head, fitted to chord, from startMs on. The loop
// length follows the current tempo. Then the play-head advances a measure.
func (s *Scheduler) scheduleTheme(tp *themePlayer, f *melody.File, startMs float64, chord theory.Chord) {
	ts := f.Timing.WithTempo(s.ts.BPM)
	length := float64(f.LengthTicks) * ts.MsPerTick
	if length <= 0 {
		return
	}
	window := s.ts.MsPerMeasure

	melody.Extract(f.Tracks, ts, func(n melody.Note, start, dur float64) {
		if n < 0 {
			return
		}
		// position after the play-head, wrapping into the next loop
		rel := math.Mod(start-tp.msOffset, length)
		if rel < 0 {
			rel += length
		}
		note := theory.FitNote(int(n), tp.key, chord)
		for ; rel < window; rel += length {
			s.q.note(note, startMs+rel, dur, tp.inst)
		}
	})

	tp.msOffset += window
	if tp.msOffset >= length {
		tp.msOffset = math.Mod(tp.msOffset, length)
	}
}

// Package theory holds the harmonic side of the engine: scales and modes,
// key detection, diatonic chord palettes, per-measure chord choice, voice
// leading between chords and re-fitting of secondary themes.
//
// Notes are plain MIDI numbers. Negative values are sentinels owned by the
// melody package and are passed through untouched.
package theory

import "fmt"

// NoteNames are pitch-class display names, index 0 is C.
var NoteNames = [12]string{"C", "C#/Db", "D", "D#/Eb", "E", "F", "F#/Gb", "G", "G#/Ab", "A", "A#/Bb", "B"}

// Lowest and highest notes a generated voice may land on.
const (
	MinAudible = 13
	MaxAudible = 127
)

// Audible reports whether n is a real, playable melody note.
func Audible(n int) bool {
	return n >= MinAudible && n <= MaxAudible
}

// PitchClass returns n mod 12 for non-negative n.
func PitchClass(n int) int {
	return ((n % 12) + 12) % 12
}

// Interval is the upward distance in semitones from one pitch class to another.
func Interval(from, to int) int {
	return PitchClass(to - from)
}

// Transpose shifts a note by semitones and folds it back by an octave if it
// leaves the audible range.
func Transpose(n, semitones int) int {
	t := n + semitones
	switch {
	case t > MaxAudible:
		return t - 12
	case t < MinAudible:
		return t + 12
	}
	return t
}

// Octave returns the scientific-pitch octave of a note (60 is C4).
func Octave(n int) int {
	return n/12 - 1
}

// NoteName renders a note, e.g. "C4", or just the pitch class when
// withOctave is false.
func NoteName(n int, withOctave bool) string {
	if n < 0 {
		return "-"
	}
	name := NoteNames[PitchClass(n)]
	if withOctave {
		return fmt.Sprintf("%s%d", name, Octave(n))
	}
	return name
}

// RelativeMinor returns the root of the relative minor of a major key.
func RelativeMinor(majorRoot int) int {
	return PitchClass(majorRoot + 9)
}

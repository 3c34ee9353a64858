package theory

import "fmt"

// Mode is one of the seven church modes.
type Mode int

const (
	Lydian Mode = iota
	Ionian
	Mixolydian
	Dorian
	Aeolian
	Phrygian
	Locrian
)

// Modes lists every mode from brightest to darkest.
var Modes = []Mode{Lydian, Ionian, Mixolydian, Dorian, Aeolian, Phrygian, Locrian}

var modeIntervals = [...][7]int{
	Lydian:     {0, 2, 4, 6, 7, 9, 11},
	Ionian:     {0, 2, 4, 5, 7, 9, 11},
	Mixolydian: {0, 2, 4, 5, 7, 9, 10},
	Dorian:     {0, 2, 3, 5, 7, 9, 10},
	Aeolian:    {0, 2, 3, 5, 7, 8, 10},
	Phrygian:   {0, 1, 3, 5, 7, 8, 10},
	Locrian:    {0, 1, 3, 5, 6, 8, 10},
}

var modeNames = [...]string{
	Lydian:     "Lydian",
	Ionian:     "Ionian",
	Mixolydian: "Mixolydian",
	Dorian:     "Dorian",
	Aeolian:    "Aeolian",
	Phrygian:   "Phrygian",
	Locrian:    "Locrian",
}

// Intervals returns the semitone offsets of the mode from its root.
func (m Mode) Intervals() [7]int {
	if m < Lydian || m > Locrian {
		return modeIntervals[Ionian]
	}
	return modeIntervals[m]
}

func (m Mode) String() string {
	if m < Lydian || m > Locrian {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// ParseMode resolves a mode by its name.
func ParseMode(name string) (Mode, error) {
	for i, n := range modeNames {
		if n == name {
			return Mode(i), nil
		}
	}
	return Ionian, fmt.Errorf("theory: unknown scale %q", name)
}

// MarshalText encodes the mode by name.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes a mode name.
func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// BuildScale returns the seven pitch classes of mode built on root.
func BuildScale(root int, mode Mode) [7]int {
	var scale [7]int
	for i, iv := range mode.Intervals() {
		scale[i] = PitchClass(root + iv)
	}
	return scale
}

// ScaleSet is a pitch-class membership table.
type ScaleSet [12]bool

// NewScaleSet builds the membership table of a scale.
func NewScaleSet(root int, mode Mode) ScaleSet {
	var s ScaleSet
	for _, pc := range BuildScale(root, mode) {
		s[pc] = true
	}
	return s
}

// Has reports whether the pitch class of n is in the set.
func (s ScaleSet) Has(n int) bool {
	return s[PitchClass(n)]
}

// ChangeNoteForScale moves note from its degree in src (rooted at key) to
// the same degree in dst. Notes outside src and sentinel values come back
// unchanged. The octave is kept and the result folded into 0..127.
func ChangeNoteForScale(note, key int, src, dst Mode) int {
	if note < 0 {
		return note
	}
	octave := note / 12
	pc := note % 12
	root := PitchClass(key)

	from := src.Intervals()
	degree := -1
	for i, iv := range from {
		if PitchClass(root+iv) == pc {
			degree = i
			break
		}
	}
	if degree < 0 {
		return note
	}

	out := octave*12 + PitchClass(root+dst.Intervals()[degree])
	for out < 0 {
		out += 12
	}
	for out > 127 {
		out -= 12
	}
	return out
}

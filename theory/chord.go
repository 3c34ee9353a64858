package theory

import (
	"math/rand/v2"
	"sort"
)

// ChordType is a chord quality and its intervals above the root.
type ChordType struct {
	Name      string
	Intervals []int
}

// ChordTypes are the qualities tried on every scale degree.
var ChordTypes = []ChordType{
	{"major", []int{0, 4, 7}},
	{"minor", []int{0, 3, 7}},
	{"sus2", []int{0, 2, 7}},
	{"sus4", []int{0, 5, 7}},
	{"dim", []int{0, 3, 6}},
	{"aug", []int{0, 4, 8}},
	{"maj7", []int{0, 4, 7, 11}},
	{"min7", []int{0, 3, 7, 10}},
	{"7", []int{0, 4, 7, 10}},
	{"major add9", []int{0, 2, 4, 7}},
	{"minor add9", []int{0, 2, 3, 7}},
}

// Basic chord families returned by Chord.Quality.
const (
	QualityMajor = "major"
	QualityMinor = "minor"
	QualityAug   = "aug"
	QualityDim   = "dim"
	QualitySus   = "sus"
	QualityNone  = "none"
)

// Chord is a rooted chord. The zero value is the empty chord.
type Chord struct {
	Root int
	Type ChordType
	Name string
}

// NewChord builds a chord and its display name.
func NewChord(root int, t ChordType) Chord {
	root = PitchClass(root)
	return Chord{Root: root, Type: t, Name: NoteNames[root] + " " + t.Name}
}

// IsZero reports whether c is the empty chord.
func (c Chord) IsZero() bool {
	return len(c.Type.Intervals) == 0
}

func (c Chord) has(iv int) bool {
	for _, x := range c.Type.Intervals {
		if x == iv {
			return true
		}
	}
	return false
}

// Quality collapses the chord type into its triad family.
func (c Chord) Quality() string {
	if c.has(4) {
		if c.has(7) {
			return QualityMajor
		}
		if c.has(8) {
			return QualityAug
		}
	}
	if c.has(3) {
		if c.has(7) {
			return QualityMinor
		}
		if c.has(6) {
			return QualityDim
		}
	}
	if c.has(2) || c.has(5) {
		return QualitySus
	}
	return QualityNone
}

// PitchClasses returns the chord tones in interval order.
func (c Chord) PitchClasses() []int {
	pcs := make([]int, 0, len(c.Type.Intervals))
	for _, iv := range c.Type.Intervals {
		pcs = append(pcs, PitchClass(c.Root+iv))
	}
	return pcs
}

func (c Chord) String() string {
	if c.IsZero() {
		return "-"
	}
	return c.Name
}

// DiatonicChords returns every chord whose tones all lie in the scale of
// key and mode, ordered by scale degree then by ChordTypes order.
func DiatonicChords(key int, mode Mode) []Chord {
	set := NewScaleSet(key, mode)
	var out []Chord
	for _, root := range BuildScale(key, mode) {
		for _, t := range ChordTypes {
			fits := true
			for _, iv := range t.Intervals {
				if !set[PitchClass(root+iv)] {
					fits = false
					break
				}
			}
			if fits {
				out = append(out, NewChord(root, t))
			}
		}
	}
	return out
}

// ScoredChord pairs a chord with its fitness for a measure.
type ScoredChord struct {
	Chord Chord
	Score int
}

// ScoreChords rates each chord of the palette against the notes of a
// measure, best first. rng may be nil to disable the random nudge.
func ScoreChords(notes []int, palette []Chord, mode Mode, rng *rand.Rand) []ScoredChord {
	var counts [12]int
	for _, n := range notes {
		if n < 0 {
			continue
		}
		counts[PitchClass(n)]++
	}

	scored := make([]ScoredChord, 0, len(palette))
	for _, ch := range palette {
		score := 0
		for _, pc := range ch.PitchClasses() {
			score += counts[pc]
		}

		name := ch.Type.Name
		switch mode {
		case Phrygian, Locrian:
			if name == "major" {
				score -= 2
			} else if name == "minor" || name == "dim" {
				score++
			}
		case Lydian, Ionian:
			if name == "minor" || name == "dim" {
				score--
			}
		}

		if rng != nil {
			nudge := 1 + rng.IntN(3)
			switch name {
			case "major", "minor":
				score += nudge
			case "major add9", "minor add9":
				score -= nudge
			}
		}
		scored = append(scored, ScoredChord{Chord: ch, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// SelectChord picks the chord for a measure. Without any pitched notes, or
// when nothing scores above zero, the previous chord is kept.
func SelectChord(notes []int, palette []Chord, mode Mode, previous Chord, rng *rand.Rand) Chord {
	pitched := false
	for _, n := range notes {
		if Audible(n) {
			pitched = true
			break
		}
	}
	if !pitched {
		return previous
	}
	scored := ScoreChords(notes, palette, mode, rng)
	if len(scored) == 0 || scored[0].Score == 0 {
		return previous
	}
	return scored[0].Chord
}

package theory

import (
	"math/rand/v2"
	"slices"
	"testing"
)

func findChord(chords []Chord, root int, name string) (Chord, bool) {
	for _, c := range chords {
		if c.Root == root && c.Type.Name == name {
			return c, true
		}
	}
	return Chord{}, false
}

func TestDiatonicChordsCMajor(t *testing.T) {
	chords := DiatonicChords(0, Ionian)

	cmaj, ok := findChord(chords, 0, "major")
	if !ok {
		t.Fatal("C major missing")
	}
	if got := cmaj.PitchClasses(); !slices.Equal(got, []int{0, 4, 7}) {
		t.Fatalf("C major tones = %v", got)
	}
	amin, ok := findChord(chords, 9, "minor")
	if !ok {
		t.Fatal("A minor missing")
	}
	if got := amin.PitchClasses(); !slices.Equal(got, []int{9, 0, 4}) {
		t.Fatalf("A minor tones = %v", got)
	}
	if cmaj.Name != "C major" || amin.Name != "A minor" {
		t.Fatalf("names = %q, %q", cmaj.Name, amin.Name)
	}

	scale := NewScaleSet(0, Ionian)
	for _, c := range chords {
		for _, pc := range c.PitchClasses() {
			if !scale[pc] {
				t.Fatalf("%s contains non-diatonic tone %d", c.Name, pc)
			}
		}
	}
	if _, ok := findChord(chords, 2, "major"); ok {
		t.Fatal("D major needs F# and must be excluded")
	}
	if _, ok := findChord(chords, 11, "dim"); !ok {
		t.Fatal("B dim missing")
	}
}

func TestChordQuality(t *testing.T) {
	want := map[string]string{
		"major":      QualityMajor,
		"minor":      QualityMinor,
		"sus2":       QualitySus,
		"sus4":       QualitySus,
		"dim":        QualityDim,
		"aug":        QualityAug,
		"maj7":       QualityMajor,
		"min7":       QualityMinor,
		"7":          QualityMajor,
		"major add9": QualityMajor,
		"minor add9": QualityMinor,
	}
	for _, ct := range ChordTypes {
		if got := NewChord(0, ct).Quality(); got != want[ct.Name] {
			t.Errorf("Quality(%s) = %s, want %s", ct.Name, got, want[ct.Name])
		}
	}
}

func TestSelectChordPrefersMatchingTriad(t *testing.T) {
	palette := DiatonicChords(0, Ionian)
	notes := []int{69, 72, 76, 69, 72, 76, 69, 72, 76, 69, 72, 76}
	rng := rand.New(rand.NewPCG(1, 2))
	got := SelectChord(notes, palette, Aeolian, Chord{}, rng)
	if got.Root != 9 || got.Quality() != QualityMinor {
		t.Fatalf("SelectChord = %s, want an A minor family chord", got.Name)
	}
}

func TestSelectChordKeepsPreviousWithoutNotes(t *testing.T) {
	palette := DiatonicChords(0, Ionian)
	prev, _ := findChord(palette, 7, "major")
	got := SelectChord([]int{-2, -2}, palette, Ionian, prev, nil)
	if got.Name != prev.Name {
		t.Fatalf("SelectChord = %s, want previous %s", got.Name, prev.Name)
	}
}

func TestScoreChordsModeBias(t *testing.T) {
	palette := []Chord{NewChord(0, ChordTypes[0]), NewChord(9, ChordTypes[1])}
	notes := []int{60, 64}

	ionian := ScoreChords(notes, palette, Ionian, nil)
	if ionian[0].Chord.Name != "C major" || ionian[0].Score != 2 || ionian[1].Score != 1 {
		t.Fatalf("Ionian scores = %+v", ionian)
	}
	phrygian := ScoreChords(notes, palette, Phrygian, nil)
	if phrygian[0].Chord.Name != "A minor" || phrygian[0].Score != 3 || phrygian[1].Score != 0 {
		t.Fatalf("Phrygian scores = %+v", phrygian)
	}
}

func TestTransitionVoiceLeading(t *testing.T) {
	cmaj := NewChord(0, ChordTypes[0])
	amin := NewChord(9, ChordTypes[1])

	v := Transition(cmaj, amin, 1, false)
	if !slices.Equal(v.Held, []int{0, 4}) {
		t.Fatalf("Held = %v, want [0 4]", v.Held)
	}
	if !slices.Equal(v.Released, []int{7}) {
		t.Fatalf("Released = %v, want [7]", v.Released)
	}
	if !slices.Equal(v.Triggered, []int{9}) {
		t.Fatalf("Triggered = %v, want [9]", v.Triggered)
	}
	if !slices.Equal(v.Ons, []int{69}) {
		t.Fatalf("Ons = %v, want [69]", v.Ons)
	}
	if !slices.Contains(v.Offs, 67) || slices.Contains(v.Offs, 60) || slices.Contains(v.Offs, 64) {
		t.Fatalf("Offs = %v", v.Offs)
	}
	if !slices.Contains(v.Offs, 72) {
		t.Fatalf("upper layers must always be released, Offs = %v", v.Offs)
	}
}

func TestTransitionRetrigger(t *testing.T) {
	cmaj := NewChord(0, ChordTypes[0])
	amin := NewChord(9, ChordTypes[1])

	v := Transition(cmaj, amin, 1, true)
	if len(v.Held) != 0 {
		t.Fatalf("Held = %v, want none", v.Held)
	}
	if !slices.Equal(v.Triggered, []int{9, 0, 4}) {
		t.Fatalf("Triggered = %v", v.Triggered)
	}
	for _, n := range []int{60, 64, 67} {
		if !slices.Contains(v.Offs, n) {
			t.Fatalf("Offs = %v missing %d", v.Offs, n)
		}
	}
}

func TestTransitionLayers(t *testing.T) {
	cmaj := NewChord(0, ChordTypes[0])
	v := Transition(Chord{}, cmaj, 3, false)
	want := []int{60, 72, 84, 64, 76, 88, 67, 79, 91}
	if !slices.Equal(v.Ons, want) {
		t.Fatalf("Ons = %v, want %v", v.Ons, want)
	}
}

func TestFitToChord(t *testing.T) {
	theme := []int{60, 64, 67, -2}

	gmaj := NewChord(7, ChordTypes[0])
	if got := FitToChord(theme, 0, gmaj); !slices.Equal(got, []int{67, 71, 74, -2}) {
		t.Fatalf("fit to G major = %v", got)
	}

	// A minor aligns with its relative major, C.
	amin := NewChord(9, ChordTypes[1])
	if got := FitToChord(theme, 0, amin); !slices.Equal(got, []int{60, 64, 67, -2}) {
		t.Fatalf("fit to A minor = %v", got)
	}

	// Over C sus4 the third falls onto the root.
	csus4 := NewChord(0, ChordTypes[3])
	if got := FitToChord([]int{60, 64, 65, 67}, 0, csus4); !slices.Equal(got, []int{60, 60, 65, 67}) {
		t.Fatalf("fit to C sus4 = %v", got)
	}
}

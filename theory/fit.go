package theory

// ThemeShift returns the target root and semitone shift that align a theme
// in themeKey with chord. Minor chords align with their relative major.
func ThemeShift(themeKey int, chord Chord) (root, shift int) {
	root = chord.Root
	if chord.Quality() == QualityMinor {
		root = PitchClass(root + 3)
	}
	return root, Interval(themeKey, root)
}

// FitNote transposes a single theme note onto chord. Over a sus chord only
// the root, the fifth and the suspended tone survive; anything else drops
// onto the chord root.
func FitNote(note, themeKey int, chord Chord) int {
	if note < 0 || chord.IsZero() {
		return note
	}
	root, shift := ThemeShift(themeKey, chord)
	out := Transpose(note, shift)

	if chord.Quality() != QualitySus {
		return out
	}
	iv := Interval(root, out)
	keep := iv == 0 || iv == 7
	switch chord.Type.Name {
	case "sus2":
		keep = keep || iv == 2
	case "sus4":
		keep = keep || iv == 5
	}
	if !keep {
		out = Transpose(out, -iv)
	}
	return out
}

// FitToChord transposes every note of a theme so that its key lines up with
// the current chord.
func FitToChord(notes []int, themeKey int, chord Chord) []int {
	out := make([]int, len(notes))
	for i, n := range notes {
		out[i] = FitNote(n, themeKey, chord)
	}
	return out
}

package theory

import "slices"

// Octave offsets of chord voices.
const (
	ChordBase = 60
	// A chord layer i (i >= 2) sounds at pc + (i+4)*12.
	chordLayerShift = 4
)

// Voicing is the result of moving from one chord to the next. The pitch
// class sets describe the voice leading, Offs and Ons are the concrete
// notes to release and strike, offs first.
type Voicing struct {
	Held      []int
	Released  []int
	Triggered []int

	Offs []int
	Ons  []int
}

// Transition computes the voice leading between two chords. Shared tones are
// held unless retrigger is set. Octave layers above the base voice are
// always released and re-struck up to layers.
func Transition(prev, next Chord, layers int, retrigger bool) Voicing {
	from := prev.PitchClasses()
	to := next.PitchClasses()

	var v Voicing
	for _, pc := range from {
		if slices.Contains(to, pc) {
			if !retrigger {
				v.Held = append(v.Held, pc)
			}
		} else {
			v.Released = append(v.Released, pc)
		}
		if retrigger || !slices.Contains(to, pc) {
			v.Offs = append(v.Offs, pc+ChordBase)
		}
		for i := 2; layerNote(pc, i) < 128; i++ {
			v.Offs = append(v.Offs, layerNote(pc, i))
		}
	}

	for _, pc := range to {
		if retrigger || !slices.Contains(from, pc) {
			v.Triggered = append(v.Triggered, pc)
			v.Ons = append(v.Ons, pc+ChordBase)
		}
		for i := 2; layerNote(pc, i) < 128; i++ {
			if layers >= i {
				v.Ons = append(v.Ons, layerNote(pc, i))
			}
		}
	}
	return v
}

func layerNote(pc, layer int) int {
	return pc + (layer+chordLayerShift)*12
}

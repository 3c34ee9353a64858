package sequencer

import "fmt"

// Instrument is a voice bound to a MIDI channel.
type Instrument struct {
	Channel  uint8
	Program  uint8
	Velocity uint8
}

// Fixed voices. Themes get the remaining channels.
var (
	Lead   = Instrument{Channel: 0, Program: 48, Velocity: 127}  // String Ensemble 1
	Chords = Instrument{Channel: 1, Program: 102, Velocity: 127} // FX 7 (echoes)
	Bass   = Instrument{Channel: 2, Program: 33, Velocity: 127}  // Electric Bass (finger)
	Drums  = Instrument{Channel: 9, Program: 0, Velocity: 127}
)

// Channel range for themes. Drums keep 9.
const (
	firstThemeChannel = 3
	lastThemeChannel  = 15
)

// MaxThemes is how many themes can sound at once.
const MaxThemes = lastThemeChannel - firstThemeChannel // 13 channels minus drums

// nextThemeChannel returns the lowest free theme channel, or -1.
func nextThemeChannel(taken func(ch uint8) bool) int {
	for ch := firstThemeChannel; ch <= lastThemeChannel; ch++ {
		if ch == int(Drums.Channel) {
			continue
		}
		if !taken(uint8(ch)) {
			return ch
		}
	}
	return -1
}

var gmPrograms = [128]string{
	"Acoustic Grand Piano", "Bright Acoustic Piano", "Electric Grand Piano", "Honky-tonk Piano",
	"Electric Piano 1", "Electric Piano 2", "Harpsichord", "Clavinet",
	"Celesta", "Glockenspiel", "Music Box", "Vibraphone",
	"Marimba", "Xylophone", "Tubular Bells", "Dulcimer",
	"Drawbar Organ", "Percussive Organ", "Rock Organ", "Church Organ",
	"Reed Organ", "Accordion", "Harmonica", "Tango Accordion",
	"Acoustic Guitar (nylon)", "Acoustic Guitar (steel)", "Electric Guitar (jazz)", "Electric Guitar (clean)",
	"Electric Guitar (muted)", "Overdriven Guitar", "Distortion Guitar", "Guitar Harmonics",
	"Acoustic Bass", "Electric Bass (finger)", "Electric Bass (pick)", "Fretless Bass",
	"Slap Bass 1", "Slap Bass 2", "Synth Bass 1", "Synth Bass 2",
	"Violin", "Viola", "Cello", "Contrabass",
	"Tremolo Strings", "Pizzicato Strings", "Orchestral Harp", "Timpani",
	"String Ensemble 1", "String Ensemble 2", "Synth Strings 1", "Synth Strings 2",
	"Choir Aahs", "Voice Oohs", "Synth Voice", "Orchestra Hit",
	"Trumpet", "Trombone", "Tuba", "Muted Trumpet",
	"French Horn", "Brass Section", "Synth Brass 1", "Synth Brass 2",
	"Soprano Sax", "Alto Sax", "Tenor Sax", "Baritone Sax",
	"Oboe", "English Horn", "Bassoon", "Clarinet",
	"Piccolo", "Flute", "Recorder", "Pan Flute",
	"Blown Bottle", "Shakuhachi", "Whistle", "Ocarina",
	"Lead 1 (square)", "Lead 2 (sawtooth)", "Lead 3 (calliope)", "Lead 4 (chiff)",
	"Lead 5 (charang)", "Lead 6 (voice)", "Lead 7 (fifths)", "Lead 8 (bass + lead)",
	"Pad 1 (new age)", "Pad 2 (warm)", "Pad 3 (polysynth)", "Pad 4 (choir)",
	"Pad 5 (bowed)", "Pad 6 (metallic)", "Pad 7 (halo)", "Pad 8 (sweep)",
	"FX 1 (rain)", "FX 2 (soundtrack)", "FX 3 (crystal)", "FX 4 (atmosphere)",
	"FX 5 (brightness)", "FX 6 (goblins)", "FX 7 (echoes)", "FX 8 (sci-fi)",
	"Sitar", "Banjo", "Shamisen", "Koto",
	"Kalimba", "Bagpipe", "Fiddle", "Shanai",
	"Tinkle Bell", "Agogo", "Steel Drums", "Woodblock",
	"Taiko Drum", "Melodic Tom", "Synth Drum", "Reverse Cymbal",
	"Guitar Fret Noise", "Breath Noise", "Seashore", "Bird Tweet",
	"Telephone Ring", "Helicopter", "Applause", "Gunshot",
}

// ProgramName is the General MIDI name of a program.
func ProgramName(program int) string {
	if program < 0 || program >= len(gmPrograms) {
		return fmt.Sprintf("program %d", program)
	}
	return gmPrograms[program]
}

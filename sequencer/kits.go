package sequencer

import (
	"fmt"
	"sort"
	"strings"
)

// Voice is a drum sound a pattern refers to. A kit maps voices to notes.
type Voice int

const (
	Kick Voice = iota
	Snare
	ClosedHat
	PedalHat
	OpenHat
	Splash
	numVoices
)

var voiceNames = [numVoices]string{"kick", "snare", "closed hat", "pedal hat", "open hat", "splash"}

func (v Voice) String() string {
	if v < 0 || v >= numVoices {
		return fmt.Sprintf("Voice(%d)", int(v))
	}
	return voiceNames[v]
}

// DrumKit maps drum voices to MIDI notes
type DrumKit struct {
	Name  string
	Notes [numVoices]uint8
}

// Kits contains all available drum kit mappings
var Kits = map[string]DrumKit{
	"gm": {
		Name:  "General MIDI",
		Notes: [numVoices]uint8{36, 38, 42, 44, 46, 55},
	},
	"rd8": {
		Name: "Behringer RD-8",
		// no pedal hat or splash: closed hat and crash stand in
		Notes: [numVoices]uint8{36, 40, 42, 42, 46, 49},
	},
	"tr8s": {
		Name:  "Roland TR-8S",
		Notes: [numVoices]uint8{36, 38, 42, 42, 46, 49},
	},
	"er1": {
		Name:  "Korg ER-1",
		Notes: [numVoices]uint8{36, 38, 42, 42, 46, 49},
	},
}

// KitNames returns the list of available kit names
func KitNames() []string {
	names := make([]string, 0, len(Kits))
	for k := range Kits {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// GetKit returns a kit by name, defaulting to GM if not found
func GetKit(name string) DrumKit {
	if kit, ok := Kits[strings.ToLower(name)]; ok {
		return kit
	}
	return Kits[DefaultKit]
}

// DefaultKit is the default kit name
const DefaultKit = "gm"

// DrumPattern selects a groove.
type DrumPattern int

const (
	DrumsNone DrumPattern = iota
	DrumsCalm
	DrumsStealth
	DrumsTense
	DrumsCombat
	DrumsBoss
)

var drumPatternNames = []string{"None", "Calm", "Stealth", "Tense", "Combat", "Boss"}

func (p DrumPattern) String() string {
	if p < 0 || int(p) >= len(drumPatternNames) {
		return fmt.Sprintf("DrumPattern(%d)", int(p))
	}
	return drumPatternNames[p]
}

// ParseDrumPattern accepts a pattern name, case insensitive.
func ParseDrumPattern(s string) (DrumPattern, error) {
	for i, n := range drumPatternNames {
		if strings.EqualFold(n, s) {
			return DrumPattern(i), nil
		}
	}
	return DrumsNone, fmt.Errorf("unknown drum pattern %q", s)
}

func (p DrumPattern) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *DrumPattern) UnmarshalText(b []byte) error {
	v, err := ParseDrumPattern(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Hit is a voice struck at beat offsets within a measure (0 is the
// downbeat, 0.5 the following eighth).
type Hit struct {
	Voice Voice
	Beats []float64
}

// patterns4_4 are the grooves for 4/4. Other meters have no drums.
var patterns4_4 = map[DrumPattern][]Hit{
	DrumsNone: nil,
	DrumsCalm: {
		{Kick, []float64{0}},
		{ClosedHat, []float64{0, 1, 2, 3}},
	},
	DrumsStealth: {
		{Kick, []float64{0}},
		{PedalHat, []float64{1, 1.67, 3, 3.67}},
		{OpenHat, []float64{0, 2}},
	},
	DrumsTense: {
		{Kick, []float64{0, 1.5, 2}},
		{ClosedHat, []float64{0, 1, 2, 3}},
	},
	DrumsCombat: {
		{Kick, []float64{0, 1.5, 2.5}},
		{Snare, []float64{1, 3}},
		{OpenHat, []float64{0, 1, 2, 3}},
		{Splash, []float64{0, 1, 2, 3}},
	},
	DrumsBoss: {
		{Kick, []float64{0, 0.75, 1.25, 2, 2.75, 3.25}},
		{Snare, []float64{0.5, 1.5, 2.5, 3.5}},
		{OpenHat, []float64{0, 1, 2, 3}},
		{Splash, []float64{0, 0.5, 1, 1.5, 2, 2.5, 3, 3.5}},
	},
}

// Pattern returns the hits of p in the given meter. ok is false when the
// meter has no drum patterns.
func Pattern(p DrumPattern, num, denom int) ([]Hit, bool) {
	if num != 4 || denom != 4 {
		return nil, false
	}
	hits, ok := patterns4_4[p]
	return hits, ok
}

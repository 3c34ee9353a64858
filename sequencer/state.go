package sequencer

import (
	"fmt"
	"maps"
	"strings"

	"go-harmony/theory"
)

// LeadStyle shapes the melody voice.
type LeadStyle int

const (
	LeadSustain LeadStyle = iota
	// LeadPulse halves each note and rests for the other half.
	LeadPulse
)

var leadStyleNames = []string{"Sustain", "Pulse"}

func (s LeadStyle) String() string {
	if s < 0 || int(s) >= len(leadStyleNames) {
		return fmt.Sprintf("LeadStyle(%d)", int(s))
	}
	return leadStyleNames[s]
}

// ParseLeadStyle accepts a style name, case insensitive.
func ParseLeadStyle(s string) (LeadStyle, error) {
	for i, n := range leadStyleNames {
		if strings.EqualFold(n, s) {
			return LeadStyle(i), nil
		}
	}
	return LeadSustain, fmt.Errorf("unknown lead style %q", s)
}

func (s LeadStyle) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *LeadStyle) UnmarshalText(b []byte) error {
	v, err := ParseLeadStyle(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// BassStyle selects the bass pattern.
type BassStyle int

const (
	// BassSustain holds the chord root for the whole measure.
	BassSustain BassStyle = iota
	// BassPulse strikes the root on every beat.
	BassPulse
	// BassFast plays sixteenths with an octave jump on the offbeats.
	BassFast
)

var bassStyleNames = []string{"Sustain", "Pulse", "Fast"}

func (s BassStyle) String() string {
	if s < 0 || int(s) >= len(bassStyleNames) {
		return fmt.Sprintf("BassStyle(%d)", int(s))
	}
	return bassStyleNames[s]
}

// ParseBassStyle accepts a style name, case insensitive.
func ParseBassStyle(s string) (BassStyle, error) {
	for i, n := range bassStyleNames {
		if strings.EqualFold(n, s) {
			return BassStyle(i), nil
		}
	}
	return BassSustain, fmt.Errorf("unknown bass style %q", s)
}

func (s BassStyle) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *BassStyle) UnmarshalText(b []byte) error {
	v, err := ParseBassStyle(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// MusicState is everything the game can change about the music. Values are
// snapshots: the scheduler never sees a state being modified.
type MusicState struct {
	Intensity       float64
	Scale           theory.Mode
	TempoMultiplier float64
	LeadStyle       LeadStyle
	LeadLayers      int
	ChordLayers     int
	BassStyle       BassStyle
	DrumPattern     DrumPattern

	// Themes maps a MIDI file path to the program it plays with.
	Themes map[string]int
}

// DefaultMusicState is the state before any rule applies.
func DefaultMusicState() MusicState {
	return MusicState{
		Scale:           theory.Ionian,
		TempoMultiplier: 1,
		LeadLayers:      1,
		ChordLayers:     1,
		Themes:          map[string]int{},
	}
}

// Clone returns a copy that shares nothing with s.
func (s MusicState) Clone() MusicState {
	s.Themes = maps.Clone(s.Themes)
	if s.Themes == nil {
		s.Themes = map[string]int{}
	}
	return s
}

// Equal compares two states, themes included.
func (s MusicState) Equal(o MusicState) bool {
	return s.Intensity == o.Intensity &&
		s.Scale == o.Scale &&
		s.TempoMultiplier == o.TempoMultiplier &&
		s.LeadStyle == o.LeadStyle &&
		s.LeadLayers == o.LeadLayers &&
		s.ChordLayers == o.ChordLayers &&
		s.BassStyle == o.BassStyle &&
		s.DrumPattern == o.DrumPattern &&
		maps.Equal(s.Themes, o.Themes)
}

// StateFeed carries music state snapshots from the single writer to the
// scheduler. Only the newest unread snapshot is kept.
type StateFeed struct {
	ch chan MusicState
}

// NewStateFeed returns an empty feed.
func NewStateFeed() *StateFeed {
	return &StateFeed{ch: make(chan MusicState, 1)}
}

// Publish replaces any unread snapshot with s. Only one goroutine may
// publish.
func (f *StateFeed) Publish(s MusicState) {
	s = s.Clone()
	for {
		select {
		case f.ch <- s:
			return
		default:
		}
		select {
		case <-f.ch:
		default:
		}
	}
}

// Latest returns the newest unread snapshot without blocking.
func (f *StateFeed) Latest() (MusicState, bool) {
	select {
	case s := <-f.ch:
		return s, true
	default:
		return MusicState{}, false
	}
}

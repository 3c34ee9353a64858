package melody

import (
	"math"
	"time"
)

// DefaultDownbeatTolerance is how close (ms) an event must start to its
// measure start to count as landing on the downbeat.
const DefaultDownbeatTolerance = 5.0

// Defaults used when a file carries no tempo or meter.
const (
	DefaultBPM             = 120.0
	DefaultTicksPerQuarter = 480
)

// TimeSignature holds meter, tempo and the millisecond lengths derived from
// them. Set the tempo only through ChangeTempo so the derived fields stay
// consistent.
type TimeSignature struct {
	Num             int
	Denom           int
	BPM             float64
	TicksPerQuarter int

	MsPerTick    float64
	MsPerBeat    float64
	MsPerMeasure float64
}

// NewTimeSignature returns a signature at the given tempo.
func NewTimeSignature(num, denom int, bpm float64, tpq int) TimeSignature {
	if num <= 0 {
		num = 4
	}
	if denom <= 0 {
		denom = 4
	}
	if tpq <= 0 {
		tpq = DefaultTicksPerQuarter
	}
	ts := TimeSignature{Num: num, Denom: denom, TicksPerQuarter: tpq}
	ts.ChangeTempo(bpm)
	return ts
}

// DefaultTimeSignature is 4/4 at 120 BPM, 480 ticks per quarter.
func DefaultTimeSignature() TimeSignature {
	return NewTimeSignature(4, 4, DefaultBPM, DefaultTicksPerQuarter)
}

// ChangeTempo sets BPM and rederives every millisecond length.
func (ts *TimeSignature) ChangeTempo(bpm float64) {
	if bpm <= 0 {
		bpm = DefaultBPM
	}
	ts.BPM = bpm
	ts.MsPerBeat = 60000.0 / bpm
	ts.MsPerTick = ts.MsPerBeat / float64(ts.TicksPerQuarter)
	ts.MsPerMeasure = ts.MsPerBeat * float64(ts.Num)
}

// WithTempo returns a copy at a different tempo.
func (ts TimeSignature) WithTempo(bpm float64) TimeSignature {
	ts.ChangeTempo(bpm)
	return ts
}

// MTPAt converts a time in ms from the start of a melody into its measure
// and offset.
func (ts TimeSignature) MTPAt(ms float64) MTP {
	measure := int(math.Floor(ms / ts.MsPerMeasure))
	return MTP{Measure: measure + 1, Offset: ms - float64(measure)*ts.MsPerMeasure}
}

// OnDownbeat reports whether a measure offset counts as the downbeat.
func OnDownbeat(offset, tolerance float64) bool {
	return math.Abs(offset) < tolerance
}

// Millis converts fractional milliseconds to a Duration.
func Millis(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

// ToMillis converts a Duration to fractional milliseconds.
func ToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

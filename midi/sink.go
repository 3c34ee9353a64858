package midi

// Sink receives playback commands. Calls are fire-and-forget: a sink logs
// its own failures and never blocks the caller for long.
type Sink interface {
	PlayNote(note, channel, velocity uint8)
	StopNote(note, channel uint8)
	AllNotesOff()
	ProgramChange(channel, program uint8)
}

// Multi sends every command to all sinks in order.
func Multi(sinks ...Sink) Sink {
	return multiSink(sinks)
}

type multiSink []Sink

func (m multiSink) PlayNote(note, channel, velocity uint8) {
	for _, s := range m {
		s.PlayNote(note, channel, velocity)
	}
}

func (m multiSink) StopNote(note, channel uint8) {
	for _, s := range m {
		s.StopNote(note, channel)
	}
}

func (m multiSink) AllNotesOff() {
	for _, s := range m {
		s.AllNotesOff()
	}
}

func (m multiSink) ProgramChange(channel, program uint8) {
	for _, s := range m {
		s.ProgramChange(channel, program)
	}
}

// Discard is a sink that drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) PlayNote(uint8, uint8, uint8) {}
func (discard) StopNote(uint8, uint8)        {}
func (discard) AllNotesOff()                 {}
func (discard) ProgramChange(uint8, uint8)   {}

package midi

import (
	"fmt"
	"time"
)

// MIDI message types
const (
	NoteOn        uint8 = 0x90
	NoteOff       uint8 = 0x80
	CC            uint8 = 0xB0
	ProgramChange uint8 = 0xC0
)

// CCAllNotesOff is the channel mode message that silences a channel.
const CCAllNotesOff uint8 = 123

// Event is one message sent to a sink, stamped with its offset from the
// start of recording.
type Event struct {
	At       time.Duration
	Type     uint8 // NoteOn, NoteOff, CC, ProgramChange
	Channel  uint8
	Note     uint8 // controller number for CC, program for ProgramChange
	Velocity uint8 // controller value for CC
}

func (e Event) String() string {
	switch e.Type {
	case NoteOn:
		return fmt.Sprintf("%8s ch%-2d on  %3d vel %d", e.At, e.Channel, e.Note, e.Velocity)
	case NoteOff:
		return fmt.Sprintf("%8s ch%-2d off %3d", e.At, e.Channel, e.Note)
	case CC:
		return fmt.Sprintf("%8s ch%-2d cc  %3d = %d", e.At, e.Channel, e.Note, e.Velocity)
	case ProgramChange:
		return fmt.Sprintf("%8s ch%-2d program %d", e.At, e.Channel, e.Note)
	}
	return fmt.Sprintf("%8s ch%-2d type %#x", e.At, e.Channel, e.Type)
}

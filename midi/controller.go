package midi

import "time"

// ControllerType identifies the kind of controller
type ControllerType int

const (
	ControllerUnknown ControllerType = iota
	ControllerKeyboard
)

// NoteEvent is sent when a key goes down or up on a keyboard
type NoteEvent struct {
	Note     uint8
	Velocity uint8 // 0 for a release
	Channel  uint8
	Time     time.Time
}

// On reports a key press.
func (e NoteEvent) On() bool {
	return e.Velocity > 0
}

// Controller is a MIDI input device
type Controller interface {
	ID() string
	Type() ControllerType

	// Notes played on the controller. Closed by Close.
	NoteEvents() <-chan NoteEvent

	Close() error
}

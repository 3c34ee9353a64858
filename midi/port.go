package midi

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"go-harmony/debug"
)

// ErrNoPort is returned when no output port matches.
var ErrNoPort = errors.New("midi: no matching output port")

// PortSink plays on a MIDI output port, usually a software synthesizer.
// It remembers sounding notes so AllNotesOff can release them one by one
// before sending the channel mode message, which some synths ignore.
type PortSink struct {
	name string
	port drivers.Out
	send func(gomidi.Message) error

	mu       sync.Mutex
	sounding map[[2]uint8]struct{} // {channel, note}
	errs     int
}

// OpenPort opens the output port whose name contains name (case
// insensitive). An empty name picks the first port.
func OpenPort(name string) (*PortSink, error) {
	ports, err := OutPorts()
	if err != nil {
		return nil, err
	}
	want := strings.ToLower(name)
	for _, p := range ports {
		if want != "" && !strings.Contains(strings.ToLower(p.String()), want) {
			continue
		}
		send, err := gomidi.SendTo(p)
		if err != nil {
			return nil, fmt.Errorf("open output %q: %w", p.String(), err)
		}
		s := NewSenderSink(p.String(), send)
		s.port = p
		return s, nil
	}
	if name == "" {
		return nil, ErrNoPort
	}
	return nil, fmt.Errorf("%w: %q", ErrNoPort, name)
}

// NewSenderSink wraps a send function, e.g. one returned by gomidi.SendTo.
func NewSenderSink(name string, send func(gomidi.Message) error) *PortSink {
	return &PortSink{name: name, send: send, sounding: make(map[[2]uint8]struct{})}
}

// Name is the port name.
func (s *PortSink) Name() string {
	return s.name
}

func (s *PortSink) write(msg gomidi.Message) {
	if err := s.send(msg); err != nil {
		s.errs++
		debug.LogEvery(50, "midi", "send to %s failed: %v", s.name, err)
	}
}

func (s *PortSink) PlayNote(note, channel, velocity uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sounding[[2]uint8{channel, note}] = struct{}{}
	s.write(gomidi.NoteOn(channel, note, velocity))
}

func (s *PortSink) StopNote(note, channel uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sounding, [2]uint8{channel, note})
	s.write(gomidi.NoteOff(channel, note))
}

func (s *PortSink) AllNotesOff() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.sounding {
		s.write(gomidi.NoteOff(k[0], k[1]))
	}
	clear(s.sounding)
	for ch := uint8(0); ch < 16; ch++ {
		s.write(gomidi.ControlChange(ch, CCAllNotesOff, 0))
	}
}

func (s *PortSink) ProgramChange(channel, program uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.write(gomidi.ProgramChange(channel, program))
}

// Errors counts failed sends.
func (s *PortSink) Errors() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errs
}

// Close silences the port and closes it.
func (s *PortSink) Close() error {
	s.AllNotesOff()
	if s.port != nil {
		return s.port.Close()
	}
	return nil
}

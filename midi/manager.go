package midi

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver

	"go-harmony/debug"
)

// ScanTimeout bounds a port listing. Some MIDI services hang on enumeration.
const ScanTimeout = 3 * time.Second

// ErrScanTimeout is returned when the driver did not list its ports in time.
var ErrScanTimeout = errors.New("midi: port scan timed out")

// DeviceEvent is emitted when controllers connect/disconnect
type DeviceEvent struct {
	Type       DeviceEventType
	Controller Controller
	ID         string
}

type DeviceEventType int

const (
	DeviceConnected DeviceEventType = iota
	DeviceDisconnected
)

func (t DeviceEventType) String() string {
	if t == DeviceConnected {
		return "connected"
	}
	return "disconnected"
}

type portsResult struct {
	inPorts  []drivers.In
	outPorts []drivers.Out
}

func listPorts() (portsResult, error) {
	ch := make(chan portsResult, 1)
	go func() {
		ch <- portsResult{inPorts: gomidi.GetInPorts(), outPorts: gomidi.GetOutPorts()}
	}()
	select {
	case r := <-ch:
		return r, nil
	case <-time.After(ScanTimeout):
		return portsResult{}, ErrScanTimeout
	}
}

// OutPorts lists the output ports.
func OutPorts() ([]drivers.Out, error) {
	r, err := listPorts()
	return r.outPorts, err
}

// InPorts lists the input ports.
func InPorts() ([]drivers.In, error) {
	r, err := listPorts()
	return r.inPorts, err
}

// DeviceManager handles hot-plug detection of MIDI keyboards
type DeviceManager struct {
	controllers map[string]Controller
	mu          sync.RWMutex
	events      chan DeviceEvent
	pollRate    time.Duration

	// Match selects the input ports to open. Nil opens all but the system
	// through port.
	Match func(name string) bool
}

// NewDeviceManager creates a new device manager
func NewDeviceManager() *DeviceManager {
	return &DeviceManager{
		controllers: make(map[string]Controller),
		events:      make(chan DeviceEvent, 16),
		pollRate:    time.Second,
	}
}

// Events returns a channel of device connect/disconnect events
func (dm *DeviceManager) Events() <-chan DeviceEvent {
	return dm.events
}

// Controllers returns a snapshot of connected controllers
func (dm *DeviceManager) Controllers() map[string]Controller {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	out := make(map[string]Controller, len(dm.controllers))
	for k, v := range dm.controllers {
		out[k] = v
	}
	return out
}

// Keyboard returns a connected keyboard (or nil)
func (dm *DeviceManager) Keyboard() Controller {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	for _, c := range dm.controllers {
		if c.Type() == ControllerKeyboard {
			return c
		}
	}
	return nil
}

// Run starts the polling loop (blocking - run in goroutine)
func (dm *DeviceManager) Run(ctx context.Context) {
	ticker := time.NewTicker(dm.pollRate)
	defer ticker.Stop()

	dm.scan()

	for {
		select {
		case <-ctx.Done():
			dm.closeAll()
			close(dm.events)
			return
		case <-ticker.C:
			dm.scan()
		}
	}
}

func (dm *DeviceManager) match(name string) bool {
	if dm.Match != nil {
		return dm.Match(name)
	}
	return !strings.Contains(strings.ToLower(name), "through")
}

func (dm *DeviceManager) scan() {
	ports, err := listPorts()
	if err != nil {
		debug.Log("midi", "port scan skipped: %v", err)
		return
	}

	seenIDs := make(map[string]bool)
	for _, inPort := range ports.inPorts {
		id := inPort.String()
		if !dm.match(id) {
			continue
		}
		seenIDs[id] = true

		dm.mu.RLock()
		_, exists := dm.controllers[id]
		dm.mu.RUnlock()
		if exists {
			continue
		}

		kb, err := NewKeyboardController(id, inPort)
		if err != nil {
			debug.Log("midi", "open %s: %v", id, err)
			continue
		}
		dm.mu.Lock()
		dm.controllers[id] = kb
		dm.mu.Unlock()

		dm.events <- DeviceEvent{Type: DeviceConnected, Controller: kb, ID: id}
	}

	dm.mu.Lock()
	var toRemove []string
	for id := range dm.controllers {
		if !seenIDs[id] {
			toRemove = append(toRemove, id)
		}
	}
	for _, id := range toRemove {
		dm.controllers[id].Close()
		delete(dm.controllers, id)
		dm.events <- DeviceEvent{Type: DeviceDisconnected, ID: id}
	}
	dm.mu.Unlock()
}

func (dm *DeviceManager) closeAll() {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	for _, c := range dm.controllers {
		c.Close()
	}
	dm.controllers = make(map[string]Controller)
}

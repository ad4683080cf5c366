// Package pins accesses the bench side of the floppy bus.
//
// Pins are identified by their floppy connector pin number, which is also
// the bit index in gw.PinMask. All lines are active-low.
package pins

import (
	"sync"

	"github.com/robotalks/gwbench/pkg/gw"
)

// BenchOutputs are driven by the bench and sensed by the peer.
var BenchOutputs = []int{8, 26, 28, 30, 34}

// BenchInputs are driven by the peer and sensed by the bench.
var BenchInputs = []int{2, 4, 6, 10, 12, 14, 16, 18, 20, 22, 24, 32, 33}

// Bank is the local pin bank.
type Bank interface {
	// Drive sets BenchOutputs to the levels in mask.
	Drive(mask gw.PinMask) error
	// Read samples BenchInputs. Bits of other pins are undefined.
	Read() (gw.PinMask, error)
}

// MaskOf returns the mask with only the listed pins set.
func MaskOf(pins []int) (m gw.PinMask) {
	for _, pin := range pins {
		m = m.With(pin, true)
	}
	return
}

// AllExcept returns all pins high except pin.
func AllExcept(pin int) gw.PinMask {
	return gw.AllHigh.With(pin, false)
}

// Memory is an in-memory Bank. Another party (a simulated peer) can sense
// Driven and set the levels returned by Read.
type Memory struct {
	lock   sync.Mutex
	driven gw.PinMask
	inputs gw.PinMask
}

// NewMemory creates a Memory with all lines released.
func NewMemory() *Memory {
	return &Memory{driven: gw.AllHigh, inputs: gw.AllHigh}
}

// Drive implements Bank.
func (m *Memory) Drive(mask gw.PinMask) error {
	m.lock.Lock()
	m.driven = mask
	m.lock.Unlock()
	return nil
}

// Read implements Bank.
func (m *Memory) Read() (gw.PinMask, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.inputs, nil
}

// Driven returns the levels last driven by the bench.
func (m *Memory) Driven() gw.PinMask {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.driven
}

// SetInputs sets the levels the bench reads.
func (m *Memory) SetInputs(mask gw.PinMask) {
	m.lock.Lock()
	m.inputs = mask
	m.lock.Unlock()
}

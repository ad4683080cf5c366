// Package sim simulates a Greaseweazle wired to the bench, for bench
// development without hardware and for tests.
package sim

import (
	"bytes"
	"sync"
	"time"

	"github.com/golang/glog"
	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/physic"

	"github.com/robotalks/gwbench/pkg/comm"
	"github.com/robotalks/gwbench/pkg/gw"
	"github.com/robotalks/gwbench/pkg/pins"
)

// AckBadCommand is answered to commands the peer does not understand.
const AckBadCommand byte = 1

// Faults are defects injected into the simulated unit.
type Faults struct {
	// StuckPins holds lines stuck at a level regardless of drivers.
	StuckPins map[int]bool
	// BadTestModeAck makes the peer refuse test mode.
	BadTestModeAck bool
	// DropAfter silences the peer after answering that many commands.
	DropAfter int
	// OptionBytes replaces the option-byte dump if not nil.
	OptionBytes []byte
}

// DefaultInfo is reported by the simulated unit.
var DefaultInfo = gw.Info{
	FwMajor:        1,
	FwMinor:        5,
	IsMainFirmware: true,
	MaxCmd:         gw.CmdMax,
	SampleFreq:     72000000,
	HwModel:        4,
	USBSpeed:       1,
	MCUID:          5,
	MCUMHz:         144,
	MCUSRAMKB:      32,
	USBBufKB:       8,
}

// FactoryOptionBytes is the dump of an erased AT32F4.
var FactoryOptionBytes = []byte{
	0xa5, 0x5a, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
}

// Peer is a simulated Greaseweazle. It implements loopback.Peer and is
// wired to the bench pins through a pins.Memory.
type Peer struct {
	Info   gw.Info
	Faults Faults
	Bench  *pins.Memory

	lock     sync.Mutex
	testMode bool
	led      bool
	answered int
}

// NewPeer creates a healthy Peer wired to bank.
func NewPeer(bank *pins.Memory) *Peer {
	return &Peer{Info: DefaultInfo, Bench: bank}
}

// Reset implements loopback.Resetter. The unit reboots into the main
// firmware.
func (p *Peer) Reset() {
	p.lock.Lock()
	p.testMode, p.led, p.answered = false, false, 0
	p.lock.Unlock()
}

// LED reports the activity LED.
func (p *Peer) LED() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.led
}

// TestMode reports whether the peer is in test mode.
func (p *Peer) TestMode() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.testMode
}

// Handle implements loopback.Peer.
func (p *Peer) Handle(cmd []byte) []byte {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.Faults.DropAfter > 0 && p.answered >= p.Faults.DropAfter {
		glog.V(2).Infof("sim: drop %s", comm.HexDump(cmd))
		return nil
	}
	p.answered++
	if p.testMode {
		return p.handleTest(cmd)
	}
	switch {
	case bytes.Equal(cmd, gw.InfoRequest()):
		return p.Info.Bytes()
	case gw.IsTestModeRequest(cmd):
		if p.Faults.BadTestModeAck {
			return []byte{gw.CmdTestMode, AckBadCommand}
		}
		p.testMode = true
		return gw.TestModeResponse()
	case len(cmd) > 0:
		return []byte{cmd[0], AckBadCommand}
	}
	return nil
}

func (p *Peer) handleTest(b []byte) []byte {
	cmd, err := gw.ParseTestCommand(b)
	if err != nil {
		glog.Warningf("sim: %v", err)
		return nil
	}
	var rsp gw.TestResponse
	switch cmd.Cmd {
	case gw.TestCmdPins:
		// peer outputs are the bench inputs and the other way round.
		p.Bench.SetInputs(p.stuck(cmd.Mask()))
		rsp = gw.PinsResponse(p.stuck(p.Bench.Driven()))
	case gw.TestCmdOptionBytes:
		opt := FactoryOptionBytes
		if p.Faults.OptionBytes != nil {
			opt = p.Faults.OptionBytes
		}
		copy(rsp[:], opt)
	case gw.TestCmdLED:
		p.led = cmd.Payload[0] != 0
	}
	return rsp[:]
}

func (p *Peer) stuck(m gw.PinMask) gw.PinMask {
	for pin, level := range p.Faults.StuckPins {
		m = m.With(pin, level)
	}
	return m
}

// EdgeTrain emits rising edges at a fixed period on a virtual clock.
// It implements probe.EdgeWaiter.
type EdgeTrain struct {
	Period time.Duration
	lock   sync.Mutex
	now    time.Time
}

// WaitForEdge implements probe.EdgeWaiter.
func (e *EdgeTrain) WaitForEdge(time.Duration) bool {
	e.lock.Lock()
	defer e.lock.Unlock()
	if e.Period <= 0 {
		return false
	}
	e.now = e.now.Add(e.Period)
	return true
}

// Now is the clock of the edge timestamps.
func (e *EdgeTrain) Now() time.Time {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.now
}

// ADC reports a fixed voltage. It implements probe.Sampler.
type ADC struct {
	V physic.ElectricPotential
}

// Read implements probe.Sampler.
func (a *ADC) Read() (analog.Sample, error) {
	return analog.Sample{V: a.V}, nil
}

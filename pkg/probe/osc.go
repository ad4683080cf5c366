package probe

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// OscSpec describes the expected oscillator output.
type OscSpec struct {
	Period time.Duration `json:"period_ns"`
	// Tolerance is the allowed relative deviation of each period.
	Tolerance float64 `json:"tolerance"`
	// Edges is the number of rising edges captured.
	Edges int `json:"edges"`
}

// DefaultOscSpec is a 1kHz signal within 1%.
var DefaultOscSpec = OscSpec{
	Period:    time.Millisecond,
	Tolerance: 0.01,
	Edges:     32,
}

// EdgeWaiter blocks until the next configured edge.
type EdgeWaiter interface {
	WaitForEdge(timeout time.Duration) bool
}

// Oscillator captures edge timestamps and checks consecutive deltas.
type Oscillator struct {
	Pin   EdgeWaiter
	Clock func() time.Time
}

// OpenOscillator configures the named GPIO for rising edge capture.
func OpenOscillator(name string) (*Oscillator, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("no GPIO %s", name)
	}
	if err := p.In(gpio.PullNoChange, gpio.RisingEdge); err != nil {
		return nil, fmt.Errorf("%s: %v", name, err)
	}
	return &Oscillator{Pin: p, Clock: time.Now}, nil
}

// Capture collects n+1 edge timestamps. A missing edge stops the capture.
func (o *Oscillator) Capture(n int, timeout time.Duration) ([]time.Time, error) {
	stamps := make([]time.Time, 0, n+1)
	for len(stamps) <= n {
		if !o.Pin.WaitForEdge(timeout) {
			return stamps, errorf(CodeOscillator, "no edge after %d captured", len(stamps))
		}
		stamps = append(stamps, o.Clock())
	}
	return stamps, nil
}

// Measure checks every period of the captured edge train against spec.
func (o *Oscillator) Measure(spec OscSpec) error {
	stamps, err := o.Capture(spec.Edges, 4*spec.Period+10*time.Millisecond)
	if err != nil {
		return err
	}
	return CheckPeriods(stamps, spec)
}

// CheckPeriods verifies consecutive deltas fall within the tolerance band.
func CheckPeriods(stamps []time.Time, spec OscSpec) error {
	if len(stamps) < 2 {
		return errorf(CodeOscillator, "%d edges captured", len(stamps))
	}
	dev := time.Duration(float64(spec.Period) * spec.Tolerance)
	lo, hi := spec.Period-dev, spec.Period+dev
	for i := 1; i < len(stamps); i++ {
		if d := stamps[i].Sub(stamps[i-1]); d < lo || d > hi {
			return errorf(CodeOscillator, "period %d is %v, expect %v..%v", i, d, lo, hi)
		}
	}
	return nil
}

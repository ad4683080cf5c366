package probe

import (
	"fmt"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
)

// CCWindow is the accepted CC line voltage range.
type CCWindow struct {
	MinMV int `json:"min_mv"`
	MaxMV int `json:"max_mv"`
}

// DefaultCCWindow is Rd pulled against the host's default USB current Rp.
var DefaultCCWindow = CCWindow{MinMV: 250, MaxMV: 610}

// Contains reports whether v falls in the window.
func (w CCWindow) Contains(v physic.ElectricPotential) bool {
	return v >= physic.ElectricPotential(w.MinMV)*physic.MilliVolt &&
		v <= physic.ElectricPotential(w.MaxMV)*physic.MilliVolt
}

// Sampler reads one analog value.
type Sampler interface {
	Read() (analog.Sample, error)
}

// CC samples the CC line of the peer's USB-C receptacle.
type CC struct {
	ADC Sampler
	// Samples are averaged per check.
	Samples int
}

// Check samples the line and verifies it is within w.
func (c *CC) Check(w CCWindow) error {
	n := c.Samples
	if n <= 0 {
		n = 1
	}
	var sum physic.ElectricPotential
	for i := 0; i < n; i++ {
		s, err := c.ADC.Read()
		if err != nil {
			return errorf(CodeCC, "adc: %v", err)
		}
		sum += s.V
	}
	v := sum / physic.ElectricPotential(n)
	if !w.Contains(v) {
		return errorf(CodeCC, "%s outside %dmV..%dmV", v, w.MinMV, w.MaxMV)
	}
	return nil
}

// OpenADS1115 opens channel ch of an ADS1115 on the default I2C bus.
func OpenADS1115(ch int) (*CC, func() error, error) {
	bus, err := i2creg.Open("")
	if err != nil {
		return nil, nil, fmt.Errorf("i2c: %v", err)
	}
	dev, err := ads1x15.NewADS1115(bus, &ads1x15.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, nil, fmt.Errorf("ads1115: %v", err)
	}
	channels := []ads1x15.Channel{ads1x15.Channel0, ads1x15.Channel1, ads1x15.Channel2, ads1x15.Channel3}
	if ch < 0 || ch >= len(channels) {
		bus.Close()
		return nil, nil, fmt.Errorf("invalid ADC channel %d", ch)
	}
	pin, err := dev.PinForChannel(channels[ch], 3300*physic.MilliVolt, 128*physic.Hertz, ads1x15.BestQuality)
	if err != nil {
		bus.Close()
		return nil, nil, fmt.Errorf("ads1115: %v", err)
	}
	closer := func() error {
		pin.Halt()
		return bus.Close()
	}
	return &CC{ADC: pin, Samples: 4}, closer, nil
}

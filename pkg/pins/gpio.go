package pins

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/robotalks/gwbench/pkg/gw"
)

// PinMap maps floppy pin numbers to host GPIO names.
type PinMap map[int]string

// DefaultPinMap is the wiring of the reference jig on a Raspberry Pi header.
var DefaultPinMap = PinMap{
	2:  "GPIO4",
	4:  "GPIO17",
	6:  "GPIO27",
	8:  "GPIO22",
	10: "GPIO5",
	12: "GPIO6",
	14: "GPIO13",
	16: "GPIO19",
	18: "GPIO26",
	20: "GPIO18",
	22: "GPIO23",
	24: "GPIO24",
	26: "GPIO25",
	28: "GPIO12",
	30: "GPIO16",
	32: "GPIO20",
	33: "GPIO21",
	34: "GPIO7",
}

// ParsePinMap parses "8=GPIO22,26=GPIO25" on top of DefaultPinMap.
func ParsePinMap(s string) (PinMap, error) {
	m := make(PinMap)
	for k, v := range DefaultPinMap {
		m[k] = v
	}
	if s == "" {
		return m, nil
	}
	for _, item := range strings.Split(s, ",") {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid pin mapping %q", item)
		}
		pin, err := strconv.Atoi(parts[0])
		if err != nil || pin < 0 || pin > 63 {
			return nil, fmt.Errorf("invalid pin number %q", parts[0])
		}
		m[pin] = parts[1]
	}
	return m, nil
}

// String implements flag.Value style output, ordered by pin.
func (m PinMap) String() string {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	items := make([]string, 0, len(keys))
	for _, k := range keys {
		items = append(items, fmt.Sprintf("%d=%s", k, m[k]))
	}
	return strings.Join(items, ",")
}

// GPIO is a Bank on host GPIO lines.
type GPIO struct {
	outputs map[int]gpio.PinIO
	inputs  map[int]gpio.PinIO
}

// OpenGPIO initializes host drivers and claims the mapped lines. Outputs
// start released (high), inputs are pulled up.
func OpenGPIO(m PinMap) (*GPIO, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %v", err)
	}
	return claimGPIO(m, gpioreg.ByName)
}

// claimGPIO configures the lines found by byName. On failure the outputs
// already claimed stop driving.
func claimGPIO(m PinMap, byName func(string) gpio.PinIO) (g *GPIO, err error) {
	g = &GPIO{
		outputs: make(map[int]gpio.PinIO),
		inputs:  make(map[int]gpio.PinIO),
	}
	defer func() {
		if err != nil {
			g.unclaim()
			g = nil
		}
	}()
	lookup := func(pin int) (gpio.PinIO, error) {
		name, ok := m[pin]
		if !ok {
			return nil, fmt.Errorf("pin %d not mapped", pin)
		}
		p := byName(name)
		if p == nil {
			return nil, fmt.Errorf("pin %d: no GPIO %s", pin, name)
		}
		return p, nil
	}
	for _, pin := range BenchOutputs {
		p, err := lookup(pin)
		if err != nil {
			return g, err
		}
		if err := p.Out(gpio.High); err != nil {
			return g, fmt.Errorf("pin %d: %v", pin, err)
		}
		g.outputs[pin] = p
	}
	for _, pin := range BenchInputs {
		p, err := lookup(pin)
		if err != nil {
			return g, err
		}
		if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return g, fmt.Errorf("pin %d: %v", pin, err)
		}
		g.inputs[pin] = p
	}
	return g, nil
}

// unclaim turns the claimed outputs back into inputs.
func (g *GPIO) unclaim() {
	for pin, p := range g.outputs {
		if err := p.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
			glog.Warningf("release pin %d: %v", pin, err)
		}
	}
	g.outputs = make(map[int]gpio.PinIO)
}

// Drive implements Bank.
func (g *GPIO) Drive(mask gw.PinMask) error {
	for pin, p := range g.outputs {
		if err := p.Out(gpio.Level(mask.Level(pin))); err != nil {
			return fmt.Errorf("pin %d: %v", pin, err)
		}
	}
	return nil
}

// Read implements Bank.
func (g *GPIO) Read() (gw.PinMask, error) {
	mask := gw.AllHigh
	for pin, p := range g.inputs {
		mask = mask.With(pin, bool(p.Read()))
	}
	return mask, nil
}

// Release drives all outputs high and leaves the lines configured.
func (g *GPIO) Release() error {
	return g.Drive(gw.AllHigh)
}

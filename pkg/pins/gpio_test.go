package pins

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"github.com/robotalks/gwbench/pkg/gw"
)

// testPin records the direction of a gpiotest.Pin.
type testPin struct {
	*gpiotest.Pin
	output  bool
	failOut bool
}

func (p *testPin) Out(l gpio.Level) error {
	if p.failOut {
		return errors.New("line busy")
	}
	p.output = true
	return p.Pin.Out(l)
}

func (p *testPin) In(pull gpio.Pull, edge gpio.Edge) error {
	p.output = false
	return p.Pin.In(pull, edge)
}

func newTestPins(m PinMap) map[string]*testPin {
	pins := make(map[string]*testPin)
	for num, name := range m {
		pins[name] = &testPin{Pin: &gpiotest.Pin{N: name, Num: num}}
	}
	return pins
}

func byName(pins map[string]*testPin) func(string) gpio.PinIO {
	return func(name string) gpio.PinIO {
		if p, ok := pins[name]; ok {
			return p
		}
		return nil
	}
}

func TestClaimGPIO(t *testing.T) {
	pins := newTestPins(DefaultPinMap)
	g, err := claimGPIO(DefaultPinMap, byName(pins))
	require.NoError(t, err)
	for _, pin := range BenchOutputs {
		p := pins[DefaultPinMap[pin]]
		assert.True(t, p.output, "pin %d", pin)
		assert.Equal(t, gpio.High, p.Pin.Read(), "pin %d", pin)
	}
	for _, pin := range BenchInputs {
		assert.False(t, pins[DefaultPinMap[pin]].output, "pin %d", pin)
	}

	require.NoError(t, g.Drive(AllExcept(BenchOutputs[0])))
	assert.Equal(t, gpio.Low, pins[DefaultPinMap[BenchOutputs[0]]].Pin.Read())
	mask, err := g.Read()
	require.NoError(t, err)
	assert.Equal(t, gw.AllHigh, mask)
}

func TestClaimGPIOReleasesOutputsOnFailure(t *testing.T) {
	pins := newTestPins(DefaultPinMap)
	failing := BenchOutputs[len(BenchOutputs)-1]
	pins[DefaultPinMap[failing]].failOut = true
	g, err := claimGPIO(DefaultPinMap, byName(pins))
	require.Error(t, err)
	assert.Nil(t, g)
	for _, pin := range BenchOutputs {
		assert.False(t, pins[DefaultPinMap[pin]].output, "pin %d still driven", pin)
	}
}

func TestClaimGPIOMissingLine(t *testing.T) {
	pins := newTestPins(DefaultPinMap)
	delete(pins, DefaultPinMap[BenchInputs[0]])
	_, err := claimGPIO(DefaultPinMap, byName(pins))
	assert.EqualError(t, err, "pin 2: no GPIO "+DefaultPinMap[BenchInputs[0]])
	for _, pin := range BenchOutputs {
		assert.False(t, pins[DefaultPinMap[pin]].output, "pin %d still driven", pin)
	}
}

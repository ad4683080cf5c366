package probe

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/physic"
)

type edgeTrain struct {
	now     time.Time
	periods []time.Duration
}

func (e *edgeTrain) WaitForEdge(time.Duration) bool {
	if len(e.periods) == 0 {
		return false
	}
	e.now = e.now.Add(e.periods[0])
	e.periods = e.periods[1:]
	return true
}

func (e *edgeTrain) clock() time.Time { return e.now }

func steady(n int, d time.Duration) []time.Duration {
	p := make([]time.Duration, n)
	for i := range p {
		p[i] = d
	}
	return p
}

func TestOscillatorInTolerance(t *testing.T) {
	train := &edgeTrain{periods: steady(DefaultOscSpec.Edges+1, 1005*time.Microsecond)}
	osc := &Oscillator{Pin: train, Clock: train.clock}
	assert.NoError(t, osc.Measure(DefaultOscSpec))
}

func TestOscillatorOutOfTolerance(t *testing.T) {
	periods := steady(DefaultOscSpec.Edges+1, time.Millisecond)
	periods[10] = 1020 * time.Microsecond
	train := &edgeTrain{periods: periods}
	osc := &Oscillator{Pin: train, Clock: train.clock}
	err := osc.Measure(DefaultOscSpec)
	require.Error(t, err)
	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "OSC", perr.DisplayCode())
}

func TestOscillatorMissingEdges(t *testing.T) {
	train := &edgeTrain{periods: steady(3, time.Millisecond)}
	osc := &Oscillator{Pin: train, Clock: train.clock}
	err := osc.Measure(DefaultOscSpec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no edge after 3")
}

type fixedADC struct {
	v   physic.ElectricPotential
	err error
}

func (a *fixedADC) Read() (analog.Sample, error) {
	return analog.Sample{V: a.v}, a.err
}

func TestCCWindow(t *testing.T) {
	testCases := []struct {
		v  physic.ElectricPotential
		ok bool
	}{
		{400 * physic.MilliVolt, true},
		{250 * physic.MilliVolt, true},
		{610 * physic.MilliVolt, true},
		{0, false},
		{1700 * physic.MilliVolt, false},
	}
	for _, tc := range testCases {
		cc := &CC{ADC: &fixedADC{v: tc.v}, Samples: 3}
		err := cc.Check(DefaultCCWindow)
		if tc.ok {
			assert.NoError(t, err, tc.v.String())
		} else {
			require.Error(t, err, tc.v.String())
			assert.Equal(t, "CC", err.(*Error).DisplayCode())
		}
	}
}

func TestCCReadError(t *testing.T) {
	cc := &CC{ADC: &fixedADC{err: errors.New("nack")}}
	err := cc.Check(DefaultCCWindow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nack")
}

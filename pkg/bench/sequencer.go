package bench

import (
	"fmt"

	"github.com/robotalks/gwbench/pkg/gw"
)

// Step identifies a state of the test plan.
type Step int

// Test plan.
const (
	StepIdle Step = iota
	StepGetInfo
	StepCheckInfo
	StepTestMode
	// the peer asserts each of its outputs in turn.
	StepWalkPeerOutputs
	StepCheckPeerOutputs
	StepReleaseAll
	StepCheckReleased
	// the bench asserts each of its outputs in turn.
	StepWalkBenchOutputs
	StepSamplePeerInputs
	StepCheckBenchOutputs
	StepDriveAllLow
	StepCheckAllLow
	StepOptionBytes
	StepCheckOptionBytes
	StepOscillator
	StepUSBC
	StepFinish
	StepLEDOn
	StepLEDOff
)

// OuterBound limits the passes of a pin walk. The walk ends when the pass
// counter exceeds it.
const OuterBound = 11

var stepNames = map[Step]string{
	StepIdle:              "idle",
	StepGetInfo:           "get-info",
	StepCheckInfo:         "check-info",
	StepTestMode:          "test-mode",
	StepWalkPeerOutputs:   "walk-peer-outputs",
	StepCheckPeerOutputs:  "check-peer-outputs",
	StepReleaseAll:        "release-all",
	StepCheckReleased:     "check-released",
	StepWalkBenchOutputs:  "walk-bench-outputs",
	StepSamplePeerInputs:  "sample-peer-inputs",
	StepCheckBenchOutputs: "check-bench-outputs",
	StepDriveAllLow:       "drive-all-low",
	StepCheckAllLow:       "check-all-low",
	StepOptionBytes:       "option-bytes",
	StepCheckOptionBytes:  "check-option-bytes",
	StepOscillator:        "oscillator",
	StepUSBC:              "usb-c",
	StepFinish:            "finish",
	StepLEDOn:             "led-on",
	StepLEDOff:            "led-off",
}

// String implements fmt.Stringer.
func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// Sequencer is the state of the test plan.
type Sequencer struct {
	Step Step
	// Next is dispatched when the engine is idle.
	Next      Step
	PinIter   int
	OuterIter int
	// Success is never cleared once set.
	Success bool
	Info    gw.Info
	Model   Model
}

// Reset starts the plan over.
func (s *Sequencer) Reset() {
	*s = Sequencer{Next: StepGetInfo}
}

// walk advances a pin walk over n pins. It returns false when the walk
// is over.
func (s *Sequencer) walk(n int) bool {
	if s.PinIter >= n {
		s.PinIter = 0
		s.OuterIter++
		if s.OuterIter > OuterBound {
			s.OuterIter = 0
			return false
		}
	}
	return true
}

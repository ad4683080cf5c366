package bench

import (
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/gwbench/pkg/comm"
	"github.com/robotalks/gwbench/pkg/display"
	"github.com/robotalks/gwbench/pkg/gw"
	"github.com/robotalks/gwbench/pkg/pins"
	"github.com/robotalks/gwbench/pkg/probe"
)

// stepFunc performs a step. A non-zero Step overrides the next step.
type stepFunc func(b *Bench, now time.Time) (Step, error)

var steps = map[Step]stepFunc{
	StepGetInfo:           (*Bench).getInfo,
	StepCheckInfo:         (*Bench).checkInfo,
	StepTestMode:          (*Bench).testMode,
	StepWalkPeerOutputs:   (*Bench).walkPeerOutputs,
	StepCheckPeerOutputs:  (*Bench).checkPeerOutputs,
	StepReleaseAll:        (*Bench).releaseAll,
	StepCheckReleased:     (*Bench).checkReleased,
	StepWalkBenchOutputs:  (*Bench).walkBenchOutputs,
	StepSamplePeerInputs:  (*Bench).samplePeerInputs,
	StepCheckBenchOutputs: (*Bench).checkBenchOutputs,
	StepDriveAllLow:       (*Bench).driveAllLow,
	StepCheckAllLow:       (*Bench).checkAllLow,
	StepOptionBytes:       (*Bench).optionBytes,
	StepCheckOptionBytes:  (*Bench).checkOptionBytes,
	StepOscillator:        (*Bench).oscillator,
	StepUSBC:              (*Bench).usbc,
	StepFinish:            (*Bench).finish,
	StepLEDOn:             (*Bench).ledOn,
	StepLEDOff:            (*Bench).ledOff,
}

func (b *Bench) exchange(now time.Time, cmd, expect []byte, rspLen int) error {
	return b.Engine.Begin(now, comm.Exchange{Command: cmd, Expect: expect, ResponseLen: rspLen})
}

func (b *Bench) command(now time.Time, cmd gw.TestCommand) error {
	return b.exchange(now, cmd.Bytes(), nil, gw.TestFrameSize)
}

func (b *Bench) response() (gw.TestResponse, error) {
	rsp, err := gw.ParseTestResponse(b.Engine.Response())
	if err != nil {
		return rsp, badResponse("%v", err)
	}
	return rsp, nil
}

func (b *Bench) getInfo(now time.Time) (Step, error) {
	return 0, b.exchange(now, gw.InfoRequest(), nil, gw.InfoResponseSize)
}

func (b *Bench) checkInfo(time.Time) (Step, error) {
	info, err := gw.ParseInfo(b.Engine.Response()[2:])
	if err != nil {
		return 0, badResponse("%v", err)
	}
	glog.Info(info.String())
	if info.MaxCmd < gw.CmdMax || !info.IsMainFirmware {
		return 0, badResponse("unsupported firmware %s main=%v", info, info.IsMainFirmware)
	}
	b.seq.Info = info
	b.seq.Model = b.Models.Lookup(info.HwModel, info.HwSubmodel)
	return 0, nil
}

func (b *Bench) testMode(now time.Time) (Step, error) {
	return 0, b.exchange(now, gw.TestModeRequest(), gw.TestModeResponse(), gw.AckResponseSize)
}

func (b *Bench) walkPeerOutputs(now time.Time) (Step, error) {
	s := &b.seq
	if !s.walk(len(pins.BenchInputs)) {
		return StepReleaseAll, nil
	}
	return 0, b.command(now, gw.PinsCommand(pins.AllExcept(pins.BenchInputs[s.PinIter])))
}

func (b *Bench) checkPeerOutputs(time.Time) (Step, error) {
	s := &b.seq
	err := b.checkPins(pins.BenchInputs[s.PinIter])
	s.PinIter++
	return StepWalkPeerOutputs, err
}

func (b *Bench) releaseAll(now time.Time) (Step, error) {
	return 0, b.command(now, gw.PinsCommand(gw.AllHigh))
}

func (b *Bench) checkReleased(time.Time) (Step, error) {
	return 0, b.checkPins(-1)
}

func (b *Bench) walkBenchOutputs(time.Time) (Step, error) {
	s := &b.seq
	if !s.walk(len(pins.BenchOutputs)) {
		return StepDriveAllLow, nil
	}
	return 0, b.Pins.Drive(pins.AllExcept(pins.BenchOutputs[s.PinIter]))
}

func (b *Bench) samplePeerInputs(now time.Time) (Step, error) {
	return 0, b.command(now, gw.PinsCommand(gw.AllHigh))
}

func (b *Bench) checkBenchOutputs(time.Time) (Step, error) {
	s := &b.seq
	err := b.checkPins(pins.BenchOutputs[s.PinIter])
	s.PinIter++
	return StepWalkBenchOutputs, err
}

func (b *Bench) driveAllLow(now time.Time) (Step, error) {
	if err := b.Pins.Drive(0); err != nil {
		return 0, err
	}
	return 0, b.command(now, gw.PinsCommand(0))
}

func (b *Bench) checkAllLow(time.Time) (Step, error) {
	b.Sleep(b.Config.Settle)
	remote, local, err := b.levels()
	if err != nil {
		return 0, err
	}
	for _, pin := range pins.BenchOutputs {
		if remote.Level(pin) {
			return 0, &PinError{Pin: pin, High: true}
		}
	}
	for _, pin := range pins.BenchInputs {
		if local.Level(pin) {
			return 0, &PinError{Pin: pin, High: true}
		}
	}
	return 0, nil
}

func (b *Bench) optionBytes(now time.Time) (Step, error) {
	if len(b.seq.Model.OptionBytes) == 0 {
		return StepOscillator, nil
	}
	return 0, b.command(now, gw.OptionBytesCommand())
}

func (b *Bench) checkOptionBytes(time.Time) (Step, error) {
	rsp, err := b.response()
	if err != nil {
		return 0, err
	}
	opt := rsp.OptionBytes()
	for _, p := range b.seq.Model.OptionBytes {
		if p.Match(opt) {
			glog.V(1).Infof("option bytes match %q", p.Name)
			return 0, nil
		}
	}
	return 0, &OptionBytesError{Got: append([]byte(nil), opt[:16]...)}
}

func (b *Bench) oscillator(time.Time) (Step, error) {
	spec := b.seq.Model.Oscillator
	if spec == nil {
		return 0, nil
	}
	if b.Osc == nil {
		return 0, &probe.Error{Code: probe.CodeOscillator, Msg: "no oscillator probe"}
	}
	return 0, b.Osc.Measure(*spec)
}

func (b *Bench) usbc(time.Time) (Step, error) {
	w := b.seq.Model.CC
	if w == nil {
		return 0, nil
	}
	if b.CC == nil {
		return 0, &probe.Error{Code: probe.CodeCC, Msg: "no CC probe"}
	}
	return 0, b.CC.Check(*w)
}

func (b *Bench) finish(now time.Time) (Step, error) {
	if err := b.Pins.Drive(gw.AllHigh); err != nil {
		return 0, err
	}
	if err := b.command(now, gw.PinsCommand(gw.AllHigh)); err != nil {
		return 0, err
	}
	b.show("---")
	b.seq.Success = true
	glog.Infof("PASS %s", b.seq.Info)
	if r, ok := b.Display.(display.Reporter); ok {
		r.Passed(b.seq.Info)
	}
	return 0, nil
}

func (b *Bench) ledOn(now time.Time) (Step, error) {
	b.Sleep(b.Config.Blink)
	return 0, b.command(now, gw.LEDCommand(true))
}

func (b *Bench) ledOff(now time.Time) (Step, error) {
	b.Sleep(b.Config.Blink)
	return StepLEDOn, b.command(now, gw.LEDCommand(false))
}

// levels returns the pins reported by the peer and the local inputs.
func (b *Bench) levels() (remote, local gw.PinMask, err error) {
	rsp, err := b.response()
	if err != nil {
		return
	}
	if local, err = b.Pins.Read(); err != nil {
		return
	}
	return rsp.Pins(), local, nil
}

// checkPins verifies asserted reads low and every other pin reads high.
// Bench outputs are sensed by the peer, bench inputs locally.
func (b *Bench) checkPins(asserted int) error {
	remote, local, err := b.levels()
	if err != nil {
		return err
	}
	check := func(pin int, high bool) error {
		if (pin == asserted) == high {
			return &PinError{Pin: pin, High: high}
		}
		return nil
	}
	for _, pin := range pins.BenchOutputs {
		if err := check(pin, remote.Level(pin)); err != nil {
			return err
		}
	}
	for _, pin := range pins.BenchInputs {
		if err := check(pin, local.Level(pin)); err != nil {
			return err
		}
	}
	return nil
}

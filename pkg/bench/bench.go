// Package bench runs the Greaseweazle factory test plan.
//
// The Bench is a framework.Controller polled by the loop. Each iteration it
// services the transport, restarts on disconnect, advances the outstanding
// exchange, or dispatches the next step of the plan once the engine is
// idle. Any failure halts the plan until the peer is unplugged.
package bench

import (
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/gwbench/pkg/comm"
	"github.com/robotalks/gwbench/pkg/display"
	fx "github.com/robotalks/gwbench/pkg/framework"
	"github.com/robotalks/gwbench/pkg/gw"
	"github.com/robotalks/gwbench/pkg/pins"
	"github.com/robotalks/gwbench/pkg/probe"
)

// OscProbe measures the peer oscillator.
type OscProbe interface {
	Measure(probe.OscSpec) error
}

// CCProbe checks the peer USB-C CC line.
type CCProbe interface {
	Check(probe.CCWindow) error
}

// Bench drives the test plan against one peer.
type Bench struct {
	Config    Config
	Engine    *comm.Engine
	Pins      pins.Bank
	Display   display.Display
	Models    *Models
	Osc       OscProbe
	CC        CCProbe
	Sleep     func(time.Duration)
	Restarts  int
	seq       Sequencer
	halt      *halt
	connected bool
}

type halt struct {
	step     Step
	code     string
	err      error
	showStep bool
	next     time.Time
}

// New creates a Bench.
func New(conf Config, t comm.Transport, bank pins.Bank, disp display.Display) (*Bench, error) {
	models := DefaultModels()
	if conf.ModelsFile != "" {
		if err := models.LoadFile(conf.ModelsFile); err != nil {
			return nil, err
		}
	}
	e := comm.NewEngine(t)
	e.SendTimeout, e.ReceiveTimeout = conf.SendTimeout, conf.ReceiveTimeout
	b := &Bench{
		Config:  conf,
		Engine:  e,
		Pins:    bank,
		Display: disp,
		Models:  models,
		Sleep:   time.Sleep,
	}
	b.seq.Reset()
	return b, nil
}

// AddToLoop implements framework.LoopAdder.
func (b *Bench) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvControl, b)
}

// Sequencer returns the current plan state.
func (b *Bench) Sequencer() Sequencer {
	return b.seq
}

// Halted returns the failed step and error, if halted.
func (b *Bench) Halted() (Step, error) {
	if b.halt == nil {
		return StepIdle, nil
	}
	return b.halt.step, b.halt.err
}

// Control implements framework.Controller.
func (b *Bench) Control(ctx fx.ControlContext) error {
	now := ctx.Time()
	t := b.Engine.Transport()
	t.Process()
	if !t.Connected() {
		if b.seq.Step != StepIdle || !b.Engine.Idle() || b.halt != nil {
			b.Restart()
			return nil
		}
		if b.connected {
			glog.Info("peer disconnected")
			b.connected = false
		}
		b.show("USB")
		return nil
	}
	if !b.connected {
		glog.Info("peer connected")
		b.connected = true
	}
	if b.halt != nil {
		b.haltReport(now)
		return nil
	}
	if !b.Engine.Idle() {
		if err := b.Engine.Poll(now); err != nil {
			b.fail(now, err)
		}
		return nil
	}

	s := &b.seq
	s.Step = s.Next
	s.Next = s.Step + 1
	if !s.Success {
		b.showDecimal(int(s.Step))
	}
	fn, ok := steps[s.Step]
	if !ok {
		glog.Fatalf("no action for step %d", s.Step)
	}
	glog.V(3).Infof("step %d %s", s.Step, s.Step)
	next, err := fn(b, now)
	if err != nil {
		b.fail(now, err)
		return nil
	}
	if next != 0 {
		s.Next = next
	}
	if b.Engine.Idle() {
		ctx.TriggerNext()
	}
	return nil
}

// Restart drops all progress and waits for the peer from scratch.
func (b *Bench) Restart() {
	glog.Info("restart")
	b.Engine.Reset()
	b.Engine.Transport().Reset()
	b.seq.Reset()
	b.halt = nil
	b.connected = false
	b.Restarts++
	if err := b.Pins.Drive(gw.AllHigh); err != nil {
		glog.Warningf("release pins: %v", err)
	}
	if r, ok := b.Display.(display.Reporter); ok {
		r.Restarted()
	}
}

func (b *Bench) fail(now time.Time, err error) {
	code := DisplayCode(err)
	glog.Errorf("step %d (%s) failed: %s %v", b.seq.Step, b.seq.Step, code, err)
	b.halt = &halt{step: b.seq.Step, code: code, err: err, next: now}
	if r, ok := b.Display.(display.Reporter); ok {
		r.Halted(int(b.seq.Step), code, err)
	}
	b.haltReport(now)
}

// haltReport alternates the error code and the failed step.
func (b *Bench) haltReport(now time.Time) {
	h := b.halt
	if now.Before(h.next) {
		return
	}
	h.next = now.Add(b.Config.HaltCadence)
	if h.showStep {
		b.showDecimal(int(h.step))
	} else {
		b.show(h.code)
	}
	h.showStep = !h.showStep
}

func (b *Bench) show(s string) {
	if err := b.Display.ShowString(s); err != nil {
		glog.V(1).Infof("display: %v", err)
	}
}

func (b *Bench) showDecimal(n int) {
	if err := b.Display.ShowDecimal(n); err != nil {
		glog.V(1).Infof("display: %v", err)
	}
}

package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"log"

	"github.com/golang/glog"
	"periph.io/x/conn/v3/physic"

	"github.com/robotalks/gwbench/pkg/bench"
	"github.com/robotalks/gwbench/pkg/comm"
	"github.com/robotalks/gwbench/pkg/comm/loopback"
	"github.com/robotalks/gwbench/pkg/comm/serial"
	"github.com/robotalks/gwbench/pkg/env"
	fx "github.com/robotalks/gwbench/pkg/framework"
	"github.com/robotalks/gwbench/pkg/pins"
	"github.com/robotalks/gwbench/pkg/probe"
	"github.com/robotalks/gwbench/pkg/sim"
)

var (
	simulate  bool
	pinMap    = pins.DefaultPinMap.String()
	oscPin    string
	ccChannel = -1
)

func init() {
	env.SetupFlags()
	bench.SetupFlags()
	serial.SetupFlags()
	flag.BoolVar(&simulate, "sim", simulate, "Run against a simulated Greaseweazle")
	flag.StringVar(&pinMap, "pin-map", pinMap, "Floppy pin to GPIO mapping, PIN=GPIO,...")
	flag.StringVar(&oscPin, "osc-pin", oscPin, "GPIO capturing the oscillator output")
	flag.IntVar(&ccChannel, "cc-adc", ccChannel, "ADS1115 channel sampling USB-C CC, -1 to disable")
}

type hardware struct {
	transport comm.Transport
	bank      pins.Bank
	osc       bench.OscProbe
	cc        bench.CCProbe
	closers   []func() error
}

func (h *hardware) close() {
	for _, fn := range h.closers {
		if err := fn(); err != nil {
			glog.Warning(err)
		}
	}
}

func openSim() *hardware {
	bank := pins.NewMemory()
	train := &sim.EdgeTrain{Period: probe.DefaultOscSpec.Period}
	return &hardware{
		transport: loopback.New(sim.NewPeer(bank)),
		bank:      bank,
		osc:       &probe.Oscillator{Pin: train, Clock: train.Now},
		cc:        &probe.CC{ADC: &sim.ADC{V: 400 * physic.MilliVolt}},
	}
}

func openHardware() (*hardware, error) {
	m, err := pins.ParsePinMap(pinMap)
	if err != nil {
		return nil, err
	}
	bank, err := pins.OpenGPIO(m)
	if err != nil {
		return nil, err
	}
	h := &hardware{transport: serial.New(*serial.NewConfig()), bank: bank}
	h.closers = append(h.closers, bank.Release)
	if oscPin != "" {
		osc, err := probe.OpenOscillator(oscPin)
		if err != nil {
			h.close()
			return nil, err
		}
		h.osc = osc
	}
	if ccChannel >= 0 {
		cc, closer, err := probe.OpenADS1115(ccChannel)
		if err != nil {
			h.close()
			return nil, err
		}
		h.cc = cc
		h.closers = append(h.closers, closer)
	}
	return h, nil
}

func main() {
	flag.Parse()

	var hw *hardware
	port := serial.NewConfig().Port
	if simulate {
		hw, port = openSim(), "sim"
	} else {
		var err error
		if hw, err = openHardware(); err != nil {
			log.Fatalln(err)
		}
	}
	defer hw.close()

	env := env.NewConfig().MustNewEnv(port)
	b, err := bench.New(*bench.NewConfig(), hw.transport, hw.bank, env.Display)
	if err != nil {
		log.Fatalln(err)
	}
	b.Osc, b.CC = hw.osc, hw.cc

	loop := fx.NewLoop().Add(env, b)
	if err := fx.NewRunner().HandleSignals().Go(loop).Wait(); err != nil {
		glog.Errorf("exit: %v", err)
	}
	glog.Flush()
}

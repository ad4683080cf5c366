package main

//go-build: CGO_ENABLED=0

import (
	"flag"

	"github.com/golang/glog"

	"github.com/robotalks/gwbench/pkg/cli/sh"
	"github.com/robotalks/gwbench/pkg/comm"
	"github.com/robotalks/gwbench/pkg/comm/loopback"
	"github.com/robotalks/gwbench/pkg/comm/serial"
	"github.com/robotalks/gwbench/pkg/pins"
	"github.com/robotalks/gwbench/pkg/sim"

	_ "github.com/robotalks/gwbench/pkg/cli/cmds/local"
	_ "github.com/robotalks/gwbench/pkg/cli/cmds/peer"
)

var (
	simulate bool
	pinMap   string
)

func init() {
	serial.SetupFlags()
	flag.BoolVar(&simulate, "sim", simulate, "Talk to a simulated Greaseweazle")
	flag.StringVar(&pinMap, "pin-map", pinMap, "Floppy pin to GPIO mapping, PIN=GPIO,..., local pins disabled if empty")
}

func main() {
	flag.Parse()

	var (
		t    comm.Transport
		bank pins.Bank
	)
	if simulate {
		mem := pins.NewMemory()
		t, bank = loopback.New(sim.NewPeer(mem)), mem
	} else {
		t = serial.New(*serial.NewConfig())
		if pinMap != "" {
			m, err := pins.ParsePinMap(pinMap)
			if err != nil {
				glog.Fatal(err)
			}
			g, err := pins.OpenGPIO(m)
			if err != nil {
				glog.Fatal(err)
			}
			defer g.Release()
			bank = g
		}
	}
	sh.New(comm.NewEngine(t), bank).Run(flag.Args()...)
}

// Package local provides shell commands on the bench pins.
package local

import (
	"github.com/abiosoft/ishell"

	"github.com/robotalks/gwbench/pkg/cli/cmds/peer"
	"github.com/robotalks/gwbench/pkg/cli/sh"
	"github.com/robotalks/gwbench/pkg/gw"
	"github.com/robotalks/gwbench/pkg/pins"
)

var (
	// ReadCmd samples the bench inputs.
	ReadCmd = ishell.Cmd{
		Name:    "read",
		Aliases: []string{"r"},
		Help:    "",
		Func: sh.MustHavePins(func(c *ishell.Context) {
			mask, err := sh.ShellFrom(c).Pins.Read()
			if err != nil {
				c.Err(err)
				return
			}
			high := mask & pins.MaskOf(pins.BenchInputs)
			sh.Print(c, uint64(high), "bench inputs high: "+high.String())
		}),
	}

	// DriveCmd drives bench outputs, all high except the listed pins.
	DriveCmd = ishell.Cmd{
		Name:    "drive",
		Aliases: []string{"d"},
		Help:    "[LOW-PIN...]",
		Func: sh.MustHavePins(func(c *ishell.Context) {
			low, err := peer.ParsePins(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			mask := gw.AllHigh
			for _, pin := range low {
				mask = mask.With(pin, false)
			}
			if err := sh.ShellFrom(c).Pins.Drive(mask); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		}),
	}
)

func init() {
	sh.AddCmds(&ReadCmd, &DriveCmd)
}
